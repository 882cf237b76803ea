// Package browser wraps chromedp behind a small primitive surface: navigate,
// count, read, click, type. Everything higher level (waits, retries, page
// state machines) is built on these primitives in the scraper package.
package browser

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/exec"
	"strings"
	"time"

	"github.com/chromedp/cdproto/dom"
	"github.com/chromedp/chromedp"

	"taxdeed-scraper/config"
	"taxdeed-scraper/utils"
)

// Session owns one headless browser and one long-lived tab. County sites
// keep per-session state (accepted disclaimers, search context), so a batch
// of related pages runs through a single Session rather than a tab per page.
//
// Every operation runs under its own deadline; a stalled page fails that one
// operation, never the whole session.
type Session struct {
	cfg    *config.Config
	logger *utils.Logger

	ctx           context.Context
	cancelTab     context.CancelFunc
	cancelBrowser context.CancelFunc
	cancelAlloc   context.CancelFunc

	opTimeout time.Duration
	settle    time.Duration
}

// NewSession starts the browser and opens the working tab. Failure here
// means no scraping can happen at all, so callers treat it as fatal rather
// than retryable.
func NewSession(cfg *config.Config, logger *utils.Logger) (*Session, error) {
	chromeBin := cfg.ChromeBin
	if chromeBin == "" {
		chromeBin = findChromeBinary()
	}
	logger.Info("[browser] Using browser binary: %s", chromeBin)

	opts := append(chromedp.DefaultExecAllocatorOptions[:],
		chromedp.Flag("headless", cfg.Headless),
		chromedp.Flag("disable-gpu", true),
		chromedp.Flag("no-sandbox", true),
		chromedp.Flag("disable-dev-shm-usage", true),
		chromedp.Flag("disable-setuid-sandbox", true),
		chromedp.UserAgent("Mozilla/5.0 (X11; Linux x86_64) AppleWebKit/537.36 "+
			"(KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36"),
	)
	if chromeBin != "" {
		opts = append(opts, chromedp.ExecPath(chromeBin))
	}

	allocCtx, cancelAlloc := chromedp.NewExecAllocator(context.Background(), opts...)

	// Suppress chromedp log noise
	browserCtx, cancelBrowser := chromedp.NewContext(allocCtx, chromedp.WithLogf(func(string, ...interface{}) {}))

	tabCtx, cancelTab := chromedp.NewContext(browserCtx)

	s := &Session{
		cfg:           cfg,
		logger:        logger,
		ctx:           tabCtx,
		cancelTab:     cancelTab,
		cancelBrowser: cancelBrowser,
		cancelAlloc:   cancelAlloc,
		opTimeout:     cfg.BrowserOpTimeout,
		settle:        time.Duration(cfg.BrowserNavigateWaitMs) * time.Millisecond,
	}

	// Start the browser now so a broken environment surfaces immediately.
	startCtx, cancel := context.WithTimeout(tabCtx, s.opTimeout)
	defer cancel()
	if err := chromedp.Run(startCtx); err != nil {
		s.Close()
		return nil, fmt.Errorf("starting browser: %w", err)
	}

	return s, nil
}

// Close tears the tab, browser, and allocator down.
func (s *Session) Close() {
	if s.cancelTab != nil {
		s.cancelTab()
	}
	if s.cancelBrowser != nil {
		s.cancelBrowser()
	}
	if s.cancelAlloc != nil {
		s.cancelAlloc()
	}
}

// run executes actions in the working tab under the per-operation deadline.
func (s *Session) run(actions ...chromedp.Action) error {
	ctx, cancel := context.WithTimeout(s.ctx, s.opTimeout)
	defer cancel()
	return chromedp.Run(ctx, actions...)
}

// Navigate loads url and sleeps the configured settle interval so the page's
// own scripts get a chance to render before anything is queried.
func (s *Session) Navigate(url string) error {
	if err := s.run(
		chromedp.Navigate(url),
		chromedp.Sleep(s.settle),
	); err != nil {
		return fmt.Errorf("navigate %s: %w", url, err)
	}
	return nil
}

// Count reports how many elements currently match locator. It reads the live
// DOM without waiting, so pollers get an instant answer; a page mid-render
// simply reports what is there right now.
func (s *Session) Count(locator string) (int, error) {
	var n int
	expr := fmt.Sprintf(`(%s).length`, elementsJS(locator))
	if err := s.run(chromedp.Evaluate(expr, &n)); err != nil {
		return 0, fmt.Errorf("count %s: %w", locator, err)
	}
	return n, nil
}

// Text returns the visible text of the first element matching locator, or
// "" when nothing matches.
func (s *Session) Text(locator string) (string, error) {
	var out string
	expr := fmt.Sprintf(
		`(function(){var els=%s;return els.length?(els[0].innerText||els[0].textContent||''):'';})()`,
		elementsJS(locator))
	if err := s.run(chromedp.Evaluate(expr, &out)); err != nil {
		return "", fmt.Errorf("text %s: %w", locator, err)
	}
	return strings.TrimSpace(out), nil
}

// Texts returns the visible text of every element matching locator.
func (s *Session) Texts(locator string) ([]string, error) {
	var out []string
	expr := fmt.Sprintf(
		`(%s).map(function(el){return (el.innerText||el.textContent||'').trim();})`,
		elementsJS(locator))
	if err := s.run(chromedp.Evaluate(expr, &out)); err != nil {
		return nil, fmt.Errorf("texts %s: %w", locator, err)
	}
	return out, nil
}

// Attr returns the named attribute of the first element matching locator, or
// "" when nothing matches or the attribute is absent.
func (s *Session) Attr(locator, name string) (string, error) {
	var out string
	nameJS, _ := json.Marshal(name)
	expr := fmt.Sprintf(
		`(function(){var els=%s;return els.length?(els[0].getAttribute(%s)||''):'';})()`,
		elementsJS(locator), nameJS)
	if err := s.run(chromedp.Evaluate(expr, &out)); err != nil {
		return "", fmt.Errorf("attr %s[%s]: %w", locator, name, err)
	}
	return strings.TrimSpace(out), nil
}

// Attrs returns the named attribute of every element matching locator.
func (s *Session) Attrs(locator, name string) ([]string, error) {
	var out []string
	nameJS, _ := json.Marshal(name)
	expr := fmt.Sprintf(
		`(%s).map(function(el){return el.getAttribute(%s)||'';})`,
		elementsJS(locator), nameJS)
	if err := s.run(chromedp.Evaluate(expr, &out)); err != nil {
		return nil, fmt.Errorf("attrs %s[%s]: %w", locator, name, err)
	}
	return out, nil
}

// PageHTML returns the full document markup, straight from the DOM agent so
// large documents are not squeezed through the JS value bridge. Snapshot
// extraction and phrase scans both parse this markup.
func (s *Session) PageHTML() (string, error) {
	var out string
	if err := s.run(chromedp.ActionFunc(func(ctx context.Context) error {
		root, err := dom.GetDocument().Do(ctx)
		if err != nil {
			return err
		}
		out, err = dom.GetOuterHTML().WithNodeID(root.NodeID).Do(ctx)
		return err
	})); err != nil {
		return "", fmt.Errorf("page html: %w", err)
	}
	return out, nil
}

// Click dispatches a mouse click on the first element matching locator,
// waiting up to the operation deadline for it to appear.
func (s *Session) Click(locator string) error {
	if err := s.run(chromedp.Click(locator, queryOpts(locator))); err != nil {
		return fmt.Errorf("click %s: %w", locator, err)
	}
	return nil
}

// Clear empties an input element.
func (s *Session) Clear(locator string) error {
	if err := s.run(chromedp.Clear(locator, queryOpts(locator))); err != nil {
		return fmt.Errorf("clear %s: %w", locator, err)
	}
	return nil
}

// Type sends text to an input element key by key.
func (s *Session) Type(locator, text string) error {
	if err := s.run(chromedp.SendKeys(locator, text, queryOpts(locator))); err != nil {
		return fmt.Errorf("type into %s: %w", locator, err)
	}
	return nil
}

// elementsJS compiles a locator into a JavaScript expression evaluating to
// an array of matching elements. XPath goes through document.evaluate, CSS
// through querySelectorAll, so indexed XPath forms like (//table//tr)[2]
// work as written.
func elementsJS(locator string) string {
	q, _ := json.Marshal(locator)
	if IsXPath(locator) {
		return fmt.Sprintf(
			`(function(){var out=[];var snap=document.evaluate(%s,document,null,XPathResult.ORDERED_NODE_SNAPSHOT_TYPE,null);for(var i=0;i<snap.snapshotLength;i++){out.push(snap.snapshotItem(i));}return out;})()`, q)
	}
	return fmt.Sprintf(`Array.prototype.slice.call(document.querySelectorAll(%s))`, q)
}

// queryOpts picks the chromedp query strategy for interactive actions:
// DOM.performSearch understands XPath, everything else runs as CSS.
func queryOpts(locator string) chromedp.QueryOption {
	if IsXPath(locator) {
		return chromedp.BySearch
	}
	return chromedp.ByQuery
}

// IsXPath reports whether a locator is an XPath expression rather than a CSS
// selector. XPath locators start with "/", "(", "./" or "..". A bare leading
// "." is CSS (class selector).
func IsXPath(locator string) bool {
	return strings.HasPrefix(locator, "/") ||
		strings.HasPrefix(locator, "(") ||
		strings.HasPrefix(locator, "./") ||
		strings.HasPrefix(locator, "..")
}

// findChromeBinary locates Chrome/Chromium binary.
func findChromeBinary() string {
	if bin := os.Getenv("CHROME_BIN"); bin != "" {
		return bin
	}

	names := []string{"google-chrome-stable", "google-chrome", "chromium", "chromium-browser"}
	for _, name := range names {
		if path, err := exec.LookPath(name); err == nil {
			return path
		}
	}

	paths := []string{
		"/usr/bin/google-chrome-stable",
		"/usr/bin/google-chrome",
		"/usr/bin/chromium-browser",
		"/usr/bin/chromium",
		"/snap/bin/chromium",
		"/opt/google/chrome/google-chrome",
	}
	for _, p := range paths {
		if _, err := os.Stat(p); err == nil {
			return p
		}
	}

	return ""
}
