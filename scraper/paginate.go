package scraper

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"

	"taxdeed-scraper/profile"
)

// pageReadoutRe parses the "Page X of Y" readout county sites render on
// paginated result sets.
var pageReadoutRe = regexp.MustCompile(`(?i)Page\s+(\d+)\s+of\s+(\d+)`)

// Render allowances for advancements that cannot be verified against a
// label. Vars so tests can run at full speed.
var (
	pageRenderDelay  = 3 * time.Second
	scopeRenderDelay = 4 * time.Second
)

// readPageIndex returns (current, total) from the pagination readout, or
// ok=false when the readout is missing or does not parse.
func (e *Engine) readPageIndex(pg *profile.Pagination) (cur, total int, ok bool) {
	var label string
	var err error
	if pg.ReadoutAttr != "" {
		label, err = e.page.Attr(pg.ReadoutLocator, pg.ReadoutAttr)
	} else {
		label, err = e.page.Text(pg.ReadoutLocator)
	}
	if err != nil {
		e.logger.Debug("[nav] %s: could not read pagination info: %v", e.prof.Name, err)
		return 0, 0, false
	}

	m := pageReadoutRe.FindStringSubmatch(label)
	if m == nil {
		return 0, 0, false
	}
	cur, _ = strconv.Atoi(m[1])
	total, _ = strconv.Atoi(m[2])
	return cur, total, true
}

// AdvancePage clicks the next-page control and reports whether a further
// results page is now open. Already at the last index, or no control on the
// page, means pagination is done. When the readout is readable the click is
// verified by polling for the index to move; an index that refuses to move
// ends pagination with a warning, and the rows already extracted stand.
// Profiles that configure no readout advance on faith after a render
// allowance.
func (e *Engine) AdvancePage(pg *profile.Pagination) bool {
	if pg == nil {
		return false
	}

	cur, total, ok := 0, 0, false
	if pg.ReadoutLocator == "" {
		e.logger.Debug("[nav] %s: no pagination readout configured — advancing on faith", e.prof.Name)
	} else if cur, total, ok = e.readPageIndex(pg); ok {
		e.logger.Debug("[nav] %s: page %d of %d", e.prof.Name, cur, total)
		if cur >= total {
			return false
		}
	} else {
		e.logger.Warn("[nav] %s: pagination readout unreadable — attempting next page anyway", e.prof.Name)
	}

	n, err := e.page.Count(pg.NextLocator)
	if err != nil || n == 0 {
		return false
	}
	if err := e.page.Click(pg.NextLocator); err != nil {
		e.logger.Warn("[nav] %s: next-page click failed: %v", e.prof.Name, err)
		return false
	}

	if !ok {
		// No index to verify against; give the new page time to render.
		time.Sleep(pageRenderDelay)
		return true
	}

	for attempt := 0; attempt < e.wait.MaxAttempts; attempt++ {
		time.Sleep(e.wait.Poll)
		if now, _, readable := e.readPageIndex(pg); readable && now > cur {
			return true
		}
	}

	e.logger.Warn("[nav] %s: page index did not advance past %d — ending pagination", e.prof.Name, cur)
	return false
}

// AdvanceScope clicks a next-period control (next auction date, next
// calendar month) and polls the on-screen label until it changes. It returns
// false with no error when the control is absent; the caller decides
// whether that ends the walk or means the page is stuck. A label that
// refuses to change after the poll budget is ErrStuck: the page looks alive
// but navigation no longer has any effect, so nothing further on it can be
// trusted.
func (e *Engine) AdvanceScope(nextLocator, labelLocator string) (bool, error) {
	n, err := e.page.Count(nextLocator)
	if err != nil || n == 0 {
		return false, nil
	}

	var prev string
	if labelLocator != "" {
		prev, _ = e.page.Text(labelLocator)
	}

	if err := e.page.Click(nextLocator); err != nil {
		return false, fmt.Errorf("next-period click: %w", err)
	}

	if labelLocator == "" {
		time.Sleep(scopeRenderDelay)
		return true, nil
	}

	for attempt := 0; attempt < e.wait.MaxAttempts; attempt++ {
		time.Sleep(e.wait.Poll)
		label, err := e.page.Text(labelLocator)
		if err != nil {
			continue
		}
		if strings.TrimSpace(label) != strings.TrimSpace(prev) {
			return true, nil
		}
	}

	return false, fmt.Errorf("%w: period label (%s) did not change from %q",
		ErrStuck, labelLocator, prev)
}
