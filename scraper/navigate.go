package scraper

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"taxdeed-scraper/models"
	"taxdeed-scraper/profile"
	"taxdeed-scraper/utils"
)

var (
	// ErrBanned marks a page carrying a banned phrase: permanently
	// unrecoverable for this task, never retried.
	ErrBanned = errors.New("banned phrase on page")

	// ErrStuck marks a page that stopped responding to scope advancement.
	// The enclosing batch cannot trust any further navigation.
	ErrStuck = errors.New("page stuck")
)

const navMaxAttempts = 10

// Pacing between navigation steps. Vars so tests can run the state machine
// at full speed.
var (
	navRetryDelay  = time.Second
	navReadySettle = 1500 * time.Millisecond

	// County search forms debounce input and drop keystrokes when driven
	// at full speed.
	formStepDelay   = time.Second
	formClearDelay  = 300 * time.Millisecond
	formSubmitDelay = 500 * time.Millisecond
)

// Engine drives one browser session through a profile's workflows. Not safe
// for concurrent use: one engine per session, one session per worker.
type Engine struct {
	page   Page
	prof   *profile.Profile
	logger *utils.Logger

	wait WaitConfig
	stab StabilityConfig

	// agreeClicked records that this session already dismissed the consent
	// control; sites keep that state server-side for the session.
	agreeClicked bool
}

func NewEngine(page Page, prof *profile.Profile, logger *utils.Logger) *Engine {
	return &Engine{
		page:   page,
		prof:   prof,
		logger: logger,
		wait:   DefaultWait(),
		stab:   DefaultStability(),
	}
}

// OpenTarget drives one task from navigation through the ready state. The
// whole sequence retries on transient trouble up to a fixed ceiling; a
// banned phrase stops immediately. Both the banned case and an exhausted
// budget come back as manual review so the batch keeps moving.
func (e *Engine) OpenTarget(task models.Task) (models.Outcome, error) {
	retry := &utils.RetryConfig{
		MaxAttempts: navMaxAttempts,
		Delay:       navRetryDelay,
		Classify:    classifyNav,
		Logger:      e.logger,
	}

	name := task.ParcelID
	if name == "" {
		name = task.URL
	}

	res, err := retry.Do("open "+name, func() error {
		return e.openOnce(task)
	})

	switch res {
	case utils.RetryOK:
		return models.OutcomeSuccess, nil
	case utils.RetryFatal:
		return models.OutcomeFatal, err
	default:
		return models.OutcomeManualReview, err
	}
}

// openOnce runs a single navigation attempt: reach the page, screen its
// content, wait for the ready marker. Tasks carrying a search key go through
// the profile's search form; everything else navigates its URL directly.
func (e *Engine) openOnce(task models.Task) error {
	if e.prof.Search != nil && task.ParcelID != "" {
		if err := e.search(task.ParcelID); err != nil {
			return err
		}
	} else {
		if err := e.page.Navigate(task.URL); err != nil {
			return err
		}
	}

	// Phrase screening comes before the ready wait: a "no results" page
	// never becomes ready, and waiting for it would burn the budget.
	if err := e.scanPhrases(); err != nil {
		return err
	}

	if e.prof.ReadyLocator != "" {
		if !AwaitElement(e.page, e.prof.ReadyLocator, e.wait) {
			return fmt.Errorf("ready marker (%s) did not appear", e.prof.ReadyLocator)
		}
		time.Sleep(navReadySettle)
	}
	return nil
}

// search runs the search-form workflow: dismiss the consent control once per
// session, clear the input, type the key, submit.
func (e *Engine) search(key string) error {
	sf := e.prof.Search

	if err := e.page.Navigate(sf.URL); err != nil {
		return err
	}

	if sf.AgreeLocator != "" && !e.agreeClicked {
		if !AwaitElement(e.page, sf.AgreeLocator, e.wait) {
			return fmt.Errorf("agree control (%s) did not appear", sf.AgreeLocator)
		}
		if err := e.page.Click(sf.AgreeLocator); err != nil {
			return err
		}
		e.agreeClicked = true
		e.logger.Info("[nav] %s: agree control clicked, skipping on future targets", e.prof.Name)
		time.Sleep(formStepDelay)
	}

	if !AwaitElement(e.page, sf.InputLocator, e.wait) {
		return fmt.Errorf("search input (%s) did not appear", sf.InputLocator)
	}
	time.Sleep(formStepDelay)
	if err := e.page.Clear(sf.InputLocator); err != nil {
		return err
	}
	time.Sleep(formClearDelay)
	if err := e.page.Type(sf.InputLocator, key); err != nil {
		return err
	}

	if !AwaitElement(e.page, sf.ButtonLocator, e.wait) {
		return fmt.Errorf("search trigger (%s) did not appear", sf.ButtonLocator)
	}
	time.Sleep(formSubmitDelay)
	if err := e.page.Click(sf.ButtonLocator); err != nil {
		return err
	}
	time.Sleep(formStepDelay)
	return nil
}

// scanPhrases screens the raw page markup for the profile's banned and
// failure phrase lists, case-insensitively. Banned wins over failure.
func (e *Engine) scanPhrases() error {
	if len(e.prof.BannedPhrases) == 0 && len(e.prof.FailurePhrases) == 0 {
		return nil
	}

	content, err := e.page.PageHTML()
	if err != nil {
		return err
	}
	lower := strings.ToLower(content)

	for _, phrase := range e.prof.BannedPhrases {
		if strings.Contains(lower, strings.ToLower(phrase)) {
			e.logger.Warn("[nav] %s: banned phrase %q detected — manual review", e.prof.Name, phrase)
			return fmt.Errorf("%w: %q", ErrBanned, phrase)
		}
	}
	for _, phrase := range e.prof.FailurePhrases {
		if strings.Contains(lower, strings.ToLower(phrase)) {
			return fmt.Errorf("failure phrase %q on page", phrase)
		}
	}
	return nil
}

// Snapshot waits for settleLocator to hold steady in the live page, then
// captures the markup for extraction. The locator runs in the browser, so it
// must be XPath or standard CSS.
func (e *Engine) Snapshot(settleLocator string) (string, error) {
	if settleLocator != "" {
		WaitUntilStable(e.page, settleLocator, e.stab, e.logger)
	}
	return e.page.PageHTML()
}

func classifyNav(err error) utils.ErrorClass {
	switch {
	case errors.Is(err, ErrBanned):
		return utils.Terminal
	case errors.Is(err, ErrStuck):
		return utils.Fatal
	default:
		return utils.Retryable
	}
}
