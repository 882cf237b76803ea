package scraper

import (
	"time"

	"taxdeed-scraper/utils"
)

// WaitConfig tunes AwaitElement: how many polls, how far apart.
type WaitConfig struct {
	MaxAttempts int
	Poll        time.Duration
}

// Default poll cadences. Vars so tests can run the pollers at full speed.
var (
	defaultWaitPoll      = time.Second
	defaultStabilityPoll = 500 * time.Millisecond
)

// DefaultWait mirrors the cadence county sites tolerate: ten polls a second
// apart.
func DefaultWait() WaitConfig {
	return WaitConfig{MaxAttempts: 10, Poll: defaultWaitPoll}
}

// AwaitElement polls until locator resolves to at least one element and
// reports whether it appeared within the attempt budget. A transient query
// error reads as "not there yet" and never aborts the wait.
func AwaitElement(page Page, locator string, cfg WaitConfig) bool {
	for attempt := 0; attempt < cfg.MaxAttempts; attempt++ {
		n, err := page.Count(locator)
		if err == nil && n > 0 {
			return true
		}
		time.Sleep(cfg.Poll)
	}
	return false
}

// StabilityConfig tunes WaitUntilStable.
type StabilityConfig struct {
	Threshold int // consecutive unchanged polls treated as settled
	MaxPolls  int // safety cap before proceeding with what we have
	Poll      time.Duration
}

func DefaultStability() StabilityConfig {
	return StabilityConfig{Threshold: 5, MaxPolls: 60, Poll: defaultStabilityPoll}
}

// WaitUntilStable polls the count of elements matching locator until it holds
// unchanged and non-zero for Threshold consecutive polls, then returns it.
// Client-rendered pages have no reliable load-complete signal, so when
// MaxPolls runs out it returns the last observed count instead of failing;
// the caller proceeds with what rendered. Transient query errors read as a
// count of zero and reset the streak.
func WaitUntilStable(page Page, locator string, cfg StabilityConfig, logger *utils.Logger) int {
	streak := 0
	prev := -1

	for cycle := 0; cycle < cfg.MaxPolls; cycle++ {
		n, err := page.Count(locator)
		if err != nil {
			n = 0
		}

		if n == prev && n > 0 {
			streak++
			if streak >= cfg.Threshold {
				logger.Debug("[wait] %s settled at %d elements after %d polls", locator, n, cycle+1)
				return n
			}
		} else {
			streak = 0
		}

		prev = n
		time.Sleep(cfg.Poll)
	}

	if prev < 0 {
		prev = 0
	}
	logger.Warn("[wait] stability cap (%d polls) reached for %s — proceeding with %d elements",
		cfg.MaxPolls, locator, prev)
	return prev
}
