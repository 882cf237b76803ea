package scraper

import (
	"math/rand"
	"time"

	"taxdeed-scraper/config"
	"taxdeed-scraper/utils"
)

// KeepAlive periodically loads a companion web app and checks that its login
// control renders, keeping free-tier hosting from idling the app out. Each
// probe runs on its own short-lived browser session, never on one a scrape
// is using.
type KeepAlive struct {
	url      string
	locator  string
	sessions SessionFactory
	logger   *utils.Logger
	min, max time.Duration
}

func NewKeepAlive(cfg *config.Config, sessions SessionFactory, logger *utils.Logger) *KeepAlive {
	return &KeepAlive{
		url:      cfg.KeepAliveURL,
		locator:  cfg.KeepAliveLocator,
		sessions: sessions,
		logger:   logger,
		min:      time.Duration(cfg.KeepAliveMinSecs) * time.Second,
		max:      time.Duration(cfg.KeepAliveMaxSecs) * time.Second,
	}
}

// Enabled reports whether a probe target is configured.
func (k *KeepAlive) Enabled() bool {
	return k.url != ""
}

// Probe loads the target once and logs whether the login control rendered.
// Failures are logged, never propagated: a missed probe must not stop the
// scheduler driving it.
func (k *KeepAlive) Probe() {
	if !k.Enabled() {
		return
	}

	page, release, err := k.sessions()
	if err != nil {
		k.logger.Error("[keepalive] session: %v", err)
		return
	}
	defer release()

	k.logger.Info("[keepalive] checking %s", k.url)
	if err := page.Navigate(k.url); err != nil {
		k.logger.Error("[keepalive] %s: %v", k.url, err)
		return
	}

	if AwaitElement(page, k.locator, WaitConfig{MaxAttempts: 15, Poll: defaultWaitPoll}) {
		k.logger.Info("[keepalive] %s: login control visible", k.url)
	} else {
		k.logger.Warn("[keepalive] %s: login control (%s) not found", k.url, k.locator)
	}
}

// Interval returns a random pause between the configured bounds, so probes
// do not land on a fixed beat.
func (k *KeepAlive) Interval() time.Duration {
	if k.max <= k.min {
		return k.min
	}
	return k.min + time.Duration(rand.Int63n(int64(k.max-k.min)))
}
