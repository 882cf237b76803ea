// Command recordsd is the long-running service: a records refresh pipeline
// on a fixed interval, plus a keep-alive probe against the companion web app
// between cycles. The pipeline walks each listing profile, filters what it
// finds against the dedup store, and deep-scrapes history only for rows that
// are new or carry a newer auction date than last time.
package main

import (
	"fmt"
	"os"
	"time"

	"taxdeed-scraper/browser"
	"taxdeed-scraper/config"
	"taxdeed-scraper/notify"
	"taxdeed-scraper/profile"
	"taxdeed-scraper/scraper"
	"taxdeed-scraper/storage"
	"taxdeed-scraper/utils"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}

	logger := utils.NewLogger(cfg.LogLevel)
	defer logger.Sync()

	logger.Info("=== Records Service starting ===")
	logger.Info("Config — refresh: %s | store: %s | profiles: %s",
		cfg.RefreshInterval, cfg.StoreType, cfg.ProfilesDir)

	profiles, err := profile.LoadDir(cfg.ProfilesDir)
	if err != nil {
		logger.Error("Failed to load profiles: %v", err)
		os.Exit(1)
	}

	store, err := storage.NewStore(cfg, logger)
	if err != nil {
		logger.Error("Failed to open dedup store: %v", err)
		os.Exit(1)
	}
	defer store.Close()

	notifier := notify.NewFromConfig(cfg, logger)

	sessions := scraper.SessionFactory(func() (scraper.Page, func(), error) {
		s, err := browser.NewSession(cfg, logger)
		if err != nil {
			return nil, nil, err
		}
		return s, s.Close, nil
	})

	pipe := scraper.NewPipeline(cfg, profiles, sessions, store, notifier, logger)
	keep := scraper.NewKeepAlive(cfg, sessions, logger)
	if !keep.Enabled() {
		logger.Info("Keep-alive probe disabled (no KEEPALIVE_URL)")
	}

	// One sequential loop: refresh when due, probe every pass, then sleep a
	// randomized interval so neither activity lands on a fixed beat.
	var lastRefresh time.Time
	for {
		if time.Since(lastRefresh) >= cfg.RefreshInterval {
			if err := pipe.RunOnce(); err != nil {
				logger.Error("Refresh cycle finished with errors: %v", err)
			}
			lastRefresh = time.Now()
		}

		keep.Probe()

		pause := keep.Interval()
		logger.Info("[recordsd] sleeping %s", pause.Round(time.Second))
		time.Sleep(pause)
	}
}
