// Command taxsale scrapes a county's completed tax-deed auction results into
// a CSV: every sold item under every auction date the site publishes, from
// the calendar or the next-auction chain, stopping when only auctions still
// waiting to run remain.
package main

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"taxdeed-scraper/browser"
	"taxdeed-scraper/config"
	"taxdeed-scraper/models"
	"taxdeed-scraper/notify"
	"taxdeed-scraper/profile"
	"taxdeed-scraper/scraper"
	"taxdeed-scraper/services"
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

	logger.Info("=== Tax Sale Scraper starting ===")

	profiles, err := profile.LoadDir(cfg.ProfilesDir)
	if err != nil {
		logger.Error("Failed to load profiles: %v", err)
		os.Exit(1)
	}

	prof, err := pickListingProfile(cfg, profiles)
	if err != nil {
		logger.Error("%v", err)
		os.Exit(1)
	}
	logger.Info("Profile: %s | output: %s", prof.Name, cfg.OutputDir)

	session, err := browser.NewSession(cfg, logger)
	if err != nil {
		logger.Error("Failed to start browser: %v", err)
		os.Exit(1)
	}
	defer session.Close()

	outPath := outputPath(cfg, prof)
	sink, err := storage.NewCSVWriter(outPath, models.AuctionColumns)
	if err != nil {
		logger.Error("Failed to open output %s: %v", outPath, err)
		os.Exit(1)
	}

	runner := scraper.NewRunner(session, logger, cfg.TaskPause())
	index, sum, runErr := runner.RunListing(prof, sink)
	if cerr := sink.Close(); runErr == nil {
		runErr = cerr
	}
	logger.Info("Indexed %d row(s) with identifiers", len(index))

	summarySvc := services.NewSummaryService(logger)
	summarySvc.Print(sum)
	summarySvc.Log(sum)

	notifier := notify.NewFromConfig(cfg, logger)
	subject := fmt.Sprintf("Tax sale scrape %s — %s", prof.Name, time.Now().Format("2006-01-02"))
	notifier.Send(subject, summarySvc.Render(sum), []*models.RunSummary{sum})

	if runErr != nil {
		logger.Error("Listing walk failed: %v", runErr)
		logger.Sync()
		os.Exit(1)
	}
	fmt.Printf("  Done. Results → %s\n\n", outPath)
}

// pickListingProfile resolves which listing profile to run: the configured
// one, or the only one available.
func pickListingProfile(cfg *config.Config, profiles map[string]*profile.Profile) (*profile.Profile, error) {
	if cfg.Profile != "" {
		prof, ok := profiles[cfg.Profile]
		if !ok {
			return nil, fmt.Errorf("profile %q not found in %s", cfg.Profile, cfg.ProfilesDir)
		}
		if prof.Listing == nil {
			return nil, fmt.Errorf("profile %q has no listing workflow", cfg.Profile)
		}
		return prof, nil
	}

	var found *profile.Profile
	for _, name := range profile.Names(profiles) {
		prof := profiles[name]
		if prof.Listing == nil {
			continue
		}
		if found != nil {
			return nil, fmt.Errorf("multiple listing profiles available — set PROFILE to pick one")
		}
		found = prof
	}
	if found == nil {
		return nil, fmt.Errorf("no listing profile found in %s", cfg.ProfilesDir)
	}
	return found, nil
}

func outputPath(cfg *config.Config, prof *profile.Profile) string {
	name := prof.OutputFile
	if name == "" || prof.History != nil {
		name = prof.Name + "_sales.csv"
	}
	return filepath.Join(cfg.OutputDir, name)
}
