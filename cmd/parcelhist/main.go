// Command parcelhist scrapes county assessment sites for post-sale deed
// activity on the parcels listed in a tax-sale CSV. Each input row becomes
// one or more output rows: detected flips, a fallback row when the parcel
// shows none, or a manual-review placeholder when its page stayed out of
// reach.
package main

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
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

	logger.Info("=== Parcel History Scraper starting ===")
	logger.Info("Config — tasks: %s | profiles: %s | output: %s | pause: %s",
		cfg.TasksCSV, cfg.ProfilesDir, cfg.OutputDir, cfg.TaskPause())

	profiles, err := profile.LoadDir(cfg.ProfilesDir)
	if err != nil {
		logger.Error("Failed to load profiles: %v", err)
		os.Exit(1)
	}

	tasks, err := storage.ReadTasks(cfg.TasksCSV)
	if err != nil {
		logger.Error("Failed to read task CSV: %v", err)
		os.Exit(1)
	}
	logger.Info("Loaded %d task(s) from %s", len(tasks), cfg.TasksCSV)

	groups := groupTasks(cfg, profiles, tasks, logger)
	if len(groups) == 0 {
		logger.Error("No tasks matched a loaded profile. Exiting.")
		os.Exit(1)
	}

	session, err := browser.NewSession(cfg, logger)
	if err != nil {
		logger.Error("Failed to start browser: %v", err)
		os.Exit(1)
	}
	defer session.Close()

	runner := scraper.NewRunner(session, logger, cfg.TaskPause())
	summarySvc := services.NewSummaryService(logger)
	verifier := services.NewVerifier(logger)
	notifier := notify.NewFromConfig(cfg, logger)

	var (
		summaries []*models.RunSummary
		outputs   []string
		covered   []models.Task
		runErr    error
	)

	names := make([]string, 0, len(groups))
	for name := range groups {
		names = append(names, name)
	}
	sort.Strings(names)

	for _, name := range names {
		prof := profiles[name]
		batch := groups[name]

		outPath := outputPath(cfg, prof)
		sink, err := storage.NewCSVWriter(outPath, models.HistoryColumns)
		if err != nil {
			logger.Error("Failed to open output %s: %v", outPath, err)
			os.Exit(1)
		}

		sum, err := runner.RunHistory(prof, batch, sink)
		if cerr := sink.Close(); err == nil {
			err = cerr
		}

		summaries = append(summaries, sum)
		outputs = append(outputs, outPath)
		covered = append(covered, batch...)
		summarySvc.Print(sum)
		summarySvc.Log(sum)

		if err != nil {
			// A fatal outcome means the session itself can no longer be
			// trusted; stop here rather than burn the remaining counties.
			logger.Error("Batch for %s aborted: %v", name, err)
			runErr = err
			break
		}
	}

	if _, err := verifier.VerifyCoverage(covered, outputs); err != nil {
		logger.Warn("Coverage check failed: %v", err)
	}

	subject := fmt.Sprintf("Parcel history scrape — %s", time.Now().Format("2006-01-02"))
	notifier.Send(subject, summarySvc.RenderAll(summaries), summaries)

	if runErr != nil {
		logger.Sync()
		os.Exit(1)
	}
	fmt.Printf("  Done. Output → %s\n\n", cfg.OutputDir)
}

// groupTasks buckets tasks by their source profile. Counties without a
// profile are reported, not silently dropped.
func groupTasks(cfg *config.Config, profiles map[string]*profile.Profile, tasks []models.Task, logger *utils.Logger) map[string][]models.Task {
	groups := make(map[string][]models.Task)
	for _, t := range tasks {
		if cfg.Profile != "" && t.Profile != cfg.Profile {
			continue
		}
		prof, ok := profiles[t.Profile]
		if !ok {
			logger.Warn("[tasks] no profile for county %q (parcel %s)", t.Profile, t.ParcelID)
			continue
		}
		if prof.History == nil {
			logger.Warn("[tasks] profile %q has no history workflow (parcel %s)", t.Profile, t.ParcelID)
			continue
		}
		groups[t.Profile] = append(groups[t.Profile], t)
	}
	return groups
}

func outputPath(cfg *config.Config, prof *profile.Profile) string {
	name := prof.OutputFile
	if name == "" {
		name = prof.Name + "_history.csv"
	}
	return filepath.Join(cfg.OutputDir, name)
}
