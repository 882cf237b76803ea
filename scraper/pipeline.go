package scraper

import (
	"errors"
	"fmt"
	"path/filepath"
	"time"

	"taxdeed-scraper/config"
	"taxdeed-scraper/models"
	"taxdeed-scraper/notify"
	"taxdeed-scraper/profile"
	"taxdeed-scraper/services"
	"taxdeed-scraper/storage"
	"taxdeed-scraper/utils"
)

// SessionFactory opens a fresh browser session and returns its page handle
// plus a release function. The refresh pipeline and the keep-alive probe
// each acquire their own session; nothing ever shares one.
type SessionFactory func() (Page, func(), error)

// Pipeline chains one full refresh cycle: walk the auction listings, filter
// the index against the dedup store, deep-scrape history for whatever is new
// or updated, check coverage, send the report.
type Pipeline struct {
	cfg      *config.Config
	profiles map[string]*profile.Profile
	sessions SessionFactory
	store    storage.DedupStore
	notifier *notify.Multi
	summary  *services.SummaryService
	verifier *services.Verifier
	logger   *utils.Logger
}

func NewPipeline(cfg *config.Config, profiles map[string]*profile.Profile, sessions SessionFactory,
	store storage.DedupStore, notifier *notify.Multi, logger *utils.Logger) *Pipeline {
	return &Pipeline{
		cfg:      cfg,
		profiles: profiles,
		sessions: sessions,
		store:    store,
		notifier: notifier,
		summary:  services.NewSummaryService(logger),
		verifier: services.NewVerifier(logger),
		logger:   logger,
	}
}

// RunOnce executes one refresh cycle across every listing profile. Profile
// failures are contained to their profile, except a stuck page: once the
// browser stops responding to navigation nothing further can be trusted, so
// the cycle ends early. The report goes out either way.
func (p *Pipeline) RunOnce() error {
	page, release, err := p.sessions()
	if err != nil {
		return fmt.Errorf("pipeline: browser session: %w", err)
	}
	defer release()

	runner := NewRunner(page, p.logger, p.cfg.TaskPause())

	var summaries []*models.RunSummary
	var failures []error

	for _, name := range profile.Names(p.profiles) {
		prof := p.profiles[name]
		if prof.Listing == nil {
			continue
		}

		sums, err := p.refreshProfile(runner, prof)
		summaries = append(summaries, sums...)
		if err != nil {
			p.logger.Error("[pipeline] %s: %v", name, err)
			failures = append(failures, fmt.Errorf("%s: %w", name, err))
			if errors.Is(err, ErrStuck) {
				break
			}
		}
	}

	for _, s := range summaries {
		p.summary.Print(s)
		p.summary.Log(s)
	}
	if len(summaries) > 0 {
		subject := fmt.Sprintf("Records refresh — %s", time.Now().Format("2006-01-02 15:04"))
		p.notifier.Send(subject, p.summary.RenderAll(summaries), summaries)
	}
	return errors.Join(failures...)
}

// refreshProfile runs one listing profile end to end: listing walk,
// staleness filter, history follow-up for what changed, coverage check.
// Dedup markers advance only once the row's work is actually done, so a
// crashed cycle picks the same rows back up next time.
func (p *Pipeline) refreshProfile(runner *Runner, prof *profile.Profile) ([]*models.RunSummary, error) {
	listPath := p.outputPath(prof, "sales")
	sink, err := storage.NewCSVWriter(listPath, models.AuctionColumns)
	if err != nil {
		return nil, err
	}
	index, listSum, err := runner.RunListing(prof, sink)
	closeErr := sink.Close()
	sums := []*models.RunSummary{listSum}
	if err != nil {
		return sums, err
	}
	if closeErr != nil {
		return sums, closeErr
	}

	stale, err := storage.Stale(p.store, index)
	if err != nil {
		return sums, fmt.Errorf("staleness filter: %w", err)
	}
	listSum.NewOrUpdated = len(stale)
	p.logger.Info("[pipeline] %s: %d of %d index rows new or updated",
		prof.Name, len(stale), len(index))

	detail := p.detailProfile(prof)
	if detail == nil {
		// No follow-up configured; the listing rows are the product and
		// their markers advance now.
		p.upsertAll(index)
		return sums, nil
	}
	if len(stale) == 0 {
		return sums, nil
	}

	tasks := tasksFromIndex(detail.Name, stale)
	rowByID := make(map[string]models.IndexRow, len(stale))
	for _, row := range stale {
		rowByID[row.ID] = row
	}
	runner.OnSuccess = func(task models.Task) {
		row, ok := rowByID[task.ParcelID]
		if !ok {
			return
		}
		if err := p.store.Upsert(row); err != nil {
			p.logger.Warn("[pipeline] %s: upsert %s: %v", prof.Name, row.ID, err)
		}
	}
	defer func() { runner.OnSuccess = nil }()

	histPath := p.outputPath(detail, "history")
	histSink, err := storage.NewCSVWriter(histPath, models.HistoryColumns)
	if err != nil {
		return sums, err
	}
	histSum, err := runner.RunHistory(detail, tasks, histSink)
	closeErr = histSink.Close()
	sums = append(sums, histSum)
	if err != nil {
		return sums, err
	}
	if closeErr != nil {
		return sums, closeErr
	}

	if _, err := p.verifier.VerifyCoverage(tasks, []string{histPath}); err != nil {
		p.logger.Warn("[pipeline] %s: coverage check: %v", prof.Name, err)
	}
	return sums, nil
}

// detailProfile resolves the history profile handling a listing's stale
// rows, or nil when the listing stands alone.
func (p *Pipeline) detailProfile(prof *profile.Profile) *profile.Profile {
	name := prof.Listing.DetailProfile
	if name == "" {
		return nil
	}
	detail, ok := p.profiles[name]
	if !ok || detail.History == nil {
		p.logger.Warn("[pipeline] %s: detail profile %q not available", prof.Name, name)
		return nil
	}
	return detail
}

func (p *Pipeline) upsertAll(rows []models.IndexRow) {
	for _, row := range rows {
		if err := p.store.Upsert(row); err != nil {
			p.logger.Warn("[pipeline] upsert %s: %v", row.ID, err)
		}
	}
}

// outputPath picks the profile's output file. Profiles carrying both
// workflows get derived names so the two never collide.
func (p *Pipeline) outputPath(prof *profile.Profile, kind string) string {
	name := prof.OutputFile
	if name == "" || (prof.History != nil && prof.Listing != nil) {
		name = fmt.Sprintf("%s_%s.csv", prof.Name, kind)
	}
	return filepath.Join(p.cfg.OutputDir, name)
}

// tasksFromIndex converts stale listing rows into history tasks. The auction
// date and sale amount become the baseline reference that flip detection
// compares each deed-history row against.
func tasksFromIndex(profileName string, rows []models.IndexRow) []models.Task {
	tasks := make([]models.Task, 0, len(rows))
	for _, row := range rows {
		tasks = append(tasks, models.Task{
			URL:       row.URL,
			ParcelID:  row.ID,
			SaleDate:  row.Fields.Get(models.ColDate),
			SalePrice: row.Fields.Get(models.ColSaleAmount),
			Profile:   profileName,
		})
	}
	return tasks
}
