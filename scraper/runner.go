package scraper

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"taxdeed-scraper/models"
	"taxdeed-scraper/profile"
	"taxdeed-scraper/services"
	"taxdeed-scraper/storage"
	"taxdeed-scraper/utils"
)

// errOutput marks a sink failure. Unlike page trouble it cannot be worked
// around with a placeholder row, so it aborts the run.
var errOutput = errors.New("output sink")

const (
	// maxScopePages caps pagination within one scope. The unreadable-readout
	// path advances on faith, and without a cap a lying site could spin the
	// walk forever.
	maxScopePages = 200

	// maxWalkScopes caps the next-auction walk the same way.
	maxWalkScopes = 500
)

// Runner sequences a profile's workflow across its units of work, streaming
// rows to the sink as they are produced. One runner per browser session;
// like the Engine it drives, it is not safe for concurrent use.
type Runner struct {
	page   Page
	logger *utils.Logger
	pacer  *utils.Throttle

	// OnSuccess, when set, runs after each task whose page was scraped and
	// its rows written. The refresh pipeline uses it to advance dedup
	// markers task by task, so an interrupted batch revisits only what it
	// never finished.
	OnSuccess func(models.Task)
}

func NewRunner(page Page, logger *utils.Logger, taskPause time.Duration) *Runner {
	return &Runner{
		page:   page,
		logger: logger,
		pacer:  utils.NewThrottle(taskPause),
	}
}

// RunHistory processes parcel-history tasks against one profile. Every task
// yields at least one output row: extracted flips, a fallback row when none
// qualify, or a manual-review placeholder when the page could not be
// reached. A fatal navigation outcome aborts the batch; anything else is
// contained to its task.
func (r *Runner) RunHistory(prof *profile.Profile, tasks []models.Task, sink storage.RecordWriter) (*models.RunSummary, error) {
	summary := &models.RunSummary{Profile: prof.Name, StartedAt: time.Now()}
	defer func() { summary.FinishedAt = time.Now() }()

	engine := NewEngine(r.page, prof, r.logger)
	r.logger.Info("[run] %s: starting %d task(s)", prof.Name, len(tasks))

	for i, task := range tasks {
		r.pacer.Wait()
		summary.Tasks++
		label := fmt.Sprintf("%d/%d %s", i+1, len(tasks), task.ParcelID)

		outcome, err := engine.OpenTarget(task)
		switch outcome {
		case models.OutcomeFatal:
			summary.Failed++
			return summary, fmt.Errorf("task %s: %w", task.ParcelID, err)

		case models.OutcomeManualReview:
			r.logger.Warn("[run] %s: %s needs manual review: %v", prof.Name, label, err)
			summary.ManualReview++
			if werr := r.writePlaceholder(task, sink); werr != nil {
				return summary, werr
			}
			summary.RowsWritten++
			continue
		}

		flips, err := r.scrapeParcel(engine, prof, task, sink, summary)
		if err != nil {
			if errors.Is(err, errOutput) {
				summary.Failed++
				return summary, err
			}
			// The page loaded but would not give up its rows. Placeholder
			// and move on; the batch is bigger than one parcel.
			r.logger.Error("[run] %s: %s failed after page load: %v", prof.Name, label, err)
			summary.ManualReview++
			if werr := r.writePlaceholder(task, sink); werr != nil {
				return summary, werr
			}
			summary.RowsWritten++
			continue
		}

		summary.Succeeded++
		summary.FlipsFound += flips
		if r.OnSuccess != nil {
			r.OnSuccess(task)
		}
	}

	return summary, nil
}

// scrapeParcel captures the loaded detail page and streams its rows out.
func (r *Runner) scrapeParcel(engine *Engine, prof *profile.Profile, task models.Task, sink storage.RecordWriter, summary *models.RunSummary) (int, error) {
	settle := ""
	if prof.History != nil {
		settle = prof.History.Settle()
	}
	snapshot, err := engine.Snapshot(settle)
	if err != nil {
		return 0, fmt.Errorf("capture page: %w", err)
	}

	result, err := ExtractHistory(snapshot, prof, task, r.logger)
	if err != nil {
		return 0, err
	}

	for _, rec := range result.Rows {
		if err := sink.Write(rec); err != nil {
			return result.FlipCount, fmt.Errorf("%w: %v", errOutput, err)
		}
		summary.RowsWritten++
	}

	if result.FlipCount > 0 {
		r.logger.Info("[run] %s: %s — %d flip(s)", prof.Name, task.ParcelID, result.FlipCount)
	} else {
		r.logger.Debug("[run] %s: %s — no flips, fallback row written", prof.Name, task.ParcelID)
	}
	return result.FlipCount, nil
}

// writePlaceholder emits the manual-review row for a task that could not be
// scraped: identifying columns verbatim, every derived column tagged.
func (r *Runner) writePlaceholder(task models.Task, sink storage.RecordWriter) error {
	rec := task.Identifying()
	for _, col := range models.HistoryColumns {
		if _, ok := rec[col]; !ok {
			rec[col] = models.ManualReviewTag
		}
	}
	if err := sink.Write(rec); err != nil {
		return fmt.Errorf("%w: %v", errOutput, err)
	}
	return nil
}

// RunListing walks a profile's auction-results pages, writing one record per
// qualifying item and returning the index rows for staleness filtering.
// Calendar profiles enumerate auction dates first and visit each one; the
// rest start at the configured URL and follow the next-auction control.
func (r *Runner) RunListing(prof *profile.Profile, sink storage.RecordWriter) ([]models.IndexRow, *models.RunSummary, error) {
	summary := &models.RunSummary{Profile: prof.Name, StartedAt: time.Now()}
	defer func() { summary.FinishedAt = time.Now() }()

	if prof.Listing == nil {
		return nil, summary, fmt.Errorf("profile %s has no listing configuration", prof.Name)
	}
	engine := NewEngine(r.page, prof, r.logger)

	if prof.Calendar != nil {
		index, err := r.listByCalendar(engine, prof, sink, summary)
		return index, summary, err
	}
	index, err := r.listLinear(engine, prof, sink, summary)
	return index, summary, err
}

// listByCalendar collects the flagged auction dates, then visits each past
// date's results page. Dates still in the future have nothing to extract.
func (r *Runner) listByCalendar(engine *Engine, prof *profile.Profile, sink storage.RecordWriter, summary *models.RunSummary) ([]models.IndexRow, error) {
	lst := prof.Listing
	now := time.Now()

	dates, err := engine.CollectAuctionDates(now)
	if err != nil {
		return nil, err
	}

	var index []models.IndexRow
	for _, raw := range dates {
		scopeDate := raw
		if when := services.ParseDate(raw); !when.IsZero() {
			if when.After(now) {
				r.logger.Debug("[run] %s: skipping future auction %s", prof.Name, raw)
				continue
			}
			scopeDate = when.Format("01/02/2006")
		}

		r.pacer.Wait()
		summary.Tasks++

		url := fmt.Sprintf(lst.URLTemplate, scopeDate)
		outcome, err := engine.OpenTarget(models.Task{URL: url})
		switch outcome {
		case models.OutcomeFatal:
			summary.Failed++
			return index, fmt.Errorf("auction %s: %w", scopeDate, err)
		case models.OutcomeManualReview:
			summary.ManualReview++
			r.logger.Warn("[run] %s: auction %s unreachable: %v", prof.Name, scopeDate, err)
			continue
		}

		if r.scopeExhausted(engine, lst) {
			r.logger.Info("[run] %s: auction %s has no closed results yet", prof.Name, scopeDate)
			continue
		}

		idx, err := r.harvestScope(engine, prof, scopeDate, sink, summary)
		index = append(index, idx...)
		if err != nil {
			summary.Failed++
			return index, fmt.Errorf("auction %s: %w", scopeDate, err)
		}
		summary.Succeeded++
	}

	return index, nil
}

// listLinear starts at the profile's listing URL and follows the
// next-auction control scope by scope until the site shows only auctions
// still waiting to run.
func (r *Runner) listLinear(engine *Engine, prof *profile.Profile, sink storage.RecordWriter, summary *models.RunSummary) ([]models.IndexRow, error) {
	lst := prof.Listing

	startURL := lst.URLTemplate
	if strings.Contains(startURL, "%s") {
		startURL = fmt.Sprintf(startURL, time.Now().Format("01/02/2006"))
	}

	outcome, err := engine.OpenTarget(models.Task{URL: startURL})
	if outcome != models.OutcomeSuccess {
		summary.Failed++
		return nil, fmt.Errorf("open %s: %w", startURL, err)
	}

	var index []models.IndexRow
	for scope := 0; scope < maxWalkScopes; scope++ {
		if r.scopeExhausted(engine, lst) {
			r.logger.Info("[run] %s: reached auctions still waiting — walk complete", prof.Name)
			return index, nil
		}

		scopeDate, err := r.readScopeDate(engine, lst)
		if err != nil {
			return index, err
		}

		summary.Tasks++
		idx, err := r.harvestScope(engine, prof, scopeDate, sink, summary)
		index = append(index, idx...)
		if err != nil {
			summary.Failed++
			return index, fmt.Errorf("auction %s: %w", scopeDate, err)
		}
		summary.Succeeded++

		if lst.NextScopeLocator == "" {
			return index, nil
		}
		advanced, err := engine.AdvanceScope(lst.NextScopeLocator, lst.DateLocator)
		if err != nil {
			return index, err
		}
		if !advanced {
			r.logger.Info("[run] %s: no further auction scopes", prof.Name)
			return index, nil
		}
		r.pacer.Wait()
	}

	r.logger.Warn("[run] %s: scope cap (%d) reached — ending walk", prof.Name, maxWalkScopes)
	return index, nil
}

// harvestScope extracts every results page of the current scope, following
// pagination until the readout says done or the page cap trips. Sink errors
// abort; an empty page is only a warning, since some auctions cancel.
func (r *Runner) harvestScope(engine *Engine, prof *profile.Profile, scopeDate string, sink storage.RecordWriter, summary *models.RunSummary) ([]models.IndexRow, error) {
	lst := prof.Listing
	var index []models.IndexRow

	for pageNum := 1; ; pageNum++ {
		snapshot, err := engine.Snapshot(lst.ItemLocator)
		if err != nil {
			return index, fmt.Errorf("capture page: %w", err)
		}

		records, err := ExtractListing(snapshot, prof, scopeDate, r.logger)
		if err != nil {
			return index, err
		}
		if len(records) == 0 {
			r.logger.Warn("[run] %s: no qualifying items on %s page %d", prof.Name, scopeDate, pageNum)
		}

		for _, rec := range records {
			if err := sink.Write(rec); err != nil {
				return index, fmt.Errorf("%w: %v", errOutput, err)
			}
			summary.RowsWritten++
			if row, ok := indexRowFor(lst, rec); ok {
				index = append(index, row)
			}
		}

		if pageNum >= maxScopePages {
			r.logger.Warn("[run] %s: page cap (%d) reached on %s — moving on", prof.Name, maxScopePages, scopeDate)
			return index, nil
		}
		if !engine.AdvancePage(lst.Pagination) {
			return index, nil
		}
	}
}

// scopeExhausted reports whether the page shows only auctions still waiting
// to run: the waiting marker is present and no closed results are. That is
// the natural end of a results walk.
func (r *Runner) scopeExhausted(engine *Engine, lst *profile.Listing) bool {
	if lst.WaitingLocator == "" {
		return false
	}
	waiting, err := engine.page.Count(lst.WaitingLocator)
	if err != nil || waiting == 0 {
		return false
	}
	if lst.ClosedLocator != "" {
		closed, err := engine.page.Count(lst.ClosedLocator)
		if err == nil && closed > 0 {
			return false
		}
	}
	return true
}

// readScopeDate reads the on-page label naming the scope currently shown.
func (r *Runner) readScopeDate(engine *Engine, lst *profile.Listing) (string, error) {
	if lst.DateLocator == "" {
		return "", nil
	}
	if !AwaitElement(engine.page, lst.DateLocator, engine.wait) {
		return "", fmt.Errorf("scope date label (%s) did not appear", lst.DateLocator)
	}
	raw, err := engine.page.Text(lst.DateLocator)
	if err != nil {
		return "", fmt.Errorf("read scope date: %w", err)
	}
	return services.CollapseSpace(raw), nil
}

// indexRowFor derives the dedup index row from an extracted record. Rows
// without an identifier cannot be tracked and are left out of the index;
// they still appear in the output file.
func indexRowFor(lst *profile.Listing, rec models.Record) (models.IndexRow, bool) {
	if lst.IDField == "" {
		return models.IndexRow{}, false
	}
	id := rec.Get(lst.IDField)
	if id == "" || id == models.NA {
		return models.IndexRow{}, false
	}

	row := models.IndexRow{
		ID:      id,
		Version: services.NormalizeDate(rec.Get(models.ColDate)),
		Fields:  rec,
	}
	if lst.LinkField != "" {
		if url := rec.Get(lst.LinkField); url != models.NA {
			row.URL = url
		}
	}
	return row, true
}
