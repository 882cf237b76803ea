package services

import (
	"fmt"
	"strings"
	"time"

	"taxdeed-scraper/models"
	"taxdeed-scraper/utils"
)

type SummaryService struct {
	logger *utils.Logger
}

func NewSummaryService(logger *utils.Logger) *SummaryService {
	return &SummaryService{logger: logger}
}

// Print renders a run summary to stdout for operators tailing the console.
func (s *SummaryService) Print(r *models.RunSummary) {
	sep := strings.Repeat("═", 54)
	thin := strings.Repeat("─", 54)

	fmt.Printf("\n\033[1;35m%s\033[0m\n", sep)
	fmt.Printf("\033[1;35m  📋 SCRAPE SUMMARY — %s\033[0m\n", strings.ToUpper(r.Profile))
	fmt.Printf("\033[1;35m%s\033[0m\n\n", sep)

	fmt.Printf("\033[1;33m  Tasks\033[0m\n")
	fmt.Printf("  %s\n", thin)
	fmt.Printf("  Processed      : \033[1m%d\033[0m\n", r.Tasks)
	fmt.Printf("  Succeeded      : \033[1;32m%d\033[0m\n", r.Succeeded)
	fmt.Printf("  Manual review  : \033[1;33m%d\033[0m\n", r.ManualReview)
	fmt.Printf("  Failed         : \033[1;31m%d\033[0m\n", r.Failed)
	fmt.Println()

	fmt.Printf("\033[1;33m  Output\033[0m\n")
	fmt.Printf("  %s\n", thin)
	fmt.Printf("  Rows written   : \033[1m%d\033[0m\n", r.RowsWritten)
	fmt.Printf("  Flips found    : \033[1m%d\033[0m\n", r.FlipsFound)
	fmt.Printf("  New or updated : \033[1m%d\033[0m\n", r.NewOrUpdated)
	fmt.Println()

	fmt.Printf("  Duration : \033[1m%s\033[0m\n", r.Duration().Round(time.Second))
	fmt.Printf("\033[1;35m%s\033[0m\n\n", sep)
}

// Render formats a run summary as a plain-text block suitable for email and
// webhook bodies, where ANSI escapes would only make noise.
func (s *SummaryService) Render(r *models.RunSummary) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Profile: %s\n", r.Profile)
	fmt.Fprintf(&b, "Tasks: %d (succeeded %d, manual review %d, failed %d)\n",
		r.Tasks, r.Succeeded, r.ManualReview, r.Failed)
	fmt.Fprintf(&b, "Rows written: %d\n", r.RowsWritten)
	fmt.Fprintf(&b, "Flips found: %d\n", r.FlipsFound)
	fmt.Fprintf(&b, "New or updated: %d\n", r.NewOrUpdated)
	fmt.Fprintf(&b, "Duration: %s\n", r.Duration().Round(time.Second))
	return b.String()
}

// RenderAll joins per-profile summaries into one report body.
func (s *SummaryService) RenderAll(summaries []*models.RunSummary) string {
	parts := make([]string, 0, len(summaries))
	for _, r := range summaries {
		parts = append(parts, s.Render(r))
	}
	return strings.Join(parts, "\n")
}

// Log emits the summary as a single structured line for log aggregation.
func (s *SummaryService) Log(r *models.RunSummary) {
	s.logger.Info("[summary] profile=%s tasks=%d succeeded=%d manual_review=%d failed=%d rows=%d flips=%d upserts=%d duration=%s",
		r.Profile, r.Tasks, r.Succeeded, r.ManualReview, r.Failed,
		r.RowsWritten, r.FlipsFound, r.NewOrUpdated, r.Duration().Round(time.Second))
}
