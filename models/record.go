package models

import "time"

// NA is the sentinel written for any field that could not be extracted.
const NA = "N/A"

// ManualReviewTag is the sentinel written to every derived column of a
// placeholder row when a task could not be completed automatically.
const ManualReviewTag = "MANUAL REVIEW"

// Record is one output row: a flat mapping of column name to extracted text.
// Missing columns read as NA.
type Record map[string]string

// Get returns the value for col, or NA when the record does not carry it.
func (r Record) Get(col string) string {
	if v, ok := r[col]; ok {
		return v
	}
	return NA
}

// Column names the engine reads or writes by name. Profile-defined extra
// fields (assessment values and listing fields) are plain configuration data
// and stay as YAML strings.
const (
	ColURL        = "URL"
	ColParcelID   = "Parcel ID"
	ColDeedDate   = "Tax Deed Date"
	ColDeedPrice  = "Tax Deed Price"
	ColFlipDate   = "FLIP Date"
	ColFlipPrice  = "FLIP Price"
	ColInstrument = "Instrument"
	ColQualified  = "Qualified"
	ColVacant     = "Vacant/Imp"
	ColDate       = "Date"
	ColSaleAmount = "Sale Amount"
	ColLink       = "Link"
)

// HistoryColumns is the output header for parcel-history (flip) runs.
var HistoryColumns = []string{
	ColURL, ColParcelID, ColDeedDate, ColDeedPrice,
	"Bldg Value", "Land Value",
	ColFlipDate, ColFlipPrice, ColInstrument, ColQualified, ColVacant,
}

// IdentifyingColumns are the task-supplied columns carried verbatim into a
// manual-review placeholder row; every other column gets the review tag.
var IdentifyingColumns = []string{ColURL, ColParcelID, ColDeedDate, ColDeedPrice}

// AuctionColumns is the output header for auction-results runs.
var AuctionColumns = []string{
	ColDate, ColParcelID, "Address", ColSaleAmount,
	"Assessed Value", "Opening Bid", ColLink,
}

// IndexRow is one listing-page entry: a stable record identifier plus the
// version marker consulted for staleness decisions.
type IndexRow struct {
	ID      string
	Version string // normalized date, string-comparable: 2006-01-02
	URL     string
	Fields  Record
}

// RunSummary aggregates per-run outcome counts for the log stream and the
// notification sinks.
type RunSummary struct {
	Profile      string    `json:"profile"`
	Tasks        int       `json:"tasks"`
	Succeeded    int       `json:"succeeded"`
	ManualReview int       `json:"manual_review"`
	Failed       int       `json:"failed"`
	RowsWritten  int       `json:"rows_written"`
	FlipsFound   int       `json:"flips_found"`
	NewOrUpdated int       `json:"new_or_updated"`
	StartedAt    time.Time `json:"started_at"`
	FinishedAt   time.Time `json:"finished_at"`
}

// Duration is the wall-clock span of the run. If the run has not finished
// yet it measures up to now.
func (r *RunSummary) Duration() time.Duration {
	end := r.FinishedAt
	if end.IsZero() {
		end = time.Now()
	}
	return end.Sub(r.StartedAt)
}
