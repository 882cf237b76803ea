package models

import "time"

// Task is one unit of navigation work: the target to reach plus the
// reference sale used to tell the baseline record apart from later ones.
// Immutable once queued.
type Task struct {
	URL       string
	ParcelID  string
	SaleDate  string // raw, e.g. "Wednesday September 10, 2025"
	SalePrice string // raw, e.g. "$141,100.00 "
	Profile   string // source profile name, e.g. "duval"
}

// Identifying returns the columns carried verbatim from the task into every
// output row it produces, placeholder rows included. The column set is
// IdentifyingColumns.
func (t Task) Identifying() Record {
	return Record{
		ColURL:       t.URL,
		ColParcelID:  t.ParcelID,
		ColDeedDate:  t.SaleDate,
		ColDeedPrice: t.SalePrice,
	}
}

// Reference is the task's expected baseline sale in comparable form,
// parsed once before extraction.
type Reference struct {
	Date     time.Time
	RawDate  string
	Price    string // cleaned, e.g. "141100.00"
	RawPrice string
}

// Outcome is the tri-state result of attempting to reach a target page.
type Outcome int

const (
	OutcomeSuccess Outcome = iota
	OutcomeManualReview
	OutcomeFatal
)

func (o Outcome) String() string {
	switch o {
	case OutcomeSuccess:
		return "success"
	case OutcomeManualReview:
		return "manual-review"
	case OutcomeFatal:
		return "fatal"
	}
	return "unknown"
}
