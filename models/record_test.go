package models

import (
	"testing"
	"time"
)

func TestRecordGetDefaultsToNA(t *testing.T) {
	rec := Record{"Parcel ID": "P-1", "Qualified": ""}

	if got := rec.Get("Parcel ID"); got != "P-1" {
		t.Errorf("Get = %q", got)
	}
	// Present-but-empty is a real value, not a miss.
	if got := rec.Get("Qualified"); got != "" {
		t.Errorf("Get empty cell = %q; want empty string", got)
	}
	if got := rec.Get("FLIP Date"); got != NA {
		t.Errorf("Get absent = %q; want %q", got, NA)
	}
}

func TestTaskIdentifyingCoversPlaceholderColumns(t *testing.T) {
	task := Task{
		URL:       "https://x.example/1",
		ParcelID:  "P-1",
		SaleDate:  "Wednesday September 10, 2025",
		SalePrice: "$141,100.00 ",
	}
	rec := task.Identifying()

	for _, col := range IdentifyingColumns {
		if _, ok := rec[col]; !ok {
			t.Errorf("identifying record missing %q", col)
		}
	}
	if rec[ColDeedDate] != "Wednesday September 10, 2025" || rec[ColDeedPrice] != "$141,100.00 " {
		t.Errorf("raw values must carry through verbatim: %+v", rec)
	}
}

func TestRunSummaryDuration(t *testing.T) {
	start := time.Now().Add(-2 * time.Second)
	s := &RunSummary{StartedAt: start, FinishedAt: start.Add(1500 * time.Millisecond)}
	if got := s.Duration(); got != 1500*time.Millisecond {
		t.Errorf("Duration = %v; want 1.5s", got)
	}

	open := &RunSummary{StartedAt: start}
	if got := open.Duration(); got < 2*time.Second {
		t.Errorf("open-ended Duration = %v; want at least the elapsed 2s", got)
	}
}

func TestOutcomeString(t *testing.T) {
	tests := []struct {
		o    Outcome
		want string
	}{
		{OutcomeSuccess, "success"},
		{OutcomeManualReview, "manual-review"},
		{OutcomeFatal, "fatal"},
		{Outcome(99), "unknown"},
	}
	for _, tt := range tests {
		if got := tt.o.String(); got != tt.want {
			t.Errorf("Outcome(%d).String() = %q; want %q", tt.o, got, tt.want)
		}
	}
}
