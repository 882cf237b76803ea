package storage

import "taxdeed-scraper/models"

// RecordWriter is the output sink for scraped rows. Implementations append
// one row per Write and flush immediately, so a killed run keeps everything
// written so far.
type RecordWriter interface {
	Write(rec models.Record) error
	Close() error
}

// DedupStore maps stable record identifiers to the last-seen version marker.
// Markers are normalized dates in string-comparable form (2006-01-02) and
// only ever move forward: Upsert never regresses a stored marker.
type DedupStore interface {
	// Get returns the stored marker for id; ok is false when none exists.
	Get(id string) (version string, ok bool, err error)
	Upsert(row models.IndexRow) error
	Close() error
}

// Stale filters the freshly scraped index down to the rows needing deep
// (detail-page) follow-up: those the store has never seen, or whose stored
// marker is older than the current one. Deep navigation is the expensive
// operation; this filter is what bounds it to one visit per distinct row
// version.
func Stale(store DedupStore, rows []models.IndexRow) ([]models.IndexRow, error) {
	var out []models.IndexRow
	for _, row := range rows {
		stored, ok, err := store.Get(row.ID)
		if err != nil {
			return nil, err
		}
		if !ok || stored < row.Version {
			out = append(out, row)
		}
	}
	return out, nil
}
