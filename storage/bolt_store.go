package storage

import (
	"fmt"
	"time"

	"go.etcd.io/bbolt"

	"taxdeed-scraper/models"
)

var dedupBucket = []byte("dedup_index")

// BoltStore keeps the dedup index in a local bbolt file. It serves
// single-host runs and development, where standing up PostgreSQL is more
// machinery than the job needs.
type BoltStore struct {
	db *bbolt.DB
}

// NewBoltStore opens (or creates) the database file and its bucket.
func NewBoltStore(path string) (*BoltStore, error) {
	db, err := bbolt.Open(path, 0600, &bbolt.Options{Timeout: time.Second})
	if err != nil {
		return nil, fmt.Errorf("bolt: open %q: %w", path, err)
	}

	err = db.Update(func(tx *bbolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists(dedupBucket)
		return err
	})
	if err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("bolt: create bucket: %w", err)
	}

	return &BoltStore{db: db}, nil
}

// Get returns the stored version marker for id.
func (bs *BoltStore) Get(id string) (string, bool, error) {
	var version string
	var found bool

	err := bs.db.View(func(tx *bbolt.Tx) error {
		if v := tx.Bucket(dedupBucket).Get([]byte(id)); v != nil {
			version = string(v)
			found = true
		}
		return nil
	})
	if err != nil {
		return "", false, fmt.Errorf("bolt: get %q: %w", id, err)
	}
	return version, found, nil
}

// Upsert records the row's version marker, never regressing a newer one.
func (bs *BoltStore) Upsert(row models.IndexRow) error {
	err := bs.db.Update(func(tx *bbolt.Tx) error {
		bucket := tx.Bucket(dedupBucket)
		if existing := bucket.Get([]byte(row.ID)); existing != nil &&
			string(existing) > row.Version {
			return nil
		}
		return bucket.Put([]byte(row.ID), []byte(row.Version))
	})
	if err != nil {
		return fmt.Errorf("bolt: upsert %q: %w", row.ID, err)
	}
	return nil
}

func (bs *BoltStore) Close() error {
	return bs.db.Close()
}
