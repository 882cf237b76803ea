package storage

import (
	"database/sql"
	"fmt"
	"time"

	_ "github.com/lib/pq"

	"taxdeed-scraper/models"
)

// PostgresStore keeps the dedup index in PostgreSQL, shared across runs and
// hosts.
type PostgresStore struct {
	db *sql.DB
}

// NewPostgresStore opens a connection to PostgreSQL, runs schema migrations,
// and returns a ready-to-use store.
func NewPostgresStore(dsn string) (*PostgresStore, error) {
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("postgres: open: %w", err)
	}

	for i := 0; i < 10; i++ {
		if err = db.Ping(); err == nil {
			break
		}
		time.Sleep(2 * time.Second)
	}
	if err != nil {
		return nil, fmt.Errorf("postgres: ping failed after retries: %w", err)
	}

	ps := &PostgresStore{db: db}
	if err := ps.migrate(); err != nil {
		return nil, fmt.Errorf("postgres: migrate: %w", err)
	}

	return ps, nil
}

func (ps *PostgresStore) migrate() error {
	_, err := ps.db.Exec(`
		CREATE TABLE IF NOT EXISTS dedup_index (
			id         TEXT PRIMARY KEY,
			version    TEXT NOT NULL,
			url        TEXT NOT NULL DEFAULT '',
			updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
		);

		CREATE INDEX IF NOT EXISTS idx_dedup_index_version ON dedup_index(version);
	`)
	return err
}

// Get returns the stored version marker for id.
func (ps *PostgresStore) Get(id string) (string, bool, error) {
	var version string
	err := ps.db.QueryRow(
		`SELECT version FROM dedup_index WHERE id = $1`, id,
	).Scan(&version)
	if err == sql.ErrNoRows {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("postgres: get %q: %w", id, err)
	}
	return version, true, nil
}

// Upsert records the row's version marker. The conditional update keeps
// markers monotonic: a replayed or out-of-order row can never regress one.
func (ps *PostgresStore) Upsert(row models.IndexRow) error {
	_, err := ps.db.Exec(`
		INSERT INTO dedup_index (id, version, url, updated_at)
		VALUES ($1, $2, $3, NOW())
		ON CONFLICT (id) DO UPDATE SET
			version    = EXCLUDED.version,
			url        = EXCLUDED.url,
			updated_at = NOW()
		WHERE dedup_index.version <= EXCLUDED.version
	`, row.ID, row.Version, row.URL)
	if err != nil {
		return fmt.Errorf("postgres: upsert %q: %w", row.ID, err)
	}
	return nil
}

func (ps *PostgresStore) Close() error {
	return ps.db.Close()
}
