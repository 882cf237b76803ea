package storage

import (
	"fmt"

	"taxdeed-scraper/config"
	"taxdeed-scraper/models"
	"taxdeed-scraper/utils"
)

// NewStore returns the configured dedup store backend.
func NewStore(cfg *config.Config, logger *utils.Logger) (DedupStore, error) {
	switch cfg.StoreType {
	case "postgres":
		logger.Info("[storage] dedup store: postgres (%s:%s/%s)",
			cfg.PostgresHost, cfg.PostgresPort, cfg.PostgresDB)
		return NewPostgresStore(cfg.DSN())
	case "bolt":
		logger.Info("[storage] dedup store: bolt (%s)", cfg.BoltPath)
		return NewBoltStore(cfg.BoltPath)
	case "none":
		logger.Warn("[storage] dedup store disabled — every index row counts as stale")
		return NoopStore{}, nil
	}
	return nil, fmt.Errorf("unknown store type %q", cfg.StoreType)
}

// NoopStore remembers nothing: Get always misses, so the staleness filter
// passes every row through.
type NoopStore struct{}

func (NoopStore) Get(string) (string, bool, error) { return "", false, nil }
func (NoopStore) Upsert(models.IndexRow) error     { return nil }
func (NoopStore) Close() error                     { return nil }
