package storage

import (
	"fmt"
	"log/slog"

	"bilisearch-crawler/internal/config"
	"bilisearch-crawler/internal/storage/mssql"
	"bilisearch-crawler/internal/storage/sqlite"
)

// Open builds the configured repository. The destination is opened per
// batch dump and closed after it, never held across crawl runs.
func Open(cfg *config.Config, logger *slog.Logger) (Repository, error) {
	switch cfg.Storage.Driver {
	case "sqlite":
		return sqlite.NewRepository(cfg.Storage.DSN, cfg.GetCommandTimeout(), logger)
	case "mssql":
		return mssql.NewRepository(cfg.Storage.DSN, cfg.GetCommandTimeout(), logger)
	default:
		return nil, fmt.Errorf("unsupported storage driver: %s", cfg.Storage.Driver)
	}
}
