// Package sqlite is the default repository driver: a single-file keyed
// store, one writer per batch.
package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"bilisearch-crawler/internal/record"
)

const schema = `
CREATE TABLE IF NOT EXISTS videos (
	title        TEXT PRIMARY KEY,
	link         TEXT NOT NULL DEFAULT '',
	author       TEXT NOT NULL DEFAULT '',
	release_date TIMESTAMP NOT NULL,
	collect_date TIMESTAMP NOT NULL,
	n_views      INTEGER NOT NULL DEFAULT 0,
	n_barrages   INTEGER NOT NULL DEFAULT 0,
	duration_sec INTEGER NOT NULL DEFAULT 0,
	source       TEXT NOT NULL DEFAULT 'search'
);
CREATE INDEX IF NOT EXISTS idx_videos_author ON videos (author);
CREATE INDEX IF NOT EXISTS idx_videos_release_date ON videos (release_date);
CREATE INDEX IF NOT EXISTS idx_videos_collect_date ON videos (collect_date);
CREATE INDEX IF NOT EXISTS idx_videos_source ON videos (source);
`

const upsert = `
INSERT INTO videos (title, link, author, release_date, collect_date, n_views, n_barrages, duration_sec, source)
VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
ON CONFLICT(title) DO UPDATE SET
	link = excluded.link,
	author = excluded.author,
	release_date = excluded.release_date,
	collect_date = excluded.collect_date,
	n_views = excluded.n_views,
	n_barrages = excluded.n_barrages,
	duration_sec = excluded.duration_sec,
	source = excluded.source
`

type Repository struct {
	db             *sql.DB
	commandTimeout time.Duration
	logger         *slog.Logger
}

func NewRepository(path string, commandTimeout time.Duration, logger *slog.Logger) (*Repository, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), commandTimeout)
	defer cancel()

	if _, err := db.ExecContext(ctx, schema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to ensure schema: %w", err)
	}

	return &Repository{
		db:             db,
		commandTimeout: commandTimeout,
		logger:         logger,
	}, nil
}

func (r *Repository) DumpBatch(ctx context.Context, records []record.Record) error {
	ctx, cancel := context.WithTimeout(ctx, r.commandTimeout)
	defer cancel()

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}

	stmt, err := tx.PrepareContext(ctx, upsert)
	if err != nil {
		_ = tx.Rollback()
		return fmt.Errorf("failed to prepare statement: %w", err)
	}
	defer func() {
		if err := stmt.Close(); err != nil {
			r.logger.Error("failed to close statement", "error", err.Error())
		}
	}()

	for _, rec := range records {
		_, err := stmt.ExecContext(ctx,
			rec.Title,
			rec.Link,
			rec.Author,
			rec.ReleaseDate,
			rec.CollectDate,
			rec.NViews,
			rec.NBarrages,
			rec.DurationSec,
			string(rec.Source),
		)
		if err != nil {
			_ = tx.Rollback()
			return fmt.Errorf("failed to upsert %q: %w", rec.Title, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit batch: %w", err)
	}

	r.logger.Info("batch dumped", "records", len(records))
	return nil
}

func (r *Repository) Close() error {
	if r.db != nil {
		return r.db.Close()
	}
	return nil
}
