// Package mssql is the SQL Server repository driver, for deployments that
// feed the central database instead of a local file.
package mssql

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"time"

	_ "github.com/microsoft/go-mssqldb"

	"bilisearch-crawler/internal/record"
)

const schema = `
IF OBJECT_ID('TblVideos', 'U') IS NULL
BEGIN
	CREATE TABLE TblVideos (
		[Title]       NVARCHAR(450) NOT NULL PRIMARY KEY,
		[Link]        NVARCHAR(1000) NOT NULL DEFAULT '',
		[Author]      NVARCHAR(200) NOT NULL DEFAULT '',
		[ReleaseDate] DATETIME2 NOT NULL,
		[CollectDate] DATETIME2 NOT NULL,
		[NViews]      INT NOT NULL DEFAULT 0,
		[NBarrages]   INT NOT NULL DEFAULT 0,
		[DurationSec] INT NOT NULL DEFAULT 0,
		[Source]      NVARCHAR(20) NOT NULL DEFAULT 'search'
	);
	CREATE INDEX IX_TblVideos_Author ON TblVideos ([Author]);
	CREATE INDEX IX_TblVideos_ReleaseDate ON TblVideos ([ReleaseDate]);
	CREATE INDEX IX_TblVideos_CollectDate ON TblVideos ([CollectDate]);
	CREATE INDEX IX_TblVideos_Source ON TblVideos ([Source]);
END
`

const upsert = `
MERGE INTO TblVideos AS target
USING (SELECT @Title AS Title) AS source
ON target.[Title] = source.Title
WHEN MATCHED THEN
	UPDATE SET
		[Link] = @Link,
		[Author] = @Author,
		[ReleaseDate] = @ReleaseDate,
		[CollectDate] = @CollectDate,
		[NViews] = @NViews,
		[NBarrages] = @NBarrages,
		[DurationSec] = @DurationSec,
		[Source] = @Source
WHEN NOT MATCHED THEN
	INSERT ([Title], [Link], [Author], [ReleaseDate], [CollectDate], [NViews], [NBarrages], [DurationSec], [Source])
	VALUES (@Title, @Link, @Author, @ReleaseDate, @CollectDate, @NViews, @NBarrages, @DurationSec, @Source);
`

type Repository struct {
	db             *sql.DB
	commandTimeout time.Duration
	logger         *slog.Logger
}

func NewRepository(dsn string, commandTimeout time.Duration, logger *slog.Logger) (*Repository, error) {
	db, err := sql.Open("sqlserver", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

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
			sql.Named("Title", rec.Title),
			sql.Named("Link", rec.Link),
			sql.Named("Author", rec.Author),
			sql.Named("ReleaseDate", rec.ReleaseDate),
			sql.Named("CollectDate", rec.CollectDate),
			sql.Named("NViews", rec.NViews),
			sql.Named("NBarrages", rec.NBarrages),
			sql.Named("DurationSec", rec.DurationSec),
			sql.Named("Source", string(rec.Source)),
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
