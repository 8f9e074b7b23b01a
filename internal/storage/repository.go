package storage

import (
	"context"

	"bilisearch-crawler/internal/record"
)

// Repository persists crawl batches.
type Repository interface {
	// DumpBatch writes every record in a single transaction that commits
	// once for the whole batch. A record whose title was stored before
	// fully overwrites the prior row (upsert by title); a crash mid-batch
	// leaves no partial table visible to readers.
	DumpBatch(ctx context.Context, records []record.Record) error

	Close() error
}
