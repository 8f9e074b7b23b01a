package sqlite

import (
	"context"
	"io"
	"log/slog"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"bilisearch-crawler/internal/record"
)

func newTestRepository(t *testing.T) *Repository {
	t.Helper()
	path := filepath.Join(t.TempDir(), "test.sqlite.db")
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	repo, err := NewRepository(path, 5*time.Second, logger)
	require.NoError(t, err)
	t.Cleanup(func() { _ = repo.Close() })
	return repo
}

func testRecord(t *testing.T, title string, views int) record.Record {
	t.Helper()
	release := time.Date(2024, 7, 14, 0, 0, 0, 0, time.UTC)
	collected := time.Date(2024, 8, 20, 15, 30, 0, 0, time.UTC)
	rec, err := record.New(title, "//www.bilibili.com/video/BV1xx/", "some author",
		release, views, 152, 62, record.SourceSearch, collected)
	require.NoError(t, err)
	return rec
}

func countRows(t *testing.T, repo *Repository, title string) (n, views int) {
	t.Helper()
	row := repo.db.QueryRow("SELECT COUNT(*), COALESCE(MAX(n_views), 0) FROM videos WHERE title = ?", title)
	require.NoError(t, row.Scan(&n, &views))
	return n, views
}

func TestDumpBatchInserts(t *testing.T) {
	repo := newTestRepository(t)

	batch := []record.Record{
		testRecord(t, "first video", 100),
		testRecord(t, "second video", 200),
	}
	require.NoError(t, repo.DumpBatch(context.Background(), batch))

	var total int
	require.NoError(t, repo.db.QueryRow("SELECT COUNT(*) FROM videos").Scan(&total))
	assert.Equal(t, 2, total)
}

func TestDumpBatchUpsertsByTitle(t *testing.T) {
	repo := newTestRepository(t)
	ctx := context.Background()

	require.NoError(t, repo.DumpBatch(ctx, []record.Record{testRecord(t, "X", 10)}))
	require.NoError(t, repo.DumpBatch(ctx, []record.Record{testRecord(t, "X", 20)}))

	n, views := countRows(t, repo, "X")
	assert.Equal(t, 1, n, "same title must stay a single row")
	assert.Equal(t, 20, views, "later dump wins")
}

func TestDumpBatchUpsertsWithinOneBatch(t *testing.T) {
	repo := newTestRepository(t)

	batch := []record.Record{
		testRecord(t, "X", 10),
		testRecord(t, "X", 20),
	}
	require.NoError(t, repo.DumpBatch(context.Background(), batch))

	n, views := countRows(t, repo, "X")
	assert.Equal(t, 1, n)
	assert.Equal(t, 20, views)
}

func TestDumpBatchEmpty(t *testing.T) {
	repo := newTestRepository(t)
	require.NoError(t, repo.DumpBatch(context.Background(), nil))
}

func TestDumpBatchRoundTripsFields(t *testing.T) {
	repo := newTestRepository(t)
	rec := testRecord(t, "round trip", 12000)
	require.NoError(t, repo.DumpBatch(context.Background(), []record.Record{rec}))

	var (
		link, author, source           string
		nViews, nBarrages, durationSec int
		releaseDate, collectDate       time.Time
	)
	row := repo.db.QueryRow(
		"SELECT link, author, release_date, collect_date, n_views, n_barrages, duration_sec, source FROM videos WHERE title = ?",
		"round trip")
	require.NoError(t, row.Scan(&link, &author, &releaseDate, &collectDate, &nViews, &nBarrages, &durationSec, &source))

	assert.Equal(t, rec.Link, link)
	assert.Equal(t, rec.Author, author)
	assert.True(t, releaseDate.Equal(rec.ReleaseDate))
	assert.True(t, collectDate.Equal(rec.CollectDate))
	assert.Equal(t, rec.NViews, nViews)
	assert.Equal(t, rec.NBarrages, nBarrages)
	assert.Equal(t, rec.DurationSec, durationSec)
	assert.Equal(t, string(rec.Source), source)
}
