package record

import (
	"errors"
	"strings"
	"time"
)

// Source tags which crawl mode produced a record.
type Source string

const (
	SourceSearch Source = "search"
	SourceAPI    Source = "api"
)

var ErrEmptyTitle = errors.New("record: title must not be empty")

// Record is one normalized search-result item. The title is the natural key
// for storage: re-collecting the same title overwrites the stored row.
// Records are immutable after construction.
type Record struct {
	Title       string
	Link        string
	Author      string
	ReleaseDate time.Time
	CollectDate time.Time
	NViews      int
	NBarrages   int
	DurationSec int
	Source      Source
}

// New builds a Record, stamping collectedAt as the observation time.
func New(title, link, author string, releaseDate time.Time, nViews, nBarrages, durationSec int, source Source, collectedAt time.Time) (Record, error) {
	if strings.TrimSpace(title) == "" {
		return Record{}, ErrEmptyTitle
	}

	return Record{
		Title:       title,
		Link:        link,
		Author:      author,
		ReleaseDate: releaseDate,
		CollectDate: collectedAt,
		NViews:      nViews,
		NBarrages:   nBarrages,
		DurationSec: durationSec,
		Source:      source,
	}, nil
}
