// Package source abstracts one page of video-search results over two
// backends: a rendered browser page driven through rod, and the JSON search
// API. The card parser and the crawler stay oblivious to which one they run
// against.
package source

import (
	"context"
	"errors"
)

// ErrFieldUnavailable marks a card region whose raw text could not be read:
// the element or key is absent, or the read timed out.
var ErrFieldUnavailable = errors.New("source: field unavailable")

// ErrPagination marks a failed advance to the next page. It is fatal to the
// current crawl run; pagination must not silently stop.
var ErrPagination = errors.New("source: cannot advance to next page")

// Card is one search-result item. Every accessor yields the raw display
// text of its region or fails with ErrFieldUnavailable; reads are bounded
// by the backend's field timeout and never block indefinitely.
type Card interface {
	Title(ctx context.Context) (string, error)
	Link(ctx context.Context) (string, error)
	Author(ctx context.Context) (string, error)
	Date(ctx context.Context) (string, error)
	Views(ctx context.Context) (string, error)
	Barrages(ctx context.Context) (string, error)
	Duration(ctx context.Context) (string, error)
}

// PageSource is one open search session positioned on a page of results.
// Pagination is positional and directional; there is no last-page signal.
type PageSource interface {
	// Cards re-evaluates the current page on every call and returns the
	// empty slice when nothing matches.
	Cards(ctx context.Context) ([]Card, error)
	// Advance moves to the next page. Failure wraps ErrPagination.
	Advance(ctx context.Context) error
	Close() error
}

// Opener starts a search session for a keyword.
type Opener interface {
	Open(ctx context.Context, keyword string) (PageSource, error)
}
