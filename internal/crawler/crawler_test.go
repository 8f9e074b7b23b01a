package crawler

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"bilisearch-crawler/internal/record"
	"bilisearch-crawler/internal/source"
)

type fakePage struct {
	pages      [][]source.Card
	pos        int
	advances   int
	advanceErr error
	closed     bool
}

func (p *fakePage) Cards(ctx context.Context) ([]source.Card, error) {
	if p.pos < len(p.pages) {
		return p.pages[p.pos], nil
	}
	return nil, nil
}

func (p *fakePage) Advance(ctx context.Context) error {
	if p.advanceErr != nil {
		return p.advanceErr
	}
	p.advances++
	p.pos++
	return nil
}

func (p *fakePage) Close() error {
	p.closed = true
	return nil
}

type fakeOpener struct {
	page *fakePage
}

func (o *fakeOpener) Open(ctx context.Context, keyword string) (source.PageSource, error) {
	return o.page, nil
}

func titles(records []record.Record) []string {
	out := make([]string, 0, len(records))
	for _, r := range records {
		out = append(out, r.Title)
	}
	return out
}

func TestCrawlerIsolatesFailedCards(t *testing.T) {
	broken := wellFormedCard("broken stats")
	delete(broken.fields, "views")

	page := &fakePage{pages: [][]source.Card{
		{wellFormedCard("one"), broken, wellFormedCard("two")},
	}}

	c := New(&fakeOpener{page: page}, newTestParser(), discardLogger())
	records, err := c.Run(context.Background(), "kw", 1)
	require.NoError(t, err)

	assert.Len(t, records, 2)
	assert.ElementsMatch(t, []string{"one", "two"}, titles(records))
	assert.True(t, page.closed)
}

func TestCrawlerAdvancesBetweenPages(t *testing.T) {
	page := &fakePage{pages: [][]source.Card{
		{wellFormedCard("A"), wellFormedCard("B")},
		{wellFormedCard("C")},
	}}

	c := New(&fakeOpener{page: page}, newTestParser(), discardLogger())
	records, err := c.Run(context.Background(), "kw", 2)
	require.NoError(t, err)

	assert.Equal(t, 1, page.advances, "advance must run exactly once between two pages")
	assert.ElementsMatch(t, []string{"A", "B", "C"}, titles(records))
	// Page order is preserved: C comes after both page-1 records.
	assert.Equal(t, "C", records[2].Title)
}

func TestCrawlerKeepsDuplicateTitlesAcrossPages(t *testing.T) {
	page := &fakePage{pages: [][]source.Card{
		{wellFormedCard("same")},
		{wellFormedCard("same")},
	}}

	c := New(&fakeOpener{page: page}, newTestParser(), discardLogger())
	records, err := c.Run(context.Background(), "kw", 2)
	require.NoError(t, err)
	assert.Len(t, records, 2)
}

func TestCrawlerFailedAdvanceIsFatal(t *testing.T) {
	page := &fakePage{
		pages:      [][]source.Card{{wellFormedCard("A")}},
		advanceErr: fmt.Errorf("%w: control not found", source.ErrPagination),
	}

	c := New(&fakeOpener{page: page}, newTestParser(), discardLogger())
	records, err := c.Run(context.Background(), "kw", 3)

	require.Error(t, err)
	assert.ErrorIs(t, err, source.ErrPagination)
	// The page already parsed stays collected.
	assert.Len(t, records, 1)
	assert.True(t, page.closed)
}

func TestCrawlerEmptyPageYieldsNothing(t *testing.T) {
	page := &fakePage{pages: [][]source.Card{{}}}

	c := New(&fakeOpener{page: page}, newTestParser(), discardLogger())
	records, err := c.Run(context.Background(), "kw", 1)
	require.NoError(t, err)
	assert.Empty(t, records)
}

func TestCrawlerEndToEndSinglePage(t *testing.T) {
	noDate := wellFormedCard("card without date")
	delete(noDate.fields, "date")

	page := &fakePage{pages: [][]source.Card{
		{wellFormedCard("first"), wellFormedCard("second"), noDate},
	}}

	c := New(&fakeOpener{page: page}, newTestParser(), discardLogger())
	records, err := c.Run(context.Background(), "AI agent", 1)
	require.NoError(t, err)

	require.Len(t, records, 2)
	for _, rec := range records {
		assert.Equal(t, 12000, rec.NViews)
		assert.Equal(t, 62, rec.DurationSec)
		assert.True(t, rec.ReleaseDate.Equal(testClock.Add(-3*time.Hour)),
			"release date must resolve from 3小时前 against the fixed clock")
	}
	assert.Equal(t, 0, page.advances)
}
