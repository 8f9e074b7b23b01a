package crawler

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"bilisearch-crawler/internal/record"
	"bilisearch-crawler/internal/source"
)

// Crawler walks a fixed number of result pages for one keyword. Pages run
// strictly in order because pagination mutates shared session state; the
// cards within a page parse concurrently.
type Crawler struct {
	opener source.Opener
	parser *Parser
	logger *slog.Logger
}

func New(opener source.Opener, parser *Parser, logger *slog.Logger) *Crawler {
	return &Crawler{opener: opener, parser: parser, logger: logger}
}

// cardOutcome carries one card's result so a failing card cannot abort
// sibling parses already in flight.
type cardOutcome struct {
	rec record.Record
	err error
}

// Run collects records from the first pageCount pages of the keyword's
// results. Cards that fail to parse are dropped silently (counted, not
// errored); a failed advance or page fetch ends the run and returns what
// was collected up to that point along with the error. Duplicate titles
// across pages are kept; dedup happens at persistence.
func (c *Crawler) Run(ctx context.Context, keyword string, pageCount int) ([]record.Record, error) {
	page, err := c.opener.Open(ctx, keyword)
	if err != nil {
		return nil, fmt.Errorf("open search for %q: %w", keyword, err)
	}
	defer func() {
		if err := page.Close(); err != nil {
			c.logger.Warn("close page source failed", slog.String("error", err.Error()))
		}
	}()

	var records []record.Record
	for pageNum := 1; pageNum <= pageCount; pageNum++ {
		cards, err := page.Cards(ctx)
		if err != nil {
			return records, fmt.Errorf("keyword %q page %d: %w", keyword, pageNum, err)
		}

		outcomes := make([]cardOutcome, len(cards))
		var wg sync.WaitGroup
		for i, card := range cards {
			wg.Add(1)
			go func() {
				defer wg.Done()
				rec, err := c.parser.Parse(ctx, card)
				outcomes[i] = cardOutcome{rec: rec, err: err}
			}()
		}
		wg.Wait()

		dropped := 0
		for _, out := range outcomes {
			if out.err != nil {
				dropped++
				c.logger.Debug("card dropped",
					slog.String("keyword", keyword),
					slog.Int("page", pageNum),
					slog.String("reason", out.err.Error()))
				continue
			}
			records = append(records, out.rec)
		}

		c.logger.Info("page processed",
			slog.String("keyword", keyword),
			slog.Int("page", pageNum),
			slog.Int("cards", len(cards)),
			slog.Int("dropped", dropped))

		if pageNum < pageCount {
			if err := page.Advance(ctx); err != nil {
				return records, fmt.Errorf("keyword %q advance after page %d: %w", keyword, pageNum, err)
			}
		}
	}

	c.logger.Info("keyword crawl finished",
		slog.String("keyword", keyword),
		slog.Int("collected", len(records)))

	return records, nil
}
