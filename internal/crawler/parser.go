package crawler

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"bilisearch-crawler/internal/normalize"
	"bilisearch-crawler/internal/record"
	"bilisearch-crawler/internal/source"
)

// rawCard holds the raw text slices read from one card before normalization.
type rawCard struct {
	title    string
	link     string
	author   string
	date     string
	views    string
	barrages string
	duration string
}

// Parser turns one card into a Record. All seven region reads run
// concurrently; normalization happens only after every read has resolved.
// A card is parsed whole or not at all.
type Parser struct {
	dates *normalize.DateParser
	src   record.Source
	now   func() time.Time
}

func NewParser(dates *normalize.DateParser, src record.Source, now func() time.Time) *Parser {
	if now == nil {
		now = time.Now
	}
	return &Parser{dates: dates, src: src, now: now}
}

// Parse reads and normalizes one card. Any required read failing, or a
// count/duration that matches no known pattern, abandons the card; an
// unparseable date instead degrades to the collection instant.
func (p *Parser) Parse(ctx context.Context, card source.Card) (record.Record, error) {
	raw, err := p.gather(ctx, card)
	if err != nil {
		return record.Record{}, err
	}

	views, err := normalize.ParseCount(raw.views)
	if err != nil {
		return record.Record{}, fmt.Errorf("views: %w", err)
	}
	barrages, err := normalize.ParseCount(raw.barrages)
	if err != nil {
		return record.Record{}, fmt.Errorf("barrages: %w", err)
	}
	duration, err := normalize.ParseDuration(raw.duration)
	if err != nil {
		return record.Record{}, fmt.Errorf("duration: %w", err)
	}

	now := p.now()
	release := p.dates.Parse(raw.date, now)

	return record.New(raw.title, raw.link, raw.author, release, views, barrages, duration, p.src, now)
}

// gather runs the seven reads concurrently and waits for all of them; a
// failing read never cancels its siblings. Barrages is the one optional
// region: a card exposing a single stat keeps the "0" default.
func (p *Parser) gather(ctx context.Context, card source.Card) (rawCard, error) {
	raw := rawCard{barrages: "0"}

	reads := []struct {
		name     string
		dst      *string
		fn       func(context.Context) (string, error)
		optional bool
	}{
		{"title", &raw.title, card.Title, false},
		{"link", &raw.link, card.Link, false},
		{"author", &raw.author, card.Author, false},
		{"date", &raw.date, card.Date, false},
		{"views", &raw.views, card.Views, false},
		{"barrages", &raw.barrages, card.Barrages, true},
		{"duration", &raw.duration, card.Duration, false},
	}

	errs := make([]error, len(reads))
	var wg sync.WaitGroup
	for i, r := range reads {
		wg.Add(1)
		go func() {
			defer wg.Done()
			text, err := r.fn(ctx)
			if err != nil {
				if r.optional && errors.Is(err, source.ErrFieldUnavailable) {
					return
				}
				errs[i] = fmt.Errorf("%s: %w", r.name, err)
				return
			}
			*r.dst = strings.TrimSpace(text)
		}()
	}
	wg.Wait()

	return raw, errors.Join(errs...)
}
