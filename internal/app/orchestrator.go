package app

import (
	"context"
	"fmt"
	"log/slog"

	"bilisearch-crawler/internal/config"
	"bilisearch-crawler/internal/normalize"
	"bilisearch-crawler/internal/record"
	"bilisearch-crawler/internal/storage"
)

// Runner is the crawl entry point the orchestrator drives, one call per
// keyword.
type Runner interface {
	Run(ctx context.Context, keyword string, pageCount int) ([]record.Record, error)
}

// Orchestrator runs one crawl cycle: every configured keyword in turn, then
// a single batch dump of everything collected. One keyword's failure never
// stops the remaining keywords from attempting.
type Orchestrator struct {
	cfg    *config.Config
	logger *slog.Logger
	runner Runner
	dates  *normalize.DateParser
}

func NewOrchestrator(cfg *config.Config, logger *slog.Logger, runner Runner, dates *normalize.DateParser) *Orchestrator {
	return &Orchestrator{
		cfg:    cfg,
		logger: logger,
		runner: runner,
		dates:  dates,
	}
}

type CycleStats struct {
	Keywords       int
	FailedKeywords int
	Collected      int
	Dumped         int
}

func (o *Orchestrator) RunCycle(ctx context.Context) (*CycleStats, error) {
	stats := &CycleStats{}
	var batch []record.Record

	for _, keyword := range o.cfg.Crawl.Keywords {
		stats.Keywords++

		records, err := o.runner.Run(ctx, keyword, o.cfg.Crawl.PagesPerKeyword)
		if err != nil {
			stats.FailedKeywords++
			o.logger.Error("keyword run failed",
				slog.String("keyword", keyword),
				slog.Int("partial_records", len(records)),
				slog.String("error", err.Error()))
		}
		// Keep whatever the run collected before failing.
		batch = append(batch, records...)
		stats.Collected += len(records)

		if ctx.Err() != nil {
			return stats, ctx.Err()
		}
	}

	if fb := o.dates.Fallbacks(); fb > 0 {
		o.logger.Warn("dates degraded to collection time", slog.Int64("total", fb))
	}

	if len(batch) == 0 {
		o.logger.Info("cycle collected nothing, skipping dump")
		return stats, nil
	}

	repo, err := storage.Open(o.cfg, o.logger)
	if err != nil {
		return stats, fmt.Errorf("open storage: %w", err)
	}
	defer func() {
		if err := repo.Close(); err != nil {
			o.logger.Error("close storage failed", slog.String("error", err.Error()))
		}
	}()

	if err := repo.DumpBatch(ctx, batch); err != nil {
		return stats, fmt.Errorf("dump batch: %w", err)
	}
	stats.Dumped = len(batch)

	o.logger.Info("cycle finished",
		slog.Int("keywords", stats.Keywords),
		slog.Int("failed_keywords", stats.FailedKeywords),
		slog.Int("collected", stats.Collected),
		slog.Int("dumped", stats.Dumped))

	return stats, nil
}
