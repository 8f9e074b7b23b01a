package main

import (
	"context"
	"log"
	"log/slog"
	"os"
	"time"

	"bilisearch-crawler/internal/app"
	"bilisearch-crawler/internal/config"
	"bilisearch-crawler/internal/crawler"
	"bilisearch-crawler/internal/normalize"
	"bilisearch-crawler/internal/observability"
	"bilisearch-crawler/internal/record"
	"bilisearch-crawler/internal/source"
)

func main() {
	configPath := "configs/config.yaml"
	if len(os.Args) > 1 {
		configPath = os.Args[1]
	}

	cfg, err := config.LoadConfig(configPath)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	logger := observability.NewLogger(cfg.Observability.LogPath, cfg.Observability.LogLevel)

	ctx, cancel := app.GracefulShutdown(logger)
	defer cancel()

	dates := normalize.NewDateParser(logger)

	opener, src, cleanup, err := buildSource(cfg, logger)
	if err != nil {
		logger.Error("source setup failed", slog.String("error", err.Error()))
		os.Exit(1)
	}
	defer cleanup()

	parser := crawler.NewParser(dates, src, nil)
	orch := app.NewOrchestrator(cfg, logger, crawler.New(opener, parser, logger), dates)

	switch cfg.Scheduler.Mode {
	case "interval":
		runInterval(ctx, orch, cfg.GetSchedulerInterval(), logger)
	default:
		runOnce(ctx, orch, logger)
	}
}

func buildSource(cfg *config.Config, logger *slog.Logger) (source.Opener, record.Source, func(), error) {
	if cfg.Source.Mode == "api" {
		api, err := source.NewAPI(cfg, logger)
		if err != nil {
			return nil, "", nil, err
		}
		return api, record.SourceAPI, func() {}, nil
	}

	browser, err := source.NewBrowser(cfg, logger)
	if err != nil {
		return nil, "", nil, err
	}
	cleanup := func() {
		if err := browser.Close(); err != nil {
			logger.Warn("browser close failed", slog.String("error", err.Error()))
		}
	}
	return browser, record.SourceSearch, cleanup, nil
}

func runOnce(ctx context.Context, orch *app.Orchestrator, logger *slog.Logger) {
	if _, err := orch.RunCycle(ctx); err != nil {
		logger.Error("cycle failed", slog.String("error", err.Error()))
		os.Exit(1)
	}
}

func runInterval(ctx context.Context, orch *app.Orchestrator, interval time.Duration, logger *slog.Logger) {
	logger.Info("scheduler started", slog.Duration("interval", interval))

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	// First cycle runs immediately, the ticker paces the rest.
	for {
		if _, err := orch.RunCycle(ctx); err != nil {
			if ctx.Err() != nil {
				return
			}
			logger.Error("cycle failed", slog.String("error", err.Error()))
		}

		select {
		case <-ticker.C:
		case <-ctx.Done():
			logger.Info("scheduler stopped")
			return
		}
	}
}
