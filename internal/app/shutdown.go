package app

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
)

// GracefulShutdown returns a context canceled on SIGINT/SIGTERM.
func GracefulShutdown(logger *slog.Logger) (context.Context, context.CancelFunc) {
	ctx, cancel := context.WithCancel(context.Background())

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		sig := <-sigChan
		logger.Info("shutdown signal received", slog.String("signal", sig.String()))
		cancel()
	}()

	return ctx, cancel
}
