// Package app provides the top-level application lifecycle for the monitor.
// It wires together the venue clients, market state, detector, and alert
// sinks, and runs them until the context is cancelled.
package app

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/alanyoungcy/arbwatch/internal/config"
)

// App is the root application object. It owns the configuration, logger, and a
// list of cleanup functions that are called in reverse order on shutdown.
type App struct {
	cfg     *config.Config
	logger  *slog.Logger
	closers []func()
}

// New creates a new App from the given configuration and logger.
func New(cfg *config.Config, logger *slog.Logger) *App {
	return &App{
		cfg:    cfg,
		logger: logger.With(slog.String("component", "app")),
	}
}

// Run is the main entry point. It wires all dependencies, starts the venue
// clients, and blocks until the context is cancelled or a fatal error occurs.
func (a *App) Run(ctx context.Context) error {
	a.logger.InfoContext(ctx, "starting monitor",
		slog.String("log_level", a.cfg.LogLevel),
		slog.Int("pairs", len(a.cfg.Pairs)),
	)

	deps, cleanup, err := Wire(ctx, a.cfg, a.logger)
	if err != nil {
		return fmt.Errorf("app: wire dependencies: %w", err)
	}
	a.closers = append(a.closers, cleanup)

	return a.monitor(ctx, deps)
}

// Close tears down all resources in reverse registration order. It is safe to
// call multiple times; subsequent calls are no-ops.
func (a *App) Close() {
	a.logger.Info("shutting down monitor")
	for i := len(a.closers) - 1; i >= 0; i-- {
		a.closers[i]()
	}
	a.closers = nil
}
