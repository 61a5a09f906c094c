package app

import (
	"context"
	"log/slog"
	"time"

	"golang.org/x/sync/errgroup"
)

// statsInterval is how often the monitor logs stream counters.
const statsInterval = time.Minute

// monitor runs both venue clients under one errgroup. A fatal Kalshi error
// (bad credentials, unknown market) takes the whole group down; the stream
// client reconnects forever and only exits on context cancellation.
func (a *App) monitor(ctx context.Context, deps *Dependencies) error {
	g, ctx := errgroup.WithContext(ctx)

	for _, p := range deps.Pollers {
		p := p
		g.Go(func() error {
			return p.Run(ctx)
		})
	}

	g.Go(func() error {
		return deps.Stream.Run(ctx)
	})

	g.Go(func() error {
		ticker := time.NewTicker(statsInterval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-ticker.C:
				stats := deps.Stream.Stats()
				a.logger.InfoContext(ctx, "stream stats",
					slog.String("state", deps.Stream.State().String()),
					slog.Int64("reconnects", stats.Reconnects),
					slog.Int64("books_received", stats.BooksReceived),
					slog.Int64("trades_received", stats.TradesReceived),
					slog.Int64("dropped_messages", stats.DroppedMessages),
					slog.Int64("pong_timeouts", stats.PongTimeouts),
				)
			}
		}
	})

	return g.Wait()
}
