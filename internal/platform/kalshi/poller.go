package kalshi

import (
	"context"
	"fmt"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/alanyoungcy/arbwatch/internal/domain"
)

// BookHandler receives the normalized top-of-book after every successful poll.
type BookHandler func(ticker string, tob domain.TopOfBook)

// BookSource is the slice of the REST client the poller needs. Tests
// substitute a fake.
type BookSource interface {
	GetOrderbook(ctx context.Context, ticker string) (Orderbook, error)
	GetMarket(ctx context.Context, ticker string) (Market, error)
}

// PollerConfig configures the poll loop.
type PollerConfig struct {
	Ticker string
	// Interval between polls. Must be > 0.
	Interval time.Duration
	// RequestTimeout bounds each request. Must be shorter than Interval so
	// a slow request cannot make ticks pile up.
	RequestTimeout time.Duration
	Logger         *slog.Logger
}

// Poller fetches the Kalshi orderbook for one ticker on a fixed interval and
// hands the normalized top-of-book to its handler. An empty orderbook falls
// back to the market-level yes_bid/yes_ask quote. Transient failures are
// logged and retried on the next tick; fatal failures (bad credentials, bad
// ticker) terminate Run with the error.
type Poller struct {
	client  BookSource
	cfg     PollerConfig
	handler BookHandler
	logger  *slog.Logger

	consecutiveFailures atomic.Int64
	polls               atomic.Int64
}

// NewPoller creates a poll loop for the configured ticker. It returns an
// error when the configuration cannot produce a non-blocking loop.
func NewPoller(client BookSource, cfg PollerConfig, handler BookHandler) (*Poller, error) {
	if cfg.Ticker == "" {
		return nil, fmt.Errorf("kalshi: poller: ticker must not be empty")
	}
	if cfg.Interval <= 0 {
		return nil, fmt.Errorf("kalshi: poller: interval must be > 0, got %s", cfg.Interval)
	}
	if cfg.RequestTimeout <= 0 || cfg.RequestTimeout >= cfg.Interval {
		return nil, fmt.Errorf("kalshi: poller: request timeout %s must be positive and shorter than interval %s",
			cfg.RequestTimeout, cfg.Interval)
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Poller{
		client:  client,
		cfg:     cfg,
		handler: handler,
		logger: logger.With(
			slog.String("component", "kalshi_poller"),
			slog.String("ticker", cfg.Ticker),
		),
	}, nil
}

// Run polls until ctx is cancelled or a fatal error occurs. The first poll
// fires immediately; subsequent polls are interval-gated.
func (p *Poller) Run(ctx context.Context) error {
	p.logger.InfoContext(ctx, "poller started", slog.Duration("interval", p.cfg.Interval))
	defer p.logger.Info("poller stopped")

	ticker := time.NewTicker(p.cfg.Interval)
	defer ticker.Stop()

	if err := p.poll(ctx); err != nil {
		return err
	}

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			if err := p.poll(ctx); err != nil {
				return err
			}
		}
	}
}

// ConsecutiveFailures returns the number of transient failures since the last
// successful poll.
func (p *Poller) ConsecutiveFailures() int64 {
	return p.consecutiveFailures.Load()
}

// Polls returns the total number of poll attempts.
func (p *Poller) Polls() int64 {
	return p.polls.Load()
}

// poll performs one request. A nil return means either success or a transient
// failure that the next tick will retry; only fatal errors propagate.
func (p *Poller) poll(ctx context.Context) error {
	p.polls.Add(1)

	reqCtx, cancel := context.WithTimeout(ctx, p.cfg.RequestTimeout)
	defer cancel()

	ob, err := p.client.GetOrderbook(reqCtx, p.cfg.Ticker)
	if err != nil {
		return p.pollFailed(ctx, err)
	}

	tob := ob.TopOfBook(time.Now())
	if !tob.HasBid && !tob.HasAsk {
		// Thin markets can have an empty resting book while the market
		// summary still quotes a yes_bid/yes_ask.
		m, err := p.client.GetMarket(reqCtx, p.cfg.Ticker)
		if err != nil {
			return p.pollFailed(ctx, err)
		}
		tob = m.TopOfBook(time.Now())
	}

	p.consecutiveFailures.Store(0)
	p.handler(p.cfg.Ticker, tob)
	return nil
}

// pollFailed classifies a request error: fatal errors stop the loop, anything
// else is logged and retried on the next tick.
func (p *Poller) pollFailed(ctx context.Context, err error) error {
	if domain.IsFatal(err) {
		p.logger.ErrorContext(ctx, "fatal poll failure, stopping",
			slog.String("error", err.Error()),
		)
		return err
	}
	if ctx.Err() != nil {
		return ctx.Err()
	}
	n := p.consecutiveFailures.Add(1)
	p.logger.WarnContext(ctx, "transient poll failure, will retry on next tick",
		slog.String("error", err.Error()),
		slog.Int64("consecutive_failures", n),
	)
	return nil
}
