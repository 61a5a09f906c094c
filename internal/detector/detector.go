// Package detector evaluates cross-venue arbitrage and single-venue
// volatility conditions on every market-state update and emits structured
// alert events.
package detector

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/alanyoungcy/arbwatch/internal/domain"
	"github.com/alanyoungcy/arbwatch/internal/market"
)

// Sink receives alert events. Implementations must not block for long; they
// run inline on the ingestion path.
type Sink interface {
	OnArbitrage(ctx context.Context, alert domain.ArbitrageAlert)
	OnVolatility(ctx context.Context, alert domain.VolatilityAlert)
}

// Config holds the detection thresholds. Everything is supplied at
// construction so tests can vary it; there are no compile-time tunables.
type Config struct {
	// StalenessBound is the maximum snapshot age still considered valid for
	// cross-venue comparison.
	StalenessBound time.Duration
	// MinEdge is subtracted from the raw directional edge before alerting,
	// in probability units, to absorb fees and slippage.
	MinEdge float64

	Volatility VolatilityConfig
}

// VolatilityConfig holds the trade-window spike thresholds.
type VolatilityConfig struct {
	// Window is the rolling trade window length.
	Window time.Duration
	// PriceThreshold is the fractional oldest-to-newest price change that
	// counts as a spike (0.02 = 2%).
	PriceThreshold float64
	// VolumeMultiplier is how many times the trailing baseline the window
	// volume must exceed to count as a spike.
	VolumeMultiplier float64
	// BaselineHorizon is the trailing period over which window-volume
	// observations are averaged into the baseline.
	BaselineHorizon time.Duration
}

// Detector owns the evaluation state: the configured outcome pairs, the
// per-token volatility windows, and the sink list. It runs inline on the
// client goroutine that produced each update; a single evaluation mutex keeps
// per-outcome ordering (last-observed-wins). The mutex guards evaluation
// state only: alerts are collected under it and delivered to sinks after it
// is released, so sink I/O never blocks the other venue's callbacks.
type Detector struct {
	cfg    Config
	state  *market.State
	sinks  []Sink
	logger *slog.Logger
	now    func() time.Time

	byTicker map[string][]domain.OutcomePair
	byToken  map[string][]domain.OutcomePair

	mu      sync.Mutex
	windows map[string]*tradeWindow
}

// New creates a detector over the given state and configured outcome pairs.
func New(cfg Config, state *market.State, pairs []domain.OutcomePair, sinks []Sink, logger *slog.Logger) *Detector {
	if cfg.StalenessBound <= 0 {
		cfg.StalenessBound = 5 * time.Second
	}
	if cfg.Volatility.Window <= 0 {
		cfg.Volatility.Window = 5 * time.Second
	}
	if cfg.Volatility.PriceThreshold <= 0 {
		cfg.Volatility.PriceThreshold = 0.02
	}
	if cfg.Volatility.VolumeMultiplier <= 0 {
		cfg.Volatility.VolumeMultiplier = 3.0
	}
	if cfg.Volatility.BaselineHorizon <= 0 {
		cfg.Volatility.BaselineHorizon = time.Minute
	}
	if logger == nil {
		logger = slog.Default()
	}

	d := &Detector{
		cfg:      cfg,
		state:    state,
		sinks:    sinks,
		logger:   logger.With(slog.String("component", "detector")),
		now:      time.Now,
		byTicker: make(map[string][]domain.OutcomePair),
		byToken:  make(map[string][]domain.OutcomePair),
		windows:  make(map[string]*tradeWindow),
	}
	for _, p := range pairs {
		d.byTicker[p.KalshiTicker] = append(d.byTicker[p.KalshiTicker], p)
		d.byToken[p.PolymarketTokenID] = append(d.byToken[p.PolymarketTokenID], p)
	}
	return d
}

// OnKalshiBook records a polled-venue snapshot and re-evaluates every pair
// that references the ticker.
func (d *Detector) OnKalshiBook(ticker string, tob domain.TopOfBook) {
	d.state.SetKalshi(ticker, tob)

	ctx := context.Background()
	d.mu.Lock()
	var alerts []domain.ArbitrageAlert
	for _, p := range d.byTicker[ticker] {
		alerts = append(alerts, d.evaluatePair(ctx, p)...)
	}
	d.mu.Unlock()

	for _, a := range alerts {
		d.emitArbitrage(ctx, a)
	}
}

// OnPolymarketBook records a streamed-venue snapshot and re-evaluates every
// pair that references the token.
func (d *Detector) OnPolymarketBook(tokenID string, tob domain.TopOfBook) {
	d.state.SetPolymarket(tokenID, tob)

	ctx := context.Background()
	d.mu.Lock()
	var alerts []domain.ArbitrageAlert
	for _, p := range d.byToken[tokenID] {
		alerts = append(alerts, d.evaluatePair(ctx, p)...)
	}
	d.mu.Unlock()

	for _, a := range alerts {
		d.emitArbitrage(ctx, a)
	}
}

// OnTrade feeds a streamed-venue trade into the volatility window for its
// token.
func (d *Detector) OnTrade(trade domain.Trade) {
	ctx := context.Background()
	d.mu.Lock()
	alert, fired := d.evaluateTrade(trade)
	d.mu.Unlock()

	if fired {
		d.emitVolatility(ctx, alert)
	}
}

func (d *Detector) emitArbitrage(ctx context.Context, alert domain.ArbitrageAlert) {
	d.logger.InfoContext(ctx, "arbitrage detected",
		slog.String("outcome", alert.Outcome),
		slog.String("buy_venue", string(alert.BuyVenue)),
		slog.String("sell_venue", string(alert.SellVenue)),
		slog.Float64("edge_pct", alert.EdgePct),
	)
	for _, s := range d.sinks {
		s.OnArbitrage(ctx, alert)
	}
}

func (d *Detector) emitVolatility(ctx context.Context, alert domain.VolatilityAlert) {
	d.logger.InfoContext(ctx, "volatility detected",
		slog.String("token_id", alert.TokenID),
		slog.String("signal", string(alert.Signal)),
		slog.Float64("price_change_pct", alert.PriceChangePct),
		slog.Float64("volume_ratio", alert.VolumeRatio),
	)
	for _, s := range d.sinks {
		s.OnVolatility(ctx, alert)
	}
}
