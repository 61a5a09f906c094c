package detector

import (
	"math"
	"time"

	"github.com/google/uuid"

	"github.com/alanyoungcy/arbwatch/internal/domain"
)

// tradeWindow holds the rolling trade window for one token plus the trailing
// window-volume observations the volume baseline is averaged over. Old
// entries are evicted from the front on every insert, so each trade is
// appended and removed exactly once.
type tradeWindow struct {
	trades []domain.Trade
	volume float64 // running sum of trade sizes inside the window

	samples []volumeSample
}

type volumeSample struct {
	at     time.Time
	volume float64
}

// evaluateTrade inserts the trade into its token's window, evicts trades and
// baseline samples that have aged out, and checks both spike conditions,
// returning the alert (if any) for delivery once the evaluation lock is
// released. The observed window volume is folded into the baseline only after
// the check so a spike cannot mask itself.
func (d *Detector) evaluateTrade(trade domain.Trade) (domain.VolatilityAlert, bool) {
	w := d.windows[trade.TokenID]
	if w == nil {
		w = &tradeWindow{}
		d.windows[trade.TokenID] = w
	}

	now := trade.OccurredAt
	w.trades = append(w.trades, trade)
	w.volume += trade.Size

	cutoff := now.Add(-d.cfg.Volatility.Window)
	i := 0
	for i < len(w.trades) && w.trades[i].OccurredAt.Before(cutoff) {
		w.volume -= w.trades[i].Size
		i++
	}
	w.trades = w.trades[i:]

	horizon := now.Add(-d.cfg.Volatility.BaselineHorizon)
	j := 0
	for j < len(w.samples) && w.samples[j].at.Before(horizon) {
		j++
	}
	w.samples = w.samples[j:]

	priceChange := w.priceChange()
	priceSpike := priceChange > d.cfg.Volatility.PriceThreshold

	baseline := w.baseline()
	volumeRatio := 0.0
	if baseline > 0 {
		volumeRatio = w.volume / baseline
	}
	volumeSpike := baseline > 0 && w.volume > d.cfg.Volatility.VolumeMultiplier*baseline

	w.samples = append(w.samples, volumeSample{at: now, volume: w.volume})

	if !priceSpike && !volumeSpike {
		return domain.VolatilityAlert{}, false
	}

	signal := domain.VolatilityPriceSpike
	switch {
	case priceSpike && volumeSpike:
		signal = domain.VolatilityCombined
	case volumeSpike:
		signal = domain.VolatilityVolumeSpike
	}

	return domain.VolatilityAlert{
		ID:             uuid.NewString(),
		TokenID:        trade.TokenID,
		Signal:         signal,
		PriceChangePct: priceChange * 100,
		VolumeRatio:    volumeRatio,
		WindowVolume:   w.volume,
		DetectedAt:     now,
	}, true
}

// priceChange is the fractional move between the oldest and newest trade
// still inside the window. Zero with fewer than two trades.
func (w *tradeWindow) priceChange() float64 {
	if len(w.trades) < 2 {
		return 0
	}
	oldest := float64(w.trades[0].Price)
	newest := float64(w.trades[len(w.trades)-1].Price)
	if oldest <= 0 {
		return 0
	}
	return math.Abs(newest-oldest) / oldest
}

// baseline is the average of the retained trailing window-volume samples.
// Zero until at least one sample exists, which suppresses volume spikes for
// the first trade of a token.
func (w *tradeWindow) baseline() float64 {
	if len(w.samples) == 0 {
		return 0
	}
	var sum float64
	for _, s := range w.samples {
		sum += s.volume
	}
	return sum / float64(len(w.samples))
}
