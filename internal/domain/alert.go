package domain

import (
	"fmt"
	"time"
)

// Alert event types, used by the notifier filter and the alert bus.
const (
	EventArbitrage  = "arbitrage"
	EventVolatility = "volatility"
)

// ArbitrageAlert describes a cross-venue opportunity: buying the outcome on
// BuyVenue and selling it on SellVenue yields Edge per contract. Ephemeral --
// produced, emitted, and discarded.
type ArbitrageAlert struct {
	ID         string      `json:"id"`
	Outcome    string      `json:"outcome"`
	BuyVenue   Venue       `json:"buy_venue"`
	SellVenue  Venue       `json:"sell_venue"`
	BuyPrice   Probability `json:"buy_price"`
	SellPrice  Probability `json:"sell_price"`
	EdgePct    float64     `json:"edge_pct"` // edge as a percentage of the buy price
	DetectedAt time.Time   `json:"detected_at"`
}

// Summary renders the alert as a one-line human-readable message.
func (a ArbitrageAlert) Summary() string {
	return fmt.Sprintf("buy %s @ %.4f, sell %s @ %.4f, edge %.2f%%",
		a.BuyVenue, float64(a.BuyPrice), a.SellVenue, float64(a.SellPrice), a.EdgePct)
}

// VolatilitySignal classifies what tripped a volatility alert.
type VolatilitySignal string

const (
	VolatilityPriceSpike  VolatilitySignal = "price_spike"
	VolatilityVolumeSpike VolatilitySignal = "volume_spike"
	VolatilityCombined    VolatilitySignal = "combined"
)

// VolatilityAlert describes a price or volume spike inside the rolling trade
// window for one streamed-venue outcome.
type VolatilityAlert struct {
	ID             string           `json:"id"`
	TokenID        string           `json:"token_id"`
	Signal         VolatilitySignal `json:"signal"`
	PriceChangePct float64          `json:"price_change_pct,omitempty"`
	VolumeRatio    float64          `json:"volume_ratio,omitempty"`
	WindowVolume   float64          `json:"window_volume"`
	DetectedAt     time.Time        `json:"detected_at"`
}

// Summary renders the alert as a one-line human-readable message.
func (v VolatilityAlert) Summary() string {
	switch v.Signal {
	case VolatilityPriceSpike:
		return fmt.Sprintf("price spike %.2f%% in window", v.PriceChangePct)
	case VolatilityVolumeSpike:
		return fmt.Sprintf("volume spike %.1fx baseline", v.VolumeRatio)
	default:
		return fmt.Sprintf("price spike %.2f%% and volume spike %.1fx baseline",
			v.PriceChangePct, v.VolumeRatio)
	}
}
