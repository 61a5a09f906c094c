package kalshi

import (
	"encoding/json"
	"time"

	"github.com/alanyoungcy/arbwatch/internal/domain"
)

// --------------------------------------------------------------------------
// Kalshi API DTOs
// --------------------------------------------------------------------------

// Market is the subset of the Kalshi market object the monitor reads. Kalshi
// quotes binary markets in integer cents (0-100) on the YES side.
type Market struct {
	Ticker       string `json:"ticker"`
	EventTicker  string `json:"event_ticker"`
	Title        string `json:"title"`
	Status       string `json:"status"` // "open", "closed", "settled"
	YesBid       int64  `json:"yes_bid"`
	YesAsk       int64  `json:"yes_ask"`
	NoBid        int64  `json:"no_bid"`
	NoAsk        int64  `json:"no_ask"`
	LastPrice    int64  `json:"last_price"`
	Volume24H    int64  `json:"volume_24h"`
	OpenInterest int64  `json:"open_interest"`
}

// Orderbook is the raw Kalshi orderbook: resting YES bids and NO bids as
// [price_cents, contracts] levels. There is no ask side on the wire; a YES ask
// at price p is a NO bid at 100-p.
type Orderbook struct {
	Ticker string       `json:"-"`
	Yes    []PriceLevel `json:"yes"`
	No     []PriceLevel `json:"no"`
}

// PriceLevel is a single [price, quantity] pair in the Kalshi orderbook.
// Kalshi encodes levels as two-element JSON arrays.
type PriceLevel struct {
	Price    int64
	Quantity int64
}

// UnmarshalJSON decodes the [price, quantity] array form.
func (l *PriceLevel) UnmarshalJSON(data []byte) error {
	var pair [2]int64
	if err := json.Unmarshal(data, &pair); err != nil {
		return err
	}
	l.Price = pair[0]
	l.Quantity = pair[1]
	return nil
}

// ErrorResponse is the Kalshi API error body.
type ErrorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// --------------------------------------------------------------------------
// Conversion helpers
// --------------------------------------------------------------------------

// TopOfBook reduces the raw orderbook to the best YES bid/ask in canonical
// probabilities. The best YES bid is the highest-priced YES level; the best
// YES ask is derived from the highest-priced NO level as 100 - no_price. A
// side with no levels is reported as absent, never as price zero.
func (o Orderbook) TopOfBook(observedAt time.Time) domain.TopOfBook {
	tob := domain.TopOfBook{ObservedAt: observedAt}

	for _, lvl := range o.Yes {
		if !tob.HasBid || domain.ProbabilityFromCents(lvl.Price) > tob.BestBid {
			tob.BestBid = domain.ProbabilityFromCents(lvl.Price)
			tob.BestBidQty = float64(lvl.Quantity)
			tob.HasBid = true
		}
	}

	for _, lvl := range o.No {
		ask := domain.ProbabilityFromCents(100 - lvl.Price)
		if !tob.HasAsk || ask < tob.BestAsk {
			tob.BestAsk = ask
			tob.BestAskQty = float64(lvl.Quantity)
			tob.HasAsk = true
		}
	}

	return tob
}

// TopOfBook converts the market-level yes_bid/yes_ask quote to a canonical
// top-of-book. Used as a fallback when the orderbook endpoint returns an
// empty book. Kalshi reports 0 for a missing quote side.
func (m Market) TopOfBook(observedAt time.Time) domain.TopOfBook {
	tob := domain.TopOfBook{ObservedAt: observedAt}
	if m.YesBid > 0 {
		tob.BestBid = domain.ProbabilityFromCents(m.YesBid)
		tob.HasBid = true
	}
	if m.YesAsk > 0 {
		tob.BestAsk = domain.ProbabilityFromCents(m.YesAsk)
		tob.HasAsk = true
	}
	return tob
}
