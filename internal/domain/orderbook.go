package domain

import "time"

// Venue identifies one of the two monitored prediction-market venues.
type Venue string

const (
	VenueKalshi     Venue = "kalshi"
	VenuePolymarket Venue = "polymarket"
)

// OutcomePair associates one Kalshi market with one Polymarket outcome token
// that represent the same real-world event outcome. The association is always
// supplied by configuration; it is never inferred from prices.
type OutcomePair struct {
	Name              string
	KalshiTicker      string
	PolymarketTokenID string
}

// Ref returns the venue-native outcome identifier for the given venue.
func (p OutcomePair) Ref(v Venue) string {
	if v == VenueKalshi {
		return p.KalshiTicker
	}
	return p.PolymarketTokenID
}

// TopOfBook is the best bid/ask for one outcome on one venue, converted to
// canonical probabilities. A one-sided book is representable: HasBid/HasAsk
// distinguish "no orders on that side" from a zero price.
type TopOfBook struct {
	BestBid    Probability
	BestBidQty float64
	BestAsk    Probability
	BestAskQty float64
	HasBid     bool
	HasAsk     bool
	ObservedAt time.Time
}

// Crossed reports whether both sides are known and the bid exceeds the ask.
// A one-sided book is never crossed.
func (t TopOfBook) Crossed() bool {
	return t.HasBid && t.HasAsk && t.BestBid > t.BestAsk
}

// Age returns how long ago the book was observed.
func (t TopOfBook) Age(now time.Time) time.Duration {
	return now.Sub(t.ObservedAt)
}

// TradeSide is the aggressor side of an executed trade.
type TradeSide string

const (
	TradeSideBuy  TradeSide = "BUY"
	TradeSideSell TradeSide = "SELL"
)

// Trade is a single executed trade on the streamed venue, used only as input
// to the volatility window.
type Trade struct {
	TokenID    string
	Price      Probability
	Size       float64
	Side       TradeSide
	OccurredAt time.Time
}
