package polymarket

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/alanyoungcy/arbwatch/internal/domain"
)

// --------------------------------------------------------------------------
// WebSocket subscription commands
// --------------------------------------------------------------------------

// SubscribeCommand is the JSON payload sent on connect to subscribe to the
// public market channel for a set of outcome tokens.
type SubscribeCommand struct {
	Auth     struct{} `json:"auth"`
	AssetIDs []string `json:"assets_ids"`
	Type     string   `json:"type"` // always "MARKET"
}

// PingMessage is the application-level heartbeat. The CLOB feed answers with
// a "pong" message rather than a transport-level pong frame.
type PingMessage struct {
	Type string `json:"type"` // "ping"
}

// --------------------------------------------------------------------------
// Inbound WebSocket DTOs
// --------------------------------------------------------------------------

// Envelope carries the type discriminator of an inbound frame. The feed uses
// "event_type" on data messages and "type" on control messages.
type Envelope struct {
	EventType string `json:"event_type"`
	Type      string `json:"type"`
}

// Kind returns whichever discriminator field is set.
func (e Envelope) Kind() string {
	if e.EventType != "" {
		return e.EventType
	}
	return e.Type
}

// WSLevel is a single bid/ask level. Prices and sizes arrive as decimal
// strings.
type WSLevel struct {
	Price string `json:"price"`
	Size  string `json:"size"`
}

// BookMessage is a full orderbook snapshot for one outcome token.
type BookMessage struct {
	AssetID   string    `json:"asset_id"`
	Market    string    `json:"market"`
	Bids      []WSLevel `json:"bids"`
	Asks      []WSLevel `json:"asks"`
	Timestamp string    `json:"timestamp"`
	Hash      string    `json:"hash"`
}

// TradeMessage is a single executed trade on the market channel.
type TradeMessage struct {
	AssetID   string `json:"asset_id"`
	Price     string `json:"price"`
	Size      string `json:"size"`
	Side      string `json:"side"`
	Timestamp string `json:"timestamp"`
}

// --------------------------------------------------------------------------
// Conversion helpers
// --------------------------------------------------------------------------

// TopOfBook reduces a book snapshot to the best bid/ask in canonical
// probabilities. Levels are scanned rather than trusted to arrive sorted; the
// feed has historically delivered both orderings. Unparseable levels are
// skipped.
func (b *BookMessage) TopOfBook(observedAt time.Time) domain.TopOfBook {
	tob := domain.TopOfBook{ObservedAt: observedAt}

	for _, lvl := range b.Bids {
		price, size, err := parseLevel(lvl)
		if err != nil {
			continue
		}
		if !tob.HasBid || price > tob.BestBid {
			tob.BestBid = price
			tob.BestBidQty = size
			tob.HasBid = true
		}
	}

	for _, lvl := range b.Asks {
		price, size, err := parseLevel(lvl)
		if err != nil {
			continue
		}
		if !tob.HasAsk || price < tob.BestAsk {
			tob.BestAsk = price
			tob.BestAskQty = size
			tob.HasAsk = true
		}
	}

	return tob
}

// Trade converts the wire message to a domain trade. The wire timestamp is
// unix milliseconds as a string; when absent or malformed the receive time is
// used instead.
func (t *TradeMessage) Trade(receivedAt time.Time) (domain.Trade, error) {
	price, err := strconv.ParseFloat(t.Price, 64)
	if err != nil {
		return domain.Trade{}, fmt.Errorf("polymarket: trade price %q: %w", t.Price, domain.ErrProtocol)
	}
	size, err := strconv.ParseFloat(t.Size, 64)
	if err != nil {
		return domain.Trade{}, fmt.Errorf("polymarket: trade size %q: %w", t.Size, domain.ErrProtocol)
	}

	occurredAt := receivedAt
	if ms, err := strconv.ParseInt(t.Timestamp, 10, 64); err == nil && ms > 0 {
		occurredAt = time.UnixMilli(ms)
	}

	side := domain.TradeSideBuy
	if strings.EqualFold(t.Side, "SELL") {
		side = domain.TradeSideSell
	}

	return domain.Trade{
		TokenID:    t.AssetID,
		Price:      domain.Probability(price),
		Size:       size,
		Side:       side,
		OccurredAt: occurredAt,
	}, nil
}

func parseLevel(lvl WSLevel) (domain.Probability, float64, error) {
	price, err := strconv.ParseFloat(lvl.Price, 64)
	if err != nil {
		return 0, 0, fmt.Errorf("polymarket: level price %q: %w", lvl.Price, domain.ErrProtocol)
	}
	size, err := strconv.ParseFloat(lvl.Size, 64)
	if err != nil {
		return 0, 0, fmt.Errorf("polymarket: level size %q: %w", lvl.Size, domain.ErrProtocol)
	}
	return domain.Probability(price), size, nil
}
