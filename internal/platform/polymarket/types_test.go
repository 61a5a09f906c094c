package polymarket

import (
	"testing"
	"time"

	"github.com/alanyoungcy/arbwatch/internal/domain"
)

func TestBookMessageTopOfBookScansUnsorted(t *testing.T) {
	now := time.Now()
	msg := BookMessage{
		AssetID: "7131",
		Bids: []WSLevel{
			{Price: "0.48", Size: "100"},
			{Price: "0.52", Size: "60"},
			{Price: "0.50", Size: "30"},
		},
		Asks: []WSLevel{
			{Price: "0.58", Size: "40"},
			{Price: "0.55", Size: "80"},
		},
	}

	tob := msg.TopOfBook(now)
	if tob.BestBid != 0.52 || tob.BestBidQty != 60 {
		t.Errorf("bid = %v qty %v, want 0.52 qty 60", tob.BestBid, tob.BestBidQty)
	}
	if tob.BestAsk != 0.55 || tob.BestAskQty != 80 {
		t.Errorf("ask = %v qty %v, want 0.55 qty 80", tob.BestAsk, tob.BestAskQty)
	}
}

func TestBookMessageTopOfBookSkipsBadLevels(t *testing.T) {
	msg := BookMessage{
		Bids: []WSLevel{
			{Price: "garbage", Size: "100"},
			{Price: "0.40", Size: "10"},
		},
	}
	tob := msg.TopOfBook(time.Now())
	if !tob.HasBid || tob.BestBid != 0.40 {
		t.Errorf("bid = %v has %v, want 0.40 from the parseable level", tob.BestBid, tob.HasBid)
	}
	if tob.HasAsk {
		t.Error("HasAsk = true for empty ask side")
	}
}

func TestTradeMessageConversion(t *testing.T) {
	received := time.Now()
	tm := TradeMessage{
		AssetID:   "7131",
		Price:     "0.47",
		Size:      "12.5",
		Side:      "sell",
		Timestamp: "1772366400000",
	}

	trade, err := tm.Trade(received)
	if err != nil {
		t.Fatalf("Trade() error = %v", err)
	}
	if trade.TokenID != "7131" || trade.Price != 0.47 || trade.Size != 12.5 {
		t.Errorf("trade = %+v", trade)
	}
	if trade.Side != domain.TradeSideSell {
		t.Errorf("Side = %s, want SELL", trade.Side)
	}
	if !trade.OccurredAt.Equal(time.UnixMilli(1772366400000)) {
		t.Errorf("OccurredAt = %v", trade.OccurredAt)
	}
}

func TestTradeMessageTimestampFallback(t *testing.T) {
	received := time.Now()
	tm := TradeMessage{AssetID: "7131", Price: "0.47", Size: "1", Timestamp: "soon"}

	trade, err := tm.Trade(received)
	if err != nil {
		t.Fatalf("Trade() error = %v", err)
	}
	if !trade.OccurredAt.Equal(received) {
		t.Errorf("OccurredAt = %v, want receive time fallback", trade.OccurredAt)
	}
	if trade.Side != domain.TradeSideBuy {
		t.Errorf("Side = %s, want BUY default", trade.Side)
	}
}

func TestTradeMessageRejectsBadNumbers(t *testing.T) {
	tests := []TradeMessage{
		{Price: "banana", Size: "1"},
		{Price: "0.5", Size: "lots"},
	}
	for _, tm := range tests {
		if _, err := tm.Trade(time.Now()); err == nil {
			t.Errorf("Trade(%+v) error = nil", tm)
		}
	}
}
