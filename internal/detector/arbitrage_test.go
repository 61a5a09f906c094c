package detector

import (
	"context"
	"io"
	"log/slog"
	"math"
	"sync"
	"testing"
	"time"

	"github.com/alanyoungcy/arbwatch/internal/domain"
	"github.com/alanyoungcy/arbwatch/internal/market"
)

type captureSink struct {
	arb []domain.ArbitrageAlert
	vol []domain.VolatilityAlert
}

func (c *captureSink) OnArbitrage(_ context.Context, a domain.ArbitrageAlert) {
	c.arb = append(c.arb, a)
}

func (c *captureSink) OnVolatility(_ context.Context, v domain.VolatilityAlert) {
	c.vol = append(c.vol, v)
}

var testPair = domain.OutcomePair{
	Name:              "fed-cut-march",
	KalshiTicker:      "FED-24MAR-CUT",
	PolymarketTokenID: "7131",
}

func newTestDetector(t *testing.T, cfg Config, at time.Time) (*Detector, *captureSink) {
	t.Helper()
	sink := &captureSink{}
	d := New(cfg, market.NewState(), []domain.OutcomePair{testPair}, []Sink{sink},
		slog.New(slog.NewTextHandler(io.Discard, nil)))
	d.now = func() time.Time { return at }
	return d, sink
}

func book(bid, ask domain.Probability, at time.Time) domain.TopOfBook {
	tob := domain.TopOfBook{ObservedAt: at}
	if bid > 0 {
		tob.BestBid, tob.BestBidQty, tob.HasBid = bid, 100, true
	}
	if ask > 0 {
		tob.BestAsk, tob.BestAskQty, tob.HasAsk = ask, 100, true
	}
	return tob
}

func TestArbitrageEdgeBuyKalshiSellPolymarket(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	d, sink := newTestDetector(t, Config{}, now)

	d.OnPolymarketBook(testPair.PolymarketTokenID, book(0.65, 0.67, now))
	d.OnKalshiBook(testPair.KalshiTicker, book(0.58, 0.60, now))

	if len(sink.arb) != 1 {
		t.Fatalf("got %d alerts, want 1", len(sink.arb))
	}
	a := sink.arb[0]
	if a.BuyVenue != domain.VenueKalshi || a.SellVenue != domain.VenuePolymarket {
		t.Errorf("direction = buy %s sell %s, want buy kalshi sell polymarket", a.BuyVenue, a.SellVenue)
	}
	if a.BuyPrice != 0.60 || a.SellPrice != 0.65 {
		t.Errorf("prices = %.2f/%.2f, want 0.60/0.65", float64(a.BuyPrice), float64(a.SellPrice))
	}
	wantPct := 0.05 / 0.60 * 100
	if math.Abs(a.EdgePct-wantPct) > 1e-9 {
		t.Errorf("EdgePct = %.4f, want %.4f", a.EdgePct, wantPct)
	}
	if a.ID == "" {
		t.Error("alert ID is empty")
	}
}

func TestArbitrageEdgeOppositeDirection(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	d, sink := newTestDetector(t, Config{}, now)

	d.OnPolymarketBook(testPair.PolymarketTokenID, book(0.58, 0.60, now))
	d.OnKalshiBook(testPair.KalshiTicker, book(0.65, 0.67, now))

	if len(sink.arb) != 1 {
		t.Fatalf("got %d alerts, want 1", len(sink.arb))
	}
	a := sink.arb[0]
	if a.BuyVenue != domain.VenuePolymarket || a.SellVenue != domain.VenueKalshi {
		t.Errorf("direction = buy %s sell %s, want buy polymarket sell kalshi", a.BuyVenue, a.SellVenue)
	}
	wantPct := 0.05 / 0.60 * 100
	if math.Abs(a.EdgePct-wantPct) > 1e-9 {
		t.Errorf("EdgePct = %.4f, want %.4f", a.EdgePct, wantPct)
	}
}

func TestArbitrageMinEdgeSuppression(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	d, sink := newTestDetector(t, Config{MinEdge: 0.05}, now)

	// Raw edge is exactly 0.05, not strictly above the minimum.
	d.OnPolymarketBook(testPair.PolymarketTokenID, book(0.65, 0.67, now))
	d.OnKalshiBook(testPair.KalshiTicker, book(0.58, 0.60, now))

	if len(sink.arb) != 0 {
		t.Fatalf("got %d alerts, want 0", len(sink.arb))
	}
}

func TestArbitrageAlignedBooksNoAlert(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	d, sink := newTestDetector(t, Config{}, now)

	d.OnPolymarketBook(testPair.PolymarketTokenID, book(0.59, 0.61, now))
	d.OnKalshiBook(testPair.KalshiTicker, book(0.59, 0.61, now))

	if len(sink.arb) != 0 {
		t.Fatalf("got %d alerts, want 0", len(sink.arb))
	}
}

func TestArbitrageStaleSnapshotSuppressed(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	d, sink := newTestDetector(t, Config{StalenessBound: 5 * time.Second}, now)

	d.OnPolymarketBook(testPair.PolymarketTokenID, book(0.65, 0.67, now.Add(-10*time.Second)))
	d.OnKalshiBook(testPair.KalshiTicker, book(0.58, 0.60, now))

	if len(sink.arb) != 0 {
		t.Fatalf("got %d alerts with stale counterpart, want 0", len(sink.arb))
	}

	// A fresh counterpart revives detection.
	d.OnPolymarketBook(testPair.PolymarketTokenID, book(0.65, 0.67, now))
	if len(sink.arb) != 1 {
		t.Fatalf("got %d alerts after refresh, want 1", len(sink.arb))
	}
}

func TestArbitrageOneSidedBookSuppressed(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	d, sink := newTestDetector(t, Config{}, now)

	// Kalshi has no ask, so the profitable direction cannot be priced.
	d.OnPolymarketBook(testPair.PolymarketTokenID, book(0.65, 0.67, now))
	d.OnKalshiBook(testPair.KalshiTicker, book(0.58, 0, now))

	if len(sink.arb) != 0 {
		t.Fatalf("got %d alerts, want 0", len(sink.arb))
	}
}

func TestArbitrageMissingCounterpartSuppressed(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	d, sink := newTestDetector(t, Config{}, now)

	d.OnKalshiBook(testPair.KalshiTicker, book(0.58, 0.60, now))

	if len(sink.arb) != 0 {
		t.Fatalf("got %d alerts before both venues reported, want 0", len(sink.arb))
	}
}

// gateSink parks inside alert delivery until released, standing in for a slow
// notification channel.
type gateSink struct {
	entered chan struct{}
	release chan struct{}
	once    sync.Once
}

func (g *gateSink) OnArbitrage(context.Context, domain.ArbitrageAlert) {
	g.once.Do(func() { close(g.entered) })
	<-g.release
}

func (g *gateSink) OnVolatility(context.Context, domain.VolatilityAlert) {}

func TestSlowSinkDoesNotBlockOtherVenueCallbacks(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	gate := &gateSink{entered: make(chan struct{}), release: make(chan struct{})}
	defer close(gate.release)

	d := New(Config{}, market.NewState(), []domain.OutcomePair{testPair}, []Sink{gate},
		slog.New(slog.NewTextHandler(io.Discard, nil)))
	d.now = func() time.Time { return now }

	d.OnPolymarketBook(testPair.PolymarketTokenID, book(0.65, 0.67, now))
	go d.OnKalshiBook(testPair.KalshiTicker, book(0.58, 0.60, now))
	<-gate.entered

	// With delivery stalled, trade handling on an unrelated token must still
	// get through.
	done := make(chan struct{})
	go func() {
		d.OnTrade(trade("9942", 0.50, 5, now))
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("trade handling stalled behind alert delivery")
	}
}
