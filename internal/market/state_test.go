package market

import (
	"sync"
	"testing"
	"time"

	"github.com/alanyoungcy/arbwatch/internal/domain"
)

func snapshot(bid, ask domain.Probability, at time.Time) domain.TopOfBook {
	return domain.TopOfBook{
		BestBid: bid, BestBidQty: 10, HasBid: true,
		BestAsk: ask, BestAskQty: 10, HasAsk: true,
		ObservedAt: at,
	}
}

func TestStateLastObservedWins(t *testing.T) {
	s := NewState()
	t0 := time.Now()

	s.SetKalshi("TICK", snapshot(0.40, 0.42, t0))
	s.SetKalshi("TICK", snapshot(0.45, 0.47, t0.Add(time.Second)))

	tob, ok := s.Kalshi("TICK")
	if !ok {
		t.Fatal("snapshot missing")
	}
	if tob.BestBid != 0.45 {
		t.Errorf("BestBid = %v, want 0.45 from latest write", tob.BestBid)
	}
}

func TestStateUnknownOutcome(t *testing.T) {
	s := NewState()
	if _, ok := s.Kalshi("NOPE"); ok {
		t.Error("Kalshi() ok = true for unknown ticker")
	}
	if _, ok := s.Polymarket("NOPE"); ok {
		t.Error("Polymarket() ok = true for unknown token")
	}
}

func TestStatePairRequiresBothVenues(t *testing.T) {
	s := NewState()
	pair := domain.OutcomePair{Name: "p", KalshiTicker: "TICK", PolymarketTokenID: "777"}
	t0 := time.Now()

	if _, _, ok := s.Pair(pair); ok {
		t.Error("Pair() ok = true with no snapshots")
	}

	s.SetKalshi("TICK", snapshot(0.40, 0.42, t0))
	if _, _, ok := s.Pair(pair); ok {
		t.Error("Pair() ok = true with one venue missing")
	}

	s.SetPolymarket("777", snapshot(0.44, 0.46, t0))
	k, p, ok := s.Pair(pair)
	if !ok {
		t.Fatal("Pair() ok = false with both snapshots present")
	}
	if k.BestBid != 0.40 || p.BestBid != 0.44 {
		t.Errorf("Pair() = %v/%v bids, want 0.40/0.44", k.BestBid, p.BestBid)
	}
}

func TestStateConcurrentAccess(t *testing.T) {
	s := NewState()
	t0 := time.Now()

	var wg sync.WaitGroup
	wg.Add(3)
	go func() {
		defer wg.Done()
		for i := 0; i < 1000; i++ {
			s.SetKalshi("TICK", snapshot(0.40, 0.42, t0))
		}
	}()
	go func() {
		defer wg.Done()
		for i := 0; i < 1000; i++ {
			s.SetPolymarket("777", snapshot(0.44, 0.46, t0))
		}
	}()
	go func() {
		defer wg.Done()
		pair := domain.OutcomePair{KalshiTicker: "TICK", PolymarketTokenID: "777"}
		for i := 0; i < 1000; i++ {
			k, p, ok := s.Pair(pair)
			if !ok {
				continue
			}
			// A whole-value snapshot can never be torn.
			if k.BestBid != 0.40 || k.BestAsk != 0.42 {
				t.Errorf("torn kalshi snapshot: %+v", k)
				return
			}
			if p.BestBid != 0.44 || p.BestAsk != 0.46 {
				t.Errorf("torn polymarket snapshot: %+v", p)
				return
			}
		}
	}()
	wg.Wait()
}
