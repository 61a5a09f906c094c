// Package market holds the latest known top-of-book per venue per outcome.
// It is the single point of truth the detector reads from.
package market

import (
	"sync"

	"github.com/alanyoungcy/arbwatch/internal/domain"
)

// State stores the most recent snapshot for each outcome on each venue. Each
// venue has exactly one writer (its client loop) and any number of readers.
// Snapshots are replaced whole, never mutated field-by-field, so a reader can
// never observe a torn book. Last-observed-wins per outcome.
type State struct {
	kalshiMu sync.RWMutex
	kalshi   map[string]domain.TopOfBook // keyed by ticker

	polyMu sync.RWMutex
	poly   map[string]domain.TopOfBook // keyed by token id
}

// NewState creates an empty state.
func NewState() *State {
	return &State{
		kalshi: make(map[string]domain.TopOfBook),
		poly:   make(map[string]domain.TopOfBook),
	}
}

// SetKalshi replaces the Kalshi snapshot for the given ticker.
func (s *State) SetKalshi(ticker string, tob domain.TopOfBook) {
	s.kalshiMu.Lock()
	s.kalshi[ticker] = tob
	s.kalshiMu.Unlock()
}

// SetPolymarket replaces the Polymarket snapshot for the given token id.
func (s *State) SetPolymarket(tokenID string, tob domain.TopOfBook) {
	s.polyMu.Lock()
	s.poly[tokenID] = tob
	s.polyMu.Unlock()
}

// Kalshi returns the latest Kalshi snapshot for the ticker, if any.
func (s *State) Kalshi(ticker string) (domain.TopOfBook, bool) {
	s.kalshiMu.RLock()
	tob, ok := s.kalshi[ticker]
	s.kalshiMu.RUnlock()
	return tob, ok
}

// Polymarket returns the latest Polymarket snapshot for the token id, if any.
func (s *State) Polymarket(tokenID string) (domain.TopOfBook, bool) {
	s.polyMu.RLock()
	tob, ok := s.poly[tokenID]
	s.polyMu.RUnlock()
	return tob, ok
}

// Pair returns both venues' snapshots for a configured outcome pair. Each
// snapshot is a whole-value copy and therefore internally consistent; ok is
// false until both venues have reported at least once.
func (s *State) Pair(p domain.OutcomePair) (kalshi, poly domain.TopOfBook, ok bool) {
	kalshi, kOK := s.Kalshi(p.KalshiTicker)
	poly, pOK := s.Polymarket(p.PolymarketTokenID)
	return kalshi, poly, kOK && pOK
}
