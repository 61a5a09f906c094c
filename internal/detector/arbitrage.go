package detector

import (
	"context"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/alanyoungcy/arbwatch/internal/domain"
)

// evaluatePair checks both buy/sell directions for one configured outcome
// pair and returns the alerts that fired, for delivery once the evaluation
// lock is released. Both snapshots must exist and be younger than the
// staleness bound; otherwise the evaluation is skipped silently (staleness is
// a normal condition during reconnects, not an error).
func (d *Detector) evaluatePair(ctx context.Context, p domain.OutcomePair) []domain.ArbitrageAlert {
	kalshi, poly, ok := d.state.Pair(p)
	if !ok {
		return nil
	}

	now := d.now()
	if kalshi.Age(now) > d.cfg.StalenessBound || poly.Age(now) > d.cfg.StalenessBound {
		d.logger.DebugContext(ctx, "pair skipped, stale snapshot",
			slog.String("outcome", p.Name),
			slog.Duration("kalshi_age", kalshi.Age(now)),
			slog.Duration("polymarket_age", poly.Age(now)),
		)
		return nil
	}

	var alerts []domain.ArbitrageAlert
	if a, ok := d.checkDirection(p, domain.VenueKalshi, kalshi, domain.VenuePolymarket, poly, now); ok {
		alerts = append(alerts, a)
	}
	if a, ok := d.checkDirection(p, domain.VenuePolymarket, poly, domain.VenueKalshi, kalshi, now); ok {
		alerts = append(alerts, a)
	}
	return alerts
}

// checkDirection evaluates buying on buyVenue at its ask and selling on
// sellVenue at its bid. The edge is sellBid - buyAsk in probability units;
// an alert fires when the edge survives the configured minimum.
func (d *Detector) checkDirection(p domain.OutcomePair,
	buyVenue domain.Venue, buyBook domain.TopOfBook,
	sellVenue domain.Venue, sellBook domain.TopOfBook,
	now time.Time,
) (domain.ArbitrageAlert, bool) {
	if !buyBook.HasAsk || !sellBook.HasBid {
		return domain.ArbitrageAlert{}, false
	}

	buy := buyBook.BestAsk
	sell := sellBook.BestBid
	edge := float64(sell - buy)
	if edge <= d.cfg.MinEdge || buy <= 0 {
		return domain.ArbitrageAlert{}, false
	}

	return domain.ArbitrageAlert{
		ID:         uuid.NewString(),
		Outcome:    p.Name,
		BuyVenue:   buyVenue,
		SellVenue:  sellVenue,
		BuyPrice:   buy,
		SellPrice:  sell,
		EdgePct:    edge / float64(buy) * 100,
		DetectedAt: now,
	}, true
}
