// Package notify delivers alert notifications to operator channels. Alerts
// are dispatched to all registered senders (Telegram, Discord, etc.) and can
// be filtered by event type so operators receive only the alerts they care
// about.
package notify

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/alanyoungcy/arbwatch/internal/domain"
)

// Sender is the interface that each notification channel must implement.
type Sender interface {
	// Send delivers a notification with the given title and message body.
	Send(ctx context.Context, title, message string) error
	// Name returns a human-readable identifier for the sender (e.g. "telegram").
	Name() string
}

// Notifier fans alerts out to one or more Senders. It maintains a set of
// allowed event types; alerts of other types are dropped. Sender failures are
// logged and never propagate back to the detection path.
type Notifier struct {
	senders []Sender
	events  map[string]bool // allowed event types
	logger  *slog.Logger
}

// NewNotifier creates a Notifier that will deliver to the given senders. Only
// alerts whose event type appears in the events slice are forwarded. If
// events is empty, all event types are allowed.
func NewNotifier(senders []Sender, events []string, logger *slog.Logger) *Notifier {
	allowed := make(map[string]bool, len(events))
	for _, e := range events {
		allowed[strings.TrimSpace(e)] = true
	}
	return &Notifier{
		senders: senders,
		events:  allowed,
		logger:  logger.With(slog.String("component", "notifier")),
	}
}

// OnArbitrage delivers an arbitrage alert to every configured channel.
func (n *Notifier) OnArbitrage(ctx context.Context, alert domain.ArbitrageAlert) {
	if !n.allowed(ctx, domain.EventArbitrage) {
		return
	}
	title := fmt.Sprintf("Arbitrage: %s", alert.Outcome)
	n.dispatch(ctx, title, alert.Summary())
}

// OnVolatility delivers a volatility alert to every configured channel.
func (n *Notifier) OnVolatility(ctx context.Context, alert domain.VolatilityAlert) {
	if !n.allowed(ctx, domain.EventVolatility) {
		return
	}
	title := fmt.Sprintf("Volatility: %s", alert.TokenID)
	n.dispatch(ctx, title, alert.Summary())
}

func (n *Notifier) allowed(ctx context.Context, event string) bool {
	if len(n.events) > 0 && !n.events[event] {
		n.logger.DebugContext(ctx, "event filtered out",
			slog.String("event", event),
		)
		return false
	}
	return true
}

// dispatch iterates over all senders. A single sender failure does not
// prevent delivery to the remaining senders.
func (n *Notifier) dispatch(ctx context.Context, title, message string) {
	for _, s := range n.senders {
		if err := s.Send(ctx, title, message); err != nil {
			n.logger.ErrorContext(ctx, "sender failed",
				slog.String("sender", s.Name()),
				slog.String("error", err.Error()),
			)
			continue
		}
		n.logger.DebugContext(ctx, "notification sent",
			slog.String("sender", s.Name()),
			slog.String("title", title),
		)
	}
}
