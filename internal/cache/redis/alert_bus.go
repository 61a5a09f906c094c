package redis

import (
	"context"
	"encoding/json"
	"log/slog"

	"github.com/redis/go-redis/v9"

	"github.com/alanyoungcy/arbwatch/internal/domain"
)

// AlertBus publishes alert events as JSON to a single Redis Pub/Sub channel.
// Delivery is fire-and-forget: a publish failure is logged and dropped so the
// detection path never stalls on Redis.
type AlertBus struct {
	rdb     *redis.Client
	channel string
	logger  *slog.Logger
}

// NewAlertBus creates an AlertBus backed by the given Client that publishes
// to channel.
func NewAlertBus(c *Client, channel string, logger *slog.Logger) *AlertBus {
	return &AlertBus{
		rdb:     c.Underlying(),
		channel: channel,
		logger:  logger.With(slog.String("component", "alert_bus")),
	}
}

// busEnvelope is the wire format published to the channel. Event
// discriminates the payload type for consumers.
type busEnvelope struct {
	Event string `json:"event"`
	Alert any    `json:"alert"`
}

// OnArbitrage publishes an arbitrage alert.
func (b *AlertBus) OnArbitrage(ctx context.Context, alert domain.ArbitrageAlert) {
	b.publish(ctx, busEnvelope{Event: domain.EventArbitrage, Alert: alert})
}

// OnVolatility publishes a volatility alert.
func (b *AlertBus) OnVolatility(ctx context.Context, alert domain.VolatilityAlert) {
	b.publish(ctx, busEnvelope{Event: domain.EventVolatility, Alert: alert})
}

func (b *AlertBus) publish(ctx context.Context, env busEnvelope) {
	payload, err := json.Marshal(env)
	if err != nil {
		b.logger.ErrorContext(ctx, "marshal alert", slog.String("error", err.Error()))
		return
	}
	if err := b.rdb.Publish(ctx, b.channel, payload).Err(); err != nil {
		b.logger.ErrorContext(ctx, "publish alert",
			slog.String("channel", b.channel),
			slog.String("error", err.Error()),
		)
	}
}
