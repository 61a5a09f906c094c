package app

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/alanyoungcy/arbwatch/internal/cache/redis"
	"github.com/alanyoungcy/arbwatch/internal/config"
	"github.com/alanyoungcy/arbwatch/internal/detector"
	"github.com/alanyoungcy/arbwatch/internal/domain"
	"github.com/alanyoungcy/arbwatch/internal/market"
	"github.com/alanyoungcy/arbwatch/internal/notify"
	"github.com/alanyoungcy/arbwatch/internal/platform/kalshi"
	"github.com/alanyoungcy/arbwatch/internal/platform/polymarket"
)

// Dependencies bundles everything the monitor loop needs to operate. It is
// constructed by Wire and torn down by the returned cleanup function.
type Dependencies struct {
	State    *market.State
	Pairs    []domain.OutcomePair
	Detector *detector.Detector
	Pollers  []*kalshi.Poller
	Stream   *polymarket.StreamClient
	Notifier *notify.Notifier
}

// Wire constructs all concrete dependencies from the given configuration and
// returns them together with a cleanup function that should be called on
// shutdown to release resources.
func Wire(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*Dependencies, func(), error) {
	var closers []func()
	cleanup := func() {
		for i := len(closers) - 1; i >= 0; i-- {
			closers[i]()
		}
	}

	// --- Outcome pairs, resolving slugs through the Gamma API ---
	gamma := polymarket.NewGammaClient(cfg.Polymarket.GammaHost)
	pairs, err := resolvePairs(ctx, gamma, cfg.Pairs, logger)
	if err != nil {
		cleanup()
		return nil, nil, err
	}

	// --- Alert sinks ---
	var senders []notify.Sender
	if cfg.Notify.TelegramToken != "" && cfg.Notify.TelegramChatID != "" {
		senders = append(senders, notify.NewTelegramSender(
			cfg.Notify.TelegramToken,
			cfg.Notify.TelegramChatID,
		))
	}
	if cfg.Notify.DiscordWebhookURL != "" {
		senders = append(senders, notify.NewDiscordSender(cfg.Notify.DiscordWebhookURL))
	}
	notifier := notify.NewNotifier(senders, cfg.Notify.Events, logger)

	sinks := []detector.Sink{notifier}
	if cfg.Redis.Addr != "" {
		redisClient, err := redis.New(ctx, redis.ClientConfig{
			Addr:       cfg.Redis.Addr,
			Password:   cfg.Redis.Password,
			DB:         cfg.Redis.DB,
			PoolSize:   cfg.Redis.PoolSize,
			MaxRetries: cfg.Redis.MaxRetries,
			TLSEnabled: cfg.Redis.TLSEnabled,
		})
		if err != nil {
			cleanup()
			return nil, nil, fmt.Errorf("wire: redis: %w", err)
		}
		closers = append(closers, func() { _ = redisClient.Close() })
		sinks = append(sinks, redis.NewAlertBus(redisClient, cfg.Redis.Channel, logger))
	}

	// --- Market state and detector ---
	state := market.NewState()
	det := detector.New(detector.Config{
		StalenessBound: cfg.Detector.StalenessBound.Duration,
		MinEdge:        cfg.Detector.MinEdge,
		Volatility: detector.VolatilityConfig{
			Window:           cfg.Detector.WindowLength.Duration,
			PriceThreshold:   cfg.Detector.PriceThreshold,
			VolumeMultiplier: cfg.Detector.VolumeMultiplier,
			BaselineHorizon:  cfg.Detector.BaselineHorizon.Duration,
		},
	}, state, pairs, sinks, logger)

	// --- Kalshi pollers, one per distinct ticker ---
	signer, err := kalshi.NewSignerFromFile(cfg.Kalshi.RsaPrivateKeyPath)
	if err != nil {
		cleanup()
		return nil, nil, fmt.Errorf("wire: kalshi signer: %w", err)
	}
	kalshiClient := kalshi.NewClient(cfg.Kalshi.BaseURL, cfg.Kalshi.ApiKey, signer)

	var pollers []*kalshi.Poller
	seen := make(map[string]bool, len(pairs))
	for _, p := range pairs {
		if seen[p.KalshiTicker] {
			continue
		}
		seen[p.KalshiTicker] = true

		poller, err := kalshi.NewPoller(kalshiClient, kalshi.PollerConfig{
			Ticker:         p.KalshiTicker,
			Interval:       cfg.Kalshi.PollInterval.Duration,
			RequestTimeout: cfg.Kalshi.RequestTimeout.Duration,
			Logger:         logger,
		}, det.OnKalshiBook)
		if err != nil {
			cleanup()
			return nil, nil, fmt.Errorf("wire: kalshi poller %s: %w", p.KalshiTicker, err)
		}
		pollers = append(pollers, poller)
	}

	// --- Polymarket stream over all subscribed tokens ---
	tokens := make([]string, 0, len(pairs))
	seenTok := make(map[string]bool, len(pairs))
	for _, p := range pairs {
		if !seenTok[p.PolymarketTokenID] {
			seenTok[p.PolymarketTokenID] = true
			tokens = append(tokens, p.PolymarketTokenID)
		}
	}
	stream, err := polymarket.NewStreamClient(polymarket.StreamConfig{
		URL:               cfg.Polymarket.WsHost,
		AssetIDs:          tokens,
		PingInterval:      cfg.Polymarket.PingInterval.Duration,
		PongTimeout:       cfg.Polymarket.PongTimeout.Duration,
		DialTimeout:       cfg.Polymarket.DialTimeout.Duration,
		InitialBackoff:    cfg.Polymarket.InitialBackoff.Duration,
		MaxBackoff:        cfg.Polymarket.MaxBackoff.Duration,
		BackoffResetAfter: cfg.Polymarket.BackoffResetAfter.Duration,
		Logger:            logger,
	}, det.OnPolymarketBook, det.OnTrade)
	if err != nil {
		cleanup()
		return nil, nil, fmt.Errorf("wire: polymarket stream: %w", err)
	}

	return &Dependencies{
		State:    state,
		Pairs:    pairs,
		Detector: det,
		Pollers:  pollers,
		Stream:   stream,
		Notifier: notifier,
	}, cleanup, nil
}

// resolvePairs converts configured pairs to domain pairs, resolving Gamma
// slugs to CLOB token ids where no token id was given explicitly.
func resolvePairs(ctx context.Context, gamma *polymarket.GammaClient, pairs []config.PairConfig, logger *slog.Logger) ([]domain.OutcomePair, error) {
	out := make([]domain.OutcomePair, 0, len(pairs))
	for _, p := range pairs {
		tokenID := p.PolymarketTokenID
		if tokenID == "" {
			resolved, err := gamma.ResolveTokenID(ctx, p.PolymarketSlug, p.PolymarketOutcome)
			if err != nil {
				return nil, fmt.Errorf("wire: resolve pair %s: %w", p.Name, err)
			}
			tokenID = resolved
			logger.InfoContext(ctx, "resolved polymarket token",
				slog.String("pair", p.Name),
				slog.String("slug", p.PolymarketSlug),
				slog.String("token_id", tokenID),
			)
		}
		out = append(out, domain.OutcomePair{
			Name:              p.Name,
			KalshiTicker:      p.KalshiTicker,
			PolymarketTokenID: tokenID,
		})
	}
	return out, nil
}
