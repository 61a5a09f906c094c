// Package config defines the top-level configuration for the monitor and
// provides validation helpers.
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/alanyoungcy/arbwatch/internal/domain"
)

// Config is the root configuration structure. Fields are populated from a TOML
// file and then optionally overridden by ARBWATCH_* environment variables.
type Config struct {
	Kalshi     KalshiConfig     `toml:"kalshi"`
	Polymarket PolymarketConfig `toml:"polymarket"`
	Detector   DetectorConfig   `toml:"detector"`
	Redis      RedisConfig      `toml:"redis"`
	Notify     NotifyConfig     `toml:"notify"`
	Pairs      []PairConfig     `toml:"pairs"`
	LogLevel   string           `toml:"log_level"`
}

// KalshiConfig holds Kalshi API credentials and polling parameters.
type KalshiConfig struct {
	ApiKey            string   `toml:"api_key"`
	RsaPrivateKeyPath string   `toml:"rsa_private_key_path"`
	BaseURL           string   `toml:"base_url"`
	PollInterval      duration `toml:"poll_interval"`
	RequestTimeout    duration `toml:"request_timeout"`
}

// PolymarketConfig holds Polymarket API endpoints and stream parameters. The
// market channel is public, so no credentials are needed.
type PolymarketConfig struct {
	GammaHost         string   `toml:"gamma_host"`
	WsHost            string   `toml:"ws_host"`
	PingInterval      duration `toml:"ping_interval"`
	PongTimeout       duration `toml:"pong_timeout"`
	DialTimeout       duration `toml:"dial_timeout"`
	InitialBackoff    duration `toml:"initial_backoff"`
	MaxBackoff        duration `toml:"max_backoff"`
	BackoffResetAfter duration `toml:"backoff_reset_after"`
}

// DetectorConfig holds the arbitrage and volatility thresholds.
type DetectorConfig struct {
	StalenessBound   duration `toml:"staleness_bound"`
	MinEdge          float64  `toml:"min_edge"`
	WindowLength     duration `toml:"window_length"`
	PriceThreshold   float64  `toml:"price_threshold"`
	VolumeMultiplier float64  `toml:"volume_multiplier"`
	BaselineHorizon  duration `toml:"baseline_horizon"`
}

// RedisConfig holds Redis connection parameters for the alert bus. The bus is
// optional; an empty addr disables it.
type RedisConfig struct {
	Addr       string `toml:"addr"`
	Password   string `toml:"password"`
	DB         int    `toml:"db"`
	PoolSize   int    `toml:"pool_size"`
	MaxRetries int    `toml:"max_retries"`
	TLSEnabled bool   `toml:"tls_enabled"`
	Channel    string `toml:"channel"`
}

// NotifyConfig holds notification channel credentials and the event filter.
type NotifyConfig struct {
	TelegramToken     string   `toml:"telegram_token"`
	TelegramChatID    string   `toml:"telegram_chat_id"`
	DiscordWebhookURL string   `toml:"discord_webhook_url"`
	Events            []string `toml:"events"`
}

// PairConfig declares one monitored outcome: the Kalshi market and the
// Polymarket outcome token that track the same real-world event. Either
// polymarket_token_id or polymarket_slug must be set; a slug is resolved to a
// token id through the Gamma API at startup, with polymarket_outcome picking
// the outcome by name.
type PairConfig struct {
	Name              string `toml:"name"`
	KalshiTicker      string `toml:"kalshi_ticker"`
	PolymarketTokenID string `toml:"polymarket_token_id"`
	PolymarketSlug    string `toml:"polymarket_slug"`
	PolymarketOutcome string `toml:"polymarket_outcome"`
}

// duration is a wrapper around time.Duration that supports TOML string
// decoding (e.g. "5m", "30s").
type duration struct {
	time.Duration
}

// UnmarshalText implements encoding.TextUnmarshaler so the TOML decoder can
// parse duration strings like "5m" or "30s".
func (d *duration) UnmarshalText(text []byte) error {
	var err error
	d.Duration, err = time.ParseDuration(string(text))
	return err
}

// MarshalText implements encoding.TextMarshaler for round-trip encoding.
func (d duration) MarshalText() ([]byte, error) {
	return []byte(d.Duration.String()), nil
}

// Defaults returns a Config populated with reasonable default values.
// These match the values in config.example.toml.
func Defaults() Config {
	return Config{
		Kalshi: KalshiConfig{
			BaseURL:        "https://api.elections.kalshi.com/trade-api/v2",
			PollInterval:   duration{time.Second},
			RequestTimeout: duration{800 * time.Millisecond},
		},
		Polymarket: PolymarketConfig{
			GammaHost:         "https://gamma-api.polymarket.com",
			WsHost:            "wss://ws-subscriptions-clob.polymarket.com/ws/market",
			PingInterval:      duration{30 * time.Second},
			PongTimeout:       duration{10 * time.Second},
			DialTimeout:       duration{15 * time.Second},
			InitialBackoff:    duration{time.Second},
			MaxBackoff:        duration{30 * time.Second},
			BackoffResetAfter: duration{time.Minute},
		},
		Detector: DetectorConfig{
			StalenessBound:   duration{5 * time.Second},
			MinEdge:          0.02,
			WindowLength:     duration{5 * time.Second},
			PriceThreshold:   0.02,
			VolumeMultiplier: 3.0,
			BaselineHorizon:  duration{time.Minute},
		},
		Redis: RedisConfig{
			Addr:       "",
			DB:         0,
			PoolSize:   20,
			MaxRetries: 3,
			TLSEnabled: false,
			Channel:    "arbwatch:alerts",
		},
		Notify: NotifyConfig{
			Events: []string{domain.EventArbitrage, domain.EventVolatility},
		},
		LogLevel: "info",
	}
}

// validLogLevels enumerates the accepted values for Config.LogLevel.
var validLogLevels = map[string]bool{
	"debug": true,
	"info":  true,
	"warn":  true,
	"error": true,
}

// validEvents enumerates the accepted values for NotifyConfig.Events.
var validEvents = map[string]bool{
	domain.EventArbitrage:  true,
	domain.EventVolatility: true,
}

// Validate checks Config for obviously invalid or missing values and returns a
// combined error describing every problem found.
func (c *Config) Validate() error {
	var errs []string

	if !validLogLevels[strings.ToLower(c.LogLevel)] {
		errs = append(errs, fmt.Sprintf("unknown log_level %q (valid: debug, info, warn, error)", c.LogLevel))
	}

	// Kalshi
	if c.Kalshi.ApiKey == "" {
		errs = append(errs, "kalshi: api_key must not be empty")
	}
	if c.Kalshi.RsaPrivateKeyPath == "" {
		errs = append(errs, "kalshi: rsa_private_key_path must not be empty")
	}
	if c.Kalshi.BaseURL == "" {
		errs = append(errs, "kalshi: base_url must not be empty")
	}
	if c.Kalshi.PollInterval.Duration <= 0 {
		errs = append(errs, "kalshi: poll_interval must be > 0")
	}
	if c.Kalshi.RequestTimeout.Duration <= 0 {
		errs = append(errs, "kalshi: request_timeout must be > 0")
	}
	if c.Kalshi.RequestTimeout.Duration >= c.Kalshi.PollInterval.Duration {
		errs = append(errs, "kalshi: request_timeout must be shorter than poll_interval")
	}

	// Polymarket
	if c.Polymarket.WsHost == "" {
		errs = append(errs, "polymarket: ws_host must not be empty")
	}
	if c.Polymarket.PingInterval.Duration <= 0 {
		errs = append(errs, "polymarket: ping_interval must be > 0")
	}
	if c.Polymarket.PongTimeout.Duration <= 0 {
		errs = append(errs, "polymarket: pong_timeout must be > 0")
	}
	if c.Polymarket.InitialBackoff.Duration <= 0 {
		errs = append(errs, "polymarket: initial_backoff must be > 0")
	}
	if c.Polymarket.MaxBackoff.Duration < c.Polymarket.InitialBackoff.Duration {
		errs = append(errs, "polymarket: max_backoff must be >= initial_backoff")
	}

	// Detector
	if c.Detector.StalenessBound.Duration <= 0 {
		errs = append(errs, "detector: staleness_bound must be > 0")
	}
	if c.Detector.MinEdge < 0 || c.Detector.MinEdge >= 1 {
		errs = append(errs, fmt.Sprintf("detector: min_edge must be in [0, 1), got %g", c.Detector.MinEdge))
	}
	if c.Detector.WindowLength.Duration <= 0 {
		errs = append(errs, "detector: window_length must be > 0")
	}
	if c.Detector.PriceThreshold <= 0 {
		errs = append(errs, "detector: price_threshold must be > 0")
	}
	if c.Detector.VolumeMultiplier <= 1 {
		errs = append(errs, "detector: volume_multiplier must be > 1")
	}
	if c.Detector.BaselineHorizon.Duration < c.Detector.WindowLength.Duration {
		errs = append(errs, "detector: baseline_horizon must be >= window_length")
	}

	// Redis (optional; validated only when an addr is configured)
	if c.Redis.Addr != "" {
		if c.Redis.PoolSize < 1 {
			errs = append(errs, "redis: pool_size must be >= 1")
		}
		if c.Redis.Channel == "" {
			errs = append(errs, "redis: channel must not be empty")
		}
	}

	// Notify
	for _, ev := range c.Notify.Events {
		if !validEvents[ev] {
			errs = append(errs, fmt.Sprintf("notify: unknown event %q (valid: %s, %s)",
				ev, domain.EventArbitrage, domain.EventVolatility))
		}
	}

	// Pairs
	if len(c.Pairs) == 0 {
		errs = append(errs, "pairs: at least one [[pairs]] entry is required")
	}
	seen := make(map[string]bool, len(c.Pairs))
	for i, p := range c.Pairs {
		if p.Name == "" {
			errs = append(errs, fmt.Sprintf("pairs[%d]: name must not be empty", i))
		} else if seen[p.Name] {
			errs = append(errs, fmt.Sprintf("pairs[%d]: duplicate name %q", i, p.Name))
		} else {
			seen[p.Name] = true
		}
		if p.KalshiTicker == "" {
			errs = append(errs, fmt.Sprintf("pairs[%d]: kalshi_ticker must not be empty", i))
		}
		if p.PolymarketTokenID == "" && p.PolymarketSlug == "" {
			errs = append(errs, fmt.Sprintf("pairs[%d]: either polymarket_token_id or polymarket_slug must be set", i))
		}
	}

	if len(errs) > 0 {
		return fmt.Errorf("config validation failed:\n  - %s", strings.Join(errs, "\n  - "))
	}
	return nil
}
