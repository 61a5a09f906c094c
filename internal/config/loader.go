package config

import (
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/joho/godotenv"
)

// Load reads a TOML configuration file at path, merges it on top of the
// built-in defaults, applies ARBWATCH_* environment variable overrides, and
// returns the final Config. The returned Config has NOT been validated; the
// caller should invoke Config.Validate() after Load.
func Load(path string) (*Config, error) {
	cfg := Defaults()

	if _, err := toml.DecodeFile(path, &cfg); err != nil {
		return nil, err
	}

	// Load .env file if present (silently ignore if missing).
	_ = godotenv.Load()

	applyEnvOverrides(&cfg)

	return &cfg, nil
}

// applyEnvOverrides reads well-known ARBWATCH_* environment variables and
// overwrites the corresponding Config fields when a variable is set (i.e. not
// empty). This lets operators inject secrets at deploy time without touching
// the TOML file.
func applyEnvOverrides(cfg *Config) {
	// ── Kalshi ──
	setStr(&cfg.Kalshi.ApiKey, "ARBWATCH_KALSHI_API_KEY")
	setStr(&cfg.Kalshi.RsaPrivateKeyPath, "ARBWATCH_KALSHI_RSA_PRIVATE_KEY_PATH")
	setStr(&cfg.Kalshi.BaseURL, "ARBWATCH_KALSHI_BASE_URL")
	setDuration(&cfg.Kalshi.PollInterval, "ARBWATCH_KALSHI_POLL_INTERVAL")
	setDuration(&cfg.Kalshi.RequestTimeout, "ARBWATCH_KALSHI_REQUEST_TIMEOUT")

	// ── Polymarket ──
	setStr(&cfg.Polymarket.GammaHost, "ARBWATCH_POLYMARKET_GAMMA_HOST")
	setStr(&cfg.Polymarket.WsHost, "ARBWATCH_POLYMARKET_WS_HOST")
	setDuration(&cfg.Polymarket.PingInterval, "ARBWATCH_POLYMARKET_PING_INTERVAL")
	setDuration(&cfg.Polymarket.PongTimeout, "ARBWATCH_POLYMARKET_PONG_TIMEOUT")
	setDuration(&cfg.Polymarket.DialTimeout, "ARBWATCH_POLYMARKET_DIAL_TIMEOUT")
	setDuration(&cfg.Polymarket.InitialBackoff, "ARBWATCH_POLYMARKET_INITIAL_BACKOFF")
	setDuration(&cfg.Polymarket.MaxBackoff, "ARBWATCH_POLYMARKET_MAX_BACKOFF")
	setDuration(&cfg.Polymarket.BackoffResetAfter, "ARBWATCH_POLYMARKET_BACKOFF_RESET_AFTER")

	// ── Detector ──
	setDuration(&cfg.Detector.StalenessBound, "ARBWATCH_DETECTOR_STALENESS_BOUND")
	setFloat64(&cfg.Detector.MinEdge, "ARBWATCH_DETECTOR_MIN_EDGE")
	setDuration(&cfg.Detector.WindowLength, "ARBWATCH_DETECTOR_WINDOW_LENGTH")
	setFloat64(&cfg.Detector.PriceThreshold, "ARBWATCH_DETECTOR_PRICE_THRESHOLD")
	setFloat64(&cfg.Detector.VolumeMultiplier, "ARBWATCH_DETECTOR_VOLUME_MULTIPLIER")
	setDuration(&cfg.Detector.BaselineHorizon, "ARBWATCH_DETECTOR_BASELINE_HORIZON")

	// ── Redis ──
	setStr(&cfg.Redis.Addr, "ARBWATCH_REDIS_ADDR")
	setStr(&cfg.Redis.Password, "ARBWATCH_REDIS_PASSWORD")
	setInt(&cfg.Redis.DB, "ARBWATCH_REDIS_DB")
	setInt(&cfg.Redis.PoolSize, "ARBWATCH_REDIS_POOL_SIZE")
	setInt(&cfg.Redis.MaxRetries, "ARBWATCH_REDIS_MAX_RETRIES")
	setBool(&cfg.Redis.TLSEnabled, "ARBWATCH_REDIS_TLS_ENABLED")
	setStr(&cfg.Redis.Channel, "ARBWATCH_REDIS_CHANNEL")

	// ── Notify ──
	setStr(&cfg.Notify.TelegramToken, "ARBWATCH_NOTIFY_TELEGRAM_TOKEN")
	setStr(&cfg.Notify.TelegramChatID, "ARBWATCH_NOTIFY_TELEGRAM_CHAT_ID")
	setStr(&cfg.Notify.DiscordWebhookURL, "ARBWATCH_NOTIFY_DISCORD_WEBHOOK_URL")
	setStringSlice(&cfg.Notify.Events, "ARBWATCH_NOTIFY_EVENTS")

	// ── Top-level ──
	setStr(&cfg.LogLevel, "ARBWATCH_LOG_LEVEL")
}

// ---------------------------------------------------------------------------
// Typed env-var helpers. Each only mutates the target when the environment
// variable is present and non-empty.
// ---------------------------------------------------------------------------

func setStr(dst *string, key string) {
	if v := os.Getenv(key); v != "" {
		*dst = v
	}
}

func setInt(dst *int, key string) {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			*dst = n
		}
	}
}

func setFloat64(dst *float64, key string) {
	if v := os.Getenv(key); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			*dst = f
		}
	}
}

func setBool(dst *bool, key string) {
	if v := os.Getenv(key); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			*dst = b
		}
	}
}

func setDuration(dst *duration, key string) {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			dst.Duration = d
		}
	}
}

func setStringSlice(dst *[]string, key string) {
	if v := os.Getenv(key); v != "" {
		parts := strings.Split(v, ",")
		cleaned := make([]string, 0, len(parts))
		for _, p := range parts {
			p = strings.TrimSpace(p)
			if p != "" {
				cleaned = append(cleaned, p)
			}
		}
		if len(cleaned) > 0 {
			*dst = cleaned
		}
	}
}
