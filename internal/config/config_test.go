package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func validConfig() Config {
	cfg := Defaults()
	cfg.Kalshi.ApiKey = "key-id"
	cfg.Kalshi.RsaPrivateKeyPath = "/tmp/kalshi.pem"
	cfg.Pairs = []PairConfig{{
		Name:              "fed-cut-march",
		KalshiTicker:      "FED-24MAR-CUT",
		PolymarketTokenID: "7131",
	}}
	return cfg
}

func TestValidateAcceptsCompleteConfig(t *testing.T) {
	cfg := validConfig()
	if err := cfg.Validate(); err != nil {
		t.Fatalf("Validate() = %v, want nil", err)
	}
}

func TestValidateCollectsAllErrors(t *testing.T) {
	cfg := Defaults()
	cfg.LogLevel = "loud"

	err := cfg.Validate()
	if err == nil {
		t.Fatal("Validate() = nil, want error")
	}
	for _, want := range []string{
		"unknown log_level",
		"kalshi: api_key",
		"kalshi: rsa_private_key_path",
		"at least one [[pairs]] entry",
	} {
		if !strings.Contains(err.Error(), want) {
			t.Errorf("error missing %q:\n%v", want, err)
		}
	}
}

func TestValidateRejectsSlowRequestTimeout(t *testing.T) {
	cfg := validConfig()
	cfg.Kalshi.PollInterval = duration{time.Second}
	cfg.Kalshi.RequestTimeout = duration{time.Second}

	err := cfg.Validate()
	if err == nil || !strings.Contains(err.Error(), "request_timeout must be shorter than poll_interval") {
		t.Fatalf("Validate() = %v, want request_timeout error", err)
	}
}

func TestValidateRejectsDuplicatePairNames(t *testing.T) {
	cfg := validConfig()
	cfg.Pairs = append(cfg.Pairs, cfg.Pairs[0])

	err := cfg.Validate()
	if err == nil || !strings.Contains(err.Error(), "duplicate name") {
		t.Fatalf("Validate() = %v, want duplicate name error", err)
	}
}

func TestValidateRequiresPairIdentifier(t *testing.T) {
	cfg := validConfig()
	cfg.Pairs[0].PolymarketTokenID = ""
	cfg.Pairs[0].PolymarketSlug = ""

	err := cfg.Validate()
	if err == nil || !strings.Contains(err.Error(), "polymarket_token_id or polymarket_slug") {
		t.Fatalf("Validate() = %v, want pair identifier error", err)
	}
}

func TestValidateAcceptsSlugOnlyPair(t *testing.T) {
	cfg := validConfig()
	cfg.Pairs[0].PolymarketTokenID = ""
	cfg.Pairs[0].PolymarketSlug = "fed-rate-cut-march"

	if err := cfg.Validate(); err != nil {
		t.Fatalf("Validate() = %v, want nil", err)
	}
}

func TestDurationUnmarshalText(t *testing.T) {
	tests := []struct {
		in      string
		want    time.Duration
		wantErr bool
	}{
		{"30s", 30 * time.Second, false},
		{"5m", 5 * time.Minute, false},
		{"750ms", 750 * time.Millisecond, false},
		{"banana", 0, true},
	}
	for _, tt := range tests {
		var d duration
		err := d.UnmarshalText([]byte(tt.in))
		if (err != nil) != tt.wantErr {
			t.Errorf("UnmarshalText(%q) err = %v, wantErr %v", tt.in, err, tt.wantErr)
			continue
		}
		if !tt.wantErr && d.Duration != tt.want {
			t.Errorf("UnmarshalText(%q) = %v, want %v", tt.in, d.Duration, tt.want)
		}
	}
}

func TestLoadMergesFileAndEnv(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.toml")
	data := `
log_level = "debug"

[kalshi]
api_key = "file-key"
rsa_private_key_path = "/tmp/kalshi.pem"
poll_interval = "2s"

[[pairs]]
name = "fed-cut-march"
kalshi_ticker = "FED-24MAR-CUT"
polymarket_token_id = "7131"
`
	if err := os.WriteFile(path, []byte(data), 0o600); err != nil {
		t.Fatal(err)
	}
	t.Setenv("ARBWATCH_KALSHI_API_KEY", "env-key")
	t.Setenv("ARBWATCH_DETECTOR_MIN_EDGE", "0.03")

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if cfg.Kalshi.ApiKey != "env-key" {
		t.Errorf("ApiKey = %q, want env override %q", cfg.Kalshi.ApiKey, "env-key")
	}
	if cfg.Kalshi.PollInterval.Duration != 2*time.Second {
		t.Errorf("PollInterval = %v, want 2s from file", cfg.Kalshi.PollInterval.Duration)
	}
	if cfg.Detector.MinEdge != 0.03 {
		t.Errorf("MinEdge = %v, want 0.03 from env", cfg.Detector.MinEdge)
	}
	if cfg.Polymarket.PingInterval.Duration != 30*time.Second {
		t.Errorf("PingInterval = %v, want 30s default", cfg.Polymarket.PingInterval.Duration)
	}
	if cfg.LogLevel != "debug" {
		t.Errorf("LogLevel = %q, want %q", cfg.LogLevel, "debug")
	}
}

func TestRedactedConfigMasksSecrets(t *testing.T) {
	cfg := validConfig()
	cfg.Notify.TelegramToken = "123:abc"
	cfg.Redis.Password = "hunter2"

	red := RedactedConfig(&cfg)
	if red.Kalshi.ApiKey != "***" || red.Notify.TelegramToken != "***" || red.Redis.Password != "***" {
		t.Error("secrets not redacted")
	}
	if cfg.Kalshi.ApiKey != "key-id" {
		t.Error("original config mutated")
	}
}
