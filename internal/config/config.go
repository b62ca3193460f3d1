// Package config loads the screener configuration from a JSON file
// with environment-variable overrides for secrets.
package config

import (
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/shopspring/decimal"
)

// EnvPrefix namespaces the environment variables that override config
// file values.
const EnvPrefix = "DEX_"

// Filters bounds accepted market metrics.
type Filters struct {
	MinPriceUSD     decimal.Decimal `json:"min_price_usd"`
	MaxPriceUSD     decimal.Decimal `json:"max_price_usd"`
	MinVolumeUSD    decimal.Decimal `json:"min_volume_usd"`
	MinLiquidityUSD decimal.Decimal `json:"min_liquidity_usd"`
}

// Telegram configures the notification adapter.
type Telegram struct {
	Enabled    bool   `json:"enabled"`
	BotToken   string `json:"bot_token"`
	ChatID     string `json:"chat_id"`
	MaxRetries int    `json:"max_retries"`
}

// RugCheck configures the risk-scoring collaborator.
type RugCheck struct {
	BaseURL      string `json:"base_url"`
	MaxRiskScore int    `json:"max_risk_score"`
}

// PocketUniverse configures the external volume authenticity service.
type PocketUniverse struct {
	APIURL   string `json:"api_url"`
	APIToken string `json:"api_token"`
}

// VolumeVerification configures the volume checks.
type VolumeVerification struct {
	UseInternalAlgorithm bool            `json:"use_internal_algorithm"`
	FakeVolumeThreshold  decimal.Decimal `json:"fake_volume_threshold"`
	UsePocketUniverse    bool            `json:"use_pocket_universe"`
	PocketUniverse       PocketUniverse  `json:"pocket_universe"`
}

// Scheduler configures cycle timing and failure handling.
type Scheduler struct {
	IntervalSec            int `json:"interval_sec"`
	ErrorCooldownSec       int `json:"error_cooldown_sec"`
	MaxConsecutiveFailures int `json:"max_consecutive_failures"`
}

// Trend configures pump detection.
type Trend struct {
	LookbackHours          int             `json:"lookback_hours"`
	PriceIncreaseThreshold float64         `json:"price_increase_threshold"`
	MinVolumeUSD           decimal.Decimal `json:"min_volume_usd"`
}

// Storage selects and configures the persistence backends.
type Storage struct {
	PostgresDSN string `json:"postgres_dsn"`

	// History selects the observation backend: "postgres" (default)
	// or "clickhouse".
	History       string `json:"history"`
	ClickhouseDSN string `json:"clickhouse_dsn"`
}

// Config is the complete screener configuration.
type Config struct {
	LogLevel           string             `json:"log_level"`
	Filters            Filters            `json:"filters"`
	CoinBlacklist      []string           `json:"coin_blacklist"`
	IncludeBoosted     bool               `json:"include_boosted"`
	VolumeVerification VolumeVerification `json:"volume_verification"`
	RugCheck           RugCheck           `json:"rugcheck"`
	Telegram           Telegram           `json:"telegram"`
	Scheduler          Scheduler          `json:"scheduler"`
	Trend              Trend              `json:"trend"`
	Storage            Storage            `json:"storage"`
}

// Load reads the JSON config at path, applies environment overrides,
// fills defaults and validates.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config file: %w", err)
	}

	var cfg Config
	if err := json.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parse config file %s: %w", path, err)
	}

	cfg.applyEnvOverrides()
	cfg.applyDefaults()
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// applyEnvOverrides lets secrets come from the environment instead of
// the on-disk file.
func (c *Config) applyEnvOverrides() {
	override(&c.Telegram.BotToken, "TELEGRAM_BOT_TOKEN")
	override(&c.Telegram.ChatID, "TELEGRAM_CHAT_ID")
	override(&c.VolumeVerification.PocketUniverse.APIToken, "POCKET_UNIVERSE_API_TOKEN")
	override(&c.Storage.PostgresDSN, "POSTGRES_DSN")
	override(&c.Storage.ClickhouseDSN, "CLICKHOUSE_DSN")
}

func override(target *string, suffix string) {
	if v := os.Getenv(EnvPrefix + suffix); v != "" {
		*target = v
	}
}

func (c *Config) applyDefaults() {
	if c.LogLevel == "" {
		c.LogLevel = "info"
	}
	if c.Scheduler.IntervalSec <= 0 {
		c.Scheduler.IntervalSec = 600
	}
	if c.Scheduler.ErrorCooldownSec <= 0 {
		c.Scheduler.ErrorCooldownSec = 30
	}
	if c.Scheduler.MaxConsecutiveFailures <= 0 {
		c.Scheduler.MaxConsecutiveFailures = 3
	}
	if c.Trend.LookbackHours <= 0 {
		c.Trend.LookbackHours = 6
	}
	if c.Trend.PriceIncreaseThreshold <= 0 {
		c.Trend.PriceIncreaseThreshold = 50
	}
	if c.RugCheck.MaxRiskScore <= 0 {
		c.RugCheck.MaxRiskScore = 1000
	}
	if c.Telegram.MaxRetries <= 0 {
		c.Telegram.MaxRetries = 3
	}
	if c.Storage.History == "" {
		c.Storage.History = "postgres"
	}
}

func (c *Config) validate() error {
	if c.Telegram.Enabled {
		if c.Telegram.BotToken == "" {
			return fmt.Errorf("missing telegram.bot_token")
		}
		if c.Telegram.ChatID == "" {
			return fmt.Errorf("missing telegram.chat_id")
		}
	}
	if c.VolumeVerification.UsePocketUniverse {
		if c.VolumeVerification.PocketUniverse.APIURL == "" {
			return fmt.Errorf("missing volume_verification.pocket_universe.api_url")
		}
		if c.VolumeVerification.PocketUniverse.APIToken == "" {
			return fmt.Errorf("missing volume_verification.pocket_universe.api_token")
		}
	}
	switch c.Storage.History {
	case "postgres", "clickhouse":
	default:
		return fmt.Errorf("unknown storage.history backend %q", c.Storage.History)
	}
	if c.Storage.History == "clickhouse" && c.Storage.ClickhouseDSN == "" {
		return fmt.Errorf("missing storage.clickhouse_dsn for clickhouse history")
	}
	return nil
}

// Interval returns the cycle interval as a Duration.
func (s Scheduler) Interval() time.Duration {
	return time.Duration(s.IntervalSec) * time.Second
}

// ErrorCooldown returns the backoff base as a Duration.
func (s Scheduler) ErrorCooldown() time.Duration {
	return time.Duration(s.ErrorCooldownSec) * time.Second
}

// Lookback returns the detection window as a Duration.
func (t Trend) Lookback() time.Duration {
	return time.Duration(t.LookbackHours) * time.Hour
}
