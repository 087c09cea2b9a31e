// Package config defines the top-level configuration for the odds arbitrage
// engine and provides validation helpers.
package config

import (
	"fmt"
	"strings"
	"time"
)

// Config is the root configuration structure. Fields are populated from a TOML
// file and then optionally overridden by ODDSARB_* environment variables.
type Config struct {
	Engine   EngineConfig   `toml:"engine"`
	Matching MatchingConfig `toml:"matching"`
	Feeds    FeedsConfig    `toml:"feeds"`
	Clob     ClobConfig     `toml:"clob"`
	Paths    PathsConfig    `toml:"paths"`
	Redis    RedisConfig    `toml:"redis"`
	Postgres PostgresConfig `toml:"postgres"`
	S3       S3Config       `toml:"s3"`
	Kafka    KafkaConfig    `toml:"kafka"`
	Notify   NotifyConfig   `toml:"notify"`
	Server   ServerConfig   `toml:"server"`
	LogLevel string         `toml:"log_level"`
}

// EngineConfig holds the trigger and execution parameters.
type EngineConfig struct {
	BetUSD        float64  `toml:"bet_usd"`
	ArbRatio      float64  `toml:"arb_ratio"`
	TakeProfitAbs float64  `toml:"take_profit_abs"`
	StopLossAbs   float64  `toml:"stop_loss_abs"` // reserved, exits are take-profit only
	SellMode      string   `toml:"sell_mode"`     // paper, live, or both
	TestMode      bool     `toml:"test_mode"`
	EvalInterval  duration `toml:"eval_interval"`
	CooldownSec   int      `toml:"cooldown_sec"`
}

// MatchingConfig holds the fuzzy-correlation thresholds.
type MatchingConfig struct {
	EventThreshold   int `toml:"event_threshold"`
	OutcomeThreshold int `toml:"outcome_threshold"`
	MarketThreshold  int `toml:"market_threshold"`
}

// FeedsConfig holds the ingestion endpoints.
type FeedsConfig struct {
	WSAddr       string   `toml:"ws_addr"`
	GammaHost    string   `toml:"gamma_host"`
	SeriesIDs    []string `toml:"series_ids"`
	PollInterval duration `toml:"poll_interval"`
}

// ClobConfig holds the order-book and order-placement API parameters.
type ClobConfig struct {
	Host   string `toml:"host"`
	APIKey string `toml:"api_key"`
}

// PathsConfig holds the local persistence locations.
type PathsConfig struct {
	SnapshotsDir     string `toml:"snapshots_dir"`
	TradeLogDir      string `toml:"trade_log_dir"`
	ApprovedFile     string `toml:"approved_file"`
	PendingFile      string `toml:"pending_file"`
	OpportunitiesCSV string `toml:"opportunities_csv"`
	PaperTradesCSV   string `toml:"paper_trades_csv"`
}

// RedisConfig holds Redis connection parameters for the shared book cache.
type RedisConfig struct {
	Enabled    bool   `toml:"enabled"`
	Addr       string `toml:"addr"`
	Password   string `toml:"password"`
	DB         int    `toml:"db"`
	PoolSize   int    `toml:"pool_size"`
	MaxRetries int    `toml:"max_retries"`
	TLSEnabled bool   `toml:"tls_enabled"`
}

// PostgresConfig holds PostgreSQL connection parameters.
type PostgresConfig struct {
	Enabled       bool   `toml:"enabled"`
	DSN           string `toml:"dsn"`
	Host          string `toml:"host"`
	Port          int    `toml:"port"`
	Database      string `toml:"database"`
	User          string `toml:"user"`
	Password      string `toml:"password"`
	SSLMode       string `toml:"ssl_mode"`
	PoolMaxConns  int    `toml:"pool_max_conns"`
	PoolMinConns  int    `toml:"pool_min_conns"`
	RunMigrations bool   `toml:"run_migrations"`
}

// S3Config holds S3-compatible object storage parameters for trade-record
// mirroring.
type S3Config struct {
	Enabled        bool   `toml:"enabled"`
	Endpoint       string `toml:"endpoint"`
	Region         string `toml:"region"`
	Bucket         string `toml:"bucket"`
	AccessKey      string `toml:"access_key"`
	SecretKey      string `toml:"secret_key"`
	UseSSL         bool   `toml:"use_ssl"`
	ForcePathStyle bool   `toml:"force_path_style"`
}

// KafkaConfig holds the opportunity stream parameters.
type KafkaConfig struct {
	Enabled bool     `toml:"enabled"`
	Brokers []string `toml:"brokers"`
	Topic   string   `toml:"topic"`
}

// NotifyConfig holds notification channel credentials.
type NotifyConfig struct {
	TelegramToken     string `toml:"telegram_token"`
	TelegramChatID    string `toml:"telegram_chat_id"`
	DiscordWebhookURL string `toml:"discord_webhook_url"`
}

// ServerConfig holds the operator API parameters.
type ServerConfig struct {
	Enabled bool   `toml:"enabled"`
	Port    int    `toml:"port"`
	APIKey  string `toml:"api_key"`
}

// duration is a wrapper around time.Duration that supports TOML string
// decoding (e.g. "5s", "2m").
type duration struct {
	time.Duration
}

func (d *duration) UnmarshalText(text []byte) error {
	var err error
	d.Duration, err = time.ParseDuration(string(text))
	return err
}

func (d duration) MarshalText() ([]byte, error) {
	return []byte(d.Duration.String()), nil
}

// Defaults returns a Config populated with the tuned production values.
func Defaults() Config {
	return Config{
		Engine: EngineConfig{
			BetUSD:        10.0,
			ArbRatio:      1.12,
			TakeProfitAbs: 0.05,
			StopLossAbs:   0.0,
			SellMode:      "paper",
			TestMode:      false,
			EvalInterval:  duration{2 * time.Second},
			CooldownSec:   120,
		},
		Matching: MatchingConfig{
			EventThreshold:   70,
			OutcomeThreshold: 80,
			MarketThreshold:  95,
		},
		Feeds: FeedsConfig{
			WSAddr:       ":8765",
			GammaHost:    "https://gamma-api.polymarket.com",
			PollInterval: duration{5 * time.Second},
		},
		Clob: ClobConfig{
			Host: "https://clob.polymarket.com",
		},
		Paths: PathsConfig{
			SnapshotsDir:     "data/snapshots",
			TradeLogDir:      "data/trades",
			ApprovedFile:     "data/approved_matches.json",
			PendingFile:      "data/pending_matches.csv",
			OpportunitiesCSV: "data/opportunities_changes.csv",
			PaperTradesCSV:   "data/paper_trades.csv",
		},
		Redis: RedisConfig{
			Enabled:    false,
			Addr:       "localhost:6379",
			PoolSize:   20,
			MaxRetries: 3,
		},
		Postgres: PostgresConfig{
			Enabled:       false,
			Host:          "localhost",
			Port:          5432,
			Database:      "oddsarb",
			User:          "postgres",
			SSLMode:       "disable",
			PoolMaxConns:  10,
			PoolMinConns:  2,
			RunMigrations: true,
		},
		S3: S3Config{
			Enabled:        false,
			Region:         "us-east-1",
			Bucket:         "oddsarb-data",
			ForcePathStyle: true,
		},
		Kafka: KafkaConfig{
			Enabled: false,
			Brokers: []string{"localhost:9092"},
			Topic:   "oddsarb.opportunities",
		},
		Server: ServerConfig{
			Enabled: true,
			Port:    8000,
		},
		LogLevel: "info",
	}
}

// validSellModes enumerates the accepted values for Engine.SellMode.
var validSellModes = map[string]bool{
	"paper": true,
	"live":  true,
	"both":  true,
}

// validLogLevels enumerates the accepted values for Config.LogLevel.
var validLogLevels = map[string]bool{
	"debug": true,
	"info":  true,
	"warn":  true,
	"error": true,
}

// Validate checks Config for obviously invalid or missing values and returns
// a combined error describing every problem found.
func (c *Config) Validate() error {
	var errs []string

	if !validSellModes[strings.ToLower(c.Engine.SellMode)] {
		errs = append(errs, fmt.Sprintf("engine: unknown sell_mode %q (valid: paper, live, both)", c.Engine.SellMode))
	}
	if c.Engine.BetUSD <= 0 {
		errs = append(errs, "engine: bet_usd must be > 0")
	}
	if c.Engine.ArbRatio <= 1 {
		errs = append(errs, "engine: arb_ratio must be > 1")
	}
	if c.Engine.TakeProfitAbs <= 0 {
		errs = append(errs, "engine: take_profit_abs must be > 0")
	}
	if c.Engine.CooldownSec <= 0 {
		errs = append(errs, "engine: cooldown_sec must be > 0")
	}

	if c.Matching.EventThreshold <= 0 || c.Matching.EventThreshold > 100 {
		errs = append(errs, "matching: event_threshold must be 1-100")
	}
	if c.Matching.OutcomeThreshold <= 0 || c.Matching.OutcomeThreshold > 100 {
		errs = append(errs, "matching: outcome_threshold must be 1-100")
	}
	if c.Matching.MarketThreshold <= 0 || c.Matching.MarketThreshold > 100 {
		errs = append(errs, "matching: market_threshold must be 1-100")
	}

	if c.Feeds.WSAddr == "" {
		errs = append(errs, "feeds: ws_addr must not be empty")
	}
	if c.Feeds.GammaHost == "" {
		errs = append(errs, "feeds: gamma_host must not be empty")
	}
	if c.Clob.Host == "" {
		errs = append(errs, "clob: host must not be empty")
	}

	if c.Redis.Enabled {
		if c.Redis.Addr == "" {
			errs = append(errs, "redis: addr must not be empty when enabled")
		}
		if c.Redis.PoolSize < 1 {
			errs = append(errs, "redis: pool_size must be >= 1")
		}
	}

	if c.Postgres.Enabled && strings.TrimSpace(c.Postgres.DSN) == "" {
		if c.Postgres.Host == "" {
			errs = append(errs, "postgres: host must not be empty (or set postgres.dsn)")
		}
		if c.Postgres.Port <= 0 || c.Postgres.Port > 65535 {
			errs = append(errs, fmt.Sprintf("postgres: port must be 1-65535, got %d", c.Postgres.Port))
		}
		if c.Postgres.Database == "" {
			errs = append(errs, "postgres: database must not be empty")
		}
	}

	if c.S3.Enabled {
		if c.S3.Bucket == "" {
			errs = append(errs, "s3: bucket must not be empty when enabled")
		}
		if c.S3.Region == "" {
			errs = append(errs, "s3: region must not be empty when enabled")
		}
	}

	if c.Kafka.Enabled {
		if len(c.Kafka.Brokers) == 0 {
			errs = append(errs, "kafka: brokers must not be empty when enabled")
		}
		if c.Kafka.Topic == "" {
			errs = append(errs, "kafka: topic must not be empty when enabled")
		}
	}

	if c.Server.Enabled {
		if c.Server.Port <= 0 || c.Server.Port > 65535 {
			errs = append(errs, fmt.Sprintf("server: port must be 1-65535, got %d", c.Server.Port))
		}
	}

	if !validLogLevels[strings.ToLower(c.LogLevel)] {
		errs = append(errs, fmt.Sprintf("unknown log_level %q (valid: debug, info, warn, error)", c.LogLevel))
	}

	if len(errs) > 0 {
		return fmt.Errorf("config validation failed:\n  - %s", strings.Join(errs, "\n  - "))
	}
	return nil
}
