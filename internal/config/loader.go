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
// built-in defaults, applies ODDSARB_* environment variable overrides, and
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

// applyEnvOverrides reads well-known ODDSARB_* environment variables and
// overwrites the corresponding Config fields when a variable is set. This
// lets operators inject secrets at deploy time without touching the TOML
// file.
func applyEnvOverrides(cfg *Config) {
	// ── Engine ──
	setFloat64(&cfg.Engine.BetUSD, "ODDSARB_ENGINE_BET_USD")
	setFloat64(&cfg.Engine.ArbRatio, "ODDSARB_ENGINE_ARB_RATIO")
	setFloat64(&cfg.Engine.TakeProfitAbs, "ODDSARB_ENGINE_TAKE_PROFIT_ABS")
	setFloat64(&cfg.Engine.StopLossAbs, "ODDSARB_ENGINE_STOP_LOSS_ABS")
	setStr(&cfg.Engine.SellMode, "ODDSARB_ENGINE_SELL_MODE")
	setBool(&cfg.Engine.TestMode, "ODDSARB_ENGINE_TEST_MODE")
	setDuration(&cfg.Engine.EvalInterval, "ODDSARB_ENGINE_EVAL_INTERVAL")
	setInt(&cfg.Engine.CooldownSec, "ODDSARB_ENGINE_COOLDOWN_SEC")

	// ── Matching ──
	setInt(&cfg.Matching.EventThreshold, "ODDSARB_MATCHING_EVENT_THRESHOLD")
	setInt(&cfg.Matching.OutcomeThreshold, "ODDSARB_MATCHING_OUTCOME_THRESHOLD")
	setInt(&cfg.Matching.MarketThreshold, "ODDSARB_MATCHING_MARKET_THRESHOLD")

	// ── Feeds ──
	setStr(&cfg.Feeds.WSAddr, "ODDSARB_FEEDS_WS_ADDR")
	setStr(&cfg.Feeds.GammaHost, "ODDSARB_FEEDS_GAMMA_HOST")
	setStringSlice(&cfg.Feeds.SeriesIDs, "ODDSARB_FEEDS_SERIES_IDS")
	setDuration(&cfg.Feeds.PollInterval, "ODDSARB_FEEDS_POLL_INTERVAL")

	// ── CLOB ──
	setStr(&cfg.Clob.Host, "ODDSARB_CLOB_HOST")
	setStr(&cfg.Clob.APIKey, "ODDSARB_CLOB_API_KEY")

	// ── Paths ──
	setStr(&cfg.Paths.SnapshotsDir, "ODDSARB_PATHS_SNAPSHOTS_DIR")
	setStr(&cfg.Paths.TradeLogDir, "ODDSARB_PATHS_TRADE_LOG_DIR")
	setStr(&cfg.Paths.ApprovedFile, "ODDSARB_PATHS_APPROVED_FILE")
	setStr(&cfg.Paths.PendingFile, "ODDSARB_PATHS_PENDING_FILE")
	setStr(&cfg.Paths.OpportunitiesCSV, "ODDSARB_PATHS_OPPORTUNITIES_CSV")
	setStr(&cfg.Paths.PaperTradesCSV, "ODDSARB_PATHS_PAPER_TRADES_CSV")

	// ── Redis ──
	setBool(&cfg.Redis.Enabled, "ODDSARB_REDIS_ENABLED")
	setStr(&cfg.Redis.Addr, "ODDSARB_REDIS_ADDR")
	setStr(&cfg.Redis.Password, "ODDSARB_REDIS_PASSWORD")
	setInt(&cfg.Redis.DB, "ODDSARB_REDIS_DB")
	setInt(&cfg.Redis.PoolSize, "ODDSARB_REDIS_POOL_SIZE")
	setInt(&cfg.Redis.MaxRetries, "ODDSARB_REDIS_MAX_RETRIES")
	setBool(&cfg.Redis.TLSEnabled, "ODDSARB_REDIS_TLS_ENABLED")

	// ── Postgres ──
	setBool(&cfg.Postgres.Enabled, "ODDSARB_POSTGRES_ENABLED")
	setStr(&cfg.Postgres.DSN, "ODDSARB_POSTGRES_DSN")
	setStr(&cfg.Postgres.Host, "ODDSARB_POSTGRES_HOST")
	setInt(&cfg.Postgres.Port, "ODDSARB_POSTGRES_PORT")
	setStr(&cfg.Postgres.Database, "ODDSARB_POSTGRES_DATABASE")
	setStr(&cfg.Postgres.User, "ODDSARB_POSTGRES_USER")
	setStr(&cfg.Postgres.Password, "ODDSARB_POSTGRES_PASSWORD")
	setStr(&cfg.Postgres.SSLMode, "ODDSARB_POSTGRES_SSL_MODE")
	setInt(&cfg.Postgres.PoolMaxConns, "ODDSARB_POSTGRES_POOL_MAX_CONNS")
	setInt(&cfg.Postgres.PoolMinConns, "ODDSARB_POSTGRES_POOL_MIN_CONNS")
	setBool(&cfg.Postgres.RunMigrations, "ODDSARB_POSTGRES_RUN_MIGRATIONS")

	// ── S3 ──
	setBool(&cfg.S3.Enabled, "ODDSARB_S3_ENABLED")
	setStr(&cfg.S3.Endpoint, "ODDSARB_S3_ENDPOINT")
	setStr(&cfg.S3.Region, "ODDSARB_S3_REGION")
	setStr(&cfg.S3.Bucket, "ODDSARB_S3_BUCKET")
	setStr(&cfg.S3.AccessKey, "ODDSARB_S3_ACCESS_KEY")
	setStr(&cfg.S3.SecretKey, "ODDSARB_S3_SECRET_KEY")
	setBool(&cfg.S3.UseSSL, "ODDSARB_S3_USE_SSL")
	setBool(&cfg.S3.ForcePathStyle, "ODDSARB_S3_FORCE_PATH_STYLE")

	// ── Kafka ──
	setBool(&cfg.Kafka.Enabled, "ODDSARB_KAFKA_ENABLED")
	setStringSlice(&cfg.Kafka.Brokers, "ODDSARB_KAFKA_BROKERS")
	setStr(&cfg.Kafka.Topic, "ODDSARB_KAFKA_TOPIC")

	// ── Notify ──
	setStr(&cfg.Notify.TelegramToken, "ODDSARB_NOTIFY_TELEGRAM_TOKEN")
	setStr(&cfg.Notify.TelegramChatID, "ODDSARB_NOTIFY_TELEGRAM_CHAT_ID")
	setStr(&cfg.Notify.DiscordWebhookURL, "ODDSARB_NOTIFY_DISCORD_WEBHOOK_URL")

	// ── Server ──
	setBool(&cfg.Server.Enabled, "ODDSARB_SERVER_ENABLED")
	setInt(&cfg.Server.Port, "ODDSARB_SERVER_PORT")
	setStr(&cfg.Server.APIKey, "ODDSARB_SERVER_API_KEY")

	// ── Top-level ──
	setStr(&cfg.LogLevel, "ODDSARB_LOG_LEVEL")
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
