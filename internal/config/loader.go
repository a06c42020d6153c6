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
// built-in defaults, applies WAGERHOUSE_* environment variable overrides, and
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

// applyEnvOverrides reads well-known WAGERHOUSE_* environment variables and
// overwrites the corresponding Config fields when a variable is set (i.e. not
// empty). This lets operators inject secrets at deploy time without touching
// the TOML file.
func applyEnvOverrides(cfg *Config) {
	// ── Engine ──
	setStr(&cfg.Engine.AdminAddress, "WAGERHOUSE_ENGINE_ADMIN_ADDRESS")
	setUint64(&cfg.Engine.MinBetAmount, "WAGERHOUSE_ENGINE_MIN_BET_AMOUNT")
	setUint64(&cfg.Engine.MaxBetAmount, "WAGERHOUSE_ENGINE_MAX_BET_AMOUNT")
	setUint64(&cfg.Engine.MinDurationSecs, "WAGERHOUSE_ENGINE_MIN_DURATION_SECS")
	setUint64(&cfg.Engine.MaxDurationSecs, "WAGERHOUSE_ENGINE_MAX_DURATION_SECS")
	setUint64(&cfg.Engine.PayoutMultiplier, "WAGERHOUSE_ENGINE_PAYOUT_MULTIPLIER_BPS")
	setUint64(&cfg.Engine.FeeBps, "WAGERHOUSE_ENGINE_FEE_BPS")
	setUint64(&cfg.Engine.PriceStaleness, "WAGERHOUSE_ENGINE_PRICE_STALENESS_SECS")
	setUint64(&cfg.Engine.ClockSkew, "WAGERHOUSE_ENGINE_CLOCK_SKEW_SECS")
	setStr(&cfg.Engine.LedgerBackend, "WAGERHOUSE_ENGINE_LEDGER_BACKEND")

	// ── Oracle ──
	setStr(&cfg.Oracle.Address, "WAGERHOUSE_ORACLE_ADDRESS")
	setStr(&cfg.Oracle.EncryptedKeyPath, "WAGERHOUSE_ORACLE_ENCRYPTED_KEY_PATH")
	setStr(&cfg.Oracle.KeyPassword, "WAGERHOUSE_ORACLE_KEY_PASSWORD")
	setBool(&cfg.Oracle.RequireAttestation, "WAGERHOUSE_ORACLE_REQUIRE_ATTESTATION")

	// ── Postgres ──
	setStr(&cfg.Postgres.DSN, "WAGERHOUSE_POSTGRES_DSN")
	setStr(&cfg.Postgres.Host, "WAGERHOUSE_POSTGRES_HOST")
	setInt(&cfg.Postgres.Port, "WAGERHOUSE_POSTGRES_PORT")
	setStr(&cfg.Postgres.Database, "WAGERHOUSE_POSTGRES_DATABASE")
	setStr(&cfg.Postgres.User, "WAGERHOUSE_POSTGRES_USER")
	setStr(&cfg.Postgres.Password, "WAGERHOUSE_POSTGRES_PASSWORD")
	setStr(&cfg.Postgres.SSLMode, "WAGERHOUSE_POSTGRES_SSLMODE")
	setInt(&cfg.Postgres.PoolMaxConns, "WAGERHOUSE_POSTGRES_POOL_MAX_CONNS")
	setInt(&cfg.Postgres.PoolMinConns, "WAGERHOUSE_POSTGRES_POOL_MIN_CONNS")
	setBool(&cfg.Postgres.RunMigrations, "WAGERHOUSE_POSTGRES_RUN_MIGRATIONS")

	// ── Redis ──
	setStr(&cfg.Redis.Addr, "WAGERHOUSE_REDIS_ADDR")
	setStr(&cfg.Redis.Password, "WAGERHOUSE_REDIS_PASSWORD")
	setInt(&cfg.Redis.DB, "WAGERHOUSE_REDIS_DB")
	setInt(&cfg.Redis.PoolSize, "WAGERHOUSE_REDIS_POOL_SIZE")
	setInt(&cfg.Redis.MaxRetries, "WAGERHOUSE_REDIS_MAX_RETRIES")
	setBool(&cfg.Redis.TLSEnabled, "WAGERHOUSE_REDIS_TLS_ENABLED")

	// ── S3 ──
	setBool(&cfg.S3.Enabled, "WAGERHOUSE_S3_ENABLED")
	setStr(&cfg.S3.Endpoint, "WAGERHOUSE_S3_ENDPOINT")
	setStr(&cfg.S3.Region, "WAGERHOUSE_S3_REGION")
	setStr(&cfg.S3.Bucket, "WAGERHOUSE_S3_BUCKET")
	setStr(&cfg.S3.AccessKey, "WAGERHOUSE_S3_ACCESS_KEY")
	setStr(&cfg.S3.SecretKey, "WAGERHOUSE_S3_SECRET_KEY")
	setBool(&cfg.S3.UseSSL, "WAGERHOUSE_S3_USE_SSL")
	setBool(&cfg.S3.ForcePathStyle, "WAGERHOUSE_S3_FORCE_PATH_STYLE")
	setInt(&cfg.S3.RetentionDays, "WAGERHOUSE_S3_RETENTION_DAYS")
	setDuration(&cfg.S3.ArchiveInterval, "WAGERHOUSE_S3_ARCHIVE_INTERVAL")

	// ── Server ──
	setBool(&cfg.Server.Enabled, "WAGERHOUSE_SERVER_ENABLED")
	setInt(&cfg.Server.Port, "WAGERHOUSE_SERVER_PORT")
	setStringSlice(&cfg.Server.CORSOrigins, "WAGERHOUSE_SERVER_CORS_ORIGINS")
	setStr(&cfg.Server.AdminAPIKey, "WAGERHOUSE_SERVER_ADMIN_API_KEY")
	setStr(&cfg.Server.OracleAPIKey, "WAGERHOUSE_SERVER_ORACLE_API_KEY")
	setInt(&cfg.Server.RateLimitPerMinute, "WAGERHOUSE_SERVER_RATE_LIMIT_PER_MINUTE")

	// ── Keeper ──
	setBool(&cfg.Keeper.Enabled, "WAGERHOUSE_KEEPER_ENABLED")
	setDuration(&cfg.Keeper.Interval, "WAGERHOUSE_KEEPER_INTERVAL")
	setInt(&cfg.Keeper.BatchSize, "WAGERHOUSE_KEEPER_BATCH_SIZE")
	setDuration(&cfg.Keeper.LockTTL, "WAGERHOUSE_KEEPER_LOCK_TTL")

	// ── Feed ──
	setBool(&cfg.Feed.Enabled, "WAGERHOUSE_FEED_ENABLED")
	setStr(&cfg.Feed.URL, "WAGERHOUSE_FEED_URL")
	setStr(&cfg.Feed.Symbol, "WAGERHOUSE_FEED_SYMBOL")
	setUint64(&cfg.Feed.PriceScale, "WAGERHOUSE_FEED_PRICE_SCALE")

	// ── Notify ──
	setStr(&cfg.Notify.TelegramToken, "WAGERHOUSE_NOTIFY_TELEGRAM_TOKEN")
	setStr(&cfg.Notify.TelegramChatID, "WAGERHOUSE_NOTIFY_TELEGRAM_CHAT_ID")
	setStr(&cfg.Notify.DiscordWebhookURL, "WAGERHOUSE_NOTIFY_DISCORD_WEBHOOK_URL")
	setStringSlice(&cfg.Notify.Events, "WAGERHOUSE_NOTIFY_EVENTS")

	// ── Top-level ──
	setStr(&cfg.Mode, "WAGERHOUSE_MODE")
	setStr(&cfg.LogLevel, "WAGERHOUSE_LOG_LEVEL")
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

func setUint64(dst *uint64, key string) {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.ParseUint(v, 10, 64); err == nil {
			*dst = n
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
