// Package config defines the top-level configuration for the wagerhouse
// settlement daemon and provides validation helpers.
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum/common"
)

// Config is the root configuration structure. Fields are populated from a TOML
// file and then optionally overridden by WAGERHOUSE_* environment variables.
type Config struct {
	Engine   EngineConfig   `toml:"engine"`
	Oracle   OracleConfig   `toml:"oracle"`
	Postgres PostgresConfig `toml:"postgres"`
	Redis    RedisConfig    `toml:"redis"`
	S3       S3Config       `toml:"s3"`
	Server   ServerConfig   `toml:"server"`
	Keeper   KeeperConfig   `toml:"keeper"`
	Feed     FeedConfig     `toml:"feed"`
	Notify   NotifyConfig   `toml:"notify"`
	Mode     string         `toml:"mode"`
	LogLevel string         `toml:"log_level"`
}

// EngineConfig holds the settlement engine's operating parameters. All
// monetary values are micro-units, all durations seconds. Each limit can
// later be overridden at runtime through the admin config table.
type EngineConfig struct {
	AdminAddress     string `toml:"admin_address"`
	MinBetAmount     uint64 `toml:"min_bet_amount"`
	MaxBetAmount     uint64 `toml:"max_bet_amount"`
	MinDurationSecs  uint64 `toml:"min_duration_secs"`
	MaxDurationSecs  uint64 `toml:"max_duration_secs"`
	PayoutMultiplier uint64 `toml:"payout_multiplier_bps"`
	FeeBps           uint64 `toml:"fee_bps"`
	PriceStaleness   uint64 `toml:"price_staleness_secs"`
	ClockSkew        uint64 `toml:"clock_skew_secs"`
	// LedgerBackend selects where user account balances live: "memory" or
	// "postgres".
	LedgerBackend string `toml:"ledger_backend"`
}

// OracleConfig holds the price oracle identity and attestation settings.
type OracleConfig struct {
	Address          string `toml:"address"`
	EncryptedKeyPath string `toml:"encrypted_key_path"`
	KeyPassword      string `toml:"key_password"`
	// RequireAttestation makes the price submission endpoint reject updates
	// that do not carry a valid ECDSA signature from the oracle key.
	RequireAttestation bool `toml:"require_attestation"`
}

// PostgresConfig holds PostgreSQL connection parameters.
type PostgresConfig struct {
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

// RedisConfig holds Redis connection parameters.
type RedisConfig struct {
	Addr       string `toml:"addr"`
	Password   string `toml:"password"`
	DB         int    `toml:"db"`
	PoolSize   int    `toml:"pool_size"`
	MaxRetries int    `toml:"max_retries"`
	TLSEnabled bool   `toml:"tls_enabled"`
}

// S3Config holds S3-compatible object storage parameters for archival.
type S3Config struct {
	Enabled        bool   `toml:"enabled"`
	Endpoint       string `toml:"endpoint"`
	Region         string `toml:"region"`
	Bucket         string `toml:"bucket"`
	AccessKey      string `toml:"access_key"`
	SecretKey      string `toml:"secret_key"`
	UseSSL         bool   `toml:"use_ssl"`
	ForcePathStyle bool   `toml:"force_path_style"`
	// RetentionDays is how long settled bets stay in PostgreSQL before the
	// archiver moves them to object storage.
	RetentionDays   int      `toml:"retention_days"`
	ArchiveInterval duration `toml:"archive_interval"`
}

// ServerConfig holds HTTP server parameters.
type ServerConfig struct {
	Enabled     bool     `toml:"enabled"`
	Port        int      `toml:"port"`
	CORSOrigins []string `toml:"cors_origins"`
	// AdminAPIKey and OracleAPIKey authenticate the privileged route groups.
	AdminAPIKey  string `toml:"admin_api_key"`
	OracleAPIKey string `toml:"oracle_api_key"`
	// RateLimitPerMinute caps requests per client on the public routes.
	// Zero disables rate limiting.
	RateLimitPerMinute int `toml:"rate_limit_per_minute"`
}

// KeeperConfig holds the resolution keeper's scheduling parameters.
type KeeperConfig struct {
	Enabled   bool     `toml:"enabled"`
	Interval  duration `toml:"interval"`
	BatchSize int      `toml:"batch_size"`
	// LockTTL bounds how long a keeper instance may hold the distributed
	// resolution lock.
	LockTTL duration `toml:"lock_ttl"`
}

// FeedConfig holds the external price feed settings. When enabled, the
// daemon subscribes to the exchange ticker stream and submits each tick as
// an oracle price update.
type FeedConfig struct {
	Enabled bool   `toml:"enabled"`
	URL     string `toml:"url"`
	Symbol  string `toml:"symbol"`
	// PriceScale converts quote-currency prices to micro-units.
	PriceScale uint64 `toml:"price_scale"`
}

// NotifyConfig holds notification channel credentials.
type NotifyConfig struct {
	TelegramToken     string   `toml:"telegram_token"`
	TelegramChatID    string   `toml:"telegram_chat_id"`
	DiscordWebhookURL string   `toml:"discord_webhook_url"`
	Events            []string `toml:"events"`
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
		Engine: EngineConfig{
			MinBetAmount:     100_000,
			MaxBetAmount:     100_000_000_000,
			MinDurationSecs:  3_600,
			MaxDurationSecs:  2_592_000,
			PayoutMultiplier: 20_000,
			FeeBps:           200,
			PriceStaleness:   3_600,
			ClockSkew:        300,
			LedgerBackend:    "postgres",
		},
		Oracle: OracleConfig{
			RequireAttestation: true,
		},
		Postgres: PostgresConfig{
			Host:          "localhost",
			Port:          5432,
			Database:      "wagerhouse",
			User:          "postgres",
			SSLMode:       "disable",
			PoolMaxConns:  10,
			PoolMinConns:  2,
			RunMigrations: true,
		},
		Redis: RedisConfig{
			Addr:       "localhost:6379",
			DB:         0,
			PoolSize:   20,
			MaxRetries: 3,
			TLSEnabled: false,
		},
		S3: S3Config{
			Enabled:         false,
			Endpoint:        "http://localhost:9000",
			Region:          "us-east-1",
			Bucket:          "wagerhouse-archive",
			UseSSL:          false,
			ForcePathStyle:  true,
			RetentionDays:   90,
			ArchiveInterval: duration{24 * time.Hour},
		},
		Server: ServerConfig{
			Enabled:            true,
			Port:               8000,
			CORSOrigins:        []string{"http://localhost:3000"},
			RateLimitPerMinute: 120,
		},
		Keeper: KeeperConfig{
			Enabled:   true,
			Interval:  duration{30 * time.Second},
			BatchSize: 100,
			LockTTL:   duration{2 * time.Minute},
		},
		Feed: FeedConfig{
			Enabled:    false,
			PriceScale: 1_000_000,
		},
		Notify: NotifyConfig{
			Events: []string{"bet_placed", "bet_resolved", "contract_paused", "error"},
		},
		Mode:     "full",
		LogLevel: "info",
	}
}

// validModes enumerates the accepted values for Config.Mode.
var validModes = map[string]bool{
	"server": true,
	"keeper": true,
	"full":   true,
}

// validLogLevels enumerates the accepted values for Config.LogLevel.
var validLogLevels = map[string]bool{
	"debug": true,
	"info":  true,
	"warn":  true,
	"error": true,
}

// validLedgerBackends enumerates the accepted Engine.LedgerBackend values.
var validLedgerBackends = map[string]bool{
	"memory":   true,
	"postgres": true,
}

// Validate checks Config for obviously invalid or missing values and returns a
// combined error describing every problem found.
func (c *Config) Validate() error {
	var errs []string

	// Mode
	if !validModes[strings.ToLower(c.Mode)] {
		errs = append(errs, fmt.Sprintf("unknown mode %q (valid: server, keeper, full)", c.Mode))
	}

	// LogLevel
	if !validLogLevels[strings.ToLower(c.LogLevel)] {
		errs = append(errs, fmt.Sprintf("unknown log_level %q (valid: debug, info, warn, error)", c.LogLevel))
	}

	// Engine
	if c.Engine.AdminAddress == "" {
		errs = append(errs, "engine: admin_address must not be empty")
	} else if !common.IsHexAddress(c.Engine.AdminAddress) {
		errs = append(errs, fmt.Sprintf("engine: admin_address %q is not a valid hex address", c.Engine.AdminAddress))
	}
	if c.Engine.MinBetAmount == 0 {
		errs = append(errs, "engine: min_bet_amount must be > 0")
	}
	if c.Engine.MaxBetAmount < c.Engine.MinBetAmount {
		errs = append(errs, "engine: max_bet_amount must not be below min_bet_amount")
	}
	if c.Engine.MinDurationSecs == 0 {
		errs = append(errs, "engine: min_duration_secs must be > 0")
	}
	if c.Engine.MaxDurationSecs < c.Engine.MinDurationSecs {
		errs = append(errs, "engine: max_duration_secs must not be below min_duration_secs")
	}
	if c.Engine.PayoutMultiplier < 10_000 {
		errs = append(errs, "engine: payout_multiplier_bps must be >= 10000 (at least the stake back)")
	}
	if c.Engine.FeeBps >= 10_000 {
		errs = append(errs, "engine: fee_bps must be below 10000")
	}
	if !validLedgerBackends[c.Engine.LedgerBackend] {
		errs = append(errs, fmt.Sprintf("engine: unknown ledger_backend %q (valid: memory, postgres)", c.Engine.LedgerBackend))
	}

	// Oracle
	if c.Oracle.Address != "" && !common.IsHexAddress(c.Oracle.Address) {
		errs = append(errs, fmt.Sprintf("oracle: address %q is not a valid hex address", c.Oracle.Address))
	}
	if c.Oracle.RequireAttestation && c.Oracle.Address == "" {
		errs = append(errs, "oracle: address is required when require_attestation is set")
	}
	if c.Oracle.EncryptedKeyPath != "" && c.Oracle.KeyPassword == "" {
		errs = append(errs, "oracle: key_password is required when encrypted_key_path is set")
	}

	// Postgres
	if strings.TrimSpace(c.Postgres.DSN) == "" {
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
	if c.Postgres.PoolMaxConns < 1 {
		errs = append(errs, "postgres: pool_max_conns must be >= 1")
	}
	if c.Postgres.PoolMinConns < 0 {
		errs = append(errs, "postgres: pool_min_conns must be >= 0")
	}
	if c.Postgres.PoolMinConns > c.Postgres.PoolMaxConns {
		errs = append(errs, "postgres: pool_min_conns must not exceed pool_max_conns")
	}

	// Redis
	if c.Redis.Addr == "" {
		errs = append(errs, "redis: addr must not be empty")
	}
	if c.Redis.PoolSize < 1 {
		errs = append(errs, "redis: pool_size must be >= 1")
	}

	// S3
	if c.S3.Enabled {
		if c.S3.Endpoint == "" {
			errs = append(errs, "s3: endpoint must not be empty when enabled")
		}
		if c.S3.Bucket == "" {
			errs = append(errs, "s3: bucket must not be empty when enabled")
		}
		if c.S3.RetentionDays < 1 {
			errs = append(errs, "s3: retention_days must be >= 1 when enabled")
		}
	}

	// Server
	if c.Server.Enabled {
		if c.Server.Port <= 0 || c.Server.Port > 65535 {
			errs = append(errs, fmt.Sprintf("server: port must be 1-65535, got %d", c.Server.Port))
		}
		if c.Server.AdminAPIKey == "" {
			errs = append(errs, "server: admin_api_key must not be empty when the server is enabled")
		}
		if c.Server.RateLimitPerMinute < 0 {
			errs = append(errs, "server: rate_limit_per_minute must be >= 0")
		}
	}

	// Keeper
	needsKeeper := c.Mode == "keeper" || (c.Mode == "full" && c.Keeper.Enabled)
	if needsKeeper {
		if c.Keeper.Interval.Duration <= 0 {
			errs = append(errs, "keeper: interval must be > 0")
		}
		if c.Keeper.BatchSize < 1 {
			errs = append(errs, "keeper: batch_size must be >= 1")
		}
		if c.Keeper.LockTTL.Duration <= 0 {
			errs = append(errs, "keeper: lock_ttl must be > 0")
		}
	}

	// Feed
	if c.Feed.Enabled {
		if c.Feed.URL == "" {
			errs = append(errs, "feed: url must not be empty when enabled")
		}
		if c.Feed.Symbol == "" {
			errs = append(errs, "feed: symbol must not be empty when enabled")
		}
		if c.Feed.PriceScale == 0 {
			errs = append(errs, "feed: price_scale must be > 0")
		}
	}

	if len(errs) > 0 {
		return fmt.Errorf("config validation failed:\n  - %s", strings.Join(errs, "\n  - "))
	}
	return nil
}
