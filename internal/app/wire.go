package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/ethereum/go-ethereum/common"

	s3blob "github.com/alanyoungcy/wagerhouse/internal/blob/s3"
	"github.com/alanyoungcy/wagerhouse/internal/cache/redis"
	"github.com/alanyoungcy/wagerhouse/internal/config"
	"github.com/alanyoungcy/wagerhouse/internal/crypto"
	"github.com/alanyoungcy/wagerhouse/internal/domain"
	"github.com/alanyoungcy/wagerhouse/internal/engine"
	"github.com/alanyoungcy/wagerhouse/internal/ledger"
	"github.com/alanyoungcy/wagerhouse/internal/notify"
	"github.com/alanyoungcy/wagerhouse/internal/store/postgres"
)

// Dependencies bundles every domain-level dependency that the application
// modes need to operate. It is constructed by Wire and torn down by the
// returned cleanup function.
type Dependencies struct {
	// Engine
	Engine *engine.Engine
	Ledger domain.ValueLedger

	// Persistence
	Journal *postgres.Journal

	// Caches and coordination
	PriceCache  domain.PriceCache
	RateLimiter domain.RateLimiter
	LockManager domain.LockManager
	SignalBus   domain.SignalBus

	// Blob storage
	BlobWriter  domain.BlobWriter
	BlobReader  domain.BlobReader
	BlobDeleter domain.BlobDeleter
	Archiver    domain.Archiver

	// Oracle signing key, when one is configured.
	Attestor *crypto.Attestor

	// Notifications
	Notifier *notify.Notifier
}

// Wire constructs all concrete dependency implementations from the given
// configuration and returns them together with a cleanup function that
// should be called on shutdown to release resources.
func Wire(ctx context.Context, cfg *config.Config) (*Dependencies, func(), error) {
	logger := slog.Default()

	var closers []func()
	cleanup := func() {
		for i := len(closers) - 1; i >= 0; i-- {
			closers[i]()
		}
	}

	deps := &Dependencies{}

	// --- PostgreSQL ---
	pgClient, err := postgres.New(ctx, postgres.ClientConfig{
		DSN:      cfg.Postgres.DSN,
		Host:     cfg.Postgres.Host,
		Port:     cfg.Postgres.Port,
		Database: cfg.Postgres.Database,
		User:     cfg.Postgres.User,
		Password: cfg.Postgres.Password,
		SSLMode:  cfg.Postgres.SSLMode,
		MaxConns: cfg.Postgres.PoolMaxConns,
		MinConns: cfg.Postgres.PoolMinConns,
	})
	if err != nil {
		cleanup()
		return nil, nil, fmt.Errorf("wire: postgres: %w", err)
	}
	closers = append(closers, pgClient.Close)

	if cfg.Postgres.RunMigrations {
		if err := pgClient.RunMigrations(ctx); err != nil {
			cleanup()
			return nil, nil, fmt.Errorf("wire: postgres migrations: %w", err)
		}
	}

	pool := pgClient.Pool()
	deps.Journal = postgres.NewJournal(pool)

	// --- Value ledger ---
	switch cfg.Engine.LedgerBackend {
	case "postgres":
		deps.Ledger = postgres.NewAccountLedger(pool)
	default:
		deps.Ledger = ledger.NewMemory()
	}

	// --- Redis ---
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

	deps.PriceCache = redis.NewPriceCache(redisClient)
	deps.RateLimiter = redis.NewRateLimiter(redisClient)
	deps.LockManager = redis.NewLockManager(redisClient)
	deps.SignalBus = redis.NewSignalBus(redisClient)

	// --- Engine ---
	eng, err := buildEngine(ctx, cfg, deps.Journal, deps.Ledger, logger)
	if err != nil {
		cleanup()
		return nil, nil, err
	}
	deps.Engine = eng

	// --- S3 blob storage ---
	if cfg.S3.Enabled {
		s3Client, err := s3blob.New(ctx, s3blob.ClientConfig{
			Endpoint:       cfg.S3.Endpoint,
			Region:         cfg.S3.Region,
			Bucket:         cfg.S3.Bucket,
			AccessKey:      cfg.S3.AccessKey,
			SecretKey:      cfg.S3.SecretKey,
			UseSSL:         cfg.S3.UseSSL,
			ForcePathStyle: cfg.S3.ForcePathStyle,
		})
		if err != nil {
			cleanup()
			return nil, nil, fmt.Errorf("wire: s3: %w", err)
		}
		closers = append(closers, func() { _ = s3Client.Close() })

		deps.BlobWriter = s3blob.NewWriter(s3Client)
		reader := s3blob.NewReader(s3Client)
		deps.BlobReader = reader
		deps.BlobDeleter = reader // same type implements BlobDeleter
		deps.Archiver = s3blob.NewArchiver(deps.BlobWriter, deps.Journal.Bets(), deps.Journal.AuditLog())
	}

	// --- Oracle signing key ---
	if cfg.Oracle.EncryptedKeyPath != "" {
		keyHex, err := crypto.LoadKey(crypto.KeyConfig{
			EncryptedKeyPath: cfg.Oracle.EncryptedKeyPath,
			KeyPassword:      cfg.Oracle.KeyPassword,
		})
		if err != nil {
			cleanup()
			return nil, nil, fmt.Errorf("wire: oracle key: %w", err)
		}
		attestor, err := crypto.NewAttestor(keyHex)
		if err != nil {
			cleanup()
			return nil, nil, fmt.Errorf("wire: oracle key: %w", err)
		}
		if cfg.Oracle.Address != "" && attestor.Address() != common.HexToAddress(cfg.Oracle.Address) {
			cleanup()
			return nil, nil, fmt.Errorf("wire: oracle key address %s does not match configured oracle %s",
				attestor.Address().Hex(), cfg.Oracle.Address)
		}
		deps.Attestor = attestor
	}

	// --- Notifications ---
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
	deps.Notifier = notify.NewNotifier(senders, cfg.Notify.Events, logger)

	return deps, cleanup, nil
}

// buildEngine restores the engine from the journal's stores, or starts a
// fresh deployment when no state has been persisted yet. On a fresh
// deployment the configured oracle address is registered immediately.
func buildEngine(ctx context.Context, cfg *config.Config, journal *postgres.Journal, valueLedger domain.ValueLedger, logger *slog.Logger) (*engine.Engine, error) {
	admin := common.HexToAddress(cfg.Engine.AdminAddress)
	params := engine.Params{
		MinBetAmount:     cfg.Engine.MinBetAmount,
		MaxBetAmount:     cfg.Engine.MaxBetAmount,
		MinDuration:      cfg.Engine.MinDurationSecs,
		MaxDuration:      cfg.Engine.MaxDurationSecs,
		PayoutMultiplier: cfg.Engine.PayoutMultiplier,
		FeeBps:           cfg.Engine.FeeBps,
		PriceStaleness:   cfg.Engine.PriceStaleness,
		ClockSkew:        cfg.Engine.ClockSkew,
	}
	clock := domain.ClockFunc(func() uint64 { return uint64(time.Now().Unix()) })

	state, err := journal.State().Load(ctx)
	if errors.Is(err, domain.ErrNotFound) {
		eng := engine.New(admin, params, clock, valueLedger, logger, engine.WithJournal(journal))
		if cfg.Oracle.Address != "" {
			oracle := common.HexToAddress(cfg.Oracle.Address)
			if err := eng.SetOracleAddress(ctx, admin, oracle); err != nil {
				return nil, fmt.Errorf("wire: register oracle: %w", err)
			}
		}
		return eng, nil
	}
	if err != nil {
		return nil, fmt.Errorf("wire: load contract state: %w", err)
	}

	bets, err := journal.Bets().ListAll(ctx)
	if err != nil {
		return nil, fmt.Errorf("wire: load bets: %w", err)
	}
	stats, err := journal.UserStats().ListAll(ctx)
	if err != nil {
		return nil, fmt.Errorf("wire: load user stats: %w", err)
	}
	pools, err := journal.DailyPools().ListAll(ctx)
	if err != nil {
		return nil, fmt.Errorf("wire: load daily pools: %w", err)
	}
	configTable, err := journal.Config().ListAll(ctx)
	if err != nil {
		return nil, fmt.Errorf("wire: load config table: %w", err)
	}

	snap := engine.Snapshot{
		State:      state,
		Bets:       bets,
		UserStats:  stats,
		DailyPools: pools,
		Config:     configTable,
	}

	logger.InfoContext(ctx, "restored engine state",
		slog.Uint64("total_bets", state.TotalBets),
		slog.Uint64("house_balance", state.HouseBalance),
		slog.Int("open_records", len(bets)),
	)

	return engine.New(admin, params, clock, valueLedger, logger,
		engine.WithJournal(journal),
		engine.WithSnapshot(snap),
	), nil
}
