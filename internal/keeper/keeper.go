// Package keeper runs the background settlement loops: automatic resolution
// of expired bets and cold-storage archival of settled data. Both loops take
// a distributed lock before working so multiple daemon replicas never settle
// the same bet twice.
package keeper

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/alanyoungcy/wagerhouse/internal/domain"
	"github.com/alanyoungcy/wagerhouse/internal/engine"
)

// resolveLockKey guards a resolution pass across daemon replicas.
const resolveLockKey = "lock:keeper:resolve"

// Resolver is the oracle-side surface the keeper drives. The oracle service
// satisfies it.
type Resolver interface {
	ListResolvable(ctx context.Context, limit int) []domain.Bet
	ResolveBatch(ctx context.Context, reqs []engine.ResolveRequest) ([]engine.ResolveResult, error)
	LatestPrice(ctx context.Context) (domain.PricePoint, bool)
}

// Config holds the resolution loop settings.
type Config struct {
	Interval  time.Duration
	BatchSize int
	LockTTL   time.Duration
}

// Keeper periodically resolves expired bets against the latest oracle price.
type Keeper struct {
	resolver Resolver
	locks    domain.LockManager
	cfg      Config
	logger   *slog.Logger
}

// New creates a Keeper. locks may be nil when running a single replica
// without Redis; the keeper then resolves without cross-replica exclusion.
func New(resolver Resolver, locks domain.LockManager, cfg Config, logger *slog.Logger) *Keeper {
	return &Keeper{
		resolver: resolver,
		locks:    locks,
		cfg:      cfg,
		logger:   logger,
	}
}

// Run executes resolution passes at the configured interval until the
// context is cancelled.
func (k *Keeper) Run(ctx context.Context) error {
	k.logger.Info("keeper: resolution loop started",
		slog.Duration("interval", k.cfg.Interval),
		slog.Int("batch_size", k.cfg.BatchSize),
	)

	ticker := time.NewTicker(k.cfg.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			k.logger.Info("keeper: resolution loop stopped")
			return ctx.Err()
		case <-ticker.C:
			if err := k.runOnce(ctx); err != nil {
				k.logger.Error("keeper: resolution pass failed",
					slog.String("error", err.Error()),
				)
			}
		}
	}
}

// runOnce performs a single resolution pass under the distributed lock.
func (k *Keeper) runOnce(ctx context.Context) error {
	if k.locks != nil {
		unlock, err := k.locks.Acquire(ctx, resolveLockKey, k.cfg.LockTTL)
		if err != nil {
			if errors.Is(err, domain.ErrLockHeld) {
				// Another replica is resolving this round.
				return nil
			}
			return err
		}
		defer unlock()
	}

	due := k.resolver.ListResolvable(ctx, k.cfg.BatchSize)
	if len(due) == 0 {
		return nil
	}

	price, ok := k.resolver.LatestPrice(ctx)
	if !ok {
		k.logger.Warn("keeper: expired bets pending but no reference price recorded",
			slog.Int("pending", len(due)),
		)
		return nil
	}

	reqs := make([]engine.ResolveRequest, 0, len(due))
	for _, bet := range due {
		reqs = append(reqs, engine.ResolveRequest{BetID: bet.ID, FinalPrice: price.Price})
	}

	results, err := k.resolver.ResolveBatch(ctx, reqs)
	if err != nil {
		return err
	}

	var resolved, failed int
	for _, res := range results {
		if res.Err != nil {
			failed++
			k.logger.Warn("keeper: bet resolution failed",
				slog.Uint64("bet_id", res.BetID),
				slog.String("error", res.Err.Error()),
			)
			continue
		}
		resolved++
	}

	k.logger.Info("keeper: resolution pass complete",
		slog.Int("resolved", resolved),
		slog.Int("failed", failed),
		slog.Uint64("final_price", price.Price),
	)
	return nil
}
