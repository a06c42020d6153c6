package engine

import (
	"context"
	"log/slog"

	"github.com/ethereum/go-ethereum/common"

	"github.com/alanyoungcy/wagerhouse/internal/domain"
)

// UpdatePrice records a new attested reference price. The caller must be the
// configured oracle and the contract must not be paused. The supplied
// timestamp must fall within
// [now - staleness, now + clock skew] of the engine clock and must not
// regress before the previously accepted point; violations report the oracle
// error code.
func (e *Engine) UpdatePrice(ctx context.Context, caller common.Address, price, timestamp uint64) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if err := e.requireOracle(caller); err != nil {
		return err
	}
	if err := e.requireNotPaused(); err != nil {
		return err
	}

	now := e.clock.Now()
	staleness := e.staleness()
	if timestamp+staleness < now || timestamp > now+e.clockSkew() {
		return domain.ErrOracleError
	}
	if e.latest != nil && timestamp < e.latest.Timestamp {
		return domain.ErrOracleError
	}

	e.latest = &domain.PricePoint{
		Price:      price,
		Timestamp:  timestamp,
		ReportedBy: caller,
	}

	e.journalState(ctx)
	e.audit(ctx, "price_updated", map[string]any{
		"price":     price,
		"timestamp": timestamp,
		"oracle":    caller.Hex(),
	})

	e.logger.InfoContext(ctx, "price updated",
		slog.Uint64("price", price),
		slog.Uint64("timestamp", timestamp),
	)

	return nil
}

// LatestPriceInfo returns the current price point, or ok=false if no price
// has ever been accepted.
func (e *Engine) LatestPriceInfo() (domain.PricePoint, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.latest == nil {
		return domain.PricePoint{}, false
	}
	return *e.latest, true
}

// priceFreshLocked reports whether a price point exists and is recent enough
// to settle against; e.mu must be held.
func (e *Engine) priceFreshLocked(now uint64) bool {
	if e.latest == nil {
		return false
	}
	return e.latest.Timestamp+e.staleness() >= now
}
