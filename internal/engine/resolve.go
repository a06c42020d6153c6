package engine

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/ethereum/go-ethereum/common"

	"github.com/alanyoungcy/wagerhouse/internal/domain"
)

// ResolveRequest is one entry in a batch resolution.
type ResolveRequest struct {
	BetID      uint64
	FinalPrice uint64
}

// ResolveResult pairs a batch entry with its outcome. Err is nil on success.
type ResolveResult struct {
	BetID uint64
	Bet   domain.Bet
	Err   error
}

// CanBetBeResolved reports whether the bet exists, is ACTIVE, has passed its
// expiry, and a sufficiently fresh oracle price is available. It is false for
// unknown ids and never returns an error.
func (e *Engine) CanBetBeResolved(id uint64) bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.resolvableLocked(id) == nil
}

// resolvableLocked checks the resolution preconditions; e.mu must be held.
func (e *Engine) resolvableLocked(id uint64) error {
	bet, ok := e.bets[id]
	if !ok {
		return domain.ErrBetNotFound
	}
	if bet.State != domain.BetActive {
		return domain.ErrBetNotActive
	}
	now := e.clock.Now()
	if now < bet.ExpiresAt {
		return domain.ErrBetNotExpired
	}
	if !e.priceFreshLocked(now) {
		return domain.ErrOracleError
	}
	return nil
}

// ResolveBet settles a single expired bet against the oracle-supplied final
// price. The caller must be the oracle, the contract must not be paused, and
// the bet must satisfy CanBetBeResolved. RISE wins when finalPrice > entry, DROP wins when
// finalPrice < entry; a tie resolves as a loss. The winner is credited the
// net payout before any state is committed, so a failed external transfer
// leaves the bet untouched.
func (e *Engine) ResolveBet(ctx context.Context, caller common.Address, id, finalPrice uint64) (domain.Bet, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if err := e.requireOracle(caller); err != nil {
		return domain.Bet{}, err
	}
	if err := e.requireNotPaused(); err != nil {
		return domain.Bet{}, err
	}
	if err := e.resolvableLocked(id); err != nil {
		return domain.Bet{}, err
	}

	bet := e.bets[id]
	gross, net := e.payoutFor(bet.Amount)

	won := (bet.Prediction == domain.PredictionRise && finalPrice > bet.EntryPrice) ||
		(bet.Prediction == domain.PredictionDrop && finalPrice < bet.EntryPrice)

	var payout uint64
	if won {
		payout = net
		if err := e.ledger.Credit(ctx, bet.Owner, payout); err != nil {
			return domain.Bet{}, fmt.Errorf("engine: credit payout: %w", err)
		}
	}

	e.settleLocked(bet, gross, payout)
	if won {
		bet.State = domain.BetWon
	} else {
		bet.State = domain.BetLost
	}
	bet.Payout = payout
	bet.SettledAt = e.clock.Now()

	stats := e.userStats[bet.Owner]
	if stats != nil && won {
		stats.TotalWon += payout
		stats.WinCount++
	}

	e.journalBet(ctx, *bet)
	if stats != nil {
		e.journalUserStats(ctx, *stats)
	}
	e.journalState(ctx)
	e.audit(ctx, "bet_resolved", map[string]any{
		"bet_id":      id,
		"state":       string(bet.State),
		"final_price": finalPrice,
		"entry_price": bet.EntryPrice,
		"payout":      payout,
	})

	e.logger.InfoContext(ctx, "bet resolved",
		slog.Uint64("bet_id", id),
		slog.String("state", string(bet.State)),
		slog.Uint64("final_price", finalPrice),
		slog.Uint64("payout", payout),
	)

	return *bet, nil
}

// ResolveBatch applies resolutions strictly in submission order. Each entry
// is independently atomic: one failing does not roll back entries already
// applied.
func (e *Engine) ResolveBatch(ctx context.Context, caller common.Address, reqs []ResolveRequest) []ResolveResult {
	results := make([]ResolveResult, 0, len(reqs))
	for _, req := range reqs {
		bet, err := e.ResolveBet(ctx, caller, req.BetID, req.FinalPrice)
		results = append(results, ResolveResult{BetID: req.BetID, Bet: bet, Err: err})
	}
	return results
}

// CancelBet is the admin escape for an ACTIVE bet that has not yet expired:
// the stake is refunded in full and the solvency reservation released. Once
// expiry passes the outcome is determined and the bet must be resolved, not
// cancelled.
func (e *Engine) CancelBet(ctx context.Context, caller common.Address, id uint64) (domain.Bet, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if err := e.requireAdmin(caller); err != nil {
		return domain.Bet{}, err
	}
	bet, ok := e.bets[id]
	if !ok {
		return domain.Bet{}, domain.ErrBetNotFound
	}
	if bet.State != domain.BetActive {
		return domain.Bet{}, domain.ErrBetNotActive
	}
	if e.clock.Now() >= bet.ExpiresAt {
		return domain.Bet{}, domain.ErrBetNotActive
	}

	if err := e.ledger.Credit(ctx, bet.Owner, bet.Amount); err != nil {
		return domain.Bet{}, fmt.Errorf("engine: refund stake: %w", err)
	}

	gross, _ := e.payoutFor(bet.Amount)
	e.lockedStakes -= bet.Amount
	e.reserved -= gross
	bet.State = domain.BetCancelled
	bet.SettledAt = e.clock.Now()

	e.journalBet(ctx, *bet)
	e.journalState(ctx)
	e.audit(ctx, "bet_cancelled", map[string]any{
		"bet_id": id,
		"owner":  bet.Owner.Hex(),
		"refund": bet.Amount,
	})

	e.logger.InfoContext(ctx, "bet cancelled",
		slog.Uint64("bet_id", id),
		slog.String("owner", bet.Owner.Hex()),
	)

	return *bet, nil
}

// EmergencyResolveBet force-settles an ACTIVE bet with an admin-supplied
// payout, bypassing the price comparison. Usable only while the contract is
// paused. The payout may not exceed the bet's reserved maximum, so the
// solvency release is never bypassed.
func (e *Engine) EmergencyResolveBet(ctx context.Context, caller common.Address, id, payout uint64) (domain.Bet, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if err := e.requireAdmin(caller); err != nil {
		return domain.Bet{}, err
	}
	if !e.paused {
		return domain.Bet{}, domain.ErrUnauthorized
	}
	bet, ok := e.bets[id]
	if !ok {
		return domain.Bet{}, domain.ErrBetNotFound
	}
	if bet.State != domain.BetActive {
		return domain.Bet{}, domain.ErrBetNotActive
	}

	gross, _ := e.payoutFor(bet.Amount)
	if payout > gross {
		return domain.Bet{}, domain.ErrInsufficientBalance
	}

	if payout > 0 {
		if err := e.ledger.Credit(ctx, bet.Owner, payout); err != nil {
			return domain.Bet{}, fmt.Errorf("engine: emergency payout: %w", err)
		}
	}

	e.settleLocked(bet, gross, payout)
	bet.State = domain.BetEmergencyResolved
	bet.Payout = payout
	bet.SettledAt = e.clock.Now()

	e.journalBet(ctx, *bet)
	e.journalState(ctx)
	e.audit(ctx, "bet_emergency_resolved", map[string]any{
		"bet_id": id,
		"owner":  bet.Owner.Hex(),
		"payout": payout,
	})

	e.logger.WarnContext(ctx, "bet emergency resolved",
		slog.Uint64("bet_id", id),
		slog.Uint64("payout", payout),
	)

	return *bet, nil
}

// settleLocked moves a settling bet's stake into the house balance, applies
// the payout, and releases the solvency reservation; e.mu must be held and
// the payout already transferred. The guard invariant keeps
// houseBalance >= reserved >= gross >= payout, so the arithmetic cannot
// underflow.
func (e *Engine) settleLocked(bet *domain.Bet, gross, payout uint64) {
	e.lockedStakes -= bet.Amount
	e.houseBalance = e.houseBalance + bet.Amount - payout
	e.reserved -= gross
}

// ListResolvable returns up to limit ACTIVE bets whose expiry has passed,
// in ascending id order. The price freshness precondition is not checked
// here; the caller resolves against the current feed.
func (e *Engine) ListResolvable(limit int) []domain.Bet {
	e.mu.Lock()
	defer e.mu.Unlock()

	now := e.clock.Now()
	var out []domain.Bet
	// Iterate ids in order so batches are deterministic.
	for id := uint64(1); id < e.nextBetID; id++ {
		bet, ok := e.bets[id]
		if !ok || bet.State != domain.BetActive || now < bet.ExpiresAt {
			continue
		}
		out = append(out, *bet)
		if limit > 0 && len(out) >= limit {
			break
		}
	}
	return out
}
