package engine

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/ethereum/go-ethereum/common"

	"github.com/alanyoungcy/wagerhouse/internal/domain"
)

// PlaceBet validates and accepts a new wager from caller, debiting the stake
// from the caller's external account. Validation order is fixed and part of
// the observable contract: pause, amount, duration, prediction, then the
// solvency guard. Pool capacity exhaustion reports the same code as a
// malformed amount.
//
// On success the assigned bet id is returned and the stake is held in escrow
// until resolution.
func (e *Engine) PlaceBet(ctx context.Context, caller common.Address, amount uint64, prediction domain.Prediction, duration uint64, currentPrice uint64) (uint64, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if err := e.requireNotPaused(); err != nil {
		return 0, err
	}
	if amount < e.minBet() || amount > e.maxBet() {
		return 0, domain.ErrInvalidBetAmount
	}
	if duration < e.minDuration() || duration > e.maxDuration() {
		return 0, domain.ErrInvalidDuration
	}
	if !prediction.Valid() {
		return 0, domain.ErrInvalidPrediction
	}

	// Pool solvency guard: the full contingent payout must fit inside the
	// unreserved house balance before the bet is accepted.
	gross, _ := e.payoutFor(amount)
	if e.houseBalance < e.reserved || e.houseBalance-e.reserved < gross {
		return 0, domain.ErrPoolCapacity
	}

	now := e.clock.Now()
	day := domain.DayBucket(now)

	// Optional per-day acceptance cap, reported as the capacity class.
	if limit := e.maxDailyBets(); limit > 0 {
		if pool, ok := e.dailyPools[day]; ok && pool.BetCount >= limit {
			return 0, domain.ErrPoolCapacity
		}
	}

	// External stake transfer. A failure here aborts the whole operation
	// with no state mutated.
	if err := e.ledger.Debit(ctx, caller, amount); err != nil {
		return 0, fmt.Errorf("engine: debit stake: %w", err)
	}

	id := e.nextBetID
	e.nextBetID++

	bet := &domain.Bet{
		ID:         id,
		Owner:      caller,
		Amount:     amount,
		Prediction: prediction,
		EntryPrice: currentPrice,
		PlacedAt:   now,
		Duration:   duration,
		ExpiresAt:  now + duration,
		State:      domain.BetActive,
	}
	e.bets[id] = bet

	e.lockedStakes += amount
	e.reserved += gross
	e.totalBets++
	e.totalVolume += amount

	pool, ok := e.dailyPools[day]
	if !ok {
		pool = &domain.DailyPool{Day: day}
		e.dailyPools[day] = pool
	}
	pool.TotalVolume += amount
	pool.BetCount++

	stats, ok := e.userStats[caller]
	if !ok {
		stats = &domain.UserStats{User: caller}
		e.userStats[caller] = stats
	}
	stats.TotalBets++
	stats.TotalWagered += amount

	e.journalBet(ctx, *bet)
	e.journalUserStats(ctx, *stats)
	e.journalDailyPool(ctx, *pool)
	e.journalState(ctx)
	e.audit(ctx, "bet_placed", map[string]any{
		"bet_id":      id,
		"owner":       caller.Hex(),
		"amount":      amount,
		"prediction":  prediction.String(),
		"entry_price": currentPrice,
		"expires_at":  bet.ExpiresAt,
	})

	e.logger.InfoContext(ctx, "bet placed",
		slog.Uint64("bet_id", id),
		slog.String("owner", caller.Hex()),
		slog.Uint64("amount", amount),
		slog.String("prediction", prediction.String()),
		slog.Uint64("expires_at", bet.ExpiresAt),
	)

	return id, nil
}
