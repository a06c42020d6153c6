package engine

import (
	"github.com/ethereum/go-ethereum/common"

	"github.com/alanyoungcy/wagerhouse/internal/domain"
)

// Read-only lookups. All return an explicit ok marker for unknown keys and
// never mutate state.

// BetInfo returns the bet record for id.
func (e *Engine) BetInfo(id uint64) (domain.Bet, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()

	bet, ok := e.bets[id]
	if !ok {
		return domain.Bet{}, false
	}
	return *bet, true
}

// UserStats returns the aggregates for user. Absent until the user's first
// accepted bet.
func (e *Engine) UserStats(user common.Address) (domain.UserStats, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()

	stats, ok := e.userStats[user]
	if !ok {
		return domain.UserStats{}, false
	}
	return *stats, true
}

// DailyPool returns the aggregates for a day bucket.
func (e *Engine) DailyPool(day uint64) (domain.DailyPool, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()

	pool, ok := e.dailyPools[day]
	if !ok {
		return domain.DailyPool{}, false
	}
	return *pool, true
}

// Config returns the stored value for key.
func (e *Engine) Config(key domain.ConfigKey) (uint64, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()

	v, ok := e.config[key]
	return v, ok
}

// ContractStats returns the global counters snapshot.
func (e *Engine) ContractStats() domain.ContractStats {
	e.mu.Lock()
	defer e.mu.Unlock()

	return domain.ContractStats{
		TotalBets:        e.totalBets,
		TotalVolume:      e.totalVolume,
		HouseBalance:     e.houseBalance,
		LockedStakes:     e.lockedStakes,
		ReservedExposure: e.reserved,
		CurrentBetID:     e.nextBetID,
		Paused:           e.paused,
		PauseReason:      e.pauseReason,
		Admin:            e.admin,
		Oracle:           e.oracle,
	}
}

// ContractBalance is the total value held in escrow: backing funds plus
// locked stakes.
func (e *Engine) ContractBalance() uint64 {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.houseBalance + e.lockedStakes
}

// UserActiveBetStatus reports whether bet id exists, belongs to user, and is
// still ACTIVE.
func (e *Engine) UserActiveBetStatus(user common.Address, id uint64) bool {
	e.mu.Lock()
	defer e.mu.Unlock()

	bet, ok := e.bets[id]
	return ok && bet.Owner == user && bet.State == domain.BetActive
}

// Snapshot returns a copy of the full engine state for persistence.
func (e *Engine) Snapshot() Snapshot {
	e.mu.Lock()
	defer e.mu.Unlock()

	snap := Snapshot{
		State:  e.snapshotLocked(),
		Config: make(map[domain.ConfigKey]uint64, len(e.config)),
	}
	for _, bet := range e.bets {
		snap.Bets = append(snap.Bets, *bet)
	}
	for _, stats := range e.userStats {
		snap.UserStats = append(snap.UserStats, *stats)
	}
	for _, pool := range e.dailyPools {
		snap.DailyPools = append(snap.DailyPools, *pool)
	}
	for k, v := range e.config {
		snap.Config[k] = v
	}
	return snap
}
