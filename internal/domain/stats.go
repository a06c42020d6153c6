package domain

import "github.com/ethereum/go-ethereum/common"

// UserStats aggregates a user's betting history. Created lazily on the first
// accepted bet and updated on settlement.
type UserStats struct {
	User         common.Address
	TotalBets    uint64
	TotalWagered uint64
	TotalWon     uint64
	WinCount     uint64
}

// DailyPool aggregates volume for one UTC day bucket (timestamp / 86400).
// Created lazily on the first bet of the day; never deleted.
type DailyPool struct {
	Day         uint64
	TotalVolume uint64
	BetCount    uint64
}

// DayBucket returns the daily pool key for a timestamp in seconds.
func DayBucket(ts uint64) uint64 {
	return ts / 86_400
}

// ContractStats is the read-only snapshot of the engine's global counters.
type ContractStats struct {
	TotalBets        uint64
	TotalVolume      uint64
	HouseBalance     uint64
	LockedStakes     uint64
	ReservedExposure uint64
	CurrentBetID     uint64
	Paused           bool
	PauseReason      string
	Admin            common.Address
	Oracle           common.Address
}
