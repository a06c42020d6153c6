// Package domain defines the core types, store interfaces, and error codes
// for the wagerhouse escrow-and-settlement engine.
package domain

import "github.com/ethereum/go-ethereum/common"

// Prediction is the wagered price direction.
type Prediction uint8

const (
	PredictionRise Prediction = 1
	PredictionDrop Prediction = 2
)

// Valid reports whether p is one of the two recognized directions.
func (p Prediction) Valid() bool {
	return p == PredictionRise || p == PredictionDrop
}

func (p Prediction) String() string {
	switch p {
	case PredictionRise:
		return "rise"
	case PredictionDrop:
		return "drop"
	default:
		return "invalid"
	}
}

// BetState is the lifecycle state of a bet. Transitions are one-directional:
// ACTIVE moves to exactly one terminal state and never changes again.
type BetState string

const (
	BetActive            BetState = "active"
	BetWon               BetState = "won"
	BetLost              BetState = "lost"
	BetCancelled         BetState = "cancelled"
	BetEmergencyResolved BetState = "emergency_resolved"
)

// Terminal reports whether the state permits no further transitions.
func (s BetState) Terminal() bool {
	return s != BetActive
}

// Bet is a recorded wager. Amounts and prices are base-currency micro-units.
type Bet struct {
	ID         uint64
	Owner      common.Address
	Amount     uint64
	Prediction Prediction
	EntryPrice uint64
	PlacedAt   uint64 // seconds, from the engine clock
	Duration   uint64 // seconds
	ExpiresAt  uint64 // PlacedAt + Duration
	State      BetState
	Payout     uint64 // set only on settlement
	SettledAt  uint64 // seconds; zero while active
}

// MaxPayout is the contingent liability reserved against the pool while the
// bet is active: amount scaled by the fixed-odds multiplier, before fees.
func (b Bet) MaxPayout(multiplierBps uint64) uint64 {
	return b.Amount * multiplierBps / 10_000
}
