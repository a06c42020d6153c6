package domain

import (
	"context"

	"github.com/ethereum/go-ethereum/common"
)

// ValueLedger is the external value-transfer primitive. Both operations are
// atomic and all-or-nothing: a returned error means no value moved. Debit
// moves funds from an account into the contract escrow; Credit pays out of
// the escrow.
//
// Implementations must return ErrInsufficientBalance when the source account
// cannot cover the amount.
type ValueLedger interface {
	Debit(ctx context.Context, from common.Address, amount uint64) error
	Credit(ctx context.Context, to common.Address, amount uint64) error
}

// Clock supplies the engine's time source in seconds. It stands in for the
// execution environment's block time; the engine never reads the wall clock
// directly, which keeps expiry and staleness checks reproducible in tests.
type Clock interface {
	Now() uint64
}

// ClockFunc adapts an ordinary function to the Clock interface.
type ClockFunc func() uint64

func (f ClockFunc) Now() uint64 { return f() }
