// Package ledger provides value-transfer implementations of
// domain.ValueLedger. The in-memory ledger backs tests and single-node
// deployments; the PostgreSQL-backed ledger lives in store/postgres.
package ledger

import (
	"context"
	"sync"

	"github.com/ethereum/go-ethereum/common"

	"github.com/alanyoungcy/wagerhouse/internal/domain"
)

// Memory is an in-process account book. Debit and Credit are atomic and
// all-or-nothing.
type Memory struct {
	mu       sync.Mutex
	balances map[common.Address]uint64
	escrow   uint64
}

// NewMemory creates an empty in-memory ledger.
func NewMemory() *Memory {
	return &Memory{balances: make(map[common.Address]uint64)}
}

// Fund sets an account balance directly. Test and bootstrap helper.
func (m *Memory) Fund(addr common.Address, amount uint64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.balances[addr] = amount
}

// Balance returns the current balance of addr.
func (m *Memory) Balance(addr common.Address) uint64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.balances[addr]
}

// Escrow returns the total value currently held by the contract.
func (m *Memory) Escrow() uint64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.escrow
}

// Debit moves amount from the account into escrow. Returns
// domain.ErrInsufficientBalance when the account cannot cover it.
func (m *Memory) Debit(ctx context.Context, from common.Address, amount uint64) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.balances[from] < amount {
		return domain.ErrInsufficientBalance
	}
	m.balances[from] -= amount
	m.escrow += amount
	return nil
}

// Credit pays amount out of escrow to the account.
func (m *Memory) Credit(ctx context.Context, to common.Address, amount uint64) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.escrow < amount {
		return domain.ErrInsufficientBalance
	}
	m.escrow -= amount
	m.balances[to] += amount
	return nil
}

var _ domain.ValueLedger = (*Memory)(nil)
