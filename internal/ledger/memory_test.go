package ledger_test

import (
	"context"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/alanyoungcy/wagerhouse/internal/domain"
	"github.com/alanyoungcy/wagerhouse/internal/ledger"
)

func TestMemoryDebitCredit(t *testing.T) {
	ctx := context.Background()
	m := ledger.NewMemory()
	addr := common.HexToAddress("0x00000000000000000000000000000000000000aa")

	m.Fund(addr, 1_000)
	require.NoError(t, m.Debit(ctx, addr, 400))
	assert.Equal(t, uint64(600), m.Balance(addr))
	assert.Equal(t, uint64(400), m.Escrow())

	require.NoError(t, m.Credit(ctx, addr, 150))
	assert.Equal(t, uint64(750), m.Balance(addr))
	assert.Equal(t, uint64(250), m.Escrow())
}

func TestMemoryDebitInsufficient(t *testing.T) {
	ctx := context.Background()
	m := ledger.NewMemory()
	addr := common.HexToAddress("0x00000000000000000000000000000000000000ab")

	m.Fund(addr, 100)
	err := m.Debit(ctx, addr, 101)
	assert.ErrorIs(t, err, domain.ErrInsufficientBalance)
	assert.Equal(t, uint64(100), m.Balance(addr), "failed debit leaves balance intact")
	assert.Zero(t, m.Escrow())
}

func TestMemoryCreditOverEscrow(t *testing.T) {
	ctx := context.Background()
	m := ledger.NewMemory()
	addr := common.HexToAddress("0x00000000000000000000000000000000000000ac")

	err := m.Credit(ctx, addr, 1)
	assert.ErrorIs(t, err, domain.ErrInsufficientBalance)
}
