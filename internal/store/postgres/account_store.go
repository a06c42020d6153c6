package postgres

import (
	"context"
	"fmt"

	"github.com/ethereum/go-ethereum/common"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/alanyoungcy/wagerhouse/internal/domain"
)

// AccountLedger implements domain.ValueLedger on top of an accounts table.
// Debits use a conditional UPDATE so a concurrent drain cannot push a
// balance negative.
type AccountLedger struct {
	pool *pgxpool.Pool
}

// NewAccountLedger creates a new AccountLedger backed by the given connection pool.
func NewAccountLedger(pool *pgxpool.Pool) *AccountLedger {
	return &AccountLedger{pool: pool}
}

// Debit withdraws amount from the account. Returns
// domain.ErrInsufficientBalance when the balance cannot cover it.
func (l *AccountLedger) Debit(ctx context.Context, from common.Address, amount uint64) error {
	const query = `UPDATE accounts SET balance = balance - $2, updated_at = NOW()
		WHERE address = $1 AND balance >= $2`

	tag, err := l.pool.Exec(ctx, query, from.Hex(), int64(amount))
	if err != nil {
		return fmt.Errorf("postgres: debit %s: %w", from.Hex(), err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrInsufficientBalance
	}
	return nil
}

// Credit deposits amount into the account, creating it if needed.
func (l *AccountLedger) Credit(ctx context.Context, to common.Address, amount uint64) error {
	const query = `
		INSERT INTO accounts (address, balance, updated_at)
		VALUES ($1, $2, NOW())
		ON CONFLICT (address) DO UPDATE SET
			balance    = accounts.balance + EXCLUDED.balance,
			updated_at = NOW()`

	if _, err := l.pool.Exec(ctx, query, to.Hex(), int64(amount)); err != nil {
		return fmt.Errorf("postgres: credit %s: %w", to.Hex(), err)
	}
	return nil
}

// Balance reads the current balance, zero for unknown accounts.
func (l *AccountLedger) Balance(ctx context.Context, addr common.Address) (uint64, error) {
	const query = `SELECT COALESCE((SELECT balance FROM accounts WHERE address = $1), 0)`

	var balance int64
	if err := l.pool.QueryRow(ctx, query, addr.Hex()).Scan(&balance); err != nil {
		return 0, fmt.Errorf("postgres: balance %s: %w", addr.Hex(), err)
	}
	return uint64(balance), nil
}

var _ domain.ValueLedger = (*AccountLedger)(nil)
