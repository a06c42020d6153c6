package engine

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/ethereum/go-ethereum/common"

	"github.com/alanyoungcy/wagerhouse/internal/domain"
)

// SetOracleAddress rotates the oracle principal. Admin-only.
func (e *Engine) SetOracleAddress(ctx context.Context, caller, oracle common.Address) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if err := e.requireAdmin(caller); err != nil {
		return err
	}

	e.oracle = oracle
	e.journalState(ctx)
	e.audit(ctx, "oracle_changed", map[string]any{"oracle": oracle.Hex()})

	e.logger.InfoContext(ctx, "oracle address set",
		slog.String("oracle", oracle.Hex()),
	)
	return nil
}

// SetContractPause flips the global pause flag. Admin-only and
// unconditional; the reason is kept for audit purposes only.
func (e *Engine) SetContractPause(ctx context.Context, caller common.Address, paused bool, reason string) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if err := e.requireAdmin(caller); err != nil {
		return err
	}

	e.paused = paused
	e.pauseReason = reason
	e.journalState(ctx)

	event := "contract_unpaused"
	if paused {
		event = "contract_paused"
	}
	e.audit(ctx, event, map[string]any{"reason": reason})

	e.logger.InfoContext(ctx, "contract pause flag set",
		slog.Bool("paused", paused),
		slog.String("reason", reason),
	)
	return nil
}

// SetConfig writes an entry in the admin config table. Admin-only; succeeds
// unconditionally for any key, recognized or not.
func (e *Engine) SetConfig(ctx context.Context, caller common.Address, key domain.ConfigKey, value uint64) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if err := e.requireAdmin(caller); err != nil {
		return err
	}

	e.config[key] = value
	if err := e.journal.RecordConfig(ctx, key, value); err != nil {
		e.logger.WarnContext(ctx, "journal config failed",
			slog.String("key", string(key)),
			slog.String("error", err.Error()),
		)
	}
	e.audit(ctx, "config_set", map[string]any{"key": string(key), "value": value})

	e.logger.InfoContext(ctx, "config set",
		slog.String("key", string(key)),
		slog.Uint64("value", value),
	)
	return nil
}

// DepositHouseBalance moves funds from the admin's external account into the
// backing pool. Admin-only. Without a deposit the solvency guard rejects
// every bet.
func (e *Engine) DepositHouseBalance(ctx context.Context, caller common.Address, amount uint64) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if err := e.requireAdmin(caller); err != nil {
		return err
	}
	if err := e.ledger.Debit(ctx, caller, amount); err != nil {
		return fmt.Errorf("engine: deposit: %w", err)
	}

	e.houseBalance += amount
	e.journalState(ctx)
	e.audit(ctx, "house_deposit", map[string]any{"amount": amount})

	e.logger.InfoContext(ctx, "house balance deposited",
		slog.Uint64("amount", amount),
		slog.Uint64("house_balance", e.houseBalance),
	)
	return nil
}

// WithdrawHouseBalance pays out unreserved backing funds to the admin.
// Funds reserved against ACTIVE bets are not withdrawable.
func (e *Engine) WithdrawHouseBalance(ctx context.Context, caller common.Address, amount uint64) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if err := e.requireAdmin(caller); err != nil {
		return err
	}
	if e.houseBalance < e.reserved || amount > e.houseBalance-e.reserved {
		return domain.ErrInsufficientBalance
	}
	if err := e.ledger.Credit(ctx, caller, amount); err != nil {
		return fmt.Errorf("engine: withdraw: %w", err)
	}

	e.houseBalance -= amount
	e.journalState(ctx)
	e.audit(ctx, "house_withdraw", map[string]any{"amount": amount})

	e.logger.InfoContext(ctx, "house balance withdrawn",
		slog.Uint64("amount", amount),
		slog.Uint64("house_balance", e.houseBalance),
	)
	return nil
}
