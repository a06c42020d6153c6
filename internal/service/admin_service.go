package service

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/ethereum/go-ethereum/common"

	"github.com/alanyoungcy/wagerhouse/internal/domain"
	"github.com/alanyoungcy/wagerhouse/internal/engine"
	"github.com/alanyoungcy/wagerhouse/internal/notify"
)

// AdminService fronts the admin-gated engine operations. Calls are made as
// the engine's admin address; the HTTP layer gates access with the admin API
// key.
type AdminService struct {
	engine   *engine.Engine
	bus      domain.SignalBus
	notifier *notify.Notifier
	logger   *slog.Logger
}

// NewAdminService creates an AdminService. The bus and notifier may be nil.
func NewAdminService(eng *engine.Engine, bus domain.SignalBus, notifier *notify.Notifier, logger *slog.Logger) *AdminService {
	return &AdminService{
		engine:   eng,
		bus:      bus,
		notifier: notifier,
		logger:   logger,
	}
}

func (s *AdminService) admin() common.Address {
	return s.engine.ContractStats().Admin
}

// SetPause flips the contract pause flag. Pausing blocks new bets, price
// updates, and ordinary resolution; only cancellation and emergency
// resolution remain available while paused.
func (s *AdminService) SetPause(ctx context.Context, paused bool, reason string) error {
	if err := s.engine.SetContractPause(ctx, s.admin(), paused, reason); err != nil {
		return err
	}

	event := "contract_unpaused"
	if paused {
		event = "contract_paused"
	}
	publishStatus(ctx, s.bus, s.logger, domain.StatusEvent{Event: event, Reason: reason})

	if s.notifier != nil && paused {
		msg := "contract paused"
		if reason != "" {
			msg = fmt.Sprintf("contract paused: %s", reason)
		}
		if nErr := s.notifier.Notify(ctx, "contract_paused", "Contract paused", msg); nErr != nil {
			s.logger.WarnContext(ctx, "admin_service: pause notification failed",
				slog.String("error", nErr.Error()),
			)
		}
	}

	return nil
}

// SetOracle registers a new oracle address.
func (s *AdminService) SetOracle(ctx context.Context, oracle common.Address) error {
	if err := s.engine.SetOracleAddress(ctx, s.admin(), oracle); err != nil {
		return err
	}

	publishStatus(ctx, s.bus, s.logger, domain.StatusEvent{Event: "oracle_changed", Oracle: oracle.Hex()})
	return nil
}

// SetConfig writes an entry in the admin config table. Recognized keys
// override the engine's operating parameters; unrecognized keys are stored
// verbatim.
func (s *AdminService) SetConfig(ctx context.Context, key domain.ConfigKey, value uint64) error {
	return s.engine.SetConfig(ctx, s.admin(), key, value)
}

// Deposit moves funds from the admin's account into the house balance.
func (s *AdminService) Deposit(ctx context.Context, amount uint64) error {
	return s.engine.DepositHouseBalance(ctx, s.admin(), amount)
}

// Withdraw moves unreserved house funds back to the admin's account.
func (s *AdminService) Withdraw(ctx context.Context, amount uint64) error {
	return s.engine.WithdrawHouseBalance(ctx, s.admin(), amount)
}

// CancelBet voids an active bet before expiry and refunds the full stake to
// its owner.
func (s *AdminService) CancelBet(ctx context.Context, id uint64) (domain.Bet, error) {
	bet, err := s.engine.CancelBet(ctx, s.admin(), id)
	if err != nil {
		return domain.Bet{}, err
	}

	publishSettlement(ctx, s.bus, s.logger, "bet_cancelled", bet, 0)
	return bet, nil
}

// EmergencyResolve settles a bet with an explicit payout while the contract
// is paused. The payout is capped at the bet's gross contingent liability.
func (s *AdminService) EmergencyResolve(ctx context.Context, id, payout uint64) (domain.Bet, error) {
	bet, err := s.engine.EmergencyResolveBet(ctx, s.admin(), id, payout)
	if err != nil {
		return domain.Bet{}, err
	}

	publishSettlement(ctx, s.bus, s.logger, "bet_emergency_resolved", bet, 0)
	return bet, nil
}
