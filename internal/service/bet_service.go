package service

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/ethereum/go-ethereum/common"

	"github.com/alanyoungcy/wagerhouse/internal/domain"
	"github.com/alanyoungcy/wagerhouse/internal/engine"
	"github.com/alanyoungcy/wagerhouse/internal/notify"
)

// BetService fronts the engine's bet lifecycle for the HTTP layer. It wraps
// each accepted mutation with event publishing on the signal bus and operator
// notifications, so handlers stay thin.
type BetService struct {
	engine   *engine.Engine
	bus      domain.SignalBus
	notifier *notify.Notifier
	logger   *slog.Logger
}

// NewBetService creates a BetService with all required dependencies. The bus
// and notifier may be nil when running without Redis or alerting.
func NewBetService(eng *engine.Engine, bus domain.SignalBus, notifier *notify.Notifier, logger *slog.Logger) *BetService {
	return &BetService{
		engine:   eng,
		bus:      bus,
		notifier: notifier,
		logger:   logger,
	}
}

// PlaceBet submits a wager on behalf of owner and returns the recorded bet.
// The entry price is the reference price the caller saw when deciding the
// direction; it is stored verbatim and the bet settles against it at expiry.
func (s *BetService) PlaceBet(ctx context.Context, owner common.Address, amount uint64, prediction domain.Prediction, duration, entryPrice uint64) (domain.Bet, error) {
	id, err := s.engine.PlaceBet(ctx, owner, amount, prediction, duration, entryPrice)
	if err != nil {
		return domain.Bet{}, err
	}

	bet, ok := s.engine.BetInfo(id)
	if !ok {
		return domain.Bet{}, fmt.Errorf("bet_service: bet %d vanished after placement", id)
	}

	s.publishBetPlaced(ctx, bet)

	if s.notifier != nil {
		msg := fmt.Sprintf("bet %d: %s %d micro-units on %s for %ds", bet.ID, bet.Owner.Hex(), bet.Amount, bet.Prediction, bet.Duration)
		if nErr := s.notifier.Notify(ctx, "bet_placed", "Bet placed", msg); nErr != nil {
			s.logger.WarnContext(ctx, "bet_service: bet placed notification failed",
				slog.String("error", nErr.Error()),
			)
		}
	}

	return bet, nil
}

// GetBet returns a bet by its ID.
func (s *BetService) GetBet(ctx context.Context, id uint64) (domain.Bet, bool) {
	return s.engine.BetInfo(id)
}

// UserStats returns the aggregate betting history for a user.
func (s *BetService) UserStats(ctx context.Context, user common.Address) (domain.UserStats, bool) {
	return s.engine.UserStats(user)
}

// ActiveBetStatus reports whether the given bet belongs to user and is still
// active.
func (s *BetService) ActiveBetStatus(ctx context.Context, user common.Address, id uint64) bool {
	return s.engine.UserActiveBetStatus(user, id)
}

// publishBetPlaced emits a BetPlacedEvent on the bets channel and appends it
// to the bets stream. Publish failures are logged, never propagated; the bet
// is already committed.
func (s *BetService) publishBetPlaced(ctx context.Context, bet domain.Bet) {
	if s.bus == nil {
		return
	}

	evt, err := json.Marshal(domain.BetPlacedEvent{
		Event:      "bet_placed",
		BetID:      bet.ID,
		Owner:      bet.Owner.Hex(),
		Amount:     bet.Amount,
		Prediction: bet.Prediction.String(),
		EntryPrice: bet.EntryPrice,
		ExpiresAt:  bet.ExpiresAt,
	})
	if err != nil {
		return
	}

	if pubErr := s.bus.Publish(ctx, domain.ChannelBets, evt); pubErr != nil {
		s.logger.WarnContext(ctx, "bet_service: publish bet placed event failed",
			slog.Uint64("bet_id", bet.ID),
			slog.String("error", pubErr.Error()),
		)
	}
	if appErr := s.bus.StreamAppend(ctx, "stream:bets", evt); appErr != nil {
		s.logger.WarnContext(ctx, "bet_service: append bet placed event failed",
			slog.Uint64("bet_id", bet.ID),
			slog.String("error", appErr.Error()),
		)
	}
}
