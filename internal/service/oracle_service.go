package service

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/ethereum/go-ethereum/common"

	"github.com/alanyoungcy/wagerhouse/internal/crypto"
	"github.com/alanyoungcy/wagerhouse/internal/domain"
	"github.com/alanyoungcy/wagerhouse/internal/engine"
	"github.com/alanyoungcy/wagerhouse/internal/notify"
)

// OracleService fronts the oracle-gated engine operations: price updates and
// bet resolution. All engine calls are made as the currently registered
// oracle address; the HTTP layer gates access with the oracle API key, and
// optionally with an ECDSA attestation over each price update.
type OracleService struct {
	engine             *engine.Engine
	priceCache         domain.PriceCache
	bus                domain.SignalBus
	notifier           *notify.Notifier
	requireAttestation bool
	logger             *slog.Logger
}

// NewOracleService creates an OracleService. priceCache, bus, and notifier
// may be nil when the corresponding backend is not configured.
func NewOracleService(
	eng *engine.Engine,
	priceCache domain.PriceCache,
	bus domain.SignalBus,
	notifier *notify.Notifier,
	requireAttestation bool,
	logger *slog.Logger,
) *OracleService {
	return &OracleService{
		engine:             eng,
		priceCache:         priceCache,
		bus:                bus,
		notifier:           notifier,
		requireAttestation: requireAttestation,
		logger:             logger,
	}
}

// oracle returns the current contract stats, rejecting when no oracle is
// registered yet.
func (s *OracleService) oracle() (domain.ContractStats, error) {
	stats := s.engine.ContractStats()
	if stats.Oracle == (common.Address{}) {
		return stats, domain.ErrOracleError
	}
	return stats, nil
}

// UpdatePrice records a new reference price. When attestation is required,
// signature must be a hex-encoded ECDSA signature over the price and
// timestamp that recovers to the registered oracle address.
func (s *OracleService) UpdatePrice(ctx context.Context, price, timestamp uint64, signature string) error {
	stats, err := s.oracle()
	if err != nil {
		return err
	}

	if s.requireAttestation {
		if signature == "" {
			return fmt.Errorf("oracle_service: missing price attestation: %w", domain.ErrUnauthorized)
		}
		if vErr := crypto.VerifyAttestation(price, timestamp, signature, stats.Oracle); vErr != nil {
			return fmt.Errorf("oracle_service: %w: %v", domain.ErrUnauthorized, vErr)
		}
	}

	if err := s.engine.UpdatePrice(ctx, stats.Oracle, price, timestamp); err != nil {
		return err
	}

	point := domain.PricePoint{Price: price, Timestamp: timestamp, ReportedBy: stats.Oracle}
	if s.priceCache != nil {
		if cErr := s.priceCache.Set(ctx, point); cErr != nil {
			s.logger.WarnContext(ctx, "oracle_service: price cache update failed",
				slog.String("error", cErr.Error()),
			)
		}
	}

	if s.bus != nil {
		evt, mErr := json.Marshal(domain.PriceUpdatedEvent{
			Event:     "price_updated",
			Price:     price,
			Timestamp: timestamp,
		})
		if mErr == nil {
			if pubErr := s.bus.Publish(ctx, domain.ChannelPrices, evt); pubErr != nil {
				s.logger.WarnContext(ctx, "oracle_service: publish price event failed",
					slog.String("error", pubErr.Error()),
				)
			}
		}
	}

	return nil
}

// LatestPrice returns the engine's current reference price, if one has been
// recorded.
func (s *OracleService) LatestPrice(ctx context.Context) (domain.PricePoint, bool) {
	return s.engine.LatestPriceInfo()
}

// ResolveBet settles an expired bet against the given final price.
func (s *OracleService) ResolveBet(ctx context.Context, id, finalPrice uint64) (domain.Bet, error) {
	stats, err := s.oracle()
	if err != nil {
		return domain.Bet{}, err
	}

	bet, err := s.engine.ResolveBet(ctx, stats.Oracle, id, finalPrice)
	if err != nil {
		return domain.Bet{}, err
	}

	s.afterResolve(ctx, bet, finalPrice)
	return bet, nil
}

// ResolveBatch settles a batch of bets independently; one entry failing does
// not abort the rest. Results are returned in request order.
func (s *OracleService) ResolveBatch(ctx context.Context, reqs []engine.ResolveRequest) ([]engine.ResolveResult, error) {
	stats, err := s.oracle()
	if err != nil {
		return nil, err
	}

	results := s.engine.ResolveBatch(ctx, stats.Oracle, reqs)
	for i, res := range results {
		if res.Err == nil {
			s.afterResolve(ctx, res.Bet, reqs[i].FinalPrice)
		}
	}
	return results, nil
}

// ListResolvable returns expired active bets in placement order, up to limit.
func (s *OracleService) ListResolvable(ctx context.Context, limit int) []domain.Bet {
	return s.engine.ListResolvable(limit)
}

// CanBetBeResolved reports whether the bet exists, is active, and has
// expired.
func (s *OracleService) CanBetBeResolved(ctx context.Context, id uint64) bool {
	return s.engine.CanBetBeResolved(id)
}

func (s *OracleService) afterResolve(ctx context.Context, bet domain.Bet, finalPrice uint64) {
	publishSettlement(ctx, s.bus, s.logger, "bet_resolved", bet, finalPrice)

	if s.notifier != nil {
		msg := fmt.Sprintf("bet %d settled %s, payout %d micro-units", bet.ID, bet.State, bet.Payout)
		if nErr := s.notifier.Notify(ctx, "bet_resolved", "Bet resolved", msg); nErr != nil {
			s.logger.WarnContext(ctx, "oracle_service: resolution notification failed",
				slog.Uint64("bet_id", bet.ID),
				slog.String("error", nErr.Error()),
			)
		}
	}
}
