package postgres

import (
	"context"
	"fmt"

	"github.com/ethereum/go-ethereum/common"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/alanyoungcy/wagerhouse/internal/domain"
)

// StateStore implements domain.StateStore using PostgreSQL. The contract
// state is a single row overwritten on every save.
type StateStore struct {
	pool *pgxpool.Pool
}

// NewStateStore creates a new StateStore backed by the given connection pool.
func NewStateStore(pool *pgxpool.Pool) *StateStore {
	return &StateStore{pool: pool}
}

// Save overwrites the singleton contract state row.
func (s *StateStore) Save(ctx context.Context, snap domain.StateSnapshot) error {
	const query = `
		INSERT INTO contract_state (
			id, admin_address, oracle_address, paused, pause_reason,
			house_balance, locked_stakes, reserved_exposure,
			total_bets, total_volume, current_bet_id,
			price_value, price_timestamp, price_reported_by, updated_at
		) VALUES (1, $1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, NOW())
		ON CONFLICT (id) DO UPDATE SET
			admin_address     = EXCLUDED.admin_address,
			oracle_address    = EXCLUDED.oracle_address,
			paused            = EXCLUDED.paused,
			pause_reason      = EXCLUDED.pause_reason,
			house_balance     = EXCLUDED.house_balance,
			locked_stakes     = EXCLUDED.locked_stakes,
			reserved_exposure = EXCLUDED.reserved_exposure,
			total_bets        = EXCLUDED.total_bets,
			total_volume      = EXCLUDED.total_volume,
			current_bet_id    = EXCLUDED.current_bet_id,
			price_value       = EXCLUDED.price_value,
			price_timestamp   = EXCLUDED.price_timestamp,
			price_reported_by = EXCLUDED.price_reported_by,
			updated_at        = NOW()`

	var (
		priceValue *int64
		priceTS    *int64
		priceBy    *string
	)
	if snap.LatestPrice != nil {
		v := int64(snap.LatestPrice.Price)
		ts := int64(snap.LatestPrice.Timestamp)
		by := snap.LatestPrice.ReportedBy.Hex()
		priceValue, priceTS, priceBy = &v, &ts, &by
	}

	_, err := s.pool.Exec(ctx, query,
		snap.Admin.Hex(), snap.Oracle.Hex(), snap.Paused, snap.PauseReason,
		int64(snap.HouseBalance), int64(snap.LockedStakes), int64(snap.ReservedExposure),
		int64(snap.TotalBets), int64(snap.TotalVolume), int64(snap.CurrentBetID),
		priceValue, priceTS, priceBy,
	)
	if err != nil {
		return fmt.Errorf("postgres: save contract state: %w", err)
	}
	return nil
}

// Load reads the singleton contract state row. Returns domain.ErrNotFound on
// a fresh database.
func (s *StateStore) Load(ctx context.Context) (domain.StateSnapshot, error) {
	const query = `
		SELECT admin_address, oracle_address, paused, pause_reason,
			house_balance, locked_stakes, reserved_exposure,
			total_bets, total_volume, current_bet_id,
			price_value, price_timestamp, price_reported_by
		FROM contract_state WHERE id = 1`

	var (
		snap       domain.StateSnapshot
		adminAddr  string
		oracleAddr string
		house      int64
		locked     int64
		reserved   int64
		totalBets  int64
		totalVol   int64
		currentID  int64
		priceValue *int64
		priceTS    *int64
		priceBy    *string
	)
	err := s.pool.QueryRow(ctx, query).Scan(
		&adminAddr, &oracleAddr, &snap.Paused, &snap.PauseReason,
		&house, &locked, &reserved, &totalBets, &totalVol, &currentID,
		&priceValue, &priceTS, &priceBy,
	)
	if err != nil {
		if err == pgx.ErrNoRows {
			return domain.StateSnapshot{}, domain.ErrNotFound
		}
		return domain.StateSnapshot{}, fmt.Errorf("postgres: load contract state: %w", err)
	}

	snap.Admin = common.HexToAddress(adminAddr)
	snap.Oracle = common.HexToAddress(oracleAddr)
	snap.HouseBalance = uint64(house)
	snap.LockedStakes = uint64(locked)
	snap.ReservedExposure = uint64(reserved)
	snap.TotalBets = uint64(totalBets)
	snap.TotalVolume = uint64(totalVol)
	snap.CurrentBetID = uint64(currentID)

	if priceValue != nil && priceTS != nil {
		point := domain.PricePoint{
			Price:     uint64(*priceValue),
			Timestamp: uint64(*priceTS),
		}
		if priceBy != nil {
			point.ReportedBy = common.HexToAddress(*priceBy)
		}
		snap.LatestPrice = &point
	}
	return snap, nil
}
