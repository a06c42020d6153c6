package postgres

import (
	"context"
	"fmt"

	"github.com/ethereum/go-ethereum/common"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/alanyoungcy/wagerhouse/internal/domain"
)

// BetStore implements domain.BetStore using PostgreSQL.
type BetStore struct {
	pool *pgxpool.Pool
}

// NewBetStore creates a new BetStore backed by the given connection pool.
func NewBetStore(pool *pgxpool.Pool) *BetStore {
	return &BetStore{pool: pool}
}

const betColumns = `id, owner, amount, prediction, entry_price, placed_at, duration, expires_at, state, payout, settled_at`

// Upsert inserts or updates a bet record keyed by its engine-assigned id.
func (s *BetStore) Upsert(ctx context.Context, bet domain.Bet) error {
	const query = `
		INSERT INTO bets (id, owner, amount, prediction, entry_price, placed_at, duration, expires_at, state, payout, settled_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, NOW())
		ON CONFLICT (id) DO UPDATE SET
			state      = EXCLUDED.state,
			payout     = EXCLUDED.payout,
			settled_at = EXCLUDED.settled_at,
			updated_at = NOW()`

	_, err := s.pool.Exec(ctx, query,
		int64(bet.ID), bet.Owner.Hex(), int64(bet.Amount), int16(bet.Prediction),
		int64(bet.EntryPrice), int64(bet.PlacedAt), int64(bet.Duration),
		int64(bet.ExpiresAt), string(bet.State), int64(bet.Payout), int64(bet.SettledAt),
	)
	if err != nil {
		return fmt.Errorf("postgres: upsert bet %d: %w", bet.ID, err)
	}
	return nil
}

// GetByID retrieves a single bet.
func (s *BetStore) GetByID(ctx context.Context, id uint64) (domain.Bet, error) {
	query := `SELECT ` + betColumns + ` FROM bets WHERE id = $1`

	row := s.pool.QueryRow(ctx, query, int64(id))
	bet, err := scanBet(row)
	if err != nil {
		if err == pgx.ErrNoRows {
			return domain.Bet{}, domain.ErrNotFound
		}
		return domain.Bet{}, fmt.Errorf("postgres: get bet %d: %w", id, err)
	}
	return bet, nil
}

// ListByOwner returns a user's bets, newest first.
func (s *BetStore) ListByOwner(ctx context.Context, owner common.Address, opts domain.ListOpts) ([]domain.Bet, error) {
	query := `SELECT ` + betColumns + ` FROM bets WHERE owner = $1 ORDER BY id DESC`
	args := []any{owner.Hex()}
	query, args = paginate(query, args, opts)

	return s.queryBets(ctx, query, args...)
}

// ListByState returns bets in a given lifecycle state, oldest first.
func (s *BetStore) ListByState(ctx context.Context, state domain.BetState, opts domain.ListOpts) ([]domain.Bet, error) {
	query := `SELECT ` + betColumns + ` FROM bets WHERE state = $1 ORDER BY id`
	args := []any{string(state)}
	query, args = paginate(query, args, opts)

	return s.queryBets(ctx, query, args...)
}

// ListAll returns every bet in id order. Used for startup state restore.
func (s *BetStore) ListAll(ctx context.Context) ([]domain.Bet, error) {
	return s.queryBets(ctx, `SELECT `+betColumns+` FROM bets ORDER BY id`)
}

// ListSettledBefore returns terminal bets settled strictly before the given
// engine timestamp. Feeds the archiver.
func (s *BetStore) ListSettledBefore(ctx context.Context, before uint64) ([]domain.Bet, error) {
	query := `SELECT ` + betColumns + ` FROM bets
		WHERE state <> $1 AND settled_at > 0 AND settled_at < $2 ORDER BY id`
	return s.queryBets(ctx, query, string(domain.BetActive), int64(before))
}

// DeleteSettledBefore removes terminal bets settled strictly before the
// given engine timestamp, returning the number of rows deleted.
func (s *BetStore) DeleteSettledBefore(ctx context.Context, before uint64) (int64, error) {
	const query = `DELETE FROM bets WHERE state <> $1 AND settled_at > 0 AND settled_at < $2`
	tag, err := s.pool.Exec(ctx, query, string(domain.BetActive), int64(before))
	if err != nil {
		return 0, fmt.Errorf("postgres: delete settled bets: %w", err)
	}
	return tag.RowsAffected(), nil
}

func (s *BetStore) queryBets(ctx context.Context, query string, args ...any) ([]domain.Bet, error) {
	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("postgres: list bets: %w", err)
	}
	defer rows.Close()

	var bets []domain.Bet
	for rows.Next() {
		bet, err := scanBet(rows)
		if err != nil {
			return nil, fmt.Errorf("postgres: scan bet: %w", err)
		}
		bets = append(bets, bet)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("postgres: list bets rows: %w", err)
	}
	return bets, nil
}

// scanBet reads one bet row. Works for both pgx.Row and pgx.Rows.
func scanBet(row pgx.Row) (domain.Bet, error) {
	var (
		bet        domain.Bet
		id         int64
		owner      string
		amount     int64
		prediction int16
		entryPrice int64
		placedAt   int64
		dur        int64
		expiresAt  int64
		state      string
		payout     int64
		settledAt  int64
	)
	if err := row.Scan(&id, &owner, &amount, &prediction, &entryPrice, &placedAt, &dur, &expiresAt, &state, &payout, &settledAt); err != nil {
		return domain.Bet{}, err
	}

	bet.ID = uint64(id)
	bet.Owner = common.HexToAddress(owner)
	bet.Amount = uint64(amount)
	bet.Prediction = domain.Prediction(prediction)
	bet.EntryPrice = uint64(entryPrice)
	bet.PlacedAt = uint64(placedAt)
	bet.Duration = uint64(dur)
	bet.ExpiresAt = uint64(expiresAt)
	bet.State = domain.BetState(state)
	bet.Payout = uint64(payout)
	bet.SettledAt = uint64(settledAt)
	return bet, nil
}

// paginate appends LIMIT/OFFSET clauses per opts.
func paginate(query string, args []any, opts domain.ListOpts) (string, []any) {
	if opts.Limit > 0 {
		args = append(args, opts.Limit)
		query += fmt.Sprintf(" LIMIT $%d", len(args))
	}
	if opts.Offset > 0 {
		args = append(args, opts.Offset)
		query += fmt.Sprintf(" OFFSET $%d", len(args))
	}
	return query, args
}
