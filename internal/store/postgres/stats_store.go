package postgres

import (
	"context"
	"fmt"

	"github.com/ethereum/go-ethereum/common"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/alanyoungcy/wagerhouse/internal/domain"
)

// UserStatsStore implements domain.UserStatsStore using PostgreSQL.
type UserStatsStore struct {
	pool *pgxpool.Pool
}

// NewUserStatsStore creates a new UserStatsStore backed by the given connection pool.
func NewUserStatsStore(pool *pgxpool.Pool) *UserStatsStore {
	return &UserStatsStore{pool: pool}
}

// Upsert writes a user's aggregates.
func (s *UserStatsStore) Upsert(ctx context.Context, stats domain.UserStats) error {
	const query = `
		INSERT INTO user_stats (user_address, total_bets, total_wagered, total_won, win_count, updated_at)
		VALUES ($1, $2, $3, $4, $5, NOW())
		ON CONFLICT (user_address) DO UPDATE SET
			total_bets    = EXCLUDED.total_bets,
			total_wagered = EXCLUDED.total_wagered,
			total_won     = EXCLUDED.total_won,
			win_count     = EXCLUDED.win_count,
			updated_at    = NOW()`

	_, err := s.pool.Exec(ctx, query,
		stats.User.Hex(), int64(stats.TotalBets), int64(stats.TotalWagered),
		int64(stats.TotalWon), int64(stats.WinCount),
	)
	if err != nil {
		return fmt.Errorf("postgres: upsert user stats %s: %w", stats.User.Hex(), err)
	}
	return nil
}

// Get retrieves a user's aggregates.
func (s *UserStatsStore) Get(ctx context.Context, user common.Address) (domain.UserStats, error) {
	const query = `SELECT user_address, total_bets, total_wagered, total_won, win_count
		FROM user_stats WHERE user_address = $1`

	var (
		stats   domain.UserStats
		addr    string
		bets    int64
		wagered int64
		won     int64
		wins    int64
	)
	err := s.pool.QueryRow(ctx, query, user.Hex()).Scan(&addr, &bets, &wagered, &won, &wins)
	if err != nil {
		if err == pgx.ErrNoRows {
			return domain.UserStats{}, domain.ErrNotFound
		}
		return domain.UserStats{}, fmt.Errorf("postgres: get user stats %s: %w", user.Hex(), err)
	}

	stats.User = common.HexToAddress(addr)
	stats.TotalBets = uint64(bets)
	stats.TotalWagered = uint64(wagered)
	stats.TotalWon = uint64(won)
	stats.WinCount = uint64(wins)
	return stats, nil
}

// ListAll returns every user's aggregates. Used for startup state restore.
func (s *UserStatsStore) ListAll(ctx context.Context) ([]domain.UserStats, error) {
	const query = `SELECT user_address, total_bets, total_wagered, total_won, win_count
		FROM user_stats ORDER BY user_address`

	rows, err := s.pool.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("postgres: list user stats: %w", err)
	}
	defer rows.Close()

	var out []domain.UserStats
	for rows.Next() {
		var (
			stats   domain.UserStats
			addr    string
			bets    int64
			wagered int64
			won     int64
			wins    int64
		)
		if err := rows.Scan(&addr, &bets, &wagered, &won, &wins); err != nil {
			return nil, fmt.Errorf("postgres: scan user stats: %w", err)
		}
		stats.User = common.HexToAddress(addr)
		stats.TotalBets = uint64(bets)
		stats.TotalWagered = uint64(wagered)
		stats.TotalWon = uint64(won)
		stats.WinCount = uint64(wins)
		out = append(out, stats)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("postgres: list user stats rows: %w", err)
	}
	return out, nil
}

// DailyPoolStore implements domain.DailyPoolStore using PostgreSQL.
type DailyPoolStore struct {
	pool *pgxpool.Pool
}

// NewDailyPoolStore creates a new DailyPoolStore backed by the given connection pool.
func NewDailyPoolStore(pool *pgxpool.Pool) *DailyPoolStore {
	return &DailyPoolStore{pool: pool}
}

// Upsert writes a day bucket's aggregates.
func (s *DailyPoolStore) Upsert(ctx context.Context, pool domain.DailyPool) error {
	const query = `
		INSERT INTO daily_pools (day, total_volume, bet_count, updated_at)
		VALUES ($1, $2, $3, NOW())
		ON CONFLICT (day) DO UPDATE SET
			total_volume = EXCLUDED.total_volume,
			bet_count    = EXCLUDED.bet_count,
			updated_at   = NOW()`

	_, err := s.pool.Exec(ctx, query, int64(pool.Day), int64(pool.TotalVolume), int64(pool.BetCount))
	if err != nil {
		return fmt.Errorf("postgres: upsert daily pool %d: %w", pool.Day, err)
	}
	return nil
}

// Get retrieves a day bucket's aggregates.
func (s *DailyPoolStore) Get(ctx context.Context, day uint64) (domain.DailyPool, error) {
	const query = `SELECT day, total_volume, bet_count FROM daily_pools WHERE day = $1`

	var (
		pool   domain.DailyPool
		d      int64
		volume int64
		count  int64
	)
	err := s.pool.QueryRow(ctx, query, int64(day)).Scan(&d, &volume, &count)
	if err != nil {
		if err == pgx.ErrNoRows {
			return domain.DailyPool{}, domain.ErrNotFound
		}
		return domain.DailyPool{}, fmt.Errorf("postgres: get daily pool %d: %w", day, err)
	}

	pool.Day = uint64(d)
	pool.TotalVolume = uint64(volume)
	pool.BetCount = uint64(count)
	return pool, nil
}

// ListAll returns every day bucket. Used for startup state restore.
func (s *DailyPoolStore) ListAll(ctx context.Context) ([]domain.DailyPool, error) {
	const query = `SELECT day, total_volume, bet_count FROM daily_pools ORDER BY day`

	rows, err := s.pool.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("postgres: list daily pools: %w", err)
	}
	defer rows.Close()

	var out []domain.DailyPool
	for rows.Next() {
		var (
			pool   domain.DailyPool
			d      int64
			volume int64
			count  int64
		)
		if err := rows.Scan(&d, &volume, &count); err != nil {
			return nil, fmt.Errorf("postgres: scan daily pool: %w", err)
		}
		pool.Day = uint64(d)
		pool.TotalVolume = uint64(volume)
		pool.BetCount = uint64(count)
		out = append(out, pool)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("postgres: list daily pools rows: %w", err)
	}
	return out, nil
}
