package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/alanyoungcy/wagerhouse/internal/domain"
)

// ConfigStore implements domain.ConfigStore using PostgreSQL.
type ConfigStore struct {
	pool *pgxpool.Pool
}

// NewConfigStore creates a new ConfigStore backed by the given connection pool.
func NewConfigStore(pool *pgxpool.Pool) *ConfigStore {
	return &ConfigStore{pool: pool}
}

// Set writes a config entry. Arbitrary keys are accepted.
func (s *ConfigStore) Set(ctx context.Context, key domain.ConfigKey, value uint64) error {
	const query = `
		INSERT INTO engine_config (key, value, updated_at)
		VALUES ($1, $2, NOW())
		ON CONFLICT (key) DO UPDATE SET
			value      = EXCLUDED.value,
			updated_at = NOW()`

	if _, err := s.pool.Exec(ctx, query, string(key), int64(value)); err != nil {
		return fmt.Errorf("postgres: set config %s: %w", key, err)
	}
	return nil
}

// Get retrieves a single config entry.
func (s *ConfigStore) Get(ctx context.Context, key domain.ConfigKey) (uint64, error) {
	const query = `SELECT value FROM engine_config WHERE key = $1`

	var value int64
	err := s.pool.QueryRow(ctx, query, string(key)).Scan(&value)
	if err != nil {
		if err == pgx.ErrNoRows {
			return 0, domain.ErrNotFound
		}
		return 0, fmt.Errorf("postgres: get config %s: %w", key, err)
	}
	return uint64(value), nil
}

// ListAll returns the full config table. Used for startup state restore.
func (s *ConfigStore) ListAll(ctx context.Context) (map[domain.ConfigKey]uint64, error) {
	const query = `SELECT key, value FROM engine_config`

	rows, err := s.pool.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("postgres: list config: %w", err)
	}
	defer rows.Close()

	out := make(map[domain.ConfigKey]uint64)
	for rows.Next() {
		var (
			key   string
			value int64
		)
		if err := rows.Scan(&key, &value); err != nil {
			return nil, fmt.Errorf("postgres: scan config: %w", err)
		}
		out[domain.ConfigKey(key)] = uint64(value)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("postgres: list config rows: %w", err)
	}
	return out, nil
}
