package postgres

import (
	"context"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/alanyoungcy/wagerhouse/internal/domain"
)

// Journal implements domain.Journal by fanning each record out to the
// matching store. The engine's in-memory state stays canonical; this is the
// write-behind durability path.
type Journal struct {
	bets   *BetStore
	stats  *UserStatsStore
	pools  *DailyPoolStore
	config *ConfigStore
	state  *StateStore
	audit  *AuditStore
}

// NewJournal creates a Journal with stores bound to the given connection pool.
func NewJournal(pool *pgxpool.Pool) *Journal {
	return &Journal{
		bets:   NewBetStore(pool),
		stats:  NewUserStatsStore(pool),
		pools:  NewDailyPoolStore(pool),
		config: NewConfigStore(pool),
		state:  NewStateStore(pool),
		audit:  NewAuditStore(pool),
	}
}

// Bets exposes the underlying bet store for reads and archival.
func (j *Journal) Bets() *BetStore { return j.bets }

// AuditLog exposes the underlying audit store for reads and archival.
func (j *Journal) AuditLog() *AuditStore { return j.audit }

// State exposes the underlying state store for startup restore.
func (j *Journal) State() *StateStore { return j.state }

// UserStats exposes the underlying user stats store for startup restore.
func (j *Journal) UserStats() *UserStatsStore { return j.stats }

// DailyPools exposes the underlying daily pool store for startup restore.
func (j *Journal) DailyPools() *DailyPoolStore { return j.pools }

// Config exposes the underlying config store for startup restore.
func (j *Journal) Config() *ConfigStore { return j.config }

func (j *Journal) RecordBet(ctx context.Context, bet domain.Bet) error {
	return j.bets.Upsert(ctx, bet)
}

func (j *Journal) RecordUserStats(ctx context.Context, stats domain.UserStats) error {
	return j.stats.Upsert(ctx, stats)
}

func (j *Journal) RecordDailyPool(ctx context.Context, pool domain.DailyPool) error {
	return j.pools.Upsert(ctx, pool)
}

func (j *Journal) RecordConfig(ctx context.Context, key domain.ConfigKey, value uint64) error {
	return j.config.Set(ctx, key, value)
}

func (j *Journal) RecordState(ctx context.Context, snap domain.StateSnapshot) error {
	return j.state.Save(ctx, snap)
}

func (j *Journal) Audit(ctx context.Context, event string, detail map[string]any) error {
	return j.audit.Log(ctx, event, detail)
}

var _ domain.Journal = (*Journal)(nil)
