package domain

import (
	"context"
	"time"

	"github.com/ethereum/go-ethereum/common"
)

// ListOpts provides pagination for list queries.
type ListOpts struct {
	Limit  int
	Offset int
}

// BetStore persists bet records.
type BetStore interface {
	Upsert(ctx context.Context, bet Bet) error
	GetByID(ctx context.Context, id uint64) (Bet, error)
	ListByOwner(ctx context.Context, owner common.Address, opts ListOpts) ([]Bet, error)
	ListByState(ctx context.Context, state BetState, opts ListOpts) ([]Bet, error)
	ListAll(ctx context.Context) ([]Bet, error)
	ListSettledBefore(ctx context.Context, before uint64) ([]Bet, error)
	DeleteSettledBefore(ctx context.Context, before uint64) (int64, error)
}

// UserStatsStore persists per-user aggregates.
type UserStatsStore interface {
	Upsert(ctx context.Context, stats UserStats) error
	Get(ctx context.Context, user common.Address) (UserStats, error)
	ListAll(ctx context.Context) ([]UserStats, error)
}

// DailyPoolStore persists per-day aggregates.
type DailyPoolStore interface {
	Upsert(ctx context.Context, pool DailyPool) error
	Get(ctx context.Context, day uint64) (DailyPool, error)
	ListAll(ctx context.Context) ([]DailyPool, error)
}

// ConfigStore persists the admin config table.
type ConfigStore interface {
	Set(ctx context.Context, key ConfigKey, value uint64) error
	Get(ctx context.Context, key ConfigKey) (uint64, error)
	ListAll(ctx context.Context) (map[ConfigKey]uint64, error)
}

// StateSnapshot is the persisted singleton contract state.
type StateSnapshot struct {
	Admin            common.Address
	Oracle           common.Address
	Paused           bool
	PauseReason      string
	HouseBalance     uint64
	LockedStakes     uint64
	ReservedExposure uint64
	TotalBets        uint64
	TotalVolume      uint64
	CurrentBetID     uint64
	LatestPrice      *PricePoint
}

// StateStore persists the singleton contract state snapshot.
type StateStore interface {
	Save(ctx context.Context, snap StateSnapshot) error
	Load(ctx context.Context) (StateSnapshot, error)
}

// AuditEntry is a single audit log row.
type AuditEntry struct {
	ID        int64
	Event     string
	Detail    map[string]any
	CreatedAt time.Time
}

// AuditStore persists an append-only audit log.
type AuditStore interface {
	Log(ctx context.Context, event string, detail map[string]any) error
	List(ctx context.Context, opts ListOpts) ([]AuditEntry, error)
	ListBefore(ctx context.Context, before time.Time) ([]AuditEntry, error)
	DeleteBefore(ctx context.Context, before time.Time) (int64, error)
}

// Journal receives write-behind persistence callbacks after the engine
// commits a mutation. The in-memory engine state is canonical; a journal
// failure is logged, never propagated into the already-committed operation.
type Journal interface {
	RecordBet(ctx context.Context, bet Bet) error
	RecordUserStats(ctx context.Context, stats UserStats) error
	RecordDailyPool(ctx context.Context, pool DailyPool) error
	RecordConfig(ctx context.Context, key ConfigKey, value uint64) error
	RecordState(ctx context.Context, snap StateSnapshot) error
	Audit(ctx context.Context, event string, detail map[string]any) error
}

// NopJournal discards all records. Used when no persistence is configured.
type NopJournal struct{}

func (NopJournal) RecordBet(context.Context, Bet) error                   { return nil }
func (NopJournal) RecordUserStats(context.Context, UserStats) error       { return nil }
func (NopJournal) RecordDailyPool(context.Context, DailyPool) error       { return nil }
func (NopJournal) RecordConfig(context.Context, ConfigKey, uint64) error  { return nil }
func (NopJournal) RecordState(context.Context, StateSnapshot) error       { return nil }
func (NopJournal) Audit(context.Context, string, map[string]any) error    { return nil }
