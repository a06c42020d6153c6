// Package engine implements the escrow-and-settlement state machine for
// binary price-direction wagers: bet lifecycle, pool solvency guard, oracle
// price feed, and the resolution paths.
//
// All state lives in memory behind a single mutex; every public operation is
// serialized and all-or-nothing. Time comes from an injected Clock and value
// movement from an injected ValueLedger, so the engine is deterministic given
// the same call trace.
package engine

import (
	"context"
	"log/slog"
	"sync"

	"github.com/ethereum/go-ethereum/common"

	"github.com/alanyoungcy/wagerhouse/internal/domain"
)

// Params are the engine's default operating parameters. Each one can be
// overridden at runtime through the admin config table (see domain.ConfigKey).
type Params struct {
	MinBetAmount      uint64 // micro-units
	MaxBetAmount      uint64 // micro-units
	MinDuration       uint64 // seconds
	MaxDuration       uint64 // seconds
	PayoutMultiplier  uint64 // basis points of the stake
	FeeBps            uint64 // basis points of the gross payout
	PriceStaleness    uint64 // seconds
	ClockSkew         uint64 // seconds
}

// DefaultParams returns the standard production parameters.
func DefaultParams() Params {
	return Params{
		MinBetAmount:     100_000,         // 0.1 units
		MaxBetAmount:     100_000_000_000, // 100,000 units
		MinDuration:      3_600,           // 1 hour
		MaxDuration:      2_592_000,       // 30 days
		PayoutMultiplier: 20_000,          // 2x
		FeeBps:           200,             // 2% of the gross payout
		PriceStaleness:   3_600,
		ClockSkew:        300,
	}
}

// Snapshot carries restored state into New. The zero value is a fresh
// deployment: empty ledger, zero balances, bet ids starting at 1.
type Snapshot struct {
	State      domain.StateSnapshot
	Bets       []domain.Bet
	UserStats  []domain.UserStats
	DailyPools []domain.DailyPool
	Config     map[domain.ConfigKey]uint64
}

// Engine is the settlement state machine. Construct with New; the zero value
// is not usable.
type Engine struct {
	mu sync.Mutex

	params Params
	clock  domain.Clock
	ledger domain.ValueLedger

	journal domain.Journal
	logger  *slog.Logger

	admin       common.Address
	oracle      common.Address
	paused      bool
	pauseReason string

	houseBalance uint64 // backing funds, distinct from locked stakes
	lockedStakes uint64 // user-owned wager amounts held in escrow
	reserved     uint64 // sum of MaxPayout over ACTIVE bets
	totalBets    uint64
	totalVolume  uint64
	nextBetID    uint64

	latest *domain.PricePoint

	bets       map[uint64]*domain.Bet
	userStats  map[common.Address]*domain.UserStats
	dailyPools map[uint64]*domain.DailyPool
	config     map[domain.ConfigKey]uint64
}

// Option configures optional engine collaborators.
type Option func(*Engine)

// WithJournal attaches a write-behind persistence journal.
func WithJournal(j domain.Journal) Option {
	return func(e *Engine) { e.journal = j }
}

// WithSnapshot restores previously persisted state.
func WithSnapshot(snap Snapshot) Option {
	return func(e *Engine) { e.restore(snap) }
}

// New creates an Engine with the given admin principal, parameters, clock,
// and value ledger. The oracle principal starts unset; SetOracleAddress must
// be called before price updates are accepted.
func New(admin common.Address, params Params, clock domain.Clock, ledger domain.ValueLedger, logger *slog.Logger, opts ...Option) *Engine {
	e := &Engine{
		params:     params,
		clock:      clock,
		ledger:     ledger,
		journal:    domain.NopJournal{},
		logger:     logger.With(slog.String("component", "engine")),
		admin:      admin,
		nextBetID:  1,
		bets:       make(map[uint64]*domain.Bet),
		userStats:  make(map[common.Address]*domain.UserStats),
		dailyPools: make(map[uint64]*domain.DailyPool),
		config:     make(map[domain.ConfigKey]uint64),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

func (e *Engine) restore(snap Snapshot) {
	s := snap.State
	if s.Admin != (common.Address{}) {
		e.admin = s.Admin
	}
	e.oracle = s.Oracle
	e.paused = s.Paused
	e.pauseReason = s.PauseReason
	e.houseBalance = s.HouseBalance
	e.lockedStakes = s.LockedStakes
	e.reserved = s.ReservedExposure
	e.totalBets = s.TotalBets
	e.totalVolume = s.TotalVolume
	if s.CurrentBetID > 0 {
		e.nextBetID = s.CurrentBetID
	}
	if s.LatestPrice != nil {
		p := *s.LatestPrice
		e.latest = &p
	}
	for _, b := range snap.Bets {
		bet := b
		e.bets[bet.ID] = &bet
	}
	for _, us := range snap.UserStats {
		stats := us
		e.userStats[stats.User] = &stats
	}
	for _, dp := range snap.DailyPools {
		pool := dp
		e.dailyPools[pool.Day] = &pool
	}
	for k, v := range snap.Config {
		e.config[k] = v
	}
}

// ---------------------------------------------------------------------------
// Access control
// ---------------------------------------------------------------------------

func (e *Engine) requireAdmin(caller common.Address) error {
	if caller != e.admin {
		return domain.ErrUnauthorized
	}
	return nil
}

func (e *Engine) requireOracle(caller common.Address) error {
	if e.oracle == (common.Address{}) || caller != e.oracle {
		return domain.ErrUnauthorized
	}
	return nil
}

func (e *Engine) requireNotPaused() error {
	if e.paused {
		return domain.ErrUnauthorized
	}
	return nil
}

// ---------------------------------------------------------------------------
// Effective parameters (defaults overridable through the config table)
// ---------------------------------------------------------------------------

func (e *Engine) param(key domain.ConfigKey, def uint64) uint64 {
	if v, ok := e.config[key]; ok {
		return v
	}
	return def
}

func (e *Engine) minBet() uint64      { return e.param(domain.KeyMinBetAmount, e.params.MinBetAmount) }
func (e *Engine) maxBet() uint64      { return e.param(domain.KeyMaxBetAmount, e.params.MaxBetAmount) }
func (e *Engine) minDuration() uint64 { return e.param(domain.KeyMinDuration, e.params.MinDuration) }
func (e *Engine) maxDuration() uint64 { return e.param(domain.KeyMaxDuration, e.params.MaxDuration) }
func (e *Engine) multiplierBps() uint64 {
	return e.param(domain.KeyPayoutMultiplier, e.params.PayoutMultiplier)
}
func (e *Engine) feeBps() uint64      { return e.param(domain.KeyFeeBps, e.params.FeeBps) }
func (e *Engine) staleness() uint64   { return e.param(domain.KeyPriceStalenessSecs, e.params.PriceStaleness) }
func (e *Engine) clockSkew() uint64   { return e.param(domain.KeyClockSkewSecs, e.params.ClockSkew) }
func (e *Engine) maxDailyBets() uint64 { return e.param(domain.KeyMaxDailyBets, 0) }

// payoutFor returns the gross reservation and the net win payout for a stake.
func (e *Engine) payoutFor(amount uint64) (gross, net uint64) {
	gross = amount * e.multiplierBps() / 10_000
	fee := gross * e.feeBps() / 10_000
	return gross, gross - fee
}

// ---------------------------------------------------------------------------
// Journal helpers. Journal failures never unwind a committed operation; they
// are logged and the in-memory state stays canonical.
// ---------------------------------------------------------------------------

func (e *Engine) journalBet(ctx context.Context, bet domain.Bet) {
	if err := e.journal.RecordBet(ctx, bet); err != nil {
		e.logger.WarnContext(ctx, "journal bet failed",
			slog.Uint64("bet_id", bet.ID),
			slog.String("error", err.Error()),
		)
	}
}

func (e *Engine) journalUserStats(ctx context.Context, stats domain.UserStats) {
	if err := e.journal.RecordUserStats(ctx, stats); err != nil {
		e.logger.WarnContext(ctx, "journal user stats failed",
			slog.String("user", stats.User.Hex()),
			slog.String("error", err.Error()),
		)
	}
}

func (e *Engine) journalDailyPool(ctx context.Context, pool domain.DailyPool) {
	if err := e.journal.RecordDailyPool(ctx, pool); err != nil {
		e.logger.WarnContext(ctx, "journal daily pool failed",
			slog.Uint64("day", pool.Day),
			slog.String("error", err.Error()),
		)
	}
}

func (e *Engine) journalState(ctx context.Context) {
	if err := e.journal.RecordState(ctx, e.snapshotLocked()); err != nil {
		e.logger.WarnContext(ctx, "journal state failed",
			slog.String("error", err.Error()),
		)
	}
}

func (e *Engine) audit(ctx context.Context, event string, detail map[string]any) {
	if err := e.journal.Audit(ctx, event, detail); err != nil {
		e.logger.WarnContext(ctx, "audit log failed",
			slog.String("event", event),
			slog.String("error", err.Error()),
		)
	}
}

// snapshotLocked builds a StateSnapshot; e.mu must be held.
func (e *Engine) snapshotLocked() domain.StateSnapshot {
	snap := domain.StateSnapshot{
		Admin:            e.admin,
		Oracle:           e.oracle,
		Paused:           e.paused,
		PauseReason:      e.pauseReason,
		HouseBalance:     e.houseBalance,
		LockedStakes:     e.lockedStakes,
		ReservedExposure: e.reserved,
		TotalBets:        e.totalBets,
		TotalVolume:      e.totalVolume,
		CurrentBetID:     e.nextBetID,
	}
	if e.latest != nil {
		p := *e.latest
		snap.LatestPrice = &p
	}
	return snap
}
