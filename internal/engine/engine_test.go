package engine_test

import (
	"context"
	"io"
	"log/slog"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/alanyoungcy/wagerhouse/internal/domain"
	"github.com/alanyoungcy/wagerhouse/internal/engine"
	"github.com/alanyoungcy/wagerhouse/internal/ledger"
)

var (
	admin  = common.HexToAddress("0x00000000000000000000000000000000000000a1")
	oracle = common.HexToAddress("0x00000000000000000000000000000000000000b2")
	alice  = common.HexToAddress("0x00000000000000000000000000000000000000c3")
	bob    = common.HexToAddress("0x00000000000000000000000000000000000000d4")
)

type fakeClock struct {
	now uint64
}

func (c *fakeClock) Now() uint64 { return c.now }

func (c *fakeClock) advance(secs uint64) { c.now += secs }

type fixture struct {
	engine *engine.Engine
	clock  *fakeClock
	ledger *ledger.Memory
}

// newFixture builds a funded engine: the admin has deposited backing funds,
// the oracle principal is set, and a fresh price is on record.
func newFixture(t *testing.T) *fixture {
	t.Helper()
	f := newBareFixture(t)
	ctx := context.Background()

	f.ledger.Fund(admin, 10_000_000)
	require.NoError(t, f.engine.DepositHouseBalance(ctx, admin, 10_000_000))
	require.NoError(t, f.engine.SetOracleAddress(ctx, admin, oracle))
	require.NoError(t, f.engine.UpdatePrice(ctx, oracle, 1_000_000, f.clock.Now()))

	f.ledger.Fund(alice, 5_000_000)
	f.ledger.Fund(bob, 5_000_000)
	return f
}

// newBareFixture builds an engine as freshly deployed: no oracle, no price,
// zero house balance.
func newBareFixture(t *testing.T) *fixture {
	t.Helper()
	clock := &fakeClock{now: 1_700_000_000}
	led := ledger.NewMemory()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	return &fixture{
		engine: engine.New(admin, engine.DefaultParams(), clock, led, logger),
		clock:  clock,
		ledger: led,
	}
}

func placeBet(t *testing.T, f *fixture, owner common.Address, amount uint64) uint64 {
	t.Helper()
	id, err := f.engine.PlaceBet(context.Background(), owner, amount, domain.PredictionRise, 3_600, 1_000_000)
	require.NoError(t, err)
	return id
}

func TestPlaceBetFreshDeploymentRejectsEverything(t *testing.T) {
	f := newBareFixture(t)
	f.ledger.Fund(alice, 5_000_000)

	// With a zero house balance the solvency guard fails for any stake.
	_, err := f.engine.PlaceBet(context.Background(), alice, 100_000, domain.PredictionRise, 3_600, 1_000_000)
	assert.ErrorIs(t, err, domain.ErrInvalidBetAmount)
}

func TestPlaceBetValidation(t *testing.T) {
	tests := []struct {
		name       string
		amount     uint64
		prediction domain.Prediction
		duration   uint64
		want       error
	}{
		{"amount below minimum", 99_999, domain.PredictionRise, 3_600, domain.ErrInvalidBetAmount},
		{"amount above maximum", 100_000_000_001, domain.PredictionRise, 3_600, domain.ErrInvalidBetAmount},
		{"duration below minimum", 100_000, domain.PredictionRise, 3_599, domain.ErrInvalidDuration},
		{"duration above maximum", 100_000, domain.PredictionRise, 2_592_001, domain.ErrInvalidDuration},
		{"prediction zero", 100_000, 0, 3_600, domain.ErrInvalidPrediction},
		{"prediction out of range", 100_000, 3, 3_600, domain.ErrInvalidPrediction},
		{"minimum bounds accepted", 100_000, domain.PredictionRise, 3_600, nil},
		{"drop accepted", 100_000, domain.PredictionDrop, 2_592_000, nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t)
			_, err := f.engine.PlaceBet(context.Background(), alice, tt.amount, tt.prediction, tt.duration, 1_000_000)
			if tt.want == nil {
				assert.NoError(t, err)
			} else {
				assert.ErrorIs(t, err, tt.want)
			}
		})
	}
}

func TestPlaceBetAmountCheckedBeforeDuration(t *testing.T) {
	f := newFixture(t)

	// Both amount and duration invalid: the amount code wins.
	_, err := f.engine.PlaceBet(context.Background(), alice, 1, domain.PredictionRise, 1, 1_000_000)
	assert.ErrorIs(t, err, domain.ErrInvalidBetAmount)
}

func TestPlaceBetPausedBeatsValidation(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	require.NoError(t, f.engine.SetContractPause(ctx, admin, true, "maintenance"))

	// Even a malformed request reports unauthorized while paused.
	_, err := f.engine.PlaceBet(ctx, alice, 1, domain.PredictionRise, 1, 1_000_000)
	assert.ErrorIs(t, err, domain.ErrUnauthorized)

	require.NoError(t, f.engine.SetContractPause(ctx, admin, false, ""))
	_, err = f.engine.PlaceBet(ctx, alice, 100_000, domain.PredictionRise, 3_600, 1_000_000)
	assert.NoError(t, err)
}

func TestPlaceBetPoolCapacity(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	// House balance 10_000_000 covers reservations up to 10_000_000 gross.
	// Each 2_000_000 stake reserves 4_000_000; the third no longer fits.
	for i := 0; i < 2; i++ {
		_, err := f.engine.PlaceBet(ctx, alice, 2_000_000, domain.PredictionRise, 3_600, 1_000_000)
		require.NoError(t, err)
	}
	_, err := f.engine.PlaceBet(ctx, alice, 2_000_000, domain.PredictionRise, 3_600, 1_000_000)
	assert.ErrorIs(t, err, domain.ErrPoolCapacity)
	assert.ErrorIs(t, err, domain.ErrInvalidBetAmount) // same public code

	// A smaller stake still fits in the remainder.
	_, err = f.engine.PlaceBet(ctx, alice, 1_000_000, domain.PredictionRise, 3_600, 1_000_000)
	assert.NoError(t, err)
}

func TestPlaceBetDebitFailureLeavesStateUntouched(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	broke := common.HexToAddress("0x00000000000000000000000000000000000000e5")
	_, err := f.engine.PlaceBet(ctx, broke, 100_000, domain.PredictionRise, 3_600, 1_000_000)
	require.ErrorIs(t, err, domain.ErrInsufficientBalance)

	stats := f.engine.ContractStats()
	assert.Zero(t, stats.TotalBets)
	assert.Zero(t, stats.TotalVolume)
	assert.Zero(t, stats.LockedStakes)
	assert.Equal(t, uint64(1), stats.CurrentBetID)

	_, ok := f.engine.UserStats(broke)
	assert.False(t, ok, "failed bet must not create user stats")
	_, ok = f.engine.DailyPool(domain.DayBucket(f.clock.Now()))
	assert.False(t, ok, "failed bet must not create a daily pool")
}

func TestPlaceBetAccounting(t *testing.T) {
	f := newFixture(t)

	id := placeBet(t, f, alice, 100_000)
	assert.Equal(t, uint64(1), id)

	bet, ok := f.engine.BetInfo(id)
	require.True(t, ok)
	assert.Equal(t, alice, bet.Owner)
	assert.Equal(t, uint64(100_000), bet.Amount)
	assert.Equal(t, domain.BetActive, bet.State)
	assert.Equal(t, f.clock.Now(), bet.PlacedAt)
	assert.Equal(t, f.clock.Now()+3_600, bet.ExpiresAt)
	assert.Equal(t, uint64(1_000_000), bet.EntryPrice)

	stats := f.engine.ContractStats()
	assert.Equal(t, uint64(1), stats.TotalBets)
	assert.Equal(t, uint64(100_000), stats.TotalVolume)
	assert.Equal(t, uint64(100_000), stats.LockedStakes)
	assert.Equal(t, uint64(200_000), stats.ReservedExposure)
	assert.Equal(t, uint64(2), stats.CurrentBetID)

	assert.Equal(t, uint64(4_900_000), f.ledger.Balance(alice))
	assert.Equal(t, uint64(10_000_000+100_000), f.engine.ContractBalance())

	us, ok := f.engine.UserStats(alice)
	require.True(t, ok)
	assert.Equal(t, uint64(1), us.TotalBets)
	assert.Equal(t, uint64(100_000), us.TotalWagered)
	assert.Zero(t, us.TotalWon)

	dp, ok := f.engine.DailyPool(domain.DayBucket(f.clock.Now()))
	require.True(t, ok)
	assert.Equal(t, uint64(100_000), dp.TotalVolume)
	assert.Equal(t, uint64(1), dp.BetCount)
}

func TestPlaceBetDailyCap(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	require.NoError(t, f.engine.SetConfig(ctx, admin, domain.KeyMaxDailyBets, 2))

	placeBet(t, f, alice, 100_000)
	placeBet(t, f, bob, 100_000)

	_, err := f.engine.PlaceBet(ctx, alice, 100_000, domain.PredictionRise, 3_600, 1_000_000)
	assert.ErrorIs(t, err, domain.ErrPoolCapacity)

	// The cap is per day bucket; the next day accepts again.
	f.clock.advance(86_400)
	require.NoError(t, f.engine.UpdatePrice(ctx, oracle, 1_000_000, f.clock.Now()))
	_, err = f.engine.PlaceBet(ctx, alice, 100_000, domain.PredictionRise, 3_600, 1_000_000)
	assert.NoError(t, err)
}

func TestBetIDsMonotonic(t *testing.T) {
	f := newFixture(t)

	assert.Equal(t, uint64(1), placeBet(t, f, alice, 100_000))
	assert.Equal(t, uint64(2), placeBet(t, f, bob, 100_000))
	assert.Equal(t, uint64(3), placeBet(t, f, alice, 100_000))
}

func TestAdminOperationsRejectNonAdmin(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	assert.ErrorIs(t, f.engine.SetOracleAddress(ctx, alice, bob), domain.ErrUnauthorized)
	assert.ErrorIs(t, f.engine.SetContractPause(ctx, alice, true, "x"), domain.ErrUnauthorized)
	assert.ErrorIs(t, f.engine.SetConfig(ctx, alice, domain.KeyMinBetAmount, 1), domain.ErrUnauthorized)
	assert.ErrorIs(t, f.engine.DepositHouseBalance(ctx, alice, 1), domain.ErrUnauthorized)
	assert.ErrorIs(t, f.engine.WithdrawHouseBalance(ctx, alice, 1), domain.ErrUnauthorized)
	_, err := f.engine.CancelBet(ctx, alice, 1)
	assert.ErrorIs(t, err, domain.ErrUnauthorized)
	_, err = f.engine.EmergencyResolveBet(ctx, alice, 1, 0)
	assert.ErrorIs(t, err, domain.ErrUnauthorized)
}

func TestOracleOperationsRejectOthers(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	assert.ErrorIs(t, f.engine.UpdatePrice(ctx, admin, 1, f.clock.Now()), domain.ErrUnauthorized)
	_, err := f.engine.ResolveBet(ctx, admin, 1, 1)
	assert.ErrorIs(t, err, domain.ErrUnauthorized)
}

func TestUnsetOracleRejectsEveryone(t *testing.T) {
	f := newBareFixture(t)

	// No oracle configured: even the admin cannot push prices.
	err := f.engine.UpdatePrice(context.Background(), admin, 1, f.clock.Now())
	assert.ErrorIs(t, err, domain.ErrUnauthorized)
}

func TestConfigRoundTrip(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, ok := f.engine.Config(domain.ConfigKey("house-edge"))
	assert.False(t, ok)

	// Arbitrary keys are stored verbatim.
	require.NoError(t, f.engine.SetConfig(ctx, admin, domain.ConfigKey("house-edge"), 42))
	v, ok := f.engine.Config(domain.ConfigKey("house-edge"))
	require.True(t, ok)
	assert.Equal(t, uint64(42), v)

	// Overwrite wins.
	require.NoError(t, f.engine.SetConfig(ctx, admin, domain.ConfigKey("house-edge"), 7))
	v, _ = f.engine.Config(domain.ConfigKey("house-edge"))
	assert.Equal(t, uint64(7), v)
}

func TestConfigOverridesBetLimits(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	require.NoError(t, f.engine.SetConfig(ctx, admin, domain.KeyMinBetAmount, 500_000))
	_, err := f.engine.PlaceBet(ctx, alice, 100_000, domain.PredictionRise, 3_600, 1_000_000)
	assert.ErrorIs(t, err, domain.ErrInvalidBetAmount)
	_, err = f.engine.PlaceBet(ctx, alice, 500_000, domain.PredictionRise, 3_600, 1_000_000)
	assert.NoError(t, err)
}

func TestWithdrawRespectsReservations(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	placeBet(t, f, alice, 2_000_000) // reserves 4_000_000

	err := f.engine.WithdrawHouseBalance(ctx, admin, 6_000_001)
	assert.ErrorIs(t, err, domain.ErrInsufficientBalance)

	require.NoError(t, f.engine.WithdrawHouseBalance(ctx, admin, 6_000_000))
	assert.Equal(t, uint64(6_000_000), f.ledger.Balance(admin))
	assert.Equal(t, uint64(4_000_000), f.engine.ContractStats().HouseBalance)
}

func TestReadsAbsentKeys(t *testing.T) {
	f := newFixture(t)

	_, ok := f.engine.BetInfo(99)
	assert.False(t, ok)
	_, ok = f.engine.UserStats(bob)
	assert.False(t, ok)
	_, ok = f.engine.DailyPool(1)
	assert.False(t, ok)
	assert.False(t, f.engine.UserActiveBetStatus(bob, 99))
}

func TestUserActiveBetStatus(t *testing.T) {
	f := newFixture(t)
	id := placeBet(t, f, alice, 100_000)

	assert.True(t, f.engine.UserActiveBetStatus(alice, id))
	assert.False(t, f.engine.UserActiveBetStatus(bob, id), "wrong owner")

	f.clock.advance(3_600)
	_, err := f.engine.ResolveBet(context.Background(), oracle, id, 1_100_000)
	require.NoError(t, err)
	assert.False(t, f.engine.UserActiveBetStatus(alice, id), "settled bet is not active")
}

func TestSnapshotRestoreRoundTrip(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	id := placeBet(t, f, alice, 100_000)
	require.NoError(t, f.engine.SetConfig(ctx, admin, domain.KeyFeeBps, 300))

	snap := f.engine.Snapshot()

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	restored := engine.New(admin, engine.DefaultParams(), f.clock, f.ledger, logger, engine.WithSnapshot(snap))

	assert.Equal(t, f.engine.ContractStats(), restored.ContractStats())

	bet, ok := restored.BetInfo(id)
	require.True(t, ok)
	orig, _ := f.engine.BetInfo(id)
	assert.Equal(t, orig, bet)

	v, ok := restored.Config(domain.KeyFeeBps)
	require.True(t, ok)
	assert.Equal(t, uint64(300), v)

	// New ids continue where the old instance stopped.
	next, err := restored.PlaceBet(ctx, alice, 100_000, domain.PredictionDrop, 3_600, 1_000_000)
	require.NoError(t, err)
	assert.Equal(t, id+1, next)
}
