package service_test

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/alanyoungcy/wagerhouse/internal/domain"
	"github.com/alanyoungcy/wagerhouse/internal/engine"
	"github.com/alanyoungcy/wagerhouse/internal/ledger"
	"github.com/alanyoungcy/wagerhouse/internal/service"
)

var (
	admin  = common.HexToAddress("0x00000000000000000000000000000000000000a1")
	oracle = common.HexToAddress("0x00000000000000000000000000000000000000b2")
	alice  = common.HexToAddress("0x00000000000000000000000000000000000000c3")
)

type fakeClock struct {
	now uint64
}

func (c *fakeClock) Now() uint64 { return c.now }

// memoryBus records published events in process, standing in for the Redis
// signal bus.
type memoryBus struct {
	published map[string][][]byte
	streams   map[string][][]byte
}

func newMemoryBus() *memoryBus {
	return &memoryBus{
		published: make(map[string][][]byte),
		streams:   make(map[string][][]byte),
	}
}

func (b *memoryBus) Publish(ctx context.Context, channel string, payload []byte) error {
	b.published[channel] = append(b.published[channel], payload)
	return nil
}

func (b *memoryBus) Subscribe(ctx context.Context, channel string) (<-chan []byte, error) {
	ch := make(chan []byte)
	close(ch)
	return ch, nil
}

func (b *memoryBus) StreamAppend(ctx context.Context, stream string, payload []byte) error {
	b.streams[stream] = append(b.streams[stream], payload)
	return nil
}

func (b *memoryBus) StreamRead(ctx context.Context, stream, lastID string, count int) ([]domain.StreamMessage, error) {
	return nil, nil
}

type fixture struct {
	bets   *service.BetService
	oracle *service.OracleService
	admin  *service.AdminService
	engine *engine.Engine
	bus    *memoryBus
	clock  *fakeClock
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	ctx := context.Background()

	clock := &fakeClock{now: 1_700_000_000}
	led := ledger.NewMemory()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	eng := engine.New(admin, engine.DefaultParams(), clock, led, logger)

	led.Fund(admin, 10_000_000)
	require.NoError(t, eng.DepositHouseBalance(ctx, admin, 10_000_000))
	require.NoError(t, eng.SetOracleAddress(ctx, admin, oracle))
	require.NoError(t, eng.UpdatePrice(ctx, oracle, 1_000_000, clock.Now()))
	led.Fund(alice, 5_000_000)

	bus := newMemoryBus()
	return &fixture{
		bets:   service.NewBetService(eng, bus, nil, logger),
		oracle: service.NewOracleService(eng, nil, bus, nil, false, logger),
		admin:  service.NewAdminService(eng, bus, nil, logger),
		engine: eng,
		bus:    bus,
		clock:  clock,
	}
}

func TestPlaceBetPublishesEvent(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	bet, err := f.bets.PlaceBet(ctx, alice, 100_000, domain.PredictionRise, 3_600, 1_000_000)
	require.NoError(t, err)
	assert.Equal(t, domain.BetActive, bet.State)
	assert.Equal(t, alice, bet.Owner)

	require.Len(t, f.bus.published[domain.ChannelBets], 1)
	var evt domain.BetPlacedEvent
	require.NoError(t, json.Unmarshal(f.bus.published[domain.ChannelBets][0], &evt))
	assert.Equal(t, "bet_placed", evt.Event)
	assert.Equal(t, bet.ID, evt.BetID)
	assert.Equal(t, "rise", evt.Prediction)

	require.Len(t, f.bus.streams["stream:bets"], 1)
}

func TestPlaceBetRejectionPublishesNothing(t *testing.T) {
	f := newFixture(t)

	_, err := f.bets.PlaceBet(context.Background(), alice, 1, domain.PredictionRise, 3_600, 1_000_000)
	require.ErrorIs(t, err, domain.ErrInvalidBetAmount)
	assert.Empty(t, f.bus.published[domain.ChannelBets])
}

func TestCancelBetPublishesSettlement(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	bet, err := f.bets.PlaceBet(ctx, alice, 100_000, domain.PredictionRise, 3_600, 1_000_000)
	require.NoError(t, err)

	cancelled, err := f.admin.CancelBet(ctx, bet.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.BetCancelled, cancelled.State)

	require.Len(t, f.bus.published[domain.ChannelSettlements], 1)
	var evt domain.BetSettledEvent
	require.NoError(t, json.Unmarshal(f.bus.published[domain.ChannelSettlements][0], &evt))
	assert.Equal(t, "bet_cancelled", evt.Event)
	assert.Equal(t, bet.ID, evt.BetID)
}

func TestResolveBetRunsAsRegisteredOracle(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	bet, err := f.bets.PlaceBet(ctx, alice, 100_000, domain.PredictionRise, 3_600, 1_000_000)
	require.NoError(t, err)

	f.clock.now += 3_601

	resolved, err := f.oracle.ResolveBet(ctx, bet.ID, 1_100_000)
	require.NoError(t, err)
	assert.Equal(t, domain.BetWon, resolved.State)
	assert.Equal(t, uint64(196_000), resolved.Payout)

	require.Len(t, f.bus.published[domain.ChannelSettlements], 1)
	var evt domain.BetSettledEvent
	require.NoError(t, json.Unmarshal(f.bus.published[domain.ChannelSettlements][0], &evt))
	assert.Equal(t, "bet_resolved", evt.Event)
	assert.Equal(t, uint64(1_100_000), evt.FinalPrice)
	assert.Equal(t, uint64(196_000), evt.Payout)
}

func TestResolveBatchPublishesPerSuccess(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	first, err := f.bets.PlaceBet(ctx, alice, 100_000, domain.PredictionRise, 3_600, 1_000_000)
	require.NoError(t, err)
	second, err := f.bets.PlaceBet(ctx, alice, 100_000, domain.PredictionDrop, 3_600, 1_000_000)
	require.NoError(t, err)

	f.clock.now += 3_601

	results, err := f.oracle.ResolveBatch(ctx, []engine.ResolveRequest{
		{BetID: first.ID, FinalPrice: 1_100_000},
		{BetID: second.ID, FinalPrice: 1_100_000},
		{BetID: 999, FinalPrice: 1_100_000},
	})
	require.NoError(t, err)
	require.Len(t, results, 3)

	assert.NoError(t, results[0].Err)
	assert.Equal(t, domain.BetWon, results[0].Bet.State)
	assert.NoError(t, results[1].Err)
	assert.Equal(t, domain.BetLost, results[1].Bet.State)
	assert.ErrorIs(t, results[2].Err, domain.ErrBetNotFound)

	// Two successes, two settlement events.
	assert.Len(t, f.bus.published[domain.ChannelSettlements], 2)
}

func TestUpdatePriceRejectsWithoutRegisteredOracle(t *testing.T) {
	clock := &fakeClock{now: 1_700_000_000}
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	eng := engine.New(admin, engine.DefaultParams(), clock, ledger.NewMemory(), logger)
	svc := service.NewOracleService(eng, nil, nil, nil, false, logger)

	err := svc.UpdatePrice(context.Background(), 1_000_000, clock.Now(), "")
	assert.ErrorIs(t, err, domain.ErrOracleError)
}

func TestUpdatePriceRequiresAttestationWhenConfigured(t *testing.T) {
	f := newFixture(t)
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	svc := service.NewOracleService(f.engine, nil, f.bus, nil, true, logger)

	err := svc.UpdatePrice(context.Background(), 1_000_000, f.clock.Now(), "")
	assert.ErrorIs(t, err, domain.ErrUnauthorized)
}

func TestUpdatePricePublishesEvent(t *testing.T) {
	f := newFixture(t)

	require.NoError(t, f.oracle.UpdatePrice(context.Background(), 1_050_000, f.clock.Now()+10, ""))

	require.Len(t, f.bus.published[domain.ChannelPrices], 1)
	var evt domain.PriceUpdatedEvent
	require.NoError(t, json.Unmarshal(f.bus.published[domain.ChannelPrices][0], &evt))
	assert.Equal(t, uint64(1_050_000), evt.Price)
}

func TestAdminPausePublishesStatus(t *testing.T) {
	f := newFixture(t)

	require.NoError(t, f.admin.SetPause(context.Background(), true, "maintenance"))
	assert.True(t, f.engine.ContractStats().Paused)

	require.Len(t, f.bus.published[domain.ChannelStatus], 1)
	var evt domain.StatusEvent
	require.NoError(t, json.Unmarshal(f.bus.published[domain.ChannelStatus][0], &evt))
	assert.Equal(t, "contract_paused", evt.Event)
	assert.Equal(t, "maintenance", evt.Reason)
}

func TestAdminEmergencyResolvePublishesSettlement(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	bet, err := f.bets.PlaceBet(ctx, alice, 100_000, domain.PredictionRise, 3_600, 1_000_000)
	require.NoError(t, err)

	require.NoError(t, f.admin.SetPause(ctx, true, "incident"))

	resolved, err := f.admin.EmergencyResolve(ctx, bet.ID, 50_000)
	require.NoError(t, err)
	assert.Equal(t, domain.BetEmergencyResolved, resolved.State)

	require.Len(t, f.bus.published[domain.ChannelSettlements], 1)
	var evt domain.BetSettledEvent
	require.NoError(t, json.Unmarshal(f.bus.published[domain.ChannelSettlements][0], &evt))
	assert.Equal(t, "bet_emergency_resolved", evt.Event)
	assert.Equal(t, uint64(50_000), evt.Payout)
}
