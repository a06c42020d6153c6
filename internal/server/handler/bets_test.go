package handler

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/alanyoungcy/wagerhouse/internal/domain"
)

var testOwner = common.HexToAddress("0x1111111111111111111111111111111111111111")

type fakeBetService struct {
	bets     map[uint64]domain.Bet
	placeErr error
	placed   []uint64
}

func (f *fakeBetService) PlaceBet(ctx context.Context, owner common.Address, amount uint64, prediction domain.Prediction, duration, entryPrice uint64) (domain.Bet, error) {
	if f.placeErr != nil {
		return domain.Bet{}, f.placeErr
	}
	bet := domain.Bet{
		ID:         1,
		Owner:      owner,
		Amount:     amount,
		Prediction: prediction,
		EntryPrice: entryPrice,
		Duration:   duration,
		State:      domain.BetActive,
	}
	f.placed = append(f.placed, bet.ID)
	return bet, nil
}

func (f *fakeBetService) GetBet(ctx context.Context, id uint64) (domain.Bet, bool) {
	bet, ok := f.bets[id]
	return bet, ok
}

func (f *fakeBetService) UserStats(ctx context.Context, user common.Address) (domain.UserStats, bool) {
	if user == testOwner {
		return domain.UserStats{User: user, TotalBets: 3, TotalWagered: 300_000, TotalWon: 196_000, WinCount: 1}, true
	}
	return domain.UserStats{}, false
}

func (f *fakeBetService) ActiveBetStatus(ctx context.Context, user common.Address, id uint64) bool {
	bet, ok := f.bets[id]
	return ok && bet.Owner == user && bet.State == domain.BetActive
}

func newBetHandler(svc *fakeBetService) *BetHandler {
	return NewBetHandler(svc, slog.New(slog.NewTextHandler(io.Discard, nil)))
}

func newRouter(h *BetHandler) *http.ServeMux {
	mux := http.NewServeMux()
	mux.HandleFunc("POST /api/bets", h.PlaceBet)
	mux.HandleFunc("GET /api/bets/{id}", h.GetBet)
	mux.HandleFunc("GET /api/users/{address}/stats", h.GetUserStats)
	mux.HandleFunc("GET /api/users/{address}/bets/{id}/active", h.GetActiveBetStatus)
	return mux
}

func TestPlaceBetCreated(t *testing.T) {
	svc := &fakeBetService{}
	mux := newRouter(newBetHandler(svc))

	body := `{"owner":"` + testOwner.Hex() + `","amount":100000,"prediction":"rise","duration":3600,"entry_price":1000000}`
	req := httptest.NewRequest(http.MethodPost, "/api/bets", strings.NewReader(body))
	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, req)

	require.Equal(t, http.StatusCreated, rec.Code)

	var got betView
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
	assert.Equal(t, uint64(1), got.ID)
	assert.Equal(t, "rise", got.Prediction)
	assert.Equal(t, "active", got.State)
	assert.Equal(t, testOwner.Hex(), got.Owner)
}

func TestPlaceBetInvalidOwner(t *testing.T) {
	mux := newRouter(newBetHandler(&fakeBetService{}))

	req := httptest.NewRequest(http.MethodPost, "/api/bets", strings.NewReader(`{"owner":"not-an-address"}`))
	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestPlaceBetEngineRejectionCarriesCode(t *testing.T) {
	svc := &fakeBetService{placeErr: domain.ErrInvalidBetAmount}
	mux := newRouter(newBetHandler(svc))

	body := `{"owner":"` + testOwner.Hex() + `","amount":1,"prediction":"rise","duration":3600,"entry_price":1000000}`
	req := httptest.NewRequest(http.MethodPost, "/api/bets", strings.NewReader(body))
	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, req)

	require.Equal(t, http.StatusBadRequest, rec.Code)

	var got struct {
		Error string `json:"error"`
		Code  uint32 `json:"code"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
	assert.Equal(t, uint32(101), got.Code)
	assert.Equal(t, "invalid bet amount", got.Error)
}

func TestGetBetNotFound(t *testing.T) {
	mux := newRouter(newBetHandler(&fakeBetService{bets: map[uint64]domain.Bet{}}))

	req := httptest.NewRequest(http.MethodGet, "/api/bets/42", nil)
	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestGetUserStats(t *testing.T) {
	mux := newRouter(newBetHandler(&fakeBetService{}))

	req := httptest.NewRequest(http.MethodGet, "/api/users/"+testOwner.Hex()+"/stats", nil)
	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)

	var got userStatsResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
	assert.Equal(t, uint64(3), got.TotalBets)
	assert.Equal(t, uint64(196_000), got.TotalWon)
}

func TestGetUserStatsUnknownUser(t *testing.T) {
	mux := newRouter(newBetHandler(&fakeBetService{}))

	req := httptest.NewRequest(http.MethodGet, "/api/users/0x2222222222222222222222222222222222222222/stats", nil)
	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestGetActiveBetStatus(t *testing.T) {
	svc := &fakeBetService{bets: map[uint64]domain.Bet{
		5: {ID: 5, Owner: testOwner, State: domain.BetActive},
	}}
	mux := newRouter(newBetHandler(svc))

	req := httptest.NewRequest(http.MethodGet, "/api/users/"+testOwner.Hex()+"/bets/5/active", nil)
	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)

	var got struct {
		Active bool `json:"active"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
	assert.True(t, got.Active)
}

func TestWriteDomainErrorUnknownErrorIs500(t *testing.T) {
	rec := httptest.NewRecorder()
	writeDomainError(rec, io.ErrUnexpectedEOF)
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
}
