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

type fakeAdminService struct {
	pauseErr     error
	cancelErr    error
	emergencyErr error
	paused       bool
	oracle       common.Address
	config       map[domain.ConfigKey]uint64
	deposited    uint64
	withdrawn    uint64
}

func (f *fakeAdminService) SetPause(ctx context.Context, paused bool, reason string) error {
	if f.pauseErr != nil {
		return f.pauseErr
	}
	f.paused = paused
	return nil
}

func (f *fakeAdminService) SetOracle(ctx context.Context, oracle common.Address) error {
	f.oracle = oracle
	return nil
}

func (f *fakeAdminService) SetConfig(ctx context.Context, key domain.ConfigKey, value uint64) error {
	if f.config == nil {
		f.config = make(map[domain.ConfigKey]uint64)
	}
	f.config[key] = value
	return nil
}

func (f *fakeAdminService) Deposit(ctx context.Context, amount uint64) error {
	f.deposited += amount
	return nil
}

func (f *fakeAdminService) Withdraw(ctx context.Context, amount uint64) error {
	f.withdrawn += amount
	return nil
}

func (f *fakeAdminService) CancelBet(ctx context.Context, id uint64) (domain.Bet, error) {
	if f.cancelErr != nil {
		return domain.Bet{}, f.cancelErr
	}
	return domain.Bet{ID: id, Owner: testOwner, State: domain.BetCancelled}, nil
}

func (f *fakeAdminService) EmergencyResolve(ctx context.Context, id, payout uint64) (domain.Bet, error) {
	if f.emergencyErr != nil {
		return domain.Bet{}, f.emergencyErr
	}
	return domain.Bet{ID: id, Owner: testOwner, State: domain.BetEmergencyResolved, Payout: payout}, nil
}

func newAdminRouter(svc *fakeAdminService) *http.ServeMux {
	h := NewAdminHandler(svc, slog.New(slog.NewTextHandler(io.Discard, nil)))
	mux := http.NewServeMux()
	mux.HandleFunc("POST /api/admin/pause", h.SetPause)
	mux.HandleFunc("PUT /api/admin/oracle", h.SetOracle)
	mux.HandleFunc("PUT /api/admin/config", h.SetConfig)
	mux.HandleFunc("POST /api/admin/deposit", h.Deposit)
	mux.HandleFunc("POST /api/admin/withdraw", h.Withdraw)
	mux.HandleFunc("DELETE /api/bets/{id}", h.CancelBet)
	mux.HandleFunc("POST /api/admin/emergency-resolve", h.EmergencyResolve)
	return mux
}

func TestSetPause(t *testing.T) {
	svc := &fakeAdminService{}
	mux := newAdminRouter(svc)

	body := `{"paused":true,"reason":"maintenance"}`
	req := httptest.NewRequest(http.MethodPost, "/api/admin/pause", strings.NewReader(body))
	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.True(t, svc.paused)
}

func TestSetOracleInvalidAddress(t *testing.T) {
	mux := newAdminRouter(&fakeAdminService{})

	req := httptest.NewRequest(http.MethodPut, "/api/admin/oracle", strings.NewReader(`{"address":"bogus"}`))
	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestSetConfigRequiresKey(t *testing.T) {
	mux := newAdminRouter(&fakeAdminService{})

	req := httptest.NewRequest(http.MethodPut, "/api/admin/config", strings.NewReader(`{"key":"","value":5}`))
	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestSetConfigStoresArbitraryKey(t *testing.T) {
	svc := &fakeAdminService{}
	mux := newAdminRouter(svc)

	req := httptest.NewRequest(http.MethodPut, "/api/admin/config", strings.NewReader(`{"key":"max-daily-bets","value":500}`))
	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, uint64(500), svc.config[domain.ConfigKey("max-daily-bets")])
}

func TestDepositRejectsZeroAmount(t *testing.T) {
	mux := newAdminRouter(&fakeAdminService{})

	req := httptest.NewRequest(http.MethodPost, "/api/admin/deposit", strings.NewReader(`{"amount":0}`))
	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestWithdraw(t *testing.T) {
	svc := &fakeAdminService{}
	mux := newAdminRouter(svc)

	req := httptest.NewRequest(http.MethodPost, "/api/admin/withdraw", strings.NewReader(`{"amount":1000}`))
	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, uint64(1000), svc.withdrawn)
}

func TestCancelBet(t *testing.T) {
	mux := newAdminRouter(&fakeAdminService{})

	req := httptest.NewRequest(http.MethodDelete, "/api/bets/7", nil)
	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)

	var got betView
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
	assert.Equal(t, uint64(7), got.ID)
	assert.Equal(t, "cancelled", got.State)
}

func TestCancelBetRejectionMapsConflict(t *testing.T) {
	mux := newAdminRouter(&fakeAdminService{cancelErr: domain.ErrBetNotActive})

	req := httptest.NewRequest(http.MethodDelete, "/api/bets/7", nil)
	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, req)

	require.Equal(t, http.StatusConflict, rec.Code)

	var got struct {
		Code uint32 `json:"code"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
	assert.Equal(t, uint32(104), got.Code)
}

func TestEmergencyResolveUnpausedMapsForbidden(t *testing.T) {
	mux := newAdminRouter(&fakeAdminService{emergencyErr: domain.ErrUnauthorized})

	body := `{"bet_id":3,"payout":50000}`
	req := httptest.NewRequest(http.MethodPost, "/api/admin/emergency-resolve", strings.NewReader(body))
	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusForbidden, rec.Code)
}

func TestEmergencyResolve(t *testing.T) {
	mux := newAdminRouter(&fakeAdminService{})

	body := `{"bet_id":3,"payout":50000}`
	req := httptest.NewRequest(http.MethodPost, "/api/admin/emergency-resolve", strings.NewReader(body))
	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)

	var got betView
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
	assert.Equal(t, "emergency_resolved", got.State)
	assert.Equal(t, uint64(50_000), got.Payout)
}
