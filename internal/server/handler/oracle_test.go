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

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/alanyoungcy/wagerhouse/internal/domain"
	"github.com/alanyoungcy/wagerhouse/internal/engine"
)

type fakeOracleService struct {
	updateErr  error
	price      domain.PricePoint
	hasPrice   bool
	resolvable []domain.Bet
	results    []engine.ResolveResult
}

func (f *fakeOracleService) UpdatePrice(ctx context.Context, price, timestamp uint64, signature string) error {
	return f.updateErr
}

func (f *fakeOracleService) LatestPrice(ctx context.Context) (domain.PricePoint, bool) {
	return f.price, f.hasPrice
}

func (f *fakeOracleService) ResolveBet(ctx context.Context, id, finalPrice uint64) (domain.Bet, error) {
	for _, res := range f.results {
		if res.BetID == id {
			return res.Bet, res.Err
		}
	}
	return domain.Bet{}, domain.ErrBetNotFound
}

func (f *fakeOracleService) ResolveBatch(ctx context.Context, reqs []engine.ResolveRequest) ([]engine.ResolveResult, error) {
	return f.results, nil
}

func (f *fakeOracleService) ListResolvable(ctx context.Context, limit int) []domain.Bet {
	if limit < len(f.resolvable) {
		return f.resolvable[:limit]
	}
	return f.resolvable
}

func (f *fakeOracleService) CanBetBeResolved(ctx context.Context, id uint64) bool {
	for _, b := range f.resolvable {
		if b.ID == id {
			return true
		}
	}
	return false
}

func newOracleRouter(svc *fakeOracleService) *http.ServeMux {
	h := NewOracleHandler(svc, slog.New(slog.NewTextHandler(io.Discard, nil)))
	mux := http.NewServeMux()
	mux.HandleFunc("POST /api/oracle/price", h.UpdatePrice)
	mux.HandleFunc("GET /api/price", h.GetLatestPrice)
	mux.HandleFunc("POST /api/oracle/resolve/{id}", h.ResolveBet)
	mux.HandleFunc("POST /api/oracle/resolve-batch", h.ResolveBatch)
	mux.HandleFunc("GET /api/oracle/resolvable", h.ListResolvable)
	mux.HandleFunc("GET /api/bets/{id}/resolvable", h.GetResolvable)
	return mux
}

func TestUpdatePriceAccepted(t *testing.T) {
	mux := newOracleRouter(&fakeOracleService{})

	body := `{"price":1000000,"timestamp":1700000000}`
	req := httptest.NewRequest(http.MethodPost, "/api/oracle/price", strings.NewReader(body))
	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestUpdatePriceUnauthorizedMapsForbidden(t *testing.T) {
	mux := newOracleRouter(&fakeOracleService{updateErr: domain.ErrUnauthorized})

	body := `{"price":1000000,"timestamp":1700000000,"signature":"0xdead"}`
	req := httptest.NewRequest(http.MethodPost, "/api/oracle/price", strings.NewReader(body))
	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, req)

	require.Equal(t, http.StatusForbidden, rec.Code)

	var got struct {
		Code uint32 `json:"code"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
	assert.Equal(t, uint32(100), got.Code)
}

func TestGetLatestPriceEmpty(t *testing.T) {
	mux := newOracleRouter(&fakeOracleService{})

	req := httptest.NewRequest(http.MethodGet, "/api/price", nil)
	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestGetLatestPrice(t *testing.T) {
	mux := newOracleRouter(&fakeOracleService{
		hasPrice: true,
		price:    domain.PricePoint{Price: 2_000_000, Timestamp: 1_700_000_000, ReportedBy: testOwner},
	})

	req := httptest.NewRequest(http.MethodGet, "/api/price", nil)
	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)

	var got struct {
		Price      uint64 `json:"price"`
		Timestamp  uint64 `json:"timestamp"`
		ReportedBy string `json:"reported_by"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
	assert.Equal(t, uint64(2_000_000), got.Price)
	assert.Equal(t, testOwner.Hex(), got.ReportedBy)
}

func TestResolveBetNotExpiredMapsConflict(t *testing.T) {
	mux := newOracleRouter(&fakeOracleService{
		results: []engine.ResolveResult{{BetID: 3, Err: domain.ErrBetNotExpired}},
	})

	req := httptest.NewRequest(http.MethodPost, "/api/oracle/resolve/3", strings.NewReader(`{"final_price":1}`))
	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusConflict, rec.Code)
}

func TestResolveBatchMixedResults(t *testing.T) {
	mux := newOracleRouter(&fakeOracleService{
		results: []engine.ResolveResult{
			{BetID: 1, Bet: domain.Bet{ID: 1, Owner: testOwner, State: domain.BetWon, Payout: 196_000}},
			{BetID: 2, Err: domain.ErrBetNotFound},
		},
	})

	body := `{"bets":[{"bet_id":1,"final_price":2000000},{"bet_id":2,"final_price":2000000}]}`
	req := httptest.NewRequest(http.MethodPost, "/api/oracle/resolve-batch", strings.NewReader(body))
	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)

	var got struct {
		Results []resolveBatchEntry `json:"results"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
	require.Len(t, got.Results, 2)

	assert.Equal(t, uint64(1), got.Results[0].BetID)
	require.NotNil(t, got.Results[0].Bet)
	assert.Equal(t, "won", got.Results[0].Bet.State)
	assert.Empty(t, got.Results[0].Error)

	assert.Equal(t, uint64(2), got.Results[1].BetID)
	assert.Nil(t, got.Results[1].Bet)
	assert.Equal(t, "bet not found", got.Results[1].Error)
	assert.Equal(t, uint32(103), got.Results[1].Code)
}

func TestResolveBatchEmpty(t *testing.T) {
	mux := newOracleRouter(&fakeOracleService{})

	req := httptest.NewRequest(http.MethodPost, "/api/oracle/resolve-batch", strings.NewReader(`{"bets":[]}`))
	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestListResolvableHonorsLimit(t *testing.T) {
	mux := newOracleRouter(&fakeOracleService{
		resolvable: []domain.Bet{{ID: 1}, {ID: 2}, {ID: 3}},
	})

	req := httptest.NewRequest(http.MethodGet, "/api/oracle/resolvable?limit=2", nil)
	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)

	var got struct {
		Bets []betView `json:"bets"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
	assert.Len(t, got.Bets, 2)
}

func TestGetResolvable(t *testing.T) {
	mux := newOracleRouter(&fakeOracleService{
		resolvable: []domain.Bet{{ID: 9}},
	})

	req := httptest.NewRequest(http.MethodGet, "/api/bets/9/resolvable", nil)
	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)

	var got struct {
		Resolvable bool `json:"resolvable"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
	assert.True(t, got.Resolvable)
}
