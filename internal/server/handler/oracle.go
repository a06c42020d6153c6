package handler

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/alanyoungcy/wagerhouse/internal/domain"
	"github.com/alanyoungcy/wagerhouse/internal/engine"
)

// OracleService defines the methods that the oracle handler requires from
// the service layer.
type OracleService interface {
	UpdatePrice(ctx context.Context, price, timestamp uint64, signature string) error
	LatestPrice(ctx context.Context) (domain.PricePoint, bool)
	ResolveBet(ctx context.Context, id, finalPrice uint64) (domain.Bet, error)
	ResolveBatch(ctx context.Context, reqs []engine.ResolveRequest) ([]engine.ResolveResult, error)
	ListResolvable(ctx context.Context, limit int) []domain.Bet
	CanBetBeResolved(ctx context.Context, id uint64) bool
}

// OracleHandler serves the oracle-facing HTTP endpoints: price updates and
// bet resolution.
type OracleHandler struct {
	oracle OracleService
	logger *slog.Logger
}

// NewOracleHandler creates an OracleHandler with the given service and logger.
func NewOracleHandler(oracle OracleService, logger *slog.Logger) *OracleHandler {
	return &OracleHandler{
		oracle: oracle,
		logger: logger,
	}
}

// updatePriceRequest is the JSON body for a price update. Signature is the
// hex-encoded ECDSA attestation; it may be empty when attestation is not
// required.
type updatePriceRequest struct {
	Price     uint64 `json:"price"`
	Timestamp uint64 `json:"timestamp"`
	Signature string `json:"signature,omitempty"`
}

// UpdatePrice records a new oracle reference price.
// POST /api/oracle/price
func (h *OracleHandler) UpdatePrice(w http.ResponseWriter, r *http.Request) {
	var req updatePriceRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body: "+err.Error())
		return
	}

	if err := h.oracle.UpdatePrice(r.Context(), req.Price, req.Timestamp, req.Signature); err != nil {
		h.logger.WarnContext(r.Context(), "handler: price update rejected",
			slog.Uint64("price", req.Price),
			slog.Uint64("timestamp", req.Timestamp),
			slog.String("error", err.Error()),
		)
		writeDomainError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"price":     req.Price,
		"timestamp": req.Timestamp,
	})
}

// GetLatestPrice returns the current reference price.
// GET /api/price
func (h *OracleHandler) GetLatestPrice(w http.ResponseWriter, r *http.Request) {
	point, ok := h.oracle.LatestPrice(r.Context())
	if !ok {
		writeError(w, http.StatusNotFound, "no price recorded")
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"price":       point.Price,
		"timestamp":   point.Timestamp,
		"reported_by": point.ReportedBy.Hex(),
	})
}

// resolveBetRequest is the JSON body for a single resolution.
type resolveBetRequest struct {
	FinalPrice uint64 `json:"final_price"`
}

// ResolveBet settles an expired bet against a final price.
// POST /api/oracle/resolve/{id}
func (h *OracleHandler) ResolveBet(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	var req resolveBetRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body: "+err.Error())
		return
	}

	bet, err := h.oracle.ResolveBet(r.Context(), id, req.FinalPrice)
	if err != nil {
		h.logger.WarnContext(r.Context(), "handler: resolve bet rejected",
			slog.Uint64("bet_id", id),
			slog.String("error", err.Error()),
		)
		writeDomainError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, toBetView(bet))
}

// resolveBatchRequest is the JSON body for a batch resolution.
type resolveBatchRequest struct {
	Bets []struct {
		BetID      uint64 `json:"bet_id"`
		FinalPrice uint64 `json:"final_price"`
	} `json:"bets"`
}

// resolveBatchEntry is one entry in the batch response. Error is empty on
// success.
type resolveBatchEntry struct {
	BetID uint64   `json:"bet_id"`
	Bet   *betView `json:"bet,omitempty"`
	Error string   `json:"error,omitempty"`
	Code  uint32   `json:"code,omitempty"`
}

// ResolveBatch settles a batch of bets independently. Entries are processed
// in order; a failing entry does not abort the rest.
// POST /api/oracle/resolve-batch
func (h *OracleHandler) ResolveBatch(w http.ResponseWriter, r *http.Request) {
	var req resolveBatchRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body: "+err.Error())
		return
	}

	if len(req.Bets) == 0 {
		writeError(w, http.StatusBadRequest, "empty batch")
		return
	}

	reqs := make([]engine.ResolveRequest, 0, len(req.Bets))
	for _, b := range req.Bets {
		reqs = append(reqs, engine.ResolveRequest{BetID: b.BetID, FinalPrice: b.FinalPrice})
	}

	results, err := h.oracle.ResolveBatch(r.Context(), reqs)
	if err != nil {
		writeDomainError(w, err)
		return
	}

	entries := make([]resolveBatchEntry, 0, len(results))
	for _, res := range results {
		entry := resolveBatchEntry{BetID: res.BetID}
		if res.Err != nil {
			entry.Error = res.Err.Error()
			var de *domain.Error
			if errors.As(res.Err, &de) {
				entry.Code = uint32(de.Code)
			}
		} else {
			v := toBetView(res.Bet)
			entry.Bet = &v
		}
		entries = append(entries, entry)
	}

	writeJSON(w, http.StatusOK, map[string]any{"results": entries})
}

// ListResolvable returns expired active bets awaiting resolution.
// GET /api/oracle/resolvable?limit=100
func (h *OracleHandler) ListResolvable(w http.ResponseWriter, r *http.Request) {
	opts := parseListOpts(r)

	bets := h.oracle.ListResolvable(r.Context(), opts.Limit)
	views := make([]betView, 0, len(bets))
	for _, b := range bets {
		views = append(views, toBetView(b))
	}

	writeJSON(w, http.StatusOK, map[string]any{"bets": views})
}

// GetResolvable reports whether a single bet can be resolved right now.
// GET /api/bets/{id}/resolvable
func (h *OracleHandler) GetResolvable(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"bet_id":     id,
		"resolvable": h.oracle.CanBetBeResolved(r.Context(), id),
	})
}
