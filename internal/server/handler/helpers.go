package handler

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/ethereum/go-ethereum/common"

	"github.com/alanyoungcy/wagerhouse/internal/domain"
)

// writeJSON marshals v as JSON and writes it to the response with the given
// HTTP status code. If marshaling fails, it falls back to a plain-text 500.
func writeJSON(w http.ResponseWriter, status int, v any) {
	data, err := json.Marshal(v)
	if err != nil {
		http.Error(w, `{"error":"internal server error"}`, http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	w.Write(data)
}

// writeError sends a JSON-formatted error response.
func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

// writeDomainError maps a coded engine rejection to an HTTP status and a
// JSON body carrying both the message and the stable numeric code. Errors
// outside the coded taxonomy become a 500 with a generic message.
func writeDomainError(w http.ResponseWriter, err error) {
	var de *domain.Error
	if !errors.As(err, &de) {
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}

	status := http.StatusConflict
	switch de.Code {
	case domain.CodeUnauthorized:
		status = http.StatusForbidden
	case domain.CodeInvalidBetAmount, domain.CodeInvalidDuration, domain.CodeInvalidPrediction:
		status = http.StatusBadRequest
	case domain.CodeBetNotFound:
		status = http.StatusNotFound
	}

	writeJSON(w, status, map[string]any{
		"error": de.Msg,
		"code":  de.Code,
	})
}

// parseListOpts extracts standard pagination parameters from the query string.
// Defaults: limit=50 (max 500), offset=0.
func parseListOpts(r *http.Request) domain.ListOpts {
	q := r.URL.Query()

	limit := 50
	if v := q.Get("limit"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			limit = n
		}
	}
	if limit > 500 {
		limit = 500
	}

	offset := 0
	if v := q.Get("offset"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n >= 0 {
			offset = n
		}
	}

	return domain.ListOpts{
		Limit:  limit,
		Offset: offset,
	}
}

// pathParam extracts a named path parameter from the request using Go 1.22+
// built-in routing (http.Request.PathValue).
func pathParam(r *http.Request, name string) string {
	return r.PathValue(name)
}

// pathID parses a named path parameter as an unsigned decimal identifier.
func pathID(r *http.Request, name string) (uint64, error) {
	raw := pathParam(r, name)
	if raw == "" {
		return 0, fmt.Errorf("missing %s", name)
	}
	id, err := strconv.ParseUint(raw, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid %s", name)
	}
	return id, nil
}

// parseAddress validates and parses a 0x-prefixed hex address.
func parseAddress(raw string) (common.Address, error) {
	if !common.IsHexAddress(raw) {
		return common.Address{}, fmt.Errorf("invalid address %q", raw)
	}
	return common.HexToAddress(raw), nil
}

// logHandler is a convenience to attach slog fields in handler code.
func logHandler(logger *slog.Logger, handler string) *slog.Logger {
	return logger.With(slog.String("handler", handler))
}

// betView is the JSON projection of a bet shared by all bet-returning
// endpoints.
type betView struct {
	ID         uint64 `json:"id"`
	Owner      string `json:"owner"`
	Amount     uint64 `json:"amount"`
	Prediction string `json:"prediction"`
	EntryPrice uint64 `json:"entry_price"`
	PlacedAt   uint64 `json:"placed_at"`
	Duration   uint64 `json:"duration"`
	ExpiresAt  uint64 `json:"expires_at"`
	State      string `json:"state"`
	Payout     uint64 `json:"payout"`
	SettledAt  uint64 `json:"settled_at,omitempty"`
}

func toBetView(b domain.Bet) betView {
	return betView{
		ID:         b.ID,
		Owner:      b.Owner.Hex(),
		Amount:     b.Amount,
		Prediction: b.Prediction.String(),
		EntryPrice: b.EntryPrice,
		PlacedAt:   b.PlacedAt,
		Duration:   b.Duration,
		ExpiresAt:  b.ExpiresAt,
		State:      string(b.State),
		Payout:     b.Payout,
		SettledAt:  b.SettledAt,
	}
}
