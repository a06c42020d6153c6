package handler

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/ethereum/go-ethereum/common"

	"github.com/alanyoungcy/wagerhouse/internal/domain"
)

// AdminService defines the methods that the admin handler requires from the
// service layer.
type AdminService interface {
	SetPause(ctx context.Context, paused bool, reason string) error
	SetOracle(ctx context.Context, oracle common.Address) error
	SetConfig(ctx context.Context, key domain.ConfigKey, value uint64) error
	Deposit(ctx context.Context, amount uint64) error
	Withdraw(ctx context.Context, amount uint64) error
	CancelBet(ctx context.Context, id uint64) (domain.Bet, error)
	EmergencyResolve(ctx context.Context, id, payout uint64) (domain.Bet, error)
}

// AdminHandler serves the admin-gated HTTP endpoints.
type AdminHandler struct {
	admin  AdminService
	logger *slog.Logger
}

// NewAdminHandler creates an AdminHandler with the given service and logger.
func NewAdminHandler(admin AdminService, logger *slog.Logger) *AdminHandler {
	return &AdminHandler{
		admin:  admin,
		logger: logger,
	}
}

// setPauseRequest is the JSON body for flipping the pause flag.
type setPauseRequest struct {
	Paused bool   `json:"paused"`
	Reason string `json:"reason,omitempty"`
}

// SetPause pauses or unpauses the contract.
// POST /api/admin/pause
func (h *AdminHandler) SetPause(w http.ResponseWriter, r *http.Request) {
	var req setPauseRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body: "+err.Error())
		return
	}

	if err := h.admin.SetPause(r.Context(), req.Paused, req.Reason); err != nil {
		writeDomainError(w, err)
		return
	}

	h.logger.InfoContext(r.Context(), "handler: pause flag set",
		slog.Bool("paused", req.Paused),
		slog.String("reason", req.Reason),
	)
	writeJSON(w, http.StatusOK, map[string]any{
		"paused": req.Paused,
		"reason": req.Reason,
	})
}

// setOracleRequest is the JSON body for registering a new oracle.
type setOracleRequest struct {
	Address string `json:"address"`
}

// SetOracle registers a new oracle address.
// PUT /api/admin/oracle
func (h *AdminHandler) SetOracle(w http.ResponseWriter, r *http.Request) {
	var req setOracleRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body: "+err.Error())
		return
	}

	oracle, err := parseAddress(req.Address)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	if err := h.admin.SetOracle(r.Context(), oracle); err != nil {
		writeDomainError(w, err)
		return
	}

	h.logger.InfoContext(r.Context(), "handler: oracle address set",
		slog.String("oracle", oracle.Hex()),
	)
	writeJSON(w, http.StatusOK, map[string]string{"oracle": oracle.Hex()})
}

// setConfigRequest is the JSON body for writing a config entry.
type setConfigRequest struct {
	Key   string `json:"key"`
	Value uint64 `json:"value"`
}

// SetConfig writes an entry in the admin config table.
// PUT /api/admin/config
func (h *AdminHandler) SetConfig(w http.ResponseWriter, r *http.Request) {
	var req setConfigRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body: "+err.Error())
		return
	}

	if req.Key == "" {
		writeError(w, http.StatusBadRequest, "key is required")
		return
	}

	if err := h.admin.SetConfig(r.Context(), domain.ConfigKey(req.Key), req.Value); err != nil {
		writeDomainError(w, err)
		return
	}

	h.logger.InfoContext(r.Context(), "handler: config entry set",
		slog.String("key", req.Key),
		slog.Uint64("value", req.Value),
	)
	writeJSON(w, http.StatusOK, map[string]any{
		"key":   req.Key,
		"value": req.Value,
	})
}

// amountRequest is the JSON body for house balance movements.
type amountRequest struct {
	Amount uint64 `json:"amount"`
}

// Deposit moves funds from the admin account into the house balance.
// POST /api/admin/deposit
func (h *AdminHandler) Deposit(w http.ResponseWriter, r *http.Request) {
	h.moveHouseBalance(w, r, "deposit", h.admin.Deposit)
}

// Withdraw moves unreserved house funds back to the admin account.
// POST /api/admin/withdraw
func (h *AdminHandler) Withdraw(w http.ResponseWriter, r *http.Request) {
	h.moveHouseBalance(w, r, "withdraw", h.admin.Withdraw)
}

func (h *AdminHandler) moveHouseBalance(w http.ResponseWriter, r *http.Request, op string, move func(context.Context, uint64) error) {
	var req amountRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body: "+err.Error())
		return
	}

	if req.Amount == 0 {
		writeError(w, http.StatusBadRequest, "amount must be positive")
		return
	}

	if err := move(r.Context(), req.Amount); err != nil {
		h.logger.WarnContext(r.Context(), "handler: house balance move rejected",
			slog.String("op", op),
			slog.Uint64("amount", req.Amount),
			slog.String("error", err.Error()),
		)
		writeDomainError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"op":     op,
		"amount": req.Amount,
	})
}

// CancelBet voids an active bet and refunds the stake to its owner.
// DELETE /api/bets/{id}
func (h *AdminHandler) CancelBet(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	bet, err := h.admin.CancelBet(r.Context(), id)
	if err != nil {
		h.logger.WarnContext(r.Context(), "handler: cancel bet rejected",
			slog.Uint64("bet_id", id),
			slog.String("error", err.Error()),
		)
		writeDomainError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, toBetView(bet))
}

// emergencyResolveRequest is the JSON body for an emergency resolution.
type emergencyResolveRequest struct {
	BetID  uint64 `json:"bet_id"`
	Payout uint64 `json:"payout"`
}

// EmergencyResolve settles a bet with an explicit payout while the contract
// is paused.
// POST /api/admin/emergency-resolve
func (h *AdminHandler) EmergencyResolve(w http.ResponseWriter, r *http.Request) {
	var req emergencyResolveRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body: "+err.Error())
		return
	}

	bet, err := h.admin.EmergencyResolve(r.Context(), req.BetID, req.Payout)
	if err != nil {
		h.logger.WarnContext(r.Context(), "handler: emergency resolve rejected",
			slog.Uint64("bet_id", req.BetID),
			slog.String("error", err.Error()),
		)
		writeDomainError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, toBetView(bet))
}
