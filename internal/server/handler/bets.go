package handler

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/ethereum/go-ethereum/common"

	"github.com/alanyoungcy/wagerhouse/internal/domain"
)

// BetService defines the methods that the bet handler requires from the
// service layer. It is declared locally so the handler package does not
// depend on the concrete service implementation.
type BetService interface {
	PlaceBet(ctx context.Context, owner common.Address, amount uint64, prediction domain.Prediction, duration, entryPrice uint64) (domain.Bet, error)
	GetBet(ctx context.Context, id uint64) (domain.Bet, bool)
	UserStats(ctx context.Context, user common.Address) (domain.UserStats, bool)
	ActiveBetStatus(ctx context.Context, user common.Address, id uint64) bool
}

// BetHandler serves bet-related HTTP endpoints.
type BetHandler struct {
	bets   BetService
	logger *slog.Logger
}

// NewBetHandler creates a BetHandler with the given service and logger.
func NewBetHandler(bets BetService, logger *slog.Logger) *BetHandler {
	return &BetHandler{
		bets:   bets,
		logger: logger,
	}
}

// placeBetRequest is the JSON body for placing a bet. Prediction is the
// lowercase direction name.
type placeBetRequest struct {
	Owner      string `json:"owner"`
	Amount     uint64 `json:"amount"`
	Prediction string `json:"prediction"`
	Duration   uint64 `json:"duration"`
	EntryPrice uint64 `json:"entry_price"`
}

// PlaceBet accepts a new wager.
// POST /api/bets
func (h *BetHandler) PlaceBet(w http.ResponseWriter, r *http.Request) {
	var req placeBetRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body: "+err.Error())
		return
	}

	owner, err := parseAddress(req.Owner)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	var prediction domain.Prediction
	switch req.Prediction {
	case "rise":
		prediction = domain.PredictionRise
	case "drop":
		prediction = domain.PredictionDrop
	}

	bet, err := h.bets.PlaceBet(r.Context(), owner, req.Amount, prediction, req.Duration, req.EntryPrice)
	if err != nil {
		h.logger.WarnContext(r.Context(), "handler: place bet rejected",
			slog.String("owner", owner.Hex()),
			slog.String("error", err.Error()),
		)
		writeDomainError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, toBetView(bet))
}

// GetBet returns a single bet by its ID.
// GET /api/bets/{id}
func (h *BetHandler) GetBet(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	bet, ok := h.bets.GetBet(r.Context(), id)
	if !ok {
		writeError(w, http.StatusNotFound, "bet not found")
		return
	}

	writeJSON(w, http.StatusOK, toBetView(bet))
}

// userStatsResponse is the JSON projection of a user's aggregates.
type userStatsResponse struct {
	User         string `json:"user"`
	TotalBets    uint64 `json:"total_bets"`
	TotalWagered uint64 `json:"total_wagered"`
	TotalWon     uint64 `json:"total_won"`
	WinCount     uint64 `json:"win_count"`
}

// GetUserStats returns the aggregate betting history for a user.
// GET /api/users/{address}/stats
func (h *BetHandler) GetUserStats(w http.ResponseWriter, r *http.Request) {
	user, err := parseAddress(pathParam(r, "address"))
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	stats, ok := h.bets.UserStats(r.Context(), user)
	if !ok {
		writeError(w, http.StatusNotFound, "no stats for user")
		return
	}

	writeJSON(w, http.StatusOK, userStatsResponse{
		User:         stats.User.Hex(),
		TotalBets:    stats.TotalBets,
		TotalWagered: stats.TotalWagered,
		TotalWon:     stats.TotalWon,
		WinCount:     stats.WinCount,
	})
}

// GetActiveBetStatus reports whether the bet belongs to the user and is
// still active.
// GET /api/users/{address}/bets/{id}/active
func (h *BetHandler) GetActiveBetStatus(w http.ResponseWriter, r *http.Request) {
	user, err := parseAddress(pathParam(r, "address"))
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	id, err := pathID(r, "id")
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"bet_id": id,
		"user":   user.Hex(),
		"active": h.bets.ActiveBetStatus(r.Context(), user, id),
	})
}
