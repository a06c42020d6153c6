package handler

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/alanyoungcy/wagerhouse/internal/domain"
)

// StatsProvider defines the read-only engine surface that the stats handler
// requires. The engine itself satisfies it.
type StatsProvider interface {
	ContractStats() domain.ContractStats
	ContractBalance() uint64
	DailyPool(day uint64) (domain.DailyPool, bool)
	Config(key domain.ConfigKey) (uint64, bool)
}

// AuditLister lists recent audit log entries. It is nil when no persistence
// backend is configured.
type AuditLister interface {
	List(ctx context.Context, opts domain.ListOpts) ([]domain.AuditEntry, error)
}

// StatsHandler serves the read-only contract state endpoints.
type StatsHandler struct {
	stats  StatsProvider
	audit  AuditLister
	logger *slog.Logger
}

// NewStatsHandler creates a StatsHandler. audit may be nil; the audit
// endpoint then reports the backend as unavailable.
func NewStatsHandler(stats StatsProvider, audit AuditLister, logger *slog.Logger) *StatsHandler {
	return &StatsHandler{
		stats:  stats,
		audit:  audit,
		logger: logger,
	}
}

// contractStatsResponse is the JSON projection of the global counters.
type contractStatsResponse struct {
	TotalBets        uint64 `json:"total_bets"`
	TotalVolume      uint64 `json:"total_volume"`
	HouseBalance     uint64 `json:"house_balance"`
	LockedStakes     uint64 `json:"locked_stakes"`
	ReservedExposure uint64 `json:"reserved_exposure"`
	CurrentBetID     uint64 `json:"current_bet_id"`
	Paused           bool   `json:"paused"`
	PauseReason      string `json:"pause_reason,omitempty"`
	Admin            string `json:"admin"`
	Oracle           string `json:"oracle"`
}

// GetContractStats returns the global contract counters.
// GET /api/stats
func (h *StatsHandler) GetContractStats(w http.ResponseWriter, r *http.Request) {
	stats := h.stats.ContractStats()

	writeJSON(w, http.StatusOK, contractStatsResponse{
		TotalBets:        stats.TotalBets,
		TotalVolume:      stats.TotalVolume,
		HouseBalance:     stats.HouseBalance,
		LockedStakes:     stats.LockedStakes,
		ReservedExposure: stats.ReservedExposure,
		CurrentBetID:     stats.CurrentBetID,
		Paused:           stats.Paused,
		PauseReason:      stats.PauseReason,
		Admin:            stats.Admin.Hex(),
		Oracle:           stats.Oracle.Hex(),
	})
}

// GetContractBalance returns the total funds held by the contract: house
// balance plus locked stakes.
// GET /api/balance
func (h *StatsHandler) GetContractBalance(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]uint64{
		"balance": h.stats.ContractBalance(),
	})
}

// GetDailyPool returns the volume aggregate for one UTC day bucket.
// GET /api/pools/{day}
func (h *StatsHandler) GetDailyPool(w http.ResponseWriter, r *http.Request) {
	day, err := pathID(r, "day")
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	pool, ok := h.stats.DailyPool(day)
	if !ok {
		writeError(w, http.StatusNotFound, "no pool for day")
		return
	}

	writeJSON(w, http.StatusOK, map[string]uint64{
		"day":          pool.Day,
		"total_volume": pool.TotalVolume,
		"bet_count":    pool.BetCount,
	})
}

// GetConfig returns one admin config entry.
// GET /api/config/{key}
func (h *StatsHandler) GetConfig(w http.ResponseWriter, r *http.Request) {
	key := pathParam(r, "key")
	if key == "" {
		writeError(w, http.StatusBadRequest, "missing config key")
		return
	}

	value, ok := h.stats.Config(domain.ConfigKey(key))
	if !ok {
		writeError(w, http.StatusNotFound, "config key not set")
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"key":   key,
		"value": value,
	})
}

// auditEntryView is the JSON projection of one audit log row.
type auditEntryView struct {
	ID        int64          `json:"id"`
	Event     string         `json:"event"`
	Detail    map[string]any `json:"detail,omitempty"`
	CreatedAt string         `json:"created_at"`
}

// ListAudit returns recent audit log entries, newest first.
// GET /api/audit?limit=50&offset=0
func (h *StatsHandler) ListAudit(w http.ResponseWriter, r *http.Request) {
	if h.audit == nil {
		writeError(w, http.StatusServiceUnavailable, "audit log backend not configured")
		return
	}

	opts := parseListOpts(r)
	entries, err := h.audit.List(r.Context(), opts)
	if err != nil {
		h.logger.ErrorContext(r.Context(), "handler: list audit entries failed",
			slog.String("error", err.Error()),
		)
		writeError(w, http.StatusInternalServerError, "failed to list audit entries")
		return
	}

	views := make([]auditEntryView, 0, len(entries))
	for _, e := range entries {
		views = append(views, auditEntryView{
			ID:        e.ID,
			Event:     e.Event,
			Detail:    e.Detail,
			CreatedAt: e.CreatedAt.UTC().Format(time.RFC3339),
		})
	}

	writeJSON(w, http.StatusOK, map[string]any{"entries": views})
}
