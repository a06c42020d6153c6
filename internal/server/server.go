package server

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/alanyoungcy/wagerhouse/internal/domain"
	"github.com/alanyoungcy/wagerhouse/internal/server/handler"
	"github.com/alanyoungcy/wagerhouse/internal/server/middleware"
	"github.com/alanyoungcy/wagerhouse/internal/server/ws"
)

// Config holds the HTTP server configuration. If an API key is empty, the
// corresponding route group is unauthenticated.
type Config struct {
	Port               int
	CORSOrigins        []string
	AdminAPIKey        string
	OracleAPIKey       string
	RateLimitPerMinute int
}

// Handlers aggregates all HTTP handlers that the server needs to register.
type Handlers struct {
	Health *handler.HealthHandler
	Bets   *handler.BetHandler
	Oracle *handler.OracleHandler
	Admin  *handler.AdminHandler
	Stats  *handler.StatsHandler
}

// Server is the headless HTTP + WebSocket API for the settlement daemon.
type Server struct {
	httpServer *http.Server
	mux        *http.ServeMux
	logger     *slog.Logger
}

// NewServer creates a new Server with all routes registered on the ServeMux.
// It wires up middleware (logging, CORS, rate limiting, per-group auth) and
// attaches the WebSocket hub. limiter may be nil to disable rate limiting.
func NewServer(cfg Config, handlers Handlers, wsHub *ws.Hub, limiter domain.RateLimiter, logger *slog.Logger) *Server {
	mux := http.NewServeMux()

	// Oracle routes accept the oracle or the admin key; admin routes accept
	// only the admin key.
	adminAuth := middleware.RequireKey(cfg.AdminAPIKey)
	oracleAuth := middleware.RequireKey(cfg.OracleAPIKey, cfg.AdminAPIKey)

	// --- Register routes ---

	// Health check (no auth required).
	mux.HandleFunc("GET /api/health", handlers.Health.HealthCheck)

	// Bet endpoints.
	mux.HandleFunc("POST /api/bets", handlers.Bets.PlaceBet)
	mux.HandleFunc("GET /api/bets/{id}", handlers.Bets.GetBet)
	mux.Handle("DELETE /api/bets/{id}", adminAuth(http.HandlerFunc(handlers.Admin.CancelBet)))
	mux.HandleFunc("GET /api/bets/{id}/resolvable", handlers.Oracle.GetResolvable)

	// User endpoints.
	mux.HandleFunc("GET /api/users/{address}/stats", handlers.Bets.GetUserStats)
	mux.HandleFunc("GET /api/users/{address}/bets/{id}/active", handlers.Bets.GetActiveBetStatus)

	// Read-only contract state.
	mux.HandleFunc("GET /api/price", handlers.Oracle.GetLatestPrice)
	mux.HandleFunc("GET /api/stats", handlers.Stats.GetContractStats)
	mux.HandleFunc("GET /api/balance", handlers.Stats.GetContractBalance)
	mux.HandleFunc("GET /api/pools/{day}", handlers.Stats.GetDailyPool)
	mux.HandleFunc("GET /api/config/{key}", handlers.Stats.GetConfig)

	// Oracle endpoints.
	mux.Handle("POST /api/oracle/price", oracleAuth(http.HandlerFunc(handlers.Oracle.UpdatePrice)))
	mux.Handle("POST /api/oracle/resolve/{id}", oracleAuth(http.HandlerFunc(handlers.Oracle.ResolveBet)))
	mux.Handle("POST /api/oracle/resolve-batch", oracleAuth(http.HandlerFunc(handlers.Oracle.ResolveBatch)))
	mux.Handle("GET /api/oracle/resolvable", oracleAuth(http.HandlerFunc(handlers.Oracle.ListResolvable)))

	// Admin endpoints.
	mux.Handle("POST /api/admin/pause", adminAuth(http.HandlerFunc(handlers.Admin.SetPause)))
	mux.Handle("PUT /api/admin/oracle", adminAuth(http.HandlerFunc(handlers.Admin.SetOracle)))
	mux.Handle("PUT /api/admin/config", adminAuth(http.HandlerFunc(handlers.Admin.SetConfig)))
	mux.Handle("POST /api/admin/deposit", adminAuth(http.HandlerFunc(handlers.Admin.Deposit)))
	mux.Handle("POST /api/admin/withdraw", adminAuth(http.HandlerFunc(handlers.Admin.Withdraw)))
	mux.Handle("POST /api/admin/emergency-resolve", adminAuth(http.HandlerFunc(handlers.Admin.EmergencyResolve)))
	mux.Handle("GET /api/audit", adminAuth(http.HandlerFunc(handlers.Stats.ListAudit)))

	// WebSocket endpoint.
	if wsHub != nil {
		mux.HandleFunc("GET /ws", wsHub.HandleWS)
	}

	// Build the middleware chain.
	var h http.Handler = mux

	// Apply per-client rate limiting.
	if limiter != nil && cfg.RateLimitPerMinute > 0 {
		h = middleware.RateLimit(limiter, cfg.RateLimitPerMinute, time.Minute)(h)
	}

	// Apply request logging middleware.
	h = middleware.Logging(logger)(h)

	// Apply CORS middleware.
	h = middleware.CORS(cfg.CORSOrigins)(h)

	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Port),
		Handler:      h,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	return &Server{
		httpServer: srv,
		mux:        mux,
		logger:     logger,
	}
}

// Start begins listening for HTTP requests. It blocks until the server
// encounters an error or is shut down.
func (s *Server) Start() error {
	s.logger.Info("server: starting",
		slog.String("addr", s.httpServer.Addr),
	)
	if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("server: listen: %w", err)
	}
	return nil
}

// Shutdown gracefully shuts down the server, waiting for in-flight requests
// to complete within the given context deadline.
func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info("server: shutting down")
	if err := s.httpServer.Shutdown(ctx); err != nil {
		return fmt.Errorf("server: shutdown: %w", err)
	}
	return nil
}
