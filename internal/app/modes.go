package app

import (
	"context"
	"fmt"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/alanyoungcy/wagerhouse/internal/feed"
	"github.com/alanyoungcy/wagerhouse/internal/keeper"
	"github.com/alanyoungcy/wagerhouse/internal/server"
	"github.com/alanyoungcy/wagerhouse/internal/server/handler"
	"github.com/alanyoungcy/wagerhouse/internal/server/ws"
	"github.com/alanyoungcy/wagerhouse/internal/service"
)

// services bundles the engine-facing service layer shared by the modes.
type services struct {
	bets   *service.BetService
	oracle *service.OracleService
	admin  *service.AdminService
}

func (a *App) buildServices(deps *Dependencies) services {
	return services{
		bets:   service.NewBetService(deps.Engine, deps.SignalBus, deps.Notifier, a.logger),
		oracle: service.NewOracleService(deps.Engine, deps.PriceCache, deps.SignalBus, deps.Notifier, a.cfg.Oracle.RequireAttestation, a.logger),
		admin:  service.NewAdminService(deps.Engine, deps.SignalBus, deps.Notifier, a.logger),
	}
}

// ServerMode runs the HTTP + WebSocket API without the background keeper.
// Resolution then happens only through the oracle endpoints.
func (a *App) ServerMode(ctx context.Context, deps *Dependencies) error {
	a.logger.InfoContext(ctx, "starting server mode")

	g, ctx := errgroup.WithContext(ctx)

	svcs := a.buildServices(deps)
	a.startHTTPServer(ctx, g, deps, svcs)

	return g.Wait()
}

// KeeperMode runs only the background loops: automatic resolution of expired
// bets and, when S3 is configured, cold-storage archival.
func (a *App) KeeperMode(ctx context.Context, deps *Dependencies) error {
	a.logger.InfoContext(ctx, "starting keeper mode")

	g, ctx := errgroup.WithContext(ctx)

	svcs := a.buildServices(deps)
	a.startKeeper(ctx, g, deps, svcs)
	a.startPriceFeed(ctx, g, deps, svcs)

	return g.Wait()
}

// FullMode runs the API server and the background loops in one process.
func (a *App) FullMode(ctx context.Context, deps *Dependencies) error {
	a.logger.InfoContext(ctx, "starting full mode")

	g, ctx := errgroup.WithContext(ctx)

	svcs := a.buildServices(deps)
	a.startHTTPServer(ctx, g, deps, svcs)
	if a.cfg.Keeper.Enabled {
		a.startKeeper(ctx, g, deps, svcs)
	}
	a.startPriceFeed(ctx, g, deps, svcs)

	return g.Wait()
}

// startHTTPServer wires the handlers, WebSocket hub, and HTTP server into
// the errgroup.
func (a *App) startHTTPServer(ctx context.Context, g *errgroup.Group, deps *Dependencies, svcs services) {
	hub := ws.NewHub(deps.SignalBus, a.logger, ws.Config{
		Mode:      a.cfg.Mode,
		Stats:     deps.Engine.ContractStats,
		StartedAt: time.Now().UTC(),
	})
	g.Go(func() error {
		return hub.Run(ctx)
	})

	var audit handler.AuditLister
	if deps.Journal != nil {
		audit = deps.Journal.AuditLog()
	}

	handlers := server.Handlers{
		Health: handler.NewHealthHandler(a.logger),
		Bets:   handler.NewBetHandler(svcs.bets, a.logger),
		Oracle: handler.NewOracleHandler(svcs.oracle, a.logger),
		Admin:  handler.NewAdminHandler(svcs.admin, a.logger),
		Stats:  handler.NewStatsHandler(deps.Engine, audit, a.logger),
	}

	srv := server.NewServer(server.Config{
		Port:               a.cfg.Server.Port,
		CORSOrigins:        a.cfg.Server.CORSOrigins,
		AdminAPIKey:        a.cfg.Server.AdminAPIKey,
		OracleAPIKey:       a.cfg.Server.OracleAPIKey,
		RateLimitPerMinute: a.cfg.Server.RateLimitPerMinute,
	}, handlers, hub, deps.RateLimiter, a.logger)

	g.Go(func() error {
		return srv.Start()
	})
	g.Go(func() error {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("app: http shutdown: %w", err)
		}
		return ctx.Err()
	})
}

// startPriceFeed wires the external exchange feed into the errgroup when it
// is enabled. The feed signs each tick with the oracle key when one is
// loaded.
func (a *App) startPriceFeed(ctx context.Context, g *errgroup.Group, deps *Dependencies, svcs services) {
	if !a.cfg.Feed.Enabled {
		return
	}

	var signer feed.Signer
	if deps.Attestor != nil {
		signer = deps.Attestor
	}

	pf := feed.New(feed.Config{
		URL:        a.cfg.Feed.URL,
		Symbol:     a.cfg.Feed.Symbol,
		PriceScale: a.cfg.Feed.PriceScale,
	}, svcs.oracle, signer, a.logger)

	g.Go(func() error {
		return pf.Run(ctx)
	})
}

// startKeeper wires the resolution loop and, when blob storage is
// configured, the archive loop into the errgroup.
func (a *App) startKeeper(ctx context.Context, g *errgroup.Group, deps *Dependencies, svcs services) {
	k := keeper.New(svcs.oracle, deps.LockManager, keeper.Config{
		Interval:  a.cfg.Keeper.Interval.Duration,
		BatchSize: a.cfg.Keeper.BatchSize,
		LockTTL:   a.cfg.Keeper.LockTTL.Duration,
	}, a.logger)
	g.Go(func() error {
		return k.Run(ctx)
	})

	if deps.Archiver != nil {
		runner := keeper.NewArchiveRunner(deps.Archiver, deps.LockManager, keeper.ArchiveConfig{
			RetentionDays: a.cfg.S3.RetentionDays,
			Interval:      a.cfg.S3.ArchiveInterval.Duration,
			LockTTL:       a.cfg.Keeper.LockTTL.Duration,
		}, a.logger)
		g.Go(func() error {
			return runner.Run(ctx)
		})
	}
}
