package app

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/StabilityNexus/Fate/internal/domain"
	"github.com/StabilityNexus/Fate/internal/poolstate"
	"github.com/StabilityNexus/Fate/internal/server"
	"github.com/StabilityNexus/Fate/internal/server/handler"
	"github.com/StabilityNexus/Fate/internal/server/middleware"
	"github.com/StabilityNexus/Fate/internal/server/ws"
	"github.com/StabilityNexus/Fate/internal/service"
)

const shutdownTimeout = 10 * time.Second

// services are the domain services shared by every mode.
type services struct {
	pools     *service.PoolService
	trades    *service.TradeService
	positions *service.PositionService
	feeUnit   poolstate.FeeUnit
}

func (a *App) buildServices(deps *Dependencies) (*services, error) {
	feeUnit, err := poolstate.ParseFeeUnit(a.cfg.Pool.FeeUnit)
	if err != nil {
		return nil, err
	}

	var recorder service.Recorder
	if deps.Metrics != nil {
		recorder = deps.Metrics
	}
	var notifier service.Notifier
	if deps.Notifier.Enabled() {
		notifier = deps.Notifier
	}

	assets := make([]domain.Asset, 0, len(a.cfg.Assets))
	for _, as := range a.cfg.Assets {
		assets = append(assets, domain.Asset{FeedID: as.FeedID, Name: as.Name, Symbol: as.Symbol, Pair: as.Pair})
	}

	disc := service.NewDiscoveryService(deps.Chain, a.cfg.Chain.PackageID, a.cfg.Chain.DiscoveryLimit, recorder, a.logger)
	pools := service.NewPoolService(deps.Chain, disc, service.PoolServiceConfig{
		PriceScale:        a.cfg.Pool.PriceScale,
		Assets:            poolstate.NewAssetTable(assets),
		EnrichConcurrency: a.cfg.Pool.EnrichConcurrency,
		RefreshLockTTL:    a.cfg.Pool.RefreshLockTimeout.Duration,
	}, deps.SnapshotCache, deps.PoolStore, deps.SignalBus, deps.LockManager, recorder, a.logger)

	trades := service.NewTradeService(service.TradeConfig{
		PackageID:       a.cfg.Chain.PackageID,
		ClockID:         a.cfg.Chain.ClockID,
		TradeGasBudget:  a.cfg.Chain.TradeGasBudget,
		CreateGasBudget: a.cfg.Chain.CreateGasBudget,
		BalanceReserve:  a.cfg.Chain.BalanceReserve,
	}, deps.Chain, deps.Oracle, deps.Wallet, pools, deps.TxStore, deps.AuditStore, deps.SignalBus, notifier, recorder, a.logger)

	return &services{
		pools:     pools,
		trades:    trades,
		positions: service.NewPositionService(deps.Chain, pools, a.cfg.Chain.PackageID, a.logger),
		feeUnit:   feeUnit,
	}, nil
}

// ServerMode serves the HTTP API and WebSocket hub. Pools are discovered on
// demand when the cache is cold.
func (a *App) ServerMode(ctx context.Context, deps *Dependencies, svcs *services) error {
	a.logger.InfoContext(ctx, "starting server mode")

	g, ctx := errgroup.WithContext(ctx)
	a.startHTTPServer(ctx, g, deps, svcs)
	return g.Wait()
}

// IndexerMode keeps the snapshot cache, pool index and subscribers fresh
// without serving HTTP.
func (a *App) IndexerMode(ctx context.Context, svcs *services) error {
	a.logger.InfoContext(ctx, "starting indexer mode")
	if !a.cfg.DiscoveryEnabled() {
		return fmt.Errorf("indexer mode: chain.package_id is required")
	}

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return a.runIndexer(ctx, svcs.pools)
	})
	return g.Wait()
}

// ArchiveMode indexes pools and writes periodic snapshot archives.
func (a *App) ArchiveMode(ctx context.Context, deps *Dependencies, svcs *services) error {
	a.logger.InfoContext(ctx, "starting archive mode")
	if deps.Archiver == nil {
		return fmt.Errorf("archive mode: s3 must be enabled")
	}

	g, ctx := errgroup.WithContext(ctx)
	if a.cfg.DiscoveryEnabled() {
		g.Go(func() error {
			return a.runIndexer(ctx, svcs.pools)
		})
	}
	g.Go(func() error {
		return a.runArchiver(ctx, svcs.pools, deps.Archiver)
	})
	return g.Wait()
}

// FullMode runs the indexer, the archiver when S3 is enabled, and the server.
func (a *App) FullMode(ctx context.Context, deps *Dependencies, svcs *services) error {
	a.logger.InfoContext(ctx, "starting full mode")

	g, ctx := errgroup.WithContext(ctx)
	if a.cfg.DiscoveryEnabled() {
		g.Go(func() error {
			return a.runIndexer(ctx, svcs.pools)
		})
	} else {
		a.logger.WarnContext(ctx, "full mode: chain.package_id not set, indexer disabled")
	}
	if deps.Archiver != nil {
		g.Go(func() error {
			return a.runArchiver(ctx, svcs.pools, deps.Archiver)
		})
	}
	if a.cfg.Server.Enabled {
		a.startHTTPServer(ctx, g, deps, svcs)
	}
	return g.Wait()
}

// runIndexer syncs immediately and then every refresh interval.
func (a *App) runIndexer(ctx context.Context, pools *service.PoolService) error {
	ticker := time.NewTicker(a.cfg.Pool.RefreshInterval.Duration)
	defer ticker.Stop()

	for {
		start := time.Now()
		snaps := pools.Sync(ctx)
		a.logger.InfoContext(ctx, "indexer: sync complete",
			slog.Int("pools", len(snaps)),
			slog.Duration("elapsed", time.Since(start)),
		)

		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
		}
	}
}

// runArchiver writes the current snapshot set every archive interval.
func (a *App) runArchiver(ctx context.Context, pools *service.PoolService, archiver domain.SnapshotArchiver) error {
	ticker := time.NewTicker(a.cfg.Pool.ArchiveInterval.Duration)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case now := <-ticker.C:
			snaps := pools.List(ctx, domain.PoolFilter{})
			key, err := archiver.Archive(ctx, snaps, now)
			if err != nil {
				a.logger.WarnContext(ctx, "archiver: write failed", slog.String("error", err.Error()))
				continue
			}
			if key != "" {
				a.logger.InfoContext(ctx, "archiver: snapshots written",
					slog.String("key", key),
					slog.Int("pools", len(snaps)),
				)
			}
		}
	}
}

// startHTTPServer adds the WebSocket hub, the HTTP server and its shutdown
// watcher to g.
func (a *App) startHTTPServer(ctx context.Context, g *errgroup.Group, deps *Dependencies, svcs *services) {
	_, walletConnected := deps.Wallet.Address()
	features := map[string]bool{
		"discovery": a.cfg.DiscoveryEnabled(),
		"trading":   a.cfg.TradingEnabled(),
		"wallet":    walletConnected,
		"postgres":  deps.PoolStore != nil,
		"redis":     deps.SnapshotCache != nil,
		"archive":   deps.Archiver != nil,
		"metrics":   deps.Metrics != nil,
	}

	handlers := server.Handlers{
		Health:    handler.NewHealthHandler(deps.Checks, features, a.logger),
		Pools:     handler.NewPoolHandler(svcs.pools, svcs.feeUnit, a.logger),
		Positions: handler.NewPositionHandler(svcs.positions, a.logger),
		Trades:    handler.NewTradeHandler(svcs.trades, a.logger),
	}

	hubCfg := ws.Config{
		Mode:           a.cfg.Mode,
		TradingEnabled: a.cfg.TradingEnabled(),
		AllowedOrigins: a.cfg.Server.CORSOrigins,
	}
	var obs middleware.Observer
	if deps.Metrics != nil {
		handlers.Metrics = deps.Metrics.Handler()
		obs = deps.Metrics
		hubCfg.OnClients = func(n int) { deps.Metrics.WSClients.Set(float64(n)) }
	}

	hub := ws.NewHub(deps.SignalBus, hubCfg, a.logger)
	g.Go(func() error {
		return hub.Run(ctx)
	})

	srv := server.NewServer(server.Config{
		Port:        a.cfg.Server.Port,
		CORSOrigins: a.cfg.Server.CORSOrigins,
		APIKey:      a.cfg.Server.APIKey,
		RateLimit:   a.cfg.Server.RateLimit,
		RateWindow:  a.cfg.Server.RateWindow.Duration,
	}, handlers, hub, deps.RateLimiter, obs, a.logger)

	g.Go(func() error {
		return srv.Start()
	})
	g.Go(func() error {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})
}
