package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"time"

	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/singleflight"

	"github.com/StabilityNexus/Fate/internal/domain"
	"github.com/StabilityNexus/Fate/internal/poolstate"
)

// PoolServiceConfig holds the mapping and refresh parameters of PoolService.
type PoolServiceConfig struct {
	PriceScale        float64
	Assets            poolstate.AssetTable
	EnrichConcurrency int
	RefreshLockTTL    time.Duration
}

// PoolService discovers pools, enriches them into snapshots and keeps the
// snapshot cache, pool index and subscribers up to date. Cache, store, bus
// and locks are optional.
type PoolService struct {
	chain     domain.ChainReader
	discovery *DiscoveryService
	cfg       PoolServiceConfig
	cache     domain.SnapshotCache
	store     domain.PoolStore
	bus       domain.SignalBus
	locks     domain.LockManager
	metrics   Recorder
	logger    *slog.Logger

	inflight singleflight.Group
	now      func() time.Time
}

// NewPoolService creates a PoolService. Any of cache, store, bus and locks
// may be nil.
func NewPoolService(
	chain domain.ChainReader,
	discovery *DiscoveryService,
	cfg PoolServiceConfig,
	cache domain.SnapshotCache,
	store domain.PoolStore,
	bus domain.SignalBus,
	locks domain.LockManager,
	metrics Recorder,
	logger *slog.Logger,
) *PoolService {
	if cfg.EnrichConcurrency < 1 {
		cfg.EnrichConcurrency = 8
	}
	if cfg.RefreshLockTTL <= 0 {
		cfg.RefreshLockTTL = 30 * time.Second
	}
	if metrics == nil {
		metrics = NopRecorder{}
	}
	return &PoolService{
		chain:     chain,
		discovery: discovery,
		cfg:       cfg,
		cache:     cache,
		store:     store,
		bus:       bus,
		locks:     locks,
		metrics:   metrics,
		logger:    logger,
		now:       time.Now,
	}
}

func (s *PoolService) options() poolstate.Options {
	return poolstate.Options{
		PoolType:   s.discovery.PoolType(),
		PriceScale: s.cfg.PriceScale,
		Assets:     s.cfg.Assets,
		Now:        s.now,
	}
}

// Fetch reads one pool object and maps it. ev may be nil.
func (s *PoolService) Fetch(ctx context.Context, id string, ev *domain.PoolCreatedEvent) (domain.PoolSnapshot, error) {
	obj, err := s.chain.GetObject(ctx, id)
	if err != nil {
		return domain.PoolSnapshot{}, fmt.Errorf("pool_service: fetch %s: %w", id, err)
	}
	snap, err := poolstate.Map(obj, ev, s.options())
	if err != nil {
		return domain.PoolSnapshot{}, fmt.Errorf("pool_service: map %s: %w", id, err)
	}
	return snap, nil
}

// Enrich fetches every discovered pool concurrently. A pool that fails to
// load or map is logged and dropped; it never cancels the others. The result
// is sorted newest first.
func (s *PoolService) Enrich(ctx context.Context, found []domain.DiscoveredPool) []domain.PoolSnapshot {
	results := make([]*domain.PoolSnapshot, len(found))

	var g errgroup.Group
	g.SetLimit(s.cfg.EnrichConcurrency)
	for i, p := range found {
		g.Go(func() error {
			snap, err := s.Fetch(ctx, p.ID, p.Event)
			if err != nil {
				s.logger.WarnContext(ctx, "pool_service: dropping pool",
					slog.String("pool_id", p.ID),
					slog.String("error", err.Error()),
				)
				return nil
			}
			results[i] = &snap
			return nil
		})
	}
	_ = g.Wait()

	snaps := make([]domain.PoolSnapshot, 0, len(found))
	for _, r := range results {
		if r != nil {
			snaps = append(snaps, *r)
		}
	}
	s.metrics.ObserveEnrichment(len(snaps), len(found)-len(snaps))
	poolstate.SortNewestFirst(snaps)
	return snaps
}

// Sync discovers and enriches every pool, then writes the snapshots to the
// cache and pool index and publishes one update per pool.
func (s *PoolService) Sync(ctx context.Context) []domain.PoolSnapshot {
	snaps := s.Enrich(ctx, s.discovery.Discover(ctx))
	s.persist(ctx, snaps)
	for _, snap := range snaps {
		s.publish(ctx, snap)
	}
	return snaps
}

// List returns filtered snapshots. A complete cached index is served as is;
// otherwise the pools are synced from chain.
func (s *PoolService) List(ctx context.Context, f domain.PoolFilter) []domain.PoolSnapshot {
	snaps, ok := s.fromCache(ctx)
	if !ok {
		snaps = s.Enrich(ctx, s.discovery.Discover(ctx))
		s.persist(ctx, snaps)
	}
	return poolstate.Apply(snaps, f)
}

func (s *PoolService) fromCache(ctx context.Context) ([]domain.PoolSnapshot, bool) {
	if s.cache == nil {
		return nil, false
	}
	ids, err := s.cache.GetIndex(ctx)
	if err != nil || len(ids) == 0 {
		return nil, false
	}
	snaps := make([]domain.PoolSnapshot, 0, len(ids))
	for _, id := range ids {
		snap, err := s.cache.Get(ctx, id)
		if err != nil {
			return nil, false
		}
		snaps = append(snaps, snap)
	}
	poolstate.SortNewestFirst(snaps)
	return snaps, true
}

// persist stores snaps and replaces the cached pool index with their ids.
// Only full listings may call it; a partial set would shrink the index.
func (s *PoolService) persist(ctx context.Context, snaps []domain.PoolSnapshot) {
	s.save(ctx, snaps)
	if s.cache == nil || len(snaps) == 0 {
		return
	}
	ids := make([]string, len(snaps))
	for i, snap := range snaps {
		ids[i] = snap.ID
	}
	if err := s.cache.SetIndex(ctx, ids); err != nil {
		s.logger.WarnContext(ctx, "pool_service: cache index failed", slog.String("error", err.Error()))
	}
}

// save writes snapshots to the cache and the pool index store. It leaves the
// cached id index alone.
func (s *PoolService) save(ctx context.Context, snaps []domain.PoolSnapshot) {
	if len(snaps) == 0 {
		return
	}
	if s.cache != nil {
		for _, snap := range snaps {
			if err := s.cache.Set(ctx, snap); err != nil {
				s.logger.WarnContext(ctx, "pool_service: cache set failed",
					slog.String("pool_id", snap.ID),
					slog.String("error", err.Error()),
				)
			}
		}
	}
	if s.store != nil {
		if err := s.store.UpsertBatch(ctx, snaps); err != nil {
			s.logger.WarnContext(ctx, "pool_service: pool index upsert failed", slog.String("error", err.Error()))
		}
	}
}

// track appends id to a warm cached index that lacks it, so a freshly created
// pool is listed before the next full sync. A cold index is left for List.
func (s *PoolService) track(ctx context.Context, id string) {
	if s.cache == nil {
		return
	}
	ids, err := s.cache.GetIndex(ctx)
	if err != nil || len(ids) == 0 || slices.Contains(ids, id) {
		return
	}
	if err := s.cache.SetIndex(ctx, append(ids, id)); err != nil {
		s.logger.WarnContext(ctx, "pool_service: cache index failed", slog.String("error", err.Error()))
	}
}

// Get returns a pool snapshot, from cache when present.
func (s *PoolService) Get(ctx context.Context, id string) (domain.PoolSnapshot, error) {
	if id == "" {
		return domain.PoolSnapshot{}, fmt.Errorf("pool_service: empty pool id: %w", domain.ErrInvalidInput)
	}
	if s.cache != nil {
		if snap, err := s.cache.Get(ctx, id); err == nil {
			return snap, nil
		}
	}
	snap, err := s.Fetch(ctx, id, s.knownEvent(ctx, id))
	if err != nil {
		return domain.PoolSnapshot{}, err
	}
	if s.cache != nil {
		if err := s.cache.Set(ctx, snap); err != nil {
			s.logger.WarnContext(ctx, "pool_service: cache set failed",
				slog.String("pool_id", id),
				slog.String("error", err.Error()),
			)
		}
	}
	return snap, nil
}

// knownEvent recovers creation metadata from the pool index so a direct
// fetch keeps the discovery timestamp.
func (s *PoolService) knownEvent(ctx context.Context, id string) *domain.PoolCreatedEvent {
	if s.store == nil {
		return nil
	}
	prev, err := s.store.GetByID(ctx, id)
	if err != nil || prev.CreatedAt == nil {
		return nil
	}
	return &domain.PoolCreatedEvent{PoolID: id, Name: prev.Name, Creator: prev.Creator, Timestamp: prev.CreatedAt}
}

// Refresh refetches a pool from chain, bypassing the cache, and stores and
// publishes the new snapshot. Concurrent refreshes of one pool share a
// single fetch, and across instances the refresh lock admits one writer.
func (s *PoolService) Refresh(ctx context.Context, id string) (domain.PoolSnapshot, error) {
	v, err, _ := s.inflight.Do(id, func() (any, error) {
		return s.refresh(ctx, id)
	})
	if err != nil {
		return domain.PoolSnapshot{}, err
	}
	return v.(domain.PoolSnapshot), nil
}

func (s *PoolService) refresh(ctx context.Context, id string) (domain.PoolSnapshot, error) {
	if s.locks != nil {
		unlock, err := s.locks.Acquire(ctx, "refresh:"+id, s.cfg.RefreshLockTTL)
		switch {
		case errors.Is(err, domain.ErrLockHeld):
			// Another instance is writing; return a read-only fetch.
			return s.Fetch(ctx, id, s.knownEvent(ctx, id))
		case err != nil:
			s.logger.WarnContext(ctx, "pool_service: refresh lock unavailable",
				slog.String("pool_id", id),
				slog.String("error", err.Error()),
			)
		default:
			defer unlock()
		}
	}

	if s.cache != nil {
		if err := s.cache.Invalidate(ctx, id); err != nil {
			s.logger.WarnContext(ctx, "pool_service: cache invalidate failed",
				slog.String("pool_id", id),
				slog.String("error", err.Error()),
			)
		}
	}
	snap, err := s.Fetch(ctx, id, s.knownEvent(ctx, id))
	if err != nil {
		return domain.PoolSnapshot{}, err
	}
	s.save(ctx, []domain.PoolSnapshot{snap})
	s.track(ctx, snap.ID)
	s.publish(ctx, snap)
	return snap, nil
}

func (s *PoolService) publish(ctx context.Context, snap domain.PoolSnapshot) {
	if s.bus == nil {
		return
	}
	payload, err := json.Marshal(snap)
	if err != nil {
		return
	}
	if err := s.bus.Publish(ctx, domain.ChannelPoolUpdated, payload); err != nil {
		s.logger.WarnContext(ctx, "pool_service: publish failed",
			slog.String("pool_id", snap.ID),
			slog.String("error", err.Error()),
		)
	}
}

// CanSettle reports whether addr may settle the pool. The contract is the
// authority; this only drives presentation.
func (s *PoolService) CanSettle(snap domain.PoolSnapshot, addr string) bool {
	return poolstate.CanSettle(snap, addr)
}

// Assets lists the configured asset table.
func (s *PoolService) Assets() []domain.Asset {
	return s.cfg.Assets.List()
}
