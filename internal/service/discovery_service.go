package service

import (
	"context"
	"log/slog"

	"github.com/StabilityNexus/Fate/internal/domain"
	"github.com/StabilityNexus/Fate/internal/normalize"
)

const (
	poolModule        = "prediction_pool"
	createPoolFn      = "create_prediction_pool"
	discoveryFromEvts = "events"
	discoveryFromTxs  = "transactions"
)

// DiscoveryService finds prediction pool ids on chain. It never fails: any
// query error degrades to an empty result.
type DiscoveryService struct {
	chain     domain.ChainReader
	packageID string
	limit     int
	metrics   Recorder
	logger    *slog.Logger
}

// NewDiscoveryService creates a DiscoveryService for the pools deployed by
// packageID.
func NewDiscoveryService(chain domain.ChainReader, packageID string, limit int, metrics Recorder, logger *slog.Logger) *DiscoveryService {
	if limit <= 0 {
		limit = 50
	}
	if metrics == nil {
		metrics = NopRecorder{}
	}
	return &DiscoveryService{
		chain:     chain,
		packageID: packageID,
		limit:     limit,
		metrics:   metrics,
		logger:    logger,
	}
}

// PoolType is the Move type of pool objects.
func (d *DiscoveryService) PoolType() string {
	if d.packageID == "" {
		return ""
	}
	return d.packageID + "::" + poolModule + "::PredictionPool"
}

func (d *DiscoveryService) eventType() string {
	return d.packageID + "::" + poolModule + "::PoolCreated"
}

// Discover returns up to limit recent pools, newest first. Creation events
// are the primary source; recent create transactions are scanned when no
// events come back.
func (d *DiscoveryService) Discover(ctx context.Context) []domain.DiscoveredPool {
	if d.packageID == "" {
		d.logger.WarnContext(ctx, "discovery: package id not configured")
		return nil
	}

	pools := d.fromEvents(ctx)
	source := discoveryFromEvts
	if len(pools) == 0 {
		pools = d.fromTransactions(ctx)
		source = discoveryFromTxs
	}
	pools = dedupe(pools)

	d.metrics.ObserveDiscovery(source, len(pools))
	d.logger.DebugContext(ctx, "discovery: pools found",
		slog.String("source", source),
		slog.Int("count", len(pools)),
	)
	return pools
}

func (d *DiscoveryService) fromEvents(ctx context.Context) []domain.DiscoveredPool {
	events, err := d.chain.QueryEvents(ctx, d.eventType(), d.limit, true)
	if err != nil {
		d.logger.WarnContext(ctx, "discovery: event query failed",
			slog.String("error", err.Error()),
		)
		return nil
	}

	out := make([]domain.DiscoveredPool, 0, len(events))
	for _, e := range events {
		ev, ok := parsePoolCreated(e)
		if !ok {
			continue
		}
		out = append(out, domain.DiscoveredPool{ID: ev.PoolID, Event: ev})
	}
	return out
}

func parsePoolCreated(e domain.ChainEvent) (*domain.PoolCreatedEvent, bool) {
	if e.ParsedJSON == nil {
		return nil, false
	}
	id := normalize.ToStringSafe(e.ParsedJSON["pool_id"], "")
	if id == "" {
		return nil, false
	}
	return &domain.PoolCreatedEvent{
		PoolID:       id,
		Name:         normalize.ToStringSafe(e.ParsedJSON["name"], ""),
		Creator:      normalize.ToStringSafe(e.ParsedJSON["creator"], ""),
		InitialPrice: normalize.ToUintSafe(e.ParsedJSON["initial_price"], 0),
		Timestamp:    e.Timestamp,
		TxDigest:     e.TxDigest,
	}, true
}

func (d *DiscoveryService) fromTransactions(ctx context.Context) []domain.DiscoveredPool {
	txs, err := d.chain.QueryTransactionsByFunction(ctx, d.packageID, poolModule, createPoolFn, d.limit)
	if err != nil {
		d.logger.WarnContext(ctx, "discovery: transaction scan failed",
			slog.String("error", err.Error()),
		)
		return nil
	}

	poolType := d.PoolType()
	var out []domain.DiscoveredPool
	for _, tx := range txs {
		for _, c := range tx.ObjectChanges {
			if c.Type == "created" && c.ObjectType == poolType && c.ObjectID != "" {
				out = append(out, domain.DiscoveredPool{ID: c.ObjectID})
			}
		}
	}
	return out
}

func dedupe(pools []domain.DiscoveredPool) []domain.DiscoveredPool {
	seen := make(map[string]bool, len(pools))
	out := pools[:0]
	for _, p := range pools {
		key := domain.NormalizeObjectID(p.ID)
		if seen[key] {
			continue
		}
		seen[key] = true
		out = append(out, p)
	}
	return out
}
