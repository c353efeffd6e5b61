package domain

import (
	"context"
	"time"
)

// SnapshotCache provides fast access to recently fetched pool snapshots.
type SnapshotCache interface {
	Set(ctx context.Context, snap PoolSnapshot) error
	Get(ctx context.Context, id string) (PoolSnapshot, error)
	Invalidate(ctx context.Context, id string) error
	SetIndex(ctx context.Context, ids []string) error
	GetIndex(ctx context.Context) ([]string, error)
}

// RateLimiter provides distributed rate limiting.
type RateLimiter interface {
	Allow(ctx context.Context, key string, limit int, window time.Duration) (bool, error)
}

// LockManager provides distributed locking.
type LockManager interface {
	Acquire(ctx context.Context, key string, ttl time.Duration) (unlock func(), err error)
}

// Channels published on the SignalBus.
const (
	ChannelPoolUpdated = "fate:pool_updated"
	ChannelTxOutcome   = "fate:tx_outcome"
)

// SignalBus provides pub/sub between service instances.
type SignalBus interface {
	Publish(ctx context.Context, channel string, payload []byte) error
	Subscribe(ctx context.Context, channel string) (<-chan []byte, error)
}
