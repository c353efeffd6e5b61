package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/StabilityNexus/Fate/internal/domain"
)

const defaultSnapshotTTL = 30 * time.Second

// SnapshotCache implements domain.SnapshotCache.
//
// Key schema:
//
//	fate:pool:{id}     - JSON PoolSnapshot with TTL
//	fate:pools:index   - list of pool ids from the last discovery, same TTL
type SnapshotCache struct {
	rdb *redis.Client
	ttl time.Duration
}

// NewSnapshotCache creates a SnapshotCache whose entries expire after ttl.
func NewSnapshotCache(c *Client, ttl time.Duration) *SnapshotCache {
	if ttl <= 0 {
		ttl = defaultSnapshotTTL
	}
	return &SnapshotCache{rdb: c.rdb, ttl: ttl}
}

func snapshotKey(id string) string { return keyPrefix + "pool:" + domain.NormalizeObjectID(id) }

const indexKey = keyPrefix + "pools:index"

// Set stores a snapshot.
func (sc *SnapshotCache) Set(ctx context.Context, snap domain.PoolSnapshot) error {
	data, err := json.Marshal(snap)
	if err != nil {
		return fmt.Errorf("redis: marshal snapshot %s: %w", snap.ID, err)
	}
	if err := sc.rdb.Set(ctx, snapshotKey(snap.ID), data, sc.ttl).Err(); err != nil {
		return fmt.Errorf("redis: set snapshot %s: %w", snap.ID, err)
	}
	return nil
}

// Get returns domain.ErrNotFound on a miss.
func (sc *SnapshotCache) Get(ctx context.Context, id string) (domain.PoolSnapshot, error) {
	data, err := sc.rdb.Get(ctx, snapshotKey(id)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return domain.PoolSnapshot{}, domain.ErrNotFound
		}
		return domain.PoolSnapshot{}, fmt.Errorf("redis: get snapshot %s: %w", id, err)
	}

	var snap domain.PoolSnapshot
	if err := json.Unmarshal(data, &snap); err != nil {
		return domain.PoolSnapshot{}, fmt.Errorf("redis: unmarshal snapshot %s: %w", id, err)
	}
	return snap, nil
}

// Invalidate drops a snapshot.
func (sc *SnapshotCache) Invalidate(ctx context.Context, id string) error {
	if err := sc.rdb.Del(ctx, snapshotKey(id)).Err(); err != nil {
		return fmt.Errorf("redis: invalidate snapshot %s: %w", id, err)
	}
	return nil
}

// SetIndex replaces the pool index atomically.
func (sc *SnapshotCache) SetIndex(ctx context.Context, ids []string) error {
	pipe := sc.rdb.TxPipeline()
	pipe.Del(ctx, indexKey)
	if len(ids) > 0 {
		vals := make([]any, len(ids))
		for i, id := range ids {
			vals[i] = id
		}
		pipe.RPush(ctx, indexKey, vals...)
		pipe.Expire(ctx, indexKey, sc.ttl)
	}
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("redis: set pool index: %w", err)
	}
	return nil
}

// GetIndex returns the ids of the last discovery, or nil when expired.
func (sc *SnapshotCache) GetIndex(ctx context.Context) ([]string, error) {
	ids, err := sc.rdb.LRange(ctx, indexKey, 0, -1).Result()
	if err != nil {
		return nil, fmt.Errorf("redis: get pool index: %w", err)
	}
	return ids, nil
}

var _ domain.SnapshotCache = (*SnapshotCache)(nil)
