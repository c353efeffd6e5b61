package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/StabilityNexus/Fate/internal/domain"
)

// PoolStore implements domain.PoolStore. Each row keeps the latest snapshot
// as JSONB next to the columns used for ordering and lookups.
type PoolStore struct {
	pool *pgxpool.Pool
}

// NewPoolStore creates a PoolStore.
func NewPoolStore(pool *pgxpool.Pool) *PoolStore {
	return &PoolStore{pool: pool}
}

// A known creation time is never overwritten by a snapshot without one.
const upsertPool = `
	INSERT INTO pools (id, name, creator, asset_reference, snapshot, created_at, fetched_at, updated_at)
	VALUES ($1, $2, $3, $4, $5, $6, $7, NOW())
	ON CONFLICT (id) DO UPDATE SET
		name            = EXCLUDED.name,
		creator         = EXCLUDED.creator,
		asset_reference = EXCLUDED.asset_reference,
		snapshot        = EXCLUDED.snapshot,
		created_at      = COALESCE(EXCLUDED.created_at, pools.created_at),
		fetched_at      = EXCLUDED.fetched_at,
		updated_at      = NOW()`

// UpsertBatch writes every snapshot in one batch.
func (s *PoolStore) UpsertBatch(ctx context.Context, snaps []domain.PoolSnapshot) error {
	if len(snaps) == 0 {
		return nil
	}

	batch := &pgx.Batch{}
	for _, snap := range snaps {
		data, err := json.Marshal(snap)
		if err != nil {
			return fmt.Errorf("postgres: marshal pool %s: %w", snap.ID, err)
		}
		batch.Queue(upsertPool,
			domain.NormalizeObjectID(snap.ID), snap.Name, snap.Creator, snap.AssetReference,
			data, snap.CreatedAt, snap.FetchedAt,
		)
	}

	br := s.pool.SendBatch(ctx, batch)
	defer br.Close()
	for _, snap := range snaps {
		if _, err := br.Exec(); err != nil {
			return fmt.Errorf("postgres: upsert pool %s: %w", snap.ID, err)
		}
	}
	return nil
}

// GetByID returns the stored snapshot with the row's creation time, which
// survives refreshes that carry none.
func (s *PoolStore) GetByID(ctx context.Context, id string) (domain.PoolSnapshot, error) {
	var snap domain.PoolSnapshot
	err := s.pool.QueryRow(ctx,
		`SELECT snapshot, created_at FROM pools WHERE id = $1`,
		domain.NormalizeObjectID(id),
	).Scan(&snap, &snap.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.PoolSnapshot{}, domain.ErrNotFound
		}
		return domain.PoolSnapshot{}, fmt.Errorf("postgres: get pool %s: %w", id, err)
	}
	return snap, nil
}

// List returns snapshots newest first; pools without a creation time last.
func (s *PoolStore) List(ctx context.Context, opts domain.ListOpts) ([]domain.PoolSnapshot, error) {
	query, args := listQuery(`SELECT snapshot, created_at FROM pools WHERE 1=1`, "", opts, "created_at DESC NULLS LAST, id")
	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("postgres: list pools: %w", err)
	}
	defer rows.Close()

	var out []domain.PoolSnapshot
	for rows.Next() {
		var snap domain.PoolSnapshot
		if err := rows.Scan(&snap, &snap.CreatedAt); err != nil {
			return nil, fmt.Errorf("postgres: scan pool: %w", err)
		}
		out = append(out, snap)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("postgres: list pools rows: %w", err)
	}
	return out, nil
}

// Count returns the number of indexed pools.
func (s *PoolStore) Count(ctx context.Context) (int64, error) {
	var n int64
	if err := s.pool.QueryRow(ctx, `SELECT COUNT(*) FROM pools`).Scan(&n); err != nil {
		return 0, fmt.Errorf("postgres: count pools: %w", err)
	}
	return n, nil
}

var _ domain.PoolStore = (*PoolStore)(nil)
