package domain

import (
	"context"
	"time"
)

// ListOpts provides pagination and filtering for list queries.
type ListOpts struct {
	Limit  int
	Offset int
	Since  *time.Time
	Until  *time.Time
}

// PoolStore persists the pool index built by discovery.
type PoolStore interface {
	UpsertBatch(ctx context.Context, pools []PoolSnapshot) error
	GetByID(ctx context.Context, id string) (PoolSnapshot, error)
	List(ctx context.Context, opts ListOpts) ([]PoolSnapshot, error)
	Count(ctx context.Context) (int64, error)
}

// TxStore persists orchestrator run history.
type TxStore interface {
	Create(ctx context.Context, rec TxRecord) error
	Finish(ctx context.Context, rec TxRecord) error
	GetByID(ctx context.Context, id string) (TxRecord, error)
	ListRecent(ctx context.Context, opts ListOpts) ([]TxRecord, error)
	ListByPool(ctx context.Context, poolID string, opts ListOpts) ([]TxRecord, error)
}

// AuditEntry is a single audit log row.
type AuditEntry struct {
	ID        int64
	Event     string
	Detail    map[string]any
	CreatedAt time.Time
}

// AuditStore persists an append-only audit log.
type AuditStore interface {
	Log(ctx context.Context, event string, detail map[string]any) error
	List(ctx context.Context, opts ListOpts) ([]AuditEntry, error)
}
