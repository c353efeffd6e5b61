package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/StabilityNexus/Fate/internal/domain"
)

// TxStore implements domain.TxStore over the tx_history table.
type TxStore struct {
	pool *pgxpool.Pool
}

// NewTxStore creates a TxStore.
func NewTxStore(pool *pgxpool.Pool) *TxStore {
	return &TxStore{pool: pool}
}

const txCols = `id, action, pool_id, sender, amount, is_bull, state, digest, error_kind, message, created_at, finished_at`

// Create inserts a run record.
func (s *TxStore) Create(ctx context.Context, rec domain.TxRecord) error {
	_, err := s.pool.Exec(ctx, `
		INSERT INTO tx_history (`+txCols+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)`,
		rec.ID, string(rec.Action), rec.PoolID, rec.Sender, rec.Amount, rec.IsBull,
		string(rec.State), rec.Digest, string(rec.ErrorKind), rec.Message, rec.CreatedAt, rec.FinishedAt,
	)
	if err != nil {
		return fmt.Errorf("postgres: insert tx %s: %w", rec.ID, err)
	}
	return nil
}

// Finish writes the terminal state of a run.
func (s *TxStore) Finish(ctx context.Context, rec domain.TxRecord) error {
	tag, err := s.pool.Exec(ctx, `
		UPDATE tx_history SET
			pool_id     = $2,
			state       = $3,
			digest      = $4,
			error_kind  = $5,
			message     = $6,
			finished_at = $7
		WHERE id = $1`,
		rec.ID, rec.PoolID, string(rec.State), rec.Digest, string(rec.ErrorKind), rec.Message, rec.FinishedAt,
	)
	if err != nil {
		return fmt.Errorf("postgres: finish tx %s: %w", rec.ID, err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrNotFound
	}
	return nil
}

// GetByID returns one run record.
func (s *TxStore) GetByID(ctx context.Context, id string) (domain.TxRecord, error) {
	rec, err := scanTx(s.pool.QueryRow(ctx, `SELECT `+txCols+` FROM tx_history WHERE id = $1`, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.TxRecord{}, domain.ErrNotFound
		}
		return domain.TxRecord{}, fmt.Errorf("postgres: get tx %s: %w", id, err)
	}
	return rec, nil
}

// ListRecent returns runs newest first.
func (s *TxStore) ListRecent(ctx context.Context, opts domain.ListOpts) ([]domain.TxRecord, error) {
	return s.list(ctx, "", opts)
}

// ListByPool returns the runs against one pool, newest first.
func (s *TxStore) ListByPool(ctx context.Context, poolID string, opts domain.ListOpts) ([]domain.TxRecord, error) {
	if poolID == "" {
		return nil, fmt.Errorf("postgres: list txs: empty pool id: %w", domain.ErrInvalidInput)
	}
	return s.list(ctx, poolID, opts)
}

func (s *TxStore) list(ctx context.Context, poolID string, opts domain.ListOpts) ([]domain.TxRecord, error) {
	if opts.Limit <= 0 {
		opts.Limit = 50
	}
	query, args := listQuery(`SELECT `+txCols+` FROM tx_history WHERE 1=1`, poolID, opts, "created_at DESC, id")
	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("postgres: list txs: %w", err)
	}
	defer rows.Close()

	var out []domain.TxRecord
	for rows.Next() {
		rec, err := scanTx(rows)
		if err != nil {
			return nil, fmt.Errorf("postgres: scan tx: %w", err)
		}
		out = append(out, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("postgres: list txs rows: %w", err)
	}
	return out, nil
}

func scanTx(row pgx.Row) (domain.TxRecord, error) {
	var (
		rec                      domain.TxRecord
		action, state, errorKind string
	)
	err := row.Scan(&rec.ID, &action, &rec.PoolID, &rec.Sender, &rec.Amount, &rec.IsBull,
		&state, &rec.Digest, &errorKind, &rec.Message, &rec.CreatedAt, &rec.FinishedAt)
	if err != nil {
		return domain.TxRecord{}, err
	}
	rec.Action = domain.TxAction(action)
	rec.State = domain.TxState(state)
	rec.ErrorKind = domain.ErrorKind(errorKind)
	return rec, nil
}

var (
	_ domain.TxStore    = (*TxStore)(nil)
	_ domain.AuditStore = (*AuditStore)(nil)
)
