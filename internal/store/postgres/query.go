package postgres

import (
	"fmt"

	"github.com/StabilityNexus/Fate/internal/domain"
)

// listQuery appends the created_at window, ordering and pagination of opts
// to base. poolID, when set, adds a pool_id filter.
func listQuery(base, poolID string, opts domain.ListOpts, orderBy string) (string, []any) {
	query := base
	var args []any
	arg := func(v any) string {
		args = append(args, v)
		return fmt.Sprintf("$%d", len(args))
	}

	if poolID != "" {
		query += " AND pool_id = " + arg(poolID)
	}
	if opts.Since != nil {
		query += " AND created_at >= " + arg(*opts.Since)
	}
	if opts.Until != nil {
		query += " AND created_at <= " + arg(*opts.Until)
	}
	query += " ORDER BY " + orderBy
	if opts.Limit > 0 {
		query += " LIMIT " + arg(opts.Limit)
	}
	if opts.Offset > 0 {
		query += " OFFSET " + arg(opts.Offset)
	}
	return query, args
}
