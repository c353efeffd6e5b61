package postgres

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/StabilityNexus/Fate/internal/domain"
)

func TestListQuery(t *testing.T) {
	since := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)

	q, args := listQuery("SELECT * FROM tx_history WHERE 1=1", "0xpool",
		domain.ListOpts{Limit: 10, Offset: 20, Since: &since}, "created_at DESC")
	assert.Equal(t,
		"SELECT * FROM tx_history WHERE 1=1 AND pool_id = $1 AND created_at >= $2 ORDER BY created_at DESC LIMIT $3 OFFSET $4",
		q)
	assert.Equal(t, []any{"0xpool", since, 10, 20}, args)

	q, args = listQuery("SELECT * FROM pools WHERE 1=1", "", domain.ListOpts{}, "id")
	assert.Equal(t, "SELECT * FROM pools WHERE 1=1 ORDER BY id", q)
	assert.Empty(t, args)
}

func TestDSN(t *testing.T) {
	assert.Equal(t, "postgres://u:p@db:5432/fate?sslmode=disable",
		DSN(ClientConfig{User: "u", Password: "p", Host: "db", Database: "fate"}))
	assert.Equal(t, "postgres://x", DSN(ClientConfig{DSN: "postgres://x", Host: "ignored"}))
}
