package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/StabilityNexus/Fate/internal/domain"
)

func TestDiscoverFromEvents(t *testing.T) {
	ts := time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC)
	chain := newFakeChain()
	chain.events = []domain.ChainEvent{
		{ParsedJSON: map[string]any{"pool_id": "0xa", "name": "BTC above 100k", "creator": "0xc", "initial_price": "42"}, Timestamp: &ts},
		{ParsedJSON: map[string]any{"name": "no id"}},
		{ParsedJSON: map[string]any{"pool_id": "0x0a"}},
		{ParsedJSON: map[string]any{"pool_id": "0xb"}},
	}

	pools := NewDiscoveryService(chain, testPkg, 0, nil, discardLogger()).Discover(context.Background())
	require.Len(t, pools, 2)
	assert.Equal(t, "0xa", pools[0].ID)
	require.NotNil(t, pools[0].Event)
	assert.Equal(t, "BTC above 100k", pools[0].Event.Name)
	assert.Equal(t, uint64(42), pools[0].Event.InitialPrice)
	assert.Equal(t, &ts, pools[0].Event.Timestamp)
	assert.Equal(t, "0xb", pools[1].ID)
}

func TestDiscoverFallsBackToTransactions(t *testing.T) {
	chain := newFakeChain()
	chain.eventsErr = errors.New("network down")
	chain.txs = []domain.ChainTx{{
		Digest: "D1",
		ObjectChanges: []domain.ObjectChange{
			{Type: "created", ObjectID: "0xp1", ObjectType: testPkg + "::prediction_pool::PredictionPool"},
			{Type: "created", ObjectID: "0xcoin", ObjectType: "0x2::coin::Coin<0x2::sui::SUI>"},
			{Type: "mutated", ObjectID: "0xp0", ObjectType: testPkg + "::prediction_pool::PredictionPool"},
		},
	}}

	pools := NewDiscoveryService(chain, testPkg, 10, nil, discardLogger()).Discover(context.Background())
	require.Len(t, pools, 1)
	assert.Equal(t, "0xp1", pools[0].ID)
	assert.Nil(t, pools[0].Event)
}

func TestDiscoverNeverFails(t *testing.T) {
	chain := newFakeChain()
	chain.eventsErr = errors.New("boom")
	chain.txsErr = errors.New("boom")

	pools := NewDiscoveryService(chain, testPkg, 10, nil, discardLogger()).Discover(context.Background())
	assert.Empty(t, pools)
}

func TestDiscoverWithoutPackage(t *testing.T) {
	chain := newFakeChain()
	d := NewDiscoveryService(chain, "", 10, nil, discardLogger())
	assert.Empty(t, d.Discover(context.Background()))
	assert.Empty(t, d.PoolType())
	assert.Zero(t, chain.callCount())
}
