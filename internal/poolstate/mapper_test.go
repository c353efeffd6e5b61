package poolstate

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/StabilityNexus/Fate/internal/domain"
)

const poolID = "0x5f1e2d3c4b5a69788796a5b4c3d2e1f00112233445566778899aabbccddeeff0"

func rawFields(bull, bear, bullSupply, bearSupply string) map[string]any {
	return map[string]any{
		"id":               map[string]any{"id": poolID},
		"name":             "BTC up or down",
		"description":      "Weekly pool",
		"asset_address":    "0xf9c0172ba10dfa4d19088d94f5bf61d3b54d5bd7483a322a982e1373ee8ea31b",
		"pool_creator":     "0xc0ffee",
		"current_price":    "6500000000000",
		"bull_reserve":     bull,
		"bear_reserve":     bear,
		"pool_creator_fee": "2",
		"protocol_fee":     "1",
		"stable_order_fee": "3",
		"bull_token": map[string]any{
			"type":   "0xpkg::prediction_pool::Token",
			"fields": map[string]any{"id": map[string]any{"id": "0xb1"}, "name": "BULL BTC", "symbol": "bBTC", "total_supply": bullSupply},
		},
		"bear_token": map[string]any{
			"type":   "0xpkg::prediction_pool::Token",
			"fields": map[string]any{"id": map[string]any{"id": "0xb2"}, "name": "", "symbol": "", "total_supply": bearSupply},
		},
	}
}

func testOptions() Options {
	return Options{
		PriceScale: 1e9,
		Assets: NewAssetTable([]domain.Asset{
			{FeedID: "0xf9c0172ba10dfa4d19088d94f5bf61d3b54d5bd7483a322a982e1373ee8ea31b", Name: "Bitcoin", Symbol: "BTC"},
		}),
		Now: func() time.Time { return time.Date(2025, 1, 2, 3, 4, 5, 0, time.UTC) },
	}
}

func TestMapScenario(t *testing.T) {
	snap, err := Map(domain.MoveObject{ID: poolID, Fields: rawFields("600", "400", "300", "200")}, nil, testOptions())
	require.NoError(t, err)

	assert.InDelta(t, 60, snap.BullPercentage, 1e-9)
	assert.InDelta(t, 40, snap.BearPercentage, 1e-9)
	require.NotNil(t, snap.BullToken)
	require.NotNil(t, snap.BearToken)
	assert.InDelta(t, 2, snap.BullToken.ImpliedPrice, 1e-9)
	assert.InDelta(t, 2, snap.BearToken.ImpliedPrice, 1e-9)

	assert.Equal(t, "BTC up or down", snap.Name)
	assert.Equal(t, "BTC", snap.Asset.Symbol)
	assert.Equal(t, "bBTC", snap.BullToken.Symbol)
	assert.Equal(t, "BEAR Token", snap.BearToken.Name)
	assert.Equal(t, "BEAR", snap.BearToken.Symbol)
	assert.Equal(t, uint64(1000), snap.TotalLiquidity())
	assert.Equal(t, uint64(1*2+3+2), snap.Fees.Total())
	assert.InDelta(t, 6500, snap.DisplayPrice(), 1e-9)
	assert.Nil(t, snap.CreatedAt)
}

func TestMapEmptyPool(t *testing.T) {
	snap, err := Map(domain.MoveObject{ID: poolID, Fields: rawFields("0", "0", "0", "0")}, nil, testOptions())
	require.NoError(t, err)

	assert.Equal(t, 50.0, snap.BullPercentage)
	assert.Equal(t, 50.0, snap.BearPercentage)
	assert.Equal(t, 1.0, snap.BullToken.ImpliedPrice)
	assert.Equal(t, 1.0, snap.BearToken.ImpliedPrice)
}

func TestMapMalformedNumbersBecomeZero(t *testing.T) {
	snap, err := Map(domain.MoveObject{ID: poolID, Fields: rawFields("lots", "-4", "x", "")}, nil, testOptions())
	require.NoError(t, err)

	assert.Zero(t, snap.BullReserve)
	assert.Zero(t, snap.BearReserve)
	assert.Equal(t, 50.0, snap.BullPercentage)
}

func TestMapFallbacks(t *testing.T) {
	fields := map[string]any{
		"id":           map[string]any{"id": poolID},
		"asset_id":     []any{1.0, 171.0},
		"bull_reserve": "10",
		"bear_token":   "not an object",
	}
	created := time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC)
	ev := &domain.PoolCreatedEvent{PoolID: poolID, Name: "From event", Creator: "0xabc", Timestamp: &created}

	snap, err := Map(domain.MoveObject{Fields: fields}, ev, testOptions())
	require.NoError(t, err)

	assert.Equal(t, poolID, snap.ID)
	assert.Equal(t, "From event", snap.Name)
	assert.Equal(t, "0xabc", snap.Creator)
	assert.Equal(t, "0x01ab", snap.AssetReference)
	assert.Equal(t, "UNK", snap.Asset.Symbol)
	assert.Equal(t, "Unknown", snap.Asset.Name)
	assert.Equal(t, defaultDescription, snap.Description)
	assert.Nil(t, snap.BullToken)
	assert.Nil(t, snap.BearToken)
	require.NotNil(t, snap.CreatedAt)
	assert.True(t, snap.CreatedAt.Equal(created))
	assert.Equal(t, 100.0, snap.BullPercentage)
	assert.Equal(t, 0.0, snap.BearPercentage)

	delete(fields, "asset_id")
	snap, err = Map(domain.MoveObject{Fields: fields}, nil, testOptions())
	require.NoError(t, err)
	assert.Equal(t, "Pool cddeeff0", snap.Name)
	assert.Empty(t, snap.AssetReference)
}

func TestPlaceholder(t *testing.T) {
	assert.Equal(t, "Pool ddeeff00", Placeholder("0xaabbccddeeff00"))
	assert.Equal(t, "Pool 0x1", Placeholder("0x1"))
}

func TestMapErrors(t *testing.T) {
	_, err := Map(domain.MoveObject{ID: poolID}, nil, testOptions())
	assert.True(t, errors.Is(err, domain.ErrMalformedPool))

	_, err = Map(domain.MoveObject{Fields: map[string]any{"name": "x"}}, nil, testOptions())
	assert.True(t, errors.Is(err, domain.ErrMalformedPool))

	opts := testOptions()
	opts.PoolType = "0xpkg::prediction_pool::PredictionPool"
	_, err = Map(domain.MoveObject{ID: poolID, Type: "0x2::coin::Coin", Fields: rawFields("1", "1", "1", "1")}, nil, opts)
	assert.True(t, errors.Is(err, domain.ErrInvalidPoolType))
}

func TestPercentagesSumTo100(t *testing.T) {
	cases := [][2]uint64{{0, 0}, {1, 0}, {0, 1}, {1, 2}, {3, 7}, {1 << 62, 1 << 62}, {^uint64(0), ^uint64(0)}, {^uint64(0), 1}}
	for _, c := range cases {
		bull, bear := Percentages(c[0], c[1])
		assert.InDelta(t, 100, bull+bear, 1e-9, "reserves %v", c)
		assert.GreaterOrEqual(t, bull, 0.0)
		assert.GreaterOrEqual(t, bear, 0.0)
	}
}
