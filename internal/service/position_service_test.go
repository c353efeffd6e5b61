package service

import (
	"context"
	"encoding/binary"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/StabilityNexus/Fate/internal/domain"
)

func u64le(v uint64) []byte {
	b := make([]byte, 8)
	binary.LittleEndian.PutUint64(b, v)
	return b
}

func TestPositionFromBalances(t *testing.T) {
	chain := newFakeChain()
	chain.inspect = domain.InspectResult{Results: [][]domain.ReturnValue{{
		{Bytes: u64le(2_000_000_000), Type: "u64"},
		{Bytes: u64le(0), Type: "u64"},
	}}}
	pools := &fakePools{snaps: map[string]domain.PoolSnapshot{
		"0xpool": {
			ID:        "0xpool",
			BullToken: &domain.TokenInfo{ImpliedPrice: 1.5},
			BearToken: &domain.TokenInfo{ImpliedPrice: 1},
		},
	}}
	svc := NewPositionService(chain, pools, testPkg, discardLogger())

	pos, err := svc.Position(context.Background(), "0xpool", "0xabc", domain.AvgCost{})
	require.NoError(t, err)
	assert.Equal(t, "0xabc", pos.Address)
	assert.Equal(t, uint64(2_000_000_000), pos.BullTokens)
	assert.Zero(t, pos.BearTokens)

	require.NotNil(t, chain.inspected)
	call := chain.inspected.MoveCalls()[0]
	assert.Equal(t, testPkg+"::prediction_pool::get_user_balances", call.Target())
	assert.Equal(t, "0xabc", chain.inspected.Inputs[call.Arguments[1].Index].Value)
	assert.Equal(t, "0xabc", chain.inspectedBy)
}

func TestBalancesDegradeToZero(t *testing.T) {
	chain := newFakeChain()
	svc := NewPositionService(chain, &fakePools{}, testPkg, discardLogger())

	chain.inspectErr = errors.New("network")
	assert.Equal(t, domain.Balances{}, svc.Balances(context.Background(), "0xpool", "0xabc"))

	chain.inspectErr = nil
	chain.inspect = domain.InspectResult{Error: "MoveAbort"}
	assert.Equal(t, domain.Balances{}, svc.Balances(context.Background(), "0xpool", "0xabc"))

	chain.inspect = domain.InspectResult{Results: [][]domain.ReturnValue{{{Bytes: []byte{1}}}}}
	assert.Equal(t, domain.Balances{}, svc.Balances(context.Background(), "0xpool", "0xabc"))
}

func TestPositionPoolMissing(t *testing.T) {
	svc := NewPositionService(newFakeChain(), &fakePools{}, testPkg, discardLogger())
	_, err := svc.Position(context.Background(), "0xnope", "0xabc", domain.AvgCost{})
	assert.ErrorIs(t, err, domain.ErrNotFound)
}
