package poolstate

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/StabilityNexus/Fate/internal/domain"
)

func TestParseFeeUnit(t *testing.T) {
	for in, want := range map[string]FeeUnit{"": FeeUnitRaw, "RAW": FeeUnitRaw, " bps ": FeeUnitBps, "Percent": FeeUnitPercent} {
		got, err := ParseFeeUnit(in)
		require.NoError(t, err, in)
		assert.Equal(t, want, got, in)
	}
	_, err := ParseFeeUnit("cents")
	assert.ErrorIs(t, err, domain.ErrInvalidInput)
}

func TestDisplayFees(t *testing.T) {
	fees := domain.Fees{PoolCreatorFee: 50, ProtocolFee: 25, StableOrderFee: 10}

	raw := DisplayFees(fees, FeeUnitRaw)
	assert.Equal(t, 110.0, raw.Total)
	assert.Equal(t, 25.0, raw.ProtocolFee)

	bps := DisplayFees(fees, FeeUnitBps)
	assert.Equal(t, FeeUnitBps, bps.Unit)
	assert.InDelta(t, 1.1, bps.Total, 1e-12)
	assert.InDelta(t, 0.5, bps.PoolCreatorFee, 1e-12)

	assert.Equal(t, FeeUnitRaw, DisplayFees(fees, "").Unit)
}
