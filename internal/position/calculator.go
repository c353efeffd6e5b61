// Package position derives a user's position value and returns from a pool
// snapshot.
package position

import (
	"math"

	"github.com/StabilityNexus/Fate/internal/domain"
)

// Compute values each side's balance at that side's own implied price and
// computes the percentage return against avg. A side whose token info is
// unavailable is valued at 0.
func Compute(s domain.PoolSnapshot, b domain.Balances, avg domain.AvgCost) domain.UserPosition {
	bullValue := value(b.BullTokens, s.BullToken)
	bearValue := value(b.BearTokens, s.BearToken)
	return domain.UserPosition{
		PoolID:        s.ID,
		BullTokens:    b.BullTokens,
		BearTokens:    b.BearTokens,
		BullValue:     bullValue,
		BearValue:     bearValue,
		BullReturnPct: ReturnPct(b.BullTokens, avg.Bull, bullValue),
		BearReturnPct: ReturnPct(b.BearTokens, avg.Bear, bearValue),
	}
}

func value(tokens uint64, t *domain.TokenInfo) float64 {
	if t == nil || tokens == 0 {
		return 0
	}
	return finite(float64(tokens) * t.ImpliedPrice)
}

// ReturnPct is (value - cost) / cost * 100 with cost = tokens * avgPrice. It
// is 0 when there are no tokens or the cost basis is unknown.
func ReturnPct(tokens uint64, avgPrice, currentValue float64) float64 {
	if tokens == 0 || avgPrice == 0 || !isFinite(avgPrice) {
		return 0
	}
	cost := float64(tokens) * avgPrice
	if cost == 0 {
		return 0
	}
	return finite((currentValue - cost) / cost * 100)
}

func finite(f float64) float64 {
	if !isFinite(f) {
		return 0
	}
	return f
}

func isFinite(f float64) bool {
	return !math.IsNaN(f) && !math.IsInf(f, 0)
}
