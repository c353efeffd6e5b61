package poolstate

import (
	"fmt"
	"strings"

	"github.com/StabilityNexus/Fate/internal/domain"
)

// FeeUnit says how the raw fee integers of a pool are read for display.
type FeeUnit string

const (
	FeeUnitRaw     FeeUnit = "raw"
	FeeUnitPercent FeeUnit = "percent"
	FeeUnitBps     FeeUnit = "bps"
)

// ParseFeeUnit accepts raw, percent or bps in any case. Empty means raw.
func ParseFeeUnit(s string) (FeeUnit, error) {
	switch u := FeeUnit(strings.ToLower(strings.TrimSpace(s))); u {
	case "":
		return FeeUnitRaw, nil
	case FeeUnitRaw, FeeUnitPercent, FeeUnitBps:
		return u, nil
	default:
		return "", fmt.Errorf("poolstate: unknown fee unit %q: %w", s, domain.ErrInvalidInput)
	}
}

// FeeDisplay is the presentation form of Fees. With the raw unit the values
// are the stored integers; otherwise they are percentages.
type FeeDisplay struct {
	Unit           FeeUnit `json:"unit"`
	PoolCreatorFee float64 `json:"pool_creator_fee"`
	ProtocolFee    float64 `json:"protocol_fee"`
	StableOrderFee float64 `json:"stable_order_fee"`
	Total          float64 `json:"total"`
}

// DisplayFees converts f for the API. The snapshot itself keeps raw values.
func DisplayFees(f domain.Fees, unit FeeUnit) FeeDisplay {
	conv := func(v uint64) float64 { return float64(v) }
	if unit == FeeUnitBps {
		conv = func(v uint64) float64 { return float64(v) / 100 }
	}
	if unit == "" {
		unit = FeeUnitRaw
	}
	return FeeDisplay{
		Unit:           unit,
		PoolCreatorFee: conv(f.PoolCreatorFee),
		ProtocolFee:    conv(f.ProtocolFee),
		StableOrderFee: conv(f.StableOrderFee),
		Total:          conv(f.Total()),
	}
}
