// Package poolstate turns raw prediction pool objects into immutable
// PoolSnapshot values and derives their market metrics.
package poolstate

import (
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/StabilityNexus/Fate/internal/domain"
	"github.com/StabilityNexus/Fate/internal/normalize"
)

const (
	defaultDescription = "A prediction market pool"
	placeholderPrefix  = "Pool "
)

// Options carry the configuration-dependent parts of a mapping.
type Options struct {
	// PoolType, when set, must equal the object's Move type.
	PoolType   string
	PriceScale float64
	Assets     AssetTable
	Now        func() time.Time
}

// RawToken is the decoded content of a bull_token / bear_token field.
type RawToken struct {
	ID          string
	Name        string
	Symbol      string
	TotalSupply uint64
}

// RawPool is the schema-checked content of a PredictionPool object. Numeric
// fields that fail to parse are zero.
type RawPool struct {
	ID             string
	Name           string
	Description    string
	AssetAddress   string
	AssetID        string
	Creator        string
	CurrentPrice   uint64
	BullReserve    uint64
	BearReserve    uint64
	BullToken      *RawToken
	BearToken      *RawToken
	PoolCreatorFee uint64
	ProtocolFee    uint64
	StableOrderFee uint64
}

// Decode validates and extracts the fields of a pool object. It fails only
// when the object cannot be identified; every other malformed field degrades
// to its zero value.
func Decode(obj domain.MoveObject) (RawPool, error) {
	if obj.Fields == nil {
		return RawPool{}, fmt.Errorf("poolstate: decode %q: no fields: %w", obj.ID, domain.ErrMalformedPool)
	}
	f := obj.Fields

	id := obj.ID
	if id == "" {
		id = objectID(f["id"])
	}
	if id == "" {
		return RawPool{}, fmt.Errorf("poolstate: decode: missing object id: %w", domain.ErrMalformedPool)
	}

	return RawPool{
		ID:             id,
		Name:           str(f["name"]),
		Description:    str(f["description"]),
		AssetAddress:   str(f["asset_address"]),
		AssetID:        normalize.BytesToHexAddress(f["asset_id"]),
		Creator:        str(f["pool_creator"]),
		CurrentPrice:   normalize.ToUintSafe(f["current_price"], 0),
		BullReserve:    normalize.ToUintSafe(f["bull_reserve"], 0),
		BearReserve:    normalize.ToUintSafe(f["bear_reserve"], 0),
		BullToken:      decodeToken(f["bull_token"]),
		BearToken:      decodeToken(f["bear_token"]),
		PoolCreatorFee: normalize.ToUintSafe(f["pool_creator_fee"], 0),
		ProtocolFee:    normalize.ToUintSafe(f["protocol_fee"], 0),
		StableOrderFee: normalize.ToUintSafe(f["stable_order_fee"], 0),
	}, nil
}

// decodeToken returns nil unless v is {fields: {...}}.
func decodeToken(v any) *RawToken {
	wrapper, ok := v.(map[string]any)
	if !ok {
		return nil
	}
	fields, ok := wrapper["fields"].(map[string]any)
	if !ok {
		return nil
	}
	return &RawToken{
		ID:          objectID(fields["id"]),
		Name:        str(fields["name"]),
		Symbol:      str(fields["symbol"]),
		TotalSupply: normalize.ToUintSafe(fields["total_supply"], 0),
	}
}

// Map builds a snapshot from a pool object and, when discovery found one, its
// creation event. It performs no I/O.
func Map(obj domain.MoveObject, ev *domain.PoolCreatedEvent, opts Options) (domain.PoolSnapshot, error) {
	if opts.PoolType != "" && obj.Type != "" && obj.Type != opts.PoolType {
		return domain.PoolSnapshot{}, fmt.Errorf("poolstate: map %s: got %s: %w", obj.ID, obj.Type, domain.ErrInvalidPoolType)
	}
	raw, err := Decode(obj)
	if err != nil {
		return domain.PoolSnapshot{}, err
	}
	return FromRaw(raw, ev, opts), nil
}

// FromRaw derives a snapshot from already decoded fields.
func FromRaw(raw RawPool, ev *domain.PoolCreatedEvent, opts Options) domain.PoolSnapshot {
	name := raw.Name
	if name == "" && ev != nil {
		name = ev.Name
	}
	if name == "" {
		name = Placeholder(raw.ID)
	}

	desc := raw.Description
	if desc == "" {
		desc = defaultDescription
	}

	asset := raw.AssetAddress
	if asset == "" {
		asset = raw.AssetID
	}

	creator := raw.Creator
	if creator == "" && ev != nil {
		creator = ev.Creator
	}

	bullPct, bearPct := Percentages(raw.BullReserve, raw.BearReserve)

	now := time.Now
	if opts.Now != nil {
		now = opts.Now
	}

	snap := domain.PoolSnapshot{
		ID:             raw.ID,
		Name:           name,
		Description:    desc,
		AssetReference: asset,
		Asset:          opts.Assets.Resolve(asset),
		Creator:        creator,
		CurrentPrice:   raw.CurrentPrice,
		PriceScale:     opts.PriceScale,
		BullReserve:    raw.BullReserve,
		BearReserve:    raw.BearReserve,
		BullToken:      tokenInfo(raw.BullToken, raw.BullReserve, "BULL"),
		BearToken:      tokenInfo(raw.BearToken, raw.BearReserve, "BEAR"),
		BullPercentage: bullPct,
		BearPercentage: bearPct,
		Fees: domain.Fees{
			PoolCreatorFee: raw.PoolCreatorFee,
			ProtocolFee:    raw.ProtocolFee,
			StableOrderFee: raw.StableOrderFee,
		},
		FetchedAt: now().UTC(),
	}
	if ev != nil && ev.Timestamp != nil {
		ts := *ev.Timestamp
		snap.CreatedAt = &ts
	}
	return snap
}

func tokenInfo(t *RawToken, reserve uint64, side string) *domain.TokenInfo {
	if t == nil {
		return nil
	}
	name, symbol := t.Name, t.Symbol
	if name == "" {
		name = side + " Token"
	}
	if symbol == "" {
		symbol = side
	}
	return &domain.TokenInfo{
		ID:           t.ID,
		Name:         name,
		Symbol:       symbol,
		TotalSupply:  t.TotalSupply,
		ImpliedPrice: ImpliedPrice(reserve, t.TotalSupply),
	}
}

// Percentages splits 100 between the two reserves, 50/50 when both are zero.
func Percentages(bull, bear uint64) (float64, float64) {
	total := float64(bull) + float64(bear)
	if total <= 0 {
		return 50, 50
	}
	bullPct := float64(bull) / total * 100
	if math.IsNaN(bullPct) || math.IsInf(bullPct, 0) {
		return 50, 50
	}
	return bullPct, 100 - bullPct
}

// ImpliedPrice is reserve per token, or 1 before any supply exists.
func ImpliedPrice(reserve, supply uint64) float64 {
	if supply == 0 {
		return 1
	}
	p := float64(reserve) / float64(supply)
	if math.IsNaN(p) || math.IsInf(p, 0) {
		return 1
	}
	return p
}

// Placeholder is the display name of a pool without one.
func Placeholder(id string) string {
	if len(id) > 8 {
		id = id[len(id)-8:]
	}
	return placeholderPrefix + id
}

func objectID(v any) string {
	switch x := v.(type) {
	case string:
		return x
	case map[string]any:
		if s, ok := x["id"].(string); ok {
			return s
		}
	}
	return ""
}

func str(v any) string {
	s, _ := v.(string)
	return strings.TrimSpace(s)
}
