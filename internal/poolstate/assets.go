package poolstate

import (
	"sort"
	"strings"

	"github.com/StabilityNexus/Fate/internal/domain"
)

// AssetTable maps price feed ids to display metadata. The zero value is
// usable and resolves everything to Unknown.
type AssetTable map[string]domain.Asset

// NewAssetTable indexes assets by lower-cased feed id.
func NewAssetTable(assets []domain.Asset) AssetTable {
	t := make(AssetTable, len(assets))
	for _, a := range assets {
		t[strings.ToLower(a.FeedID)] = a
	}
	return t
}

// Resolve returns the asset for ref, or an Unknown/UNK placeholder.
func (t AssetTable) Resolve(ref string) domain.Asset {
	if a, ok := t[strings.ToLower(ref)]; ok {
		return a
	}
	return domain.Asset{FeedID: ref, Name: "Unknown", Symbol: "UNK"}
}

// List returns the known assets ordered by symbol.
func (t AssetTable) List() []domain.Asset {
	out := make([]domain.Asset, 0, len(t))
	for _, a := range t {
		out = append(out, a)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Symbol < out[j].Symbol })
	return out
}
