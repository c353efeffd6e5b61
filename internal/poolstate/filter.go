package poolstate

import (
	"sort"
	"strings"

	"github.com/StabilityNexus/Fate/internal/domain"
)

// Apply returns the snapshots matching every non-zero criterion of f, in
// their original order.
func Apply(snaps []domain.PoolSnapshot, f domain.PoolFilter) []domain.PoolSnapshot {
	search := strings.ToLower(strings.TrimSpace(f.Search))
	asset := strings.ToLower(strings.TrimSpace(f.Asset))
	creator := strings.ToLower(strings.TrimSpace(f.Creator))

	out := make([]domain.PoolSnapshot, 0, len(snaps))
	for _, s := range snaps {
		if search != "" && !matchesSearch(s, search) {
			continue
		}
		if asset != "" && asset != strings.ToLower(s.Asset.Symbol) && asset != strings.ToLower(s.AssetReference) {
			continue
		}
		if creator != "" && !strings.EqualFold(domain.NormalizeObjectID(creator), domain.NormalizeObjectID(s.Creator)) {
			continue
		}
		liq := s.TotalLiquidity()
		if f.MinLiquidity > 0 && liq < f.MinLiquidity {
			continue
		}
		if f.MaxLiquidity > 0 && liq > f.MaxLiquidity {
			continue
		}
		fees := s.Fees.Total()
		if f.MinFees > 0 && fees < f.MinFees {
			continue
		}
		if f.MaxFees > 0 && fees > f.MaxFees {
			continue
		}
		out = append(out, s)
	}
	return out
}

func matchesSearch(s domain.PoolSnapshot, q string) bool {
	for _, field := range []string{s.Name, s.Description, s.ID, s.Asset.Name, s.Asset.Symbol} {
		if strings.Contains(strings.ToLower(field), q) {
			return true
		}
	}
	return false
}

// SortNewestFirst orders snapshots by CreatedAt descending. Snapshots without
// a timestamp keep their relative order after the dated ones.
func SortNewestFirst(snaps []domain.PoolSnapshot) {
	sort.SliceStable(snaps, func(i, j int) bool {
		a, b := snaps[i].CreatedAt, snaps[j].CreatedAt
		switch {
		case a == nil:
			return false
		case b == nil:
			return true
		default:
			return a.After(*b)
		}
	})
}

// CanSettle reports whether addr is the pool's recorded creator. The
// contract enforces the rule; this only drives presentation.
func CanSettle(s domain.PoolSnapshot, addr string) bool {
	if addr == "" || s.Creator == "" {
		return false
	}
	return domain.NormalizeObjectID(addr) == domain.NormalizeObjectID(s.Creator)
}
