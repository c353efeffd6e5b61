package handler

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/StabilityNexus/Fate/internal/domain"
	"github.com/StabilityNexus/Fate/internal/poolstate"
	"github.com/StabilityNexus/Fate/internal/service"
)

// PoolService is what the pool endpoints need from the service layer.
type PoolService interface {
	List(ctx context.Context, f domain.PoolFilter) []domain.PoolSnapshot
	Get(ctx context.Context, id string) (domain.PoolSnapshot, error)
	Refresh(ctx context.Context, id string) (domain.PoolSnapshot, error)
	Assets() []domain.Asset
}

// PoolHandler serves pool listing, detail and asset endpoints.
type PoolHandler struct {
	pools   PoolService
	feeUnit poolstate.FeeUnit
	logger  *slog.Logger
}

// NewPoolHandler creates a PoolHandler. feeUnit only changes how fees are
// displayed.
func NewPoolHandler(pools PoolService, feeUnit poolstate.FeeUnit, logger *slog.Logger) *PoolHandler {
	return &PoolHandler{pools: pools, feeUnit: feeUnit, logger: logger}
}

// poolView is a snapshot plus derived display fields.
type poolView struct {
	domain.PoolSnapshot
	DisplayPrice   float64              `json:"display_price"`
	TotalLiquidity uint64               `json:"total_liquidity"`
	FeeDisplay     poolstate.FeeDisplay `json:"fee_display"`
	CanSettle      *bool                `json:"can_settle,omitempty"`
}

func (h *PoolHandler) view(s domain.PoolSnapshot, viewer string) poolView {
	v := poolView{
		PoolSnapshot:   s,
		DisplayPrice:   s.DisplayPrice(),
		TotalLiquidity: s.TotalLiquidity(),
		FeeDisplay:     poolstate.DisplayFees(s.Fees, h.feeUnit),
	}
	if viewer != "" {
		ok := poolstate.CanSettle(s, viewer)
		v.CanSettle = &ok
	}
	return v
}

type listPoolsResponse struct {
	Pools  []poolView `json:"pools"`
	Total  int        `json:"total"`
	Limit  int        `json:"limit"`
	Offset int        `json:"offset"`
}

// ListPools returns filtered snapshots, newest first.
// GET /api/pools?search=&asset=&creator=&min_liquidity=&max_liquidity=&min_fees=&max_fees=&limit=&offset=
func (h *PoolHandler) ListPools(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	f := domain.PoolFilter{
		Search:  q.Get("search"),
		Asset:   q.Get("asset"),
		Creator: q.Get("creator"),
	}
	for name, dst := range map[string]*uint64{
		"min_liquidity": &f.MinLiquidity,
		"max_liquidity": &f.MaxLiquidity,
		"min_fees":      &f.MinFees,
		"max_fees":      &f.MaxFees,
	} {
		n, err := parseUint(r, name)
		if err != nil {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		*dst = n
	}
	opts := parseListOpts(r)

	snaps := h.pools.List(r.Context(), f)
	total := len(snaps)
	start := min(opts.Offset, total)
	end := min(start+opts.Limit, total)

	views := make([]poolView, 0, end-start)
	for _, s := range snaps[start:end] {
		views = append(views, h.view(s, q.Get("viewer")))
	}
	writeJSON(w, http.StatusOK, listPoolsResponse{
		Pools:  views,
		Total:  total,
		Limit:  opts.Limit,
		Offset: opts.Offset,
	})
}

// GetPool returns one snapshot. refresh=true bypasses the cache.
// GET /api/pools/{id}?refresh=true&viewer=0x...
func (h *PoolHandler) GetPool(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	if id == "" {
		writeError(w, http.StatusBadRequest, "missing pool id")
		return
	}

	var (
		snap domain.PoolSnapshot
		err  error
	)
	if refresh, _ := strconv.ParseBool(r.URL.Query().Get("refresh")); refresh {
		snap, err = h.pools.Refresh(r.Context(), id)
	} else {
		snap, err = h.pools.Get(r.Context(), id)
	}
	if err != nil {
		if errors.Is(err, domain.ErrInvalidInput) {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		h.logger.WarnContext(r.Context(), "handler: get pool failed",
			slog.String("pool_id", id),
			slog.String("error", err.Error()),
		)
		writeActionError(w, service.ClassifyLoadError(err))
		return
	}

	writeJSON(w, http.StatusOK, h.view(snap, r.URL.Query().Get("viewer")))
}

// ListAssets returns the configured asset table.
// GET /api/assets
func (h *PoolHandler) ListAssets(w http.ResponseWriter, r *http.Request) {
	assets := h.pools.Assets()
	if assets == nil {
		assets = []domain.Asset{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"assets": assets})
}
