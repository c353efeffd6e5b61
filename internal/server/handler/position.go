package handler

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/StabilityNexus/Fate/internal/domain"
	"github.com/StabilityNexus/Fate/internal/service"
)

// PositionService computes a user's position in a pool.
type PositionService interface {
	Position(ctx context.Context, poolID, addr string, avg domain.AvgCost) (domain.UserPosition, error)
}

// PositionHandler serves the position endpoint.
type PositionHandler struct {
	positions PositionService
	logger    *slog.Logger
}

// NewPositionHandler creates a PositionHandler.
func NewPositionHandler(positions PositionService, logger *slog.Logger) *PositionHandler {
	return &PositionHandler{positions: positions, logger: logger}
}

// GetPosition returns balances, values and returns for one address.
// GET /api/pools/{id}/position?address=0x...&bull_avg=&bear_avg=
func (h *PositionHandler) GetPosition(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	addr := r.URL.Query().Get("address")
	if !domain.IsValidAddress(addr) {
		writeError(w, http.StatusBadRequest, "address query parameter must be a 0x address")
		return
	}

	var avg domain.AvgCost
	var err error
	if avg.Bull, err = parseFloat(r, "bull_avg"); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if avg.Bear, err = parseFloat(r, "bear_avg"); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	pos, err := h.positions.Position(r.Context(), id, addr, avg)
	if err != nil {
		h.logger.WarnContext(r.Context(), "handler: position failed",
			slog.String("pool_id", id),
			slog.String("error", err.Error()),
		)
		writeActionError(w, service.ClassifyLoadError(err))
		return
	}
	writeJSON(w, http.StatusOK, pos)
}
