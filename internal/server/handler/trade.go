package handler

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/StabilityNexus/Fate/internal/domain"
)

// TradeService runs orchestrated actions and lists their history.
type TradeService interface {
	Buy(ctx context.Context, req domain.BuyRequest) domain.TxOutcome
	Sell(ctx context.Context, req domain.SellRequest) domain.TxOutcome
	Settle(ctx context.Context, req domain.SettleRequest) domain.TxOutcome
	CreatePool(ctx context.Context, req domain.CreatePoolRequest) domain.TxOutcome
	History(ctx context.Context, poolID string, opts domain.ListOpts) ([]domain.TxRecord, error)
}

// TradeHandler serves the transaction endpoints.
type TradeHandler struct {
	trades TradeService
	logger *slog.Logger
}

// NewTradeHandler creates a TradeHandler.
func NewTradeHandler(trades TradeService, logger *slog.Logger) *TradeHandler {
	return &TradeHandler{trades: trades, logger: logger}
}

type tradeBody struct {
	IsBull bool    `json:"is_bull"`
	Amount float64 `json:"amount"`
}

// Buy purchases tokens with SUI.
// POST /api/pools/{id}/buy {"is_bull":true,"amount":1.5}
func (h *TradeHandler) Buy(w http.ResponseWriter, r *http.Request) {
	var body tradeBody
	if err := decodeJSON(r, &body); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	writeOutcome(w, h.trades.Buy(r.Context(), domain.BuyRequest{
		PoolID: r.PathValue("id"),
		IsBull: body.IsBull,
		Amount: body.Amount,
	}))
}

// Sell redeems tokens.
// POST /api/pools/{id}/sell {"is_bull":false,"amount":2}
func (h *TradeHandler) Sell(w http.ResponseWriter, r *http.Request) {
	var body tradeBody
	if err := decodeJSON(r, &body); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	writeOutcome(w, h.trades.Sell(r.Context(), domain.SellRequest{
		PoolID: r.PathValue("id"),
		IsBull: body.IsBull,
		Amount: body.Amount,
	}))
}

// Settle distributes the pool.
// POST /api/pools/{id}/settle
func (h *TradeHandler) Settle(w http.ResponseWriter, r *http.Request) {
	writeOutcome(w, h.trades.Settle(r.Context(), domain.SettleRequest{PoolID: r.PathValue("id")}))
}

// CreatePool deploys a new pool.
// POST /api/pools {"creator":"0x..","vault_fee":10,"vault_creator_fee":5,"treasury_fee":1}
func (h *TradeHandler) CreatePool(w http.ResponseWriter, r *http.Request) {
	var req domain.CreatePoolRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	writeOutcome(w, h.trades.CreatePool(r.Context(), req))
}

// ListTransactions returns recorded runs, newest first.
// GET /api/transactions?pool_id=&limit=&offset=
func (h *TradeHandler) ListTransactions(w http.ResponseWriter, r *http.Request) {
	poolID := r.URL.Query().Get("pool_id")
	recs, err := h.trades.History(r.Context(), poolID, parseListOpts(r))
	if err != nil {
		h.logger.ErrorContext(r.Context(), "handler: list transactions failed",
			slog.String("error", err.Error()),
		)
		writeError(w, http.StatusInternalServerError, "failed to list transactions")
		return
	}
	if recs == nil {
		recs = []domain.TxRecord{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"transactions": recs})
}
