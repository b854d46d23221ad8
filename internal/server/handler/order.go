package handler

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/shopspring/decimal"

	"github.com/barbosa7/bookdesk/internal/domain"
)

// OrderPlacer is the slice of the order service the handler needs.
type OrderPlacer interface {
	Place(ctx context.Context, ticket domain.OrderTicket) (domain.OrderAck, error)
	Cancel(ctx context.Context, competitionID, orderID string) error
}

// OrderHandler serves order entry and cancellation.
type OrderHandler struct {
	orders OrderPlacer
	compID string
	symbol string
	logger *slog.Logger
}

func NewOrderHandler(orders OrderPlacer, competitionID, symbol string, logger *slog.Logger) *OrderHandler {
	return &OrderHandler{
		orders: orders,
		compID: competitionID,
		symbol: symbol,
		logger: logHandler(logger, "order"),
	}
}

type placeOrderBody struct {
	Side     string          `json:"side"`
	Price    decimal.Decimal `json:"price"`
	Quantity decimal.Decimal `json:"quantity"`
}

// Place submits an order ticket for the configured competition and symbol.
// POST /api/orders
func (h *OrderHandler) Place(w http.ResponseWriter, r *http.Request) {
	var body placeOrderBody
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	ack, err := h.orders.Place(r.Context(), domain.OrderTicket{
		CompetitionID: h.compID,
		Symbol:        h.symbol,
		Side:          domain.OrderSide(body.Side),
		Quantity:      body.Quantity,
		Price:         body.Price,
	})
	if err != nil {
		h.logger.WarnContext(r.Context(), "order rejected",
			slog.String("side", body.Side),
			slog.String("error", err.Error()),
		)
		writeDomainError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, ack)
}

// Cancel withdraws a resting order.
// DELETE /api/orders/{id}
func (h *OrderHandler) Cancel(w http.ResponseWriter, r *http.Request) {
	orderID := r.PathValue("id")
	if orderID == "" {
		writeError(w, http.StatusBadRequest, "order id is required")
		return
	}

	if err := h.orders.Cancel(r.Context(), h.compID, orderID); err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "canceled"})
}
