package http

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/GotWill/checkout-colmeia/internal/orders"
	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
)

type OrdersHandler struct {
	repo   orders.Repository
	logger *slog.Logger
}

func NewOrdersHandler(repo orders.Repository, logger *slog.Logger) *OrdersHandler {
	return &OrdersHandler{repo: repo, logger: logger}
}

type OrderListResponse struct {
	Orders []*orders.Order `json:"orders"`
	Count  int             `json:"count"`
}

// List handles GET /api/v1/orders
func (h *OrdersHandler) List(w http.ResponseWriter, r *http.Request) {
	list, err := h.repo.ListOrdersByClientID(r.Context(), clientIDFromContext(r.Context()))
	if err != nil {
		h.logger.ErrorContext(r.Context(), "list orders failed", slog.Any("error", err))
		respondError(w, http.StatusInternalServerError, "internal_error", "failed to list orders")
		return
	}
	if list == nil {
		list = []*orders.Order{}
	}

	respondJSON(w, http.StatusOK, OrderListResponse{Orders: list, Count: len(list)})
}

// Get handles GET /api/v1/orders/{order_id}. Orders of other clients are
// reported as not found.
func (h *OrdersHandler) Get(w http.ResponseWriter, r *http.Request) {
	orderID, err := uuid.Parse(chi.URLParam(r, "order_id"))
	if err != nil {
		respondError(w, http.StatusBadRequest, "invalid_order_id", "order_id must be a UUID")
		return
	}

	order, err := h.repo.GetOrderByID(r.Context(), orderID)
	if err != nil {
		if errors.Is(err, orders.ErrOrderNotFound) {
			respondError(w, http.StatusNotFound, "order_not_found", "order not found")
			return
		}
		h.logger.ErrorContext(r.Context(), "get order failed", slog.String("order_id", orderID.String()), slog.Any("error", err))
		respondError(w, http.StatusInternalServerError, "internal_error", "failed to get order")
		return
	}
	if order.ClientID != clientIDFromContext(r.Context()) {
		respondError(w, http.StatusNotFound, "order_not_found", "order not found")
		return
	}

	respondJSON(w, http.StatusOK, order)
}
