package http

import (
	"context"
	"errors"
	"log/slog"
	"net/http"

	"github.com/GotWill/checkout-colmeia/internal/catalog"
	"github.com/GotWill/checkout-colmeia/internal/domain"
	"github.com/GotWill/checkout-colmeia/internal/store"
	"github.com/shopspring/decimal"
)

type CartHandler struct {
	workspaces Workspaces
	catalog    catalog.Catalog
	metrics    Metrics
	logger     *slog.Logger
}

func NewCartHandler(workspaces Workspaces, c catalog.Catalog, metrics Metrics, logger *slog.Logger) *CartHandler {
	return &CartHandler{
		workspaces: workspaces,
		catalog:    c,
		metrics:    metrics,
		logger:     logger,
	}
}

type lineMutation func(*store.CartStore, context.Context, int64) error

type AddItemRequest struct {
	ProductID int64 `json:"product_id"`
	Quantity  int   `json:"quantity"`
}

type UpdateQuantityRequest struct {
	Quantity int `json:"quantity"`
}

type CartResponse struct {
	Items    []domain.CartItem `json:"items"`
	Total    decimal.Decimal   `json:"total"`
	Count    int               `json:"count"`
	Currency string            `json:"currency"`
}

// GetCart handles GET /api/v1/cart
func (h *CartHandler) GetCart(w http.ResponseWriter, r *http.Request) {
	ws, ok := workspace(w, r, h.workspaces, h.logger)
	if !ok {
		return
	}
	h.respondCart(w, ws.Cart)
}

// AddItem handles POST /api/v1/cart/items. Quantity defaults to 1.
func (h *CartHandler) AddItem(w http.ResponseWriter, r *http.Request) {
	var req AddItemRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if req.ProductID <= 0 {
		respondError(w, http.StatusBadRequest, "invalid_product_id", "product_id must be a positive integer")
		return
	}
	if req.Quantity == 0 {
		req.Quantity = 1
	}

	product, err := h.catalog.Get(r.Context(), req.ProductID)
	if err != nil {
		if errors.Is(err, catalog.ErrProductNotFound) {
			respondError(w, http.StatusNotFound, "product_not_found", "product not found")
			return
		}
		h.logger.ErrorContext(r.Context(), "get product failed", slog.Int64("product_id", req.ProductID), slog.Any("error", err))
		respondError(w, http.StatusInternalServerError, "internal_error", "failed to get product")
		return
	}

	ws, ok := workspace(w, r, h.workspaces, h.logger)
	if !ok {
		return
	}

	if err := ws.Cart.AddCart(r.Context(), domain.CartItem{Product: product, Quantity: req.Quantity}); err != nil {
		respondStoreError(w, r, h.logger, err)
		return
	}
	h.metrics.RecordCartMutation("add")

	h.respondCart(w, ws.Cart)
}

// UpdateQuantity handles PUT /api/v1/cart/items/{product_id}
func (h *CartHandler) UpdateQuantity(w http.ResponseWriter, r *http.Request) {
	productID, ok := productIDParam(w, r)
	if !ok {
		return
	}
	var req UpdateQuantityRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	ws, ok := workspace(w, r, h.workspaces, h.logger)
	if !ok {
		return
	}

	if err := ws.Cart.UpdateQuantity(r.Context(), productID, req.Quantity); err != nil {
		respondStoreError(w, r, h.logger, err)
		return
	}
	h.metrics.RecordCartMutation("update")

	h.respondCart(w, ws.Cart)
}

// DecrementQuantity handles POST /api/v1/cart/items/{product_id}/decrement
func (h *CartHandler) DecrementQuantity(w http.ResponseWriter, r *http.Request) {
	h.mutateLine(w, r, "decrement", (*store.CartStore).DecrementQuantity)
}

// RemoveItem handles DELETE /api/v1/cart/items/{product_id}
func (h *CartHandler) RemoveItem(w http.ResponseWriter, r *http.Request) {
	h.mutateLine(w, r, "remove", (*store.CartStore).RemoveProduct)
}

// ClearCart handles DELETE /api/v1/cart
func (h *CartHandler) ClearCart(w http.ResponseWriter, r *http.Request) {
	ws, ok := workspace(w, r, h.workspaces, h.logger)
	if !ok {
		return
	}

	if err := ws.Cart.ClearCart(r.Context()); err != nil {
		respondStoreError(w, r, h.logger, err)
		return
	}
	h.metrics.RecordCartMutation("clear")

	h.respondCart(w, ws.Cart)
}

func (h *CartHandler) mutateLine(w http.ResponseWriter, r *http.Request, op string, fn lineMutation) {
	productID, ok := productIDParam(w, r)
	if !ok {
		return
	}

	ws, ok := workspace(w, r, h.workspaces, h.logger)
	if !ok {
		return
	}

	if err := fn(ws.Cart, r.Context(), productID); err != nil {
		respondStoreError(w, r, h.logger, err)
		return
	}
	h.metrics.RecordCartMutation(op)

	h.respondCart(w, ws.Cart)
}

func (h *CartHandler) respondCart(w http.ResponseWriter, cart *store.CartStore) {
	items := cart.Items()
	if items == nil {
		items = []domain.CartItem{}
	}
	respondJSON(w, http.StatusOK, CartResponse{
		Items:    items,
		Total:    cart.Total(),
		Count:    cart.Count(),
		Currency: domain.Currency,
	})
}
