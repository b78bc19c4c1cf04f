package http

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/GotWill/checkout-colmeia/internal/catalog"
	"github.com/GotWill/checkout-colmeia/internal/domain"
)

type CatalogHandler struct {
	catalog catalog.Catalog
	logger  *slog.Logger
}

func NewCatalogHandler(c catalog.Catalog, logger *slog.Logger) *CatalogHandler {
	return &CatalogHandler{catalog: c, logger: logger}
}

type ProductListResponse struct {
	Products []domain.Product `json:"products"`
	Count    int              `json:"count"`
}

// List handles GET /api/v1/catalog?q=&category=
func (h *CatalogHandler) List(w http.ResponseWriter, r *http.Request) {
	filter := catalog.Filter{
		Query:    r.URL.Query().Get("q"),
		Category: r.URL.Query().Get("category"),
	}

	products, err := h.catalog.List(r.Context(), filter)
	if err != nil {
		h.logger.ErrorContext(r.Context(), "list products failed", slog.Any("error", err))
		respondError(w, http.StatusInternalServerError, "internal_error", "failed to list products")
		return
	}
	if products == nil {
		products = []domain.Product{}
	}

	respondJSON(w, http.StatusOK, ProductListResponse{Products: products, Count: len(products)})
}

// Categories handles GET /api/v1/catalog/categories
func (h *CatalogHandler) Categories(w http.ResponseWriter, r *http.Request) {
	categories, err := h.catalog.Categories(r.Context())
	if err != nil {
		h.logger.ErrorContext(r.Context(), "list categories failed", slog.Any("error", err))
		respondError(w, http.StatusInternalServerError, "internal_error", "failed to list categories")
		return
	}
	if categories == nil {
		categories = []string{}
	}

	respondJSON(w, http.StatusOK, map[string][]string{"categories": categories})
}

// Get handles GET /api/v1/catalog/{product_id}
func (h *CatalogHandler) Get(w http.ResponseWriter, r *http.Request) {
	productID, ok := productIDParam(w, r)
	if !ok {
		return
	}

	product, err := h.catalog.Get(r.Context(), productID)
	if err != nil {
		if errors.Is(err, catalog.ErrProductNotFound) {
			respondError(w, http.StatusNotFound, "product_not_found", "product not found")
			return
		}
		h.logger.ErrorContext(r.Context(), "get product failed", slog.Int64("product_id", productID), slog.Any("error", err))
		respondError(w, http.StatusInternalServerError, "internal_error", "failed to get product")
		return
	}

	respondJSON(w, http.StatusOK, product)
}
