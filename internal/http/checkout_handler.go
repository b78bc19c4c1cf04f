package http

import (
	"context"
	"errors"
	"log/slog"
	"net/http"

	"github.com/GotWill/checkout-colmeia/internal/checkout"
)

type CheckoutService interface {
	Start(ctx context.Context, clientID string) (checkout.View, error)
	Get(ctx context.Context, clientID string) (checkout.View, error)
	SubmitPayment(ctx context.Context, clientID string, req checkout.PaymentRequest) (checkout.View, error)
	Back(ctx context.Context, clientID string) (checkout.View, error)
	Confirm(ctx context.Context, clientID string) (checkout.View, error)
	TryAgain(ctx context.Context, clientID string) (checkout.View, error)
	Exit(ctx context.Context, clientID string) (checkout.ExitResult, error)
	Abandon(ctx context.Context, clientID string)
}

type CheckoutHandler struct {
	service CheckoutService
	logger  *slog.Logger
}

func NewCheckoutHandler(service CheckoutService, logger *slog.Logger) *CheckoutHandler {
	return &CheckoutHandler{service: service, logger: logger}
}

// Start handles POST /api/v1/checkout
func (h *CheckoutHandler) Start(w http.ResponseWriter, r *http.Request) {
	view, err := h.service.Start(r.Context(), clientIDFromContext(r.Context()))
	if err != nil {
		h.handleError(w, r, err)
		return
	}
	respondJSON(w, http.StatusCreated, view)
}

// Get handles GET /api/v1/checkout
func (h *CheckoutHandler) Get(w http.ResponseWriter, r *http.Request) {
	h.step(w, r, h.service.Get)
}

// SubmitPayment handles POST /api/v1/checkout/payment
func (h *CheckoutHandler) SubmitPayment(w http.ResponseWriter, r *http.Request) {
	var req checkout.PaymentRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	view, err := h.service.SubmitPayment(r.Context(), clientIDFromContext(r.Context()), req)
	if err != nil {
		h.handleError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, view)
}

// Back handles POST /api/v1/checkout/back
func (h *CheckoutHandler) Back(w http.ResponseWriter, r *http.Request) {
	h.step(w, r, h.service.Back)
}

// Confirm handles POST /api/v1/checkout/confirm
func (h *CheckoutHandler) Confirm(w http.ResponseWriter, r *http.Request) {
	h.step(w, r, h.service.Confirm)
}

// TryAgain handles POST /api/v1/checkout/retry
func (h *CheckoutHandler) TryAgain(w http.ResponseWriter, r *http.Request) {
	h.step(w, r, h.service.TryAgain)
}

// Exit handles POST /api/v1/checkout/exit
func (h *CheckoutHandler) Exit(w http.ResponseWriter, r *http.Request) {
	result, err := h.service.Exit(r.Context(), clientIDFromContext(r.Context()))
	if err != nil {
		h.handleError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, result)
}

// Abandon handles DELETE /api/v1/checkout
func (h *CheckoutHandler) Abandon(w http.ResponseWriter, r *http.Request) {
	h.service.Abandon(r.Context(), clientIDFromContext(r.Context()))
	w.WriteHeader(http.StatusNoContent)
}

func (h *CheckoutHandler) step(w http.ResponseWriter, r *http.Request, fn func(context.Context, string) (checkout.View, error)) {
	view, err := fn(r.Context(), clientIDFromContext(r.Context()))
	if err != nil {
		h.handleError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, view)
}

func (h *CheckoutHandler) handleError(w http.ResponseWriter, r *http.Request, err error) {
	var verr *checkout.ValidationError
	switch {
	case errors.As(err, &verr):
		respondValidation(w, verr.Fields)
	case errors.Is(err, checkout.ErrNotAuthenticated):
		redirect(w, r, checkout.RedirectAuth)
	case errors.Is(err, checkout.ErrEmptyCart):
		redirect(w, r, checkout.RedirectCatalog)
	case errors.Is(err, checkout.ErrNoSession):
		respondError(w, http.StatusNotFound, "no_session", err.Error())
	case errors.Is(err, checkout.ErrIllegalTransition):
		respondError(w, http.StatusConflict, "illegal_transition", err.Error())
	case errors.Is(err, checkout.ErrInvalidMethod):
		respondError(w, http.StatusBadRequest, "invalid_payment_method", err.Error())
	default:
		respondStoreError(w, r, h.logger, err)
	}
}
