package http

import (
	"context"
	"errors"
	"log/slog"
	"net/http"

	"github.com/GotWill/checkout-colmeia/internal/store"
)

// Workspaces resolves the hydrated stores of a client.
type Workspaces interface {
	Workspace(ctx context.Context, clientID string) (*store.Workspace, error)
}

// workspace loads the caller's workspace or writes the error response.
func workspace(w http.ResponseWriter, r *http.Request, workspaces Workspaces, logger *slog.Logger) (*store.Workspace, bool) {
	ws, err := workspaces.Workspace(r.Context(), clientIDFromContext(r.Context()))
	if err != nil {
		respondStoreError(w, r, logger, err)
		return nil, false
	}
	return ws, true
}

func respondStoreError(w http.ResponseWriter, r *http.Request, logger *slog.Logger, err error) {
	switch {
	case errors.Is(err, store.ErrInvalidClientID):
		respondError(w, http.StatusBadRequest, "invalid_client_id", err.Error())
	case errors.Is(err, store.ErrNotHydrated):
		respondError(w, http.StatusServiceUnavailable, "state_unavailable", "client state is still loading")
	case errors.Is(err, store.ErrInvalidQuantity):
		respondError(w, http.StatusBadRequest, "invalid_quantity", err.Error())
	default:
		logger.ErrorContext(r.Context(), "load client state failed",
			slog.String("client_id", clientIDFromContext(r.Context())),
			slog.Any("error", err))
		respondError(w, http.StatusServiceUnavailable, "state_unavailable", "failed to load client state")
	}
}
