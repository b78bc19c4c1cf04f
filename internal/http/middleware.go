package http

import (
	"context"
	"log/slog"
	"net/http"
	"regexp"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/google/uuid"
)

const (
	ClientCookieName = "sf_client"
	ClientIDHeader   = "X-Client-ID"
)

type contextKey int

const clientIDKey contextKey = iota

var validClientID = regexp.MustCompile(`^[A-Za-z0-9_-]{8,64}$`)

// ClientIDMiddleware identifies the browser or API client. An explicit
// X-Client-ID header wins; otherwise the sf_client cookie is used and issued
// when missing.
func ClientIDMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		clientID := r.Header.Get(ClientIDHeader)
		if clientID != "" && !validClientID.MatchString(clientID) {
			respondError(w, http.StatusBadRequest, "invalid_client_id", "X-Client-ID must be 8-64 letters, digits, '-' or '_'")
			return
		}

		if clientID == "" {
			if c, err := r.Cookie(ClientCookieName); err == nil && validClientID.MatchString(c.Value) {
				clientID = c.Value
			}
		}

		if clientID == "" {
			clientID = uuid.NewString()
			http.SetCookie(w, &http.Cookie{
				Name:     ClientCookieName,
				Value:    clientID,
				Path:     "/",
				MaxAge:   365 * 24 * 60 * 60,
				HttpOnly: true,
				SameSite: http.SameSiteLaxMode,
			})
		}

		ctx := context.WithValue(r.Context(), clientIDKey, clientID)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func clientIDFromContext(ctx context.Context) string {
	if clientID, ok := ctx.Value(clientIDKey).(string); ok {
		return clientID
	}
	return ""
}

// RequestLogger logs every request with slog and records its latency.
func RequestLogger(logger *slog.Logger, metrics Metrics) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)

			next.ServeHTTP(ww, r)

			route := r.URL.Path
			if rctx := chi.RouteContext(r.Context()); rctx != nil && rctx.RoutePattern() != "" {
				route = rctx.RoutePattern()
			}
			status := ww.Status()
			if status == 0 {
				status = http.StatusOK
			}
			elapsed := time.Since(start)

			metrics.RecordRequest(r.Method, route, status, elapsed)
			logger.InfoContext(r.Context(), "http request",
				slog.String("method", r.Method),
				slog.String("route", route),
				slog.Int("status", status),
				slog.Int("bytes", ww.BytesWritten()),
				slog.Duration("duration", elapsed),
				slog.String("request_id", middleware.GetReqID(r.Context())))
		})
	}
}
