package http

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/GotWill/checkout-colmeia/internal/catalog"
	"github.com/GotWill/checkout-colmeia/internal/orders"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
)

type Metrics interface {
	RecordRequest(method, route string, status int, d time.Duration)
	RecordCartMutation(op string)
}

type RouterConfig struct {
	Catalog    catalog.Catalog
	Workspaces Workspaces
	Checkout   CheckoutService
	// Orders is optional; the order history routes are mounted only when set.
	Orders         orders.Repository
	Metrics        Metrics
	MetricsHandler http.Handler
	// AuthLimiter throttles signup and login when set.
	AuthLimiter *RateLimiter

	RequestTimeout     time.Duration
	MaxRequestBodySize int64
	Logger             *slog.Logger
}

func NewRouter(cfg RouterConfig) chi.Router {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(RequestLogger(cfg.Logger, cfg.Metrics))
	r.Use(middleware.Recoverer)
	r.Use(middleware.Compress(5))
	if cfg.RequestTimeout > 0 {
		r.Use(middleware.Timeout(cfg.RequestTimeout))
	}
	if cfg.MaxRequestBodySize > 0 {
		r.Use(middleware.RequestSize(cfg.MaxRequestBodySize))
	}

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		respondJSON(w, http.StatusOK, map[string]string{"status": "healthy"})
	})
	if cfg.MetricsHandler != nil {
		r.Method(http.MethodGet, "/metrics", cfg.MetricsHandler)
	}

	catalogHandler := NewCatalogHandler(cfg.Catalog, cfg.Logger)
	cartHandler := NewCartHandler(cfg.Workspaces, cfg.Catalog, cfg.Metrics, cfg.Logger)
	authHandler := NewAuthHandler(cfg.Workspaces, cfg.Logger)
	checkoutHandler := NewCheckoutHandler(cfg.Checkout, cfg.Logger)

	r.Route("/api/v1", func(r chi.Router) {
		r.Route("/catalog", func(r chi.Router) {
			r.Get("/", catalogHandler.List)
			r.Get("/categories", catalogHandler.Categories)
			r.Get("/{product_id}", catalogHandler.Get)
		})

		r.Group(func(r chi.Router) {
			r.Use(ClientIDMiddleware)

			r.Route("/cart", func(r chi.Router) {
				r.Get("/", cartHandler.GetCart)
				r.Delete("/", cartHandler.ClearCart)
				r.Post("/items", cartHandler.AddItem)
				r.Put("/items/{product_id}", cartHandler.UpdateQuantity)
				r.Post("/items/{product_id}/decrement", cartHandler.DecrementQuantity)
				r.Delete("/items/{product_id}", cartHandler.RemoveItem)
			})

			r.Route("/auth", func(r chi.Router) {
				r.Get("/me", authHandler.Me)
				r.Group(func(r chi.Router) {
					if cfg.AuthLimiter != nil {
						r.Use(cfg.AuthLimiter.Middleware)
					}
					r.Post("/signup", authHandler.SignUp)
					r.Post("/login", authHandler.Login)
				})
			})

			r.Route("/checkout", func(r chi.Router) {
				r.Post("/", checkoutHandler.Start)
				r.Get("/", checkoutHandler.Get)
				r.Delete("/", checkoutHandler.Abandon)
				r.Post("/payment", checkoutHandler.SubmitPayment)
				r.Post("/back", checkoutHandler.Back)
				r.Post("/confirm", checkoutHandler.Confirm)
				r.Post("/retry", checkoutHandler.TryAgain)
				r.Post("/exit", checkoutHandler.Exit)
			})

			if cfg.Orders != nil {
				ordersHandler := NewOrdersHandler(cfg.Orders, cfg.Logger)
				r.Route("/orders", func(r chi.Router) {
					r.Get("/", ordersHandler.List)
					r.Get("/{order_id}", ordersHandler.Get)
				})
			}
		})
	})

	return r
}
