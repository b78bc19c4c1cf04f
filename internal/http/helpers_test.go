package http

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/GotWill/checkout-colmeia/internal/catalog"
	"github.com/GotWill/checkout-colmeia/internal/checkout"
	"github.com/GotWill/checkout-colmeia/internal/domain"
	"github.com/GotWill/checkout-colmeia/internal/logger"
	"github.com/GotWill/checkout-colmeia/internal/metrics"
	"github.com/GotWill/checkout-colmeia/internal/orders"
	"github.com/GotWill/checkout-colmeia/internal/publisher"
	"github.com/GotWill/checkout-colmeia/internal/repository"
	"github.com/GotWill/checkout-colmeia/internal/store"
	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
)

const testClient = "client-0001"

type stubCatalog struct {
	products []domain.Product
	err      error
}

func (s *stubCatalog) List(_ context.Context, f catalog.Filter) ([]domain.Product, error) {
	if s.err != nil {
		return nil, s.err
	}
	var out []domain.Product
	for _, p := range s.products {
		if f.Matches(p) {
			out = append(out, p)
		}
	}
	return out, nil
}

func (s *stubCatalog) Get(_ context.Context, id int64) (domain.Product, error) {
	if s.err != nil {
		return domain.Product{}, s.err
	}
	for _, p := range s.products {
		if p.ID == id {
			return p, nil
		}
	}
	return domain.Product{}, catalog.ErrProductNotFound
}

func (s *stubCatalog) Categories(_ context.Context) ([]string, error) {
	if s.err != nil {
		return nil, s.err
	}
	var out []string
	seen := map[string]bool{}
	for _, p := range s.products {
		if !seen[p.Category] {
			seen[p.Category] = true
			out = append(out, p.Category)
		}
	}
	return out, nil
}

func testProducts() []domain.Product {
	return []domain.Product{
		{ID: 1, Name: "Mel Silvestre", Description: "Mel puro", Price: decimal.RequireFromString("35.90"), Category: "Mel"},
		{ID: 2, Name: "Extrato de Própolis", Description: "Própolis verde", Price: decimal.RequireFromString("42.50"), Category: "Própolis"},
		{ID: 3, Name: "Vela de Cera", Description: "Cera de abelha", Price: decimal.RequireFromString("18.00"), Category: "Casa"},
	}
}

type fixture struct {
	router   chi.Router
	registry *store.Registry
	service  *checkout.Service
	catalog  *stubCatalog
}

type fixtureSettings struct {
	draw        float64
	orders      orders.Repository
	authLimiter *RateLimiter
}

type fixtureOption func(*fixtureSettings)

func withOrders(repo orders.Repository) fixtureOption {
	return func(s *fixtureSettings) { s.orders = repo }
}

func withAuthLimiter(rl *RateLimiter) fixtureOption {
	return func(s *fixtureSettings) { s.authLimiter = rl }
}

// withDraw fixes the payment simulator draw: above 0.85 fails, above 0.70
// expires.
func withDraw(draw float64) fixtureOption {
	return func(s *fixtureSettings) { s.draw = draw }
}

// setupRouter wires the router over in-memory state. Payments succeed unless
// withDraw says otherwise.
func setupRouter(t *testing.T, opts ...fixtureOption) *fixture {
	t.Helper()
	log := logger.Discard()

	settings := fixtureSettings{draw: 0.1}
	for _, opt := range opts {
		opt(&settings)
	}

	registry := store.NewRegistry(repository.NewMemoryRepository(), store.RegistryConfig{}, log)
	t.Cleanup(func() { registry.Close() })

	reg := prometheus.NewRegistry()
	collector := metrics.NewCollector(reg)

	service := checkout.NewService(registry, publisher.NewLogPublisher(log), collector,
		checkout.RandomOutcome{Float: func() float64 { return settings.draw }},
		checkout.Config{TickInterval: time.Millisecond, SessionTTL: time.Minute}, log)
	t.Cleanup(service.Close)

	cat := &stubCatalog{products: testProducts()}
	router := NewRouter(RouterConfig{
		Catalog:            cat,
		Workspaces:         registry,
		Checkout:           service,
		Orders:             settings.orders,
		Metrics:            collector,
		MetricsHandler:     metrics.Handler(reg),
		AuthLimiter:        settings.authLimiter,
		RequestTimeout:     5 * time.Second,
		MaxRequestBodySize: 1 << 20,
		Logger:             log,
	})

	return &fixture{
		router:   router,
		registry: registry,
		service:  service,
		catalog:  cat,
	}
}

func (f *fixture) do(t *testing.T, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var reader *bytes.Reader
	switch b := body.(type) {
	case nil:
		reader = bytes.NewReader(nil)
	case string:
		reader = bytes.NewReader([]byte(b))
	default:
		data, err := json.Marshal(b)
		require.NoError(t, err)
		reader = bytes.NewReader(data)
	}

	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	if strings.HasPrefix(path, "/api/v1/") && !strings.HasPrefix(path, "/api/v1/catalog") {
		req.Header.Set(ClientIDHeader, testClient)
	}

	rec := httptest.NewRecorder()
	f.router.ServeHTTP(rec, req)
	return rec
}

func (f *fixture) workspace(t *testing.T) *store.Workspace {
	t.Helper()
	ws, err := f.registry.Workspace(context.Background(), testClient)
	require.NoError(t, err)
	return ws
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&v), rec.Body.String())
	return v
}

func assertStatus(t *testing.T, rec *httptest.ResponseRecorder, want int) {
	t.Helper()
	if rec.Code != want {
		t.Fatalf("Expected status code %d, got %d: %s", want, rec.Code, rec.Body.String())
	}
}

