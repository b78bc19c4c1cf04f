// Package metrics exposes the storefront Prometheus collectors.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

type Collector struct {
	checkoutOutcomes    *prometheus.CounterVec
	checkoutTransitions *prometheus.CounterVec
	cartMutations       *prometheus.CounterVec
	httpDuration        *prometheus.HistogramVec
}

func NewCollector(reg prometheus.Registerer) *Collector {
	c := &Collector{
		checkoutOutcomes: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "storefront_checkout_outcomes_total",
			Help: "Simulated payment outcomes by result.",
		}, []string{"outcome"}),
		checkoutTransitions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "storefront_checkout_transitions_total",
			Help: "Checkout step transitions by target step.",
		}, []string{"step"}),
		cartMutations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "storefront_cart_mutations_total",
			Help: "Cart mutations by operation.",
		}, []string{"op"}),
		httpDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "storefront_http_request_duration_seconds",
			Help:    "HTTP request latency by route and status.",
			Buckets: prometheus.DefBuckets,
		}, []string{"method", "route", "status"}),
	}

	reg.MustRegister(
		c.checkoutOutcomes,
		c.checkoutTransitions,
		c.cartMutations,
		c.httpDuration,
	)
	return c
}

func (c *Collector) RecordOutcome(outcome string) {
	c.checkoutOutcomes.WithLabelValues(outcome).Inc()
}

func (c *Collector) RecordTransition(step string) {
	c.checkoutTransitions.WithLabelValues(step).Inc()
}

func (c *Collector) RecordCartMutation(op string) {
	c.cartMutations.WithLabelValues(op).Inc()
}

func (c *Collector) RecordRequest(method, route string, status int, d time.Duration) {
	c.httpDuration.WithLabelValues(method, route, strconv.Itoa(status)).Observe(d.Seconds())
}

func Handler(gatherer prometheus.Gatherer) http.Handler {
	return promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})
}
