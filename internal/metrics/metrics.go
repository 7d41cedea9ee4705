// Package metrics exposes Prometheus instruments for line item deletions and order recalculation.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "marketplace_orders"

// Deletion outcomes.
const (
	OutcomeDeleted  = "deleted"
	OutcomeDenied   = "denied"
	OutcomeNotFound = "not_found"
	OutcomeInvalid  = "invalid"
	OutcomeError    = "error"
)

// Metrics holds the service's instruments. A nil *Metrics is valid and records nothing.
type Metrics struct {
	registry *prometheus.Registry

	LineItemDeletions *prometheus.CounterVec
	Recalculations    *prometheus.CounterVec
	RecalcDuration    prometheus.Histogram
	CacheLookups      *prometheus.CounterVec
	HTTPRequests      *prometheus.CounterVec
}

// New registers all instruments on a fresh registry, so several instances can coexist in tests.
func New() *Metrics {
	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	f := promauto.With(reg)

	return &Metrics{
		registry: reg,
		LineItemDeletions: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "line_item_deletions_total",
			Help:      "Line item deletion requests by outcome and deny reason.",
		}, []string{"outcome", "reason"}),
		Recalculations: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "order_recalculations_total",
			Help:      "Order adjustment recalculations by trigger and result.",
		}, []string{"trigger", "result"}),
		RecalcDuration: f.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "order_recalculation_seconds",
			Help:      "Time spent in the deletion or recalculation transaction.",
			Buckets:   prometheus.DefBuckets,
		}),
		CacheLookups: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "bought_items_cache_lookups_total",
			Help:      "Bought items cache lookups by result.",
		}, []string{"result"}),
		HTTPRequests: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "http_requests_total",
			Help:      "HTTP requests by method, route pattern and status.",
		}, []string{"method", "route", "status"}),
	}
}

// Handler serves the registry in the Prometheus text format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}

// ObserveDeletion counts one deletion request. reason is empty unless outcome is OutcomeDenied.
func (m *Metrics) ObserveDeletion(outcome, reason string) {
	if m == nil {
		return
	}
	m.LineItemDeletions.WithLabelValues(outcome, reason).Inc()
}

// ObserveRecalculation counts one recalculation and records how long it took.
func (m *Metrics) ObserveRecalculation(trigger string, err error, started time.Time) {
	if m == nil {
		return
	}
	result := "ok"
	if err != nil {
		result = "error"
	}
	m.Recalculations.WithLabelValues(trigger, result).Inc()
	m.RecalcDuration.Observe(time.Since(started).Seconds())
}

// ObserveCache counts a cache lookup result: hit, miss or error.
func (m *Metrics) ObserveCache(result string) {
	if m == nil {
		return
	}
	m.CacheLookups.WithLabelValues(result).Inc()
}

// ObserveHTTP counts one served request.
func (m *Metrics) ObserveHTTP(method, route string, status int) {
	if m == nil {
		return
	}
	m.HTTPRequests.WithLabelValues(method, route, strconv.Itoa(status)).Inc()
}
