// Package metrics provides Prometheus metrics for the conversation store.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds the store metrics on a private registry so several instances
// can coexist in one process (tests, embedded use).
type Metrics struct {
	registry *prometheus.Registry

	OperationsTotal   *prometheus.CounterVec
	OperationDuration *prometheus.HistogramVec
	SearchResults     prometheus.Histogram
	CleanupFailures   *prometheus.CounterVec
	EventsPublished   *prometheus.CounterVec
}

func NewMetrics() *Metrics {
	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector())
	reg.MustRegister(collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	factory := promauto.With(reg)
	m := &Metrics{registry: reg}

	m.OperationsTotal = factory.NewCounterVec(
		prometheus.CounterOpts{
			Name: "conversation_store_operations_total",
			Help: "Total number of store operations",
		},
		[]string{"operation", "status"},
	)

	m.OperationDuration = factory.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "conversation_store_operation_duration_seconds",
			Help:    "Duration of store operations in seconds",
			Buckets: []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5},
		},
		[]string{"operation"},
	)

	m.SearchResults = factory.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "conversation_search_total_count",
			Help:    "Number of conversations matching a search before pagination",
			Buckets: prometheus.ExponentialBuckets(1, 4, 8),
		},
	)

	m.CleanupFailures = factory.NewCounterVec(
		prometheus.CounterOpts{
			Name: "conversation_cleanup_failures_total",
			Help: "External cleanup steps that failed after a hard delete",
		},
		[]string{"resource"},
	)

	m.EventsPublished = factory.NewCounterVec(
		prometheus.CounterOpts{
			Name: "conversation_events_published_total",
			Help: "Conversation events published on the in-process bus",
		},
		[]string{"type", "status"},
	)

	return m
}

// ObserveOperation records the outcome and latency of one store call.
func (m *Metrics) ObserveOperation(operation string, start time.Time, err error) {
	if m == nil {
		return
	}
	status := "success"
	if err != nil {
		status = "error"
	}
	m.OperationsTotal.WithLabelValues(operation, status).Inc()
	m.OperationDuration.WithLabelValues(operation).Observe(time.Since(start).Seconds())
}

func (m *Metrics) ObserveSearch(totalCount int64) {
	if m == nil {
		return
	}
	m.SearchResults.Observe(float64(totalCount))
}

func (m *Metrics) CleanupFailed(resource string) {
	if m == nil {
		return
	}
	m.CleanupFailures.WithLabelValues(resource).Inc()
}

func (m *Metrics) EventPublished(eventType string, err error) {
	if m == nil {
		return
	}
	status := "success"
	if err != nil {
		status = "error"
	}
	m.EventsPublished.WithLabelValues(eventType, status).Inc()
}

func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}
