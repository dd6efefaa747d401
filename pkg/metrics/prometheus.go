// Package metrics provides Prometheus metrics for the cupping service.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Manager manages all Prometheus metrics for the cupping service.
type Manager struct {
	namespace        string
	subsystem        string
	histogramBuckets []float64
	enabled          bool
	registry         prometheus.Registerer

	// Core Business Metrics
	sessionsCreated prometheus.Counter
	shareLookups    *prometheus.CounterVec
	eventsAppended  *prometheus.CounterVec
	mintRetries     prometheus.Counter

	// Storage and Analytics Performance Metrics
	storageOpLatency      *prometheus.HistogramVec
	analyticsQueryLatency *prometheus.HistogramVec

	// HTTP Performance Metrics
	httpRequests        *prometheus.CounterVec
	httpRequestDuration *prometheus.HistogramVec
}

// Global metrics manager instance.
var globalManager *Manager //nolint:gochecknoglobals // intentional global for singleton metrics manager

// Custom registry to avoid default Go metrics.
var customRegistry = prometheus.NewRegistry() //nolint:gochecknoglobals // intentional global for metrics registry

// Initialize global metrics.
func init() { //nolint:gochecknoinits // intentional init for global metrics setup
	globalManager = NewManager(WithPrometheusRegistry(customRegistry))
}

// NewManager creates a new metrics manager with default configuration.
func NewManager(opts ...Option) *Manager {
	m := &Manager{
		namespace:        "cuppingd",
		subsystem:        "core",
		histogramBuckets: prometheus.DefBuckets,
		enabled:          true,
		registry:         prometheus.DefaultRegisterer,
	}
	for _, opt := range opts {
		opt(m)
	}
	m.initializeMetrics()
	return m
}

// initializeMetrics creates all the Prometheus metrics.
func (m *Manager) initializeMetrics() {
	auto := promauto.With(m.registry)

	m.sessionsCreated = auto.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "sessions_created_total",
		Help:      "Total number of cupping sessions persisted",
	})

	m.shareLookups = auto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: m.namespace,
			Subsystem: m.subsystem,
			Name:      "share_lookups_total",
			Help:      "Total number of public share-id lookups by outcome",
		},
		[]string{"outcome"},
	)

	m.eventsAppended = auto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: m.namespace,
			Subsystem: m.subsystem,
			Name:      "events_appended_total",
			Help:      "Total number of interaction events appended by type",
		},
		[]string{"event_type"},
	)

	m.mintRetries = auto.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "share_id_mint_retries_total",
		Help:      "Total number of share-id collision retries (should stay near zero)",
	})

	m.storageOpLatency = auto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: m.namespace,
			Subsystem: m.subsystem,
			Name:      "storage_op_duration_milliseconds",
			Help:      "Storage backend operation latency in milliseconds",
			Buckets:   m.histogramBuckets,
		},
		[]string{"op"},
	)

	m.analyticsQueryLatency = auto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: m.namespace,
			Subsystem: m.subsystem,
			Name:      "analytics_query_duration_milliseconds",
			Help:      "Aggregate recomputation latency in milliseconds by query",
			Buckets:   m.histogramBuckets,
		},
		[]string{"query"},
	)

	m.httpRequests = auto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: m.namespace,
			Subsystem: m.subsystem,
			Name:      "http_requests_total",
			Help:      "Total number of HTTP requests by endpoint and method",
		},
		[]string{"endpoint", "method", "status_code"},
	)

	m.httpRequestDuration = auto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: m.namespace,
			Subsystem: m.subsystem,
			Name:      "http_request_duration_milliseconds",
			Help:      "HTTP request duration in milliseconds",
			Buckets:   m.histogramBuckets,
		},
		[]string{"endpoint", "method", "status_code"},
	)
}

// RecordSessionCreated increments the session creation counter.
func RecordSessionCreated() {
	if globalManager != nil && globalManager.enabled {
		globalManager.sessionsCreated.Inc()
	}
}

// RecordShareLookup records a public lookup and its outcome.
func RecordShareLookup(found bool) {
	if globalManager != nil && globalManager.enabled {
		outcome := "found"
		if !found {
			outcome = "not_found"
		}
		globalManager.shareLookups.WithLabelValues(outcome).Inc()
	}
}

// RecordEventAppended increments the interaction event counter.
func RecordEventAppended(eventType string) {
	if globalManager != nil && globalManager.enabled {
		globalManager.eventsAppended.WithLabelValues(eventType).Inc()
	}
}

// RecordMintRetry increments the share-id collision retry counter.
func RecordMintRetry() {
	if globalManager != nil && globalManager.enabled {
		globalManager.mintRetries.Inc()
	}
}

// TimeStorageOp starts timing a storage operation; call the returned
// function when the operation completes.
func TimeStorageOp(op string) func() {
	start := time.Now()
	return func() {
		if globalManager != nil && globalManager.enabled {
			globalManager.storageOpLatency.WithLabelValues(op).Observe(float64(time.Since(start).Milliseconds()))
		}
	}
}

// TimeAnalyticsQuery starts timing an aggregate recomputation; call the
// returned function when the query completes.
func TimeAnalyticsQuery(query string) func() {
	start := time.Now()
	return func() {
		if globalManager != nil && globalManager.enabled {
			globalManager.analyticsQueryLatency.WithLabelValues(query).Observe(float64(time.Since(start).Milliseconds()))
		}
	}
}

// RecordHTTPRequest records an HTTP request.
func RecordHTTPRequest(endpoint, method, statusCode string) {
	if globalManager != nil && globalManager.enabled {
		globalManager.httpRequests.WithLabelValues(endpoint, method, statusCode).Inc()
	}
}

// RecordHTTPRequestDuration records HTTP request duration in milliseconds.
func RecordHTTPRequestDuration(endpoint, method, statusCode string, durationMs float64) {
	if globalManager != nil && globalManager.enabled {
		globalManager.httpRequestDuration.WithLabelValues(endpoint, method, statusCode).Observe(durationMs)
	}
}

// GetRegistry returns the custom registry backing the global manager,
// for exposing via the /metrics handler.
func GetRegistry() *prometheus.Registry {
	return customRegistry
}
