// Package metrics provides Prometheus metrics for the event scoring service.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Manager holds every Prometheus collector of the service.
type Manager struct {
	namespace        string
	subsystem        string
	histogramBuckets []float64
	customLabels     map[string]string
	registry         prometheus.Registerer

	// Runs
	runsStarted   prometheus.Counter
	runsCompleted *prometheus.CounterVec
	runsDuplicate prometheus.Counter
	runQueueSize  prometheus.Gauge

	// Scheduler
	eventsScored   prometheus.Counter
	eventErrors    *prometheus.CounterVec
	rateLimitHits  prometheus.Counter
	batchDuration  prometheus.Histogram
	scoringLatency prometheus.Histogram
	totalScore     prometheus.Histogram

	// Store
	storedEvents prometheus.Gauge
	storeLatency *prometheus.HistogramVec

	// HTTP
	httpRequests        *prometheus.CounterVec
	httpRequestDuration *prometheus.HistogramVec

	errorRateByComponent *prometheus.CounterVec
}

// Global metrics manager instance.
var globalManager *Manager //nolint:gochecknoglobals // intentional global for singleton metrics manager

// Custom registry to avoid default Go metrics.
var customRegistry = prometheus.NewRegistry() //nolint:gochecknoglobals // intentional global for metrics registry

func init() { //nolint:gochecknoinits // intentional init for global metrics setup
	globalManager = NewManager(WithPrometheusRegistry(customRegistry))
}

// NewManager creates a metrics manager and registers its collectors.
func NewManager(opts ...Option) *Manager {
	m := &Manager{
		namespace:        "eventscore",
		subsystem:        "engine",
		histogramBuckets: prometheus.DefBuckets,
		customLabels:     make(map[string]string),
		registry:         prometheus.DefaultRegisterer,
	}
	for _, opt := range opts {
		opt(m)
	}
	m.initializeMetrics()
	return m
}

func (m *Manager) initializeMetrics() { //nolint:funlen // collector declarations
	auto := promauto.With(m.registry)
	labels := prometheus.Labels(m.customLabels)

	m.runsStarted = auto.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace, Subsystem: m.subsystem, ConstLabels: labels,
		Name: "runs_started_total",
		Help: "Total number of scoring runs started",
	})
	m.runsCompleted = auto.NewCounterVec(prometheus.CounterOpts{
		Namespace: m.namespace, Subsystem: m.subsystem, ConstLabels: labels,
		Name: "runs_completed_total",
		Help: "Total number of scoring runs finished, by final status",
	}, []string{"status"})
	m.runsDuplicate = auto.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace, Subsystem: m.subsystem, ConstLabels: labels,
		Name: "runs_duplicate_total",
		Help: "Total number of run submissions rejected as duplicates",
	})
	m.runQueueSize = auto.NewGauge(prometheus.GaugeOpts{
		Namespace: m.namespace, Subsystem: m.subsystem, ConstLabels: labels,
		Name: "run_queue_size",
		Help: "Number of runs waiting to be processed",
	})

	m.eventsScored = auto.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace, Subsystem: m.subsystem, ConstLabels: labels,
		Name: "events_scored_total",
		Help: "Total number of events scored successfully",
	})
	m.eventErrors = auto.NewCounterVec(prometheus.CounterOpts{
		Namespace: m.namespace, Subsystem: m.subsystem, ConstLabels: labels,
		Name: "event_errors_total",
		Help: "Total number of events that ended in error, by kind",
	}, []string{"kind"})
	m.rateLimitHits = auto.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace, Subsystem: m.subsystem, ConstLabels: labels,
		Name: "rate_limit_hits_total",
		Help: "Total number of rate-limit errors observed by scoring tasks",
	})
	m.batchDuration = auto.NewHistogram(prometheus.HistogramOpts{
		Namespace: m.namespace, Subsystem: m.subsystem, ConstLabels: labels,
		Name:    "batch_duration_seconds",
		Help:    "Time to settle one batch of scoring tasks",
		Buckets: m.histogramBuckets,
	})
	m.scoringLatency = auto.NewHistogram(prometheus.HistogramOpts{
		Namespace: m.namespace, Subsystem: m.subsystem, ConstLabels: labels,
		Name:    "scoring_latency_milliseconds",
		Help:    "Per-event scoring latency in milliseconds",
		Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 25, 50, 100, 250, 1000},
	})
	m.totalScore = auto.NewHistogram(prometheus.HistogramOpts{
		Namespace: m.namespace, Subsystem: m.subsystem, ConstLabels: labels,
		Name:    "total_score",
		Help:    "Distribution of total suitability scores",
		Buckets: prometheus.LinearBuckets(10, 10, 10),
	})

	m.storedEvents = auto.NewGauge(prometheus.GaugeOpts{
		Namespace: m.namespace, Subsystem: m.subsystem, ConstLabels: labels,
		Name: "stored_events",
		Help: "Number of scored events held by the result store",
	})
	m.storeLatency = auto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: m.namespace, Subsystem: m.subsystem, ConstLabels: labels,
		Name:    "store_operation_latency_milliseconds",
		Help:    "Result store operation latency in milliseconds",
		Buckets: []float64{0.1, 0.5, 1, 2.5, 5, 10, 25, 50, 100, 250},
	}, []string{"operation"})

	m.httpRequests = auto.NewCounterVec(prometheus.CounterOpts{
		Namespace: m.namespace, Subsystem: m.subsystem, ConstLabels: labels,
		Name: "http_requests_total",
		Help: "Total number of HTTP requests",
	}, []string{"endpoint", "method", "status_code"})
	m.httpRequestDuration = auto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: m.namespace, Subsystem: m.subsystem, ConstLabels: labels,
		Name:    "http_request_duration_seconds",
		Help:    "HTTP request duration in seconds",
		Buckets: m.histogramBuckets,
	}, []string{"endpoint", "method", "status_code"})

	m.errorRateByComponent = auto.NewCounterVec(prometheus.CounterOpts{
		Namespace: m.namespace, Subsystem: m.subsystem, ConstLabels: labels,
		Name: "errors_by_component_total",
		Help: "Total number of errors by component and type",
	}, []string{"component", "error_type"})
}

// RecordRunStarted increments the runs started counter.
func RecordRunStarted() {
	globalManager.runsStarted.Inc()
}

// RecordRunCompleted counts a finished run by its final status.
func RecordRunCompleted(status string) {
	globalManager.runsCompleted.WithLabelValues(status).Inc()
}

// RecordRunDuplicate increments the duplicate submissions counter.
func RecordRunDuplicate() {
	globalManager.runsDuplicate.Inc()
}

// UpdateRunQueueSize sets the number of queued runs.
func UpdateRunQueueSize(size int) {
	globalManager.runQueueSize.Set(float64(size))
}

// RecordEventScored counts a successful score and observes its total.
func RecordEventScored(total int) {
	globalManager.eventsScored.Inc()
	globalManager.totalScore.Observe(float64(total))
}

// RecordEventError counts an event that ended in error.
func RecordEventError(kind string) {
	globalManager.eventErrors.WithLabelValues(kind).Inc()
}

// RecordRateLimitHit increments the rate-limit counter.
func RecordRateLimitHit() {
	globalManager.rateLimitHits.Inc()
}

// RecordBatchDuration records how long a batch took to settle, in seconds.
func RecordBatchDuration(seconds float64) {
	globalManager.batchDuration.Observe(seconds)
}

// RecordScoringLatency records scoring latency in milliseconds.
func RecordScoringLatency(latencyMs float64) {
	globalManager.scoringLatency.Observe(latencyMs)
}

// UpdateStoredEvents sets the number of stored scored events.
func UpdateStoredEvents(count int) {
	globalManager.storedEvents.Set(float64(count))
}

// RecordStoreLatency records a store operation latency in milliseconds.
func RecordStoreLatency(operation string, latencyMs float64) {
	globalManager.storeLatency.WithLabelValues(operation).Observe(latencyMs)
}

// RecordHTTPRequest records an HTTP request.
func RecordHTTPRequest(endpoint, method, statusCode string) {
	globalManager.httpRequests.WithLabelValues(endpoint, method, statusCode).Inc()
}

// RecordHTTPRequestDuration records HTTP request duration.
func RecordHTTPRequestDuration(endpoint, method, statusCode string, duration float64) {
	globalManager.httpRequestDuration.WithLabelValues(endpoint, method, statusCode).Observe(duration)
}

// RecordErrorByComponent records an error with component and type labels.
func RecordErrorByComponent(component, errorType string) {
	globalManager.errorRateByComponent.WithLabelValues(component, errorType).Inc()
}

// GetRegistry returns the custom Prometheus registry used by our metrics.
func GetRegistry() *prometheus.Registry {
	return customRegistry
}
