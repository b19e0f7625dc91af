// Package metrics provides Prometheus metrics for the kartboard standings service.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Manager owns every Prometheus collector of the service.
type Manager struct {
	namespace        string
	subsystem        string
	histogramBuckets []float64
	customLabels     map[string]string
	metricPrefix     string
	registry         prometheus.Registerer

	// Snapshot lifecycle
	snapshotRefreshes        prometheus.Counter
	snapshotRefreshFailures  prometheus.Counter
	snapshotRefreshDuration  prometheus.Histogram
	snapshotLastSuccessUnix  prometheus.Gauge
	snapshotFallbacks        prometheus.Counter
	rosterDrivers            prometheus.Gauge
	rosterLinkedDrivers      prometheus.Gauge
	resultTournaments        prometheus.Gauge
	resultRaces              prometheus.Gauge
	resultParticipations     prometheus.Gauge
	standingsComputeDuration *prometheus.HistogramVec

	// Store
	storeOperationLatency *prometheus.HistogramVec
	storeOperationErrors  *prometheus.CounterVec

	// Self-service
	linkOperations *prometheus.CounterVec
	photoUploads   *prometheus.CounterVec

	// Live push
	liveClients    prometheus.Gauge
	liveBroadcasts prometheus.Counter

	// HTTP
	httpRequests        *prometheus.CounterVec
	httpRequestDuration *prometheus.HistogramVec
	errorRateByType     *prometheus.CounterVec
	errorRateByEndpoint *prometheus.CounterVec

	// System
	systemMemoryUsage    prometheus.Gauge
	systemGoroutineCount prometheus.Gauge
	systemGCPauseTime    prometheus.Histogram
}

var globalManager *Manager //nolint:gochecknoglobals // singleton metrics manager

// Custom registry to avoid default Go metrics.
var customRegistry = prometheus.NewRegistry() //nolint:gochecknoglobals // metrics registry

func init() { //nolint:gochecknoinits // global metrics setup
	globalManager = NewManager(WithPrometheusRegistry(customRegistry))
}

// NewManager creates a new metrics manager. Collectors are registered on the
// configured registry, prometheus.DefaultRegisterer unless overridden.
func NewManager(opts ...Option) *Manager {
	m := &Manager{
		namespace:        "kartboard",
		subsystem:        "standings",
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

func (m *Manager) name(n string) string {
	if m.metricPrefix == "" {
		return n
	}
	return m.metricPrefix + "_" + n
}

func (m *Manager) counter(name, help string) prometheus.Counter {
	return promauto.With(m.registry).NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace, Subsystem: m.subsystem, Name: m.name(name), Help: help, ConstLabels: m.customLabels,
	})
}

func (m *Manager) gauge(name, help string) prometheus.Gauge {
	return promauto.With(m.registry).NewGauge(prometheus.GaugeOpts{
		Namespace: m.namespace, Subsystem: m.subsystem, Name: m.name(name), Help: help, ConstLabels: m.customLabels,
	})
}

func (m *Manager) histogram(name, help string) prometheus.Histogram {
	return promauto.With(m.registry).NewHistogram(prometheus.HistogramOpts{
		Namespace: m.namespace, Subsystem: m.subsystem, Name: m.name(name), Help: help, ConstLabels: m.customLabels,
		Buckets: m.histogramBuckets,
	})
}

func (m *Manager) counterVec(name, help string, labels ...string) *prometheus.CounterVec {
	return promauto.With(m.registry).NewCounterVec(prometheus.CounterOpts{
		Namespace: m.namespace, Subsystem: m.subsystem, Name: m.name(name), Help: help, ConstLabels: m.customLabels,
	}, labels)
}

func (m *Manager) histogramVec(name, help string, labels ...string) *prometheus.HistogramVec {
	return promauto.With(m.registry).NewHistogramVec(prometheus.HistogramOpts{
		Namespace: m.namespace, Subsystem: m.subsystem, Name: m.name(name), Help: help, ConstLabels: m.customLabels,
		Buckets: m.histogramBuckets,
	}, labels)
}

func (m *Manager) initializeMetrics() {
	m.snapshotRefreshes = m.counter("snapshot_refreshes_total", "Total number of successful snapshot refreshes")
	m.snapshotRefreshFailures = m.counter("snapshot_refresh_failures_total", "Total number of failed snapshot refreshes")
	m.snapshotRefreshDuration = m.histogram("snapshot_refresh_duration_milliseconds", "Snapshot refresh duration in milliseconds")
	m.snapshotLastSuccessUnix = m.gauge("snapshot_last_success_unix", "Unix timestamp of the last successful snapshot refresh")
	m.snapshotFallbacks = m.counter("snapshot_fallbacks_total", "Refresh failures absorbed by serving the last known good or seeded snapshot")
	m.rosterDrivers = m.gauge("roster_drivers", "Number of drivers in the current snapshot")
	m.rosterLinkedDrivers = m.gauge("roster_linked_drivers", "Number of drivers linked to an identity")
	m.resultTournaments = m.gauge("result_tournaments", "Number of tournaments in the current snapshot")
	m.resultRaces = m.gauge("result_races", "Number of races in the current snapshot")
	m.resultParticipations = m.gauge("result_participations", "Number of participations in the current snapshot")
	m.standingsComputeDuration = m.histogramVec("compute_duration_milliseconds", "Standings computation duration in milliseconds", "view")

	m.storeOperationLatency = m.histogramVec("store_operation_latency_milliseconds", "Document store operation latency in milliseconds", "store", "operation")
	m.storeOperationErrors = m.counterVec("store_operation_errors_total", "Document store operation failures", "store", "operation")

	m.linkOperations = m.counterVec("link_operations_total", "Driver self-service write operations by outcome", "operation", "outcome")
	m.photoUploads = m.counterVec("photo_uploads_total", "Driver photo uploads by outcome", "outcome")

	m.liveClients = m.gauge("live_clients", "Connected live update clients")
	m.liveBroadcasts = m.counter("live_broadcasts_total", "Live update messages broadcast")

	m.httpRequests = m.counterVec("http_requests_total", "Total number of HTTP requests by endpoint and method", "endpoint", "method", "status_code")
	m.httpRequestDuration = m.histogramVec("http_request_duration_milliseconds", "HTTP request duration in milliseconds", "endpoint", "method", "status_code")
	m.errorRateByType = m.counterVec("errors_by_type_total", "HTTP errors by type and severity", "error_type", "severity")
	m.errorRateByEndpoint = m.counterVec("errors_by_endpoint_total", "HTTP errors by endpoint, method and type", "endpoint", "method", "error_type")

	m.systemMemoryUsage = m.gauge("system_memory_bytes", "Allocated heap memory in bytes")
	m.systemGoroutineCount = m.gauge("system_goroutines", "Number of goroutines")
	m.systemGCPauseTime = m.histogram("system_gc_pause_milliseconds", "Average GC pause time in milliseconds")
}

// Snapshot metrics.

// RecordSnapshotRefresh records a successful refresh and its duration.
func RecordSnapshotRefresh(durationMs float64) {
	globalManager.snapshotRefreshes.Inc()
	globalManager.snapshotRefreshDuration.Observe(durationMs)
	globalManager.snapshotLastSuccessUnix.Set(float64(time.Now().Unix()))
}

// RecordSnapshotRefreshFailure increments the failed refresh counter.
func RecordSnapshotRefreshFailure() {
	globalManager.snapshotRefreshFailures.Inc()
}

// RecordSnapshotFallback counts a refresh failure absorbed by serving the last
// known good or seeded snapshot. Falling back to an empty snapshot is not counted.
func RecordSnapshotFallback() {
	globalManager.snapshotFallbacks.Inc()
}

// UpdateSnapshotSize publishes the size of the current snapshot.
func UpdateSnapshotSize(drivers, linked, tournaments, races, participations int) {
	globalManager.rosterDrivers.Set(float64(drivers))
	globalManager.rosterLinkedDrivers.Set(float64(linked))
	globalManager.resultTournaments.Set(float64(tournaments))
	globalManager.resultRaces.Set(float64(races))
	globalManager.resultParticipations.Set(float64(participations))
}

// RecordComputeDuration records how long a standings view took to compute.
func RecordComputeDuration(view string, durationMs float64) {
	globalManager.standingsComputeDuration.WithLabelValues(view).Observe(durationMs)
}

// Store metrics.

// RecordStoreOperation records the latency of a store operation.
func RecordStoreOperation(store, operation string, latencyMs float64) {
	globalManager.storeOperationLatency.WithLabelValues(store, operation).Observe(latencyMs)
}

// RecordStoreError counts a failed store operation.
func RecordStoreError(store, operation string) {
	globalManager.storeOperationErrors.WithLabelValues(store, operation).Inc()
}

// Self-service metrics.

// RecordLinkOperation counts a self-service write (link, unlink, create,
// profile, attendance) by outcome.
func RecordLinkOperation(operation, outcome string) {
	globalManager.linkOperations.WithLabelValues(operation, outcome).Inc()
}

// RecordPhotoUpload counts a photo upload by outcome.
func RecordPhotoUpload(outcome string) {
	globalManager.photoUploads.WithLabelValues(outcome).Inc()
}

// Live metrics.

// UpdateLiveClients sets the number of connected live clients.
func UpdateLiveClients(count int) {
	globalManager.liveClients.Set(float64(count))
}

// RecordLiveBroadcast counts a broadcast message.
func RecordLiveBroadcast() {
	globalManager.liveBroadcasts.Inc()
}

// HTTP metrics.

// RecordHTTPRequest records an HTTP request.
func RecordHTTPRequest(endpoint, method, statusCode string) {
	globalManager.httpRequests.WithLabelValues(endpoint, method, statusCode).Inc()
}

// RecordHTTPRequestDuration records HTTP request duration.
func RecordHTTPRequestDuration(endpoint, method, statusCode string, duration float64) {
	globalManager.httpRequestDuration.WithLabelValues(endpoint, method, statusCode).Observe(duration)
}

// RecordErrorByType records an error with type and severity labels.
func RecordErrorByType(errorType, severity string) {
	globalManager.errorRateByType.WithLabelValues(errorType, severity).Inc()
}

// RecordErrorByEndpoint records an error with endpoint, method, and error type labels.
func RecordErrorByEndpoint(endpoint, method, errorType string) {
	globalManager.errorRateByEndpoint.WithLabelValues(endpoint, method, errorType).Inc()
}

// System metrics.

// UpdateSystemMemoryUsage sets the system memory usage in bytes.
func UpdateSystemMemoryUsage(bytes uint64) {
	globalManager.systemMemoryUsage.Set(float64(bytes))
}

// UpdateSystemGoroutineCount sets the number of goroutines.
func UpdateSystemGoroutineCount(count int) {
	globalManager.systemGoroutineCount.Set(float64(count))
}

// RecordSystemGCPauseTime records GC pause time in milliseconds.
func RecordSystemGCPauseTime(pauseMs float64) {
	globalManager.systemGCPauseTime.Observe(pauseMs)
}

// GetRegistry returns the custom Prometheus registry used by our metrics.
func GetRegistry() *prometheus.Registry {
	return customRegistry
}
