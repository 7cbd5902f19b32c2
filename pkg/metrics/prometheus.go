// Package metrics provides Prometheus metrics for the chartmeta service.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Manager manages all Prometheus metrics for the chartmeta service.
type Manager struct {
	namespace        string
	subsystem        string
	histogramBuckets []float64
	constLabels      prometheus.Labels
	registry         prometheus.Registerer

	// Pipeline
	chartsScored    prometheus.Counter
	chartErrors     *prometheus.CounterVec
	scoringLatency  prometheus.Histogram
	chartNotes      prometheus.Histogram
	linesSkipped    prometheus.Counter
	eventsDiscarded prometheus.Counter
	jobsDuplicate   prometheus.Counter

	// Sinks
	rowsWritten  *prometheus.CounterVec
	sinkLatency  prometheus.Histogram
	resultsTotal prometheus.Gauge

	// Queue
	queueSize          prometheus.Gauge
	queueCapacity      prometheus.Gauge
	queueEnqueued      prometheus.Counter
	queueDequeued      prometheus.Counter
	queueEnqueueErrors prometheus.Counter

	// Workers
	workerCount             prometheus.Gauge
	workerActiveCount       prometheus.Gauge
	workerProcessingLatency prometheus.Histogram
	workerErrors            prometheus.Counter

	// HTTP
	httpRequests        *prometheus.CounterVec
	httpRequestDuration *prometheus.HistogramVec

	errorsByComponent *prometheus.CounterVec

	// System
	systemMemoryUsage    prometheus.Gauge
	systemGoroutineCount prometheus.Gauge
	systemGCPauseTime    prometheus.Histogram
}

// Global metrics manager instance.
var globalManager *Manager //nolint:gochecknoglobals // intentional global for singleton metrics manager

// Custom registry to avoid default Go metrics.
var customRegistry = prometheus.NewRegistry() //nolint:gochecknoglobals // intentional global for metrics registry

func init() { //nolint:gochecknoinits // intentional init for global metrics setup
	globalManager = NewManager(WithPrometheusRegistry(customRegistry))
}

// NewManager creates a new metrics manager with default configuration.
func NewManager(opts ...Option) *Manager {
	m := &Manager{
		namespace:        "chartmeta",
		subsystem:        "scoring",
		histogramBuckets: prometheus.DefBuckets,
		registry:         prometheus.DefaultRegisterer,
	}
	for _, opt := range opts {
		opt(m)
	}
	m.initializeMetrics()
	return m
}

func (m *Manager) counter(name, help string) prometheus.Counter {
	return promauto.With(m.registry).NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace, Subsystem: m.subsystem, Name: name, Help: help, ConstLabels: m.constLabels,
	})
}

func (m *Manager) gauge(name, help string) prometheus.Gauge {
	return promauto.With(m.registry).NewGauge(prometheus.GaugeOpts{
		Namespace: m.namespace, Subsystem: m.subsystem, Name: name, Help: help, ConstLabels: m.constLabels,
	})
}

func (m *Manager) histogram(name, help string, buckets []float64) prometheus.Histogram {
	return promauto.With(m.registry).NewHistogram(prometheus.HistogramOpts{
		Namespace: m.namespace, Subsystem: m.subsystem, Name: name, Help: help, ConstLabels: m.constLabels, Buckets: buckets,
	})
}

func (m *Manager) counterVec(name, help string, labels ...string) *prometheus.CounterVec {
	return promauto.With(m.registry).NewCounterVec(prometheus.CounterOpts{
		Namespace: m.namespace, Subsystem: m.subsystem, Name: name, Help: help, ConstLabels: m.constLabels,
	}, labels)
}

func (m *Manager) initializeMetrics() {
	m.chartsScored = m.counter("charts_scored_total", "Total number of chart computations that produced a row")
	m.chartErrors = m.counterVec("chart_errors_total", "Chart computations that failed, by error kind", "kind")
	m.scoringLatency = m.histogram("scoring_latency_milliseconds", "Time to read, synthesize and simulate one chart", m.histogramBuckets)
	m.chartNotes = m.histogram("chart_notes", "Scoring units per chart including long-note midpoints",
		prometheus.ExponentialBuckets(16, 2, 10))
	m.linesSkipped = m.counter("chart_lines_skipped_total", "Malformed chart lines ignored by the reader")
	m.eventsDiscarded = m.counter("events_discarded_total", "Raw events dropped as invalid note combinations")
	m.jobsDuplicate = m.counter("jobs_duplicate_total", "Batch jobs skipped because their key was already seen")

	m.rowsWritten = m.counterVec("rows_written_total", "Result rows appended, by sink", "sink")
	m.sinkLatency = m.histogram("sink_latency_milliseconds", "Time to append one batch of rows", m.histogramBuckets)
	m.resultsTotal = m.gauge("results_total", "Rows held by the listable result store")

	m.queueSize = m.gauge("queue_size", "Jobs waiting in the queue")
	m.queueCapacity = m.gauge("queue_capacity", "Maximum number of queued jobs")
	m.queueEnqueued = m.counter("queue_enqueued_total", "Jobs enqueued")
	m.queueDequeued = m.counter("queue_dequeued_total", "Jobs dequeued")
	m.queueEnqueueErrors = m.counter("queue_enqueue_errors_total", "Jobs rejected by a full or closed queue")

	m.workerCount = m.gauge("worker_count", "Workers in the pool")
	m.workerActiveCount = m.gauge("worker_active_count", "Workers currently processing a job")
	m.workerProcessingLatency = m.histogram("worker_processing_latency_milliseconds", "End-to-end job processing time", m.histogramBuckets)
	m.workerErrors = m.counter("worker_errors_total", "Jobs that failed in a worker")

	m.httpRequests = m.counterVec("http_requests_total", "HTTP requests", "endpoint", "method", "status_code")
	m.httpRequestDuration = promauto.With(m.registry).NewHistogramVec(prometheus.HistogramOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        "http_request_duration_seconds",
		Help:        "HTTP request duration in seconds",
		ConstLabels: m.constLabels,
		Buckets:     prometheus.DefBuckets,
	}, []string{"endpoint", "method", "status_code"})

	m.errorsByComponent = m.counterVec("errors_by_component_total", "Errors by component and type", "component", "error_type")

	m.systemMemoryUsage = m.gauge("system_memory_usage_bytes", "Heap bytes allocated")
	m.systemGoroutineCount = m.gauge("system_goroutine_count", "Running goroutines")
	m.systemGCPauseTime = m.histogram("system_gc_pause_milliseconds", "Average GC pause", m.histogramBuckets)
}

// RecordChartScored increments the scored charts counter.
func RecordChartScored() {
	globalManager.chartsScored.Inc()
}

// RecordChartError counts a failed chart computation.
func RecordChartError(kind string) {
	globalManager.chartErrors.WithLabelValues(kind).Inc()
}

// RecordScoringLatency records scoring latency in milliseconds.
func RecordScoringLatency(latencyMs float64) {
	globalManager.scoringLatency.Observe(latencyMs)
}

// RecordChartNotes observes the scoring unit count of one chart.
func RecordChartNotes(n int64) {
	globalManager.chartNotes.Observe(float64(n))
}

// RecordLinesSkipped adds malformed lines seen by the reader.
func RecordLinesSkipped(n int) {
	globalManager.linesSkipped.Add(float64(n))
}

// RecordEventDiscarded counts one dropped raw event.
func RecordEventDiscarded() {
	globalManager.eventsDiscarded.Inc()
}

// RecordJobDuplicate counts one skipped duplicate job.
func RecordJobDuplicate() {
	globalManager.jobsDuplicate.Inc()
}

// RecordRowsWritten adds n rows appended to sink.
func RecordRowsWritten(sink string, n int) {
	globalManager.rowsWritten.WithLabelValues(sink).Add(float64(n))
}

// RecordSinkLatency records append latency in milliseconds.
func RecordSinkLatency(latencyMs float64) {
	globalManager.sinkLatency.Observe(latencyMs)
}

// UpdateResultsTotal sets the number of stored rows.
func UpdateResultsTotal(n int) {
	globalManager.resultsTotal.Set(float64(n))
}

// UpdateQueueSize sets the current queue size.
func UpdateQueueSize(size int) {
	globalManager.queueSize.Set(float64(size))
}

// UpdateQueueCapacity sets the maximum queue capacity.
func UpdateQueueCapacity(capacity int) {
	globalManager.queueCapacity.Set(float64(capacity))
}

// RecordQueueEnqueue increments the enqueue counter.
func RecordQueueEnqueue() {
	globalManager.queueEnqueued.Inc()
}

// RecordQueueDequeue increments the dequeue counter.
func RecordQueueDequeue() {
	globalManager.queueDequeued.Inc()
}

// RecordQueueEnqueueError increments the enqueue error counter.
func RecordQueueEnqueueError() {
	globalManager.queueEnqueueErrors.Inc()
}

// UpdateWorkerCount sets the current worker count.
func UpdateWorkerCount(count int) {
	globalManager.workerCount.Set(float64(count))
}

// UpdateWorkerActiveCount sets the number of busy workers.
func UpdateWorkerActiveCount(count int) {
	globalManager.workerActiveCount.Set(float64(count))
}

// RecordWorkerProcessingLatency records worker processing latency.
func RecordWorkerProcessingLatency(latencyMs float64) {
	globalManager.workerProcessingLatency.Observe(latencyMs)
}

// RecordWorkerError increments the worker error counter.
func RecordWorkerError() {
	globalManager.workerErrors.Inc()
}

// RecordHTTPRequest records an HTTP request.
func RecordHTTPRequest(endpoint, method, statusCode string) {
	globalManager.httpRequests.WithLabelValues(endpoint, method, statusCode).Inc()
}

// RecordHTTPRequestDuration records HTTP request duration in seconds.
func RecordHTTPRequestDuration(endpoint, method, statusCode string, duration float64) {
	globalManager.httpRequestDuration.WithLabelValues(endpoint, method, statusCode).Observe(duration)
}

// RecordErrorByComponent records an error with component and type labels.
func RecordErrorByComponent(component, errorType string) {
	globalManager.errorsByComponent.WithLabelValues(component, errorType).Inc()
}

// UpdateSystemMemoryUsage sets the allocated heap size.
func UpdateSystemMemoryUsage(bytes uint64) {
	globalManager.systemMemoryUsage.Set(float64(bytes))
}

// UpdateSystemGoroutineCount sets the goroutine gauge.
func UpdateSystemGoroutineCount(n int) {
	globalManager.systemGoroutineCount.Set(float64(n))
}

// RecordSystemGCPauseTime observes the average GC pause in milliseconds.
func RecordSystemGCPauseTime(ms float64) {
	globalManager.systemGCPauseTime.Observe(ms)
}

// GetRegistry returns the custom Prometheus registry used by our metrics.
func GetRegistry() *prometheus.Registry {
	return customRegistry
}

// Handler serves the custom registry in the Prometheus text format.
func Handler() http.Handler {
	return promhttp.HandlerFor(customRegistry, promhttp.HandlerOpts{})
}
