// Package metrics provides Prometheus metrics for the offer attribution pipeline.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Manager manages all Prometheus metrics for the pipeline.
type Manager struct {
	namespace        string
	subsystem        string
	histogramBuckets []float64
	registry         prometheus.Registerer

	// Normalization
	eventsNormalized    *prometheus.CounterVec
	eventsRejected      prometheus.Counter
	eventsDropped       *prometheus.CounterVec
	completionDupes     prometheus.Counter
	customersExcluded   *prometheus.CounterVec
	unknownOfferReceipt prometheus.Counter

	// Attribution
	partitionsProcessed    prometheus.Counter
	candidateAttributions  prometheus.Counter
	collisionsResolved     prometheus.Counter
	transactionsAttributed prometheus.Counter
	receiptsResponded      prometheus.Counter
	stageLatency           *prometheus.HistogramVec
	lastRunCustomers       prometheus.Gauge
	runs                   *prometheus.CounterVec

	// Queue
	queueSize        prometheus.Gauge
	queueCapacity    prometheus.Gauge
	queueUtilization prometheus.Gauge
	queueEnqueue     prometheus.Counter
	queueDequeue     prometheus.Counter
	queueEnqueueErrs prometheus.Counter

	// Workers
	workerCount             prometheus.Gauge
	workerProcessingLatency prometheus.Histogram
	workerErrors            prometheus.Counter

	// Repository
	repositoryRecordsTotal prometheus.Gauge
	repositoryQueryLatency prometheus.Histogram

	// HTTP
	httpRequests        *prometheus.CounterVec
	httpRequestDuration *prometheus.HistogramVec

	errorsByComponent *prometheus.CounterVec
}

var globalManager *Manager //nolint:gochecknoglobals // singleton metrics manager

// Custom registry to avoid default Go metrics.
var customRegistry = prometheus.NewRegistry() //nolint:gochecknoglobals // metrics registry

func init() { //nolint:gochecknoinits // global metrics setup
	globalManager = NewManager(WithPrometheusRegistry(customRegistry))
}

// NewManager creates a new metrics manager with default configuration.
func NewManager(opts ...Option) *Manager {
	m := &Manager{
		namespace:        "offerlens",
		subsystem:        "attribution",
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
		Namespace: m.namespace, Subsystem: m.subsystem, Name: name, Help: help,
	})
}

func (m *Manager) counterVec(name, help string, labels ...string) *prometheus.CounterVec {
	return promauto.With(m.registry).NewCounterVec(prometheus.CounterOpts{
		Namespace: m.namespace, Subsystem: m.subsystem, Name: name, Help: help,
	}, labels)
}

func (m *Manager) gauge(name, help string) prometheus.Gauge {
	return promauto.With(m.registry).NewGauge(prometheus.GaugeOpts{
		Namespace: m.namespace, Subsystem: m.subsystem, Name: name, Help: help,
	})
}

func (m *Manager) histogram(name, help string) prometheus.Histogram {
	return promauto.With(m.registry).NewHistogram(prometheus.HistogramOpts{
		Namespace: m.namespace, Subsystem: m.subsystem, Name: name, Help: help, Buckets: m.histogramBuckets,
	})
}

func (m *Manager) histogramVec(name, help string, labels ...string) *prometheus.HistogramVec {
	return promauto.With(m.registry).NewHistogramVec(prometheus.HistogramOpts{
		Namespace: m.namespace, Subsystem: m.subsystem, Name: name, Help: help, Buckets: m.histogramBuckets,
	}, labels)
}

func (m *Manager) initializeMetrics() {
	m.eventsNormalized = m.counterVec("events_normalized_total", "Events accepted by the normalizer by kind", "kind")
	m.eventsRejected = m.counter("events_rejected_total", "Malformed events rejected by the normalizer")
	m.eventsDropped = m.counterVec("events_dropped_total", "Events dropped by data-quality filters", "reason")
	m.completionDupes = m.counter("completions_duplicate_total", "Exact duplicate offer completed events removed")
	m.customersExcluded = m.counterVec("customers_excluded_total", "Customers removed by the received/transaction intersection", "side")
	m.unknownOfferReceipt = m.counter("receipts_unknown_offer_total", "Receipts whose offer is missing from the catalog")

	m.partitionsProcessed = m.counter("partitions_processed_total", "Customer partitions attributed")
	m.candidateAttributions = m.counter("candidate_attributions_total", "Receipt-view-completion candidates produced")
	m.collisionsResolved = m.counter("collisions_resolved_total", "Transactions with more than one candidate offer")
	m.transactionsAttributed = m.counter("transactions_attributed_total", "Transactions credited to an offer")
	m.receiptsResponded = m.counter("receipts_responded_total", "Receipts marked as responded")
	m.stageLatency = m.histogramVec("stage_latency_milliseconds", "Pipeline stage latency in milliseconds", "stage")
	m.lastRunCustomers = m.gauge("last_run_customers", "Customers in the feature table of the last run")
	m.runs = m.counterVec("runs_total", "Pipeline runs by outcome", "outcome")

	m.queueSize = m.gauge("queue_size", "Partitions waiting in the queue")
	m.queueCapacity = m.gauge("queue_capacity", "Maximum queue capacity")
	m.queueUtilization = m.gauge("queue_utilization_ratio", "Queue utilization ratio (0-1)")
	m.queueEnqueue = m.counter("queue_enqueue_total", "Partitions enqueued")
	m.queueDequeue = m.counter("queue_dequeue_total", "Partitions dequeued")
	m.queueEnqueueErrs = m.counter("queue_enqueue_errors_total", "Rejected enqueue attempts")

	m.workerCount = m.gauge("worker_count", "Attribution workers in the pool")
	m.workerProcessingLatency = m.histogram("worker_processing_latency_milliseconds", "Per-partition attribution latency")
	m.workerErrors = m.counter("worker_errors_total", "Partition attribution failures")

	m.repositoryRecordsTotal = m.gauge("repository_records_total", "Feature rows held by the results store")
	m.repositoryQueryLatency = m.histogram("repository_query_latency_milliseconds", "Results store query latency")

	m.httpRequests = m.counterVec("http_requests_total", "HTTP requests by endpoint and method", "endpoint", "method", "status_code")
	m.httpRequestDuration = m.histogramVec("http_request_duration_milliseconds", "HTTP request duration in milliseconds", "endpoint", "method", "status_code")

	m.errorsByComponent = m.counterVec("errors_by_component_total", "Errors by component and type", "component", "error_type")
}

// RecordEventNormalized counts an accepted event of the given kind.
func RecordEventNormalized(kind string) {
	globalManager.eventsNormalized.WithLabelValues(kind).Inc()
}

// RecordEventRejected counts a malformed event.
func RecordEventRejected() {
	globalManager.eventsRejected.Inc()
}

// RecordEventDropped counts an event removed by a data-quality filter.
func RecordEventDropped(reason string) {
	globalManager.eventsDropped.WithLabelValues(reason).Inc()
}

// RecordCompletionDuplicate counts a duplicate completed event.
func RecordCompletionDuplicate() {
	globalManager.completionDupes.Inc()
}

// RecordCustomersExcluded adds n customers excluded on one side of the intersection.
func RecordCustomersExcluded(side string, n int) {
	globalManager.customersExcluded.WithLabelValues(side).Add(float64(n))
}

// RecordUnknownOfferReceipt counts a receipt for an offer missing from the catalog.
func RecordUnknownOfferReceipt() {
	globalManager.unknownOfferReceipt.Inc()
}

// RecordPartitionProcessed counts an attributed customer partition.
func RecordPartitionProcessed() {
	globalManager.partitionsProcessed.Inc()
}

// RecordCandidateAttributions adds n candidate attributions.
func RecordCandidateAttributions(n int) {
	globalManager.candidateAttributions.Add(float64(n))
}

// RecordCollisionResolved counts a transaction with competing offers.
func RecordCollisionResolved() {
	globalManager.collisionsResolved.Inc()
}

// RecordTransactionsAttributed adds n attributed transactions.
func RecordTransactionsAttributed(n int) {
	globalManager.transactionsAttributed.Add(float64(n))
}

// RecordReceiptsResponded adds n responded receipts.
func RecordReceiptsResponded(n int) {
	globalManager.receiptsResponded.Add(float64(n))
}

// RecordStageLatency records a pipeline stage latency in milliseconds.
func RecordStageLatency(stage string, latencyMs float64) {
	globalManager.stageLatency.WithLabelValues(stage).Observe(latencyMs)
}

// UpdateLastRunCustomers sets the feature row count of the last run.
func UpdateLastRunCustomers(count int) {
	globalManager.lastRunCustomers.Set(float64(count))
}

// RecordRun counts a pipeline run with outcome "ok" or "error".
func RecordRun(outcome string) {
	globalManager.runs.WithLabelValues(outcome).Inc()
}

// UpdateQueueSize sets the current queue size.
func UpdateQueueSize(size int) {
	globalManager.queueSize.Set(float64(size))
}

// UpdateQueueCapacity sets the maximum queue capacity.
func UpdateQueueCapacity(capacity int) {
	globalManager.queueCapacity.Set(float64(capacity))
}

// UpdateQueueUtilization sets the queue utilization ratio.
func UpdateQueueUtilization(utilization float64) {
	globalManager.queueUtilization.Set(utilization)
}

// RecordQueueEnqueue increments the enqueue counter.
func RecordQueueEnqueue() {
	globalManager.queueEnqueue.Inc()
}

// RecordQueueDequeue increments the dequeue counter.
func RecordQueueDequeue() {
	globalManager.queueDequeue.Inc()
}

// RecordQueueEnqueueError increments the enqueue error counter.
func RecordQueueEnqueueError() {
	globalManager.queueEnqueueErrs.Inc()
}

// UpdateWorkerCount sets the current worker count.
func UpdateWorkerCount(count int) {
	globalManager.workerCount.Set(float64(count))
}

// RecordWorkerProcessingLatency records worker processing latency.
func RecordWorkerProcessingLatency(latencyMs float64) {
	globalManager.workerProcessingLatency.Observe(latencyMs)
}

// RecordWorkerError increments the worker error counter.
func RecordWorkerError() {
	globalManager.workerErrors.Inc()
}

// UpdateRepositoryRecordsTotal sets the number of rows in the results store.
func UpdateRepositoryRecordsTotal(count int) {
	globalManager.repositoryRecordsTotal.Set(float64(count))
}

// RecordRepositoryQueryLatency records results store query latency.
func RecordRepositoryQueryLatency(latencyMs float64) {
	globalManager.repositoryQueryLatency.Observe(latencyMs)
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
	globalManager.errorsByComponent.WithLabelValues(component, errorType).Inc()
}

// GetRegistry returns the custom Prometheus registry used by our metrics.
func GetRegistry() *prometheus.Registry {
	return customRegistry
}
