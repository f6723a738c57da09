// Package metrics provides Prometheus metrics for the attrition scoring service.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Default metrics configuration constants.
const (
	defaultRefreshInterval = 10 * time.Second
)

// Manager manages all Prometheus metrics for the service.
type Manager struct {
	namespace        string
	subsystem        string
	histogramBuckets []float64
	enabled          bool
	refreshInterval  time.Duration
	customLabels     map[string]string
	metricPrefix     string
	registry         prometheus.Registerer

	// Dataset
	datasetRecords   prometheus.Gauge
	datasetTrainable prometheus.Gauge
	datasetSkipped   prometheus.Counter
	datasetLoads     *prometheus.CounterVec

	// Training
	trainingRuns      *prometheus.CounterVec
	trainingDuration  prometheus.Histogram
	trainingEpochs    prometheus.Counter
	trainingLoss      prometheus.Gauge
	trainingAccuracy  prometheus.Gauge
	validationAcc     prometheus.Gauge
	importanceLatency prometheus.Histogram

	// Prediction
	predictions       *prometheus.CounterVec
	predictionLatency prometheus.Histogram
	fallbacks         *prometheus.CounterVec
	riskLevels        *prometheus.CounterVec
	breakerState      prometheus.Gauge

	// Batch scoring queue and workers
	queueSize            prometheus.Gauge
	queueCapacity        prometheus.Gauge
	queueEnqueueErrors   prometheus.Counter
	workerCount          prometheus.Gauge
	workerProcessed      prometheus.Counter
	workerErrors         prometheus.Counter
	workerLatency        prometheus.Histogram
	rankedEmployees      prometheus.Gauge
	rankingUpdateLatency prometheus.Histogram

	// HTTP
	httpRequests        *prometheus.CounterVec
	httpRequestDuration *prometheus.HistogramVec
	errorsByComponent   *prometheus.CounterVec

	// System
	systemMemoryUsage    prometheus.Gauge
	systemGoroutineCount prometheus.Gauge
}

// Global metrics manager instance.
var globalManager *Manager //nolint:gochecknoglobals // singleton metrics manager

// Custom registry to avoid default Go metrics.
var customRegistry = prometheus.NewRegistry() //nolint:gochecknoglobals // metrics registry

func init() { //nolint:gochecknoinits // global metrics setup
	globalManager = NewManager(WithPrometheusRegistry(customRegistry))
}

// NewManager creates a new metrics manager with default configuration.
func NewManager(opts ...Option) *Manager {
	m := &Manager{
		namespace:        "attrition",
		subsystem:        "scoring",
		histogramBuckets: prometheus.DefBuckets,
		enabled:          true,
		refreshInterval:  defaultRefreshInterval,
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
	return m.metricPrefix + n
}

// initializeMetrics creates all the Prometheus metrics.
func (m *Manager) initializeMetrics() { //nolint:funlen // one place for every metric
	auto := promauto.With(m.registry)
	labels := prometheus.Labels(m.customLabels)

	gauge := func(name, help string) prometheus.Gauge {
		return auto.NewGauge(prometheus.GaugeOpts{
			Namespace: m.namespace, Subsystem: m.subsystem, Name: m.name(name), Help: help, ConstLabels: labels,
		})
	}
	counter := func(name, help string) prometheus.Counter {
		return auto.NewCounter(prometheus.CounterOpts{
			Namespace: m.namespace, Subsystem: m.subsystem, Name: m.name(name), Help: help, ConstLabels: labels,
		})
	}
	counterVec := func(name, help string, lbls ...string) *prometheus.CounterVec {
		return auto.NewCounterVec(prometheus.CounterOpts{
			Namespace: m.namespace, Subsystem: m.subsystem, Name: m.name(name), Help: help, ConstLabels: labels,
		}, lbls)
	}
	histogram := func(name, help string, buckets []float64) prometheus.Histogram {
		return auto.NewHistogram(prometheus.HistogramOpts{
			Namespace: m.namespace, Subsystem: m.subsystem, Name: m.name(name), Help: help, Buckets: buckets, ConstLabels: labels,
		})
	}

	m.datasetRecords = gauge("dataset_records", "Records in the currently loaded dataset")
	m.datasetTrainable = gauge("dataset_trainable_records", "Records usable for training (Age and Attrition present)")
	m.datasetSkipped = counter("dataset_rows_skipped_total", "Malformed or duplicate CSV rows skipped during load")
	m.datasetLoads = counterVec("dataset_loads_total", "Dataset load attempts by outcome", "outcome")

	m.trainingRuns = counterVec("training_runs_total", "Training runs by outcome", "outcome")
	m.trainingDuration = histogram("training_duration_seconds", "Wall time of a training run",
		[]float64{0.1, 0.5, 1, 2, 5, 10, 30, 60, 120, 300})
	m.trainingEpochs = counter("training_epochs_total", "Completed training epochs")
	m.trainingLoss = gauge("training_loss", "Training loss of the last completed epoch")
	m.trainingAccuracy = gauge("training_accuracy", "Training accuracy of the last completed epoch")
	m.validationAcc = gauge("validation_accuracy", "Validation accuracy of the last completed epoch")
	m.importanceLatency = histogram("importance_estimation_milliseconds", "Perturbation importance latency in milliseconds", m.histogramBuckets)

	m.predictions = counterVec("predictions_total", "Risk assessments by source", "source")
	m.predictionLatency = histogram("prediction_latency_milliseconds", "Single prediction latency in milliseconds", m.histogramBuckets)
	m.fallbacks = counterVec("prediction_fallbacks_total", "Predictions downgraded to the rule scorer by reason", "reason")
	m.riskLevels = counterVec("risk_levels_total", "Risk assessments by level", "level")
	m.breakerState = gauge("inference_breaker_state", "Inference circuit breaker state (0 closed, 1 half-open, 2 open)")

	m.queueSize = gauge("queue_size", "Current size of the batch scoring queue")
	m.queueCapacity = gauge("queue_capacity", "Capacity of the batch scoring queue")
	m.queueEnqueueErrors = counter("queue_enqueue_errors_total", "Jobs rejected by the batch scoring queue")
	m.workerCount = gauge("worker_count", "Number of batch scoring workers")
	m.workerProcessed = counter("worker_processed_total", "Records scored by batch workers")
	m.workerErrors = counter("worker_errors_total", "Batch worker failures")
	m.workerLatency = histogram("worker_processing_latency_milliseconds", "Batch worker latency per record in milliseconds", m.histogramBuckets)
	m.rankedEmployees = gauge("ranked_employees", "Employees present in the risk ranking")
	m.rankingUpdateLatency = histogram("repository_update_latency_milliseconds", "Risk ranking upsert latency in milliseconds", m.histogramBuckets)

	m.httpRequests = counterVec("http_requests_total", "HTTP requests by endpoint and method", "endpoint", "method", "status_code")
	m.httpRequestDuration = auto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: m.namespace, Subsystem: m.subsystem, Name: m.name("http_request_duration_milliseconds"),
		Help: "HTTP request duration in milliseconds", Buckets: m.histogramBuckets, ConstLabels: labels,
	}, []string{"endpoint", "method", "status_code"})
	m.errorsByComponent = counterVec("errors_total", "Errors by component and type", "component", "error_type")

	m.systemMemoryUsage = gauge("system_memory_usage_bytes", "Heap bytes allocated")
	m.systemGoroutineCount = gauge("system_goroutines", "Number of goroutines")
}

// Dataset metrics.

// UpdateDatasetSize sets the loaded and trainable record counts.
func UpdateDatasetSize(total, trainable int) {
	globalManager.datasetRecords.Set(float64(total))
	globalManager.datasetTrainable.Set(float64(trainable))
}

// RecordDatasetSkipped adds n skipped rows.
func RecordDatasetSkipped(n int) {
	if n > 0 {
		globalManager.datasetSkipped.Add(float64(n))
	}
}

// RecordDatasetLoad counts a dataset load attempt ("ok" or "error").
func RecordDatasetLoad(outcome string) {
	globalManager.datasetLoads.WithLabelValues(outcome).Inc()
}

// Training metrics.

// RecordTrainingRun counts a finished training run ("ok", "error", "canceled").
func RecordTrainingRun(outcome string, took time.Duration) {
	globalManager.trainingRuns.WithLabelValues(outcome).Inc()
	globalManager.trainingDuration.Observe(took.Seconds())
}

// RecordEpoch publishes the metrics of a completed epoch.
func RecordEpoch(loss, accuracy, valAccuracy float64) {
	globalManager.trainingEpochs.Inc()
	globalManager.trainingLoss.Set(loss)
	globalManager.trainingAccuracy.Set(accuracy)
	globalManager.validationAcc.Set(valAccuracy)
}

// RecordImportanceLatency records the duration of an importance estimation.
func RecordImportanceLatency(latencyMs float64) {
	globalManager.importanceLatency.Observe(latencyMs)
}

// Prediction metrics.

// RecordPrediction counts an assessment by source and level.
func RecordPrediction(source, level string, latencyMs float64) {
	globalManager.predictions.WithLabelValues(source).Inc()
	globalManager.riskLevels.WithLabelValues(level).Inc()
	globalManager.predictionLatency.Observe(latencyMs)
}

// RecordFallback counts a downgrade from the model to the rule scorer.
func RecordFallback(reason string) {
	globalManager.fallbacks.WithLabelValues(reason).Inc()
}

// UpdateBreakerState sets the breaker gauge (0 closed, 1 half-open, 2 open).
func UpdateBreakerState(state int) {
	globalManager.breakerState.Set(float64(state))
}

// Queue and worker metrics.

// UpdateQueueSize sets the current queue size.
func UpdateQueueSize(size int) {
	globalManager.queueSize.Set(float64(size))
}

// UpdateQueueCapacity sets the maximum queue capacity.
func UpdateQueueCapacity(capacity int) {
	globalManager.queueCapacity.Set(float64(capacity))
}

// RecordQueueEnqueueError increments the enqueue error counter.
func RecordQueueEnqueueError() {
	globalManager.queueEnqueueErrors.Inc()
}

// UpdateWorkerCount sets the current worker count.
func UpdateWorkerCount(count int) {
	globalManager.workerCount.Set(float64(count))
}

// RecordWorkerProcessed records a scored record and its latency.
func RecordWorkerProcessed(latencyMs float64) {
	globalManager.workerProcessed.Inc()
	globalManager.workerLatency.Observe(latencyMs)
}

// RecordWorkerError increments the worker error counter.
func RecordWorkerError() {
	globalManager.workerErrors.Inc()
}

// UpdateRankedEmployees sets the size of the risk ranking.
func UpdateRankedEmployees(count int) {
	globalManager.rankedEmployees.Set(float64(count))
}

// RecordRepositoryUpdateLatency records ranking upsert latency.
func RecordRepositoryUpdateLatency(latencyMs float64) {
	globalManager.rankingUpdateLatency.Observe(latencyMs)
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

// RecordErrorByComponent records an error with component and type labels.
func RecordErrorByComponent(component, errorType string) {
	globalManager.errorsByComponent.WithLabelValues(component, errorType).Inc()
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

// GetRegistry returns the custom Prometheus registry used by our metrics.
func GetRegistry() *prometheus.Registry {
	return customRegistry
}
