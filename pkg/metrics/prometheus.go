// Package metrics provides Prometheus metrics for the auction engine.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Manager owns every Prometheus collector of the service.
type Manager struct {
	namespace        string
	subsystem        string
	histogramBuckets []float64
	constLabels      prometheus.Labels
	registry         prometheus.Registerer

	// Auction ledger
	salesAccepted  prometheus.Counter
	salesRejected  *prometheus.CounterVec
	undos          prometheus.Counter
	undoRejected   prometheus.Counter
	resets         prometheus.Counter
	ratingEdits    prometheus.Counter
	duplicateSales prometheus.Counter
	unsoldPlayers  prometheus.Gauge
	teamRemaining  *prometheus.GaugeVec
	teamSlotsLeft  *prometheus.GaugeVec

	// Engine
	optimizerSolves    *prometheus.CounterVec
	optimizerLatency   prometheus.Histogram
	derivationLatency  *prometheus.HistogramVec
	derivationFailures *prometheus.CounterVec

	// Command queue and writer
	queueSize       prometheus.Gauge
	queueCapacity   prometheus.Gauge
	queueEnqueued   prometheus.Counter
	queueDequeued   prometheus.Counter
	queueRejected   *prometheus.CounterVec
	commandLatency  *prometheus.HistogramVec
	commandFailures *prometheus.CounterVec

	// Fan-out pool
	poolWorkers prometheus.Gauge
	poolJobs    prometheus.Counter
	poolPanics  prometheus.Counter

	// Export
	exports *prometheus.CounterVec

	// HTTP
	httpRequests        *prometheus.CounterVec
	httpRequestDuration *prometheus.HistogramVec
	errorsByEndpoint    *prometheus.CounterVec

	// System
	systemMemoryUsage    prometheus.Gauge
	systemGoroutineCount prometheus.Gauge
}

var globalManager *Manager //nolint:gochecknoglobals // singleton metrics manager

// Custom registry to avoid default Go metrics.
var customRegistry = prometheus.NewRegistry() //nolint:gochecknoglobals // metrics registry

func init() { //nolint:gochecknoinits // global metrics setup
	globalManager = NewManager(WithPrometheusRegistry(customRegistry))
}

// NewManager creates a metrics manager and registers its collectors.
func NewManager(opts ...Option) *Manager {
	m := &Manager{
		namespace:        "bazaar",
		subsystem:        "auction",
		histogramBuckets: []float64{0.1, 0.5, 1, 2.5, 5, 10, 25, 50, 100, 250, 500, 1000},
		constLabels:      prometheus.Labels{},
		registry:         prometheus.DefaultRegisterer,
	}
	for _, opt := range opts {
		opt(m)
	}
	m.initializeMetrics()
	return m
}

func (m *Manager) counter(name, help string) prometheus.CounterOpts {
	return prometheus.CounterOpts{Namespace: m.namespace, Subsystem: m.subsystem, Name: name, Help: help, ConstLabels: m.constLabels}
}

func (m *Manager) gauge(name, help string) prometheus.GaugeOpts {
	return prometheus.GaugeOpts{Namespace: m.namespace, Subsystem: m.subsystem, Name: name, Help: help, ConstLabels: m.constLabels}
}

func (m *Manager) histogram(name, help string) prometheus.HistogramOpts {
	return prometheus.HistogramOpts{Namespace: m.namespace, Subsystem: m.subsystem, Name: name, Help: help, Buckets: m.histogramBuckets, ConstLabels: m.constLabels}
}

func (m *Manager) initializeMetrics() { //nolint:funlen // one place for all collectors
	auto := promauto.With(m.registry)

	m.salesAccepted = auto.NewCounter(m.counter("sales_accepted_total", "Sales applied to the auction ledger"))
	m.salesRejected = auto.NewCounterVec(m.counter("sales_rejected_total", "Sales rejected by validation, by violated constraint"), []string{"constraint"})
	m.undos = auto.NewCounter(m.counter("undos_total", "Sales reverted by undo"))
	m.undoRejected = auto.NewCounter(m.counter("undo_rejected_total", "Undo requests with an empty history"))
	m.resets = auto.NewCounter(m.counter("resets_total", "Auction resets"))
	m.ratingEdits = auto.NewCounter(m.counter("rating_edits_total", "Accepted rating edits"))
	m.duplicateSales = auto.NewCounter(m.counter("sales_duplicate_total", "Sale submissions ignored as duplicates"))
	m.unsoldPlayers = auto.NewGauge(m.gauge("unsold_players", "Auction-eligible players still in the pool"))
	m.teamRemaining = auto.NewGaugeVec(m.gauge("team_remaining_budget", "Remaining budget per team"), []string{"team"})
	m.teamSlotsLeft = auto.NewGaugeVec(m.gauge("team_slots_left", "Open roster slots per team"), []string{"team"})

	m.optimizerSolves = auto.NewCounterVec(m.counter("optimizer_solves_total", "Squad optimizer runs by outcome"), []string{"outcome"})
	m.optimizerLatency = auto.NewHistogram(m.histogram("optimizer_latency_milliseconds", "Squad optimizer latency in milliseconds"))
	m.derivationLatency = auto.NewHistogramVec(m.histogram("derivation_latency_milliseconds", "Latency of read-only derivations in milliseconds"), []string{"kind"})
	m.derivationFailures = auto.NewCounterVec(m.counter("derivation_failures_total", "Per-player derivation failures"), []string{"kind"})

	m.queueSize = auto.NewGauge(m.gauge("queue_size", "Commands waiting for the writer"))
	m.queueCapacity = auto.NewGauge(m.gauge("queue_capacity", "Command queue capacity"))
	m.queueEnqueued = auto.NewCounter(m.counter("queue_enqueue_total", "Commands enqueued"))
	m.queueDequeued = auto.NewCounter(m.counter("queue_dequeue_total", "Commands dequeued"))
	m.queueRejected = auto.NewCounterVec(m.counter("queue_rejected_total", "Commands refused by the queue"), []string{"reason"})
	m.commandLatency = auto.NewHistogramVec(m.histogram("command_latency_milliseconds", "Time to apply a command, by kind"), []string{"kind"})
	m.commandFailures = auto.NewCounterVec(m.counter("command_failures_total", "Commands that returned an error, by kind"), []string{"kind"})

	m.poolWorkers = auto.NewGauge(m.gauge("pool_workers", "Fan-out pool size"))
	m.poolJobs = auto.NewCounter(m.counter("pool_jobs_total", "Jobs executed by the fan-out pool"))
	m.poolPanics = auto.NewCounter(m.counter("pool_panics_total", "Jobs that panicked in the fan-out pool"))

	m.exports = auto.NewCounterVec(m.counter("exports_total", "Roster exports by sink and outcome"), []string{"sink", "outcome"})

	m.httpRequests = auto.NewCounterVec(m.counter("http_requests_total", "HTTP requests by endpoint, method and status"), []string{"endpoint", "method", "status_code"})
	m.httpRequestDuration = auto.NewHistogramVec(m.histogram("http_request_duration_milliseconds", "HTTP request duration in milliseconds"), []string{"endpoint", "method", "status_code"})
	m.errorsByEndpoint = auto.NewCounterVec(m.counter("errors_by_endpoint_total", "HTTP errors by endpoint"), []string{"endpoint", "method", "error_type"})

	m.systemMemoryUsage = auto.NewGauge(m.gauge("system_memory_usage_bytes", "Heap in use in bytes"))
	m.systemGoroutineCount = auto.NewGauge(m.gauge("system_goroutine_count", "Number of goroutines"))
}

// RecordSaleAccepted increments the accepted sales counter.
func RecordSaleAccepted() { globalManager.salesAccepted.Inc() }

// RecordSaleRejected counts a sale refused for the given constraint.
func RecordSaleRejected(constraint string) {
	globalManager.salesRejected.WithLabelValues(constraint).Inc()
}

// RecordUndo counts a reverted sale.
func RecordUndo() { globalManager.undos.Inc() }

// RecordUndoRejected counts an undo against an empty history.
func RecordUndoRejected() { globalManager.undoRejected.Inc() }

// RecordReset counts an auction reset.
func RecordReset() { globalManager.resets.Inc() }

// RecordRatingEdit counts an accepted rating edit.
func RecordRatingEdit() { globalManager.ratingEdits.Inc() }

// RecordDuplicateSale counts an ignored duplicate submission.
func RecordDuplicateSale() { globalManager.duplicateSales.Inc() }

// UpdateUnsoldPlayers sets the pool size gauge.
func UpdateUnsoldPlayers(n int) { globalManager.unsoldPlayers.Set(float64(n)) }

// UpdateTeamBudget sets the remaining budget and open slots of a team.
func UpdateTeamBudget(team string, remaining int64, slotsLeft int) {
	globalManager.teamRemaining.WithLabelValues(team).Set(float64(remaining))
	globalManager.teamSlotsLeft.WithLabelValues(team).Set(float64(slotsLeft))
}

// RecordOptimizerSolve counts one optimizer run and its latency.
func RecordOptimizerSolve(outcome string, latencyMs float64) {
	globalManager.optimizerSolves.WithLabelValues(outcome).Inc()
	globalManager.optimizerLatency.Observe(latencyMs)
}

// RecordDerivationLatency observes a read-only derivation.
func RecordDerivationLatency(kind string, latencyMs float64) {
	globalManager.derivationLatency.WithLabelValues(kind).Observe(latencyMs)
}

// RecordDerivationFailure counts a per-player derivation failure.
func RecordDerivationFailure(kind string) {
	globalManager.derivationFailures.WithLabelValues(kind).Inc()
}

// UpdateQueueSize sets the current queue depth.
func UpdateQueueSize(size int) { globalManager.queueSize.Set(float64(size)) }

// UpdateQueueCapacity sets the maximum queue capacity.
func UpdateQueueCapacity(capacity int) { globalManager.queueCapacity.Set(float64(capacity)) }

// RecordQueueEnqueue increments the enqueue counter.
func RecordQueueEnqueue() { globalManager.queueEnqueued.Inc() }

// RecordQueueDequeue increments the dequeue counter.
func RecordQueueDequeue() { globalManager.queueDequeued.Inc() }

// RecordQueueRejected counts a refused enqueue.
func RecordQueueRejected(reason string) {
	globalManager.queueRejected.WithLabelValues(reason).Inc()
}

// RecordCommand observes the time taken to apply a command.
func RecordCommand(kind string, latencyMs float64, failed bool) {
	globalManager.commandLatency.WithLabelValues(kind).Observe(latencyMs)
	if failed {
		globalManager.commandFailures.WithLabelValues(kind).Inc()
	}
}

// UpdatePoolWorkers sets the fan-out pool size.
func UpdatePoolWorkers(n int) { globalManager.poolWorkers.Set(float64(n)) }

// RecordPoolJob counts an executed job.
func RecordPoolJob(panicked bool) {
	globalManager.poolJobs.Inc()
	if panicked {
		globalManager.poolPanics.Inc()
	}
}

// RecordExport counts a roster export attempt.
func RecordExport(sink string, err error) {
	outcome := "ok"
	if err != nil {
		outcome = "error"
	}
	globalManager.exports.WithLabelValues(sink, outcome).Inc()
}

// RecordHTTPRequest records an HTTP request.
func RecordHTTPRequest(endpoint, method, statusCode string) {
	globalManager.httpRequests.WithLabelValues(endpoint, method, statusCode).Inc()
}

// RecordHTTPRequestDuration records HTTP request duration.
func RecordHTTPRequestDuration(endpoint, method, statusCode string, duration float64) {
	globalManager.httpRequestDuration.WithLabelValues(endpoint, method, statusCode).Observe(duration)
}

// RecordErrorByEndpoint records an error with endpoint, method and error type labels.
func RecordErrorByEndpoint(endpoint, method, errorType string) {
	globalManager.errorsByEndpoint.WithLabelValues(endpoint, method, errorType).Inc()
}

// UpdateSystemMemoryUsage sets the heap usage in bytes.
func UpdateSystemMemoryUsage(bytes uint64) { globalManager.systemMemoryUsage.Set(float64(bytes)) }

// UpdateSystemGoroutineCount sets the number of goroutines.
func UpdateSystemGoroutineCount(count int) { globalManager.systemGoroutineCount.Set(float64(count)) }

// GetRegistry returns the custom Prometheus registry used by our metrics.
func GetRegistry() *prometheus.Registry {
	return customRegistry
}
