package metrics

import (
	"errors"

	"github.com/prometheus/client_golang/prometheus"
)

const (
	Namespace = "checkpoint_viewer"

	// Status label values for success/error metrics
	StatusSuccess = "success"
	StatusError   = "error"

	// Coverage verdict label values
	CoverageReady    = "ready"
	CoverageNotReady = "not_ready"
	CoverageError    = "error"

	RPC        = "rpc"
	Logs       = "logs"
	Schema     = "schema"
	Coverage   = "coverage"
	Status     = "status"
	Enrichment = "enrichment"
	Watcher    = "watcher"
)

// Labels holds constant labels applied to all metrics.
// These are useful for distinguishing metrics from multiple viewer instances.
type Labels struct {
	Network       string // "mainnet" or "testnet"
	Environment   string // Deployment environment (e.g., "production", "staging", "development")
	Region        string // Cloud region (e.g., "us-east-1", "eu-west-1")
	CloudProvider string // Cloud provider (e.g., "aws", "oci", "gcp")
}

// toPrometheusLabels converts Labels to prometheus.Labels map.
// Only non-empty labels are included to avoid empty label values.
func (l Labels) toPrometheusLabels() prometheus.Labels {
	labels := prometheus.Labels{}
	if l.Network != "" {
		labels["network"] = l.Network
	}
	if l.Environment != "" {
		labels["environment"] = l.Environment
	}
	if l.Region != "" {
		labels["region"] = l.Region
	}
	if l.CloudProvider != "" {
		labels["cloud_provider"] = l.CloudProvider
	}
	return labels
}

type Metrics struct {
	errors *prometheus.CounterVec

	// RPC metrics
	rpcCalls    *prometheus.CounterVec
	rpcRetries  *prometheus.CounterVec
	rpcDuration *prometheus.HistogramVec
	rpcInFlight prometheus.Gauge

	// Log scans
	logsFetched  *prometheus.CounterVec
	scanDuration *prometheus.HistogramVec

	// Normalization
	checkpointsNormalized *prometheus.CounterVec
	schemaFallbacks       *prometheus.CounterVec
	schemaAmbiguous       *prometheus.CounterVec

	// Resolution
	coverageChecks *prometheus.CounterVec
	coverageGap    *prometheus.GaugeVec

	// Status snapshots
	blocksBehind *prometheus.GaugeVec
	connected    *prometheus.GaugeVec

	// Timestamp enrichment
	enrichmentFailures prometheus.Counter
	enrichmentCache    *prometheus.CounterVec

	// Status watcher sinks
	sinkWrites *prometheus.CounterVec
}

// New creates a new Metrics instance and registers all metrics with the provided registerer.
// Returns an error if any metric registration fails.
func New(reg prometheus.Registerer) (*Metrics, error) {
	return NewWithLabels(reg, Labels{})
}

// NewWithLabels creates a new Metrics instance with constant labels applied to all metrics.
func NewWithLabels(reg prometheus.Registerer, labels Labels) (*Metrics, error) {
	promLabels := labels.toPrometheusLabels()
	if len(promLabels) > 0 {
		reg = prometheus.WrapRegistererWith(promLabels, reg)
	}

	return newMetrics(reg)
}

func newMetrics(reg prometheus.Registerer) (*Metrics, error) {
	m := &Metrics{
		errors: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: Namespace,
			Name:      "errors_total",
			Help:      "Total errors by type",
		}, []string{"type"}),
		rpcCalls: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: Namespace,
			Subsystem: RPC,
			Name:      "calls_total",
			Help:      "Total RPC calls by method and status",
		}, []string{"method", "status"}),
		rpcRetries: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: Namespace,
			Subsystem: RPC,
			Name:      "retries_total",
			Help:      "Total RPC retry attempts by method",
		}, []string{"method"}),
		rpcDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: Namespace,
			Subsystem: RPC,
			Name:      "duration_seconds",
			Help:      "RPC call duration in seconds",
			// 1ms .. 10s
			Buckets: []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5, 10},
		}, []string{"method"}),
		rpcInFlight: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: Namespace,
			Subsystem: RPC,
			Name:      "in_flight",
			Help:      "Number of RPC calls currently in progress",
		}),
		logsFetched: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: Namespace,
			Subsystem: Logs,
			Name:      "fetched_total",
			Help:      "Total event logs returned by bounded window scans",
		}, []string{"chain", "event"}),
		scanDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: Namespace,
			Subsystem: Logs,
			Name:      "scan_duration_seconds",
			Help:      "Time to scan one event over the lookback window",
			Buckets:   []float64{.01, .025, .05, .1, .25, .5, 1, 2.5, 5, 10, 30},
		}, []string{"chain", "event"}),
		checkpointsNormalized: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: Namespace,
			Subsystem: Schema,
			Name:      "checkpoints_normalized_total",
			Help:      "Checkpoints produced by the normalizer by chain and schema",
		}, []string{"chain", "schema"}),
		schemaFallbacks: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: Namespace,
			Subsystem: Schema,
			Name:      "fallbacks_total",
			Help:      "Times a schema variant produced nothing and the next one was tried",
		}, []string{"chain", "schema"}),
		schemaAmbiguous: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: Namespace,
			Subsystem: Schema,
			Name:      "ambiguous_total",
			Help:      "Windows in which more than one schema variant matched",
		}, []string{"chain"}),
		coverageChecks: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: Namespace,
			Subsystem: Coverage,
			Name:      "checks_total",
			Help:      "Coverage checks by chain, direction and verdict",
		}, []string{"chain", "direction", "result"}),
		coverageGap: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: Namespace,
			Subsystem: Coverage,
			Name:      "last_gap_blocks",
			Help:      "Gap reported by the most recent not-ready coverage check",
		}, []string{"chain", "direction"}),
		blocksBehind: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: Namespace,
			Subsystem: Status,
			Name:      "blocks_behind",
			Help:      "Source head minus latest checkpointed block",
		}, []string{"chain", "direction"}),
		connected: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: Namespace,
			Subsystem: Status,
			Name:      "connected",
			Help:      "1 if the last status check reached both layers, 0 otherwise",
		}, []string{"chain", "direction"}),
		enrichmentFailures: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: Namespace,
			Subsystem: Enrichment,
			Name:      "failures_total",
			Help:      "Checkpoint timestamp lookups that failed and were omitted",
		}),
		enrichmentCache: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: Namespace,
			Subsystem: Enrichment,
			Name:      "cache_lookups_total",
			Help:      "Timestamp cache lookups by result (hit/miss)",
		}, []string{"result"}),
		sinkWrites: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: Namespace,
			Subsystem: Watcher,
			Name:      "sink_writes_total",
			Help:      "Status snapshot writes by sink and status",
		}, []string{"sink", "status"}),
	}

	err := errors.Join(
		reg.Register(m.errors),
		reg.Register(m.rpcCalls),
		reg.Register(m.rpcRetries),
		reg.Register(m.rpcDuration),
		reg.Register(m.rpcInFlight),
		reg.Register(m.logsFetched),
		reg.Register(m.scanDuration),
		reg.Register(m.checkpointsNormalized),
		reg.Register(m.schemaFallbacks),
		reg.Register(m.schemaAmbiguous),
		reg.Register(m.coverageChecks),
		reg.Register(m.coverageGap),
		reg.Register(m.blocksBehind),
		reg.Register(m.connected),
		reg.Register(m.enrichmentFailures),
		reg.Register(m.enrichmentCache),
		reg.Register(m.sinkWrites),
	)
	if err != nil {
		return nil, err
	}

	return m, nil
}

// Error type constants for non-RPC errors (RPC errors are tracked via rpcCalls{status="error"}).
const (
	ErrTypeNormalize  = "normalize"
	ErrTypeLagTooHigh = "lag_too_high"
)

func status(err error) string {
	if err != nil {
		return StatusError
	}
	return StatusSuccess
}

// IncError increments the error counter for the given error type.
func (m *Metrics) IncError(errType string) {
	if m == nil {
		return
	}
	m.errors.WithLabelValues(errType).Inc()
}

// IncRPCInFlight increments the in-flight RPC gauge.
func (m *Metrics) IncRPCInFlight() {
	if m == nil {
		return
	}
	m.rpcInFlight.Inc()
}

// DecRPCInFlight decrements the in-flight RPC gauge.
func (m *Metrics) DecRPCInFlight() {
	if m == nil {
		return
	}
	m.rpcInFlight.Dec()
}

// RecordRPCCall records an RPC call outcome.
func (m *Metrics) RecordRPCCall(method string, err error, durationSeconds float64) {
	if m == nil {
		return
	}
	m.rpcCalls.WithLabelValues(method, status(err)).Inc()
	m.rpcDuration.WithLabelValues(method).Observe(durationSeconds)
}

// IncRPCRetry counts a retry of a failed RPC call.
func (m *Metrics) IncRPCRetry(method string) {
	if m == nil {
		return
	}
	m.rpcRetries.WithLabelValues(method).Inc()
}

// RecordLogScan records one bounded window scan.
func (m *Metrics) RecordLogScan(chain, event string, logCount int, durationSeconds float64) {
	if m == nil {
		return
	}
	m.scanDuration.WithLabelValues(chain, event).Observe(durationSeconds)
	if logCount > 0 {
		m.logsFetched.WithLabelValues(chain, event).Add(float64(logCount))
	}
}

// AddCheckpointsNormalized counts checkpoints produced under a schema.
func (m *Metrics) AddCheckpointsNormalized(chain, schema string, count int) {
	if m == nil || count <= 0 {
		return
	}
	m.checkpointsNormalized.WithLabelValues(chain, schema).Add(float64(count))
}

// IncSchemaFallback records that schema produced nothing and the next variant was tried.
func (m *Metrics) IncSchemaFallback(chain, schema string) {
	if m == nil {
		return
	}
	m.schemaFallbacks.WithLabelValues(chain, schema).Inc()
}

// IncSchemaAmbiguous records a window where several schema variants matched.
func (m *Metrics) IncSchemaAmbiguous(chain string) {
	if m == nil {
		return
	}
	m.schemaAmbiguous.WithLabelValues(chain).Inc()
}

// RecordCoverage records a coverage verdict. gap is only recorded for not-ready verdicts.
func (m *Metrics) RecordCoverage(chain, direction, result string, gap uint64) {
	if m == nil {
		return
	}
	m.coverageChecks.WithLabelValues(chain, direction, result).Inc()
	if result == CoverageNotReady {
		m.coverageGap.WithLabelValues(chain, direction).Set(float64(gap))
	}
}

// UpdateStatus records the outcome of a status check.
func (m *Metrics) UpdateStatus(chain, direction string, connected bool, blocksBehind *uint64) {
	if m == nil {
		return
	}
	v := 0.0
	if connected {
		v = 1
	}
	m.connected.WithLabelValues(chain, direction).Set(v)
	if blocksBehind != nil {
		m.blocksBehind.WithLabelValues(chain, direction).Set(float64(*blocksBehind))
	}
}

// IncEnrichmentFailure counts a timestamp lookup that was dropped.
func (m *Metrics) IncEnrichmentFailure() {
	if m == nil {
		return
	}
	m.enrichmentFailures.Inc()
}

// RecordEnrichmentCache records a timestamp cache hit or miss.
func (m *Metrics) RecordEnrichmentCache(hit bool) {
	if m == nil {
		return
	}
	result := "miss"
	if hit {
		result = "hit"
	}
	m.enrichmentCache.WithLabelValues(result).Inc()
}

// RecordSinkWrite records a status snapshot write to a sink.
func (m *Metrics) RecordSinkWrite(sink string, err error) {
	if m == nil {
		return
	}
	m.sinkWrites.WithLabelValues(sink, status(err)).Inc()
}
