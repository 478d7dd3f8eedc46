package metrics

import (
	"errors"

	"github.com/prometheus/client_golang/prometheus"
)

const (
	Namespace = "indexer"

	// Status label values for success/error metrics
	StatusSuccess = "success"
	StatusError   = "error"
)

// Skip reason label values.
const (
	SkipReasonUnproduced       = "unproduced"
	SkipReasonRetriesExhausted = "retries_exhausted"
)

// Error type constants for non-RPC errors (RPC errors are tracked via rpcCalls{status="error"}).
const (
	ErrTypeStore   = "store"
	ErrTypePublish = "publish"
)

// Labels holds constant labels applied to all metrics.
// These are useful for distinguishing metrics from multiple indexer instances.
type Labels struct {
	Network     string // Ledger network label (e.g., "mainnet-beta", "devnet")
	Environment string // Deployment environment (e.g., "production", "staging")
	Region      string // Cloud region (e.g., "us-east-1", "eu-west-1")
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
	return labels
}

type Metrics struct {
	// Ingestion progress
	watermark       prometheus.Gauge
	slotsProcessed  prometheus.Counter
	slotsSkipped    *prometheus.CounterVec
	recordsUpserted prometheus.Counter
	dataConflicts   prometheus.Counter
	errors          *prometheus.CounterVec

	// RPC metrics
	rpcCalls    *prometheus.CounterVec
	rpcDuration *prometheus.HistogramVec
	rpcInFlight prometheus.Gauge

	// Processing latency
	slotProcessingDuration prometheus.Histogram

	// Query API metrics
	queryRequests *prometheus.CounterVec
	queryDuration prometheus.Histogram

	// Progress publishing
	progressEvents *prometheus.CounterVec
}

// New creates a new Metrics instance and registers all metrics with the provided registerer.
// Returns an error if any metric registration fails.
// For metrics with constant labels (e.g., network), use NewWithLabels instead.
func New(reg prometheus.Registerer) (*Metrics, error) {
	return NewWithLabels(reg, Labels{})
}

// NewWithLabels creates a new Metrics instance with constant labels applied to all metrics.
// This is useful when running multiple indexer instances and needing to filter by network.
func NewWithLabels(reg prometheus.Registerer, labels Labels) (*Metrics, error) {
	promLabels := labels.toPrometheusLabels()
	if len(promLabels) > 0 {
		reg = prometheus.WrapRegistererWith(promLabels, reg)
	}

	return newMetrics(reg)
}

// newMetrics is the internal constructor that creates and registers all metrics.
func newMetrics(reg prometheus.Registerer) (*Metrics, error) {
	m := &Metrics{
		watermark: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: Namespace,
			Name:      "watermark_slot",
			Help:      "Highest fully processed and persisted slot",
		}),
		slotsProcessed: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: Namespace,
			Name:      "slots_processed_total",
			Help:      "Total number of slots fetched, parsed and persisted",
		}),
		slotsSkipped: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: Namespace,
			Name:      "slots_skipped_total",
			Help:      "Total slots skipped by reason",
		}, []string{"reason"}),
		recordsUpserted: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: Namespace,
			Name:      "records_upserted_total",
			Help:      "Total transfer records written to the store",
		}),
		dataConflicts: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: Namespace,
			Name:      "data_conflicts_total",
			Help:      "Total upserts rejected because they would overwrite stored values",
		}),
		errors: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: Namespace,
			Name:      "errors_total",
			Help:      "Total errors by type",
		}, []string{"type"}),
		rpcCalls: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: Namespace,
			Subsystem: "rpc",
			Name:      "calls_total",
			Help:      "Total RPC calls by method and status",
		}, []string{"method", "status"}),
		rpcDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: Namespace,
			Subsystem: "rpc",
			Name:      "duration_seconds",
			Help:      "RPC call duration in seconds",
			// Buckets cover typical RPC latencies: 1ms, 5ms, 10ms, 25ms, 50ms,
			// 100ms, 250ms, 500ms, 1s, 2.5s, 5s, 10s
			Buckets: []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5, 10},
		}, []string{"method"}),
		rpcInFlight: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: Namespace,
			Subsystem: "rpc",
			Name:      "in_flight",
			Help:      "Number of RPC calls currently in progress",
		}),
		slotProcessingDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: Namespace,
			Name:      "slot_processing_duration_seconds",
			Help:      "Time to process a single slot end-to-end",
			Buckets:   []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5, 10},
		}),
		queryRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: Namespace,
			Subsystem: "query",
			Name:      "requests_total",
			Help:      "Total query API requests by status",
		}, []string{"status"}),
		queryDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: Namespace,
			Subsystem: "query",
			Name:      "duration_seconds",
			Help:      "Query API request duration in seconds",
			Buckets:   []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5},
		}),
		progressEvents: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: Namespace,
			Subsystem: "progress",
			Name:      "events_total",
			Help:      "Total progress events published by status",
		}, []string{"status"}),
	}

	err := errors.Join(
		reg.Register(m.watermark),
		reg.Register(m.slotsProcessed),
		reg.Register(m.slotsSkipped),
		reg.Register(m.recordsUpserted),
		reg.Register(m.dataConflicts),
		reg.Register(m.errors),
		reg.Register(m.rpcCalls),
		reg.Register(m.rpcDuration),
		reg.Register(m.rpcInFlight),
		reg.Register(m.slotProcessingDuration),
		reg.Register(m.queryRequests),
		reg.Register(m.queryDuration),
		reg.Register(m.progressEvents),
	)
	if err != nil {
		return nil, err
	}

	return m, nil
}

// IncError increments the error counter for the given error type.
func (m *Metrics) IncError(errType string) {
	if m == nil {
		return
	}
	m.errors.WithLabelValues(errType).Inc()
}

// RecordSlotProcessed records a fully persisted slot.
func (m *Metrics) RecordSlotProcessed(slot uint64, recordCount int, durationSeconds float64) {
	if m == nil {
		return
	}
	m.slotsProcessed.Inc()
	m.watermark.Set(float64(slot))
	m.recordsUpserted.Add(float64(recordCount))
	m.slotProcessingDuration.Observe(durationSeconds)
}

// RecordSlotSkipped records a slot that was passed over.
func (m *Metrics) RecordSlotSkipped(reason string) {
	if m == nil {
		return
	}
	m.slotsSkipped.WithLabelValues(reason).Inc()
}

// IncDataConflict records an upsert rejected due to a field conflict.
func (m *Metrics) IncDataConflict() {
	if m == nil {
		return
	}
	m.dataConflicts.Inc()
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
	status := StatusSuccess
	if err != nil {
		status = StatusError
	}
	m.rpcCalls.WithLabelValues(method, status).Inc()
	m.rpcDuration.WithLabelValues(method).Observe(durationSeconds)
}

// RecordQuery records a query API request outcome.
func (m *Metrics) RecordQuery(err error, durationSeconds float64) {
	if m == nil {
		return
	}
	status := StatusSuccess
	if err != nil {
		status = StatusError
	}
	m.queryRequests.WithLabelValues(status).Inc()
	m.queryDuration.Observe(durationSeconds)
}

// RecordProgressEvent records a progress publish attempt.
func (m *Metrics) RecordProgressEvent(err error) {
	if m == nil {
		return
	}
	status := StatusSuccess
	if err != nil {
		status = StatusError
	}
	m.progressEvents.WithLabelValues(status).Inc()
}
