// Package observability provides Prometheus metrics for monitoring.
package observability

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"solana-token-sale/internal/processor"
	"solana-token-sale/internal/programerr"
)

// Metrics holds all Prometheus metrics for the application.
type Metrics struct {
	// Processor metrics
	InstructionsProcessed *prometheus.CounterVec
	InstructionErrors     *prometheus.CounterVec
	UnitsTransferred      *prometheus.CounterVec

	// Ledger metrics
	ExecuteDuration prometheus.Histogram
	Sequence        prometheus.Gauge

	// Chain metrics
	RPCCallLatency  *prometheus.HistogramVec
	AccountUpdates  *prometheus.CounterVec
	HighestSlotSeen prometheus.Gauge

	// Database metrics
	DBQueryDuration *prometheus.HistogramVec
	DBQueryErrors   *prometheus.CounterVec
}

var _ processor.Observer = (*Metrics)(nil)

// NewMetrics creates a new Metrics instance registered with reg.
// A nil reg uses the default Prometheus registerer.
func NewMetrics(namespace string, reg prometheus.Registerer) *Metrics {
	if namespace == "" {
		namespace = "solana_token_sale"
	}
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	factory := promauto.With(reg)

	return &Metrics{
		InstructionsProcessed: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "processor",
			Name:      "instructions_processed_total",
			Help:      "Total number of instructions processed by operation",
		}, []string{"op"}),
		InstructionErrors: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "processor",
			Name:      "instruction_errors_total",
			Help:      "Total number of rejected instructions by operation and error",
		}, []string{"op", "code"}),
		UnitsTransferred: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "processor",
			Name:      "units_transferred_total",
			Help:      "Token units moved by successful instructions",
		}, []string{"op"}),

		ExecuteDuration: factory.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "ledger",
			Name:      "execute_duration_seconds",
			Help:      "Transaction execution latency in seconds",
			Buckets:   prometheus.DefBuckets,
		}),
		Sequence: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "ledger",
			Name:      "sequence",
			Help:      "Sequence number of the last committed transaction",
		}),

		RPCCallLatency: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "solana",
			Name:      "rpc_call_latency_seconds",
			Help:      "Solana RPC call latency in seconds",
			Buckets:   prometheus.DefBuckets,
		}, []string{"method"}),
		AccountUpdates: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "solana",
			Name:      "account_updates_total",
			Help:      "Program account updates received by record kind",
		}, []string{"kind"}),
		HighestSlotSeen: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "solana",
			Name:      "highest_slot_seen",
			Help:      "Highest Solana slot number seen",
		}),

		DBQueryDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "database",
			Name:      "query_duration_seconds",
			Help:      "Database query duration in seconds",
			Buckets:   prometheus.DefBuckets,
		}, []string{"database", "operation"}),
		DBQueryErrors: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "database",
			Name:      "query_errors_total",
			Help:      "Total number of database query errors",
		}, []string{"database", "operation"}),
	}
}

// Observe records the outcome of one processed instruction.
func (m *Metrics) Observe(op string, err error, units uint64) {
	m.InstructionsProcessed.WithLabelValues(op).Inc()
	if err != nil {
		m.InstructionErrors.WithLabelValues(op, programerr.Name(err)).Inc()
		return
	}
	if units > 0 {
		m.UnitsTransferred.WithLabelValues(op).Add(float64(units))
	}
}

// RecordExecute records the latency of a ledger transaction. seq is the
// committed sequence number, or 0 when the transaction was rejected.
func (m *Metrics) RecordExecute(d time.Duration, seq uint64) {
	m.ExecuteDuration.Observe(d.Seconds())
	if seq > 0 {
		m.Sequence.Set(float64(seq))
	}
}

// RecordRPCLatency records RPC call latency.
func (m *Metrics) RecordRPCLatency(method string, seconds float64) {
	m.RPCCallLatency.WithLabelValues(method).Observe(seconds)
}

// RecordAccountUpdate counts one program account update at slot.
func (m *Metrics) RecordAccountUpdate(kind string, slot uint64) {
	m.AccountUpdates.WithLabelValues(kind).Inc()
	m.HighestSlotSeen.Set(float64(slot))
}

// RecordDBQuery records database query metrics.
func (m *Metrics) RecordDBQuery(database, operation string, seconds float64, err error) {
	m.DBQueryDuration.WithLabelValues(database, operation).Observe(seconds)
	if err != nil {
		m.DBQueryErrors.WithLabelValues(database, operation).Inc()
	}
}

// Handler returns an HTTP handler for the /metrics endpoint of g.
// A nil g serves the default Prometheus gatherer.
func Handler(g prometheus.Gatherer) http.Handler {
	if g == nil {
		return promhttp.Handler()
	}
	return promhttp.HandlerFor(g, promhttp.HandlerOpts{})
}
