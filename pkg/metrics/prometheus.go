package metrics

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// MetricsCollector owns a private registry. A nil collector records nothing.
type MetricsCollector struct {
	registry        *prometheus.Registry
	ledgerCalls     *prometheus.CounterVec
	ledgerDuration  *prometheus.HistogramVec
	borrowDecisions *prometheus.CounterVec
	recorded        *prometheus.CounterVec
	unconfirmed     *prometheus.CounterVec
	logger          *slog.Logger
}

func NewMetricsCollector(logger *slog.Logger) *MetricsCollector {
	if logger == nil {
		logger = slog.Default()
	}

	registry := prometheus.NewRegistry()
	f := promauto.With(registry)

	return &MetricsCollector{
		registry: registry,
		ledgerCalls: f.NewCounterVec(prometheus.CounterOpts{
			Name: "faucet_ledger_calls_total",
			Help: "Ledger gateway calls by operation and outcome",
		}, []string{"op", "outcome"}),
		ledgerDuration: f.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "faucet_ledger_call_duration_seconds",
			Help:    "Time spent in ledger gateway calls, including confirmation waits",
			Buckets: []float64{0.05, 0.1, 0.5, 1, 2.5, 5, 10, 30, 60, 120},
		}, []string{"op"}),
		borrowDecisions: f.NewCounterVec(prometheus.CounterOpts{
			Name: "faucet_borrow_decisions_total",
			Help: "Eligibility decisions by result",
		}, []string{"result"}),
		recorded: f.NewCounterVec(prometheus.CounterOpts{
			Name: "faucet_transactions_recorded_total",
			Help: "Confirmed transactions written to the transaction ledger",
		}, []string{"kind"}),
		unconfirmed: f.NewCounterVec(prometheus.CounterOpts{
			Name: "faucet_unconfirmed_submissions_total",
			Help: "Submissions flagged for reconciliation after a confirmation timeout",
		}, []string{"kind"}),
		logger: logger,
	}
}

func (m *MetricsCollector) RecordLedgerCall(op, outcome string, d time.Duration) {
	if m == nil {
		return
	}
	m.ledgerCalls.WithLabelValues(op, outcome).Inc()
	m.ledgerDuration.WithLabelValues(op).Observe(d.Seconds())
}

// RecordBorrowDecision takes "eligible" or the denial reason.
func (m *MetricsCollector) RecordBorrowDecision(result string) {
	if m == nil {
		return
	}
	m.borrowDecisions.WithLabelValues(result).Inc()
}

func (m *MetricsCollector) RecordTransaction(kind string) {
	if m == nil {
		return
	}
	m.recorded.WithLabelValues(kind).Inc()
}

func (m *MetricsCollector) RecordUnconfirmed(kind string) {
	if m == nil {
		return
	}
	m.unconfirmed.WithLabelValues(kind).Inc()
}

func (m *MetricsCollector) Registry() *prometheus.Registry { return m.registry }

func (m *MetricsCollector) GetHandler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}
