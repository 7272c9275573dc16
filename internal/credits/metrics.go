package credits

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics exposes ledger counters. A nil *Metrics records nothing.
type Metrics struct {
	transactions *prometheus.CounterVec
	amounts      *prometheus.CounterVec
	duration     *prometheus.HistogramVec
}

// NewMetrics registers the ledger collectors on reg.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		transactions: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "studio_credit_transactions_total",
			Help: "Credit ledger write attempts by type and outcome",
		}, []string{"type", "outcome"}),
		amounts: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "studio_credit_amount_total",
			Help: "Absolute credits moved by committed transactions",
		}, []string{"type"}),
		duration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "studio_credit_record_duration_seconds",
			Help:    "Duration of ledger write units",
			Buckets: prometheus.DefBuckets,
		}, []string{"type"}),
	}
}

func (m *Metrics) observe(entryType, outcome string, amount int64, elapsed time.Duration) {
	if m == nil {
		return
	}
	m.transactions.WithLabelValues(entryType, outcome).Inc()
	m.duration.WithLabelValues(entryType).Observe(elapsed.Seconds())
	if outcome == outcomeCommitted {
		if amount < 0 {
			amount = -amount
		}
		m.amounts.WithLabelValues(entryType).Add(float64(amount))
	}
}

// outcome labels.
const (
	outcomeCommitted = "committed"
	outcomeReplayed  = "replayed"
	outcomeSkipped   = "skipped"
	outcomeRejected  = "rejected"
	outcomeFailed    = "failed"
)

func outcomeOf(err error) string {
	if err == nil {
		return outcomeCommitted
	}
	if IsRetryable(err) {
		return outcomeFailed
	}
	return outcomeRejected
}
