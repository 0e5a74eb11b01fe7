// Package metrics exposes Prometheus counters for ledger and store activity.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Outcome labels for ledger operations.
const (
	OutcomeOK       = "ok"
	OutcomeRejected = "rejected"
	OutcomeError    = "error"
)

// Ledger holds the allocation ledger metrics. A nil *Ledger is valid and
// records nothing.
type Ledger struct {
	operations *prometheus.CounterVec
	skeins     *prometheus.CounterVec
	duration   *prometheus.HistogramVec
}

// NewLedger creates the ledger metrics and registers them with reg.
func NewLedger(reg prometheus.Registerer) (*Ledger, error) {
	m := &Ledger{
		operations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "stash",
			Subsystem: "ledger",
			Name:      "operations_total",
			Help:      "Ledger operations by operation and outcome.",
		}, []string{"op", "outcome"}),
		skeins: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "stash",
			Subsystem: "ledger",
			Name:      "skeins_total",
			Help:      "Skeins moved by accepted allocations and stock adjustments.",
		}, []string{"op"}),
		duration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "stash",
			Subsystem: "ledger",
			Name:      "operation_duration_seconds",
			Help:      "Ledger operation latency.",
			Buckets:   prometheus.ExponentialBuckets(0.0005, 2, 12),
		}, []string{"op"}),
	}
	for _, c := range []prometheus.Collector{m.operations, m.skeins, m.duration} {
		if err := reg.Register(c); err != nil {
			return nil, err
		}
	}
	return m, nil
}

// Observe records one finished operation.
func (m *Ledger) Observe(op, outcome string, started time.Time) {
	if m == nil {
		return
	}
	m.operations.WithLabelValues(op, outcome).Inc()
	m.duration.WithLabelValues(op).Observe(time.Since(started).Seconds())
}

// AddSkeins records skeins allocated or added to stock by op.
func (m *Ledger) AddSkeins(op string, n int) {
	if m == nil || n <= 0 {
		return
	}
	m.skeins.WithLabelValues(op).Add(float64(n))
}
