package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

// LedgerMetrics counts stock movements written to, or rejected by, the ledger.
type LedgerMetrics struct {
	movements *prometheus.CounterVec
	rejected  *prometheus.CounterVec
	groupSize *prometheus.HistogramVec
}

// NewLedgerMetrics registers the ledger metrics on the provided registerer.
func NewLedgerMetrics(reg prometheus.Registerer) *LedgerMetrics {
	if reg == nil {
		return &LedgerMetrics{}
	}
	movements := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "ledger_movements_total",
		Help: "Inventory transactions recorded, by transaction type.",
	}, []string{"type"})
	rejected := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "ledger_movements_rejected_total",
		Help: "Inventory movements rejected before any write, by reason.",
	}, []string{"reason"})
	groupSize := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "ledger_group_lines",
		Help:    "Number of lines per grouped operation.",
		Buckets: []float64{1, 2, 5, 10, 25, 50, 100, 250},
	}, []string{"kind"})
	reg.MustRegister(movements, rejected, groupSize)
	return &LedgerMetrics{
		movements: movements,
		rejected:  rejected,
		groupSize: groupSize,
	}
}

// IncMovement increments the movement counter for the transaction type.
func (m *LedgerMetrics) IncMovement(txType string) {
	if m == nil || m.movements == nil {
		return
	}
	m.movements.WithLabelValues(normalizeLabel(txType)).Inc()
}

// IncRejected increments the rejection counter for the reason.
func (m *LedgerMetrics) IncRejected(reason string) {
	if m == nil || m.rejected == nil {
		return
	}
	m.rejected.WithLabelValues(normalizeLabel(reason)).Inc()
}

// ObserveGroup records how many lines a committed group carried.
func (m *LedgerMetrics) ObserveGroup(kind string, lines int) {
	if m == nil || m.groupSize == nil {
		return
	}
	m.groupSize.WithLabelValues(normalizeLabel(kind)).Observe(float64(lines))
}

func normalizeLabel(value string) string {
	if value == "" {
		return "unknown"
	}
	return value
}
