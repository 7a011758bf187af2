package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

// InventoryMetrics counts ledger activity and rejected outflows.
type InventoryMetrics struct {
	entries    *prometheus.CounterVec
	rejections *prometheus.CounterVec
	lowStock   prometheus.Counter
}

// NewInventoryMetrics registers the inventory collectors on the provided registerer.
func NewInventoryMetrics(reg prometheus.Registerer) *InventoryMetrics {
	if reg == nil {
		return &InventoryMetrics{}
	}
	entries := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "inventory_ledger_entries_total",
		Help: "Ledger entries posted, by source type.",
	}, []string{"source_type"})
	rejections := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "inventory_insufficient_stock_total",
		Help: "Outflows rejected because stock was insufficient, by source type.",
	}, []string{"source_type"})
	lowStock := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "inventory_low_stock_crossings_total",
		Help: "Stock rows that dropped to or below their reorder level.",
	})
	reg.MustRegister(entries, rejections, lowStock)
	return &InventoryMetrics{
		entries:    entries,
		rejections: rejections,
		lowStock:   lowStock,
	}
}

// IncEntry counts one posted ledger entry.
func (m *InventoryMetrics) IncEntry(sourceType string) {
	if m == nil || m.entries == nil {
		return
	}
	m.entries.WithLabelValues(normalizeLabel(sourceType)).Inc()
}

// IncInsufficient counts one rejected outflow.
func (m *InventoryMetrics) IncInsufficient(sourceType string) {
	if m == nil || m.rejections == nil {
		return
	}
	m.rejections.WithLabelValues(normalizeLabel(sourceType)).Inc()
}

// IncLowStock counts one reorder-level crossing.
func (m *InventoryMetrics) IncLowStock() {
	if m == nil || m.lowStock == nil {
		return
	}
	m.lowStock.Inc()
}
