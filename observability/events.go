package observability

import (
	"strings"
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

type eventMetrics struct {
	transfers *prometheus.CounterVec
}

var (
	eventMetricsOnce sync.Once
	eventRegistry    *eventMetrics
)

// Events returns the metrics registry tracking balance movements.
func Events() *eventMetrics {
	eventMetricsOnce.Do(func() {
		eventRegistry = &eventMetrics{
			transfers: prometheus.NewCounterVec(prometheus.CounterOpts{
				Namespace: "dust",
				Subsystem: "events",
				Name:      "balance_movements_total",
				Help:      "Count of bank events segmented by kind (transfer, mint, burn, hold, release).",
			}, []string{"kind"}),
		}
		prometheus.MustRegister(eventRegistry.transfers)
	})
	return eventRegistry
}

// RecordBankEvent increments the counter for a "bank.<kind>" event type.
func (m *eventMetrics) RecordBankEvent(eventType string) {
	if m == nil {
		return
	}
	kind := strings.TrimPrefix(strings.TrimSpace(eventType), "bank.")
	if kind == "" {
		kind = "unknown"
	}
	m.transfers.WithLabelValues(kind).Inc()
}
