package metrics

import (
	"strings"
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

// ModuleMetrics counts events and per-item hook failures of one runtime
// module.
type ModuleMetrics struct {
	events   *prometheus.CounterVec
	failures *prometheus.CounterVec
}

type moduleRegistry struct {
	once sync.Once
	reg  *ModuleMetrics
}

var (
	swapMetrics        moduleRegistry
	evidenceMetrics    moduleRegistry
	arbitrationMetrics moduleRegistry
	affiliateMetrics   moduleRegistry
	governanceMetrics  moduleRegistry
	pricingMetrics     moduleRegistry
)

func (r *moduleRegistry) get(module string) *ModuleMetrics {
	r.once.Do(func() {
		r.reg = &ModuleMetrics{
			events: prometheus.NewCounterVec(prometheus.CounterOpts{
				Namespace: "dust",
				Subsystem: module,
				Name:      "events_total",
				Help:      "Count of committed " + module + " events by type.",
			}, []string{"type"}),
			failures: prometheus.NewCounterVec(prometheus.CounterOpts{
				Namespace: "dust",
				Subsystem: module,
				Name:      "hook_failures_total",
				Help:      "Count of " + module + " items skipped by block hooks after an error.",
			}, []string{"hook"}),
		}
		prometheus.MustRegister(r.reg.events, r.reg.failures)
	})
	return r.reg
}

func Swap() *ModuleMetrics { return swapMetrics.get("swap") }
func Evidence() *ModuleMetrics { return evidenceMetrics.get("evidence") }
func Arbitration() *ModuleMetrics { return arbitrationMetrics.get("arbitration") }
func Affiliate() *ModuleMetrics { return affiliateMetrics.get("affiliate") }
func Governance() *ModuleMetrics { return governanceMetrics.get("governance") }
func Pricing() *ModuleMetrics { return pricingMetrics.get("pricing") }

// ForEvent resolves the module registry from the prefix of an event type
// such as "swap.completed". Unknown prefixes return nil.
func ForEvent(eventType string) *ModuleMetrics {
	module, _, _ := strings.Cut(eventType, ".")
	switch module {
	case "swap":
		return Swap()
	case "evidence":
		return Evidence()
	case "arbitration":
		return Arbitration()
	case "affiliate":
		return Affiliate()
	case "gov":
		return Governance()
	case "pricing":
		return Pricing()
	default:
		return nil
	}
}

// RecordEvent increments the counter for the event type.
func (m *ModuleMetrics) RecordEvent(eventType string) {
	if m == nil {
		return
	}
	_, kind, found := strings.Cut(eventType, ".")
	if !found || kind == "" {
		kind = "unknown"
	}
	m.events.WithLabelValues(kind).Inc()
}

// RecordHookFailure counts an item a hook skipped after an error.
func (m *ModuleMetrics) RecordHookFailure(hook string) {
	if m == nil {
		return
	}
	if hook == "" {
		hook = "unknown"
	}
	m.failures.WithLabelValues(hook).Inc()
}
