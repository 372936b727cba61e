package observability

import (
	"fmt"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

type moduleMetrics struct {
	requests  *prometheus.CounterVec
	errors    *prometheus.CounterVec
	latency   *prometheus.HistogramVec
	throttles *prometheus.CounterVec
}

var (
	moduleMetricsOnce sync.Once
	moduleRegistry    *moduleMetrics

	verifierOnce     sync.Once
	verifierRegistry *VerifierMetrics
)

// ModuleMetrics returns the lazily-initialised module metrics registry used to
// record RPC module activity.
func ModuleMetrics() *moduleMetrics {
	moduleMetricsOnce.Do(func() {
		moduleRegistry = &moduleMetrics{
			requests: prometheus.NewCounterVec(prometheus.CounterOpts{
				Namespace: "dust",
				Subsystem: "module",
				Name:      "requests_total",
				Help:      "Total JSON-RPC module requests segmented by module and method.",
			}, []string{"module", "method", "outcome"}),
			errors: prometheus.NewCounterVec(prometheus.CounterOpts{
				Namespace: "dust",
				Subsystem: "module",
				Name:      "errors_total",
				Help:      "Total JSON-RPC module errors segmented by module, method, and status code.",
			}, []string{"module", "method", "status"}),
			latency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
				Namespace: "dust",
				Subsystem: "module",
				Name:      "request_duration_seconds",
				Help:      "Latency distribution for JSON-RPC module handlers.",
				Buckets:   prometheus.DefBuckets,
			}, []string{"module", "method"}),
			throttles: prometheus.NewCounterVec(prometheus.CounterOpts{
				Namespace: "dust",
				Subsystem: "module",
				Name:      "throttles_total",
				Help:      "Count of module requests rejected due to throttling policies.",
			}, []string{"module", "reason"}),
		}
		prometheus.MustRegister(
			moduleRegistry.requests,
			moduleRegistry.errors,
			moduleRegistry.latency,
			moduleRegistry.throttles,
		)
	})
	return moduleRegistry
}

// Observe records the outcome of a module request. The status code should be
// the HTTP status that was ultimately written to the response writer.
func (m *moduleMetrics) Observe(module, method string, status int, duration time.Duration) {
	if m == nil {
		return
	}
	if module == "" {
		module = "unknown"
	}
	if method == "" {
		method = "unknown"
	}
	outcome := "success"
	if status >= 400 {
		outcome = "error"
	}
	m.requests.WithLabelValues(module, method, outcome).Inc()
	if status >= 400 {
		m.errors.WithLabelValues(module, method, fmt.Sprintf("%d", status)).Inc()
	}
	m.latency.WithLabelValues(module, method).Observe(duration.Seconds())
}

// RecordThrottle increments the throttle counter for the supplied module and
// reason. Reasons should be stable strings such as "rate_limit" or
// "quota_exceeded" so dashboards and alerts remain consistent.
func (m *moduleMetrics) RecordThrottle(module, reason string) {
	if m == nil {
		return
	}
	if module == "" {
		module = "unknown"
	}
	if reason == "" {
		reason = "unspecified"
	}
	m.throttles.WithLabelValues(module, reason).Inc()
}

// VerifierMetrics captures the off-chain verification worker activity.
type VerifierMetrics struct {
	checks      *prometheus.CounterVec
	submissions *prometheus.CounterVec
	latency     prometheus.Histogram
	backlog     prometheus.Gauge
}

// Verifier returns the singleton metrics registry for dust-verifierd.
func Verifier() *VerifierMetrics {
	verifierOnce.Do(func() {
		verifierRegistry = &VerifierMetrics{
			checks: prometheus.NewCounterVec(prometheus.CounterOpts{
				Namespace: "dust",
				Subsystem: "verifier",
				Name:      "checks_total",
				Help:      "TRON transfer checks segmented by verdict.",
			}, []string{"verdict"}),
			submissions: prometheus.NewCounterVec(prometheus.CounterOpts{
				Namespace: "dust",
				Subsystem: "verifier",
				Name:      "submissions_total",
				Help:      "Verification submissions to the node segmented by outcome.",
			}, []string{"outcome"}),
			latency: prometheus.NewHistogram(prometheus.HistogramOpts{
				Namespace: "dust",
				Subsystem: "verifier",
				Name:      "tron_request_duration_seconds",
				Help:      "Latency of TRON API lookups.",
				Buckets:   prometheus.DefBuckets,
			}),
			backlog: prometheus.NewGauge(prometheus.GaugeOpts{
				Namespace: "dust",
				Subsystem: "verifier",
				Name:      "pending_swaps",
				Help:      "Swaps awaiting verification at the last poll.",
			}),
		}
		prometheus.MustRegister(
			verifierRegistry.checks,
			verifierRegistry.submissions,
			verifierRegistry.latency,
			verifierRegistry.backlog,
		)
	})
	return verifierRegistry
}

// RecordCheck counts a verdict such as "confirmed", "mismatch" or "not_found".
func (m *VerifierMetrics) RecordCheck(verdict string) {
	if m == nil {
		return
	}
	m.checks.WithLabelValues(verdict).Inc()
}

func (m *VerifierMetrics) RecordSubmission(err error) {
	if m == nil {
		return
	}
	outcome := "accepted"
	if err != nil {
		outcome = "rejected"
	}
	m.submissions.WithLabelValues(outcome).Inc()
}

func (m *VerifierMetrics) ObserveLookup(d time.Duration) {
	if m == nil {
		return
	}
	m.latency.Observe(d.Seconds())
}

func (m *VerifierMetrics) SetBacklog(n int) {
	if m == nil {
		return
	}
	m.backlog.Set(float64(n))
}
