package metrics

import (
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

type RuntimeMetrics struct {
	dispatch   *prometheus.CounterVec
	hooks      *prometheus.HistogramVec
	height     prometheus.Gauge
	blockCalls prometheus.Histogram
	poolSize   prometheus.Gauge
}

var (
	runtimeOnce     sync.Once
	runtimeRegistry *RuntimeMetrics
)

// Runtime returns the registry for extrinsic dispatch and block production.
func Runtime() *RuntimeMetrics {
	runtimeOnce.Do(func() {
		runtimeRegistry = &RuntimeMetrics{
			dispatch: prometheus.NewCounterVec(prometheus.CounterOpts{
				Namespace: "dust",
				Subsystem: "runtime",
				Name:      "dispatch_total",
				Help:      "Dispatched extrinsics by call name and outcome.",
			}, []string{"call", "outcome"}),
			hooks: prometheus.NewHistogramVec(prometheus.HistogramOpts{
				Namespace: "dust",
				Subsystem: "runtime",
				Name:      "hook_duration_seconds",
				Help:      "Duration of block hooks.",
				Buckets:   prometheus.DefBuckets,
			}, []string{"hook"}),
			height: prometheus.NewGauge(prometheus.GaugeOpts{
				Namespace: "dust",
				Subsystem: "chain",
				Name:      "height",
				Help:      "Height of the last committed block.",
			}),
			blockCalls: prometheus.NewHistogram(prometheus.HistogramOpts{
				Namespace: "dust",
				Subsystem: "chain",
				Name:      "block_calls",
				Help:      "Number of calls included per block.",
				Buckets:   []float64{0, 1, 5, 10, 50, 100, 500},
			}),
			poolSize: prometheus.NewGauge(prometheus.GaugeOpts{
				Namespace: "dust",
				Subsystem: "chain",
				Name:      "pool_size",
				Help:      "Calls waiting in the transaction pool.",
			}),
		}
		prometheus.MustRegister(
			runtimeRegistry.dispatch,
			runtimeRegistry.hooks,
			runtimeRegistry.height,
			runtimeRegistry.blockCalls,
			runtimeRegistry.poolSize,
		)
	})
	return runtimeRegistry
}

func (m *RuntimeMetrics) ObserveDispatch(call string, err error) {
	if m == nil {
		return
	}
	outcome := "ok"
	if err != nil {
		outcome = "error"
	}
	m.dispatch.WithLabelValues(call, outcome).Inc()
}

func (m *RuntimeMetrics) ObserveHook(hook string, d time.Duration) {
	if m == nil {
		return
	}
	m.hooks.WithLabelValues(hook).Observe(d.Seconds())
}

func (m *RuntimeMetrics) ObserveBlock(height uint64, calls int) {
	if m == nil {
		return
	}
	m.height.Set(float64(height))
	m.blockCalls.Observe(float64(calls))
}

func (m *RuntimeMetrics) SetPoolSize(n int) {
	if m == nil {
		return
	}
	m.poolSize.Set(float64(n))
}
