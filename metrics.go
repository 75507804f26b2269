package randomx

import (
	"sync"
	"sync/atomic"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	allocationsTotal   *prometheus.CounterVec
	liveHandles        *prometheus.GaugeVec
	hashesTotal        *prometheus.CounterVec
	datasetInitSeconds prometheus.Histogram

	metricsOnce       sync.Once
	metricsRegistered atomic.Bool
)

// InitMetrics registers the package collectors with the default Prometheus
// registerer. Until it is called, recording is a no-op; handles allocated
// before registration are left out of randomx_live_handles for their whole
// life.
func InitMetrics() {
	metricsOnce.Do(func() {
		allocationsTotal = promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "randomx_allocations_total",
				Help: "Engine allocation calls by resource kind and result",
			},
			[]string{"kind", "result"},
		)
		liveHandles = promauto.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "randomx_live_handles",
				Help: "Engine handles allocated and not yet released",
			},
			[]string{"kind"},
		)
		hashesTotal = promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "randomx_hashes_total",
				Help: "Hashes returned to callers by VM mode",
			},
			[]string{"mode"},
		)
		datasetInitSeconds = promauto.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "randomx_dataset_init_seconds",
				Help:    "Duration of full dataset initialization",
				Buckets: []float64{0.01, 0.1, 1, 5, 15, 30, 60, 120},
			},
		)
		metricsRegistered.Store(true)
	})
}

// recordAlloc reports whether the new handle was added to liveHandles. The
// result is passed back to recordRelease.
func recordAlloc(kind string, ok bool) bool {
	if !metricsRegistered.Load() {
		return false
	}
	if !ok {
		allocationsTotal.WithLabelValues(kind, "failed").Inc()
		return false
	}
	allocationsTotal.WithLabelValues(kind, "ok").Inc()
	liveHandles.WithLabelValues(kind).Inc()
	return true
}

func recordRelease(kind string, counted bool) {
	if counted {
		liveHandles.WithLabelValues(kind).Dec()
	}
}

func recordHashes(m Mode, n int) {
	if metricsRegistered.Load() {
		hashesTotal.WithLabelValues(m.String()).Add(float64(n))
	}
}

func recordDatasetInit(d time.Duration) {
	if metricsRegistered.Load() {
		datasetInitSeconds.Observe(d.Seconds())
	}
}
