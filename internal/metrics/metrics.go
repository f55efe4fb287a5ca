package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	invocationsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "clowdy_invocations_total",
			Help: "Function invocations by final status.",
		},
		[]string{"status"},
	)

	invocationDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "clowdy_invocation_duration_seconds",
			Help:    "End-to-end invocation latency.",
			Buckets: prometheus.ExponentialBuckets(0.05, 2, 12),
		},
	)

	coldStartsTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "clowdy_cold_starts_total",
			Help: "Invocations that had to create a sandbox.",
		},
	)

	imageBuildsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "clowdy_image_builds_total",
			Help: "Custom image builds by outcome.",
		},
		[]string{"outcome"},
	)
)

func init() {
	prometheus.MustRegister(
		invocationsTotal,
		invocationDuration,
		coldStartsTotal,
		imageBuildsTotal,
	)
}

// ObserveInvocation records one finished invocation.
func ObserveInvocation(status string, coldStart bool, elapsed time.Duration) {
	invocationsTotal.WithLabelValues(status).Inc()
	invocationDuration.Observe(elapsed.Seconds())
	if coldStart {
		coldStartsTotal.Inc()
	}
}

// ObserveImageBuild records one custom image build attempt.
func ObserveImageBuild(err error) {
	outcome := "success"
	if err != nil {
		outcome = "error"
	}
	imageBuildsTotal.WithLabelValues(outcome).Inc()
}

// RegisterPoolGauge exposes the warm pool size as a gauge. Call once at
// startup.
func RegisterPoolGauge(sizer interface{ Size() int }) {
	prometheus.MustRegister(prometheus.NewGaugeFunc(
		prometheus.GaugeOpts{
			Name: "clowdy_pool_size",
			Help: "Idle sandboxes currently pooled.",
		},
		func() float64 { return float64(sizer.Size()) },
	))
}
