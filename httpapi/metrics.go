package httpapi

import (
	"github.com/prometheus/client_golang/prometheus"
)

// metrics are registered on the registry passed in Options, never the global one,
// so several handlers can coexist in one process (and in tests).
type metrics struct {
	solves     *prometheus.CounterVec
	duration   prometheus.Histogram
	iterations prometheus.Histogram
}

func newMetrics(reg prometheus.Registerer) *metrics {
	m := &metrics{
		solves: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "linkage_solves_total",
				Help: "Total number of solve requests by result code",
			},
			[]string{"code"},
		),
		duration: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "linkage_solve_duration_seconds",
				Help:    "Duration of solver calls",
				Buckets: prometheus.ExponentialBuckets(1e-6, 4, 10),
			},
		),
		iterations: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "linkage_solve_iterations",
				Help:    "Bisection iterations used by successful solves",
				Buckets: prometheus.LinearBuckets(0, 10, 21),
			},
		),
	}
	reg.MustRegister(m.solves, m.duration, m.iterations)
	return m
}
