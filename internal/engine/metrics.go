package engine

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	runsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "forged",
		Name:      "runs_total",
		Help:      "Completed generation runs by terminal status.",
	}, []string{"status"})

	runDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Namespace: "forged",
		Name:      "run_duration_seconds",
		Help:      "Wall-clock duration of generation runs.",
		Buckets:   prometheus.ExponentialBuckets(1, 2, 12),
	})

	activeRuns = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: "forged",
		Name:      "active_runs",
		Help:      "Generation runs currently in flight.",
	})

	producerFailures = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "forged",
		Name:      "producer_failures_total",
		Help:      "Producer fan-out failures by role.",
	}, []string{"role"})

	runIterations = promauto.NewHistogram(prometheus.HistogramOpts{
		Namespace: "forged",
		Name:      "run_iterations",
		Help:      "Review-triggered regeneration rounds per completed run.",
		Buckets:   []float64{0, 1, 2, 3, 4, 5},
	})
)
