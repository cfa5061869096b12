package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

const (
	subsystem = "assignment_solver"

	solveRequestsTotal = "solve_requests_total"
	solveOutcomesTotal = "solve_outcomes_total"
	solveDuration      = "solve_duration_seconds"

	triggerLabel = "trigger" // solve, regenerate
	outcomeLabel = "outcome" // completed, failed, stale
)

var solveRequestsTotalMetric = prometheus.NewCounterVec(
	prometheus.CounterOpts{
		Subsystem: subsystem,
		Name:      solveRequestsTotal,
		Help:      "number of accepted solve dispatches",
	},
	[]string{triggerLabel},
)

var solveOutcomesTotalMetric = prometheus.NewCounterVec(
	prometheus.CounterOpts{
		Subsystem: subsystem,
		Name:      solveOutcomesTotal,
		Help:      "number of finished solve invocations by outcome",
	},
	[]string{outcomeLabel},
)

var solveDurationMetric = prometheus.NewHistogram(
	prometheus.HistogramOpts{
		Subsystem: subsystem,
		Name:      solveDuration,
		Help:      "wall clock duration of solution generation",
		Buckets:   []float64{1, 5, 10, 30, 60, 120},
	},
)

func IncreaseSolveRequestsMetric(trigger string) {
	solveRequestsTotalMetric.With(prometheus.Labels{triggerLabel: trigger}).Inc()
}

func IncreaseSolveOutcomesMetric(outcome string) {
	solveOutcomesTotalMetric.With(prometheus.Labels{outcomeLabel: outcome}).Inc()
}

func ObserveSolveDuration(seconds float64) {
	solveDurationMetric.Observe(seconds)
}

func init() {
	prometheus.MustRegister(solveRequestsTotalMetric)
	prometheus.MustRegister(solveOutcomesTotalMetric)
	prometheus.MustRegister(solveDurationMetric)
}
