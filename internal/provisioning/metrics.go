package provisioning

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Registry holds the provisioning metrics. The dashboard serves it on /metrics.
var Registry = prometheus.NewRegistry()

var (
	// Run metrics
	runsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "devsim",
			Subsystem: "provisioning",
			Name:      "runs_total",
			Help:      "Total number of provisioning runs by result",
		},
		[]string{"environment", "result"},
	)

	runsActive = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: "devsim",
			Subsystem: "provisioning",
			Name:      "runs_active",
			Help:      "Whether a provisioning run is currently being driven (1) or not (0)",
		},
	)

	// Step metrics
	stepDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "devsim",
			Subsystem: "provisioning",
			Name:      "step_duration_seconds",
			Help:      "Duration of backend calls per step in seconds",
			Buckets:   prometheus.ExponentialBuckets(0.05, 2, 10), // 50ms to ~25s
		},
		[]string{"step"},
	)

	stepFailuresTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "devsim",
			Subsystem: "provisioning",
			Name:      "step_failures_total",
			Help:      "Total number of failed steps",
		},
		[]string{"step"},
	)

	staleResultsTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "devsim",
			Subsystem: "provisioning",
			Name:      "stale_results_total",
			Help:      "Backend results and timers discarded because their run was cancelled or retried",
		},
	)
)

func init() {
	Registry.MustRegister(
		runsTotal,
		runsActive,
		stepDuration,
		stepFailuresTotal,
		staleResultsTotal,
	)
}

// Run results recorded in runs_total.
const (
	resultCompleted = "completed"
	resultHalted    = "halted"
	resultCancelled = "cancelled"
)

func recordRunMetric(environment, result string) {
	runsTotal.WithLabelValues(environment, result).Inc()
}

func recordActiveMetric(active bool) {
	if active {
		runsActive.Set(1)
	} else {
		runsActive.Set(0)
	}
}

func recordStepMetric(step string, seconds float64, failed bool) {
	stepDuration.WithLabelValues(step).Observe(seconds)
	if failed {
		stepFailuresTotal.WithLabelValues(step).Inc()
	}
}

// Metrics helper methods that check enableMetrics before recording.

func (m *Machine) recordRun(environment, result string) {
	if m.enableMetrics {
		recordRunMetric(environment, result)
	}
}

func (m *Machine) recordActive(active bool) {
	if m.enableMetrics {
		recordActiveMetric(active)
	}
}

func (m *Machine) recordStep(step string, seconds float64, failed bool) {
	if m.enableMetrics {
		recordStepMetric(step, seconds, failed)
	}
}

func (m *Machine) recordStale() {
	if m.enableMetrics {
		staleResultsTotal.Inc()
	}
}
