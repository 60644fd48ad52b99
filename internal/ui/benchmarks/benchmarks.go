// Package benchmarks provides timing estimates for provisioning runs.
package benchmarks

import (
	"time"

	"github.com/imamik/devsim/internal/provisioning"
)

// Timings are the expected durations of the parts of a run.
type Timings struct {
	Submit     time.Duration // pause before the first step
	Step       time.Duration // backend latency of one step
	Settle     time.Duration // pause between steps
	Completion time.Duration // all-green display before the handoff
}

// DefaultTimings match the demo backend latency and the machine's default delays.
func DefaultTimings() Timings {
	d := provisioning.DefaultDelays()
	return Timings{
		Submit:     d.Submit,
		Step:       800 * time.Millisecond,
		Settle:     d.Settle,
		Completion: d.Completion,
	}
}

// EstimateRemaining calculates the estimated time until the handoff of r.
// stepElapsed is how long the current step has been loading and observed
// holds the measured durations of the steps that already succeeded.
func EstimateRemaining(r provisioning.Run, stepElapsed time.Duration, t Timings, observed []time.Duration) time.Duration {
	return EstimateRemainingWithScale(r, stepElapsed, t, PerformanceScale(stepElapsed, t, observed))
}

// EstimateRemainingWithScale calculates ETA while applying a performance scale factor
// to the backend latency. Delays are fixed and never scaled.
func EstimateRemainingWithScale(r provisioning.Run, stepElapsed time.Duration, t Timings, scale float64) time.Duration {
	if r.Phase != provisioning.PhaseRunning {
		return 0
	}
	current := r.CurrentStepIndex
	if current < 0 || current >= len(r.Steps) {
		return 0
	}

	step := time.Duration(float64(t.Step) * scale)
	var remaining time.Duration

	// For the current step: max(0, expected - elapsed)
	switch r.Steps[current].Status {
	case provisioning.StatusLoading:
		if step > stepElapsed {
			remaining += step - stepElapsed
		}
	case provisioning.StatusPending:
		remaining += step
	}

	for i := current + 1; i < len(r.Steps); i++ {
		if r.Steps[i].Status == provisioning.StatusPending {
			remaining += t.Settle + step
		}
	}

	return remaining + t.Completion
}

// PerformanceScale derives a speed multiplier from observed-vs-expected step durations.
// Example: expected 800ms, observed 1.2s => scale=1.5.
func PerformanceScale(stepElapsed time.Duration, t Timings, observed []time.Duration) float64 {
	if t.Step <= 0 {
		return 1.0
	}

	var expectedTotal, actualTotal time.Duration
	for _, d := range observed {
		expectedTotal += t.Step
		actualTotal += d
	}

	// If the current step is overrunning, fold it in immediately so ETA adapts quickly.
	if stepElapsed > t.Step {
		expectedTotal += t.Step
		actualTotal += stepElapsed
	}

	if expectedTotal == 0 || actualTotal == 0 {
		return 1.0
	}

	scale := float64(actualTotal) / float64(expectedTotal)
	if scale < 0.6 {
		return 0.6
	}
	if scale > 3.0 {
		return 3.0
	}
	return scale
}

// TotalEstimate returns the expected duration of a full successful run.
func TotalEstimate(t Timings) time.Duration {
	n := time.Duration(provisioning.StepCount)
	return t.Submit + n*t.Step + (n-1)*t.Settle + t.Completion
}
