package testing

import (
	"context"
	"testing"
	"time"

	"github.com/imamik/devsim/internal/provisioning"
)

// TestContext returns a context with a reasonable timeout for tests.
func TestContext(t *testing.T) context.Context {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	t.Cleanup(cancel)
	return ctx
}

// WaitTimeout bounds every blocking wait in the helpers.
const WaitTimeout = 5 * time.Second

// CountStatus counts the steps of r in status s.
func CountStatus(r provisioning.Run, s provisioning.StepStatus) int {
	n := 0
	for _, step := range r.Steps {
		if step.Status == s {
			n++
		}
	}
	return n
}

// Statuses lists the step statuses of r in order.
func Statuses(r provisioning.Run) []provisioning.StepStatus {
	out := make([]provisioning.StepStatus, len(r.Steps))
	for i, step := range r.Steps {
		out[i] = step.Status
	}
	return out
}

// AllPending reports whether every step of r is pending with no error text.
func AllPending(r provisioning.Run) bool {
	for _, step := range r.Steps {
		if step.Status != provisioning.StatusPending || step.Error != "" {
			return false
		}
	}
	return len(r.Steps) == provisioning.StepCount
}
