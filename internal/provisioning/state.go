package provisioning

import (
	"errors"
	"fmt"
	"time"
)

// RunPhase is the whole-run state.
type RunPhase string

const (
	// PhaseIdle means no run is active.
	PhaseIdle RunPhase = "idle"
	// PhaseRunning means steps are being driven.
	PhaseRunning RunPhase = "running"
	// PhaseHalted means a step failed; the run waits for Retry or Cancel.
	PhaseHalted RunPhase = "halted"
	// PhaseCompleted means every step succeeded and the handoff is pending.
	PhaseCompleted RunPhase = "completed"
)

// Step is a step definition together with its status in the current run.
type Step struct {
	ID          string     `json:"id"`
	Title       string     `json:"title"`
	Description string     `json:"description"`
	Status      StepStatus `json:"status"`
	Error       string     `json:"error,omitempty"`
}

// StepError is recorded when the backend call for a step fails.
type StepError struct {
	StepID  string
	Message string
}

// Error implements the error interface.
func (e *StepError) Error() string {
	return fmt.Sprintf("step %s failed: %s", e.StepID, e.Message)
}

// defaultFailureMessage is used when a backend error carries no text.
const defaultFailureMessage = "step failed"

// newStepError builds a StepError from a backend error.
func newStepError(stepID string, err error) *StepError {
	msg := defaultFailureMessage
	if err != nil && err.Error() != "" {
		msg = err.Error()
	}
	return &StepError{StepID: stepID, Message: msg}
}

// ErrNothingToRetry is returned by Retry before any descriptor was submitted.
var ErrNothingToRetry = errors.New("no provisioning run to retry")

// Run is a snapshot of a provisioning run.
// Snapshots are deep copies; holding one never blocks the Machine.
type Run struct {
	ID               string           `json:"id,omitempty"`
	Generation       uint64           `json:"generation"`
	Phase            RunPhase         `json:"phase"`
	Active           bool             `json:"active"`
	CurrentStepIndex int              `json:"currentStepIndex"`
	Steps            []Step           `json:"steps"`
	Descriptor       DeviceDescriptor `json:"descriptor"`
	Device           *DeviceRecord    `json:"device,omitempty"`
	Failure          *StepError       `json:"-"`
	StartedAt        time.Time        `json:"startedAt,omitempty"`
}

// newIdleRun returns a reset run: inactive, all steps pending, index 0.
func newIdleRun(generation uint64) Run {
	return Run{
		Generation: generation,
		Phase:      PhaseIdle,
		Steps:      pendingSteps(),
	}
}

// clone returns a deep copy of r.
func (r Run) clone() Run {
	out := r
	out.Steps = make([]Step, len(r.Steps))
	copy(out.Steps, r.Steps)
	if r.Device != nil {
		d := *r.Device
		out.Device = &d
	}
	if r.Failure != nil {
		f := *r.Failure
		out.Failure = &f
	}
	return out
}

// stepOutputs accumulates backend results that later steps depend on.
type stepOutputs struct {
	credentials *CredentialSet
	enrollment  *EnrollmentStatus
	device      *DeviceRecord
}
