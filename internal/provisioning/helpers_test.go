package provisioning

import (
	"context"
	"testing"
	"time"
)

// stubBackend answers immediately; steps in fail return the mapped error.
type stubBackend struct {
	fail map[string]error
}

func (b stubBackend) GetCredentials(context.Context, DeviceDescriptor) (*CredentialSet, error) {
	if err := b.fail[StepGetCredentials]; err != nil {
		return nil, err
	}
	return &CredentialSet{Fingerprint: "SHA256:internal"}, nil
}

func (b stubBackend) CheckEnrollment(context.Context, DeviceDescriptor) (*EnrollmentStatus, error) {
	if err := b.fail[StepCheckEnrollment]; err != nil {
		return nil, err
	}
	return &EnrollmentStatus{}, nil
}

func (b stubBackend) CreateEnrollment(context.Context, DeviceDescriptor) error {
	return b.fail[StepCreateEnrollment]
}

func (b stubBackend) CreateSimulator(_ context.Context, d DeviceDescriptor) (*DeviceRecord, error) {
	if err := b.fail[StepCreateSimulator]; err != nil {
		return nil, err
	}
	return &DeviceRecord{ID: d.DeviceID, Type: d.Type, Environment: d.Environment, Status: DeviceStatusCreated}, nil
}

func (b stubBackend) StartSimulator(context.Context, *DeviceRecord) error {
	return b.fail[StepStartSimulator]
}

func testDescriptor(env string) DeviceDescriptor {
	return DeviceDescriptor{DeviceID: "ZZ:ZZ:ZZ:AA:BB:CC", Type: DeviceTypeAIQCore, Environment: env}
}

// runToEnd starts a run with no delays and waits until it halts or hands off.
func runToEnd(t *testing.T, backend Backend, env string, opts ...Option) *Machine {
	t.Helper()
	done := make(chan struct{}, 1)
	handoff := HandoffFuncs{OnCompleted: func(string) { done <- struct{}{} }}
	opts = append([]Option{WithDelays(Delays{})}, opts...)
	m := NewMachine(backend, handoff, opts...)
	if err := m.Start(testDescriptor(env)); err != nil {
		t.Fatalf("start: %v", err)
	}

	deadline := time.After(5 * time.Second)
	for {
		select {
		case <-done:
			return m
		case <-deadline:
			t.Fatalf("run did not finish, phase %s", m.Snapshot().Phase)
		case <-time.After(5 * time.Millisecond):
			if m.Snapshot().Phase == PhaseHalted {
				return m
			}
		}
	}
}
