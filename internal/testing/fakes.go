package testing

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/imamik/devsim/internal/provisioning"
)

// Call is a backend call held by a GatedBackend until the test resolves it.
type Call struct {
	Step       string
	Descriptor provisioning.DeviceDescriptor
	Device     *provisioning.DeviceRecord
	result     chan error
}

// Succeed lets the call return successfully.
func (c *Call) Succeed() { c.result <- nil }

// Fail makes the call return err.
func (c *Call) Fail(err error) { c.result <- err }

// GatedBackend blocks every call until the test resolves it via Next.
type GatedBackend struct {
	calls chan *Call
}

// NewGatedBackend creates a GatedBackend.
func NewGatedBackend() *GatedBackend {
	return &GatedBackend{calls: make(chan *Call, 32)}
}

// Next returns the next issued call, failing the test after WaitTimeout.
func (b *GatedBackend) Next(t testing.TB) *Call {
	t.Helper()
	select {
	case c := <-b.calls:
		return c
	case <-time.After(WaitTimeout):
		t.Fatal("timed out waiting for a backend call")
		return nil
	}
}

// Pending reports whether a call is waiting to be picked up by Next.
func (b *GatedBackend) Pending() bool {
	return len(b.calls) > 0
}

func (b *GatedBackend) wait(ctx context.Context, step string, d provisioning.DeviceDescriptor, device *provisioning.DeviceRecord) error {
	c := &Call{Step: step, Descriptor: d, Device: device, result: make(chan error, 1)}
	b.calls <- c
	select {
	case err := <-c.result:
		return err
	case <-ctx.Done():
		return ctx.Err()
	}
}

// GetCredentials implements provisioning.Backend.
func (b *GatedBackend) GetCredentials(ctx context.Context, d provisioning.DeviceDescriptor) (*provisioning.CredentialSet, error) {
	if err := b.wait(ctx, provisioning.StepGetCredentials, d, nil); err != nil {
		return nil, err
	}
	return &provisioning.CredentialSet{Fingerprint: "SHA256:test"}, nil
}

// CheckEnrollment implements provisioning.Backend.
func (b *GatedBackend) CheckEnrollment(ctx context.Context, d provisioning.DeviceDescriptor) (*provisioning.EnrollmentStatus, error) {
	if err := b.wait(ctx, provisioning.StepCheckEnrollment, d, nil); err != nil {
		return nil, err
	}
	return &provisioning.EnrollmentStatus{}, nil
}

// CreateEnrollment implements provisioning.Backend.
func (b *GatedBackend) CreateEnrollment(ctx context.Context, d provisioning.DeviceDescriptor) error {
	return b.wait(ctx, provisioning.StepCreateEnrollment, d, nil)
}

// CreateSimulator implements provisioning.Backend.
func (b *GatedBackend) CreateSimulator(ctx context.Context, d provisioning.DeviceDescriptor) (*provisioning.DeviceRecord, error) {
	if err := b.wait(ctx, provisioning.StepCreateSimulator, d, nil); err != nil {
		return nil, err
	}
	return DeviceRecordFor(d, provisioning.DeviceStatusCreated), nil
}

// StartSimulator implements provisioning.Backend.
func (b *GatedBackend) StartSimulator(ctx context.Context, device *provisioning.DeviceRecord) error {
	return b.wait(ctx, provisioning.StepStartSimulator, provisioning.DeviceDescriptor{
		DeviceID:    device.ID,
		Type:        device.Type,
		Environment: device.Environment,
	}, device)
}

// StubBackend answers every call immediately. Steps listed in Faults fail with the mapped error.
type StubBackend struct {
	Faults map[string]error

	mu    sync.Mutex
	steps []string
}

// Steps returns the step ids in the order they were called.
func (b *StubBackend) Steps() []string {
	b.mu.Lock()
	defer b.mu.Unlock()
	out := make([]string, len(b.steps))
	copy(out, b.steps)
	return out
}

func (b *StubBackend) record(step string) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.steps = append(b.steps, step)
	return b.Faults[step]
}

// GetCredentials implements provisioning.Backend.
func (b *StubBackend) GetCredentials(_ context.Context, _ provisioning.DeviceDescriptor) (*provisioning.CredentialSet, error) {
	if err := b.record(provisioning.StepGetCredentials); err != nil {
		return nil, err
	}
	return &provisioning.CredentialSet{Fingerprint: "SHA256:stub"}, nil
}

// CheckEnrollment implements provisioning.Backend.
func (b *StubBackend) CheckEnrollment(_ context.Context, _ provisioning.DeviceDescriptor) (*provisioning.EnrollmentStatus, error) {
	if err := b.record(provisioning.StepCheckEnrollment); err != nil {
		return nil, err
	}
	return &provisioning.EnrollmentStatus{}, nil
}

// CreateEnrollment implements provisioning.Backend.
func (b *StubBackend) CreateEnrollment(_ context.Context, _ provisioning.DeviceDescriptor) error {
	return b.record(provisioning.StepCreateEnrollment)
}

// CreateSimulator implements provisioning.Backend.
func (b *StubBackend) CreateSimulator(_ context.Context, d provisioning.DeviceDescriptor) (*provisioning.DeviceRecord, error) {
	if err := b.record(provisioning.StepCreateSimulator); err != nil {
		return nil, err
	}
	return DeviceRecordFor(d, provisioning.DeviceStatusCreated), nil
}

// StartSimulator implements provisioning.Backend.
func (b *StubBackend) StartSimulator(_ context.Context, _ *provisioning.DeviceRecord) error {
	return b.record(provisioning.StepStartSimulator)
}

// RecordingHandoff records handoff callbacks.
type RecordingHandoff struct {
	mu        sync.Mutex
	completed []string
	cancelled int
	done      chan string
}

// NewRecordingHandoff creates a RecordingHandoff.
func NewRecordingHandoff() *RecordingHandoff {
	return &RecordingHandoff{done: make(chan string, 16)}
}

// Completed implements provisioning.Handoff.
func (h *RecordingHandoff) Completed(deviceID string) {
	h.mu.Lock()
	h.completed = append(h.completed, deviceID)
	h.mu.Unlock()
	select {
	case h.done <- deviceID:
	default:
	}
}

// Cancelled implements provisioning.Handoff.
func (h *RecordingHandoff) Cancelled() {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.cancelled++
}

// CompletedIDs returns the device ids handed off so far.
func (h *RecordingHandoff) CompletedIDs() []string {
	h.mu.Lock()
	defer h.mu.Unlock()
	out := make([]string, len(h.completed))
	copy(out, h.completed)
	return out
}

// CancelledCount returns how often Cancelled was called.
func (h *RecordingHandoff) CancelledCount() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.cancelled
}

// Done delivers each completed device id.
func (h *RecordingHandoff) Done() <-chan string {
	return h.done
}

// SnapshotRecorder collects every snapshot a Machine publishes.
type SnapshotRecorder struct {
	mu    sync.Mutex
	snaps []provisioning.Run
}

// Record is suitable for provisioning.WithListener.
func (r *SnapshotRecorder) Record(run provisioning.Run) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.snaps = append(r.snaps, run)
}

// Snapshots returns the recorded snapshots in delivery order.
func (r *SnapshotRecorder) Snapshots() []provisioning.Run {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]provisioning.Run, len(r.snaps))
	copy(out, r.snaps)
	return out
}
