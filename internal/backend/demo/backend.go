package demo

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/go-logr/logr"

	"github.com/imamik/devsim/internal/provisioning"
	"github.com/imamik/devsim/internal/store/sqlite"
	"github.com/imamik/devsim/internal/util/keygen"
)

// DefaultLatency is how long each call takes.
const DefaultLatency = 800 * time.Millisecond

// Registry records enrollments and devices.
type Registry interface {
	GetEnrollment(ctx context.Context, deviceID string) (sqlite.Enrollment, error)
	SaveEnrollment(ctx context.Context, e sqlite.Enrollment) error
	SaveDevice(ctx context.Context, d provisioning.DeviceRecord) error
	SetDeviceStatus(ctx context.Context, id, status string, at time.Time) error
}

// CredentialArchive keeps a copy of issued credentials.
type CredentialArchive interface {
	Store(ctx context.Context, env, deviceID string, certPEM, keyPEM []byte) error
}

// Option configures a Backend.
type Option func(*Backend)

// WithClock sets the clock used for latency and timestamps.
func WithClock(c clock.Clock) Option {
	return func(b *Backend) {
		b.clock = c
	}
}

// WithLatency sets the per-call latency. Zero answers immediately.
func WithLatency(d time.Duration) Option {
	return func(b *Backend) {
		b.latency = d
	}
}

// WithArchive uploads issued credentials to a.
func WithArchive(a CredentialArchive) Option {
	return func(b *Backend) {
		b.archive = a
	}
}

// WithFaults makes the listed steps fail with the mapped message.
func WithFaults(faults map[string]string) Option {
	return func(b *Backend) {
		for step, msg := range faults {
			b.faults[step] = msg
		}
	}
}

// WithLogger sets the logger.
func WithLogger(l logr.Logger) Option {
	return func(b *Backend) {
		b.logger = l
	}
}

// Backend is the demo provisioning backend.
type Backend struct {
	registry Registry
	archive  CredentialArchive
	clock    clock.Clock
	latency  time.Duration
	faults   map[string]string
	logger   logr.Logger
}

// New creates a demo backend that records into registry.
func New(registry Registry, opts ...Option) *Backend {
	b := &Backend{
		registry: registry,
		clock:    clock.New(),
		latency:  DefaultLatency,
		faults:   make(map[string]string),
		logger:   logr.Discard(),
	}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// errUnknownStep is returned by ParseFaults for an unknown step id.
var errUnknownStep = errors.New("unknown step")

// ParseFaults validates a step→message map for WithFaults.
func ParseFaults(faults map[string]string) (map[string]string, error) {
	out := make(map[string]string, len(faults))
	for step, msg := range faults {
		if provisioning.StepIndex(step) < 0 {
			return nil, fmt.Errorf("%w %q", errUnknownStep, step)
		}
		out[step] = msg
	}
	return out, nil
}

// begin waits the configured latency and then applies fault injection.
func (b *Backend) begin(ctx context.Context, step string) error {
	if b.latency > 0 {
		timer := b.clock.Timer(b.latency)
		select {
		case <-timer.C:
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		}
	}
	if msg, ok := b.faults[step]; ok {
		b.logger.V(1).Info("injecting failure", "step", step, "message", msg)
		return errors.New(msg)
	}
	return nil
}

// GetCredentials implements provisioning.Backend.
func (b *Backend) GetCredentials(ctx context.Context, d provisioning.DeviceDescriptor) (*provisioning.CredentialSet, error) {
	if err := b.begin(ctx, provisioning.StepGetCredentials); err != nil {
		return nil, err
	}

	creds, err := keygen.GenerateDeviceCredentials(d.DeviceID, b.clock.Now())
	if err != nil {
		return nil, fmt.Errorf("issue credentials: %w", err)
	}
	if b.archive != nil {
		if err := b.archive.Store(ctx, d.Environment, d.DeviceID, creds.CertificatePEM, creds.PrivateKeyPEM); err != nil {
			return nil, err
		}
	}
	b.logger.Info("issued credentials", "device", d.DeviceID, "fingerprint", creds.Fingerprint)

	return &provisioning.CredentialSet{
		CertificatePEM: creds.CertificatePEM,
		PrivateKeyPEM:  creds.PrivateKeyPEM,
		Fingerprint:    creds.Fingerprint,
		ExpiresAt:      creds.NotAfter,
	}, nil
}

// CheckEnrollment implements provisioning.Backend.
func (b *Backend) CheckEnrollment(ctx context.Context, d provisioning.DeviceDescriptor) (*provisioning.EnrollmentStatus, error) {
	if err := b.begin(ctx, provisioning.StepCheckEnrollment); err != nil {
		return nil, err
	}

	e, err := b.registry.GetEnrollment(ctx, d.DeviceID)
	if errors.Is(err, sqlite.ErrNotFound) {
		return &provisioning.EnrollmentStatus{}, nil
	}
	if err != nil {
		return nil, err
	}
	return &provisioning.EnrollmentStatus{Enrolled: true, RegistrationID: e.RegistrationID}, nil
}

// CreateEnrollment implements provisioning.Backend. Enrolling an enrolled device refreshes it.
func (b *Backend) CreateEnrollment(ctx context.Context, d provisioning.DeviceDescriptor) error {
	if err := b.begin(ctx, provisioning.StepCreateEnrollment); err != nil {
		return err
	}

	return b.registry.SaveEnrollment(ctx, sqlite.Enrollment{
		DeviceID:       d.DeviceID,
		Environment:    d.Environment,
		RegistrationID: registrationID(d),
		EnrolledAt:     b.clock.Now(),
	})
}

// CreateSimulator implements provisioning.Backend.
func (b *Backend) CreateSimulator(ctx context.Context, d provisioning.DeviceDescriptor) (*provisioning.DeviceRecord, error) {
	if err := b.begin(ctx, provisioning.StepCreateSimulator); err != nil {
		return nil, err
	}

	now := b.clock.Now().UTC()
	record := provisioning.DeviceRecord{
		ID:           d.DeviceID,
		Type:         d.Type,
		Environment:  d.Environment,
		EquipmentNo:  d.EquipmentNo,
		Organization: d.Organization,
		Description:  d.Description,
		Status:       provisioning.DeviceStatusCreated,
		CreatedAt:    now,
		LastActivity: now,
	}
	if err := b.registry.SaveDevice(ctx, record); err != nil {
		return nil, err
	}
	return &record, nil
}

// StartSimulator implements provisioning.Backend.
func (b *Backend) StartSimulator(ctx context.Context, device *provisioning.DeviceRecord) error {
	if err := b.begin(ctx, provisioning.StepStartSimulator); err != nil {
		return err
	}

	if err := b.registry.SetDeviceStatus(ctx, device.ID, provisioning.DeviceStatusConnected, b.clock.Now().UTC()); err != nil {
		return err
	}
	b.logger.Info("simulator connected", "device", device.ID, "environment", device.Environment)
	return nil
}

func registrationID(d provisioning.DeviceDescriptor) string {
	return d.Environment + "/" + d.DeviceID
}
