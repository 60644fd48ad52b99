package testing

import (
	"context"

	"github.com/stretchr/testify/mock"

	"github.com/imamik/devsim/internal/provisioning"
)

// MockBackend is a testify mock of provisioning.Backend.
type MockBackend struct {
	mock.Mock
}

// GetCredentials implements provisioning.Backend.
func (m *MockBackend) GetCredentials(ctx context.Context, d provisioning.DeviceDescriptor) (*provisioning.CredentialSet, error) {
	args := m.Called(ctx, d)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*provisioning.CredentialSet), args.Error(1)
}

// CheckEnrollment implements provisioning.Backend.
func (m *MockBackend) CheckEnrollment(ctx context.Context, d provisioning.DeviceDescriptor) (*provisioning.EnrollmentStatus, error) {
	args := m.Called(ctx, d)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*provisioning.EnrollmentStatus), args.Error(1)
}

// CreateEnrollment implements provisioning.Backend.
func (m *MockBackend) CreateEnrollment(ctx context.Context, d provisioning.DeviceDescriptor) error {
	args := m.Called(ctx, d)
	return args.Error(0)
}

// CreateSimulator implements provisioning.Backend.
func (m *MockBackend) CreateSimulator(ctx context.Context, d provisioning.DeviceDescriptor) (*provisioning.DeviceRecord, error) {
	args := m.Called(ctx, d)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*provisioning.DeviceRecord), args.Error(1)
}

// StartSimulator implements provisioning.Backend.
func (m *MockBackend) StartSimulator(ctx context.Context, device *provisioning.DeviceRecord) error {
	args := m.Called(ctx, device)
	return args.Error(0)
}
