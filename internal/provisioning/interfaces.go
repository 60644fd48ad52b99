package provisioning

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"
)

// Device types offered for simulation.
const (
	DeviceTypeAIQCore       = "AIQ Core"
	DeviceTypeAIQCoreTorque = "AIQ Core Torque"
)

// DeviceTypes lists the supported device types, default first.
var DeviceTypes = []string{DeviceTypeAIQCore, DeviceTypeAIQCoreTorque}

// DeviceDescriptor is the user-submitted description of the device to create.
type DeviceDescriptor struct {
	DeviceID     string `json:"deviceId"`
	Type         string `json:"type"`
	Environment  string `json:"environment"`
	EquipmentNo  string `json:"equipmentNo,omitempty"`
	Organization string `json:"organizationName,omitempty"`
	Description  string `json:"description,omitempty"`
}

// ErrInvalidDescriptor is returned when a required descriptor field is missing.
var ErrInvalidDescriptor = errors.New("invalid device descriptor")

// Validate checks that the device id, type and environment are present.
// The device id names the credential archive folder, so path separators
// and dot segments are rejected.
func (d DeviceDescriptor) Validate() error {
	var missing []string
	if strings.TrimSpace(d.DeviceID) == "" {
		missing = append(missing, "device id")
	}
	if strings.TrimSpace(d.Type) == "" {
		missing = append(missing, "type")
	}
	if strings.TrimSpace(d.Environment) == "" {
		missing = append(missing, "environment")
	}
	if len(missing) > 0 {
		return fmt.Errorf("%w: missing %s", ErrInvalidDescriptor, strings.Join(missing, ", "))
	}
	if id := strings.TrimSpace(d.DeviceID); strings.ContainsAny(id, `/\`) || id == "." || id == ".." {
		return fmt.Errorf("%w: device id %q must not contain path separators", ErrInvalidDescriptor, d.DeviceID)
	}
	return nil
}

// CredentialSet is the key material issued for a device.
type CredentialSet struct {
	CertificatePEM []byte    `json:"-"`
	PrivateKeyPEM  []byte    `json:"-"`
	Fingerprint    string    `json:"fingerprint"`
	ExpiresAt      time.Time `json:"expiresAt"`
}

// EnrollmentStatus reports whether a device is known to the provisioning service.
type EnrollmentStatus struct {
	Enrolled       bool   `json:"enrolled"`
	RegistrationID string `json:"registrationId,omitempty"`
}

// Device statuses recorded by simulator backends.
const (
	DeviceStatusCreated      = "created"
	DeviceStatusConnected    = "connected"
	DeviceStatusDisconnected = "disconnected"
)

// DeviceRecord is a created simulator.
type DeviceRecord struct {
	ID           string    `json:"id"`
	Type         string    `json:"type"`
	Environment  string    `json:"environment"`
	EquipmentNo  string    `json:"equipmentNo,omitempty"`
	Organization string    `json:"organizationName,omitempty"`
	Description  string    `json:"description,omitempty"`
	Status       string    `json:"status"`
	CreatedAt    time.Time `json:"createdAt"`
	LastActivity time.Time `json:"lastActivity"`
}

// Backend performs the credential, enrollment and simulator calls behind each step.
// Implementations may block; the Machine calls them from a dedicated goroutine
// and never issues two calls concurrently for the same run.
type Backend interface {
	// GetCredentials issues a certificate and private key for the device.
	GetCredentials(ctx context.Context, d DeviceDescriptor) (*CredentialSet, error)

	// CheckEnrollment reports whether the device is already enrolled.
	CheckEnrollment(ctx context.Context, d DeviceDescriptor) (*EnrollmentStatus, error)

	// CreateEnrollment enrolls the device with the provisioning service.
	CreateEnrollment(ctx context.Context, d DeviceDescriptor) error

	// CreateSimulator creates the simulator record for the device.
	CreateSimulator(ctx context.Context, d DeviceDescriptor) (*DeviceRecord, error)

	// StartSimulator starts a previously created simulator.
	StartSimulator(ctx context.Context, device *DeviceRecord) error
}

// Handoff receives control when a run leaves the machine.
type Handoff interface {
	// Completed is called once per successful run with the created device id.
	Completed(deviceID string)

	// Cancelled is called when a run is cancelled.
	Cancelled()
}

// HandoffFuncs adapts plain functions to the Handoff interface.
// Nil functions are skipped.
type HandoffFuncs struct {
	OnCompleted func(deviceID string)
	OnCancelled func()
}

// Completed implements Handoff.
func (h HandoffFuncs) Completed(deviceID string) {
	if h.OnCompleted != nil {
		h.OnCompleted(deviceID)
	}
}

// Cancelled implements Handoff.
func (h HandoffFuncs) Cancelled() {
	if h.OnCancelled != nil {
		h.OnCancelled()
	}
}
