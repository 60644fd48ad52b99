package testing

import (
	"time"

	"github.com/imamik/devsim/internal/provisioning"
)

// DefaultDeviceID is the simulated device id used across tests.
const DefaultDeviceID = "ZZ:ZZ:ZZ:AA:BB:CC"

// DefaultDescriptor returns a valid descriptor for the dev environment.
func DefaultDescriptor() provisioning.DeviceDescriptor {
	return provisioning.DeviceDescriptor{
		DeviceID:    DefaultDeviceID,
		Type:        provisioning.DeviceTypeAIQCore,
		Environment: "dev",
	}
}

// DeviceRecordFor returns the record a backend would create for d.
func DeviceRecordFor(d provisioning.DeviceDescriptor, status string) *provisioning.DeviceRecord {
	now := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	return &provisioning.DeviceRecord{
		ID:           d.DeviceID,
		Type:         d.Type,
		Environment:  d.Environment,
		EquipmentNo:  d.EquipmentNo,
		Organization: d.Organization,
		Description:  d.Description,
		Status:       status,
		CreatedAt:    now,
		LastActivity: now,
	}
}

// NoDelays removes every pause so tests only wait on the backend.
func NoDelays() provisioning.Delays {
	return provisioning.Delays{}
}
