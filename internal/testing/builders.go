package testing

import (
	"github.com/imamik/devsim/internal/provisioning"
)

// DescriptorBuilder provides a fluent interface for constructing test descriptors.
// Each method returns a new builder (immutable) for chaining.
type DescriptorBuilder struct {
	d provisioning.DeviceDescriptor
}

// NewDescriptorBuilder creates a builder preloaded with DefaultDescriptor.
func NewDescriptorBuilder() *DescriptorBuilder {
	return &DescriptorBuilder{d: DefaultDescriptor()}
}

// WithDeviceID sets the device id.
func (b *DescriptorBuilder) WithDeviceID(id string) *DescriptorBuilder {
	nb := *b
	nb.d.DeviceID = id
	return &nb
}

// WithType sets the device type.
func (b *DescriptorBuilder) WithType(deviceType string) *DescriptorBuilder {
	nb := *b
	nb.d.Type = deviceType
	return &nb
}

// WithEnvironment sets the target environment.
func (b *DescriptorBuilder) WithEnvironment(env string) *DescriptorBuilder {
	nb := *b
	nb.d.Environment = env
	return &nb
}

// WithEquipment sets the optional equipment number and organization.
func (b *DescriptorBuilder) WithEquipment(equipmentNo, organization string) *DescriptorBuilder {
	nb := *b
	nb.d.EquipmentNo = equipmentNo
	nb.d.Organization = organization
	return &nb
}

// WithDescription sets the optional description.
func (b *DescriptorBuilder) WithDescription(description string) *DescriptorBuilder {
	nb := *b
	nb.d.Description = description
	return &nb
}

// Build returns the descriptor.
func (b *DescriptorBuilder) Build() provisioning.DeviceDescriptor {
	return b.d
}
