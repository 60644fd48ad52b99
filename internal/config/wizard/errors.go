package wizard

import "errors"

// Validation errors for the interactive wizard.
var (
	errDeviceIDRequired   = errors.New("device id is required")
	errDeviceIDInvalid    = errors.New("device id must be 1-64 characters without spaces")
	errEquipmentNoInvalid = errors.New("equipment number must be up to 32 letters, digits or hyphens")
	errDescriptionTooLong = errors.New("description must be at most 500 characters")
	errNoEnvironments     = errors.New("no environments configured")
)
