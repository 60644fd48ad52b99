package wizard

import (
	"context"
	"regexp"
	"strings"

	"github.com/charmbracelet/huh"

	"github.com/imamik/devsim/internal/config"
)

var (
	// deviceIDRegex accepts 1-64 non-space characters.
	deviceIDRegex = regexp.MustCompile(`^\S{1,64}$`)

	// equipmentNoRegex accepts up to 32 letters, digits or hyphens.
	equipmentNoRegex = regexp.MustCompile(`^[A-Za-z0-9-]{1,32}$`)
)

const maxDescriptionLength = 500

// runIdentityGroup asks whether to generate the device id and prompts for it otherwise.
func runIdentityGroup(ctx context.Context, result *WizardResult) error {
	err := huh.NewForm(
		huh.NewGroup(
			huh.NewSelect[string]().
				Title("Device ID").
				Description("Simulated devices use the reserved ZZ:ZZ:ZZ prefix").
				Options(IDModeOptions...).
				Value(&result.IDMode),
		).Title("Device Identity"),
	).RunWithContext(ctx)

	if err != nil {
		return err
	}

	if result.IDMode != IDModeManual {
		return nil
	}

	return huh.NewForm(
		huh.NewGroup(
			huh.NewInput().
				Title("Device ID").
				Description("MAC-style id of the device to simulate").
				Placeholder("ZZ:ZZ:ZZ:AA:BB:CC").
				Value(&result.DeviceID).
				Validate(validateDeviceID),
		).Title("Device Identity"),
	).RunWithContext(ctx)
}

// runTargetGroup prompts for the device type and environment.
func runTargetGroup(ctx context.Context, cfg *config.Config, result *WizardResult) error {
	return huh.NewForm(
		huh.NewGroup(
			huh.NewSelect[string]().
				Title("Device Type").
				Options(DeviceTypesToOptions(cfg)...).
				Value(&result.Type),
			huh.NewSelect[string]().
				Title("Environment").
				Description("IoT Hub the simulator connects to").
				Options(EnvironmentsToOptions(cfg)...).
				Value(&result.Environment),
		).Title("Target"),
	).RunWithContext(ctx)
}

// runDetailsGroup prompts for the optional descriptive fields.
func runDetailsGroup(ctx context.Context, result *WizardResult) error {
	return huh.NewForm(
		huh.NewGroup(
			huh.NewInput().
				Title("Equipment Number (Optional)").
				Placeholder("EQ-1001").
				Value(&result.EquipmentNo).
				Validate(validateEquipmentNo),
			huh.NewSelect[string]().
				Title("Organization (Optional)").
				Options(OrganizationsToOptions()...).
				Value(&result.Organization),
			huh.NewText().
				Title("Description (Optional)").
				CharLimit(maxDescriptionLength).
				Value(&result.Description).
				Validate(validateDescription),
		).Title("Details"),
	).RunWithContext(ctx)
}

// validateDeviceID validates a manually entered device id.
func validateDeviceID(s string) error {
	s = strings.TrimSpace(s)
	if s == "" {
		return errDeviceIDRequired
	}
	if !deviceIDRegex.MatchString(s) {
		return errDeviceIDInvalid
	}
	return nil
}

// validateEquipmentNo validates the optional equipment number.
func validateEquipmentNo(s string) error {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}
	if !equipmentNoRegex.MatchString(s) {
		return errEquipmentNoInvalid
	}
	return nil
}

func validateDescription(s string) error {
	if len([]rune(s)) > maxDescriptionLength {
		return errDescriptionTooLong
	}
	return nil
}
