package wizard

import (
	"github.com/charmbracelet/huh"

	"github.com/imamik/devsim/internal/config"
)

// Device id entry modes.
const (
	IDModeGenerate = "generate"
	IDModeManual   = "manual"
)

// IDModeOptions contains the device id entry choices.
var IDModeOptions = []huh.Option[string]{
	huh.NewOption("Generate a simulated id (ZZ:ZZ:ZZ:xx:xx:xx)", IDModeGenerate),
	huh.NewOption("Enter an id", IDModeManual),
}

// Organizations contains the organizations a device can be assigned to.
var Organizations = []string{
	"Organization A",
	"Organization B",
	"Organization C",
}

// DeviceTypesToOptions converts the configured device types to huh options.
func DeviceTypesToOptions(cfg *config.Config) []huh.Option[string] {
	opts := make([]huh.Option[string], len(cfg.DeviceTypes))
	for i, t := range cfg.DeviceTypes {
		opts[i] = huh.NewOption(t, t)
	}
	return opts
}

// EnvironmentsToOptions converts the configured environments to huh options.
func EnvironmentsToOptions(cfg *config.Config) []huh.Option[string] {
	opts := make([]huh.Option[string], len(cfg.Environments))
	for i, env := range cfg.Environments {
		label := env.DisplayName
		if env.IoTHub != "" {
			label += " - " + env.IoTHub
		}
		opts[i] = huh.NewOption(label, env.Name)
	}
	return opts
}

// OrganizationsToOptions converts Organizations to huh options, led by a "none" choice.
func OrganizationsToOptions() []huh.Option[string] {
	opts := make([]huh.Option[string], 0, len(Organizations)+1)
	opts = append(opts, huh.NewOption("None", ""))
	for _, org := range Organizations {
		opts = append(opts, huh.NewOption(org, org))
	}
	return opts
}
