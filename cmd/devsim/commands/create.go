package commands

import (
	"github.com/spf13/cobra"

	"github.com/imamik/devsim/cmd/devsim/handlers"
)

// Create returns the command for provisioning a simulated device.
//
// Without --device-id or --generate-id on a terminal, the descriptor is
// collected with an interactive form. Progress is shown in a terminal UI
// unless --no-tui is set or stdout is not a terminal.
//
// Optional flags:
//
//	--config, -c: Path to configuration file (default: devsim.yaml if present)
//	--device-id: Device id to provision
//	--generate-id: Generate a ZZ:ZZ:ZZ:xx:xx:xx device id
//	--type: Device type (default: first configured type)
//	--env: Target environment (default: dev)
//	--fail-step: Make the given step fail, for demos
func Create() *cobra.Command {
	var opts handlers.CreateOptions

	cmd := &cobra.Command{
		Use:   "create",
		Short: "Provision a simulated device",
		Long: `Provision a simulated device.

The device is taken through five steps:
  1. Getting credentials
  2. Checking enrollment
  3. Creating enrollment
  4. Creating the simulator
  5. Starting the simulator

When every step has succeeded the device is handed off to the device
monitor. A failed step halts the run; in the terminal UI press 'r' to
retry from the first step or 'c' to cancel.

Examples:
  # Fill in the device details interactively
  devsim create

  # Provision a device with a generated id in the test environment
  devsim create --generate-id --env test

  # Show a failure at the simulator step without the terminal UI
  devsim create --device-id ZZ:ZZ:ZZ:AA:BB:CC --fail-step create-simulator --no-tui`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			opts.Out = cmd.OutOrStdout()
			return handlers.Create(cmd.Context(), opts)
		},
	}

	cmd.Flags().StringVarP(&opts.ConfigPath, "config", "c", "", "Path to configuration file (default: devsim.yaml)")
	cmd.Flags().StringVar(&opts.Descriptor.DeviceID, "device-id", "", "Device id to provision")
	cmd.Flags().BoolVar(&opts.GenerateID, "generate-id", false, "Generate a simulated device id")
	cmd.Flags().StringVar(&opts.Descriptor.Type, "type", "", "Device type (default: first configured type)")
	cmd.Flags().StringVar(&opts.Descriptor.Environment, "env", "", "Target environment (default: dev)")
	cmd.Flags().StringVar(&opts.Descriptor.EquipmentNo, "equipment-no", "", "Equipment number")
	cmd.Flags().StringVar(&opts.Descriptor.Organization, "organization", "", "Organization name")
	cmd.Flags().StringVar(&opts.Descriptor.Description, "description", "", "Free-text description")
	cmd.Flags().StringVar(&opts.FailStep, "fail-step", "", "Step id to fail")
	cmd.Flags().StringVar(&opts.FailMessage, "fail-message", "", "Failure message for --fail-step")
	cmd.Flags().BoolVar(&opts.NoTUI, "no-tui", false, "Print plain progress lines instead of the terminal UI")
	cmd.Flags().CountVarP(&opts.Verbosity, "verbose", "v", "Increase log verbosity")

	cmd.MarkFlagsMutuallyExclusive("device-id", "generate-id")

	return cmd
}
