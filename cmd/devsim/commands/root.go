// Package commands defines the CLI command structure and flag bindings.
//
// This package contains cobra command definitions that handle argument parsing,
// flag binding, and validation. Command execution is delegated to handler
// functions in the handlers package.
package commands

import "github.com/spf13/cobra"

// Root returns the root command for the devsim CLI.
func Root() *cobra.Command {
	cmd := &cobra.Command{
		Use:           "devsim",
		Short:         "Provision and monitor simulated IoT devices",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	// Core commands
	cmd.AddCommand(Create())
	cmd.AddCommand(Serve())
	cmd.AddCommand(Devices())

	// Utility commands
	cmd.AddCommand(GenerateID())
	cmd.AddCommand(Version())
	cmd.AddCommand(Completion())

	return cmd
}
