package commands

import (
	"github.com/spf13/cobra"

	"github.com/imamik/devsim/cmd/devsim/handlers"
)

// GenerateID returns the command that prints a new simulated device id.
func GenerateID() *cobra.Command {
	return &cobra.Command{
		Use:   "generate-id",
		Short: "Print a new simulated device id",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return handlers.GenerateID(cmd.OutOrStdout())
		},
	}
}
