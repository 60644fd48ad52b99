package commands

import (
	"github.com/spf13/cobra"

	"github.com/imamik/devsim/cmd/devsim/handlers"
)

// Devices returns the command group for the device registry.
func Devices() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "devices",
		Short: "Inspect provisioned devices",
	}

	cmd.AddCommand(devicesList())
	cmd.AddCommand(devicesShow())
	cmd.AddCommand(devicesCredentials())

	return cmd
}

func devicesList() *cobra.Command {
	var configPath string
	var jsonOutput bool

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List provisioned devices",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return handlers.ListDevices(cmd.Context(), cmd.OutOrStdout(), configPath, jsonOutput)
		},
	}

	cmd.Flags().StringVarP(&configPath, "config", "c", "", "Path to configuration file (default: devsim.yaml)")
	cmd.Flags().BoolVar(&jsonOutput, "json", false, "Output in JSON format")

	return cmd
}

func devicesShow() *cobra.Command {
	var configPath string
	var jsonOutput bool

	cmd := &cobra.Command{
		Use:   "show <device-id>",
		Short: "Show one provisioned device",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return handlers.ShowDevice(cmd.Context(), cmd.OutOrStdout(), configPath, args[0], jsonOutput)
		},
	}

	cmd.Flags().StringVarP(&configPath, "config", "c", "", "Path to configuration file (default: devsim.yaml)")
	cmd.Flags().BoolVar(&jsonOutput, "json", false, "Output in JSON format")

	return cmd
}

func devicesCredentials() *cobra.Command {
	var opts handlers.CredentialsOptions

	cmd := &cobra.Command{
		Use:   "credentials <device-id>",
		Short: "List or download the archived credentials of a device",
		Long: `List the certificate and private key archived for a device in the
configured S3 bucket. With --dir both are downloaded as <device-id>.crt and
<device-id>.key, with colons in the id replaced by dashes.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			opts.DeviceID = args[0]
			return handlers.DeviceCredentials(cmd.Context(), cmd.OutOrStdout(), opts)
		},
	}

	cmd.Flags().StringVarP(&opts.ConfigPath, "config", "c", "", "Path to configuration file (default: devsim.yaml)")
	cmd.Flags().StringVar(&opts.Dir, "dir", "", "Download the certificate and private key into this directory")

	return cmd
}
