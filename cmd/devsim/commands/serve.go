package commands

import (
	"github.com/spf13/cobra"

	"github.com/imamik/devsim/cmd/devsim/handlers"
)

// Serve returns the command that runs the provisioning dashboard API.
//
// Optional flags:
//
//	--config, -c: Path to configuration file (default: devsim.yaml if present)
//	--addr: Listen address (default: server.addr from the configuration)
func Serve() *cobra.Command {
	var opts handlers.ServeOptions

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the provisioning dashboard API",
		Long: `Run the provisioning dashboard HTTP API.

Endpoints:
  POST /api/provisioning          submit a device descriptor
  GET  /api/provisioning          current run with step states
  POST /api/provisioning/retry    restart the run from the first step
  POST /api/provisioning/cancel   cancel the run
  GET  /api/devices               registered devices
  GET  /api/devices/{id}          one device
  GET  /api/environments          configured environments
  GET  /api/device-types          supported device types
  GET  /healthz                   liveness
  GET  /metrics                   Prometheus metrics

Examples:
  devsim serve
  devsim serve --addr :9090 -v`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return handlers.Serve(cmd.Context(), opts)
		},
	}

	cmd.Flags().StringVarP(&opts.ConfigPath, "config", "c", "", "Path to configuration file (default: devsim.yaml)")
	cmd.Flags().StringVar(&opts.Addr, "addr", "", "Listen address (default: from configuration)")
	cmd.Flags().StringVar(&opts.FailStep, "fail-step", "", "Step id to fail")
	cmd.Flags().StringVar(&opts.FailMessage, "fail-message", "", "Failure message for --fail-step")
	cmd.Flags().CountVarP(&opts.Verbosity, "verbose", "v", "Increase log verbosity")

	return cmd
}
