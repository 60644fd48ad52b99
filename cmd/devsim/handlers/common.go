// Package handlers implements the devsim CLI commands.
package handlers

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/go-logr/logr"
	"github.com/go-logr/logr/funcr"
	"github.com/mattn/go-isatty"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"

	"github.com/imamik/devsim/internal/backend/demo"
	"github.com/imamik/devsim/internal/config"
	"github.com/imamik/devsim/internal/platform/s3"
	"github.com/imamik/devsim/internal/provisioning"
	"github.com/imamik/devsim/internal/store/sqlite"
)

// defaultFailureMessage is used for --fail-step without --fail-message.
const defaultFailureMessage = "simulated failure"

// Factory function variables - can be replaced in tests.
var (
	// loadConfig reads the configuration file and environment overrides.
	loadConfig = config.Load

	// openStore opens the device registry.
	openStore = sqlite.Open

	// newS3Client connects to the credential archive endpoint.
	newS3Client = s3.NewClient

	// isInteractive reports whether stdout is a terminal.
	isInteractive = isInteractiveTTY

	// logOutput receives log lines.
	logOutput io.Writer = os.Stderr
)

func isInteractiveTTY() bool {
	return isatty.IsTerminal(os.Stdout.Fd()) || isatty.IsCygwinTerminal(os.Stdout.Fd())
}

// newLogger builds a logger writing to logOutput. Higher verbosity shows V(n) lines.
func newLogger(verbosity int) logr.Logger {
	w := logOutput
	return funcr.New(func(prefix, args string) {
		if prefix != "" {
			fmt.Fprintf(w, "%s: %s\n", prefix, args)
			return
		}
		fmt.Fprintln(w, args)
	}, funcr.Options{Verbosity: verbosity})
}

// faultsFor returns the fault map for --fail-step.
func faultsFor(step, message string) (map[string]string, error) {
	if step == "" {
		return nil, nil
	}
	if message == "" {
		message = defaultFailureMessage
	}
	faults, err := demo.ParseFaults(map[string]string{step: message})
	if err != nil {
		return nil, fmt.Errorf("invalid --fail-step: %w", err)
	}
	return faults, nil
}

// newBackend builds the demo backend, archiving credentials to S3 when enabled.
func newBackend(ctx context.Context, cfg *config.Config, registry demo.Registry, faults map[string]string, logger logr.Logger) (*demo.Backend, error) {
	opts := []demo.Option{
		demo.WithLatency(cfg.Delays.Step),
		demo.WithLogger(logger.WithName("backend")),
	}
	if len(faults) > 0 {
		opts = append(opts, demo.WithFaults(faults))
	}

	if cfg.Archive.Enabled {
		archive, err := openS3Archive(ctx, cfg)
		if err != nil {
			return nil, err
		}
		opts = append(opts, demo.WithArchive(archive))
		logger.V(1).Info("archiving credentials", "endpoint", cfg.Archive.Endpoint, "bucket", cfg.Archive.Bucket)
	}

	return demo.New(registry, opts...), nil
}

// openS3Archive connects to the configured credential archive.
func openS3Archive(ctx context.Context, cfg *config.Config) (*s3.Archive, error) {
	client, err := newS3Client(ctx, cfg.Archive.Endpoint, cfg.Archive.Region, cfg.Archive.AccessKey, cfg.Archive.SecretKey)
	if err != nil {
		return nil, fmt.Errorf("failed to create archive client: %w", err)
	}
	return s3.NewArchive(client, cfg.Archive.Bucket), nil
}

// machineOptions are the options shared by every machine the CLI builds.
func machineOptions(ctx context.Context, cfg *config.Config, logger logr.Logger, tracer *sdktrace.TracerProvider) []provisioning.Option {
	return []provisioning.Option{
		provisioning.WithContext(ctx),
		provisioning.WithDelays(cfg.Delays.MachineDelays()),
		provisioning.WithObserver(provisioning.NewLogObserver(logger.WithName("provisioning"))),
		tracerOption(tracer),
		provisioning.WithMetrics(true),
	}
}
