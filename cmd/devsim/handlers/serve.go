package handlers

import (
	"context"
	"fmt"

	"github.com/benbjohnson/clock"

	"github.com/imamik/devsim/internal/dashboard"
	"github.com/imamik/devsim/internal/provisioning"
)

// ServeOptions are the inputs of the serve command.
type ServeOptions struct {
	ConfigPath  string
	Addr        string
	FailStep    string
	FailMessage string
	Verbosity   int
}

// Serve handles the serve command. It blocks until ctx is cancelled.
func Serve(ctx context.Context, opts ServeOptions) error {
	cfg, err := loadConfig(opts.ConfigPath)
	if err != nil {
		return err
	}

	faults, err := faultsFor(opts.FailStep, opts.FailMessage)
	if err != nil {
		return err
	}

	logger := newLogger(opts.Verbosity)

	store, err := openStore(cfg.Store.Path)
	if err != nil {
		return fmt.Errorf("failed to open device registry: %w", err)
	}
	defer store.Close()

	backend, err := newBackend(ctx, cfg, store, faults, logger)
	if err != nil {
		return err
	}

	tracer := newTracerProvider(logger.WithName("trace"))
	defer shutdownTracer(tracer)

	handoffs := dashboard.NewHandoffs(clock.New())
	machine := provisioning.NewMachine(backend, handoffs, machineOptions(ctx, cfg, logger, tracer)...)
	defer machine.Cancel()

	srv := dashboard.New(machine, store, cfg,
		dashboard.WithLogger(logger.WithName("dashboard")),
		dashboard.WithHandoffs(handoffs),
		dashboard.WithGatherer(provisioning.Registry),
	)

	addr := opts.Addr
	if addr == "" {
		addr = cfg.Server.Addr
	}
	return srv.ListenAndServe(ctx, addr)
}
