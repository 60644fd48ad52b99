package handlers

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/go-logr/logr"

	"github.com/imamik/devsim/internal/config"
	"github.com/imamik/devsim/internal/config/wizard"
	"github.com/imamik/devsim/internal/provisioning"
	"github.com/imamik/devsim/internal/ui/benchmarks"
	"github.com/imamik/devsim/internal/ui/tui"
	"github.com/imamik/devsim/internal/util/deviceid"
)

// Factory function variables for create - can be replaced in tests.
var (
	// runWizard collects the descriptor interactively.
	runWizard = wizard.RunWizard

	// generateDeviceID creates a simulated device id.
	generateDeviceID = deviceid.Generate

	// runCreateTUI shows the progress view.
	runCreateTUI = tui.RunCreateTUI
)

// errProvisioningCancelled is returned when a non-interactive run is cancelled.
var errProvisioningCancelled = errors.New("provisioning cancelled")

// CreateOptions are the inputs of the create command.
type CreateOptions struct {
	ConfigPath  string
	Descriptor  provisioning.DeviceDescriptor
	GenerateID  bool
	FailStep    string
	FailMessage string
	NoTUI       bool
	Verbosity   int

	// Out receives progress and the device summary. Defaults to stdout.
	Out io.Writer
}

// Create handles the create command.
//
// It resolves the descriptor from flags or the interactive form, runs the
// provisioning machine against the demo backend and, once the device is
// handed off, prints its registry record. A halted run in non-interactive
// mode is returned as the *provisioning.StepError of the failed step.
func Create(ctx context.Context, opts CreateOptions) error {
	out := opts.Out
	if out == nil {
		out = os.Stdout
	}

	cfg, err := loadConfig(opts.ConfigPath)
	if err != nil {
		return err
	}

	faults, err := faultsFor(opts.FailStep, opts.FailMessage)
	if err != nil {
		return err
	}

	interactive := isInteractive()
	d, err := resolveDescriptor(ctx, cfg, opts, interactive)
	if err != nil {
		return err
	}

	store, err := openStore(cfg.Store.Path)
	if err != nil {
		return fmt.Errorf("failed to open device registry: %w", err)
	}
	defer store.Close()

	useTUI := interactive && !opts.NoTUI

	// The alternate screen owns the terminal while the TUI runs.
	logger := logr.Discard()
	if !useTUI && opts.Verbosity > 0 {
		logger = newLogger(opts.Verbosity - 1)
	}

	backend, err := newBackend(ctx, cfg, store, faults, logger)
	if err != nil {
		return err
	}

	tracer := newTracerProvider(logger.WithName("trace"))
	defer shutdownTracer(tracer)
	machineOpts := machineOptions(ctx, cfg, logger, tracer)

	if useTUI {
		return runInteractive(ctx, out, cfg, backend, store, d, machineOpts)
	}
	return runPlain(ctx, out, backend, store, d, machineOpts)
}

// resolveDescriptor builds the descriptor from flags, falling back to the
// interactive form when no device id was given on a terminal.
func resolveDescriptor(ctx context.Context, cfg *config.Config, opts CreateOptions, interactive bool) (provisioning.DeviceDescriptor, error) {
	d := opts.Descriptor

	if d.DeviceID == "" && !opts.GenerateID {
		if !interactive {
			return d, fmt.Errorf("%w: device id is required (use --device-id or --generate-id)", provisioning.ErrInvalidDescriptor)
		}
		result, err := runWizard(ctx, cfg)
		if err != nil {
			return d, err
		}
		d, err = wizard.BuildDescriptor(result, generateDeviceID)
		if err != nil {
			return d, err
		}
		return d, checkDescriptor(cfg, d)
	}

	if opts.GenerateID {
		id, err := generateDeviceID()
		if err != nil {
			return d, fmt.Errorf("failed to generate device id: %w", err)
		}
		d.DeviceID = id
	}
	d.DeviceID = deviceid.Normalize(d.DeviceID)

	if d.Type == "" && len(cfg.DeviceTypes) > 0 {
		d.Type = cfg.DeviceTypes[0]
	}
	if d.Environment == "" {
		d.Environment = cfg.DefaultEnvironmentName()
	}
	return d, checkDescriptor(cfg, d)
}

// checkDescriptor rejects environments and device types the configuration does not offer.
func checkDescriptor(cfg *config.Config, d provisioning.DeviceDescriptor) error {
	if err := d.Validate(); err != nil {
		return err
	}
	if _, ok := cfg.Environment(d.Environment); !ok {
		return fmt.Errorf("%w: unknown environment %q", provisioning.ErrInvalidDescriptor, d.Environment)
	}
	if !cfg.SupportsDeviceType(d.Type) {
		return fmt.Errorf("%w: unsupported device type %q", provisioning.ErrInvalidDescriptor, d.Type)
	}
	return nil
}

// timingsFor converts the configured pacing for the ETA estimate.
func timingsFor(cfg *config.Config) benchmarks.Timings {
	return benchmarks.Timings{
		Submit:     cfg.Delays.Submit,
		Step:       cfg.Delays.Step,
		Settle:     cfg.Delays.Settle,
		Completion: cfg.Delays.Completion,
	}
}

func runInteractive(ctx context.Context, out io.Writer, cfg *config.Config, backend provisioning.Backend, registry deviceRegistry, d provisioning.DeviceDescriptor, opts []provisioning.Option) error {
	bridge := tui.NewBridge()
	opts = append(opts, provisioning.WithListener(bridge.Listener))
	machine := provisioning.NewMachine(backend, bridge, opts...)

	envName := d.Environment
	if env, ok := cfg.Environment(d.Environment); ok {
		envName = env.DisplayName
	}

	res, err := runCreateTUI(ctx, bridge, tui.NewCreateModel(machine, d, envName, timingsFor(cfg)))
	if err != nil {
		return err
	}
	if res.Cancelled {
		fmt.Fprintln(out, "Provisioning cancelled.")
		return nil
	}
	if res.DeviceID == "" {
		return nil
	}
	return showDevice(ctx, out, registry, res.DeviceID)
}

func runPlain(ctx context.Context, out io.Writer, backend provisioning.Backend, registry deviceRegistry, d provisioning.DeviceDescriptor, opts []provisioning.Option) error {
	completed := make(chan string, 1)
	cancelled := make(chan struct{}, 1)
	halted := make(chan *provisioning.StepError, 1)

	handoff := provisioning.HandoffFuncs{
		OnCompleted: func(id string) {
			select {
			case completed <- id:
			default:
			}
		},
		OnCancelled: func() {
			select {
			case cancelled <- struct{}{}:
			default:
			}
		},
	}

	printer := newProgressPrinter(out, clock.New())
	listener := func(r provisioning.Run) {
		printer.observe(r)
		if r.Phase == provisioning.PhaseHalted && r.Failure != nil {
			select {
			case halted <- r.Failure:
			default:
			}
		}
	}

	opts = append(opts, provisioning.WithListener(listener))
	machine := provisioning.NewMachine(backend, handoff, opts...)

	fmt.Fprintf(out, "Provisioning %s (%s) in %s\n", d.DeviceID, d.Type, d.Environment)
	if err := machine.Start(d); err != nil {
		return err
	}

	select {
	case id := <-completed:
		fmt.Fprintf(out, "Device %s handed off to the device monitor\n\n", id)
		return showDevice(ctx, out, registry, id)
	case stepErr := <-halted:
		machine.Cancel()
		return stepErr
	case <-cancelled:
		return errProvisioningCancelled
	case <-ctx.Done():
		machine.Cancel()
		return ctx.Err()
	}
}

// progressPrinter writes one line per step transition.
// It is only called from the machine's listener, which is serialized.
type progressPrinter struct {
	out        io.Writer
	clock      clock.Clock
	generation uint64
	statuses   map[string]provisioning.StepStatus
	started    map[string]time.Time
}

func newProgressPrinter(out io.Writer, clk clock.Clock) *progressPrinter {
	return &progressPrinter{
		out:      out,
		clock:    clk,
		statuses: make(map[string]provisioning.StepStatus),
		started:  make(map[string]time.Time),
	}
}

func (p *progressPrinter) observe(r provisioning.Run) {
	if r.Generation != p.generation {
		p.generation = r.Generation
		p.statuses = make(map[string]provisioning.StepStatus)
		p.started = make(map[string]time.Time)
	}

	total := len(r.Steps)
	for i, s := range r.Steps {
		if p.statuses[s.ID] == s.Status {
			continue
		}
		p.statuses[s.ID] = s.Status

		switch s.Status {
		case provisioning.StatusLoading:
			p.started[s.ID] = p.clock.Now()
			fmt.Fprintf(p.out, "[%d/%d] %s...\n", i+1, total, s.Title)
		case provisioning.StatusSuccess:
			fmt.Fprintf(p.out, "[%d/%d] %s done (%s)\n", i+1, total, s.Title, p.elapsed(s.ID))
		case provisioning.StatusError:
			fmt.Fprintf(p.out, "[%d/%d] %s failed: %s\n", i+1, total, s.Title, s.Error)
		}
	}
}

func (p *progressPrinter) elapsed(id string) time.Duration {
	at, ok := p.started[id]
	if !ok {
		return 0
	}
	return p.clock.Since(at).Round(time.Millisecond)
}
