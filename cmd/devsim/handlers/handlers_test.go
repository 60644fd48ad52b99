package handlers

import (
	"bytes"
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/imamik/devsim/internal/config"
	"github.com/imamik/devsim/internal/config/wizard"
	"github.com/imamik/devsim/internal/provisioning"
	"github.com/imamik/devsim/internal/store/sqlite"
	dtest "github.com/imamik/devsim/internal/testing"
)

// setupHandlers points the handlers at a fast config and a temporary registry.
func setupHandlers(t *testing.T) *config.Config {
	t.Helper()

	cfg := config.Default()
	cfg.Delays = config.Delays{
		Submit:     time.Millisecond,
		Step:       time.Millisecond,
		Settle:     time.Millisecond,
		Completion: time.Millisecond,
	}
	cfg.Store.Path = filepath.Join(t.TempDir(), "devsim.db")

	origLoad := loadConfig
	origInteractive := isInteractive
	origGenerate := generateDeviceID
	origWizard := runWizard
	t.Cleanup(func() {
		loadConfig = origLoad
		isInteractive = origInteractive
		generateDeviceID = origGenerate
		runWizard = origWizard
	})

	loadConfig = func(string) (*config.Config, error) { return cfg, nil }
	isInteractive = func() bool { return false }
	generateDeviceID = func() (string, error) { return "ZZ:ZZ:ZZ:AA:BB:CC", nil }

	return cfg
}

func runCreate(t *testing.T, opts CreateOptions) (string, error) {
	t.Helper()
	var out bytes.Buffer
	opts.Out = &out
	err := Create(dtest.TestContext(t), opts)
	return out.String(), err
}

func TestCreate_PlainSuccess(t *testing.T) {
	setupHandlers(t)

	output, err := runCreate(t, CreateOptions{GenerateID: true, NoTUI: true})
	require.NoError(t, err)

	assert.Contains(t, output, "Provisioning ZZ:ZZ:ZZ:AA:BB:CC (AIQ Core) in dev")
	assert.Contains(t, output, "[1/5] Getting Credentials...")
	assert.Contains(t, output, "[5/5] Starting Simulator done")
	assert.Contains(t, output, "handed off to the device monitor")
	assert.Contains(t, output, "devsim: ZZ:ZZ:ZZ:AA:BB:CC")
}

func TestCreate_PlainFailureReturnsStepError(t *testing.T) {
	setupHandlers(t)

	output, err := runCreate(t, CreateOptions{
		Descriptor:  provisioning.DeviceDescriptor{DeviceID: "zz:zz:zz:aa:bb:cc"},
		FailStep:    provisioning.StepCreateSimulator,
		FailMessage: "quota exceeded",
		NoTUI:       true,
	})
	require.Error(t, err)

	var stepErr *provisioning.StepError
	require.True(t, errors.As(err, &stepErr))
	assert.Equal(t, provisioning.StepCreateSimulator, stepErr.StepID)
	assert.Equal(t, "quota exceeded", stepErr.Message)

	assert.Contains(t, output, "[3/5] Creating Enrollment done")
	assert.Contains(t, output, "failed: quota exceeded")
	assert.NotContains(t, output, "[5/5]")
}

func TestCreate_DeviceIsRegistered(t *testing.T) {
	cfg := setupHandlers(t)

	_, err := runCreate(t, CreateOptions{GenerateID: true, NoTUI: true})
	require.NoError(t, err)

	store, err := sqlite.Open(cfg.Store.Path)
	require.NoError(t, err)
	defer store.Close()

	device, err := store.GetDevice(context.Background(), "ZZ:ZZ:ZZ:AA:BB:CC")
	require.NoError(t, err)
	assert.Equal(t, provisioning.DeviceTypeAIQCore, device.Type)
	assert.Equal(t, "dev", device.Environment)
}

func TestCreate_KeepsDeviceMetadata(t *testing.T) {
	cfg := setupHandlers(t)

	d := dtest.NewDescriptorBuilder().
		WithEquipment("EQ-1001", "Acme Facilities").
		WithDescription("lobby sensor").
		Build()
	_, err := runCreate(t, CreateOptions{Descriptor: d, NoTUI: true})
	require.NoError(t, err)

	store, err := sqlite.Open(cfg.Store.Path)
	require.NoError(t, err)
	defer store.Close()

	device, err := store.GetDevice(context.Background(), dtest.DefaultDeviceID)
	require.NoError(t, err)
	assert.Equal(t, "EQ-1001", device.EquipmentNo)
	assert.Equal(t, "Acme Facilities", device.Organization)
	assert.Equal(t, "lobby sensor", device.Description)
}

func TestCreate_InvalidFailStep(t *testing.T) {
	setupHandlers(t)

	_, err := runCreate(t, CreateOptions{GenerateID: true, FailStep: "reticulate-splines", NoTUI: true})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid --fail-step")
}

func TestCreate_ConfigError(t *testing.T) {
	setupHandlers(t)
	loadConfig = func(string) (*config.Config, error) { return nil, errors.New("boom") }

	_, err := runCreate(t, CreateOptions{GenerateID: true, NoTUI: true})
	assert.EqualError(t, err, "boom")
}

func TestResolveDescriptor(t *testing.T) {
	cfg := setupHandlers(t)
	ctx := context.Background()

	tests := []struct {
		name     string
		opts     CreateOptions
		expected provisioning.DeviceDescriptor
		wantErr  string
	}{
		{
			name: "defaults applied",
			opts: CreateOptions{Descriptor: dtest.NewDescriptorBuilder().WithDeviceID(" zz:zz:zz:01:02:0a ").WithType("").WithEnvironment("").Build()},
			expected: provisioning.DeviceDescriptor{
				DeviceID:    "ZZ:ZZ:ZZ:01:02:0A",
				Type:        provisioning.DeviceTypeAIQCore,
				Environment: "dev",
			},
		},
		{
			name: "generated id",
			opts: CreateOptions{GenerateID: true, Descriptor: provisioning.DeviceDescriptor{Environment: "prod"}},
			expected: provisioning.DeviceDescriptor{
				DeviceID:    "ZZ:ZZ:ZZ:AA:BB:CC",
				Type:        provisioning.DeviceTypeAIQCore,
				Environment: "prod",
			},
		},
		{
			name:    "missing id without terminal",
			opts:    CreateOptions{},
			wantErr: "device id is required",
		},
		{
			name:    "unknown environment",
			opts:    CreateOptions{GenerateID: true, Descriptor: provisioning.DeviceDescriptor{Environment: "staging"}},
			wantErr: `unknown environment "staging"`,
		},
		{
			name:    "unsupported type",
			opts:    CreateOptions{GenerateID: true, Descriptor: provisioning.DeviceDescriptor{Type: "Toaster"}},
			wantErr: `unsupported device type "Toaster"`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d, err := resolveDescriptor(ctx, cfg, tt.opts, false)
			if tt.wantErr != "" {
				require.Error(t, err)
				assert.ErrorIs(t, err, provisioning.ErrInvalidDescriptor)
				assert.Contains(t, err.Error(), tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.expected, d)
		})
	}
}

func TestResolveDescriptor_UsesWizardOnTerminal(t *testing.T) {
	cfg := setupHandlers(t)
	runWizard = func(context.Context, *config.Config) (*wizard.WizardResult, error) {
		return &wizard.WizardResult{
			IDMode:       wizard.IDModeManual,
			DeviceID:     "zz:zz:zz:10:20:30",
			Type:         provisioning.DeviceTypeAIQCoreTorque,
			Environment:  "test",
			Organization: "Organization B",
		}, nil
	}

	d, err := resolveDescriptor(context.Background(), cfg, CreateOptions{}, true)
	require.NoError(t, err)
	assert.Equal(t, "ZZ:ZZ:ZZ:10:20:30", d.DeviceID)
	assert.Equal(t, provisioning.DeviceTypeAIQCoreTorque, d.Type)
	assert.Equal(t, "test", d.Environment)
	assert.Equal(t, "Organization B", d.Organization)
}

func TestResolveDescriptor_WizardAborted(t *testing.T) {
	cfg := setupHandlers(t)
	aborted := errors.New("user aborted")
	runWizard = func(context.Context, *config.Config) (*wizard.WizardResult, error) {
		return nil, aborted
	}

	_, err := resolveDescriptor(context.Background(), cfg, CreateOptions{}, true)
	assert.ErrorIs(t, err, aborted)
}

func TestFaultsFor(t *testing.T) {
	t.Parallel()

	faults, err := faultsFor("", "")
	require.NoError(t, err)
	assert.Nil(t, faults)

	faults, err = faultsFor(provisioning.StepCheckEnrollment, "")
	require.NoError(t, err)
	assert.Equal(t, map[string]string{provisioning.StepCheckEnrollment: defaultFailureMessage}, faults)

	_, err = faultsFor("nope", "x")
	assert.Error(t, err)
}

func TestProgressPrinter(t *testing.T) {
	t.Parallel()

	var out bytes.Buffer
	clk := clock.NewMock()
	p := newProgressPrinter(&out, clk)

	steps := func(statuses ...provisioning.StepStatus) []provisioning.Step {
		defs := provisioning.Steps()
		result := make([]provisioning.Step, len(defs))
		for i, def := range defs {
			result[i] = provisioning.Step{ID: def.ID, Title: def.Title, Status: provisioning.StatusPending}
			if i < len(statuses) {
				result[i].Status = statuses[i]
			}
		}
		return result
	}

	p.observe(provisioning.Run{Generation: 1, Steps: steps(provisioning.StatusLoading)})
	p.observe(provisioning.Run{Generation: 1, Steps: steps(provisioning.StatusLoading)})
	clk.Add(1500 * time.Millisecond)
	p.observe(provisioning.Run{Generation: 1, Steps: steps(provisioning.StatusSuccess)})

	failed := steps(provisioning.StatusSuccess, provisioning.StatusError)
	failed[1].Error = "denied"
	p.observe(provisioning.Run{Generation: 1, Steps: failed})

	// A new generation starts over.
	p.observe(provisioning.Run{Generation: 2, Steps: steps(provisioning.StatusLoading)})

	output := out.String()
	assert.Equal(t, 2, bytes.Count(out.Bytes(), []byte("[1/5] Getting Credentials...")))
	assert.Contains(t, output, "[1/5] Getting Credentials done (1.5s)")
	assert.Contains(t, output, "[2/5] Checking Enrollment failed: denied")
}

func TestNewLogger(t *testing.T) {
	var buf bytes.Buffer
	orig := logOutput
	logOutput = &buf
	defer func() { logOutput = orig }()

	logger := newLogger(0)
	logger.Info("hello", "key", "value")
	logger.V(1).Info("hidden")
	logger.WithName("dashboard").Info("named")

	output := buf.String()
	assert.Contains(t, output, `"msg"="hello"`)
	assert.Contains(t, output, `"key"="value"`)
	assert.NotContains(t, output, "hidden")
	assert.Contains(t, output, "dashboard: ")
}

func TestTimingsFor(t *testing.T) {
	cfg := setupHandlers(t)
	timings := timingsFor(cfg)
	assert.Equal(t, time.Millisecond, timings.Step)
	assert.Equal(t, time.Millisecond, timings.Completion)
}
