package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefault(t *testing.T) {
	cfg := Default()

	assert.Equal(t, []string{"dev", "test", "prod"}, cfg.EnvironmentNames())
	assert.Equal(t, []string{"AIQ Core", "AIQ Core Torque"}, cfg.DeviceTypes)
	assert.Equal(t, 100*time.Millisecond, cfg.Delays.Submit)
	assert.Equal(t, 800*time.Millisecond, cfg.Delays.Step)
	assert.Equal(t, 500*time.Millisecond, cfg.Delays.Settle)
	assert.Equal(t, 3*time.Second, cfg.Delays.Completion)
	assert.Equal(t, DefaultStorePath, cfg.Store.Path)
	assert.Equal(t, DefaultServerAddr, cfg.Server.Addr)
	assert.False(t, cfg.Archive.Enabled)
	require.NoError(t, cfg.Validate())
}

func TestDefault_DeviceTypesAreCopied(t *testing.T) {
	cfg := Default()
	cfg.DeviceTypes[0] = "changed"

	assert.Equal(t, "AIQ Core", Default().DeviceTypes[0])
}

func TestApplyDefaults_KeepsConfiguredValues(t *testing.T) {
	cfg := &Config{
		Environments: []Environment{{Name: "staging"}},
		Delays:       Delays{Settle: time.Second},
		Server:       ServerConfig{Addr: ":9090", SubmitBurst: 10},
	}
	cfg.applyDefaults()

	assert.Equal(t, []string{"staging"}, cfg.EnvironmentNames())
	assert.Equal(t, "staging", cfg.Environments[0].DisplayName)
	assert.Equal(t, time.Second, cfg.Delays.Settle)
	assert.Equal(t, 100*time.Millisecond, cfg.Delays.Submit)
	assert.Equal(t, ":9090", cfg.Server.Addr)
	assert.Equal(t, 10, cfg.Server.SubmitBurst)
}

func TestMachineDelays(t *testing.T) {
	d := Delays{Submit: 1, Step: 2, Settle: 3, Completion: 4}.MachineDelays()

	assert.Equal(t, time.Duration(1), d.Submit)
	assert.Equal(t, time.Duration(3), d.Settle)
	assert.Equal(t, time.Duration(4), d.Completion)
}

func TestEnvironmentLookup(t *testing.T) {
	cfg := Default()

	env, ok := cfg.Environment("prod")
	require.True(t, ok)
	assert.Equal(t, "Production", env.DisplayName)

	_, ok = cfg.Environment("qa")
	assert.False(t, ok)
}

func TestDefaultEnvironmentName(t *testing.T) {
	assert.Equal(t, "dev", Default().DefaultEnvironmentName())

	cfg := &Config{Environments: []Environment{{Name: "qa"}, {Name: "live"}}}
	assert.Equal(t, "qa", cfg.DefaultEnvironmentName())

	assert.Empty(t, (&Config{}).DefaultEnvironmentName())
}

func TestSupportsDeviceType(t *testing.T) {
	cfg := Default()

	assert.True(t, cfg.SupportsDeviceType("AIQ Core Torque"))
	assert.False(t, cfg.SupportsDeviceType("Toaster"))
}
