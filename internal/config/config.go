package config

import (
	"time"

	"github.com/imamik/devsim/internal/provisioning"
)

// Config holds the application configuration.
type Config struct {
	Environments []Environment `mapstructure:"environments" yaml:"environments"`
	DeviceTypes  []string      `mapstructure:"device_types" yaml:"device_types"`

	Delays  Delays        `mapstructure:"delays" yaml:"delays"`
	Store   StoreConfig   `mapstructure:"store" yaml:"store"`
	Archive ArchiveConfig `mapstructure:"archive" yaml:"archive"`
	Server  ServerConfig  `mapstructure:"server" yaml:"server"`
}

// Environment is a target environment a device can be provisioned into.
type Environment struct {
	Name        string `mapstructure:"name" yaml:"name" json:"name"`
	DisplayName string `mapstructure:"display_name" yaml:"display_name" json:"displayName"`
	IoTHub      string `mapstructure:"iot_hub" yaml:"iot_hub" json:"iotHub,omitempty"`
}

// Delays controls the pacing of a provisioning run.
type Delays struct {
	Submit     time.Duration `mapstructure:"submit" yaml:"submit"`         // Start to first step
	Step       time.Duration `mapstructure:"step" yaml:"step"`             // Simulated latency of each backend call
	Settle     time.Duration `mapstructure:"settle" yaml:"settle"`         // Step success to next step
	Completion time.Duration `mapstructure:"completion" yaml:"completion"` // All green to handoff
}

// StoreConfig locates the device registry.
type StoreConfig struct {
	Path string `mapstructure:"path" yaml:"path"`
}

// ArchiveConfig configures the S3 bucket that receives issued device credentials.
// Access keys are only read from the environment.
type ArchiveConfig struct {
	Enabled   bool   `mapstructure:"enabled" yaml:"enabled"`
	Endpoint  string `mapstructure:"endpoint" yaml:"endpoint"`
	Region    string `mapstructure:"region" yaml:"region"`
	Bucket    string `mapstructure:"bucket" yaml:"bucket"`
	AccessKey string `mapstructure:"-" yaml:"-"`
	SecretKey string `mapstructure:"-" yaml:"-"`
}

// ServerConfig configures the dashboard HTTP server.
type ServerConfig struct {
	Addr string `mapstructure:"addr" yaml:"addr"`
	// SubmitRate is the sustained number of provisioning submissions per second.
	SubmitRate  float64 `mapstructure:"submit_rate" yaml:"submit_rate"`
	SubmitBurst int     `mapstructure:"submit_burst" yaml:"submit_burst"`
}

// Default values.
const (
	DefaultStorePath   = "devsim.db"
	DefaultServerAddr  = "127.0.0.1:8080"
	DefaultSubmitRate  = 1.0
	DefaultSubmitBurst = 3
	DefaultEnvironment = "dev"
)

// DefaultEnvironments returns the environments offered when none are configured.
func DefaultEnvironments() []Environment {
	return []Environment{
		{Name: "dev", DisplayName: "Development", IoTHub: "iothub-dev.azure-devices.net"},
		{Name: "test", DisplayName: "Test", IoTHub: "iothub-test.azure-devices.net"},
		{Name: "prod", DisplayName: "Production", IoTHub: "iothub-prod.azure-devices.net"},
	}
}

// DefaultDelays returns the dashboard pacing.
func DefaultDelays() Delays {
	d := provisioning.DefaultDelays()
	return Delays{
		Submit:     d.Submit,
		Step:       800 * time.Millisecond,
		Settle:     d.Settle,
		Completion: d.Completion,
	}
}

// Default returns a configuration with every default applied.
func Default() *Config {
	cfg := &Config{}
	cfg.applyDefaults()
	return cfg
}

// applyDefaults fills unset fields.
func (c *Config) applyDefaults() {
	if len(c.Environments) == 0 {
		c.Environments = DefaultEnvironments()
	}
	for i := range c.Environments {
		if c.Environments[i].DisplayName == "" {
			c.Environments[i].DisplayName = c.Environments[i].Name
		}
	}
	if len(c.DeviceTypes) == 0 {
		c.DeviceTypes = append([]string(nil), provisioning.DeviceTypes...)
	}

	def := DefaultDelays()
	if c.Delays.Submit == 0 {
		c.Delays.Submit = def.Submit
	}
	if c.Delays.Step == 0 {
		c.Delays.Step = def.Step
	}
	if c.Delays.Settle == 0 {
		c.Delays.Settle = def.Settle
	}
	if c.Delays.Completion == 0 {
		c.Delays.Completion = def.Completion
	}

	if c.Store.Path == "" {
		c.Store.Path = DefaultStorePath
	}
	if c.Server.Addr == "" {
		c.Server.Addr = DefaultServerAddr
	}
	if c.Server.SubmitRate == 0 {
		c.Server.SubmitRate = DefaultSubmitRate
	}
	if c.Server.SubmitBurst == 0 {
		c.Server.SubmitBurst = DefaultSubmitBurst
	}
}

// MachineDelays converts the run pacing for provisioning.WithDelays.
func (d Delays) MachineDelays() provisioning.Delays {
	return provisioning.Delays{
		Submit:     d.Submit,
		Settle:     d.Settle,
		Completion: d.Completion,
	}
}

// Environment returns the environment with the given name.
func (c *Config) Environment(name string) (Environment, bool) {
	for _, env := range c.Environments {
		if env.Name == name {
			return env, true
		}
	}
	return Environment{}, false
}

// EnvironmentNames lists the configured environment names in order.
func (c *Config) EnvironmentNames() []string {
	names := make([]string, len(c.Environments))
	for i, env := range c.Environments {
		names[i] = env.Name
	}
	return names
}

// DefaultEnvironmentName returns "dev" when configured, otherwise the first environment.
func (c *Config) DefaultEnvironmentName() string {
	if _, ok := c.Environment(DefaultEnvironment); ok {
		return DefaultEnvironment
	}
	if len(c.Environments) > 0 {
		return c.Environments[0].Name
	}
	return ""
}

// SupportsDeviceType reports whether t is one of the configured device types.
func (c *Config) SupportsDeviceType(t string) bool {
	for _, dt := range c.DeviceTypes {
		if dt == t {
			return true
		}
	}
	return false
}
