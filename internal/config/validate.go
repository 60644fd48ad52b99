package config

import (
	"fmt"
	"net"
	"strings"
	"time"
)

// Validate checks the configuration for common errors and returns a detailed error if validation fails.
func (c *Config) Validate() error {
	if err := c.validateEnvironments(); err != nil {
		return fmt.Errorf("environment validation failed: %w", err)
	}
	if err := c.validateDeviceTypes(); err != nil {
		return fmt.Errorf("device type validation failed: %w", err)
	}
	if err := c.validateDelays(); err != nil {
		return fmt.Errorf("delay validation failed: %w", err)
	}
	if err := c.validateArchive(); err != nil {
		return fmt.Errorf("archive validation failed: %w", err)
	}
	if err := c.validateServer(); err != nil {
		return fmt.Errorf("server validation failed: %w", err)
	}
	return nil
}

func (c *Config) validateEnvironments() error {
	if len(c.Environments) == 0 {
		return fmt.Errorf("at least one environment is required")
	}
	seen := make(map[string]bool, len(c.Environments))
	for i, env := range c.Environments {
		name := strings.TrimSpace(env.Name)
		if name == "" {
			return fmt.Errorf("environment %d has no name", i)
		}
		if strings.ContainsAny(name, "/ ") {
			return fmt.Errorf("environment name %q must not contain spaces or slashes", name)
		}
		if seen[name] {
			return fmt.Errorf("duplicate environment %q", name)
		}
		seen[name] = true
	}
	return nil
}

func (c *Config) validateDeviceTypes() error {
	if len(c.DeviceTypes) == 0 {
		return fmt.Errorf("at least one device type is required")
	}
	for _, t := range c.DeviceTypes {
		if strings.TrimSpace(t) == "" {
			return fmt.Errorf("device types must not be empty")
		}
	}
	return nil
}

func (c *Config) validateDelays() error {
	delays := []struct {
		name string
		d    time.Duration
	}{
		{"submit", c.Delays.Submit},
		{"step", c.Delays.Step},
		{"settle", c.Delays.Settle},
		{"completion", c.Delays.Completion},
	}
	for _, delay := range delays {
		if delay.d < 0 {
			return fmt.Errorf("%s delay must not be negative", delay.name)
		}
	}
	return nil
}

func (c *Config) validateArchive() error {
	if !c.Archive.Enabled {
		return nil
	}
	if c.Archive.Bucket == "" {
		return fmt.Errorf("bucket is required when the archive is enabled")
	}
	if c.Archive.Endpoint == "" {
		return fmt.Errorf("endpoint is required when the archive is enabled")
	}
	if c.Archive.Region == "" {
		return fmt.Errorf("region is required when the archive is enabled")
	}
	if c.Archive.AccessKey == "" || c.Archive.SecretKey == "" {
		return fmt.Errorf("%s and %s must be set when the archive is enabled", EnvS3AccessKey, EnvS3SecretKey)
	}
	return nil
}

func (c *Config) validateServer() error {
	if _, _, err := net.SplitHostPort(c.Server.Addr); err != nil {
		return fmt.Errorf("invalid addr %q: %w", c.Server.Addr, err)
	}
	if c.Server.SubmitRate < 0 {
		return fmt.Errorf("submit_rate must not be negative")
	}
	if c.Server.SubmitBurst < 1 {
		return fmt.Errorf("submit_burst must be at least 1")
	}
	return nil
}
