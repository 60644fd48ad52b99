package config

import (
	"os"
	"strconv"
	"time"
)

// Environment variables that override the file.
const (
	EnvDelaySubmit     = "DEVSIM_DELAY_SUBMIT"
	EnvDelayStep       = "DEVSIM_DELAY_STEP"
	EnvDelaySettle     = "DEVSIM_DELAY_SETTLE"
	EnvDelayCompletion = "DEVSIM_DELAY_COMPLETION"
	EnvStorePath       = "DEVSIM_STORE_PATH"
	EnvServerAddr      = "DEVSIM_SERVER_ADDR"
	EnvSubmitRate      = "DEVSIM_SUBMIT_RATE"
	EnvS3AccessKey     = "DEVSIM_S3_ACCESS_KEY"
	EnvS3SecretKey     = "DEVSIM_S3_SECRET_KEY"
)

// ApplyEnv overrides cfg from environment variables.
// If a variable is not set or invalid, the current value is kept.
//
// Environment Variables:
//   - DEVSIM_DELAY_SUBMIT (default: 100ms)
//   - DEVSIM_DELAY_STEP (default: 800ms)
//   - DEVSIM_DELAY_SETTLE (default: 500ms)
//   - DEVSIM_DELAY_COMPLETION (default: 3s)
//   - DEVSIM_STORE_PATH (default: devsim.db)
//   - DEVSIM_SERVER_ADDR (default: 127.0.0.1:8080)
//   - DEVSIM_SUBMIT_RATE (default: 1)
//   - DEVSIM_S3_ACCESS_KEY, DEVSIM_S3_SECRET_KEY
func ApplyEnv(cfg *Config) {
	cfg.Delays.Submit = parseDuration(EnvDelaySubmit, cfg.Delays.Submit)
	cfg.Delays.Step = parseDuration(EnvDelayStep, cfg.Delays.Step)
	cfg.Delays.Settle = parseDuration(EnvDelaySettle, cfg.Delays.Settle)
	cfg.Delays.Completion = parseDuration(EnvDelayCompletion, cfg.Delays.Completion)

	cfg.Store.Path = parseString(EnvStorePath, cfg.Store.Path)
	cfg.Server.Addr = parseString(EnvServerAddr, cfg.Server.Addr)
	cfg.Server.SubmitRate = parseFloat(EnvSubmitRate, cfg.Server.SubmitRate)

	cfg.Archive.AccessKey = parseString(EnvS3AccessKey, cfg.Archive.AccessKey)
	cfg.Archive.SecretKey = parseString(EnvS3SecretKey, cfg.Archive.SecretKey)
}

// parseDuration parses a duration from an environment variable.
// Negative durations are rejected. Overrides are applied after the file
// defaults, so an explicit zero here removes the pause, while a zero delay in
// the config file counts as unset.
func parseDuration(envVar string, defaultVal time.Duration) time.Duration {
	val := os.Getenv(envVar)
	if val == "" {
		return defaultVal
	}

	d, err := time.ParseDuration(val)
	if err != nil || d < 0 {
		return defaultVal
	}

	return d
}

func parseFloat(envVar string, defaultVal float64) float64 {
	val := os.Getenv(envVar)
	if val == "" {
		return defaultVal
	}

	f, err := strconv.ParseFloat(val, 64)
	if err != nil || f <= 0 {
		return defaultVal
	}

	return f
}

func parseString(envVar, defaultVal string) string {
	if val := os.Getenv(envVar); val != "" {
		return val
	}
	return defaultVal
}
