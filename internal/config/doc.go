// Package config defines the devsim configuration model.
//
// A [Config] is built from built-in defaults, an optional YAML file and
// DEVSIM_* environment overrides, in that order. It lists the environments
// a simulator can be provisioned into, the device types offered, the
// pacing of a provisioning run, the device registry location, the optional
// S3 credential archive, and the dashboard server settings.
package config
