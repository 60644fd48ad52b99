// Package dashboard serves the provisioning machine over a JSON HTTP API.
//
// The browser dashboard submits device descriptors, polls the run with its
// progress projections, retries or cancels halted runs and lists the devices
// in the registry. Prometheus metrics are exposed on /metrics.
package dashboard
