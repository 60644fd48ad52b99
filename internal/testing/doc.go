// Package testing provides fakes, builders, and fixtures shared by the devsim tests.
//
// This package centralizes common testing patterns to avoid duplication across test files:
//   - DescriptorBuilder: Fluent builder for device descriptors
//   - MockBackend: testify mock of provisioning.Backend
//   - GatedBackend: Backend whose calls block until the test resolves them
//   - StubBackend: Backend that answers immediately, with optional per-step failures
//   - RecordingHandoff: Handoff that records completions and cancellations
//
// Usage:
//
//	d := testing.NewDescriptorBuilder().
//	    WithDeviceID("ZZ:ZZ:ZZ:AA:BB:CC").
//	    WithEnvironment("dev").
//	    Build()
//
//	backend := testing.NewGatedBackend()
//	call := backend.Next(t)
//	call.Succeed()
package testing
