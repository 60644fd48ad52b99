// Package provisioning drives the creation of a simulated device.
//
// # Steps
//
// A run executes a fixed, ordered list of steps (see Steps):
//
//   - get-credentials: device certificate and private key
//   - check-enrollment: enrollment lookup
//   - create-enrollment: enrollment with the provisioning service
//   - create-simulator: simulator record
//   - start-simulator: simulator start and hub connection
//
// # Core Types
//
// Machine owns the run state and executes steps strictly in order against a
// Backend. Every run carries a generation; results and timers issued for an
// older generation are discarded, so Cancel and Retry take effect
// immediately even while a backend call is still in flight.
//
// Run is an immutable snapshot of the machine state. The projection helpers
// (HasErrorSteps, AllStepsSuccessful, CurrentStep, Summarize) are pure
// functions over a Run.
//
// Handoff receives control when a run completes or is cancelled.
package provisioning
