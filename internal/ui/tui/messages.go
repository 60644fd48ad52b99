// Package tui provides a Bubble Tea-based terminal UI for device provisioning.
package tui

import "github.com/imamik/devsim/internal/provisioning"

// RunMsg carries the latest snapshot of the provisioning run.
type RunMsg struct {
	Run provisioning.Run
}

// HandoffMsg signals that the run completed and the device monitor takes over.
type HandoffMsg struct {
	DeviceID string
}

// CancelledMsg signals that the run was cancelled.
type CancelledMsg struct{}

// TickMsg is sent periodically to refresh the display.
type TickMsg struct{}

// ErrMsg carries an error.
type ErrMsg struct{ Err error }
