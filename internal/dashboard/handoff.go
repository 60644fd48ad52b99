package dashboard

import (
	"sync"
	"time"

	"github.com/benbjohnson/clock"
)

// HandoffRecord is the last device handed to the device monitor.
type HandoffRecord struct {
	DeviceID string    `json:"deviceId"`
	At       time.Time `json:"at"`
}

// Handoffs implements provisioning.Handoff for the dashboard. The browser
// polls the run and navigates to the device monitor once a new record appears.
type Handoffs struct {
	clock clock.Clock

	mu        sync.Mutex
	last      *HandoffRecord
	completed int
	cancelled int
}

// NewHandoffs creates a recorder. A nil clock uses the wall clock.
func NewHandoffs(c clock.Clock) *Handoffs {
	if c == nil {
		c = clock.New()
	}
	return &Handoffs{clock: c}
}

// Completed implements provisioning.Handoff.
func (h *Handoffs) Completed(deviceID string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.last = &HandoffRecord{DeviceID: deviceID, At: h.clock.Now()}
	h.completed++
}

// Cancelled implements provisioning.Handoff.
func (h *Handoffs) Cancelled() {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.cancelled++
}

// Last returns the most recent handoff.
func (h *Handoffs) Last() (HandoffRecord, bool) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.last == nil {
		return HandoffRecord{}, false
	}
	return *h.last, true
}

// Counts returns how many runs were handed off and cancelled.
func (h *Handoffs) Counts() (completed, cancelled int) {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.completed, h.cancelled
}
