package tui

import (
	"context"
	"fmt"
	"sync"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/imamik/devsim/internal/provisioning"
)

// Bridge forwards machine notifications into a running program.
// Pass Listener to provisioning.WithListener and the Bridge itself as the
// machine's Handoff. Notifications before the program is attached are dropped.
type Bridge struct {
	mu      sync.Mutex
	program *tea.Program
}

// NewBridge creates an unattached bridge.
func NewBridge() *Bridge {
	return &Bridge{}
}

// Listener sends a run snapshot to the program.
func (b *Bridge) Listener(r provisioning.Run) {
	b.send(RunMsg{Run: r})
}

// Completed implements provisioning.Handoff.
func (b *Bridge) Completed(deviceID string) {
	b.send(HandoffMsg{DeviceID: deviceID})
}

// Cancelled implements provisioning.Handoff.
func (b *Bridge) Cancelled() {
	b.send(CancelledMsg{})
}

func (b *Bridge) attach(p *tea.Program) {
	b.mu.Lock()
	b.program = p
	b.mu.Unlock()
}

func (b *Bridge) send(msg tea.Msg) {
	b.mu.Lock()
	p := b.program
	b.mu.Unlock()
	if p != nil {
		p.Send(msg)
	}
}

// Result is the outcome of an interactive provisioning session.
type Result struct {
	// DeviceID is set when the run completed and was handed off.
	DeviceID string
	// Cancelled is set when the run was cancelled or the user quit mid-run.
	Cancelled bool
	// Run is the last snapshot shown.
	Run provisioning.Run
}

// RunCreateTUI runs the provisioning progress view until the run is handed
// off, cancelled or the user quits. Quitting while the run is active cancels it.
func RunCreateTUI(ctx context.Context, bridge *Bridge, m Model, opts ...tea.ProgramOption) (Result, error) {
	opts = append([]tea.ProgramOption{tea.WithAltScreen(), tea.WithContext(ctx)}, opts...)
	p := tea.NewProgram(m, opts...)
	bridge.attach(p)

	finalModel, err := p.Run()
	bridge.attach(nil)
	if err != nil {
		m.controller.Cancel()
		return Result{Cancelled: true}, fmt.Errorf("TUI error: %w", err)
	}

	fm := finalModel.(Model)
	res := Result{DeviceID: fm.CompletedDevice, Cancelled: fm.Cancelled, Run: fm.Run}
	if fm.Err != nil {
		return res, fm.Err
	}
	if res.DeviceID == "" && !res.Cancelled && fm.Run.Phase != provisioning.PhaseIdle {
		fm.controller.Cancel()
		res.Cancelled = true
	}
	return res, nil
}
