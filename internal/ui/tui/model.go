package tui

import (
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/imamik/devsim/internal/provisioning"
	"github.com/imamik/devsim/internal/ui/benchmarks"
)

// Controller is the part of the provisioning machine the TUI drives.
// *provisioning.Machine satisfies it.
type Controller interface {
	Start(d provisioning.DeviceDescriptor) error
	Retry() error
	Cancel()
}

// Model is the Bubble Tea model for the provisioning progress view.
type Model struct {
	// Submitted device
	Descriptor      provisioning.DeviceDescriptor
	EnvironmentName string

	// Latest machine snapshot
	Run provisioning.Run

	// ETA
	Timings            benchmarks.Timings
	EstimatedRemaining time.Duration
	PerformanceScale   float64
	StartTime          time.Time
	stepStartedAt      time.Time
	stepDurations      []time.Duration

	// Animation
	SpinnerFrame int

	// UI state
	Width  int
	Height int
	Err    error

	// Outcome
	CompletedDevice string
	Cancelled       bool
	Quit            bool

	controller Controller
	now        func() time.Time
}

// NewCreateModel creates a model that starts provisioning d when the program starts.
func NewCreateModel(controller Controller, d provisioning.DeviceDescriptor, environmentName string, timings benchmarks.Timings) Model {
	if environmentName == "" {
		environmentName = d.Environment
	}
	return Model{
		Descriptor:       d,
		EnvironmentName:  environmentName,
		Run:              provisioning.Run{Phase: provisioning.PhaseIdle, Steps: idleSteps()},
		Timings:          timings,
		PerformanceScale: 1.0,
		StartTime:        time.Now(),
		controller:       controller,
		now:              time.Now,
	}
}

func idleSteps() []provisioning.Step {
	defs := provisioning.Steps()
	steps := make([]provisioning.Step, len(defs))
	for i, def := range defs {
		steps[i] = provisioning.Step{
			ID:          def.ID,
			Title:       def.Title,
			Description: def.Description,
			Status:      provisioning.StatusPending,
		}
	}
	return steps
}

// Init implements tea.Model.
func (m Model) Init() tea.Cmd {
	return tea.Batch(tickCmd(), startCmd(m.controller, m.Descriptor))
}

// Update implements tea.Model.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "q", "ctrl+c":
			m.Quit = true
			return m, tea.Quit
		case "r":
			if m.canRetry() {
				return m, retryCmd(m.controller)
			}
		case "c":
			if m.Run.Active {
				return m, cancelCmd(m.controller)
			}
		}

	case tea.WindowSizeMsg:
		m.Width = msg.Width
		m.Height = msg.Height

	case RunMsg:
		m.observe(msg.Run)

	case HandoffMsg:
		m.CompletedDevice = msg.DeviceID
		m.EstimatedRemaining = 0
		return m, tea.Quit

	case CancelledMsg:
		m.Cancelled = true
		return m, tea.Quit

	case TickMsg:
		m.SpinnerFrame++
		m.updateETA()
		return m, tickCmd()

	case ErrMsg:
		m.Err = msg.Err
		return m, tea.Quit
	}

	return m, nil
}

// canRetry reports whether the retry key does anything.
func (m Model) canRetry() bool {
	return m.Run.Phase == provisioning.PhaseHalted
}

// observe folds a machine snapshot into the model.
func (m *Model) observe(r provisioning.Run) {
	// The handoff resets the machine to idle right before Completed fires;
	// keep the finished run on screen.
	if r.Phase == provisioning.PhaseIdle && m.Run.ID != "" {
		return
	}

	now := m.now()
	if r.ID != m.Run.ID {
		m.stepDurations = nil
		m.stepStartedAt = time.Time{}
	}

	for i, step := range r.Steps {
		var prev provisioning.StepStatus
		if r.ID == m.Run.ID && i < len(m.Run.Steps) {
			prev = m.Run.Steps[i].Status
		}
		switch {
		case step.Status == provisioning.StatusLoading && prev != provisioning.StatusLoading:
			m.stepStartedAt = now
		case step.Status == provisioning.StatusSuccess && prev == provisioning.StatusLoading:
			if !m.stepStartedAt.IsZero() {
				m.stepDurations = append(m.stepDurations, now.Sub(m.stepStartedAt))
			}
		}
	}

	m.Run = r
	m.updateETA()
}

// updateETA recomputes the estimate from the current snapshot.
func (m *Model) updateETA() {
	var elapsed time.Duration
	if step, ok := provisioning.CurrentStep(m.Run); ok && step.Status == provisioning.StatusLoading && !m.stepStartedAt.IsZero() {
		elapsed = m.now().Sub(m.stepStartedAt)
	}
	m.PerformanceScale = benchmarks.PerformanceScale(elapsed, m.Timings, m.stepDurations)
	m.EstimatedRemaining = benchmarks.EstimateRemainingWithScale(m.Run, elapsed, m.Timings, m.PerformanceScale)
}

// Machine calls run in commands: the machine notifies its listener while
// holding its emit lock, so calling it from Update would deadlock.

func startCmd(c Controller, d provisioning.DeviceDescriptor) tea.Cmd {
	return func() tea.Msg {
		if err := c.Start(d); err != nil {
			return ErrMsg{Err: err}
		}
		return nil
	}
}

func retryCmd(c Controller) tea.Cmd {
	return func() tea.Msg {
		if err := c.Retry(); err != nil {
			return ErrMsg{Err: err}
		}
		return nil
	}
}

func cancelCmd(c Controller) tea.Cmd {
	return func() tea.Msg {
		c.Cancel()
		return nil
	}
}

func tickCmd() tea.Cmd {
	return tea.Tick(250*time.Millisecond, func(_ time.Time) tea.Msg {
		return TickMsg{}
	})
}

// View implements tea.Model.
func (m Model) View() string {
	return renderView(m)
}
