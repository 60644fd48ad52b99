package provisioning

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/google/uuid"
	"go.opentelemetry.io/otel/trace"
)

// Delays are the fixed pauses between the scheduled continuations of a run.
type Delays struct {
	// Submit is the pause between Start and the first step.
	Submit time.Duration
	// Settle is the pause between a step's success and the next step's start.
	Settle time.Duration
	// Completion keeps the all-green state visible before the handoff fires.
	Completion time.Duration
}

// DefaultDelays returns the dashboard's pacing.
func DefaultDelays() Delays {
	return Delays{
		Submit:     100 * time.Millisecond,
		Settle:     500 * time.Millisecond,
		Completion: 3 * time.Second,
	}
}

// Option configures a Machine.
type Option func(*Machine)

// WithClock sets the clock used for scheduling and step timing.
func WithClock(c clock.Clock) Option {
	return func(m *Machine) {
		m.clock = c
	}
}

// WithDelays sets the continuation delays.
func WithDelays(d Delays) Option {
	return func(m *Machine) {
		m.delays = d
	}
}

// WithObserver sets the event observer.
func WithObserver(o Observer) Option {
	return func(m *Machine) {
		m.observer = o
	}
}

// WithTracer sets the tracer for run and step spans.
func WithTracer(t trace.Tracer) Option {
	return func(m *Machine) {
		m.tracer = t
	}
}

// WithMetrics enables recording into Registry.
func WithMetrics(enabled bool) Option {
	return func(m *Machine) {
		m.enableMetrics = enabled
	}
}

// WithListener registers a function that receives a snapshot after every transition.
// Snapshots are delivered in transition order. The listener may call Snapshot but
// must not call Start, Retry or Cancel synchronously.
func WithListener(fn func(Run)) Option {
	return func(m *Machine) {
		m.listener = fn
	}
}

// WithContext sets the parent context of backend calls. Cancel and Retry
// do not cancel it; in-flight calls run to completion and are discarded.
func WithContext(ctx context.Context) Option {
	return func(m *Machine) {
		m.ctx = ctx
	}
}

// Machine drives provisioning runs. It is safe for concurrent use.
type Machine struct {
	backend       Backend
	handoff       Handoff
	clock         clock.Clock
	delays        Delays
	observer      Observer
	events        Observer // observer scoped to the current run
	tracer        trace.Tracer
	enableMetrics bool
	listener      func(Run)
	ctx           context.Context

	mu         sync.Mutex
	emitMu     sync.Mutex
	gen        uint64
	run        Run
	descriptor *DeviceDescriptor
	outputs    stepOutputs
	trace      runTrace
	timer      *clock.Timer
}

// NewMachine creates an idle machine.
func NewMachine(backend Backend, handoff Handoff, opts ...Option) *Machine {
	m := &Machine{
		backend:  backend,
		handoff:  handoff,
		clock:    clock.New(),
		delays:   DefaultDelays(),
		observer: NewDiscardObserver(),
		tracer:   defaultTracer(),
		ctx:      context.Background(),
	}
	for _, opt := range opts {
		opt(m)
	}
	if m.handoff == nil {
		m.handoff = HandoffFuncs{}
	}
	m.events = m.observer
	m.run = newIdleRun(0)
	return m
}

// Snapshot returns a copy of the current run.
func (m *Machine) Snapshot() Run {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.run.clone()
}

// Start begins a new run for d. A descriptor without a device id, type or
// environment is rejected with ErrInvalidDescriptor and leaves the machine untouched.
// Starting while another run is in progress supersedes it.
func (m *Machine) Start(d DeviceDescriptor) error {
	if err := d.Validate(); err != nil {
		return err
	}

	m.mu.Lock()
	m.begin(d, EventRunStarted)
	m.unlockAndNotify()
	return nil
}

// Retry restarts the last submitted descriptor from the first step.
func (m *Machine) Retry() error {
	m.mu.Lock()
	if m.descriptor == nil {
		m.mu.Unlock()
		return ErrNothingToRetry
	}
	m.begin(*m.descriptor, EventRunRetried)
	m.unlockAndNotify()
	return nil
}

// Cancel abandons the current run and resets to idle. A backend call that is
// still in flight completes in the background and its result is discarded.
func (m *Machine) Cancel() {
	m.mu.Lock()
	prev := m.run.Phase
	env := m.run.Descriptor.Environment

	m.trace.abort(resultCancelled)
	m.reset()

	m.observer.Event(Event{
		Type:       EventRunCancelled,
		Generation: m.gen,
		Message:    "run cancelled",
		Fields:     map[string]string{"previous_phase": string(prev)},
	})
	// A halted run was already counted when it halted.
	if prev == PhaseRunning || prev == PhaseCompleted {
		m.recordRun(env, resultCancelled)
	}
	m.unlockAndNotify()

	m.handoff.Cancelled()
}

// begin replaces the current run with a fresh one for d and schedules step 0.
// Must be called with mu held.
func (m *Machine) begin(d DeviceDescriptor, eventType EventType) {
	if m.run.Active {
		m.trace.abort("superseded")
	}
	m.stopTimer()

	m.gen++
	gen := m.gen
	desc := d
	m.descriptor = &desc
	m.outputs = stepOutputs{}

	m.run = newIdleRun(gen)
	m.run.ID = uuid.NewString()
	m.run.Phase = PhaseRunning
	m.run.Active = true
	m.run.Descriptor = d
	m.run.StartedAt = m.clock.Now()

	m.trace = startRunTrace(m.ctx, m.tracer, m.run)
	m.events = m.observer.WithFields(map[string]string{
		"run_id":    m.run.ID,
		"device_id": d.DeviceID,
	})

	m.events.Event(Event{
		Type:       eventType,
		Generation: gen,
		Message:    "provisioning " + d.DeviceID,
		Fields: map[string]string{
			"type":        d.Type,
			"environment": d.Environment,
		},
	})
	m.recordActive(true)

	m.schedule(m.delays.Submit, func() { m.executeStep(gen, 0) })
}

// reset discards the current run. Must be called with mu held.
func (m *Machine) reset() {
	m.stopTimer()
	m.gen++
	m.outputs = stepOutputs{}
	m.trace = runTrace{}
	m.events = m.observer
	m.run = newIdleRun(m.gen)
	m.recordActive(false)
}

func (m *Machine) schedule(d time.Duration, fn func()) {
	m.timer = m.clock.AfterFunc(d, fn)
}

func (m *Machine) stopTimer() {
	if m.timer != nil {
		m.timer.Stop()
		m.timer = nil
	}
}

// unlockAndNotify releases mu and hands a snapshot to the listener.
// emitMu is taken before mu is released so notifications keep transition order.
func (m *Machine) unlockAndNotify() {
	snap := m.run.clone()
	m.emitMu.Lock()
	m.mu.Unlock()
	if m.listener != nil {
		m.listener(snap)
	}
	m.emitMu.Unlock()
}

// executeStep marks step i loading and issues its backend call.
func (m *Machine) executeStep(gen uint64, i int) {
	m.mu.Lock()
	if gen != m.gen || m.run.Phase != PhaseRunning {
		current := m.gen
		m.mu.Unlock()
		logStale(m.observer, gen, current, stepDefinitions[i].ID, "timer")
		m.recordStale()
		return
	}

	def := stepDefinitions[i]
	m.timer = nil
	m.run.Steps[i].Status = StatusLoading
	m.run.Steps[i].Error = ""
	m.run.CurrentStepIndex = i

	d := m.run.Descriptor
	var device *DeviceRecord
	if m.outputs.device != nil {
		cp := *m.outputs.device
		device = &cp
	}
	stepCtx, span := m.trace.startStep(m.ctx, def.ID, i)
	started := m.clock.Now()

	logStepLoading(m.events, gen, def.ID)
	m.unlockAndNotify()

	go func() {
		out, err := m.invoke(stepCtx, def.ID, d, device)
		m.complete(gen, i, out, err, m.clock.Since(started), span)
	}()
}

// errNoSimulator is returned when start-simulator runs without a created device.
var errNoSimulator = errors.New("no simulator has been created")

// invoke calls the backend operation behind a step.
func (m *Machine) invoke(ctx context.Context, id string, d DeviceDescriptor, device *DeviceRecord) (stepOutputs, error) {
	var (
		out stepOutputs
		err error
	)
	switch id {
	case StepGetCredentials:
		out.credentials, err = m.backend.GetCredentials(ctx, d)
	case StepCheckEnrollment:
		out.enrollment, err = m.backend.CheckEnrollment(ctx, d)
	case StepCreateEnrollment:
		err = m.backend.CreateEnrollment(ctx, d)
	case StepCreateSimulator:
		out.device, err = m.backend.CreateSimulator(ctx, d)
	case StepStartSimulator:
		if device == nil {
			return out, errNoSimulator
		}
		err = m.backend.StartSimulator(ctx, device)
	}
	return out, err
}

// complete applies a backend result for step i of generation gen.
func (m *Machine) complete(gen uint64, i int, out stepOutputs, err error, elapsed time.Duration, span trace.Span) {
	def := stepDefinitions[i]

	m.mu.Lock()
	if gen != m.gen || m.run.Phase != PhaseRunning || m.run.Steps[i].Status != StatusLoading {
		current := m.gen
		m.mu.Unlock()
		endStepSpan(span, err, true)
		logStale(m.observer, gen, current, def.ID, "result")
		m.recordStale()
		return
	}

	env := m.run.Descriptor.Environment

	if err != nil {
		stepErr := newStepError(def.ID, err)
		m.run.Steps[i].Status = StatusError
		m.run.Steps[i].Error = stepErr.Message
		m.run.Phase = PhaseHalted
		m.run.Failure = stepErr

		endStepSpan(span, err, false)
		m.trace.end(stepErr)
		logStepFailed(m.events, gen, stepErr)
		m.events.Event(Event{
			Type:       EventRunHalted,
			Step:       def.ID,
			Generation: gen,
			Message:    "run halted, waiting for retry or cancel",
		})
		m.recordStep(def.ID, elapsed.Seconds(), true)
		m.recordRun(env, resultHalted)
		m.unlockAndNotify()
		return
	}

	m.run.Steps[i].Status = StatusSuccess
	m.mergeOutputs(out)

	endStepSpan(span, nil, false)
	logStepSucceeded(m.events, gen, def.ID, elapsed)
	m.events.Progress(def.ID, CompletedSteps(m.run), StepCount)
	m.recordStep(def.ID, elapsed.Seconds(), false)

	if next := i + 1; next < StepCount {
		m.run.CurrentStepIndex = next
		m.schedule(m.delays.Settle, func() { m.executeStep(gen, next) })
	} else {
		m.onAllStepsComplete(gen)
	}
	m.unlockAndNotify()
}

// mergeOutputs keeps the results later steps need. Must be called with mu held.
func (m *Machine) mergeOutputs(out stepOutputs) {
	if out.credentials != nil {
		m.outputs.credentials = out.credentials
	}
	if out.enrollment != nil {
		m.outputs.enrollment = out.enrollment
	}
	if out.device != nil {
		m.outputs.device = out.device
		d := *out.device
		m.run.Device = &d
	}
}

// onAllStepsComplete marks the run completed and schedules the handoff.
// Must be called with mu held, once per generation.
func (m *Machine) onAllStepsComplete(gen uint64) {
	m.run.Phase = PhaseCompleted
	m.trace.end(nil)
	m.events.Event(Event{
		Type:       EventRunCompleted,
		Generation: gen,
		Message:    "all steps completed",
	})
	m.recordRun(m.run.Descriptor.Environment, resultCompleted)

	m.schedule(m.delays.Completion, func() { m.handOff(gen) })
}

// handOff resets the completed run and passes control to the handoff target.
func (m *Machine) handOff(gen uint64) {
	m.mu.Lock()
	if gen != m.gen || m.run.Phase != PhaseCompleted {
		current := m.gen
		m.mu.Unlock()
		logStale(m.observer, gen, current, "", "handoff")
		m.recordStale()
		return
	}

	deviceID := m.run.Descriptor.DeviceID
	m.timer = nil
	m.reset()
	m.observer.Event(Event{
		Type:       EventHandoff,
		Generation: gen,
		Message:    "opening device monitor",
		Fields:     map[string]string{"device_id": deviceID},
	})
	m.unlockAndNotify()

	m.handoff.Completed(deviceID)
}
