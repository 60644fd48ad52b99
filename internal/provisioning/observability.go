package provisioning

import (
	"fmt"
	"sort"
	"time"

	"github.com/go-logr/logr"
)

// Observer defines the interface for structured observability during provisioning.
type Observer interface {
	// Event emits a structured event
	Event(event Event)

	// Progress reports how many steps of a run have succeeded
	Progress(step string, current, total int)

	// WithFields returns a new Observer with additional context fields
	WithFields(fields map[string]string) Observer
}

// Event represents a structured provisioning event.
type Event struct {
	Type       EventType         // Type of event
	Step       string            // Step id, empty for run-level events
	Generation uint64            // Run generation the event belongs to
	Message    string            // Human-readable message
	Timestamp  time.Time         // When the event occurred
	Fields     map[string]string // Additional contextual fields
}

// EventType represents the type of provisioning event.
type EventType string

const (
	// EventRunStarted indicates a run was initialized.
	EventRunStarted EventType = "run.started"
	// EventRunRetried indicates a halted or running run was restarted from step 0.
	EventRunRetried EventType = "run.retried"
	// EventRunHalted indicates a step failed and the run stopped advancing.
	EventRunHalted EventType = "run.halted"
	// EventRunCompleted indicates every step succeeded.
	EventRunCompleted EventType = "run.completed"
	// EventRunCancelled indicates the run was cancelled.
	EventRunCancelled EventType = "run.cancelled"

	// EventStepLoading indicates a step's backend call was issued.
	EventStepLoading EventType = "step.loading"
	// EventStepSucceeded indicates a step completed.
	EventStepSucceeded EventType = "step.succeeded"
	// EventStepFailed indicates a step failed.
	EventStepFailed EventType = "step.failed"

	// EventStaleResult indicates a result or timer from an older generation was dropped.
	EventStaleResult EventType = "result.stale"
	// EventHandoff indicates control was handed to the device monitor.
	EventHandoff EventType = "handoff"

	// EventProgress indicates progress in a run.
	EventProgress EventType = "progress"
)

// LogObserver implements Observer on top of a logr.Logger.
type LogObserver struct {
	logger logr.Logger
	fields map[string]string
}

// NewLogObserver creates an observer that writes to logger.
func NewLogObserver(logger logr.Logger) *LogObserver {
	return &LogObserver{
		logger: logger,
		fields: make(map[string]string),
	}
}

// NewDiscardObserver creates an observer that drops everything.
func NewDiscardObserver() *LogObserver {
	return NewLogObserver(logr.Discard())
}

// Event implements Observer.
func (o *LogObserver) Event(event Event) {
	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now()
	}

	kv := []interface{}{"event", string(event.Type), "generation", event.Generation}
	if event.Step != "" {
		kv = append(kv, "step", event.Step)
	}
	kv = append(kv, o.keysAndValues(event.Fields)...)

	switch event.Type {
	case EventStepFailed, EventRunHalted:
		o.logger.Info(event.Message, kv...)
	case EventStaleResult:
		o.logger.V(1).Info(event.Message, kv...)
	default:
		o.logger.Info(event.Message, kv...)
	}
}

// Progress implements Observer.
func (o *LogObserver) Progress(step string, current, total int) {
	if total == 0 {
		o.logger.V(1).Info("progress", "step", step, "current", current, "total", total)
		return
	}
	o.logger.V(1).Info("progress", "step", step, "current", current, "total", total,
		"percent", (current*100)/total)
}

// WithFields implements Observer.
func (o *LogObserver) WithFields(fields map[string]string) Observer {
	merged := make(map[string]string, len(o.fields)+len(fields))
	for k, v := range o.fields {
		merged[k] = v
	}
	for k, v := range fields {
		merged[k] = v
	}
	return &LogObserver{logger: o.logger, fields: merged}
}

// keysAndValues flattens context and event fields in a stable order.
// Event fields win over context fields with the same key.
func (o *LogObserver) keysAndValues(extra map[string]string) []interface{} {
	merged := make(map[string]string, len(o.fields)+len(extra))
	for k, v := range o.fields {
		merged[k] = v
	}
	for k, v := range extra {
		merged[k] = v
	}

	keys := make([]string, 0, len(merged))
	for k := range merged {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	kv := make([]interface{}, 0, len(keys)*2)
	for _, k := range keys {
		kv = append(kv, k, merged[k])
	}
	return kv
}

// Helper functions for common events

func logStepLoading(observer Observer, gen uint64, step string) {
	observer.Event(Event{
		Type:       EventStepLoading,
		Step:       step,
		Generation: gen,
		Message:    "starting",
	})
}

func logStepSucceeded(observer Observer, gen uint64, step string, duration time.Duration) {
	observer.Event(Event{
		Type:       EventStepSucceeded,
		Step:       step,
		Generation: gen,
		Message:    fmt.Sprintf("completed in %v", duration.Round(time.Millisecond)),
	})
}

func logStepFailed(observer Observer, gen uint64, stepErr *StepError) {
	observer.Event(Event{
		Type:       EventStepFailed,
		Step:       stepErr.StepID,
		Generation: gen,
		Message:    "failed",
		Fields:     map[string]string{"error": stepErr.Message},
	})
}

func logStale(observer Observer, gen, current uint64, step, what string) {
	observer.Event(Event{
		Type:       EventStaleResult,
		Step:       step,
		Generation: gen,
		Message:    "discarding stale " + what,
		Fields:     map[string]string{"current_generation": fmt.Sprint(current)},
	})
}
