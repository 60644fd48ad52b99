package provisioning

import (
	"context"
	"strings"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// TracerName is the instrumentation scope of run and step spans.
const TracerName = "github.com/imamik/devsim/internal/provisioning"

// Span attribute keys.
const (
	attrRunID       = "devsim.run.id"
	attrGeneration  = "devsim.run.generation"
	attrDeviceID    = "devsim.device.id"
	attrDeviceType  = "devsim.device.type"
	attrEnvironment = "devsim.environment"
	attrStepID      = "devsim.step.id"
	attrStepIndex   = "devsim.step.index"
	attrStale       = "devsim.step.stale"
	attrOutcome     = "devsim.run.outcome"
)

// runSpanName is the root span of a provisioning run.
const runSpanName = "provisioning.run"

func defaultTracer() trace.Tracer {
	return otel.Tracer(TracerName)
}

// runTrace is the root span of one generation.
type runTrace struct {
	tracer trace.Tracer
	ctx    context.Context
	span   trace.Span
}

func startRunTrace(ctx context.Context, tracer trace.Tracer, r Run) runTrace {
	spanCtx, span := tracer.Start(ctx, runSpanName, trace.WithAttributes(
		attribute.String(attrRunID, r.ID),
		attribute.Int64(attrGeneration, int64(r.Generation)),
		attribute.String(attrDeviceID, r.Descriptor.DeviceID),
		attribute.String(attrDeviceType, r.Descriptor.Type),
		attribute.String(attrEnvironment, r.Descriptor.Environment),
	))
	return runTrace{tracer: tracer, ctx: spanCtx, span: span}
}

// startStep opens a child span for a step. The returned context is handed to the backend.
func (t runTrace) startStep(fallback context.Context, id string, index int) (context.Context, trace.Span) {
	parent := t.ctx
	if parent == nil {
		parent = fallback
	}
	if t.tracer == nil {
		return parent, nil
	}
	return t.tracer.Start(parent, id, trace.WithAttributes(
		attribute.String(attrStepID, id),
		attribute.Int(attrStepIndex, index),
	))
}

// end closes the run span. A nil err marks the run completed.
func (t runTrace) end(err error) {
	if t.span == nil {
		return
	}
	if err != nil {
		t.span.RecordError(err)
		t.span.SetStatus(codes.Error, strings.TrimSpace(err.Error()))
		t.span.SetAttributes(attribute.String(attrOutcome, resultHalted))
	} else {
		t.span.SetAttributes(attribute.String(attrOutcome, resultCompleted))
	}
	t.span.End()
}

// abort closes the run span of a run that was cancelled or superseded.
func (t runTrace) abort(reason string) {
	if t.span == nil || !t.span.IsRecording() {
		return
	}
	t.span.AddEvent(reason)
	t.span.SetAttributes(attribute.String(attrOutcome, reason))
	t.span.End()
}

func endStepSpan(span trace.Span, err error, stale bool) {
	if span == nil {
		return
	}
	if stale {
		span.SetAttributes(attribute.Bool(attrStale, true))
	}
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, strings.TrimSpace(err.Error()))
	}
	span.End()
}
