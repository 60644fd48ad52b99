package handlers

import (
	"context"
	"time"

	"github.com/go-logr/logr"
	"go.opentelemetry.io/otel/codes"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"

	"github.com/imamik/devsim/internal/provisioning"
)

// newTracerProvider returns a provider that logs every finished run and step
// span at V(1), so -vv shows where a run spent its time.
func newTracerProvider(logger logr.Logger) *sdktrace.TracerProvider {
	return sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(&spanLogger{logger: logger}))
}

// tracerOption points the machine at provider.
func tracerOption(provider *sdktrace.TracerProvider) provisioning.Option {
	return provisioning.WithTracer(provider.Tracer(provisioning.TracerName))
}

func shutdownTracer(provider *sdktrace.TracerProvider) {
	_ = provider.Shutdown(context.Background())
}

// spanLogger is a span processor that writes ended spans to a logger.
type spanLogger struct {
	logger logr.Logger
}

func (p *spanLogger) OnStart(context.Context, sdktrace.ReadWriteSpan) {}

func (p *spanLogger) OnEnd(span sdktrace.ReadOnlySpan) {
	kv := []interface{}{
		"span", span.Name(),
		"duration", span.EndTime().Sub(span.StartTime()).Round(time.Millisecond).String(),
	}
	if status := span.Status(); status.Code == codes.Error {
		kv = append(kv, "error", status.Description)
	}

	msg := "step span"
	if !span.Parent().IsValid() {
		msg = "run span"
	}
	p.logger.V(1).Info(msg, kv...)
}

func (p *spanLogger) Shutdown(context.Context) error {
	return nil
}

func (p *spanLogger) ForceFlush(context.Context) error {
	return nil
}
