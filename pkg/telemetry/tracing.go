// Package telemetry wraps an optional OpenTelemetry tracer.
package telemetry

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// InstrumentationName names the tracer mdattach components obtain from the
// global provider.
const InstrumentationName = "github.com/docker/mdattach"

// Tracing starts spans when a tracer is set. A nil *Tracing, or one without
// a tracer, hands back the span already in the context so callers never
// have to check.
type Tracing struct {
	tracer trace.Tracer
}

func NewTracing(tracer trace.Tracer) *Tracing {
	return &Tracing{tracer: tracer}
}

// Global returns a Tracing bound to the global tracer provider.
func Global() *Tracing {
	return NewTracing(otel.Tracer(InstrumentationName))
}

func (t *Tracing) StartSpan(ctx context.Context, name string, opts ...trace.SpanStartOption) (context.Context, trace.Span) {
	if t == nil || t.tracer == nil {
		return ctx, trace.SpanFromContext(ctx)
	}
	return t.tracer.Start(ctx, name, opts...)
}

func (t *Tracing) SetTracer(tracer trace.Tracer) {
	if t != nil {
		t.tracer = tracer
	}
}

func (t *Tracing) HasTracer() bool {
	return t != nil && t.tracer != nil
}

// RecordError marks span as failed. nil errors are ignored.
func RecordError(span trace.Span, err error) {
	if err == nil {
		return
	}
	span.RecordError(err)
	span.SetStatus(codes.Error, err.Error())
}
