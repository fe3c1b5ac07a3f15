package apm

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// Span is the subset of trace.Span the services use.
type Span interface {
	SetAttributes(values ...attribute.KeyValue)
	AddEvent(name string, options ...trace.EventOption)
	SetStatus(code codes.Code, description string)
	NoticeError(err error)
	SpanContext() trace.SpanContext
	End(options ...trace.SpanEndOption)
}

// Tracer starts spans against the global tracer provider.
type Tracer interface {
	StartSpanFromContext(ctx context.Context, spanName string, opts ...trace.SpanStartOption) (context.Context, Span)
	SpanFromContext(ctx context.Context) Span
}

type traceSpan struct {
	trace.Span
}

// NoticeError records err and marks the span failed.
func (t traceSpan) NoticeError(err error) {
	t.RecordError(err)
	t.SetStatus(codes.Error, err.Error())
}

type openTracer struct {
	name string
}

// NewTracer returns a Tracer for the named instrumentation scope. The global
// provider is resolved on every span so that a provider installed after
// construction is honoured.
func NewTracer(name string) Tracer {
	return openTracer{name: name}
}

func (t openTracer) StartSpanFromContext(ctx context.Context, name string, opts ...trace.SpanStartOption) (context.Context, Span) {
	ctx, span := otel.Tracer(t.name).Start(ctx, name, opts...)
	return ctx, traceSpan{span}
}

func (t openTracer) SpanFromContext(ctx context.Context) Span {
	return traceSpan{trace.SpanFromContext(ctx)}
}

// TraceID returns the trace id carried by ctx, or "" when there is none.
// It matches logger.TraceIDFn.
func TraceID(ctx context.Context) string {
	sc := trace.SpanContextFromContext(ctx)
	if !sc.HasTraceID() {
		return ""
	}
	return sc.TraceID().String()
}
