package tracer

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	dErrors "salesgate/pkg/domain-errors"
)

// InstrumentationName is the otel scope used when no tracer is injected.
const InstrumentationName = "salesgate/auth"

// AttrErrorCode carries the domain error code of a failed span.
const AttrErrorCode = "error.code"

type OTelTracer struct {
	tracer trace.Tracer
}

type OTelOption func(*OTelTracer)

func WithOTelTracer(t trace.Tracer) OTelOption {
	return func(o *OTelTracer) {
		o.tracer = t
	}
}

// NewOTel uses the global tracer provider unless a tracer is injected, so
// spans are dropped until the process installs a provider.
func NewOTel(opts ...OTelOption) *OTelTracer {
	t := &OTelTracer{}
	for _, opt := range opts {
		opt(t)
	}
	if t.tracer == nil {
		t.tracer = otel.Tracer(InstrumentationName)
	}
	return t
}

func (t *OTelTracer) Start(ctx context.Context, name string, attrs ...Attribute) (context.Context, Span) {
	ctx, span := t.tracer.Start(ctx, name, trace.WithAttributes(attrs...))
	return ctx, otelSpan{span}
}

type otelSpan struct {
	trace.Span
}

// End marks failures with the domain code. Expected refusals such as
// invalid credentials are still errors from the span's point of view.
func (s otelSpan) End(err error) {
	if err != nil {
		s.RecordError(err)
		s.Span.SetAttributes(String(AttrErrorCode, string(dErrors.CodeOf(err))))
		s.SetStatus(codes.Error, err.Error())
	}
	s.Span.End()
}

func (s otelSpan) SetAttributes(attrs ...Attribute) {
	s.Span.SetAttributes(attrs...)
}

func (s otelSpan) AddEvent(name string, attrs ...Attribute) {
	s.Span.AddEvent(name, trace.WithAttributes(attrs...))
}

var (
	_ Tracer = (*OTelTracer)(nil)
	_ Span   = otelSpan{}
)
