// Package tracing records one trace per pipeline request and one span per stage.
package tracing

import (
	"context"
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// InstrumentationName is the OpenTelemetry tracer name.
const InstrumentationName = "github.com/kailas-cloud/ragpipe"

// maxSnapshotLen caps the size of input/output snapshot attributes.
const maxSnapshotLen = 8192

// Attribute keys.
const (
	AttrInput    = "ragpipe.input"
	AttrOutput   = "ragpipe.output"
	AttrError    = "ragpipe.error"
	attrMetaPref = "ragpipe.metadata."
)

// SpanRecord is a completed stage. Output is ignored when Err is set.
type SpanRecord struct {
	Name     string
	Input    map[string]any
	Output   map[string]any
	Err      error
	Metadata map[string]any
	Start    time.Time
	End      time.Time
}

// Tracer opens request-scoped traces.
type Tracer interface {
	StartTrace(ctx context.Context, name string, input map[string]any) (context.Context, Trace)
}

// Trace is an open request trace. Spans are append-only.
type Trace interface {
	ID() string
	Span(rec SpanRecord)
	End(output map[string]any, err error)
}

// OTelTracer implements Tracer on top of an OpenTelemetry TracerProvider.
type OTelTracer struct {
	tracer trace.Tracer
}

// NewOTelTracer creates a tracer from the given provider.
func NewOTelTracer(tp trace.TracerProvider) *OTelTracer {
	return &OTelTracer{tracer: tp.Tracer(InstrumentationName)}
}

// StartTrace opens the root span.
func (t *OTelTracer) StartTrace(
	ctx context.Context, name string, input map[string]any,
) (context.Context, Trace) {
	ctx, span := t.tracer.Start(ctx, name,
		trace.WithSpanKind(trace.SpanKindInternal),
		trace.WithAttributes(attribute.String(AttrInput, snapshot(input))),
	)

	id := span.SpanContext().TraceID()
	traceID := id.String()
	if !id.IsValid() {
		// no-op providers don't issue ids; callers still need one to correlate logs
		traceID = uuid.NewString()
	}

	return ctx, &otelTrace{ctx: ctx, tracer: t.tracer, root: span, id: traceID}
}

type otelTrace struct {
	ctx    context.Context
	tracer trace.Tracer
	root   trace.Span
	id     string
}

func (t *otelTrace) ID() string { return t.id }

func (t *otelTrace) Span(rec SpanRecord) {
	opts := []trace.SpanStartOption{trace.WithAttributes(attribute.String(AttrInput, snapshot(rec.Input)))}
	if !rec.Start.IsZero() {
		opts = append(opts, trace.WithTimestamp(rec.Start))
	}
	_, span := t.tracer.Start(t.ctx, rec.Name, opts...)

	span.SetAttributes(metadataAttrs(rec.Metadata)...)
	if rec.Err != nil {
		markError(span, rec.Err)
	} else {
		span.SetAttributes(attribute.String(AttrOutput, snapshot(rec.Output)))
	}

	if rec.End.IsZero() {
		span.End()
		return
	}
	span.End(trace.WithTimestamp(rec.End))
}

func (t *otelTrace) End(output map[string]any, err error) {
	if err != nil {
		markError(t.root, err)
	} else if output != nil {
		t.root.SetAttributes(attribute.String(AttrOutput, snapshot(output)))
	}
	t.root.End()
}

func markError(span trace.Span, err error) {
	span.RecordError(err)
	span.SetStatus(codes.Error, err.Error())
	span.SetAttributes(attribute.String(AttrError, err.Error()))
}

func snapshot(v map[string]any) string {
	if v == nil {
		return "{}"
	}
	data, err := json.Marshal(v)
	if err != nil {
		return `{"error":"unserializable snapshot"}`
	}
	if len(data) > maxSnapshotLen {
		return string(data[:maxSnapshotLen]) + "...(truncated)"
	}
	return string(data)
}

func metadataAttrs(meta map[string]any) []attribute.KeyValue {
	attrs := make([]attribute.KeyValue, 0, len(meta))
	for k, v := range meta {
		key := attrMetaPref + k
		switch val := v.(type) {
		case string:
			attrs = append(attrs, attribute.String(key, val))
		case bool:
			attrs = append(attrs, attribute.Bool(key, val))
		case int:
			attrs = append(attrs, attribute.Int(key, val))
		case int64:
			attrs = append(attrs, attribute.Int64(key, val))
		case float64:
			attrs = append(attrs, attribute.Float64(key, val))
		case time.Duration:
			attrs = append(attrs, attribute.Int64(key, val.Milliseconds()))
		default:
			data, err := json.Marshal(val)
			if err != nil {
				continue
			}
			attrs = append(attrs, attribute.String(key, string(data)))
		}
	}
	return attrs
}

type traceKey struct{}

// ContextWithTrace stores the open request trace in the context.
func ContextWithTrace(ctx context.Context, tr Trace) context.Context {
	return context.WithValue(ctx, traceKey{}, tr)
}

// FromContext returns the open request trace, if any.
func FromContext(ctx context.Context) (Trace, bool) {
	tr, ok := ctx.Value(traceKey{}).(Trace)
	return tr, ok && tr != nil
}
