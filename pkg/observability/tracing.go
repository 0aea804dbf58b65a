// Package observability provides tracing for export runs.
package observability

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// TracerName is the name of the tracer for export operations.
const TracerName = "ffdl"

// Span attribute keys
const (
	AttrRunID        = "run_id"
	AttrTranscriptID = "transcript_id"
	AttrTitle        = "title"
	AttrStage        = "stage"
	AttrFormat       = "format"
	AttrArtifacts    = "artifacts"
	AttrBytes        = "bytes"
	AttrErrorCode    = "error_code"
	AttrRetryable    = "retryable"
)

// Span names
const (
	SpanRun        = "ffdl.run"
	SpanTranscript = "ffdl.transcript"
	SpanMedia      = "ffdl.media"
	SpanExport     = "ffdl.export"
)

// Tracer starts spans for export operations. Without a configured
// TracerProvider the global no-op provider is used.
type Tracer struct {
	tracer trace.Tracer
}

// NewTracer creates a tracer from the global provider.
func NewTracer() *Tracer {
	return &Tracer{tracer: otel.Tracer(TracerName)}
}

// NewTracerWithProvider creates a tracer from an explicit provider.
func NewTracerWithProvider(tp trace.TracerProvider) *Tracer {
	return &Tracer{tracer: tp.Tracer(TracerName)}
}

// StartRunSpan starts the root span for one run over a page of transcripts.
func (t *Tracer) StartRunSpan(ctx context.Context, runID string, count int) (context.Context, trace.Span) {
	return t.tracer.Start(ctx, SpanRun,
		trace.WithAttributes(
			attribute.String(AttrRunID, runID),
			attribute.Int("transcripts", count),
		),
	)
}

// StartTranscriptSpan starts a span for one transcript.
func (t *Tracer) StartTranscriptSpan(ctx context.Context, id, title string) (context.Context, trace.Span) {
	return t.tracer.Start(ctx, SpanTranscript,
		trace.WithAttributes(
			attribute.String(AttrTranscriptID, id),
			attribute.String(AttrTitle, title),
		),
	)
}

// StartMediaSpan starts a span for one media download.
func (t *Tracer) StartMediaSpan(ctx context.Context, kind string) (context.Context, trace.Span) {
	return t.tracer.Start(ctx, SpanMedia+"."+kind)
}

// StartExportSpan starts a span for one exporter.
func (t *Tracer) StartExportSpan(ctx context.Context, format string) (context.Context, trace.Span) {
	return t.tracer.Start(ctx, SpanExport+"."+format,
		trace.WithAttributes(attribute.String(AttrFormat, format)),
	)
}

// SpanHelper provides convenient methods for working with a span.
type SpanHelper struct {
	span trace.Span
}

// NewSpanHelper creates a new span helper for the given span.
func NewSpanHelper(span trace.Span) *SpanHelper {
	return &SpanHelper{span: span}
}

// SetStage records the stage a transcript reached.
func (h *SpanHelper) SetStage(stage string) {
	h.span.SetAttributes(attribute.String(AttrStage, stage))
}

// SetArtifacts records how many artifacts were written.
func (h *SpanHelper) SetArtifacts(n int) {
	h.span.SetAttributes(attribute.Int(AttrArtifacts, n))
}

// SetBytes records a byte count.
func (h *SpanHelper) SetBytes(n int64) {
	h.span.SetAttributes(attribute.Int64(AttrBytes, n))
}

// SetError records an error on the span.
func (h *SpanHelper) SetError(err error, code string, retryable bool) {
	h.span.SetStatus(codes.Error, err.Error())
	h.span.SetAttributes(
		attribute.String(AttrErrorCode, code),
		attribute.Bool(AttrRetryable, retryable),
	)
	h.span.RecordError(err)
}

// SetSuccess marks the span as successful.
func (h *SpanHelper) SetSuccess() {
	h.span.SetStatus(codes.Ok, "")
}

// GetTraceID returns the trace ID from the context.
func GetTraceID(ctx context.Context) string {
	span := trace.SpanFromContext(ctx)
	if span.SpanContext().HasTraceID() {
		return span.SpanContext().TraceID().String()
	}
	return ""
}
