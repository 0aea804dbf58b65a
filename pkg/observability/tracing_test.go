package observability

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"go.opentelemetry.io/otel/trace"
	"go.opentelemetry.io/otel/trace/noop"
)

func TestTracer_NoopSpans(t *testing.T) {
	tr := NewTracerWithProvider(noop.NewTracerProvider())
	ctx := context.Background()

	ctx, run := tr.StartRunSpan(ctx, "run-1", 2)
	defer run.End()

	tctx, span := tr.StartTranscriptSpan(ctx, "t1", "Standup")
	h := NewSpanHelper(span)
	h.SetStage("exported")
	h.SetArtifacts(6)
	h.SetBytes(42)
	h.SetError(errors.New("boom"), "io_error", false)
	h.SetSuccess()
	span.End()

	_, exp := tr.StartExportSpan(tctx, "csv")
	exp.End()
	_, media := tr.StartMediaSpan(tctx, "audio")
	media.End()

	assert.Equal(t, "", GetTraceID(tctx))
}

func TestGetTraceID(t *testing.T) {
	traceID, _ := trace.TraceIDFromHex("0123456789abcdef0123456789abcdef")
	spanID, _ := trace.SpanIDFromHex("0123456789abcdef")
	sc := trace.NewSpanContext(trace.SpanContextConfig{TraceID: traceID, SpanID: spanID})
	ctx := trace.ContextWithSpanContext(context.Background(), sc)

	assert.Equal(t, "0123456789abcdef0123456789abcdef", GetTraceID(ctx))
	assert.Equal(t, "", GetTraceID(context.Background()))
}

func TestNewTracer_Global(t *testing.T) {
	tr := NewTracer()
	_, span := tr.StartTranscriptSpan(context.Background(), "t1", "x")
	assert.NotNil(t, span)
	span.End()
}
