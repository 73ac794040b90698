package observe

import (
	"context"
	"errors"
	"testing"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
)

func TestCheckMeta_SpanName(t *testing.T) {
	tests := []struct {
		meta CheckMeta
		want string
	}{
		{CheckMeta{Group: "jetty", Name: "queued"}, "health.check.jetty.queued"},
		{CheckMeta{Name: "queued"}, "health.check.queued"},
	}
	for _, tt := range tests {
		if got := tt.meta.SpanName(); got != tt.want {
			t.Errorf("SpanName() = %q, want %q", got, tt.want)
		}
	}
}

func spanAttrs(s sdktrace.ReadOnlySpan) map[string]attribute.Value {
	out := make(map[string]attribute.Value)
	for _, a := range s.Attributes() {
		out[string(a.Key)] = a.Value
	}
	return out
}

func TestTracer_SpanAttributes(t *testing.T) {
	recorder := tracetest.NewSpanRecorder()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(recorder))
	tr := NewTracer(tp.Tracer("test"))

	_, span := tr.StartSpan(context.Background(), CheckMeta{Group: "jetty", Name: "utilization"})
	tr.EndSpan(span, "healthy", nil)

	spans := recorder.Ended()
	if len(spans) != 1 {
		t.Fatalf("expected 1 span, got %d", len(spans))
	}

	s := spans[0]
	if s.Name() != "health.check.jetty.utilization" {
		t.Errorf("span name = %q", s.Name())
	}
	attrs := spanAttrs(s)
	if attrs["check.name"].AsString() != "utilization" {
		t.Errorf("check.name = %v", attrs["check.name"])
	}
	if attrs["check.group"].AsString() != "jetty" {
		t.Errorf("check.group = %v", attrs["check.group"])
	}
	if attrs["check.status"].AsString() != "healthy" {
		t.Errorf("check.status = %v", attrs["check.status"])
	}
	if s.Status().Code != codes.Ok {
		t.Errorf("status code = %v, want Ok", s.Status().Code)
	}
}

func TestTracer_ErrorRecording(t *testing.T) {
	recorder := tracetest.NewSpanRecorder()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(recorder))
	tr := NewTracer(tp.Tracer("test"))

	_, span := tr.StartSpan(context.Background(), CheckMeta{Name: "queued"})
	tr.EndSpan(span, "unknown", errors.New("gauge not found: x"))

	s := recorder.Ended()[0]
	if s.Status().Code != codes.Error {
		t.Errorf("status code = %v, want Error", s.Status().Code)
	}
	if s.Status().Description != "gauge not found: x" {
		t.Errorf("description = %q", s.Status().Description)
	}
	if len(s.Events()) == 0 {
		t.Error("expected an exception event to be recorded")
	}
}

func TestTracer_ContextCarriesSpan(t *testing.T) {
	recorder := tracetest.NewSpanRecorder()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(recorder))
	tr := NewTracer(tp.Tracer("test"))

	ctx, span := tr.StartSpan(context.Background(), CheckMeta{Name: "parent"})
	_, child := tr.StartSpan(ctx, CheckMeta{Name: "child"})
	tr.EndSpan(child, "healthy", nil)
	tr.EndSpan(span, "healthy", nil)

	spans := recorder.Ended()
	if len(spans) != 2 {
		t.Fatalf("expected 2 spans, got %d", len(spans))
	}
	if spans[0].Parent().SpanID() != spans[1].SpanContext().SpanID() {
		t.Error("child span should be parented to the first span")
	}
}
