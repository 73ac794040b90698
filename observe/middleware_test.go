package observe

import (
	"bytes"
	"context"
	"encoding/json"
	"strings"
	"testing"

	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"

	"github.com/jonwraymond/serverops/health"
)

type middlewareFixture struct {
	mw     *Middleware
	spans  *tracetest.SpanRecorder
	reader *sdkmetric.ManualReader
	logs   *bytes.Buffer
}

func newMiddlewareFixture(t *testing.T) middlewareFixture {
	t.Helper()
	spans := tracetest.NewSpanRecorder()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(spans))

	metrics, reader := newTestMetrics(t)
	logs := &bytes.Buffer{}

	return middlewareFixture{
		mw:     NewMiddleware(NewTracer(tp.Tracer("test")), metrics, NewLoggerWithWriter("debug", logs)),
		spans:  spans,
		reader: reader,
		logs:   logs,
	}
}

func TestMiddleware_PassesResultThrough(t *testing.T) {
	f := newMiddlewareFixture(t)

	inner := health.NewCheckerFunc("util", func(ctx context.Context) health.Result {
		return health.Healthy("fine").WithValue(0.5)
	})
	wrapped := f.mw.Wrap("jetty", inner)

	if wrapped.Name() != "util" {
		t.Errorf("Name() = %q, want util", wrapped.Name())
	}

	result := wrapped.Check(context.Background())
	if result.Status != health.StatusHealthy || result.Value != 0.5 {
		t.Errorf("unexpected result: %+v", result)
	}

	spans := f.spans.Ended()
	if len(spans) != 1 || spans[0].Name() != "health.check.jetty.util" {
		t.Fatalf("unexpected spans: %v", spans)
	}

	rm := collect(t, f.reader)
	if got := sumOf(t, findMetric(rm, "health.check.total")); got != 1 {
		t.Errorf("health.check.total = %d, want 1", got)
	}
	if got := sumOf(t, findMetric(rm, "health.check.failures")); got != 0 {
		t.Errorf("health.check.failures = %d, want 0", got)
	}

	var entry map[string]any
	if err := json.Unmarshal(f.logs.Bytes(), &entry); err != nil {
		t.Fatalf("invalid log line: %v", err)
	}
	if entry["level"] != "debug" || entry["check.group"] != "jetty" {
		t.Errorf("unexpected log entry: %v", entry)
	}
}

func TestMiddleware_FailureLoggedAsError(t *testing.T) {
	f := newMiddlewareFixture(t)

	inner := health.NewCheckerFunc("queued", func(ctx context.Context) health.Result {
		return health.Unknown("check failed: gauge not found: x", &health.GaugeNotFoundError{Name: "x"})
	})
	result := f.mw.Wrap("jetty", inner).Check(context.Background())

	if result.Status != health.StatusUnknown {
		t.Errorf("Status = %v, want unknown", result.Status)
	}
	if !strings.Contains(f.logs.String(), `"level":"error"`) {
		t.Errorf("expected error log, got: %s", f.logs.String())
	}
	if !strings.Contains(f.logs.String(), "gauge not found: x") {
		t.Errorf("expected error text in log, got: %s", f.logs.String())
	}
	if got := sumOf(t, findMetric(collect(t, f.reader), "health.check.failures")); got != 1 {
		t.Errorf("health.check.failures = %d, want 1", got)
	}
}

func TestMiddleware_WrapGroup(t *testing.T) {
	f := newMiddlewareFixture(t)

	group := health.NewGroup("jetty", map[string]health.Checker{
		"a": health.NewCheckerFunc("a", func(context.Context) health.Result { return health.Healthy("") }),
		"b": health.NewCheckerFunc("b", func(context.Context) health.Result { return health.Degraded("") }),
	})

	wrapped := f.mw.WrapGroup(group)
	if wrapped.Name() != "jetty" || wrapped.Len() != 2 {
		t.Fatalf("unexpected wrapped group: %s/%d", wrapped.Name(), wrapped.Len())
	}

	results := wrapped.CheckAll(context.Background())
	if results["b"].Status != health.StatusDegraded {
		t.Errorf("b status = %v, want degraded", results["b"].Status)
	}
	if len(f.spans.Ended()) != 2 {
		t.Errorf("expected 2 spans, got %d", len(f.spans.Ended()))
	}
}
