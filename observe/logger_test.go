package observe

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.uber.org/zap/zapcore"
)

func decodeLine(t *testing.T, line string) map[string]any {
	t.Helper()
	var entry map[string]any
	if err := json.Unmarshal([]byte(line), &entry); err != nil {
		t.Fatalf("failed to parse log output as JSON: %v\nOutput: %s", err, line)
	}
	return entry
}

func TestLogger_IncludesCheckFields(t *testing.T) {
	var buf bytes.Buffer
	logger := NewLoggerWithWriter("info", &buf).WithCheck(CheckMeta{
		Group: "jetty",
		Name:  "bq.jetty.threadPool.utilization",
	})

	logger.Info(context.Background(), "test message")

	entry := decodeLine(t, buf.String())
	if entry["check.name"] != "bq.jetty.threadPool.utilization" {
		t.Errorf("check.name = %v", entry["check.name"])
	}
	if entry["check.group"] != "jetty" {
		t.Errorf("check.group = %v", entry["check.group"])
	}
	if entry["msg"] != "test message" {
		t.Errorf("msg = %v", entry["msg"])
	}
	if entry["level"] != "info" {
		t.Errorf("level = %v", entry["level"])
	}
}

func TestLogger_GroupOmittedWhenEmpty(t *testing.T) {
	var buf bytes.Buffer
	NewLoggerWithWriter("info", &buf).WithCheck(CheckMeta{Name: "solo"}).Info(context.Background(), "m")

	entry := decodeLine(t, buf.String())
	if _, ok := entry["check.group"]; ok {
		t.Error("check.group should be absent for ungrouped checks")
	}
}

func TestLogger_LevelFiltering(t *testing.T) {
	tests := []struct {
		level   string
		logFn   func(Logger)
		written bool
	}{
		{"info", func(l Logger) { l.Debug(context.Background(), "d") }, false},
		{"info", func(l Logger) { l.Info(context.Background(), "i") }, true},
		{"warn", func(l Logger) { l.Info(context.Background(), "i") }, false},
		{"warn", func(l Logger) { l.Warn(context.Background(), "w") }, true},
		{"error", func(l Logger) { l.Warn(context.Background(), "w") }, false},
		{"error", func(l Logger) { l.Error(context.Background(), "e") }, true},
		{"debug", func(l Logger) { l.Debug(context.Background(), "d") }, true},
	}

	for _, tt := range tests {
		var buf bytes.Buffer
		tt.logFn(NewLoggerWithWriter(tt.level, &buf))
		if got := buf.Len() > 0; got != tt.written {
			t.Errorf("level %s: written = %v, want %v", tt.level, got, tt.written)
		}
	}
}

func TestLogger_SensitiveFieldsRedacted(t *testing.T) {
	var buf bytes.Buffer
	NewLoggerWithWriter("info", &buf).Info(context.Background(), "m",
		F("password", "hunter2"),
		F("token", "abc"),
		F("port", 8080),
	)

	entry := decodeLine(t, buf.String())
	if entry["password"] != "[REDACTED]" || entry["token"] != "[REDACTED]" {
		t.Errorf("sensitive fields not redacted: %v", entry)
	}
	if entry["port"] != float64(8080) {
		t.Errorf("port = %v, want 8080", entry["port"])
	}
}

func TestLogger_ErrorValuesRendered(t *testing.T) {
	var buf bytes.Buffer
	NewLoggerWithWriter("info", &buf).Error(context.Background(), "m", F("error", errors.New("boom")))

	entry := decodeLine(t, buf.String())
	if entry["error"] != "boom" {
		t.Errorf("error = %v, want boom", entry["error"])
	}
}

func TestLogger_ConcurrentWritesStayLineDelimited(t *testing.T) {
	var buf bytes.Buffer
	root := NewLoggerWithWriter("info", &buf)

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			root.WithCheck(CheckMeta{Name: "c"}).Info(context.Background(), "m")
		}()
	}
	wg.Wait()

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	if len(lines) != 20 {
		t.Fatalf("expected 20 lines, got %d", len(lines))
	}
	for _, line := range lines {
		decodeLine(t, line)
	}
}

func TestParseLevel(t *testing.T) {
	tests := map[string]zapcore.Level{
		"debug":   zapcore.DebugLevel,
		"info":    zapcore.InfoLevel,
		"warn":    zapcore.WarnLevel,
		"WARNING": zapcore.WarnLevel,
		"error":   zapcore.ErrorLevel,
		"":        zapcore.InfoLevel,
		"other":   zapcore.InfoLevel,
	}
	for in, want := range tests {
		if got := ParseLevel(in); got != want {
			t.Errorf("ParseLevel(%q) = %v, want %v", in, got, want)
		}
	}
}

func TestLogger_TraceCorrelation(t *testing.T) {
	tp := sdktrace.NewTracerProvider()
	defer func() { _ = tp.Shutdown(context.Background()) }()

	ctx, span := tp.Tracer("test").Start(context.Background(), "op")
	defer span.End()

	var buf bytes.Buffer
	NewLoggerWithWriter("info", &buf).Info(ctx, "inside span")

	entry := decodeLine(t, buf.String())
	if entry[TraceIDKey] != span.SpanContext().TraceID().String() {
		t.Errorf("%s = %v, want %s", TraceIDKey, entry[TraceIDKey], span.SpanContext().TraceID())
	}
	if entry[SpanIDKey] != span.SpanContext().SpanID().String() {
		t.Errorf("%s = %v, want %s", SpanIDKey, entry[SpanIDKey], span.SpanContext().SpanID())
	}

	buf.Reset()
	NewLoggerWithWriter("info", &buf).Info(context.Background(), "outside span")
	if _, ok := decodeLine(t, buf.String())[TraceIDKey]; ok {
		t.Error("trace_id should be absent without a span")
	}
}

func TestConfiguredLogger_File(t *testing.T) {
	path := filepath.Join(t.TempDir(), "serverops.log")

	logger, closer, err := newConfiguredLogger(LoggingConfig{Enabled: true, Level: "warn", Output: path})
	if err != nil {
		t.Fatalf("newConfiguredLogger() error = %v", err)
	}
	logger.Info(context.Background(), "dropped")
	logger.Warn(context.Background(), "kept", F("port", 8080))
	if err := closer(); err != nil {
		t.Fatalf("close error = %v", err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	lines := strings.Split(strings.TrimSpace(string(data)), "\n")
	if len(lines) != 1 {
		t.Fatalf("got %d lines, want 1:\n%s", len(lines), data)
	}
	if entry := decodeLine(t, lines[0]); entry["msg"] != "kept" || entry["level"] != "warn" {
		t.Errorf("entry = %v", entry)
	}
}

func TestConfiguredLogger_RotatingFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "rotated.log")

	logger, closer, err := newConfiguredLogger(LoggingConfig{
		Enabled: true,
		Format:  "console",
		Output:  path,
		Rotate:  &RotateConfig{MaxSizeMB: 1, MaxBackups: 2},
	})
	if err != nil {
		t.Fatalf("newConfiguredLogger() error = %v", err)
	}
	logger.Info(context.Background(), "rotating hello")
	if err := closer(); err != nil {
		t.Fatalf("close error = %v", err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(string(data), "rotating hello") || strings.HasPrefix(string(data), "{") {
		t.Errorf("console output = %q", data)
	}
}

func TestConfiguredLogger_BadPath(t *testing.T) {
	path := filepath.Join(t.TempDir(), "missing-dir", "x.log")

	_, _, err := newConfiguredLogger(LoggingConfig{Enabled: true, Output: path})
	if !errors.Is(err, ErrInvalidLogOutput) {
		t.Errorf("newConfiguredLogger() error = %v, want ErrInvalidLogOutput", err)
	}
}
