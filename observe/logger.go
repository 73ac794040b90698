package observe

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"slices"
	"strings"
	"time"

	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"gopkg.in/natefinch/lumberjack.v2"
)

// Keys added to every entry logged inside a sampled span.
const (
	TraceIDKey = "trace_id"
	SpanIDKey  = "span_id"
)

// ParseLevel maps a level name to a zap level. Unknown names map to info.
func ParseLevel(s string) zapcore.Level {
	switch strings.ToLower(s) {
	case "debug":
		return zapcore.DebugLevel
	case "warn", "warning":
		return zapcore.WarnLevel
	case "error":
		return zapcore.ErrorLevel
	default:
		return zapcore.InfoLevel
	}
}

type zapLogger struct {
	z *zap.Logger
}

// NewLogger returns a JSON logger writing to stderr.
func NewLogger(level string) Logger {
	return NewLoggerWithWriter(level, os.Stderr)
}

// NewLoggerWithWriter returns a JSON logger writing one line per entry to w.
func NewLoggerWithWriter(level string, w io.Writer) Logger {
	core := zapcore.NewCore(newEncoder("json"), zapcore.Lock(zapcore.AddSync(w)), ParseLevel(level))
	return &zapLogger{z: zap.New(core)}
}

// newConfiguredLogger builds the logger cfg describes. The returned closer
// flushes and releases any log file.
func newConfiguredLogger(cfg LoggingConfig) (Logger, func() error, error) {
	var (
		ws     zapcore.WriteSyncer
		closer = func() error { return nil }
	)

	switch cfg.Output {
	case "", "stderr":
		ws = zapcore.Lock(os.Stderr)
	case "stdout":
		ws = zapcore.Lock(os.Stdout)
	default:
		if cfg.Rotate != nil {
			lj := &lumberjack.Logger{
				Filename:   cfg.Output,
				MaxSize:    cfg.Rotate.MaxSizeMB,
				MaxBackups: cfg.Rotate.MaxBackups,
				MaxAge:     cfg.Rotate.MaxAgeDays,
				Compress:   cfg.Rotate.Compress,
			}
			ws = zapcore.AddSync(lj)
			closer = lj.Close
			break
		}
		f, err := os.OpenFile(cfg.Output, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
		if err != nil {
			return nil, nil, fmt.Errorf("%w: %w", ErrInvalidLogOutput, err)
		}
		ws = zapcore.Lock(f)
		closer = func() error { return errors.Join(f.Sync(), f.Close()) }
	}

	z := zap.New(zapcore.NewCore(newEncoder(cfg.Format), ws, ParseLevel(cfg.Level)))
	return &zapLogger{z: z}, closer, nil
}

func newEncoder(format string) zapcore.Encoder {
	ec := zapcore.EncoderConfig{
		TimeKey:        "timestamp",
		LevelKey:       "level",
		NameKey:        "logger",
		MessageKey:     "msg",
		StacktraceKey:  zapcore.OmitKey,
		LineEnding:     zapcore.DefaultLineEnding,
		EncodeLevel:    zapcore.LowercaseLevelEncoder,
		EncodeTime:     zapcore.TimeEncoderOfLayout(time.RFC3339Nano),
		EncodeDuration: zapcore.StringDurationEncoder,
	}
	if format == "console" {
		return zapcore.NewConsoleEncoder(ec)
	}
	return zapcore.NewJSONEncoder(ec)
}

// WithCheck returns a logger that tags entries with the check identity.
func (l *zapLogger) WithCheck(meta CheckMeta) Logger {
	fields := []zap.Field{zap.String("check.name", meta.Name)}
	if meta.Group != "" {
		fields = append(fields, zap.String("check.group", meta.Group))
	}
	return &zapLogger{z: l.z.With(fields...)}
}

func (l *zapLogger) Info(ctx context.Context, msg string, fields ...Field) {
	l.log(ctx, zapcore.InfoLevel, msg, fields)
}

func (l *zapLogger) Warn(ctx context.Context, msg string, fields ...Field) {
	l.log(ctx, zapcore.WarnLevel, msg, fields)
}

func (l *zapLogger) Error(ctx context.Context, msg string, fields ...Field) {
	l.log(ctx, zapcore.ErrorLevel, msg, fields)
}

func (l *zapLogger) Debug(ctx context.Context, msg string, fields ...Field) {
	l.log(ctx, zapcore.DebugLevel, msg, fields)
}

func (l *zapLogger) log(ctx context.Context, level zapcore.Level, msg string, fields []Field) {
	ce := l.z.Check(level, msg)
	if ce == nil {
		return
	}

	zf := make([]zap.Field, 0, len(fields)+2)
	if ctx != nil {
		if sc := trace.SpanContextFromContext(ctx); sc.IsValid() {
			zf = append(zf, zap.String(TraceIDKey, sc.TraceID().String()), zap.String(SpanIDKey, sc.SpanID().String()))
		}
	}
	for _, f := range fields {
		zf = append(zf, zapField(f))
	}
	ce.Write(zf...)
}

func zapField(f Field) zap.Field {
	if isRedactedField(f.Key) {
		return zap.String(f.Key, "[REDACTED]")
	}
	if err, ok := f.Value.(error); ok && err != nil {
		return zap.String(f.Key, err.Error())
	}
	return zap.Any(f.Key, f.Value)
}

func isRedactedField(key string) bool {
	return slices.Contains(RedactedFields, key)
}
