package observe

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/metric"
	metricnoop "go.opentelemetry.io/otel/metric/noop"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.26.0"
	"go.opentelemetry.io/otel/trace"
	tracenoop "go.opentelemetry.io/otel/trace/noop"
	"go.uber.org/zap"

	"github.com/jonwraymond/serverops/observe/exporters"
)

// Observer hands out the telemetry primitives of one service. It is safe for
// concurrent use. Shutdown flushes every provider once; later calls return
// the first result.
type Observer interface {
	Tracer() trace.Tracer
	Meter() metric.Meter
	Logger() Logger
	Shutdown(ctx context.Context) error
}

// Logger writes structured entries. Implementations are safe for concurrent
// use and never panic on bad field values.
type Logger interface {
	Info(ctx context.Context, msg string, fields ...Field)
	Warn(ctx context.Context, msg string, fields ...Field)
	Error(ctx context.Context, msg string, fields ...Field)
	Debug(ctx context.Context, msg string, fields ...Field)
	WithCheck(meta CheckMeta) Logger
}

// Field is one key/value pair of a log entry.
type Field struct {
	Key   string
	Value any
}

// F builds a Field.
func F(key string, value any) Field {
	return Field{Key: key, Value: value}
}

// NopLogger returns a logger that discards everything.
func NopLogger() Logger {
	return &zapLogger{z: zap.NewNop()}
}

type observer struct {
	tracer trace.Tracer
	meter  metric.Meter
	logger Logger

	tp          *sdktrace.TracerProvider
	mp          *sdkmetric.MeterProvider
	closeLogger func() error

	once        sync.Once
	shutdownErr error
}

// NewObserver validates cfg and starts the enabled providers. Disabled
// subsystems get no-op implementations. If a provider fails to start, the
// ones already running are shut down before the error is returned.
//
// Enabled tracer and meter providers are also installed as the otel globals,
// which is where the HTTP middleware picks them up.
func NewObserver(ctx context.Context, cfg Config) (Observer, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	res, err := resource.New(ctx, resource.WithAttributes(
		semconv.ServiceName(cfg.ServiceName),
		semconv.ServiceVersion(cfg.Version),
	))
	if err != nil {
		return nil, fmt.Errorf("failed to create resource: %w", err)
	}

	o := &observer{
		tracer:      tracenoop.NewTracerProvider().Tracer(cfg.ServiceName),
		meter:       metricnoop.NewMeterProvider().Meter(cfg.ServiceName),
		logger:      NopLogger(),
		closeLogger: func() error { return nil },
	}
	fail := func(step string, err error) (Observer, error) {
		return nil, errors.Join(fmt.Errorf("failed to setup %s: %w", step, err), o.Shutdown(ctx))
	}

	if cfg.Tracing.Enabled {
		exp, err := exporters.NewTracingExporter(ctx, cfg.Tracing.Exporter)
		if err != nil {
			return fail("tracing", err)
		}
		o.tp = sdktrace.NewTracerProvider(
			sdktrace.WithResource(res),
			sdktrace.WithSampler(sampler(cfg.Tracing.SamplePct)),
			sdktrace.WithBatcher(exp),
		)
		otel.SetTracerProvider(o.tp)
		o.tracer = o.tp.Tracer(cfg.ServiceName)
	}

	if cfg.Metrics.Enabled {
		reader, err := exporters.NewMetricsReader(ctx, cfg.Metrics.Exporter)
		if err != nil {
			return fail("metrics", err)
		}
		o.mp = sdkmetric.NewMeterProvider(sdkmetric.WithResource(res), sdkmetric.WithReader(reader))
		otel.SetMeterProvider(o.mp)
		o.meter = o.mp.Meter(cfg.ServiceName)
	}

	if cfg.Logging.Enabled {
		logger, closeLogger, err := newConfiguredLogger(cfg.Logging)
		if err != nil {
			return fail("logging", err)
		}
		o.logger, o.closeLogger = logger, closeLogger
	}

	return o, nil
}

// sampler keeps pct of root traces and follows the parent decision otherwise.
func sampler(pct float64) sdktrace.Sampler {
	switch {
	case pct >= 1:
		return sdktrace.ParentBased(sdktrace.AlwaysSample())
	case pct <= 0:
		return sdktrace.ParentBased(sdktrace.NeverSample())
	default:
		return sdktrace.ParentBased(sdktrace.TraceIDRatioBased(pct))
	}
}

func (o *observer) Tracer() trace.Tracer { return o.tracer }
func (o *observer) Meter() metric.Meter  { return o.meter }
func (o *observer) Logger() Logger       { return o.logger }

func (o *observer) Shutdown(ctx context.Context) error {
	o.once.Do(func() {
		var errs []error
		if o.tp != nil {
			if err := o.tp.Shutdown(ctx); err != nil {
				errs = append(errs, fmt.Errorf("tracer shutdown: %w", err))
			}
		}
		if o.mp != nil {
			if err := o.mp.Shutdown(ctx); err != nil {
				errs = append(errs, fmt.Errorf("meter shutdown: %w", err))
			}
		}
		if err := o.closeLogger(); err != nil {
			errs = append(errs, fmt.Errorf("logger close: %w", err))
		}
		o.shutdownErr = errors.Join(errs...)
	})
	return o.shutdownErr
}
