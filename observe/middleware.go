package observe

import (
	"context"
	"time"

	"github.com/jonwraymond/serverops/health"
)

// Middleware wraps health checks with tracing, metrics and logging.
//
// Contract:
//   - Concurrency: Wrap() returns a checker as thread-safe as the one it wraps.
//   - Context: Propagates context through tracing spans.
//   - Ownership: Results are passed through unchanged.
type Middleware struct {
	tracer  Tracer
	metrics Metrics
	logger  Logger
}

// NewMiddleware creates a new Middleware with the given observability components.
func NewMiddleware(tracer Tracer, metrics Metrics, logger Logger) *Middleware {
	return &Middleware{
		tracer:  tracer,
		metrics: metrics,
		logger:  logger,
	}
}

// MiddlewareFromObserver creates a Middleware from an Observer.
func MiddlewareFromObserver(obs Observer) (*Middleware, error) {
	metrics, err := NewMetrics(obs.Meter())
	if err != nil {
		return nil, err
	}
	return NewMiddleware(NewTracer(obs.Tracer()), metrics, obs.Logger()), nil
}

// Wrap returns a checker that instruments every evaluation of c.
func (m *Middleware) Wrap(group string, c health.Checker) health.Checker {
	return &instrumentedChecker{
		meta: CheckMeta{Group: group, Name: c.Name()},
		next: c,
		mw:   m,
	}
}

// WrapGroup returns a copy of g whose checks are all instrumented.
func (m *Middleware) WrapGroup(g *health.Group) *health.Group {
	checks := g.Checks()
	for name, c := range checks {
		checks[name] = m.Wrap(g.Name(), c)
	}
	return health.NewGroup(g.Name(), checks)
}

type instrumentedChecker struct {
	meta CheckMeta
	next health.Checker
	mw   *Middleware
}

func (c *instrumentedChecker) Name() string {
	return c.next.Name()
}

func (c *instrumentedChecker) Check(ctx context.Context) health.Result {
	ctx, span := c.mw.tracer.StartSpan(ctx, c.meta)
	start := time.Now()

	result := c.next.Check(ctx)

	duration := time.Since(start)
	status := result.Status.String()
	c.mw.tracer.EndSpan(span, status, result.Error)
	c.mw.metrics.RecordCheck(ctx, c.meta, status, duration, result.Status != health.StatusHealthy)

	logger := c.mw.logger.WithCheck(c.meta)
	fields := []Field{
		F("status", status),
		F("message", result.Message),
		F("duration_ms", float64(duration.Microseconds())/1000),
	}
	if result.Value != nil {
		fields = append(fields, F("value", result.Value))
	}

	switch result.Status {
	case health.StatusHealthy:
		logger.Debug(ctx, "health check passed", fields...)
	case health.StatusDegraded:
		logger.Warn(ctx, "health check degraded", fields...)
	default:
		if result.Error != nil {
			fields = append(fields, F("error", result.Error))
		}
		logger.Error(ctx, "health check failed", fields...)
	}

	return result
}
