// Package observe carries the telemetry for server health checks.
//
// NewObserver turns a Config into an OpenTelemetry tracer and meter plus a
// zap-backed structured Logger. Disabled subsystems get no-op
// implementations, so callers never branch on configuration.
//
// Middleware wraps health checkers so that every evaluation produces a span,
// a duration histogram sample and a log line whose level follows the result:
//
//	mw, _ := observe.MiddlewareFromObserver(obs)
//	group = mw.WrapGroup(group)
//
// Log entries written inside a sampled span carry trace_id and span_id. File
// output can be rotated through LoggingConfig.Rotate.
package observe
