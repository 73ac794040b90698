// Package health provides health checking primitives for server operations.
//
// A Checker is any component that can report its health status. The Status
// type represents the health state: Healthy, Degraded, Unhealthy or Unknown
// when a check could not be evaluated at all.
//
// # Threshold Ranges
//
// A Range is an inclusive band of acceptable values. Values below Min are
// reported as Degraded, values above Max as Unhealthy:
//
//	util := health.MustRange(0.7, 0.9)
//	util.Classify(0.95) // StatusUnhealthy
//
// # Deferred Gauges
//
// Checks are often assembled before the gauges they watch are registered.
// A DeferredGauge captures only the name and resolves it on every read:
//
//	gauge := health.Deferred[float64](registry, "pool.utilization")
//	check := health.NewGaugeRangeCheck("utilization", util, gauge)
//
//	// Later, once the server has registered its gauges:
//	result := check.Check(ctx)
//
// Resolution requires exactly one matching gauge of the expected numeric
// type. Failures surface as a StatusUnknown result carrying a
// *GaugeNotFoundError, *AmbiguousGaugeError or *GaugeTypeError.
//
// # Aggregating Health Checks
//
// Use Aggregator to combine checks and groups into a single composite check:
//
//	agg := health.NewAggregator()
//	agg.RegisterGroup(group)
//	agg.Register("database", dbChecker)
//
//	results := agg.CheckAll(ctx)
//	overall := agg.OverallStatus(results)
//
// A failing or panicking check never affects its siblings. A check still
// running when the aggregator's Timeout expires reports StatusUnknown, and
// MaxConcurrent bounds how many checks run at once.
//
// # HTTP Endpoints
//
// RegisterHandlers mounts the standard endpoints on a chi router:
//
//	r := chi.NewRouter()
//	health.RegisterHandlers(r, agg) // /healthz, /readyz, /health, /health/{name}
package health
