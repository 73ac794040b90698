// Package instrumented assembles the health checks that watch the embedded
// server's request pool.
package instrumented

import (
	"fmt"

	"github.com/jonwraymond/serverops/health"
	"github.com/jonwraymond/serverops/server"
)

// Stable check identifiers used by reporting tools.
const (
	ThreadPoolUtilizationCheck = "bq.jetty.threadPool.utilization"
	QueuedRequestsCheck        = "bq.jetty.threadPool.queuedRequests"
)

// GroupName is the name of the assembled health check group.
const GroupName = "jetty"

// Built-in thresholds used when the factory leaves a range unset.
var (
	DefaultQueuedRequestsThreshold  = health.IntRange{Min: 3, Max: 15}
	DefaultPoolUtilizationThreshold = health.DoubleRange{Min: 0.7, Max: 0.9}
)

// HealthCheckGroupFactory configures the server pool health checks.
type HealthCheckGroupFactory struct {
	QueuedRequestsThreshold  *health.IntRange    `yaml:"queuedRequestsThreshold"`
	PoolUtilizationThreshold *health.DoubleRange `yaml:"poolUtilizationThreshold"`
}

// QueuedRequestsRange returns the configured range or the default.
func (f *HealthCheckGroupFactory) QueuedRequestsRange() health.IntRange {
	if f != nil && f.QueuedRequestsThreshold != nil {
		return *f.QueuedRequestsThreshold
	}
	return DefaultQueuedRequestsThreshold
}

// PoolUtilizationRange returns the configured range or the default.
func (f *HealthCheckGroupFactory) PoolUtilizationRange() health.DoubleRange {
	if f != nil && f.PoolUtilizationThreshold != nil {
		return *f.PoolUtilizationThreshold
	}
	return DefaultPoolUtilizationThreshold
}

// Validate checks both ranges.
func (f *HealthCheckGroupFactory) Validate() error {
	if err := f.QueuedRequestsRange().Validate(); err != nil {
		return fmt.Errorf("queuedRequestsThreshold: %w", err)
	}
	if err := f.PoolUtilizationRange().Validate(); err != nil {
		return fmt.Errorf("poolUtilizationThreshold: %w", err)
	}
	return nil
}

// CreateHealthCheckGroup builds the pool checks against source.
//
// The gauges need not exist yet: each check looks its gauge up when run,
// so the group can be assembled before the server starts. Invalid ranges
// are reported here, before any check is created.
func (f *HealthCheckGroupFactory) CreateHealthCheckGroup(source health.GaugeSource) (*health.Group, error) {
	if err := f.Validate(); err != nil {
		return nil, err
	}
	return health.NewGroup(GroupName, f.createHealthChecks(source)), nil
}

func (f *HealthCheckGroupFactory) createHealthChecks(source health.GaugeSource) map[string]health.Checker {
	return map[string]health.Checker{
		ThreadPoolUtilizationCheck: f.createThreadPoolUtilizationCheck(source),
		QueuedRequestsCheck:        f.createQueuedRequestsCheck(source),
	}
}

func (f *HealthCheckGroupFactory) createThreadPoolUtilizationCheck(source health.GaugeSource) health.Checker {
	gauge := health.Deferred[float64](source, server.MetricName(server.UtilizationMetric))
	return health.NewGaugeRangeCheck(ThreadPoolUtilizationCheck, f.PoolUtilizationRange(), gauge)
}

func (f *HealthCheckGroupFactory) createQueuedRequestsCheck(source health.GaugeSource) health.Checker {
	gauge := health.Deferred[int64](source, server.MetricName(server.QueuedRequestsMetric))
	return health.NewGaugeRangeCheck(QueuedRequestsCheck, f.QueuedRequestsRange(), gauge)
}
