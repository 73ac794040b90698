// Package app wires configuration into a running server.
package app

import (
	"context"
	"errors"
	"fmt"

	"github.com/jonwraymond/serverops/config"
	"github.com/jonwraymond/serverops/health"
	"github.com/jonwraymond/serverops/metrics"
	"github.com/jonwraymond/serverops/observe"
	"github.com/jonwraymond/serverops/server"
)

// App holds the assembled components.
type App struct {
	Config     *config.Config
	Observer   observe.Observer
	Registry   *metrics.Registry
	Checks     *health.Group
	Aggregator *health.Aggregator
	Server     *server.Server
}

// Build constructs the component graph. Health checks are assembled against
// the registry before the server exists; they resolve its gauges once the
// server has started.
func Build(ctx context.Context, cfg *config.Config, opts ...server.Option) (*App, error) {
	obs, err := observe.NewObserver(ctx, cfg.Observe)
	if err != nil {
		return nil, fmt.Errorf("app: observer: %w", err)
	}

	a := &App{
		Config:   cfg,
		Observer: obs,
		Registry: metrics.NewRegistry(),
	}

	if err := metrics.Export(obs.Meter(), a.Registry); err != nil {
		return nil, a.fail(ctx, fmt.Errorf("app: export gauges: %w", err))
	}

	group, err := cfg.Health.CreateHealthCheckGroup(a.Registry)
	if err != nil {
		return nil, a.fail(ctx, fmt.Errorf("app: health checks: %w", err))
	}

	mw, err := observe.MiddlewareFromObserver(obs)
	if err != nil {
		return nil, a.fail(ctx, fmt.Errorf("app: health middleware: %w", err))
	}
	a.Checks = mw.WrapGroup(group)

	a.Aggregator = health.NewAggregator()
	a.Aggregator.RegisterGroup(a.Checks)

	serverOpts := []server.Option{
		server.WithLogger(obs.Logger()),
		server.WithRegistry(a.Registry),
		server.WithHealth(a.Aggregator),
	}
	if cfg.Observe.Tracing.Enabled {
		serverOpts = append(serverOpts, server.WithTracing(cfg.Observe.ServiceName))
	}
	serverOpts = append(serverOpts, opts...)

	a.Server, err = server.New(cfg.Server, serverOpts...)
	if err != nil {
		return nil, a.fail(ctx, fmt.Errorf("app: server: %w", err))
	}
	return a, nil
}

// Run serves until ctx is cancelled, then flushes telemetry.
func (a *App) Run(ctx context.Context) error {
	logger := a.Observer.Logger()
	logger.Info(ctx, "starting", observe.F("checks", a.Checks.Names()))

	runErr := a.Server.Run(ctx)
	shutdownErr := a.Observer.Shutdown(context.WithoutCancel(ctx))
	return errors.Join(runErr, shutdownErr)
}

func (a *App) fail(ctx context.Context, err error) error {
	return errors.Join(err, a.Observer.Shutdown(ctx))
}
