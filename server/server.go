package server

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/riandyrn/otelchi"
	"golang.org/x/sync/errgroup"

	"github.com/jonwraymond/serverops/health"
	"github.com/jonwraymond/serverops/metrics"
	"github.com/jonwraymond/serverops/observe"
)

var (
	// ErrAlreadyStarted is returned by Start on a running server.
	ErrAlreadyStarted = errors.New("server: already started")

	// ErrNotStarted is returned by Wait before Start.
	ErrNotStarted = errors.New("server: not started")
)

// Option customizes a Server.
type Option func(*Server)

// WithLogger sets the server logger.
func WithLogger(l observe.Logger) Option {
	return func(s *Server) {
		if l != nil {
			s.logger = l
		}
	}
}

// WithRegistry sets the registry the thread pool publishes gauges into.
func WithRegistry(r *metrics.Registry) Option {
	return func(s *Server) {
		if r != nil {
			s.registry = r
		}
	}
}

// WithHealth serves the aggregator's checks on /health, /healthz and /readyz.
func WithHealth(agg *health.Aggregator) Option {
	return func(s *Server) {
		s.health = agg
	}
}

// WithTracing records a span per request under serviceName using the
// global tracer provider.
func WithTracing(serviceName string) Option {
	return func(s *Server) {
		s.traceName = serviceName
	}
}

// WithMappedServlet adds a servlet mapping.
func WithMappedServlet(ms MappedServlet) Option {
	return func(s *Server) {
		s.servlets = append(s.servlets, ms)
	}
}

// WithMappedFilter adds a filter mapping.
func WithMappedFilter(mf MappedFilter) Option {
	return func(s *Server) {
		s.filters = append(s.filters, mf)
	}
}

// Server is an embedded HTTP server with a bounded request pool.
//
// Gauges are published on Start and withdrawn on Shutdown, so health checks
// built against the registry beforehand resolve them only while serving.
type Server struct {
	cfg       Config
	logger    observe.Logger
	registry  *metrics.Registry
	health    *health.Aggregator
	traceName string
	servlets  []MappedServlet
	filters   []MappedFilter
	pool      *QueuedThreadPool
	handler   http.Handler

	mu        sync.Mutex
	started   bool
	servers   []*http.Server
	listeners []net.Listener
	group     *errgroup.Group
	failed    <-chan struct{}
}

// New builds a server. Filters and servlets are initialized here, so
// configuration errors surface before anything listens.
func New(cfg Config, opts ...Option) (*Server, error) {
	cfg.ApplyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	s := &Server{
		cfg:      cfg,
		logger:   observe.NopLogger(),
		registry: metrics.NewRegistry(),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.pool = NewQueuedThreadPool(cfg.ThreadPool)

	if err := s.initMappings(); err != nil {
		return nil, err
	}
	s.handler = s.routes()
	return s, nil
}

func (s *Server) initMappings() error {
	for _, mf := range s.filters {
		if mf.Filter == nil {
			return fmt.Errorf("server: filter %q has no implementation", mf.Name)
		}
		params := mergeParams(mf.Params, s.cfg.Filters[mf.Name].Params)
		if err := mf.Filter.Init(InitConfig{Name: mf.Name, Params: params}); err != nil {
			return fmt.Errorf("server: init filter %q: %w", mf.Name, err)
		}
	}
	for _, ms := range s.servlets {
		if ms.Handler == nil {
			return fmt.Errorf("server: servlet %q has no handler", ms.Name)
		}
		initializer, ok := ms.Handler.(Initializer)
		if !ok {
			continue
		}
		params := mergeParams(ms.Params, s.cfg.Servlets[ms.Name].Params)
		if err := initializer.Init(InitConfig{Name: ms.Name, Params: params}); err != nil {
			return fmt.Errorf("server: init servlet %q: %w", ms.Name, err)
		}
	}
	return nil
}

func (s *Server) routes() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RealIP)
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	if s.traceName != "" {
		r.Use(otelchi.Middleware(s.traceName, otelchi.WithChiRoutes(r)))
	}
	r.Use(s.accessLog)

	if s.health != nil {
		health.RegisterHandlers(r, s.health)
	}
	if s.cfg.ExposeMetrics {
		r.Handle("/metrics", promhttp.Handler())
	}

	app := filterChain(s.filters, newDispatcher(s.servlets))
	r.Group(func(r chi.Router) {
		r.Use(s.pool.Middleware)
		r.Handle("/", app)
		r.Handle("/*", app)
	})
	return r
}

func (s *Server) accessLog(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)

		s.logger.Debug(r.Context(), "request served",
			observe.F("method", r.Method),
			observe.F("path", r.URL.Path),
			observe.F("status", ww.Status()),
			observe.F("bytes", ww.BytesWritten()),
			observe.F("duration_ms", float64(time.Since(start).Microseconds())/1000),
			observe.F("request_id", middleware.GetReqID(r.Context())),
		)
	})
}

// Handler returns the fully assembled request handler.
func (s *Server) Handler() http.Handler {
	return s.handler
}

// ThreadPool returns the server's request pool.
func (s *Server) ThreadPool() *QueuedThreadPool {
	return s.pool
}

// Registry returns the registry the pool publishes into.
func (s *Server) Registry() *metrics.Registry {
	return s.registry
}

// Start binds every connector and begins serving in the background.
func (s *Server) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.started {
		return ErrAlreadyStarted
	}

	var lc net.ListenConfig
	listeners := make([]net.Listener, 0, len(s.cfg.Connectors))
	for _, c := range s.cfg.Connectors {
		ln, err := lc.Listen(ctx, "tcp", c.Addr())
		if err != nil {
			for _, open := range listeners {
				_ = open.Close()
			}
			return fmt.Errorf("server: listen on %s: %w", c.Addr(), err)
		}
		listeners = append(listeners, ln)
	}

	if err := s.pool.RegisterMetrics(s.registry); err != nil {
		for _, ln := range listeners {
			_ = ln.Close()
		}
		return fmt.Errorf("server: register thread pool metrics: %w", err)
	}

	// gctx ends as soon as any connector stops serving with an error.
	g, gctx := errgroup.WithContext(context.WithoutCancel(ctx))
	servers := make([]*http.Server, len(listeners))
	for i, ln := range listeners {
		ln := ln
		conn := s.cfg.Connectors[i]
		srv := &http.Server{
			Handler:           s.handler,
			ReadHeaderTimeout: conn.ReadHeaderTimeout,
			ReadTimeout:       conn.ReadTimeout,
			WriteTimeout:      conn.WriteTimeout,
			IdleTimeout:       conn.IdleTimeout,
		}
		servers[i] = srv

		s.logger.Info(ctx, "server listening", observe.F("addr", ln.Addr().String()))
		g.Go(func() error {
			if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
				return fmt.Errorf("server: serve %s: %w", ln.Addr(), err)
			}
			return nil
		})
	}

	s.servers = servers
	s.listeners = listeners
	s.group = g
	s.failed = gctx.Done()
	s.started = true
	return nil
}

// Addrs returns the bound address of every connector, in configuration order.
func (s *Server) Addrs() []net.Addr {
	s.mu.Lock()
	defer s.mu.Unlock()

	addrs := make([]net.Addr, len(s.listeners))
	for i, ln := range s.listeners {
		addrs[i] = ln.Addr()
	}
	return addrs
}

// Wait blocks until every connector stops serving.
func (s *Server) Wait() error {
	s.mu.Lock()
	g := s.group
	s.mu.Unlock()

	if g == nil {
		return ErrNotStarted
	}
	return g.Wait()
}

// Shutdown drains in-flight requests, bounded by ctx and GracefulTimeout.
func (s *Server) Shutdown(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.started {
		return nil
	}

	ctx, cancel := context.WithTimeout(ctx, s.cfg.GracefulTimeout)
	defer cancel()

	var errs []error
	for _, srv := range s.servers {
		if err := srv.Shutdown(ctx); err != nil {
			errs = append(errs, fmt.Errorf("server: graceful shutdown failed: %w", err))
		}
	}
	if err := s.group.Wait(); err != nil {
		errs = append(errs, err)
	}

	s.pool.UnregisterMetrics(s.registry)
	s.started = false
	s.servers = nil
	s.listeners = nil
	s.logger.Info(ctx, "server stopped")

	return errors.Join(errs...)
}

// Run starts the server and blocks until ctx is cancelled or a connector
// fails. Either way every connector is shut down; a connector failure is
// returned along with any shutdown error.
func (s *Server) Run(ctx context.Context) error {
	if err := s.Start(ctx); err != nil {
		return err
	}

	s.mu.Lock()
	failed := s.failed
	s.mu.Unlock()

	select {
	case <-ctx.Done():
	case <-failed:
	}
	return s.Shutdown(context.WithoutCancel(ctx))
}
