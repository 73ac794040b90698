package server

import (
	"context"
	"errors"
	"net/http"
	"sync"
	"time"

	"github.com/jonwraymond/serverops/metrics"
)

const (
	// ThreadPoolComponent identifies the request pool in gauge names.
	ThreadPoolComponent = "serverops.server.QueuedThreadPool"

	// ThreadPoolName is the subsystem label of the server's request pool.
	ThreadPoolName = "bootique-http"

	// Gauge labels published by the request pool.
	UtilizationMetric    = "utilization"
	QueuedRequestsMetric = "queued-requests"
	SizeMetric           = "size"
)

var (
	// ErrQueueFull is returned when the wait queue is at capacity.
	ErrQueueFull = errors.New("server: request queue full")

	// ErrQueueTimeout is returned when a request waited too long for a worker.
	ErrQueueTimeout = errors.New("server: timed out waiting for a worker")
)

// ThreadPoolConfig configures request concurrency.
type ThreadPoolConfig struct {
	// MaxThreads is the maximum number of requests served concurrently.
	// Default: 1024
	MaxThreads int `yaml:"maxThreads"`

	// MaxQueuedRequests caps requests waiting for a free worker.
	// Default: 0 (unbounded)
	MaxQueuedRequests int `yaml:"maxQueuedRequests"`

	// MaxQueueWait is how long a request may wait for a worker.
	// Default: 0 (until the client goes away)
	MaxQueueWait time.Duration `yaml:"maxQueueWait"`
}

// QueuedThreadPool bounds concurrent request handling and queues the excess.
//
// Contract:
// - Concurrency: safe for concurrent use.
// - Gauges: utilization is busy/max as float64, queued-requests is int64.
type QueuedThreadPool struct {
	config ThreadPoolConfig
	sem    chan struct{}

	mu       sync.Mutex
	busy     int
	maxBusy  int
	queued   int
	rejected int64
}

// NewQueuedThreadPool creates a pool, applying defaults.
func NewQueuedThreadPool(config ThreadPoolConfig) *QueuedThreadPool {
	if config.MaxThreads <= 0 {
		config.MaxThreads = 1024
	}
	if config.MaxQueuedRequests < 0 {
		config.MaxQueuedRequests = 0
	}

	return &QueuedThreadPool{
		config: config,
		sem:    make(chan struct{}, config.MaxThreads),
	}
}

// Acquire takes a worker slot, waiting in the queue if none is free.
func (p *QueuedThreadPool) Acquire(ctx context.Context) error {
	select {
	case p.sem <- struct{}{}:
		p.markBusy()
		return nil
	default:
	}

	p.mu.Lock()
	if p.config.MaxQueuedRequests > 0 && p.queued >= p.config.MaxQueuedRequests {
		p.rejected++
		p.mu.Unlock()
		return ErrQueueFull
	}
	p.queued++
	p.mu.Unlock()

	defer func() {
		p.mu.Lock()
		p.queued--
		p.mu.Unlock()
	}()

	var timeout <-chan time.Time
	if p.config.MaxQueueWait > 0 {
		timer := time.NewTimer(p.config.MaxQueueWait)
		defer timer.Stop()
		timeout = timer.C
	}

	select {
	case p.sem <- struct{}{}:
		p.markBusy()
		return nil
	case <-timeout:
		p.mu.Lock()
		p.rejected++
		p.mu.Unlock()
		return ErrQueueTimeout
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (p *QueuedThreadPool) markBusy() {
	p.mu.Lock()
	p.busy++
	if p.busy > p.maxBusy {
		p.maxBusy = p.busy
	}
	p.mu.Unlock()
}

// Release frees a worker slot.
func (p *QueuedThreadPool) Release() {
	select {
	case <-p.sem:
		p.mu.Lock()
		p.busy--
		p.mu.Unlock()
	default:
	}
}

// Utilization returns the fraction of workers currently busy.
func (p *QueuedThreadPool) Utilization() float64 {
	p.mu.Lock()
	defer p.mu.Unlock()
	return float64(p.busy) / float64(p.config.MaxThreads)
}

// QueuedRequests returns the number of requests waiting for a worker.
func (p *QueuedThreadPool) QueuedRequests() int64 {
	p.mu.Lock()
	defer p.mu.Unlock()
	return int64(p.queued)
}

// Stats returns a snapshot of pool counters.
func (p *QueuedThreadPool) Stats() ThreadPoolStats {
	p.mu.Lock()
	defer p.mu.Unlock()

	return ThreadPoolStats{
		Busy:       p.busy,
		MaxBusy:    p.maxBusy,
		Idle:       p.config.MaxThreads - p.busy,
		MaxThreads: p.config.MaxThreads,
		Queued:     p.queued,
		Rejected:   p.rejected,
	}
}

// ThreadPoolStats contains pool statistics.
type ThreadPoolStats struct {
	Busy       int
	MaxBusy    int
	Idle       int
	MaxThreads int
	Queued     int
	Rejected   int64
}

// MetricName returns the registry name of one of the pool's gauges.
func MetricName(label string) string {
	return metrics.Name(ThreadPoolComponent, ThreadPoolName, label)
}

// RegisterMetrics publishes the pool gauges into r.
func (p *QueuedThreadPool) RegisterMetrics(r *metrics.Registry) error {
	gauges := map[string]metrics.Gauge{
		UtilizationMetric:    metrics.GaugeFunc[float64](p.Utilization),
		QueuedRequestsMetric: metrics.GaugeFunc[int64](p.QueuedRequests),
		SizeMetric:           metrics.GaugeFunc[int64](func() int64 { return int64(p.config.MaxThreads) }),
	}
	registered := make([]string, 0, len(gauges))
	for label, g := range gauges {
		name := MetricName(label)
		if err := r.Register(name, g); err != nil {
			for _, n := range registered {
				r.Remove(n)
			}
			return err
		}
		registered = append(registered, name)
	}
	return nil
}

// UnregisterMetrics removes the pool gauges from r.
func (p *QueuedThreadPool) UnregisterMetrics(r *metrics.Registry) {
	for _, label := range []string{UtilizationMetric, QueuedRequestsMetric, SizeMetric} {
		r.Remove(MetricName(label))
	}
}

// Middleware runs next on a pool worker, answering 503 when none can be had.
func (p *QueuedThreadPool) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if err := p.Acquire(r.Context()); err != nil {
			http.Error(w, http.StatusText(http.StatusServiceUnavailable), http.StatusServiceUnavailable)
			return
		}
		defer p.Release()
		next.ServeHTTP(w, r)
	})
}
