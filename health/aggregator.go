package health

import (
	"context"
	"fmt"
	"slices"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"
)

// AggregatorConfig configures an Aggregator.
type AggregatorConfig struct {
	// Timeout bounds a whole CheckAll or Check call.
	// Default: 10 seconds
	Timeout time.Duration

	// MaxConcurrent limits how many checks run at once. Zero runs every
	// check in its own goroutine; 1 runs them one after another.
	MaxConcurrent int
}

// Aggregator runs named checks and reduces their results to one status.
type Aggregator struct {
	config AggregatorConfig

	mu       sync.RWMutex
	checkers map[string]Checker
	order    []string
}

// NewAggregator creates an aggregator. At most one config is used.
func NewAggregator(config ...AggregatorConfig) *Aggregator {
	var cfg AggregatorConfig
	if len(config) > 0 {
		cfg = config[0]
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 10 * time.Second
	}
	if cfg.MaxConcurrent < 0 {
		cfg.MaxConcurrent = 0
	}

	return &Aggregator{
		config:   cfg,
		checkers: make(map[string]Checker),
	}
}

// Register adds checker under name, replacing any checker already there.
func (a *Aggregator) Register(name string, checker Checker) {
	a.mu.Lock()
	defer a.mu.Unlock()

	if _, exists := a.checkers[name]; !exists {
		a.order = append(a.order, name)
	}
	a.checkers[name] = checker
}

// RegisterGroup adds every check of g under its own name.
func (a *Aggregator) RegisterGroup(g *Group) {
	for _, name := range g.Names() {
		c, _ := g.Get(name)
		a.Register(name, c)
	}
}

// Unregister removes the checker registered under name.
func (a *Aggregator) Unregister(name string) {
	a.mu.Lock()
	defer a.mu.Unlock()

	if _, ok := a.checkers[name]; !ok {
		return
	}
	delete(a.checkers, name)
	a.order = slices.DeleteFunc(a.order, func(n string) bool { return n == name })
}

// CheckerNames returns registered names in registration order.
func (a *Aggregator) CheckerNames() []string {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return slices.Clone(a.order)
}

// Check runs the checker registered under name.
func (a *Aggregator) Check(ctx context.Context, name string) (Result, error) {
	a.mu.RLock()
	checker, ok := a.checkers[name]
	a.mu.RUnlock()
	if !ok {
		return Result{}, fmt.Errorf("%w: %s", ErrCheckerNotFound, name)
	}

	ctx, cancel := context.WithTimeout(ctx, a.config.Timeout)
	defer cancel()
	return runCheck(ctx, checker), nil
}

// CheckAll runs every registered check and returns the results by name.
// A failing or panicking check never affects the others.
func (a *Aggregator) CheckAll(ctx context.Context) map[string]Result {
	a.mu.RLock()
	names := slices.Clone(a.order)
	checkers := make([]Checker, len(names))
	for i, name := range names {
		checkers[i] = a.checkers[name]
	}
	a.mu.RUnlock()

	results := make(map[string]Result, len(names))
	if len(names) == 0 {
		return results
	}

	ctx, cancel := context.WithTimeout(ctx, a.config.Timeout)
	defer cancel()

	out := make([]Result, len(names))
	var g errgroup.Group
	if a.config.MaxConcurrent > 0 {
		g.SetLimit(a.config.MaxConcurrent)
	}
	for i, checker := range checkers {
		i, checker := i, checker
		g.Go(func() error {
			out[i] = runCheck(ctx, checker)
			return nil
		})
	}
	_ = g.Wait()

	for i, name := range names {
		results[name] = out[i]
	}
	return results
}

// OverallStatus reduces results to their worst status.
func (a *Aggregator) OverallStatus(results map[string]Result) Status {
	return OverallStatus(results)
}

// OverallStatus reduces results to their worst status. A check that could not
// be evaluated counts as unhealthy. An empty set is healthy.
func OverallStatus(results map[string]Result) Status {
	overall := StatusHealthy
	for _, r := range results {
		switch r.Status {
		case StatusUnhealthy, StatusUnknown:
			return StatusUnhealthy
		case StatusDegraded:
			overall = StatusDegraded
		}
	}
	return overall
}

// runCheck evaluates checker, giving up when ctx ends first.
func runCheck(ctx context.Context, checker Checker) Result {
	start := time.Now()
	done := make(chan Result, 1)

	go func() {
		r := safeCheck(ctx, checker)
		r.Duration = time.Since(start)
		if r.Timestamp.IsZero() {
			r.Timestamp = start
		}
		done <- r
	}()

	select {
	case r := <-done:
		return r
	case <-ctx.Done():
		r := Unknown("check timed out", ErrCheckTimeout)
		r.Duration = time.Since(start)
		return r
	}
}

// safeCheck runs checker, converting a panic into an unhealthy result.
func safeCheck(ctx context.Context, checker Checker) (result Result) {
	defer func() {
		if p := recover(); p != nil {
			result = Unhealthy(
				fmt.Sprintf("check failed: %v", p),
				fmt.Errorf("%w: %v", ErrCheckPanicked, p),
			)
		}
	}()
	return checker.Check(ctx)
}

// Checker exposes the aggregator as a single check called name. Its result
// carries the overall status and one detail entry per registered check.
func (a *Aggregator) Checker(name string) Checker {
	return NewCheckerFunc(name, func(ctx context.Context) Result {
		results := a.CheckAll(ctx)

		counts := make(map[Status]int, 4)
		details := make(map[string]any, len(results))
		for n, r := range results {
			counts[r.Status]++
			details[n] = map[string]any{
				"status":   r.Status.String(),
				"message":  r.Message,
				"duration": r.Duration.String(),
			}
		}

		msg := fmt.Sprintf("%d of %d checks healthy", counts[StatusHealthy], len(results))
		return Result{
			Status:    OverallStatus(results),
			Message:   msg,
			Details:   details,
			Timestamp: time.Now(),
		}
	})
}
