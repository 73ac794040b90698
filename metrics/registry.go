package metrics

import (
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"
)

var (
	// ErrDuplicateMetric is returned when a name is already registered.
	ErrDuplicateMetric = errors.New("metrics: metric already registered")

	// ErrInvalidMetric is returned for an empty name or nil gauge.
	ErrInvalidMetric = errors.New("metrics: invalid metric registration")
)

// Gauge is a named source of a current measurement.
//
// Value is read on every call; implementations must be safe for concurrent use.
type Gauge interface {
	Value() any
}

// GaugeFunc adapts a function to the Gauge interface.
type GaugeFunc[T any] func() T

// Value calls f.
func (f GaugeFunc[T]) Value() any {
	return f()
}

// Filter selects gauges by name.
type Filter func(name string) bool

// NameEquals returns a filter matching exactly one name.
func NameEquals(name string) Filter {
	return func(n string) bool { return n == name }
}

// Registry holds gauges keyed by name.
//
// Contract:
// - Concurrency: safe for concurrent use.
// - Ownership: Gauges returns a fresh map; callers may modify it.
type Registry struct {
	mu     sync.RWMutex
	gauges map[string]Gauge
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{gauges: make(map[string]Gauge)}
}

// Register adds a gauge under name.
func (r *Registry) Register(name string, g Gauge) error {
	if strings.TrimSpace(name) == "" || g == nil {
		return ErrInvalidMetric
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.gauges[name]; exists {
		return fmt.Errorf("%w: %s", ErrDuplicateMetric, name)
	}
	r.gauges[name] = g
	return nil
}

// Remove deletes the gauge registered under name and reports whether it existed.
func (r *Registry) Remove(name string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	_, ok := r.gauges[name]
	delete(r.gauges, name)
	return ok
}

// Gauges returns every gauge whose name passes filter. A nil filter matches all.
func (r *Registry) Gauges(filter Filter) map[string]Gauge {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make(map[string]Gauge)
	for name, g := range r.gauges {
		if filter == nil || filter(name) {
			out[name] = g
		}
	}
	return out
}

// Names returns the registered gauge names in sorted order.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	names := make([]string, 0, len(r.gauges))
	for name := range r.gauges {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Name joins a component identifier and labels into a dotted metric name.
// Empty parts are skipped.
func Name(component string, parts ...string) string {
	var b strings.Builder
	b.WriteString(component)
	for _, p := range parts {
		if p == "" {
			continue
		}
		if b.Len() > 0 {
			b.WriteByte('.')
		}
		b.WriteString(p)
	}
	return b.String()
}
