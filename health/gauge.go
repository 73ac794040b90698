package health

import (
	"fmt"

	"github.com/jonwraymond/serverops/metrics"
)

// GaugeSource is the registry capability a deferred gauge needs.
// *metrics.Registry satisfies it. Sources that allow several gauges under one
// name must return each of them under a distinct key.
type GaugeSource interface {
	Gauges(filter metrics.Filter) map[string]metrics.Gauge
}

// DeferredGauge reads a named gauge at call time rather than at construction.
//
// Health checks are usually assembled before the server (and its gauges)
// exist, so the lookup happens on every Value call. Nothing is cached.
type DeferredGauge[T Number] struct {
	source GaugeSource
	name   string
}

// Deferred creates a gauge reference without touching source.
func Deferred[T Number](source GaugeSource, name string) *DeferredGauge[T] {
	return &DeferredGauge[T]{source: source, name: name}
}

// Name returns the gauge name being resolved.
func (d *DeferredGauge[T]) Name() string {
	return d.name
}

// Value resolves the gauge and returns its current value.
//
// Exactly one registered gauge must match the name; zero matches yield a
// *GaugeNotFoundError and several yield an *AmbiguousGaugeError. The value
// must have dynamic type T, otherwise a *GaugeTypeError is returned.
func (d *DeferredGauge[T]) Value() (T, error) {
	var zero T

	if d.source == nil {
		return zero, &GaugeNotFoundError{Name: d.name}
	}

	gauges := d.source.Gauges(metrics.NameEquals(d.name))
	switch len(gauges) {
	case 0:
		return zero, &GaugeNotFoundError{Name: d.name}
	case 1:
	default:
		return zero, &AmbiguousGaugeError{Name: d.name, Count: len(gauges)}
	}

	var g metrics.Gauge
	for _, only := range gauges {
		g = only
	}
	if g == nil {
		return zero, &GaugeNotFoundError{Name: d.name}
	}

	raw := g.Value()
	v, ok := raw.(T)
	if !ok {
		return zero, &GaugeTypeError{
			Name: d.name,
			Want: fmt.Sprintf("%T", zero),
			Got:  fmt.Sprintf("%T", raw),
		}
	}
	return v, nil
}
