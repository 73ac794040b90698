package health

import (
	"fmt"
	"math"
)

// Number is the set of numeric kinds a threshold range can hold.
type Number interface {
	~int | ~int32 | ~int64 | ~float32 | ~float64
}

// Range is an immutable pair of threshold bounds.
//
// Values inside [Min, Max] are healthy. A value below Min is degraded
// (stalled or idle system); a value above Max is unhealthy (saturation).
type Range[T Number] struct {
	Min T `yaml:"min" json:"min"`
	Max T `yaml:"max" json:"max"`
}

// IntRange is a threshold range over integer counts.
type IntRange = Range[int64]

// DoubleRange is a threshold range over real-valued ratios.
type DoubleRange = Range[float64]

// NewRange creates a validated range.
func NewRange[T Number](min, max T) (Range[T], error) {
	r := Range[T]{Min: min, Max: max}
	if err := r.Validate(); err != nil {
		return Range[T]{}, err
	}
	return r, nil
}

// MustRange is like NewRange but panics on invalid bounds.
// Intended for package-level defaults.
func MustRange[T Number](min, max T) Range[T] {
	r, err := NewRange(min, max)
	if err != nil {
		panic(err)
	}
	return r
}

// Validate reports whether both bounds are finite and ordered.
func (r Range[T]) Validate() error {
	if !finite(float64(r.Min)) || !finite(float64(r.Max)) {
		return fmt.Errorf("%w: bounds must be finite (min=%v max=%v)", ErrInvalidRange, r.Min, r.Max)
	}
	if r.Min > r.Max {
		return fmt.Errorf("%w: min %v is greater than max %v", ErrInvalidRange, r.Min, r.Max)
	}
	return nil
}

// Classify maps a value to a status. Bounds are inclusive.
func (r Range[T]) Classify(v T) Status {
	f := float64(v)
	switch {
	case math.IsNaN(f):
		return StatusUnhealthy
	case v < r.Min:
		return StatusDegraded
	case v > r.Max:
		return StatusUnhealthy
	default:
		return StatusHealthy
	}
}

// String returns the bounds in a human-readable form.
func (r Range[T]) String() string {
	return fmt.Sprintf("min=%v max=%v", r.Min, r.Max)
}

func finite(f float64) bool {
	return !math.IsNaN(f) && !math.IsInf(f, 0)
}
