package health

import (
	"context"
	"errors"
	"fmt"
	"math"
)

// ValueSource supplies the current value for a range check.
type ValueSource[T Number] func() (T, error)

// ValueRangeCheck classifies a live value against a threshold range.
//
// Contract:
// - Concurrency: safe for concurrent use; the check holds no mutable state.
// - Errors: resolution failures become an Unknown result, never a panic.
type ValueRangeCheck[T Number] struct {
	name   string
	rng    Range[T]
	source ValueSource[T]
}

// NewValueRangeCheck creates a check named name.
func NewValueRangeCheck[T Number](name string, rng Range[T], source ValueSource[T]) *ValueRangeCheck[T] {
	return &ValueRangeCheck[T]{name: name, rng: rng, source: source}
}

// NewGaugeRangeCheck creates a check that resolves gauge on every invocation.
func NewGaugeRangeCheck[T Number](name string, rng Range[T], gauge *DeferredGauge[T]) *ValueRangeCheck[T] {
	return NewValueRangeCheck(name, rng, gauge.Value)
}

// Name returns the name of this checker.
func (c *ValueRangeCheck[T]) Name() string {
	return c.name
}

// Range returns the thresholds the check classifies against.
func (c *ValueRangeCheck[T]) Range() Range[T] {
	return c.rng
}

// Check reads the current value and classifies it.
func (c *ValueRangeCheck[T]) Check(ctx context.Context) (result Result) {
	select {
	case <-ctx.Done():
		return Unknown("context cancelled", ctx.Err())
	default:
	}

	defer func() {
		if r := recover(); r != nil {
			result = Unhealthy(
				fmt.Sprintf("%s: check failed: %v", c.name, r),
				fmt.Errorf("%w: %v", ErrCheckPanicked, r),
			)
		}
	}()

	v, err := c.source()
	if err != nil {
		return Unknown(c.failureMessage(err), err)
	}

	if math.IsNaN(float64(v)) {
		return Unhealthy(fmt.Sprintf("%s: value is not a number (thresholds %s)", c.name, c.rng), ErrCheckFailed).
			WithDetails(map[string]any{"min": c.rng.Min, "max": c.rng.Max})
	}

	details := map[string]any{
		"value": v,
		"min":   c.rng.Min,
		"max":   c.rng.Max,
	}
	msg := fmt.Sprintf("%s: value %v (thresholds %s)", c.name, v, c.rng)

	switch status := c.rng.Classify(v); status {
	case StatusDegraded:
		return Degraded(msg + " below min").WithValue(v).WithDetails(details)
	case StatusUnhealthy:
		if v > c.rng.Max {
			msg += " above max"
		}
		return Unhealthy(msg, ErrCheckFailed).WithValue(v).WithDetails(details)
	default:
		return Healthy(msg).WithValue(v).WithDetails(details)
	}
}

func (c *ValueRangeCheck[T]) failureMessage(err error) string {
	var notFound *GaugeNotFoundError
	if errors.As(err, &notFound) {
		return "check failed: gauge not found: " + notFound.Name
	}
	return "check failed: " + err.Error()
}
