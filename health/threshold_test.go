package health

import (
	"errors"
	"math"
	"testing"
)

func TestNewRange(t *testing.T) {
	r, err := NewRange[int64](3, 15)
	if err != nil {
		t.Fatalf("NewRange() error = %v", err)
	}
	if r.Min != 3 || r.Max != 15 {
		t.Errorf("NewRange() = %v, want min=3 max=15", r)
	}

	if _, err := NewRange(5.0, 5.0); err != nil {
		t.Errorf("NewRange(5, 5) error = %v, want nil", err)
	}
}

func TestRange_Validate(t *testing.T) {
	tests := []struct {
		name string
		rng  DoubleRange
	}{
		{"unordered", DoubleRange{Min: 0.9, Max: 0.7}},
		{"nan min", DoubleRange{Min: math.NaN(), Max: 1}},
		{"inf max", DoubleRange{Min: 0, Max: math.Inf(1)}},
		{"neg inf min", DoubleRange{Min: math.Inf(-1), Max: 0}},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			if err := tt.rng.Validate(); !errors.Is(err, ErrInvalidRange) {
				t.Errorf("Validate() error = %v, want ErrInvalidRange", err)
			}
		})
	}
}

func TestRange_ValidateLargeInts(t *testing.T) {
	// Adjacent int64 bounds collapse to one float64 above 2^53.
	if err := (IntRange{Min: math.MaxInt64, Max: math.MaxInt64 - 1}).Validate(); !errors.Is(err, ErrInvalidRange) {
		t.Errorf("Validate() error = %v, want ErrInvalidRange", err)
	}
	if err := (IntRange{Min: math.MaxInt64 - 1, Max: math.MaxInt64}).Validate(); err != nil {
		t.Errorf("Validate() error = %v, want nil", err)
	}
}

func TestMustRange_Panics(t *testing.T) {
	defer func() {
		if recover() == nil {
			t.Error("MustRange(2, 1) did not panic")
		}
	}()
	MustRange(2, 1)
}

func TestRange_ClassifyInt(t *testing.T) {
	r := MustRange[int64](3, 15)

	for v := int64(3); v <= 15; v++ {
		if got := r.Classify(v); got != StatusHealthy {
			t.Errorf("Classify(%d) = %v, want healthy", v, got)
		}
	}
	for _, v := range []int64{-100, 0, 2} {
		if got := r.Classify(v); got != StatusDegraded {
			t.Errorf("Classify(%d) = %v, want degraded", v, got)
		}
	}
	for _, v := range []int64{16, 100, math.MaxInt64} {
		if got := r.Classify(v); got != StatusUnhealthy {
			t.Errorf("Classify(%d) = %v, want unhealthy", v, got)
		}
	}
}

func TestRange_ClassifyFloat(t *testing.T) {
	r := MustRange(0.7, 0.9)

	tests := []struct {
		v    float64
		want Status
	}{
		{0.0, StatusDegraded},
		{0.69999, StatusDegraded},
		{0.7, StatusHealthy},
		{0.8, StatusHealthy},
		{0.9, StatusHealthy},
		{0.90001, StatusUnhealthy},
		{0.95, StatusUnhealthy},
		{math.Inf(1), StatusUnhealthy},
		{math.Inf(-1), StatusDegraded},
		{math.NaN(), StatusUnhealthy},
	}

	for _, tt := range tests {
		if got := r.Classify(tt.v); got != tt.want {
			t.Errorf("Classify(%v) = %v, want %v", tt.v, got, tt.want)
		}
	}
}

func TestRange_String(t *testing.T) {
	if got := MustRange(0.7, 0.9).String(); got != "min=0.7 max=0.9" {
		t.Errorf("String() = %q", got)
	}
	if got := MustRange[int64](3, 15).String(); got != "min=3 max=15" {
		t.Errorf("String() = %q", got)
	}
}
