package health

import (
	"errors"
	"testing"
)

func TestSentinelErrors(t *testing.T) {
	tests := []struct {
		name string
		err  error
	}{
		{"ErrCheckFailed", ErrCheckFailed},
		{"ErrCheckTimeout", ErrCheckTimeout},
		{"ErrCheckerNotFound", ErrCheckerNotFound},
		{"ErrCheckPanicked", ErrCheckPanicked},
		{"ErrInvalidRange", ErrInvalidRange},
		{"ErrGaugeUnresolved", ErrGaugeUnresolved},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			if tt.err == nil {
				t.Errorf("%s is nil", tt.name)
			}

			if tt.err.Error() == "" {
				t.Errorf("%s has empty message", tt.name)
			}
		})
	}
}

func TestGaugeErrors(t *testing.T) {
	tests := []struct {
		err  error
		want string
	}{
		{&GaugeNotFoundError{Name: "a.b"}, "gauge not found: a.b"},
		{&AmbiguousGaugeError{Name: "a.b", Count: 2}, "more than one gauge matching the name: a.b (2 matches)"},
		{&GaugeTypeError{Name: "a.b", Want: "int64", Got: "float64"}, "gauge a.b: expected int64 value, got float64"},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.want, func(t *testing.T) {
			if got := tt.err.Error(); got != tt.want {
				t.Errorf("Error() = %q, want %q", got, tt.want)
			}
			if !errors.Is(tt.err, ErrGaugeUnresolved) {
				t.Errorf("%T does not wrap ErrGaugeUnresolved", tt.err)
			}
		})
	}
}
