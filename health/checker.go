package health

import (
	"context"
	"fmt"
	"net/http"
	"time"
)

// Status is the outcome class of a check. Higher values are worse, except
// that StatusUnknown is treated as unhealthy when results are combined.
type Status int

const (
	// StatusHealthy means the observed value is inside its band.
	StatusHealthy Status = iota
	// StatusDegraded means the value fell below the band's lower bound.
	StatusDegraded
	// StatusUnhealthy means the value rose above the band's upper bound.
	StatusUnhealthy
	// StatusUnknown means the check could not be evaluated at all.
	StatusUnknown
)

var statusNames = [...]string{"healthy", "degraded", "unhealthy", "unknown"}

func (s Status) String() string {
	if s < 0 || int(s) >= len(statusNames) {
		return "unknown"
	}
	return statusNames[s]
}

// ParseStatus is the inverse of Status.String.
func ParseStatus(s string) (Status, error) {
	for i, name := range statusNames {
		if name == s {
			return Status(i), nil
		}
	}
	return StatusUnknown, fmt.Errorf("health: unknown status %q", s)
}

// MarshalText encodes the status by name.
func (s Status) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// UnmarshalText decodes a status name.
func (s *Status) UnmarshalText(b []byte) error {
	v, err := ParseStatus(string(b))
	if err != nil {
		return err
	}
	*s = v
	return nil
}

// Passing reports whether s lets traffic through: healthy or degraded.
func (s Status) Passing() bool {
	return s == StatusHealthy || s == StatusDegraded
}

// HTTPStatus maps s to the response code health endpoints use.
func (s Status) HTTPStatus() int {
	if s.Passing() {
		return http.StatusOK
	}
	return http.StatusServiceUnavailable
}

// Result is the outcome of one check evaluation.
type Result struct {
	Status  Status
	Message string

	// Value is the observed measurement, if the check read one.
	Value any

	Details   map[string]any
	Duration  time.Duration
	Timestamp time.Time
	Error     error
}

func newResult(s Status, message string, err error) Result {
	return Result{Status: s, Message: message, Error: err, Timestamp: time.Now()}
}

// Healthy creates a healthy result.
func Healthy(message string) Result { return newResult(StatusHealthy, message, nil) }

// Degraded creates a degraded result.
func Degraded(message string) Result { return newResult(StatusDegraded, message, nil) }

// Unhealthy creates an unhealthy result.
func Unhealthy(message string, err error) Result {
	return newResult(StatusUnhealthy, message, err)
}

// Unknown creates a result for a check that could not be evaluated.
func Unknown(message string, err error) Result {
	return newResult(StatusUnknown, message, err)
}

// WithDetails returns r with details attached.
func (r Result) WithDetails(details map[string]any) Result {
	r.Details = details
	return r
}

// WithValue returns r carrying the observed value.
func (r Result) WithValue(v any) Result {
	r.Value = v
	return r
}

// WithDuration returns r with its duration set.
func (r Result) WithDuration(d time.Duration) Result {
	r.Duration = d
	return r
}

// Checker evaluates one health condition.
type Checker interface {
	Name() string
	Check(ctx context.Context) Result
}

// CheckerFunc adapts a function into a named Checker.
type CheckerFunc struct {
	name string
	fn   func(context.Context) Result
}

// NewCheckerFunc names fn as a Checker.
func NewCheckerFunc(name string, fn func(context.Context) Result) *CheckerFunc {
	return &CheckerFunc{name: name, fn: fn}
}

func (f *CheckerFunc) Name() string { return f.name }

func (f *CheckerFunc) Check(ctx context.Context) Result { return f.fn(ctx) }
