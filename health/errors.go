package health

import (
	"errors"
	"fmt"
)

var (
	// ErrCheckFailed indicates a health check failed.
	ErrCheckFailed = errors.New("health: check failed")

	// ErrCheckTimeout indicates a health check timed out.
	ErrCheckTimeout = errors.New("health: check timeout")

	// ErrCheckPanicked indicates a health check panicked while running.
	ErrCheckPanicked = errors.New("health: check panicked")

	// ErrCheckerNotFound indicates a checker was not found.
	ErrCheckerNotFound = errors.New("health: checker not found")

	// ErrInvalidRange indicates a threshold range with unordered or non-finite bounds.
	ErrInvalidRange = errors.New("health: invalid threshold range")

	// ErrGaugeUnresolved is wrapped by every gauge resolution error.
	ErrGaugeUnresolved = errors.New("health: gauge unresolved")
)

// GaugeNotFoundError is returned when no registered gauge matches a name.
type GaugeNotFoundError struct {
	Name string
}

func (e *GaugeNotFoundError) Error() string {
	return "gauge not found: " + e.Name
}

func (e *GaugeNotFoundError) Unwrap() error { return ErrGaugeUnresolved }

// AmbiguousGaugeError is returned when more than one gauge matches a name.
type AmbiguousGaugeError struct {
	Name  string
	Count int
}

func (e *AmbiguousGaugeError) Error() string {
	return fmt.Sprintf("more than one gauge matching the name: %s (%d matches)", e.Name, e.Count)
}

func (e *AmbiguousGaugeError) Unwrap() error { return ErrGaugeUnresolved }

// GaugeTypeError is returned when a gauge reports a value of an unexpected type.
type GaugeTypeError struct {
	Name string
	Want string
	Got  string
}

func (e *GaugeTypeError) Error() string {
	return fmt.Sprintf("gauge %s: expected %s value, got %s", e.Name, e.Want, e.Got)
}

func (e *GaugeTypeError) Unwrap() error { return ErrGaugeUnresolved }
