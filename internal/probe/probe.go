// Package probe repeats an operation with backoff until it succeeds or the
// attempt budget runs out. The check command uses it to wait for a server to
// report a passing status.
package probe

import (
	"context"
	"errors"
	"math"
	"math/rand"
	"time"
)

// Strategy selects how the wait grows between attempts.
type Strategy int

const (
	// Exponential multiplies the wait by Multiplier after every attempt.
	Exponential Strategy = iota
	// Linear grows the wait by Interval after every attempt.
	Linear
	// Constant waits Interval between all attempts.
	Constant
)

// Config configures a Prober. Zero fields take the defaults noted below.
type Config struct {
	// Attempts is the total number of tries including the first.
	// Default: 1
	Attempts int

	// Interval is the wait before the second attempt.
	// Default: 1s
	Interval time.Duration

	// MaxInterval caps any single wait.
	// Default: 30s
	MaxInterval time.Duration

	// Multiplier is the growth factor for Exponential.
	// Default: 2.0
	Multiplier float64

	Strategy Strategy

	// Jitter adds up to 25% random delay to every wait.
	Jitter bool

	// Retryable reports whether err warrants another attempt.
	// Default: every non-nil error.
	Retryable func(err error) bool

	// OnRetry is called before each wait.
	OnRetry func(attempt int, err error, wait time.Duration)
}

// Prober runs operations under a Config.
type Prober struct {
	cfg Config
}

// New returns a Prober with defaults applied to cfg.
func New(cfg Config) *Prober {
	if cfg.Attempts <= 0 {
		cfg.Attempts = 1
	}
	if cfg.Interval <= 0 {
		cfg.Interval = time.Second
	}
	if cfg.MaxInterval <= 0 {
		cfg.MaxInterval = 30 * time.Second
	}
	if cfg.Multiplier <= 0 {
		cfg.Multiplier = 2.0
	}
	if cfg.Retryable == nil {
		cfg.Retryable = func(err error) bool { return err != nil }
	}
	return &Prober{cfg: cfg}
}

// Do calls op until it returns nil, returns a non-retryable error, or the
// attempts are spent. The last error is returned. If ctx ends while waiting,
// the context error is joined with the last error.
func (p *Prober) Do(ctx context.Context, op func(context.Context) error) error {
	var last error
	for attempt := 1; attempt <= p.cfg.Attempts; attempt++ {
		last = op(ctx)
		if last == nil {
			return nil
		}
		if !p.cfg.Retryable(last) || attempt == p.cfg.Attempts {
			return last
		}

		wait := p.Delay(attempt)
		if p.cfg.OnRetry != nil {
			p.cfg.OnRetry(attempt, last, wait)
		}

		timer := time.NewTimer(wait)
		select {
		case <-ctx.Done():
			timer.Stop()
			return errors.Join(ctx.Err(), last)
		case <-timer.C:
		}
	}
	return last
}

// Delay returns the wait after the given failed attempt, counted from 1.
func (p *Prober) Delay(attempt int) time.Duration {
	var d time.Duration
	switch p.cfg.Strategy {
	case Constant:
		d = p.cfg.Interval
	case Linear:
		d = p.cfg.Interval * time.Duration(attempt)
	default:
		f := float64(p.cfg.Interval) * math.Pow(p.cfg.Multiplier, float64(attempt-1))
		d = p.cfg.MaxInterval
		if f < float64(p.cfg.MaxInterval) {
			d = time.Duration(f)
		}
	}

	if d > p.cfg.MaxInterval || d < 0 {
		d = p.cfg.MaxInterval
	}
	if p.cfg.Jitter && d >= 4 {
		// #nosec G404 -- timing variance only.
		d += time.Duration(rand.Int63n(int64(d / 4)))
	}
	return d
}

// Config returns the effective configuration.
func (p *Prober) Config() Config {
	return p.cfg
}
