package probe

import (
	"context"
	"errors"
	"testing"
	"time"
)

var errDown = errors.New("down")

func TestNew_Defaults(t *testing.T) {
	cfg := New(Config{}).Config()

	if cfg.Attempts != 1 {
		t.Errorf("Attempts = %d, want 1", cfg.Attempts)
	}
	if cfg.Interval != time.Second {
		t.Errorf("Interval = %v, want 1s", cfg.Interval)
	}
	if cfg.MaxInterval != 30*time.Second {
		t.Errorf("MaxInterval = %v, want 30s", cfg.MaxInterval)
	}
	if cfg.Multiplier != 2.0 {
		t.Errorf("Multiplier = %f, want 2.0", cfg.Multiplier)
	}
	if cfg.Retryable == nil || !cfg.Retryable(errDown) {
		t.Error("default Retryable should accept any error")
	}
}

func TestProber_SingleAttempt(t *testing.T) {
	calls := 0
	err := New(Config{}).Do(context.Background(), func(ctx context.Context) error {
		calls++
		return errDown
	})

	if !errors.Is(err, errDown) {
		t.Errorf("Do() error = %v, want errDown", err)
	}
	if calls != 1 {
		t.Errorf("calls = %d, want 1", calls)
	}
}

func TestProber_SucceedsAfterRetries(t *testing.T) {
	var retried []int
	p := New(Config{
		Attempts: 5,
		Interval: time.Millisecond,
		OnRetry: func(attempt int, err error, wait time.Duration) {
			retried = append(retried, attempt)
		},
	})

	calls := 0
	err := p.Do(context.Background(), func(ctx context.Context) error {
		calls++
		if calls < 3 {
			return errDown
		}
		return nil
	})

	if err != nil {
		t.Fatalf("Do() error = %v", err)
	}
	if calls != 3 {
		t.Errorf("calls = %d, want 3", calls)
	}
	if len(retried) != 2 || retried[0] != 1 || retried[1] != 2 {
		t.Errorf("OnRetry attempts = %v, want [1 2]", retried)
	}
}

func TestProber_Exhausted(t *testing.T) {
	p := New(Config{Attempts: 3, Interval: time.Millisecond, Strategy: Constant})

	calls := 0
	err := p.Do(context.Background(), func(ctx context.Context) error {
		calls++
		return errDown
	})

	if !errors.Is(err, errDown) {
		t.Errorf("Do() error = %v, want errDown", err)
	}
	if calls != 3 {
		t.Errorf("calls = %d, want 3", calls)
	}
}

func TestProber_NotRetryable(t *testing.T) {
	fatal := errors.New("fatal")
	p := New(Config{
		Attempts:  5,
		Interval:  time.Millisecond,
		Retryable: func(err error) bool { return !errors.Is(err, fatal) },
	})

	calls := 0
	err := p.Do(context.Background(), func(ctx context.Context) error {
		calls++
		return fatal
	})

	if !errors.Is(err, fatal) {
		t.Errorf("Do() error = %v, want fatal", err)
	}
	if calls != 1 {
		t.Errorf("calls = %d, want 1", calls)
	}
}

func TestProber_ContextCancelledWhileWaiting(t *testing.T) {
	p := New(Config{Attempts: 5, Interval: time.Hour})
	ctx, cancel := context.WithCancel(context.Background())

	err := p.Do(ctx, func(ctx context.Context) error {
		cancel()
		return errDown
	})

	if !errors.Is(err, context.Canceled) {
		t.Errorf("Do() error = %v, want context.Canceled", err)
	}
	if !errors.Is(err, errDown) {
		t.Errorf("Do() error = %v, should keep the last attempt error", err)
	}
}

func TestProber_Delay(t *testing.T) {
	tests := []struct {
		name     string
		cfg      Config
		attempts []int
		want     []time.Duration
	}{
		{
			name:     "exponential",
			cfg:      Config{Interval: 100 * time.Millisecond},
			attempts: []int{1, 2, 3, 4},
			want:     []time.Duration{100 * time.Millisecond, 200 * time.Millisecond, 400 * time.Millisecond, 800 * time.Millisecond},
		},
		{
			name:     "linear",
			cfg:      Config{Interval: 100 * time.Millisecond, Strategy: Linear},
			attempts: []int{1, 2, 3},
			want:     []time.Duration{100 * time.Millisecond, 200 * time.Millisecond, 300 * time.Millisecond},
		},
		{
			name:     "constant",
			cfg:      Config{Interval: 100 * time.Millisecond, Strategy: Constant},
			attempts: []int{1, 5},
			want:     []time.Duration{100 * time.Millisecond, 100 * time.Millisecond},
		},
		{
			name:     "capped",
			cfg:      Config{Interval: time.Second, MaxInterval: 3 * time.Second},
			attempts: []int{2, 3, 60},
			want:     []time.Duration{2 * time.Second, 3 * time.Second, 3 * time.Second},
		},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			p := New(tt.cfg)
			for i, attempt := range tt.attempts {
				if got := p.Delay(attempt); got != tt.want[i] {
					t.Errorf("Delay(%d) = %v, want %v", attempt, got, tt.want[i])
				}
			}
		})
	}
}

func TestProber_DelayJitter(t *testing.T) {
	p := New(Config{Interval: 100 * time.Millisecond, Strategy: Constant, Jitter: true})

	for i := 0; i < 50; i++ {
		d := p.Delay(1)
		if d < 100*time.Millisecond || d >= 125*time.Millisecond {
			t.Fatalf("Delay() = %v, want within [100ms, 125ms)", d)
		}
	}
}
