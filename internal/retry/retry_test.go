package retry

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"
)

type fatalErr struct{ msg string }

func (e *fatalErr) Error() string { return e.msg }
func (e *fatalErr) NonRetryable() {}

func fastConfig(maxAttempts int) Config {
	return Config{
		MaxAttempts:  maxAttempts,
		InitialDelay: time.Millisecond,
		MaxDelay:     5 * time.Millisecond,
		Factor:       2,
	}
}

func TestExecuteSucceedsFirstAttempt(t *testing.T) {
	e := New(fastConfig(3), nil)
	calls := 0
	err := e.Execute(context.Background(), "op", func() error {
		calls++
		return nil
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if calls != 1 {
		t.Errorf("op called %d times, want 1", calls)
	}
}

func TestExecuteRetryBound(t *testing.T) {
	e := New(fastConfig(4), nil)
	calls := 0
	boom := errors.New("transient")
	err := e.Execute(context.Background(), "op", func() error {
		calls++
		return boom
	})
	if calls != 4 {
		t.Errorf("op called %d times, want exactly 4", calls)
	}
	if !errors.Is(err, boom) {
		t.Errorf("final error = %v, want the last error rethrown unchanged", err)
	}
}

func TestExecuteEventualSuccess(t *testing.T) {
	e := New(fastConfig(3), nil)
	calls := 0
	err := e.Execute(context.Background(), "op", func() error {
		calls++
		if calls < 3 {
			return errors.New("transient")
		}
		return nil
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if calls != 3 {
		t.Errorf("op called %d times, want 3", calls)
	}
}

func TestExecuteNonRetryableAbortsImmediately(t *testing.T) {
	e := New(fastConfig(5), nil)
	calls := 0
	fatal := &fatalErr{msg: "security violation"}
	err := e.Execute(context.Background(), "op", func() error {
		calls++
		return fatal
	})
	if calls != 1 {
		t.Errorf("op called %d times, want 1 for non-retryable error", calls)
	}
	if !errors.Is(err, fatal) {
		t.Errorf("error = %v, want the fatal error unchanged", err)
	}
}

func TestExecuteNonRetryableDetectedThroughWrapping(t *testing.T) {
	e := New(fastConfig(5), nil)
	calls := 0
	inner := &fatalErr{msg: "inner"}
	err := e.Execute(context.Background(), "op", func() error {
		calls++
		return fmt.Errorf("spawning backend: %w", inner)
	})
	if calls != 1 {
		t.Errorf("op called %d times, want 1 for wrapped non-retryable error", calls)
	}
	if !errors.Is(err, inner) {
		t.Errorf("error = %v, want chain containing the fatal error", err)
	}
}

func TestExecuteClampsMaxAttempts(t *testing.T) {
	e := New(Config{MaxAttempts: 0, InitialDelay: time.Millisecond, Factor: 2}, nil)
	calls := 0
	_ = e.Execute(context.Background(), "op", func() error {
		calls++
		return errors.New("x")
	})
	if calls != 1 {
		t.Errorf("op called %d times, want 1 with clamped MaxAttempts", calls)
	}
}

func TestExecuteContextCancelDuringBackoff(t *testing.T) {
	e := New(Config{MaxAttempts: 3, InitialDelay: time.Hour, MaxDelay: time.Hour, Factor: 2}, nil)
	ctx, cancel := context.WithCancel(context.Background())
	calls := 0
	go func() {
		time.Sleep(10 * time.Millisecond)
		cancel()
	}()
	err := e.Execute(ctx, "op", func() error {
		calls++
		return errors.New("transient")
	})
	if !errors.Is(err, context.Canceled) {
		t.Errorf("error = %v, want context.Canceled", err)
	}
	if calls != 1 {
		t.Errorf("op called %d times, want 1", calls)
	}
}

func TestDelayForCapsAtMaxDelay(t *testing.T) {
	e := New(Config{
		MaxAttempts:  10,
		InitialDelay: 100 * time.Millisecond,
		MaxDelay:     400 * time.Millisecond,
		Factor:       2,
	}, nil)

	tests := []struct {
		attempt int
		want    time.Duration
	}{
		{2, 100 * time.Millisecond},
		{3, 200 * time.Millisecond},
		{4, 400 * time.Millisecond},
		{5, 400 * time.Millisecond},
		{9, 400 * time.Millisecond},
	}
	for _, tt := range tests {
		if got := e.delayFor(tt.attempt); got != tt.want {
			t.Errorf("delayFor(%d) = %v, want %v", tt.attempt, got, tt.want)
		}
	}
}
