package retry

import (
	"context"
	"log/slog"
	"time"
)

// NonRetryable marks errors that must abort retrying immediately.
// Security and validation failures implement it.
type NonRetryable interface {
	error
	NonRetryable()
}

// Config controls retry behavior.
type Config struct {
	MaxAttempts  int
	InitialDelay time.Duration
	MaxDelay     time.Duration
	Factor       float64
}

// DefaultConfig matches the dispatcher's stock retry posture.
func DefaultConfig() Config {
	return Config{
		MaxAttempts:  3,
		InitialDelay: time.Second,
		MaxDelay:     30 * time.Second,
		Factor:       2,
	}
}

// Executor wraps an operation with bounded retry and exponential backoff.
type Executor struct {
	cfg    Config
	logger *slog.Logger
}

// New creates an Executor. MaxAttempts is clamped to at least 1.
func New(cfg Config, logger *slog.Logger) *Executor {
	if cfg.MaxAttempts < 1 {
		cfg.MaxAttempts = 1
	}
	if cfg.Factor <= 0 {
		cfg.Factor = 2
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Executor{cfg: cfg, logger: logger}
}

// Execute runs op up to MaxAttempts times. The delay before attempt k
// (k >= 2) is min(MaxDelay, InitialDelay * Factor^(k-2)), with no jitter.
// An error classified as non-retryable aborts immediately; otherwise the
// last error is returned unchanged once attempts are exhausted, leaving
// final wrapping to the caller.
func (e *Executor) Execute(ctx context.Context, label string, op func() error) error {
	var lastErr error
	for attempt := 1; attempt <= e.cfg.MaxAttempts; attempt++ {
		if attempt > 1 {
			delay := e.delayFor(attempt)
			e.logger.Info("backing off before retry",
				"op", label, "attempt", attempt, "delay", delay)
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(delay):
			}
		}

		e.logger.Debug("executing attempt", "op", label, "attempt", attempt, "max", e.cfg.MaxAttempts)
		lastErr = op()
		if lastErr == nil {
			return nil
		}

		var fatal NonRetryable
		if isNonRetryable(lastErr, &fatal) {
			e.logger.Warn("non-retryable failure, aborting",
				"op", label, "attempt", attempt, "error", lastErr)
			return lastErr
		}
		e.logger.Warn("attempt failed",
			"op", label, "attempt", attempt, "max", e.cfg.MaxAttempts, "error", lastErr)
	}
	return lastErr
}

func (e *Executor) delayFor(attempt int) time.Duration {
	delay := e.cfg.InitialDelay
	for i := 2; i < attempt; i++ {
		delay = time.Duration(float64(delay) * e.cfg.Factor)
		if delay >= e.cfg.MaxDelay {
			return e.cfg.MaxDelay
		}
	}
	if e.cfg.MaxDelay > 0 && delay > e.cfg.MaxDelay {
		return e.cfg.MaxDelay
	}
	return delay
}

func isNonRetryable(err error, target *NonRetryable) bool {
	for err != nil {
		if nr, ok := err.(NonRetryable); ok {
			*target = nr
			return true
		}
		u, ok := err.(interface{ Unwrap() error })
		if !ok {
			return false
		}
		err = u.Unwrap()
	}
	return false
}
