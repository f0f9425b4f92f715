// Package retry implements exponential backoff with jitter for transient
// failures when establishing and health-checking database connections.
package retry

import (
	"context"
	"math/rand"
	"strings"
	"time"
)

// Config defines retry behavior with exponential backoff.
type Config struct {
	MaxRetries   int
	InitialDelay time.Duration
	MaxDelay     time.Duration
	Multiplier   float64
	JitterFactor float64 // 0.0-1.0, +/- fraction of the delay
}

// DefaultConfig returns sensible defaults for connection operations:
// 3 retries starting at 100ms, doubling, capped at 5s, with 10% jitter.
func DefaultConfig() *Config {
	return &Config{
		MaxRetries:   3,
		InitialDelay: 100 * time.Millisecond,
		MaxDelay:     5 * time.Second,
		Multiplier:   2.0,
		JitterFactor: 0.1,
	}
}

// applyJitter spreads delays to avoid synchronized retries.
func applyJitter(delay time.Duration, jitterFactor float64) time.Duration {
	if jitterFactor <= 0 {
		return delay
	}
	jitter := float64(delay) * jitterFactor * (rand.Float64()*2 - 1)
	return time.Duration(float64(delay) + jitter)
}

// Do executes fn with backoff until it succeeds or the retry budget is
// exhausted. Respects context cancellation during wait periods.
func Do(ctx context.Context, cfg *Config, fn func() error) error {
	if cfg == nil {
		cfg = DefaultConfig()
	}

	var lastErr error
	delay := cfg.InitialDelay

	for attempt := 0; attempt <= cfg.MaxRetries; attempt++ {
		if err := fn(); err == nil {
			return nil
		} else {
			lastErr = err
			if attempt < cfg.MaxRetries {
				select {
				case <-time.After(applyJitter(delay, cfg.JitterFactor)):
					delay = time.Duration(float64(delay) * cfg.Multiplier)
					if delay > cfg.MaxDelay {
						delay = cfg.MaxDelay
					}
				case <-ctx.Done():
					return ctx.Err()
				}
			}
		}
	}

	return lastErr
}

// DoWithResult is Do for functions that return a value, such as pool
// constructors.
func DoWithResult[T any](ctx context.Context, cfg *Config, fn func() (T, error)) (T, error) {
	var result T
	err := Do(ctx, cfg, func() error {
		r, err := fn()
		if err != nil {
			return err
		}
		result = r
		return nil
	})
	return result, err
}

// RetryableError lets errors declare their own retryability explicitly.
type RetryableError interface {
	error
	IsRetryable() bool
}

// IsRetryable determines whether an error is transient. Errors implementing
// RetryableError decide for themselves; everything else is pattern-matched
// against known transient failure strings so permanent failures (auth errors,
// bad SQL) don't burn retries.
func IsRetryable(err error) bool {
	if err == nil {
		return false
	}

	if r, ok := err.(RetryableError); ok {
		return r.IsRetryable()
	}

	errStr := strings.ToLower(err.Error())
	retryablePatterns := []string{
		"connection refused",
		"connection reset",
		"broken pipe",
		"no such host",
		"timeout",
		"timed out",
		"temporary failure",
		"too many connections",
		"deadlock",
		"i/o timeout",
		"network is unreachable",
		"rate limit",
		"too many requests",
		"service unavailable",
		"429",
		"500",
		"502",
		"503",
		"504",
	}

	for _, pattern := range retryablePatterns {
		if strings.Contains(errStr, pattern) {
			return true
		}
	}
	return false
}

// DoIfRetryable retries only while the error is transient. Permanent errors
// return immediately.
func DoIfRetryable(ctx context.Context, cfg *Config, fn func() error) error {
	if cfg == nil {
		cfg = DefaultConfig()
	}

	var lastErr error
	delay := cfg.InitialDelay

	for attempt := 0; attempt <= cfg.MaxRetries; attempt++ {
		err := fn()
		if err == nil {
			return nil
		}
		lastErr = err

		if !IsRetryable(err) {
			return err
		}

		if attempt < cfg.MaxRetries {
			select {
			case <-time.After(applyJitter(delay, cfg.JitterFactor)):
				delay = time.Duration(float64(delay) * cfg.Multiplier)
				if delay > cfg.MaxDelay {
					delay = cfg.MaxDelay
				}
			case <-ctx.Done():
				return ctx.Err()
			}
		}
	}

	return lastErr
}
