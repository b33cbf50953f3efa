package retry

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"strings"
	"time"
)

// Config defines retry behavior with exponential backoff.
type Config struct {
	MaxRetries       int
	InitialDelay     time.Duration
	MaxDelay         time.Duration
	Multiplier       float64
	JitterFactor     float64 // 0.0-1.0, spreads delays to avoid thundering herd
	MaxSameErrorType int     // consecutive same-type failures before giving up early, 0 disables
}

// DefaultConfig returns the defaults used for database and outbound HTTP
// calls: three retries starting at 100ms, doubling up to 5s, with 10% jitter.
func DefaultConfig() *Config {
	return &Config{
		MaxRetries:       3,
		InitialDelay:     100 * time.Millisecond,
		MaxDelay:         5 * time.Second,
		Multiplier:       2.0,
		JitterFactor:     0.1,
		MaxSameErrorType: 5,
	}
}

// backoff walks the delay schedule for one retry loop.
type backoff struct {
	cfg   *Config
	delay time.Duration
}

func newBackoff(cfg *Config) *backoff {
	return &backoff{cfg: cfg, delay: cfg.InitialDelay}
}

// wait sleeps for the current delay with jitter applied, then advances the
// schedule. It returns early with ctx.Err() when the context is canceled.
func (b *backoff) wait(ctx context.Context) error {
	d := b.delay
	if f := b.cfg.JitterFactor; f > 0 {
		d = time.Duration(float64(d) * (1 + f*(rand.Float64()*2-1)))
	}

	select {
	case <-time.After(d):
	case <-ctx.Done():
		return ctx.Err()
	}

	b.delay = time.Duration(float64(b.delay) * b.cfg.Multiplier)
	if b.delay > b.cfg.MaxDelay {
		b.delay = b.cfg.MaxDelay
	}
	return nil
}

// Do executes fn until it succeeds or the retry budget is spent, backing off
// between attempts. A nil cfg uses DefaultConfig.
func Do(ctx context.Context, cfg *Config, fn func() error) error {
	_, err := DoWithResult(ctx, cfg, func() (struct{}, error) {
		return struct{}{}, fn()
	})
	return err
}

// DoWithResult is Do for functions that return a value, such as pool
// constructors. On failure it returns the last attempt's result alongside
// the error.
func DoWithResult[T any](ctx context.Context, cfg *Config, fn func() (T, error)) (T, error) {
	if cfg == nil {
		cfg = DefaultConfig()
	}

	b := newBackoff(cfg)
	var last T
	var lastErr error
	for attempt := 0; ; attempt++ {
		result, err := fn()
		if err == nil {
			return result, nil
		}
		last, lastErr = result, err

		if attempt >= cfg.MaxRetries {
			return last, lastErr
		}
		if err := b.wait(ctx); err != nil {
			return last, err
		}
	}
}

// RetryableError is implemented by errors that declare their own
// retryability, which takes precedence over pattern matching.
type RetryableError interface {
	error
	IsRetryable() bool
}

// transientPatterns match error text that indicates a failure worth retrying
// when the error does not declare its own retryability.
var transientPatterns = []string{
	// connection level
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
	"connection timed out",
	// HTTP status codes and messages
	"429",
	"500",
	"502",
	"503",
	"504",
	"rate limit",
	"service busy",
	"service unavailable",
	"too many requests",
}

// IsRetryable reports whether an error is transient and worth retrying.
// An error implementing RetryableError, anywhere in the chain, decides for
// itself; everything else is matched against known transient patterns.
func IsRetryable(err error) bool {
	if err == nil {
		return false
	}

	var declared RetryableError
	if errors.As(err, &declared) {
		return declared.IsRetryable()
	}

	msg := strings.ToLower(err.Error())
	for _, pattern := range transientPatterns {
		if strings.Contains(msg, pattern) {
			return true
		}
	}
	return false
}

// errorKind buckets an error for the consecutive-failure check. HTTP status
// codes are their own buckets so a flapping upstream is distinguished from
// one that is down hard.
func errorKind(err error) string {
	msg := strings.ToLower(err.Error())

	for _, code := range []string{"503", "502", "504", "500", "429", "404", "403", "401", "400"} {
		if strings.Contains(msg, code) {
			return code
		}
	}

	switch {
	case strings.Contains(msg, "connection refused"), strings.Contains(msg, "connection reset"):
		return "connection"
	case strings.Contains(msg, "timeout"), strings.Contains(msg, "timed out"):
		return "timeout"
	case strings.Contains(msg, "broken pipe"):
		return "broken_pipe"
	case strings.Contains(msg, "rate limit"), strings.Contains(msg, "too many requests"):
		return "rate_limit"
	}
	return "unknown"
}

// DoIfRetryable retries fn only while its errors look transient. Permanent
// failures return immediately, and a streak of MaxSameErrorType identical
// failure kinds is treated as permanent so a dead upstream does not consume
// the whole budget.
func DoIfRetryable(ctx context.Context, cfg *Config, fn func() error) error {
	if cfg == nil {
		cfg = DefaultConfig()
	}

	b := newBackoff(cfg)
	var lastErr error
	streak := 0
	streakKind := ""
	for attempt := 0; ; attempt++ {
		err := fn()
		if err == nil {
			return nil
		}
		lastErr = err

		if !IsRetryable(err) {
			return err
		}

		kind := errorKind(err)
		if kind == streakKind {
			streak++
		} else {
			streak, streakKind = 1, kind
		}
		if cfg.MaxSameErrorType > 0 && streak >= cfg.MaxSameErrorType {
			return fmt.Errorf("repeated error (%d times, type=%s): %w", streak, kind, err)
		}

		if attempt >= cfg.MaxRetries {
			return lastErr
		}
		if werr := b.wait(ctx); werr != nil {
			return werr
		}
	}
}
