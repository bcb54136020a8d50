package provider

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net"
	"time"

	"github.com/cenkalti/backoff/v4"
)

// RetryPolicy retries a single-attempt operation with exponential backoff.
// The wait before retry n is BaseDelay * 2^(n-1), so with the default 2s base
// the waits are 2s then 4s.
type RetryPolicy struct {
	MaxAttempts int
	BaseDelay   time.Duration
}

// DefaultRetry is used by every provider unless overridden.
var DefaultRetry = RetryPolicy{MaxAttempts: 3, BaseDelay: 2 * time.Second}

func (p RetryPolicy) backOff(ctx context.Context) backoff.BackOff {
	attempts := max(p.MaxAttempts, 1)
	b := &backoff.ExponentialBackOff{
		InitialInterval:     p.BaseDelay,
		RandomizationFactor: 0,
		Multiplier:          2,
		MaxInterval:         p.BaseDelay << attempts,
		MaxElapsedTime:      0,
		Stop:                backoff.Stop,
		Clock:               backoff.SystemClock,
	}
	b.Reset()
	return backoff.WithContext(backoff.WithMaxRetries(b, uint64(attempts-1)), ctx)
}

// Do runs op until it succeeds, returns a terminal error, or the attempts
// are exhausted. Errors that Retryable rejects are not retried.
func (p RetryPolicy) Do(ctx context.Context, logger *slog.Logger, op func() error) error {
	attempt := 0
	return backoff.RetryNotify(func() error {
		attempt++
		err := op()
		if err != nil && !Retryable(err) {
			return backoff.Permanent(err)
		}
		return err
	}, p.backOff(ctx), func(err error, wait time.Duration) {
		logger.Warn("request failed, retrying", "attempt", attempt, "wait", wait, "error", err)
	})
}

// Retryable reports whether err is worth another attempt. Server errors,
// timeouts, dial and read failures and truncated bodies are retried. Client
// errors, certificate failures and bad URLs are not.
func Retryable(err error) bool {
	var se *StatusError
	if errors.As(err, &se) {
		return se.Code >= 500
	}
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, io.ErrUnexpectedEOF) {
		return true
	}
	var ne net.Error
	if errors.As(err, &ne) && ne.Timeout() {
		return true
	}
	var oe *net.OpError
	return errors.As(err, &oe)
}
