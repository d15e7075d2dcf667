// Package retry runs operations with exponential backoff.
package retry

import (
	"context"
	"errors"
	"time"
)

// Defaults for WithBackoff.
const (
	DefaultRetries      = 2
	DefaultInitialDelay = 250 * time.Millisecond
)

// Options configures WithBackoff.
type Options struct {
	// Retries is the number of attempts after the first one.
	Retries int

	// InitialDelay is the wait before the first retry. It doubles after
	// every retry. No jitter is applied.
	InitialDelay time.Duration

	// IsRetryable decides whether a failure may be retried. Nil retries
	// every failure.
	IsRetryable func(error) bool

	// OnRetry is called before each wait.
	OnRetry func(attempt int, delay time.Duration, err error)
}

// DefaultOptions returns two retries starting at 250ms.
func DefaultOptions() Options {
	return Options{
		Retries:      DefaultRetries,
		InitialDelay: DefaultInitialDelay,
	}
}

type permanentError struct {
	err error
}

func (e *permanentError) Error() string { return e.err.Error() }
func (e *permanentError) Unwrap() error { return e.err }

// Permanent marks err as not retryable regardless of the predicate.
func Permanent(err error) error {
	if err == nil {
		return nil
	}
	return &permanentError{err: err}
}

// WithBackoff calls op until it succeeds, the retry budget is spent, or a
// failure is not retryable. The wait between attempts ends early when ctx is
// done, in which case the last failure is returned without another attempt.
func WithBackoff[T any](ctx context.Context, op func(context.Context) (T, error), opts Options) (T, error) {
	delay := opts.InitialDelay
	if delay <= 0 {
		delay = DefaultInitialDelay
	}

	for attempt := 0; ; attempt++ {
		result, err := op(ctx)
		if err == nil {
			return result, nil
		}

		var perm *permanentError
		if errors.As(err, &perm) {
			return result, perm.err
		}
		if attempt >= opts.Retries || (opts.IsRetryable != nil && !opts.IsRetryable(err)) {
			return result, err
		}
		if ctx.Err() != nil {
			return result, err
		}

		if opts.OnRetry != nil {
			opts.OnRetry(attempt+1, delay, err)
		}
		if !sleep(ctx, delay) {
			return result, err
		}
		delay *= 2
	}
}

// sleep waits for d and reports whether it completed before ctx was done.
func sleep(ctx context.Context, d time.Duration) bool {
	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-timer.C:
		return true
	case <-ctx.Done():
		return false
	}
}
