package httpx

import (
	"context"
	"errors"
	"time"

	"mavencrawler/shared/application/ports"
)

var (
	// ErrNotFound is returned for 404 and 410 responses.
	ErrNotFound = ports.ErrRemoteNotFound

	// ErrNetwork covers transport failures and 5xx responses.
	ErrNetwork = errors.New("network error")
)

// RetryableError marks an error that Retry should try again.
type RetryableError struct{ Err error }

// Retryable wraps err as a RetryableError. Retryable(nil) is nil.
func Retryable(err error) error {
	if err == nil {
		return nil
	}
	return &RetryableError{Err: err}
}

func (e *RetryableError) Error() string { return e.Err.Error() }

func (e *RetryableError) Unwrap() error { return e.Err }

func IsRetryable(err error) bool {
	var re *RetryableError
	return errors.As(err, &re)
}

// Retry calls fn up to attempts times, doubling delay between tries. Only
// errors wrapped with Retryable trigger another attempt.
func Retry(ctx context.Context, attempts int, delay time.Duration, fn func() error) error {
	if attempts < 1 {
		attempts = 1
	}

	var lastErr error
	for i := 0; i < attempts; i++ {
		if err := fn(); err == nil {
			return nil
		} else if lastErr = err; !IsRetryable(err) {
			return err
		}

		if i < attempts-1 {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(delay):
				delay *= 2
			}
		}
	}
	return lastErr
}
