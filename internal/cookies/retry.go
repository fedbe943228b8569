package cookies

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"
)

// RetryConfig holds retry configuration for remote fetches.
type RetryConfig struct {
	MaxAttempts   int
	InitialDelay  time.Duration
	MaxDelay      time.Duration
	BackoffFactor float64
}

// DefaultRetryConfig keeps retries well inside the remote fetch timeout.
func DefaultRetryConfig() RetryConfig {
	return RetryConfig{
		MaxAttempts:   2,
		InitialDelay:  250 * time.Millisecond,
		MaxDelay:      time.Second,
		BackoffFactor: 2.0,
	}
}

// statusError is a non-200 response from the cookie endpoint.
type statusError struct {
	code int
}

func (e *statusError) Error() string {
	return fmt.Sprintf("unexpected status code: %d", e.code)
}

// isTransient reports whether a fetch error is worth another attempt.
func isTransient(err error) bool {
	var se *statusError
	return errors.As(err, &se) && se.code >= http.StatusInternalServerError
}

// retryWithCheck executes fn with exponential backoff while shouldRetry
// accepts the error.
func retryWithCheck[T any](
	ctx context.Context,
	cfg RetryConfig,
	fn func() (T, error),
	shouldRetry func(error) bool,
) (T, error) {
	var lastErr error
	var zero T

	delay := cfg.InitialDelay

	for attempt := 0; attempt < cfg.MaxAttempts; attempt++ {
		result, err := fn()
		if err == nil {
			return result, nil
		}

		lastErr = err

		if !shouldRetry(err) {
			break
		}

		// Don't wait after the last attempt
		if attempt == cfg.MaxAttempts-1 {
			break
		}

		select {
		case <-ctx.Done():
			return zero, ctx.Err()
		case <-time.After(delay):
		}

		delay = time.Duration(float64(delay) * cfg.BackoffFactor)
		if delay > cfg.MaxDelay {
			delay = cfg.MaxDelay
		}
	}

	return zero, lastErr
}
