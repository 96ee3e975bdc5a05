package shared

import (
	"errors"
	"fmt"
	"time"
)

var (
	ErrNotImplemented = fmt.Errorf("not implemented")

	// Configuration errors
	ErrMissingConfig      = fmt.Errorf("configuration not found")
	ErrInvalidConfig      = fmt.Errorf("invalid configuration")
	ErrMissingCredentials = fmt.Errorf("missing credentials")

	// Authentication errors
	ErrAuthFailed       = fmt.Errorf("authentication failed")
	ErrNotAuthenticated = fmt.Errorf("not authenticated")
	ErrTokenExpired     = fmt.Errorf("access token expired")

	// Provider error taxonomy. Retry policy keys off these categories:
	// temporary failures are retried with backoff, permanent failures and
	// not-found surface immediately.
	ErrTemporaryFailure = fmt.Errorf("temporary failure")
	ErrPermanentFailure = fmt.Errorf("permanent failure")
	ErrNotFound         = fmt.Errorf("not found")

	// ErrUnsupported signals an operation that is legitimately absent for
	// a provider role, e.g. a write against a read-only source.
	ErrUnsupported = fmt.Errorf("unsupported for this provider role")

	// Input validation errors
	ErrInvalidInput    = fmt.Errorf("invalid input")
	ErrInvalidArgument = fmt.Errorf("invalid argument")

	// ErrTimeout signals that a bounded wait elapsed, e.g. an OAuth
	// callback that never arrived.
	ErrTimeout = fmt.Errorf("operation timed out")
)

// RateLimitError signals that a provider refused an operation and
// suggested a wait before retrying. Rate-limit waits are expected
// behavior and never count against a retry budget.
type RateLimitError struct {
	RetryAfter time.Duration
}

func (e *RateLimitError) Error() string {
	return fmt.Sprintf("rate limited, retry after %s", e.RetryAfter)
}

// NewRateLimitError builds a RateLimitError with a defaulted wait when
// the provider did not suggest one.
func NewRateLimitError(retryAfter time.Duration) *RateLimitError {
	if retryAfter <= 0 {
		retryAfter = time.Second
	}
	return &RateLimitError{RetryAfter: retryAfter}
}

// AsRateLimit extracts a RateLimitError from an error chain.
func AsRateLimit(err error) (*RateLimitError, bool) {
	var rl *RateLimitError
	if errors.As(err, &rl) {
		return rl, true
	}
	return nil, false
}

// IsPermanent reports whether err should not be retried.
func IsPermanent(err error) bool {
	return errors.Is(err, ErrPermanentFailure) || errors.Is(err, ErrNotFound) || errors.Is(err, ErrUnsupported)
}
