package runner

import (
	"context"
	"errors"
	"net"
)

// Error classes for execution failures. The executor treats them differently:
// transient errors retry with backoff, rate-limit and validation errors fail
// immediately.

// TransientError wraps a temporary failure (timeout, transport error) that
// may succeed on retry.
type TransientError struct {
	err error
}

func (e *TransientError) Error() string { return e.err.Error() }

func (e *TransientError) Unwrap() error { return e.err }

// NewTransientError wraps an error as transient (retryable).
func NewTransientError(err error) error {
	return &TransientError{err: err}
}

// RateLimitError marks a provider rate-limit signal (HTTP 429 or equivalent).
// Retrying a rate-limited call is presumed counter-productive, so the
// executor fails immediately and flags the failure so the UI can say so.
type RateLimitError struct {
	err error
}

func (e *RateLimitError) Error() string { return e.err.Error() }

func (e *RateLimitError) Unwrap() error { return e.err }

// NewRateLimitError wraps an error as a rate-limit failure.
func NewRateLimitError(err error) error {
	return &RateLimitError{err: err}
}

// ValidationError wraps a permanent failure (malformed configuration,
// missing required fields) that no retry can fix.
type ValidationError struct {
	err error
}

func (e *ValidationError) Error() string { return e.err.Error() }

func (e *ValidationError) Unwrap() error { return e.err }

// NewValidationError wraps an error as a validation failure.
func NewValidationError(err error) error {
	return &ValidationError{err: err}
}

// IsRateLimit returns true if the error carries the rate-limit marker.
func IsRateLimit(err error) bool {
	var rl *RateLimitError
	return errors.As(err, &rl)
}

// IsValidation returns true if the error is a validation failure.
func IsValidation(err error) bool {
	var v *ValidationError
	return errors.As(err, &v)
}

// Classify names the failure class of an execution error for storage and
// display. Task rows persist the classified message so a status listing can
// say why a task failed, not just that it did.
func Classify(err error) string {
	switch {
	case err == nil:
		return ""
	case IsRateLimit(err):
		return "rate limit"
	case IsValidation(err):
		return "validation"
	case IsTransient(err):
		return "transient"
	default:
		return "error"
	}
}

// IsTransient classifies an error as retryable. Explicitly wrapped transient
// errors, deadline exceedances and network errors qualify; anything carrying
// a rate-limit or validation marker never does.
func IsTransient(err error) bool {
	if err == nil || IsRateLimit(err) || IsValidation(err) {
		return false
	}

	var tr *TransientError
	if errors.As(err, &tr) {
		return true
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var netErr net.Error
	return errors.As(err, &netErr)
}
