package evidence

import (
	"errors"
	"fmt"
)

// ErrorCategory is the normalized failure taxonomy of evidence calls.
type ErrorCategory string

const (
	ErrorTimeout        ErrorCategory = "timeout"
	ErrorNotFound       ErrorCategory = "not_found"
	ErrorUnavailable    ErrorCategory = "unavailable"
	ErrorBadData        ErrorCategory = "bad_data"
	ErrorRateLimited    ErrorCategory = "rate_limited"
	ErrorAuthentication ErrorCategory = "authentication"
	ErrorInternal       ErrorCategory = "internal"
)

// ProviderError wraps a provider failure with its category.
type ProviderError struct {
	Category   ErrorCategory
	Provider   string
	Operation  string
	Message    string
	Underlying error
	Retryable  bool
}

func (e *ProviderError) Error() string {
	if e.Underlying != nil {
		return fmt.Sprintf("evidence %s %s [%s]: %s: %v", e.Provider, e.Operation, e.Category, e.Message, e.Underlying)
	}
	return fmt.Sprintf("evidence %s %s [%s]: %s", e.Provider, e.Operation, e.Category, e.Message)
}

func (e *ProviderError) Unwrap() error {
	return e.Underlying
}

// NewProviderError builds a ProviderError. Timeouts, outages and rate
// limiting are retryable.
func NewProviderError(category ErrorCategory, provider, operation, message string, underlying error) *ProviderError {
	retryable := category == ErrorTimeout ||
		category == ErrorUnavailable ||
		category == ErrorRateLimited

	return &ProviderError{
		Category:   category,
		Provider:   provider,
		Operation:  operation,
		Message:    message,
		Underlying: underlying,
		Retryable:  retryable,
	}
}

// IsRetryable reports whether err is a retryable ProviderError.
func IsRetryable(err error) bool {
	var pe *ProviderError
	if errors.As(err, &pe) {
		return pe.Retryable
	}
	return false
}

// CategoryOf extracts the category, defaulting to ErrorInternal.
func CategoryOf(err error) ErrorCategory {
	var pe *ProviderError
	if errors.As(err, &pe) {
		return pe.Category
	}
	return ErrorInternal
}

// categoryForStatus maps an HTTP status to a category.
func categoryForStatus(status int) ErrorCategory {
	switch {
	case status == 401 || status == 403:
		return ErrorAuthentication
	case status == 404:
		return ErrorNotFound
	case status == 408 || status == 504:
		return ErrorTimeout
	case status == 429:
		return ErrorRateLimited
	case status >= 500:
		return ErrorUnavailable
	default:
		return ErrorBadData
	}
}
