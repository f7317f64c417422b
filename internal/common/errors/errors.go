// Package errors provides the standardized error taxonomy of the adjudicator.
package errors

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

// ==========================
// 1. Standard Error Types
// ==========================

// ErrorCode represents standardized internal error codes.
type ErrorCode string

// Case adjudication errors
const (
	ErrCodeNavigationFailed     ErrorCode = "NAVIGATION_FAILED"
	ErrCodeEvidenceLookupFailed ErrorCode = "EVIDENCE_LOOKUP_FAILED"
	ErrCodeEvidenceTimeout      ErrorCode = "EVIDENCE_TIMEOUT"
	ErrCodeExtractionFailed     ErrorCode = "EXTRACTION_FAILED"
	ErrCodeClassificationFailed ErrorCode = "CLASSIFICATION_FAILED"
)

// Job and infrastructure errors
const (
	ErrCodeJobFailed              ErrorCode = "JOB_FAILED"
	ErrCodeJobNotFound            ErrorCode = "JOB_NOT_FOUND"
	ErrCodeInvalidCaseList        ErrorCode = "INVALID_CASE_LIST"
	ErrCodeResultPersistFailed    ErrorCode = "RESULT_PERSIST_FAILED"
	ErrCodeRuleTableInvalid       ErrorCode = "RULE_TABLE_INVALID"
	ErrCodeNotificationSendFailed ErrorCode = "NOTIFICATION_SEND_FAILED"
	ErrCodeInternal               ErrorCode = "INTERNAL_ERROR"
)

// StandardError represents a structured application error.
type StandardError struct {
	Code      ErrorCode              `json:"code"`
	Message   string                 `json:"message"`
	Details   string                 `json:"details,omitempty"`
	Retryable bool                   `json:"retryable"`
	Metadata  map[string]interface{} `json:"metadata,omitempty"`
	Timestamp time.Time              `json:"timestamp"`
	cause     error
}

func (e *StandardError) Error() string {
	if e.Details != "" {
		return fmt.Sprintf("StandardError[%s]: %s: %s", e.Code, e.Message, e.Details)
	}
	return fmt.Sprintf("StandardError[%s]: %s", e.Code, e.Message)
}

func (e *StandardError) Unwrap() error {
	return e.cause
}

// WithMetadata attaches a key to the error metadata and returns the error.
func (e *StandardError) WithMetadata(key string, value interface{}) *StandardError {
	if e.Metadata == nil {
		e.Metadata = make(map[string]interface{})
	}
	e.Metadata[key] = value
	return e
}

func newError(code ErrorCode, message string, cause error, retryable bool) *StandardError {
	se := &StandardError{
		Code:      code,
		Message:   message,
		Retryable: retryable,
		Timestamp: time.Now().UTC(),
		cause:     cause,
	}
	if cause != nil {
		se.Details = cause.Error()
	}
	return se
}

// ==========================
// 2. Error Constructors
// ==========================

// NewNavigationFailedError reports that a case could not be opened.
func NewNavigationFailedError(caseID string, err error) *StandardError {
	return newError(ErrCodeNavigationFailed, "navigation failed", err, false).
		WithMetadata("caseId", caseID)
}

// NewEvidenceLookupFailedError reports a failed document or field lookup.
func NewEvidenceLookupFailedError(caseID, document string, err error) *StandardError {
	return newError(ErrCodeEvidenceLookupFailed, "evidence lookup failed", err, true).
		WithMetadata("caseId", caseID).
		WithMetadata("document", document)
}

// NewEvidenceTimeoutError reports an evidence call that exceeded its wait.
func NewEvidenceTimeoutError(operation string, timeout time.Duration) *StandardError {
	se := newError(ErrCodeEvidenceTimeout, "evidence call timed out", nil, true)
	se.Details = fmt.Sprintf("operation: %s, timeout: %s", operation, timeout)
	return se
}

// NewExtractionFailedError reports a missing or unparsable required field.
func NewExtractionFailedError(caseID, field, message string) *StandardError {
	se := newError(ErrCodeExtractionFailed, message, nil, false)
	se.Details = fmt.Sprintf("field: %s", field)
	return se.WithMetadata("caseId", caseID)
}

// NewClassificationFailedError wraps an unexpected fault inside classification.
func NewClassificationFailedError(err error) *StandardError {
	return newError(ErrCodeClassificationFailed, "classification failed", err, false)
}

// NewJobFailedError wraps a fault that escaped every per-case guard.
func NewJobFailedError(jobID string, err error) *StandardError {
	return newError(ErrCodeJobFailed, "job failed", err, false).
		WithMetadata("jobId", jobID)
}

// NewJobNotFoundError reports an unknown job identifier.
func NewJobNotFoundError(jobID string) *StandardError {
	se := newError(ErrCodeJobNotFound, "job not found", nil, false)
	se.Details = fmt.Sprintf("jobId: %s", jobID)
	return se
}

// NewInvalidCaseListError rejects an unusable batch input.
func NewInvalidCaseListError(details string) *StandardError {
	se := newError(ErrCodeInvalidCaseList, "invalid case list", nil, false)
	se.Details = details
	return se
}

// NewResultPersistFailedError reports a result row that could not be stored.
func NewResultPersistFailedError(backend string, err error) *StandardError {
	return newError(ErrCodeResultPersistFailed, fmt.Sprintf("result store '%s' failed", backend), err, true)
}

// NewRuleTableInvalidError rejects a malformed narrative rule table.
func NewRuleTableInvalidError(details string) *StandardError {
	se := newError(ErrCodeRuleTableInvalid, "rule table invalid", nil, false)
	se.Details = details
	return se
}

// NewNotificationSendFailedError creates a retryable notification send error.
func NewNotificationSendFailedError(channel string, err error) *StandardError {
	return newError(ErrCodeNotificationSendFailed, fmt.Sprintf("notification via %s failed", channel), err, true)
}

// NewInternalError is the fallback for errors outside the taxonomy.
func NewInternalError(err error) *StandardError {
	return newError(ErrCodeInternal, "unexpected error", err, false)
}

// ==========================
// 3. Utility Functions
// ==========================

// AsStandardError extracts a StandardError from an error chain.
func AsStandardError(err error) (*StandardError, bool) {
	var se *StandardError
	if errors.As(err, &se) {
		return se, true
	}
	return nil, false
}

// CodeOf returns the code of the first StandardError in the chain, or
// INTERNAL_ERROR when there is none.
func CodeOf(err error) ErrorCode {
	if se, ok := AsStandardError(err); ok {
		return se.Code
	}
	return ErrCodeInternal
}

// GetRetryCount returns the recommended retry count for an error code.
func GetRetryCount(code ErrorCode) int {
	switch code {
	case ErrCodeEvidenceLookupFailed,
		ErrCodeResultPersistFailed,
		ErrCodeNotificationSendFailed:
		return 3

	case ErrCodeEvidenceTimeout:
		return 2

	default:
		return 0 // Business errors: no retry
	}
}

// IsRetryableErrorCode checks if an error code is retryable.
func IsRetryableErrorCode(code ErrorCode) bool {
	return GetRetryCount(code) > 0
}

// GetErrorCategory returns the category of the error code.
func GetErrorCategory(code ErrorCode) string {
	codeStr := string(code)
	switch {
	case strings.Contains(codeStr, "NAVIGATION"), strings.Contains(codeStr, "EVIDENCE"):
		return "EVIDENCE"
	case strings.Contains(codeStr, "EXTRACTION"), strings.Contains(codeStr, "CLASSIFICATION"):
		return "ADJUDICATION"
	case strings.Contains(codeStr, "JOB"), strings.Contains(codeStr, "CASE_LIST"):
		return "JOB"
	case strings.Contains(codeStr, "RESULT"):
		return "PERSISTENCE"
	case strings.Contains(codeStr, "NOTIFICATION"):
		return "NOTIFICATION"
	case strings.Contains(codeStr, "INVALID"):
		return "VALIDATION"
	default:
		return "OTHER"
	}
}
