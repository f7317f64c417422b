// internal/common/errors/handler.go
package errors

import (
	"fmt"
)

// ErrorHandler normalizes and logs errors at component boundaries.
type ErrorHandler struct {
	logger Logger
}

type Logger interface {
	Error(msg string, fields map[string]interface{})
}

func NewErrorHandler(logger Logger) *ErrorHandler {
	return &ErrorHandler{logger: logger}
}

// Handle normalizes err, logs it with its taxonomy fields and returns the
// normalized form. A nil error returns nil.
func (h *ErrorHandler) Handle(scope string, err error, fields map[string]interface{}) *StandardError {
	if err == nil {
		return nil
	}
	stdErr := Normalize(err)

	logFields := map[string]interface{}{
		"scope":         scope,
		"errorCode":     string(stdErr.Code),
		"message":       stdErr.Message,
		"details":       stdErr.Details,
		"retryable":     stdErr.Retryable,
		"errorCategory": GetErrorCategory(stdErr.Code),
	}
	for k, v := range fields {
		logFields[k] = v
	}
	if h.logger != nil {
		h.logger.Error("operation failed", logFields)
	}
	return stdErr
}

// Recover converts a recovered panic value into a StandardError.
func Recover(code ErrorCode, r interface{}) *StandardError {
	var cause error
	switch v := r.(type) {
	case error:
		cause = v
	default:
		cause = fmt.Errorf("%v", v)
	}
	se := newError(code, "panic recovered", cause, false)
	return se
}

// Normalize ensures we always have a StandardError.
func Normalize(err error) *StandardError {
	if err == nil {
		return nil
	}
	if stdErr, ok := AsStandardError(err); ok {
		return stdErr
	}
	return NewInternalError(err)
}
