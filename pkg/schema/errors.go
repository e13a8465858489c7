package schema

import (
	"errors"
	"fmt"
)

// Error codes for structured error reporting.
const (
	ErrCodeValidation    = "VALIDATION_ERROR"
	ErrCodeLimitExceeded = "EXECUTION_LIMIT_EXCEEDED"
	ErrCodeExecution     = "EXECUTION_ERROR"
	ErrCodeNotFound      = "NOT_FOUND"
	ErrCodeConflict      = "CONFLICT"
	ErrCodeStore         = "STORE_ERROR"
)

// RecvizError is the structured error type for all recviz operations.
type RecvizError struct {
	Code    string         `json:"code"`
	Message string         `json:"message"`
	Details map[string]any `json:"details,omitempty"`
	NodeID  string         `json:"node_id,omitempty"`
	Cause   error          `json:"-"`
}

func (e *RecvizError) Error() string {
	if e.NodeID != "" {
		return fmt.Sprintf("[%s] node %s: %s", e.Code, e.NodeID, e.Message)
	}
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

func (e *RecvizError) Unwrap() error {
	return e.Cause
}

// NewError creates a new RecvizError.
func NewError(code, message string) *RecvizError {
	return &RecvizError{Code: code, Message: message}
}

// NewErrorf creates a new RecvizError with a formatted message.
func NewErrorf(code, format string, args ...any) *RecvizError {
	return &RecvizError{Code: code, Message: fmt.Sprintf(format, args...)}
}

// WithNode attaches the id of the call node being processed.
func (e *RecvizError) WithNode(nodeID string) *RecvizError {
	e.NodeID = nodeID
	return e
}

// WithCause attaches an underlying cause.
func (e *RecvizError) WithCause(err error) *RecvizError {
	e.Cause = err
	return e
}

// WithDetails attaches key-value details.
func (e *RecvizError) WithDetails(details map[string]any) *RecvizError {
	e.Details = details
	return e
}

// CodeOf returns the code of the first RecvizError in err's chain, or "".
func CodeOf(err error) string {
	var re *RecvizError
	if errors.As(err, &re) {
		return re.Code
	}
	return ""
}

// HasCode reports whether err carries a RecvizError with the given code.
func HasCode(err error, code string) bool {
	return CodeOf(err) == code
}
