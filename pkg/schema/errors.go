package schema

import (
	"errors"
	"fmt"
)

// Error codes for structured error reporting.
const (
	ErrCodeValidation = "VALIDATION_ERROR"
	ErrCodeNotFound   = "NOT_FOUND"
	ErrCodeConflict   = "CONFLICT"
	ErrCodeLayout     = "LAYOUT_ERROR"
	ErrCodeRender     = "RENDER_ERROR"
	ErrCodeSuggest    = "SUGGEST_ERROR"
	ErrCodeStore      = "STORE_ERROR"
	ErrCodeExpression = "EXPRESSION_ERROR"
	ErrCodeCycle      = "CYCLE_DETECTED"
)

// NFError is the structured error type for all nfstudio operations.
type NFError struct {
	Code    string         `json:"code"`
	Message string         `json:"message"`
	Details map[string]any `json:"details,omitempty"`
	Process string         `json:"process,omitempty"`
	Cause   error          `json:"-"`
}

func (e *NFError) Error() string {
	if e.Process != "" {
		return fmt.Sprintf("[%s] process %s: %s", e.Code, e.Process, e.Message)
	}
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

func (e *NFError) Unwrap() error {
	return e.Cause
}

// NewError creates a new NFError.
func NewError(code, message string) *NFError {
	return &NFError{Code: code, Message: message}
}

// NewErrorf creates a new NFError with a formatted message.
func NewErrorf(code, format string, args ...any) *NFError {
	return &NFError{Code: code, Message: fmt.Sprintf(format, args...)}
}

// WithProcess attaches a process name to the error.
func (e *NFError) WithProcess(name string) *NFError {
	e.Process = name
	return e
}

// WithCause attaches an underlying cause.
func (e *NFError) WithCause(err error) *NFError {
	e.Cause = err
	return e
}

// WithDetails attaches key-value details.
func (e *NFError) WithDetails(details map[string]any) *NFError {
	e.Details = details
	return e
}

// CodeOf returns the code of the first NFError in err's chain, or "".
func CodeOf(err error) string {
	var nf *NFError
	if errors.As(err, &nf) {
		return nf.Code
	}
	return ""
}
