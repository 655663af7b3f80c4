package schema

import "fmt"

// Error codes for structured error reporting.
const (
	ErrCodeValidation        = "VALIDATION_ERROR"
	ErrCodeSchemaViolation   = "SCHEMA_VIOLATION"
	ErrCodeSynthesisFailed   = "SYNTHESIS_FAILED"
	ErrCodeMalformedOutput   = "MALFORMED_OUTPUT"
	ErrCodeProviderRejected  = "PROVIDER_REJECTED"
	ErrCodeRender            = "RENDER_ERROR"
	ErrCodeInvalidTransition = "INVALID_TRANSITION"
	ErrCodeNotFound          = "NOT_FOUND"
	ErrCodeStore             = "STORE_ERROR"
	ErrCodeCancelled         = "CANCELLED"
	ErrCodeRetryExhausted    = "RETRY_EXHAUSTED"
	ErrCodeCircuitOpen       = "CIRCUIT_OPEN"
)

// Error is the structured error type for all drawsynth operations.
type Error struct {
	Code    string         `json:"code"`
	Message string         `json:"message"`
	Details map[string]any `json:"details,omitempty"`
	Cause   error          `json:"-"`
}

func (e *Error) Error() string {
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

func (e *Error) Unwrap() error {
	return e.Cause
}

// NewError creates a new Error.
func NewError(code, message string) *Error {
	return &Error{Code: code, Message: message}
}

// NewErrorf creates a new Error with a formatted message.
func NewErrorf(code, format string, args ...any) *Error {
	return &Error{Code: code, Message: fmt.Sprintf(format, args...)}
}

// WithCause attaches an underlying cause.
func (e *Error) WithCause(err error) *Error {
	e.Cause = err
	return e
}

// WithDetails attaches key-value details.
func (e *Error) WithDetails(details map[string]any) *Error {
	e.Details = details
	return e
}

// IsRetryable reports whether the failure may succeed when the same call is repeated.
// Schema and output-shape problems are deterministic and never retried.
func (e *Error) IsRetryable() bool {
	switch e.Code {
	case ErrCodeValidation, ErrCodeSchemaViolation, ErrCodeMalformedOutput, ErrCodeProviderRejected,
		ErrCodeRender, ErrCodeInvalidTransition, ErrCodeNotFound, ErrCodeCancelled, ErrCodeCircuitOpen:
		return false
	default:
		return true
	}
}
