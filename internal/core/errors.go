// internal/core/errors.go
package core

import "fmt"

// Error represents a structured error with code and optional cause.
type Error struct {
	Code    string
	Message string
	Cause   error
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("[%s] %s: %v", e.Code, e.Message, e.Cause)
	}
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

// Unwrap returns the underlying cause for errors.Is/As support.
func (e *Error) Unwrap() error {
	return e.Cause
}

// Is implements errors.Is matching by code.
func (e *Error) Is(target error) bool {
	if t, ok := target.(*Error); ok {
		return e.Code == t.Code
	}
	return false
}

// WrapError creates a new error with the same code but with a cause.
func WrapError(base *Error, cause error) *Error {
	return &Error{
		Code:    base.Code,
		Message: base.Message,
		Cause:   cause,
	}
}

// Predefined errors
var (
	// Specialist errors
	ErrSpecialistTimeout = &Error{Code: "SPECIALIST_TIMEOUT", Message: "specialist timed out"}
	ErrSpecialistFailed  = &Error{Code: "SPECIALIST_FAILED", Message: "specialist analysis failed"}

	// Consensus errors
	ErrInsufficientQuorum = &Error{Code: "INSUFFICIENT_QUORUM", Message: "insufficient specialist quorum"}
	ErrNoSymbols          = &Error{Code: "NO_SYMBOLS", Message: "task has no symbols"}

	// Validation / sizing errors
	ErrValidationFailed  = &Error{Code: "VALIDATION_FAILED", Message: "recommendation failed validation"}
	ErrSizingInfeasible  = &Error{Code: "SIZING_INFEASIBLE", Message: "position sizing infeasible"}

	// Degraded-mode errors
	ErrCacheUnavailable  = &Error{Code: "CACHE_UNAVAILABLE", Message: "response cache unavailable"}
	ErrRouterUnavailable = &Error{Code: "ROUTER_UNAVAILABLE", Message: "tier router unavailable"}

	// Provider errors
	ErrProviderFailed = &Error{Code: "PROVIDER_FAILED", Message: "data provider failed"}
	ErrNoData         = &Error{Code: "NO_DATA", Message: "no data available"}
	ErrLLMFailed      = &Error{Code: "LLM_FAILED", Message: "LLM request failed"}

	// Config errors
	ErrConfigInvalid = &Error{Code: "CONFIG_INVALID", Message: "configuration invalid"}
	ErrConfigMissing = &Error{Code: "CONFIG_MISSING", Message: "required configuration missing"}

	// Storage errors
	ErrStoreFailed = &Error{Code: "STORE_FAILED", Message: "result store failed"}
)
