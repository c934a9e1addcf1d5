package tsetmc

import (
	"fmt"
)

// ErrorType represents the category of error that occurred during a remote call
type ErrorType string

const (
	// ErrorTypeNetwork indicates a network-level error (connection refused, DNS, timeout)
	ErrorTypeNetwork ErrorType = "network"
	// ErrorTypeStatus indicates the API answered with a non-success HTTP status
	ErrorTypeStatus ErrorType = "status"
	// ErrorTypeDecode indicates the response was received but its payload was unusable
	ErrorTypeDecode ErrorType = "decode"
)

// CallError represents a structured error from one remote API call. Callers
// treat every variant the same way, as "no data for this instrument this
// cycle"; the type only feeds diagnostics.
type CallError struct {
	Type       ErrorType
	StatusCode int
	Message    string
	Cause      error
}

// Error implements the error interface
func (e *CallError) Error() string {
	if e.StatusCode > 0 {
		return fmt.Sprintf("%s error (status %d): %s", e.Type, e.StatusCode, e.Message)
	}
	return fmt.Sprintf("%s error: %s", e.Type, e.Message)
}

// Unwrap implements error unwrapping for errors.Is and errors.As
func (e *CallError) Unwrap() error {
	return e.Cause
}

// newNetworkError wraps a transport-level failure
func newNetworkError(cause error) *CallError {
	return &CallError{
		Type:    ErrorTypeNetwork,
		Message: "request failed",
		Cause:   cause,
	}
}

// newStatusError records a non-success HTTP status
func newStatusError(statusCode int) *CallError {
	return &CallError{
		Type:       ErrorTypeStatus,
		StatusCode: statusCode,
		Message:    "api returned an error status",
	}
}

// newDecodeError records an unusable response body
func newDecodeError(message string) *CallError {
	return &CallError{
		Type:    ErrorTypeDecode,
		Message: message,
	}
}
