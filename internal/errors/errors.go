// Package errors defines stable error codes for all fatal failure modes
// of the traceability pipeline. Non-fatal conditions (unrecognized artifact
// lines, coverage gaps, dangling references) are modeled as warnings in the
// model package, not as errors.
package errors

import (
	"errors"
	"fmt"
)

// ErrorCode represents stable error codes for all failure modes
type ErrorCode string

const (
	// StoreUnavailable indicates the graph store could not be reached
	// after the retry budget was exhausted
	StoreUnavailable ErrorCode = "STORE_UNAVAILABLE"
	// NormalizationFailed indicates an identifier token could not be canonicalized
	NormalizationFailed ErrorCode = "NORMALIZATION_FAILED"
	// ConfigInvalid indicates the configuration file could not be loaded or validated
	ConfigInvalid ErrorCode = "CONFIG_INVALID"
	// ManifestInvalid indicates an artifact manifest could not be parsed
	ManifestInvalid ErrorCode = "MANIFEST_INVALID"
	// ArtifactUnreadable indicates an artifact file could not be read
	ArtifactUnreadable ErrorCode = "ARTIFACT_UNREADABLE"
	// ScanRootInvalid indicates the code scan root does not exist or is not a directory
	ScanRootInvalid ErrorCode = "SCAN_ROOT_INVALID"
	// InternalError indicates an unexpected error
	InternalError ErrorCode = "INTERNAL_ERROR"
)

// TraceError represents a pipeline error with a stable code and message
type TraceError struct {
	Code    ErrorCode   `json:"code"`
	Message string      `json:"message"`
	Details interface{} `json:"details,omitempty"`
	cause   error
}

// New creates a new TraceError
func New(code ErrorCode, message string) *TraceError {
	return &TraceError{Code: code, Message: message}
}

// Wrap creates a new TraceError wrapping an underlying cause
func Wrap(code ErrorCode, message string, cause error) *TraceError {
	return &TraceError{Code: code, Message: message, cause: cause}
}

// Error implements the error interface
func (e *TraceError) Error() string {
	if e.cause != nil {
		return fmt.Sprintf("[%s] %s: %v", e.Code, e.Message, e.cause)
	}
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

// Unwrap returns the underlying error
func (e *TraceError) Unwrap() error {
	return e.cause
}

// WithDetails adds details to the error
func (e *TraceError) WithDetails(details interface{}) *TraceError {
	e.Details = details
	return e
}

// CodeOf extracts the ErrorCode from an error chain.
// Returns InternalError for errors that carry no code.
func CodeOf(err error) ErrorCode {
	var te *TraceError
	if errors.As(err, &te) {
		return te.Code
	}
	return InternalError
}

// IsFatalStore reports whether err is a store connectivity failure.
func IsFatalStore(err error) bool {
	return CodeOf(err) == StoreUnavailable
}
