// Package errors provides unified error handling with structured kinds.
// Every failure an operation can surface maps to exactly one Kind so the
// caller can decide between retry and abort without string matching.
package errors

import "fmt"

// Kind classifies a failure.
type Kind string

const (
	// OutOfBounds means a requested region exceeds or misaligns with the
	// screen bounds. Regions are rejected, never corrected.
	OutOfBounds Kind = "out_of_bounds"

	// DeviceUnavailable means the capture backend cannot produce an image,
	// e.g. no display session is attached.
	DeviceUnavailable Kind = "device_unavailable"

	// ModelUnavailable means the recognition backend failed to initialize
	// or is not loaded.
	ModelUnavailable Kind = "model_unavailable"

	// NotFound means an artifact or session reference does not resolve.
	NotFound Kind = "not_found"

	// StorageFailure means an archival write failed.
	StorageFailure Kind = "storage_failure"

	// Invalid means a request parameter is malformed.
	Invalid Kind = "invalid"

	// Internal is everything else.
	Internal Kind = "internal"
)

// AppError is the base error type with a structured kind and optional cause.
type AppError struct {
	Kind    Kind
	Message string
	Cause   error
}

// Error implements the error interface.
func (e *AppError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("[%s] %s caused by: %v", e.Kind, e.Message, e.Cause)
	}
	return fmt.Sprintf("[%s] %s", e.Kind, e.Message)
}

// Unwrap returns the underlying cause for errors.Is/As.
func (e *AppError) Unwrap() error { return e.Cause }

// New creates a new AppError with the given kind and message.
func New(kind Kind, msg string) *AppError {
	return &AppError{Kind: kind, Message: msg}
}

// Newf creates a new AppError with a formatted message.
func Newf(kind Kind, format string, args ...any) *AppError {
	return &AppError{Kind: kind, Message: fmt.Sprintf(format, args...)}
}

// Wrap wraps an existing error with an AppError.
func Wrap(err error, kind Kind, msg string) *AppError {
	return &AppError{Kind: kind, Message: msg, Cause: err}
}

// Wrapf wraps an existing error with a formatted message.
func Wrapf(err error, kind Kind, format string, args ...any) *AppError {
	return &AppError{Kind: kind, Message: fmt.Sprintf(format, args...), Cause: err}
}

// IsKind checks if an error has a specific kind.
func IsKind(err error, kind Kind) bool {
	if appErr, ok := err.(*AppError); ok {
		return appErr.Kind == kind
	}
	return false
}

// KindOf returns the kind of an error, or Internal for plain errors.
func KindOf(err error) Kind {
	if appErr, ok := err.(*AppError); ok {
		return appErr.Kind
	}
	return Internal
}
