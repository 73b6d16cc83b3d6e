package errors

import (
	stderrors "errors"
	"fmt"
)

// ErrorCode represents a diarist error code.
type ErrorCode string

const (
	ErrAmbiguousAddressing ErrorCode = "AMBIGUOUS_ADDRESSING" // 400
	ErrInvalidRequest      ErrorCode = "INVALID_REQUEST"      // 400
	ErrNotFound            ErrorCode = "NOT_FOUND"            // 404
	ErrFileNotFound        ErrorCode = "FILE_NOT_FOUND"       // 404
	ErrDurationMismatch    ErrorCode = "DURATION_MISMATCH"    // 409
	ErrSessionBusy         ErrorCode = "SESSION_BUSY"         // 409
	ErrUnavailable         ErrorCode = "STORAGE_UNAVAILABLE"  // 503
	ErrInternal            ErrorCode = "INTERNAL"             // 500
)

// DiaristError represents a structured error with code, status, and details.
type DiaristError struct {
	Code    ErrorCode
	Status  int
	Message string
	Details map[string]any
}

// Error implements the error interface.
func (e *DiaristError) Error() string {
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// NewAmbiguousAddressing creates a 400 error for when both key and audio path are provided.
func NewAmbiguousAddressing() *DiaristError {
	return &DiaristError{
		Code:    ErrAmbiguousAddressing,
		Status:  400,
		Message: "cannot specify both key and audio; use one addressing mode",
	}
}

// NewInvalidRequest creates a 400 error for invalid request parameters.
func NewInvalidRequest(msg string) *DiaristError {
	return &DiaristError{
		Code:    ErrInvalidRequest,
		Status:  400,
		Message: msg,
	}
}

// NewNotFound creates a 404 error for a missing document or segment.
func NewNotFound(kind, identifier string) *DiaristError {
	return &DiaristError{
		Code:    ErrNotFound,
		Status:  404,
		Message: fmt.Sprintf("%s not found: %s", kind, identifier),
		Details: map[string]any{"kind": kind, "identifier": identifier},
	}
}

// NewFileNotFound creates a 404 error when a label or audio file does not exist.
func NewFileNotFound(path string) *DiaristError {
	return &DiaristError{
		Code:    ErrFileNotFound,
		Status:  404,
		Message: fmt.Sprintf("file not found: %s", path),
		Details: map[string]any{"path": path},
	}
}

// NewDurationMismatch creates a 409 error when imported labels do not fit the audio.
func NewDurationMismatch(msg string, details map[string]any) *DiaristError {
	return &DiaristError{
		Code:    ErrDurationMismatch,
		Status:  409,
		Message: msg,
		Details: details,
	}
}

// NewSessionBusy creates a 409 error when a gesture is already in progress.
func NewSessionBusy() *DiaristError {
	return &DiaristError{
		Code:    ErrSessionBusy,
		Status:  409,
		Message: "another drag session is active",
	}
}

// NewUnavailable creates a 503 error when the storage backend cannot be reached.
func NewUnavailable(err error) *DiaristError {
	msg := "storage unavailable"
	if err != nil {
		msg = fmt.Sprintf("storage unavailable: %v", err)
	}
	return &DiaristError{
		Code:    ErrUnavailable,
		Status:  503,
		Message: msg,
	}
}

// NewInternal creates a 500 error for unexpected internal errors.
func NewInternal(err error) *DiaristError {
	msg := "internal error"
	if err != nil {
		msg = err.Error()
	}
	return &DiaristError{
		Code:    ErrInternal,
		Status:  500,
		Message: msg,
	}
}

// Is checks if an error is (or wraps) a DiaristError with the given code.
func Is(err error, code ErrorCode) bool {
	var dErr *DiaristError
	if stderrors.As(err, &dErr) {
		return dErr.Code == code
	}
	return false
}

// As extracts the DiaristError from err, if any.
func As(err error) (*DiaristError, bool) {
	var dErr *DiaristError
	if stderrors.As(err, &dErr) {
		return dErr, true
	}
	return nil, false
}
