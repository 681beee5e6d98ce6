package errors

import (
	stderrors "errors"
	"fmt"
)

// ErrorCode represents a Thoughts error code.
type ErrorCode string

const (
	ErrInvalidRequest ErrorCode = "INVALID_REQUEST" // 400
	ErrInvalidSpeed   ErrorCode = "INVALID_SPEED"   // 400
	ErrNotFound       ErrorCode = "NOT_FOUND"       // 404
	ErrFileNotFound   ErrorCode = "FILE_NOT_FOUND"  // 404
	ErrNoHistory      ErrorCode = "NO_HISTORY"      // 404
	ErrConflict       ErrorCode = "CONFLICT"        // 409
	ErrSessionState   ErrorCode = "SESSION_STATE"   // 409
	ErrCorruptJournal ErrorCode = "CORRUPT_JOURNAL" // 422
	ErrCancelled      ErrorCode = "CANCELLED"       // 499
	ErrInternal       ErrorCode = "INTERNAL"        // 500
)

// ThoughtsError represents a structured error with code, status, and details.
type ThoughtsError struct {
	Code    ErrorCode
	Status  int
	Message string
	Details map[string]any
}

// Error implements the error interface.
func (e *ThoughtsError) Error() string {
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// NewInvalidRequest creates a 400 error for invalid request parameters.
func NewInvalidRequest(msg string) *ThoughtsError {
	return &ThoughtsError{
		Code:    ErrInvalidRequest,
		Status:  400,
		Message: msg,
	}
}

// NewInvalidSpeed creates a 400 error for a non-positive playback speed.
func NewInvalidSpeed(speed float64) *ThoughtsError {
	return &ThoughtsError{
		Code:    ErrInvalidSpeed,
		Status:  400,
		Message: fmt.Sprintf("playback speed must be positive, got %v", speed),
		Details: map[string]any{"speed": speed},
	}
}

// NewNotFound creates a 404 error for a missing note or session.
func NewNotFound(identifier string) *ThoughtsError {
	return &ThoughtsError{
		Code:    ErrNotFound,
		Status:  404,
		Message: fmt.Sprintf("not found: %s", identifier),
		Details: map[string]any{"identifier": identifier},
	}
}

// NewFileNotFound creates a 404 error for a missing import file.
func NewFileNotFound(path string) *ThoughtsError {
	return &ThoughtsError{
		Code:    ErrFileNotFound,
		Status:  404,
		Message: fmt.Sprintf("file not found: %s", path),
		Details: map[string]any{"path": path},
	}
}

// NewNoHistory creates a 404 error when a session has no recorded edits.
func NewNoHistory(sessionID int64) *ThoughtsError {
	return &ThoughtsError{
		Code:    ErrNoHistory,
		Status:  404,
		Message: "no edit history available",
		Details: map[string]any{"session_id": sessionID},
	}
}

// NewConflict creates a 409 error for general conflicts.
func NewConflict(msg string) *ThoughtsError {
	return &ThoughtsError{
		Code:    ErrConflict,
		Status:  409,
		Message: msg,
	}
}

// NewSessionState creates a 409 error for a recorder transition that is not
// allowed from the current state.
func NewSessionState(action, state string) *ThoughtsError {
	return &ThoughtsError{
		Code:    ErrSessionState,
		Status:  409,
		Message: fmt.Sprintf("cannot %s while %s", action, state),
		Details: map[string]any{"action": action, "state": state},
	}
}

// NewCorruptJournal creates a 422 error for a journal that cannot be replayed.
func NewCorruptJournal(msg string, details map[string]any) *ThoughtsError {
	return &ThoughtsError{
		Code:    ErrCorruptJournal,
		Status:  422,
		Message: msg,
		Details: details,
	}
}

// NewCancelled creates a 499 error when an operation is cancelled by its context.
func NewCancelled(operation string) *ThoughtsError {
	return &ThoughtsError{
		Code:    ErrCancelled,
		Status:  499,
		Message: fmt.Sprintf("%s cancelled", operation),
	}
}

// NewInternal creates a 500 error for unexpected internal errors.
// The caller-facing message is generic; the original error is kept in Details for logging.
func NewInternal(err error) *ThoughtsError {
	details := map[string]any{}
	if err != nil {
		details["internal_error"] = err.Error()
	}
	return &ThoughtsError{
		Code:    ErrInternal,
		Status:  500,
		Message: "an internal error occurred",
		Details: details,
	}
}

// Is checks if an error is (or wraps) a ThoughtsError with the given code.
func Is(err error, code ErrorCode) bool {
	var tErr *ThoughtsError
	if stderrors.As(err, &tErr) {
		return tErr.Code == code
	}
	return false
}

// As extracts a ThoughtsError from err, wrapping anything else as INTERNAL.
func As(err error) *ThoughtsError {
	var tErr *ThoughtsError
	if stderrors.As(err, &tErr) {
		return tErr
	}
	return NewInternal(err)
}
