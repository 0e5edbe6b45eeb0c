package errors

import (
	"errors"
	"fmt"
)

// ErrorCode represents a unique error code for stable testing
type ErrorCode string

// Error codes for different error categories
const (
	// General errors
	ErrUnknown      ErrorCode = "UNKNOWN"
	ErrInternal     ErrorCode = "INTERNAL"
	ErrInvalidInput ErrorCode = "INVALID_INPUT"
	ErrNotFound     ErrorCode = "NOT_FOUND"
	ErrPermission   ErrorCode = "PERMISSION"

	// Configuration errors
	ErrConfigLoad  ErrorCode = "CONFIG_LOAD"
	ErrConfigParse ErrorCode = "CONFIG_PARSE"
	ErrConfigValid ErrorCode = "CONFIG_INVALID"

	// Plan errors
	ErrPlanInvalid   ErrorCode = "PLAN_INVALID"
	ErrPlanNotFound  ErrorCode = "PLAN_NOT_FOUND"
	ErrNotConfirmed  ErrorCode = "NOT_CONFIRMED"
	ErrDuplicateStep ErrorCode = "DUPLICATE_STEP"

	// Preflight errors
	ErrDiskSpace    ErrorCode = "DISK_SPACE"
	ErrBackupCreate ErrorCode = "BACKUP_CREATE"

	// Step execution errors
	ErrStepExecute    ErrorCode = "STEP_EXECUTE"
	ErrUnknownAction  ErrorCode = "UNKNOWN_ACTION"
	ErrSymlinkCreate  ErrorCode = "SYMLINK_CREATE"
	ErrJunctionCreate ErrorCode = "JUNCTION_CREATE"
	ErrLinkProbe      ErrorCode = "LINK_PROBE"
	ErrCommandTimeout ErrorCode = "COMMAND_TIMEOUT"

	// Rollback errors
	ErrRollback        ErrorCode = "ROLLBACK"
	ErrJunctionRemoval ErrorCode = "JUNCTION_REMOVAL"

	// FileSystem errors
	ErrFileNotFound ErrorCode = "FILE_NOT_FOUND"
	ErrFileAccess   ErrorCode = "FILE_ACCESS"
	ErrFileExists   ErrorCode = "FILE_EXISTS"
	ErrDirCreate    ErrorCode = "DIR_CREATE"
)

// LayoutError represents a structured error with code and details
type LayoutError struct {
	Code    ErrorCode
	Message string
	Details map[string]interface{}
	Wrapped error
}

// Error implements the error interface
func (e *LayoutError) Error() string {
	if e.Wrapped != nil {
		return fmt.Sprintf("[%s] %s: %v", e.Code, e.Message, e.Wrapped)
	}
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

// Unwrap implements the errors.Unwrap interface
func (e *LayoutError) Unwrap() error {
	return e.Wrapped
}

// Is implements errors.Is interface
func (e *LayoutError) Is(target error) bool {
	var targetErr *LayoutError
	if errors.As(target, &targetErr) {
		return e.Code == targetErr.Code
	}
	return false
}

// New creates a new LayoutError with the given code and message
func New(code ErrorCode, message string) *LayoutError {
	return &LayoutError{
		Code:    code,
		Message: message,
		Details: make(map[string]interface{}),
	}
}

// Newf creates a new LayoutError with a formatted message
func Newf(code ErrorCode, format string, args ...interface{}) *LayoutError {
	return &LayoutError{
		Code:    code,
		Message: fmt.Sprintf(format, args...),
		Details: make(map[string]interface{}),
	}
}

// Wrap wraps an existing error with a LayoutError
func Wrap(err error, code ErrorCode, message string) *LayoutError {
	if err == nil {
		return nil
	}
	return &LayoutError{
		Code:    code,
		Message: message,
		Details: make(map[string]interface{}),
		Wrapped: err,
	}
}

// Wrapf wraps an existing error with a formatted message
func Wrapf(err error, code ErrorCode, format string, args ...interface{}) *LayoutError {
	if err == nil {
		return nil
	}
	return &LayoutError{
		Code:    code,
		Message: fmt.Sprintf(format, args...),
		Details: make(map[string]interface{}),
		Wrapped: err,
	}
}

// WithDetail adds a detail to the error
func (e *LayoutError) WithDetail(key string, value interface{}) *LayoutError {
	if e.Details == nil {
		e.Details = make(map[string]interface{})
	}
	e.Details[key] = value
	return e
}

// IsErrorCode checks if an error has a specific error code
func IsErrorCode(err error, code ErrorCode) bool {
	var layoutErr *LayoutError
	if errors.As(err, &layoutErr) {
		return layoutErr.Code == code
	}
	return false
}

// GetErrorCode returns the error code from an error, or ErrUnknown if not a LayoutError
func GetErrorCode(err error) ErrorCode {
	var layoutErr *LayoutError
	if errors.As(err, &layoutErr) {
		return layoutErr.Code
	}
	return ErrUnknown
}
