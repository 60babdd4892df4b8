package errors

import (
	"errors"
	"fmt"
)

// CustomError represents an application error with metadata
type CustomError struct {
	Code       string      // Machine-readable error code
	Message    string      // Human-readable message
	StatusCode int         // HTTP status code
	Cause      error       // Underlying error
	Details    interface{} // Additional error details
}

// Error implements the error interface
func (e *CustomError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s (cause: %v)", e.Code, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Unwrap implements the errors.Unwrap interface for wrapping errors
func (e *CustomError) Unwrap() error {
	return e.Cause
}

// Is reports whether target carries the same code, so wrapped copies still
// match the predefined sentinels.
func (e *CustomError) Is(target error) bool {
	t, ok := target.(*CustomError)
	if !ok {
		return false
	}
	return e.Code == t.Code
}

// NewCustomError creates a new custom error
func NewCustomError(code string, message string, statusCode int) *CustomError {
	return &CustomError{
		Code:       code,
		Message:    message,
		StatusCode: statusCode,
	}
}

// Wrap returns a copy of e with cause attached. The receiver is never
// modified, so it is safe to call on the package-level sentinels.
func (e *CustomError) Wrap(cause error) *CustomError {
	cp := *e
	cp.Cause = cause
	return &cp
}

// WithDetails returns a copy of e carrying details.
func (e *CustomError) WithDetails(details interface{}) *CustomError {
	cp := *e
	cp.Details = details
	return &cp
}

// Pre-defined errors
var (
	// Validation errors (400)
	ErrInvalidName = NewCustomError(
		"INVALID_NAME",
		"Object name must not be empty",
		400,
	)

	ErrInvalidKey = NewCustomError(
		"INVALID_KEY",
		"Object key is empty or malformed",
		400,
	)

	ErrInvalidRequest = NewCustomError(
		"INVALID_REQUEST",
		"Request body is invalid or missing required fields",
		400,
	)

	// Auth (401)
	ErrUnauthorized = NewCustomError(
		"UNAUTHORIZED",
		"Invalid or missing API key",
		401,
	)

	// Rate limiting (429)
	ErrRateLimited = NewCustomError(
		"RATE_LIMITED",
		"Too many requests. Please try again later",
		429,
	)

	// Upstream storage errors (502)
	ErrUploadFailed = NewCustomError(
		"UPLOAD_ERROR",
		"Failed to upload object to storage",
		502,
	)

	ErrDeleteFailed = NewCustomError(
		"DELETE_ERROR",
		"Failed to delete object from storage",
		502,
	)

	// Server errors (500)
	ErrInternal = NewCustomError(
		"INTERNAL_ERROR",
		"An internal server error occurred",
		500,
	)

	ErrQueueFailed = NewCustomError(
		"QUEUE_ERROR",
		"Failed to queue deletion task",
		500,
	)

	ErrConfigInvalid = NewCustomError(
		"CONFIG_ERROR",
		"Configuration is invalid",
		500,
	)

	// Unavailable (503)
	ErrStorageUnavailable = NewCustomError(
		"STORAGE_UNAVAILABLE",
		"Storage is temporarily unavailable",
		503,
	)
)

// IsCustomError checks if an error is a CustomError
func IsCustomError(err error) bool {
	var customErr *CustomError
	return errors.As(err, &customErr)
}

// GetStatusCode extracts HTTP status code from an error
func GetStatusCode(err error) int {
	var customErr *CustomError
	if errors.As(err, &customErr) {
		return customErr.StatusCode
	}
	return 500 // Default to internal server error
}

// GetErrorCode extracts error code from an error
func GetErrorCode(err error) string {
	var customErr *CustomError
	if errors.As(err, &customErr) {
		return customErr.Code
	}
	return "UNKNOWN_ERROR"
}

// GetErrorMessage extracts human-readable message from an error
func GetErrorMessage(err error) string {
	var customErr *CustomError
	if errors.As(err, &customErr) {
		return customErr.Message
	}
	return "An unknown error occurred"
}

// GetDetails extracts the attached details, if any.
func GetDetails(err error) interface{} {
	var customErr *CustomError
	if errors.As(err, &customErr) {
		return customErr.Details
	}
	return nil
}
