// Package errors provides the coded error type shared by every ReportDesk package.
// Codes are grouped by concern so API clients can branch on them without parsing messages.
package errors

import (
	stderrors "errors"
	"fmt"
	"net/http"
)

// ErrorCode represents application error codes
type ErrorCode string

// Error codes for different error categories
const (
	// General errors (1xxx)
	ErrCodeInternal     ErrorCode = "E1000"
	ErrCodeValidation   ErrorCode = "E1001"
	ErrCodeNotFound     ErrorCode = "E1002"
	ErrCodeConflict     ErrorCode = "E1003"
	ErrCodeForbidden    ErrorCode = "E1004"
	ErrCodeUnauthorized ErrorCode = "E1005"

	// Document and wizard errors (2xxx)
	ErrCodeHeaderIncomplete ErrorCode = "E2001"
	ErrCodeNoSections       ErrorCode = "E2002"
	ErrCodeSectionNotFound  ErrorCode = "E2003"
	ErrCodeVariantMismatch  ErrorCode = "E2004"
	ErrCodeIndexOutOfRange  ErrorCode = "E2005"
	ErrCodeInvalidStep      ErrorCode = "E2006"
	ErrCodeFinalized        ErrorCode = "E2007"

	// Draft storage errors (3xxx)
	ErrCodeStorageRead    ErrorCode = "E3001"
	ErrCodeStorageWrite   ErrorCode = "E3002"
	ErrCodeDraftNotFound  ErrorCode = "E3003"
	ErrCodeDraftCorrupted ErrorCode = "E3004"

	// Export errors (4xxx)
	ErrCodeExportRunning  ErrorCode = "E4001"
	ErrCodeRasterize      ErrorCode = "E4002"
	ErrCodeImageFetch     ErrorCode = "E4003"
	ErrCodeArtifactEncode ErrorCode = "E4004"
	ErrCodeBrowserStartup ErrorCode = "E4005"

	// Database errors (5xxx)
	ErrCodeDBConnection ErrorCode = "E5001"
	ErrCodeDBQuery      ErrorCode = "E5002"
	ErrCodeDBMigration  ErrorCode = "E5003"

	// Configuration errors (6xxx)
	ErrCodeConfigNotFound   ErrorCode = "E6001"
	ErrCodeConfigInvalid    ErrorCode = "E6002"
	ErrCodeConfigParse      ErrorCode = "E6003"
	ErrCodeJWTSecretInvalid ErrorCode = "E6004"
)

// Exit codes for application startup failures
const (
	// ExitCodeConfigValidation indicates configuration validation failure
	ExitCodeConfigValidation = 2
)

// AppError represents an application-level error with code and context
type AppError struct {
	Code    ErrorCode `json:"code"`
	Message string    `json:"message"`
	Err     error     `json:"-"`
	Details any       `json:"details,omitempty"`
}

// Error implements the error interface
func (e *AppError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("[%s] %s: %v", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

// Unwrap returns the underlying error
func (e *AppError) Unwrap() error {
	return e.Err
}

// HTTPStatus returns the HTTP status code for the error
func (e *AppError) HTTPStatus() int {
	switch e.Code {
	case ErrCodeNotFound, ErrCodeSectionNotFound, ErrCodeDraftNotFound:
		return http.StatusNotFound
	case ErrCodeValidation, ErrCodeVariantMismatch, ErrCodeIndexOutOfRange:
		return http.StatusBadRequest
	case ErrCodeHeaderIncomplete, ErrCodeNoSections, ErrCodeInvalidStep:
		return http.StatusUnprocessableEntity
	case ErrCodeUnauthorized:
		return http.StatusUnauthorized
	case ErrCodeForbidden:
		return http.StatusForbidden
	case ErrCodeConflict, ErrCodeExportRunning, ErrCodeFinalized:
		return http.StatusConflict
	case ErrCodeImageFetch:
		return http.StatusBadGateway
	case ErrCodeBrowserStartup:
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

// New creates a new AppError
func New(code ErrorCode, message string) *AppError {
	return &AppError{
		Code:    code,
		Message: message,
	}
}

// Wrap wraps an existing error with AppError
func Wrap(code ErrorCode, message string, err error) *AppError {
	return &AppError{
		Code:    code,
		Message: message,
		Err:     err,
	}
}

// WithDetails adds details to the error
func (e *AppError) WithDetails(details any) *AppError {
	e.Details = details
	return e
}

// Common error constructors for convenience

// ErrInternal creates an internal server error
func ErrInternal(message string, err error) *AppError {
	return Wrap(ErrCodeInternal, message, err)
}

// ErrValidation creates a validation error
func ErrValidation(message string) *AppError {
	return New(ErrCodeValidation, message)
}

// ErrNotFound creates a not found error
func ErrNotFound(resource string) *AppError {
	return New(ErrCodeNotFound, fmt.Sprintf("%s not found", resource))
}

// ErrUnauthorized creates an unauthorized error
func ErrUnauthorized(message string) *AppError {
	return New(ErrCodeUnauthorized, message)
}

// ErrForbidden creates a forbidden error
func ErrForbidden(message string) *AppError {
	return New(ErrCodeForbidden, message)
}

// ErrIndex creates an index out of range error for list-shaped content.
func ErrIndex(what string, index, length int) *AppError {
	return New(ErrCodeIndexOutOfRange, fmt.Sprintf("%s index %d out of range [0,%d)", what, index, length))
}

// IsAppError checks if an error is, or wraps, an AppError
func IsAppError(err error) bool {
	_, ok := AsAppError(err)
	return ok
}

// AsAppError attempts to convert an error to AppError, following wrap chains
func AsAppError(err error) (*AppError, bool) {
	var appErr *AppError
	if stderrors.As(err, &appErr) {
		return appErr, true
	}
	return nil, false
}

// HasCode reports whether err carries the given code anywhere in its chain.
func HasCode(err error, code ErrorCode) bool {
	appErr, ok := AsAppError(err)
	return ok && appErr.Code == code
}
