package errors

import (
	stderrors "errors"
	"fmt"
)

// AppError represents a structured pipeline error
type AppError struct {
	Code    string
	Message string
	Cause   error
}

func (e *AppError) Error() string {
	if e.Message == "" && e.Cause != nil {
		return e.Cause.Error()
	}
	if e.Cause != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Cause)
	}
	return e.Message
}

func (e *AppError) Unwrap() error {
	return e.Cause
}

// New creates a new AppError
func New(code, message string) *AppError {
	return &AppError{
		Code:    code,
		Message: message,
	}
}

// Newf creates a new AppError with a formatted message
func Newf(code, format string, args ...interface{}) *AppError {
	return New(code, fmt.Sprintf(format, args...))
}

// Wrap wraps an error with additional context, keeping the inner code
func Wrap(err error, message string) error {
	if err == nil {
		return nil
	}
	var appErr *AppError
	if stderrors.As(err, &appErr) {
		return &AppError{
			Code:    appErr.Code,
			Message: message,
			Cause:   err,
		}
	}
	return &AppError{
		Code:    CodeInternalError,
		Message: message,
		Cause:   err,
	}
}

// Wrapf wraps an error with formatted additional context
func Wrapf(err error, format string, args ...interface{}) error {
	if err == nil {
		return nil
	}
	return Wrap(err, fmt.Sprintf(format, args...))
}

// WithCode adds an error code to an existing error
func WithCode(code string, err error) error {
	if err == nil {
		return nil
	}
	if appErr, ok := err.(*AppError); ok {
		return &AppError{
			Code:    code,
			Message: appErr.Message,
			Cause:   appErr.Cause,
		}
	}
	return &AppError{
		Code:  code,
		Cause: err,
	}
}

// IsAppError checks if an error is, or wraps, an AppError
func IsAppError(err error) bool {
	var appErr *AppError
	return stderrors.As(err, &appErr)
}

// GetCode returns the code of the outermost AppError in the chain, otherwise "UNKNOWN"
func GetCode(err error) string {
	var appErr *AppError
	if stderrors.As(err, &appErr) {
		return appErr.Code
	}
	return "UNKNOWN"
}

// HasCode reports whether err carries the given code
func HasCode(err error, code string) bool {
	return GetCode(err) == code
}

// Error codes
const (
	CodeConfigInvalid     = "CONFIG_INVALID"
	CodeFileNotFound      = "FILE_NOT_FOUND"
	CodeEmptyInput        = "EMPTY_INPUT"
	CodeMalformedInput    = "MALFORMED_INPUT"
	CodeMissingColumn     = "MISSING_COLUMN"
	CodeDimensionMismatch = "DIMENSION_MISMATCH"
	CodeInvalidInput      = "INVALID_INPUT"
	CodeInternalError     = "INTERNAL_ERROR"
	CodeExternalService   = "EXTERNAL_SERVICE_ERROR"
)

func ConfigInvalid(message string) *AppError {
	return New(CodeConfigInvalid, message)
}

// FileNotFound reports a missing input file or artifact
func FileNotFound(path string, cause error) *AppError {
	return &AppError{
		Code:    CodeFileNotFound,
		Message: fmt.Sprintf("file not found: %s", path),
		Cause:   cause,
	}
}

func EmptyInput(message string) *AppError {
	return New(CodeEmptyInput, message)
}

func MalformedInput(message string, cause error) *AppError {
	return &AppError{
		Code:    CodeMalformedInput,
		Message: message,
		Cause:   cause,
	}
}

// MissingColumn reports columns expected by the feature spec but absent from the data
func MissingColumn(columns ...string) *AppError {
	return New(CodeMissingColumn, fmt.Sprintf("missing expected column(s): %v", columns))
}

func DimensionMismatch(what string, want, got int) *AppError {
	return New(CodeDimensionMismatch, fmt.Sprintf("%s: expected %d, got %d", what, want, got))
}

func InvalidInput(message string) *AppError {
	return New(CodeInvalidInput, message)
}

func InternalError(message string) *AppError {
	return New(CodeInternalError, message)
}

func ExternalServiceError(service string, cause error) *AppError {
	return &AppError{
		Code:    CodeExternalService,
		Message: fmt.Sprintf("%s service error", service),
		Cause:   cause,
	}
}
