package errors

import (
	"errors"
	"fmt"
)

// Code represents a stable error code for programmatic handling.
type Code string

// Ingestion and API codes.
const (
	CodeUnknown         Code = "UNKNOWN"
	CodeInvalidJSON     Code = "INVALID_JSON"
	CodeValidation      Code = "VALIDATION_ERROR"
	CodeNotFound        Code = "NOT_FOUND"
	CodeIdempotencyKey  Code = "IDEMPOTENCY_KEY_CONFLICT"
	CodePayloadMismatch Code = "PAYLOAD_HASH_MISMATCH"
	CodeDataIntegrity   Code = "DATA_INTEGRITY_ERROR"
	CodeInternal        Code = "INTERNAL_ERROR"
	CodeIngestionFailed Code = "INGESTION_FAILED"
	CodeUnavailable     Code = "UNAVAILABLE"
	CodeUnauthorized    Code = "UNAUTHORIZED"
	CodeRateLimited     Code = "RATE_LIMITED"
	CodeVersionConflict Code = "GRAPH_VERSION_CONFLICT"
	CodeRunNotFound     Code = "SCAN_RUN_NOT_FOUND"
	CodeTooLarge        Code = "PAYLOAD_TOO_LARGE"
)

// Scanner codes.
const (
	CodeWorkspaceNotFound     Code = "WORKSPACE_NOT_FOUND"
	CodeWorkspaceParse        Code = "WORKSPACE_PARSE_ERROR"
	CodeWorkspaceProjects     Code = "WORKSPACE_PROJECTS_INVALID"
	CodeProjectConfigNotFound Code = "PROJECT_CONFIG_NOT_FOUND"
	CodeProjectConfigParse    Code = "PROJECT_CONFIG_PARSE_ERROR"
	CodeProjectConfigInvalid  Code = "PROJECT_CONFIG_INVALID"
	CodeInvalidPath           Code = "INVALID_PATH"
	CodeTSConfigParse         Code = "TSCONFIG_PARSE_ERROR"
	CodeScanIO                Code = "SCAN_IO_ERROR"
)

// AppError is a structured error type that carries a code, message, and optional metadata.
type AppError struct {
	Code    Code
	Message string
	Err     error
	Meta    map[string]any
}

// Error implements the error interface.
func (e *AppError) Error() string {
	if e == nil {
		return "<nil>"
	}
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Unwrap returns the wrapped error for errors.Is/As support.
func (e *AppError) Unwrap() error { return e.Err }

// WithMeta attaches metadata to the error.
func (e *AppError) WithMeta(k string, v any) *AppError {
	if e.Meta == nil {
		e.Meta = map[string]any{}
	}
	e.Meta[k] = v
	return e
}

// New creates a new AppError with code and message.
func New(code Code, message string) *AppError {
	return &AppError{Code: code, Message: message}
}

// Newf creates a new AppError with a formatted message.
func Newf(code Code, format string, args ...any) *AppError {
	return &AppError{Code: code, Message: fmt.Sprintf(format, args...)}
}

// Wrap wraps an existing error with code and message.
func Wrap(err error, code Code, message string) *AppError {
	if err == nil {
		return New(code, message)
	}
	return &AppError{Code: code, Message: message, Err: err}
}

// As returns the first AppError in err's chain.
func As(err error) (*AppError, bool) {
	var ae *AppError
	if errors.As(err, &ae) {
		return ae, true
	}
	return nil, false
}

// IsCode checks if an error has the provided code (through unwrapping).
func IsCode(err error, code Code) bool {
	if ae, ok := As(err); ok {
		return ae.Code == code
	}
	return false
}

// CodeOf returns the code carried by err, or CodeUnknown.
func CodeOf(err error) Code {
	if ae, ok := As(err); ok {
		return ae.Code
	}
	return CodeUnknown
}
