package errors

import (
	"context"
	"errors"
	"fmt"
)

// ErrorType represents the kind of failure
type ErrorType string

const (
	ErrTypeInvalidInput ErrorType = "INVALID_INPUT"
	ErrTypeAnalysis     ErrorType = "ANALYSIS"
	ErrTypeCancelled    ErrorType = "CANCELLED"
	ErrTypeNotFound     ErrorType = "NOT_FOUND"
	ErrTypeCacheCorrupt ErrorType = "CACHE_CORRUPT"
	ErrTypeCacheWrite   ErrorType = "CACHE_WRITE"
	ErrTypeGeneration   ErrorType = "GENERATION"
	ErrTypeValidation   ErrorType = "VALIDATION"
	ErrTypeConfig       ErrorType = "CONFIG"
)

// AppError represents an application-specific error
type AppError struct {
	Type    ErrorType
	Message string
	Cause   error
	Context map[string]interface{}
}

// Error implements the error interface
func (e *AppError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("[%s] %s: %v", e.Type, e.Message, e.Cause)
	}
	return fmt.Sprintf("[%s] %s", e.Type, e.Message)
}

// Unwrap allows errors.Is and errors.As to work with AppError
func (e *AppError) Unwrap() error {
	return e.Cause
}

// Is matches another AppError of the same type, so sentinel kinds
// can be compared with errors.Is.
func (e *AppError) Is(target error) bool {
	var t *AppError
	if !errors.As(target, &t) {
		return false
	}
	return t.Message == "" && t.Type == e.Type
}

// WithContext adds context to the error
func (e *AppError) WithContext(key string, value interface{}) *AppError {
	if e.Context == nil {
		e.Context = make(map[string]interface{})
	}
	e.Context[key] = value
	return e
}

// NewAppError creates a new application error
func NewAppError(errType ErrorType, message string, cause error) *AppError {
	return &AppError{
		Type:    errType,
		Message: message,
		Cause:   cause,
		Context: make(map[string]interface{}),
	}
}

// Kind sentinels for errors.Is. They carry no message and match any
// AppError of the same type.
var (
	ErrInvalidInput = &AppError{Type: ErrTypeInvalidInput}
	ErrAnalysis     = &AppError{Type: ErrTypeAnalysis}
	ErrCancelled    = &AppError{Type: ErrTypeCancelled}
	ErrNotFound     = &AppError{Type: ErrTypeNotFound}
	ErrCacheCorrupt = &AppError{Type: ErrTypeCacheCorrupt}
	ErrCacheWrite   = &AppError{Type: ErrTypeCacheWrite}
	ErrGeneration   = &AppError{Type: ErrTypeGeneration}
	ErrValidation   = &AppError{Type: ErrTypeValidation}
)

// NewInvalidInputError creates an error for a file that is not a readable demo
func NewInvalidInputError(path string, cause error) *AppError {
	return NewAppError(ErrTypeInvalidInput, "not a recognized demo file", cause).
		WithContext("path", path)
}

// NewAnalysisError wraps a failure of the full analysis pass
func NewAnalysisError(cause error) *AppError {
	return NewAppError(ErrTypeAnalysis, "demo analysis failed", cause)
}

// NewCancelledError creates a cancellation error observed at a checkpoint
func NewCancelledError(checkpoint string, cause error) *AppError {
	return NewAppError(ErrTypeCancelled, "export was cancelled", cause).
		WithContext("checkpoint", checkpoint)
}

// NewNotFoundError creates a not found error
func NewNotFoundError(resource string) *AppError {
	return NewAppError(ErrTypeNotFound, fmt.Sprintf("%s not found", resource), nil)
}

// NewCacheCorruptError creates an error for an unreadable cache entry
func NewCacheCorruptError(identity string, cause error) *AppError {
	return NewAppError(ErrTypeCacheCorrupt, "cache entry is unreadable", cause).
		WithContext("identity", identity)
}

// NewCacheWriteError creates an error for a failed cache write
func NewCacheWriteError(identity string, cause error) *AppError {
	return NewAppError(ErrTypeCacheWrite, "failed to write cache entry", cause).
		WithContext("identity", identity)
}

// NewGenerationError wraps a failure of one sheet generator
func NewGenerationError(sheet string, cause error) *AppError {
	return NewAppError(ErrTypeGeneration, "report generation failed", cause).
		WithContext("sheet", sheet)
}

// NewAppValidationError creates a validation error for AppError type
func NewAppValidationError(message string, cause error) *AppError {
	return NewAppError(ErrTypeValidation, message, cause)
}

// NewConfigError creates a configuration error
func NewConfigError(message string, cause error) *AppError {
	return NewAppError(ErrTypeConfig, message, cause)
}

// TypeOf returns the type of the first AppError in the chain, or "" if none
func TypeOf(err error) ErrorType {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.Type
	}
	return ""
}

// IsType checks whether any error in the chain is an AppError of the given type
func IsType(err error, errType ErrorType) bool {
	for err != nil {
		var appErr *AppError
		if !errors.As(err, &appErr) {
			return false
		}
		if appErr.Type == errType {
			return true
		}
		err = appErr.Cause
	}
	return false
}

// IsCancelled reports whether err represents cooperative cancellation,
// either our own kind or a context error.
func IsCancelled(err error) bool {
	if err == nil {
		return false
	}
	if IsType(err, ErrTypeCancelled) {
		return true
	}
	return errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded)
}

// UserMessage maps an error to a short human-readable message
func UserMessage(err error) string {
	switch {
	case err == nil:
		return ""
	case IsCancelled(err):
		return "The export was cancelled."
	}

	switch TypeOf(err) {
	case ErrTypeInvalidInput:
		return "The file is not a valid demo."
	case ErrTypeAnalysis:
		return "An error occurred while analyzing the demo."
	case ErrTypeNotFound:
		return "The demo is not in the cache."
	case ErrTypeCacheCorrupt:
		return "The cached data for this demo is corrupted. Clear the cache entry or re-run with -force."
	case ErrTypeCacheWrite:
		return "The analysis could not be saved to the cache."
	case ErrTypeGeneration:
		return "The report could not be generated."
	case ErrTypeValidation, ErrTypeConfig:
		return "Invalid configuration: " + err.Error()
	default:
		return "An unexpected error occurred: " + err.Error()
	}
}
