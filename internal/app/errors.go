package app

import (
	"errors"
	"fmt"
)

// AppErrorType represents the type of application error.
type AppErrorType int

const (
	// ValidationFailed indicates the workflow options are invalid.
	ValidationFailed AppErrorType = iota
	// TemplateResolveFailed indicates a template reference could not be resolved.
	TemplateResolveFailed
	// CreateFailed indicates writing a new file failed.
	CreateFailed
	// AppendFailed indicates merging rows into an output failed.
	AppendFailed
	// InspectFailed indicates a file could not be inspected.
	InspectFailed
	// ReportFailed indicates a bandpass report could not be produced.
	ReportFailed
	// ConfigInitFailed indicates the configuration file could not be written.
	ConfigInitFailed
)

func (t AppErrorType) String() string {
	switch t {
	case ValidationFailed:
		return "ValidationFailed"
	case TemplateResolveFailed:
		return "TemplateResolveFailed"
	case CreateFailed:
		return "CreateFailed"
	case AppendFailed:
		return "AppendFailed"
	case InspectFailed:
		return "InspectFailed"
	case ReportFailed:
		return "ReportFailed"
	case ConfigInitFailed:
		return "ConfigInitFailed"
	default:
		return "Unknown"
	}
}

// AppError represents an application-layer error.
type AppError struct {
	// Type is the error type.
	Type AppErrorType
	// Message is the error message.
	Message string
	// Cause is the underlying error.
	Cause error
}

// Error returns the error message.
func (e *AppError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Cause)
	}
	return e.Message
}

// Unwrap returns the underlying error.
func (e *AppError) Unwrap() error {
	return e.Cause
}

// NewAppError creates a new AppError.
func NewAppError(errType AppErrorType, message string, cause error) *AppError {
	return &AppError{
		Type:    errType,
		Message: message,
		Cause:   cause,
	}
}

// NewValidationError creates a validation error.
func NewValidationError(message string, cause error) *AppError {
	return NewAppError(ValidationFailed, message, cause)
}

// NewTemplateResolveError creates a template resolution error.
func NewTemplateResolveError(message string, cause error) *AppError {
	return NewAppError(TemplateResolveFailed, message, cause)
}

// NewCreateError creates a create error.
func NewCreateError(message string, cause error) *AppError {
	return NewAppError(CreateFailed, message, cause)
}

// NewAppendError creates an append error.
func NewAppendError(message string, cause error) *AppError {
	return NewAppError(AppendFailed, message, cause)
}

// NewInspectError creates an inspect error.
func NewInspectError(message string, cause error) *AppError {
	return NewAppError(InspectFailed, message, cause)
}

// NewReportError creates a report error.
func NewReportError(message string, cause error) *AppError {
	return NewAppError(ReportFailed, message, cause)
}

// IsType reports whether err is an AppError of type typ.
func IsType(err error, typ AppErrorType) bool {
	var ae *AppError
	return errors.As(err, &ae) && ae.Type == typ
}
