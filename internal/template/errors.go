package template

import "fmt"

// TemplateErrorType represents the type of template error.
type TemplateErrorType int

const (
	// TemplateNotFound indicates the template file does not exist.
	TemplateNotFound TemplateErrorType = iota
	// TemplateInvalidRef indicates a reference that names no template.
	TemplateInvalidRef
	// TemplateGenerateFailed indicates a built-in template could not be written.
	TemplateGenerateFailed
	// TemplateInvalid indicates a file that is not a usable PSRFITS template.
	TemplateInvalid
)

// String returns the string representation of the error type.
func (t TemplateErrorType) String() string {
	switch t {
	case TemplateNotFound:
		return "NotFound"
	case TemplateInvalidRef:
		return "InvalidRef"
	case TemplateGenerateFailed:
		return "GenerateFailed"
	case TemplateInvalid:
		return "Invalid"
	default:
		return "Unknown"
	}
}

// TemplateError represents a template resolution error.
type TemplateError struct {
	// Type is the error type classification.
	Type TemplateErrorType
	// Message is the human-readable error message.
	Message string
	// Provider is the provider name ("builtin" or "local").
	Provider string
	// Ref is the template reference that caused the error.
	Ref string
	// Cause is the underlying error, if any.
	Cause error
}

// Error implements the error interface.
func (e *TemplateError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s template error [%s] for '%s': %s (caused by: %v)",
			e.Provider, e.Type.String(), e.Ref, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s template error [%s] for '%s': %s",
		e.Provider, e.Type.String(), e.Ref, e.Message)
}

// Unwrap returns the underlying cause for error wrapping.
func (e *TemplateError) Unwrap() error {
	return e.Cause
}

// NewTemplateError creates a new TemplateError.
func NewTemplateError(typ TemplateErrorType, provider, ref, message string, cause error) *TemplateError {
	return &TemplateError{
		Type:     typ,
		Message:  message,
		Provider: provider,
		Ref:      ref,
		Cause:    cause,
	}
}

// NewNotFoundError creates a not found error.
func NewNotFoundError(provider, ref string) *TemplateError {
	return NewTemplateError(TemplateNotFound, provider, ref, "template not found", nil)
}

// NewInvalidRefError creates an invalid reference error.
func NewInvalidRefError(provider, ref string, cause error) *TemplateError {
	return NewTemplateError(TemplateInvalidRef, provider, ref, "invalid template reference", cause)
}
