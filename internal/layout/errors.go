package layout

import (
	"errors"
	"fmt"
)

// LayoutErrorType categorizes layout errors.
type LayoutErrorType int

const (
	// InvalidDimension indicates a dimension that violates a mode constraint.
	InvalidDimension LayoutErrorType = iota
	// UnknownField indicates a field name absent from a row layout.
	UnknownField
	// InvalidFormat indicates an unparseable TFORM or TDIM value.
	InvalidFormat
	// LayoutMismatch indicates a row byte sum that disagrees with NAXIS1.
	LayoutMismatch
)

// String returns the error type name.
func (t LayoutErrorType) String() string {
	switch t {
	case InvalidDimension:
		return "InvalidDimension"
	case UnknownField:
		return "UnknownField"
	case InvalidFormat:
		return "InvalidFormat"
	case LayoutMismatch:
		return "LayoutMismatch"
	default:
		return fmt.Sprintf("LayoutErrorType(%d)", int(t))
	}
}

// LayoutError represents a row layout derivation error.
type LayoutError struct {
	// Type categorizes the error.
	Type LayoutErrorType
	// Message is the error message.
	Message string
	// Field is the column or dimension involved.
	Field string
	// Cause is the underlying error (if any).
	Cause error
}

// Error implements the error interface.
func (e *LayoutError) Error() string {
	msg := e.Message
	if e.Field != "" {
		msg = fmt.Sprintf("%s [field: %s]", msg, e.Field)
	}
	if e.Cause != nil {
		return fmt.Sprintf("%s: %v", msg, e.Cause)
	}
	return msg
}

// Unwrap returns the underlying cause error for error unwrapping.
func (e *LayoutError) Unwrap() error {
	return e.Cause
}

func newLayoutError(typ LayoutErrorType, field, format string, args ...interface{}) *LayoutError {
	return &LayoutError{
		Type:    typ,
		Message: fmt.Sprintf(format, args...),
		Field:   field,
	}
}

// IsType reports whether err is a LayoutError of the given type.
func IsType(err error, typ LayoutErrorType) bool {
	var le *LayoutError
	return errors.As(err, &le) && le.Type == typ
}

// IsInvalidDimension reports whether err is an InvalidDimension error.
func IsInvalidDimension(err error) bool {
	return IsType(err, InvalidDimension)
}
