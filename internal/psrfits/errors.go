package psrfits

import (
	"errors"
	"fmt"
)

// WriterErrorType categorizes writer errors.
type WriterErrorType int

const (
	// InvalidOptions indicates missing or contradictory writer options.
	InvalidOptions WriterErrorType = iota
	// OutputExists indicates the output path is taken and overwriting was not requested.
	OutputExists
	// NotConfigured indicates SUBINT rows were requested before the dimensions were set.
	NotConfigured
	// Closed indicates use of a closed writer.
	Closed
	// NotWritten indicates the output was inspected before it was written.
	NotWritten
)

func (t WriterErrorType) String() string {
	switch t {
	case InvalidOptions:
		return "InvalidOptions"
	case OutputExists:
		return "OutputExists"
	case NotConfigured:
		return "NotConfigured"
	case Closed:
		return "Closed"
	case NotWritten:
		return "NotWritten"
	default:
		return fmt.Sprintf("WriterErrorType(%d)", int(t))
	}
}

// WriterError represents a PSRFITS writer error.
type WriterError struct {
	Type    WriterErrorType
	Message string
	// Path is the template or output path involved.
	Path  string
	Cause error
}

// Error implements the error interface.
func (e *WriterError) Error() string {
	msg := fmt.Sprintf("psrfits writer error [%s]", e.Type)
	if e.Path != "" {
		msg += fmt.Sprintf(" for '%s'", e.Path)
	}
	msg += ": " + e.Message
	if e.Cause != nil {
		msg += fmt.Sprintf(" (caused by: %v)", e.Cause)
	}
	return msg
}

// Unwrap returns the underlying cause.
func (e *WriterError) Unwrap() error {
	return e.Cause
}

func newWriterError(typ WriterErrorType, path, message string, cause error) *WriterError {
	return &WriterError{Type: typ, Message: message, Path: path, Cause: cause}
}

// IsType reports whether err is a WriterError of the given type.
func IsType(err error, typ WriterErrorType) bool {
	var we *WriterError
	return errors.As(err, &we) && we.Type == typ
}
