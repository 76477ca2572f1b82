package draft

import (
	"errors"
	"fmt"
)

// DraftErrorType categorizes header draft errors.
type DraftErrorType int

const (
	// UnknownExtension indicates an extension key that does not resolve.
	UnknownExtension DraftErrorType = iota
	// SchemaMismatch indicates a source file whose extensions do not line up with the draft.
	SchemaMismatch
	// MissingTable indicates a commit with an extension that has no rows bound.
	MissingTable
	// AlreadyCommitted indicates a second commit, or an edit after commit.
	AlreadyCommitted
	// NotCommitted indicates an append before the draft was committed.
	NotCommitted
	// TableMismatch indicates rows whose layout disagrees with the extension header.
	TableMismatch
)

// String returns the error type name.
func (t DraftErrorType) String() string {
	switch t {
	case UnknownExtension:
		return "UnknownExtension"
	case SchemaMismatch:
		return "SchemaMismatch"
	case MissingTable:
		return "MissingTable"
	case AlreadyCommitted:
		return "AlreadyCommitted"
	case NotCommitted:
		return "NotCommitted"
	case TableMismatch:
		return "TableMismatch"
	default:
		return fmt.Sprintf("DraftErrorType(%d)", int(t))
	}
}

// DraftError represents a header draft error.
type DraftError struct {
	// Type categorizes the error.
	Type DraftErrorType
	// Message is the error message.
	Message string
	// Extension is the extension involved (if any).
	Extension string
	// Field is the keyword or column involved (if any).
	Field string
	// Cause is the underlying error (if any).
	Cause error
}

// Error implements the error interface.
func (e *DraftError) Error() string {
	msg := e.Message
	if e.Extension != "" {
		msg = fmt.Sprintf("%s [extension: %s]", msg, e.Extension)
	}
	if e.Field != "" {
		msg = fmt.Sprintf("%s [field: %s]", msg, e.Field)
	}
	if e.Cause != nil {
		return fmt.Sprintf("%s: %v", msg, e.Cause)
	}
	return msg
}

// Unwrap returns the underlying cause error for error unwrapping.
func (e *DraftError) Unwrap() error {
	return e.Cause
}

func newDraftError(typ DraftErrorType, extension, message string, cause error) *DraftError {
	return &DraftError{
		Type:      typ,
		Message:   message,
		Extension: extension,
		Cause:     cause,
	}
}

// Is reports whether err is a DraftError of the given type.
func Is(err error, typ DraftErrorType) bool {
	var de *DraftError
	return errors.As(err, &de) && de.Type == typ
}
