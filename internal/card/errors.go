package card

import (
	"errors"
	"fmt"
)

// CardErrorType categorizes card errors.
type CardErrorType int

const (
	// InvalidCard indicates card text that is not a FITS card image.
	InvalidCard CardErrorType = iota
	// FieldNotFound indicates a keyword that is absent from a header.
	FieldNotFound
	// CardFormatUnresolvable indicates no text anchor could be found for a substitution.
	CardFormatUnresolvable
)

// String returns the error type name.
func (t CardErrorType) String() string {
	switch t {
	case InvalidCard:
		return "InvalidCard"
	case FieldNotFound:
		return "FieldNotFound"
	case CardFormatUnresolvable:
		return "CardFormatUnresolvable"
	default:
		return fmt.Sprintf("CardErrorType(%d)", int(t))
	}
}

// CardError represents a card parsing or formatting error.
type CardError struct {
	// Type categorizes the error.
	Type CardErrorType
	// Message is the error message.
	Message string
	// Keyword is the header keyword involved.
	Keyword string
	// Text is the offending card or value text, if any.
	Text string
	// Cause is the underlying error (if any).
	Cause error
}

// Error implements the error interface.
func (e *CardError) Error() string {
	msg := e.Message
	if e.Keyword != "" {
		msg = fmt.Sprintf("%s [keyword: %s]", msg, e.Keyword)
	}
	if e.Text != "" {
		msg = fmt.Sprintf("%s (text: %q)", msg, e.Text)
	}
	if e.Cause != nil {
		return fmt.Sprintf("%s: %v", msg, e.Cause)
	}
	return msg
}

// Unwrap returns the underlying cause error for error unwrapping.
func (e *CardError) Unwrap() error {
	return e.Cause
}

func newCardError(typ CardErrorType, keyword, text, message string) *CardError {
	return &CardError{
		Type:    typ,
		Message: message,
		Keyword: keyword,
		Text:    text,
	}
}

// NewFieldNotFound creates a FieldNotFound error for keyword in the named extension.
func NewFieldNotFound(keyword, extension string) *CardError {
	msg := "keyword does not exist in this header"
	if extension != "" {
		msg = fmt.Sprintf("keyword does not exist in the %s header", extension)
	}
	return newCardError(FieldNotFound, keyword, "", msg)
}

// IsType reports whether err is a CardError of the given type.
func IsType(err error, typ CardErrorType) bool {
	var ce *CardError
	return errors.As(err, &ce) && ce.Type == typ
}

// IsFieldNotFound reports whether err is a FieldNotFound error.
func IsFieldNotFound(err error) bool {
	return IsType(err, FieldNotFound)
}
