package reader

import (
	"errors"
	"fmt"
)

// ReaderErrorType categorizes reader errors.
type ReaderErrorType int

const (
	// OpenFailed indicates the file could not be opened as FITS.
	OpenFailed ReaderErrorType = iota
	// NotSearchMode indicates a file whose OBS_MODE is not SEARCH.
	NotSearchMode
	// UnsupportedBits indicates an NBITS other than 8, 16 or 32.
	UnsupportedBits
	// InvalidRange indicates rows or downsampling factors outside the file.
	InvalidRange
	// MissingColumn indicates a SUBINT column or keyword the reader needs is absent.
	MissingColumn
	// ReadFailed indicates a row could not be decoded.
	ReadFailed
)

func (t ReaderErrorType) String() string {
	switch t {
	case OpenFailed:
		return "OpenFailed"
	case NotSearchMode:
		return "NotSearchMode"
	case UnsupportedBits:
		return "UnsupportedBits"
	case InvalidRange:
		return "InvalidRange"
	case MissingColumn:
		return "MissingColumn"
	case ReadFailed:
		return "ReadFailed"
	default:
		return fmt.Sprintf("ReaderErrorType(%d)", int(t))
	}
}

// ReaderError represents a search-mode read error.
type ReaderError struct {
	Type    ReaderErrorType
	Message string
	Path    string
	Cause   error
}

func (e *ReaderError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("reader error [%s] for '%s': %s (caused by: %v)", e.Type, e.Path, e.Message, e.Cause)
	}
	return fmt.Sprintf("reader error [%s] for '%s': %s", e.Type, e.Path, e.Message)
}

func (e *ReaderError) Unwrap() error {
	return e.Cause
}

func newReaderError(typ ReaderErrorType, path, message string, cause error) *ReaderError {
	return &ReaderError{Type: typ, Message: message, Path: path, Cause: cause}
}

// IsType reports whether err is a ReaderError of the given type.
func IsType(err error, typ ReaderErrorType) bool {
	var re *ReaderError
	return errors.As(err, &re) && re.Type == typ
}
