package fitsfile

import (
	"errors"
	"fmt"
	"io/fs"
)

// FileErrorType categorizes FITS file errors.
type FileErrorType int

const (
	// NotFound indicates the file does not exist.
	NotFound FileErrorType = iota
	// PermissionDenied indicates the file cannot be opened with the requested access.
	PermissionDenied
	// InvalidStructure indicates bytes that do not form valid FITS HDUs.
	InvalidStructure
	// WriteFailed indicates an I/O failure while writing.
	WriteFailed
	// ReadOnly indicates a write on a file opened for reading.
	ReadOnly
	// CleanUnsupported indicates a header write that would drop existing keywords.
	CleanUnsupported
)

// String returns the error type name.
func (t FileErrorType) String() string {
	switch t {
	case NotFound:
		return "NotFound"
	case PermissionDenied:
		return "PermissionDenied"
	case InvalidStructure:
		return "InvalidStructure"
	case WriteFailed:
		return "WriteFailed"
	case ReadOnly:
		return "ReadOnly"
	case CleanUnsupported:
		return "CleanUnsupported"
	default:
		return fmt.Sprintf("FileErrorType(%d)", int(t))
	}
}

// FileError represents a FITS file I/O error.
type FileError struct {
	// Type categorizes the error.
	Type FileErrorType
	// Message is the error message.
	Message string
	// Path is the file involved.
	Path string
	// HDU is the zero-based HDU index, or -1.
	HDU int
	// Cause is the underlying error (if any).
	Cause error
}

// Error implements the error interface.
func (e *FileError) Error() string {
	msg := e.Message
	if e.Path != "" {
		msg = fmt.Sprintf("%s [file: %s]", msg, e.Path)
	}
	if e.HDU >= 0 {
		msg = fmt.Sprintf("%s [hdu: %d]", msg, e.HDU)
	}
	if e.Cause != nil {
		return fmt.Sprintf("%s: %v", msg, e.Cause)
	}
	return msg
}

// Unwrap returns the underlying cause error for error unwrapping.
func (e *FileError) Unwrap() error {
	return e.Cause
}

func newFileError(typ FileErrorType, path string, hdu int, message string, cause error) *FileError {
	return &FileError{
		Type:    typ,
		Message: message,
		Path:    path,
		HDU:     hdu,
		Cause:   cause,
	}
}

// openError classifies an os.OpenFile failure.
func openError(path string, err error) *FileError {
	switch {
	case errors.Is(err, fs.ErrNotExist):
		return newFileError(NotFound, path, -1, "file does not exist", err)
	case errors.Is(err, fs.ErrPermission):
		return newFileError(PermissionDenied, path, -1, "permission denied", err)
	default:
		return newFileError(WriteFailed, path, -1, "failed to open file", err)
	}
}

// IsType reports whether err is a FileError of the given type.
func IsType(err error, typ FileErrorType) bool {
	var fe *FileError
	return errors.As(err, &fe) && fe.Type == typ
}
