package draft

import (
	"errors"
	"fmt"
)

var (
	ErrUnsupportedType = errors.New("unsupported image type")
	ErrFileTooLarge    = errors.New("file is too large")
	ErrDuplicatePhoto  = errors.New("photo was already added")
	ErrIndexOutOfRange = errors.New("photo index out of range")
)

// ValidationError rejects a file before any conversion or upload is attempted.
type ValidationError struct {
	FileName string
	Reason   error
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s: %v", e.FileName, e.Reason)
}

func (e *ValidationError) Unwrap() error {
	return e.Reason
}

type ConversionError struct {
	FileName string
	Err      error
}

func (e *ConversionError) Error() string {
	return fmt.Sprintf("could not convert %s: %v", e.FileName, e.Err)
}

func (e *ConversionError) Unwrap() error {
	return e.Err
}

type UploadError struct {
	FileName string
	Path     string
	Err      error
}

func (e *UploadError) Error() string {
	return fmt.Sprintf("could not upload %s: %v", e.FileName, e.Err)
}

func (e *UploadError) Unwrap() error {
	return e.Err
}

// PersistenceError reports a failed draft cache read or write. The in-memory set
// stays authoritative, so callers should surface it as a warning only.
type PersistenceError struct {
	Op  string
	Err error
}

func (e *PersistenceError) Error() string {
	return fmt.Sprintf("draft %s failed: %v", e.Op, e.Err)
}

func (e *PersistenceError) Unwrap() error {
	return e.Err
}

// IsNonBlocking reports whether err leaves the requested mutation applied.
func IsNonBlocking(err error) bool {
	var perr *PersistenceError
	return errors.As(err, &perr)
}
