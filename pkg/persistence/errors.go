package persistence

import (
	"errors"
	"fmt"
)

var (
	// ErrDocumentNotFound indicates no canvas exists for the given key.
	ErrDocumentNotFound = errors.New("canvas document not found")

	// ErrInvalidDocument indicates the stored bytes do not form a valid
	// canvas document.
	ErrInvalidDocument = errors.New("invalid canvas document")

	// ErrAttachmentNotFound indicates a file node references a missing file.
	ErrAttachmentNotFound = errors.New("attachment not found")
)

// DocumentError wraps a storage failure with its operation and key.
type DocumentError struct {
	Op  string // operation being performed, e.g. "Load", "Save"
	Key string // workspace key
	Err error
}

func (e *DocumentError) Error() string {
	return fmt.Sprintf("%s failed for canvas %s: %v", e.Op, e.Key, e.Err)
}

func (e *DocumentError) Unwrap() error {
	return e.Err
}

// NewDocumentError builds a DocumentError.
func NewDocumentError(op, key string, err error) *DocumentError {
	return &DocumentError{Op: op, Key: key, Err: err}
}

// IsDocumentNotFound reports whether err means a missing canvas.
func IsDocumentNotFound(err error) bool {
	return errors.Is(err, ErrDocumentNotFound)
}

// IsInvalidDocument reports whether err means a malformed canvas.
func IsInvalidDocument(err error) bool {
	return errors.Is(err, ErrInvalidDocument)
}
