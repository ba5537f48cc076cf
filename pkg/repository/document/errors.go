package document

import (
	"errors"
	"fmt"
)

var (
	// ErrDocumentAlreadyExists is returned by Add when a document with the same
	// id is already stored in the partition.
	ErrDocumentAlreadyExists = errors.New("document already exists")

	// ErrDocumentNotFound is returned by Update and Delete when the target document
	// is not stored in the partition.
	ErrDocumentNotFound = errors.New("document does not exist")

	// ErrStoreNotFound is the signal connections return when a point read, replace or
	// delete finds nothing. Repositories translate it and never return it as is from
	// a read.
	ErrStoreNotFound = errors.New("document store: not found")

	// ErrStoreConflict marks a create rejected by the store because the id is taken.
	// It is returned alongside the native driver error when two writers race past the
	// existence probe.
	ErrStoreConflict = errors.New("document store: conflict")

	// ErrInvalidContinuationToken is returned when a continuation token cannot be
	// decoded or belongs to another partition.
	ErrInvalidContinuationToken = errors.New("invalid continuation token")

	// ErrUnsupportedExpression is returned by translators for expressions the store
	// cannot evaluate server-side.
	ErrUnsupportedExpression = errors.New("unsupported expression")
)

// Command operation names used in errors, logs and metrics.
const (
	OpAdd    = "add"
	OpUpdate = "update"
	OpDelete = "delete"
)

// DocumentError describes a failed command. Err is one of the sentinel errors of this
// package, so callers match with errors.Is and use errors.As to reach the key.
type DocumentError struct {
	Op  string
	Key Key
	// Document is the rejected document for add and update, nil for delete.
	Document any
	Err      error
}

func (e *DocumentError) Error() string {
	return fmt.Sprintf("%s document %s: %v", e.Op, e.Key, e.Err)
}

func (e *DocumentError) Unwrap() error {
	return e.Err
}

// IsAlreadyExists reports whether err is or wraps ErrDocumentAlreadyExists.
func IsAlreadyExists(err error) bool {
	return errors.Is(err, ErrDocumentAlreadyExists)
}

// IsNotFound reports whether err is or wraps ErrDocumentNotFound.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrDocumentNotFound)
}
