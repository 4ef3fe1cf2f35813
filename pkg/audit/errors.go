package audit

import (
	"errors"
	"fmt"
)

// ErrNotFound is returned when no decision log exists for an audit id.
var ErrNotFound = errors.New("audit record not found")

// StorageError represents an error from the audit storage backend.
type StorageError struct {
	Backend   string // "sqlite", "memory"
	Operation string // "store_decision", "store_outcome", "query", ...
	Cause     error
}

// Error implements the error interface.
func (e *StorageError) Error() string {
	return fmt.Sprintf("audit storage error [backend=%s, operation=%s]: %v", e.Backend, e.Operation, e.Cause)
}

// Unwrap returns the underlying cause error.
func (e *StorageError) Unwrap() error {
	return e.Cause
}

// NewStorageError creates a new StorageError.
func NewStorageError(backend, operation string, cause error) *StorageError {
	return &StorageError{
		Backend:   backend,
		Operation: operation,
		Cause:     cause,
	}
}
