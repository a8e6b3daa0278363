package vectordb

import (
	"errors"
	"fmt"
)

// Common errors
var (
	// ErrStoreClosed is returned when trying to use a closed store
	ErrStoreClosed = errors.New("store is closed")

	// ErrNotInitialized is returned before Init has been called
	ErrNotInitialized = errors.New("store is not initialized")

	// ErrEmptyCollection is returned when a collection name is empty
	ErrEmptyCollection = errors.New("collection name is empty")

	// ErrCollectionNotFound is returned when a collection does not exist
	ErrCollectionNotFound = errors.New("collection not found")

	// ErrDimensionMismatch is returned when vectors in one batch differ in
	// length
	ErrDimensionMismatch = errors.New("vector dimension mismatch")

	// ErrInvalidFilter is returned for metadata keys that cannot be used in
	// a filter
	ErrInvalidFilter = errors.New("invalid metadata filter")

	// ErrInsufficientCandidates is matched by *InsufficientCandidatesError
	ErrInsufficientCandidates = errors.New("not enough candidates for top-k")
)

// InsufficientCandidatesError is returned by Query when TopK exceeds the
// number of matching vectors
type InsufficientCandidatesError struct {
	Requested int
	Available int
}

func (e *InsufficientCandidatesError) Error() string {
	return fmt.Sprintf("requested %d nearest neighbours but only %d candidates match", e.Requested, e.Available)
}

func (e *InsufficientCandidatesError) Is(target error) bool {
	return target == ErrInsufficientCandidates
}

// StoreError wraps errors with operation context
type StoreError struct {
	Op  string // Operation name
	Err error  // Underlying error
}

// Error implements the error interface
func (e *StoreError) Error() string {
	if e.Op == "" {
		return fmt.Sprintf("vectordb: %v", e.Err)
	}
	return fmt.Sprintf("vectordb: %s: %v", e.Op, e.Err)
}

// Unwrap returns the underlying error
func (e *StoreError) Unwrap() error {
	return e.Err
}

// wrapError wraps an error with operation context
func wrapError(op string, err error) error {
	if err == nil {
		return nil
	}
	return &StoreError{Op: op, Err: err}
}
