package index

import (
	"errors"
	"fmt"
)

// ErrRebuildRequired matches every indexing failure. The course's index
// should be cleared and rebuilt.
var ErrRebuildRequired = errors.New("index: rebuild required")

// ErrIncompatible means the namespace already holds chunks from another
// index version, embedding model or vector dimension. Nothing is written
// and the index is not marked incomplete.
var ErrIncompatible = errors.New("index: stored chunks are incompatible with the running embedder")

// Error is returned by IndexFiles. The cause stays reachable through
// errors.Is and errors.As.
type Error struct {
	Op   string
	File string
	Err  error
}

func (e *Error) Error() string {
	if e.File == "" {
		return fmt.Sprintf("index: %s: %v (rebuild the course index)", e.Op, e.Err)
	}
	return fmt.Sprintf("index: %s %q: %v (rebuild the course index)", e.Op, e.File, e.Err)
}

func (e *Error) Unwrap() error {
	return e.Err
}

func (e *Error) Is(target error) bool {
	return target == ErrRebuildRequired
}

func wrapError(op string, err error) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("index: %s: %w", op, err)
}
