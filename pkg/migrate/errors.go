package migrate

import (
	"errors"
	"fmt"
)

var (
	// ErrMigrationInProgress is returned when another process holds the
	// migration lock. The store is untouched; retry later.
	ErrMigrationInProgress = errors.New("migration in progress")

	// ErrMigrationFailed is matched by every *MigrationError
	ErrMigrationFailed = errors.New("migration failed")

	// ErrDuplicateVersion is returned when two scripts share an ordinal
	ErrDuplicateVersion = errors.New("duplicate migration version")
)

// MigrationError reports the script that failed and where the pre-migration
// backup was written. Scripts before Version remain applied.
type MigrationError struct {
	Version   int
	Script    string
	BackupDir string
	Err       error
}

func (e *MigrationError) Error() string {
	msg := fmt.Sprintf("migrate: %s failed: %v", e.Script, e.Err)
	if e.BackupDir != "" {
		msg += fmt.Sprintf(" (backup at %s)", e.BackupDir)
	}
	return msg
}

func (e *MigrationError) Unwrap() error {
	return e.Err
}

func (e *MigrationError) Is(target error) bool {
	return target == ErrMigrationFailed
}

// OpError wraps errors with operation context
type OpError struct {
	Op  string
	Err error
}

func (e *OpError) Error() string {
	return fmt.Sprintf("migrate: %s: %v", e.Op, e.Err)
}

func (e *OpError) Unwrap() error {
	return e.Err
}

func wrapError(op string, err error) error {
	if err == nil {
		return nil
	}
	return &OpError{Op: op, Err: err}
}
