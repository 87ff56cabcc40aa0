package schedule

import (
	"errors"
	"fmt"
)

var (
	// ErrNotFound indicates no schedule exists for a tag
	ErrNotFound = errors.New("schedule not found")

	// ErrRuntimeUnavailable indicates the scheduler or device layer is not ready
	ErrRuntimeUnavailable = errors.New("runtime unavailable")

	// ErrOwnerInstalled indicates triggers were installed for an owner that still has live triggers
	ErrOwnerInstalled = errors.New("triggers already installed for owner")
)

// ValidationError reports a missing or malformed schedule field.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return e.Reason
	}
	return fmt.Sprintf("%s %s", e.Field, e.Reason)
}

// PersistenceError reports that the schedules file could not be written.
// The in-memory state has already changed when this is returned.
type PersistenceError struct {
	Path string
	Err  error
}

func (e *PersistenceError) Error() string {
	return fmt.Sprintf("failed to save schedules to %s: %v", e.Path, e.Err)
}

func (e *PersistenceError) Unwrap() error {
	return e.Err
}
