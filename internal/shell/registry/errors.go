// Package registry persists the record of which project/environment
// combinations are deployed and with what metadata. The default backend is
// a single YAML document rewritten whole on every change; a SQLite backend
// offers the same contract with transactional writes.
package registry

import (
	"errors"
	"fmt"
)

// =============================================================================
// Error Types
// =============================================================================

var (
	// ErrNotFound is returned when no entry exists for a (project,
	// environment) pair.
	ErrNotFound = errors.New("deployment entry not found")

	// ErrCorruptDocument is returned when the persisted registry cannot be
	// decoded. The document is never silently replaced.
	ErrCorruptDocument = errors.New("registry document is corrupt")

	// ErrConnectionFailed is returned when the SQLite backend cannot open
	// its database.
	ErrConnectionFailed = errors.New("registry database connection failed")

	// ErrMigrationFailed is returned when SQLite migrations fail.
	ErrMigrationFailed = errors.New("registry migration failed")

	// ErrInvalidData is returned when an entry cannot be serialized.
	ErrInvalidData = errors.New("invalid entry data")
)

// RegistryError wraps errors with operation context.
type RegistryError struct {
	Op          string // Operation that failed (e.g., "Add")
	Project     string
	Environment string
	Message     string
	Err         error
}

func (e *RegistryError) Error() string {
	if e.Project != "" && e.Environment != "" {
		return fmt.Sprintf("%s %s/%s: %s", e.Op, e.Project, e.Environment, e.Message)
	}
	if e.Project != "" {
		return fmt.Sprintf("%s %s: %s", e.Op, e.Project, e.Message)
	}
	return fmt.Sprintf("%s: %s", e.Op, e.Message)
}

func (e *RegistryError) Unwrap() error {
	return e.Err
}

// NewRegistryError creates a new RegistryError.
func NewRegistryError(op, project, environment, message string, err error) *RegistryError {
	return &RegistryError{
		Op:          op,
		Project:     project,
		Environment: environment,
		Message:     message,
		Err:         err,
	}
}
