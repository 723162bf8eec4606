// Package supervisor contains pure functions for turning service
// descriptors into process-supervisor unit definitions. Port probing is
// injected via PortFinder so the generation logic itself performs no I/O.
package supervisor

import (
	"errors"
	"fmt"
)

// =============================================================================
// Error Types
// =============================================================================

var (
	// ErrInvalidServiceName is returned when a service name is empty or
	// contains characters other than alphanumerics, hyphen and underscore.
	ErrInvalidServiceName = errors.New("invalid service name")

	// ErrMissingCommand is returned when a service has no command.
	ErrMissingCommand = errors.New("service command is required")

	// ErrDuplicateService is returned when two services share a name.
	ErrDuplicateService = errors.New("duplicate service name")
)

// ValidationError reports which service failed validation. A single
// invalid service aborts the whole generation: partial supervisor
// configuration is considered worse than none.
type ValidationError struct {
	Service string
	Field   string
	Message string
	Err     error
}

func (e *ValidationError) Error() string {
	if e.Service != "" {
		return fmt.Sprintf("service %s: %s %s", e.Service, e.Field, e.Message)
	}
	return fmt.Sprintf("service %s: %s", e.Field, e.Message)
}

func (e *ValidationError) Unwrap() error {
	return e.Err
}
