// Package descriptor contains pure functions for parsing and validating
// deployment descriptors. This is part of the Functional Core - all
// functions are pure with no I/O beyond reading the descriptor file itself.
package descriptor

import (
	"errors"
	"fmt"
)

// =============================================================================
// Error Types
// =============================================================================

var (
	// Input validation errors
	ErrEmptyInput = errors.New("deployment descriptor is empty")

	// YAML parsing errors
	ErrInvalidYAML = errors.New("invalid YAML syntax")

	// Required field errors
	ErrMissingField = errors.New("required field is missing")

	// Enumeration errors
	ErrInvalidEnvironment = errors.New("invalid environment")

	// Hook structure errors
	ErrHookShape = errors.New("hook must define exactly one of command or script")
)

// ParseError wraps errors with context about where descriptor parsing failed.
type ParseError struct {
	Field   string // e.g., "services[2].name", "hooks.pre_deploy[0]"
	Message string
	Err     error
}

func (e *ParseError) Error() string {
	if e.Field != "" {
		return fmt.Sprintf("descriptor field %s: %s", e.Field, e.Message)
	}
	return fmt.Sprintf("descriptor: %s", e.Message)
}

func (e *ParseError) Unwrap() error {
	return e.Err
}

// NewParseError creates a new ParseError.
func NewParseError(field, message string, err error) *ParseError {
	return &ParseError{
		Field:   field,
		Message: message,
		Err:     err,
	}
}
