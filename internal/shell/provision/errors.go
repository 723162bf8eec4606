// Package provision executes external provisioning scripts and hook
// commands with the resolved deployment environment injected. The pipeline
// engine depends only on the Provisioner interface, keeping it free of
// direct OS/process coupling.
package provision

import (
	"errors"
	"fmt"
)

// =============================================================================
// Error Types
// =============================================================================

var (
	// ErrScriptNotFound is returned when a named script does not exist in
	// the scripts directory.
	ErrScriptNotFound = errors.New("script not found")

	// ErrCommandFailed is returned when an external process exits non-zero.
	ErrCommandFailed = errors.New("command exited with non-zero status")
)

// ExecError wraps external process failures with context.
type ExecError struct {
	Op      string // Operation that failed (e.g., "RunScript")
	Command string // Script name or shell command
	Message string
	Output  string // Combined stdout/stderr, trimmed
	Err     error
}

func (e *ExecError) Error() string {
	if e.Command != "" {
		return fmt.Sprintf("%s %q: %s", e.Op, e.Command, e.Message)
	}
	return fmt.Sprintf("%s: %s", e.Op, e.Message)
}

func (e *ExecError) Unwrap() error {
	return e.Err
}
