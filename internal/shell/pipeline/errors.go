// Package pipeline sequences the deployment steps: directory provisioning,
// dependency installation, code placement, supervisor unit generation and
// installation, lifecycle hooks, validation and the registry update.
//
// Execution is single-threaded and sequential. The first failing step
// short-circuits the run; there is no rollback of completed steps and no
// automatic retry. The final registry update is best-effort bookkeeping
// and degrades to a warning.
package pipeline

import (
	"errors"
	"fmt"
)

// =============================================================================
// Error Types
// =============================================================================

var (
	// ErrSourceMissing is returned when the source tree to place does not
	// exist.
	ErrSourceMissing = errors.New("source directory not found")
)

// StepError marks which pipeline step failed.
type StepError struct {
	Step string
	Err  error
}

func (e *StepError) Error() string {
	return fmt.Sprintf("step %s: %v", e.Step, e.Err)
}

func (e *StepError) Unwrap() error {
	return e.Err
}

// HookError marks which hook of which phase failed.
type HookError struct {
	Phase string
	Hook  string
	Err   error
}

func (e *HookError) Error() string {
	return fmt.Sprintf("%s hook %q: %v", e.Phase, e.Hook, e.Err)
}

func (e *HookError) Unwrap() error {
	return e.Err
}
