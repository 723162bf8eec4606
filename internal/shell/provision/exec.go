package provision

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/exec"
	"path/filepath"
	"strings"

	"github.com/artpar/deployer/internal/core/env"
)

// =============================================================================
// Process Execution
// =============================================================================

// RunScript executes a named script from scriptsDir with vars injected over
// the inherited process environment. The script's combined output is
// captured and logged; a missing script or non-zero exit is an error.
func RunScript(ctx context.Context, logger *slog.Logger, scriptsDir, name, dir string, vars env.Map) error {
	path := filepath.Join(scriptsDir, name)
	if _, err := os.Stat(path); err != nil {
		return &ExecError{
			Op:      "RunScript",
			Command: name,
			Message: fmt.Sprintf("not found in %s", scriptsDir),
			Err:     ErrScriptNotFound,
		}
	}

	cmd := exec.CommandContext(ctx, path)
	cmd.Dir = dir
	cmd.Env = mergedEnviron(vars)

	return runCommand(cmd, logger, "RunScript", name)
}

// RunShell executes a command line through the shell in dir with vars
// injected over the inherited process environment.
func RunShell(ctx context.Context, logger *slog.Logger, command, dir string, vars env.Map) error {
	cmd := exec.CommandContext(ctx, "/bin/sh", "-c", command)
	cmd.Dir = dir
	cmd.Env = mergedEnviron(vars)

	return runCommand(cmd, logger, "RunShell", command)
}

// runCommand blocks until the process exits, capturing combined output.
func runCommand(cmd *exec.Cmd, logger *slog.Logger, op, label string) error {
	out, err := cmd.CombinedOutput()
	output := strings.TrimSpace(string(out))

	if err != nil {
		var exitErr *exec.ExitError
		message := err.Error()
		if errors.As(err, &exitErr) {
			message = fmt.Sprintf("exit status %d", exitErr.ExitCode())
		}
		if output != "" {
			logger.Error("command failed", "command", label, "output", output)
		}
		return &ExecError{
			Op:      op,
			Command: label,
			Message: message,
			Output:  output,
			Err:     ErrCommandFailed,
		}
	}

	if output != "" {
		logger.Debug("command output", "command", label, "output", output)
	}
	return nil
}

// mergedEnviron builds the child environment: the parent process env with
// the resolved deployment variables appended (deployment wins on
// collision, since later entries override in execve semantics).
func mergedEnviron(vars env.Map) []string {
	return append(os.Environ(), vars.Environ()...)
}
