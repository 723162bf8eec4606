package pipeline

import (
	"context"
	"errors"
	"fmt"

	"github.com/artpar/deployer/internal/shell/provision"
)

// =============================================================================
// Hook Execution
// =============================================================================

// runHooks executes the hooks of one lifecycle phase strictly in
// descriptor order. A failing hook aborts the phase unless it is marked
// allow_failure, in which case the failure is logged and the next hook
// still runs. A missing script is always fatal: it is a configuration
// defect, not a runtime failure the operator opted into tolerating.
// A phase with no hooks is vacuously successful.
func (p *Pipeline) runHooks(ctx context.Context, phase string) error {
	hooks := p.desc.Hooks[phase]
	if len(hooks) == 0 {
		p.logger.Info("no hooks configured", "phase", phase)
		return nil
	}

	for i, hook := range hooks {
		name := hook.Description
		if name == "" {
			name = fmt.Sprintf("hook %d", i+1)
		}
		p.logger.Info("running hook", "phase", phase, "hook", name)

		var err error
		if hook.Command != "" {
			err = provision.RunShell(ctx, p.logger, hook.Command, p.layout.Code, p.vars)
		} else {
			err = provision.RunScript(ctx, p.logger, p.cfg.ScriptsDir, hook.Script, p.layout.Code, p.vars)
		}
		if err == nil {
			p.logger.Info("hook completed", "phase", phase, "hook", name)
			continue
		}

		if errors.Is(err, provision.ErrScriptNotFound) {
			return &HookError{Phase: phase, Hook: name, Err: err}
		}
		if hook.AllowFailure {
			p.logger.Warn("hook failed, continuing (allow_failure)",
				"phase", phase, "hook", name, "error", err)
			continue
		}
		return &HookError{Phase: phase, Hook: name, Err: err}
	}

	return nil
}
