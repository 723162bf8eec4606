package provision

import (
	"context"
	"log/slog"

	"github.com/artpar/deployer/internal/core/env"
)

// =============================================================================
// Provisioner Interface
// =============================================================================

// Provisioner is the capability interface for the external, failure-prone
// operations the pipeline sequences but does not implement itself. Tests
// substitute fakes.
type Provisioner interface {
	// InstallSystemDeps installs OS-level packages.
	InstallSystemDeps(ctx context.Context, vars env.Map) error

	// SetupRuntime creates or refreshes the language runtime environment.
	SetupRuntime(ctx context.Context, vars env.Map) error

	// InstallLanguageDeps installs language packages and requirement files.
	InstallLanguageDeps(ctx context.Context, vars env.Map) error

	// ValidateDeployment runs the external post-deployment check; a nil
	// return means "it came up".
	ValidateDeployment(ctx context.Context, vars env.Map) error
}

// =============================================================================
// Script Names
// =============================================================================

// Fixed filename convention for the provisioning scripts.
const (
	ScriptInstallSystemDeps   = "install-system-dependencies"
	ScriptSetupRuntime        = "setup-runtime-environment"
	ScriptInstallLanguageDeps = "install-language-dependencies"
	ScriptValidateDeployment  = "validate-deployment"
)

// =============================================================================
// ScriptProvisioner
// =============================================================================

// ScriptProvisioner implements Provisioner by shelling out to executables
// in a scripts directory, each located by its fixed filename.
type ScriptProvisioner struct {
	scriptsDir string
	logger     *slog.Logger
}

var _ Provisioner = (*ScriptProvisioner)(nil)

// NewScriptProvisioner creates a script-backed provisioner.
func NewScriptProvisioner(scriptsDir string, logger *slog.Logger) *ScriptProvisioner {
	if logger == nil {
		logger = slog.Default()
	}
	return &ScriptProvisioner{
		scriptsDir: scriptsDir,
		logger:     logger.With("component", "provisioner"),
	}
}

func (p *ScriptProvisioner) InstallSystemDeps(ctx context.Context, vars env.Map) error {
	return p.run(ctx, ScriptInstallSystemDeps, vars)
}

func (p *ScriptProvisioner) SetupRuntime(ctx context.Context, vars env.Map) error {
	return p.run(ctx, ScriptSetupRuntime, vars)
}

func (p *ScriptProvisioner) InstallLanguageDeps(ctx context.Context, vars env.Map) error {
	return p.run(ctx, ScriptInstallLanguageDeps, vars)
}

func (p *ScriptProvisioner) ValidateDeployment(ctx context.Context, vars env.Map) error {
	return p.run(ctx, ScriptValidateDeployment, vars)
}

func (p *ScriptProvisioner) run(ctx context.Context, script string, vars env.Map) error {
	p.logger.Info("running provisioning script", "script", script)
	return RunScript(ctx, p.logger, p.scriptsDir, script, "", vars)
}
