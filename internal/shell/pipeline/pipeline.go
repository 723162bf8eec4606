package pipeline

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"path/filepath"

	"github.com/google/uuid"
	"github.com/joho/godotenv"

	"github.com/artpar/deployer/internal/core/descriptor"
	"github.com/artpar/deployer/internal/core/env"
	"github.com/artpar/deployer/internal/core/supervisor"
	"github.com/artpar/deployer/internal/shell/provision"
	"github.com/artpar/deployer/internal/shell/registry"
)

// =============================================================================
// Step Names
// =============================================================================

// Pipeline states, in strict execution order. Each step advances the run
// only on success.
const (
	StepDirectoriesCreated    = "directories_created"
	StepSystemDepsInstalled   = "system_deps_installed"
	StepRuntimeEnvReady       = "runtime_env_ready"
	StepCodePlaced            = "code_placed"
	StepLanguageDepsInstalled = "language_deps_installed"
	StepPreDeployHooksRun     = "pre_deploy_hooks_run"
	StepUnitsGenerated        = "process_units_generated"
	StepUnitsInstalled        = "process_units_installed"
	StepPostDeployHooksRun    = "post_deploy_hooks_run"
	StepValidated             = "validated"
	StepRegistryUpdated       = "registry_updated"
)

// =============================================================================
// Configuration
// =============================================================================

// Config holds the host-level settings for one pipeline run.
type Config struct {
	// BaseDir overrides the deployment root (for testing). Empty means
	// descriptor.DefaultBaseDir.
	BaseDir string

	// ScriptsDir holds the provisioning and hook scripts.
	ScriptsDir string

	// UnitOutputDir overrides where unit files are written. Empty means
	// the layout's supervisor config directory.
	UnitOutputDir string

	// SourceDir is the prepared source tree copied into the code
	// directory. The deploy wrapper runs the pipeline from the cloned
	// repository, so this defaults to the current directory.
	SourceDir string

	// SourceRef is the origin reference (e.g. git URL) recorded in the
	// registry.
	SourceRef string

	// DescriptorDir resolves relative env_file paths.
	DescriptorDir string

	// PortHost is the interface probed during port allocation.
	PortHost string

	User        string
	Autostart   bool
	Autorestart bool
}

// =============================================================================
// Pipeline
// =============================================================================

// Pipeline executes one deployment run for a descriptor and branch.
type Pipeline struct {
	desc   *descriptor.Descriptor
	branch string
	layout descriptor.Layout
	runID  string
	vars   env.Map

	prov   provision.Provisioner
	reg    registry.Store
	cfg    Config
	logger *slog.Logger

	// populated by the unit-generation step
	units []supervisor.ProgramUnit
	group *supervisor.GroupUnit
}

// step is one named pipeline state transition.
type step struct {
	Name string
	Run  func(ctx context.Context) error
}

// New builds a pipeline for the descriptor. The resolved environment is
// computed up front so configuration errors abort before any side effect.
// reg may be nil, in which case the registry step is skipped.
func New(desc *descriptor.Descriptor, branch string, prov provision.Provisioner, reg registry.Store, cfg Config, logger *slog.Logger) (*Pipeline, error) {
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.SourceDir == "" {
		cfg.SourceDir = "."
	}
	if cfg.User == "" {
		cfg.User = supervisor.DefaultUser
	}

	layout := descriptor.NewLayout(cfg.BaseDir, desc.Name, desc.Environment, branch)
	runID := uuid.NewString()

	vars, err := buildEnvironment(desc, branch, runID, layout, cfg)
	if err != nil {
		return nil, err
	}

	return &Pipeline{
		desc:   desc,
		branch: branch,
		layout: layout,
		runID:  runID,
		vars:   vars,
		prov:   prov,
		reg:    reg,
		cfg:    cfg,
		logger: logger.With(
			"component", "pipeline",
			"project", desc.Name,
			"environment", string(desc.Environment),
			"branch", branch,
			"run_id", runID,
		),
	}, nil
}

// Vars exposes the resolved environment (read-only by convention).
func (p *Pipeline) Vars() env.Map { return p.vars }

// Layout exposes the computed deployment layout.
func (p *Pipeline) Layout() descriptor.Layout { return p.layout }

// RunID returns this run's unique identifier.
func (p *Pipeline) RunID() string { return p.runID }

// steps returns the ordered state machine.
func (p *Pipeline) steps() []step {
	return []step{
		{StepDirectoriesCreated, p.createDirectories},
		{StepSystemDepsInstalled, func(ctx context.Context) error { return p.prov.InstallSystemDeps(ctx, p.vars) }},
		{StepRuntimeEnvReady, func(ctx context.Context) error { return p.prov.SetupRuntime(ctx, p.vars) }},
		{StepCodePlaced, p.placeCode},
		{StepLanguageDepsInstalled, func(ctx context.Context) error { return p.prov.InstallLanguageDeps(ctx, p.vars) }},
		{StepPreDeployHooksRun, func(ctx context.Context) error { return p.runHooks(ctx, descriptor.PhasePreDeploy) }},
		{StepUnitsGenerated, p.generateUnits},
		{StepUnitsInstalled, p.installUnits},
		{StepPostDeployHooksRun, func(ctx context.Context) error { return p.runHooks(ctx, descriptor.PhasePostDeploy) }},
		{StepValidated, func(ctx context.Context) error { return p.prov.ValidateDeployment(ctx, p.vars) }},
		{StepRegistryUpdated, p.updateRegistry},
	}
}

// Run executes the pipeline. The first failing step ends the run, except
// the registry update: the deployment has already succeeded by then, so a
// registry failure only logs a warning.
func (p *Pipeline) Run(ctx context.Context) error {
	p.logger.Info("starting deployment", "base_path", p.layout.Base)

	for _, s := range p.steps() {
		p.logger.Info("step started", "step", s.Name)
		if err := s.Run(ctx); err != nil {
			if s.Name == StepRegistryUpdated {
				p.logger.Warn("registry update failed (non-fatal)", "error", err)
				continue
			}
			p.logger.Error("step failed", "step", s.Name, "error", err)
			return &StepError{Step: s.Name, Err: err}
		}
		p.logger.Info("step completed", "step", s.Name)
	}

	p.logger.Info("deployment completed")
	return nil
}

// =============================================================================
// Environment Construction
// =============================================================================

// buildEnvironment assembles the ordered layers of the resolved
// environment. Later layers win on key collision, and ${VAR} references
// get one single-pass expansion over the merged result.
func buildEnvironment(desc *descriptor.Descriptor, branch, runID string, layout descriptor.Layout, cfg Config) (env.Map, error) {
	unitDir := cfg.UnitOutputDir
	if unitDir == "" {
		unitDir = layout.SupervisorDir()
	}

	layers := []env.Layer{
		env.NewLayer("paths", map[string]string{
			"BASE_PATH":         layout.Base,
			"CODE_PATH":         layout.Code,
			"CONFIG_PATH":       layout.Config,
			"LOGS_PATH":         layout.Logs,
			"VENV_PATH":         layout.Venv,
			"CONFIG_OUTPUT_DIR": unitDir,
			"SCRIPTS_PATH":      cfg.ScriptsDir,
		}),
		env.NewLayer("project", projectVars(desc, branch, runID, layout)),
	}

	if deps := dependencyVars(desc.Deps); len(deps) > 0 {
		layers = append(layers, env.NewLayer("dependencies", deps))
	}

	if desc.EnvFile != "" {
		path := desc.EnvFile
		if !filepath.IsAbs(path) {
			path = filepath.Join(cfg.DescriptorDir, path)
		}
		fileVars, err := godotenv.Read(path)
		if err != nil {
			return nil, fmt.Errorf("read env_file %s: %w", desc.EnvFile, err)
		}
		layers = append(layers, env.NewLayer("env_file", fileVars))
	}

	if len(desc.EnvVars) > 0 {
		layers = append(layers, env.LayerFromAny("env_vars", desc.EnvVars))
	}

	if desc.Database != nil {
		layers = append(layers, env.NewLayer("database", databaseVars(desc.Database)))
	}

	return env.Resolve(layers...), nil
}

func projectVars(desc *descriptor.Descriptor, branch, runID string, layout descriptor.Layout) map[string]string {
	vars := map[string]string{
		"PROJECT_NAME":      desc.Name,
		"ENVIRONMENT":       string(desc.Environment),
		"BRANCH":            branch,
		"NORMALIZED_BRANCH": descriptor.NormalizeBranch(branch),
		"RUNTIME_VERSION":   desc.Runtime,
		"DEPLOYMENT_ID":     runID,
	}
	if desc.Repo != "" {
		vars["REPO_URL"] = desc.Repo
		vars["TARGET_DIR"] = layout.Code
	}
	return vars
}

// dependencyVars serializes the dependency manifests as JSON so the
// provisioning scripts consume one variable per list.
func dependencyVars(deps descriptor.Dependencies) map[string]string {
	vars := make(map[string]string, 3)
	put := func(key string, list []string) {
		if len(list) == 0 {
			return
		}
		data, err := json.Marshal(list)
		if err != nil {
			return // string slices cannot fail to marshal
		}
		vars[key] = string(data)
	}
	put("SYSTEM_DEPENDENCIES", deps.System)
	put("RUNTIME_DEPENDENCIES", deps.Packages)
	put("REQUIREMENTS_FILES", deps.Requirements)
	return vars
}

// databaseVars derives the DB_* keys from the database section. The values
// may reference earlier layers with ${VAR}; expansion happens in Resolve.
func databaseVars(db *descriptor.Database) map[string]string {
	dbType := db.Type
	if dbType == "" {
		dbType = "postgresql"
	}
	host := db.Host
	if host == "" {
		host = "localhost"
	}
	port := env.Coerce(db.Port)
	if port == "" {
		port = "5432"
	}
	return map[string]string{
		"DB_TYPE":     dbType,
		"DB_NAME":     db.Name,
		"DB_USER":     db.User,
		"DB_PASSWORD": db.Password,
		"DB_HOST":     host,
		"DB_PORT":     port,
	}
}
