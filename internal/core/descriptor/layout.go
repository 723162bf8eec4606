package descriptor

import (
	"path/filepath"
	"regexp"
)

// =============================================================================
// Deployment Filesystem Layout
// =============================================================================

// DefaultBaseDir is the root for all deployments unless overridden.
const DefaultBaseDir = "/srv/deployments"

// Layout holds the fixed directory structure of one deployment:
// {baseDir}/{project}/{environment}/{branch}.
type Layout struct {
	Base   string
	Code   string
	Config string
	Logs   string
	Venv   string
}

// NewLayout computes the layout for a deployment. baseDir may be empty, in
// which case DefaultBaseDir is used. The branch component is normalized so
// feature branches like "feature/login" stay on one path level.
func NewLayout(baseDir, project string, env Environment, branch string) Layout {
	if baseDir == "" {
		baseDir = DefaultBaseDir
	}
	base := filepath.Join(baseDir, project, string(env), NormalizeBranch(branch))
	return Layout{
		Base:   base,
		Code:   filepath.Join(base, "code"),
		Config: filepath.Join(base, "config"),
		Logs:   filepath.Join(base, "logs"),
		Venv:   filepath.Join(base, "venv"),
	}
}

// BinDir returns the runtime environment's binary directory. Relative
// service commands are resolved against it.
func (l Layout) BinDir() string {
	return filepath.Join(l.Venv, "bin")
}

// SupervisorDir returns the directory for generated supervisor unit files.
func (l Layout) SupervisorDir() string {
	return filepath.Join(l.Config, "supervisor")
}

// NginxDir returns the directory for externally rendered reverse-proxy
// site files.
func (l Layout) NginxDir() string {
	return filepath.Join(l.Config, "nginx")
}

// SupervisorLogDir returns the directory for per-service supervisor logs.
func (l Layout) SupervisorLogDir() string {
	return filepath.Join(l.Logs, "supervisor")
}

// AppLogDir returns the directory for application logs.
func (l Layout) AppLogDir() string {
	return filepath.Join(l.Logs, "app")
}

// Directories returns every directory the pipeline must provision, in
// creation order. The venv directory itself is created by the runtime
// setup script, not here.
func (l Layout) Directories() []string {
	return []string{
		l.Base,
		l.Code,
		l.Config,
		l.Logs,
		l.SupervisorDir(),
		l.NginxDir(),
		l.SupervisorLogDir(),
		l.AppLogDir(),
	}
}

// branchUnsafe matches branch name characters that cannot appear in paths
// or unit names.
var branchUnsafe = regexp.MustCompile(`[^A-Za-z0-9_.-]+`)

// NormalizeBranch converts a git branch name into a path- and unit-safe
// form: "feature/login" becomes "feature-login".
func NormalizeBranch(branch string) string {
	if branch == "" {
		return "main"
	}
	return branchUnsafe.ReplaceAllString(branch, "-")
}
