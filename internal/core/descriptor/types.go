package descriptor

// =============================================================================
// Environment
// =============================================================================

// Environment is the deployment target environment.
type Environment string

const (
	EnvProduction  Environment = "production"
	EnvQA          Environment = "qa"
	EnvStaging     Environment = "staging"
	EnvDevelopment Environment = "development"
)

// environmentAliases maps accepted short forms to canonical environments.
var environmentAliases = map[string]Environment{
	"production":  EnvProduction,
	"prod":        EnvProduction,
	"qa":          EnvQA,
	"staging":     EnvStaging,
	"stage":       EnvStaging,
	"development": EnvDevelopment,
	"dev":         EnvDevelopment,
}

// ParseEnvironment parses an environment name, accepting both canonical
// names and common short forms (prod, stage, dev).
func ParseEnvironment(s string) (Environment, error) {
	if env, ok := environmentAliases[s]; ok {
		return env, nil
	}
	return "", NewParseError("environment", "must be one of: production, qa, staging, development", ErrInvalidEnvironment)
}

// =============================================================================
// Service Kind
// =============================================================================

// ServiceKind is the process-management strategy for a service, decided
// once at descriptor validation time.
type ServiceKind string

const (
	// KindNetworkWorker services bind one network port and manage their own
	// internal concurrency (e.g., gunicorn). The supervisor runs exactly one
	// process for them.
	KindNetworkWorker ServiceKind = "network-worker"

	// KindReplicated services are replicated by the supervisor itself via
	// their workers count.
	KindReplicated ServiceKind = "replicated"

	// KindOther services run as a single supervisor process with no port
	// handling.
	KindOther ServiceKind = "other"
)

// networkWorkerTypes are the service type strings that manage their own
// worker pool and bind a port.
var networkWorkerTypes = map[string]struct{}{
	"gunicorn": {},
	"uvicorn":  {},
}

// ClassifyService determines the ServiceKind from the declared type and
// workers count.
func ClassifyService(serviceType string, workers int) ServiceKind {
	if _, ok := networkWorkerTypes[serviceType]; ok {
		return KindNetworkWorker
	}
	if workers > 1 {
		return KindReplicated
	}
	return KindOther
}

// =============================================================================
// Descriptor Types
// =============================================================================

// Descriptor is the declarative deployment input, immutable per run.
type Descriptor struct {
	Name        string            `yaml:"name"`
	Environment Environment       `yaml:"environment"`
	Runtime     string            `yaml:"runtime"`
	Repo        string            `yaml:"repo,omitempty"`
	EnvFile     string            `yaml:"env_file,omitempty"`
	Deps        Dependencies      `yaml:"dependencies,omitempty"`
	EnvVars     map[string]any    `yaml:"env_vars,omitempty"`
	Database    *Database         `yaml:"database,omitempty"`
	Services    []Service         `yaml:"services,omitempty"`
	Hooks       map[string][]Hook `yaml:"hooks,omitempty"`

	// Extra preserves unknown top-level keys. Unknown keys are passed
	// through, never rejected.
	Extra map[string]any `yaml:",inline"`
}

// Dependencies lists what the provisioning scripts must install.
type Dependencies struct {
	System       []string `yaml:"system,omitempty"`
	Packages     []string `yaml:"packages,omitempty"`
	Requirements []string `yaml:"requirements,omitempty"`
}

// Database holds the optional database section. Values may contain
// ${VAR} references resolved against earlier environment layers.
type Database struct {
	Type     string `yaml:"type,omitempty"`
	Name     string `yaml:"name,omitempty"`
	User     string `yaml:"user,omitempty"`
	Password string `yaml:"password,omitempty"`
	Host     string `yaml:"host,omitempty"`
	Port     any    `yaml:"port,omitempty"` // int or ${VAR} string
}

// Service describes one supervised process.
type Service struct {
	Name      string         `yaml:"name"`
	Command   string         `yaml:"command"`
	Type      string         `yaml:"type,omitempty"`
	Port      int            `yaml:"port,omitempty"`
	Workers   int            `yaml:"workers,omitempty"`
	Directory string         `yaml:"directory,omitempty"`
	Domain    string         `yaml:"domain,omitempty"`
	EnvVars   map[string]any `yaml:"env_vars,omitempty"`

	// Kind is populated during validation from Type and Workers.
	Kind ServiceKind `yaml:"-"`
}

// =============================================================================
// Hooks
// =============================================================================

// Lifecycle phases with configurable hooks.
const (
	PhasePreDeploy  = "pre_deploy"
	PhasePostDeploy = "post_deploy"
)

// Hook is a user-defined command or script run at a fixed pipeline phase.
// Exactly one of Command or Script must be set.
type Hook struct {
	Description  string `yaml:"description,omitempty"`
	AllowFailure bool   `yaml:"allow_failure,omitempty"`
	Command      string `yaml:"command,omitempty"`
	Script       string `yaml:"script,omitempty"`
}
