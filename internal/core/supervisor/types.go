package supervisor

import (
	"log/slog"

	"github.com/artpar/deployer/internal/core/descriptor"
	"github.com/artpar/deployer/internal/core/env"
)

// =============================================================================
// Unit Types
// =============================================================================

// ProgramUnit is one supervisor program definition, derived from a single
// service descriptor.
type ProgramUnit struct {
	// Name is the unique unit name: {project}-{branch}-{service}.
	Name string

	// Service is the bare service name from the descriptor.
	Service string

	// Command is the fully resolved command line, including any appended
	// concurrency and bind flags.
	Command string

	// Directory is the working directory for the process.
	Directory string

	// User the supervisor runs the process as.
	User string

	Autostart   bool
	Autorestart bool

	// NumProcs is the supervisor-level replication count. Always 1 for
	// network workers, which manage their own internal concurrency.
	NumProcs int

	// Environment is the per-service resolved environment block.
	Environment env.Map

	StdoutLog string
	StderrLog string

	// Kind records the process-management strategy chosen at validation.
	Kind descriptor.ServiceKind

	// Port is the allocated port for network workers, or the declared
	// metadata port for other kinds. Zero when the service has no port.
	Port int

	// PreferredPort is the port the descriptor asked for. It differs from
	// Port when the preferred port was taken at generation time.
	PreferredPort int
}

// GroupUnit groups all program units of one deployment for atomic
// start/stop as a set. Emitted only when more than one unit exists.
type GroupUnit struct {
	Name     string
	Programs []string
	Priority int
}

// =============================================================================
// Generation Options
// =============================================================================

// PortFinder locates a bindable TCP port near the preferred one. The shell
// provides an implementation backed by real socket probes; tests inject
// fakes.
type PortFinder func(preferred int) (int, error)

const (
	// DefaultPreferredPort is used for network workers that declare no port.
	DefaultPreferredPort = 8000

	// DefaultUser is the account services run as unless configured.
	DefaultUser = "www-data"

	// GroupPriority is the supervisor priority for generated groups.
	GroupPriority = 999
)

// Options configures unit generation.
type Options struct {
	Project string
	Branch  string // normalized branch, used in unit names
	User    string

	Autostart   bool
	Autorestart bool

	// DefaultDomain is injected as SERVICE_DOMAIN for services without
	// their own domain. Empty means derive {project}-{branch}.
	DefaultDomain string

	// FindPort allocates ports for network workers. Nil means always use
	// the preferred port.
	FindPort PortFinder

	// Logger receives port-allocation fallback warnings. Nil discards.
	Logger *slog.Logger
}

// DefaultOptions returns generation options with the stock restart policy.
func DefaultOptions(project, branch string) Options {
	return Options{
		Project:     project,
		Branch:      branch,
		User:        DefaultUser,
		Autostart:   true,
		Autorestart: true,
	}
}
