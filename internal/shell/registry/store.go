package registry

import (
	"context"
	"time"
)

// =============================================================================
// Service Status
// =============================================================================

// Service status values recorded in the registry. They mirror the process
// supervisor's state names.
const (
	StatusUnknown  = "UNKNOWN"
	StatusStarting = "STARTING"
	StatusRunning  = "RUNNING"
	StatusStopped  = "STOPPED"
	StatusFatal    = "FATAL"
)

// stoppedStatuses are the states in which a recorded PID is meaningless
// and gets cleared.
var stoppedStatuses = map[string]struct{}{
	StatusStopped: {},
	StatusFatal:   {},
}

// =============================================================================
// Entry Types
// =============================================================================

// Entry is the registry record for one deployed (project, environment).
type Entry struct {
	RunID          string          `yaml:"run_id,omitempty" json:"run_id,omitempty"`
	SourceRef      string          `yaml:"source_ref,omitempty" json:"source_ref,omitempty"`
	Branch         string          `yaml:"branch" json:"branch"`
	DeployedAt     string          `yaml:"deployed_at,omitempty" json:"deployed_at,omitempty"`
	RuntimeVersion string          `yaml:"runtime_version,omitempty" json:"runtime_version,omitempty"`
	DeploymentPath string          `yaml:"deployment_path,omitempty" json:"deployment_path,omitempty"`
	Services       []ServiceRecord `yaml:"services,omitempty" json:"services,omitempty"`
	Directories    Directories     `yaml:"directories" json:"directories"`
	ConfigFile     string          `yaml:"config_file,omitempty" json:"config_file,omitempty"`
}

// ServiceRecord is one service's live-status placeholder inside an Entry.
type ServiceRecord struct {
	Name    string `yaml:"name" json:"name"`
	Kind    string `yaml:"kind,omitempty" json:"kind,omitempty"`
	Status  string `yaml:"status" json:"status"`
	Command string `yaml:"command,omitempty" json:"command,omitempty"`
	Port    int    `yaml:"port,omitempty" json:"port,omitempty"`
	PID     int    `yaml:"pid,omitempty" json:"pid,omitempty"`
}

// Directories records the deployment's filesystem layout.
type Directories struct {
	Code   string `yaml:"code" json:"code"`
	Venv   string `yaml:"venv" json:"venv"`
	Logs   string `yaml:"logs" json:"logs"`
	Config string `yaml:"config" json:"config"`
}

// =============================================================================
// Store Interface
// =============================================================================

// Store is the persistence interface for the deployment registry.
//
// Every mutating operation loads the persisted document, mutates it in
// memory and persists the whole document back. There is no cross-process
// locking: concurrent writers race last-writer-wins. That is an accepted
// limitation of this single-operator tool; the interface exists so a
// stricter backend can add locking without changing call sites.
type Store interface {
	// Add creates or overwrites the entry for (project, environment),
	// defaulting DeployedAt to the current UTC time when unset.
	Add(ctx context.Context, project, environment string, entry Entry) error

	// Remove deletes the entry and reports whether one existed. Removing
	// the last environment of a project removes the project itself.
	Remove(ctx context.Context, project, environment string) (bool, error)

	// Get returns the entry or ErrNotFound.
	Get(ctx context.Context, project, environment string) (*Entry, error)

	// List returns all entries keyed by project then environment.
	List(ctx context.Context) (map[string]map[string]Entry, error)

	// UpdateServiceStatus updates one service's status (and PID). It is a
	// no-op returning false when the entry, its service list, or the named
	// service is absent. A nil pid leaves the PID alone unless the new
	// status is stopped/fatal, which clears it.
	UpdateServiceStatus(ctx context.Context, project, environment, service, status string, pid *int) (bool, error)

	// Close releases backend resources.
	Close() error
}

// timestamp formats t in the registry's UTC ISO-8601 form.
func timestamp(t time.Time) string {
	return t.UTC().Format(time.RFC3339)
}

// applyServiceStatus mutates the matching service record in place and
// reports whether it was found. Shared by both backends.
func applyServiceStatus(entry *Entry, service, status string, pid *int) bool {
	for i := range entry.Services {
		rec := &entry.Services[i]
		if rec.Name != service {
			continue
		}
		rec.Status = status
		if pid != nil {
			rec.PID = *pid
		} else if _, stopped := stoppedStatuses[status]; stopped {
			rec.PID = 0
		}
		return true
	}
	return false
}
