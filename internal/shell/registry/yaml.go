package registry

import (
	"context"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"
)

// =============================================================================
// YAML Document Schema
// =============================================================================

// documentVersion is the registry schema version written on every save.
const documentVersion = "1.0"

// document is the persisted registry file:
// {deployments: {project: {environments: {env: Entry}}}, last_updated, version}.
type document struct {
	Deployments map[string]*projectDoc `yaml:"deployments"`
	LastUpdated string                 `yaml:"last_updated"`
	Version     string                 `yaml:"version"`
}

type projectDoc struct {
	Environments map[string]*Entry `yaml:"environments"`
}

func newDocument(now time.Time) *document {
	return &document{
		Deployments: make(map[string]*projectDoc),
		LastUpdated: timestamp(now),
		Version:     documentVersion,
	}
}

// =============================================================================
// YAMLStore
// =============================================================================

// YAMLStore implements Store with a single YAML file, rewritten whole on
// every change. This is the default backend.
type YAMLStore struct {
	path string
	now  func() time.Time
}

var _ Store = (*YAMLStore)(nil)

// NewYAMLStore creates a YAML-file registry store. The file is created on
// first write.
func NewYAMLStore(path string) *YAMLStore {
	return &YAMLStore{path: path, now: time.Now}
}

// Close is a no-op for the file backend.
func (s *YAMLStore) Close() error { return nil }

// load reads the whole document, returning a fresh one when the file does
// not exist yet. A file that exists but cannot be decoded is an error, not
// a reset.
func (s *YAMLStore) load() (*document, error) {
	data, err := os.ReadFile(s.path)
	if os.IsNotExist(err) {
		return newDocument(s.now()), nil
	}
	if err != nil {
		return nil, err
	}

	var doc document
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, NewRegistryError("load", "", "", err.Error(), ErrCorruptDocument)
	}
	if doc.Deployments == nil {
		doc.Deployments = make(map[string]*projectDoc)
	}
	if doc.Version == "" {
		doc.Version = documentVersion
	}
	return &doc, nil
}

// save persists the whole document, stamping last_updated.
func (s *YAMLStore) save(doc *document) error {
	doc.LastUpdated = timestamp(s.now())

	if err := os.MkdirAll(filepath.Dir(s.path), 0o755); err != nil {
		return err
	}
	data, err := yaml.Marshal(doc)
	if err != nil {
		return err
	}
	return os.WriteFile(s.path, data, 0o644)
}

// =============================================================================
// Store Operations
// =============================================================================

// Add creates or overwrites the entry for (project, environment).
func (s *YAMLStore) Add(_ context.Context, project, environment string, entry Entry) error {
	doc, err := s.load()
	if err != nil {
		return NewRegistryError("Add", project, environment, "load registry", err)
	}

	proj, ok := doc.Deployments[project]
	if !ok || proj == nil {
		proj = &projectDoc{Environments: make(map[string]*Entry)}
		doc.Deployments[project] = proj
	}
	if proj.Environments == nil {
		proj.Environments = make(map[string]*Entry)
	}

	if entry.DeployedAt == "" {
		entry.DeployedAt = timestamp(s.now())
	}
	proj.Environments[environment] = &entry

	if err := s.save(doc); err != nil {
		return NewRegistryError("Add", project, environment, "save registry", err)
	}
	return nil
}

// Remove deletes the entry, pruning the project when it becomes empty.
func (s *YAMLStore) Remove(_ context.Context, project, environment string) (bool, error) {
	doc, err := s.load()
	if err != nil {
		return false, NewRegistryError("Remove", project, environment, "load registry", err)
	}

	proj, ok := doc.Deployments[project]
	if !ok || proj == nil {
		return false, nil
	}
	if _, ok := proj.Environments[environment]; !ok {
		return false, nil
	}

	delete(proj.Environments, environment)
	if len(proj.Environments) == 0 {
		delete(doc.Deployments, project)
	}

	if err := s.save(doc); err != nil {
		return false, NewRegistryError("Remove", project, environment, "save registry", err)
	}
	return true, nil
}

// Get returns the entry or ErrNotFound.
func (s *YAMLStore) Get(_ context.Context, project, environment string) (*Entry, error) {
	doc, err := s.load()
	if err != nil {
		return nil, NewRegistryError("Get", project, environment, "load registry", err)
	}

	proj, ok := doc.Deployments[project]
	if !ok || proj == nil {
		return nil, ErrNotFound
	}
	entry, ok := proj.Environments[environment]
	if !ok || entry == nil {
		return nil, ErrNotFound
	}

	out := *entry
	return &out, nil
}

// List returns all entries keyed by project then environment.
func (s *YAMLStore) List(_ context.Context) (map[string]map[string]Entry, error) {
	doc, err := s.load()
	if err != nil {
		return nil, NewRegistryError("List", "", "", "load registry", err)
	}

	out := make(map[string]map[string]Entry, len(doc.Deployments))
	for project, proj := range doc.Deployments {
		if proj == nil {
			continue
		}
		envs := make(map[string]Entry, len(proj.Environments))
		for environment, entry := range proj.Environments {
			if entry != nil {
				envs[environment] = *entry
			}
		}
		out[project] = envs
	}
	return out, nil
}

// UpdateServiceStatus updates one service's status and PID in place.
func (s *YAMLStore) UpdateServiceStatus(_ context.Context, project, environment, service, status string, pid *int) (bool, error) {
	doc, err := s.load()
	if err != nil {
		return false, NewRegistryError("UpdateServiceStatus", project, environment, "load registry", err)
	}

	proj, ok := doc.Deployments[project]
	if !ok || proj == nil {
		return false, nil
	}
	entry, ok := proj.Environments[environment]
	if !ok || entry == nil || len(entry.Services) == 0 {
		return false, nil
	}
	if !applyServiceStatus(entry, service, status, pid) {
		return false, nil
	}

	if err := s.save(doc); err != nil {
		return false, NewRegistryError("UpdateServiceStatus", project, environment, "save registry", err)
	}
	return true, nil
}
