package registry

import "fmt"

// Backend names accepted by Open.
const (
	BackendYAML   = "yaml"
	BackendSQLite = "sqlite"
)

// Open creates a registry store for the configured backend. The YAML
// backend keeps the original whole-document contract; the SQLite backend
// is the stricter drop-in.
func Open(backend, path string) (Store, error) {
	switch backend {
	case "", BackendYAML:
		return NewYAMLStore(path), nil
	case BackendSQLite:
		return NewSQLiteStore(path)
	default:
		return nil, fmt.Errorf("unknown registry backend %q", backend)
	}
}
