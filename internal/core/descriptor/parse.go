package descriptor

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

// =============================================================================
// Parser Functions
// =============================================================================

// Load reads and parses a deployment descriptor file.
func Load(path string) (*Descriptor, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read descriptor %s: %w", path, err)
	}
	return Parse(data)
}

// Parse parses deployment descriptor YAML and validates its structure.
// Unknown keys are preserved in Extra, not rejected.
func Parse(data []byte) (*Descriptor, error) {
	if strings.TrimSpace(string(data)) == "" {
		return nil, ErrEmptyInput
	}

	var d Descriptor
	if err := yaml.Unmarshal(data, &d); err != nil {
		// Environment parse errors carry their own context.
		var perr *ParseError
		if errors.As(err, &perr) {
			return nil, perr
		}
		return nil, NewParseError("", err.Error(), ErrInvalidYAML)
	}

	if err := validate(&d); err != nil {
		return nil, err
	}
	return &d, nil
}

// UnmarshalYAML parses the environment field, accepting canonical names and
// short aliases.
func (e *Environment) UnmarshalYAML(value *yaml.Node) error {
	var s string
	if err := value.Decode(&s); err != nil {
		return err
	}
	env, err := ParseEnvironment(s)
	if err != nil {
		return err
	}
	*e = env
	return nil
}

// =============================================================================
// Validation
// =============================================================================

// validate checks required fields and structural invariants, and resolves
// each service's Kind. Per-service name/command validation is deferred to
// unit generation, where a bad service fails the whole batch.
func validate(d *Descriptor) error {
	if d.Name == "" {
		return NewParseError("name", "name is required", ErrMissingField)
	}
	if d.Environment == "" {
		return NewParseError("environment", "environment is required", ErrMissingField)
	}
	if d.Runtime == "" {
		return NewParseError("runtime", "runtime is required", ErrMissingField)
	}

	for phase, hooks := range d.Hooks {
		for i, h := range hooks {
			hasCommand := h.Command != ""
			hasScript := h.Script != ""
			if hasCommand == hasScript {
				field := fmt.Sprintf("hooks.%s[%d]", phase, i)
				return NewParseError(field, "exactly one of command or script is required", ErrHookShape)
			}
		}
	}

	for i := range d.Services {
		svc := &d.Services[i]
		svc.Kind = ClassifyService(svc.Type, svc.Workers)
	}

	return nil
}
