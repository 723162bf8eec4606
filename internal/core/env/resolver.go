// Package env provides layered environment variable resolution.
//
// A resolved environment is built from ordered named layers. Later layers
// overwrite earlier ones on key collision, and after the merge every value
// is scanned exactly once for ${VAR} tokens. Expansion is single-pass by
// design: a token is replaced with the merged (pre-expansion) value of the
// referenced key, so transitive chains longer than one hop are not
// followed. Unresolved references are left verbatim, never an error.
package env

import (
	"fmt"
	"regexp"
	"sort"
	"strconv"
)

// =============================================================================
// Types
// =============================================================================

// Map is a resolved flat string environment.
type Map map[string]string

// Layer is one named source of variables. The name records provenance for
// debugging and plays no part in resolution.
type Layer struct {
	Name string
	Vars map[string]string
}

// NewLayer creates a layer from string values.
func NewLayer(name string, vars map[string]string) Layer {
	return Layer{Name: name, Vars: vars}
}

// LayerFromAny creates a layer from loosely typed values (YAML scalars),
// coercing each to its canonical string form.
func LayerFromAny(name string, vars map[string]any) Layer {
	out := make(map[string]string, len(vars))
	for k, v := range vars {
		out[k] = Coerce(v)
	}
	return Layer{Name: name, Vars: out}
}

// =============================================================================
// Resolution
// =============================================================================

// varPattern matches ${VAR} placeholders.
var varPattern = regexp.MustCompile(`\$\{([A-Za-z_][A-Za-z0-9_]*)\}`)

// Resolve merges the layers in order (later wins) and expands every value
// in a single pass against the merged snapshot.
func Resolve(layers ...Layer) Map {
	merged := make(Map)
	for _, layer := range layers {
		for k, v := range layer.Vars {
			merged[k] = v
		}
	}

	resolved := make(Map, len(merged))
	for k, v := range merged {
		resolved[k] = Expand(v, merged)
	}
	return resolved
}

// Expand replaces ${VAR} tokens in value with vars["VAR"]. Missing keys
// are left verbatim. Substituted text is not re-expanded.
func Expand(value string, vars Map) string {
	return varPattern.ReplaceAllStringFunc(value, func(match string) string {
		name := match[2 : len(match)-1]
		if v, ok := vars[name]; ok {
			return v
		}
		return match
	})
}

// Merge returns a copy of base with overrides applied on top.
func Merge(base Map, overrides Map) Map {
	out := make(Map, len(base)+len(overrides))
	for k, v := range base {
		out[k] = v
	}
	for k, v := range overrides {
		out[k] = v
	}
	return out
}

// Keys returns the map's keys in sorted order, for deterministic output.
func (m Map) Keys() []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Environ renders the map as KEY=value pairs in sorted key order, suitable
// for appending to a process environment.
func (m Map) Environ() []string {
	out := make([]string, 0, len(m))
	for _, k := range m.Keys() {
		out = append(out, k+"="+m[k])
	}
	return out
}

// =============================================================================
// Coercion
// =============================================================================

// Coerce converts a YAML scalar to its canonical string form. Strings pass
// through unchanged; nil becomes the empty string.
func Coerce(v any) string {
	switch t := v.(type) {
	case nil:
		return ""
	case string:
		return t
	case bool:
		return strconv.FormatBool(t)
	case int:
		return strconv.Itoa(t)
	case int64:
		return strconv.FormatInt(t, 10)
	case uint64:
		return strconv.FormatUint(t, 10)
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64)
	default:
		return fmt.Sprintf("%v", t)
	}
}
