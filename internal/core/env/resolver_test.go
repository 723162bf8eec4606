package env

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

// =============================================================================
// Resolve Tests
// =============================================================================

func TestResolve_LaterLayerWins(t *testing.T) {
	result := Resolve(
		NewLayer("base", map[string]string{"PORT": "8000", "HOST": "localhost"}),
		NewLayer("override", map[string]string{"PORT": "9000"}),
	)
	assert.Equal(t, "9000", result["PORT"])
	assert.Equal(t, "localhost", result["HOST"])
}

func TestResolve_ExpandsAgainstMergedSnapshot(t *testing.T) {
	// A reference in an early layer resolves to the value the later layer
	// contributed, because expansion happens after the merge.
	result := Resolve(
		NewLayer("base", map[string]string{"URL": "http://${HOST}", "HOST": "old"}),
		NewLayer("override", map[string]string{"HOST": "new"}),
	)
	assert.Equal(t, "http://new", result["URL"])
}

func TestResolve_SinglePassOnly(t *testing.T) {
	// A resolves to B's raw value, which itself contains a token that is
	// not expanded again.
	result := Resolve(NewLayer("vars", map[string]string{
		"A": "${B}",
		"B": "${C}",
		"C": "x",
	}))
	assert.Equal(t, "${C}", result["A"])
	assert.Equal(t, "x", result["B"])
	assert.Equal(t, "x", result["C"])
}

func TestResolve_UnresolvedLeftVerbatim(t *testing.T) {
	result := Resolve(NewLayer("vars", map[string]string{
		"DSN": "postgres://${DB_USER}@${DB_HOST}/app",
		"DB_HOST": "db.internal",
	}))
	assert.Equal(t, "postgres://${DB_USER}@db.internal/app", result["DSN"])
}

func TestResolve_NoTokensPassThrough(t *testing.T) {
	vars := map[string]string{"NAME": "api", "WORKERS": "4"}
	result := Resolve(NewLayer("vars", vars))
	assert.Equal(t, Map(vars), result)
}

func TestResolve_EmptyInput(t *testing.T) {
	result := Resolve()
	assert.Empty(t, result)
}

func TestResolve_MultipleTokensInOneValue(t *testing.T) {
	result := Resolve(NewLayer("vars", map[string]string{
		"BIND": "${HOST}:${PORT}",
		"HOST": "0.0.0.0",
		"PORT": "8080",
	}))
	assert.Equal(t, "0.0.0.0:8080", result["BIND"])
}

// =============================================================================
// Expand Tests
// =============================================================================

func TestExpand_TableDriven(t *testing.T) {
	vars := Map{"A": "1", "LONG_NAME": "x", "_U": "y"}

	tests := []struct {
		name  string
		value string
		want  string
	}{
		{"plain value", "hello", "hello"},
		{"simple token", "${A}", "1"},
		{"embedded token", "v=${A}!", "v=1!"},
		{"underscore name", "${_U}", "y"},
		{"long name", "${LONG_NAME}", "x"},
		{"missing key verbatim", "${MISSING}", "${MISSING}"},
		{"malformed no braces", "$A", "$A"},
		{"malformed open brace", "${A", "${A"},
		{"invalid name ignored", "${1BAD}", "${1BAD}"},
		{"empty value", "", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Expand(tt.value, vars))
		})
	}
}

func TestExpand_SubstitutedTextNotReExpanded(t *testing.T) {
	vars := Map{"A": "${B}", "B": "final"}
	assert.Equal(t, "${B}", Expand("${A}", vars))
}

// =============================================================================
// Merge Tests
// =============================================================================

func TestMerge_OverridesWin(t *testing.T) {
	base := Map{"A": "1", "B": "2"}
	result := Merge(base, Map{"B": "20", "C": "3"})
	assert.Equal(t, Map{"A": "1", "B": "20", "C": "3"}, result)
}

func TestMerge_DoesNotMutateInputs(t *testing.T) {
	base := Map{"A": "1"}
	overrides := Map{"A": "2"}
	_ = Merge(base, overrides)
	assert.Equal(t, "1", base["A"])
}

// =============================================================================
// Map Helper Tests
// =============================================================================

func TestMap_KeysSorted(t *testing.T) {
	m := Map{"ZEBRA": "1", "ALPHA": "2", "MIKE": "3"}
	assert.Equal(t, []string{"ALPHA", "MIKE", "ZEBRA"}, m.Keys())
}

func TestMap_Environ(t *testing.T) {
	m := Map{"B": "2", "A": "1"}
	assert.Equal(t, []string{"A=1", "B=2"}, m.Environ())
}

// =============================================================================
// Coerce Tests
// =============================================================================

func TestCoerce_TableDriven(t *testing.T) {
	tests := []struct {
		name  string
		input any
		want  string
	}{
		{"string", "hello", "hello"},
		{"nil", nil, ""},
		{"bool true", true, "true"},
		{"bool false", false, "false"},
		{"int", 8080, "8080"},
		{"int64", int64(42), "42"},
		{"float whole", 3.0, "3"},
		{"float fraction", 1.5, "1.5"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Coerce(tt.input))
		})
	}
}

// =============================================================================
// LayerFromAny Tests
// =============================================================================

func TestLayerFromAny_CoercesValues(t *testing.T) {
	layer := LayerFromAny("env_vars", map[string]any{
		"DEBUG":   false,
		"WORKERS": 4,
		"NAME":    "api",
	})
	assert.Equal(t, "env_vars", layer.Name)
	assert.Equal(t, map[string]string{
		"DEBUG":   "false",
		"WORKERS": "4",
		"NAME":    "api",
	}, layer.Vars)
}
