package main

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// =============================================================================
// Config Loading Tests
// =============================================================================

func TestLoadConfig_DefaultValues(t *testing.T) {
	clearEnv(t)

	cfg, err := LoadConfig("")
	require.NoError(t, err)

	assert.Equal(t, "yaml", cfg.Registry.Backend)
	assert.Equal(t, "./deployments.yml", cfg.Registry.Path)
	assert.Equal(t, "./scripts", cfg.Scripts.Dir)
	assert.Equal(t, "", cfg.Supervisor.OutputDir)
	assert.Equal(t, "www-data", cfg.Supervisor.User)
	assert.True(t, cfg.Supervisor.Autostart)
	assert.True(t, cfg.Supervisor.Autorestart)
	assert.Equal(t, "localhost", cfg.Supervisor.PortHost)
	assert.Equal(t, "", cfg.Deploy.BaseDir)
	assert.Equal(t, ".", cfg.Deploy.SourceDir)
	assert.Equal(t, "info", cfg.Log.Level)
	assert.Equal(t, "json", cfg.Log.Format)
}

func TestLoadConfig_FromFile(t *testing.T) {
	clearEnv(t)

	configContent := `
registry:
  backend: "sqlite"
  path: "/var/lib/deployer/registry.db"

scripts:
  dir: "/opt/deployer/scripts"

supervisor:
  output_dir: "/etc/supervisor/conf.d"
  user: "deploy"
  autostart: false
  port_host: "0.0.0.0"

deploy:
  base_dir: "/srv/apps"

log:
  level: "debug"
  format: "text"
`
	tmpFile := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(tmpFile, []byte(configContent), 0644))

	cfg, err := LoadConfig(tmpFile)
	require.NoError(t, err)

	assert.Equal(t, "sqlite", cfg.Registry.Backend)
	assert.Equal(t, "/var/lib/deployer/registry.db", cfg.Registry.Path)
	assert.Equal(t, "/opt/deployer/scripts", cfg.Scripts.Dir)
	assert.Equal(t, "/etc/supervisor/conf.d", cfg.Supervisor.OutputDir)
	assert.Equal(t, "deploy", cfg.Supervisor.User)
	assert.False(t, cfg.Supervisor.Autostart)
	assert.True(t, cfg.Supervisor.Autorestart)
	assert.Equal(t, "0.0.0.0", cfg.Supervisor.PortHost)
	assert.Equal(t, "/srv/apps", cfg.Deploy.BaseDir)
	assert.Equal(t, "debug", cfg.Log.Level)
	assert.Equal(t, "text", cfg.Log.Format)
}

func TestLoadConfig_EnvironmentOverride(t *testing.T) {
	clearEnv(t)

	t.Setenv("DEPLOYER_REGISTRY_BACKEND", "sqlite")
	t.Setenv("DEPLOYER_REGISTRY_PATH", "/custom/registry.db")
	t.Setenv("DEPLOYER_SUPERVISOR_USER", "svc")
	t.Setenv("DEPLOYER_LOG_LEVEL", "warn")

	cfg, err := LoadConfig("")
	require.NoError(t, err)

	assert.Equal(t, "sqlite", cfg.Registry.Backend)
	assert.Equal(t, "/custom/registry.db", cfg.Registry.Path)
	assert.Equal(t, "svc", cfg.Supervisor.User)
	assert.Equal(t, "warn", cfg.Log.Level)
}

func TestLoadConfig_FileNotFound_UsesDefaults(t *testing.T) {
	clearEnv(t)

	cfg, err := LoadConfig("/nonexistent/path/config.yaml")
	require.NoError(t, err) // Should not error, just use defaults

	assert.Equal(t, "yaml", cfg.Registry.Backend)
	assert.Equal(t, "./scripts", cfg.Scripts.Dir)
}

func TestLoadConfig_InvalidFile(t *testing.T) {
	clearEnv(t)

	tmpFile := filepath.Join(t.TempDir(), "bad.yaml")
	require.NoError(t, os.WriteFile(tmpFile, []byte("invalid: yaml: content: [[["), 0644))

	_, err := LoadConfig(tmpFile)
	assert.Error(t, err)
}

// =============================================================================
// Logger Setup Tests
// =============================================================================

func TestSetupLogger_Formats(t *testing.T) {
	tests := []struct {
		name   string
		level  string
		format string
	}{
		{"json info", "info", "json"},
		{"text info", "info", "text"},
		{"debug", "debug", "json"},
		{"warn", "warn", "json"},
		{"error", "error", "json"},
		{"invalid level falls back", "invalid", "json"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := &Config{Log: LogConfig{Level: tt.level, Format: tt.format}}
			assert.NotNil(t, SetupLogger(cfg))
		})
	}
}

func clearEnv(t *testing.T) {
	t.Helper()
	envVars := []string{
		"DEPLOYER_REGISTRY_BACKEND",
		"DEPLOYER_REGISTRY_PATH",
		"DEPLOYER_SCRIPTS_DIR",
		"DEPLOYER_SUPERVISOR_USER",
		"DEPLOYER_LOG_LEVEL",
		"DEPLOYER_LOG_FORMAT",
	}
	for _, v := range envVars {
		os.Unsetenv(v)
	}
}
