package main

import (
	"fmt"
	"log/slog"
	"os"
	"strings"

	"github.com/spf13/viper"
)

// =============================================================================
// Config Types
// =============================================================================

// Config holds all tool-level configuration. The deployment descriptor is
// separate input, parsed per run.
type Config struct {
	Registry   RegistryConfig   `mapstructure:"registry"`
	Scripts    ScriptsConfig    `mapstructure:"scripts"`
	Supervisor SupervisorConfig `mapstructure:"supervisor"`
	Deploy     DeployConfig     `mapstructure:"deploy"`
	Log        LogConfig        `mapstructure:"log"`
}

// RegistryConfig selects and locates the deployment registry backend.
type RegistryConfig struct {
	// Backend is "yaml" (default, whole-document file) or "sqlite".
	Backend string `mapstructure:"backend"`
	Path    string `mapstructure:"path"`
}

// ScriptsConfig locates the external provisioning and hook scripts.
type ScriptsConfig struct {
	Dir string `mapstructure:"dir"`
}

// SupervisorConfig holds unit generation settings.
type SupervisorConfig struct {
	// OutputDir overrides where unit files are written. Empty means the
	// deployment's own config/supervisor directory.
	OutputDir string `mapstructure:"output_dir"`

	// User the supervisor runs services as.
	User string `mapstructure:"user"`

	Autostart   bool `mapstructure:"autostart"`
	Autorestart bool `mapstructure:"autorestart"`

	// PortHost is the interface probed during port allocation.
	PortHost string `mapstructure:"port_host"`
}

// DeployConfig holds filesystem settings for deployments.
type DeployConfig struct {
	// BaseDir is the root for all deployments.
	BaseDir string `mapstructure:"base_dir"`

	// SourceDir is the prepared source tree to place; the deploy wrapper
	// runs the tool from the cloned repository, so "." is the default.
	SourceDir string `mapstructure:"source_dir"`
}

// LogConfig holds logging configuration.
type LogConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

// =============================================================================
// Config Loading
// =============================================================================

// LoadConfig loads configuration from file and environment.
func LoadConfig(configPath string) (*Config, error) {
	v := viper.New()

	// Set defaults
	v.SetDefault("registry.backend", "yaml")
	v.SetDefault("registry.path", "./deployments.yml")
	v.SetDefault("scripts.dir", "./scripts")
	v.SetDefault("supervisor.output_dir", "")
	v.SetDefault("supervisor.user", "www-data")
	v.SetDefault("supervisor.autostart", true)
	v.SetDefault("supervisor.autorestart", true)
	v.SetDefault("supervisor.port_host", "localhost")
	v.SetDefault("deploy.base_dir", "")
	v.SetDefault("deploy.source_dir", ".")
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")

	// Load from file if provided
	if configPath != "" {
		v.SetConfigFile(configPath)
		if err := v.ReadInConfig(); err != nil {
			// Only return error if file was explicitly specified and is invalid
			if _, ok := err.(viper.ConfigParseError); ok {
				return nil, fmt.Errorf("failed to parse config file: %w", err)
			}
			// File not found is OK, we'll use defaults
		}
	}

	// Enable environment variable overrides
	v.SetEnvPrefix("DEPLOYER")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Unmarshal config
	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	return &cfg, nil
}

// =============================================================================
// Logger Setup
// =============================================================================

// SetupLogger creates a logger with the configured level and format.
func SetupLogger(cfg *Config) *slog.Logger {
	var level slog.Level
	switch strings.ToLower(cfg.Log.Level) {
	case "debug":
		level = slog.LevelDebug
	case "info":
		level = slog.LevelInfo
	case "warn", "warning":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		level = slog.LevelInfo
	}

	opts := &slog.HandlerOptions{
		Level: level,
	}

	var handler slog.Handler
	if strings.ToLower(cfg.Log.Format) == "text" {
		handler = slog.NewTextHandler(os.Stdout, opts)
	} else {
		handler = slog.NewJSONHandler(os.Stdout, opts)
	}

	return slog.New(handler)
}
