package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"path/filepath"

	"github.com/artpar/deployer/internal/core/descriptor"
	"github.com/artpar/deployer/internal/shell/pipeline"
	"github.com/artpar/deployer/internal/shell/provision"
	"github.com/artpar/deployer/internal/shell/registry"
)

// Version information (set by build)
var (
	Version   = "dev"
	BuildTime = "unknown"
)

// =============================================================================
// Exit Codes
// =============================================================================

const (
	ExitSuccess     = 0
	ExitConfigError = 1
	ExitDeployError = 2
)

func main() {
	os.Exit(run())
}

func run() int {
	// Parse command line flags
	descriptorPath := flag.String("config", "", "Path to deployment descriptor (required)")
	branch := flag.String("branch", "main", "Branch being deployed")
	baseDir := flag.String("base-dir", "", "Deployment root (overrides tool config)")
	sourceRef := flag.String("source-ref", "", "Source reference recorded in the registry")
	toolConfig := flag.String("tool-config", "", "Path to tool config file")
	showVersion := flag.Bool("version", false, "Print version and exit")
	flag.Parse()

	// Handle version flag
	if *showVersion {
		fmt.Printf("deployer %s (built %s)\n", Version, BuildTime)
		return ExitSuccess
	}

	if *descriptorPath == "" {
		fmt.Fprintln(os.Stderr, "usage: deployer -config <descriptor.yml> [-branch <name>]")
		return ExitConfigError
	}

	// Load tool configuration
	cfg, err := LoadConfig(*toolConfig)
	if err != nil {
		fmt.Fprintf(os.Stderr, "configuration error: %v\n", err)
		return ExitConfigError
	}
	if *baseDir != "" {
		cfg.Deploy.BaseDir = *baseDir
	}

	// Setup logger
	logger := SetupLogger(cfg)
	logger.Info("starting deployer",
		"version", Version,
		"descriptor", *descriptorPath,
		"branch", *branch,
	)

	// Parse the deployment descriptor
	desc, err := descriptor.Load(*descriptorPath)
	if err != nil {
		logger.Error("invalid deployment descriptor",
			"path", *descriptorPath,
			"error", err,
		)
		return ExitConfigError
	}

	// Open the registry. A broken registry must not block deployment, so a
	// failure here downgrades to a warning and the run proceeds unrecorded.
	reg, err := registry.Open(cfg.Registry.Backend, cfg.Registry.Path)
	if err != nil {
		logger.Warn("registry unavailable, deployment will not be recorded",
			"backend", cfg.Registry.Backend,
			"path", cfg.Registry.Path,
			"error", err,
		)
		reg = nil
	} else {
		defer reg.Close()
	}

	prov := provision.NewScriptProvisioner(cfg.Scripts.Dir, logger)

	pipeCfg := pipeline.Config{
		BaseDir:       cfg.Deploy.BaseDir,
		ScriptsDir:    cfg.Scripts.Dir,
		UnitOutputDir: cfg.Supervisor.OutputDir,
		SourceDir:     cfg.Deploy.SourceDir,
		SourceRef:     *sourceRef,
		DescriptorDir: filepath.Dir(*descriptorPath),
		PortHost:      cfg.Supervisor.PortHost,
		User:          cfg.Supervisor.User,
		Autostart:     cfg.Supervisor.Autostart,
		Autorestart:   cfg.Supervisor.Autorestart,
	}

	pipe, err := pipeline.New(desc, *branch, prov, reg, pipeCfg, logger)
	if err != nil {
		logger.Error("failed to prepare pipeline", "error", err)
		return ExitConfigError
	}

	ctx := context.Background()
	if err := pipe.Run(ctx); err != nil {
		logger.Error("deployment failed",
			"project", desc.Name,
			"environment", desc.Environment,
			"run_id", pipe.RunID(),
			"error", err,
		)
		return ExitDeployError
	}

	logger.Info("deployment complete",
		"project", desc.Name,
		"environment", desc.Environment,
		"branch", *branch,
		"run_id", pipe.RunID(),
		"path", pipe.Layout().Base,
	)
	return ExitSuccess
}
