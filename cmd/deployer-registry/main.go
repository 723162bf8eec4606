// Package main provides the deployer-registry binary for inspecting and
// maintaining the deployment registry outside a pipeline run.
//
// Usage:
//
//	deployer-registry <command> [flags]
//
// Commands:
//
//	list                                      - List all recorded deployments
//	get -project <p> -env <e>                 - Show one deployment entry
//	remove -project <p> -env <e>              - Remove a deployment entry
//	add -project <p> -env <e>                 - Add an entry (JSON from stdin)
//	update-service -project <p> -env <e> -service <s> -status <st> [-pid <n>]
//	version                                   - Show version
//
// All commands accept -registry <path> and -backend <yaml|sqlite>.
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"os"

	"github.com/artpar/deployer/internal/shell/registry"
)

// Version information (set by build)
var (
	Version   = "dev"
	BuildTime = "unknown"
)

func main() {
	if len(os.Args) < 2 {
		fmt.Fprintln(os.Stderr, "usage: deployer-registry <command> [flags]")
		os.Exit(2)
	}

	cmd := os.Args[1]
	args := os.Args[2:]

	if err := dispatch(cmd, args); err != nil {
		fmt.Fprintf(os.Stderr, "deployer-registry: %v\n", err)
		os.Exit(1)
	}
}

// dispatch routes the command to the appropriate handler.
func dispatch(cmd string, args []string) error {
	switch cmd {
	case "version":
		fmt.Printf("deployer-registry %s (built %s)\n", Version, BuildTime)
		return nil
	case "list":
		return listCmd(args)
	case "get":
		return getCmd(args)
	case "add":
		return addCmd(args)
	case "remove":
		return removeCmd(args)
	case "update-service":
		return updateServiceCmd(args)
	default:
		return fmt.Errorf("unknown command: %s", cmd)
	}
}

// =============================================================================
// Shared Flags
// =============================================================================

// storeFlags registers the backend selection flags common to every command.
func storeFlags(fs *flag.FlagSet) (backend, path *string) {
	backend = fs.String("backend", envOr("DEPLOYER_REGISTRY_BACKEND", registry.BackendYAML), "Registry backend (yaml or sqlite)")
	path = fs.String("registry", envOr("DEPLOYER_REGISTRY_PATH", "./deployments.yml"), "Path to the registry file or database")
	return backend, path
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

// openStore opens the selected backend after flag parsing.
func openStore(backend, path string) (registry.Store, error) {
	store, err := registry.Open(backend, path)
	if err != nil {
		return nil, fmt.Errorf("open registry: %w", err)
	}
	return store, nil
}

// output writes v to stdout as indented JSON.
func output(v interface{}) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// =============================================================================
// Commands
// =============================================================================

// listCmd handles the "list" command.
func listCmd(args []string) error {
	fs := flag.NewFlagSet("list", flag.ExitOnError)
	backend, path := storeFlags(fs)
	if err := fs.Parse(args); err != nil {
		return err
	}

	store, err := openStore(*backend, *path)
	if err != nil {
		return err
	}
	defer store.Close()

	all, err := store.List(context.Background())
	if err != nil {
		return err
	}
	return output(all)
}

// getCmd handles the "get" command.
func getCmd(args []string) error {
	fs := flag.NewFlagSet("get", flag.ExitOnError)
	backend, path := storeFlags(fs)
	project := fs.String("project", "", "Project name (required)")
	environment := fs.String("env", "", "Environment name (required)")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *project == "" || *environment == "" {
		return fmt.Errorf("get: -project and -env are required")
	}

	store, err := openStore(*backend, *path)
	if err != nil {
		return err
	}
	defer store.Close()

	entry, err := store.Get(context.Background(), *project, *environment)
	if err != nil {
		return err
	}
	return output(entry)
}

// addCmd handles the "add" command. The entry is read as JSON from stdin.
func addCmd(args []string) error {
	fs := flag.NewFlagSet("add", flag.ExitOnError)
	backend, path := storeFlags(fs)
	project := fs.String("project", "", "Project name (required)")
	environment := fs.String("env", "", "Environment name (required)")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *project == "" || *environment == "" {
		return fmt.Errorf("add: -project and -env are required")
	}

	var entry registry.Entry
	if err := json.NewDecoder(os.Stdin).Decode(&entry); err != nil {
		return fmt.Errorf("add: decode entry from stdin: %w", err)
	}

	store, err := openStore(*backend, *path)
	if err != nil {
		return err
	}
	defer store.Close()

	if err := store.Add(context.Background(), *project, *environment, entry); err != nil {
		return err
	}
	return output(map[string]string{"result": "added", "project": *project, "environment": *environment})
}

// removeCmd handles the "remove" command.
func removeCmd(args []string) error {
	fs := flag.NewFlagSet("remove", flag.ExitOnError)
	backend, path := storeFlags(fs)
	project := fs.String("project", "", "Project name (required)")
	environment := fs.String("env", "", "Environment name (required)")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *project == "" || *environment == "" {
		return fmt.Errorf("remove: -project and -env are required")
	}

	store, err := openStore(*backend, *path)
	if err != nil {
		return err
	}
	defer store.Close()

	removed, err := store.Remove(context.Background(), *project, *environment)
	if err != nil {
		return err
	}
	return output(map[string]interface{}{"removed": removed, "project": *project, "environment": *environment})
}

// updateServiceCmd handles the "update-service" command.
func updateServiceCmd(args []string) error {
	fs := flag.NewFlagSet("update-service", flag.ExitOnError)
	backend, path := storeFlags(fs)
	project := fs.String("project", "", "Project name (required)")
	environment := fs.String("env", "", "Environment name (required)")
	service := fs.String("service", "", "Full service unit name (required)")
	status := fs.String("status", "", "New status (required)")
	pid := fs.Int("pid", 0, "Process ID (0 leaves the PID alone)")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *project == "" || *environment == "" || *service == "" || *status == "" {
		return fmt.Errorf("update-service: -project, -env, -service and -status are required")
	}

	store, err := openStore(*backend, *path)
	if err != nil {
		return err
	}
	defer store.Close()

	var pidArg *int
	if *pid != 0 {
		pidArg = pid
	}
	updated, err := store.UpdateServiceStatus(context.Background(), *project, *environment, *service, *status, pidArg)
	if err != nil {
		return err
	}
	return output(map[string]interface{}{"updated": updated, "service": *service, "status": *status})
}
