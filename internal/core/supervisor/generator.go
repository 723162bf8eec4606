package supervisor

import (
	"fmt"
	"io"
	"log/slog"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/artpar/deployer/internal/core/descriptor"
	"github.com/artpar/deployer/internal/core/env"
)

// =============================================================================
// Unit Generation
// =============================================================================

// serviceNamePattern restricts service names to identifier-safe characters.
var serviceNamePattern = regexp.MustCompile(`^[A-Za-z0-9_-]+$`)

// Generate produces one ProgramUnit per service, in input order, plus a
// GroupUnit when more than one unit is generated.
//
// Failure semantics are deliberately asymmetric: any service failing
// validation aborts the whole batch with no output, while a port-allocation
// failure for a network worker falls back to the preferred port with a
// logged warning. Both policies match the operational contract and are
// covered by tests.
func Generate(services []descriptor.Service, base env.Map, layout descriptor.Layout, opts Options) ([]ProgramUnit, *GroupUnit, error) {
	logger := opts.Logger
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	if opts.User == "" {
		opts.User = DefaultUser
	}

	if err := validateServices(services); err != nil {
		return nil, nil, err
	}

	units := make([]ProgramUnit, 0, len(services))
	for _, svc := range services {
		units = append(units, buildUnit(svc, base, layout, opts, logger))
	}

	var group *GroupUnit
	if len(units) > 1 {
		programs := make([]string, 0, len(units))
		for _, u := range units {
			programs = append(programs, u.Name)
		}
		group = &GroupUnit{
			Name:     GroupName(opts.Project, opts.Branch),
			Programs: programs,
			Priority: GroupPriority,
		}
	}

	return units, group, nil
}

// validateServices checks every service before any unit is built, so a bad
// descriptor never yields partial output.
func validateServices(services []descriptor.Service) error {
	seen := make(map[string]struct{}, len(services))
	for _, svc := range services {
		if svc.Name == "" || !serviceNamePattern.MatchString(svc.Name) {
			return &ValidationError{
				Service: svc.Name,
				Field:   "name",
				Message: "must be non-empty and contain only alphanumerics, hyphen or underscore",
				Err:     ErrInvalidServiceName,
			}
		}
		if strings.TrimSpace(svc.Command) == "" {
			return &ValidationError{
				Service: svc.Name,
				Field:   "command",
				Message: "is required",
				Err:     ErrMissingCommand,
			}
		}
		if _, ok := seen[svc.Name]; ok {
			return &ValidationError{
				Service: svc.Name,
				Field:   "name",
				Message: "is already used by another service",
				Err:     ErrDuplicateService,
			}
		}
		seen[svc.Name] = struct{}{}
	}
	return nil
}

// buildUnit derives the ProgramUnit for one validated service.
func buildUnit(svc descriptor.Service, base env.Map, layout descriptor.Layout, opts Options, logger *slog.Logger) ProgramUnit {
	unit := ProgramUnit{
		Name:        UnitName(opts.Project, opts.Branch, svc.Name),
		Service:     svc.Name,
		User:        opts.User,
		Autostart:   opts.Autostart,
		Autorestart: opts.Autorestart,
		Kind:        svc.Kind,
		Environment: serviceEnvironment(svc, base, opts),
		StdoutLog:   filepath.Join(layout.SupervisorLogDir(), svc.Name+".log"),
		StderrLog:   filepath.Join(layout.SupervisorLogDir(), svc.Name+"_error.log"),
	}

	// Relative commands run from the runtime environment's bin directory.
	command := svc.Command
	if !strings.HasPrefix(command, "/") {
		command = layout.BinDir() + "/" + command
	}

	unit.Directory = layout.Code
	if svc.Directory != "" {
		unit.Directory = filepath.Join(layout.Code, svc.Directory)
	}

	workers := svc.Workers
	if workers < 1 {
		workers = 1
	}

	switch svc.Kind {
	case descriptor.KindNetworkWorker:
		// The worker manages its own concurrency; supervisor runs one
		// process and the command carries the fan-out and bind address.
		unit.NumProcs = 1
		preferred := svc.Port
		if preferred == 0 {
			preferred = DefaultPreferredPort
		}
		unit.PreferredPort = preferred

		if hasConcurrencyFlags(svc.Command) {
			unit.Port = svc.Port
			break
		}

		port := allocatePort(preferred, opts.FindPort, logger, svc.Name)
		unit.Port = port
		command = fmt.Sprintf("%s --workers %d --bind 0.0.0.0:%d", command, workers, port)

	default:
		unit.NumProcs = workers
		// A declared port on a non-network service is metadata only.
		unit.Port = svc.Port
		unit.PreferredPort = svc.Port
	}

	unit.Command = command
	return unit
}

// hasConcurrencyFlags reports whether the command already pins its own
// worker count or bind address, in which case it is left untouched.
func hasConcurrencyFlags(command string) bool {
	return strings.Contains(command, "--workers") || strings.Contains(command, "--bind")
}

// allocatePort asks the injected finder for a bindable port. Exhaustion is
// not fatal at generation time; the preferred port is used and the real
// bind failure, if any, surfaces when the supervisor starts the process.
func allocatePort(preferred int, find PortFinder, logger *slog.Logger, service string) int {
	if find == nil {
		return preferred
	}
	port, err := find(preferred)
	if err != nil {
		logger.Warn("port allocation failed, falling back to preferred port",
			"service", service,
			"preferred", preferred,
			"error", err,
		)
		return preferred
	}
	if port != preferred {
		logger.Info("preferred port unavailable",
			"service", service,
			"preferred", preferred,
			"allocated", port,
		)
	}
	return port
}

// serviceEnvironment merges service-level variables over the resolved
// project environment (service wins) and injects SERVICE_DOMAIN. Service
// values get the same single-pass ${VAR} expansion as project layers.
func serviceEnvironment(svc descriptor.Service, base env.Map, opts Options) env.Map {
	svcVars := make(env.Map, len(svc.EnvVars))
	for k, v := range svc.EnvVars {
		svcVars[k] = env.Coerce(v)
	}

	merged := env.Merge(base, svcVars)
	for k, v := range svcVars {
		merged[k] = env.Expand(v, merged)
	}

	merged["SERVICE_DOMAIN"] = serviceDomain(svc, opts)
	return merged
}

// serviceDomain picks the service's domain: its own field, then the
// project default, then {project}-{branch}.
func serviceDomain(svc descriptor.Service, opts Options) string {
	if svc.Domain != "" {
		return svc.Domain
	}
	if opts.DefaultDomain != "" {
		return opts.DefaultDomain
	}
	return fmt.Sprintf("%s-%s", opts.Project, opts.Branch)
}
