package pipeline

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/artpar/deployer/internal/core/descriptor"
	"github.com/artpar/deployer/internal/core/supervisor"
	"github.com/artpar/deployer/internal/shell/netx"
	"github.com/artpar/deployer/internal/shell/registry"
)

// =============================================================================
// Directory Provisioning
// =============================================================================

// createDirectories provisions the deployment tree. Pre-existing
// directories are not an error.
func (p *Pipeline) createDirectories(context.Context) error {
	for _, dir := range p.layout.Directories() {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create directory %s: %w", dir, err)
		}
		p.logger.Debug("directory ready", "dir", dir)
	}
	return nil
}

// =============================================================================
// Code Placement
// =============================================================================

// placeCode replaces the code directory with the prepared source tree.
// Placement is destructive-idempotent: an existing tree is removed whole
// before the copy, so no stale files survive a redeploy. Version-control
// metadata is excluded.
func (p *Pipeline) placeCode(context.Context) error {
	src, err := filepath.Abs(p.cfg.SourceDir)
	if err != nil {
		return err
	}
	info, err := os.Stat(src)
	if err != nil || !info.IsDir() {
		return fmt.Errorf("%s: %w", src, ErrSourceMissing)
	}
	if src == p.layout.Code {
		return fmt.Errorf("source and code directory are the same path: %s", src)
	}

	if _, err := os.Stat(p.layout.Code); err == nil {
		p.logger.Info("removing existing code directory", "dir", p.layout.Code)
		if err := os.RemoveAll(p.layout.Code); err != nil {
			return fmt.Errorf("remove existing code directory: %w", err)
		}
	}

	p.logger.Info("copying source tree", "from", src, "to", p.layout.Code)
	return copyTree(src, p.layout.Code)
}

// copyTree copies src into dst, preserving file modes and symlinks,
// skipping .git directories.
func copyTree(src, dst string) error {
	return filepath.Walk(src, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		rel, err := filepath.Rel(src, path)
		if err != nil {
			return err
		}
		if info.IsDir() && info.Name() == ".git" {
			return filepath.SkipDir
		}
		target := filepath.Join(dst, rel)

		switch {
		case info.IsDir():
			return os.MkdirAll(target, info.Mode().Perm())
		case info.Mode()&os.ModeSymlink != 0:
			link, err := os.Readlink(path)
			if err != nil {
				return err
			}
			return os.Symlink(link, target)
		case info.Mode().IsRegular():
			return copyFile(path, target, info.Mode().Perm())
		default:
			// sockets, devices etc. have no place in a source tree
			return nil
		}
	})
}

func copyFile(src, dst string, perm os.FileMode) error {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()

	out, err := os.OpenFile(dst, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, perm)
	if err != nil {
		return err
	}
	if _, err := io.Copy(out, in); err != nil {
		out.Close()
		return err
	}
	return out.Close()
}

// =============================================================================
// Process Unit Generation and Installation
// =============================================================================

// generateUnits runs the supervisor unit generator. An empty service list
// is a trivial success.
func (p *Pipeline) generateUnits(ctx context.Context) error {
	if len(p.desc.Services) == 0 {
		p.logger.Info("no services defined, skipping unit generation")
		return nil
	}

	opts := supervisor.Options{
		Project:       p.desc.Name,
		Branch:        descriptor.NormalizeBranch(p.branch),
		User:          p.cfg.User,
		Autostart:     p.cfg.Autostart,
		Autorestart:   p.cfg.Autorestart,
		DefaultDomain: p.vars["DEFAULT_DOMAIN"],
		FindPort: func(preferred int) (int, error) {
			return netx.FindAvailablePort(ctx, preferred, netx.DefaultMaxAttempts, p.cfg.PortHost)
		},
		Logger: p.logger,
	}

	units, group, err := supervisor.Generate(p.desc.Services, p.vars, p.layout, opts)
	if err != nil {
		return err
	}
	p.units = units
	p.group = group

	p.logger.Info("generated process units", "count", len(units), "grouped", group != nil)
	return nil
}

// installUnits writes the rendered unit files into the output directory.
func (p *Pipeline) installUnits(context.Context) error {
	if len(p.units) == 0 {
		p.logger.Info("no process units to install")
		return nil
	}

	outDir := p.cfg.UnitOutputDir
	if outDir == "" {
		outDir = p.layout.SupervisorDir()
	}
	if err := os.MkdirAll(outDir, 0o755); err != nil {
		return fmt.Errorf("create unit output directory: %w", err)
	}

	for _, unit := range p.units {
		path := filepath.Join(outDir, supervisor.UnitFileName(unit.Name))
		if err := os.WriteFile(path, []byte(supervisor.RenderProgram(unit)), 0o644); err != nil {
			return fmt.Errorf("write unit file %s: %w", path, err)
		}
		p.logger.Debug("wrote unit file", "path", path)
	}

	if p.group != nil {
		branch := descriptor.NormalizeBranch(p.branch)
		path := filepath.Join(outDir, supervisor.GroupFileName(p.desc.Name, branch))
		if err := os.WriteFile(path, []byte(supervisor.RenderGroup(*p.group)), 0o644); err != nil {
			return fmt.Errorf("write group file %s: %w", path, err)
		}
		p.logger.Debug("wrote group file", "path", path)
	}

	return nil
}

// =============================================================================
// Registry Update
// =============================================================================

// updateRegistry records the deployment outcome. Best-effort: the caller
// treats a failure here as a warning, not a deployment failure.
func (p *Pipeline) updateRegistry(ctx context.Context) error {
	if p.reg == nil {
		p.logger.Debug("no registry configured, skipping update")
		return nil
	}

	entry := registry.Entry{
		RunID:          p.runID,
		SourceRef:      p.cfg.SourceRef,
		Branch:         p.branch,
		RuntimeVersion: p.desc.Runtime,
		DeploymentPath: p.layout.Base,
		Services:       p.serviceRecords(),
		Directories: registry.Directories{
			Code:   p.layout.Code,
			Venv:   p.layout.Venv,
			Logs:   p.layout.Logs,
			Config: p.layout.Config,
		},
		ConfigFile: fmt.Sprintf("deploy-%s.yml", p.desc.Environment),
	}

	return p.reg.Add(ctx, p.desc.Name, string(p.desc.Environment), entry)
}

// serviceRecords builds the registry's service list with live-status
// placeholders from the generated units.
func (p *Pipeline) serviceRecords() []registry.ServiceRecord {
	if len(p.units) == 0 {
		return nil
	}
	records := make([]registry.ServiceRecord, 0, len(p.units))
	for _, unit := range p.units {
		records = append(records, registry.ServiceRecord{
			Name:    unit.Name,
			Kind:    string(unit.Kind),
			Status:  registry.StatusUnknown,
			Command: unit.Command,
			Port:    unit.Port,
		})
	}
	return records
}
