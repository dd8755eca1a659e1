package cli

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"px/pkg/common"
	"px/pkg/metadata"
	"px/pkg/venv"
)

func runInstall(ctx context.Context, mgr *Managers, inv *Invocation) (*common.ExecutionResult, error) {
	spec := inv.Args["spec"]
	name := nameFromSpec(spec)
	if name == "" {
		return nil, fmt.Errorf("cannot derive a package name from %q", spec)
	}
	venvName := name + inv.String("suffix", "")

	python := inv.String("python", mgr.Cfg.GetDefaultPython())
	pipArgs := splitPipArgs(inv.String("pip-args", ""))
	force := inv.Bool("force")

	v := mgr.Venvs.Venv(venvName)
	if v.Exists() && !force {
		return nil, fmt.Errorf("%q is already installed (use --force to reinstall)", venvName)
	}

	if !v.Exists() {
		mgr.Disp.Status(fmt.Sprintf("creating virtual environment %s...", venvName))
		if err := os.MkdirAll(mgr.Venvs.Root(), 0o755); err != nil {
			return nil, fmt.Errorf("creating venvs dir: %w", err)
		}
		if err := v.Create(ctx, python); err != nil {
			return nil, err
		}
	}

	before, err := v.Apps()
	if err != nil {
		return nil, err
	}

	installArgs := []string{"install"}
	if force {
		installArgs = append(installArgs, "--force-reinstall")
	}
	installArgs = append(installArgs, pipArgs...)
	installArgs = append(installArgs, spec)
	if err := mgr.Pip.Run(ctx, v.PythonPath(), "install", installArgs); err != nil {
		if !force {
			// Leave no half-built venv behind on a fresh install.
			if rmErr := v.Remove(); rmErr != nil {
				slog.Debug("Cleanup of failed venv failed", "venv", venvName, "err", rmErr)
			}
		}
		return nil, err
	}

	version, err := v.InstalledVersion(name)
	if err != nil {
		return nil, err
	}
	if version == "" {
		return nil, fmt.Errorf("package %q did not show up in venv %q after install", name, venvName)
	}

	after, err := v.Apps()
	if err != nil {
		return nil, err
	}
	apps := newElements(before, after)

	paths, err := exposeApps(v, mgr.Cfg.GetBinDir(), apps)
	if err != nil {
		return nil, err
	}

	store := v.Metadata()
	doc := metadata.NewDocument(python)
	doc.MainPackage = metadata.Package{
		Spec:        spec,
		Version:     version,
		Apps:        apps,
		AppPaths:    paths,
		IncludeApps: true,
		PipArgs:     pipArgs,
	}
	store.Init(doc)
	if err := store.Save(); err != nil {
		return nil, err
	}

	out := &common.Output{
		KV: []common.KV{
			{Key: "package", Value: name + " " + version},
			{Key: "python", Value: python},
		},
	}
	for _, app := range apps {
		out.KV = append(out.KV, common.KV{Key: "app", Value: app})
	}
	out.Message = "done! ✨ 🌟 ✨"
	return &common.ExecutionResult{ExitCode: common.ExitOK, Output: out}, nil
}

func runUninstall(ctx context.Context, mgr *Managers, inv *Invocation) (*common.ExecutionResult, error) {
	name := inv.Args["venv"]
	v := mgr.Venvs.Venv(name)
	if !v.Exists() {
		return nil, fmt.Errorf("nothing named %q is installed", name)
	}

	removed, err := unexposeApps(v, mgr.Cfg.GetBinDir())
	if err != nil {
		return nil, err
	}
	if err := v.Remove(); err != nil {
		return nil, fmt.Errorf("removing venv %s: %w", name, err)
	}
	slog.Debug("Uninstalled", "venv", name, "apps_removed", removed)

	return &common.ExecutionResult{
		ExitCode: common.ExitOK,
		Output:   &common.Output{Message: fmt.Sprintf("uninstalled %s! ✨ 🌟 ✨", name)},
	}, nil
}

// nameFromSpec derives the venv/package name from an install spec: the text
// before any extras marker or version constraint, or the last path segment
// for URLs and local paths.
func nameFromSpec(spec string) string {
	s := strings.TrimSpace(spec)
	if strings.Contains(s, "://") || strings.ContainsAny(s, "/\\") {
		s = strings.TrimRight(s, "/\\")
		s = s[strings.LastIndexAny(s, "/\\")+1:]
		for _, suffix := range []string{".git", ".whl", ".tar.gz", ".zip"} {
			s = strings.TrimSuffix(s, suffix)
		}
	}
	if i := strings.IndexAny(s, "[=<>!~; "); i >= 0 {
		s = s[:i]
	}
	return s
}

// splitPipArgs splits a --pip-args value on whitespace. Empty input yields nil.
func splitPipArgs(raw string) []string {
	return strings.Fields(raw)
}

// newElements returns the members of after missing from before, preserving
// after's order.
func newElements(before, after []string) []string {
	seen := make(map[string]bool, len(before))
	for _, b := range before {
		seen[b] = true
	}
	var out []string
	for _, a := range after {
		if !seen[a] {
			out = append(out, a)
		}
	}
	return out
}

// exposeApps symlinks the named venv apps into binDir, replacing stale links.
// Returns the link targets inside the venv.
func exposeApps(v *venv.Venv, binDir string, apps []string) ([]string, error) {
	if err := os.MkdirAll(binDir, 0o755); err != nil {
		return nil, fmt.Errorf("creating bin dir: %w", err)
	}
	var paths []string
	for _, app := range apps {
		target := filepath.Join(v.BinDir(), app)
		link := filepath.Join(binDir, app)
		if existing, err := os.Readlink(link); err == nil {
			if existing == target {
				paths = append(paths, target)
				continue
			}
			os.Remove(link)
		} else if _, err := os.Lstat(link); err == nil {
			return nil, fmt.Errorf("%s exists in %s and is not a symlink", app, binDir)
		}
		if err := os.Symlink(target, link); err != nil {
			return nil, fmt.Errorf("linking %s: %w", app, err)
		}
		slog.Debug("Exposed app", "app", app, "target", target)
		paths = append(paths, target)
	}
	return paths, nil
}

// unexposeApps removes the symlinks in binDir that point into the venv.
func unexposeApps(v *venv.Venv, binDir string) (int, error) {
	entries, err := os.ReadDir(binDir)
	if err != nil {
		if os.IsNotExist(err) {
			return 0, nil
		}
		return 0, fmt.Errorf("reading bin dir: %w", err)
	}
	removed := 0
	prefix := v.Dir + string(filepath.Separator)
	for _, e := range entries {
		link := filepath.Join(binDir, e.Name())
		target, err := os.Readlink(link)
		if err != nil {
			continue
		}
		if strings.HasPrefix(target, prefix) {
			if err := os.Remove(link); err != nil {
				return removed, fmt.Errorf("removing %s: %w", link, err)
			}
			removed++
		}
	}
	return removed, nil
}
