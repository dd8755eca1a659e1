package cli

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"

	"px/pkg/common"
	"px/pkg/metadata"
	"px/pkg/venv"
)

func runInject(ctx context.Context, mgr *Managers, inv *Invocation) (*common.ExecutionResult, error) {
	name := inv.Args["venv"]
	specs := inv.Rest
	reqFiles := inv.Strings("requirement")
	includeApps := inv.Bool("include-apps")
	includeDeps := inv.Bool("include-deps")
	pipArgs := splitPipArgs(inv.String("pip-args", ""))

	if includeDeps && !includeApps {
		return nil, errors.New("--include-deps requires --include-apps")
	}
	if len(specs) > 0 && len(reqFiles) > 0 {
		return nil, errors.New("give package specs or --requirement files, not both")
	}
	if len(specs) == 0 && len(reqFiles) == 0 {
		return nil, errors.New("nothing to inject: give package specs or --requirement files")
	}

	v := mgr.Venvs.Venv(name)
	if !v.Exists() {
		return nil, fmt.Errorf("no venv named %q (install it first)", name)
	}
	store := v.Metadata()
	if !store.Exists() {
		return nil, fmt.Errorf("venv %q was not created by px (no metadata)", name)
	}

	for _, file := range reqFiles {
		fromFile, err := readRequirements(file)
		if err != nil {
			return nil, err
		}
		specs = append(specs, fromFile...)
	}
	if len(specs) == 0 {
		return nil, errors.New("the requirements files contain no package specs")
	}

	injected := 0
	for _, spec := range specs {
		if err := injectOne(ctx, mgr, v, store, spec, includeApps, includeDeps, pipArgs); err != nil {
			mgr.Disp.Print(fmt.Sprintf("cannot inject %s: %v", spec, err))
			continue
		}
		injected++
	}
	if err := store.Save(); err != nil {
		return nil, err
	}

	result := &common.ExecutionResult{
		ExitCode: common.ExitOK,
		Output: &common.Output{
			Message: fmt.Sprintf("injected %d of %d package(s) into %s", injected, len(specs), name),
		},
	}
	if injected < len(specs) {
		result.ExitCode = common.ExitInjectError
	}
	return result, nil
}

func injectOne(ctx context.Context, mgr *Managers, v *venv.Venv, store *metadata.Store,
	spec string, includeApps, includeDeps bool, pipArgs []string) error {

	pkg := nameFromSpec(spec)
	if pkg == "" {
		return fmt.Errorf("cannot derive a package name from %q", spec)
	}

	before, err := v.Apps()
	if err != nil {
		return err
	}

	args := append([]string{"install"}, pipArgs...)
	args = append(args, spec)
	if err := mgr.Pip.Run(ctx, v.PythonPath(), "inject", args); err != nil {
		return err
	}

	version, err := v.InstalledVersion(pkg)
	if err != nil {
		return err
	}

	after, err := v.Apps()
	if err != nil {
		return err
	}
	apps := newElements(before, after)

	var paths []string
	if includeApps {
		// includeDeps widens exposure to everything the install brought in,
		// which is exactly the apps diff; without it only the package's own
		// scripts are linked.
		expose := apps
		if !includeDeps {
			expose = ownApps(pkg, apps)
		}
		paths, err = exposeApps(v, mgr.Cfg.GetBinDir(), expose)
		if err != nil {
			return err
		}
		apps = expose
	}

	slog.Info("Injected package", "venv", v.Name, "package", pkg, "version", version)
	return store.Modify(func(doc *metadata.Document) error {
		doc.InjectedPackages[pkg] = metadata.Package{
			Spec:                spec,
			Version:             version,
			Apps:                apps,
			AppPaths:            paths,
			IncludeApps:         includeApps,
			IncludeDependencies: includeDeps,
			PipArgs:             pipArgs,
		}
		return nil
	})
}

// ownApps filters an apps diff down to scripts plausibly belonging to pkg
// itself: name equality up to pip's canonical form. Dependency scripts keep
// their own names and fall out.
func ownApps(pkg string, apps []string) []string {
	var out []string
	for _, app := range apps {
		if strings.EqualFold(strings.ReplaceAll(app, "_", "-"), strings.ReplaceAll(pkg, "_", "-")) {
			out = append(out, app)
		}
	}
	if out == nil {
		// No name match: better to expose the diff than to silently drop it.
		return apps
	}
	return out
}

// readRequirements reads package specs from a requirements file, one per
// line, skipping blanks and comments.
func readRequirements(path string) ([]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("reading requirements: %w", err)
	}
	defer f.Close()

	var specs []string
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		specs = append(specs, line)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("reading requirements: %w", err)
	}
	return specs, nil
}
