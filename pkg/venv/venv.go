// Package venv locates, creates, and enumerates the Python virtual
// environments px manages. A Venv is a directory handle plus the paths
// derived from it; all package work inside the environment is delegated to
// pip via the interpreter the venv owns.
package venv

import (
	"context"
	"fmt"
	"io/fs"
	"os"
	"os/exec"
	"path/filepath"
	"sort"
	"strings"

	"px/pkg/lockfile"
	"px/pkg/metadata"
)

// Venv is a handle to one virtual environment directory.
type Venv struct {
	// Dir is the environment's root directory.
	Dir string
	// Name is the venv's name, the base of Dir.
	Name string
}

// New creates a handle for the venv at dir. The directory need not exist yet.
func New(dir string) *Venv {
	return &Venv{Dir: dir, Name: filepath.Base(dir)}
}

// Exists reports whether the environment has been created.
func (v *Venv) Exists() bool {
	info, err := os.Stat(v.Dir)
	return err == nil && info.IsDir()
}

// PythonPath returns the interpreter inside the venv.
func (v *Venv) PythonPath() string {
	return filepath.Join(v.Dir, "bin", "python")
}

// BinDir returns the venv's script directory.
func (v *Venv) BinDir() string {
	return filepath.Join(v.Dir, "bin")
}

// Metadata returns the venv's metadata store.
func (v *Venv) Metadata() *metadata.Store {
	return metadata.NewStore(v.Dir)
}

// Create builds the environment with `python -m venv`, guarded against
// concurrent px processes creating the same venv.
func (v *Venv) Create(ctx context.Context, python string) error {
	return lockfile.Ensure(v.Dir, func() error {
		cmd := exec.CommandContext(ctx, python, "-m", "venv", v.Dir)
		if out, err := cmd.CombinedOutput(); err != nil {
			return fmt.Errorf("creating venv %s: %w\n%s", v.Name, err, strings.TrimSpace(string(out)))
		}
		return nil
	})
}

// Remove deletes the environment directory.
func (v *Venv) Remove() error {
	return os.RemoveAll(v.Dir)
}

// venv boilerplate scripts that are never user-facing apps.
var bootstrapScripts = map[string]bool{
	"python": true, "python3": true, "pip": true, "pip3": true,
	"activate": true, "wheel": true,
}

// Apps lists the user-facing console scripts currently present in the venv's
// bin directory, sorted by name.
func (v *Venv) Apps() ([]string, error) {
	entries, err := os.ReadDir(v.BinDir())
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("reading venv bin dir: %w", err)
	}

	var apps []string
	for _, e := range entries {
		name := e.Name()
		if e.IsDir() || strings.HasPrefix(name, ".") {
			continue
		}
		if bootstrapScripts[name] || strings.HasPrefix(name, "activate") ||
			strings.HasPrefix(name, "python") || strings.HasPrefix(name, "pip") {
			continue
		}
		info, err := e.Info()
		if err != nil {
			continue
		}
		if info.Mode()&0o111 == 0 {
			continue
		}
		apps = append(apps, name)
	}
	sort.Strings(apps)
	return apps, nil
}

// InstalledVersion reports the version of a package installed in the venv by
// scanning site-packages for its dist-info directory. Returns "" when the
// package is not found.
func (v *Venv) InstalledVersion(pkg string) (string, error) {
	pattern := filepath.Join(v.Dir, "lib", "python*", "site-packages", "*.dist-info")
	matches, err := filepath.Glob(pattern)
	if err != nil {
		return "", err
	}

	want := canonicalName(pkg)
	for _, m := range matches {
		base := strings.TrimSuffix(filepath.Base(m), ".dist-info")
		idx := strings.LastIndexByte(base, '-')
		if idx <= 0 {
			continue
		}
		if canonicalName(base[:idx]) == want {
			return base[idx+1:], nil
		}
	}
	return "", nil
}

// DiskUsage sums the sizes of all regular files in the venv.
func (v *Venv) DiskUsage() (int64, error) {
	var total int64
	err := filepath.WalkDir(v.Dir, func(_ string, d fs.DirEntry, err error) error {
		if err != nil {
			return nil // unreadable entries don't fail the total
		}
		if d.Type().IsRegular() {
			if info, err := d.Info(); err == nil {
				total += info.Size()
			}
		}
		return nil
	})
	return total, err
}

// canonicalName normalizes a package name the way pip does: case-insensitive
// with '-', '_' and '.' treated as equivalent.
func canonicalName(name string) string {
	lower := strings.ToLower(name)
	return strings.Map(func(r rune) rune {
		if r == '-' || r == '.' {
			return '_'
		}
		return r
	}, lower)
}
