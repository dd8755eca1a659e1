package venv

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
)

// Container manages the directory holding all px venvs.
type Container struct {
	root string
}

// NewContainer creates a container rooted at dir.
func NewContainer(dir string) *Container {
	return &Container{root: dir}
}

// Root returns the container directory.
func (c *Container) Root() string {
	return c.root
}

// Venv returns a handle for the named environment.
func (c *Container) Venv(name string) *Venv {
	return New(filepath.Join(c.root, name))
}

// List returns handles for every venv directory, sorted by name.
func (c *Container) List() ([]*Venv, error) {
	entries, err := os.ReadDir(c.root)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("reading venvs dir: %w", err)
	}

	var venvs []*Venv
	for _, e := range entries {
		if !e.IsDir() {
			continue
		}
		venvs = append(venvs, c.Venv(e.Name()))
	}
	sort.Slice(venvs, func(i, j int) bool { return venvs[i].Name < venvs[j].Name })
	return venvs, nil
}
