// Package config manages application-wide settings and directory structures.
// All px state lives under XDG base directories unless overridden through
// the PX_HOME / PX_BIN_DIR environment variables.
package config

import (
	"fmt"
	"os"
	"os/exec"
	"path/filepath"

	"github.com/adrg/xdg"
)

// ReadOnly defines the read-only interface for Config.
// Immutable
type ReadOnly interface {
	GetVenvsDir() string
	GetBinDir() string
	GetCacheDir() string
	GetLogDir() string
	GetDefaultPython() string
	GetIndexURL() string
}

// Config holds the base directories and interpreter settings for px.
type Config struct {
	homeDir  string
	venvsDir string
	binDir   string
	cacheDir string
	logDir   string

	defaultPython string
	indexURL      string
}

var _ ReadOnly = (*Config)(nil)

func (c *Config) GetVenvsDir() string      { return c.venvsDir }
func (c *Config) GetBinDir() string        { return c.binDir }
func (c *Config) GetCacheDir() string      { return c.cacheDir }
func (c *Config) GetLogDir() string        { return c.logDir }
func (c *Config) GetDefaultPython() string { return c.defaultPython }
func (c *Config) GetIndexURL() string      { return c.indexURL }

func (c *Config) updateDerived() {
	c.venvsDir = filepath.Join(c.homeDir, "venvs")
	c.logDir = filepath.Join(c.homeDir, "logs")
}

// defaultIndexURL is the PyPI simple-index root used when PX_INDEX_URL is unset.
const defaultIndexURL = "https://pypi.org/simple"

// Init initializes the configuration using XDG base directories and
// environment overrides.
func Init() (ReadOnly, error) {
	c := &Config{
		homeDir:  filepath.Join(xdg.DataHome, "px"),
		binDir:   filepath.Join(xdg.Home, ".local", "bin"),
		cacheDir: filepath.Join(xdg.CacheHome, "px"),
		indexURL: defaultIndexURL,
	}

	if home := os.Getenv("PX_HOME"); home != "" {
		c.homeDir = home
	}
	if bin := os.Getenv("PX_BIN_DIR"); bin != "" {
		c.binDir = bin
	}
	if idx := os.Getenv("PX_INDEX_URL"); idx != "" {
		c.indexURL = idx
	}

	c.updateDerived()

	python, err := findPython()
	if err != nil {
		return nil, err
	}
	c.defaultPython = python

	return c, nil
}

// findPython locates the interpreter used to create new environments.
// PX_DEFAULT_PYTHON takes precedence over PATH lookup.
func findPython() (string, error) {
	if p := os.Getenv("PX_DEFAULT_PYTHON"); p != "" {
		return p, nil
	}
	for _, name := range []string{"python3", "python"} {
		if p, err := exec.LookPath(name); err == nil {
			return p, nil
		}
	}
	return "", fmt.Errorf("no python interpreter found on PATH (set PX_DEFAULT_PYTHON to override)")
}
