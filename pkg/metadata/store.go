package metadata

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
)

// Store manages the metadata document of one venv directory. Loads are lazy,
// modifications mark the store dirty, and saves go through a temp-file rename
// so readers never observe a partial document.
type Store struct {
	path   string
	doc    *Document
	loaded bool
	dirty  bool
	mu     sync.RWMutex
}

// NewStore creates a store for the document inside venvDir.
func NewStore(venvDir string) *Store {
	return &Store{path: filepath.Join(venvDir, FileName)}
}

// Exists reports whether a metadata document is present on disk.
func (s *Store) Exists() bool {
	_, err := os.Stat(s.path)
	return err == nil
}

// Get returns the document, loading it from disk on first use.
func (s *Store) Get() (*Document, error) {
	s.mu.RLock()
	if s.loaded {
		defer s.mu.RUnlock()
		return s.doc, nil
	}
	s.mu.RUnlock()

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.loaded {
		return s.doc, nil
	}
	if err := s.loadLocked(); err != nil {
		return nil, err
	}
	return s.doc, nil
}

// Init installs a fresh document without reading the disk, marking the store
// dirty. Used when a venv is first created.
func (s *Store) Init(doc *Document) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.doc = doc
	s.loaded = true
	s.dirty = true
}

// Modify loads the document if needed, applies fn, and marks the store dirty.
func (s *Store) Modify(fn func(*Document) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.loaded {
		if err := s.loadLocked(); err != nil {
			return err
		}
	}
	if err := fn(s.doc); err != nil {
		return err
	}
	s.dirty = true
	return nil
}

// Save writes the document to disk if it was modified.
func (s *Store) Save() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.dirty {
		return nil
	}
	if !s.loaded {
		return errors.New("cannot save: metadata not loaded")
	}

	data, err := json.MarshalIndent(s.doc, "", "  ")
	if err != nil {
		return fmt.Errorf("marshaling metadata: %w", err)
	}

	tmp := s.path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return fmt.Errorf("writing metadata: %w", err)
	}
	if err := os.Rename(tmp, s.path); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("replacing metadata: %w", err)
	}
	s.dirty = false
	return nil
}

func (s *Store) loadLocked() error {
	data, err := os.ReadFile(s.path)
	if err != nil {
		return fmt.Errorf("reading metadata: %w", err)
	}
	var doc Document
	if err := json.Unmarshal(data, &doc); err != nil {
		return fmt.Errorf("parsing metadata: %w", err)
	}
	if doc.InjectedPackages == nil {
		doc.InjectedPackages = make(map[string]Package)
	}
	s.doc = &doc
	s.loaded = true
	s.dirty = false
	return nil
}
