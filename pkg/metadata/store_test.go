package metadata

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
)

func TestStoreRoundTrip(t *testing.T) {
	dir := t.TempDir()

	s := NewStore(dir)
	if s.Exists() {
		t.Fatalf("store should not exist before save")
	}

	doc := NewDocument("/usr/bin/python3")
	doc.MainPackage = Package{
		Spec:        "httpie",
		Version:     "3.2.2",
		Apps:        []string{"http", "https"},
		AppPaths:    []string{filepath.Join(dir, "bin", "http"), filepath.Join(dir, "bin", "https")},
		IncludeApps: true,
	}
	s.Init(doc)
	if err := s.Save(); err != nil {
		t.Fatalf("Save failed: %v", err)
	}
	if !s.Exists() {
		t.Fatalf("document missing after save")
	}

	// Fresh store reads the same document back.
	s2 := NewStore(dir)
	got, err := s2.Get()
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if got.MainPackage.Version != "3.2.2" {
		t.Errorf("Version = %q, want 3.2.2", got.MainPackage.Version)
	}
	if got.MetadataVersion != SpecVersion {
		t.Errorf("MetadataVersion = %q, want %q", got.MetadataVersion, SpecVersion)
	}
	if got.InjectedPackages == nil {
		t.Errorf("InjectedPackages must never be nil after load")
	}
}

func TestStoreModify(t *testing.T) {
	dir := t.TempDir()

	s := NewStore(dir)
	s.Init(NewDocument("/usr/bin/python3"))
	if err := s.Save(); err != nil {
		t.Fatalf("Save failed: %v", err)
	}

	err := s.Modify(func(d *Document) error {
		d.InjectedPackages["rich"] = Package{Spec: "rich", Version: "13.7.0"}
		return nil
	})
	if err != nil {
		t.Fatalf("Modify failed: %v", err)
	}
	if err := s.Save(); err != nil {
		t.Fatalf("Save after Modify failed: %v", err)
	}

	got, err := NewStore(dir).Get()
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if got.InjectedPackages["rich"].Version != "13.7.0" {
		t.Errorf("injected package not persisted: %+v", got.InjectedPackages)
	}
}

func TestStoreSaveCleanIsNoop(t *testing.T) {
	dir := t.TempDir()
	s := NewStore(dir)
	if err := s.Save(); err != nil {
		t.Fatalf("Save on clean store errored: %v", err)
	}
	if _, err := os.Stat(filepath.Join(dir, FileName)); !os.IsNotExist(err) {
		t.Errorf("clean Save must not create a file")
	}
}

func TestFrozenStripsAppBookkeeping(t *testing.T) {
	doc := NewDocument("/usr/bin/python3")
	doc.MainPackage = Package{
		Spec:     "httpie",
		Version:  "3.2.2",
		Apps:     []string{"http"},
		AppPaths: []string{"/somewhere/http"},
	}
	doc.InjectedPackages["rich"] = Package{
		Spec: "rich", Version: "13.7.0", Apps: []string{"rich"},
	}

	data, err := json.Marshal(doc.Frozen())
	if err != nil {
		t.Fatal(err)
	}
	var raw map[string]any
	if err := json.Unmarshal(data, &raw); err != nil {
		t.Fatal(err)
	}

	main := raw["main_package"].(map[string]any)
	for _, key := range []string{"apps", "app_paths"} {
		if _, ok := main[key]; ok {
			t.Errorf("frozen main_package still carries %q", key)
		}
	}
	injected := raw["injected_packages"].(map[string]any)["rich"].(map[string]any)
	if _, ok := injected["apps"]; ok {
		t.Errorf("frozen injected package still carries apps")
	}
	if main["package_version"] != "3.2.2" {
		t.Errorf("frozen main_package lost its version: %v", main)
	}
}
