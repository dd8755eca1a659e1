package cli

import (
	"bytes"
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"px/pkg/common"
	"px/pkg/display"
	"px/pkg/index"
	"px/pkg/metadata"
	"px/pkg/pip"
	"px/pkg/venv"
)

// testConfig satisfies config.ReadOnly with temp directories.
type testConfig struct {
	home string
	bin  string
}

func (c *testConfig) GetVenvsDir() string      { return filepath.Join(c.home, "venvs") }
func (c *testConfig) GetBinDir() string        { return c.bin }
func (c *testConfig) GetCacheDir() string      { return filepath.Join(c.home, "cache") }
func (c *testConfig) GetLogDir() string        { return filepath.Join(c.home, "logs") }
func (c *testConfig) GetDefaultPython() string { return "/usr/bin/python3" }
func (c *testConfig) GetIndexURL() string      { return "http://127.0.0.1:0/simple" }

func testManagers(t *testing.T) (*Managers, *bytes.Buffer) {
	t.Helper()
	cfg := &testConfig{home: t.TempDir(), bin: t.TempDir()}
	out := &bytes.Buffer{}
	return &Managers{
		Cfg:   cfg,
		Disp:  display.NewWriterDisplay(out, &bytes.Buffer{}),
		Venvs: venv.NewContainer(cfg.GetVenvsDir()),
		Pip:   pip.NewRunner(cfg.GetLogDir()),
		Index: index.NewClient(cfg.GetIndexURL()),
	}, out
}

// seedVenv creates a fake px venv with metadata and an app script.
func seedVenv(t *testing.T, mgr *Managers, name, version string, apps ...string) *venv.Venv {
	t.Helper()
	v := mgr.Venvs.Venv(name)
	if err := os.MkdirAll(v.BinDir(), 0o755); err != nil {
		t.Fatal(err)
	}
	doc := metadata.NewDocument("/usr/bin/python3")
	doc.MainPackage = metadata.Package{
		Spec:        name,
		Version:     version,
		Apps:        apps,
		IncludeApps: true,
	}
	for _, app := range apps {
		script := filepath.Join(v.BinDir(), app)
		if err := os.WriteFile(script, []byte("#!/bin/sh\n"), 0o755); err != nil {
			t.Fatal(err)
		}
		doc.MainPackage.AppPaths = append(doc.MainPackage.AppPaths, script)
	}
	store := v.Metadata()
	store.Init(doc)
	if err := store.Save(); err != nil {
		t.Fatal(err)
	}
	return v
}

func TestInjectValidation(t *testing.T) {
	mgr, _ := testManagers(t)
	seedVenv(t, mgr, "ipython", "8.0.0")

	tests := []struct {
		name string
		inv  *Invocation
		want string
	}{
		{
			name: "deps without apps",
			inv: &Invocation{Args: map[string]string{"venv": "ipython"},
				Flags: map[string]any{"include-deps": true}, Rest: []string{"numpy"}},
			want: "--include-deps requires --include-apps",
		},
		{
			name: "specs and requirements",
			inv: &Invocation{Args: map[string]string{"venv": "ipython"},
				Flags: map[string]any{"requirement": []string{"r.txt"}}, Rest: []string{"numpy"}},
			want: "not both",
		},
		{
			name: "nothing to inject",
			inv:  &Invocation{Args: map[string]string{"venv": "ipython"}, Flags: map[string]any{}},
			want: "nothing to inject",
		},
		{
			name: "missing venv",
			inv: &Invocation{Args: map[string]string{"venv": "ghost"},
				Flags: map[string]any{}, Rest: []string{"numpy"}},
			want: "no venv named",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := runInject(context.Background(), mgr, tt.inv)
			if err == nil || !strings.Contains(err.Error(), tt.want) {
				t.Errorf("err = %v, want containing %q", err, tt.want)
			}
		})
	}
}

func TestInjectRejectsForeignVenv(t *testing.T) {
	mgr, _ := testManagers(t)
	// A directory in the venvs root without any metadata document.
	if err := os.MkdirAll(filepath.Join(mgr.Venvs.Root(), "stray", "bin"), 0o755); err != nil {
		t.Fatal(err)
	}
	inv := &Invocation{Args: map[string]string{"venv": "stray"},
		Flags: map[string]any{}, Rest: []string{"numpy"}}
	_, err := runInject(context.Background(), mgr, inv)
	if err == nil || !strings.Contains(err.Error(), "no metadata") {
		t.Errorf("err = %v, want no-metadata error", err)
	}
}

func TestListEmpty(t *testing.T) {
	mgr, _ := testManagers(t)
	res, err := runList(context.Background(), mgr, &Invocation{Flags: map[string]any{}})
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(res.Output.Message, "nothing has been installed") {
		t.Errorf("message = %q", res.Output.Message)
	}
}

func TestListTable(t *testing.T) {
	mgr, _ := testManagers(t)
	seedVenv(t, mgr, "black", "23.1.0", "black")
	seedVenv(t, mgr, "ipython", "8.0.0", "ipython")

	res, err := runList(context.Background(), mgr, &Invocation{Flags: map[string]any{}})
	if err != nil {
		t.Fatal(err)
	}
	table := res.Output.Table
	if table == nil || len(table.Rows) != 2 {
		t.Fatalf("table = %+v", table)
	}
	if table.Rows[0][0] != "black" || table.Rows[0][1] != "23.1.0" {
		t.Errorf("row = %v", table.Rows[0])
	}
}

func TestListJSON(t *testing.T) {
	mgr, _ := testManagers(t)
	seedVenv(t, mgr, "black", "23.1.0", "black")

	res, err := runList(context.Background(), mgr, &Invocation{Flags: map[string]any{"json": true}})
	if err != nil {
		t.Fatal(err)
	}
	var docs map[string]metadata.Document
	if err := json.Unmarshal([]byte(res.Output.Message), &docs); err != nil {
		t.Fatalf("bad JSON: %v", err)
	}
	if docs["black"].MainPackage.Version != "23.1.0" {
		t.Errorf("docs = %+v", docs)
	}
}

func TestFreezeSnapshot(t *testing.T) {
	mgr, _ := testManagers(t)
	seedVenv(t, mgr, "black", "23.1.0", "black")
	seedVenv(t, mgr, "ipython", "8.0.0", "ipython")

	res, err := runFreeze(context.Background(), mgr,
		&Invocation{Flags: map[string]any{"skip": []string{"ipython"}}})
	if err != nil {
		t.Fatal(err)
	}

	var snap struct {
		SpecVersion string                     `json:"px_spec_version"`
		Venvs       map[string]json.RawMessage `json:"venvs"`
	}
	if err := json.Unmarshal([]byte(res.Output.Message), &snap); err != nil {
		t.Fatalf("bad JSON: %v", err)
	}
	if snap.SpecVersion != metadata.SpecVersion {
		t.Errorf("spec version = %q", snap.SpecVersion)
	}
	if len(snap.Venvs) != 1 {
		t.Errorf("venvs = %v", snap.Venvs)
	}
	if _, ok := snap.Venvs["black"]; !ok {
		t.Error("black missing from snapshot")
	}
	// Frozen documents carry no machine-local app bookkeeping.
	if strings.Contains(string(snap.Venvs["black"]), "app_paths") {
		t.Error("snapshot leaked app_paths")
	}
}

func TestFreezeToFile(t *testing.T) {
	mgr, _ := testManagers(t)
	seedVenv(t, mgr, "black", "23.1.0")

	out := filepath.Join(t.TempDir(), "snap.json")
	res, err := runFreeze(context.Background(), mgr,
		&Invocation{Flags: map[string]any{"output": out}})
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(res.Output.Message, "wrote snapshot") {
		t.Errorf("message = %q", res.Output.Message)
	}
	data, err := os.ReadFile(out)
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(string(data), "px_spec_version") {
		t.Error("snapshot file missing spec version")
	}
}

func TestFreezeJQFilter(t *testing.T) {
	mgr, _ := testManagers(t)
	seedVenv(t, mgr, "black", "23.1.0")

	res, err := runFreeze(context.Background(), mgr,
		&Invocation{Flags: map[string]any{"jq": ".venvs | keys"}})
	if err != nil {
		t.Fatal(err)
	}
	var keys []string
	if err := json.Unmarshal([]byte(res.Output.Message), &keys); err != nil {
		t.Fatalf("bad JSON: %v", err)
	}
	if len(keys) != 1 || keys[0] != "black" {
		t.Errorf("keys = %v", keys)
	}
}

func TestUninstallRemovesVenvAndLinks(t *testing.T) {
	mgr, _ := testManagers(t)
	v := seedVenv(t, mgr, "black", "23.1.0", "black", "blackd")

	binDir := mgr.Cfg.GetBinDir()
	for _, app := range []string{"black", "blackd"} {
		if err := os.Symlink(filepath.Join(v.BinDir(), app), filepath.Join(binDir, app)); err != nil {
			t.Fatal(err)
		}
	}
	// An unrelated symlink must survive.
	foreign := filepath.Join(binDir, "other")
	if err := os.Symlink("/usr/bin/true", foreign); err != nil {
		t.Fatal(err)
	}

	res, err := runUninstall(context.Background(), mgr,
		&Invocation{Args: map[string]string{"venv": "black"}, Flags: map[string]any{}})
	if err != nil {
		t.Fatal(err)
	}
	if res.ExitCode != common.ExitOK {
		t.Errorf("exit = %d", res.ExitCode)
	}
	if v.Exists() {
		t.Error("venv still present")
	}
	for _, app := range []string{"black", "blackd"} {
		if _, err := os.Lstat(filepath.Join(binDir, app)); !os.IsNotExist(err) {
			t.Errorf("link %s still present", app)
		}
	}
	if _, err := os.Lstat(foreign); err != nil {
		t.Error("unrelated symlink removed")
	}
}

func TestUninstallMissing(t *testing.T) {
	mgr, _ := testManagers(t)
	_, err := runUninstall(context.Background(), mgr,
		&Invocation{Args: map[string]string{"venv": "ghost"}, Flags: map[string]any{}})
	if err == nil || !strings.Contains(err.Error(), "nothing named") {
		t.Errorf("err = %v", err)
	}
}

func TestNameFromSpec(t *testing.T) {
	tests := []struct {
		spec string
		want string
	}{
		{"black", "black"},
		{"black==23.1.0", "black"},
		{"requests[socks]>=2.0", "requests"},
		{"black ; python_version > '3.8'", "black"},
		{"https://example.com/pkgs/demo.tar.gz", "demo"},
		{"git+https://example.com/owner/demo.git", "demo"},
		{"./dist/demo-1.0-py3-none-any.whl", "demo-1.0-py3-none-any"},
		{"", ""},
	}
	for _, tt := range tests {
		if got := nameFromSpec(tt.spec); got != tt.want {
			t.Errorf("nameFromSpec(%q) = %q, want %q", tt.spec, got, tt.want)
		}
	}
}

func TestReadRequirements(t *testing.T) {
	path := filepath.Join(t.TempDir(), "reqs.txt")
	content := "numpy\n\n# a comment\npandas>=2.0\n  scipy  \n"
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
	specs, err := readRequirements(path)
	if err != nil {
		t.Fatal(err)
	}
	want := []string{"numpy", "pandas>=2.0", "scipy"}
	if len(specs) != len(want) {
		t.Fatalf("specs = %v", specs)
	}
	for i := range want {
		if specs[i] != want[i] {
			t.Errorf("specs[%d] = %q, want %q", i, specs[i], want[i])
		}
	}
}

func TestExposeAppsReplacesStaleLinks(t *testing.T) {
	mgr, _ := testManagers(t)
	v := seedVenv(t, mgr, "black", "23.1.0", "black")
	binDir := mgr.Cfg.GetBinDir()

	// Stale link left over from a previous install elsewhere.
	if err := os.Symlink("/nonexistent/black", filepath.Join(binDir, "black")); err != nil {
		t.Fatal(err)
	}

	paths, err := exposeApps(v, binDir, []string{"black"})
	if err != nil {
		t.Fatal(err)
	}
	if len(paths) != 1 {
		t.Fatalf("paths = %v", paths)
	}
	target, err := os.Readlink(filepath.Join(binDir, "black"))
	if err != nil {
		t.Fatal(err)
	}
	if target != filepath.Join(v.BinDir(), "black") {
		t.Errorf("link target = %q", target)
	}
}

func TestExposeAppsRefusesRegularFile(t *testing.T) {
	mgr, _ := testManagers(t)
	v := seedVenv(t, mgr, "black", "23.1.0", "black")
	binDir := mgr.Cfg.GetBinDir()

	if err := os.WriteFile(filepath.Join(binDir, "black"), []byte("real file"), 0o644); err != nil {
		t.Fatal(err)
	}
	if _, err := exposeApps(v, binDir, []string{"black"}); err == nil {
		t.Error("expected error for non-symlink collision")
	}
}

func TestVersionCommand(t *testing.T) {
	res, err := runVersion(context.Background(), nil, nil)
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(res.Output.Message, Version) {
		t.Errorf("message = %q", res.Output.Message)
	}
}
