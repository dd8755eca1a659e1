// Package metadata persists per-venv bookkeeping as a JSON document inside
// each virtual environment. The store loads lazily, tracks dirty state, and
// writes atomically so a crashed install never leaves a torn document.
package metadata

// SpecVersion identifies the metadata document format.
const SpecVersion = "0.1"

// FileName is the document's name inside a venv directory.
const FileName = "px_metadata.json"

// Package records one installed package: the main package of a venv or a
// package injected into it later.
type Package struct {
	// Spec is what the user asked pip to install: a name, a name with
	// version constraints, a URL, or a local path.
	Spec string `json:"package_or_url"`
	// Version is the resolved version reported by the venv after install.
	Version string `json:"package_version"`
	// Apps are the console-script names this package exposed in the venv.
	Apps []string `json:"apps"`
	// AppPaths are the absolute paths of those scripts inside the venv.
	AppPaths []string `json:"app_paths"`
	// IncludeApps records whether the apps were symlinked into the bin dir.
	IncludeApps bool `json:"include_apps"`
	// IncludeDependencies records whether dependency apps were exposed too.
	IncludeDependencies bool `json:"include_dependencies"`
	// PipArgs are extra arguments that were passed through to pip.
	PipArgs []string `json:"pip_args,omitempty"`
}

// Document is the full metadata of one venv.
type Document struct {
	MetadataVersion  string             `json:"px_metadata_version"`
	Python           string             `json:"python"`
	MainPackage      Package            `json:"main_package"`
	InjectedPackages map[string]Package `json:"injected_packages"`
}

// NewDocument creates an empty document for the given interpreter.
func NewDocument(python string) *Document {
	return &Document{
		MetadataVersion:  SpecVersion,
		Python:           python,
		InjectedPackages: make(map[string]Package),
	}
}

// FrozenPackage is the freeze-output view of Package. App bookkeeping is
// machine-local and is stripped from frozen specs.
type FrozenPackage struct {
	Spec                string   `json:"package_or_url"`
	Version             string   `json:"package_version"`
	IncludeApps         bool     `json:"include_apps"`
	IncludeDependencies bool     `json:"include_dependencies"`
	PipArgs             []string `json:"pip_args,omitempty"`
}

// FrozenDocument is the freeze-output view of Document.
type FrozenDocument struct {
	MetadataVersion  string                   `json:"px_metadata_version"`
	Python           string                   `json:"python"`
	MainPackage      FrozenPackage            `json:"main_package"`
	InjectedPackages map[string]FrozenPackage `json:"injected_packages,omitempty"`
}

// Frozen returns the package without its local app bookkeeping.
func (p Package) Frozen() FrozenPackage {
	return FrozenPackage{
		Spec:                p.Spec,
		Version:             p.Version,
		IncludeApps:         p.IncludeApps,
		IncludeDependencies: p.IncludeDependencies,
		PipArgs:             p.PipArgs,
	}
}

// Frozen returns the freeze-output view of the document.
func (d *Document) Frozen() FrozenDocument {
	out := FrozenDocument{
		MetadataVersion: d.MetadataVersion,
		Python:          d.Python,
		MainPackage:     d.MainPackage.Frozen(),
	}
	if len(d.InjectedPackages) > 0 {
		out.InjectedPackages = make(map[string]FrozenPackage, len(d.InjectedPackages))
		for name, pkg := range d.InjectedPackages {
			out.InjectedPackages[name] = pkg.Frozen()
		}
	}
	return out
}
