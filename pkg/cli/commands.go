package cli

// Version is the px release version.
const Version = "0.1.0"

// Commands is the full px command table, in help order.
func Commands() []*Command {
	return []*Command{
		{
			Name: "install",
			Desc: "Install a Python application in its own virtual environment",
			Args: []*Arg{
				{Name: "spec", Desc: "package name, pinned spec, URL or local path"},
			},
			Flags: []*Flag{
				{Name: "python", Type: "string", Desc: "interpreter to build the venv with"},
				{Name: "suffix", Type: "string", Desc: "append a suffix to the venv name"},
				{Name: "force", Type: "bool", Desc: "reinstall into an existing venv"},
				{Name: "pip-args", Type: "string", Desc: "extra arguments passed through to pip"},
			},
			Examples: []string{
				"px install black",
				"px install 'black==23.1.0' --suffix @23",
			},
			Run: runInstall,
		},
		{
			Name: "inject",
			Desc: "Install packages into an existing px-managed venv",
			Args: []*Arg{
				{Name: "venv", Desc: "target environment name"},
				{Name: "spec", Desc: "package specs to inject", Variadic: true},
			},
			Flags: []*Flag{
				{Name: "requirement", Short: "r", Type: "string", Repeated: true,
					Desc: "read specs from a requirements file (repeatable)"},
				{Name: "include-apps", Type: "bool", Desc: "expose apps of the injected packages"},
				{Name: "include-deps", Type: "bool", Desc: "also expose apps of their dependencies"},
				{Name: "pip-args", Type: "string", Desc: "extra arguments passed through to pip"},
			},
			Examples: []string{
				"px inject ipython matplotlib numpy",
				"px inject ipython -r extras.txt --include-apps",
			},
			Run: runInject,
		},
		{
			Name: "uninstall",
			Desc: "Remove an application, its venv and its exposed apps",
			Args: []*Arg{
				{Name: "venv", Desc: "environment name to remove"},
			},
			Run: runUninstall,
		},
		{
			Name: "list",
			Desc: "Show installed applications",
			Flags: []*Flag{
				{Name: "json", Type: "bool", Desc: "emit metadata documents as JSON"},
				{Name: "jq", Type: "string", Desc: "filter the JSON output with a jq expression"},
			},
			Run: runList,
		},
		{
			Name: "freeze",
			Desc: "Emit a machine-portable snapshot of all venvs",
			Flags: []*Flag{
				{Name: "output", Type: "string", Desc: "write the snapshot to a file instead of stdout"},
				{Name: "skip", Type: "string", Repeated: true, Desc: "leave a venv out of the snapshot (repeatable)"},
				{Name: "jq", Type: "string", Desc: "filter the snapshot with a jq expression"},
			},
			Run: runFreeze,
		},
		{
			Name: "versions",
			Desc: "List versions of a package available on the configured index",
			Args: []*Arg{
				{Name: "package", Desc: "package name to query"},
			},
			Run: runVersions,
		},
		{
			Name: "runpip",
			Desc: "Run arbitrary pip commands inside a px-managed venv",
			Args: []*Arg{
				{Name: "venv", Desc: "target environment name"},
				{Name: "args", Desc: "arguments handed to pip verbatim", Variadic: true},
			},
			Examples: []string{
				"px runpip ipython -- show traitlets",
			},
			Run: runRunpip,
		},
		{
			Name: "version",
			Desc: "Print the px version",
			Run:  runVersion,
		},
	}
}
