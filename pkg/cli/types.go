package cli

import (
	"context"

	"px/pkg/common"
	"px/pkg/config"
	"px/pkg/display"
	"px/pkg/index"
	"px/pkg/pip"
	"px/pkg/venv"
)

// Flag describes one command-line flag.
type Flag struct {
	Name  string
	Short string
	Type  string // "bool" or "string"
	// Repeated string flags accumulate into a []string.
	Repeated bool
	Desc     string
}

// Arg describes one positional argument.
type Arg struct {
	Name string
	Desc string
	// Variadic collects all remaining words; only valid on the last Arg.
	Variadic bool
	// Optional args may be omitted; only valid after all required args.
	Optional bool
}

// Command is one px subcommand.
type Command struct {
	Name     string
	Desc     string
	Args     []*Arg
	Flags    []*Flag
	Examples []string
	Run      Action
}

// Invocation is a parsed command line ready to execute.
type Invocation struct {
	Command *Command
	Args    map[string]string
	// Rest holds the words captured by a variadic argument.
	Rest  []string
	Flags map[string]any
	// Verbose mirrors the global --verbose flag.
	Verbose bool
}

// Action executes a command against the wired managers.
type Action func(ctx context.Context, mgr *Managers, inv *Invocation) (*common.ExecutionResult, error)

// Managers bundles the collaborators handlers need.
type Managers struct {
	Cfg   config.ReadOnly
	Disp  display.Display
	Venvs *venv.Container
	Pip   *pip.Runner
	Index *index.Client
}

// flag looks up a flag by long or short name.
func (c *Command) flag(name string) *Flag {
	for _, f := range c.Flags {
		if f.Name == name || (f.Short != "" && f.Short == name) {
			return f
		}
	}
	return nil
}

// String returns the string flag value, or def when unset.
func (inv *Invocation) String(name, def string) string {
	if v, ok := inv.Flags[name].(string); ok {
		return v
	}
	return def
}

// Bool returns the bool flag value.
func (inv *Invocation) Bool(name string) bool {
	v, _ := inv.Flags[name].(bool)
	return v
}

// Strings returns the values of a repeated string flag.
func (inv *Invocation) Strings(name string) []string {
	v, _ := inv.Flags[name].([]string)
	return v
}
