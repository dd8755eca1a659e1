package cli

import (
	"context"
	"fmt"
	"io"
	"sort"
	"strings"

	"px/pkg/common"
)

// Engine holds the command table and dispatches invocations.
type Engine struct {
	Program  string
	Commands []*Command
	Theme    *Theme
	Out      io.Writer
}

func NewEngine(program string, out io.Writer, commands []*Command) *Engine {
	return &Engine{
		Program:  program,
		Commands: commands,
		Theme:    DefaultTheme(),
		Out:      out,
	}
}

// Parse turns raw arguments into an Invocation. It does not execute anything.
// A nil Invocation with a nil error means help was printed and there is
// nothing to run.
func (e *Engine) Parse(args []string) (*Invocation, error) {
	verbose := false
	var rest []string
	seen := false
	for _, a := range args {
		// Nothing after -- is ours, it belongs to the command's passthrough.
		if !seen && (a == "-v" || a == "--verbose") {
			verbose = true
			continue
		}
		if a == "--" {
			seen = true
		}
		rest = append(rest, a)
	}

	if len(rest) == 0 {
		e.PrintHelp()
		return nil, nil
	}
	if rest[0] == "-h" || rest[0] == "--help" || rest[0] == "help" {
		if len(rest) > 1 {
			if cmd, err := e.resolve(rest[1]); err == nil {
				e.PrintCommandHelp(cmd)
				return nil, nil
			}
		}
		e.PrintHelp()
		return nil, nil
	}

	cmd, err := e.resolve(rest[0])
	if err != nil {
		return nil, err
	}

	inv := &Invocation{
		Command: cmd,
		Args:    map[string]string{},
		Flags:   map[string]any{},
		Verbose: verbose,
	}
	if err := e.parseParams(cmd, rest[1:], inv); err != nil {
		return nil, fmt.Errorf("%s: %w", cmd.Name, err)
	}
	return inv, nil
}

// Run parses and executes. Returns the result of the command's action.
func (e *Engine) Run(ctx context.Context, mgr *Managers, args []string) (*common.ExecutionResult, error) {
	inv, err := e.Parse(args)
	if err != nil {
		return nil, err
	}
	if inv == nil {
		return common.Ok(), nil
	}
	return inv.Command.Run(ctx, mgr, inv)
}

// resolve matches a command by exact name first, then by unique prefix.
func (e *Engine) resolve(name string) (*Command, error) {
	for _, c := range e.Commands {
		if c.Name == name {
			return c, nil
		}
	}
	var matches []*Command
	for _, c := range e.Commands {
		if strings.HasPrefix(c.Name, name) {
			matches = append(matches, c)
		}
	}
	switch len(matches) {
	case 1:
		return matches[0], nil
	case 0:
		return nil, fmt.Errorf("unknown command %q (try %q)", name, e.Program+" help")
	default:
		names := make([]string, len(matches))
		for i, c := range matches {
			names[i] = c.Name
		}
		sort.Strings(names)
		return nil, fmt.Errorf("ambiguous command %q: matches %s", name, strings.Join(names, ", "))
	}
}

// parseParams fills flags and positional arguments for cmd.
// Everything after "--" goes to the variadic argument untouched.
func (e *Engine) parseParams(cmd *Command, args []string, inv *Invocation) error {
	var positional []string
	passthrough := false

	for i := 0; i < len(args); i++ {
		a := args[i]
		if passthrough {
			positional = append(positional, a)
			continue
		}
		if a == "--" {
			passthrough = true
			continue
		}
		if strings.HasPrefix(a, "-") && a != "-" {
			name := strings.TrimLeft(a, "-")
			value := ""
			hasValue := false
			if eq := strings.IndexByte(name, '='); eq >= 0 {
				name, value = name[:eq], name[eq+1:]
				hasValue = true
			}
			flag := cmd.flag(name)
			if flag == nil {
				return fmt.Errorf("unknown flag %s", a)
			}
			if flag.Type == "bool" {
				if hasValue {
					return fmt.Errorf("flag --%s takes no value", flag.Name)
				}
				inv.Flags[flag.Name] = true
				continue
			}
			if !hasValue {
				if i+1 >= len(args) {
					return fmt.Errorf("flag --%s needs a value", flag.Name)
				}
				i++
				value = args[i]
			}
			if flag.Repeated {
				prev, _ := inv.Flags[flag.Name].([]string)
				inv.Flags[flag.Name] = append(prev, value)
			} else {
				inv.Flags[flag.Name] = value
			}
			continue
		}
		positional = append(positional, a)
	}

	for _, arg := range cmd.Args {
		if arg.Variadic {
			inv.Rest = positional
			positional = nil
			break
		}
		if len(positional) == 0 {
			if arg.Optional {
				continue
			}
			return fmt.Errorf("missing argument <%s>", arg.Name)
		}
		inv.Args[arg.Name] = positional[0]
		positional = positional[1:]
	}
	if len(positional) > 0 {
		return fmt.Errorf("unexpected argument %q", positional[0])
	}
	return nil
}

func (e *Engine) PrintHelp() {
	t := e.Theme
	fmt.Fprintf(e.Out, "%s\n\n", t.Bold.Render(e.Program+" - install and run Python applications in isolated environments"))
	fmt.Fprintf(e.Out, "%s\n", t.Bold.Render("Usage:"))
	fmt.Fprintf(e.Out, "  %s <command> [arguments]\n\n", e.Program)
	fmt.Fprintf(e.Out, "%s\n", t.Bold.Render("Commands:"))
	width := 0
	for _, c := range e.Commands {
		if len(c.Name) > width {
			width = len(c.Name)
		}
	}
	for _, c := range e.Commands {
		fmt.Fprintf(e.Out, "  %s %-*s  %s\n", t.Bullet, width, t.Cyan.Render(c.Name), c.Desc)
	}
	fmt.Fprintf(e.Out, "\nUse %q for details on a command.\n", e.Program+" help <command>")
}

func (e *Engine) PrintCommandHelp(cmd *Command) {
	t := e.Theme
	fmt.Fprintf(e.Out, "%s - %s\n\n", t.Bold.Render(e.Program+" "+cmd.Name), cmd.Desc)
	usage := e.Program + " " + cmd.Name
	for _, f := range cmd.Flags {
		usage += " [--" + f.Name + "]"
	}
	for _, a := range cmd.Args {
		switch {
		case a.Variadic:
			usage += " [" + a.Name + "...]"
		case a.Optional:
			usage += " [" + a.Name + "]"
		default:
			usage += " <" + a.Name + ">"
		}
	}
	fmt.Fprintf(e.Out, "%s\n  %s\n", t.Bold.Render("Usage:"), usage)
	if len(cmd.Flags) > 0 {
		fmt.Fprintf(e.Out, "\n%s\n", t.Bold.Render("Flags:"))
		for _, f := range cmd.Flags {
			fmt.Fprintf(e.Out, "  %s %-20s %s\n", t.Bullet, t.Cyan.Render("--"+f.Name), f.Desc)
		}
	}
	if len(cmd.Examples) > 0 {
		fmt.Fprintf(e.Out, "\n%s\n", t.Bold.Render("Examples:"))
		for _, ex := range cmd.Examples {
			fmt.Fprintf(e.Out, "  %s\n", t.Dim.Render(ex))
		}
	}
}
