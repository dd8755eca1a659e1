// Package display implements terminal-based output for px commands.
package display

import (
	"fmt"
	"io"
	"os"
	"strings"

	"px/pkg/common"
)

// consoleDisplay writes primary output to out and status output to errOut.
type consoleDisplay struct {
	out     io.Writer
	errOut  io.Writer
	verbose bool
}

// NewConsole creates a Display bound to standard output and standard error.
func NewConsole() Display {
	return &consoleDisplay{out: os.Stdout, errOut: os.Stderr}
}

// NewWriterDisplay creates a Display writing both channels to the provided
// writers. Used by tests with in-memory buffers.
func NewWriterDisplay(out, errOut io.Writer) Display {
	return &consoleDisplay{out: out, errOut: errOut}
}

func (d *consoleDisplay) Print(msg string) {
	fmt.Fprint(d.out, msg)
}

func (d *consoleDisplay) Status(msg string) {
	fmt.Fprintln(d.errOut, msg)
}

func (d *consoleDisplay) Verbose(msg string) {
	if d.verbose {
		fmt.Fprintln(d.errOut, msg)
	}
}

func (d *consoleDisplay) SetVerbose(v bool) {
	d.verbose = v
}

// RenderOutput displays structured data from an Output struct to the console.
func (d *consoleDisplay) RenderOutput(out *common.Output) {
	if out == nil {
		return
	}

	if out.Message != "" {
		d.Print(fmt.Sprintln(out.Message))
	}

	if len(out.KV) > 0 {
		for _, kv := range out.KV {
			d.Print(fmt.Sprintf("%-14s %s\n", kv.Key+":", kv.Value))
		}
	}

	if out.Table != nil {
		d.renderTable(out.Table)
	}
}

func (d *consoleDisplay) renderTable(t *common.Table) {
	if len(t.Header) == 0 {
		return
	}

	widths := make([]int, len(t.Header))
	for i, h := range t.Header {
		widths[i] = len(h)
	}
	for _, row := range t.Rows {
		for i, cell := range row {
			if i < len(widths) && len(cell) > widths[i] {
				widths[i] = len(cell)
			}
		}
	}

	var sb strings.Builder
	for i, h := range t.Header {
		fmt.Fprintf(&sb, "%-*s  ", widths[i], h)
	}
	d.Print(sb.String() + "\n")

	totalWidth := 0
	for _, w := range widths {
		totalWidth += w + 2
	}
	d.Print(strings.Repeat("-", totalWidth) + "\n")

	for _, row := range t.Rows {
		sb.Reset()
		for i, cell := range row {
			if i < len(widths) {
				fmt.Fprintf(&sb, "%-*s  ", widths[i], cell)
			}
		}
		d.Print(sb.String() + "\n")
	}
}
