package display

import "px/pkg/common"

// Display handles the visualization of command results and status messages.
type Display interface {
	// Print writes a primary output message (tables, info) to standard output.
	Print(msg string)
	// Status writes a transient status message to the error channel.
	Status(msg string)
	// Verbose writes a message only when verbose mode is enabled.
	Verbose(msg string)
	// RenderOutput displays structured data from an Output struct.
	RenderOutput(out *common.Output)
	// SetVerbose enables or disables verbose logging.
	SetVerbose(v bool)
}
