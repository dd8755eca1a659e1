// Package common provides shared types used across the px tool: execution
// results, renderable output structures, and process exit codes.
package common

// Exit codes returned by px commands.
const (
	ExitOK          = 0
	ExitError       = 1
	ExitInjectError = 2
)

// ExecutionResult represents the outcome of a px operation.
type ExecutionResult struct {
	// ExitCode is the status code the process should return.
	ExitCode int

	// Output holds structured data to be rendered by the display layer.
	Output *Output
}

// KV is a key/value row for aligned informational output.
type KV struct {
	Key   string
	Value string
}

// Table holds tabular data for the display layer.
type Table struct {
	Header []string
	Rows   [][]string
}

// Output is the renderable result of a command: an optional message,
// key/value rows, and/or a table.
type Output struct {
	Message string
	KV      []KV
	Table   *Table
}

// Ok returns a zero-exit result with no output.
func Ok() *ExecutionResult {
	return &ExecutionResult{ExitCode: ExitOK}
}
