// Package pip invokes pip inside a virtual environment as a subprocess and
// renders its progress live. px never parses pip's structured output: the
// combined text stream is classified line by line, best effort, and the
// install verdict is the process exit status alone.
package pip

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os/exec"

	"px/pkg/logs"
	"px/pkg/progress"
)

const (
	keepPlainLogs  = 10
	keepPackedLogs = 30
)

// Runner executes pip commands for venvs, teeing raw output to the log
// directory and feeding the live progress tracker.
type Runner struct {
	logDir string

	// newTracker builds the tracker for one invocation. Overridable by tests
	// to capture rendering in memory.
	newTracker func() *progress.Tracker
}

// NewRunner creates a Runner keeping its raw logs under logDir.
func NewRunner(logDir string) *Runner {
	return &Runner{
		logDir:     logDir,
		newTracker: progress.NewConsoleTracker,
	}
}

// NewRunnerWithTracker creates a Runner with a custom tracker factory.
func NewRunnerWithTracker(logDir string, factory func() *progress.Tracker) *Runner {
	return &Runner{logDir: logDir, newTracker: factory}
}

// Run executes `python -m pip <args...>`, streaming the merged stdout/stderr
// through the progress tracker in arrival order. operation names the log file
// (e.g. "install"). The tracker is always finished, even when the subprocess
// dies or ctx is cancelled, so the terminal is left clean.
func (r *Runner) Run(ctx context.Context, python, operation string, args []string) error {
	slog.Debug("Running pip", "python", python, "operation", operation, "args", args)

	cmd := exec.CommandContext(ctx, python, append([]string{"-m", "pip"}, args...)...)

	pr, pw := io.Pipe()
	cmd.Stdout = pw
	cmd.Stderr = pw

	logFile, err := logs.Create(r.logDir, operation)
	if err != nil {
		return err
	}
	defer logFile.Close()

	tracker := r.newTracker()
	done := make(chan struct{})
	go func() {
		defer close(done)
		// Finish is guaranteed by Follow, including on abnormal stream ends.
		progress.Follow(io.TeeReader(pr, logFile), tracker)
	}()

	runErr := cmd.Run()
	pw.Close()
	<-done

	if err := logs.Rotate(r.logDir, keepPlainLogs, keepPackedLogs); err != nil {
		slog.Debug("Log rotation failed", "err", err)
	}

	if runErr != nil {
		return fmt.Errorf("pip %s failed: %w (full output in %s)", operation, runErr, logFile.Name())
	}
	return nil
}
