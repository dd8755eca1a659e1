// Package lockfile guards shared filesystem targets (venv directories) against
// concurrent px processes using exclusive PID lock files with stale detection.
package lockfile

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"syscall"
	"time"
)

const (
	pollInterval = 200 * time.Millisecond
	readRetry    = 100 * time.Millisecond
)

// Acquire locks the given target path by creating <target>.lock exclusively.
// If a lock already exists it checks whether the recorded PID is still alive:
// a live holder makes Acquire wait, a dead one gets its stale lock removed.
// Returns a release function.
func Acquire(target string) (func() error, error) {
	lockPath := target + ".lock"

	if err := os.MkdirAll(filepath.Dir(lockPath), 0o755); err != nil {
		return nil, fmt.Errorf("creating lock parent dir: %w", err)
	}

	for {
		f, err := os.OpenFile(lockPath, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
		if err == nil {
			content := fmt.Sprintf("%s %d", time.Now().Format(time.RFC3339), os.Getpid())
			if _, werr := f.WriteString(content); werr != nil {
				f.Close()
				os.Remove(lockPath)
				return nil, fmt.Errorf("writing lock file: %w", werr)
			}
			f.Close()
			return func() error { return os.Remove(lockPath) }, nil
		}
		if !os.IsExist(err) {
			return nil, fmt.Errorf("acquiring lock %s: %w", lockPath, err)
		}

		pid, ok := holderPID(lockPath)
		if !ok {
			// Corrupt or vanished lock file: clear it and retry.
			os.Remove(lockPath)
			continue
		}
		if pidAlive(pid) {
			time.Sleep(pollInterval)
			continue
		}
		// Holder is gone; remove the stale lock. A concurrent removal is fine.
		os.Remove(lockPath)
	}
}

// Ensure runs create exactly once for a target that may be raced by several
// px processes: it skips the call when the target already exists, otherwise
// serializes creation behind the target's lock and re-checks after acquiring.
func Ensure(target string, create func() error) error {
	if _, err := os.Stat(target); err == nil {
		return nil
	}

	release, err := Acquire(target)
	if err != nil {
		return err
	}
	defer release()

	if _, err := os.Stat(target); err == nil {
		return nil
	}
	return create()
}

// holderPID reads the PID recorded in a lock file.
func holderPID(lockPath string) (int, bool) {
	content, err := os.ReadFile(lockPath)
	if err != nil {
		if !os.IsNotExist(err) {
			time.Sleep(readRetry)
		}
		return 0, false
	}
	fields := strings.Fields(strings.TrimSpace(string(content)))
	if len(fields) < 2 {
		return 0, false
	}
	pid, err := strconv.Atoi(fields[len(fields)-1])
	if err != nil {
		return 0, false
	}
	return pid, true
}

func pidAlive(pid int) bool {
	if pid <= 0 {
		return false
	}
	proc, err := os.FindProcess(pid)
	if err != nil {
		return false
	}
	err = proc.Signal(syscall.Signal(0))
	if err == nil {
		return true
	}
	if errors.Is(err, syscall.ESRCH) || errors.Is(err, os.ErrProcessDone) {
		return false
	}
	// EPERM: the process exists but belongs to someone else.
	return true
}
