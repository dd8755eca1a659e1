package lockfile

import (
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"syscall"
	"testing"
	"time"
)

func TestAcquireRelease(t *testing.T) {
	target := filepath.Join(t.TempDir(), "venv-foo")

	release, err := Acquire(target)
	if err != nil {
		t.Fatalf("Acquire failed: %v", err)
	}

	if _, err := os.Stat(target + ".lock"); os.IsNotExist(err) {
		t.Errorf("lock file not created")
	}

	if err := release(); err != nil {
		t.Errorf("release failed: %v", err)
	}
	if _, err := os.Stat(target + ".lock"); !os.IsNotExist(err) {
		t.Errorf("lock file should be gone after release")
	}
}

func TestAcquireStale(t *testing.T) {
	target := filepath.Join(t.TempDir(), "venv-stale")

	// Find a PID that is definitely not running.
	stalePid := 9999999
	for pid := 32000; pid < 60000; pid++ {
		proc, _ := os.FindProcess(pid)
		if proc.Signal(syscall.Signal(0)) == syscall.ESRCH {
			stalePid = pid
			break
		}
	}

	content := fmt.Sprintf("%s %d", time.Now().Format(time.RFC3339), stalePid)
	if err := os.WriteFile(target+".lock", []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}

	done := make(chan struct{})
	go func() {
		defer close(done)
		release, err := Acquire(target)
		if err != nil {
			t.Errorf("Acquire over stale lock failed: %v", err)
			return
		}
		release()
	}()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatalf("timed out acquiring over stale lock held by pid %d", stalePid)
	}
}

func TestEnsureRunsOnce(t *testing.T) {
	target := filepath.Join(t.TempDir(), "venv-once")

	calls := 0
	create := func() error {
		calls++
		time.Sleep(100 * time.Millisecond)
		return os.WriteFile(target, []byte("created"), 0o644)
	}

	var wg sync.WaitGroup
	for i := 0; i < 5; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := Ensure(target, create); err != nil {
				t.Errorf("Ensure failed: %v", err)
			}
		}()
	}
	wg.Wait()

	if calls != 1 {
		t.Errorf("create ran %d times, want 1", calls)
	}
}
