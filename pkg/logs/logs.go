// Package logs manages the directory of raw pip invocation logs. Every pip
// run is teed into a timestamped log file; older logs are compressed with
// zstd and eventually dropped so the directory stays bounded.
package logs

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/klauspost/compress/zstd"
)

const (
	prefix    = "px_"
	plainExt  = ".log"
	packedExt = ".log.zst"
)

// Create opens a fresh log file in dir, named after the current time and the
// pip operation (e.g. "install"). The caller owns closing it.
func Create(dir, operation string) (*os.File, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("creating log dir: %w", err)
	}

	stamp := time.Now().Format("20060102_150405")
	for i := 0; ; i++ {
		name := fmt.Sprintf("%s%s_%s%s", prefix, stamp, operation, plainExt)
		if i > 0 {
			name = fmt.Sprintf("%s%s_%s_%d%s", prefix, stamp, operation, i, plainExt)
		}
		f, err := os.OpenFile(filepath.Join(dir, name), os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
		if err == nil {
			return f, nil
		}
		if !os.IsExist(err) {
			return nil, fmt.Errorf("creating log file: %w", err)
		}
	}
}

// Rotate compresses plain logs beyond the newest keepPlain and deletes
// compressed logs beyond keepPacked. Timestamped names sort chronologically,
// so plain lexical order is enough.
func Rotate(dir string, keepPlain, keepPacked int) error {
	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return fmt.Errorf("reading log dir: %w", err)
	}

	var plain, packed []string
	for _, e := range entries {
		name := e.Name()
		if e.IsDir() || !strings.HasPrefix(name, prefix) {
			continue
		}
		switch {
		case strings.HasSuffix(name, packedExt):
			packed = append(packed, name)
		case strings.HasSuffix(name, plainExt):
			plain = append(plain, name)
		}
	}
	sort.Strings(plain)
	sort.Strings(packed)

	for len(plain) > keepPlain {
		name := plain[0]
		plain = plain[1:]
		if err := compress(filepath.Join(dir, name)); err != nil {
			return err
		}
		packed = append(packed, name+".zst")
	}
	sort.Strings(packed)

	for len(packed) > keepPacked {
		if err := os.Remove(filepath.Join(dir, packed[0])); err != nil && !os.IsNotExist(err) {
			return err
		}
		packed = packed[1:]
	}
	return nil
}

// compress replaces path with path.zst.
func compress(path string) error {
	in, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("opening log for compression: %w", err)
	}
	defer in.Close()

	out, err := os.Create(path + ".zst")
	if err != nil {
		return fmt.Errorf("creating compressed log: %w", err)
	}
	defer out.Close()

	enc, err := zstd.NewWriter(out)
	if err != nil {
		return err
	}
	if _, err := io.Copy(enc, in); err != nil {
		enc.Close()
		os.Remove(path + ".zst")
		return fmt.Errorf("compressing log: %w", err)
	}
	if err := enc.Close(); err != nil {
		os.Remove(path + ".zst")
		return err
	}
	return os.Remove(path)
}
