package progress

import (
	"bufio"
	"io"
)

// Follow reads r line by line and feeds each line to the tracker in arrival
// order. It always finishes the tracker before returning, so the terminal is
// left clean even when the stream ends with a read error or the subprocess
// dies mid-line.
func Follow(r io.Reader, t *Tracker) error {
	defer t.Finish()

	scanner := bufio.NewScanner(r)
	// pip can emit very long single lines (dependency lists); grow the limit
	// well past the default 64K.
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)

	for scanner.Scan() {
		t.Line(scanner.Text())
	}
	return scanner.Err()
}
