package progress

import (
	"fmt"
	"io"
	"os"

	"golang.org/x/term"
)

// Action labels the most recent classified activity. It is advisory state,
// not a forward-only machine: the same action can be revisited while
// percentage ticks arrive.
type Action int

const (
	ActionNone Action = iota
	ActionCollecting
	ActionDownloading
	ActionBuilding
	ActionUsingCached
	ActionInstalling
	ActionCompleted
)

// clearSeq erases the current line and returns the cursor to column 0.
const clearSeq = "\r\x1b[2K"

// Tracker consumes pip output lines and maintains a single status line on
// its writer. One Tracker owns the writer for the lifetime of one pip
// invocation; it must be driven from a single goroutine in arrival order.
type Tracker struct {
	out         io.Writer
	interactive bool

	currentPackage string
	currentAction  Action
	seen           map[string]struct{}

	collectingShown  bool
	downloadingShown bool
	installingShown  bool

	lastMessage string
}

// NewTracker creates a Tracker writing to w. interactive selects between
// in-place carriage-return updates and one plain line per distinct message.
func NewTracker(w io.Writer, interactive bool) *Tracker {
	return &Tracker{
		out:         w,
		interactive: interactive,
		seen:        make(map[string]struct{}),
	}
}

// NewConsoleTracker creates a Tracker on stderr, detecting interactivity
// once at construction.
func NewConsoleTracker() *Tracker {
	return NewTracker(os.Stderr, term.IsTerminal(int(os.Stderr.Fd())))
}

// Line classifies one pip output line and updates the status display.
// Unrecognized lines are ignored; no input can make Line fail.
func (t *Tracker) Line(line string) {
	ev := Classify(line)

	switch ev.Kind {
	case KindPercentage:
		if t.currentPackage == "" || !t.interactive {
			return
		}
		switch t.currentAction {
		case ActionDownloading:
			t.display(fmt.Sprintf("Downloading %s... %d%%", t.currentPackage, ev.Percent))
		case ActionCollecting:
			t.display(fmt.Sprintf("Resolving %s... %d%%", t.currentPackage, ev.Percent))
		}

	case KindSizedProgress:
		// Sized lines are only trusted while a download is in flight, and a
		// zero total never produces a percentage.
		if t.currentAction != ActionDownloading || t.currentPackage == "" {
			return
		}
		if ev.Total <= 0 || !t.interactive {
			return
		}
		pct := int((ev.Downloaded / ev.Total) * 100)
		msg := fmt.Sprintf("Downloading %s... %d%% (%.1f/%.1f %s)",
			t.currentPackage, pct, ev.Downloaded, ev.Total, ev.Unit)
		if ev.ETA != "" {
			msg += " ETA: " + ev.ETA
		}
		t.display(msg)

	case KindCollecting:
		if _, ok := t.seen[ev.Token]; ok {
			return
		}
		t.seen[ev.Token] = struct{}{}
		t.currentPackage = ev.Token
		t.currentAction = ActionCollecting
		t.collectingShown = true
		t.display(fmt.Sprintf("📦 Resolving dependencies... (%d found)", len(t.seen)))

	case KindDownloading, KindUsingCached:
		if !t.downloadingShown {
			t.downloadingShown = true
			// First download replaces the resolving banner.
			if t.interactive && t.collectingShown {
				t.clearLine()
			}
		}
		name := PackageFromFilename(ev.Token)
		if name == "" {
			return
		}
		t.currentPackage = name
		if ev.Kind == KindUsingCached {
			t.currentAction = ActionUsingCached
			t.display(fmt.Sprintf("💾 Using cached %s...", name))
			return
		}
		t.currentAction = ActionDownloading
		if ev.SizeHint != "" {
			t.display(fmt.Sprintf("⬇️ Downloading %s (%s)...", name, ev.SizeHint))
		} else {
			t.display(fmt.Sprintf("⬇️ Downloading %s...", name))
		}

	case KindInstallingCollected:
		t.currentAction = ActionInstalling
		if !t.installingShown {
			t.installingShown = true
			// Replace whatever banner occupies the line.
			if t.interactive {
				t.clearLine()
			}
		}
		t.display("📦 Installing: " + ev.Text)

	case KindSuccessfullyInstalled:
		t.currentAction = ActionCompleted
		// The package list is left to the caller's final summary.
		if t.interactive {
			t.clearLine()
		}

	case KindBuildingWheel:
		t.currentPackage = ev.Token
		t.currentAction = ActionBuilding
	}
}

// Finish clears any in-place status line, leaving the cursor at column 0
// with no residual content. Safe to call when nothing was ever displayed,
// and must be called even when the line stream ends abnormally.
func (t *Tracker) Finish() {
	if t.interactive && t.lastMessage != "" {
		t.clearLine()
	}
	t.lastMessage = ""
}

// display writes a status message, suppressing consecutive duplicates.
func (t *Tracker) display(msg string) {
	if msg == t.lastMessage {
		return
	}
	t.lastMessage = msg

	if t.interactive {
		fmt.Fprintf(t.out, "%s  %s", clearSeq, msg)
	} else {
		fmt.Fprintf(t.out, "  %s\n", msg)
	}
}

func (t *Tracker) clearLine() {
	fmt.Fprint(t.out, clearSeq)
}
