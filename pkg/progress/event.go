// Package progress turns the raw line stream of a pip subprocess into a
// single live status line. A stateless classifier maps each output line to a
// recognized event, and a Tracker consumes those events to drive an in-place
// terminal display (or plain log lines on non-interactive output).
package progress

import (
	"regexp"
	"strconv"
	"strings"
)

// Kind identifies the variant of a classified line.
type Kind int

const (
	// KindNone marks a line that matched no known pattern.
	KindNone Kind = iota
	KindPercentage
	KindSizedProgress
	KindCollecting
	KindDownloading
	KindUsingCached
	KindInstallingCollected
	KindSuccessfullyInstalled
	KindBuildingWheel
)

// Event is the classified form of one pip output line. Only the fields
// relevant to its Kind are populated.
type Event struct {
	Kind Kind

	// Percent is set for KindPercentage.
	Percent int

	// Downloaded, Total and Unit are set for KindSizedProgress.
	Downloaded float64
	Total      float64
	Unit       string
	// ETA is the "eta hh:mm:ss" capture of a sized-progress line, if present.
	ETA string

	// Token is the package or filename token for KindCollecting,
	// KindDownloading, KindUsingCached and KindBuildingWheel.
	Token string
	// SizeHint is the first parenthesized group of a Downloading line.
	SizeHint string

	// Text is the free-form remainder for KindInstallingCollected and
	// KindSuccessfullyInstalled.
	Text string
}

var (
	percentRe    = regexp.MustCompile(`(\d+)%`)
	sizedRe      = regexp.MustCompile(`(\d+\.?\d*)/(\d+\.?\d*)\s+(KB|MB|GB)`)
	etaRe        = regexp.MustCompile(`eta\s+([\d:]+)`)
	collectingRe = regexp.MustCompile(`^Collecting\s+([^\s(]+)`)
	downloadRe   = regexp.MustCompile(`^Downloading\s+(\S+)`)
	sizeHintRe   = regexp.MustCompile(`\(([^)]+)\)`)
	installingRe = regexp.MustCompile(`^Installing collected packages:\s+(.+)`)
	installedRe  = regexp.MustCompile(`^Successfully installed\s+(.+)`)
	buildingRe   = regexp.MustCompile(`^Building wheel for\s+([^\s(]+)`)
	cachedRe     = regexp.MustCompile(`^Using cached\s+(\S+)`)
)

// Classify maps one raw pip output line to an Event. Unrecognized and empty
// lines yield KindNone. The rules are checked in a fixed priority order and
// the first match wins; lines that could structurally satisfy several rules
// (a download line that also carries a percentage) are resolved by that order.
func Classify(line string) Event {
	trimmed := strings.TrimSpace(line)
	if trimmed == "" {
		return Event{}
	}

	// A bare percentage is only meaningful on progress-bar renders, which pip
	// indents or draws with heavy box characters. The pre-check keeps version
	// strings like "foo 2.0%whl" from registering as progress.
	if strings.HasPrefix(line, " ") || strings.ContainsAny(trimmed, "━╸") {
		if m := percentRe.FindStringSubmatch(trimmed); m != nil {
			if pct, err := strconv.Atoi(m[1]); err == nil {
				return Event{Kind: KindPercentage, Percent: pct}
			}
		}
	}

	if m := sizedRe.FindStringSubmatch(trimmed); m != nil {
		downloaded, err1 := strconv.ParseFloat(m[1], 64)
		total, err2 := strconv.ParseFloat(m[2], 64)
		if err1 == nil && err2 == nil {
			ev := Event{Kind: KindSizedProgress, Downloaded: downloaded, Total: total, Unit: m[3]}
			if em := etaRe.FindStringSubmatch(trimmed); em != nil {
				ev.ETA = em[1]
			}
			return ev
		}
	}

	if m := collectingRe.FindStringSubmatch(trimmed); m != nil {
		return Event{Kind: KindCollecting, Token: m[1]}
	}

	if m := downloadRe.FindStringSubmatch(trimmed); m != nil {
		ev := Event{Kind: KindDownloading, Token: m[1]}
		if hm := sizeHintRe.FindStringSubmatch(trimmed); hm != nil {
			ev.SizeHint = hm[1]
		}
		return ev
	}

	if m := installingRe.FindStringSubmatch(trimmed); m != nil {
		return Event{Kind: KindInstallingCollected, Text: m[1]}
	}

	if m := installedRe.FindStringSubmatch(trimmed); m != nil {
		return Event{Kind: KindSuccessfullyInstalled, Text: m[1]}
	}

	if m := buildingRe.FindStringSubmatch(trimmed); m != nil {
		return Event{Kind: KindBuildingWheel, Token: m[1]}
	}

	if m := cachedRe.FindStringSubmatch(trimmed); m != nil {
		return Event{Kind: KindUsingCached, Token: m[1]}
	}

	return Event{}
}

// PackageFromFilename derives a package name from a wheel or sdist filename
// token by taking the run of characters before the first '-'. Wheel filenames
// are hyphen-delimited with the name first; names that themselves contain
// hyphens will be truncated. Known limitation.
func PackageFromFilename(token string) string {
	if token == "" {
		return ""
	}
	if idx := strings.IndexByte(token, '-'); idx >= 0 {
		return token[:idx]
	}
	return token
}
