// Package index queries a PEP 503 "simple" package index for the release
// filenames of a project and derives the available versions from them. It is
// informational only: installs always go through pip, which does its own
// resolution.
package index

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"regexp"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
)

// Client fetches project pages from a simple index.
type Client struct {
	baseURL string
	http    *http.Client
}

// NewClient creates a client for the given simple-index root
// (e.g. "https://pypi.org/simple").
func NewClient(baseURL string) *Client {
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    &http.Client{Timeout: 30 * time.Second},
	}
}

// Versions returns the distinct release versions of pkg known to the index,
// oldest first.
func (c *Client) Versions(ctx context.Context, pkg string) ([]string, error) {
	url := fmt.Sprintf("%s/%s/", c.baseURL, projectPath(pkg))
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("querying index for %s: %w", pkg, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return nil, fmt.Errorf("package %s not found in index", pkg)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("index returned %s for %s", resp.Status, pkg)
	}

	return ParseVersions(pkg, resp.Body)
}

// ParseVersions extracts release versions for pkg from a simple-index project
// page. Each anchor's text is a release filename; versions that cannot be
// derived are skipped.
func ParseVersions(pkg string, r io.Reader) ([]string, error) {
	doc, err := goquery.NewDocumentFromReader(r)
	if err != nil {
		return nil, fmt.Errorf("parsing index page: %w", err)
	}

	seen := make(map[string]bool)
	var versions []string
	doc.Find("a").Each(func(_ int, s *goquery.Selection) {
		version := versionFromFilename(pkg, strings.TrimSpace(s.Text()))
		if version == "" || seen[version] {
			return
		}
		seen[version] = true
		versions = append(versions, version)
	})

	sort.Slice(versions, func(i, j int) bool {
		return compareVersions(versions[i], versions[j]) < 0
	})
	return versions, nil
}

var archiveSuffixes = []string{".tar.gz", ".tar.bz2", ".zip", ".tgz"}

// versionFromFilename derives the version from a wheel or sdist filename.
// Wheels are "name-version-pytag-abitag-platform.whl"; sdists are
// "name-version.<archive suffix>".
func versionFromFilename(pkg, filename string) string {
	if strings.HasSuffix(filename, ".whl") {
		parts := strings.Split(strings.TrimSuffix(filename, ".whl"), "-")
		if len(parts) < 2 {
			return ""
		}
		if normalize(parts[0]) != normalize(pkg) {
			return ""
		}
		return parts[1]
	}

	for _, suffix := range archiveSuffixes {
		if !strings.HasSuffix(filename, suffix) {
			continue
		}
		stem := strings.TrimSuffix(filename, suffix)
		idx := strings.LastIndexByte(stem, '-')
		if idx <= 0 {
			return ""
		}
		if normalize(stem[:idx]) != normalize(pkg) {
			return ""
		}
		return stem[idx+1:]
	}
	return ""
}

var nameSeparators = regexp.MustCompile(`[-_.]+`)

// normalize applies PEP 503 name normalization.
func normalize(name string) string {
	return strings.ToLower(nameSeparators.ReplaceAllString(name, "-"))
}

// projectPath is the normalized URL path segment for a project.
func projectPath(pkg string) string {
	return normalize(pkg)
}

// compareVersions orders dotted version strings numerically where possible,
// falling back to lexical comparison for non-numeric segments.
func compareVersions(a, b string) int {
	as := strings.Split(a, ".")
	bs := strings.Split(b, ".")
	for i := 0; i < len(as) && i < len(bs); i++ {
		an, aerr := strconv.Atoi(as[i])
		bn, berr := strconv.Atoi(bs[i])
		switch {
		case aerr == nil && berr == nil:
			if an != bn {
				if an < bn {
					return -1
				}
				return 1
			}
		default:
			if cmp := strings.Compare(as[i], bs[i]); cmp != 0 {
				return cmp
			}
		}
	}
	return len(as) - len(bs)
}
