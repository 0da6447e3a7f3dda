package locator

import (
	"bufio"
	"errors"
	"fmt"
	"regexp"
	"strings"
)

const (
	// DefaultPlatformLabel is the alt-text the vendor puts on the
	// platform marker image for 64-bit Windows builds.
	DefaultPlatformLabel = "Windows x86-64"

	// WindowSize bounds the backward search for an anchor near a platform
	// marker. An anchor exactly WindowSize lines back still qualifies.
	WindowSize = 6

	// maxLineLength is the scanner buffer cap for a single normalized line.
	maxLineLength = 1024 * 1024
)

// ErrLinkNotFound is returned when no download link qualifies anywhere on the
// page. It usually means the page structure changed and the patterns below
// need maintenance.
var ErrLinkNotFound = errors.New("no download link found on listing page")

// downloadLinkPattern matches the vendor's known download anchor and captures
// the archive URL.
var downloadLinkPattern = regexp.MustCompile(
	`<a\s[^>]*href="(https://sbp\.enterprisedb\.com/getfile\.jsp\?fileid=\d+)"`)

// Find scans the raw markup of the vendor download-listing page and returns
// the first archive URL associated with the given platform label.
//
// The markup is normalized so every tag starts its own line, then scanned in
// order. For each platform marker image, the preceding WindowSize lines are
// searched newest-first for a qualifying anchor. The first hit wins and the
// scan stops: the vendor lists newest releases first, so first match is the
// latest release. A marker with no qualifying anchor nearby is skipped and
// the scan continues - decorative images are not tied to a download.
func Find(page, platformLabel string) (string, error) {
	marker := fmt.Sprintf(`alt="%s"`, platformLabel)

	var recent recentLines

	scanner := bufio.NewScanner(strings.NewReader(normalize(page)))
	scanner.Buffer(make([]byte, 0, bufio.MaxScanTokenSize), maxLineLength)

	for scanner.Scan() {
		line := scanner.Text()

		if strings.Contains(line, "<img") && strings.Contains(line, marker) {
			if url, ok := recent.findAnchor(); ok {
				return url, nil
			}
		}

		recent.push(line)
	}

	if err := scanner.Err(); err != nil {
		return "", fmt.Errorf("scan listing page: %w", err)
	}

	return "", ErrLinkNotFound
}

// FindLatest is Find with the default Windows platform label.
func FindLatest(page string) (string, error) {
	return Find(page, DefaultPlatformLabel)
}

// normalize rewrites the markup so each tag starts a new line, splitting
// multi-tag lines apart. Line order is the only structure the scan relies on.
func normalize(page string) string {
	page = strings.ReplaceAll(page, "\r\n", "\n")

	return strings.ReplaceAll(page, "<", "\n<")
}

// recentLines is a fixed ring buffer of the lines preceding the scan cursor.
// Keeping the lookback explicit and bounded here keeps the locator contract
// testable without materializing the whole page as a line array.
type recentLines struct {
	lines [WindowSize]string
	next  int
	count int
}

// push appends a line, evicting the oldest once the window is full.
func (r *recentLines) push(line string) {
	r.lines[r.next] = line
	r.next = (r.next + 1) % WindowSize

	if r.count < WindowSize {
		r.count++
	}
}

// back returns the n-th most recent line (1-based). ok is false when fewer
// than n lines have been seen.
func (r *recentLines) back(n int) (string, bool) {
	if n < 1 || n > r.count {
		return "", false
	}

	return r.lines[(r.next-n+WindowSize)%WindowSize], true
}

// findAnchor searches the window newest-first for a qualifying download
// anchor and returns its URL.
func (r *recentLines) findAnchor() (string, bool) {
	for n := 1; n <= WindowSize; n++ {
		line, ok := r.back(n)
		if !ok {
			break
		}

		if match := downloadLinkPattern.FindStringSubmatch(line); match != nil {
			return match[1], true
		}
	}

	return "", false
}
