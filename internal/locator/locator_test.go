package locator

import (
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

const (
	testURL       = "https://sbp.enterprisedb.com/getfile.jsp?fileid=1259400"
	testURLOlder  = "https://sbp.enterprisedb.com/getfile.jsp?fileid=1258000"
	testMarker    = `<img src="/win.png" alt="Windows x86-64">`
	testMacMarker = `<img src="/mac.png" alt="Mac OS X">`
)

func anchor(url string) string {
	return fmt.Sprintf(`<a href="%s">`, url)
}

// TestFind_AnchorWrapsMarker covers the vendor's usual structure where the
// anchor directly wraps the platform image, even on a single markup line.
func TestFind_AnchorWrapsMarker(t *testing.T) {
	t.Parallel()

	page := `<div>` + anchor(testURL) + testMarker + `</a></div>`

	url, err := FindLatest(page)
	require.NoError(t, err)
	require.Equal(t, testURL, url)
}

// TestFind_FirstMarkerWins ensures the topmost qualifying marker is used and
// the scan stops there: newest releases are listed first.
func TestFind_FirstMarkerWins(t *testing.T) {
	t.Parallel()

	page := strings.Join([]string{
		anchor(testURL) + testMarker + "</a>",
		anchor(testURLOlder) + testMarker + "</a>",
	}, "\n")

	url, err := FindLatest(page)
	require.NoError(t, err)
	require.Equal(t, testURL, url)
}

// TestFind_SkipsDisqualifiedMarker ensures a marker with no anchor in its
// window does not end the scan; the next marker still qualifies.
func TestFind_SkipsDisqualifiedMarker(t *testing.T) {
	t.Parallel()

	page := strings.Join([]string{
		"decorative header art",
		testMarker, // no anchor anywhere near it
		"filler", "filler", "filler", "filler", "filler", "filler", "filler",
		anchor(testURLOlder) + testMarker + "</a>",
	}, "\n")

	url, err := FindLatest(page)
	require.NoError(t, err)
	require.Equal(t, testURLOlder, url)
}

// TestFind_IgnoresOtherPlatforms ensures anchors tied to a different platform
// label are not picked up.
func TestFind_IgnoresOtherPlatforms(t *testing.T) {
	t.Parallel()

	page := anchor(testURL) + testMacMarker + "</a>"

	_, err := FindLatest(page)
	require.ErrorIs(t, err, ErrLinkNotFound)
}

// TestFind_NotFound ensures an exhausted page yields the sentinel error.
func TestFind_NotFound(t *testing.T) {
	t.Parallel()

	_, err := FindLatest("<html><body>nothing to see</body></html>")
	require.ErrorIs(t, err, ErrLinkNotFound)
}

// TestFind_WindowBoundary pins the exact bound of the backward window on the
// normalized line stream: the anchor at the boundary is found, one line
// further back is not. Note normalization splits the marker tag onto its own
// line, which adds one line between the fillers and the marker.
func TestFind_WindowBoundary(t *testing.T) {
	t.Parallel()

	buildPage := func(fillers int) string {
		lines := []string{anchor(testURL)}
		for i := 0; i < fillers; i++ {
			lines = append(lines, "filler")
		}

		return strings.Join(append(lines, testMarker), "\n")
	}

	// Anchor sits exactly WindowSize lines back: 4 fillers, the line split
	// off ahead of the marker tag, and the anchor's own line.
	url, err := FindLatest(buildPage(4))
	require.NoError(t, err)
	require.Equal(t, testURL, url)

	// One more filler pushes the anchor just outside the window.
	_, err = FindLatest(buildPage(5))
	require.ErrorIs(t, err, ErrLinkNotFound)
}

// TestRecentLines_Bounds exercises the ring buffer in isolation: back is
// 1-based, bounded by WindowSize, and evicts oldest-first.
func TestRecentLines_Bounds(t *testing.T) {
	t.Parallel()

	var r recentLines

	_, ok := r.back(1)
	require.False(t, ok)

	for i := 1; i <= WindowSize+2; i++ {
		r.push(fmt.Sprintf("line-%d", i))
	}

	newest, ok := r.back(1)
	require.True(t, ok)
	require.Equal(t, fmt.Sprintf("line-%d", WindowSize+2), newest)

	oldest, ok := r.back(WindowSize)
	require.True(t, ok)
	require.Equal(t, "line-3", oldest)

	_, ok = r.back(WindowSize + 1)
	require.False(t, ok)

	_, ok = r.back(0)
	require.False(t, ok)
}
