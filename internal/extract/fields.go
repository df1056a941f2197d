package extract

import (
	"strings"

	"github.com/pfrederiksen/minerva-scrape/internal/pattern"
)

// DefaultWindow is the number of lines, starting at the event line, within
// which the date range appears on every page layout seen so far.
const DefaultWindow = 8

// DateRange holds the validity window as collapsed text. Empty strings mean
// the range could not be resolved.
type DateRange struct {
	From string
	To   string
}

// Location reads the location from the line after the event line. The label
// is stripped and the text is cut where an inline date range begins.
func Location(text Text, lineIndex int, lib pattern.Library) string {
	next := lineIndex + 1
	if lineIndex < 0 || next >= len(text) {
		return ""
	}

	loc := strings.TrimSpace(text[next])
	if label := lib.LocationLabel(); label != "" {
		loc = strings.TrimSpace(strings.TrimPrefix(loc, label))
	}
	if m := lib.Weekday.FindStringSubmatchIndex(loc); m != nil {
		loc = loc[:m[2]]
	}
	return strings.TrimRight(strings.TrimSpace(loc), " ,;|-–")
}

// DateWindow searches lines [lineIndex, lineIndex+window) for the date range.
// The joined window is tried first so ranges split over adjacent lines are
// found; each line is then tried on its own.
func DateWindow(text Text, lineIndex, window int, lib pattern.Library) DateRange {
	if lineIndex < 0 || lineIndex >= len(text) {
		return DateRange{}
	}
	if window <= 0 {
		window = DefaultWindow
	}
	lines := text[lineIndex:min(lineIndex+window, len(text))]

	strategies := []Strategy[DateRange]{
		func() (DateRange, bool) { return matchRange(strings.Join(lines, "\n"), lib) },
	}
	for _, line := range lines {
		strategies = append(strategies, func() (DateRange, bool) { return matchRange(line, lib) })
	}

	dr, _ := FirstOf(strategies...)
	return dr
}

func matchRange(s string, lib pattern.Library) (DateRange, bool) {
	m := lib.DateRange.FindStringSubmatch(s)
	if m == nil {
		return DateRange{}, false
	}
	return DateRange{
		From: collapse(m[1], lib),
		To:   collapse(m[2], lib),
	}, true
}

func collapse(s string, lib pattern.Library) string {
	return strings.TrimSpace(lib.Whitespace.ReplaceAllString(s, " "))
}
