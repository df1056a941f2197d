package extract

import (
	"strconv"

	"github.com/pfrederiksen/minerva-scrape/internal/pattern"
)

// Segment is the span [Start, End) of a source attributed to one list number.
// It begins at its own list marker and ends where the next marker of any
// number begins, or at the end of the source.
type Segment struct {
	List  int
	Start int
	End   int
}

// In returns the segment's text within src.
func (s Segment) In(src string) string {
	return src[s.Start:s.End]
}

// Segments partitions src at every "(List N)" or "List N" marker. Segments
// are ordered by Start and never overlap; text before the first marker
// belongs to no segment.
func Segments(src string, lib pattern.Library) []Segment {
	var segs []Segment
	for _, m := range lib.SegmentMarker.FindAllStringSubmatchIndex(src, -1) {
		digits := ""
		switch {
		case m[2] >= 0:
			digits = src[m[2]:m[3]]
		case m[4] >= 0:
			digits = src[m[4]:m[5]]
		}
		n, err := strconv.Atoi(digits)
		if err != nil {
			continue
		}
		if len(segs) > 0 {
			segs[len(segs)-1].End = m[0]
		}
		segs = append(segs, Segment{List: n, Start: m[0], End: len(src)})
	}
	return segs
}

// SelectSegment returns the text of the segment for list that yields the
// most items. A list number can recur on one page, e.g. as a highlighted
// sale block and again inside the full table, and marker boundaries are
// guesses, so the item count is used to pick between candidates. Ties keep
// the earliest. A decoy block with more stray matches would win, which is a
// known weakness of this rule. It returns "" when no marker carries list.
func SelectSegment(src string, list int, lib pattern.Library) string {
	best, bestCount := "", -1
	for _, seg := range Segments(src, lib) {
		if seg.List != list {
			continue
		}
		text := seg.In(src)
		if n := len(Items(text, lib)); n > bestCount {
			best, bestCount = text, n
		}
	}
	return best
}

// Section returns the lines that follow the event line up to the next event
// heading. It serves variants that carry no list number, where items sit
// directly under the event on the main page.
func Section(text Text, occ Occurrence, lib pattern.Library) string {
	if occ.LineIndex < 0 || occ.LineIndex >= len(text) {
		return ""
	}
	end := len(text)
	for i := occ.LineIndex + 1; i < len(text); i++ {
		if lib.SectionStop.MatchString(text[i]) {
			end = i
			break
		}
	}
	return text[occ.LineIndex+1 : end].String()
}
