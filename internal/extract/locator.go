package extract

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/pfrederiksen/minerva-scrape/internal/pattern"
)

// Occurrence is the line announcing the active event.
type Occurrence struct {
	LineIndex int
	RawLine   string
	// List is nil for variants without a numbered list, e.g. a flat sale.
	List *int
}

// Locate returns the first line that contains the event name and at least one
// of the required tokens. Pages list the active occurrence first, so the
// earliest match wins.
func Locate(text Text, lib pattern.Library) (Occurrence, error) {
	occ, ok := scanFrom(text, 0, lib)
	if !ok {
		return Occurrence{}, notFound(lib)
	}
	return occ, nil
}

func notFound(lib pattern.Library) error {
	return fmt.Errorf("%w: no line names %q with any of %q",
		ErrEventNotFound, lib.EventName(), lib.RequiredTokens())
}

// Scope trims text to start at the anchor line. The whole text is returned
// when the library has no anchor or the anchor line is absent.
func Scope(text Text, lib pattern.Library) Text {
	if i := anchorIndex(text, lib.Anchor()); i >= 0 {
		return text[i:]
	}
	return text
}

// LocateScoped runs Locate over the anchor scope of text and falls back to
// the whole text when the scope holds no event line. LineIndex always refers
// to text.
func LocateScoped(text Text, lib pattern.Library) (Occurrence, error) {
	scoped := Scope(text, lib)
	offset := len(text) - len(scoped)

	occ, ok := FirstOf(
		func() (Occurrence, bool) {
			occ, err := Locate(scoped, lib)
			if err != nil {
				return Occurrence{}, false
			}
			occ.LineIndex += offset
			return occ, true
		},
		func() (Occurrence, bool) {
			if offset == 0 {
				return Occurrence{}, false
			}
			return scanFrom(text, 0, lib)
		},
	)
	if !ok {
		return Occurrence{}, notFound(lib)
	}
	return occ, nil
}

func anchorIndex(text Text, anchor string) int {
	if anchor == "" {
		return -1
	}
	for i, line := range text {
		if strings.Contains(line, anchor) {
			return i
		}
	}
	return -1
}

func scanFrom(text Text, start int, lib pattern.Library) (Occurrence, bool) {
	name := lib.EventName()
	tokens := lib.RequiredTokens()
	for i := start; i < len(text); i++ {
		line := text[i]
		if !strings.Contains(line, name) || !containsAny(line, tokens) {
			continue
		}
		return Occurrence{
			LineIndex: i,
			RawLine:   line,
			List:      ListNumber(line, lib),
		}, true
	}
	return Occurrence{}, false
}

func containsAny(s string, tokens []string) bool {
	for _, t := range tokens {
		if t != "" && strings.Contains(s, t) {
			return true
		}
	}
	return false
}

// ListNumber extracts the list number from an event line, or nil when the
// line carries none.
func ListNumber(line string, lib pattern.Library) *int {
	m := lib.ListMarker.FindStringSubmatch(line)
	if m == nil {
		return nil
	}
	n, err := strconv.Atoi(m[1])
	if err != nil || n <= 0 {
		return nil
	}
	return &n
}
