package pattern

import "regexp"

// Defaults for the Minerva rotation pages.
const (
	EventName     = "Minerva"
	Anchor        = "Fallout 76 Minerva Dates:"
	LocationLabel = "Location:"
)

// RequiredTokens confirm that a line naming the event is the marker line
// and not a heading or a passing mention.
var RequiredTokens = []string{"List", "Big Sale"}

// stamp matches one textual timestamp such as "Mo, 15th Dec 2025 (12:00)".
const stamp = `[A-Za-z]+\.?,?\s+\d{1,2}(?:st|nd|rd|th)?\.?\s+[A-Za-z]+\.?\s+\d{4}[^\d\-–]*\d{1,2}:\d{2}\)?`

var (
	listMarker    = regexp.MustCompile(`\bList\s*(\d+)`)
	segmentMarker = regexp.MustCompile(`\(\s*List\s*(\d+)\s*\)|\bList\s*(\d+)`)
	dateRange     = regexp.MustCompile(`(` + stamp + `)\s*[-–]\s*(` + stamp + `)`)
	// An item's name must sit on one line. The price may follow on the next.
	item          = regexp.MustCompile(`Plan:\s*(.+?)\s+(\d{1,3}(?:[,.]\d{3})+|\d+)\s*Gold\b`)
	weekday       = regexp.MustCompile(`(?:^|\s)((?:Mon?|Tue?|Wed?|Thu?|Fri?|Sat?|Sun?)[.,])`)
	sectionStop   = regexp.MustCompile(`(?i)^(Minerva|Holiday|Double|Treasure)`)
	whitespace    = regexp.MustCompile(`\s+`)
)

// Library is the fixed set of patterns shared by every extraction stage.
// A Library is never mutated after construction; the With* methods return
// modified copies.
type Library struct {
	eventName      string
	requiredTokens []string
	anchor         string
	locationLabel  string

	ListMarker    *regexp.Regexp
	SegmentMarker *regexp.Regexp
	DateRange     *regexp.Regexp
	Item          *regexp.Regexp
	Weekday       *regexp.Regexp
	SectionStop   *regexp.Regexp
	Whitespace    *regexp.Regexp
}

// Default returns the library tuned for the Minerva pages.
func Default() Library {
	return Library{
		eventName:      EventName,
		requiredTokens: append([]string(nil), RequiredTokens...),
		anchor:         Anchor,
		locationLabel:  LocationLabel,
		ListMarker:     listMarker,
		SegmentMarker:  segmentMarker,
		DateRange:      dateRange,
		Item:           item,
		Weekday:        weekday,
		SectionStop:    sectionStop,
		Whitespace:     whitespace,
	}
}

// WithEvent returns a copy matching a different event family. Empty
// arguments keep the current values.
func (l Library) WithEvent(name string, tokens ...string) Library {
	if name != "" {
		l.eventName = name
	}
	if len(tokens) > 0 {
		l.requiredTokens = append([]string(nil), tokens...)
	}
	return l
}

// WithAnchor returns a copy using anchor to scope the event scan.
// An empty anchor disables scoping.
func (l Library) WithAnchor(anchor string) Library {
	l.anchor = anchor
	return l
}

// EventName returns the name every event line must contain.
func (l Library) EventName() string { return l.eventName }

// Anchor returns the line that scopes the event scan, or "" when unscoped.
func (l Library) Anchor() string { return l.anchor }

// LocationLabel returns the label stripped from the location line.
func (l Library) LocationLabel() string { return l.locationLabel }

// RequiredTokens returns a copy of the confirming tokens.
func (l Library) RequiredTokens() []string {
	return append([]string(nil), l.requiredTokens...)
}
