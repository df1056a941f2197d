package extract

import "strings"

// Text is scraped text reduced to trimmed, non-empty lines in document order.
// Callers treat it as read-only.
type Text []string

// Normalize splits raw into trimmed lines and drops the empty ones.
func Normalize(raw string) Text {
	raw = strings.ReplaceAll(raw, "\r\n", "\n")
	raw = strings.ReplaceAll(raw, "\r", "\n")

	lines := make(Text, 0, strings.Count(raw, "\n")+1)
	for _, line := range strings.Split(raw, "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		lines = append(lines, line)
	}
	return lines
}

// String joins the lines back into a newline-delimited blob.
func (t Text) String() string {
	return strings.Join(t, "\n")
}
