package event

import (
	"crypto/sha1"
	"fmt"
	"strconv"
	"time"
)

// TimeLayout renders lastUpdated as an ISO-8601 UTC timestamp with
// millisecond precision.
const TimeLayout = "2006-01-02T15:04:05.000Z07:00"

// Record is the structured Minerva event.
type Record struct {
	Location    string   `json:"location"`
	Event       string   `json:"event"`
	List        *int     `json:"list"`
	From        string   `json:"from"`
	To          string   `json:"to"`
	ItemCount   int      `json:"itemCount"`
	Items       []string `json:"items"`
	Source      string   `json:"source"`
	LastUpdated string   `json:"lastUpdated"`
}

// FormatTime formats t in TimeLayout after converting it to UTC.
func FormatTime(t time.Time) string {
	return t.UTC().Format(TimeLayout)
}

// ListText returns the list number as text, or "" when the event has none.
func (r *Record) ListText() string {
	if r.List == nil {
		return ""
	}
	return strconv.Itoa(*r.List)
}

// Unresolved names the extracted fields that came out empty.
func (r *Record) Unresolved() []string {
	var fields []string
	if r.Location == "" {
		fields = append(fields, "location")
	}
	if r.From == "" {
		fields = append(fields, "from")
	}
	if r.To == "" {
		fields = append(fields, "to")
	}
	return fields
}

// RotationKey identifies the rotation a record describes. It ignores items
// and the capture time, so re-scraping the same rotation yields the same key.
func (r *Record) RotationKey() string {
	h := sha1.New()
	h.Write([]byte(r.Event + "|" + r.ListText() + "|" + r.From))
	return fmt.Sprintf("%x", h.Sum(nil))
}
