package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"time"

	"github.com/pfrederiksen/minerva-scrape/internal/app"
	"github.com/pfrederiksen/minerva-scrape/internal/event"
)

// OutputFormat specifies the output format
type OutputFormat string

const (
	FormatText OutputFormat = "text"
	FormatJSON OutputFormat = "json"
)

// SourceResult summarises one item source attempt.
type SourceResult struct {
	Label string `json:"label"`
	Items int    `json:"items"`
	Error string `json:"error,omitempty"`
}

// OutputResult contains data to be output
type OutputResult struct {
	CheckedAt  *time.Time      `json:"checked_at,omitempty"`
	CycleID    string          `json:"cycle_id,omitempty"`
	Record     *event.Record   `json:"record"`
	Changes    []*event.Change `json:"changes,omitempty"`
	Sources    []SourceResult  `json:"sources,omitempty"`
	Unresolved []string        `json:"unresolved,omitempty"`
	Output     string          `json:"output,omitempty"`
	Saved      bool            `json:"saved"`
}

// NewOutputResult builds the output of a finished cycle.
func NewOutputResult(report *app.Report, checkedAt time.Time) *OutputResult {
	result := &OutputResult{
		CheckedAt:  &checkedAt,
		CycleID:    report.CycleID,
		Record:     report.Record,
		Changes:    report.Changes,
		Unresolved: report.Unresolved,
		Output:     report.Output,
		Saved:      report.Saved,
	}
	for _, a := range report.Attempts {
		sr := SourceResult{Label: a.Label, Items: a.Items}
		if a.Err != nil {
			sr.Error = a.Err.Error()
		}
		result.Sources = append(result.Sources, sr)
	}
	return result
}

// WriteOutput writes the result in the specified format
func WriteOutput(w io.Writer, result *OutputResult, format OutputFormat, verbose bool) error {
	switch format {
	case FormatJSON:
		return writeJSON(w, result)
	case FormatText:
		return writeText(w, result, verbose)
	default:
		return fmt.Errorf("unknown format: %s", format)
	}
}

// WriteHistory writes the recorded rotations, oldest first.
func WriteHistory(w io.Writer, records []*event.Record, format OutputFormat) error {
	switch format {
	case FormatJSON:
		if records == nil {
			records = make([]*event.Record, 0)
		}
		return writeJSON(w, records)
	case FormatText:
		if len(records) == 0 {
			fmt.Fprintln(w, "No rotations recorded.")
			return nil
		}
		for _, rec := range records {
			fmt.Fprintf(w, "%s  %s", rec.LastUpdated, rec.Event)
			if rec.Location != "" {
				fmt.Fprintf(w, " @ %s", rec.Location)
			}
			fmt.Fprintf(w, " (%d items)\n", rec.ItemCount)
		}
		fmt.Fprintf(w, "\nTotal: %d rotations\n", len(records))
		return nil
	default:
		return fmt.Errorf("unknown format: %s", format)
	}
}

// writeJSON outputs results as JSON
func writeJSON(w io.Writer, v any) error {
	encoder := json.NewEncoder(w)
	encoder.SetEscapeHTML(false)
	encoder.SetIndent("", "  ")
	return encoder.Encode(v)
}

// writeText outputs results as human-readable text
func writeText(w io.Writer, result *OutputResult, verbose bool) error {
	rec := result.Record

	switch {
	case result.Saved:
		fmt.Fprintf(w, "✓ %s updated\n", result.Output)
	case result.CycleID != "":
		fmt.Fprintln(w, "Record extracted (not saved)")
	default:
		fmt.Fprintf(w, "Record from %s\n", result.Output)
	}

	fmt.Fprintf(w, "  Location: %s\n", orUnknown(rec.Location))
	fmt.Fprintf(w, "  Event:    %s\n", rec.Event)
	fmt.Fprintf(w, "  From:     %s\n", orUnknown(rec.From))
	fmt.Fprintf(w, "  To:       %s\n", orUnknown(rec.To))
	if rec.Source != "" {
		fmt.Fprintf(w, "  Items:    %d (from %s)\n", rec.ItemCount, rec.Source)
	} else {
		fmt.Fprintf(w, "  Items:    %d\n", rec.ItemCount)
	}
	if verbose {
		fmt.Fprintf(w, "  Updated:  %s\n", rec.LastUpdated)
		for _, it := range rec.Items {
			fmt.Fprintf(w, "    %s\n", it)
		}
		if len(rec.Items) < rec.ItemCount {
			fmt.Fprintf(w, "    ... %d more\n", rec.ItemCount-len(rec.Items))
		}
		for _, s := range result.Sources {
			if s.Error != "" {
				fmt.Fprintf(w, "  Source %s: unavailable (%s)\n", s.Label, s.Error)
			} else {
				fmt.Fprintf(w, "  Source %s: %d items\n", s.Label, s.Items)
			}
		}
	}

	if len(result.Changes) > 0 {
		fmt.Fprintf(w, "\nChanges:\n")
		for _, c := range result.Changes {
			switch {
			case c.OldValue != "" && c.NewValue != "":
				fmt.Fprintf(w, "  %s: %s -> %s\n", c.ChangeType, c.OldValue, c.NewValue)
			case c.NewValue != "":
				fmt.Fprintf(w, "  %s: %s\n", c.ChangeType, c.NewValue)
			default:
				fmt.Fprintf(w, "  %s: %s\n", c.ChangeType, c.OldValue)
			}
		}
	}

	return nil
}

func orUnknown(s string) string {
	if s == "" {
		return "(unknown)"
	}
	return s
}
