package notifier

import (
	"context"
	"fmt"
	"io"
	"unicode/utf8"

	"github.com/pfrederiksen/minerva-scrape/internal/event"
)

// DryRunNotifier prints what would be posted without actually posting
type DryRunNotifier struct {
	w io.Writer
}

// NewDryRunNotifier creates a new dry-run notifier writing to w
func NewDryRunNotifier(w io.Writer) *DryRunNotifier {
	return &DryRunNotifier{w: w}
}

// Notify prints the status that would be posted
func (n *DryRunNotifier) Notify(_ context.Context, rec *event.Record) error {
	status := formatStatus(rec)
	fmt.Fprintln(n.w, "--- Status ---")
	fmt.Fprintln(n.w, status)
	fmt.Fprintf(n.w, "\n(Length: %d characters)\n", utf8.RuneCountInString(status))
	return nil
}
