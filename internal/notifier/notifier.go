package notifier

import (
	"context"
	"fmt"
	"io"
	"strings"
	"unicode/utf8"

	"github.com/pfrederiksen/minerva-scrape/internal/event"
)

// Channel names accepted by New.
const (
	ChannelNone    = "none"
	ChannelDryRun  = "dryrun"
	ChannelTwitter = "twitter"
)

// maxStatusLength is the Twitter status limit in characters.
const maxStatusLength = 280

// Notifier defines the interface for announcing a new rotation
type Notifier interface {
	// Notify announces the rotation described by rec
	Notify(ctx context.Context, rec *event.Record) error
}

// New returns the notifier for channel. ChannelNone and "" yield nil.
// Twitter credentials are read from the environment.
func New(ctx context.Context, channel string, dryRunOut io.Writer) (Notifier, error) {
	switch channel {
	case ChannelNone, "":
		return nil, nil
	case ChannelDryRun:
		return NewDryRunNotifier(dryRunOut), nil
	case ChannelTwitter:
		n, err := NewTwitterNotifier(ctx, CredentialsFromEnv())
		if err != nil {
			return nil, err
		}
		return n, nil
	default:
		return nil, fmt.Errorf("unknown notify channel %q", channel)
	}
}

// formatStatus formats a record as a status update
func formatStatus(rec *event.Record) string {
	var b strings.Builder
	b.WriteString("🛒 New Minerva rotation!\n\n")
	fmt.Fprintf(&b, "📦 %s\n", rec.Event)

	if rec.Location != "" {
		fmt.Fprintf(&b, "📍 %s\n", rec.Location)
	}

	if rec.From != "" && rec.To != "" {
		fmt.Fprintf(&b, "📅 %s - %s\n", rec.From, rec.To)
	}

	if rec.ItemCount > 0 {
		fmt.Fprintf(&b, "📜 %d plans on offer\n", rec.ItemCount)
	}

	b.WriteString("\n#Fallout76 #Minerva")

	status := b.String()
	if utf8.RuneCountInString(status) > maxStatusLength {
		runes := []rune(status)
		status = string(runes[:maxStatusLength-3]) + "..."
	}

	return status
}
