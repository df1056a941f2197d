// Package config defines the scraper configuration and how it is loaded.
//
// Values are layered, lowest precedence first: built-in defaults, an optional
// YAML file, MINERVA_* environment variables, and finally command-line flags
// applied by the cli package.
package config

import (
	"fmt"
	"slices"
	"strings"
	"time"

	"github.com/pfrederiksen/minerva-scrape/internal/pattern"
)

// Default values.
const (
	DefaultMainURL   = "https://nukaknights.com/en/"
	DefaultOutput    = "minerva.json"
	DefaultDataDir   = "~/.local/share/minerva-scrape"
	DefaultUserAgent = "minerva-scrape/1.0 (github.com/pfrederiksen/minerva-scrape)"
	DefaultTimeout   = 30 * time.Second
	DefaultRetries   = 3
	DefaultRate      = 1.0
	DefaultWindow    = 8
	DefaultMaxItems  = 50
)

var notifyChannels = []string{"none", "dryrun", "twitter"}

// Source is an item source tried, in order, before the main page.
type Source struct {
	// Label is recorded as provenance when the source supplies the items.
	Label string `koanf:"label"`
	URL   string `koanf:"url"`
	// Scope is an optional CSS selector limiting which part of the page is read.
	Scope string `koanf:"scope"`
}

// Config contains process configuration.
type Config struct {
	// MainURL is the page announcing the active event.
	MainURL   string `koanf:"main_url"`
	MainScope string `koanf:"main_scope"`

	// Anchor scopes the event scan to the text after this line when present.
	Anchor         string   `koanf:"anchor"`
	EventName      string   `koanf:"event_name"`
	RequiredTokens []string `koanf:"required_tokens"`

	// Window is the number of lines searched for the date range.
	Window int `koanf:"window"`

	// MaxItems caps the items written to the record; 0 keeps all.
	MaxItems int `koanf:"max_items"`

	// MainFallback tries the main page as the last item source.
	MainFallback bool `koanf:"main_fallback"`

	Sources []Source `koanf:"sources"`

	// Output is the record file read by the display front-end.
	Output string `koanf:"output"`

	// DataDir holds the rotation history.
	DataDir string `koanf:"data_dir"`

	Timeout       time.Duration `koanf:"timeout"`
	Retries       int           `koanf:"retries"`
	RatePerSecond float64       `koanf:"rate_per_second"`
	UserAgent     string        `koanf:"user_agent"`

	// LogLevel controls verbosity: debug, info, warn, error.
	LogLevel string `koanf:"log_level"`

	// MetricsFile, when set, receives Prometheus metrics in text format.
	MetricsFile string `koanf:"metrics_file"`

	// Notify names the channel announcing new rotations: none, dryrun or twitter.
	Notify string `koanf:"notify"`
}

// New creates a Config with defaults.
func New() *Config {
	return &Config{
		MainURL:        DefaultMainURL,
		Anchor:         pattern.Anchor,
		EventName:      pattern.EventName,
		RequiredTokens: append([]string(nil), pattern.RequiredTokens...),
		Window:         DefaultWindow,
		MaxItems:       DefaultMaxItems,
		MainFallback:   true,
		Output:         DefaultOutput,
		DataDir:        DefaultDataDir,
		Timeout:        DefaultTimeout,
		Retries:        DefaultRetries,
		RatePerSecond:  DefaultRate,
		UserAgent:      DefaultUserAgent,
		LogLevel:       "info",
		Notify:         "none",
	}
}

// Validate reports the first invalid setting.
func (c *Config) Validate() error {
	switch {
	case strings.TrimSpace(c.EventName) == "":
		return fmt.Errorf("%w: event_name must not be empty", ErrInvalidConfig)
	case len(c.RequiredTokens) == 0:
		return fmt.Errorf("%w: required_tokens must not be empty", ErrInvalidConfig)
	case c.Window <= 0:
		return fmt.Errorf("%w: window must be positive, got %d", ErrInvalidConfig, c.Window)
	case c.MaxItems < 0:
		return fmt.Errorf("%w: max_items must not be negative, got %d", ErrInvalidConfig, c.MaxItems)
	case c.Timeout <= 0:
		return fmt.Errorf("%w: timeout must be positive, got %s", ErrInvalidConfig, c.Timeout)
	case c.Retries < 0:
		return fmt.Errorf("%w: retries must not be negative, got %d", ErrInvalidConfig, c.Retries)
	case c.RatePerSecond < 0:
		return fmt.Errorf("%w: rate_per_second must not be negative", ErrInvalidConfig)
	case c.Output == "":
		return fmt.Errorf("%w: output must not be empty", ErrInvalidConfig)
	case !slices.Contains(notifyChannels, c.Notify):
		return fmt.Errorf("%w: notify must be one of %s, got %q", ErrInvalidConfig, strings.Join(notifyChannels, ", "), c.Notify)
	}

	seen := make(map[string]bool)
	for i, src := range c.Sources {
		if src.URL == "" {
			return fmt.Errorf("%w: sources[%d] has no url", ErrInvalidConfig, i)
		}
		label := src.Label
		if label == "" {
			return fmt.Errorf("%w: sources[%d] has no label", ErrInvalidConfig, i)
		}
		if seen[label] {
			return fmt.Errorf("%w: duplicate source label %q", ErrInvalidConfig, label)
		}
		seen[label] = true
	}
	return nil
}

// Patterns returns the pattern library for the configured event.
func (c *Config) Patterns() pattern.Library {
	return pattern.Default().
		WithEvent(c.EventName, c.RequiredTokens...).
		WithAnchor(c.Anchor)
}
