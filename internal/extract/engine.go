package extract

import (
	"context"
	"time"

	"github.com/pfrederiksen/minerva-scrape/internal/event"
	"github.com/pfrederiksen/minerva-scrape/internal/pattern"
)

// Default labels for the sources passed to ExtractEventRecord.
const (
	LabelInventory = "inventory"
	LabelMirror    = "mirror"
	LabelMain      = "main"
)

// DefaultMaxItems caps the items kept in a record. ItemCount still reports
// every item found.
const DefaultMaxItems = 50

// Engine runs the extraction pipeline with a fixed configuration.
type Engine struct {
	lib          pattern.Library
	window       int
	maxItems     int
	mainLabel    string
	mainFallback bool
	now          func() time.Time
}

// Option configures an Engine.
type Option func(*Engine)

// WithWindow sets the number of lines searched for the date range.
func WithWindow(n int) Option {
	return func(e *Engine) {
		if n > 0 {
			e.window = n
		}
	}
}

// WithMaxItems caps the number of items kept in the record. Zero or a
// negative value keeps every item.
func WithMaxItems(n int) Option {
	return func(e *Engine) {
		e.maxItems = n
	}
}

// WithClock sets the source of the capture timestamp.
func WithClock(now func() time.Time) Option {
	return func(e *Engine) {
		if now != nil {
			e.now = now
		}
	}
}

// WithMainFallback controls whether the main page text is tried as the last
// item source, under label.
func WithMainFallback(enabled bool, label string) Option {
	return func(e *Engine) {
		e.mainFallback = enabled
		if label != "" {
			e.mainLabel = label
		}
	}
}

// New creates an Engine using lib.
func New(lib pattern.Library, opts ...Option) *Engine {
	e := &Engine{
		lib:          lib,
		window:       DefaultWindow,
		maxItems:     DefaultMaxItems,
		mainLabel:    LabelMain,
		mainFallback: true,
		now:          time.Now,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Extraction is a record together with the intermediate results that
// produced it.
type Extraction struct {
	Record     *event.Record
	Occurrence Occurrence
	Dates      DateRange
	Chain      ChainResult
}

// Run extracts the event record from mainText, reading items from sources in
// order. It fails only with ErrEventNotFound; every other shortfall leaves
// the corresponding record field empty.
func (e *Engine) Run(ctx context.Context, mainText string, sources ...Source) (*Extraction, error) {
	text := Normalize(mainText)

	occ, err := LocateScoped(text, e.lib)
	if err != nil {
		return nil, err
	}

	location := Location(text, occ.LineIndex, e.lib)
	dates := DateWindow(text, occ.LineIndex, e.window, e.lib)

	var chain ChainResult
	if occ.List != nil {
		if e.mainFallback {
			sources = append(sources[:len(sources):len(sources)], StaticSource(e.mainLabel, mainText))
		}
		chain = Chain(ctx, sources, *occ.List, e.lib)
	} else {
		// Unnumbered variants list their items under the event line only.
		section := Section(text, occ, e.lib)
		chain = ChainWith(ctx, []Source{StaticSource(e.mainLabel, section)}, func(s string) []string {
			return Items(s, e.lib)
		})
	}

	return &Extraction{
		Record:     Build(occ, location, dates, chain, e.maxItems, e.now()),
		Occurrence: occ,
		Dates:      dates,
		Chain:      chain,
	}, nil
}

// ExtractEventRecord is Run without the intermediate results.
func (e *Engine) ExtractEventRecord(ctx context.Context, mainText string, sources ...Source) (*event.Record, error) {
	x, err := e.Run(ctx, mainText, sources...)
	if err != nil {
		return nil, err
	}
	return x.Record, nil
}

// ExtractEventRecord extracts a record with the default patterns, reading
// items from the inventory text, then the mirror text, then the main text.
// Empty inventory or mirror text is skipped.
func ExtractEventRecord(mainText, inventoryText, mirrorText string) (*event.Record, error) {
	var sources []Source
	if inventoryText != "" {
		sources = append(sources, StaticSource(LabelInventory, inventoryText))
	}
	if mirrorText != "" {
		sources = append(sources, StaticSource(LabelMirror, mirrorText))
	}
	return New(pattern.Default()).ExtractEventRecord(context.Background(), mainText, sources...)
}

// Build assembles the record. It performs no validation: empty fields are
// left for consumers to treat as partial data.
func Build(occ Occurrence, location string, dates DateRange, chain ChainResult, maxItems int, capturedAt time.Time) *event.Record {
	items := chain.Items
	if maxItems > 0 && len(items) > maxItems {
		items = items[:maxItems]
	}

	var list *int
	if occ.List != nil {
		n := *occ.List
		list = &n
	}

	return &event.Record{
		Location:    location,
		Event:       occ.RawLine,
		List:        list,
		From:        dates.From,
		To:          dates.To,
		ItemCount:   len(chain.Items),
		Items:       append(make([]string, 0, len(items)), items...),
		Source:      chain.Source,
		LastUpdated: event.FormatTime(capturedAt),
	}
}
