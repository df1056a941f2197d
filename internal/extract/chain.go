package extract

import (
	"context"
	"errors"
	"fmt"

	"github.com/pfrederiksen/minerva-scrape/internal/pattern"
)

// Loader produces the text of one item source. Network-backed loaders are
// the only blocking calls in an extraction.
type Loader func(ctx context.Context) (string, error)

// Source is a labelled item source. The label is recorded as provenance when
// the source supplies the items.
type Source struct {
	Label string
	Load  Loader
}

// StaticSource wraps already retrieved text.
func StaticSource(label, text string) Source {
	return Source{
		Label: label,
		Load:  func(context.Context) (string, error) { return text, nil },
	}
}

// Attempt records how one source fared in the chain.
type Attempt struct {
	Label string
	Items int
	Err   error
}

// Unavailable reports whether the source could not be retrieved.
func (a Attempt) Unavailable() bool {
	return errors.Is(a.Err, ErrSourceUnavailable)
}

// ChainResult is the outcome of a fallback chain.
type ChainResult struct {
	Items    []string
	Source   string
	Attempts []Attempt
}

// Chain reads items for list from each source in order and stops at the
// first source yielding any.
func Chain(ctx context.Context, sources []Source, list int, lib pattern.Library) ChainResult {
	return ChainWith(ctx, sources, func(text string) []string {
		return Items(SelectSegment(text, list, lib), lib)
	})
}

// ChainWith runs extractItems over sources one at a time, in order. A source
// that fails to load counts as empty. When every source is empty the result
// has no items and no source label.
func ChainWith(ctx context.Context, sources []Source, extractItems func(text string) []string) ChainResult {
	res := ChainResult{Items: make([]string, 0)}

	for _, src := range sources {
		text, err := load(ctx, src)
		if err != nil {
			res.Attempts = append(res.Attempts, Attempt{Label: src.Label, Err: err})
			continue
		}

		items := extractItems(Normalize(text).String())
		res.Attempts = append(res.Attempts, Attempt{Label: src.Label, Items: len(items)})
		if len(items) > 0 {
			res.Items = items
			res.Source = src.Label
			return res
		}
	}
	return res
}

func load(ctx context.Context, src Source) (string, error) {
	if src.Load == nil {
		return "", fmt.Errorf("%w: %s: no loader", ErrSourceUnavailable, src.Label)
	}
	text, err := src.Load(ctx)
	if err != nil {
		return "", fmt.Errorf("%w: %s: %w", ErrSourceUnavailable, src.Label, err)
	}
	return text, nil
}
