// Package app runs one scrape cycle: fetch the pages, extract the record,
// compare it with the stored one, persist it, and account for the run in logs
// and metrics.
package app

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/pfrederiksen/minerva-scrape/internal/config"
	"github.com/pfrederiksen/minerva-scrape/internal/event"
	"github.com/pfrederiksen/minerva-scrape/internal/extract"
	"github.com/pfrederiksen/minerva-scrape/internal/logger"
	"github.com/pfrederiksen/minerva-scrape/internal/metrics"
	"github.com/pfrederiksen/minerva-scrape/internal/notifier"
	"github.com/pfrederiksen/minerva-scrape/internal/scraper"
	"github.com/pfrederiksen/minerva-scrape/internal/storage"
)

// Fetcher retrieves page text.
type Fetcher interface {
	FetchTextScoped(ctx context.Context, url, scope string) (string, error)
	Loader(url, scope string) extract.Loader
}

// Runner executes scrape cycles for one configuration.
type Runner struct {
	cfg      *config.Config
	fetcher  Fetcher
	metrics  *metrics.Manager
	notifier notifier.Notifier
	log      *logger.Logger
	now      func() time.Time
	dryRun   bool
}

// Option configures a Runner.
type Option func(*Runner)

// WithFetcher replaces the HTTP scraper.
func WithFetcher(f Fetcher) Option {
	return func(r *Runner) {
		if f != nil {
			r.fetcher = f
		}
	}
}

// WithMetrics sets the metrics manager.
func WithMetrics(m *metrics.Manager) Option {
	return func(r *Runner) {
		if m != nil {
			r.metrics = m
		}
	}
}

// WithNotifier announces new rotations through n.
func WithNotifier(n notifier.Notifier) Option {
	return func(r *Runner) {
		r.notifier = n
	}
}

// WithLogger sets the logger.
func WithLogger(l *logger.Logger) Option {
	return func(r *Runner) {
		if l != nil {
			r.log = l
		}
	}
}

// WithClock sets the clock used for capture timestamps and durations.
func WithClock(now func() time.Time) Option {
	return func(r *Runner) {
		if now != nil {
			r.now = now
		}
	}
}

// WithDryRun skips writing the record file and the history.
func WithDryRun(dryRun bool) Option {
	return func(r *Runner) {
		r.dryRun = dryRun
	}
}

// New creates a Runner for cfg.
func New(cfg *config.Config, opts ...Option) *Runner {
	r := &Runner{
		cfg: cfg,
		fetcher: scraper.New(
			scraper.WithTimeout(cfg.Timeout),
			scraper.WithUserAgent(cfg.UserAgent),
			scraper.WithRetries(cfg.Retries),
			scraper.WithRate(cfg.RatePerSecond),
		),
		metrics: metrics.NewManager(),
		log:     logger.Default(),
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Report describes the outcome of one cycle.
type Report struct {
	CycleID    string
	Record     *event.Record
	Previous   *event.Record
	Changes    []*event.Change
	Attempts   []extract.Attempt
	Unresolved []string
	Output     string
	Saved      bool
	// NewHistory is set when the cycle added a rotation to the history.
	NewHistory bool
	Notified   bool
	Duration   time.Duration
}

// Partial reports whether the record is missing fields or items.
func (r *Report) Partial() bool {
	return len(r.Unresolved) > 0 || r.Record.ItemCount == 0
}

// Scrape fetches the main page and the configured item sources and
// processes the result. Failing to fetch the main page fails the cycle;
// item sources that fail are skipped.
func (r *Runner) Scrape(ctx context.Context) (*Report, error) {
	cycle := r.begin()

	cycle.log.Info("Fetching main page", logger.Fields{"url": r.cfg.MainURL})
	mainText, err := r.fetcher.FetchTextScoped(ctx, r.cfg.MainURL, r.cfg.MainScope)
	if err != nil {
		err = fmt.Errorf("fetching main page: %w", err)
		r.fail(cycle, err)
		return nil, err
	}

	sources := make([]extract.Source, 0, len(r.cfg.Sources))
	for _, src := range r.cfg.Sources {
		sources = append(sources, extract.Source{
			Label: src.Label,
			Load:  r.fetcher.Loader(src.URL, src.Scope),
		})
	}

	return r.process(ctx, cycle, mainText, sources)
}

// Extract processes already retrieved text.
func (r *Runner) Extract(ctx context.Context, mainText string, sources []extract.Source) (*Report, error) {
	return r.process(ctx, r.begin(), mainText, sources)
}

type cycle struct {
	id    string
	start time.Time
	log   *logger.Logger
}

func (r *Runner) begin() *cycle {
	id := uuid.NewString()
	return &cycle{
		id:    id,
		start: r.now(),
		log:   r.log.With(logger.Fields{"cycle_id": id}),
	}
}

func (r *Runner) engine() *extract.Engine {
	return extract.New(r.cfg.Patterns(),
		extract.WithWindow(r.cfg.Window),
		extract.WithMaxItems(r.cfg.MaxItems),
		extract.WithClock(r.now),
		extract.WithMainFallback(r.cfg.MainFallback, extract.LabelMain),
	)
}

func (r *Runner) process(ctx context.Context, c *cycle, mainText string, sources []extract.Source) (*Report, error) {
	x, err := r.engine().Run(ctx, mainText, sources...)
	if err != nil {
		err = fmt.Errorf("extracting record: %w", err)
		r.fail(c, err)
		return nil, err
	}

	rec := x.Record
	report := &Report{
		CycleID:    c.id,
		Record:     rec,
		Attempts:   x.Chain.Attempts,
		Unresolved: rec.Unresolved(),
		Output:     r.cfg.Output,
	}

	r.logAttempts(c, x.Chain.Attempts)
	for _, field := range report.Unresolved {
		c.log.Warn("Field unresolved", logger.Fields{"field": field, "event": rec.Event})
		r.metrics.RecordUnresolved(field)
	}
	if rec.ItemCount == 0 {
		c.log.Warn("No items found", logger.Fields{"event": rec.Event, "list": rec.ListText()})
	}

	previous, err := storage.LoadRecord(r.cfg.Output)
	if err != nil {
		c.log.Warn("Ignoring unreadable previous record", logger.Fields{"path": r.cfg.Output, "error": err.Error()})
		previous = nil
	}
	report.Previous = previous
	report.Changes = event.Diff(previous, rec)
	for _, ch := range report.Changes {
		c.log.Info("Record changed", logger.Fields{
			"change": ch.ChangeType,
			"old":    ch.OldValue,
			"new":    ch.NewValue,
		})
	}

	if !r.dryRun {
		if err := r.persist(c, report); err != nil {
			r.fail(c, err)
			return nil, err
		}
		r.announce(ctx, c, report)
	}

	report.Duration = r.now().Sub(c.start)
	result := metrics.ResultSuccess
	if report.Partial() {
		result = metrics.ResultPartial
	}
	r.metrics.SetItems(rec.ItemCount)
	r.metrics.RecordRun(result, report.Duration, r.now())
	r.writeMetrics(c)

	c.log.Info("Cycle complete", logger.Fields{
		"event":      rec.Event,
		"list":       rec.ListText(),
		"location":   rec.Location,
		"item_count": rec.ItemCount,
		"source":     rec.Source,
		"saved":      report.Saved,
		"changes":    len(report.Changes),
		"duration":   report.Duration.String(),
	})
	return report, nil
}

func (r *Runner) persist(c *cycle, report *Report) error {
	if err := storage.SaveRecord(r.cfg.Output, report.Record); err != nil {
		return fmt.Errorf("saving record: %w", err)
	}
	report.Saved = true

	store, err := storage.New(r.cfg.DataDir)
	if err != nil {
		c.log.Warn("History unavailable", logger.Fields{"data_dir": r.cfg.DataDir, "error": err.Error()})
		return nil
	}
	added, err := store.AppendHistory(report.Record)
	if err != nil {
		c.log.Warn("Could not append history", logger.Fields{"error": err.Error()})
		return nil
	}
	report.NewHistory = added
	return nil
}

// announce notifies about a record only when it starts a new rotation.
func (r *Runner) announce(ctx context.Context, c *cycle, report *Report) {
	if r.notifier == nil || !event.NewRotation(report.Changes) {
		return
	}
	if err := r.notifier.Notify(ctx, report.Record); err != nil {
		c.log.Warn("Could not announce rotation", logger.Fields{"event": report.Record.Event, "error": err.Error()})
		return
	}
	report.Notified = true
	c.log.Info("Rotation announced", logger.Fields{"event": report.Record.Event})
}

func (r *Runner) logAttempts(c *cycle, attempts []extract.Attempt) {
	for _, a := range attempts {
		switch {
		case a.Err != nil:
			c.log.Warn("Item source unavailable", logger.Fields{"source": a.Label, "error": a.Err.Error()})
			r.metrics.RecordSourceAttempt(a.Label, metrics.OutcomeUnavailable)
		case a.Items == 0:
			c.log.Debug("Item source empty", logger.Fields{"source": a.Label})
			r.metrics.RecordSourceAttempt(a.Label, metrics.OutcomeEmpty)
		default:
			c.log.Debug("Item source used", logger.Fields{"source": a.Label, "items": a.Items})
			r.metrics.RecordSourceAttempt(a.Label, metrics.OutcomeItems)
		}
	}
}

func (r *Runner) fail(c *cycle, err error) {
	c.log.Error("Cycle failed", nil, err)
	r.metrics.RecordRun(metrics.ResultFailure, r.now().Sub(c.start), r.now())
	r.writeMetrics(c)
}

func (r *Runner) writeMetrics(c *cycle) {
	if r.cfg.MetricsFile == "" {
		return
	}
	if err := r.metrics.WriteFile(r.cfg.MetricsFile); err != nil {
		c.log.Warn("Could not write metrics", logger.Fields{"path": r.cfg.MetricsFile, "error": err.Error()})
	}
}
