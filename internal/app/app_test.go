package app

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/prometheus/client_golang/prometheus/testutil"

	"github.com/pfrederiksen/minerva-scrape/internal/config"
	"github.com/pfrederiksen/minerva-scrape/internal/event"
	"github.com/pfrederiksen/minerva-scrape/internal/extract"
	"github.com/pfrederiksen/minerva-scrape/internal/logger"
	"github.com/pfrederiksen/minerva-scrape/internal/metrics"
	"github.com/pfrederiksen/minerva-scrape/internal/storage"
)

const mainPage = `Nuka Knights
Fallout 76 Minerva Dates:
Minerva (List 12) Big Sale
Location: Appalachia Mo, 15th Dec 2025 (12:00) - We, 17th Dec 2025 (12:00)
Minerva (List 13)
Location: Foundation Mo, 22nd Dec 2025 (12:00) - We, 24th Dec 2025 (12:00)
`

const inventoryPage = `Minerva (List 12)
Plan: X 100 Gold
Plan: Y 250 Gold
Minerva (List 13)
Plan: Z 999 Gold
`

var fixedNow = time.Date(2025, 12, 15, 12, 30, 0, 0, time.UTC)

// fakeFetcher serves pages from memory. A URL mapped to an error fails.
type fakeFetcher struct {
	pages  map[string]string
	errs   map[string]error
	called []string
}

func (f *fakeFetcher) FetchTextScoped(_ context.Context, url, _ string) (string, error) {
	f.called = append(f.called, url)
	if err, ok := f.errs[url]; ok {
		return "", err
	}
	text, ok := f.pages[url]
	if !ok {
		return "", fmt.Errorf("no page for %s", url)
	}
	return text, nil
}

func (f *fakeFetcher) Loader(url, scope string) extract.Loader {
	return func(ctx context.Context) (string, error) {
		return f.FetchTextScoped(ctx, url, scope)
	}
}

func testConfig(t *testing.T) *config.Config {
	t.Helper()
	dir := t.TempDir()
	cfg := config.New()
	cfg.MainURL = "http://main.test/"
	cfg.Sources = []config.Source{
		{Label: "inventory", URL: "http://inventory.test/"},
		{Label: "mirror", URL: "http://mirror.test/"},
	}
	cfg.Output = filepath.Join(dir, "minerva.json")
	cfg.DataDir = filepath.Join(dir, "data")
	return cfg
}

func newTestRunner(cfg *config.Config, f Fetcher, m *metrics.Manager) *Runner {
	return New(cfg,
		WithFetcher(f),
		WithMetrics(m),
		WithLogger(logger.New(logger.LevelError, io.Discard)),
		WithClock(func() time.Time { return fixedNow }),
	)
}

func TestScrape(t *testing.T) {
	cfg := testConfig(t)
	f := &fakeFetcher{
		pages: map[string]string{
			"http://main.test/":      mainPage,
			"http://inventory.test/": inventoryPage,
		},
	}
	m := metrics.NewManager()

	report, err := newTestRunner(cfg, f, m).Scrape(context.Background())
	if err != nil {
		t.Fatalf("Scrape failed: %v", err)
	}

	list := 12
	want := &event.Record{
		Location:    "Appalachia",
		Event:       "Minerva (List 12) Big Sale",
		List:        &list,
		From:        "Mo, 15th Dec 2025 (12:00)",
		To:          "We, 17th Dec 2025 (12:00)",
		ItemCount:   2,
		Items:       []string{"Plan: X 100 Gold", "Plan: Y 250 Gold"},
		Source:      "inventory",
		LastUpdated: "2025-12-15T12:30:00.000Z",
	}
	if diff := cmp.Diff(want, report.Record); diff != "" {
		t.Errorf("record mismatch (-want +got):\n%s", diff)
	}

	if !report.Saved || !report.NewHistory {
		t.Errorf("Saved = %v, NewHistory = %v; want both true", report.Saved, report.NewHistory)
	}
	if report.Partial() {
		t.Error("complete record reported as partial")
	}
	if report.CycleID == "" {
		t.Error("missing cycle id")
	}

	// The mirror is never fetched once the inventory supplies items.
	if diff := cmp.Diff([]string{"http://main.test/", "http://inventory.test/"}, f.called); diff != "" {
		t.Errorf("fetch order mismatch (-want +got):\n%s", diff)
	}

	saved, err := storage.LoadRecord(cfg.Output)
	if err != nil {
		t.Fatalf("LoadRecord failed: %v", err)
	}
	if diff := cmp.Diff(want, saved); diff != "" {
		t.Errorf("saved record mismatch (-want +got):\n%s", diff)
	}

	expected := `
# HELP minerva_scrape_items Number of reward items in the last extracted record
# TYPE minerva_scrape_items gauge
minerva_scrape_items 2
`
	if err := testutil.GatherAndCompare(m.Registry(), strings.NewReader(expected), "minerva_scrape_items"); err != nil {
		t.Errorf("items gauge: %v", err)
	}
}

func TestScrapeFallsBack(t *testing.T) {
	tests := []struct {
		name       string
		pages      map[string]string
		errs       map[string]error
		fallback   bool
		wantSource string
		wantItems  int
		wantFailed []string
	}{
		{
			name: "mirror after unavailable inventory",
			pages: map[string]string{
				"http://main.test/":   mainPage,
				"http://mirror.test/": inventoryPage,
			},
			errs:       map[string]error{"http://inventory.test/": errors.New("connection refused")},
			fallback:   true,
			wantSource: "mirror",
			wantItems:  2,
			wantFailed: []string{"inventory"},
		},
		{
			name: "main page as last resort",
			pages: map[string]string{
				"http://main.test/":      mainPage + "(List 12)\nPlan: From Main 5 Gold\n",
				"http://inventory.test/": "nothing here",
				"http://mirror.test/":    "(List 13)\nPlan: Z 999 Gold\n",
			},
			fallback:   true,
			wantSource: extract.LabelMain,
			wantItems:  1,
		},
		{
			name: "no source yields items",
			pages: map[string]string{
				"http://main.test/":      mainPage,
				"http://inventory.test/": "nothing here",
			},
			errs:       map[string]error{"http://mirror.test/": errors.New("timeout")},
			fallback:   false,
			wantFailed: []string{"mirror"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := testConfig(t)
			cfg.MainFallback = tt.fallback
			f := &fakeFetcher{pages: tt.pages, errs: tt.errs}

			report, err := newTestRunner(cfg, f, metrics.NewManager()).Scrape(context.Background())
			if err != nil {
				t.Fatalf("Scrape failed: %v", err)
			}
			if report.Record.Source != tt.wantSource {
				t.Errorf("source = %q, want %q", report.Record.Source, tt.wantSource)
			}
			if report.Record.ItemCount != tt.wantItems {
				t.Errorf("itemCount = %d, want %d", report.Record.ItemCount, tt.wantItems)
			}

			var failed []string
			for _, a := range report.Attempts {
				if a.Unavailable() {
					failed = append(failed, a.Label)
				}
			}
			if diff := cmp.Diff(tt.wantFailed, failed); diff != "" {
				t.Errorf("unavailable sources mismatch (-want +got):\n%s", diff)
			}
			if (tt.wantItems == 0) != report.Partial() {
				t.Errorf("Partial() = %v with %d items", report.Partial(), tt.wantItems)
			}
		})
	}
}

func TestScrapeMainPageUnavailable(t *testing.T) {
	cfg := testConfig(t)
	cfg.MetricsFile = filepath.Join(t.TempDir(), "minerva.prom")
	fetchErr := errors.New("dial tcp: connection refused")
	f := &fakeFetcher{errs: map[string]error{"http://main.test/": fetchErr}}
	m := metrics.NewManager()

	_, err := newTestRunner(cfg, f, m).Scrape(context.Background())
	if !errors.Is(err, fetchErr) {
		t.Fatalf("error = %v, want wrapped fetch error", err)
	}
	if _, statErr := os.Stat(cfg.Output); !os.IsNotExist(statErr) {
		t.Error("record file should not be written")
	}

	data, readErr := os.ReadFile(cfg.MetricsFile)
	if readErr != nil {
		t.Fatalf("metrics file not written: %v", readErr)
	}
	if !strings.Contains(string(data), `minerva_scrape_runs_total{result="failure"} 1`) {
		t.Errorf("failure not counted:\n%s", data)
	}
}

func TestExtractEventNotFound(t *testing.T) {
	cfg := testConfig(t)
	r := newTestRunner(cfg, &fakeFetcher{}, metrics.NewManager())

	_, err := r.Extract(context.Background(), "Welcome\nNo rotation today\n", nil)
	if !errors.Is(err, extract.ErrEventNotFound) {
		t.Fatalf("error = %v, want ErrEventNotFound", err)
	}
	if _, statErr := os.Stat(cfg.Output); !os.IsNotExist(statErr) {
		t.Error("record file should not be written")
	}
}

func TestExtractDryRun(t *testing.T) {
	cfg := testConfig(t)
	r := New(cfg,
		WithFetcher(&fakeFetcher{}),
		WithLogger(logger.New(logger.LevelError, io.Discard)),
		WithClock(func() time.Time { return fixedNow }),
		WithDryRun(true),
	)

	report, err := r.Extract(context.Background(), mainPage, []extract.Source{
		extract.StaticSource("inventory", inventoryPage),
	})
	if err != nil {
		t.Fatalf("Extract failed: %v", err)
	}
	if report.Saved {
		t.Error("dry run should not save")
	}
	if _, statErr := os.Stat(cfg.Output); !os.IsNotExist(statErr) {
		t.Error("record file should not be written")
	}
	if report.Record.ItemCount != 2 {
		t.Errorf("itemCount = %d, want 2", report.Record.ItemCount)
	}
}

func TestRepeatedScrapeReportsChanges(t *testing.T) {
	cfg := testConfig(t)
	f := &fakeFetcher{
		pages: map[string]string{
			"http://main.test/":      mainPage,
			"http://inventory.test/": inventoryPage,
		},
	}
	r := newTestRunner(cfg, f, metrics.NewManager())

	first, err := r.Scrape(context.Background())
	if err != nil {
		t.Fatalf("first Scrape failed: %v", err)
	}
	if !event.NewRotation(first.Changes) {
		t.Error("first scrape should report a new record")
	}

	f.pages["http://inventory.test/"] = "(List 12)\nPlan: X 100 Gold\nPlan: Y 250 Gold\nPlan: W 40 Gold\n"

	second, err := r.Scrape(context.Background())
	if err != nil {
		t.Fatalf("second Scrape failed: %v", err)
	}
	if event.NewRotation(second.Changes) {
		t.Error("same rotation reported as new")
	}
	if second.NewHistory {
		t.Error("same rotation appended to history again")
	}

	want := []*event.Change{{ChangeType: event.ChangeItemAdded, NewValue: "Plan: W 40 Gold"}}
	if diff := cmp.Diff(want, second.Changes); diff != "" {
		t.Errorf("changes mismatch (-want +got):\n%s", diff)
	}
}

type recordingNotifier struct {
	events []string
	err    error
}

func (n *recordingNotifier) Notify(_ context.Context, rec *event.Record) error {
	n.events = append(n.events, rec.Event)
	return n.err
}

func TestScrapeAnnouncesNewRotations(t *testing.T) {
	cfg := testConfig(t)
	f := &fakeFetcher{
		pages: map[string]string{
			"http://main.test/":      mainPage,
			"http://inventory.test/": inventoryPage,
		},
	}
	n := &recordingNotifier{}
	r := New(cfg,
		WithFetcher(f),
		WithMetrics(metrics.NewManager()),
		WithLogger(logger.New(logger.LevelError, io.Discard)),
		WithClock(func() time.Time { return fixedNow }),
		WithNotifier(n),
	)

	first, err := r.Scrape(context.Background())
	if err != nil {
		t.Fatalf("first Scrape failed: %v", err)
	}
	second, err := r.Scrape(context.Background())
	if err != nil {
		t.Fatalf("second Scrape failed: %v", err)
	}

	if !first.Notified || second.Notified {
		t.Errorf("Notified = %v, %v; want true, false", first.Notified, second.Notified)
	}
	if diff := cmp.Diff([]string{"Minerva (List 12) Big Sale"}, n.events); diff != "" {
		t.Errorf("announcements mismatch (-want +got):\n%s", diff)
	}
}

func TestScrapeSurvivesNotifierFailure(t *testing.T) {
	cfg := testConfig(t)
	f := &fakeFetcher{pages: map[string]string{"http://main.test/": mainPage}}
	r := New(cfg,
		WithFetcher(f),
		WithMetrics(metrics.NewManager()),
		WithLogger(logger.New(logger.LevelError, io.Discard)),
		WithNotifier(&recordingNotifier{err: errors.New("rate limited")}),
	)

	report, err := r.Scrape(context.Background())
	if err != nil {
		t.Fatalf("Scrape failed: %v", err)
	}
	if !report.Saved || report.Notified {
		t.Errorf("Saved = %v, Notified = %v; want true, false", report.Saved, report.Notified)
	}
}
