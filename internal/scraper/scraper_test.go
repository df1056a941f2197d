package scraper

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/pfrederiksen/minerva-scrape/internal/extract"
	"github.com/pfrederiksen/minerva-scrape/internal/logger"
	"github.com/pfrederiksen/minerva-scrape/internal/pattern"
)

const samplePage = `
<html>
	<head><title>Nuka Knights</title><script>var x = "Minerva (List 1)";</script></head>
	<body>
		<h2>Fallout 76 Minerva Dates:</h2>
		<div class="event">
			<p>Minerva (List 12) Big Sale</p>
			<p>Location: Foundation Mo, 15th Dec 2025</p>
			<p>Mo, 15th Dec 2025 (12:00) - We, 17th Dec 2025 (12:00)</p>
		</div>
	</body>
</html>
`

func init() {
	logger.SetDefault(logger.New(logger.LevelError, io.Discard))
}

func newTestScraper(opts ...Option) *Scraper {
	base := []Option{WithRate(0), WithBackoffInterval(time.Millisecond)}
	return New(append(base, opts...)...)
}

func TestFetchText(t *testing.T) {
	tests := []struct {
		name       string
		body       string
		statusCode int
		scope      string
		wantError  bool
		want       []string
		notWant    []string
	}{
		{
			name:       "successful fetch",
			body:       samplePage,
			statusCode: http.StatusOK,
			want:       []string{"Fallout 76 Minerva Dates:", "Minerva (List 12) Big Sale", "Location: Foundation Mo, 15th Dec 2025"},
			notWant:    []string{"var x", "Nuka Knights"},
		},
		{
			name:       "scoped fetch",
			body:       samplePage,
			statusCode: http.StatusOK,
			scope:      "div.event",
			want:       []string{"Minerva (List 12) Big Sale"},
			notWant:    []string{"Fallout 76 Minerva Dates:"},
		},
		{
			name:       "not found",
			statusCode: http.StatusNotFound,
			wantError:  true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				if userAgent := r.Header.Get("User-Agent"); !strings.Contains(userAgent, "minerva-scrape") {
					t.Errorf("User-Agent = %q, should contain 'minerva-scrape'", userAgent)
				}
				w.WriteHeader(tt.statusCode)
				_, _ = w.Write([]byte(tt.body))
			}))
			defer server.Close()

			s := newTestScraper()
			text, err := s.FetchTextScoped(context.Background(), server.URL, tt.scope)

			if tt.wantError {
				if err == nil {
					t.Fatal("expected error, got nil")
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}

			for _, w := range tt.want {
				if !strings.Contains(text, w) {
					t.Errorf("text should contain %q, got:\n%s", w, text)
				}
			}
			for _, w := range tt.notWant {
				if strings.Contains(text, w) {
					t.Errorf("text should not contain %q, got:\n%s", w, text)
				}
			}
		})
	}
}

func TestFetchRetriesTransientFailures(t *testing.T) {
	var calls atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) < 3 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		_, _ = w.Write([]byte("<p>ok</p>"))
	}))
	defer server.Close()

	text, err := newTestScraper(WithRetries(3)).FetchText(context.Background(), server.URL)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if text != "ok" {
		t.Errorf("text = %q, want %q", text, "ok")
	}
	if got := calls.Load(); got != 3 {
		t.Errorf("calls = %d, want 3", got)
	}
}

func TestFetchGivesUpAfterRetries(t *testing.T) {
	var calls atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusTooManyRequests)
	}))
	defer server.Close()

	_, err := newTestScraper(WithRetries(2)).FetchText(context.Background(), server.URL)

	var statusErr *StatusError
	if !errors.As(err, &statusErr) {
		t.Fatalf("error = %v, want *StatusError", err)
	}
	if statusErr.Code != http.StatusTooManyRequests {
		t.Errorf("code = %d, want %d", statusErr.Code, http.StatusTooManyRequests)
	}
	if got := calls.Load(); got != 3 {
		t.Errorf("calls = %d, want 3", got)
	}
}

func TestFetchDoesNotRetryClientErrors(t *testing.T) {
	var calls atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusForbidden)
	}))
	defer server.Close()

	_, err := newTestScraper(WithRetries(3)).FetchText(context.Background(), server.URL)
	if !errors.Is(err, ErrUnexpectedStatus) {
		t.Fatalf("error = %v, want ErrUnexpectedStatus", err)
	}
	if got := calls.Load(); got != 1 {
		t.Errorf("calls = %d, want 1", got)
	}
}

func TestFetchHonoursContext(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer server.Close()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if _, err := newTestScraper().FetchText(ctx, server.URL); err == nil {
		t.Fatal("expected error for cancelled context")
	}
}

func TestLoaderInChain(t *testing.T) {
	inventory := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer inventory.Close()

	mirror := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`<ul>
			<li>(List 12)</li>
			<li>Plan: Alpha Rifle 1,500 Gold</li>
			<li>(List 13)</li>
			<li>Plan: Other 10 Gold</li>
		</ul>`))
	}))
	defer mirror.Close()

	s := newTestScraper(WithRetries(0))
	sources := []extract.Source{
		{Label: "inventory", Load: s.Loader(inventory.URL, "")},
		{Label: "mirror", Load: s.Loader(mirror.URL, "")},
	}

	res := extract.Chain(context.Background(), sources, 12, pattern.Default())

	if res.Source != "mirror" {
		t.Errorf("source = %q, want mirror", res.Source)
	}
	if len(res.Items) != 1 || res.Items[0] != "Plan: Alpha Rifle 1,500 Gold" {
		t.Errorf("items = %v", res.Items)
	}
	if len(res.Attempts) != 2 || !res.Attempts[0].Unavailable() {
		t.Errorf("attempts = %+v, want inventory unavailable first", res.Attempts)
	}
}

func TestStatusErrorTemporary(t *testing.T) {
	tests := []struct {
		code int
		want bool
	}{
		{http.StatusInternalServerError, true},
		{http.StatusBadGateway, true},
		{http.StatusTooManyRequests, true},
		{http.StatusNotFound, false},
		{http.StatusForbidden, false},
	}

	for _, tt := range tests {
		t.Run(http.StatusText(tt.code), func(t *testing.T) {
			err := &StatusError{URL: "http://example.test", Code: tt.code}
			if got := err.Temporary(); got != tt.want {
				t.Errorf("Temporary() = %v, want %v", got, tt.want)
			}
		})
	}
}
