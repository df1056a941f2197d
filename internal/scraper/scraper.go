package scraper

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/cenkalti/backoff/v4"
	"golang.org/x/time/rate"

	"github.com/pfrederiksen/minerva-scrape/internal/extract"
	"github.com/pfrederiksen/minerva-scrape/internal/htmltext"
	"github.com/pfrederiksen/minerva-scrape/internal/logger"
)

const (
	UserAgent = "minerva-scrape/1.0 (github.com/pfrederiksen/minerva-scrape)"
	Timeout   = 30 * time.Second
	Retries   = 3

	// maxBodySize bounds how much of a page is read.
	maxBodySize = 10 << 20
)

// ErrUnexpectedStatus is wrapped by StatusError.
var ErrUnexpectedStatus = errors.New("unexpected status code")

// StatusError reports a non-200 response.
type StatusError struct {
	URL  string
	Code int
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("%s: %d from %s", ErrUnexpectedStatus, e.Code, e.URL)
}

func (e *StatusError) Unwrap() error {
	return ErrUnexpectedStatus
}

// Temporary reports whether a retry may succeed.
func (e *StatusError) Temporary() bool {
	return e.Code >= http.StatusInternalServerError || e.Code == http.StatusTooManyRequests
}

// Scraper fetches pages over HTTP.
type Scraper struct {
	client    *http.Client
	userAgent string
	retries   int
	limiter   *rate.Limiter
	interval  time.Duration
}

// Option configures a Scraper.
type Option func(*Scraper)

// WithClient replaces the HTTP client. Its timeout is kept as is.
func WithClient(client *http.Client) Option {
	return func(s *Scraper) {
		if client != nil {
			s.client = client
		}
	}
}

// WithTimeout sets the per-request timeout.
func WithTimeout(d time.Duration) Option {
	return func(s *Scraper) {
		if d > 0 {
			s.client.Timeout = d
		}
	}
}

// WithUserAgent sets the User-Agent header.
func WithUserAgent(ua string) Option {
	return func(s *Scraper) {
		if ua != "" {
			s.userAgent = ua
		}
	}
}

// WithRetries sets how many times a transient failure is retried.
// Zero disables retries.
func WithRetries(n int) Option {
	return func(s *Scraper) {
		if n >= 0 {
			s.retries = n
		}
	}
}

// WithRate limits requests to perSecond. Zero or less removes the limit.
func WithRate(perSecond float64) Option {
	return func(s *Scraper) {
		if perSecond <= 0 {
			s.limiter = rate.NewLimiter(rate.Inf, 1)
			return
		}
		s.limiter = rate.NewLimiter(rate.Limit(perSecond), 1)
	}
}

// WithBackoffInterval sets the first retry delay.
func WithBackoffInterval(d time.Duration) Option {
	return func(s *Scraper) {
		if d > 0 {
			s.interval = d
		}
	}
}

// New creates a new Scraper instance
func New(opts ...Option) *Scraper {
	s := &Scraper{
		client: &http.Client{
			Timeout: Timeout,
		},
		userAgent: UserAgent,
		retries:   Retries,
		limiter:   rate.NewLimiter(rate.Limit(1), 1),
		interval:  500 * time.Millisecond,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// FetchHTML returns the body of url.
func (s *Scraper) FetchHTML(ctx context.Context, url string) ([]byte, error) {
	attempt := 0
	op := func() ([]byte, error) {
		attempt++
		if err := s.limiter.Wait(ctx); err != nil {
			return nil, backoff.Permanent(err)
		}
		body, err := s.get(ctx, url)
		if err == nil {
			return body, nil
		}

		var statusErr *StatusError
		if errors.As(err, &statusErr) && !statusErr.Temporary() {
			return nil, backoff.Permanent(err)
		}
		if ctx.Err() != nil {
			return nil, backoff.Permanent(err)
		}
		return nil, err
	}

	notify := func(err error, wait time.Duration) {
		logger.Warn("Retrying fetch", logger.Fields{
			"url":     url,
			"attempt": attempt,
			"wait":    wait.String(),
			"error":   err.Error(),
		})
	}

	body, err := backoff.RetryNotifyWithData(op, s.backOff(ctx), notify)
	if err != nil {
		return nil, fmt.Errorf("fetching page: %w", err)
	}
	return body, nil
}

// FetchText returns the visible text of url.
func (s *Scraper) FetchText(ctx context.Context, url string) (string, error) {
	return s.FetchTextScoped(ctx, url, "")
}

// FetchTextScoped returns the visible text of the part of url matched by the
// CSS selector scope, or of the whole page when scope is empty.
func (s *Scraper) FetchTextScoped(ctx context.Context, url, scope string) (string, error) {
	body, err := s.FetchHTML(ctx, url)
	if err != nil {
		return "", err
	}

	return htmltext.FromHTMLScoped(bytes.NewReader(body), scope)
}

// Loader adapts url into an item source loader.
func (s *Scraper) Loader(url, scope string) extract.Loader {
	return func(ctx context.Context) (string, error) {
		return s.FetchTextScoped(ctx, url, scope)
	}
}

func (s *Scraper) get(ctx context.Context, url string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("User-Agent", s.userAgent)
	req.Header.Set("Accept", "text/html,application/xhtml+xml")

	resp, err := s.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, maxBodySize))
		return nil, &StatusError{URL: url, Code: resp.StatusCode}
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodySize))
	if err != nil {
		return nil, fmt.Errorf("reading body: %w", err)
	}
	return body, nil
}

func (s *Scraper) backOff(ctx context.Context) backoff.BackOff {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = s.interval
	b.MaxElapsedTime = 0
	return backoff.WithContext(backoff.WithMaxRetries(b, uint64(s.retries)), ctx)
}
