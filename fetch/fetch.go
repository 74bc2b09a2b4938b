// CLAUDE:SUMMARY Page acquisition: plain HTTP GET first, headless rendering (rod + stealth) when the response looks like an app shell.
// Package fetch loads pages so stored annotations can be restored onto them
// outside the browser. A plain GET covers static pages; client-rendered
// pages go through a headless browser.
package fetch

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/hazyhaar/skylight/dom"
)

var (
	ErrStatus    = errors.New("fetch: unexpected status")
	ErrNoBrowser = errors.New("fetch: no renderer configured")
	ErrMode      = errors.New("fetch: unknown render mode")
)

// Page is a loaded document.
type Page struct {
	URL        string
	FinalURL   string
	StatusCode int
	HTML       []byte
	Rendered   bool
	Sufficient bool
}

// Document parses the page.
func (p *Page) Document() (*dom.Document, error) {
	return dom.ParseString(string(p.HTML))
}

// Fetcher performs plain HTTP GETs.
type Fetcher struct {
	client   *http.Client
	ua       string
	maxBytes int64
	logger   *slog.Logger
}

// Option configures a Fetcher.
type Option func(*Fetcher)

// WithClient sets a custom HTTP client.
func WithClient(c *http.Client) Option {
	return func(f *Fetcher) { f.client = c }
}

// WithUserAgent sets the User-Agent header.
func WithUserAgent(ua string) Option {
	return func(f *Fetcher) { f.ua = ua }
}

// WithMaxBytes caps the body read.
func WithMaxBytes(n int64) Option {
	return func(f *Fetcher) { f.maxBytes = n }
}

// WithLogger sets a custom logger.
func WithLogger(l *slog.Logger) Option {
	return func(f *Fetcher) { f.logger = l }
}

// New creates a Fetcher.
func New(opts ...Option) *Fetcher {
	f := &Fetcher{
		client:   &http.Client{Timeout: 30 * time.Second},
		ua:       "Mozilla/5.0 (compatible; skylight/1.0)",
		maxBytes: 10 << 20,
		logger:   slog.Default(),
	}
	for _, o := range opts {
		o(f)
	}
	return f
}

// Get fetches pageURL. Non-2xx responses return ErrStatus.
func (f *Fetcher) Get(ctx context.Context, pageURL string) (*Page, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, pageURL, nil)
	if err != nil {
		return nil, fmt.Errorf("fetch: new request: %w", err)
	}
	req.Header.Set("User-Agent", f.ua)
	req.Header.Set("Accept", "text/html,application/xhtml+xml,application/xml;q=0.9,*/*;q=0.8")
	req.Header.Set("Accept-Language", "en-US,en;q=0.5")

	resp, err := f.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch: do: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, fmt.Errorf("%w: %d for %s", ErrStatus, resp.StatusCode, pageURL)
	}
	body, err := io.ReadAll(io.LimitReader(resp.Body, f.maxBytes))
	if err != nil {
		return nil, fmt.Errorf("fetch: read body: %w", err)
	}
	p := &Page{
		URL:        pageURL,
		FinalURL:   resp.Request.URL.String(),
		StatusCode: resp.StatusCode,
		HTML:       body,
		Sufficient: IsSufficient(body),
	}
	f.logger.Debug("fetch: http", "url", pageURL, "status", resp.StatusCode, "bytes", len(body), "sufficient", p.Sufficient)
	return p, nil
}
