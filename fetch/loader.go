package fetch

import (
	"context"
	"fmt"
	"log/slog"
)

// Mode decides when the headless renderer is used.
type Mode string

const (
	ModeAuto   Mode = "auto"
	ModeNever  Mode = "never"
	ModeAlways Mode = "always"
)

// ParseMode validates s. Empty means ModeAuto.
func ParseMode(s string) (Mode, error) {
	switch Mode(s) {
	case "", ModeAuto:
		return ModeAuto, nil
	case ModeNever, ModeAlways:
		return Mode(s), nil
	}
	return "", fmt.Errorf("%w: %q", ErrMode, s)
}

// Loader combines the HTTP fetcher with an optional renderer.
type Loader struct {
	fetcher  *Fetcher
	renderer Renderer
	mode     Mode
	logger   *slog.Logger
}

// NewLoader creates a Loader. renderer may be nil when mode is ModeNever.
func NewLoader(f *Fetcher, r Renderer, mode Mode, logger *slog.Logger) *Loader {
	if logger == nil {
		logger = slog.Default()
	}
	return &Loader{fetcher: f, renderer: r, mode: mode, logger: logger}
}

// Load returns pageURL, rendered when the mode asks for it. In auto mode a
// failed render falls back to the HTTP response.
func (l *Loader) Load(ctx context.Context, pageURL string) (*Page, error) {
	if l.mode == ModeAlways {
		return l.render(ctx, pageURL, nil)
	}
	p, err := l.fetcher.Get(ctx, pageURL)
	if err != nil {
		return nil, err
	}
	if l.mode == ModeNever || p.Sufficient || l.renderer == nil {
		return p, nil
	}
	r, err := l.render(ctx, pageURL, p)
	if err != nil {
		l.logger.Warn("fetch: render failed, using http response", "url", pageURL, "error", err)
		return p, nil
	}
	return r, nil
}

func (l *Loader) render(ctx context.Context, pageURL string, base *Page) (*Page, error) {
	if l.renderer == nil {
		return nil, ErrNoBrowser
	}
	out, err := l.renderer.Render(ctx, pageURL)
	if err != nil {
		return nil, err
	}
	p := &Page{URL: pageURL, FinalURL: pageURL, StatusCode: 200, HTML: out, Rendered: true, Sufficient: IsSufficient(out)}
	if base != nil {
		p.FinalURL, p.StatusCode = base.FinalURL, base.StatusCode
	}
	l.logger.Debug("fetch: rendered", "url", pageURL, "bytes", len(out))
	return p, nil
}
