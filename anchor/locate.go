// CLAUDE:SUMMARY Locate: anchors a stored quote in a document, trying an offset hint, then the path subtree, then the whole body.
package anchor

import (
	"errors"
	"fmt"

	"github.com/hazyhaar/skylight/dom"
	"golang.org/x/net/html"
)

var (
	ErrEmptyPath      = errors.New("anchor: empty path")
	ErrBadPath        = errors.New("anchor: malformed path")
	ErrEmptyQuote     = errors.New("anchor: empty quote")
	ErrAnchorNotFound = errors.New("anchor: quote not found")
)

// Strategy names how a quote was anchored.
type Strategy string

const (
	StrategyOffset   Strategy = "offset"
	StrategyPath     Strategy = "path"
	StrategyDocument Strategy = "document"
)

// Hint describes a quote to anchor. Offset is a flat offset into the index of
// the root passed to Locate, or -1 when unknown.
type Hint struct {
	Text   string
	Path   string
	Offset int
}

// Resolution is an anchored quote.
type Resolution struct {
	Range    *dom.Range
	Strategy Strategy
}

// Locate anchors h inside root. The offset hint is trusted only when the
// indexed text there is exactly h.Text; the path narrows the search to the
// resolved subtree; the whole root is the last resort.
func Locate(root *html.Node, h Hint, opts ...IndexOption) (*Resolution, error) {
	if h.Text == "" {
		return nil, ErrEmptyQuote
	}
	ix := BuildIndex(root, opts...)

	if h.Offset >= 0 && h.Offset+len(h.Text) <= len(ix.Text) && ix.Text[h.Offset:h.Offset+len(h.Text)] == h.Text {
		if r, ok := Materialize(ix.Segments, h.Offset, len(h.Text)); ok {
			return &Resolution{Range: r, Strategy: StrategyOffset}, nil
		}
	}

	if h.Path != "" {
		if el, ok := ResolvePath(root, h.Path); ok {
			sub := BuildIndex(el, opts...)
			if m, ok := FindBestMatch(sub.Text, h.Text); ok {
				if r, ok := Materialize(sub.Segments, m.Start, m.Len()); ok {
					return &Resolution{Range: r, Strategy: StrategyPath}, nil
				}
			}
		}
	}

	if m, ok := FindBestMatch(ix.Text, h.Text); ok {
		if r, ok := Materialize(ix.Segments, m.Start, m.Len()); ok {
			return &Resolution{Range: r, Strategy: StrategyDocument}, nil
		}
	}
	return nil, fmt.Errorf("%w: %q", ErrAnchorNotFound, truncate(h.Text, 40))
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n]) + "..."
}
