// CLAUDE:SUMMARY TextIndexer: flattens the visible text of a subtree into one string plus a segment table mapping flat offsets back to text nodes.
package anchor

import (
	"strings"

	"github.com/hazyhaar/skylight/dom"
	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
)

// Segment maps the text node Node to flat offsets [Start, Start+Len).
type Segment struct {
	Node  *html.Node
	Start int
	Len   int
}

// End is the exclusive flat end offset of the segment.
func (s Segment) End() int { return s.Start + s.Len }

// Index is the flattened text of a subtree. Segments are in document order,
// contiguous, and their data concatenates to Text.
type Index struct {
	Root     *html.Node
	Text     string
	Segments []Segment
}

type indexConfig struct {
	exclude []func(*html.Node) bool
}

// IndexOption configures BuildIndex.
type IndexOption func(*indexConfig)

// WithExclude skips every subtree whose root satisfies fn, in addition to
// script, style, noscript and template elements.
func WithExclude(fn func(*html.Node) bool) IndexOption {
	return func(c *indexConfig) {
		if fn != nil {
			c.exclude = append(c.exclude, fn)
		}
	}
}

// skipped reports whether an element's subtree never holds readable text.
func skipped(n *html.Node) bool {
	if n.Type != html.ElementNode {
		return false
	}
	switch n.DataAtom {
	case atom.Script, atom.Style, atom.Noscript, atom.Template:
		return true
	}
	return false
}

// BuildIndex walks root in document order and records every text node.
func BuildIndex(root *html.Node, opts ...IndexOption) *Index {
	var cfg indexConfig
	for _, o := range opts {
		o(&cfg)
	}
	ix := &Index{Root: root}
	var sb strings.Builder
	dom.Walk(root, func(n *html.Node) bool {
		if skipped(n) {
			return false
		}
		for _, ex := range cfg.exclude {
			if n.Type == html.ElementNode && ex(n) {
				return false
			}
		}
		if n.Type == html.TextNode {
			ix.Segments = append(ix.Segments, Segment{Node: n, Start: sb.Len(), Len: len(n.Data)})
			sb.WriteString(n.Data)
		}
		return true
	})
	ix.Text = sb.String()
	return ix
}

// Segment returns the segment of text node n.
func (ix *Index) Segment(n *html.Node) (Segment, bool) {
	for _, s := range ix.Segments {
		if s.Node == n {
			return s, true
		}
	}
	return Segment{}, false
}

// OffsetOf converts a boundary point to a flat offset. Element points resolve
// to the first indexed character at or after them.
func (ix *Index) OffsetOf(p dom.Point) (int, bool) {
	if p.Node == nil {
		return 0, false
	}
	if p.Node.Type == html.TextNode {
		s, ok := ix.Segment(p.Node)
		if !ok {
			return 0, false
		}
		return s.Start + p.Offset, true
	}
	if !dom.IsInclusiveAncestor(ix.Root, p.Node) && !dom.IsInclusiveAncestor(p.Node, ix.Root) {
		return 0, false
	}
	for _, s := range ix.Segments {
		if dom.ComparePoints(p, dom.Point{Node: s.Node, Offset: 0}) <= 0 {
			return s.Start, true
		}
	}
	return len(ix.Text), true
}

// Span returns the flat extent covered by the text nodes under n.
func (ix *Index) Span(n *html.Node) (start, end int, ok bool) {
	for _, s := range ix.Segments {
		if !dom.IsInclusiveAncestor(n, s.Node) {
			continue
		}
		if !ok {
			start, ok = s.Start, true
		}
		end = s.End()
	}
	return start, end, ok
}

// Slice returns Text[start:end] clamped to the index bounds.
func (ix *Index) Slice(start, end int) string {
	start = max(0, min(start, len(ix.Text)))
	end = max(start, min(end, len(ix.Text)))
	return ix.Text[start:end]
}
