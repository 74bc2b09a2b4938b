// CLAUDE:SUMMARY AnnotationPainter: wraps ranges in per-text-node <mark> markers sharing one data-id, with extract fallback and rollback.
// Package paint owns every element skylight injects into a page: highlight
// markers, note displays, the inline note editor and the floating menu.
// Each mutation it makes is journaled with dom.OriginSelf.
package paint

import (
	"errors"
	"fmt"
	"log/slog"

	"github.com/hazyhaar/skylight/annotation"
	"github.com/hazyhaar/skylight/dom"
	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
)

var (
	ErrWrapFailed = errors.New("paint: wrap failed")
	ErrEmptyRange = errors.New("paint: range covers no paintable text")
	ErrMissingID  = errors.New("paint: annotation has no id")
)

// Attributes carried by markers.
const (
	AttrID    = "data-id"
	AttrColor = "data-color"
)

// Classes names the injected elements.
type Classes struct {
	Highlight string
	Note      string
	Editor    string
	MenuID    string
}

// DefaultClasses returns the class names used when none are configured.
func DefaultClasses() Classes {
	return Classes{
		Highlight: "skylight-highlight",
		Note:      "skylight-note",
		Editor:    "skylight-editor",
		MenuID:    "skylight-menu",
	}
}

// Option configures a Painter.
type Option func(*Painter)

// WithClasses overrides the injected class names.
func WithClasses(c Classes) Option { return func(p *Painter) { p.classes = c } }

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(p *Painter) {
		if l != nil {
			p.logger = l
		}
	}
}

// Painter mutates documents on behalf of the annotation engine.
type Painter struct {
	classes Classes
	logger  *slog.Logger
}

// New returns a Painter.
func New(opts ...Option) *Painter {
	p := &Painter{classes: DefaultClasses(), logger: slog.Default()}
	for _, o := range opts {
		o(p)
	}
	return p
}

// Classes returns the configured class names.
func (p *Painter) Classes() Classes { return p.classes }

// IsMarker reports whether n is a highlight marker.
func (p *Painter) IsMarker(n *html.Node) bool {
	return dom.IsElement(n, "mark") && dom.HasClass(n, p.classes.Highlight)
}

// IsUI reports whether n is a note display, the note editor or the menu.
// Their text is never part of the page's readable text.
func (p *Painter) IsUI(n *html.Node) bool {
	if n == nil || n.Type != html.ElementNode {
		return false
	}
	return dom.HasClass(n, p.classes.Note) ||
		dom.HasClass(n, p.classes.Editor) ||
		(p.classes.MenuID != "" && dom.Attr(n, "id") == p.classes.MenuID)
}

func (p *Painter) paintable(t *html.Node) bool {
	return dom.Closest(t.Parent, func(n *html.Node) bool {
		if n.Type != html.ElementNode {
			return false
		}
		switch n.DataAtom {
		case atom.Script, atom.Style, atom.Noscript, atom.Template:
			return true
		}
		return p.IsUI(n)
	}) == nil
}

func (p *Painter) newMarker(a annotation.Annotation) *html.Node {
	return &html.Node{
		Type:     html.ElementNode,
		DataAtom: atom.Mark,
		Data:     "mark",
		Attr: []html.Attribute{
			{Key: "class", Val: p.classes.Highlight},
			{Key: AttrID, Val: a.ID},
			{Key: AttrColor, Val: a.Color},
			{Key: "style", Val: "background-color: " + a.Color},
		},
	}
}

// Paint wraps the text covered by rng in markers carrying a's id and color:
// one marker per intersecting text node. Text inside injected UI and raw
// text elements is skipped. A non-empty note is displayed after the last
// marker. On failure every marker created so far is removed.
func (p *Painter) Paint(doc *dom.Document, rng *dom.Range, a annotation.Annotation) ([]*html.Node, error) {
	if a.ID == "" {
		return nil, ErrMissingID
	}
	if err := rng.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrWrapFailed, err)
	}

	var subs []*dom.Range
	for _, t := range rng.TextNodes() {
		if !p.paintable(t) {
			continue
		}
		s, e, ok := rng.Clip(t)
		if !ok || t.Parent == nil {
			continue
		}
		subs = append(subs, &dom.Range{Start: dom.Point{Node: t, Offset: s}, End: dom.Point{Node: t, Offset: e}})
	}
	if len(subs) == 0 {
		return nil, ErrEmptyRange
	}
	for _, sub := range subs {
		if err := sub.Validate(); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrWrapFailed, err)
		}
	}

	markers := make([]*html.Node, 0, len(subs))
	for _, sub := range subs {
		m := p.newMarker(a)
		if err := wrap(sub, m); err != nil {
			p.undo(markers)
			p.logger.Warn("paint: wrap failed", "id", a.ID, "error", err)
			return nil, fmt.Errorf("%w: %v", ErrWrapFailed, err)
		}
		markers = append(markers, m)
	}
	if a.Note != "" {
		p.insertNote(markers[len(markers)-1], a.Note)
	}
	doc.Record(dom.Mutation{Op: dom.OpInsert, Origin: dom.OriginSelf, Target: "mark#" + a.ID})
	return markers, nil
}

// wrap surrounds sub with m, falling back to extract-and-insert when the
// range cannot be surrounded in place.
func wrap(sub *dom.Range, m *html.Node) error {
	if err := sub.SurroundContents(m); err != nil {
		frag, xerr := sub.ExtractContents()
		if xerr != nil {
			return xerr
		}
		for _, n := range frag {
			m.AppendChild(n)
		}
		if err := sub.InsertNode(m); err != nil {
			return err
		}
	}
	dropEmptyText(m.PrevSibling)
	dropEmptyText(m.NextSibling)
	return nil
}

func dropEmptyText(n *html.Node) {
	if dom.IsText(n) && n.Data == "" {
		dom.Detach(n)
	}
}

func (p *Painter) undo(markers []*html.Node) {
	for _, m := range markers {
		if parent := dom.Unwrap(m); parent != nil {
			dom.Normalize(parent)
		}
	}
}

// Markers returns the markers of id under root in document order.
func (p *Painter) Markers(root *html.Node, id string) []*html.Node {
	var out []*html.Node
	dom.Walk(root, func(n *html.Node) bool {
		if p.IsMarker(n) && dom.Attr(n, AttrID) == id {
			out = append(out, n)
		}
		return true
	})
	return out
}

// AllMarkers returns every marker under root in document order.
func (p *Painter) AllMarkers(root *html.Node) []*html.Node {
	var out []*html.Node
	dom.Walk(root, func(n *html.Node) bool {
		if p.IsMarker(n) {
			out = append(out, n)
		}
		return true
	})
	return out
}

// Unwrap removes a marker, re-inserting its children in place.
func (p *Painter) Unwrap(doc *dom.Document, m *html.Node) *html.Node {
	parent := dom.Unwrap(m)
	if parent != nil {
		doc.Record(dom.Mutation{Op: dom.OpRemove, Origin: dom.OriginSelf, Target: "mark#" + dom.Attr(m, AttrID)})
	}
	return parent
}

// Normalize merges adjacent text nodes under n.
func (p *Painter) Normalize(doc *dom.Document, n *html.Node) {
	dom.Normalize(n)
	doc.Record(dom.Mutation{Op: dom.OpNormalize, Origin: dom.OriginSelf, Target: n.Data})
}
