// CLAUDE:SUMMARY SurgicalEditor: finds highlights overlapping a selection, snapshots their leftovers, unwraps them, repaints leftovers and the new highlight.
// Package surgery edits highlighted regions without disturbing the page text:
// partial overlaps split an annotation into new ones, same-color overlaps
// merge, and removals leave the untouched parts highlighted.
package surgery

import (
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/hazyhaar/skylight/anchor"
	"github.com/hazyhaar/skylight/annotation"
	"github.com/hazyhaar/skylight/dom"
	"github.com/hazyhaar/skylight/idgen"
	"github.com/hazyhaar/skylight/paint"
	"golang.org/x/net/html"
)

var (
	ErrNoRange         = errors.New("surgery: no range")
	ErrEmptySelection  = errors.New("surgery: empty selection")
	ErrOutsideDocument = errors.New("surgery: range outside document body")
)

// Kind is the operation applied to the selection.
type Kind int

const (
	// Create highlights the selection, trimming or merging overlapped annotations.
	Create Kind = iota
	// Remove clears highlighting from the selection.
	Remove
	// Recolor changes the color of highlighted parts of the selection.
	Recolor
)

func (k Kind) String() string {
	switch k {
	case Create:
		return "create"
	case Remove:
		return "remove"
	case Recolor:
		return "recolor"
	}
	return fmt.Sprintf("kind(%d)", int(k))
}

// Op is one surgical edit. Records are the stored annotations of the page,
// used to carry notes and project tags over to split fragments.
type Op struct {
	Kind    Kind
	Range   *dom.Range
	Color   string
	Note    string
	Context annotation.Context
	Records []annotation.Annotation
}

// Result is what changed in the document. The caller persists it.
type Result struct {
	Deleted []string
	Created []annotation.Annotation
	Primary *annotation.Annotation
	Markers []*html.Node
	Dropped int
}

// Changes converts r into a repository batch.
func (r *Result) Changes() annotation.Changes {
	return annotation.Changes{Delete: r.Deleted, Upsert: r.Created}
}

// Option configures an Editor.
type Option func(*Editor)

// WithIDGenerator sets the id strategy for new annotations.
func WithIDGenerator(g idgen.Generator) Option { return func(e *Editor) { e.newID = g } }

// WithClock sets the timestamp source.
func WithClock(now func() time.Time) Option { return func(e *Editor) { e.now = now } }

// WithMinFragmentRunes sets the smallest leftover (trimmed, in runes) that
// is restored after a split.
func WithMinFragmentRunes(n int) Option { return func(e *Editor) { e.minRunes = n } }

// WithCapture sets the HTML snapshot function stored with new annotations.
func WithCapture(fn func(*dom.Range) (string, error)) Option {
	return func(e *Editor) { e.capture = fn }
}

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(e *Editor) {
		if l != nil {
			e.logger = l
		}
	}
}

// Editor runs surgical operations through a Painter.
type Editor struct {
	painter  *paint.Painter
	newID    idgen.Generator
	now      func() time.Time
	minRunes int
	capture  func(*dom.Range) (string, error)
	logger   *slog.Logger
}

// New returns an Editor painting with p.
func New(p *paint.Painter, opts ...Option) *Editor {
	e := &Editor{
		painter:  p,
		newID:    idgen.Default,
		now:      time.Now,
		minRunes: 1,
		logger:   slog.Default(),
	}
	for _, o := range opts {
		o(e)
	}
	return e
}

// target is one logical annotation touched by the selection.
type target struct {
	id         string
	markers    []*html.Node
	start, end int
	spanned    bool
	color      string
}

// fragment is a piece of text to repaint as a new annotation.
type fragment struct {
	text   string
	offset int
	color  string
	note   string
	origin string
}

func (e *Editor) excluded() anchor.IndexOption {
	return anchor.WithExclude(e.painter.IsUI)
}

// collect groups markers by id, in first-seen order, with their flat span.
func (e *Editor) collect(ix *anchor.Index, body *html.Node) []*target {
	byID := make(map[string]*target)
	var out []*target
	for _, m := range e.painter.AllMarkers(body) {
		id := dom.Attr(m, paint.AttrID)
		if id == "" {
			continue
		}
		t := byID[id]
		if t == nil {
			t = &target{id: id, color: dom.Attr(m, paint.AttrColor)}
			byID[id] = t
			out = append(out, t)
		}
		t.markers = append(t.markers, m)
		s, en, ok := ix.Span(m)
		if !ok {
			continue
		}
		if !t.spanned {
			t.start, t.end, t.spanned = s, en, true
			continue
		}
		t.start, t.end = min(t.start, s), max(t.end, en)
	}
	return out
}

// Run applies op to doc.
func (e *Editor) Run(doc *dom.Document, op Op) (*Result, error) {
	if op.Range == nil {
		return nil, ErrNoRange
	}
	if err := op.Range.Validate(); err != nil {
		return nil, fmt.Errorf("surgery: %w", err)
	}
	var color string
	if op.Kind != Remove {
		c, err := annotation.NormalizeColor(op.Color)
		if err != nil {
			return nil, err
		}
		color = c
	}

	body := doc.Body()
	ix := anchor.BuildIndex(body, e.excluded())
	us, okS := ix.OffsetOf(op.Range.Start)
	ue, okE := ix.OffsetOf(op.Range.End)
	if !okS || !okE {
		return nil, ErrOutsideDocument
	}
	collapsed := us >= ue
	if op.Kind == Create && (collapsed || strings.TrimSpace(ix.Text[us:ue]) == "") {
		return nil, ErrEmptySelection
	}

	records := make(map[string]annotation.Annotation, len(op.Records))
	for _, a := range op.Records {
		records[a.ID] = a
	}

	var hit []*target
	for _, t := range e.collect(ix, body) {
		if !t.spanned {
			continue
		}
		switch {
		case collapsed:
			if op.Kind == Remove && t.start <= us && us < t.end {
				hit = append(hit, t)
			}
		case us < t.end && ue > t.start:
			if op.Kind == Recolor && annotation.SameColor(t.color, color) {
				continue
			}
			hit = append(hit, t)
		}
	}

	res := &Result{}
	if len(hit) == 0 && op.Kind != Create {
		return res, nil
	}

	newStart, newEnd := us, ue
	var frags []fragment
	var orphanNotes []string
	for _, t := range hit {
		note := e.noteOf(t, records)
		if op.Kind == Create && annotation.SameColor(t.color, color) {
			newStart, newEnd = min(newStart, t.start), max(newEnd, t.end)
			if note != "" {
				orphanNotes = append(orphanNotes, note)
			}
			continue
		}
		var pieces []fragment
		if !collapsed {
			if t.start < us {
				pieces = append(pieces, fragment{text: ix.Text[t.start:us], offset: t.start, color: t.color})
			}
			if op.Kind == Recolor {
				lo, hi := max(us, t.start), min(ue, t.end)
				pieces = append(pieces, fragment{text: ix.Text[lo:hi], offset: lo, color: color})
			}
			if t.end > ue {
				pieces = append(pieces, fragment{text: ix.Text[ue:t.end], offset: ue, color: t.color})
			}
		}
		kept := pieces[:0]
		for _, p := range pieces {
			if utf8.RuneCountInString(strings.TrimSpace(p.text)) >= e.minRunes {
				p.origin = t.id
				kept = append(kept, p)
			}
		}
		switch {
		case note == "":
		case len(kept) > 0:
			kept[0].note = note
		case op.Kind == Create:
			orphanNotes = append(orphanNotes, note)
		}
		frags = append(frags, kept...)
	}

	var selHTML string
	if op.Kind == Create && e.capture != nil {
		if r, ok := anchor.Materialize(ix.Segments, newStart, newEnd-newStart); ok {
			if h, err := e.capture(r); err == nil {
				selHTML = h
			}
		}
	}
	selText := ix.Text[newStart:newEnd]

	for _, t := range hit {
		e.painter.RemoveNoteUI(doc, t.markers[len(t.markers)-1])
		for _, m := range t.markers {
			e.painter.Unwrap(doc, m)
		}
		res.Deleted = append(res.Deleted, t.id)
	}
	if len(hit) > 0 {
		e.painter.Normalize(doc, body)
	}

	for _, f := range frags {
		base, known := records[f.origin]
		a := annotation.Annotation{
			ID:        e.newID(),
			URL:       op.Context.URL,
			Title:     op.Context.Title,
			Text:      f.text,
			Color:     f.color,
			Note:      f.note,
			Timestamp: e.now(),
			Projects:  op.Context.ProjectTags(),
		}
		if known {
			a.URL, a.Title = base.URL, base.Title
			if len(base.Projects) > 0 {
				a.Projects = append([]string(nil), base.Projects...)
			}
		}
		if _, err := e.paint(doc, body, &a, f.offset); err != nil {
			res.Dropped++
			e.logger.Debug("surgery: fragment dropped", "origin", f.origin, "error", err)
			continue
		}
		res.Created = append(res.Created, a)
	}

	if op.Kind == Create {
		notes := orphanNotes
		if n := strings.TrimSpace(op.Note); n != "" {
			notes = append(notes, n)
		}
		a := annotation.Annotation{
			ID:        e.newID(),
			URL:       op.Context.URL,
			Title:     op.Context.Title,
			Text:      selText,
			HTML:      selHTML,
			Color:     color,
			Note:      strings.Join(notes, " | "),
			Timestamp: e.now(),
			Projects:  op.Context.ProjectTags(),
		}
		ms, err := e.paint(doc, body, &a, newStart)
		if err != nil {
			return nil, fmt.Errorf("surgery: paint selection: %w", err)
		}
		res.Created = append(res.Created, a)
		res.Primary = &res.Created[len(res.Created)-1]
		res.Markers = ms
	}

	e.logger.Debug("surgery: done", "kind", op.Kind, "deleted", len(res.Deleted),
		"created", len(res.Created), "dropped", res.Dropped)
	return res, nil
}

// paint relocates a.Text near offset, fills in the path, and paints it.
func (e *Editor) paint(doc *dom.Document, body *html.Node, a *annotation.Annotation, offset int) ([]*html.Node, error) {
	loc, err := anchor.Locate(body, anchor.Hint{Text: a.Text, Offset: offset}, e.excluded())
	if err != nil {
		return nil, err
	}
	a.Path = anchor.ComputePath(loc.Range.Start.Node, anchor.SkipElements(e.painter.IsMarker))
	return e.painter.Paint(doc, loc.Range, *a)
}

// noteOf returns the stored note of t, falling back to its note display.
func (e *Editor) noteOf(t *target, records map[string]annotation.Annotation) string {
	if a, ok := records[t.id]; ok {
		return a.Note
	}
	last := t.markers[len(t.markers)-1]
	if ui := e.painter.NoteUI(last); ui != nil && dom.HasClass(ui, e.painter.Classes().Note) {
		return dom.TextContent(ui)
	}
	return ""
}
