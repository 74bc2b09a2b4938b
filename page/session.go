// CLAUDE:SUMMARY Session: one annotated page; serializes operations, holds the selection, restores stored annotations, and rescans after external mutations.
// Package page drives the annotation engine for one loaded page. A Session
// is the single writer of its document: every operation takes the session
// lock, runs to completion, and persists its outcome as the last step,
// rolling the document back if storage fails.
package page

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/hazyhaar/skylight/anchor"
	"github.com/hazyhaar/skylight/annotation"
	"github.com/hazyhaar/skylight/dom"
	"github.com/hazyhaar/skylight/idgen"
	"github.com/hazyhaar/skylight/paint"
	"github.com/hazyhaar/skylight/snippet"
	"github.com/hazyhaar/skylight/surgery"
	"golang.org/x/net/html"
)

var (
	ErrEmptySelection = errors.New("page: empty selection")
	ErrQuoteNotFound  = errors.New("page: quote not found")
	ErrNoEditor       = errors.New("page: no open note editor")
	ErrUnknownOption  = errors.New("page: unknown menu option")
)

// Config holds the session tunables.
type Config struct {
	DefaultColor     string
	DefaultProject   string
	MinFragmentRunes int
	Settle           time.Duration
	MaxBuffer        int
}

func (c *Config) defaults() {
	if c.DefaultColor == "" {
		c.DefaultColor = "yellow"
	}
	if c.DefaultProject == "" {
		c.DefaultProject = annotation.DefaultProject
	}
	if c.MinFragmentRunes <= 0 {
		c.MinFragmentRunes = 1
	}
	if c.Settle <= 0 {
		c.Settle = 2 * time.Second
	}
	if c.MaxBuffer <= 0 {
		c.MaxBuffer = 1000
	}
}

// Option configures a Session.
type Option func(*Session)

// WithConfig sets the session tunables.
func WithConfig(cfg Config) Option { return func(s *Session) { s.cfg = cfg } }

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(s *Session) {
		if l != nil {
			s.logger = l
		}
	}
}

// WithPainter replaces the default painter.
func WithPainter(p *paint.Painter) Option { return func(s *Session) { s.painter = p } }

// WithIDGenerator sets how new annotation ids are made.
func WithIDGenerator(g idgen.Generator) Option { return func(s *Session) { s.newID = g } }

// WithClock sets the timestamp source.
func WithClock(now func() time.Time) Option { return func(s *Session) { s.now = now } }

// WithOnRescan registers a callback run after every debounced rescan.
func WithOnRescan(fn func(*RestoreReport, error)) Option {
	return func(s *Session) { s.onRescan = fn }
}

// Session is one page with its annotations.
type Session struct {
	mu        sync.Mutex
	doc       *dom.Document
	url       string
	title     string
	repo      *annotation.Repository
	painter   *paint.Painter
	editor    *surgery.Editor
	selection *dom.Range
	cfg       Config
	logger    *slog.Logger
	newID     idgen.Generator
	now       func() time.Time
	rescan    *rescanner
	onRescan  func(*RestoreReport, error)
}

// New opens a session on doc, which was loaded from url.
func New(doc *dom.Document, url string, repo *annotation.Repository, opts ...Option) *Session {
	s := &Session{
		doc:    doc,
		url:    url,
		title:  doc.Title(),
		repo:   repo,
		logger: slog.Default(),
		newID:  idgen.Default,
		now:    time.Now,
	}
	for _, o := range opts {
		o(s)
	}
	s.cfg.defaults()
	if s.painter == nil {
		s.painter = paint.New(paint.WithLogger(s.logger))
	}
	capture := snippet.New(snippet.WithExclude(s.painter.IsUI))
	s.editor = surgery.New(s.painter,
		surgery.WithIDGenerator(s.newID),
		surgery.WithClock(s.now),
		surgery.WithMinFragmentRunes(s.cfg.MinFragmentRunes),
		surgery.WithCapture(capture.Capture),
		surgery.WithLogger(s.logger),
	)
	s.rescan = newRescanner(s.cfg.Settle, s.cfg.MaxBuffer, s.rescanTask)
	doc.Observe(func(m dom.Mutation) {
		if m.Origin == dom.OriginExternal {
			s.rescan.notify(m)
		}
	})
	return s
}

// URL returns the page address.
func (s *Session) URL() string { return s.url }

// Title returns the page title.
func (s *Session) Title() string { return s.title }

// Context returns the operation context for project, falling back to the
// configured default project.
func (s *Session) Context(project string) annotation.Context {
	if project == "" {
		project = s.cfg.DefaultProject
	}
	return annotation.Context{URL: s.url, Title: s.title, Project: project}
}

// HTML renders the current document.
func (s *Session) HTML() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.doc.String()
}

// Document returns the underlying document. Callers must not mutate it
// outside Mutate.
func (s *Session) Document() *dom.Document { return s.doc }

// Painter returns the session's painter.
func (s *Session) Painter() *paint.Painter { return s.painter }

func (s *Session) indexOptions() anchor.IndexOption {
	return anchor.WithExclude(s.painter.IsUI)
}

// Select sets the current selection.
func (s *Session) Select(r *dom.Range) {
	s.mu.Lock()
	s.selection = r
	s.mu.Unlock()
}

// ClearSelection drops the current selection.
func (s *Session) ClearSelection() { s.Select(nil) }

// SelectText selects the nth (0-based) exact occurrence of quote in the
// readable text of the page.
func (s *Session) SelectText(quote string, nth int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if quote == "" {
		return ErrEmptySelection
	}
	ix := anchor.BuildIndex(s.doc.Body(), s.indexOptions())
	from := 0
	for i := 0; ; i++ {
		k := strings.Index(ix.Text[from:], quote)
		if k < 0 {
			return fmt.Errorf("%w: %q (occurrence %d)", ErrQuoteNotFound, quote, nth)
		}
		if i == nth {
			r, ok := anchor.Materialize(ix.Segments, from+k, len(quote))
			if !ok {
				return fmt.Errorf("%w: %q", ErrQuoteNotFound, quote)
			}
			s.selection = r
			return nil
		}
		from += k + 1
	}
}

// SelectOffsets selects [start, end) of the readable text. start == end
// places a caret.
func (s *Session) SelectOffsets(start, end int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	ix := anchor.BuildIndex(s.doc.Body(), s.indexOptions())
	if start < 0 || end < start || end > len(ix.Text) {
		return fmt.Errorf("%w: offsets %d-%d outside %d", ErrQuoteNotFound, start, end, len(ix.Text))
	}
	if start == end {
		for _, seg := range ix.Segments {
			if start >= seg.Start && start < seg.End() {
				s.selection = dom.Collapsed(dom.Point{Node: seg.Node, Offset: start - seg.Start})
				return nil
			}
		}
		return fmt.Errorf("%w: caret at %d", ErrQuoteNotFound, start)
	}
	r, ok := anchor.Materialize(ix.Segments, start, end-start)
	if !ok {
		return fmt.Errorf("%w: offsets %d-%d", ErrQuoteNotFound, start, end)
	}
	s.selection = r
	return nil
}

// SelectedText returns the readable text of the selection.
func (s *Session) SelectedText() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.selectedTextLocked()
}

func (s *Session) selectedTextLocked() string {
	if s.selection == nil {
		return ""
	}
	ix := anchor.BuildIndex(s.doc.Body(), s.indexOptions())
	a, okA := ix.OffsetOf(s.selection.Start)
	b, okB := ix.OffsetOf(s.selection.End)
	if !okA || !okB || b <= a {
		return ""
	}
	return ix.Text[a:b]
}

// Annotations returns the stored annotations of the page.
func (s *Session) Annotations(ctx context.Context) ([]annotation.Annotation, error) {
	return s.repo.ForURL(ctx, s.url)
}

// apply runs a surgical operation and persists it, restoring the document
// if either step fails. Callers hold s.mu.
func (s *Session) apply(ctx context.Context, op surgery.Op) (*surgery.Result, error) {
	records, err := s.repo.ForURL(ctx, s.url)
	if err != nil {
		return nil, fmt.Errorf("page: load: %w", err)
	}
	op.Records = records
	cp := s.doc.Checkpoint()
	res, err := s.editor.Run(s.doc, op)
	if err != nil {
		s.doc.Rollback(cp)
		s.selection = nil
		if errors.Is(err, surgery.ErrEmptySelection) {
			return nil, ErrEmptySelection
		}
		return nil, err
	}
	if err := s.repo.Apply(ctx, res.Changes()); err != nil {
		s.doc.Rollback(cp)
		s.selection = nil
		s.logger.Error("page: persist failed, document rolled back", "url", s.url, "error", err)
		return nil, fmt.Errorf("page: persist: %w", err)
	}
	s.selection = nil
	s.logger.Info("page: "+op.Kind.String(), "url", s.url,
		"deleted", len(res.Deleted), "created", len(res.Created), "dropped", res.Dropped)
	return res, nil
}

// mutate runs fn against a checkpoint and rolls back when fn fails. Callers
// hold s.mu.
func (s *Session) mutate(fn func() error) error {
	cp := s.doc.Checkpoint()
	if err := fn(); err != nil {
		s.doc.Rollback(cp)
		return err
	}
	return nil
}

// RestoreReport counts the outcome of a restore pass.
type RestoreReport struct {
	Restored int
	Present  int
	Missing  int
	Skipped  int
}

// Restore paints every stored annotation of the page that has no marker
// yet. Individual failures are logged and counted; the pass never aborts.
func (s *Session) Restore(ctx context.Context) (*RestoreReport, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	list, err := s.repo.ForURL(ctx, s.url)
	if err != nil {
		return nil, fmt.Errorf("page: restore: %w", err)
	}
	rep := &RestoreReport{}
	body := s.doc.Body()
	for _, a := range list {
		if err := ctx.Err(); err != nil {
			return rep, err
		}
		if len(s.painter.Markers(body, a.ID)) > 0 {
			rep.Present++
			continue
		}
		loc, err := anchor.Locate(body, anchor.Hint{Text: a.Text, Path: a.Path, Offset: -1}, s.indexOptions())
		if err != nil {
			rep.Missing++
			s.logger.Warn("page: anchor not found", "id", a.ID, "url", s.url, "error", err)
			continue
		}
		if _, err := s.painter.Paint(s.doc, loc.Range, a); err != nil {
			rep.Skipped++
			s.logger.Warn("page: restore skipped", "id", a.ID, "url", s.url, "error", err)
			continue
		}
		rep.Restored++
	}
	s.logger.Debug("page: restore", "url", s.url, "restored", rep.Restored,
		"present", rep.Present, "missing", rep.Missing, "skipped", rep.Skipped)
	return rep, nil
}

// Mutate applies a change made by the host page. It is journaled as
// external and schedules a rescan.
func (s *Session) Mutate(fn func(body *html.Node) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	err := fn(s.doc.Body())
	s.selection = nil
	s.doc.Record(dom.Mutation{Op: dom.OpInsert, Origin: dom.OriginExternal, Target: "body"})
	return err
}

// Watch runs the debounced rescan loop until ctx is done.
func (s *Session) Watch(ctx context.Context) {
	s.rescan.run(ctx)
}

func (s *Session) rescanTask(ctx context.Context) {
	rep, err := s.Restore(ctx)
	if err != nil {
		s.logger.Warn("page: rescan failed", "url", s.url, "error", err)
	}
	if s.onRescan != nil {
		s.onRescan(rep, err)
	}
}
