package page

import (
	"context"
	"errors"
	"fmt"

	"github.com/hazyhaar/skylight/annotation"
	"github.com/hazyhaar/skylight/dom"
	"github.com/hazyhaar/skylight/paint"
	"github.com/hazyhaar/skylight/surgery"
	"golang.org/x/net/html"
)

// Actions accepted by Dispatch.
const (
	ActionHighlight      = "DO_HIGHLIGHT"
	ActionQuick          = "QUICK_ACTION"
	ActionSurgicalRemove = "SURGICAL_REMOVE"
	ActionRemoveAtCursor = "REMOVE_AT_CURSOR"
	ActionOpenMenu       = "OPEN_MENU"
)

// OptionDelete is the menu option that clears highlighting.
const OptionDelete = "delete"

// ModeNote asks DO_HIGHLIGHT to open the note editor.
const ModeNote = "note"

// Message is a command sent to the page by a menu, shortcut or the CLI.
type Message struct {
	Action  string `json:"action"`
	Mode    string `json:"mode,omitempty"`
	Color   string `json:"color,omitempty"`
	IsNote  bool   `json:"isNote,omitempty"`
	Project string `json:"project,omitempty"`
}

// MenuItems are the choices of the floating menu.
func MenuItems() []paint.MenuItem {
	return []paint.MenuItem{
		{Option: "yellow", Label: "Yellow"},
		{Option: "blue", Label: "Blue"},
		{Option: "transparent", Label: "Note only"},
		{Option: OptionDelete, Label: "Remove"},
	}
}

// Dispatch runs msg against the current selection. An empty selection and
// unknown actions are no-ops.
func (s *Session) Dispatch(ctx context.Context, msg Message) error {
	oc := s.Context(msg.Project)
	var err error
	switch msg.Action {
	case ActionHighlight, ActionQuick:
		if msg.Color == OptionDelete || msg.Mode == OptionDelete {
			_, err = s.Remove(ctx, oc)
			break
		}
		_, err = s.Highlight(ctx, oc, msg.Color, msg.IsNote || msg.Mode == ModeNote)
	case ActionSurgicalRemove:
		_, err = s.Remove(ctx, oc)
	case ActionRemoveAtCursor:
		_, err = s.RemoveAtCursor(ctx, oc)
	case ActionOpenMenu:
		s.OpenMenu()
	default:
		s.logger.Debug("page: unknown action", "action", msg.Action)
		return nil
	}
	if errors.Is(err, ErrEmptySelection) {
		s.logger.Debug("page: nothing selected", "action", msg.Action)
		return nil
	}
	return err
}

// Highlight paints the selection. With withNote the note editor opens on
// the new annotation.
func (s *Session) Highlight(ctx context.Context, oc annotation.Context, color string, withNote bool) (*annotation.Annotation, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.highlightLocked(ctx, oc, color, withNote)
}

func (s *Session) highlightLocked(ctx context.Context, oc annotation.Context, color string, withNote bool) (*annotation.Annotation, error) {
	if s.selection == nil {
		return nil, ErrEmptySelection
	}
	if color == "" {
		color = s.cfg.DefaultColor
	}
	res, err := s.apply(ctx, surgery.Op{Kind: surgery.Create, Range: s.selection, Color: color, Context: oc})
	if err != nil {
		return nil, err
	}
	a := *res.Primary
	if withNote && len(res.Markers) > 0 {
		s.painter.OpenEditor(s.doc, res.Markers[len(res.Markers)-1], a.Note)
	}
	return &a, nil
}

// Remove clears highlighting from the selection, keeping the untouched
// parts of partially covered annotations.
func (s *Session) Remove(ctx context.Context, oc annotation.Context) (*surgery.Result, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.removeLocked(ctx, oc)
}

func (s *Session) removeLocked(ctx context.Context, oc annotation.Context) (*surgery.Result, error) {
	if s.selection == nil {
		return nil, ErrEmptySelection
	}
	return s.apply(ctx, surgery.Op{Kind: surgery.Remove, Range: s.selection, Context: oc})
}

// RemoveAtCursor removes every annotation containing the start of the
// selection, whole.
func (s *Session) RemoveAtCursor(ctx context.Context, oc annotation.Context) (*surgery.Result, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.selection == nil {
		return nil, ErrEmptySelection
	}
	return s.apply(ctx, surgery.Op{Kind: surgery.Remove, Range: dom.Collapsed(s.selection.Start), Context: oc})
}

// Recolor changes the color of highlighted text inside the selection.
func (s *Session) Recolor(ctx context.Context, oc annotation.Context, color string) (*surgery.Result, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.selection == nil {
		return nil, ErrEmptySelection
	}
	return s.apply(ctx, surgery.Op{Kind: surgery.Recolor, Range: s.selection, Color: color, Context: oc})
}

// RemoveAnnotation deletes annotation id and its markers.
func (s *Session) RemoveAnnotation(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	markers := s.painter.Markers(s.doc.Body(), id)
	return s.mutate(func() error {
		if len(markers) > 0 {
			s.painter.RemoveNoteUI(s.doc, markers[len(markers)-1])
			for _, m := range markers {
				s.painter.Unwrap(s.doc, m)
			}
			s.painter.Normalize(s.doc, s.doc.Body())
		}
		err := s.repo.Delete(ctx, id)
		if errors.Is(err, annotation.ErrNotFound) && len(markers) > 0 {
			return nil
		}
		return err
	})
}

// last returns the last marker of id, or ErrNotFound.
func (s *Session) last(id string) (*html.Node, error) {
	ms := s.painter.Markers(s.doc.Body(), id)
	if len(ms) == 0 {
		return nil, fmt.Errorf("%w: %s on page", annotation.ErrNotFound, id)
	}
	return ms[len(ms)-1], nil
}

// EditNote replaces the note of annotation id. The annotation keeps its id.
func (s *Session) EditNote(ctx context.Context, id, note string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.mutate(func() error {
		if last, err := s.last(id); err == nil {
			s.painter.AttachNote(s.doc, last, note)
		}
		return s.repo.UpdateNote(ctx, id, note)
	})
}

// OpenNoteEditor opens the inline note editor on annotation id.
func (s *Session) OpenNoteEditor(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	last, err := s.last(id)
	if err != nil {
		return err
	}
	a, err := s.repo.Get(ctx, id)
	if err != nil {
		return err
	}
	s.painter.OpenEditor(s.doc, last, a.Note)
	return nil
}

// CommitNote closes the editor of annotation id with value. A blank value
// or the placeholder clears the stored note.
func (s *Session) CommitNote(ctx context.Context, id, value string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	last, err := s.last(id)
	if err != nil {
		return err
	}
	ed := s.painter.NoteUI(last)
	if ed == nil || !dom.HasClass(ed, s.painter.Classes().Editor) {
		return ErrNoEditor
	}
	return s.mutate(func() error {
		note, _ := s.painter.CloseEditor(s.doc, ed, value)
		return s.repo.UpdateNote(ctx, id, note)
	})
}

// OpenMenu shows the floating menu.
func (s *Session) OpenMenu() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.painter.OpenMenu(s.doc, s.doc.Body(), MenuItems())
}

// CloseMenu hides the floating menu.
func (s *Session) CloseMenu() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.painter.CloseMenu(s.doc, s.doc.Body())
}

// ChooseMenu applies a menu option to the selection and closes the menu.
// shift opens the note editor on a new highlight.
func (s *Session) ChooseMenu(ctx context.Context, oc annotation.Context, option string, shift bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.painter.CloseMenu(s.doc, s.doc.Body())
	if option == OptionDelete {
		_, err := s.removeLocked(ctx, oc)
		return err
	}
	if _, err := annotation.NormalizeColor(option); err != nil {
		return fmt.Errorf("%w: %q", ErrUnknownOption, option)
	}
	_, err := s.highlightLocked(ctx, oc, option, shift)
	return err
}
