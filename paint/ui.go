// CLAUDE:SUMMARY Note display, inline note editor and floating menu elements injected next to markers.
package paint

import (
	"strings"

	"github.com/hazyhaar/skylight/dom"
	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
)

// Placeholder is the editor text shown when an annotation has no note yet.
const Placeholder = "type note..."

// MenuItem is one floating-menu choice.
type MenuItem struct {
	Option string
	Label  string
}

func span(class, text string) *html.Node {
	n := &html.Node{
		Type:     html.ElementNode,
		DataAtom: atom.Span,
		Data:     "span",
		Attr:     []html.Attribute{{Key: "class", Val: class}},
	}
	if text != "" {
		n.AppendChild(&html.Node{Type: html.TextNode, Data: text})
	}
	return n
}

func (p *Painter) insertNote(last *html.Node, note string) *html.Node {
	n := span(p.classes.Note, note)
	dom.InsertAfter(last, n)
	return n
}

// NoteUI returns the note display or editor following the last marker.
func (p *Painter) NoteUI(last *html.Node) *html.Node {
	if last == nil {
		return nil
	}
	s := last.NextSibling
	if s != nil && (dom.HasClass(s, p.classes.Note) || dom.HasClass(s, p.classes.Editor)) {
		return s
	}
	return nil
}

// RemoveNoteUI deletes the note display and editor after the last marker.
func (p *Painter) RemoveNoteUI(doc *dom.Document, last *html.Node) bool {
	removed := false
	for s := p.NoteUI(last); s != nil; s = p.NoteUI(last) {
		dom.Detach(s)
		removed = true
	}
	if removed {
		doc.Record(dom.Mutation{Op: dom.OpRemove, Origin: dom.OriginSelf, Target: "note"})
	}
	return removed
}

// AttachNote shows note after the last marker, replacing any display or
// editor already there. An empty note just removes them.
func (p *Painter) AttachNote(doc *dom.Document, last *html.Node, note string) *html.Node {
	p.RemoveNoteUI(doc, last)
	if note == "" {
		return nil
	}
	n := p.insertNote(last, note)
	doc.Record(dom.Mutation{Op: dom.OpInsert, Origin: dom.OriginSelf, Target: "note"})
	return n
}

// OpenEditor places an editable span after the last marker, prefilled with
// note or the placeholder. An open editor is reused; a note display is
// replaced by the editor.
func (p *Painter) OpenEditor(doc *dom.Document, last *html.Node, note string) *html.Node {
	if ui := p.NoteUI(last); ui != nil && dom.HasClass(ui, p.classes.Editor) {
		return ui
	}
	p.RemoveNoteUI(doc, last)
	if note == "" {
		note = Placeholder
	}
	ed := span(p.classes.Editor, note)
	dom.SetAttr(ed, "contenteditable", "true")
	dom.InsertAfter(last, ed)
	doc.Record(dom.Mutation{Op: dom.OpInsert, Origin: dom.OriginSelf, Target: "editor"})
	return ed
}

// CloseEditor commits value. A blank value or the placeholder removes the
// editor and returns false; anything else turns the editor into a note
// display and returns the trimmed note.
func (p *Painter) CloseEditor(doc *dom.Document, ed *html.Node, value string) (string, bool) {
	v := strings.TrimSpace(value)
	if v == "" || v == Placeholder {
		dom.Detach(ed)
		doc.Record(dom.Mutation{Op: dom.OpRemove, Origin: dom.OriginSelf, Target: "editor"})
		return "", false
	}
	for ed.FirstChild != nil {
		ed.RemoveChild(ed.FirstChild)
	}
	ed.AppendChild(&html.Node{Type: html.TextNode, Data: v})
	dom.RemoveAttr(ed, "contenteditable")
	dom.SetAttr(ed, "class", p.classes.Note)
	doc.Record(dom.Mutation{Op: dom.OpText, Origin: dom.OriginSelf, Target: "note"})
	return v, true
}

// Menu returns the open floating menu under root.
func (p *Painter) Menu(root *html.Node) *html.Node {
	var found *html.Node
	dom.Walk(root, func(n *html.Node) bool {
		if found != nil {
			return false
		}
		if n.Type == html.ElementNode && dom.Attr(n, "id") == p.classes.MenuID {
			found = n
			return false
		}
		return true
	})
	return found
}

// OpenMenu appends the floating menu to body, replacing an open one.
func (p *Painter) OpenMenu(doc *dom.Document, body *html.Node, items []MenuItem) *html.Node {
	p.CloseMenu(doc, body)
	menu := &html.Node{
		Type:     html.ElementNode,
		DataAtom: atom.Div,
		Data:     "div",
		Attr:     []html.Attribute{{Key: "id", Val: p.classes.MenuID}},
	}
	for _, it := range items {
		b := &html.Node{
			Type:     html.ElementNode,
			DataAtom: atom.Button,
			Data:     "button",
			Attr:     []html.Attribute{{Key: "data-option", Val: it.Option}},
		}
		b.AppendChild(&html.Node{Type: html.TextNode, Data: it.Label})
		menu.AppendChild(b)
	}
	body.AppendChild(menu)
	doc.Record(dom.Mutation{Op: dom.OpInsert, Origin: dom.OriginSelf, Target: "menu"})
	return menu
}

// CloseMenu removes the floating menu if one is open.
func (p *Painter) CloseMenu(doc *dom.Document, root *html.Node) bool {
	m := p.Menu(root)
	if m == nil {
		return false
	}
	dom.Detach(m)
	doc.Record(dom.Mutation{Op: dom.OpRemove, Origin: dom.OriginSelf, Target: "menu"})
	return true
}
