package paint

import (
	"errors"
	"strings"
	"testing"

	"github.com/hazyhaar/skylight/annotation"
	"github.com/hazyhaar/skylight/dom"
	"golang.org/x/net/html"
)

func parse(t *testing.T, s string) *dom.Document {
	t.Helper()
	doc, err := dom.ParseString(s)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	return doc
}

func text(t *testing.T, root *html.Node, sub string) *html.Node {
	t.Helper()
	var found *html.Node
	dom.Walk(root, func(n *html.Node) bool {
		if found == nil && n.Type == html.TextNode && strings.Contains(n.Data, sub) {
			found = n
		}
		return found == nil
	})
	if found == nil {
		t.Fatalf("no text %q", sub)
	}
	return found
}

func markerText(ms []*html.Node) string {
	var sb strings.Builder
	for _, m := range ms {
		sb.WriteString(dom.TextContent(m))
	}
	return sb.String()
}

var yellow = annotation.Annotation{ID: "a1", Color: annotation.Yellow}

func TestPaint_SingleTextNode(t *testing.T) {
	doc := parse(t, `<p>Hello world</p>`)
	p := New()
	n := text(t, doc.Root, "Hello")
	rng, _ := dom.NewRange(n, 6, n, 11)

	ms, err := p.Paint(doc, rng, yellow)
	if err != nil {
		t.Fatalf("paint: %v", err)
	}
	if len(ms) != 1 {
		t.Fatalf("markers: got %d, want 1", len(ms))
	}
	want := `<p>Hello <mark class="skylight-highlight" data-id="a1" data-color="#ffeb3b" style="background-color: #ffeb3b">world</mark></p>`
	if got := dom.RenderNode(doc.Body().FirstChild); got != want {
		t.Errorf("got %s\nwant %s", got, want)
	}
}

func TestPaint_MultiNodePreservesContent(t *testing.T) {
	doc := parse(t, `<p>Hello <b>bold</b> world</p>`)
	before := dom.TextContent(doc.Body())
	p := New()
	rng, _ := dom.NewRange(text(t, doc.Root, "Hello"), 2, text(t, doc.Root, "world"), 3)
	want := rng.String()

	ms, err := p.Paint(doc, rng, yellow)
	if err != nil {
		t.Fatalf("paint: %v", err)
	}
	if len(ms) != 3 {
		t.Fatalf("markers: got %d, want 3", len(ms))
	}
	if got := markerText(ms); got != want {
		t.Errorf("marker text: got %q, want %q", got, want)
	}
	if got := dom.TextContent(doc.Body()); got != before {
		t.Errorf("page text changed: got %q, want %q", got, before)
	}
	for _, m := range ms {
		if dom.Attr(m, AttrID) != "a1" {
			t.Error("marker without shared id")
		}
	}
	if got := len(p.Markers(doc.Root, "a1")); got != 3 {
		t.Errorf("Markers: got %d", got)
	}
}

func TestPaint_NoteAfterLastMarker(t *testing.T) {
	doc := parse(t, `<p>one <i>two</i> three</p>`)
	p := New()
	rng, _ := dom.NewRange(text(t, doc.Root, "one"), 0, text(t, doc.Root, "two"), 3)
	a := yellow
	a.Note = "why"

	ms, err := p.Paint(doc, rng, a)
	if err != nil {
		t.Fatalf("paint: %v", err)
	}
	last := ms[len(ms)-1]
	ui := p.NoteUI(last)
	if ui == nil || dom.TextContent(ui) != "why" || !dom.HasClass(ui, "skylight-note") {
		t.Fatalf("note display missing after last marker")
	}
	if p.NoteUI(ms[0]) != nil {
		t.Error("note should only follow the last marker")
	}
}

func TestPaint_SkipsInjectedUI(t *testing.T) {
	doc := parse(t, `<p>alpha<span class="skylight-note">note</span>beta</p>`)
	p := New()
	rng, _ := dom.NewRange(text(t, doc.Root, "alpha"), 0, text(t, doc.Root, "beta"), 4)

	ms, err := p.Paint(doc, rng, yellow)
	if err != nil {
		t.Fatalf("paint: %v", err)
	}
	if got := markerText(ms); got != "alphabeta" {
		t.Errorf("got %q, want %q", got, "alphabeta")
	}
}

func TestPaint_Errors(t *testing.T) {
	doc := parse(t, `<p>héllo</p><script>x</script>`)
	p := New()
	n := text(t, doc.Root, "llo")

	bad := &dom.Range{Start: dom.Point{Node: n, Offset: 2}, End: dom.Point{Node: n, Offset: 4}}
	if _, err := p.Paint(doc, bad, yellow); !errors.Is(err, ErrWrapFailed) {
		t.Errorf("mid-rune: got %v, want ErrWrapFailed", err)
	}
	if _, err := p.Paint(doc, dom.SelectNodeContents(text(t, doc.Root, "x").Parent), yellow); !errors.Is(err, ErrEmptyRange) {
		t.Errorf("script: got %v, want ErrEmptyRange", err)
	}
	ok, _ := dom.NewRange(n, 0, n, 1)
	if _, err := p.Paint(doc, ok, annotation.Annotation{}); !errors.Is(err, ErrMissingID) {
		t.Errorf("no id: got %v, want ErrMissingID", err)
	}
	if got := len(p.AllMarkers(doc.Root)); got != 0 {
		t.Errorf("failed paints left %d markers", got)
	}
}

func TestWrap_FallbackExtracts(t *testing.T) {
	doc := parse(t, `<p>Hello <b>bold</b> world</p>`)
	p := New()
	sub, _ := dom.NewRange(text(t, doc.Root, "Hello"), 2, text(t, doc.Root, "bold"), 2)
	m := p.newMarker(yellow)

	if err := wrap(sub, m); err != nil {
		t.Fatalf("wrap: %v", err)
	}
	if got := dom.TextContent(m); got != "llo bo" {
		t.Errorf("marker: got %q", got)
	}
	if got := dom.TextContent(doc.Body()); got != "Hello bold world" {
		t.Errorf("page text: got %q", got)
	}
}

func TestUndoRestoresTree(t *testing.T) {
	doc := parse(t, `<p>Hello <b>bold</b> world</p>`)
	orig := dom.RenderNode(doc.Body())
	p := New()
	rng, _ := dom.NewRange(text(t, doc.Root, "Hello"), 0, text(t, doc.Root, "world"), 6)
	ms, err := p.Paint(doc, rng, yellow)
	if err != nil {
		t.Fatal(err)
	}
	p.undo(ms)
	if got := dom.RenderNode(doc.Body()); got != orig {
		t.Errorf("got %s, want %s", got, orig)
	}
}

func TestEditorLifecycle(t *testing.T) {
	doc := parse(t, `<p>Hello world</p>`)
	p := New()
	n := text(t, doc.Root, "Hello")
	rng, _ := dom.NewRange(n, 0, n, 5)
	ms, _ := p.Paint(doc, rng, yellow)
	last := ms[0]

	ed := p.OpenEditor(doc, last, "")
	if dom.TextContent(ed) != Placeholder || dom.Attr(ed, "contenteditable") != "true" {
		t.Fatalf("editor not initialised: %s", dom.RenderNode(ed))
	}
	if again := p.OpenEditor(doc, last, ""); again != ed {
		t.Error("second open should reuse the editor")
	}
	if _, kept := p.CloseEditor(doc, ed, "  "+Placeholder+" "); kept {
		t.Error("placeholder should not be kept")
	}
	if p.NoteUI(last) != nil {
		t.Error("editor should be removed")
	}

	ed = p.OpenEditor(doc, last, "")
	note, kept := p.CloseEditor(doc, ed, "  a thought ")
	if !kept || note != "a thought" {
		t.Fatalf("got %q, %v", note, kept)
	}
	ui := p.NoteUI(last)
	if !dom.HasClass(ui, "skylight-note") || dom.HasAttr(ui, "contenteditable") {
		t.Errorf("editor not converted: %s", dom.RenderNode(ui))
	}

	// Reopening over a note display prefills it.
	ed = p.OpenEditor(doc, last, "a thought")
	if dom.TextContent(ed) != "a thought" || p.NoteUI(last) != ed {
		t.Errorf("reopen: %s", dom.RenderNode(last.Parent))
	}
}

func TestMenu(t *testing.T) {
	doc := parse(t, `<p>x</p>`)
	p := New()
	items := []MenuItem{{"yellow", "Yellow"}, {"delete", "Delete"}}
	m := p.OpenMenu(doc, doc.Body(), items)
	p.OpenMenu(doc, doc.Body(), items)
	var menus int
	dom.Walk(doc.Root, func(n *html.Node) bool {
		if dom.Attr(n, "id") == "skylight-menu" {
			menus++
		}
		return true
	})
	if menus != 1 {
		t.Errorf("menus: got %d, want 1", menus)
	}
	if !p.IsUI(p.Menu(doc.Root)) || dom.ChildCount(m) != 2 {
		t.Error("menu not rendered")
	}
	if !p.CloseMenu(doc, doc.Root) || p.Menu(doc.Root) != nil {
		t.Error("menu not closed")
	}
}
