package dom

import (
	"errors"
	"strings"
	"testing"

	"golang.org/x/net/html"
)

func mustParse(t *testing.T, s string) *Document {
	t.Helper()
	doc, err := ParseString(s)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	return doc
}

// textNode returns the first text node whose data contains sub.
func textNode(t *testing.T, root *html.Node, sub string) *html.Node {
	t.Helper()
	var found *html.Node
	Walk(root, func(n *html.Node) bool {
		if found == nil && n.Type == html.TextNode && strings.Contains(n.Data, sub) {
			found = n
		}
		return found == nil
	})
	if found == nil {
		t.Fatalf("no text node containing %q", sub)
	}
	return found
}

func bodyHTML(d *Document) string {
	var sb strings.Builder
	for c := d.Body().FirstChild; c != nil; c = c.NextSibling {
		sb.WriteString(RenderNode(c))
	}
	return sb.String()
}

func TestComparePoints(t *testing.T) {
	doc := mustParse(t, `<p>Hello <b>bold</b> world</p>`)
	hello := textNode(t, doc.Root, "Hello")
	bold := textNode(t, doc.Root, "bold")
	world := textNode(t, doc.Root, "world")
	p := hello.Parent

	tests := []struct {
		name string
		a, b Point
		want int
	}{
		{"same node", Point{hello, 1}, Point{hello, 3}, -1},
		{"equal", Point{bold, 2}, Point{bold, 2}, 0},
		{"siblings", Point{world, 0}, Point{hello, 5}, 1},
		{"nested before", Point{hello, 6}, Point{bold, 0}, -1},
		{"parent before child", Point{p, 1}, Point{bold, 0}, -1},
		{"parent after child", Point{p, 2}, Point{bold, 4}, 1},
		{"child before parent", Point{hello, 0}, Point{p, 1}, -1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := ComparePoints(tt.a, tt.b); got != tt.want {
				t.Errorf("got %d, want %d", got, tt.want)
			}
		})
	}
}

func TestRange_StringAndTextNodes(t *testing.T) {
	doc := mustParse(t, `<p>Hello <b>bold</b> world</p>`)
	hello := textNode(t, doc.Root, "Hello")
	world := textNode(t, doc.Root, "world")

	r, err := NewRange(hello, 2, world, 3)
	if err != nil {
		t.Fatalf("new range: %v", err)
	}
	if got, want := r.String(), "llo bold wo"; got != want {
		t.Errorf("String: got %q, want %q", got, want)
	}
	if n := len(r.TextNodes()); n != 3 {
		t.Errorf("TextNodes: got %d, want 3", n)
	}

	// End at offset 0 of "world" does not touch it.
	r2, _ := NewRange(hello, 0, world, 0)
	if n := len(r2.TextNodes()); n != 2 {
		t.Errorf("TextNodes: got %d, want 2", n)
	}
}

func TestRange_Validate(t *testing.T) {
	doc := mustParse(t, `<p>héllo</p>`)
	txt := textNode(t, doc.Root, "llo")

	if _, err := NewRange(txt, 2, txt, 3); !errors.Is(err, ErrInvalidRange) {
		t.Errorf("mid-rune offset: got %v, want ErrInvalidRange", err)
	}
	if _, err := NewRange(txt, 4, txt, 1); !errors.Is(err, ErrInvalidRange) {
		t.Errorf("reversed: got %v, want ErrInvalidRange", err)
	}
	if _, err := NewRange(txt, 0, txt, 99); !errors.Is(err, ErrInvalidRange) {
		t.Errorf("overflow: got %v, want ErrInvalidRange", err)
	}
	other := mustParse(t, `<p>x</p>`)
	if _, err := NewRange(txt, 0, textNode(t, other.Root, "x"), 1); !errors.Is(err, ErrInvalidRange) {
		t.Errorf("different trees: got %v, want ErrInvalidRange", err)
	}
}

func TestSurroundContents_SingleText(t *testing.T) {
	doc := mustParse(t, `<p>Hello world</p>`)
	txt := textNode(t, doc.Root, "Hello")
	r, _ := NewRange(txt, 6, txt, 11)

	mark := &html.Node{Type: html.ElementNode, Data: "mark"}
	if err := r.SurroundContents(mark); err != nil {
		t.Fatalf("surround: %v", err)
	}
	if got, want := bodyHTML(doc), `<p>Hello <mark>world</mark></p>`; got != want {
		t.Errorf("got %s, want %s", got, want)
	}
	if r.Start.Node != mark.Parent {
		t.Error("range should select the wrapper")
	}
}

func TestSurroundContents_PartialElement(t *testing.T) {
	doc := mustParse(t, `<p>Hello <b>bold</b> world</p>`)
	hello := textNode(t, doc.Root, "Hello")
	bold := textNode(t, doc.Root, "bold")
	r, _ := NewRange(hello, 2, bold, 2)

	err := r.SurroundContents(&html.Node{Type: html.ElementNode, Data: "mark"})
	if !errors.Is(err, ErrPartialNode) {
		t.Fatalf("got %v, want ErrPartialNode", err)
	}
	if got, want := bodyHTML(doc), `<p>Hello <b>bold</b> world</p>`; got != want {
		t.Errorf("tree changed on failure: %s", got)
	}
}

func TestExtractContents_AcrossElements(t *testing.T) {
	doc := mustParse(t, `<p>Hello <b>bold</b> world</p>`)
	hello := textNode(t, doc.Root, "Hello")
	bold := textNode(t, doc.Root, "bold")
	r, _ := NewRange(hello, 2, bold, 2)

	frag, err := r.ExtractContents()
	if err != nil {
		t.Fatalf("extract: %v", err)
	}
	var sb strings.Builder
	for _, n := range frag {
		sb.WriteString(RenderNode(n))
	}
	if got, want := sb.String(), `llo <b>bo</b>`; got != want {
		t.Errorf("fragment: got %s, want %s", got, want)
	}
	if got, want := bodyHTML(doc), `<p>He<b>ld</b> world</p>`; got != want {
		t.Errorf("remaining: got %s, want %s", got, want)
	}
	if !r.Collapsed() {
		t.Error("range should collapse after extract")
	}

	mark := &html.Node{Type: html.ElementNode, Data: "mark"}
	for _, n := range frag {
		mark.AppendChild(n)
	}
	if err := r.InsertNode(mark); err != nil {
		t.Fatalf("insert: %v", err)
	}
	if got, want := bodyHTML(doc), `<p>He<mark>llo <b>bo</b></mark><b>ld</b> world</p>`; got != want {
		t.Errorf("after insert: got %s, want %s", got, want)
	}
}

func TestCloneContents_LeavesTree(t *testing.T) {
	doc := mustParse(t, `<ul><li>one</li><li>two</li></ul>`)
	one := textNode(t, doc.Root, "one")
	two := textNode(t, doc.Root, "two")
	r, _ := NewRange(one, 1, two, 2)

	frag, err := r.CloneContents()
	if err != nil {
		t.Fatalf("clone: %v", err)
	}
	var sb strings.Builder
	for _, n := range frag {
		sb.WriteString(RenderNode(n))
	}
	if got, want := sb.String(), `<li>ne</li><li>tw</li>`; got != want {
		t.Errorf("got %s, want %s", got, want)
	}
	if got, want := bodyHTML(doc), `<ul><li>one</li><li>two</li></ul>`; got != want {
		t.Errorf("tree changed: %s", got)
	}
}

func TestNormalizeAndUnwrap(t *testing.T) {
	doc := mustParse(t, `<p>a<mark>b</mark>c</p>`)
	mark := textNode(t, doc.Root, "b").Parent
	p := Unwrap(mark)
	Normalize(p)
	if got := ChildCount(p); got != 1 {
		t.Fatalf("children: got %d, want 1", got)
	}
	if got := p.FirstChild.Data; got != "abc" {
		t.Errorf("got %q, want %q", got, "abc")
	}
}

func TestCheckpointRollback(t *testing.T) {
	doc := mustParse(t, `<p>keep me</p>`)
	var seen []Mutation
	doc.Observe(func(m Mutation) { seen = append(seen, m) })

	cp := doc.Checkpoint()
	txt := textNode(t, doc.Root, "keep")
	txt.Data = "changed"
	doc.Rollback(cp)

	if got := TextContent(doc.Body()); got != "keep me" {
		t.Errorf("got %q, want %q", got, "keep me")
	}
	if len(seen) != 1 || seen[0].Op != OpReset || seen[0].Origin != OriginSelf {
		t.Errorf("journal: got %+v", seen)
	}
}
