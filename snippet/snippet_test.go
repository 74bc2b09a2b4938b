package snippet

import (
	"strings"
	"testing"

	"github.com/hazyhaar/skylight/dom"
	"golang.org/x/net/html"
)

func TestCapture(t *testing.T) {
	doc, err := dom.ParseString(`<div onclick="x()"><p class="c">Read <a href="https://example.com" target="_blank">this</a> <span>now</span></p>
<ul><li>one</li><li>two</li></ul><script>bad()</script></div>`)
	if err != nil {
		t.Fatal(err)
	}
	div := doc.Body().FirstChild
	before := doc.String()

	got, err := New().Capture(dom.SelectNodeContents(div))
	if err != nil {
		t.Fatalf("capture: %v", err)
	}
	for _, want := range []string{`<p>Read <a href="https://example.com" rel="nofollow">this</a> now</p>`, `<li>one</li>`} {
		if !strings.Contains(got, want) {
			t.Errorf("missing %s in %s", want, got)
		}
	}
	for _, bad := range []string{"onclick", "class=", "target", "span", "bad()"} {
		if strings.Contains(got, bad) {
			t.Errorf("unexpected %q in %s", bad, got)
		}
	}
	if doc.String() != before {
		t.Error("capture mutated the document")
	}
}

func TestCapture_PartialText(t *testing.T) {
	doc, _ := dom.ParseString(`<p>Hello <em>brave</em> world</p>`)
	var hello, world *html.Node
	dom.Walk(doc.Root, func(n *html.Node) bool {
		if n.Type == html.TextNode {
			switch n.Data {
			case "Hello ":
				hello = n
			case " world":
				world = n
			}
		}
		return true
	})
	r, _ := dom.NewRange(hello, 2, world, 3)
	got, err := New().Capture(r)
	if err != nil {
		t.Fatal(err)
	}
	if want := "llo <em>brave</em> wo"; got != want {
		t.Errorf("got %q, want %q", got, want)
	}
}

func TestCapture_Exclude(t *testing.T) {
	doc, _ := dom.ParseString(`<p>quick <mark>brown</mark><span class="note">private</span> fox</p><div id="menu">Yellow</div>`)
	p := doc.Body().FirstChild
	isUI := func(n *html.Node) bool {
		return dom.HasClass(n, "note") || dom.Attr(n, "id") == "menu"
	}

	got, err := New(WithExclude(isUI)).Capture(dom.SelectNodeContents(doc.Body()))
	if err != nil {
		t.Fatal(err)
	}
	if want := "<p>quick brown fox</p>"; got != want {
		t.Errorf("got %q, want %q", got, want)
	}

	got, _ = New(WithExclude(isUI)).Capture(dom.SelectNodeContents(p))
	if strings.Contains(got, "private") {
		t.Errorf("excluded text captured: %q", got)
	}
	if !strings.Contains(doc.String(), "private") {
		t.Error("capture mutated the document")
	}
}
