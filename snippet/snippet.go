// CLAUDE:SUMMARY Sanitized HTML snapshot of a range, kept alongside the plain quote (bluemonday allow-list).
// Package snippet captures the structure of a selection as sanitized HTML so
// exports can keep lists, tables, emphasis and links.
package snippet

import (
	"strings"

	"github.com/hazyhaar/skylight/dom"
	"github.com/microcosm-cc/bluemonday"
	"golang.org/x/net/html"
)

// allowed are the structural elements kept in a snapshot.
var allowed = []string{
	"ul", "ol", "li",
	"table", "tr", "td", "th",
	"a", "b", "i", "strong", "em", "p",
	"h1", "h2", "h3", "h4", "h5", "h6",
}

// Policy returns the sanitizer used for snapshots: structural tags only,
// href on links only.
func Policy() *bluemonday.Policy {
	p := bluemonday.NewPolicy()
	p.AllowElements(allowed...)
	p.AllowAttrs("href").OnElements("a")
	p.AllowStandardURLs()
	return p
}

// Capturer snapshots ranges with one compiled policy.
type Capturer struct {
	policy  *bluemonday.Policy
	exclude func(*html.Node) bool
}

// Option configures a Capturer.
type Option func(*Capturer)

// WithExclude drops elements matching fn, with their subtree, from every
// snapshot.
func WithExclude(fn func(*html.Node) bool) Option {
	return func(c *Capturer) { c.exclude = fn }
}

// New returns a Capturer using Policy.
func New(opts ...Option) *Capturer {
	c := &Capturer{policy: Policy()}
	for _, o := range opts {
		o(c)
	}
	return c
}

// Capture clones the contents of r and returns them sanitized. The tree is
// not modified.
func (c *Capturer) Capture(r *dom.Range) (string, error) {
	frag, err := r.CloneContents()
	if err != nil {
		return "", err
	}
	var sb strings.Builder
	for _, n := range frag {
		if c.exclude != nil {
			if c.exclude(n) {
				continue
			}
			c.prune(n)
		}
		sb.WriteString(dom.RenderNode(n))
	}
	return strings.TrimSpace(c.policy.Sanitize(sb.String())), nil
}

// prune detaches excluded descendants of n.
func (c *Capturer) prune(n *html.Node) {
	var drop []*html.Node
	dom.Walk(n, func(d *html.Node) bool {
		if d != n && c.exclude(d) {
			drop = append(drop, d)
			return false
		}
		return true
	})
	for _, d := range drop {
		dom.Detach(d)
	}
}
