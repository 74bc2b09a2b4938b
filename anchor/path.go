// CLAUDE:SUMMARY PathResolver: structural locators of the form "tag:nth-of-type(n) > ..." computed from nodes and resolved back to elements.
package anchor

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/hazyhaar/skylight/dom"
	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
)

// PathOption configures ComputePath.
type PathOption func(*pathConfig)

type pathConfig struct {
	skip func(*html.Node) bool
}

// SkipElements makes ComputePath climb past elements matching fn, such as
// highlight markers, so paths stay stable when markers come and go.
func SkipElements(fn func(*html.Node) bool) PathOption {
	return func(c *pathConfig) { c.skip = fn }
}

// ComputePath returns the path of the element containing n (n itself when it
// is an element), from the root html element down, steps joined by " > ".
func ComputePath(n *html.Node, opts ...PathOption) string {
	var cfg pathConfig
	for _, o := range opts {
		o(&cfg)
	}
	el := n
	if el != nil && el.Type != html.ElementNode {
		el = el.Parent
	}
	for el != nil && el.Type == html.ElementNode && cfg.skip != nil && cfg.skip(el) {
		el = el.Parent
	}
	var steps []string
	for el != nil && el.Type == html.ElementNode {
		steps = append(steps, fmt.Sprintf("%s:nth-of-type(%d)", el.Data, typeRank(el)))
		if el.DataAtom == atom.Html {
			break
		}
		el = el.Parent
	}
	for i, j := 0, len(steps)-1; i < j; i, j = i+1, j-1 {
		steps[i], steps[j] = steps[j], steps[i]
	}
	return strings.Join(steps, " > ")
}

// typeRank is the 1-based rank of el among its element siblings of the same
// tag.
func typeRank(el *html.Node) int {
	rank := 1
	for s := el.PrevSibling; s != nil; s = s.PrevSibling {
		if s.Type == html.ElementNode && s.Data == el.Data {
			rank++
		}
	}
	return rank
}

type pathStep struct {
	tag string
	nth int
}

func (s pathStep) match(n *html.Node) bool {
	if n == nil || n.Type != html.ElementNode || n.Data != s.tag {
		return false
	}
	return s.nth == 0 || typeRank(n) == s.nth
}

// parsePath splits a path into steps. It accepts bare tags and tags with an
// :nth-of-type(N) suffix.
func parsePath(path string) ([]pathStep, error) {
	if strings.TrimSpace(path) == "" {
		return nil, ErrEmptyPath
	}
	parts := strings.Split(path, ">")
	steps := make([]pathStep, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		tag, rest, hasPseudo := strings.Cut(p, ":")
		tag = strings.ToLower(strings.TrimSpace(tag))
		if tag == "" || strings.ContainsAny(tag, " .#[") {
			return nil, fmt.Errorf("%w: step %q", ErrBadPath, p)
		}
		step := pathStep{tag: tag}
		if hasPseudo {
			arg, ok := strings.CutPrefix(rest, "nth-of-type(")
			if !ok || !strings.HasSuffix(arg, ")") {
				return nil, fmt.Errorf("%w: step %q", ErrBadPath, p)
			}
			n, err := strconv.Atoi(strings.TrimSpace(strings.TrimSuffix(arg, ")")))
			if err != nil || n < 1 {
				return nil, fmt.Errorf("%w: step %q", ErrBadPath, p)
			}
			step.nth = n
		}
		steps = append(steps, step)
	}
	return steps, nil
}

// ResolvePath returns the first element under root, in document order, whose
// ancestor chain matches path. A path that does not parse or matches
// nothing yields false.
func ResolvePath(root *html.Node, path string) (*html.Node, bool) {
	steps, err := parsePath(path)
	if err != nil {
		return nil, false
	}
	var found *html.Node
	dom.Walk(root, func(n *html.Node) bool {
		if found != nil {
			return false
		}
		if n.Type == html.ElementNode && matchChain(n, steps) {
			found = n
			return false
		}
		return true
	})
	return found, found != nil
}

// matchChain checks steps right to left against n and its parents.
func matchChain(n *html.Node, steps []pathStep) bool {
	cur := n
	for i := len(steps) - 1; i >= 0; i-- {
		if !steps[i].match(cur) {
			return false
		}
		cur = cur.Parent
	}
	return true
}
