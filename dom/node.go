// CLAUDE:SUMMARY Node-level helpers over x/net/html: attributes, sibling indices, ancestry, text content, split/unwrap/normalize.
package dom

import (
	"strings"

	"golang.org/x/net/html"
)

// IsText reports whether n is a text node.
func IsText(n *html.Node) bool {
	return n != nil && n.Type == html.TextNode
}

// IsElement reports whether n is an element, optionally of the given tag.
func IsElement(n *html.Node, tag string) bool {
	if n == nil || n.Type != html.ElementNode {
		return false
	}
	return tag == "" || n.Data == tag
}

// isCharData reports whether n holds character data addressed by byte offset.
func isCharData(n *html.Node) bool {
	return n != nil && (n.Type == html.TextNode || n.Type == html.CommentNode)
}

// Attr returns the value of attribute key on n, or "".
func Attr(n *html.Node, key string) string {
	if n == nil {
		return ""
	}
	for _, a := range n.Attr {
		if a.Key == key {
			return a.Val
		}
	}
	return ""
}

// HasAttr reports whether n carries attribute key.
func HasAttr(n *html.Node, key string) bool {
	if n == nil {
		return false
	}
	for _, a := range n.Attr {
		if a.Key == key {
			return true
		}
	}
	return false
}

// SetAttr sets (or replaces) attribute key on n.
func SetAttr(n *html.Node, key, val string) {
	for i, a := range n.Attr {
		if a.Key == key {
			n.Attr[i].Val = val
			return
		}
	}
	n.Attr = append(n.Attr, html.Attribute{Key: key, Val: val})
}

// RemoveAttr drops attribute key from n.
func RemoveAttr(n *html.Node, key string) {
	kept := n.Attr[:0]
	for _, a := range n.Attr {
		if a.Key != key {
			kept = append(kept, a)
		}
	}
	n.Attr = kept
}

// HasClass reports whether the class attribute of n contains class.
func HasClass(n *html.Node, class string) bool {
	if n == nil || n.Type != html.ElementNode {
		return false
	}
	for _, c := range strings.Fields(Attr(n, "class")) {
		if c == class {
			return true
		}
	}
	return false
}

// ChildIndex returns the 0-based position of n among its parent's children.
func ChildIndex(n *html.Node) int {
	i := 0
	for s := n.PrevSibling; s != nil; s = s.PrevSibling {
		i++
	}
	return i
}

// ChildAt returns the i-th child of n, or nil when out of range.
func ChildAt(n *html.Node, i int) *html.Node {
	c := n.FirstChild
	for ; c != nil && i > 0; i-- {
		c = c.NextSibling
	}
	return c
}

// ChildCount returns the number of children of n.
func ChildCount(n *html.Node) int {
	k := 0
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		k++
	}
	return k
}

// Length is the DOM node length: bytes of data for character data,
// number of children otherwise.
func Length(n *html.Node) int {
	if isCharData(n) {
		return len(n.Data)
	}
	return ChildCount(n)
}

// Root returns the topmost ancestor of n.
func Root(n *html.Node) *html.Node {
	for n != nil && n.Parent != nil {
		n = n.Parent
	}
	return n
}

// IsInclusiveAncestor reports whether a is b or one of b's ancestors.
func IsInclusiveAncestor(a, b *html.Node) bool {
	for n := b; n != nil; n = n.Parent {
		if n == a {
			return true
		}
	}
	return false
}

// Closest returns the nearest inclusive ancestor of n satisfying match.
func Closest(n *html.Node, match func(*html.Node) bool) *html.Node {
	for ; n != nil; n = n.Parent {
		if match(n) {
			return n
		}
	}
	return nil
}

// ancestry returns the chain root..n.
func ancestry(n *html.Node) []*html.Node {
	var chain []*html.Node
	for ; n != nil; n = n.Parent {
		chain = append(chain, n)
	}
	for i, j := 0, len(chain)-1; i < j; i, j = i+1, j-1 {
		chain[i], chain[j] = chain[j], chain[i]
	}
	return chain
}

// CommonAncestor returns the deepest node that is an inclusive ancestor of
// both a and b, or nil when they live in different trees.
func CommonAncestor(a, b *html.Node) *html.Node {
	ca, cb := ancestry(a), ancestry(b)
	var common *html.Node
	for i := 0; i < len(ca) && i < len(cb) && ca[i] == cb[i]; i++ {
		common = ca[i]
	}
	return common
}

// Precedes reports whether a comes before b in tree order. An ancestor
// precedes its descendants.
func Precedes(a, b *html.Node) bool {
	if a == b {
		return false
	}
	ca, cb := ancestry(a), ancestry(b)
	if len(ca) == 0 || len(cb) == 0 || ca[0] != cb[0] {
		return false
	}
	i := 0
	for i < len(ca) && i < len(cb) && ca[i] == cb[i] {
		i++
	}
	if i == len(ca) {
		return true
	}
	if i == len(cb) {
		return false
	}
	return ChildIndex(ca[i]) < ChildIndex(cb[i])
}

// TextContent concatenates every descendant text node of n.
func TextContent(n *html.Node) string {
	if n == nil {
		return ""
	}
	if isCharData(n) {
		return n.Data
	}
	var sb strings.Builder
	Walk(n, func(c *html.Node) bool {
		if c.Type == html.TextNode {
			sb.WriteString(c.Data)
		}
		return true
	})
	return sb.String()
}

// Walk visits n and its descendants in document order. Returning false from
// visit skips the children of the visited node.
func Walk(n *html.Node, visit func(*html.Node) bool) {
	if n == nil {
		return
	}
	if !visit(n) {
		return
	}
	for c := n.FirstChild; c != nil; {
		next := c.NextSibling
		Walk(c, visit)
		c = next
	}
}

// Detach removes n from its parent, if any.
func Detach(n *html.Node) {
	if n != nil && n.Parent != nil {
		n.Parent.RemoveChild(n)
	}
}

// InsertAfter places n immediately after ref.
func InsertAfter(ref, n *html.Node) {
	Detach(n)
	ref.Parent.InsertBefore(n, ref.NextSibling)
}

// SplitText cuts text node n at byte offset off and returns the new node
// holding the tail, inserted right after n.
func SplitText(n *html.Node, off int) *html.Node {
	tail := &html.Node{Type: n.Type, Data: n.Data[off:]}
	n.Data = n.Data[:off]
	if n.Parent != nil {
		n.Parent.InsertBefore(tail, n.NextSibling)
	}
	return tail
}

// Unwrap replaces el by its children, preserving their order, and returns
// el's former parent.
func Unwrap(el *html.Node) *html.Node {
	parent := el.Parent
	if parent == nil {
		return nil
	}
	for el.FirstChild != nil {
		c := el.FirstChild
		el.RemoveChild(c)
		parent.InsertBefore(c, el)
	}
	parent.RemoveChild(el)
	return parent
}

// Normalize merges adjacent text nodes and drops empty ones in the subtree
// rooted at n.
func Normalize(n *html.Node) {
	if n == nil {
		return
	}
	for c := n.FirstChild; c != nil; {
		next := c.NextSibling
		if c.Type == html.TextNode {
			if c.Data == "" {
				n.RemoveChild(c)
				c = next
				continue
			}
			for next != nil && next.Type == html.TextNode {
				c.Data += next.Data
				after := next.NextSibling
				n.RemoveChild(next)
				next = after
			}
		} else {
			Normalize(c)
		}
		c = next
	}
}

// Clone copies n without children or tree links.
func Clone(n *html.Node) *html.Node {
	c := &html.Node{
		Type:      n.Type,
		DataAtom:  n.DataAtom,
		Data:      n.Data,
		Namespace: n.Namespace,
	}
	if len(n.Attr) > 0 {
		c.Attr = make([]html.Attribute, len(n.Attr))
		copy(c.Attr, n.Attr)
	}
	return c
}

// CloneDeep copies n and its whole subtree.
func CloneDeep(n *html.Node) *html.Node {
	c := Clone(n)
	for ch := n.FirstChild; ch != nil; ch = ch.NextSibling {
		c.AppendChild(CloneDeep(ch))
	}
	return c
}
