// CLAUDE:SUMMARY Range model: boundary points, DOM-ordered comparison, text extraction, extract/clone contents, insertNode, surroundContents.
package dom

import (
	"errors"
	"fmt"
	"strings"
	"unicode/utf8"

	"golang.org/x/net/html"
)

// Point is a DOM boundary point. For character data Offset counts bytes of
// Data; for other nodes it counts children.
type Point struct {
	Node   *html.Node
	Offset int
}

// Range is a pair of boundary points with Start <= End.
type Range struct {
	Start Point
	End   Point
}

// NewRange builds a range and checks that both points are valid and ordered.
func NewRange(startNode *html.Node, startOff int, endNode *html.Node, endOff int) (*Range, error) {
	r := &Range{Start: Point{startNode, startOff}, End: Point{endNode, endOff}}
	if err := r.Validate(); err != nil {
		return nil, err
	}
	return r, nil
}

// Collapsed returns a range with both boundaries at p.
func Collapsed(p Point) *Range {
	return &Range{Start: p, End: p}
}

// SelectNodeContents returns a range spanning all of n's contents.
func SelectNodeContents(n *html.Node) *Range {
	return &Range{Start: Point{n, 0}, End: Point{n, Length(n)}}
}

// SelectNode returns a range that spans n itself within its parent.
func SelectNode(n *html.Node) *Range {
	i := ChildIndex(n)
	return &Range{Start: Point{n.Parent, i}, End: Point{n.Parent, i + 1}}
}

// ComparePoints orders two boundary points: -1 if a is before b, 0 if equal,
// 1 if after.
func ComparePoints(a, b Point) int {
	if a.Node == b.Node {
		switch {
		case a.Offset < b.Offset:
			return -1
		case a.Offset > b.Offset:
			return 1
		}
		return 0
	}
	if Precedes(b.Node, a.Node) {
		return -ComparePoints(b, a)
	}
	if IsInclusiveAncestor(a.Node, b.Node) {
		child := b.Node
		for child.Parent != a.Node {
			child = child.Parent
		}
		if ChildIndex(child) < a.Offset {
			return 1
		}
	}
	return -1
}

func validPoint(p Point) error {
	if p.Node == nil {
		return errors.New("nil boundary node")
	}
	if p.Offset < 0 || p.Offset > Length(p.Node) {
		return fmt.Errorf("offset %d outside node of length %d", p.Offset, Length(p.Node))
	}
	if isCharData(p.Node) && p.Offset < len(p.Node.Data) && !utf8.RuneStart(p.Node.Data[p.Offset]) {
		return fmt.Errorf("offset %d splits a character", p.Offset)
	}
	return nil
}

// Validate checks that both boundaries are in range, fall on character
// boundaries, share a root, and are ordered.
func (r *Range) Validate() error {
	if err := validPoint(r.Start); err != nil {
		return fmt.Errorf("%w: start: %v", ErrInvalidRange, err)
	}
	if err := validPoint(r.End); err != nil {
		return fmt.Errorf("%w: end: %v", ErrInvalidRange, err)
	}
	if Root(r.Start.Node) != Root(r.End.Node) {
		return fmt.Errorf("%w: boundaries in different trees", ErrInvalidRange)
	}
	if ComparePoints(r.Start, r.End) > 0 {
		return fmt.Errorf("%w: start after end", ErrInvalidRange)
	}
	return nil
}

// Collapsed reports whether start and end are the same point.
func (r *Range) Collapsed() bool {
	return r.Start.Node == r.End.Node && r.Start.Offset == r.End.Offset
}

// Clone returns an independent copy of the boundary points.
func (r *Range) Clone() *Range {
	c := *r
	return &c
}

// CommonAncestor returns the deepest node containing both boundaries.
func (r *Range) CommonAncestor() *html.Node {
	return CommonAncestor(r.Start.Node, r.End.Node)
}

// clip returns the part [s,e) of text node t inside the range.
func (r *Range) clip(t *html.Node) (int, int, bool) {
	s, e := 0, len(t.Data)
	if r.Start.Node == t {
		s = r.Start.Offset
	} else if ComparePoints(r.Start, Point{t, 0}) > 0 {
		return 0, 0, false
	}
	if r.End.Node == t {
		e = r.End.Offset
	} else if ComparePoints(r.End, Point{t, len(t.Data)}) < 0 {
		return 0, 0, false
	}
	if s >= e {
		return 0, 0, false
	}
	return s, e, true
}

// TextNodes returns, in document order, every text node that shares at least
// one character with the range.
func (r *Range) TextNodes() []*html.Node {
	ca := r.CommonAncestor()
	if ca == nil {
		return nil
	}
	var out []*html.Node
	Walk(ca, func(n *html.Node) bool {
		if n.Type == html.TextNode {
			if _, _, ok := r.clip(n); ok {
				out = append(out, n)
			}
		}
		return true
	})
	return out
}

// Clip returns the byte span of text node t covered by the range.
func (r *Range) Clip(t *html.Node) (start, end int, ok bool) {
	if !IsText(t) {
		return 0, 0, false
	}
	return r.clip(t)
}

// String returns the concatenated text covered by the range.
func (r *Range) String() string {
	var sb strings.Builder
	for _, t := range r.TextNodes() {
		s, e, _ := r.clip(t)
		sb.WriteString(t.Data[s:e])
	}
	return sb.String()
}

// contains reports whether n lies entirely inside the range.
func (r *Range) contains(n *html.Node) bool {
	return ComparePoints(Point{n, 0}, r.Start) > 0 &&
		ComparePoints(Point{n, Length(n)}, r.End) < 0
}

// CloneContents returns deep copies of the nodes covered by the range.
// Partially covered ancestors are cloned shallowly around their covered part.
func (r *Range) CloneContents() ([]*html.Node, error) {
	if err := r.Validate(); err != nil {
		return nil, err
	}
	return r.contents(false), nil
}

// ExtractContents moves the covered nodes out of the tree and collapses the
// range to where they were.
func (r *Range) ExtractContents() ([]*html.Node, error) {
	if err := r.Validate(); err != nil {
		return nil, err
	}
	return r.contents(true), nil
}

func (r *Range) contents(extract bool) []*html.Node {
	if r.Collapsed() {
		return nil
	}
	sn, so := r.Start.Node, r.Start.Offset
	en, eo := r.End.Node, r.End.Offset

	if sn == en && isCharData(sn) {
		clone := &html.Node{Type: sn.Type, Data: sn.Data[so:eo]}
		if extract {
			sn.Data = sn.Data[:so] + sn.Data[eo:]
			r.End = r.Start
		}
		return []*html.Node{clone}
	}

	ca := CommonAncestor(sn, en)
	var firstPartial, lastPartial *html.Node
	if !IsInclusiveAncestor(sn, en) {
		firstPartial = childContaining(ca, sn)
	}
	if !IsInclusiveAncestor(en, sn) {
		lastPartial = childContaining(ca, en)
	}
	var contained []*html.Node
	for c := ca.FirstChild; c != nil; c = c.NextSibling {
		if r.contains(c) {
			contained = append(contained, c)
		}
	}

	var newNode *html.Node
	var newOffset int
	if extract {
		if IsInclusiveAncestor(sn, en) {
			newNode, newOffset = sn, so
		} else {
			ref := sn
			for ref.Parent != nil && !IsInclusiveAncestor(ref.Parent, en) {
				ref = ref.Parent
			}
			newNode, newOffset = ref.Parent, ChildIndex(ref)+1
		}
	}

	var frag []*html.Node
	if firstPartial != nil {
		if isCharData(firstPartial) {
			frag = append(frag, &html.Node{Type: sn.Type, Data: sn.Data[so:]})
			if extract {
				sn.Data = sn.Data[:so]
			}
		} else {
			clone := Clone(firstPartial)
			sub := &Range{Start: Point{sn, so}, End: Point{firstPartial, Length(firstPartial)}}
			for _, c := range sub.contents(extract) {
				clone.AppendChild(c)
			}
			frag = append(frag, clone)
		}
	}
	for _, c := range contained {
		if extract {
			Detach(c)
			frag = append(frag, c)
		} else {
			frag = append(frag, CloneDeep(c))
		}
	}
	if lastPartial != nil {
		if isCharData(lastPartial) {
			frag = append(frag, &html.Node{Type: en.Type, Data: en.Data[:eo]})
			if extract {
				en.Data = en.Data[eo:]
			}
		} else {
			clone := Clone(lastPartial)
			sub := &Range{Start: Point{lastPartial, 0}, End: Point{en, eo}}
			for _, c := range sub.contents(extract) {
				clone.AppendChild(c)
			}
			frag = append(frag, clone)
		}
	}
	if extract {
		r.Start = Point{newNode, newOffset}
		r.End = r.Start
	}
	return frag
}

// childContaining returns the child of ancestor that is an inclusive
// ancestor of n.
func childContaining(ancestor, n *html.Node) *html.Node {
	for n != nil && n.Parent != ancestor {
		n = n.Parent
	}
	return n
}

// InsertNode inserts n at the start of the range, splitting a text node when
// the start falls inside one.
func (r *Range) InsertNode(n *html.Node) error {
	if err := validPoint(r.Start); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidRange, err)
	}
	sn, so := r.Start.Node, r.Start.Offset
	var parent, ref *html.Node
	if isCharData(sn) {
		parent = sn.Parent
		if parent == nil {
			return fmt.Errorf("%w: detached text node", ErrInvalidRange)
		}
		switch {
		case so == 0:
			ref = sn
		case so == len(sn.Data):
			ref = sn.NextSibling
		default:
			ref = SplitText(sn, so)
		}
	} else {
		parent, ref = sn, ChildAt(sn, so)
	}
	if IsInclusiveAncestor(n, parent) {
		return fmt.Errorf("%w: node would contain itself", ErrHierarchy)
	}
	collapsed := r.Collapsed()
	Detach(n)
	parent.InsertBefore(n, ref)
	if collapsed {
		r.End = Point{parent, ChildIndex(n) + 1}
	}
	return nil
}

// SurroundContents moves the range's contents into wrapper and puts wrapper
// where they were. It fails when the range partially covers a non-text node.
func (r *Range) SurroundContents(wrapper *html.Node) error {
	if err := r.Validate(); err != nil {
		return err
	}
	for n := r.Start.Node; n != nil; n = n.Parent {
		if !IsInclusiveAncestor(n, r.End.Node) && !isCharData(n) {
			return fmt.Errorf("%w: range partially selects <%s>", ErrPartialNode, n.Data)
		}
	}
	for n := r.End.Node; n != nil; n = n.Parent {
		if !IsInclusiveAncestor(n, r.Start.Node) && !isCharData(n) {
			return fmt.Errorf("%w: range partially selects <%s>", ErrPartialNode, n.Data)
		}
	}
	frag := r.contents(true)
	for wrapper.FirstChild != nil {
		wrapper.RemoveChild(wrapper.FirstChild)
	}
	if err := r.InsertNode(wrapper); err != nil {
		return err
	}
	for _, c := range frag {
		wrapper.AppendChild(c)
	}
	*r = *SelectNode(wrapper)
	return nil
}
