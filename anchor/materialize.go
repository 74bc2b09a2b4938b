// CLAUDE:SUMMARY RangeMaterializer: converts a flat (start, length) span back into a DOM range over the segment table.
package anchor

import "github.com/hazyhaar/skylight/dom"

// Materialize converts the flat span [start, start+length) into a range.
// The start lands in the segment holding start; the end in the segment
// holding end, with end == segment end placing it at that segment's tail.
func Materialize(segments []Segment, start, length int) (*dom.Range, bool) {
	if length <= 0 || start < 0 {
		return nil, false
	}
	end := start + length
	var r dom.Range
	var haveStart bool
	for _, s := range segments {
		if s.Len == 0 {
			continue
		}
		if !haveStart && start >= s.Start && start < s.End() {
			r.Start = dom.Point{Node: s.Node, Offset: start - s.Start}
			haveStart = true
		}
		if haveStart && end > s.Start && end <= s.End() {
			r.End = dom.Point{Node: s.Node, Offset: end - s.Start}
			return &r, true
		}
	}
	return nil, false
}
