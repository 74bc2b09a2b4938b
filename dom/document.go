// CLAUDE:SUMMARY Document wraps a parsed HTML tree with an origin-tagged mutation journal, observers, and checkpoint/rollback.
package dom

import (
	"bytes"
	"errors"
	"io"
	"strings"
	"sync"
	"time"

	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
)

var (
	ErrInvalidRange = errors.New("dom: invalid range")
	ErrPartialNode  = errors.New("dom: range partially selects a non-text node")
	ErrHierarchy    = errors.New("dom: hierarchy request")
)

// Origin tells who caused a mutation.
type Origin int

const (
	// OriginExternal marks changes made by the host page.
	OriginExternal Origin = iota
	// OriginSelf marks changes made by the annotation engine.
	OriginSelf
)

func (o Origin) String() string {
	if o == OriginSelf {
		return "self"
	}
	return "external"
}

// Op is the kind of mutation recorded in the journal.
type Op string

const (
	OpInsert    Op = "insert"
	OpRemove    Op = "remove"
	OpText      Op = "text"
	OpNormalize Op = "normalize"
	OpReset     Op = "reset"
)

// Mutation is one journal entry.
type Mutation struct {
	Op     Op
	Origin Origin
	Target string
	At     time.Time
}

// Document is a parsed HTML page. Callers serialize access; observers are
// invoked synchronously from Record and must not block.
type Document struct {
	Root *html.Node

	mu        sync.Mutex
	observers []func(Mutation)
	seq       int
}

// Parse reads an HTML document.
func Parse(r io.Reader) (*Document, error) {
	root, err := html.Parse(r)
	if err != nil {
		return nil, err
	}
	return &Document{Root: root}, nil
}

// ParseString parses an HTML document held in memory.
func ParseString(s string) (*Document, error) {
	return Parse(strings.NewReader(s))
}

// Body returns the <body> element, or the root when there is none.
func (d *Document) Body() *html.Node {
	if b := FindElement(d.Root, atom.Body); b != nil {
		return b
	}
	return d.Root
}

// Title returns the trimmed text of the first <title> element.
func (d *Document) Title() string {
	if t := FindElement(d.Root, atom.Title); t != nil {
		return strings.TrimSpace(TextContent(t))
	}
	return ""
}

// FindElement returns the first element with the given atom in document order.
func FindElement(root *html.Node, a atom.Atom) *html.Node {
	var found *html.Node
	Walk(root, func(n *html.Node) bool {
		if found != nil {
			return false
		}
		if n.Type == html.ElementNode && n.DataAtom == a {
			found = n
			return false
		}
		return true
	})
	return found
}

// Render writes the document as HTML.
func (d *Document) Render(w io.Writer) error {
	return html.Render(w, d.Root)
}

// String renders the document, or the empty string on failure.
func (d *Document) String() string {
	var buf bytes.Buffer
	if err := d.Render(&buf); err != nil {
		return ""
	}
	return buf.String()
}

// RenderNode renders a single node.
func RenderNode(n *html.Node) string {
	var buf bytes.Buffer
	if err := html.Render(&buf, n); err != nil {
		return ""
	}
	return buf.String()
}

// Observe registers fn to receive every recorded mutation.
func (d *Document) Observe(fn func(Mutation)) {
	d.mu.Lock()
	d.observers = append(d.observers, fn)
	d.mu.Unlock()
}

// Record appends a mutation to the journal and notifies observers.
func (d *Document) Record(m Mutation) {
	if m.At.IsZero() {
		m.At = time.Now()
	}
	d.mu.Lock()
	d.seq++
	obs := make([]func(Mutation), len(d.observers))
	copy(obs, d.observers)
	d.mu.Unlock()
	for _, fn := range obs {
		fn(m)
	}
}

// Seq returns the number of mutations recorded so far.
func (d *Document) Seq() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.seq
}

// Checkpoint is a detached copy of the tree taken before a risky change.
type Checkpoint struct {
	root *html.Node
}

// Checkpoint snapshots the whole tree.
func (d *Document) Checkpoint() *Checkpoint {
	return &Checkpoint{root: CloneDeep(d.Root)}
}

// Rollback restores the tree captured by cp. Node references taken after
// the checkpoint are invalid afterwards.
func (d *Document) Rollback(cp *Checkpoint) {
	if cp == nil {
		return
	}
	d.Root = CloneDeep(cp.root)
	d.Record(Mutation{Op: OpReset, Origin: OriginSelf, Target: "#document"})
}
