// Package memdom is an in-memory dom.Document built on golang.org/x/net/html.
//
// The parsed tree holds markup; live form state (typed values, checked
// flags, scroll offsets, selections, layout boxes) lives in a side table
// keyed by node, the way a browser keeps properties apart from attributes.
// Re-parsing the rendered HTML therefore behaves like a rebuild: attributes
// survive, ephemeral state does not.
package memdom

import (
	"bytes"
	"fmt"
	"strings"

	"golang.org/x/net/html"

	"github.com/hazyhaar/hotstate/dom"
)

// Document is an in-memory tree with form state and a selection.
type Document struct {
	root  *html.Node
	state map[*html.Node]*elemState
	sel   *dom.Range
}

type elemState struct {
	value    string
	valueSet bool

	checked    bool
	checkedSet bool

	selected    int
	selectedSet bool

	scrollTop  float64
	scrollLeft float64

	selStart int
	selEnd   int

	rect    dom.Rect
	hasRect bool
}

// Parse builds a Document from an HTML source.
func Parse(src string) (*Document, error) {
	root, err := html.Parse(strings.NewReader(src))
	if err != nil {
		return nil, fmt.Errorf("memdom: parse: %w", err)
	}
	return &Document{root: root, state: make(map[*html.Node]*elemState)}, nil
}

// MustParse is Parse for fixtures; it panics on error.
func MustParse(src string) *Document {
	d, err := Parse(src)
	if err != nil {
		panic(err)
	}
	return d
}

// HTML renders the markup (attributes only, no live state).
func (d *Document) HTML() (string, error) {
	var buf bytes.Buffer
	if err := html.Render(&buf, d.root); err != nil {
		return "", fmt.Errorf("memdom: render: %w", err)
	}
	return buf.String(), nil
}

// Rebuild re-parses the rendered markup into a fresh Document: same
// attributes, new node identities, no live state.
func (d *Document) Rebuild() (*Document, error) {
	src, err := d.HTML()
	if err != nil {
		return nil, err
	}
	return Parse(src)
}

// Find implements dom.Document.
func (d *Document) Find(clauses ...dom.Clause) ([]dom.Element, error) {
	var out []dom.Element
	d.walk(d.root, func(n *html.Node) {
		if n.Type != html.ElementNode {
			return
		}
		el := d.element(n)
		if dom.MatchAny(el, clauses) {
			out = append(out, el)
		}
	})
	return out, nil
}

// First returns the first element matching any clause, or nil.
func (d *Document) First(clauses ...dom.Clause) *Element {
	els, _ := d.Find(clauses...)
	if len(els) == 0 {
		return nil
	}
	return els[0].(*Element)
}

// ByID returns the element with the given id attribute, or nil.
func (d *Document) ByID(id string) *Element {
	return d.First(dom.AttrClause("id", id))
}

// Selection implements dom.Document.
func (d *Document) Selection() (*dom.Range, error) {
	if d.sel == nil {
		return nil, nil
	}
	r := *d.sel
	return &r, nil
}

// SetSelection implements dom.Document. Both boundary points must lie in
// this document and within their node's length.
func (d *Document) SetSelection(r dom.Range) error {
	if err := d.checkBoundary(r.StartNode, r.StartOffset); err != nil {
		return err
	}
	if err := d.checkBoundary(r.EndNode, r.EndOffset); err != nil {
		return err
	}
	d.sel = &r
	return nil
}

func (d *Document) checkBoundary(n dom.Node, offset int) error {
	hn := rawNode(n)
	if hn == nil || !d.contains(hn) {
		return fmt.Errorf("memdom: set selection: boundary node not in document")
	}
	l, _ := n.Len()
	if offset < 0 || offset > l {
		return fmt.Errorf("memdom: set selection: offset %d outside [0,%d]", offset, l)
	}
	return nil
}

// ClearSelection drops the active range.
func (d *Document) ClearSelection() { d.sel = nil }

// Wrap returns the dom.Node view of a raw html node of this document.
func (d *Document) Wrap(n *html.Node) dom.Node {
	if n == nil {
		return nil
	}
	if n.Type == html.ElementNode {
		return d.element(n)
	}
	return &Node{doc: d, n: n}
}

func (d *Document) element(n *html.Node) *Element {
	return &Element{Node: Node{doc: d, n: n}}
}

func (d *Document) stateOf(n *html.Node) *elemState {
	s, ok := d.state[n]
	if !ok {
		s = &elemState{}
		d.state[n] = s
	}
	return s
}

func (d *Document) contains(n *html.Node) bool {
	for p := n; p != nil; p = p.Parent {
		if p == d.root {
			return true
		}
	}
	return false
}

func (d *Document) walk(n *html.Node, fn func(*html.Node)) {
	fn(n)
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		d.walk(c, fn)
	}
}

func rawNode(n dom.Node) *html.Node {
	switch v := n.(type) {
	case *Node:
		return v.n
	case *Element:
		return v.n
	}
	return nil
}
