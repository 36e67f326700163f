// Package dom defines the element tree that hotstate captures from and
// restores into. The engine only sees these interfaces: memdom backs them
// with an in-memory HTML tree, roddom with a live Chrome page.
package dom

import "errors"

// ErrUnsupported is returned by mutators that do not apply to an element
// (e.g. SetChecked on a textarea).
var ErrUnsupported = errors.New("dom: operation not supported by element")

// NodeKind distinguishes the node types the caret codec cares about.
type NodeKind int

const (
	OtherNode NodeKind = iota
	ElementNode
	TextNode
)

// Node is any node of the tree: element, text, comment.
type Node interface {
	Kind() NodeKind
	// Parent returns nil at the top of the tree or for detached nodes.
	Parent() (Node, error)
	Children() ([]Node, error)
	// Len is the upper bound of a range offset inside this node: text
	// length for text nodes, child count otherwise.
	Len() (int, error)
	// Same reports whether both values refer to the same underlying node.
	Same(other Node) bool
}

// Element is a node carrying a tag, attributes and live form state.
type Element interface {
	Node

	Tag() string
	Attr(name string) (string, bool)
	SetAttr(name, value string) error
	// Rect returns the bounding box; ok is false when the element cannot
	// be measured.
	Rect() (r Rect, ok bool)
	State() (State, error)

	SetValue(v string) error
	SetChecked(v bool) error
	SetSelectedIndex(i int) error
	SetInnerHTML(html string) error
	SetScroll(top, left float64) error
	SetSelectionRange(start, end int) error
}

// Document is a whole tree plus its active selection.
type Document interface {
	// Find returns the elements matching any clause, in document order.
	Find(clauses ...Clause) ([]Element, error)
	// Selection returns the active range, or nil when there is none.
	Selection() (*Range, error)
	SetSelection(r Range) error
}

// Rect is an element bounding box in CSS pixels.
type Rect struct {
	Left   float64
	Top    float64
	Width  float64
	Height float64
}

// State is the ephemeral state of an element at one instant.
type State struct {
	Value         string
	HasValue      bool
	Checked       bool
	SelectedIndex int
	InnerHTML     string
	ScrollTop     float64
	ScrollLeft    float64

	// Native selection of single-value controls. HasSelection is false
	// for elements that do not expose selectionStart/selectionEnd.
	SelectionStart int
	SelectionEnd   int
	HasSelection   bool
}

// Range is a selection range between two (node, offset) boundary points.
type Range struct {
	StartNode   Node
	StartOffset int
	EndNode     Node
	EndOffset   int
}
