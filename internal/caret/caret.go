// Package caret encodes a caret or selection so that it survives a rebuild
// of the text nodes holding it.
//
// Single-value controls (text inputs, textarea) keep their native offsets.
// Editable regions with nested content record, for each boundary, the
// index path from the element down to the boundary node plus the offset
// inside that node. Decoding walks the path again and clamps the offsets
// to whatever the rebuilt nodes now hold.
package caret

import (
	"errors"
	"fmt"

	"github.com/hazyhaar/hotstate/dom"
	"github.com/hazyhaar/hotstate/snapshot"
)

var (
	// ErrNoPath is returned when a nested caret carries no start path.
	ErrNoPath = errors.New("caret: no start path")
	// ErrPathBroken is returned when a path step has no matching child.
	ErrPathBroken = errors.New("caret: path does not resolve")
)

// Encode returns the caret of el, or nil when el has none: the element
// kind carries no caret, or no active range starts inside it.
func Encode(doc dom.Document, el dom.Element) (*snapshot.Caret, error) {
	switch {
	case dom.HasSelectionAPI(el):
		st, err := el.State()
		if err != nil {
			return nil, fmt.Errorf("caret: encode: %w", err)
		}
		if !st.HasSelection {
			return nil, nil
		}
		return &snapshot.Caret{Start: st.SelectionStart, End: st.SelectionEnd}, nil
	case dom.IsEditable(el):
		return encodeNested(doc, el)
	}
	return nil, nil
}

func encodeNested(doc dom.Document, el dom.Element) (*snapshot.Caret, error) {
	r, err := doc.Selection()
	if err != nil {
		return nil, fmt.Errorf("caret: encode: selection: %w", err)
	}
	if r == nil || r.StartNode == nil {
		return nil, nil
	}
	inside, err := contains(el, r.StartNode)
	if err != nil {
		return nil, fmt.Errorf("caret: encode: %w", err)
	}
	if !inside {
		return nil, nil
	}

	end := r.EndNode
	if end == nil {
		end = r.StartNode
	}
	startPath, err := Path(el, r.StartNode)
	if err != nil {
		return nil, fmt.Errorf("caret: encode: start path: %w", err)
	}
	endPath, err := Path(el, end)
	if err != nil {
		return nil, fmt.Errorf("caret: encode: end path: %w", err)
	}
	return &snapshot.Caret{
		Start:     r.StartOffset,
		End:       r.EndOffset,
		StartPath: startPath,
		EndPath:   endPath,
	}, nil
}

// Path returns the child indices leading from root down to n, root to leaf.
// The walk goes upward from n; it stops early when a node has no parent or
// is not found among its parent's children, and the path is then truncated
// to the steps collected so far. The result is never nil, so an empty path
// (n is root) stays distinguishable from a missing one.
func Path(root, n dom.Node) ([]int, error) {
	var rev []int
	for cur := n; !cur.Same(root); {
		parent, err := cur.Parent()
		if err != nil {
			return nil, err
		}
		if parent == nil {
			break
		}
		children, err := parent.Children()
		if err != nil {
			return nil, err
		}
		idx := indexOf(children, cur)
		if idx < 0 {
			break
		}
		rev = append(rev, idx)
		cur = parent
	}
	path := make([]int, len(rev))
	for i, v := range rev {
		path[len(rev)-1-i] = v
	}
	return path, nil
}

// Resolve descends from root following path.
func Resolve(root dom.Node, path []int) (dom.Node, error) {
	cur := root
	for depth, idx := range path {
		children, err := cur.Children()
		if err != nil {
			return nil, err
		}
		if idx < 0 || idx >= len(children) {
			return nil, fmt.Errorf("%w: index %d at depth %d, %d children", ErrPathBroken, idx, depth, len(children))
		}
		cur = children[idx]
	}
	return cur, nil
}

// Decode installs c on el. A nil caret is a no-op.
func Decode(doc dom.Document, el dom.Element, c *snapshot.Caret) error {
	if c == nil {
		return nil
	}
	if dom.HasSelectionAPI(el) {
		if err := el.SetSelectionRange(c.Start, c.End); err != nil {
			return fmt.Errorf("caret: decode: %w", err)
		}
		return nil
	}
	if c.StartPath == nil {
		return ErrNoPath
	}

	startNode, err := Resolve(el, c.StartPath)
	if err != nil {
		return fmt.Errorf("caret: decode: start: %w", err)
	}
	endNode := startNode
	if c.EndPath != nil {
		if endNode, err = Resolve(el, c.EndPath); err != nil {
			return fmt.Errorf("caret: decode: end: %w", err)
		}
	}
	start, err := clampTo(startNode, c.Start)
	if err != nil {
		return fmt.Errorf("caret: decode: %w", err)
	}
	end, err := clampTo(endNode, c.End)
	if err != nil {
		return fmt.Errorf("caret: decode: %w", err)
	}

	r := dom.Range{StartNode: startNode, StartOffset: start, EndNode: endNode, EndOffset: end}
	if err := doc.SetSelection(r); err != nil {
		return fmt.Errorf("caret: decode: %w", err)
	}
	return nil
}

func clampTo(n dom.Node, offset int) (int, error) {
	l, err := n.Len()
	if err != nil {
		return 0, err
	}
	return max(0, min(offset, l)), nil
}

func contains(root, n dom.Node) (bool, error) {
	for cur := n; cur != nil; {
		if cur.Same(root) {
			return true, nil
		}
		p, err := cur.Parent()
		if err != nil {
			return false, err
		}
		cur = p
	}
	return false, nil
}

func indexOf(children []dom.Node, n dom.Node) int {
	for i, c := range children {
		if c.Same(n) {
			return i
		}
	}
	return -1
}
