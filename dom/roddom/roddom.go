// Package roddom implements the dom interfaces over a live Chrome page
// driven by go-rod. Every node is a remote object handle; reads and writes
// are single JS evaluations against it.
//
// Offsets inside text nodes are UTF-16 code units, as the browser counts
// them.
package roddom

import (
	"fmt"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/proto"

	"github.com/hazyhaar/hotstate/dom"
)

// Document is a dom.Document over a rod page. Bind the page to a context
// or timeout (page.Context, page.Timeout) before wrapping it to bound the
// calls.
type Document struct {
	page *rod.Page
}

// New wraps page.
func New(page *rod.Page) *Document {
	return &Document{page: page}
}

// Page returns the underlying page.
func (d *Document) Page() *rod.Page { return d.page }

// URL returns the current page address, or "" when it cannot be read.
func (d *Document) URL() string {
	info, err := d.page.Info()
	if err != nil {
		return ""
	}
	return info.URL
}

func (d *Document) Find(clauses ...dom.Clause) ([]dom.Element, error) {
	if len(clauses) == 0 {
		return nil, nil
	}
	els, err := d.page.Elements(dom.CSS(clauses...))
	if err != nil {
		return nil, fmt.Errorf("roddom: find: %w", err)
	}
	out := make([]dom.Element, 0, len(els))
	for _, el := range els {
		n, err := d.wrap(el)
		if err != nil {
			return nil, err
		}
		if e, ok := n.(*Element); ok {
			out = append(out, e)
		}
	}
	return out, nil
}

const selectionJS = `() => {
	const s = window.getSelection();
	if (!s || s.rangeCount === 0) return null;
	const r = s.getRangeAt(0);
	return {start: r.startOffset, end: r.endOffset};
}`

const containersJS = `() => {
	const r = window.getSelection().getRangeAt(0);
	return [r.startContainer, r.endContainer];
}`

func (d *Document) Selection() (*dom.Range, error) {
	res, err := d.page.Eval(selectionJS)
	if err != nil {
		return nil, fmt.Errorf("roddom: selection: %w", err)
	}
	if res.Value.Nil() {
		return nil, nil
	}
	var offs struct {
		Start int `json:"start"`
		End   int `json:"end"`
	}
	if err := res.Value.Unmarshal(&offs); err != nil {
		return nil, fmt.Errorf("roddom: selection: %w", err)
	}
	els, err := d.page.ElementsByJS(rod.Eval(containersJS))
	if err != nil {
		return nil, fmt.Errorf("roddom: selection containers: %w", err)
	}
	if len(els) != 2 {
		return nil, fmt.Errorf("roddom: selection containers: got %d nodes", len(els))
	}
	start, err := d.wrap(els[0])
	if err != nil {
		return nil, err
	}
	end, err := d.wrap(els[1])
	if err != nil {
		return nil, err
	}
	return &dom.Range{StartNode: start, StartOffset: offs.Start, EndNode: end, EndOffset: offs.End}, nil
}

const setSelectionJS = `(sn, so, en, eo) => {
	const r = document.createRange();
	r.setStart(sn, so);
	r.setEnd(en, eo);
	const s = window.getSelection();
	s.removeAllRanges();
	s.addRange(r);
}`

func (d *Document) SetSelection(r dom.Range) error {
	start, ok := r.StartNode.(nodeHandle)
	if !ok {
		return fmt.Errorf("roddom: set selection: foreign start node %T", r.StartNode)
	}
	end := start
	if r.EndNode != nil {
		if end, ok = r.EndNode.(nodeHandle); !ok {
			return fmt.Errorf("roddom: set selection: foreign end node %T", r.EndNode)
		}
	}
	_, err := d.page.Eval(setSelectionJS, start.object(), r.StartOffset, end.object(), r.EndOffset)
	if err != nil {
		return fmt.Errorf("roddom: set selection: %w", err)
	}
	return nil
}

const describeJS = `() => ({
	type: this.nodeType,
	tag: this.nodeType === 1 ? this.tagName.toLowerCase() : ""
})`

// wrap classifies a remote node once and returns the matching wrapper.
func (d *Document) wrap(el *rod.Element) (dom.Node, error) {
	res, err := el.Eval(describeJS)
	if err != nil {
		return nil, fmt.Errorf("roddom: describe: %w", err)
	}
	var desc struct {
		Type int    `json:"type"`
		Tag  string `json:"tag"`
	}
	if err := res.Value.Unmarshal(&desc); err != nil {
		return nil, fmt.Errorf("roddom: describe: %w", err)
	}
	n := Node{doc: d, el: el}
	switch desc.Type {
	case 1:
		n.kind = dom.ElementNode
		return &Element{Node: n, tag: desc.Tag}, nil
	case 3:
		n.kind = dom.TextNode
	default:
		n.kind = dom.OtherNode
	}
	return &n, nil
}

// wrapObject wraps a by-object eval result; null yields nil.
func (d *Document) wrapObject(obj *proto.RuntimeRemoteObject) (dom.Node, error) {
	if obj == nil || obj.Subtype == proto.RuntimeRemoteObjectSubtypeNull || obj.Type == proto.RuntimeRemoteObjectTypeUndefined {
		return nil, nil
	}
	el, err := d.page.ElementFromObject(obj)
	if err != nil {
		return nil, fmt.Errorf("roddom: resolve node: %w", err)
	}
	return d.wrap(el)
}
