package roddom

import (
	"fmt"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/proto"

	"github.com/hazyhaar/hotstate/dom"
)

type nodeHandle interface {
	object() *proto.RuntimeRemoteObject
}

// Node is any remote node.
type Node struct {
	doc  *Document
	el   *rod.Element
	kind dom.NodeKind
}

func (n *Node) object() *proto.RuntimeRemoteObject { return n.el.Object }

// Remote returns the rod handle of the node.
func (n *Node) Remote() *rod.Element { return n.el }

func (n *Node) Kind() dom.NodeKind { return n.kind }

func (n *Node) Parent() (dom.Node, error) {
	res, err := n.el.Evaluate(rod.Eval(`() => this.parentNode`).ByObject())
	if err != nil {
		return nil, fmt.Errorf("roddom: parent: %w", err)
	}
	return n.doc.wrapObject(res)
}

func (n *Node) Children() ([]dom.Node, error) {
	els, err := n.el.ElementsByJS(rod.Eval(`() => Array.from(this.childNodes)`))
	if err != nil {
		return nil, fmt.Errorf("roddom: children: %w", err)
	}
	out := make([]dom.Node, 0, len(els))
	for _, el := range els {
		c, err := n.doc.wrap(el)
		if err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, nil
}

func (n *Node) Len() (int, error) {
	res, err := n.el.Eval(`() => this.nodeType === 3 ? this.length : this.childNodes.length`)
	if err != nil {
		return 0, fmt.Errorf("roddom: len: %w", err)
	}
	return res.Value.Int(), nil
}

func (n *Node) Same(other dom.Node) bool {
	h, ok := other.(nodeHandle)
	if !ok || h == nil {
		return false
	}
	if n.el.Object.ObjectID == h.object().ObjectID {
		return true
	}
	res, err := n.el.Eval(`(o) => this === o`, h.object())
	return err == nil && res.Value.Bool()
}

// Element is a remote element.
type Element struct {
	Node
	tag string
}

func (e *Element) Tag() string { return e.tag }

func (e *Element) Attr(name string) (string, bool) {
	v, err := e.el.Attribute(name)
	if err != nil || v == nil {
		return "", false
	}
	return *v, true
}

func (e *Element) SetAttr(name, value string) error {
	return e.call("set attribute", `(n, v) => this.setAttribute(n, v)`, name, value)
}

const rectJS = `() => {
	if (!this.isConnected || this.getClientRects().length === 0) return null;
	const r = this.getBoundingClientRect();
	return {left: r.left, top: r.top, width: r.width, height: r.height};
}`

func (e *Element) Rect() (dom.Rect, bool) {
	res, err := e.el.Eval(rectJS)
	if err != nil || res.Value.Nil() {
		return dom.Rect{}, false
	}
	var r struct {
		Left, Top, Width, Height float64
	}
	if err := res.Value.Unmarshal(&r); err != nil {
		return dom.Rect{}, false
	}
	return dom.Rect{Left: r.Left, Top: r.Top, Width: r.Width, Height: r.Height}, true
}

const stateJS = `() => {
	const tag = this.tagName.toLowerCase();
	const s = {
		hasValue: tag === "input" || tag === "textarea" || tag === "select",
		value: "", checked: !!this.checked, selectedIndex: -1,
		innerHTML: this.innerHTML, scrollTop: this.scrollTop, scrollLeft: this.scrollLeft,
		hasSelection: false, selectionStart: 0, selectionEnd: 0
	};
	if (s.hasValue) s.value = String(this.value ?? "");
	if (tag === "select") s.selectedIndex = this.selectedIndex;
	try {
		if (typeof this.selectionStart === "number") {
			s.selectionStart = this.selectionStart;
			s.selectionEnd = this.selectionEnd;
			s.hasSelection = true;
		}
	} catch (e) {}
	return s;
}`

func (e *Element) State() (dom.State, error) {
	res, err := e.el.Eval(stateJS)
	if err != nil {
		return dom.State{}, fmt.Errorf("roddom: state: %w", err)
	}
	var s struct {
		HasValue       bool    `json:"hasValue"`
		Value          string  `json:"value"`
		Checked        bool    `json:"checked"`
		SelectedIndex  int     `json:"selectedIndex"`
		InnerHTML      string  `json:"innerHTML"`
		ScrollTop      float64 `json:"scrollTop"`
		ScrollLeft     float64 `json:"scrollLeft"`
		HasSelection   bool    `json:"hasSelection"`
		SelectionStart int     `json:"selectionStart"`
		SelectionEnd   int     `json:"selectionEnd"`
	}
	if err := res.Value.Unmarshal(&s); err != nil {
		return dom.State{}, fmt.Errorf("roddom: state: %w", err)
	}
	return dom.State{
		Value:          s.Value,
		HasValue:       s.HasValue,
		Checked:        s.Checked && dom.IsCheckable(e),
		SelectedIndex:  s.SelectedIndex,
		InnerHTML:      s.InnerHTML,
		ScrollTop:      s.ScrollTop,
		ScrollLeft:     s.ScrollLeft,
		SelectionStart: s.SelectionStart,
		SelectionEnd:   s.SelectionEnd,
		HasSelection:   s.HasSelection && dom.HasSelectionAPI(e),
	}, nil
}

// Value writes notify listeners with an input event so framework-bound
// controls pick the change up.
const setValueJS = `(v) => {
	this.value = v;
	this.dispatchEvent(new Event("input", {bubbles: true}));
}`

func (e *Element) SetValue(v string) error {
	if !dom.IsValueBearing(e) {
		return fmt.Errorf("roddom: set value on <%s>: %w", e.tag, dom.ErrUnsupported)
	}
	return e.call("set value", setValueJS, v)
}

func (e *Element) SetChecked(v bool) error {
	if !dom.IsCheckable(e) {
		return fmt.Errorf("roddom: set checked on <%s>: %w", e.tag, dom.ErrUnsupported)
	}
	return e.call("set checked", `(v) => {
		this.checked = v;
		this.dispatchEvent(new Event("change", {bubbles: true}));
	}`, v)
}

func (e *Element) SetSelectedIndex(i int) error {
	if e.tag != "select" {
		return fmt.Errorf("roddom: set selectedIndex on <%s>: %w", e.tag, dom.ErrUnsupported)
	}
	return e.call("set selectedIndex", `(i) => {
		this.selectedIndex = i;
		this.dispatchEvent(new Event("change", {bubbles: true}));
	}`, i)
}

func (e *Element) SetInnerHTML(html string) error {
	return e.call("set innerHTML", `(h) => { this.innerHTML = h; }`, html)
}

func (e *Element) SetScroll(top, left float64) error {
	return e.call("set scroll", `(t, l) => { this.scrollTop = t; this.scrollLeft = l; }`, top, left)
}

func (e *Element) SetSelectionRange(start, end int) error {
	if !dom.HasSelectionAPI(e) {
		return fmt.Errorf("roddom: set selection range on <%s>: %w", e.tag, dom.ErrUnsupported)
	}
	return e.call("set selection range", `(s, e) => {
		const n = String(this.value ?? "").length;
		this.setSelectionRange(Math.min(s, n), Math.min(e, n));
	}`, start, end)
}

func (e *Element) call(op, js string, args ...any) error {
	if _, err := e.el.Eval(js, args...); err != nil {
		return fmt.Errorf("roddom: %s: %w", op, err)
	}
	return nil
}
