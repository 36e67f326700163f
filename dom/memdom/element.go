package memdom

import (
	"bytes"
	"fmt"
	"strings"
	"unicode/utf8"

	"golang.org/x/net/html"

	"github.com/hazyhaar/hotstate/dom"
)

// Element is the dom.Element view of an html element node.
type Element struct {
	Node
}

func (e *Element) Tag() string { return strings.ToLower(e.n.Data) }

func (e *Element) Attr(name string) (string, bool) {
	for _, a := range e.n.Attr {
		if a.Namespace == "" && strings.EqualFold(a.Key, name) {
			return a.Val, true
		}
	}
	return "", false
}

func (e *Element) SetAttr(name, value string) error {
	for i, a := range e.n.Attr {
		if a.Namespace == "" && strings.EqualFold(a.Key, name) {
			e.n.Attr[i].Val = value
			return nil
		}
	}
	e.n.Attr = append(e.n.Attr, html.Attribute{Key: strings.ToLower(name), Val: value})
	return nil
}

// RemoveAttr deletes an attribute if present.
func (e *Element) RemoveAttr(name string) {
	attrs := e.n.Attr[:0]
	for _, a := range e.n.Attr {
		if a.Namespace == "" && strings.EqualFold(a.Key, name) {
			continue
		}
		attrs = append(attrs, a)
	}
	e.n.Attr = attrs
}

func (e *Element) Rect() (dom.Rect, bool) {
	s, ok := e.doc.state[e.n]
	if !ok || !s.hasRect {
		return dom.Rect{}, false
	}
	return s.rect, true
}

// SetRect records the layout box of the element, as a layout pass would.
func (e *Element) SetRect(r dom.Rect) {
	s := e.doc.stateOf(e.n)
	s.rect = r
	s.hasRect = true
}

func (e *Element) State() (dom.State, error) {
	st := dom.State{SelectedIndex: -1}
	s := e.doc.stateOf(e.n)

	if dom.IsValueBearing(e) {
		st.Value = e.value()
		st.HasValue = true
	}
	if dom.IsCheckable(e) {
		st.Checked = e.checked()
	}
	if e.Tag() == "select" {
		st.SelectedIndex = e.selectedIndex()
	}
	if dom.HasSelectionAPI(e) {
		st.SelectionStart = s.selStart
		st.SelectionEnd = s.selEnd
		st.HasSelection = true
	}
	inner, err := e.InnerHTML()
	if err != nil {
		return dom.State{}, err
	}
	st.InnerHTML = inner
	st.ScrollTop = s.scrollTop
	st.ScrollLeft = s.scrollLeft
	return st, nil
}

// InnerHTML renders the children of the element.
func (e *Element) InnerHTML() (string, error) {
	var buf bytes.Buffer
	for c := e.n.FirstChild; c != nil; c = c.NextSibling {
		if err := html.Render(&buf, c); err != nil {
			return "", fmt.Errorf("memdom: inner html: %w", err)
		}
	}
	return buf.String(), nil
}

func (e *Element) SetValue(v string) error {
	switch e.Tag() {
	case "input", "textarea":
		s := e.doc.stateOf(e.n)
		s.value = v
		s.valueSet = true
		// Assigning a value moves the caret to the end, as browsers do.
		end := utf8.RuneCountInString(v)
		s.selStart, s.selEnd = end, end
		return nil
	case "select":
		for i, opt := range e.options() {
			if optionValue(opt) == v {
				return e.SetSelectedIndex(i)
			}
		}
		return e.SetSelectedIndex(-1)
	}
	return fmt.Errorf("memdom: set value on <%s>: %w", e.Tag(), dom.ErrUnsupported)
}

func (e *Element) SetChecked(v bool) error {
	if !dom.IsCheckable(e) {
		return fmt.Errorf("memdom: set checked on <%s>: %w", e.Tag(), dom.ErrUnsupported)
	}
	if v && dom.InputType(e) == "radio" {
		e.uncheckGroup()
	}
	s := e.doc.stateOf(e.n)
	s.checked = v
	s.checkedSet = true
	return nil
}

// SetSelectedIndex follows the browser: an index outside the option list
// deselects everything (-1).
func (e *Element) SetSelectedIndex(i int) error {
	if e.Tag() != "select" {
		return fmt.Errorf("memdom: set selectedIndex on <%s>: %w", e.Tag(), dom.ErrUnsupported)
	}
	if i < 0 || i >= len(e.options()) {
		i = -1
	}
	s := e.doc.stateOf(e.n)
	s.selected = i
	s.selectedSet = true
	return nil
}

func (e *Element) SetInnerHTML(src string) error {
	nodes, err := html.ParseFragment(strings.NewReader(src), e.n)
	if err != nil {
		return fmt.Errorf("memdom: set inner html: %w", err)
	}
	for c := e.n.FirstChild; c != nil; {
		next := c.NextSibling
		e.n.RemoveChild(c)
		c = next
	}
	for _, c := range nodes {
		e.n.AppendChild(c)
	}
	if e.doc.sel != nil && !e.doc.contains(rawNode(e.doc.sel.StartNode)) {
		e.doc.sel = nil
	}
	return nil
}

func (e *Element) SetScroll(top, left float64) error {
	s := e.doc.stateOf(e.n)
	s.scrollTop = top
	s.scrollLeft = left
	return nil
}

// SetSelectionRange clamps both bounds to the value length and collapses an
// inverted range onto its end, like HTMLInputElement.setSelectionRange.
func (e *Element) SetSelectionRange(start, end int) error {
	if !dom.HasSelectionAPI(e) {
		return fmt.Errorf("memdom: set selection range on <%s type=%s>: %w", e.Tag(), dom.InputType(e), dom.ErrUnsupported)
	}
	n := utf8.RuneCountInString(e.value())
	end = clamp(end, 0, n)
	start = clamp(start, 0, end)
	s := e.doc.stateOf(e.n)
	s.selStart, s.selEnd = start, end
	return nil
}

func (e *Element) value() string {
	s := e.doc.stateOf(e.n)
	switch e.Tag() {
	case "input":
		if s.valueSet {
			return s.value
		}
		if v, ok := e.Attr("value"); ok {
			return v
		}
		if dom.IsCheckable(e) {
			return "on"
		}
		return ""
	case "textarea":
		if s.valueSet {
			return s.value
		}
		return textContent(e.n)
	case "select":
		opts := e.options()
		i := e.selectedIndex()
		if i < 0 || i >= len(opts) {
			return ""
		}
		return optionValue(opts[i])
	}
	return ""
}

func (e *Element) checked() bool {
	s := e.doc.stateOf(e.n)
	if s.checkedSet {
		return s.checked
	}
	_, ok := e.Attr("checked")
	return ok
}

func (e *Element) selectedIndex() int {
	s := e.doc.stateOf(e.n)
	if s.selectedSet {
		return s.selected
	}
	opts := e.options()
	for i, opt := range opts {
		if _, ok := opt.Attr("selected"); ok {
			return i
		}
	}
	if len(opts) == 0 {
		return -1
	}
	return 0
}

func (e *Element) options() []*Element {
	var out []*Element
	e.doc.walk(e.n, func(n *html.Node) {
		if n.Type == html.ElementNode && n.Data == "option" {
			out = append(out, e.doc.element(n))
		}
	})
	return out
}

func (e *Element) uncheckGroup() {
	name, ok := e.Attr("name")
	if !ok || name == "" {
		return
	}
	radios, _ := e.doc.Find(dom.Clause{Tag: "input", Attr: "name", Equals: name})
	for _, r := range radios {
		other := r.(*Element)
		if other.n == e.n || dom.InputType(other) != "radio" {
			continue
		}
		s := e.doc.stateOf(other.n)
		s.checked = false
		s.checkedSet = true
	}
}

func optionValue(opt *Element) string {
	if v, ok := opt.Attr("value"); ok {
		return v
	}
	return strings.TrimSpace(textContent(opt.n))
}

func clamp(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
