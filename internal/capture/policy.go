package capture

import (
	"fmt"

	exprlang "github.com/expr-lang/expr"
	exprvm "github.com/expr-lang/expr/vm"

	"github.com/hazyhaar/hotstate/dom"
)

// Attributes names the marker attributes the policy selects on.
type Attributes struct {
	OptIn  string // explicit opt-in, default data-hotstate
	State  string // state marker, default data-state
	Scroll string // scroll container, default data-hotstate-scroll
}

func (a *Attributes) defaults() {
	if a.OptIn == "" {
		a.OptIn = "data-hotstate"
	}
	if a.State == "" {
		a.State = "data-state"
	}
	if a.Scroll == "" {
		a.Scroll = "data-hotstate-scroll"
	}
}

// DefaultClauses returns the trackable set: non-hidden inputs, textareas,
// selects, editable regions, opted-in elements, state markers and scroll
// containers.
func DefaultClauses(a Attributes) []dom.Clause {
	a.defaults()
	return []dom.Clause{
		{Tag: "input", Exclude: []dom.AttrValue{{Name: "type", Value: "hidden"}}},
		dom.TagClause("textarea"),
		dom.TagClause("select"),
		{Attr: "contenteditable", Exclude: []dom.AttrValue{{Name: "contenteditable", Value: "false"}}},
		{Attr: a.OptIn},
		{Attr: a.State},
		{Attr: a.Scroll},
	}
}

// Policy decides which elements are tracked. Clauses select candidates in
// the document; the optional filter expression then narrows them down.
//
// The filter sees tag, id, class and input_type as strings and attr(name)
// as a function, and must evaluate to a bool:
//
//	input_type != "password"
//	attr("data-hotstate") != "off"
type Policy struct {
	Clauses []dom.Clause
	Filter  string

	program *exprvm.Program
}

// NewPolicy compiles filter (may be empty) over clauses. Nil clauses select
// DefaultClauses(attrs).
func NewPolicy(attrs Attributes, clauses []dom.Clause, filter string) (*Policy, error) {
	if clauses == nil {
		clauses = DefaultClauses(attrs)
	}
	p := &Policy{Clauses: clauses, Filter: filter}
	if filter == "" {
		return p, nil
	}
	program, err := exprlang.Compile(filter, exprlang.Env(filterEnv(nil)), exprlang.AsBool())
	if err != nil {
		return nil, fmt.Errorf("capture: compile filter %q: %w", filter, err)
	}
	p.program = program
	return p, nil
}

// Select returns the tracked elements of doc in document order.
func (p *Policy) Select(doc dom.Document) ([]dom.Element, error) {
	return doc.Find(p.Clauses...)
}

// Allow applies the filter expression to el. Without a filter every
// element is allowed.
func (p *Policy) Allow(el dom.Element) (bool, error) {
	if p.program == nil {
		return true, nil
	}
	out, err := exprlang.Run(p.program, filterEnv(el))
	if err != nil {
		return false, fmt.Errorf("capture: filter %q: %w", p.Filter, err)
	}
	ok, _ := out.(bool)
	return ok, nil
}

func filterEnv(el dom.Element) map[string]any {
	if el == nil {
		return map[string]any{
			"tag": "", "id": "", "class": "", "input_type": "",
			"attr": func(string) string { return "" },
		}
	}
	attr := func(name string) string {
		v, _ := el.Attr(name)
		return v
	}
	typ := ""
	if el.Tag() == "input" {
		typ = dom.InputType(el)
	}
	return map[string]any{
		"tag":        el.Tag(),
		"id":         attr("id"),
		"class":      attr("class"),
		"input_type": typ,
		"attr":       attr,
	}
}
