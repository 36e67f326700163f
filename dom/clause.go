package dom

import (
	"strconv"
	"strings"
	"unicode/utf8"
)

// AttrValue names one attribute value.
type AttrValue struct {
	Name  string
	Value string
}

// Clause is a structured element selector. All set fields must hold for
// an element to match. A slice of clauses is a union.
type Clause struct {
	Tag     string      // "" matches any tag
	Attr    string      // attribute that must be present
	Equals  string      // with Attr: required value (empty = presence only)
	Exclude []AttrValue // attribute values that disqualify the element
}

// TagClause returns a clause matching every element with the given tag.
func TagClause(tag string) Clause { return Clause{Tag: strings.ToLower(tag)} }

// AttrClause returns a clause matching elements whose attribute equals value.
func AttrClause(name, value string) Clause { return Clause{Attr: name, Equals: value} }

// Match evaluates the clause against a tag and an attribute lookup.
func (c Clause) Match(tag string, attr func(string) (string, bool)) bool {
	if c.Tag != "" && !strings.EqualFold(c.Tag, tag) {
		return false
	}
	if c.Attr != "" {
		v, ok := attr(c.Attr)
		if !ok {
			return false
		}
		if c.Equals != "" && v != c.Equals {
			return false
		}
	}
	for _, ex := range c.Exclude {
		if v, ok := attr(ex.Name); ok && strings.EqualFold(v, ex.Value) {
			return false
		}
	}
	return true
}

// MatchElement evaluates the clause against an element.
func (c Clause) MatchElement(el Element) bool {
	return c.Match(el.Tag(), el.Attr)
}

// MatchAny reports whether el matches at least one clause.
func MatchAny(el Element, clauses []Clause) bool {
	for _, c := range clauses {
		if c.MatchElement(el) {
			return true
		}
	}
	return false
}

// CSS renders the union of clauses as a CSS selector list. Exclusions
// compare case-insensitively, like Match.
func CSS(clauses ...Clause) string {
	parts := make([]string, 0, len(clauses))
	for _, c := range clauses {
		parts = append(parts, c.css())
	}
	return strings.Join(parts, ",")
}

func (c Clause) css() string {
	var b strings.Builder
	b.WriteString(c.Tag)
	if c.Attr != "" {
		b.WriteByte('[')
		b.WriteString(c.Attr)
		if c.Equals != "" {
			b.WriteByte('=')
			b.WriteString(cssString(c.Equals))
		}
		b.WriteByte(']')
	}
	for _, ex := range c.Exclude {
		b.WriteString(":not([")
		b.WriteString(ex.Name)
		b.WriteByte('=')
		b.WriteString(cssString(ex.Value))
		b.WriteString(" i])")
	}
	if b.Len() == 0 {
		return "*"
	}
	return b.String()
}

// cssString serializes s as a double-quoted CSS string: quote and
// backslash are escaped, control characters become hex escapes and NUL
// becomes U+FFFD.
func cssString(s string) string {
	var b strings.Builder
	b.Grow(len(s) + 2)
	b.WriteByte('"')
	for _, r := range s {
		switch {
		case r == 0:
			b.WriteRune(utf8.RuneError)
		case r < 0x20 || r == 0x7f:
			b.WriteByte('\\')
			b.WriteString(strconv.FormatInt(int64(r), 16))
			b.WriteByte(' ')
		case r == '"' || r == '\\':
			b.WriteByte('\\')
			b.WriteRune(r)
		default:
			b.WriteRune(r)
		}
	}
	b.WriteByte('"')
	return b.String()
}
