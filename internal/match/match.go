// Package match re-identifies a captured node in a (possibly rebuilt)
// tree.
//
// Authoritative signals come first: the identity key, then the id attribute
// with a tag check. When both are gone every element of the captured tag
// is scored on independent evidence and the best one wins.
package match

import (
	"fmt"

	"github.com/hazyhaar/hotstate/dom"
	"github.com/hazyhaar/hotstate/internal/identity"
	"github.com/hazyhaar/hotstate/internal/signature"
	"github.com/hazyhaar/hotstate/snapshot"
)

// Methods reported in Result.Method.
const (
	MethodExactKey    = "exact-key"
	MethodID          = "id"
	MethodMultiSignal = "multi-signal"
)

// ExactKeyConfidence is the confidence of a key match.
const ExactKeyConfidence = 100

// DefaultThreshold is the lowest accepted confidence.
const DefaultThreshold = 50

// Weights are the points each signal adds to a multi-signal score.
type Weights struct {
	ID          int `yaml:"id" json:"id"`
	Tag         int `yaml:"tag" json:"tag"`
	Class       int `yaml:"class" json:"class"`
	Component   int `yaml:"component" json:"component"`
	Rect        int `yaml:"rect" json:"rect"`
	Value       int `yaml:"value" json:"value"`
	ValuePrefix int `yaml:"value_prefix" json:"value_prefix"`
}

// DefaultWeights returns 95 for id, then 20/30/25/15 and 10 or 5 for value.
func DefaultWeights() Weights {
	return Weights{ID: 95, Tag: 20, Class: 30, Component: 25, Rect: 15, Value: 10, ValuePrefix: 5}
}

// valuePrefixLen is how many leading characters must agree for the
// partial value bonus.
const valuePrefixLen = 5

// Result is a candidate and how much it is trusted.
type Result struct {
	Element    dom.Element
	Confidence int
	Method     string
}

// Matcher finds the live element of a captured node.
type Matcher struct {
	Weights Weights
	KeyAttr string
	Prober  signature.ComponentProber
}

// New returns a Matcher with default weights and key attribute.
func New() *Matcher {
	return &Matcher{Weights: DefaultWeights(), KeyAttr: identity.DefaultAttr, Prober: signature.NoopProber{}}
}

// Match returns the best element for n, or nil when no element of the
// captured tag exists.
func (m *Matcher) Match(doc dom.Document, n snapshot.Node) (*Result, error) {
	if n.Key != "" {
		els, err := doc.Find(dom.AttrClause(m.keyAttr(), n.Key))
		if err != nil {
			return nil, fmt.Errorf("match: key: %w", err)
		}
		if len(els) > 0 {
			return &Result{Element: els[0], Confidence: ExactKeyConfidence, Method: MethodExactKey}, nil
		}
	}

	if n.ID != "" {
		els, err := doc.Find(dom.AttrClause("id", n.ID))
		if err != nil {
			return nil, fmt.Errorf("match: id: %w", err)
		}
		if len(els) > 0 && els[0].Tag() == n.Tag {
			return &Result{Element: els[0], Confidence: m.Weights.ID, Method: MethodID}, nil
		}
	}

	if n.Tag == "" {
		return nil, nil
	}
	candidates, err := doc.Find(dom.TagClause(n.Tag))
	if err != nil {
		return nil, fmt.Errorf("match: candidates: %w", err)
	}
	var best *Result
	for _, el := range candidates {
		score, err := m.Score(el, n)
		if err != nil {
			return nil, err
		}
		if best == nil || score > best.Confidence {
			best = &Result{Element: el, Confidence: score, Method: MethodMultiSignal}
		}
	}
	return best, nil
}

// Score is the multi-signal score of el against n. The caller guarantees
// el has the captured tag.
func (m *Matcher) Score(el dom.Element, n snapshot.Node) (int, error) {
	w := m.Weights
	score := w.Tag

	if class, _ := el.Attr("class"); n.ClassName != "" && class == n.ClassName {
		score += w.Class
	}
	if n.ComponentID != "" && signature.ComponentInstanceID(m.Prober, el) == n.ComponentID {
		score += w.Component
	}
	if n.Rect != snapshot.RectUnavailable && signature.ElementRect(el) == n.Rect {
		score += w.Rect
	}
	if n.Value != nil && dom.IsValueBearing(el) {
		st, err := el.State()
		if err != nil {
			return 0, fmt.Errorf("match: read value: %w", err)
		}
		score += valueScore(w, *n.Value, st.Value)
	}
	return score, nil
}

func valueScore(w Weights, captured, current string) int {
	if captured == current {
		return w.Value
	}
	a, b := []rune(captured), []rune(current)
	if len(a) >= valuePrefixLen && len(b) >= valuePrefixLen && string(a[:valuePrefixLen]) == string(b[:valuePrefixLen]) {
		return w.ValuePrefix
	}
	return 0
}

func (m *Matcher) keyAttr() string {
	if m.KeyAttr == "" {
		return identity.DefaultAttr
	}
	return m.KeyAttr
}
