package match

import (
	"testing"

	"github.com/hazyhaar/hotstate/dom"
	"github.com/hazyhaar/hotstate/dom/memdom"
	"github.com/hazyhaar/hotstate/internal/signature"
	"github.com/hazyhaar/hotstate/snapshot"
)

func mustMatch(t *testing.T, m *Matcher, doc dom.Document, n snapshot.Node) *Result {
	t.Helper()
	r, err := m.Match(doc, n)
	if err != nil {
		t.Fatalf("match: %v", err)
	}
	return r
}

func idOf(el dom.Element) string {
	id, _ := el.Attr("id")
	return id
}

func TestExactKeyWinsOverEverything(t *testing.T) {
	doc := memdom.MustParse(`<input id="x" class="other" data-hotstate-key="hs-1"><input id="a" class="c">`)
	n := snapshot.Node{Key: "hs-1", Tag: "input", ID: "a", ClassName: "c", Rect: "1:2:3:4"}
	r := mustMatch(t, New(), doc, n)
	if r == nil || r.Method != MethodExactKey || r.Confidence != 100 || idOf(r.Element) != "x" {
		t.Fatalf("got %+v, want exact-key on #x", r)
	}
}

func TestExactKeyIgnoresTagChange(t *testing.T) {
	doc := memdom.MustParse(`<textarea data-hotstate-key="hs-1"></textarea>`)
	r := mustMatch(t, New(), doc, snapshot.Node{Key: "hs-1", Tag: "input"})
	if r == nil || r.Method != MethodExactKey {
		t.Fatalf("got %+v, want exact-key", r)
	}
}

func TestIDFallback(t *testing.T) {
	doc := memdom.MustParse(`<input class="c"><input id="a">`)
	r := mustMatch(t, New(), doc, snapshot.Node{Key: "gone", Tag: "input", ID: "a", ClassName: "c"})
	if r == nil || r.Method != MethodID || r.Confidence != 95 || idOf(r.Element) != "a" {
		t.Fatalf("got %+v, want id on #a", r)
	}
}

func TestIDFallbackRequiresSameTag(t *testing.T) {
	doc := memdom.MustParse(`<div id="a"></div><input class="c">`)
	r := mustMatch(t, New(), doc, snapshot.Node{Key: "gone", Tag: "input", ID: "a", ClassName: "c", Rect: snapshot.RectUnavailable})
	if r == nil || r.Method != MethodMultiSignal || r.Confidence != 50 {
		t.Fatalf("got %+v, want multi-signal 50", r)
	}
}

func TestNoCandidates(t *testing.T) {
	doc := memdom.MustParse(`<input><textarea></textarea>`)
	r := mustMatch(t, New(), doc, snapshot.Node{Key: "gone", Tag: "select"})
	if r != nil {
		t.Errorf("got %+v, want nil", r)
	}
}

func TestScoreSignals(t *testing.T) {
	doc := memdom.MustParse(`<input id="el" class="c" value="hello world" data-component="Field">`)
	el := doc.ByID("el")
	el.SetRect(dom.Rect{Left: 1, Top: 2, Width: 3, Height: 4})
	m := New()
	m.Prober = signature.AttrProber{Attr: "data-component"}

	base := snapshot.Node{Tag: "input", Rect: snapshot.RectUnavailable}
	tests := []struct {
		name string
		edit func(n *snapshot.Node)
		want int
	}{
		{"tag only", func(n *snapshot.Node) {}, 20},
		{"class", func(n *snapshot.Node) { n.ClassName = "c" }, 50},
		{"class mismatch", func(n *snapshot.Node) { n.ClassName = "d" }, 20},
		{"component", func(n *snapshot.Node) { n.ComponentID = "component-" + signature.SmallHash("Field") }, 45},
		{"rect", func(n *snapshot.Node) { n.Rect = "1:2:3:4" }, 35},
		{"rect mismatch", func(n *snapshot.Node) { n.Rect = "1:2:3:5" }, 20},
		{"value identical", func(n *snapshot.Node) { n.Value = snapshot.Ptr("hello world") }, 30},
		{"value prefix", func(n *snapshot.Node) { n.Value = snapshot.Ptr("hello there") }, 25},
		{"value unrelated", func(n *snapshot.Node) { n.Value = snapshot.Ptr("goodbye") }, 20},
		{"value empty", func(n *snapshot.Node) { n.Value = snapshot.Ptr("") }, 20},
		{"all", func(n *snapshot.Node) {
			n.ClassName = "c"
			n.ComponentID = "component-" + signature.SmallHash("Field")
			n.Rect = "1:2:3:4"
			n.Value = snapshot.Ptr("hello world")
		}, 100},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			n := base
			tt.edit(&n)
			got, err := m.Score(el, n)
			if err != nil {
				t.Fatal(err)
			}
			if got != tt.want {
				t.Errorf("got %d, want %d", got, tt.want)
			}
		})
	}
}

func TestEmptyValueMatchesEmptyValue(t *testing.T) {
	doc := memdom.MustParse(`<input id="el" data-component="Field">`)
	m := New()
	m.Prober = signature.AttrProber{Attr: "data-component"}
	n := snapshot.Node{
		Tag:         "input",
		ComponentID: "component-" + signature.SmallHash("Field"),
		Rect:        snapshot.RectUnavailable,
		Value:       snapshot.Ptr(""),
	}
	r := mustMatch(t, m, doc, n)
	// tag 20 + component 25 + identical empty value 10.
	if r == nil || r.Confidence != 55 {
		t.Fatalf("got %+v, want confidence 55", r)
	}
}

func TestUnavailableRectNeverScores(t *testing.T) {
	doc := memdom.MustParse(`<div id="d"></div>`)
	got, err := New().Score(doc.ByID("d"), snapshot.Node{Tag: "div", Rect: snapshot.RectUnavailable})
	if err != nil {
		t.Fatal(err)
	}
	if got != 20 {
		t.Errorf("got %d, want 20", got)
	}
}

// A candidate matching a superset of signals never scores lower.
func TestScoringMonotonic(t *testing.T) {
	doc := memdom.MustParse(`<input id="el" class="c" value="hello world" data-component="Field">`)
	el := doc.ByID("el")
	el.SetRect(dom.Rect{Left: 1, Top: 2, Width: 3, Height: 4})
	m := New()
	m.Prober = signature.AttrProber{Attr: "data-component"}

	signals := []func(n *snapshot.Node){
		func(n *snapshot.Node) { n.ClassName = "c" },
		func(n *snapshot.Node) { n.ComponentID = "component-" + signature.SmallHash("Field") },
		func(n *snapshot.Node) { n.Rect = "1:2:3:4" },
		func(n *snapshot.Node) { n.Value = snapshot.Ptr("hello world") },
	}
	score := func(mask int) int {
		n := snapshot.Node{Tag: "input", Rect: snapshot.RectUnavailable}
		for i, s := range signals {
			if mask&(1<<i) != 0 {
				s(&n)
			}
		}
		got, err := m.Score(el, n)
		if err != nil {
			t.Fatal(err)
		}
		return got
	}
	for sub := 0; sub < 16; sub++ {
		for sup := 0; sup < 16; sup++ {
			if sub&sup != sub {
				continue
			}
			if a, b := score(sub), score(sup); b < a {
				t.Errorf("superset %04b scored %d below subset %04b at %d", sup, b, sub, a)
			}
		}
	}
}

func TestTieKeepsFirstCandidate(t *testing.T) {
	doc := memdom.MustParse(`<input id="first" class="c"><input id="second" class="c">`)
	r := mustMatch(t, New(), doc, snapshot.Node{Tag: "input", ClassName: "c", Rect: snapshot.RectUnavailable})
	if r == nil || idOf(r.Element) != "first" {
		t.Fatalf("got %+v, want #first", r)
	}
}

func TestBestCandidateWins(t *testing.T) {
	doc := memdom.MustParse(`<input id="weak" class="x"><input id="strong" class="c" value="draft text">`)
	n := snapshot.Node{Tag: "input", ClassName: "c", Rect: snapshot.RectUnavailable, Value: snapshot.Ptr("draft text")}
	r := mustMatch(t, New(), doc, n)
	if r == nil || idOf(r.Element) != "strong" || r.Confidence != 60 {
		t.Fatalf("got %+v, want #strong at 60", r)
	}
}

func TestCustomWeights(t *testing.T) {
	doc := memdom.MustParse(`<div id="d" class="c"></div>`)
	m := New()
	m.Weights.Class = 29
	got, err := m.Score(doc.ByID("d"), snapshot.Node{Tag: "div", ClassName: "c", Rect: snapshot.RectUnavailable})
	if err != nil {
		t.Fatal(err)
	}
	if got != 49 {
		t.Errorf("got %d, want 49", got)
	}
}
