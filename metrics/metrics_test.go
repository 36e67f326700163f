package metrics

import (
	"io"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/hazyhaar/hotstate/event"
)

func counterValue(t *testing.T, reg *prometheus.Registry, name, label string) float64 {
	t.Helper()
	mfs, err := reg.Gather()
	if err != nil {
		t.Fatal(err)
	}
	for _, mf := range mfs {
		if mf.GetName() != name {
			continue
		}
		for _, m := range mf.GetMetric() {
			if label == "" {
				return m.GetCounter().GetValue()
			}
			for _, lp := range m.GetLabel() {
				if lp.GetValue() == label {
					return m.GetCounter().GetValue()
				}
			}
		}
	}
	return 0
}

func TestEmitCounts(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := New(reg)
	m.Emit(event.Event{Outcome: event.Restored, Method: "exact-key", Confidence: 100})
	m.Emit(event.Event{Outcome: event.Restored, Method: "multi-signal", Confidence: 60})
	m.Emit(event.Event{Outcome: event.NoMatch})
	m.Emit(event.Event{Outcome: event.Summary, Restored: 2, Failed: 1})
	m.Emit(event.Event{Outcome: event.Captured})

	if got := counterValue(t, reg, "hotstate_node_outcomes_total", "restored"); got != 2 {
		t.Errorf("restored: got %v, want 2", got)
	}
	if got := counterValue(t, reg, "hotstate_node_outcomes_total", "no-match"); got != 1 {
		t.Errorf("no-match: got %v, want 1", got)
	}
	if got := counterValue(t, reg, "hotstate_restore_passes_total", ""); got != 1 {
		t.Errorf("passes: got %v, want 1", got)
	}
	if got := counterValue(t, reg, "hotstate_captures_total", ""); got != 1 {
		t.Errorf("captures: got %v, want 1", got)
	}
}

func TestHandlerExposesSeries(t *testing.T) {
	m := New(nil)
	m.Emit(event.Event{Outcome: event.LowConfidence, Method: "multi-signal", Confidence: 45})

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest("GET", "/metrics", nil))
	body, _ := io.ReadAll(rec.Body)
	for _, want := range []string{
		`hotstate_node_outcomes_total{outcome="low-confidence"} 1`,
		`hotstate_match_confidence_count{method="multi-signal"} 1`,
	} {
		if !strings.Contains(string(body), want) {
			t.Errorf("missing %q in exposition", want)
		}
	}
}
