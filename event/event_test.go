package event

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"testing"
	"time"
)

func TestEmitNilSink(t *testing.T) {
	Emit(nil, Event{Kind: Info, Message: "dropped"})
}

func TestEmitStampsTime(t *testing.T) {
	var rec Recorder
	Emit(&rec, Event{Kind: Info, Outcome: Summary})
	evs := rec.Events()
	if len(evs) != 1 || evs[0].Time.IsZero() {
		t.Fatalf("got %+v, want one stamped event", evs)
	}

	at := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
	Emit(&rec, Event{Time: at})
	if got := rec.Events()[1].Time; !got.Equal(at) {
		t.Errorf("explicit time overwritten: got %v", got)
	}
}

func TestRouterFansOut(t *testing.T) {
	var a, b Recorder
	calls := 0
	r := NewRouter(&a, nil, &b, Func(func(Event) { calls++ }))
	r.Emit(Event{Outcome: NoMatch})
	r.Emit(Event{Outcome: Restored})

	if len(a.Events()) != 2 || len(b.Events()) != 2 || calls != 2 {
		t.Errorf("got a=%d b=%d func=%d, want 2 each", len(a.Events()), len(b.Events()), calls)
	}
	if got := a.ByOutcome(NoMatch); len(got) != 1 {
		t.Errorf("ByOutcome: got %d, want 1", len(got))
	}
	a.Reset()
	if len(a.Events()) != 0 {
		t.Error("Reset kept events")
	}
}

func TestLogLevels(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewJSONHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug}))
	l := NewLog(logger)

	l.Emit(Event{Kind: Success, Outcome: Restored, Message: "restored", Key: "hs-1", Method: "exact-key", Confidence: 100})
	l.Emit(Event{Kind: Warn, Outcome: LowConfidence, Message: "weak"})
	l.Emit(Event{Kind: Error, Outcome: NoMatch, Message: "gone"})
	l.Emit(Event{Kind: Info, Outcome: Summary, Message: "done", Restored: 2, Failed: 1})

	dec := json.NewDecoder(&buf)
	want := []string{"INFO", "WARN", "ERROR", "INFO"}
	var lines []map[string]any
	for dec.More() {
		var m map[string]any
		if err := dec.Decode(&m); err != nil {
			t.Fatal(err)
		}
		lines = append(lines, m)
	}
	if len(lines) != len(want) {
		t.Fatalf("got %d lines, want %d", len(lines), len(want))
	}
	for i, w := range want {
		if lines[i]["level"] != w {
			t.Errorf("line %d: got level %v, want %s", i, lines[i]["level"], w)
		}
	}
	if lines[0]["method"] != "exact-key" || lines[0]["confidence"] != float64(100) {
		t.Errorf("success attrs: got %v", lines[0])
	}
	if lines[3]["restored"] != float64(2) || lines[3]["failed"] != float64(1) {
		t.Errorf("summary attrs: got %v", lines[3])
	}
	if lines[2]["msg"] != "hotstate: gone" {
		t.Errorf("msg: got %v", lines[2]["msg"])
	}
}
