// Package event carries the per-node outcomes of capture and restore to
// whoever is listening: a log, a test recorder, metrics, an MCP caller.
package event

import (
	"fmt"
	"time"
)

// Kind is the severity of an event.
type Kind string

const (
	Info    Kind = "info"
	Success Kind = "success"
	Warn    Kind = "warn"
	Error   Kind = "error"
)

// Outcome classifies what happened.
type Outcome string

const (
	Restored      Outcome = "restored"
	NoMatch       Outcome = "no-match"
	LowConfidence Outcome = "low-confidence"
	FieldError    Outcome = "field-error"
	NoSnapshot    Outcome = "no-snapshot"
	Summary       Outcome = "summary"
	Captured      Outcome = "captured"
	CaptureError  Outcome = "capture-error"
)

// Event is one reported outcome. Key, Method and Confidence describe the
// node concerned; Restored and Failed are only set on summaries.
type Event struct {
	Time       time.Time `json:"time"`
	Kind       Kind      `json:"kind"`
	Outcome    Outcome   `json:"outcome"`
	Message    string    `json:"message"`
	Key        string    `json:"key,omitempty"`
	Method     string    `json:"method,omitempty"`
	Confidence int       `json:"confidence,omitempty"`
	Restored   int       `json:"restored,omitempty"`
	Failed     int       `json:"failed,omitempty"`
}

func (e Event) String() string {
	return fmt.Sprintf("[%s] %s: %s", e.Kind, e.Outcome, e.Message)
}

// Sink receives events. Emit is called from the restore worker and must
// not block for long.
type Sink interface {
	Emit(e Event)
}

// Func adapts a function to Sink.
type Func func(e Event)

func (f Func) Emit(e Event) { f(e) }

// Emit delivers e to s, stamping the time if unset. A nil sink drops it.
func Emit(s Sink, e Event) {
	if s == nil {
		return
	}
	if e.Time.IsZero() {
		e.Time = time.Now()
	}
	s.Emit(e)
}
