package event

import (
	"context"
	"log/slog"
	"sync"
)

// Router fans events out to every configured sink.
type Router struct {
	sinks []Sink
}

// NewRouter creates a fan-out router. Nil sinks are skipped.
func NewRouter(sinks ...Sink) *Router {
	r := &Router{}
	for _, s := range sinks {
		if s != nil {
			r.sinks = append(r.sinks, s)
		}
	}
	return r
}

func (r *Router) Emit(e Event) {
	for _, s := range r.sinks {
		s.Emit(e)
	}
}

// Log writes events through slog: success and info at Info, warn at Warn,
// error at Error.
type Log struct {
	logger *slog.Logger
}

// NewLog returns a slog-backed sink. A nil logger uses slog.Default().
func NewLog(logger *slog.Logger) *Log {
	if logger == nil {
		logger = slog.Default()
	}
	return &Log{logger: logger}
}

func (l *Log) Emit(e Event) {
	level := slog.LevelInfo
	switch e.Kind {
	case Warn:
		level = slog.LevelWarn
	case Error:
		level = slog.LevelError
	}
	attrs := []slog.Attr{slog.String("outcome", string(e.Outcome))}
	if e.Key != "" {
		attrs = append(attrs, slog.String("key", e.Key))
	}
	if e.Method != "" {
		attrs = append(attrs, slog.String("method", e.Method), slog.Int("confidence", e.Confidence))
	}
	if e.Outcome == Summary {
		attrs = append(attrs, slog.Int("restored", e.Restored), slog.Int("failed", e.Failed))
	}
	l.logger.LogAttrs(context.Background(), level, "hotstate: "+e.Message, attrs...)
}

// Recorder keeps every event in memory. Safe for concurrent use.
type Recorder struct {
	mu     sync.Mutex
	events []Event
}

func (r *Recorder) Emit(e Event) {
	r.mu.Lock()
	r.events = append(r.events, e)
	r.mu.Unlock()
}

// Events returns a copy of the recorded events.
func (r *Recorder) Events() []Event {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]Event(nil), r.events...)
}

// ByOutcome returns the recorded events with outcome o.
func (r *Recorder) ByOutcome(o Outcome) []Event {
	var out []Event
	for _, e := range r.Events() {
		if e.Outcome == o {
			out = append(out, e)
		}
	}
	return out
}

// Reset drops every recorded event.
func (r *Recorder) Reset() {
	r.mu.Lock()
	r.events = nil
	r.mu.Unlock()
}
