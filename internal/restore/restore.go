// Package restore applies a snapshot onto a rebuilt tree.
//
// A pass is two tasks on a single-threaded scheduler: the main task runs
// ReadyDelay after the call, matches every node in capture order and
// writes its fields; the caret task runs CaretDelay later, once content
// has settled, installs the carets and reports the outcome of each node.
package restore

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/microcosm-cc/bluemonday"

	"github.com/hazyhaar/hotstate/dom"
	"github.com/hazyhaar/hotstate/event"
	"github.com/hazyhaar/hotstate/internal/caret"
	"github.com/hazyhaar/hotstate/internal/identity"
	"github.com/hazyhaar/hotstate/internal/match"
	"github.com/hazyhaar/hotstate/internal/sched"
	"github.com/hazyhaar/hotstate/snapshot"
)

const (
	DefaultReadyDelay = 100 * time.Millisecond
	DefaultCaretDelay = 50 * time.Millisecond
)

// Result counts the nodes of a finished pass.
type Result struct {
	Restored int `json:"restored"`
	Failed   int `json:"failed"`
}

// Restorer matches snapshot nodes and writes their state back.
type Restorer struct {
	Matcher    *match.Matcher
	Tagger     *identity.Tagger
	Threshold  int
	ReadyDelay time.Duration
	CaretDelay time.Duration
	StateAttr  string
	// Sanitize, when set, filters inner HTML before it is written.
	Sanitize func(html string) string
	Sched    sched.Scheduler
	Logger   *slog.Logger
}

// New returns a Restorer with default matcher, threshold and delays
// running its tasks on s.
func New(s sched.Scheduler) *Restorer {
	return &Restorer{
		Matcher:    match.New(),
		Tagger:     identity.New("", nil),
		Threshold:  match.DefaultThreshold,
		ReadyDelay: DefaultReadyDelay,
		CaretDelay: DefaultCaretDelay,
		StateAttr:  "data-state",
		Sched:      s,
		Logger:     slog.Default(),
	}
}

// SanitizeUGC strips scripts, handlers and other active content from
// markup while keeping ordinary formatting.
func SanitizeUGC() func(string) string {
	p := bluemonday.UGCPolicy()
	return p.Sanitize
}

// Pass is one scheduled restore. Nodes is known at once; the counts only
// once Done is closed.
type Pass struct {
	nodes  int
	done   chan struct{}
	result Result
}

// Nodes returns how many nodes the pass will process.
func (p *Pass) Nodes() int { return p.nodes }

// Done is closed when the summary has been emitted.
func (p *Pass) Done() <-chan struct{} { return p.done }

// Result returns the final counts; ok is false while the pass runs.
func (p *Pass) Result() (Result, bool) {
	select {
	case <-p.done:
		return p.result, true
	default:
		return Result{}, false
	}
}

// Wait blocks until the pass completes or ctx ends.
func (p *Pass) Wait(ctx context.Context) (Result, error) {
	select {
	case <-p.done:
		return p.result, nil
	case <-ctx.Done():
		return Result{}, ctx.Err()
	}
}

// applied is a node whose fields were written and whose caret is pending.
type applied struct {
	node snapshot.Node
	el   dom.Element
	res  *match.Result
	errs []error
}

// Restore schedules a pass of snap onto doc. Events go to sink, which may
// be nil. Two passes on the same document must not overlap.
func (r *Restorer) Restore(doc dom.Document, snap *snapshot.Snapshot, sink event.Sink) *Pass {
	p := &Pass{done: make(chan struct{})}
	if snap == nil || snap.Nodes == nil {
		event.Emit(sink, event.Event{Kind: event.Error, Outcome: event.NoSnapshot, Message: "no snapshot to restore"})
		close(p.done)
		return p
	}
	p.nodes = len(snap.Nodes)
	nodes := append([]snapshot.Node(nil), snap.Nodes...)

	r.Sched.After(r.ReadyDelay, func() {
		pending := r.mainPass(doc, nodes, sink, p)
		r.Sched.After(r.CaretDelay, func() {
			r.caretPass(doc, pending, sink, p)
			event.Emit(sink, event.Event{
				Kind:     event.Info,
				Outcome:  event.Summary,
				Message:  fmt.Sprintf("restore complete: %d restored, %d failed", p.result.Restored, p.result.Failed),
				Restored: p.result.Restored,
				Failed:   p.result.Failed,
			})
			r.logger().Debug("restore: pass complete", "nodes", p.nodes, "restored", p.result.Restored, "failed", p.result.Failed)
			close(p.done)
		})
	})
	return p
}

func (r *Restorer) mainPass(doc dom.Document, nodes []snapshot.Node, sink event.Sink, p *Pass) []*applied {
	var pending []*applied
	for _, n := range nodes {
		res, err := r.Matcher.Match(doc, n)
		if err != nil || res == nil {
			msg := fmt.Sprintf("no match for <%s> %s", n.Tag, n.Key)
			if err != nil {
				msg += ": " + err.Error()
			}
			p.result.Failed++
			event.Emit(sink, event.Event{Kind: event.Error, Outcome: event.NoMatch, Message: msg, Key: n.Key})
			continue
		}
		if res.Confidence < r.Threshold {
			p.result.Failed++
			event.Emit(sink, event.Event{
				Kind:       event.Warn,
				Outcome:    event.LowConfidence,
				Message:    fmt.Sprintf("confidence %d below %d for <%s> %s", res.Confidence, r.Threshold, n.Tag, n.Key),
				Key:        n.Key,
				Method:     res.Method,
				Confidence: res.Confidence,
			})
			continue
		}
		a := &applied{node: n, el: res.Element, res: res}
		a.errs = r.applyFields(a.el, n)
		pending = append(pending, a)
	}
	return pending
}

func (r *Restorer) caretPass(doc dom.Document, pending []*applied, sink event.Sink, p *Pass) {
	for _, a := range pending {
		if a.node.Caret != nil {
			if err := caret.Decode(doc, a.el, a.node.Caret); err != nil {
				a.errs = append(a.errs, fmt.Errorf("caret: %w", err))
			}
		}
		if len(a.errs) > 0 {
			p.result.Failed++
			event.Emit(sink, event.Event{
				Kind:       event.Error,
				Outcome:    event.FieldError,
				Message:    fmt.Sprintf("<%s> %s partially restored: %v", a.node.Tag, a.node.Key, errors.Join(a.errs...)),
				Key:        a.node.Key,
				Method:     a.res.Method,
				Confidence: a.res.Confidence,
			})
			continue
		}
		p.result.Restored++
		event.Emit(sink, event.Event{
			Kind:       event.Success,
			Outcome:    event.Restored,
			Message:    fmt.Sprintf("restored <%s> %s via %s (%d)", a.node.Tag, a.node.Key, a.res.Method, a.res.Confidence),
			Key:        a.node.Key,
			Method:     a.res.Method,
			Confidence: a.res.Confidence,
		})
	}
}

// applyFields writes every captured field independently and returns the
// failures.
func (r *Restorer) applyFields(el dom.Element, n snapshot.Node) []error {
	var errs []error
	try := func(field string, err error) {
		if err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", field, err))
		}
	}

	if n.Key != "" {
		try("key", r.Tagger.Assign(el, n.Key))
	}
	if n.Value != nil && (el.Tag() == "input" || el.Tag() == "textarea") {
		try("value", el.SetValue(*n.Value))
	}
	if n.Checked != nil && dom.IsCheckable(el) {
		try("checked", el.SetChecked(*n.Checked))
	}
	if n.SelectedIndex != nil && el.Tag() == "select" {
		try("selectedIndex", el.SetSelectedIndex(*n.SelectedIndex))
	}
	if n.InnerHTML != nil && dom.IsEditable(el) {
		html := *n.InnerHTML
		if r.Sanitize != nil {
			html = r.Sanitize(html)
		}
		try("innerHTML", el.SetInnerHTML(html))
	}
	if n.DataState != nil {
		try("dataState", el.SetAttr(r.StateAttr, *n.DataState))
	}
	try("scroll", el.SetScroll(n.ScrollTop, n.ScrollLeft))
	return errs
}

func (r *Restorer) logger() *slog.Logger {
	if r.Logger == nil {
		return slog.Default()
	}
	return r.Logger
}
