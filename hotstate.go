// Package hotstate preserves the ephemeral state of a UI tree across a
// rebuild: typed values, checkbox and select states, carets, editable
// content, scroll offsets and state markers.
//
// An Engine captures a snapshot before the tree is torn down, persists it
// in a slot, and after the rebuild matches every captured node to its new
// counterpart (stable key, element id, or a multi-signal score) and
// writes the state back in a scheduled restore pass.
package hotstate

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"time"

	"github.com/hazyhaar/hotstate/dom"
	"github.com/hazyhaar/hotstate/event"
	"github.com/hazyhaar/hotstate/internal/capture"
	"github.com/hazyhaar/hotstate/internal/identity"
	"github.com/hazyhaar/hotstate/internal/match"
	"github.com/hazyhaar/hotstate/internal/restore"
	"github.com/hazyhaar/hotstate/internal/sched"
	"github.com/hazyhaar/hotstate/internal/signature"
	"github.com/hazyhaar/hotstate/metrics"
	"github.com/hazyhaar/hotstate/snapshot"
	"github.com/hazyhaar/hotstate/store"
	"github.com/hazyhaar/hotstate/store/httpstore"
)

type (
	// Pass is one scheduled restore.
	Pass = restore.Pass
	// Result counts restored and failed nodes of a finished pass.
	Result = restore.Result
	// Scheduler runs restore tasks one at a time after a delay.
	Scheduler = sched.Scheduler
	// ComponentProber reads the component type owning an element.
	ComponentProber = signature.ComponentProber
)

// Engine wires capture, persistence and restore around one configuration.
// It is safe to call from several goroutines, but two restore passes on
// the same document must not overlap.
type Engine struct {
	cfg      Config
	store    store.Store
	sink     event.Sink
	metrics  *metrics.Metrics
	capturer *capture.Capturer
	matcher  *match.Matcher
	restorer *restore.Restorer
	logger   *slog.Logger

	queue   *sched.Queue // owned, nil when a scheduler was injected
	closers []io.Closer
}

// Option configures an Engine.
type Option func(*engineOptions)

type engineOptions struct {
	store   store.Store
	sinks   []event.Sink
	logger  *slog.Logger
	prober  signature.ComponentProber
	sched   sched.Scheduler
	metrics *metrics.Metrics
}

// WithStore uses s instead of the store described by the configuration.
func WithStore(s store.Store) Option {
	return func(o *engineOptions) { o.store = s }
}

// WithSink adds an event sink. May be repeated.
func WithSink(s event.Sink) Option {
	return func(o *engineOptions) { o.sinks = append(o.sinks, s) }
}

// WithLogger sets the logger. Default: slog.Default().
func WithLogger(l *slog.Logger) Option {
	return func(o *engineOptions) { o.logger = l }
}

// WithProber sets the component prober used by capture and matching.
func WithProber(p ComponentProber) Option {
	return func(o *engineOptions) { o.prober = p }
}

// WithScheduler runs restore tasks on s instead of an owned queue.
func WithScheduler(s Scheduler) Option {
	return func(o *engineOptions) { o.sched = s }
}

// WithMetrics records events on m, regardless of metrics.enabled.
func WithMetrics(m *metrics.Metrics) Option {
	return func(o *engineOptions) { o.metrics = m }
}

// New builds an Engine from cfg. Zero configuration fields take their
// defaults.
func New(cfg Config, opts ...Option) (*Engine, error) {
	cfg.applyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	var o engineOptions
	for _, fn := range opts {
		fn(&o)
	}
	if o.logger == nil {
		o.logger = slog.Default()
	}

	e := &Engine{cfg: cfg, logger: o.logger}

	if o.store == nil {
		s, err := OpenStore(cfg.Store, o.logger)
		if err != nil {
			return nil, err
		}
		o.store = s
		if c, ok := s.(io.Closer); ok {
			e.closers = append(e.closers, c)
		}
	}
	e.store = o.store

	if o.metrics == nil && cfg.Metrics.Enabled {
		o.metrics = metrics.New(nil)
	}
	e.metrics = o.metrics

	sinks := append([]event.Sink{event.NewLog(o.logger)}, o.sinks...)
	if e.metrics != nil {
		sinks = append(sinks, e.metrics)
	}
	e.sink = event.NewRouter(sinks...)

	prober := o.prober
	if prober == nil && cfg.Component.Attr != "" {
		prober = signature.AttrProber{Attr: cfg.Component.Attr}
	}
	if prober == nil {
		prober = signature.NoopProber{}
	}

	tagger := identity.New(cfg.Attributes.Key, nil)
	attrs := capture.Attributes{
		OptIn:  cfg.Attributes.OptIn,
		State:  cfg.Attributes.State,
		Scroll: cfg.Attributes.Scroll,
	}
	clauses := capture.DefaultClauses(attrs)
	for _, c := range cfg.Policy.Extra {
		clauses = append(clauses, c.clause())
	}
	policy, err := capture.NewPolicy(attrs, clauses, cfg.Policy.Filter)
	if err != nil {
		e.Close()
		return nil, fmt.Errorf("hotstate: %w", err)
	}

	e.capturer = capture.New(attrs, tagger)
	e.capturer.Policy = policy
	e.capturer.Prober = prober
	e.capturer.Sink = e.sink
	e.capturer.Logger = o.logger

	e.matcher = &match.Matcher{Weights: cfg.Match.weights(), KeyAttr: cfg.Attributes.Key, Prober: prober}

	if o.sched == nil {
		e.queue = sched.NewQueue()
		o.sched = e.queue
	}
	e.restorer = restore.New(o.sched)
	e.restorer.Matcher = e.matcher
	e.restorer.Tagger = tagger
	e.restorer.Threshold = cfg.Match.threshold()
	e.restorer.ReadyDelay = cfg.Restore.ReadyDelay
	e.restorer.CaretDelay = cfg.Restore.CaretDelay
	e.restorer.StateAttr = cfg.Attributes.State
	e.restorer.Logger = o.logger
	if cfg.Restore.SanitizeHTML {
		e.restorer.Sanitize = restore.SanitizeUGC()
	}
	return e, nil
}

// OpenStore opens the backend named by cfg.Driver.
func OpenStore(cfg StoreConfig, logger *slog.Logger) (store.Store, error) {
	switch strings.ToLower(cfg.Driver) {
	case "", "memory":
		return store.NewMemory(), nil
	case "sqlite":
		s, err := store.OpenSQLite(cfg.Path)
		if err != nil {
			return nil, fmt.Errorf("hotstate: open store: %w", err)
		}
		return s, nil
	case "badger":
		s, err := store.OpenBadger(store.BadgerConfig{Path: cfg.Path, Logger: logger})
		if err != nil {
			return nil, fmt.Errorf("hotstate: open store: %w", err)
		}
		return s, nil
	case "http":
		return httpstore.NewClient(cfg.URL, nil), nil
	default:
		return nil, fmt.Errorf("hotstate: unknown store driver %q", cfg.Driver)
	}
}

// Config returns the effective configuration.
func (e *Engine) Config() Config { return e.cfg }

// Metrics returns the metrics sink, or nil when metrics are disabled.
func (e *Engine) Metrics() *metrics.Metrics { return e.metrics }

// Store returns the persistence backend.
func (e *Engine) Store() store.Store { return e.store }

func (e *Engine) slot(s string) string {
	if s == "" {
		return e.cfg.Slot
	}
	return s
}

// Capture snapshots the tracked elements of doc. An empty slot uses the
// configured one.
func (e *Engine) Capture(ctx context.Context, doc dom.Document, slot string) (*snapshot.Snapshot, error) {
	return e.capturer.Capture(ctx, doc, e.slot(slot))
}

// Save persists snap under its slot and reports success. Failures are
// logged, never returned.
func (e *Engine) Save(ctx context.Context, snap *snapshot.Snapshot) bool {
	if snap == nil {
		return false
	}
	blob, err := snapshot.Marshal(snap)
	if err != nil {
		e.logger.Warn("hotstate: encode snapshot", "slot", snap.Slot, "error", err)
		return false
	}
	slot := e.slot(snap.Slot)
	if err := e.store.Save(ctx, slot, blob); err != nil {
		e.logger.Warn("hotstate: save snapshot", "slot", slot, "error", err)
		return false
	}
	e.logger.Debug("hotstate: snapshot saved", "slot", slot, "nodes", len(snap.Nodes), "bytes", len(blob))
	return true
}

// Load returns the snapshot stored under slot, or nil when there is none
// or it cannot be read.
func (e *Engine) Load(ctx context.Context, slot string) *snapshot.Snapshot {
	slot = e.slot(slot)
	blob, err := e.store.Load(ctx, slot)
	if errors.Is(err, store.ErrNotFound) {
		e.logger.Debug("hotstate: no snapshot", "slot", slot)
		return nil
	}
	if err != nil {
		e.logger.Warn("hotstate: load snapshot", "slot", slot, "error", err)
		return nil
	}
	snap, err := snapshot.Unmarshal(blob)
	if err != nil {
		e.logger.Warn("hotstate: decode snapshot", "slot", slot, "error", err)
		return nil
	}
	return snap
}

// Clear removes the snapshot stored under slot and reports success.
func (e *Engine) Clear(ctx context.Context, slot string) bool {
	slot = e.slot(slot)
	if err := e.store.Clear(ctx, slot); err != nil {
		e.logger.Warn("hotstate: clear snapshot", "slot", slot, "error", err)
		return false
	}
	return true
}

// Slots lists stored slots when the backend can enumerate them.
func (e *Engine) Slots(ctx context.Context) ([]string, error) {
	l, ok := e.store.(store.Lister)
	if !ok {
		return nil, fmt.Errorf("hotstate: store %T cannot list slots", e.store)
	}
	return l.Slots(ctx)
}

// Restore schedules a restore pass of snap onto doc. A nil snapshot
// yields an already completed pass and a no-snapshot event.
func (e *Engine) Restore(doc dom.Document, snap *snapshot.Snapshot) *Pass {
	return e.restorer.Restore(doc, snap, e.sink)
}

// Preserve captures doc and saves the snapshot. The snapshot is returned
// even when saving failed; saved reports the outcome.
func (e *Engine) Preserve(ctx context.Context, doc dom.Document, slot string) (snap *snapshot.Snapshot, saved bool, err error) {
	snap, err = e.Capture(ctx, doc, slot)
	if err != nil {
		return nil, false, err
	}
	return snap, e.Save(ctx, snap), nil
}

// Recover loads the snapshot of slot and restores it onto doc.
func (e *Engine) Recover(ctx context.Context, doc dom.Document, slot string) *Pass {
	return e.Restore(doc, e.Load(ctx, slot))
}

// Inspection is the match a restore would make for one node, computed
// without touching the document.
type Inspection struct {
	Key        string `json:"key"`
	Tag        string `json:"tag"`
	Matched    bool   `json:"matched"`
	Accepted   bool   `json:"accepted"`
	Method     string `json:"method,omitempty"`
	Confidence int    `json:"confidence"`
	Error      string `json:"error,omitempty"`
}

// Inspect reports, per node of snap, the element a restore would pick
// and whether its confidence clears the threshold.
func (e *Engine) Inspect(doc dom.Document, snap *snapshot.Snapshot) []Inspection {
	if snap == nil {
		return nil
	}
	out := make([]Inspection, 0, len(snap.Nodes))
	for _, n := range snap.Nodes {
		in := Inspection{Key: n.Key, Tag: n.Tag}
		res, err := e.matcher.Match(doc, n)
		switch {
		case err != nil:
			in.Error = err.Error()
		case res != nil:
			in.Matched = true
			in.Method = res.Method
			in.Confidence = res.Confidence
			in.Accepted = res.Confidence >= e.cfg.Match.threshold()
		}
		out = append(out, in)
	}
	return out
}

// Close stops the owned scheduler and closes the owned store. Pending
// restore tasks are dropped.
func (e *Engine) Close() error {
	if e.queue != nil {
		e.queue.Close()
	}
	var errs []error
	for _, c := range e.closers {
		if err := c.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// waitPass waits for p at most timeout.
func waitPass(ctx context.Context, p *Pass, timeout time.Duration) (Result, error) {
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()
	return p.Wait(ctx)
}
