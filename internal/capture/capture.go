// Package capture walks a tree and records one snapshot node per tracked
// element.
package capture

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/hazyhaar/hotstate/dom"
	"github.com/hazyhaar/hotstate/event"
	"github.com/hazyhaar/hotstate/internal/caret"
	"github.com/hazyhaar/hotstate/internal/identity"
	"github.com/hazyhaar/hotstate/internal/signature"
	"github.com/hazyhaar/hotstate/snapshot"
)

// Capturer produces snapshots. The zero value is not usable; see New.
type Capturer struct {
	Policy    *Policy
	Tagger    *identity.Tagger
	Prober    signature.ComponentProber
	StateAttr string
	Sink      event.Sink
	Logger    *slog.Logger
}

// New returns a Capturer with the default policy, tagger and no-op prober.
func New(attrs Attributes, tagger *identity.Tagger) *Capturer {
	attrs.defaults()
	if tagger == nil {
		tagger = identity.New("", nil)
	}
	p, _ := NewPolicy(attrs, nil, "")
	return &Capturer{
		Policy:    p,
		Tagger:    tagger,
		Prober:    signature.NoopProber{},
		StateAttr: attrs.State,
		Logger:    slog.Default(),
	}
}

// Located is implemented by documents that know their address.
type Located interface {
	URL() string
}

// Capture snapshots every tracked element of doc in document order, under
// the given slot. Only a failing selection aborts the capture; an element
// whose state cannot be read is reported and skipped. Ephemeral state is
// never written, only missing identity keys.
func (c *Capturer) Capture(ctx context.Context, doc dom.Document, slot string) (*snapshot.Snapshot, error) {
	start := time.Now()
	els, err := c.Policy.Select(doc)
	if err != nil {
		return nil, fmt.Errorf("capture: select: %w", err)
	}

	pageURL := ""
	if l, ok := doc.(Located); ok {
		pageURL = l.URL()
	}
	snap := snapshot.New(slot, pageURL)

	for _, el := range els {
		if err := ctx.Err(); err != nil {
			return nil, fmt.Errorf("capture: %w", err)
		}
		ok, err := c.Policy.Allow(el)
		if err != nil {
			c.skip(el, err)
			continue
		}
		if !ok {
			continue
		}
		n, err := c.node(doc, el)
		if err != nil {
			c.skip(el, err)
			continue
		}
		snap.Nodes = append(snap.Nodes, *n)
	}

	c.logger().Debug("capture: done", "slot", slot, "nodes", len(snap.Nodes), "elapsed", time.Since(start))
	event.Emit(c.Sink, event.Event{
		Kind:    event.Info,
		Outcome: event.Captured,
		Message: fmt.Sprintf("captured %d nodes", len(snap.Nodes)),
	})
	return snap, nil
}

func (c *Capturer) node(doc dom.Document, el dom.Element) (*snapshot.Node, error) {
	key, err := c.Tagger.EnsureKey(el)
	if err != nil {
		return nil, err
	}
	st, err := el.State()
	if err != nil {
		return nil, fmt.Errorf("capture: read state: %w", err)
	}

	id, _ := el.Attr("id")
	class, _ := el.Attr("class")
	n := &snapshot.Node{
		Key:         key,
		Tag:         el.Tag(),
		ID:          id,
		ClassName:   class,
		Rect:        signature.ElementRect(el),
		ComponentID: signature.ComponentInstanceID(c.Prober, el),
		ScrollTop:   st.ScrollTop,
		ScrollLeft:  st.ScrollLeft,
	}

	withCaret := false
	switch {
	case el.Tag() == "input":
		n.Value = snapshot.Ptr(st.Value)
		if dom.IsCheckable(el) {
			n.Checked = snapshot.Ptr(st.Checked)
		}
		withCaret = true
	case el.Tag() == "textarea":
		n.Value = snapshot.Ptr(st.Value)
		withCaret = true
	case el.Tag() == "select":
		n.SelectedIndex = snapshot.Ptr(st.SelectedIndex)
		n.Value = snapshot.Ptr(st.Value)
	case dom.IsEditable(el):
		n.InnerHTML = snapshot.Ptr(st.InnerHTML)
		withCaret = true
	}
	if v, ok := el.Attr(c.StateAttr); ok {
		n.DataState = snapshot.Ptr(v)
	}

	if withCaret {
		cp, err := caret.Encode(doc, el)
		if err != nil {
			return nil, err
		}
		n.Caret = cp
	}
	return n, nil
}

func (c *Capturer) skip(el dom.Element, err error) {
	key, _ := c.Tagger.Key(el)
	c.logger().Warn("capture: element skipped", "tag", el.Tag(), "key", key, "error", err)
	event.Emit(c.Sink, event.Event{
		Kind:    event.Warn,
		Outcome: event.CaptureError,
		Message: fmt.Sprintf("<%s> skipped: %v", el.Tag(), err),
		Key:     key,
	})
}

func (c *Capturer) logger() *slog.Logger {
	if c.Logger == nil {
		return slog.Default()
	}
	return c.Logger
}
