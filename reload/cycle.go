package reload

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/hazyhaar/hotstate"
	"github.com/hazyhaar/hotstate/dom"
)

// Page is a document that can be rebuilt from scratch.
type Page interface {
	// Document returns the current tree. After Reload it must return the
	// rebuilt one.
	Document(ctx context.Context) (dom.Document, error)
	Reload(ctx context.Context) error
}

// Cycle preserves, reloads and restores one page.
type Cycle struct {
	Engine *hotstate.Engine
	Page   Page
	// Slot defaults to the engine's configured slot.
	Slot string
	// Timeout bounds the wait for the restore pass. Default: 10s.
	Timeout time.Duration
	Logger  *slog.Logger
}

// Report is the outcome of one cycle.
type Report struct {
	Captured int             `json:"captured"`
	Saved    bool            `json:"saved"`
	Result   hotstate.Result `json:"result"`
	Elapsed  time.Duration   `json:"elapsed"`
}

// Run captures and saves the current state, reloads the page, then
// restores the slot and waits for the pass to finish. A failed save still
// reloads; the restore then applies whatever the slot held before.
func (c *Cycle) Run(ctx context.Context) (Report, error) {
	start := time.Now()
	var rep Report

	doc, err := c.Page.Document(ctx)
	if err != nil {
		return rep, fmt.Errorf("reload: document: %w", err)
	}
	snap, saved, err := c.Engine.Preserve(ctx, doc, c.Slot)
	if err != nil {
		return rep, fmt.Errorf("reload: preserve: %w", err)
	}
	rep.Captured, rep.Saved = len(snap.Nodes), saved

	if err := c.Page.Reload(ctx); err != nil {
		return rep, fmt.Errorf("reload: %w", err)
	}

	doc, err = c.Page.Document(ctx)
	if err != nil {
		return rep, fmt.Errorf("reload: document after reload: %w", err)
	}
	pass := c.Engine.Recover(ctx, doc, c.Slot)

	timeout := c.Timeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	wctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()
	res, err := pass.Wait(wctx)
	if err != nil {
		return rep, fmt.Errorf("reload: restore pass: %w", err)
	}
	rep.Result = res
	rep.Elapsed = time.Since(start)

	c.logger().Info("reload: state carried over",
		"captured", rep.Captured, "restored", res.Restored, "failed", res.Failed, "elapsed", rep.Elapsed)
	return rep, nil
}

func (c *Cycle) logger() *slog.Logger {
	if c.Logger == nil {
		return slog.Default()
	}
	return c.Logger
}
