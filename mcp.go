package hotstate

import (
	"context"
	"fmt"
	"time"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/hazyhaar/hotstate/dom"
	"github.com/hazyhaar/hotstate/kit"
)

// DocumentSource returns the document the MCP tools operate on, typically
// the current page of a live browser.
type DocumentSource func(ctx context.Context) (dom.Document, error)

// DefaultRestoreTimeout bounds how long hotstate_restore waits for its pass.
const DefaultRestoreTimeout = 10 * time.Second

// RegisterMCP registers the hotstate tools on an MCP server.
func (e *Engine) RegisterMCP(srv *mcp.Server, docs DocumentSource) {
	e.registerCaptureTool(srv, docs)
	e.registerRestoreTool(srv, docs)
	e.registerClearTool(srv)
	e.registerInspectTool(srv, docs)
}

// inputSchema builds a JSON Schema object with type "object".
func inputSchema(properties map[string]any, required []string) map[string]any {
	s := map[string]any{
		"type":       "object",
		"properties": properties,
	}
	if len(required) > 0 {
		s["required"] = required
	}
	return s
}

var slotProperty = map[string]any{"type": "string", "description": "Snapshot slot (default: configured slot)"}

func (e *Engine) endpoint(name string, ep kit.Endpoint) kit.Endpoint {
	return kit.Logging(e.logger, name)(ep)
}

// --- capture ---

type slotRequest struct {
	Slot string `json:"slot,omitempty"`
}

type captureResponse struct {
	Slot  string `json:"slot"`
	ID    string `json:"id"`
	Nodes int    `json:"nodes"`
	Saved bool   `json:"saved"`
}

func (e *Engine) registerCaptureTool(srv *mcp.Server, docs DocumentSource) {
	tool := &mcp.Tool{
		Name:        "hotstate_capture",
		Description: "Capture the ephemeral UI state of the current page (values, carets, scroll, editable content) and save it under a slot.",
		InputSchema: inputSchema(map[string]any{"slot": slotProperty}, nil),
	}
	endpoint := func(ctx context.Context, req any) (any, error) {
		r := req.(*slotRequest)
		doc, err := docs(ctx)
		if err != nil {
			return nil, fmt.Errorf("document: %w", err)
		}
		snap, saved, err := e.Preserve(ctx, doc, r.Slot)
		if err != nil {
			return nil, err
		}
		return &captureResponse{Slot: snap.Slot, ID: snap.ID, Nodes: len(snap.Nodes), Saved: saved}, nil
	}
	kit.RegisterMCPTool(srv, tool, e.endpoint(tool.Name, endpoint), kit.DecodeJSON[slotRequest]())
}

// --- restore ---

type restoreRequest struct {
	Slot      string `json:"slot,omitempty"`
	TimeoutMS int    `json:"timeout_ms,omitempty"`
}

type restoreResponse struct {
	Slot     string `json:"slot"`
	Found    bool   `json:"found"`
	Nodes    int    `json:"nodes"`
	Restored int    `json:"restored"`
	Failed   int    `json:"failed"`
}

func (e *Engine) registerRestoreTool(srv *mcp.Server, docs DocumentSource) {
	tool := &mcp.Tool{
		Name:        "hotstate_restore",
		Description: "Restore the snapshot saved under a slot onto the current page and report how many nodes were restored or failed.",
		InputSchema: inputSchema(map[string]any{
			"slot":       slotProperty,
			"timeout_ms": map[string]any{"type": "integer", "description": "Max wait for the restore pass (default 10000)"},
		}, nil),
	}
	endpoint := func(ctx context.Context, req any) (any, error) {
		r := req.(*restoreRequest)
		doc, err := docs(ctx)
		if err != nil {
			return nil, fmt.Errorf("document: %w", err)
		}
		slot := e.slot(r.Slot)
		snap := e.Load(ctx, slot)
		pass := e.Restore(doc, snap)
		timeout := DefaultRestoreTimeout
		if r.TimeoutMS > 0 {
			timeout = time.Duration(r.TimeoutMS) * time.Millisecond
		}
		res, err := waitPass(ctx, pass, timeout)
		if err != nil {
			return nil, fmt.Errorf("restore pass: %w", err)
		}
		return &restoreResponse{
			Slot:     slot,
			Found:    snap != nil,
			Nodes:    pass.Nodes(),
			Restored: res.Restored,
			Failed:   res.Failed,
		}, nil
	}
	kit.RegisterMCPTool(srv, tool, e.endpoint(tool.Name, endpoint), kit.DecodeJSON[restoreRequest]())
}

// --- clear ---

type clearResponse struct {
	Slot    string `json:"slot"`
	Cleared bool   `json:"cleared"`
}

func (e *Engine) registerClearTool(srv *mcp.Server) {
	tool := &mcp.Tool{
		Name:        "hotstate_clear",
		Description: "Delete the snapshot saved under a slot.",
		InputSchema: inputSchema(map[string]any{"slot": slotProperty}, nil),
	}
	endpoint := func(ctx context.Context, req any) (any, error) {
		r := req.(*slotRequest)
		slot := e.slot(r.Slot)
		return &clearResponse{Slot: slot, Cleared: e.Clear(ctx, slot)}, nil
	}
	kit.RegisterMCPTool(srv, tool, e.endpoint(tool.Name, endpoint), kit.DecodeJSON[slotRequest]())
}

// --- inspect ---

type inspectResponse struct {
	Slot       string       `json:"slot"`
	SnapshotID string       `json:"snapshot_id,omitempty"`
	PageURL    string       `json:"page_url,omitempty"`
	Nodes      []Inspection `json:"nodes"`
	Slots      []string     `json:"slots,omitempty"`
}

func (e *Engine) registerInspectTool(srv *mcp.Server, docs DocumentSource) {
	tool := &mcp.Tool{
		Name:        "hotstate_inspect",
		Description: "Show, without changing the page, which element each node of a saved snapshot would be restored onto and with what confidence.",
		InputSchema: inputSchema(map[string]any{"slot": slotProperty}, nil),
	}
	endpoint := func(ctx context.Context, req any) (any, error) {
		r := req.(*slotRequest)
		slot := e.slot(r.Slot)
		resp := &inspectResponse{Slot: slot, Nodes: []Inspection{}}
		if slots, err := e.Slots(ctx); err == nil {
			resp.Slots = slots
		}
		snap := e.Load(ctx, slot)
		if snap == nil {
			return resp, nil
		}
		doc, err := docs(ctx)
		if err != nil {
			return nil, fmt.Errorf("document: %w", err)
		}
		resp.SnapshotID = snap.ID
		resp.PageURL = snap.PageURL
		resp.Nodes = e.Inspect(doc, snap)
		return resp, nil
	}
	kit.RegisterMCPTool(srv, tool, e.endpoint(tool.Name, endpoint), kit.DecodeJSON[slotRequest]())
}
