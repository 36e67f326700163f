package hotstate

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/hazyhaar/hotstate/dom"
	"github.com/hazyhaar/hotstate/dom/memdom"
	"github.com/hazyhaar/hotstate/store"
)

var testImpl = &mcp.Implementation{Name: "hotstate-test", Version: "0.1.0"}

// page is a DocumentSource whose document the test swaps to simulate a
// reload.
type page struct {
	doc *memdom.Document
}

func (p *page) source(context.Context) (dom.Document, error) {
	if p.doc == nil {
		return nil, errors.New("no page loaded")
	}
	return p.doc, nil
}

func mcpSession(t *testing.T) (*Engine, *page, *mcp.ClientSession) {
	t.Helper()
	cfg := Config{}
	cfg.Restore.ReadyDelay = time.Millisecond
	cfg.Restore.CaretDelay = time.Millisecond
	e, err := New(cfg, WithStore(store.NewMemory()))
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { e.Close() })

	pg := &page{}
	srv := mcp.NewServer(testImpl, nil)
	e.RegisterMCP(srv, pg.source)

	serverT, clientT := mcp.NewInMemoryTransports()
	ctx := context.Background()
	go func() {
		_ = srv.Run(ctx, serverT)
	}()

	client := mcp.NewClient(testImpl, nil)
	session, err := client.Connect(ctx, clientT, nil)
	if err != nil {
		t.Fatalf("client connect: %v", err)
	}
	t.Cleanup(func() { session.Close() })
	return e, pg, session
}

func callTool(t *testing.T, session *mcp.ClientSession, name string, args any, out any) {
	t.Helper()
	result, err := session.CallTool(context.Background(), &mcp.CallToolParams{
		Name:      name,
		Arguments: args,
	})
	if err != nil {
		t.Fatalf("CallTool(%s): %v", name, err)
	}
	if err := result.GetError(); err != nil {
		t.Fatalf("CallTool(%s) tool error: %v", name, err)
	}
	if len(result.Content) == 0 {
		t.Fatalf("CallTool(%s): empty content", name)
	}
	tc, ok := result.Content[0].(*mcp.TextContent)
	if !ok {
		t.Fatalf("CallTool(%s): expected TextContent, got %T", name, result.Content[0])
	}
	if err := json.Unmarshal([]byte(tc.Text), out); err != nil {
		t.Fatalf("CallTool(%s): decode %q: %v", name, tc.Text, err)
	}
}

func TestMCP_ListTools(t *testing.T) {
	_, _, session := mcpSession(t)
	res, err := session.ListTools(context.Background(), nil)
	if err != nil {
		t.Fatal(err)
	}
	want := map[string]bool{"hotstate_capture": true, "hotstate_restore": true, "hotstate_clear": true, "hotstate_inspect": true}
	for _, tool := range res.Tools {
		delete(want, tool.Name)
	}
	if len(want) != 0 {
		t.Errorf("missing tools: %v", want)
	}
}

func TestMCP_CaptureInspectRestoreClear(t *testing.T) {
	_, pg, session := mcpSession(t)

	pg.doc = memdom.MustParse(`<input id="q" value=""><textarea class="notes"></textarea>`)
	pg.doc.ByID("q").SetValue("golang")

	var capt captureResponse
	callTool(t, session, "hotstate_capture", map[string]any{"slot": "search"}, &capt)
	if capt.Slot != "search" || capt.Nodes != 2 || !capt.Saved || capt.ID == "" {
		t.Fatalf("capture: got %+v", capt)
	}

	// Reload.
	pg.doc = memdom.MustParse(`<input id="q" value=""><textarea class="notes"></textarea>`)

	var ins inspectResponse
	callTool(t, session, "hotstate_inspect", map[string]any{"slot": "search"}, &ins)
	if ins.SnapshotID != capt.ID || len(ins.Nodes) != 2 {
		t.Fatalf("inspect: got %+v", ins)
	}
	if ins.Nodes[0].Method != "id" || !ins.Nodes[0].Accepted {
		t.Errorf("inspect q: got %+v", ins.Nodes[0])
	}
	if len(ins.Slots) != 1 || ins.Slots[0] != "search" {
		t.Errorf("inspect slots: got %v", ins.Slots)
	}

	var rst restoreResponse
	callTool(t, session, "hotstate_restore", map[string]any{"slot": "search"}, &rst)
	if !rst.Found || rst.Nodes != 2 || rst.Restored != 2 || rst.Failed != 0 {
		t.Fatalf("restore: got %+v", rst)
	}
	st, _ := pg.doc.ByID("q").State()
	if st.Value != "golang" {
		t.Errorf("value: got %q, want %q", st.Value, "golang")
	}

	var clr clearResponse
	callTool(t, session, "hotstate_clear", map[string]any{"slot": "search"}, &clr)
	if !clr.Cleared {
		t.Errorf("clear: got %+v", clr)
	}

	callTool(t, session, "hotstate_restore", map[string]any{"slot": "search"}, &rst)
	if rst.Found || rst.Nodes != 0 {
		t.Errorf("restore after clear: got %+v", rst)
	}
}

func TestMCP_NoDocumentIsToolError(t *testing.T) {
	_, _, session := mcpSession(t)
	result, err := session.CallTool(context.Background(), &mcp.CallToolParams{
		Name:      "hotstate_capture",
		Arguments: map[string]any{},
	})
	if err != nil {
		t.Fatal(err)
	}
	if !result.IsError {
		t.Error("expected a tool error without a page")
	}
}
