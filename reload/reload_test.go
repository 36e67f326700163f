package reload

import (
	"context"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/hazyhaar/hotstate"
	"github.com/hazyhaar/hotstate/dom"
	"github.com/hazyhaar/hotstate/dom/memdom"
	"github.com/hazyhaar/hotstate/store"
)

const app = `<input id="title" value=""><div contenteditable="true" class="body"><p>draft</p></div>`

// fakePage rebuilds its tree from the same markup on Reload, dropping all
// live state.
type fakePage struct {
	doc     *memdom.Document
	reloads int
}

func (p *fakePage) Document(context.Context) (dom.Document, error) { return p.doc, nil }

func (p *fakePage) Reload(context.Context) error {
	p.doc = memdom.MustParse(app)
	p.reloads++
	return nil
}

func testEngine(t *testing.T) *hotstate.Engine {
	t.Helper()
	cfg := hotstate.Config{}
	cfg.Restore.ReadyDelay = time.Millisecond
	cfg.Restore.CaretDelay = time.Millisecond
	e, err := hotstate.New(cfg, hotstate.WithStore(store.NewMemory()))
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { e.Close() })
	return e
}

func TestCycleCarriesStateAcrossReload(t *testing.T) {
	pg := &fakePage{doc: memdom.MustParse(app)}
	pg.doc.ByID("title").SetValue("Release notes")
	body := pg.doc.First(dom.AttrClause("class", "body"))
	body.SetInnerHTML("<p>draft, <b>edited</b></p>")

	c := &Cycle{Engine: testEngine(t), Page: pg}
	rep, err := c.Run(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if pg.reloads != 1 {
		t.Errorf("reloads: got %d, want 1", pg.reloads)
	}
	if rep.Captured != 2 || !rep.Saved || rep.Result.Restored != 2 || rep.Result.Failed != 0 {
		t.Errorf("report: got %+v", rep)
	}

	st, _ := pg.doc.ByID("title").State()
	if st.Value != "Release notes" {
		t.Errorf("title: got %q", st.Value)
	}
	inner, _ := pg.doc.First(dom.AttrClause("class", "body")).InnerHTML()
	if inner != "<p>draft, <b>edited</b></p>" {
		t.Errorf("body: got %q", inner)
	}
}

func TestWatcherDebouncesBurst(t *testing.T) {
	dir := t.TempDir()
	if err := os.Mkdir(filepath.Join(dir, "node_modules"), 0o755); err != nil {
		t.Fatal(err)
	}
	w, err := NewWatcher(Options{Dirs: []string{dir}, Debounce: 50 * time.Millisecond})
	if err != nil {
		t.Fatal(err)
	}
	defer w.Close()

	var mu sync.Mutex
	var calls [][]string
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		defer close(done)
		w.OnChange(ctx, func(_ context.Context, paths []string) error {
			mu.Lock()
			calls = append(calls, paths)
			mu.Unlock()
			return nil
		})
	}()

	// Let the loop start before writing.
	time.Sleep(20 * time.Millisecond)
	for i := 0; i < 5; i++ {
		os.WriteFile(filepath.Join(dir, "app.js"), []byte{byte('a' + i)}, 0o644)
		time.Sleep(5 * time.Millisecond)
	}
	os.WriteFile(filepath.Join(dir, "node_modules", "dep.js"), []byte("x"), 0o644)

	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		mu.Lock()
		n := len(calls)
		mu.Unlock()
		if n > 0 {
			break
		}
		time.Sleep(10 * time.Millisecond)
	}
	time.Sleep(150 * time.Millisecond)
	cancel()
	<-done

	mu.Lock()
	defer mu.Unlock()
	if len(calls) != 1 {
		t.Fatalf("calls: got %d, want 1 (%v)", len(calls), calls)
	}
	if len(calls[0]) != 1 || filepath.Base(calls[0][0]) != "app.js" {
		t.Errorf("paths: got %v, want only app.js", calls[0])
	}
	if s := w.Stats(); s.Reloads != 1 {
		t.Errorf("stats: got %+v", s)
	}
}

func TestNewWatcherErrors(t *testing.T) {
	if _, err := NewWatcher(Options{}); err == nil {
		t.Error("no dirs: want error")
	}
	if _, err := NewWatcher(Options{Dirs: []string{filepath.Join(t.TempDir(), "missing")}}); err == nil {
		t.Error("missing dir: want error")
	}
}

func TestIgnored(t *testing.T) {
	w := &Watcher{opts: Options{}}
	w.opts.defaults()
	sep := string(filepath.Separator)
	for _, tt := range []struct {
		path string
		want bool
	}{
		{sep + "src" + sep + "main.ts", false},
		{sep + "src" + sep + ".main.ts.swp", true},
		{sep + "src" + sep + "node_modules" + sep + "x.js", true},
		{sep + "src" + sep + ".git", true},
		{sep + "src" + sep + "file~", true},
	} {
		if got := w.ignored(tt.path); got != tt.want {
			t.Errorf("%s: got %v, want %v", tt.path, got, tt.want)
		}
	}
}
