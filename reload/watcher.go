// Package reload drives the live-reload loop: watch source directories,
// and on each debounced change preserve the page state, reload the page
// and restore the state into the rebuilt tree.
//
// Typical usage:
//
//	w, _ := reload.NewWatcher(reload.Options{Dirs: []string{"src"}, Debounce: 200*time.Millisecond})
//	defer w.Close()
//	w.OnChange(ctx, func(ctx context.Context, paths []string) error {
//		_, err := cycle.Run(ctx)
//		return err
//	})
package reload

import (
	"context"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync/atomic"
	"time"

	"github.com/fsnotify/fsnotify"
)

// Options tunes the watcher.
type Options struct {
	// Dirs are watched recursively.
	Dirs []string
	// Ignore holds base names or globs skipped while walking and when
	// events arrive. Default: .git, node_modules, vendor, .idea, .vscode,
	// *.swp, *.tmp, *~.
	Ignore []string
	// Debounce is the quiet period after the last event before the action
	// fires. Default: 200ms.
	Debounce time.Duration
	Logger   *slog.Logger
}

func (o *Options) defaults() {
	if len(o.Ignore) == 0 {
		o.Ignore = []string{".git", "node_modules", "vendor", ".idea", ".vscode"}
	}
	o.Ignore = append(o.Ignore, "*.swp", "*.tmp", "*~")
	if o.Debounce <= 0 {
		o.Debounce = 200 * time.Millisecond
	}
	if o.Logger == nil {
		o.Logger = slog.Default()
	}
}

// Watcher batches file system events and runs an action once per burst.
type Watcher struct {
	fs   *fsnotify.Watcher
	opts Options

	events  atomic.Int64
	errors  atomic.Int64
	reloads atomic.Int64
	totalNs atomic.Int64
}

// Stats are point-in-time counters.
type Stats struct {
	Events        int64         `json:"events"`
	Errors        int64         `json:"errors"`
	Reloads       int64         `json:"reloads"`
	AvgReloadTime time.Duration `json:"avg_reload_time"`
}

// NewWatcher registers every directory under opts.Dirs.
func NewWatcher(opts Options) (*Watcher, error) {
	opts.defaults()
	if len(opts.Dirs) == 0 {
		return nil, fmt.Errorf("reload: no directory to watch")
	}
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("reload: %w", err)
	}
	w := &Watcher{fs: fw, opts: opts}
	for _, dir := range opts.Dirs {
		if err := w.addRecursive(dir); err != nil {
			fw.Close()
			return nil, err
		}
	}
	return w, nil
}

// Close releases the underlying watches.
func (w *Watcher) Close() error { return w.fs.Close() }

// Stats returns the current counters.
func (w *Watcher) Stats() Stats {
	s := Stats{
		Events:  w.events.Load(),
		Errors:  w.errors.Load(),
		Reloads: w.reloads.Load(),
	}
	if s.Reloads > 0 {
		s.AvgReloadTime = time.Duration(w.totalNs.Load() / s.Reloads)
	}
	return s
}

func (w *Watcher) addRecursive(root string) error {
	return filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			if path == root {
				return fmt.Errorf("reload: watch %s: %w", root, err)
			}
			return nil
		}
		if !d.IsDir() {
			return nil
		}
		if path != root && w.ignored(path) {
			return filepath.SkipDir
		}
		if err := w.fs.Add(path); err != nil {
			return fmt.Errorf("reload: watch %s: %w", path, err)
		}
		return nil
	})
}

func (w *Watcher) ignored(path string) bool {
	base := filepath.Base(path)
	sep := string(filepath.Separator)
	for _, pattern := range w.opts.Ignore {
		if ok, _ := filepath.Match(pattern, base); ok {
			return true
		}
		if strings.Contains(path, sep+pattern+sep) {
			return true
		}
	}
	return false
}

// OnChange blocks until ctx ends. Each burst of events followed by a
// quiet Debounce window calls action once with the sorted, deduplicated
// paths. Events arriving while action runs start the next burst.
func (w *Watcher) OnChange(ctx context.Context, action func(ctx context.Context, paths []string) error) {
	log := w.opts.Logger
	pending := map[string]bool{}
	var timer *time.Timer
	var fire <-chan time.Time

	log.Info("reload: watching", "dirs", w.opts.Dirs, "debounce", w.opts.Debounce)
	for {
		select {
		case <-ctx.Done():
			if timer != nil {
				timer.Stop()
			}
			log.Info("reload: stopped")
			return

		case ev, ok := <-w.fs.Events:
			if !ok {
				return
			}
			if w.ignored(ev.Name) {
				continue
			}
			w.events.Add(1)
			if ev.Has(fsnotify.Create) {
				if info, err := os.Stat(ev.Name); err == nil && info.IsDir() {
					w.addRecursive(ev.Name)
				}
			}
			pending[ev.Name] = true
			if timer == nil {
				timer = time.NewTimer(w.opts.Debounce)
			} else {
				timer.Reset(w.opts.Debounce)
			}
			fire = timer.C

		case err, ok := <-w.fs.Errors:
			if !ok {
				return
			}
			w.errors.Add(1)
			log.Warn("reload: watcher error", "error", err)

		case <-fire:
			fire = nil
			paths := make([]string, 0, len(pending))
			for p := range pending {
				paths = append(paths, p)
			}
			sort.Strings(paths)
			clear(pending)
			w.run(ctx, action, paths)
		}
	}
}

func (w *Watcher) run(ctx context.Context, action func(context.Context, []string) error, paths []string) {
	log := w.opts.Logger
	log.Info("reload: change detected", "files", len(paths))
	start := time.Now()
	if err := action(ctx, paths); err != nil {
		w.errors.Add(1)
		log.Error("reload: cycle failed", "error", err)
		return
	}
	elapsed := time.Since(start)
	w.reloads.Add(1)
	w.totalNs.Add(int64(elapsed))
	log.Info("reload: cycle complete", "duration", elapsed)
}
