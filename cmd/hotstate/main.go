// Command hotstate keeps the interactive state of a live page across reloads.
//
// Usage:
//
//	hotstate -url http://localhost:3000 -watch src      # live-reload loop
//	hotstate -config hotstate.yaml -capture             # snapshot once, print JSON
//	hotstate -config hotstate.yaml -restore             # restore the slot once
//	hotstate -config hotstate.yaml -mcp                 # MCP tools over stdio
//	hotstate -config hotstate.yaml -serve :9470         # shared snapshot store
package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-rod/rod"
	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/hazyhaar/hotstate"
	"github.com/hazyhaar/hotstate/browser"
	"github.com/hazyhaar/hotstate/dom"
	"github.com/hazyhaar/hotstate/dom/roddom"
	"github.com/hazyhaar/hotstate/reload"
	"github.com/hazyhaar/hotstate/store/httpstore"
)

var version = "dev"

type options struct {
	configPath string
	url        string
	slot       string
	watch      string
	capture    bool
	restore    bool
	mcp        bool
	serve      string
}

func main() {
	var o options
	flag.StringVar(&o.configPath, "config", "", "path to hotstate.yaml config file")
	flag.StringVar(&o.url, "url", "", "page to open (overrides config url)")
	flag.StringVar(&o.slot, "slot", "", "snapshot slot (overrides config slot)")
	flag.StringVar(&o.watch, "watch", "", "comma-separated directories to watch for changes")
	flag.BoolVar(&o.capture, "capture", false, "capture the page once and print the snapshot")
	flag.BoolVar(&o.restore, "restore", false, "restore the slot into the page once")
	flag.BoolVar(&o.mcp, "mcp", false, "serve MCP tools over stdio")
	flag.StringVar(&o.serve, "serve", "", "serve the snapshot store over HTTP on this address")
	logLevel := flag.String("log-level", "info", "log level: debug, info, warn, error")
	flag.Parse()

	var level slog.Level
	switch *logLevel {
	case "debug":
		level = slog.LevelDebug
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		level = slog.LevelInfo
	}
	logger := slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{Level: level}))

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, logger, o); err != nil {
		logger.Error("hotstate: fatal", "error", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, logger *slog.Logger, o options) error {
	cfg, err := loadConfig(o)
	if err != nil {
		return err
	}

	if o.serve != "" {
		return runServe(ctx, logger, cfg, o.serve)
	}

	if cfg.URL == "" {
		fmt.Fprintln(os.Stderr, "usage: hotstate -url <url> [-watch dirs | -capture | -restore | -mcp] | -serve <addr>")
		os.Exit(1)
	}

	var opts []hotstate.Option
	opts = append(opts, hotstate.WithLogger(logger))
	if cfg.Component.React {
		opts = append(opts, hotstate.WithProber(roddom.ReactProber{}))
	}
	eng, err := hotstate.New(cfg, opts...)
	if err != nil {
		return err
	}
	defer eng.Close()

	if m := eng.Metrics(); m != nil {
		stopMetrics := serveMetrics(logger, cfg.Metrics.Addr, m.Handler())
		defer stopMetrics()
	}

	b, err := browser.Launch(ctx, browser.Config{
		RemoteURL:  cfg.Browser.Remote,
		Bin:        cfg.Browser.Bin,
		Headful:    cfg.Browser.Headful,
		Stealth:    cfg.Browser.Stealth,
		NoSandbox:  cfg.Browser.NoSandbox,
		Block:      cfg.Browser.Block,
		NavTimeout: cfg.Browser.Timeout,
		Logger:     logger,
	})
	if err != nil {
		return err
	}
	defer b.Close()

	page, err := b.Open(ctx, cfg.URL)
	if err != nil {
		return err
	}
	live := &livePage{browser: b, page: page}

	switch {
	case o.capture:
		return runCapture(ctx, logger, eng, live)
	case o.restore:
		return runRestore(ctx, eng, live)
	case o.mcp:
		return runMCP(ctx, eng, live)
	default:
		return runWatch(ctx, logger, eng, live, cfg)
	}
}

func loadConfig(o options) (hotstate.Config, error) {
	cfg := hotstate.DefaultConfig()
	if o.configPath != "" {
		c, err := hotstate.LoadConfigFile(o.configPath)
		if err != nil {
			return cfg, fmt.Errorf("load config: %w", err)
		}
		cfg = *c
	}
	if o.url != "" {
		cfg.URL = o.url
	}
	if o.slot != "" {
		cfg.Slot = o.slot
	}
	if o.watch != "" {
		cfg.Reload.Dirs = strings.Split(o.watch, ",")
	}
	return cfg, nil
}

// livePage adapts a browser tab to reload.Page and hotstate.DocumentSource.
type livePage struct {
	browser *browser.Browser
	page    *rod.Page
}

func (p *livePage) Document(ctx context.Context) (dom.Document, error) {
	return roddom.New(p.page.Context(ctx)), nil
}

func (p *livePage) Reload(ctx context.Context) error {
	return p.browser.Reload(ctx, p.page)
}

func runCapture(ctx context.Context, logger *slog.Logger, eng *hotstate.Engine, live *livePage) error {
	doc, err := live.Document(ctx)
	if err != nil {
		return err
	}
	snap, saved, err := eng.Preserve(ctx, doc, "")
	if err != nil {
		return fmt.Errorf("capture: %w", err)
	}
	if !saved {
		logger.Warn("hotstate: snapshot not saved", "slot", snap.Slot)
	}
	return printJSON(snap)
}

func runRestore(ctx context.Context, eng *hotstate.Engine, live *livePage) error {
	doc, err := live.Document(ctx)
	if err != nil {
		return err
	}
	wctx, cancel := context.WithTimeout(ctx, hotstate.DefaultRestoreTimeout)
	defer cancel()
	res, err := eng.Recover(ctx, doc, "").Wait(wctx)
	if err != nil {
		return fmt.Errorf("restore: %w", err)
	}
	return printJSON(res)
}

func runMCP(ctx context.Context, eng *hotstate.Engine, live *livePage) error {
	srv := mcp.NewServer(&mcp.Implementation{Name: "hotstate", Version: version}, nil)
	eng.RegisterMCP(srv, live.Document)
	return srv.Run(ctx, &mcp.StdioTransport{})
}

func runWatch(ctx context.Context, logger *slog.Logger, eng *hotstate.Engine, live *livePage, cfg hotstate.Config) error {
	if len(cfg.Reload.Dirs) == 0 {
		return fmt.Errorf("watch: no directory configured (use -watch or reload.dirs)")
	}
	w, err := reload.NewWatcher(reload.Options{
		Dirs:     cfg.Reload.Dirs,
		Ignore:   cfg.Reload.Ignore,
		Debounce: cfg.Reload.Debounce,
		Logger:   logger,
	})
	if err != nil {
		return err
	}
	defer w.Close()

	cycle := &reload.Cycle{Engine: eng, Page: live, Logger: logger}
	w.OnChange(ctx, func(ctx context.Context, paths []string) error {
		logger.Debug("hotstate: changed", "paths", paths)
		_, err := cycle.Run(ctx)
		return err
	})
	logger.Info("hotstate: watch stopped", "stats", w.Stats())
	return nil
}

func runServe(ctx context.Context, logger *slog.Logger, cfg hotstate.Config, addr string) error {
	if cfg.Store.Driver == "http" {
		return fmt.Errorf("serve: store driver http would proxy to itself")
	}
	s, err := hotstate.OpenStore(cfg.Store, logger)
	if err != nil {
		return err
	}
	if c, ok := s.(interface{ Close() error }); ok {
		defer c.Close()
	}

	srv := &http.Server{
		Addr:              addr,
		Handler:           httpstore.Handler(s, 0, logger),
		ReadHeaderTimeout: 10 * time.Second,
	}
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		srv.Shutdown(shutdownCtx)
	}()

	logger.Info("hotstate: serving store", "addr", addr, "driver", cfg.Store.Driver)
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("serve: %w", err)
	}
	return nil
}

func serveMetrics(logger *slog.Logger, addr string, h http.Handler) func() {
	r := chi.NewRouter()
	r.Handle("/metrics", h)
	srv := &http.Server{Addr: addr, Handler: r, ReadHeaderTimeout: 10 * time.Second}
	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("hotstate: metrics server", "error", err)
		}
	}()
	logger.Info("hotstate: metrics", "addr", addr)
	return func() { srv.Close() }
}

func printJSON(v any) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
