// Package browser starts or attaches to Chrome through go-rod and opens
// the pages hotstate captures from and restores into.
package browser

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/launcher"
	"github.com/go-rod/rod/lib/proto"
	"github.com/go-rod/stealth"
)

// Config configures the browser.
type Config struct {
	// RemoteURL is the DevTools WebSocket URL of a running Chrome. Empty
	// launches a local one.
	RemoteURL string
	// Bin overrides the Chrome binary of a local launch.
	Bin string
	// Headful shows the window of a local launch.
	Headful bool
	// Stealth opens pages with the go-rod/stealth evasions.
	Stealth bool
	// NoSandbox is required when Chrome runs as root in a container.
	NoSandbox bool
	// Block lists resource types to fail (images, fonts, media,
	// stylesheets).
	Block []string
	// NavTimeout bounds navigation and load waits. Default: 30s.
	NavTimeout time.Duration

	Logger *slog.Logger
}

func (c *Config) defaults() {
	if c.NavTimeout <= 0 {
		c.NavTimeout = 30 * time.Second
	}
	if c.Logger == nil {
		c.Logger = slog.Default()
	}
}

// Browser owns one Chrome connection.
type Browser struct {
	cfg  Config
	mu   sync.Mutex
	rod  *rod.Browser
	lnch *launcher.Launcher
}

// Launch starts Chrome (or connects to RemoteURL).
func Launch(ctx context.Context, cfg Config) (*Browser, error) {
	cfg.defaults()
	log := cfg.Logger

	wsURL := cfg.RemoteURL
	var l *launcher.Launcher
	if wsURL != "" {
		log.Info("browser: connecting to remote", "url", wsURL)
	} else {
		l = launcher.New().Context(ctx).Headless(!cfg.Headful).NoSandbox(cfg.NoSandbox)
		if cfg.Bin != "" {
			l = l.Bin(cfg.Bin)
		}
		l = l.Set("disable-blink-features", "AutomationControlled")
		u, err := l.Launch()
		if err != nil {
			return nil, fmt.Errorf("browser: launch: %w", err)
		}
		wsURL = u
		log.Info("browser: launched local chrome", "url", wsURL, "headful", cfg.Headful)
	}

	b := rod.New().ControlURL(wsURL)
	if err := b.Connect(); err != nil {
		if l != nil {
			l.Cleanup()
		}
		return nil, fmt.Errorf("browser: connect: %w", err)
	}
	if err := b.IgnoreCertErrors(true); err != nil {
		log.Warn("browser: ignore cert errors failed", "error", err)
	}
	return &Browser{cfg: cfg, rod: b, lnch: l}, nil
}

// Rod returns the underlying handle.
func (b *Browser) Rod() *rod.Browser {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.rod
}

// Open creates a tab, navigates to pageURL and waits for the load event.
func (b *Browser) Open(ctx context.Context, pageURL string) (*rod.Page, error) {
	rb := b.Rod()
	if rb == nil {
		return nil, fmt.Errorf("browser: closed")
	}

	var page *rod.Page
	var err error
	if b.cfg.Stealth {
		page, err = stealth.Page(rb)
	} else {
		page, err = rb.Page(proto.TargetCreateTarget{URL: ""})
	}
	if err != nil {
		return nil, fmt.Errorf("browser: create tab: %w", err)
	}

	if len(b.cfg.Block) > 0 {
		applyResourceBlocking(page, b.cfg.Block)
	}

	navCtx, cancel := context.WithTimeout(ctx, b.cfg.NavTimeout)
	defer cancel()
	if err := page.Context(navCtx).Navigate(pageURL); err != nil {
		page.Close()
		return nil, fmt.Errorf("browser: navigate %s: %w", pageURL, err)
	}
	if err := page.Context(navCtx).WaitLoad(); err != nil {
		b.cfg.Logger.Warn("browser: wait load timeout", "url", pageURL, "error", err)
	}
	return page, nil
}

// Reload reloads page and waits for the load event.
func (b *Browser) Reload(ctx context.Context, page *rod.Page) error {
	navCtx, cancel := context.WithTimeout(ctx, b.cfg.NavTimeout)
	defer cancel()
	p := page.Context(navCtx)
	wait := p.WaitNavigation(proto.PageLifecycleEventNameLoad)
	if err := p.Reload(); err != nil {
		return fmt.Errorf("browser: reload: %w", err)
	}
	wait()
	return nil
}

// Close disconnects and, for a local launch, kills Chrome.
func (b *Browser) Close() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	var err error
	if b.rod != nil {
		err = b.rod.Close()
		b.rod = nil
	}
	if b.lnch != nil {
		b.lnch.Cleanup()
		b.lnch = nil
	}
	return err
}
