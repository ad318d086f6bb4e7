// Package browser manages headless Chrome for the render and probe phases:
// launch, stealth page creation, resource blocking, and guaranteed teardown.
package browser

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/launcher"
	"github.com/go-rod/rod/lib/proto"
	"github.com/go-rod/stealth"
)

// Config configures a browser session.
type Config struct {
	// RemoteURL is the WebSocket URL of an external Chrome instance.
	// Empty = launch a local Chrome via launcher.
	RemoteURL string `yaml:"remote_url"`

	// NavigateTimeout bounds page navigation plus load. Default: 30s.
	NavigateTimeout time.Duration `yaml:"navigate_timeout"`

	// ResourceBlocking lists resource types to block (images, fonts, media).
	// Blocking cuts load time; detection does not depend on these resources.
	ResourceBlocking []string `yaml:"resource_blocking"`

	Logger *slog.Logger `yaml:"-"`
}

func (c *Config) defaults() {
	if c.NavigateTimeout <= 0 {
		c.NavigateTimeout = 30 * time.Second
	}
	if c.ResourceBlocking == nil {
		c.ResourceBlocking = []string{"images", "fonts", "media"}
	}
	if c.Logger == nil {
		c.Logger = slog.Default()
	}
}

// Session owns one Chrome process for the duration of one render or probe
// operation. Callers must Close it on every exit path.
type Session struct {
	cfg     Config
	browser *rod.Browser
	lnch    *launcher.Launcher
}

// Open launches Chrome (or connects to a remote instance) and returns a
// live session.
func Open(ctx context.Context, cfg Config) (*Session, error) {
	cfg.defaults()
	log := cfg.Logger

	wsURL := cfg.RemoteURL
	s := &Session{cfg: cfg}

	if wsURL == "" {
		l := launcher.New().
			Headless(true).
			Set("disable-blink-features", "AutomationControlled")
		u, err := l.Launch()
		if err != nil {
			return nil, fmt.Errorf("browser: launch: %w", err)
		}
		wsURL = u
		s.lnch = l
		log.Debug("browser: launched local chrome", "url", wsURL)
	} else {
		log.Debug("browser: connecting to remote", "url", wsURL)
	}

	b := rod.New().Context(ctx).ControlURL(wsURL)
	if err := b.Connect(); err != nil {
		s.cleanup()
		return nil, fmt.Errorf("browser: connect: %w", err)
	}
	s.browser = b

	if err := b.IgnoreCertErrors(true); err != nil {
		log.Warn("browser: ignore cert errors failed", "error", err)
	}
	return s, nil
}

// BlankPage creates a stealth page with resource blocking applied but does
// not navigate it, so callers can subscribe to network events first. The
// page is closed by Session.Close; callers that finish early may close it
// themselves.
func (s *Session) BlankPage(ctx context.Context) (*rod.Page, error) {
	page, err := stealth.Page(s.browser)
	if err != nil {
		return nil, fmt.Errorf("browser: create page: %w", err)
	}

	if len(s.cfg.ResourceBlocking) > 0 {
		if err := applyResourceBlocking(page, s.cfg.ResourceBlocking); err != nil {
			s.cfg.Logger.Warn("browser: resource blocking failed", "error", err)
		}
	}
	return page.Context(ctx), nil
}

// Navigate drives the page to pageURL and waits for load, bounded by the
// configured timeout.
func (s *Session) Navigate(ctx context.Context, page *rod.Page, pageURL string) error {
	navCtx, cancel := context.WithTimeout(ctx, s.cfg.NavigateTimeout)
	defer cancel()

	if err := page.Context(navCtx).Navigate(pageURL); err != nil {
		return fmt.Errorf("browser: navigate %s: %w", pageURL, err)
	}
	if err := page.Context(navCtx).WaitLoad(); err != nil {
		// A slow page is still inspectable with whatever loaded.
		s.cfg.Logger.Warn("browser: wait load timeout", "url", pageURL, "error", err)
	}
	return nil
}

// NewPage is BlankPage followed by Navigate.
func (s *Session) NewPage(ctx context.Context, pageURL string) (*rod.Page, error) {
	page, err := s.BlankPage(ctx)
	if err != nil {
		return nil, err
	}
	if err := s.Navigate(ctx, page, pageURL); err != nil {
		page.Close()
		return nil, err
	}
	return page, nil
}

// Close shuts down Chrome. Safe to call more than once.
func (s *Session) Close() {
	s.cleanup()
}

func (s *Session) cleanup() {
	if s.browser != nil {
		s.browser.Close()
		s.browser = nil
	}
	if s.lnch != nil {
		s.lnch.Cleanup()
		s.lnch = nil
	}
}

// applyResourceBlocking sets up request interception to fail requests for
// the configured resource types.
func applyResourceBlocking(page *rod.Page, types []string) error {
	blockSet := make(map[string]bool, len(types))
	for _, t := range types {
		blockSet[strings.ToLower(t)] = true
	}

	router := page.HijackRequests()
	router.MustAdd("*", func(ctx *rod.Hijack) {
		if shouldBlock(blockSet, string(ctx.Request.Type())) {
			ctx.Response.Fail(proto.NetworkErrorReasonBlockedByClient)
			return
		}
		ctx.ContinueRequest(&proto.FetchContinueRequest{})
	})
	go router.Run()
	return nil
}

func shouldBlock(blockSet map[string]bool, resType string) bool {
	lower := strings.ToLower(resType)
	switch lower {
	case "image":
		return blockSet["images"]
	case "font":
		return blockSet["fonts"]
	case "media":
		return blockSet["media"]
	case "stylesheet":
		return blockSet["stylesheets"]
	}
	return blockSet[lower]
}
