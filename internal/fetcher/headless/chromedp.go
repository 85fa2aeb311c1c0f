// Package headless fetches client-rendered pages with a real browser.
//
// All three event sources render their listings with JavaScript, so every
// fetch goes through chromedp; there is no cheap non-JS probe path.
package headless

import (
	"context"
	"fmt"
	"time"

	"github.com/chromedp/cdproto/emulation"
	"github.com/chromedp/chromedp"

	"github.com/oharris/sydney-events-crawler/internal/events"
)

// Settle delay applied after body readiness so client-rendered cards finish
// mounting before the DOM is captured.
const settleDelay = 2 * time.Second

// Config controls the behavior of the headless browser.
type Config struct {
	UserAgent         string
	NavigationTimeout time.Duration
}

// Browser owns the Chrome exec allocator. One Browser is shared by all
// sources; each source's crawl opens its own exclusive Session.
type Browser struct {
	cfg         Config
	allocator   context.Context
	allocCancel context.CancelFunc
}

// New creates a Browser backed by a headless Chrome allocator.
func New(cfg Config) (*Browser, error) {
	if cfg.NavigationTimeout <= 0 {
		cfg.NavigationTimeout = 30 * time.Second
	}

	opts := append(chromedp.DefaultExecAllocatorOptions[:],
		chromedp.Flag("headless", "new"),
		chromedp.Flag("disable-gpu", true),
		chromedp.Flag("hide-scrollbars", true),
		chromedp.Flag("enable-automation", false),
	)
	allocCtx, allocCancel := chromedp.NewExecAllocator(context.Background(), opts...)

	return &Browser{
		cfg:         cfg,
		allocator:   allocCtx,
		allocCancel: allocCancel,
	}, nil
}

// Close cancels the allocator context, tearing down the browser process.
func (b *Browser) Close() {
	b.allocCancel()
}

// Open launches one tab with the identifying user-agent set, scoped to a
// single source's crawl. The returned session must be closed exactly once.
func (b *Browser) Open(ctx context.Context) (events.Session, error) {
	tabCtx, tabCancel := chromedp.NewContext(b.allocator)

	startCtx, cancel := context.WithTimeout(tabCtx, b.cfg.NavigationTimeout)
	defer cancel()
	stop := context.AfterFunc(ctx, cancel)
	defer stop()

	// Starting Chrome is lazy in chromedp; run the UA override now so a
	// launch failure surfaces here instead of on the first fetch.
	setup := chromedp.ActionFunc(func(cctx context.Context) error {
		if b.cfg.UserAgent == "" {
			return nil
		}
		if err := emulation.SetUserAgentOverride(b.cfg.UserAgent).Do(cctx); err != nil {
			return fmt.Errorf("set user-agent: %w", err)
		}
		return nil
	})
	if err := chromedp.Run(startCtx, setup); err != nil {
		tabCancel()
		return nil, fmt.Errorf("launch headless browser: %w", err)
	}

	return &session{tab: tabCtx, cancel: tabCancel, cfg: b.cfg}, nil
}

type session struct {
	tab    context.Context
	cancel context.CancelFunc
	cfg    Config
}

// Fetch navigates to url, waits for the document body (bounded by the
// navigation timeout), sleeps the settle delay, and returns the rendered
// outer HTML.
func (s *session) Fetch(ctx context.Context, url string) (string, error) {
	navCtx, cancel := context.WithTimeout(s.tab, s.cfg.NavigationTimeout)
	defer cancel()
	if deadline, ok := ctx.Deadline(); ok {
		var dcancel context.CancelFunc
		navCtx, dcancel = context.WithDeadline(navCtx, deadline)
		defer dcancel()
	}

	var html string
	actions := []chromedp.Action{
		chromedp.Navigate(url),
		chromedp.WaitReady("body", chromedp.ByQuery),
		chromedp.Sleep(settleDelay),
		chromedp.OuterHTML("html", &html, chromedp.ByQuery),
	}
	if err := chromedp.Run(navCtx, actions...); err != nil {
		return "", fmt.Errorf("chromedp run: %w", err)
	}
	return html, nil
}

// Close tears down the tab.
func (s *session) Close() {
	s.cancel()
}
