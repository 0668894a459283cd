// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package browser renders JavaScript-heavy pages through a headless
// Chrome instance. It is the expensive web tier: the router only
// reaches for it when plain HTTP extraction comes back insufficient.
package browser

import (
	"context"
	"fmt"
	"time"

	"github.com/chromedp/chromedp"

	"github.com/okrent/forage/pkg/types"
)

// Renderer drives one Chrome process. One renderer per worker; the
// underlying browser context is not safe for concurrent navigations.
type Renderer struct {
	allocCtx    context.Context
	allocCancel context.CancelFunc
	cfg         types.BrowserConfig
}

// New starts a Chrome allocator with the pipeline's flags. The browser
// process itself launches lazily on first navigation.
func New(cfg types.BrowserConfig) *Renderer {
	if cfg.NavigateTimeout == 0 {
		cfg.NavigateTimeout = 45 * time.Second
	}
	if cfg.SettleDelay == 0 {
		cfg.SettleDelay = 2 * time.Second
	}
	opts := append(chromedp.DefaultExecAllocatorOptions[:],
		chromedp.Flag("headless", cfg.Headless),
		chromedp.Flag("disable-gpu", true),
		chromedp.Flag("no-sandbox", true),
	)
	allocCtx, allocCancel := chromedp.NewExecAllocator(context.Background(), opts...)
	return &Renderer{allocCtx: allocCtx, allocCancel: allocCancel, cfg: cfg}
}

// Render navigates to the URL, waits for the page to settle, and
// returns the hydrated DOM as HTML.
func (r *Renderer) Render(ctx context.Context, url string) (string, error) {
	browserCtx, cancel := chromedp.NewContext(r.allocCtx)
	defer cancel()

	runCtx, runCancel := context.WithTimeout(browserCtx, r.cfg.NavigateTimeout)
	defer runCancel()

	// Propagate caller cancellation into the chromedp run.
	go func() {
		select {
		case <-ctx.Done():
			runCancel()
		case <-runCtx.Done():
		}
	}()

	var html string
	err := chromedp.Run(runCtx,
		chromedp.Navigate(url),
		chromedp.WaitReady("body", chromedp.ByQuery),
		chromedp.Sleep(r.cfg.SettleDelay),
		chromedp.OuterHTML("html", &html, chromedp.ByQuery),
	)
	if err != nil {
		if ctx.Err() != nil {
			return "", ctx.Err()
		}
		return "", fmt.Errorf("rendering %s: %w", url, err)
	}
	return html, nil
}

// Close shuts down the allocator and any running browser.
func (r *Renderer) Close() {
	r.allocCancel()
}
