// Package browser provides a headless-Chrome transport strategy for
// feeds that cannot be reached through the public relays (upstreams that
// fingerprint non-browser clients or sit behind JS challenges).
package browser

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/chromedp/cdproto/runtime"
	"github.com/chromedp/chromedp"
	"go.uber.org/zap"

	"pardo/card"
)

// Fetcher owns a shared Chrome allocator; individual fetches run in
// short-lived tabs.
type Fetcher struct {
	allocator context.Context
	cancel    context.CancelFunc
	logger    *zap.SugaredLogger
}

// New prepares a headless allocator. Chrome itself is only launched on
// the first fetch.
func New(logger *zap.SugaredLogger) *Fetcher {
	opts := append(chromedp.DefaultExecAllocatorOptions[:],
		chromedp.Flag("headless", true),
		chromedp.Flag("disable-gpu", true),
		chromedp.Flag("mute-audio", true),
		chromedp.Flag("no-first-run", true),
		chromedp.Flag("no-default-browser-check", true),
		chromedp.Flag("disable-background-networking", true),
		chromedp.Flag("disable-extensions", true),
		chromedp.Flag("disable-sync", true),
	)
	allocCtx, cancel := chromedp.NewExecAllocator(context.Background(), opts...)
	return &Fetcher{allocator: allocCtx, cancel: cancel, logger: logger}
}

// Close tears down the allocator and any running Chrome.
func (f *Fetcher) Close() {
	if f.cancel != nil {
		f.cancel()
	}
}

// Fetch retrieves the raw document body by running fetch() inside a
// browser page, so the request carries a full browser fingerprint.
func (f *Fetcher) Fetch(ctx context.Context, target string) (string, error) {
	if strings.TrimSpace(target) == "" {
		return "", fmt.Errorf("browser fetch: empty target url")
	}
	taskCtx, cancelTab := chromedp.NewContext(f.allocator)
	defer cancelTab()

	if ctx != nil {
		var cancel context.CancelFunc
		taskCtx, cancel = context.WithCancel(taskCtx)
		go func() {
			select {
			case <-ctx.Done():
				cancel()
			case <-taskCtx.Done():
			}
		}()
		defer cancel()
	}
	taskCtx, cancelTimeout := context.WithTimeout(taskCtx, 25*time.Second)
	defer cancelTimeout()

	expr := fmt.Sprintf(
		`fetch(%q, {headers: {Accept: "application/xml,text/xml,*/*"}}).then(r => r.text())`,
		target)

	var body string
	err := chromedp.Run(taskCtx,
		chromedp.Navigate("about:blank"),
		chromedp.Evaluate(expr, &body, func(p *runtime.EvaluateParams) *runtime.EvaluateParams {
			return p.WithAwaitPromise(true)
		}),
	)
	if err != nil {
		return "", fmt.Errorf("browser fetch %s: %w", target, err)
	}
	if f.logger != nil {
		f.logger.Debugw("browser fetch done", "target", target, "bytes", len(body))
	}
	return body, nil
}

// Strategy wraps the browser fetch as a last-resort transport strategy.
func (f *Fetcher) Strategy() card.Strategy {
	return card.Strategy{Name: "browser", Do: f.Fetch}
}
