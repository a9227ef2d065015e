package fetcher

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/chromedp/chromedp"

	"github.com/pranavnbapat/pagesense/internal/logger"
)

// RendererConfig holds configuration for the headless renderer.
type RendererConfig struct {
	UserAgent string
	// NavigationTimeout bounds page load end to end.
	NavigationTimeout time.Duration
	// SettleDelay is a short wait after the document is ready, giving
	// late XHR-driven content a chance to land.
	SettleDelay time.Duration
}

// DefaultRendererConfig returns sensible defaults.
func DefaultRendererConfig() RendererConfig {
	return RendererConfig{
		UserAgent:         desktopUserAgent,
		NavigationTimeout: 120 * time.Second,
		SettleDelay:       2 * time.Second,
	}
}

// Renderer drives a headless Chrome to load a page and capture the final
// URL and fully rendered HTML. One browser process is shared across
// requests: the exec allocator is created lazily on first use and each
// request gets its own browser context, closed on completion regardless
// of outcome.
type Renderer struct {
	config RendererConfig

	once      sync.Once
	allocCtx  context.Context
	cancelCtx context.CancelFunc
}

// NewRenderer creates a renderer. The browser itself is not launched
// until the first Render call.
func NewRenderer(cfg RendererConfig) *Renderer {
	if cfg.UserAgent == "" {
		cfg.UserAgent = DefaultRendererConfig().UserAgent
	}
	if cfg.NavigationTimeout == 0 {
		cfg.NavigationTimeout = DefaultRendererConfig().NavigationTimeout
	}
	if cfg.SettleDelay == 0 {
		cfg.SettleDelay = DefaultRendererConfig().SettleDelay
	}
	return &Renderer{config: cfg}
}

func (r *Renderer) allocator() context.Context {
	r.once.Do(func() {
		opts := append(chromedp.DefaultExecAllocatorOptions[:],
			chromedp.Flag("headless", true),
			chromedp.Flag("disable-gpu", true),
			chromedp.Flag("no-sandbox", true),
			chromedp.Flag("disable-dev-shm-usage", true),
			chromedp.Flag("disable-blink-features", "AutomationControlled"),
			chromedp.WindowSize(1920, 1080),
			chromedp.UserAgent(r.config.UserAgent),
		)
		// chromedp's default lookup may miss the binary
		if chromePath := findChromePath(); chromePath != "" {
			opts = append(opts, chromedp.ExecPath(chromePath))
		}
		r.allocCtx, r.cancelCtx = chromedp.NewExecAllocator(context.Background(), opts...)
		logger.Debug("browser allocator created",
			"user_agent", r.config.UserAgent,
			"navigation_timeout", r.config.NavigationTimeout)
	})
	return r.allocCtx
}

// Render navigates to targetURL, waits for the page to settle, and returns
// the rendered document. The body is always UTF-8 HTML.
func (r *Renderer) Render(ctx context.Context, targetURL string) (Result, error) {
	logger.Debug("headless render starting", "url", targetURL)

	// Browser context per request: isolated page, guaranteed teardown.
	browserCtx, cancelBrowser := chromedp.NewContext(r.allocator())
	defer cancelBrowser()

	timeout := r.config.NavigationTimeout
	timeoutCtx, cancelTimeout := context.WithTimeout(browserCtx, timeout)
	defer cancelTimeout()

	var (
		html     string
		resolved string
	)
	actions := []chromedp.Action{
		chromedp.Navigate(targetURL),
		// WaitVisible has a known infinite-polling bug; WaitReady is enough.
		chromedp.WaitReady("body"),
		chromedp.Sleep(r.config.SettleDelay),
		chromedp.Location(&resolved),
		chromedp.OuterHTML("html", &html),
	}

	if err := chromedp.Run(timeoutCtx, actions...); err != nil {
		if ctx.Err() != nil || strings.Contains(err.Error(), "deadline exceeded") {
			logger.Warn("browser navigation timeout", "url", targetURL)
		}
		return Result{}, &RenderError{URL: targetURL, Err: err}
	}

	if resolved == "" {
		resolved = targetURL
	}

	logger.Debug("headless render complete",
		"url", targetURL,
		"resolved_url", resolved,
		"html_size", len(html))

	return Result{
		ResolvedURL: resolved,
		Body:        []byte(html),
		Encoding:    "utf-8",
		ContentType: "text/html; charset=utf-8",
		Class:       ClassHTML,
		Rendered:    true,
	}, nil
}

// Close tears down the shared browser process. Safe to call when the
// browser was never launched.
func (r *Renderer) Close() error {
	if r.cancelCtx != nil {
		r.cancelCtx()
	}
	return nil
}
