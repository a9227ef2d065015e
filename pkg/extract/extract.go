// Package extract orchestrates the fetch-and-clean pipeline: validate the
// target, escalate through fetch strategies, and route the body to the
// PDF or HTML text extractor.
package extract

import (
	"context"
	"errors"
	"time"

	"github.com/pranavnbapat/pagesense/internal/logger"
	"github.com/pranavnbapat/pagesense/pkg/cleaner"
	"github.com/pranavnbapat/pagesense/pkg/fetcher"
	"github.com/pranavnbapat/pagesense/pkg/guard"
	"github.com/pranavnbapat/pagesense/pkg/pdftext"
)

// StaticFetcher fetches a URL over plain HTTP with a header profile.
type StaticFetcher interface {
	Fetch(ctx context.Context, url string, profile fetcher.Profile) (fetcher.Result, error)
}

// Renderer fetches a URL through a headless browser.
type Renderer interface {
	Render(ctx context.Context, url string) (fetcher.Result, error)
	Close() error
}

// Config holds the deployment knobs of the pipeline. All values have
// working defaults; none are hard-coded at call sites.
type Config struct {
	// MaxBodyBytes caps any fetched body.
	MaxBodyBytes int64
	// FetchTimeout bounds each static fetch attempt end to end.
	FetchTimeout time.Duration
	// ConnectTimeout bounds TCP dialing within a static fetch.
	ConnectTimeout time.Duration
	// NavigationTimeout bounds a headless page load.
	NavigationTimeout time.Duration
	// SettleDelay waits after document-ready during rendering.
	SettleDelay time.Duration
	// MinTextChars is the threshold below which a cleaned page is
	// treated as likely JavaScript-rendered.
	MinTextChars int
	// Polite enables per-domain throttling and warm-up requests.
	Polite bool
	// Throttle band overrides for polite mode; zero values keep the
	// fetcher defaults.
	ThrottleMinGap      time.Duration
	ThrottleMaxGap      time.Duration
	ThrottlePreDelayMin time.Duration
	ThrottlePreDelayMax time.Duration
}

// DefaultConfig returns sensible defaults.
func DefaultConfig() Config {
	return Config{
		MaxBodyBytes:      10 << 20,
		FetchTimeout:      12 * time.Minute,
		ConnectTimeout:    30 * time.Second,
		NavigationTimeout: 120 * time.Second,
		SettleDelay:       2 * time.Second,
		MinTextChars:      500,
	}
}

// Outcome is the terminal value of a successful extraction.
type Outcome struct {
	ResolvedURL string
	Text        string
}

// Extractor runs the whole pipeline. It is safe for concurrent use; the
// shared state is the throttle map and the lazily started browser, both
// of which synchronize internally.
type Extractor struct {
	config   Config
	static   StaticFetcher
	renderer Renderer
	cleaner  *cleaner.Cleaner
}

// New creates an Extractor with the default fetcher and renderer.
func New(cfg Config) *Extractor {
	def := DefaultConfig()
	if cfg.MaxBodyBytes <= 0 {
		cfg.MaxBodyBytes = def.MaxBodyBytes
	}
	if cfg.FetchTimeout == 0 {
		cfg.FetchTimeout = def.FetchTimeout
	}
	if cfg.ConnectTimeout == 0 {
		cfg.ConnectTimeout = def.ConnectTimeout
	}
	if cfg.NavigationTimeout == 0 {
		cfg.NavigationTimeout = def.NavigationTimeout
	}
	if cfg.SettleDelay == 0 {
		cfg.SettleDelay = def.SettleDelay
	}
	if cfg.MinTextChars <= 0 {
		cfg.MinTextChars = def.MinTextChars
	}

	staticCfg := fetcher.StaticConfig{
		Timeout:        cfg.FetchTimeout,
		ConnectTimeout: cfg.ConnectTimeout,
		MaxBodyBytes:   cfg.MaxBodyBytes,
	}
	if cfg.Polite {
		th := fetcher.NewThrottle()
		if cfg.ThrottleMinGap > 0 {
			th.MinGap = cfg.ThrottleMinGap
		}
		if cfg.ThrottleMaxGap > 0 {
			th.MaxGap = cfg.ThrottleMaxGap
		}
		if cfg.ThrottlePreDelayMin > 0 {
			th.PreDelayMin = cfg.ThrottlePreDelayMin
		}
		if cfg.ThrottlePreDelayMax > 0 {
			th.PreDelayMax = cfg.ThrottlePreDelayMax
		}
		staticCfg.Throttle = th
	}

	return &Extractor{
		config: cfg,
		static: fetcher.NewStatic(staticCfg),
		renderer: fetcher.NewRenderer(fetcher.RendererConfig{
			NavigationTimeout: cfg.NavigationTimeout,
			SettleDelay:       cfg.SettleDelay,
		}),
		cleaner: cleaner.New(),
	}
}

// NewWithComponents creates an Extractor with injected pipeline parts.
func NewWithComponents(cfg Config, static StaticFetcher, renderer Renderer) *Extractor {
	e := New(cfg)
	if static != nil {
		e.static = static
	}
	if renderer != nil {
		e.renderer = renderer
	}
	return e
}

// Close releases the shared browser process, if one was started.
func (e *Extractor) Close() error {
	if e.renderer != nil {
		return e.renderer.Close()
	}
	return nil
}

// Extract fetches rawURL and returns its resolved URL plus cleaned text,
// or a kind-classified error. No network call happens before validation
// passes.
func (e *Extractor) Extract(ctx context.Context, rawURL string) (Outcome, error) {
	parsed, err := guard.Validate(rawURL)
	if err != nil {
		return Outcome{}, classify(err)
	}

	result, err := e.fetchWithEscalation(ctx, parsed.String())
	if err != nil {
		return Outcome{}, classify(err)
	}

	if result.Class == fetcher.ClassPDF {
		text, err := pdftext.Extract(result.Body)
		if err != nil {
			return Outcome{}, classify(err)
		}
		logger.Info("extracted PDF text",
			"url", rawURL,
			"resolved_url", result.ResolvedURL,
			"chars", len(text))
		return Outcome{ResolvedURL: result.ResolvedURL, Text: text}, nil
	}

	text, err := e.cleaner.Clean(string(result.Body))
	if err != nil {
		return Outcome{}, classify(err)
	}

	// A nearly empty page after cleaning usually means the content only
	// materializes under JavaScript. Render once, never more.
	if len(text) < e.config.MinTextChars && !result.Rendered {
		rendered, renderErr := e.renderer.Render(ctx, result.ResolvedURL)
		if renderErr != nil {
			// Keep whatever text the static fetch produced.
			logger.Warn("render fallback failed, keeping static text",
				"url", rawURL, "error", renderErr)
			return Outcome{ResolvedURL: result.ResolvedURL, Text: text}, nil
		}
		if renderedText, cleanErr := e.cleaner.Clean(string(rendered.Body)); cleanErr == nil {
			logger.Debug("render fallback improved text",
				"url", rawURL,
				"static_chars", len(text),
				"rendered_chars", len(renderedText))
			return Outcome{ResolvedURL: rendered.ResolvedURL, Text: renderedText}, nil
		}
		return Outcome{ResolvedURL: result.ResolvedURL, Text: text}, nil
	}

	logger.Info("extracted page text",
		"url", rawURL,
		"resolved_url", result.ResolvedURL,
		"chars", len(text))
	return Outcome{ResolvedURL: result.ResolvedURL, Text: text}, nil
}

// attemptOutcome tags the result of one fetch strategy.
type attemptOutcome int

const (
	attemptRetryable attemptOutcome = iota
	attemptTerminal
)

// classifyAttempt decides whether a failed strategy ends the chain or the
// next strategy should run. Access-refused statuses are terminal: the
// origin made a decision no stronger fetch strategy will reverse.
// Validation-class failures (size cap, unsupported type) are terminal for
// the same reason. Everything else is worth escalating.
func classifyAttempt(err error) attemptOutcome {
	var se *fetcher.StatusError
	if errors.As(err, &se) && se.AccessRefused() {
		return attemptTerminal
	}
	var sze *fetcher.SizeError
	if errors.As(err, &sze) {
		return attemptTerminal
	}
	var ute *fetcher.UnsupportedTypeError
	if errors.As(err, &ute) {
		return attemptTerminal
	}
	return attemptRetryable
}

// fetchWithEscalation walks the ordered strategy list: plain headers,
// browser-like headers, a mobile client, then a full headless render.
func (e *Extractor) fetchWithEscalation(ctx context.Context, targetURL string) (fetcher.Result, error) {
	profiles := []fetcher.Profile{
		fetcher.PlainProfile(),
		fetcher.BrowserProfile(e.config.Polite),
		fetcher.MobileProfile(),
	}

	for _, profile := range profiles {
		result, err := e.static.Fetch(ctx, targetURL, profile)
		if err == nil {
			return result, nil
		}
		if classifyAttempt(err) == attemptTerminal {
			return fetcher.Result{}, err
		}
		logger.Debug("fetch attempt failed, escalating",
			"url", targetURL,
			"profile", profile.Name,
			"error", err)
	}

	result, err := e.renderer.Render(ctx, targetURL)
	if err != nil {
		return fetcher.Result{}, err
	}
	return result, nil
}
