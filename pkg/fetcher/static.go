package fetcher

import (
	"context"
	"fmt"
	"mime"
	"net"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/gocolly/colly/v2"
	"golang.org/x/net/html/charset"

	"github.com/pranavnbapat/pagesense/internal/logger"
)

// StaticConfig holds configuration for the static fetcher.
type StaticConfig struct {
	// Timeout bounds the whole request, including body read.
	Timeout time.Duration
	// ConnectTimeout bounds the TCP dial of each request.
	ConnectTimeout time.Duration
	// MaxBodyBytes caps the streamed body. Exceeding it is an error,
	// not a truncation.
	MaxBodyBytes int64
	// Throttle, when set, enforces per-domain politeness delays.
	Throttle *Throttle
}

// DefaultStaticConfig returns sensible defaults.
func DefaultStaticConfig() StaticConfig {
	return StaticConfig{
		Timeout:        12 * time.Minute,
		ConnectTimeout: 30 * time.Second,
		MaxBodyBytes:   10 << 20,
	}
}

// StaticFetcher uses Colly for plain HTTP fetching with a byte cap.
type StaticFetcher struct {
	config StaticConfig
}

// NewStatic creates a new static fetcher.
func NewStatic(cfg StaticConfig) *StaticFetcher {
	if cfg.Timeout == 0 {
		cfg.Timeout = DefaultStaticConfig().Timeout
	}
	if cfg.ConnectTimeout == 0 {
		cfg.ConnectTimeout = DefaultStaticConfig().ConnectTimeout
	}
	if cfg.MaxBodyBytes <= 0 {
		cfg.MaxBodyBytes = DefaultStaticConfig().MaxBodyBytes
	}
	return &StaticFetcher{config: cfg}
}

// Fetch issues a GET for targetURL using the given header profile. It
// follows redirects, enforces the byte cap, and classifies the body as
// html, pdf, or unsupported.
func (f *StaticFetcher) Fetch(ctx context.Context, targetURL string, profile Profile) (Result, error) {
	parsed, err := url.Parse(targetURL)
	if err != nil {
		return Result{}, fmt.Errorf("invalid URL: %w", err)
	}

	userAgent := profile.ResolveUserAgent()
	logger.Debug("static fetch starting",
		"url", targetURL,
		"profile", profile.Name,
		"user_agent", userAgent)

	// Collector per request: no shared cookie or visit state between
	// extraction requests. Cap+1 so an over-cap body is detectable.
	c := colly.NewCollector(
		colly.UserAgent(userAgent),
		colly.MaxBodySize(int(f.config.MaxBodyBytes)+1),
		colly.AllowURLRevisit(),
		colly.IgnoreRobotsTxt(),
	)
	c.SetRequestTimeout(f.config.Timeout)
	c.WithTransport(&http.Transport{
		Proxy: http.ProxyFromEnvironment,
		DialContext: (&net.Dialer{
			Timeout:   f.config.ConnectTimeout,
			KeepAlive: 30 * time.Second,
		}).DialContext,
		TLSHandshakeTimeout: 10 * time.Second,
	})

	c.OnRequest(func(r *colly.Request) {
		for k, v := range profile.Headers {
			r.Headers.Set(k, v)
		}
		if profile.SendReferer {
			r.Headers.Set("Referer", fmt.Sprintf("%s://%s/", parsed.Scheme, parsed.Host))
		}
	})

	if f.config.Throttle != nil {
		if err := f.config.Throttle.Wait(ctx, parsed.Host); err != nil {
			return Result{}, err
		}
	}

	if profile.WarmUp {
		f.warmUp(c, parsed)
	}

	var (
		result    Result
		fetchErr  error
		statusErr *StatusError
	)

	c.OnResponse(func(r *colly.Response) {
		result.ResolvedURL = r.Request.URL.String()
		result.ContentType = r.Headers.Get("Content-Type")
		result.Body = r.Body
		logger.Debug("static fetch response received",
			"status", r.StatusCode,
			"content_type", result.ContentType,
			"body_size", len(r.Body))
	})

	c.OnError(func(r *colly.Response, err error) {
		if r != nil && r.StatusCode >= 400 {
			statusErr = &StatusError{Code: r.StatusCode, URL: targetURL}
			return
		}
		fetchErr = fmt.Errorf("fetch error: %w", err)
	})

	visitErr := c.Visit(targetURL)

	if f.config.Throttle != nil {
		// Stamp only after the real network hit.
		f.config.Throttle.Record(parsed.Host)
	}

	if statusErr != nil {
		return Result{}, statusErr
	}
	if fetchErr != nil {
		return Result{}, fetchErr
	}
	if visitErr != nil {
		return Result{}, fmt.Errorf("failed to visit URL: %w", visitErr)
	}

	if int64(len(result.Body)) > f.config.MaxBodyBytes {
		return Result{}, &SizeError{Limit: f.config.MaxBodyBytes}
	}

	if result.ResolvedURL == "" {
		result.ResolvedURL = targetURL
	}

	result.Class = Classify(result.ContentType, finalPath(result.ResolvedURL))
	if result.Class == ClassUnsupported {
		return Result{}, &UnsupportedTypeError{ContentType: result.ContentType}
	}

	result.Encoding = declaredCharset(result.ContentType)
	if result.Class == ClassHTML {
		f.decodeToUTF8(&result)
	}

	logger.Debug("static fetch complete",
		"url", targetURL,
		"resolved_url", result.ResolvedURL,
		"class", result.Class,
		"encoding", result.Encoding)
	return result, nil
}

// warmUp hits the site root to pick up cookies before the real fetch. The
// cloned collector shares the HTTP backend, so cookies carry over; its own
// errors are ignored.
func (f *StaticFetcher) warmUp(c *colly.Collector, parsed *url.URL) {
	root := fmt.Sprintf("%s://%s/", parsed.Scheme, parsed.Host)
	wc := c.Clone()
	if err := wc.Visit(root); err != nil {
		logger.Debug("warm-up request failed", "url", root, "error", err)
	}
}

// decodeToUTF8 converts an HTML body to UTF-8. Colly already re-encodes
// bodies with a declared charset, so sniffing only runs when the server
// declared nothing.
func (f *StaticFetcher) decodeToUTF8(result *Result) {
	if result.Encoding != "" {
		return
	}
	enc, name, _ := charset.DetermineEncoding(result.Body, "")
	result.Encoding = name
	if name == "utf-8" {
		return
	}
	decoded, err := enc.NewDecoder().Bytes(result.Body)
	if err != nil {
		logger.Debug("charset decode failed, keeping raw bytes",
			"encoding", name, "error", err)
		return
	}
	result.Body = decoded
}

// Classify maps a Content-Type header and final URL path to a content
// class. Servers that mislabel PDFs or HTML as octet-stream are common
// enough that the class leans on the path suffix as a tie-breaker.
func Classify(contentType, path string) ContentClass {
	ct := strings.ToLower(contentType)
	pathLower := strings.ToLower(path)

	switch {
	case strings.Contains(ct, "application/pdf"):
		return ClassPDF
	case strings.Contains(ct, "application/octet-stream") && strings.HasSuffix(pathLower, ".pdf"):
		return ClassPDF
	case strings.Contains(ct, "text/html"),
		strings.Contains(ct, "application/xhtml+xml"),
		strings.Contains(ct, "application/octet-stream"):
		// Bare octet-stream without a .pdf suffix is usually mislabeled HTML.
		return ClassHTML
	default:
		return ClassUnsupported
	}
}

func declaredCharset(contentType string) string {
	_, params, err := mime.ParseMediaType(contentType)
	if err != nil {
		return ""
	}
	return strings.ToLower(params["charset"])
}

func finalPath(resolvedURL string) string {
	u, err := url.Parse(resolvedURL)
	if err != nil {
		return ""
	}
	return u.Path
}
