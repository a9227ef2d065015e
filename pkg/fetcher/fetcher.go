// Package fetcher retrieves remote documents with a byte cap, swappable
// header profiles, and a headless-browser fallback for pages that refuse
// static fetching or only materialize under JavaScript.
package fetcher

import (
	"fmt"

	"github.com/dustin/go-humanize"
)

// ContentClass is the coarse classification of a fetched body.
type ContentClass string

const (
	ClassHTML        ContentClass = "html"
	ClassPDF         ContentClass = "pdf"
	ClassUnsupported ContentClass = "unsupported"
)

// Result is the outcome of a successful fetch. It is consumed exactly once
// by the downstream extractor and never cached.
type Result struct {
	// ResolvedURL is the final URL after redirects.
	ResolvedURL string
	// Body holds the raw response bytes, bounded by the configured cap.
	Body []byte
	// Encoding is the declared or detected character encoding.
	Encoding string
	// ContentType is the raw Content-Type header value.
	ContentType string
	// Class routes the body to the right extractor.
	Class ContentClass
	// Rendered is true when Body came from the headless renderer.
	Rendered bool
}

// StatusError is an HTTP error status from the origin.
type StatusError struct {
	Code int
	URL  string
}

func (e *StatusError) Error() string {
	if e.AccessRefused() {
		return fmt.Sprintf("site refused access (HTTP %d): it may require a browser, login, or disallow automated fetches", e.Code)
	}
	return fmt.Sprintf("upstream HTTP error %d", e.Code)
}

// AccessRefused reports whether the status is one of the codes treated as a
// hard refusal: retrying with a different strategy will not help.
func (e *StatusError) AccessRefused() bool {
	switch e.Code {
	case 401, 403, 429, 451:
		return true
	}
	return false
}

// SizeError reports a streamed body that exceeded the configured cap. No
// partial content is retained.
type SizeError struct {
	Limit int64
}

func (e *SizeError) Error() string {
	return fmt.Sprintf("content too large (over %s)", humanize.Bytes(uint64(e.Limit)))
}

// UnsupportedTypeError reports a Content-Type the pipeline cannot extract
// text from.
type UnsupportedTypeError struct {
	ContentType string
}

func (e *UnsupportedTypeError) Error() string {
	ct := e.ContentType
	if ct == "" {
		ct = "unknown"
	}
	return fmt.Sprintf("unsupported content type: %s", ct)
}

// RenderError reports a headless-render failure (navigation timeout,
// browser crash). The escalation controller may swallow it when a static
// fetch already produced usable text.
type RenderError struct {
	URL string
	Err error
}

func (e *RenderError) Error() string {
	return fmt.Sprintf("headless render failed for %s: %v", e.URL, e.Err)
}

func (e *RenderError) Unwrap() error { return e.Err }
