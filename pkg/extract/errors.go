package extract

import (
	"context"
	"errors"
	"net"

	"github.com/pranavnbapat/pagesense/pkg/fetcher"
	"github.com/pranavnbapat/pagesense/pkg/guard"
	"github.com/pranavnbapat/pagesense/pkg/pdftext"
)

// Kind is the closed set of failure classes an extraction can produce.
// Callers branch on Kind, never on message text.
type Kind int

const (
	// KindInternal is any failure not covered by a more specific kind.
	KindInternal Kind = iota
	// KindValidation covers bad input: scheme, host, private address,
	// oversized or unsupported content, and unusable documents.
	KindValidation
	// KindAccessRefused is an HTTP 401/403/429/451 from the origin.
	KindAccessRefused
	// KindUpstreamHTTP is any other HTTP error status from the origin.
	KindUpstreamHTTP
	// KindNetwork is a transport-level failure reaching the origin.
	KindNetwork
	// KindTimeout is a connect, read, or navigation timeout.
	KindTimeout
	// KindRenderFailed is a headless-render failure that was not
	// recoverable by returning earlier static text.
	KindRenderFailed
)

func (k Kind) String() string {
	switch k {
	case KindValidation:
		return "validation"
	case KindAccessRefused:
		return "access_refused"
	case KindUpstreamHTTP:
		return "upstream_http"
	case KindNetwork:
		return "network"
	case KindTimeout:
		return "timeout"
	case KindRenderFailed:
		return "render_failed"
	default:
		return "internal"
	}
}

// Error carries a failure kind plus the structured context that produced
// it. The user-facing message comes from the wrapped cause.
type Error struct {
	Kind       Kind
	StatusCode int // HTTP status when Kind is KindAccessRefused or KindUpstreamHTTP
	Err        error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return e.Err.Error()
	}
	return "extraction failed"
}

func (e *Error) Unwrap() error { return e.Err }

// KindOf returns the failure kind of err, or KindInternal when err does
// not originate from this package.
func KindOf(err error) Kind {
	var ee *Error
	if errors.As(err, &ee) {
		return ee.Kind
	}
	return KindInternal
}

// classify wraps an arbitrary pipeline error into an *Error with the
// right kind. Already-classified errors pass through unchanged.
func classify(err error) error {
	if err == nil {
		return nil
	}

	var ee *Error
	if errors.As(err, &ee) {
		return err
	}

	var ve *guard.ValidationError
	if errors.As(err, &ve) {
		return &Error{Kind: KindValidation, Err: err}
	}

	var se *fetcher.StatusError
	if errors.As(err, &se) {
		if se.AccessRefused() {
			return &Error{Kind: KindAccessRefused, StatusCode: se.Code, Err: err}
		}
		return &Error{Kind: KindUpstreamHTTP, StatusCode: se.Code, Err: err}
	}

	var sze *fetcher.SizeError
	if errors.As(err, &sze) {
		return &Error{Kind: KindValidation, Err: err}
	}

	var ute *fetcher.UnsupportedTypeError
	if errors.As(err, &ute) {
		return &Error{Kind: KindValidation, Err: err}
	}

	var re *fetcher.RenderError
	if errors.As(err, &re) {
		if isTimeout(re.Err) {
			return &Error{Kind: KindTimeout, Err: err}
		}
		return &Error{Kind: KindRenderFailed, Err: err}
	}

	if errors.Is(err, pdftext.ErrEncrypted) || errors.Is(err, pdftext.ErrNoText) || errors.Is(err, pdftext.ErrMalformed) {
		return &Error{Kind: KindValidation, Err: err}
	}

	if isTimeout(err) {
		return &Error{Kind: KindTimeout, Err: err}
	}

	var netErr net.Error
	if errors.As(err, &netErr) {
		return &Error{Kind: KindNetwork, Err: err}
	}

	return &Error{Kind: KindInternal, Err: err}
}

func isTimeout(err error) bool {
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var netErr net.Error
	return errors.As(err, &netErr) && netErr.Timeout()
}
