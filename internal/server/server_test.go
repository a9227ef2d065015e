package server

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"

	"github.com/pranavnbapat/pagesense/pkg/extract"
)

type stubExtractor struct {
	lastURL string
	outcome extract.Outcome
	err     error
}

func (s *stubExtractor) Extract(_ context.Context, rawURL string) (extract.Outcome, error) {
	s.lastURL = rawURL
	if s.err != nil {
		return extract.Outcome{}, s.err
	}
	out := s.outcome
	if out.ResolvedURL == "" {
		out.ResolvedURL = rawURL
	}
	return out, nil
}

func newTestServer(stub *stubExtractor) http.Handler {
	return New(stub).Handler()
}

func decodeJSON(t *testing.T, rec *httptest.ResponseRecorder, v any) {
	t.Helper()
	if ct := rec.Header().Get("Content-Type"); !strings.HasPrefix(ct, "application/json") {
		t.Fatalf("Content-Type = %q, want application/json", ct)
	}
	if err := json.NewDecoder(rec.Body).Decode(v); err != nil {
		t.Fatalf("decoding response: %v", err)
	}
}

func TestExtractGET(t *testing.T) {
	stub := &stubExtractor{outcome: extract.Outcome{Text: "cleaned text"}}
	h := newTestServer(stub)

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/extract?url=https%3A%2F%2Fexample.com%2Fa", nil))

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200; body: %s", rec.Code, rec.Body)
	}
	var resp extractResponse
	decodeJSON(t, rec, &resp)
	if !resp.OK {
		t.Error("OK = false on success")
	}
	if resp.Text != "cleaned text" {
		t.Errorf("Text = %q", resp.Text)
	}
	if stub.lastURL != "https://example.com/a" {
		t.Errorf("extractor got URL %q", stub.lastURL)
	}
}

func TestExtractPOSTJSONBody(t *testing.T) {
	stub := &stubExtractor{outcome: extract.Outcome{Text: "body text"}}
	h := newTestServer(stub)

	req := httptest.NewRequest(http.MethodPost, "/api/extract",
		strings.NewReader(`{"url":"https://example.com/post"}`))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d; body: %s", rec.Code, rec.Body)
	}
	if stub.lastURL != "https://example.com/post" {
		t.Errorf("extractor got URL %q", stub.lastURL)
	}
}

func TestExtractPOSTFormBody(t *testing.T) {
	stub := &stubExtractor{outcome: extract.Outcome{Text: "body text"}}
	h := newTestServer(stub)

	form := url.Values{"url": {"https://example.com/form"}}
	req := httptest.NewRequest(http.MethodPost, "/api/extract", strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d; body: %s", rec.Code, rec.Body)
	}
	if stub.lastURL != "https://example.com/form" {
		t.Errorf("extractor got URL %q", stub.lastURL)
	}
}

func TestExtractMissingURL(t *testing.T) {
	stub := &stubExtractor{}
	h := newTestServer(stub)

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/extract", nil))

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", rec.Code)
	}
	if stub.lastURL != "" {
		t.Errorf("extractor called with %q for a missing parameter", stub.lastURL)
	}
}

func TestExtractErrorStatusMapping(t *testing.T) {
	tests := []struct {
		name       string
		kind       extract.Kind
		wantStatus int
	}{
		{"validation", extract.KindValidation, http.StatusUnprocessableEntity},
		{"access refused", extract.KindAccessRefused, http.StatusBadGateway},
		{"upstream http", extract.KindUpstreamHTTP, http.StatusBadGateway},
		{"network", extract.KindNetwork, http.StatusBadGateway},
		{"render failed", extract.KindRenderFailed, http.StatusBadGateway},
		{"timeout", extract.KindTimeout, http.StatusGatewayTimeout},
		{"internal", extract.KindInternal, http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			stub := &stubExtractor{err: &extract.Error{Kind: tt.kind, Err: errors.New("boom")}}
			h := newTestServer(stub)

			rec := httptest.NewRecorder()
			h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/extract?url=https%3A%2F%2Fexample.com", nil))

			if rec.Code != tt.wantStatus {
				t.Errorf("status = %d, want %d", rec.Code, tt.wantStatus)
			}
			var resp errorResponse
			decodeJSON(t, rec, &resp)
			if resp.OK {
				t.Error("OK = true on failure")
			}
			if resp.Kind != tt.kind.String() {
				t.Errorf("kind = %q, want %q", resp.Kind, tt.kind.String())
			}
			if resp.Error == "" {
				t.Error("empty error message")
			}
		})
	}
}

func TestExtractMethodNotAllowed(t *testing.T) {
	h := newTestServer(&stubExtractor{})

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodDelete, "/api/extract", nil))

	if rec.Code != http.StatusMethodNotAllowed {
		t.Fatalf("status = %d, want 405", rec.Code)
	}
}

func TestCORSHeadersOnAPI(t *testing.T) {
	h := newTestServer(&stubExtractor{outcome: extract.Outcome{Text: "x"}})

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/extract?url=https%3A%2F%2Fexample.com", nil))
	if got := rec.Header().Get("Access-Control-Allow-Origin"); got != "*" {
		t.Errorf("Access-Control-Allow-Origin = %q, want *", got)
	}

	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	if got := rec.Header().Get("Access-Control-Allow-Origin"); got != "" {
		t.Errorf("CORS header leaked onto non-API path: %q", got)
	}
}

func TestCORSPreflight(t *testing.T) {
	h := newTestServer(&stubExtractor{})

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodOptions, "/api/extract", nil))

	if rec.Code != http.StatusNoContent {
		t.Fatalf("status = %d, want 204", rec.Code)
	}
	if got := rec.Header().Get("Access-Control-Allow-Methods"); !strings.Contains(got, "POST") {
		t.Errorf("Access-Control-Allow-Methods = %q", got)
	}
}

func TestHealth(t *testing.T) {
	h := newTestServer(&stubExtractor{})

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/health", nil))

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
}

func TestIndexRendersForm(t *testing.T) {
	h := newTestServer(&stubExtractor{})

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	body := rec.Body.String()
	if !strings.Contains(body, "<form") || !strings.Contains(body, `name="url"`) {
		t.Errorf("index page missing form: %s", body)
	}
}

func TestIndexPOSTShowsResult(t *testing.T) {
	stub := &stubExtractor{outcome: extract.Outcome{Text: "the extracted text"}}
	h := newTestServer(stub)

	form := url.Values{"url": {"https://example.com/article"}}
	req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), "the extracted text") {
		t.Errorf("result text not rendered: %s", rec.Body.String())
	}
}

func TestUnknownPath404(t *testing.T) {
	h := newTestServer(&stubExtractor{})

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/nope", nil))

	if rec.Code != http.StatusNotFound {
		t.Fatalf("status = %d, want 404", rec.Code)
	}
}

func TestPanicRecovery(t *testing.T) {
	h := recoverPanics(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {
		panic("boom")
	}))

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/extract", nil))

	if rec.Code != http.StatusInternalServerError {
		t.Fatalf("status = %d, want 500", rec.Code)
	}
}
