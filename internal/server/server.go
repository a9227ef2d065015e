// Package server exposes the extraction pipeline over HTTP: a small HTML
// form for manual use and a JSON API under /api/.
package server

import (
	"context"
	"embed"
	"encoding/json"
	"errors"
	"html/template"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/pranavnbapat/pagesense/internal/logger"
	"github.com/pranavnbapat/pagesense/pkg/extract"
)

//go:embed templates/index.html
var templateFS embed.FS

// Extractor is the part of the pipeline the server needs.
type Extractor interface {
	Extract(ctx context.Context, rawURL string) (extract.Outcome, error)
}

// Server handles HTTP requests for the extraction service.
type Server struct {
	extractor Extractor
	index     *template.Template
}

// New creates a Server around an extractor.
func New(extractor Extractor) *Server {
	return &Server{
		extractor: extractor,
		index:     template.Must(template.ParseFS(templateFS, "templates/index.html")),
	}
}

// Handler returns the routed handler with middleware applied.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/", s.handleIndex)
	mux.HandleFunc("/api/extract", s.handleExtract)
	mux.HandleFunc("/api/health", s.handleHealth)
	return recoverPanics(logRequests(cors(mux)))
}

type extractResponse struct {
	OK          bool   `json:"ok"`
	URL         string `json:"url"`
	ResolvedURL string `json:"resolved_url"`
	Text        string `json:"text"`
}

type errorResponse struct {
	OK    bool   `json:"ok"`
	Error string `json:"error"`
	Kind  string `json:"kind"`
}

// indexData feeds the form template. On POST the result or error is
// rendered inline under the form.
type indexData struct {
	URL    string
	Result *extractResponse
	Error  string
}

func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != "/" {
		http.NotFound(w, r)
		return
	}

	data := indexData{}
	if r.Method == http.MethodPost {
		data.URL = strings.TrimSpace(r.FormValue("url"))
		if data.URL == "" {
			data.Error = "missing url"
		} else {
			out, err := s.extractor.Extract(r.Context(), data.URL)
			if err != nil {
				data.Error = err.Error()
			} else {
				data.Result = &extractResponse{
					OK:          true,
					URL:         data.URL,
					ResolvedURL: out.ResolvedURL,
					Text:        out.Text,
				}
			}
		}
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := s.index.Execute(w, data); err != nil {
		logger.Error("failed to render index", "error", err)
	}
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleExtract(w http.ResponseWriter, r *http.Request) {
	var rawURL string
	switch r.Method {
	case http.MethodGet:
		rawURL = r.URL.Query().Get("url")
	case http.MethodPost:
		rawURL = requestURLParam(r)
	case http.MethodOptions:
		w.WriteHeader(http.StatusNoContent)
		return
	default:
		w.Header().Set("Allow", "GET, POST, OPTIONS")
		writeJSON(w, http.StatusMethodNotAllowed, errorResponse{Error: "method not allowed", Kind: "validation"})
		return
	}

	rawURL = strings.TrimSpace(rawURL)
	if rawURL == "" {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "missing url parameter", Kind: "validation"})
		return
	}

	out, err := s.extractor.Extract(r.Context(), rawURL)
	if err != nil {
		kind := extract.KindOf(err)
		writeJSON(w, statusFor(kind), errorResponse{Error: err.Error(), Kind: kind.String()})
		return
	}

	writeJSON(w, http.StatusOK, extractResponse{
		OK:          true,
		URL:         rawURL,
		ResolvedURL: out.ResolvedURL,
		Text:        out.Text,
	})
}

// requestURLParam reads the target URL from a POST body, accepting both
// JSON and form encoding.
func requestURLParam(r *http.Request) string {
	ct := r.Header.Get("Content-Type")
	if strings.HasPrefix(ct, "application/json") {
		var body struct {
			URL string `json:"url"`
		}
		data, err := io.ReadAll(io.LimitReader(r.Body, 1<<20))
		if err != nil {
			return ""
		}
		if err := json.Unmarshal(data, &body); err != nil {
			return ""
		}
		return body.URL
	}
	return r.FormValue("url")
}

// statusFor maps a failure kind to an HTTP status. Upstream problems are
// reported as bad-gateway so callers can tell them from caller mistakes.
func statusFor(kind extract.Kind) int {
	switch kind {
	case extract.KindValidation:
		return http.StatusUnprocessableEntity
	case extract.KindAccessRefused:
		return http.StatusBadGateway
	case extract.KindUpstreamHTTP, extract.KindNetwork, extract.KindRenderFailed:
		return http.StatusBadGateway
	case extract.KindTimeout:
		return http.StatusGatewayTimeout
	default:
		return http.StatusInternalServerError
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		logger.Error("failed to encode response", "error", err)
	}
}

// cors allows browser clients on other origins to call the API.
func cors(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if strings.HasPrefix(r.URL.Path, "/api/") {
			w.Header().Set("Access-Control-Allow-Origin", "*")
			w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
			w.Header().Set("Access-Control-Allow-Headers", "Content-Type")
		}
		next.ServeHTTP(w, r)
	})
}

func logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		next.ServeHTTP(w, r)
		logger.Debug("request handled",
			"method", r.Method,
			"path", r.URL.Path,
			"duration", time.Since(start))
	})
}

// recoverPanics turns handler panics into 500 responses instead of
// killing the connection.
func recoverPanics(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			if rec := recover(); rec != nil {
				logger.Error("handler panicked", "path", r.URL.Path, "panic", rec)
				writeJSON(w, http.StatusInternalServerError, errorResponse{Error: "internal server error", Kind: "internal"})
			}
		}()
		next.ServeHTTP(w, r)
	})
}

// Run serves until ctx is cancelled, then shuts down gracefully.
func (s *Server) Run(ctx context.Context, addr string, shutdownTimeout time.Duration) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("server listening", "addr", addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	logger.Info("shutting down server")
	return srv.Shutdown(shutdownCtx)
}
