package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/solatis/browscap/internal/telemetry"
	"github.com/solatis/browscap/internal/types"
)

// ErrorResponse is the JSON body of every failed request.
type ErrorResponse struct {
	Error     string `json:"error"`
	Message   string `json:"message"`
	RequestID string `json:"request_id,omitempty"`
}

// Router serves the HTTP lookup API. auth guards /v1 when non-nil.
func (s *LookupService) Router(timeout time.Duration, auth func(http.Handler) http.Handler) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID, middleware.RealIP, middleware.Recoverer)
	r.Use(telemetry.Middleware)

	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		if _, err := s.Metadata(); err != nil {
			w.WriteHeader(http.StatusServiceUnavailable)
			_, _ = w.Write([]byte("no dataset"))
			return
		}
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
	r.Handle("/metrics", promhttp.Handler())

	r.Route("/v1", func(r chi.Router) {
		if timeout > 0 {
			r.Use(middleware.Timeout(timeout))
		}
		if auth != nil {
			r.Use(auth)
		}
		r.Get("/browser", s.handleBrowser)
		r.Get("/version", s.handleVersion)
	})
	return r
}

// handleBrowser looks up ?ua=, falling back to the caller's own User-Agent.
// ?lower=false keeps property names in their original case.
func (s *LookupService) handleBrowser(w http.ResponseWriter, r *http.Request) {
	ua := r.URL.Query().Get("ua")
	if !r.URL.Query().Has("ua") {
		ua = r.UserAgent()
	}
	if ua == "" {
		s.writeError(w, r, fmt.Errorf("%w: user agent required", types.ErrInvalidArgument))
		return
	}

	b, err := s.Lookup(r.Context(), ua)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, b.Map(r.URL.Query().Get("lower") != "false"))
}

func (s *LookupService) handleVersion(w http.ResponseWriter, r *http.Request) {
	meta, err := s.Metadata()
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, versionMap(meta))
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

func (s *LookupService) writeError(w http.ResponseWriter, r *http.Request, err error) {
	code := httpStatus(err)
	msg := err.Error()
	if code == http.StatusInternalServerError {
		s.logger.Error("lookup failed", "error", err, "request_id", middleware.GetReqID(r.Context()))
		if !errors.Is(err, types.ErrNoMatchingRule) {
			msg = "lookup failed"
		}
	}
	writeJSON(w, code, ErrorResponse{
		Error:     http.StatusText(code),
		Message:   msg,
		RequestID: middleware.GetReqID(r.Context()),
	})
}
