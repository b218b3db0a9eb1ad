package httpapi

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/custodia-labs/slackpanel/internal/core/domain"
	"github.com/custodia-labs/slackpanel/internal/core/ports/driven"
	"github.com/custodia-labs/slackpanel/internal/core/ports/driving"
	"github.com/custodia-labs/slackpanel/internal/core/services"
	"github.com/custodia-labs/slackpanel/internal/logger"
)

// maxBodySize bounds the trigger request body.
const maxBodySize = 1 << 20

// DefaultRunsLimit is the page size of GET /runs.
const DefaultRunsLimit = 20

// Options configures optional endpoints.
type Options struct {
	// Runs backs GET /runs. Nil disables it.
	Runs driven.RunStore

	// Gatherer backs GET /metrics. Nil disables it.
	Gatherer prometheus.Gatherer

	// Debug adds a stack trace to 500 responses.
	Debug bool
}

// Server is the HTTP trigger.
type Server struct {
	runner   driving.PipelineRunner
	runs     driven.RunStore
	gatherer prometheus.Gatherer
	debug    bool
	now      func() time.Time
}

// NewServer creates a server that dispatches runs to runner.
func NewServer(runner driving.PipelineRunner, opts Options) *Server {
	return &Server{
		runner:   runner,
		runs:     opts.Runs,
		gatherer: opts.Gatherer,
		debug:    opts.Debug,
		now:      time.Now,
	}
}

// Handler returns the routed handler.
func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)

	r.Get("/healthz", s.handleHealth)
	if s.gatherer != nil {
		r.Method(http.MethodGet, "/metrics", promhttp.HandlerFor(s.gatherer, promhttp.HandlerOpts{}))
	}
	if s.runs != nil {
		r.Get("/runs", s.handleListRuns)
		r.Get("/runs/{runID}", s.handleGetRun)
	}
	r.Post("/{pipeline}", s.handleRun)
	return r
}

// ListenAndServe serves on addr until ctx is cancelled, then shuts down gracefully.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("listening on %s", addr)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 30*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("shutdown: %w", err)
		}
		return nil
	}
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleRun(w http.ResponseWriter, r *http.Request) {
	pipeline := chi.URLParam(r, "pipeline")

	raw, err := requestParams(r)
	if err != nil {
		s.writeError(w, err, "")
		return
	}
	params, err := services.ParseParams(raw)
	if err != nil {
		s.writeError(w, err, "")
		return
	}

	// A run is not preemptible; a dropped caller must not abort it mid-range.
	report, err := s.runner.Run(context.WithoutCancel(r.Context()), pipeline, params)
	if err != nil {
		runID := ""
		if report != nil {
			runID = report.RunID
		}
		s.writeError(w, err, runID)
		return
	}
	writeJSON(w, http.StatusOK, report)
}

func (s *Server) handleListRuns(w http.ResponseWriter, r *http.Request) {
	limit := DefaultRunsLimit
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 1 {
			s.writeError(w, domain.NewValidationError("limit", "limit must be a positive integer, got %q", v), "")
			return
		}
		limit = n
	}
	runs, err := s.runs.ListRuns(r.Context(), limit)
	if err != nil {
		s.writeError(w, err, "")
		return
	}
	writeJSON(w, http.StatusOK, runs)
}

func (s *Server) handleGetRun(w http.ResponseWriter, r *http.Request) {
	run, err := s.runs.GetRun(r.Context(), chi.URLParam(r, "runID"))
	if err != nil {
		s.writeError(w, err, "")
		return
	}
	writeJSON(w, http.StatusOK, run)
}

// requestParams merges the JSON body with the query string. Body values win.
func requestParams(r *http.Request) (map[string]any, error) {
	params := map[string]any{}

	body, err := io.ReadAll(io.LimitReader(r.Body, maxBodySize))
	if err != nil {
		return nil, fmt.Errorf("read body: %w", err)
	}
	if len(bytes.TrimSpace(body)) > 0 {
		dec := json.NewDecoder(bytes.NewReader(body))
		dec.UseNumber()
		if err := dec.Decode(&params); err != nil {
			return nil, domain.NewValidationError("body", "request body must be a JSON object: %v", err)
		}
		if params == nil {
			params = map[string]any{}
		}
	}

	for key, values := range r.URL.Query() {
		if _, ok := params[key]; ok || len(values) == 0 {
			continue
		}
		params[key] = values[0]
	}
	return params, nil
}
