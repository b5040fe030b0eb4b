// Package api exposes the HTTP interface: health probes, Prometheus
// metrics, and batch submission.
package api

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/mediapulse/article-crawler/internal/crawler"
)

// Runner executes one batch of URLs; implemented by worker.Worker.
type Runner interface {
	Run(ctx context.Context, urls []string, maxConcurrent int) []crawler.ArticleRecord
}

// Server wires HTTP handlers to the batch runner and run store.
type Server struct {
	router chi.Router
	runner Runner
	runs   crawler.RunStore
	clock  crawler.Clock
	logger *zap.Logger
}

// NewServer constructs a Server with middleware and routes.
func NewServer(runner Runner, runs crawler.RunStore, clock crawler.Clock, logger *zap.Logger) *Server {
	if logger == nil {
		logger = zap.NewNop()
	}
	s := &Server{
		runner: runner,
		runs:   runs,
		clock:  clock,
		logger: logger,
	}

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)

	r.Get("/healthz", s.healthz)
	r.Get("/readyz", s.readyz)
	r.Method(http.MethodGet, "/metrics", promhttp.Handler())

	r.Route("/v1", func(r chi.Router) {
		r.Post("/batches", s.submitBatch)
		r.Get("/batches/{run_id}", s.getRun)
	})

	s.router = r
	return s
}

// ServeHTTP implements http.Handler.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

func (s *Server) healthz(w http.ResponseWriter, _ *http.Request) {
	s.writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) readyz(w http.ResponseWriter, _ *http.Request) {
	s.writeJSON(w, http.StatusOK, map[string]string{"status": "ready"})
}

type submitBatchRequest struct {
	URLs          []string `json:"urls"`
	MaxConcurrent int      `json:"max_concurrent"`
}

func (s *Server) submitBatch(w http.ResponseWriter, r *http.Request) {
	var req submitBatchRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	if len(req.URLs) == 0 {
		s.writeError(w, http.StatusBadRequest, "urls must not be empty")
		return
	}

	run := crawler.Run{
		ID:        uuid.NewString(),
		Status:    crawler.RunStatusRunning,
		StartedAt: s.clock.Now(),
		Counters:  crawler.RunCounters{URLs: len(req.URLs)},
	}
	if err := s.runs.CreateRun(r.Context(), run); err != nil {
		s.logger.Error("create run failed", zap.Error(err))
		s.writeError(w, http.StatusInternalServerError, "could not create run")
		return
	}

	// The run outlives the request, so it gets its own context.
	go s.executeRun(context.Background(), run, req)

	s.writeJSON(w, http.StatusAccepted, map[string]string{
		"run_id": run.ID,
		"status": string(run.Status),
	})
}

func (s *Server) executeRun(ctx context.Context, run crawler.Run, req submitBatchRequest) {
	records := s.runner.Run(ctx, req.URLs, req.MaxConcurrent)

	run.Counters.Succeeded = len(records)
	run.Counters.Failed = run.Counters.URLs - len(records)
	run.ArticleIDs = make([]int64, 0, len(records))
	for _, record := range records {
		run.ArticleIDs = append(run.ArticleIDs, record.ID)
	}
	finished := s.clock.Now()
	run.FinishedAt = &finished
	if len(records) == 0 {
		run.Status = crawler.RunStatusFailed
	} else {
		run.Status = crawler.RunStatusSucceeded
	}

	if err := s.runs.UpdateRun(ctx, run); err != nil {
		s.logger.Error("update run failed", zap.String("run_id", run.ID), zap.Error(err))
	}
}

func (s *Server) getRun(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "run_id")
	run, err := s.runs.GetRun(r.Context(), id)
	if err != nil {
		s.writeError(w, http.StatusNotFound, "run not found")
		return
	}
	s.writeJSON(w, http.StatusOK, run)
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		s.logger.Error("write response failed", zap.Error(err))
	}
}

func (s *Server) writeError(w http.ResponseWriter, status int, msg string) {
	s.writeJSON(w, status, map[string]string{"error": msg})
}
