// Package server exposes evaluations over HTTP.
package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/anuragparashar26/skillscreen/internal/pipeline"
	"github.com/anuragparashar26/skillscreen/internal/resumes"
	"github.com/anuragparashar26/skillscreen/internal/store"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
)

const (
	defaultAddr         = ":8080"
	defaultMaxBodyBytes = 64 << 20
	shutdownTimeout     = 30 * time.Second
)

// Evaluator runs one screening batch.
type Evaluator interface {
	Evaluate(ctx context.Context, jobDescription string, resumes []pipeline.ResumeInput) (*pipeline.Result, error)
}

type Config struct {
	Addr string
	// MaxUploadBytes limits a single resume; larger ones become placeholders.
	MaxUploadBytes int64
	// MaxBodyBytes limits the whole request body.
	MaxBodyBytes int64
}

type Server struct {
	httpServer *http.Server
	evaluator  Evaluator
	store      store.Store
	logger     *zap.Logger
	cfg        Config
}

// New wires the routes. gatherer may be nil, which disables /metrics.
func New(cfg Config, evaluator Evaluator, st store.Store, log *zap.Logger, gatherer prometheus.Gatherer) *Server {
	if cfg.Addr == "" {
		cfg.Addr = defaultAddr
	}
	if cfg.MaxUploadBytes <= 0 {
		cfg.MaxUploadBytes = resumes.DefaultMaxBytes
	}
	if cfg.MaxBodyBytes <= 0 {
		cfg.MaxBodyBytes = defaultMaxBodyBytes
	}
	if log == nil {
		log = zap.NewNop()
	}

	s := &Server{
		evaluator: evaluator,
		store:     st,
		logger:    log,
		cfg:       cfg,
	}

	mux := http.NewServeMux()
	mux.HandleFunc("POST /evaluations", s.handleCreateEvaluation)
	mux.HandleFunc("GET /evaluations", s.handleListEvaluations)
	mux.HandleFunc("GET /evaluations/{id}", s.handleGetEvaluation)
	mux.HandleFunc("DELETE /evaluations/{id}", s.handleDeleteEvaluation)
	mux.HandleFunc("GET /evaluations/{id}/export.csv", s.handleExportEvaluation)
	mux.HandleFunc("GET /health", s.handleHealth)
	if gatherer != nil {
		mux.Handle("GET /metrics", promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{}))
	}

	s.httpServer = &http.Server{
		Addr:              cfg.Addr,
		Handler:           s.withLogging(mux),
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       60 * time.Second,
		// A batch waits on the model for every resume.
		WriteTimeout: 15 * time.Minute,
		IdleTimeout:  60 * time.Second,
	}
	return s
}

// Handler returns the routed handler, mainly for tests.
func (s *Server) Handler() http.Handler {
	return s.httpServer.Handler
}

// Run serves until ctx is cancelled, then shuts down gracefully.
func (s *Server) Run(ctx context.Context) error {
	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("server listening", zap.String("addr", s.cfg.Addr))
		if err := s.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err, ok := <-errCh:
		if ok {
			return fmt.Errorf("serve %s: %w", s.cfg.Addr, err)
		}
		return nil
	case <-ctx.Done():
	}

	s.logger.Info("shutting down server")
	shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), shutdownTimeout)
	defer cancel()
	if err := s.httpServer.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server shutdown: %w", err)
	}
	return nil
}

func (s *Server) withLogging(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, r)
		s.logger.Info("http request",
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.Int("status", rec.status),
			zap.Duration("duration", time.Since(start)),
		)
	})
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(code int) {
	r.status = code
	r.ResponseWriter.WriteHeader(code)
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	s.jsonResponse(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) jsonResponse(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		s.logger.Warn("encoding json response failed", zap.Error(err))
	}
}

func (s *Server) errorResponse(w http.ResponseWriter, status int, message string) {
	s.jsonResponse(w, status, map[string]string{"error": message})
}

// HTTPStatus maps domain errors onto response codes.
func HTTPStatus(err error) int {
	switch {
	case errors.Is(err, pipeline.ErrNoJobDescription),
		errors.Is(err, pipeline.ErrNoResumes),
		errors.Is(err, pipeline.ErrMissingResumeID),
		errors.Is(err, pipeline.ErrDuplicateResumeID),
		errors.Is(err, errBadRequest):
		return http.StatusBadRequest
	case errors.Is(err, store.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}
