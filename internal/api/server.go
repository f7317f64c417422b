// Package api exposes health, metrics and job endpoints over HTTP.
package api

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	apperrors "citizenship-adjudicator/internal/common/errors"
	"citizenship-adjudicator/internal/common/logger"
	"citizenship-adjudicator/internal/jobs"
)

const maxBodyBytes = 4 << 20

// JobService is the part of the orchestrator the HTTP surface needs.
type JobService interface {
	Enqueue(ctx context.Context, caseIDs []string) (string, error)
	Status(jobID string) (jobs.JobView, error)
	Stop(jobID string) error
	List() []jobs.JobView
}

// ReadinessCheck reports whether the backing stores are reachable.
type ReadinessCheck func(ctx context.Context) error

type Server struct {
	jobs     JobService
	ready    ReadinessCheck
	errors   *apperrors.ErrorHandler
	logger   logger.Logger
	mux      *http.ServeMux
	now      func() time.Time
	checkTTL time.Duration
}

func NewServer(svc JobService, ready ReadinessCheck, log logger.Logger) *Server {
	log = log.WithFields(map[string]interface{}{"component": "api"})
	s := &Server{
		jobs:     svc,
		ready:    ready,
		errors:   apperrors.NewErrorHandler(log),
		logger:   log,
		mux:      http.NewServeMux(),
		now:      time.Now,
		checkTTL: 5 * time.Second,
	}

	s.mux.HandleFunc("GET /health", s.handleHealth)
	s.mux.HandleFunc("GET /ready", s.handleReady)
	s.mux.Handle("GET /metrics", promhttp.Handler())
	s.mux.HandleFunc("POST /jobs", s.handleEnqueue)
	s.mux.HandleFunc("GET /jobs", s.handleList)
	s.mux.HandleFunc("GET /jobs/{id}", s.handleStatus)
	s.mux.HandleFunc("POST /jobs/{id}/stop", s.handleStop)
	return s
}

func (s *Server) Handler() http.Handler {
	return s.mux
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{
		"status": "healthy",
		"time":   s.now().Format(time.RFC3339),
	})
}

func (s *Server) handleReady(w http.ResponseWriter, r *http.Request) {
	if s.ready != nil {
		ctx, cancel := context.WithTimeout(r.Context(), s.checkTTL)
		defer cancel()
		if err := s.ready(ctx); err != nil {
			writeJSON(w, http.StatusServiceUnavailable, map[string]string{
				"status": "not ready",
				"error":  err.Error(),
				"time":   s.now().Format(time.RFC3339),
			})
			return
		}
	}
	writeJSON(w, http.StatusOK, map[string]string{
		"status": "ready",
		"time":   s.now().Format(time.RFC3339),
	})
}

// handleEnqueue accepts the same JSON shapes as a case-list file: a bare
// array of IDs or {"cases": [...]}.
func (s *Server) handleEnqueue(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(io.LimitReader(r.Body, maxBodyBytes))
	if err != nil {
		s.writeError(w, r, apperrors.NewInvalidCaseListError(err.Error()))
		return
	}
	ids, err := jobs.ParseJSON(body)
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	id, err := s.jobs.Enqueue(r.Context(), ids)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	w.Header().Set("Location", "/jobs/"+id)
	writeJSON(w, http.StatusAccepted, map[string]interface{}{"jobId": id, "cases": len(ids)})
}

func (s *Server) handleList(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]interface{}{"jobs": s.jobs.List()})
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	view, err := s.jobs.Status(r.PathValue("id"))
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, view)
}

func (s *Server) handleStop(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	if err := s.jobs.Stop(id); err != nil {
		s.writeError(w, r, err)
		return
	}
	view, err := s.jobs.Status(id)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusAccepted, view)
}

func (s *Server) writeError(w http.ResponseWriter, r *http.Request, err error) {
	se := s.errors.Handle("api", err, map[string]interface{}{
		"method": r.Method,
		"path":   r.URL.Path,
	})
	writeJSON(w, statusFor(se.Code), se)
}

func statusFor(code apperrors.ErrorCode) int {
	switch code {
	case apperrors.ErrCodeInvalidCaseList:
		return http.StatusBadRequest
	case apperrors.ErrCodeJobNotFound:
		return http.StatusNotFound
	default:
		return http.StatusInternalServerError
	}
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
