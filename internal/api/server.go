// Package api exposes the HTTP interface for the discovery service. Routes:
//   - GET /healthz and /readyz for probes.
//   - GET /metrics for Prometheus scraping.
//   - POST /v1/discovery/run and /v1/deadlines/check for manual triggers.
//   - GET /v1/status for scheduler and last-run state.
//   - GET /v1/opportunities and /v1/opportunities/deadlines for consumers.
package api

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/Texasdada13/procurement-intel-tool/internal/engine"
	"github.com/Texasdada13/procurement-intel-tool/internal/metrics"
	"github.com/Texasdada13/procurement-intel-tool/internal/middleware"
	"github.com/Texasdada13/procurement-intel-tool/internal/scheduler"
)

const (
	defaultListLimit  = 50
	maxListLimit      = 500
	defaultReminder   = 3
	maxReminderDays   = 90
	listQueryTimeout  = 5 * time.Second
	discoveryDeadline = 30 * time.Minute
)

// Server wires HTTP handlers to the scheduler and store.
type Server struct {
	router chi.Router
	sched  *scheduler.Scheduler
	store  engine.Store
	logger *zap.Logger
}

// NewServer constructs a Server with middleware and routes.
func NewServer(sched *scheduler.Scheduler, store engine.Store, logger *zap.Logger) *Server {
	if logger == nil {
		logger = zap.NewNop()
	}
	s := &Server{sched: sched, store: store, logger: logger}

	r := chi.NewRouter()
	r.Use(requestIDMiddleware)
	r.Use(loggingMiddleware(logger))
	r.Use(recoverMiddleware(logger))
	r.Use(middleware.Metrics)

	r.Get("/healthz", s.healthz)
	r.Get("/readyz", s.readyz)
	r.Method(http.MethodGet, "/metrics", metrics.Handler())

	r.Route("/v1", func(r chi.Router) {
		r.Post("/discovery/run", s.triggerDiscovery)
		r.Post("/deadlines/check", s.triggerDeadlineCheck)
		r.Get("/status", s.status)
		r.Route("/opportunities", func(r chi.Router) {
			r.Get("/", s.listOpportunities)
			r.Get("/deadlines", s.listDeadlines)
		})
	})

	s.router = r
	return s
}

// Handler returns the router for use with http.Server.
func (s *Server) Handler() http.Handler {
	return s.router
}

func (s *Server) healthz(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) readyz(w http.ResponseWriter, _ *http.Request) {
	if s.sched.Status().Suspended {
		writeError(w, http.StatusServiceUnavailable, "scheduler suspended")
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ready"})
}

// triggerDiscovery runs a discovery pass synchronously and returns its
// summary. A pass already in flight yields 409 rather than a second run.
func (s *Server) triggerDiscovery(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), discoveryDeadline)
	defer cancel()

	summary, err := s.sched.TriggerDiscovery(ctx)
	if err != nil {
		switch {
		case errors.Is(err, scheduler.ErrAlreadyRunning):
			writeError(w, http.StatusConflict, "discovery already running")
		case errors.Is(err, scheduler.ErrSuspended):
			writeError(w, http.StatusServiceUnavailable, "scheduler suspended")
		default:
			s.logger.Error("manual discovery failed", zap.Error(err))
			writeError(w, http.StatusInternalServerError, "discovery run failed")
		}
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"summary": summary})
}

func (s *Server) triggerDeadlineCheck(w http.ResponseWriter, r *http.Request) {
	if err := s.sched.TriggerDeadlineCheck(r.Context()); err != nil {
		switch {
		case errors.Is(err, scheduler.ErrAlreadyRunning):
			writeError(w, http.StatusConflict, "deadline check already running")
		case errors.Is(err, scheduler.ErrSuspended):
			writeError(w, http.StatusServiceUnavailable, "scheduler suspended")
		default:
			s.logger.Error("manual deadline check failed", zap.Error(err))
			writeError(w, http.StatusInternalServerError, "deadline check failed")
		}
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "complete"})
}

func (s *Server) status(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, s.sched.Status())
}

// listOpportunities handles GET /v1/opportunities?status=&category=&min_score=&limit=.
func (s *Server) listOpportunities(w http.ResponseWriter, r *http.Request) {
	filter, err := parseListFilter(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	ctx, cancel := context.WithTimeout(r.Context(), listQueryTimeout)
	defer cancel()

	records, err := s.store.List(ctx, filter)
	if err != nil {
		s.logger.Error("list opportunities failed", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "failed to list opportunities")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"opportunities": toDTOs(records)})
}

// listDeadlines handles GET /v1/opportunities/deadlines?days=N, returning
// open opportunities closing within N days.
func (s *Server) listDeadlines(w http.ResponseWriter, r *http.Request) {
	days := defaultReminder
	if raw := strings.TrimSpace(r.URL.Query().Get("days")); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed <= 0 || parsed > maxReminderDays {
			writeError(w, http.StatusBadRequest, fmt.Sprintf("days must be between 1 and %d", maxReminderDays))
			return
		}
		days = parsed
	}
	ctx, cancel := context.WithTimeout(r.Context(), listQueryTimeout)
	defer cancel()

	records, err := s.store.DueWithin(ctx, time.Duration(days)*24*time.Hour, time.Now().UTC())
	if err != nil {
		s.logger.Error("list deadlines failed", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "failed to list deadlines")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"opportunities": toDTOs(records)})
}

func parseListFilter(r *http.Request) (engine.ListFilter, error) {
	filter := engine.ListFilter{Limit: defaultListLimit}
	q := r.URL.Query()

	if raw := strings.TrimSpace(q.Get("status")); raw != "" {
		status := engine.Status(raw)
		switch status {
		case engine.StatusOpen, engine.StatusClosed, engine.StatusAwarded, engine.StatusUnknown:
			filter.Status = status
		default:
			return filter, fmt.Errorf("invalid status %q", raw)
		}
	}
	if raw := strings.TrimSpace(q.Get("category")); raw != "" {
		category := engine.Category(raw)
		if !category.Valid() {
			return filter, fmt.Errorf("invalid category %q", raw)
		}
		filter.Category = category
	}
	if raw := strings.TrimSpace(q.Get("min_score")); raw != "" {
		score, err := strconv.Atoi(raw)
		if err != nil || score < 0 || score > 100 {
			return filter, fmt.Errorf("min_score must be between 0 and 100")
		}
		filter.MinScore = score
	}
	if raw := strings.TrimSpace(q.Get("limit")); raw != "" {
		limit, err := strconv.Atoi(raw)
		if err != nil || limit <= 0 || limit > maxListLimit {
			return filter, fmt.Errorf("limit must be between 1 and %d", maxListLimit)
		}
		filter.Limit = limit
	}
	return filter, nil
}
