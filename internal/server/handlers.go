package server

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"SharpeSentinel/internal/fund"
	"SharpeSentinel/internal/model"
	"SharpeSentinel/internal/recorder"
)

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusOK, map[string]interface{}{
		"status":  "healthy",
		"service": "sharpe-sentinel",
		"uptime":  time.Since(s.started).Round(time.Second).String(),
	})
}

func (s *Server) handleLatestRun(w http.ResponseWriter, r *http.Request) {
	rec, err := s.recorder.LatestRun()
	if errors.Is(err, recorder.ErrNoRuns) {
		s.writeError(w, http.StatusNotFound, err)
		return
	}
	if err != nil {
		s.writeError(w, http.StatusInternalServerError, err)
		return
	}
	s.writeJSON(w, http.StatusOK, rec)
}

func (s *Server) handlePlan(w http.ResponseWriter, r *http.Request) {
	if s.planner == nil {
		s.writeError(w, http.StatusNotFound, fund.ErrNoAllocation)
		return
	}
	plan, err := s.planner.Plan()
	if errors.Is(err, fund.ErrNoAllocation) {
		s.writeError(w, http.StatusNotFound, err)
		return
	}
	if err != nil {
		s.writeError(w, http.StatusInternalServerError, err)
		return
	}
	s.writeJSON(w, http.StatusOK, plan)
}

func (s *Server) handleOptimize(w http.ResponseWriter, r *http.Request) {
	if s.optimizer == nil {
		s.writeError(w, http.StatusServiceUnavailable, errors.New("optimizer not configured"))
		return
	}
	rep, err := s.optimizer.RunOptimization(recorder.TriggerHTTP)
	if err != nil {
		s.writeError(w, statusFor(err), err)
		return
	}
	s.writeJSON(w, http.StatusOK, rep)
}

// statusFor maps the error taxonomy to HTTP status codes.
func statusFor(err error) int {
	switch {
	case errors.Is(err, model.ErrUpstreamData):
		return http.StatusBadGateway
	case errors.Is(err, model.ErrInvalidArgument), errors.Is(err, model.ErrInsufficientData):
		return http.StatusUnprocessableEntity
	default:
		return http.StatusInternalServerError
	}
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		s.log.Error().Err(err).Msg("failed to encode JSON response")
	}
}

func (s *Server) writeError(w http.ResponseWriter, status int, err error) {
	s.writeJSON(w, status, map[string]string{"error": err.Error()})
}
