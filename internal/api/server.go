package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	chi "github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/fathomsurvey/fathom/internal/common"
	"github.com/fathomsurvey/fathom/internal/engine"
	"github.com/fathomsurvey/fathom/internal/store"
)

// Server exposes the survey engine over HTTP. Handlers stay thin: request
// decoding, one engine or store call, response encoding. All domain rules
// live below this layer.
type Server struct {
	router chi.Router
	store  *store.Store
	engine *engine.Engine
}

func NewServer(st *store.Store, eng *engine.Engine) (*Server, error) {
	if st == nil {
		return nil, fmt.Errorf("store required")
	}
	if eng == nil {
		return nil, fmt.Errorf("engine required")
	}
	srv := &Server{
		router: chi.NewRouter(),
		store:  st,
		engine: eng,
	}
	srv.routes()
	return srv, nil
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

func (s *Server) routes() {
	logger := common.Logger()
	s.router.Use(middleware.Recoverer)
	s.router.Use(func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			next.ServeHTTP(w, r)
			logger.Debug("request", "method", r.Method, "path", r.URL.Path, "dur", time.Since(start), "remote", r.RemoteAddr)
		})
	})

	s.router.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})

	s.router.Post("/v1/sessions", s.handleCreateSession)
	s.router.Get("/v1/sessions/{id}", s.handleGetSession)
	s.router.Post("/v1/sessions/{id}/answers", s.handleSubmitAnswer)
	s.router.Post("/v1/sessions/{id}/advance", s.handleAdvance)
	s.router.Post("/v1/sessions/{id}/continue", s.handleContinue)
	s.router.Post("/v1/sessions/{id}/finalize", s.handleFinalize)
	s.router.Get("/v1/sessions/{id}/reports", s.handleListReports)
	s.router.Get("/v1/sessions/{id}/analyses", s.handleListAnalyses)

	s.router.Post("/v1/presets", s.handleCreatePreset)
	s.router.Get("/v1/presets/{id}", s.handleGetPreset)
	s.router.Post("/v1/presets/{id}/reports", s.handleGenerateSurveyReport)
	s.router.Get("/v1/presets/{id}/reports", s.handleListSurveyReports)
	s.router.Post("/v1/share/{token}/sessions", s.handleCreateSessionFromToken)

	s.router.Get("/v1/logs", s.handleLogs)
}

func writeJSON(w http.ResponseWriter, status int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func writeError(w http.ResponseWriter, status int, err error) {
	logger := common.Logger()
	if status >= http.StatusInternalServerError {
		logger.Error("request failed", "status", status, "error", err)
	} else {
		logger.Warn("request failed", "status", status, "error", err)
	}
	writeJSON(w, status, map[string]string{"error": err.Error()})
}

// writeEngineError maps engine sentinels onto HTTP statuses.
func writeEngineError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, store.ErrNotFound):
		writeError(w, http.StatusNotFound, err)
	case errors.Is(err, engine.ErrValidation):
		writeError(w, http.StatusBadRequest, err)
	case errors.Is(err, engine.ErrTooFewAnswers),
		errors.Is(err, engine.ErrNoSessions),
		errors.Is(err, engine.ErrNoAnswers),
		errors.Is(err, engine.ErrBusy):
		writeError(w, http.StatusConflict, err)
	case errors.Is(err, engine.ErrGeneration):
		writeError(w, http.StatusBadGateway, err)
	default:
		writeError(w, http.StatusInternalServerError, err)
	}
}

func (s *Server) handleLogs(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]interface{}{"logs": common.LogEntries()})
}
