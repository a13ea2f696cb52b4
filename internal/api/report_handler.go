package api

import (
	"net/http"

	chi "github.com/go-chi/chi/v5"

	"github.com/fathomsurvey/fathom/internal/common"
)

func (s *Server) handleFinalize(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	report, err := s.engine.FinalizeSession(r.Context(), id)
	if err != nil {
		writeEngineError(w, err)
		return
	}
	common.Logger().Info("api: report generated", "session_id", id, "version", report.Version)
	writeJSON(w, http.StatusCreated, report)
}

func (s *Server) handleListReports(w http.ResponseWriter, r *http.Request) {
	reports, err := s.store.ListReports(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeEngineError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"reports": reports})
}

func (s *Server) handleListAnalyses(w http.ResponseWriter, r *http.Request) {
	analyses, err := s.store.ListAnalyses(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeEngineError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"analyses": analyses})
}

func (s *Server) handleGenerateSurveyReport(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	report, err := s.engine.GenerateSurveyReport(r.Context(), id)
	if err != nil {
		writeEngineError(w, err)
		return
	}
	common.Logger().Info("api: survey report generated", "preset_id", id, "version", report.Version)
	writeJSON(w, http.StatusCreated, report)
}

func (s *Server) handleListSurveyReports(w http.ResponseWriter, r *http.Request) {
	reports, err := s.store.ListSurveyReports(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeEngineError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"reports": reports})
}
