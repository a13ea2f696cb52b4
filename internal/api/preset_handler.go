package api

import (
	"encoding/json"
	"net/http"

	chi "github.com/go-chi/chi/v5"

	"github.com/fathomsurvey/fathom/internal/common"
	"github.com/fathomsurvey/fathom/internal/engine"
)

func (s *Server) handleCreatePreset(w http.ResponseWriter, r *http.Request) {
	var req createPresetRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	preset, err := s.engine.CreatePreset(r.Context(), engine.PresetParams{
		Title:          req.Title,
		Purpose:        req.Purpose,
		Background:     req.Background,
		Instructions:   req.Instructions,
		Themes:         req.Themes,
		ReportTarget:   req.ReportTarget,
		FixedQuestions: req.FixedQuestions,
	})
	if err != nil {
		writeEngineError(w, err)
		return
	}
	common.Logger().Info("api: preset created", "preset_id", preset.ID)
	writeJSON(w, http.StatusCreated, presetViewOf(preset))
}

func (s *Server) handleGetPreset(w http.ResponseWriter, r *http.Request) {
	preset, err := s.store.GetPreset(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeEngineError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, presetViewOf(preset))
}
