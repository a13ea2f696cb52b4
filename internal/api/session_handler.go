package api

import (
	"encoding/json"
	"net/http"

	chi "github.com/go-chi/chi/v5"

	"github.com/fathomsurvey/fathom/internal/common"
	"github.com/fathomsurvey/fathom/internal/engine"
	"github.com/fathomsurvey/fathom/internal/store"
)

func (s *Server) handleCreateSession(w http.ResponseWriter, r *http.Request) {
	logger := common.Logger()
	var req createSessionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	sess, err := s.engine.CreateSession(r.Context(), engine.SessionParams{
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
	logger.Info("api: session created", "session_id", sess.ID, "report_target", sess.ReportTarget)
	s.writeSessionView(w, r, http.StatusCreated, sess.ID)
}

func (s *Server) handleCreateSessionFromToken(w http.ResponseWriter, r *http.Request) {
	token := chi.URLParam(r, "token")
	sess, err := s.engine.CreateSessionFromToken(r.Context(), token)
	if err != nil {
		writeEngineError(w, err)
		return
	}
	common.Logger().Info("api: session created from share token", "session_id", sess.ID)
	s.writeSessionView(w, r, http.StatusCreated, sess.ID)
}

func (s *Server) handleGetSession(w http.ResponseWriter, r *http.Request) {
	s.writeSessionView(w, r, http.StatusOK, chi.URLParam(r, "id"))
}

func (s *Server) handleSubmitAnswer(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	var req answerRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	progress, err := s.engine.SubmitAnswer(r.Context(), id, req.QuestionIndex, store.AnswerPayload{
		SelectedOption:  req.SelectedOption,
		SelectedOptions: req.SelectedOptions,
		AnswerText:      req.AnswerText,
	})
	if err != nil {
		writeEngineError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, progress)
}

func (s *Server) handleAdvance(w http.ResponseWriter, r *http.Request) {
	progress, err := s.engine.Advance(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeEngineError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, progress)
}

func (s *Server) handleContinue(w http.ResponseWriter, r *http.Request) {
	progress, err := s.engine.ContinueBeyondTarget(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeEngineError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, progress)
}

func (s *Server) writeSessionView(w http.ResponseWriter, r *http.Request, status int, sessionID string) {
	progress, err := s.engine.Status(r.Context(), sessionID)
	if err != nil {
		writeEngineError(w, err)
		return
	}
	qs, err := s.store.ListQuestionsWithAnswers(r.Context(), sessionID)
	if err != nil {
		writeEngineError(w, err)
		return
	}
	writeJSON(w, status, sessionView{
		Session:   progress.Session,
		Questions: questionViews(qs),
		Progress:  progress,
	})
}
