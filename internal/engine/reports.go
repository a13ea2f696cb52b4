package engine

import (
	"context"
	"fmt"
	"strings"

	"github.com/fathomsurvey/fathom/internal/common"
	"github.com/fathomsurvey/fathom/internal/llm"
	"github.com/fathomsurvey/fathom/internal/store"
	"github.com/fathomsurvey/fathom/internal/survey"
)

// FinalizeSession generates the next report version from the session's full
// history. Finalizing before the target is allowed once a full batch is
// answered; the session stays active in that case so the respondent can keep
// answering and finalize again later.
func (e *Engine) FinalizeSession(ctx context.Context, sessionID string) (*store.Report, error) {
	sess, qs, analyses, err := e.snapshot(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	answered := answeredCount(qs)
	if answered < survey.BatchSize {
		return nil, fmt.Errorf("%w: %d of %d answers", ErrTooFewAnswers, answered, survey.BatchSize)
	}
	key := inflightKey(sess.ID, "finalize", 0)
	if !e.begin(key) {
		return nil, fmt.Errorf("%w: finalize", ErrBusy)
	}
	defer e.end(key)

	var answeredHistory []survey.QA
	for _, qa := range history(qs) {
		if qa.Answer.Answered() {
			answeredHistory = append(answeredHistory, qa)
		}
	}
	prompt := survey.BuildReportPrompt(survey.ReportPromptInput{
		Goal:         sess.Purpose,
		Background:   sess.Background,
		Instructions: sess.Instructions,
		Analyses:     analysisTexts(analyses),
		History:      answeredHistory,
	})
	content, err := e.provider.Chat(ctx, promptMessages(prompt), llm.Options{
		Temperature: 0.6,
		MaxTokens:   4096,
	})
	if err != nil {
		return nil, fmt.Errorf("%w: report: %v", ErrGeneration, err)
	}

	versions, err := e.store.ListReportVersions(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	report, err := e.store.InsertReport(ctx, sessionID, survey.NextVersion(versions), strings.TrimSpace(content))
	if err != nil {
		return nil, fmt.Errorf("save report: %w", err)
	}

	if answered >= sess.ReportTarget && sess.Status != store.SessionCompleted {
		status := store.SessionCompleted
		if err := e.store.UpdateSession(ctx, sessionID, store.SessionUpdate{Status: &status}); err != nil {
			return nil, fmt.Errorf("mark session completed: %w", err)
		}
		sess.Status = store.SessionCompleted
		if err := e.notifier.SessionCompleted(ctx, sess, report); err != nil {
			common.Logger().Warn("completion notification failed",
				"session_id", sess.ID,
				"error", err)
		}
	}
	return report, nil
}

// GenerateSurveyReport produces the next aggregate report version across all
// sessions under a preset. Preconditions are checked before any write; only
// a run that passes them leaves a generating row behind, and that row always
// resolves to completed or failed.
func (e *Engine) GenerateSurveyReport(ctx context.Context, presetID string) (*store.SurveyReport, error) {
	preset, err := e.store.GetPreset(ctx, presetID)
	if err != nil {
		return nil, err
	}
	sessions, err := e.store.ListSessionsForPreset(ctx, presetID)
	if err != nil {
		return nil, err
	}
	if len(sessions) == 0 {
		return nil, ErrNoSessions
	}
	var respondents []survey.Respondent
	for _, sess := range sessions {
		qs, err := e.store.ListQuestionsWithAnswers(ctx, sess.ID)
		if err != nil {
			return nil, err
		}
		var answeredHistory []survey.QA
		for _, qa := range history(qs) {
			if qa.Answer.Answered() {
				answeredHistory = append(answeredHistory, qa)
			}
		}
		if len(answeredHistory) == 0 {
			continue
		}
		respondents = append(respondents, survey.Respondent{
			Number:  len(respondents) + 1,
			History: answeredHistory,
		})
	}
	if len(respondents) == 0 {
		return nil, ErrNoAnswers
	}

	key := inflightKey(presetID, "survey-report", 0)
	if !e.begin(key) {
		return nil, fmt.Errorf("%w: survey report", ErrBusy)
	}
	defer e.end(key)

	versions, err := e.store.ListSurveyReportVersions(ctx, presetID)
	if err != nil {
		return nil, err
	}
	row, err := e.store.InsertSurveyReport(ctx, presetID, survey.NextVersion(versions))
	if err != nil {
		return nil, fmt.Errorf("save survey report: %w", err)
	}

	prompt := survey.BuildSurveyReportPrompt(survey.SurveyReportPromptInput{
		Goal:         preset.Purpose,
		Background:   preset.Background,
		Instructions: preset.Instructions,
		Respondents:  respondents,
	})
	content, err := e.provider.Chat(ctx, promptMessages(prompt), llm.Options{
		Temperature: 0.6,
		MaxTokens:   4096,
	})
	if err != nil {
		if updErr := e.store.UpdateSurveyReportStatus(ctx, row.ID, store.SurveyReportFailed, ""); updErr != nil {
			common.Logger().Warn("survey report status not updated",
				"preset_id", presetID,
				"error", updErr)
		}
		return nil, fmt.Errorf("%w: survey report: %v", ErrGeneration, err)
	}
	content = strings.TrimSpace(content)
	if err := e.store.UpdateSurveyReportStatus(ctx, row.ID, store.SurveyReportCompleted, content); err != nil {
		return nil, fmt.Errorf("save survey report content: %w", err)
	}
	row.Status = store.SurveyReportCompleted
	row.Content = content
	return row, nil
}
