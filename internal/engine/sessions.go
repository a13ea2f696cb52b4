package engine

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/fathomsurvey/fathom/internal/common"
	"github.com/fathomsurvey/fathom/internal/llm"
	"github.com/fathomsurvey/fathom/internal/store"
	"github.com/fathomsurvey/fathom/internal/survey"
)

// analysisTimeout bounds one detached analysis call.
const analysisTimeout = 2 * time.Minute

// SessionParams configures a new session.
type SessionParams struct {
	Purpose        string
	Background     string
	Instructions   string
	Themes         []string
	ReportTarget   int
	PresetID       *string
	FixedQuestions []store.FixedQuestion
}

// Progress is the respondent-facing view of where a session stands after an
// engine operation.
type Progress struct {
	Session       *store.Session `json:"session"`
	AnsweredCount int            `json:"answered_count"`
	CanFinalize   bool           `json:"can_finalize"`
	CanContinue   bool           `json:"can_continue"`
	NewQuestions  int            `json:"new_questions"`
}

// CreateSession validates the parameters, generates the opening batch, and
// persists the session with its questions. The model call happens before any
// write, so a failed generation leaves no partial session behind.
func (e *Engine) CreateSession(ctx context.Context, p SessionParams) (*store.Session, error) {
	if strings.TrimSpace(p.Purpose) == "" {
		return nil, fmt.Errorf("%w: purpose is required", ErrValidation)
	}
	profile, err := survey.BuildPhaseProfile(p.ReportTarget)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrValidation, err)
	}
	profileJSON, err := json.Marshal(profile)
	if err != nil {
		return nil, fmt.Errorf("encode phase profile: %w", err)
	}

	sess := &store.Session{
		ID:           uuid.NewString(),
		PresetID:     p.PresetID,
		Purpose:      strings.TrimSpace(p.Purpose),
		Background:   strings.TrimSpace(p.Background),
		Instructions: strings.TrimSpace(p.Instructions),
		Themes:       store.EncodeStringList(p.Themes),
		PhaseProfile: string(profileJSON),
		ReportTarget: p.ReportTarget,
		Status:       store.SessionActive,
	}

	rows := fixedRows(sess.ID, p.FixedQuestions, profile)
	existing := make(map[int]bool, len(rows))
	for _, row := range rows {
		existing[row.Index] = true
	}
	first := survey.IndexRange{Start: 1, End: survey.BatchSize}
	missing := survey.MissingIndices(first, existing)
	if len(missing) > 0 {
		seed := make([]store.QuestionWithAnswer, 0, len(rows))
		for _, row := range rows {
			seed = append(seed, store.QuestionWithAnswer{Question: row})
		}
		generated, err := e.generateQuestions(ctx, sess, seed, first, missing)
		if err != nil {
			return nil, err
		}
		rows = append(rows, generated...)
	}

	if err := e.store.CreateSession(ctx, *sess); err != nil {
		return nil, fmt.Errorf("create session: %w", err)
	}
	if _, err := e.store.UpsertQuestions(ctx, rows); err != nil {
		return nil, fmt.Errorf("persist opening batch: %w", err)
	}
	return e.store.GetSession(ctx, sess.ID)
}

// CreateSessionFromToken starts a session for the preset behind a share
// token, inheriting its configuration and fixed questions.
func (e *Engine) CreateSessionFromToken(ctx context.Context, token string) (*store.Session, error) {
	preset, err := e.store.GetPresetByToken(ctx, token)
	if err != nil {
		return nil, err
	}
	return e.CreateSession(ctx, SessionParams{
		Purpose:        preset.Purpose,
		Background:     preset.Background,
		Instructions:   preset.Instructions,
		Themes:         preset.ThemeList(),
		ReportTarget:   preset.ReportTarget,
		PresetID:       &preset.ID,
		FixedQuestions: preset.FixedQuestionList(),
	})
}

// PresetParams configures a new shareable preset.
type PresetParams struct {
	Title          string
	Purpose        string
	Background     string
	Instructions   string
	Themes         []string
	ReportTarget   int
	FixedQuestions []store.FixedQuestion
}

// CreatePreset validates and persists a preset with a fresh share token.
func (e *Engine) CreatePreset(ctx context.Context, p PresetParams) (*store.Preset, error) {
	if strings.TrimSpace(p.Purpose) == "" {
		return nil, fmt.Errorf("%w: purpose is required", ErrValidation)
	}
	if _, err := survey.BuildPhaseProfile(p.ReportTarget); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrValidation, err)
	}
	fixedJSON, err := json.Marshal(p.FixedQuestions)
	if err != nil {
		return nil, fmt.Errorf("encode fixed questions: %w", err)
	}
	preset := store.Preset{
		ID:             uuid.NewString(),
		ShareToken:     newShareToken(),
		Title:          strings.TrimSpace(p.Title),
		Purpose:        strings.TrimSpace(p.Purpose),
		Background:     strings.TrimSpace(p.Background),
		Instructions:   strings.TrimSpace(p.Instructions),
		Themes:         store.EncodeStringList(p.Themes),
		FixedQuestions: string(fixedJSON),
		ReportTarget:   p.ReportTarget,
	}
	if err := e.store.CreatePreset(ctx, preset); err != nil {
		return nil, fmt.Errorf("create preset: %w", err)
	}
	return e.store.GetPreset(ctx, preset.ID)
}

// SubmitAnswer records one answer and advances the session. The answer is
// durable even when the subsequent batch generation fails; a retry resumes
// from the stored state.
func (e *Engine) SubmitAnswer(ctx context.Context, sessionID string, questionIndex int, payload store.AnswerPayload) (*Progress, error) {
	sess, err := e.store.GetSession(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	if sess.Status == store.SessionCompleted {
		return nil, fmt.Errorf("%w: session is completed", ErrValidation)
	}
	qs, err := e.store.ListQuestionsWithAnswers(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	var target *store.Question
	for i := range qs {
		if qs[i].Index == questionIndex {
			target = &qs[i].Question
			break
		}
	}
	if target == nil {
		return nil, fmt.Errorf("question %d: %w", questionIndex, store.ErrNotFound)
	}
	if err := validateAnswer(target, payload); err != nil {
		return nil, err
	}
	if _, err := e.store.UpsertAnswer(ctx, target.ID, payload); err != nil {
		return nil, fmt.Errorf("save answer: %w", err)
	}
	if questionIndex > sess.CurrentIndex {
		upd := store.SessionUpdate{CurrentIndex: &questionIndex}
		if err := e.store.UpdateSession(ctx, sessionID, upd); err != nil {
			return nil, fmt.Errorf("advance cursor: %w", err)
		}
	}
	return e.Advance(ctx, sessionID)
}

// Advance observes the session and performs whatever the observed state
// calls for: queueing the batch analysis, generating the next batch, or
// nothing. It is safe to call repeatedly; completed work is never redone.
func (e *Engine) Advance(ctx context.Context, sessionID string) (*Progress, error) {
	sess, qs, analyses, err := e.snapshot(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	decision := survey.Decide(observation(sess, qs, analyses, false))
	if decision.Analysis != nil {
		e.spawnAnalysis(ctx, sess, qs, analyses, *decision.Analysis)
	}
	inserted := 0
	if decision.NextBatch != nil {
		inserted, err = e.generateBatch(ctx, sess, qs, *decision.NextBatch)
		if err != nil {
			return nil, err
		}
	}
	return &Progress{
		Session:       sess,
		AnsweredCount: answeredCount(qs),
		CanFinalize:   decision.CanFinalize,
		CanContinue:   decision.CanContinue,
		NewQuestions:  inserted,
	}, nil
}

// ContinueBeyondTarget opens exactly one batch past the report target. The
// permission is consumed by the generated batch: once those answers land on
// the next boundary the target gate applies again.
func (e *Engine) ContinueBeyondTarget(ctx context.Context, sessionID string) (*Progress, error) {
	sess, qs, analyses, err := e.snapshot(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	if sess.Status == store.SessionCompleted {
		return nil, fmt.Errorf("%w: session is completed", ErrValidation)
	}
	decision := survey.Decide(observation(sess, qs, analyses, true))
	if !decision.CanContinue {
		return nil, fmt.Errorf("%w: report target not reached", ErrValidation)
	}
	if decision.Analysis != nil {
		e.spawnAnalysis(ctx, sess, qs, analyses, *decision.Analysis)
	}
	inserted := 0
	if decision.NextBatch != nil {
		inserted, err = e.generateBatch(ctx, sess, qs, *decision.NextBatch)
		if err != nil {
			return nil, err
		}
	}
	return &Progress{
		Session:       sess,
		AnsweredCount: answeredCount(qs),
		CanFinalize:   decision.CanFinalize,
		CanContinue:   decision.CanContinue,
		NewQuestions:  inserted,
	}, nil
}

// Status reports where a session stands without performing any work.
func (e *Engine) Status(ctx context.Context, sessionID string) (*Progress, error) {
	sess, qs, analyses, err := e.snapshot(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	decision := survey.Decide(observation(sess, qs, analyses, false))
	return &Progress{
		Session:       sess,
		AnsweredCount: answeredCount(qs),
		CanFinalize:   decision.CanFinalize,
		CanContinue:   decision.CanContinue,
	}, nil
}

func (e *Engine) snapshot(ctx context.Context, sessionID string) (*store.Session, []store.QuestionWithAnswer, []store.Analysis, error) {
	sess, err := e.store.GetSession(ctx, sessionID)
	if err != nil {
		return nil, nil, nil, err
	}
	qs, err := e.store.ListQuestionsWithAnswers(ctx, sessionID)
	if err != nil {
		return nil, nil, nil, err
	}
	analyses, err := e.store.ListAnalyses(ctx, sessionID)
	if err != nil {
		return nil, nil, nil, err
	}
	return sess, qs, analyses, nil
}

// generateBatch fills the missing slots of r with freshly generated
// questions. Slots already occupied by fixed or earlier rows are skipped, so
// a retried call cannot duplicate work.
func (e *Engine) generateBatch(ctx context.Context, sess *store.Session, qs []store.QuestionWithAnswer, r survey.IndexRange) (int, error) {
	key := inflightKey(sess.ID, "batch", r.Start)
	if !e.begin(key) {
		return 0, fmt.Errorf("%w: batch Q%d-Q%d", ErrBusy, r.Start, r.End)
	}
	defer e.end(key)

	existing := make(map[int]bool, len(qs))
	for _, q := range qs {
		existing[q.Index] = true
	}
	missing := survey.MissingIndices(r, existing)
	if len(missing) == 0 {
		return 0, nil
	}
	rows, err := e.generateQuestions(ctx, sess, qs, r, missing)
	if err != nil {
		return 0, err
	}
	inserted, err := e.store.UpsertQuestions(ctx, rows)
	if err != nil {
		return 0, fmt.Errorf("persist batch Q%d-Q%d: %w", r.Start, r.End, err)
	}
	return inserted, nil
}

// generateQuestions performs the model call for the requested slots and maps
// the parsed batch onto question rows. It writes nothing.
func (e *Engine) generateQuestions(ctx context.Context, sess *store.Session, qs []store.QuestionWithAnswer, r survey.IndexRange, missing []int) ([]store.Question, error) {
	profile, err := sess.Profile()
	if err != nil {
		return nil, err
	}
	phase := survey.PhaseForIndex(r.Start, profile)
	prompt := survey.BuildQuestionPrompt(survey.QuestionPromptInput{
		Goal:       sess.Purpose,
		Background: sess.Background,
		Themes:     sess.ThemeList(),
		History:    history(qs),
		Range:      r,
		Phase:      phase,
		Indices:    missing,
	})
	raw, err := e.provider.Chat(ctx, promptMessages(prompt), llm.Options{
		Temperature: 0.7,
		MaxTokens:   2048,
		Schema:      &questionBatchSchema,
	})
	if err != nil {
		return nil, fmt.Errorf("%w: questions Q%d-Q%d: %v", ErrGeneration, r.Start, r.End, err)
	}
	generated, err := survey.ParseQuestionBatch(raw, len(missing))
	if err != nil {
		return nil, fmt.Errorf("%w: questions Q%d-Q%d: %v", ErrGeneration, r.Start, r.End, err)
	}
	rows := make([]store.Question, 0, len(generated))
	for i, g := range generated {
		rows = append(rows, store.Question{
			SessionID: sess.ID,
			Index:     missing[i],
			Text:      g.Text,
			Detail:    g.Detail,
			Options:   store.EncodeStringList(g.Options),
			Type:      string(survey.QuestionRadio),
			Phase:     string(phase),
			Source:    store.SourceAI,
		})
	}
	return rows, nil
}

// spawnAnalysis generates the interim analysis for ref in the background.
// The work detaches from the request context; failures are logged and the
// next boundary observation retries, because no analysis row was written.
func (e *Engine) spawnAnalysis(ctx context.Context, sess *store.Session, qs []store.QuestionWithAnswer, analyses []store.Analysis, ref survey.BatchRef) {
	key := inflightKey(sess.ID, "analysis", ref.Batch)
	if !e.begin(key) {
		return
	}
	detached := context.WithoutCancel(ctx)
	e.wg.Add(1)
	go func() {
		defer e.wg.Done()
		defer e.end(key)
		ctx, cancel := context.WithTimeout(detached, analysisTimeout)
		defer cancel()

		var batch []survey.QA
		for _, q := range qs {
			if q.Index >= ref.Range.Start && q.Index <= ref.Range.End {
				batch = append(batch, survey.QA{
					Index:   q.Index,
					Text:    q.Text,
					Detail:  q.Detail,
					Options: q.OptionList(),
					Type:    survey.QuestionType(q.Type),
					Answer:  q.Answer.Value(q.Type),
				})
			}
		}
		var prior []string
		for _, a := range analyses {
			if a.BatchIndex < ref.Batch {
				prior = append(prior, a.Content)
			}
		}
		prompt := survey.BuildAnalysisPrompt(survey.AnalysisPromptInput{
			Goal:          sess.Purpose,
			Background:    sess.Background,
			PriorAnalyses: prior,
			Batch:         batch,
			Range:         ref.Range,
		})
		content, err := e.provider.Chat(ctx, promptMessages(prompt), llm.Options{
			Temperature: 0.5,
			MaxTokens:   400,
		})
		if err != nil {
			common.Logger().Warn("batch analysis failed",
				"session_id", sess.ID,
				"batch", ref.Batch,
				"error", err)
			return
		}
		if _, err := e.store.InsertAnalysis(ctx, sess.ID, ref.Batch, ref.Range.Start, ref.Range.End, strings.TrimSpace(content)); err != nil {
			common.Logger().Warn("batch analysis not saved",
				"session_id", sess.ID,
				"batch", ref.Batch,
				"error", err)
		}
	}()
}

func fixedRows(sessionID string, fixed []store.FixedQuestion, profile []survey.PhaseRange) []store.Question {
	rows := make([]store.Question, 0, len(fixed))
	for i, fq := range fixed {
		qt := fq.Type
		if qt == "" {
			qt = string(survey.QuestionRadio)
		}
		index := i + 1
		rows = append(rows, store.Question{
			SessionID: sessionID,
			Index:     index,
			Text:      fq.Text,
			Detail:    fq.Detail,
			Options:   store.EncodeStringList(fq.Options),
			Type:      qt,
			Phase:     string(survey.PhaseForIndex(index, profile)),
			Source:    store.SourceFixed,
		})
	}
	return rows
}

func validateAnswer(q *store.Question, payload store.AnswerPayload) error {
	switch survey.QuestionType(q.Type) {
	case survey.QuestionRadio, survey.QuestionScale:
		if payload.SelectedOption == nil {
			return fmt.Errorf("%w: selected_option is required", ErrValidation)
		}
		opt := *payload.SelectedOption
		if opt < 0 || opt > survey.FreeTextOption {
			return fmt.Errorf("%w: selected_option %d out of range", ErrValidation, opt)
		}
		if opt == survey.FreeTextOption && strings.TrimSpace(payload.AnswerText) == "" {
			return fmt.Errorf("%w: answer_text is required for the free-text option", ErrValidation)
		}
	case survey.QuestionCheckbox:
		if len(payload.SelectedOptions) == 0 {
			return fmt.Errorf("%w: selected_options is required", ErrValidation)
		}
		for _, opt := range payload.SelectedOptions {
			if opt < 0 || opt >= survey.OptionCount {
				return fmt.Errorf("%w: selected option %d out of range", ErrValidation, opt)
			}
		}
	case survey.QuestionText, survey.QuestionTextarea:
		if strings.TrimSpace(payload.AnswerText) == "" {
			return fmt.Errorf("%w: answer_text is required", ErrValidation)
		}
	default:
		return fmt.Errorf("%w: unknown question type %q", ErrValidation, q.Type)
	}
	return nil
}

func newShareToken() string {
	buf := make([]byte, 16)
	if _, err := rand.Read(buf); err != nil {
		return uuid.NewString()
	}
	return hex.EncodeToString(buf)
}
