package engine

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/fathomsurvey/fathom/internal/llm"
	"github.com/fathomsurvey/fathom/internal/store"
	"github.com/fathomsurvey/fathom/internal/survey"
)

type fakeStore struct {
	mu            sync.Mutex
	sessions      map[string]store.Session
	questions     map[string][]store.Question
	answers       map[int64]store.Answer
	analyses      map[string][]store.Analysis
	reports       map[string][]store.Report
	presets       map[string]store.Preset
	surveyReports []store.SurveyReport
	nextID        int64
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		sessions:  make(map[string]store.Session),
		questions: make(map[string][]store.Question),
		answers:   make(map[int64]store.Answer),
		analyses:  make(map[string][]store.Analysis),
		reports:   make(map[string][]store.Report),
		presets:   make(map[string]store.Preset),
	}
}

func (f *fakeStore) id() int64 {
	f.nextID++
	return f.nextID
}

func (f *fakeStore) CreateSession(_ context.Context, sess store.Session) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	sess.CreatedAt = time.Now()
	f.sessions[sess.ID] = sess
	return nil
}

func (f *fakeStore) GetSession(_ context.Context, id string) (*store.Session, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	sess, ok := f.sessions[id]
	if !ok {
		return nil, store.ErrNotFound
	}
	copied := sess
	return &copied, nil
}

func (f *fakeStore) UpdateSession(_ context.Context, id string, upd store.SessionUpdate) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	sess, ok := f.sessions[id]
	if !ok {
		return store.ErrNotFound
	}
	if upd.CurrentIndex != nil {
		sess.CurrentIndex = *upd.CurrentIndex
	}
	if upd.Status != nil {
		sess.Status = *upd.Status
	}
	f.sessions[id] = sess
	return nil
}

func (f *fakeStore) ListQuestionsWithAnswers(_ context.Context, sessionID string) ([]store.QuestionWithAnswer, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	qs := append([]store.Question(nil), f.questions[sessionID]...)
	out := make([]store.QuestionWithAnswer, 0, len(qs))
	for _, q := range qs {
		item := store.QuestionWithAnswer{Question: q}
		if ans, ok := f.answers[q.ID]; ok {
			copied := ans
			item.Answer = &copied
		}
		out = append(out, item)
	}
	return out, nil
}

func (f *fakeStore) UpsertQuestions(_ context.Context, rows []store.Question) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	inserted := 0
	for _, row := range rows {
		exists := false
		for _, q := range f.questions[row.SessionID] {
			if q.Index == row.Index {
				exists = true
				break
			}
		}
		if exists {
			continue
		}
		row.ID = f.id()
		f.questions[row.SessionID] = append(f.questions[row.SessionID], row)
		inserted++
	}
	return inserted, nil
}

func (f *fakeStore) UpsertAnswer(_ context.Context, questionID int64, payload store.AnswerPayload) (*store.Answer, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	ans := store.Answer{
		ID:             f.id(),
		QuestionID:     questionID,
		SelectedOption: payload.SelectedOption,
		AnswerText:     payload.AnswerText,
	}
	if len(payload.SelectedOptions) > 0 {
		parts := make([]string, 0, len(payload.SelectedOptions))
		for _, opt := range payload.SelectedOptions {
			parts = append(parts, strconv.Itoa(opt))
		}
		encoded := "[" + strings.Join(parts, ",") + "]"
		ans.SelectedOptions = &encoded
	}
	f.answers[questionID] = ans
	copied := ans
	return &copied, nil
}

func (f *fakeStore) InsertAnalysis(_ context.Context, sessionID string, batchIndex, startIndex, endIndex int, content string) (*store.Analysis, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, a := range f.analyses[sessionID] {
		if a.BatchIndex == batchIndex {
			copied := a
			return &copied, nil
		}
	}
	row := store.Analysis{
		ID:         f.id(),
		SessionID:  sessionID,
		BatchIndex: batchIndex,
		StartIndex: startIndex,
		EndIndex:   endIndex,
		Content:    content,
	}
	f.analyses[sessionID] = append(f.analyses[sessionID], row)
	copied := row
	return &copied, nil
}

func (f *fakeStore) ListAnalyses(_ context.Context, sessionID string) ([]store.Analysis, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]store.Analysis(nil), f.analyses[sessionID]...), nil
}

func (f *fakeStore) InsertReport(_ context.Context, sessionID string, version int, content string) (*store.Report, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	row := store.Report{ID: f.id(), SessionID: sessionID, Version: version, Content: content}
	f.reports[sessionID] = append(f.reports[sessionID], row)
	copied := row
	return &copied, nil
}

func (f *fakeStore) ListReportVersions(_ context.Context, sessionID string) ([]int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	versions := make([]int, 0, len(f.reports[sessionID]))
	for _, r := range f.reports[sessionID] {
		versions = append(versions, r.Version)
	}
	return versions, nil
}

func (f *fakeStore) CreatePreset(_ context.Context, preset store.Preset) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.presets[preset.ID] = preset
	return nil
}

func (f *fakeStore) GetPreset(_ context.Context, id string) (*store.Preset, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	preset, ok := f.presets[id]
	if !ok {
		return nil, store.ErrNotFound
	}
	copied := preset
	return &copied, nil
}

func (f *fakeStore) GetPresetByToken(_ context.Context, token string) (*store.Preset, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, preset := range f.presets {
		if preset.ShareToken == token {
			copied := preset
			return &copied, nil
		}
	}
	return nil, store.ErrNotFound
}

func (f *fakeStore) ListSessionsForPreset(_ context.Context, presetID string) ([]store.Session, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []store.Session
	for _, sess := range f.sessions {
		if sess.PresetID != nil && *sess.PresetID == presetID {
			out = append(out, sess)
		}
	}
	return out, nil
}

func (f *fakeStore) InsertSurveyReport(_ context.Context, presetID string, version int) (*store.SurveyReport, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	row := store.SurveyReport{
		ID:       f.id(),
		PresetID: presetID,
		Version:  version,
		Status:   store.SurveyReportGenerating,
	}
	f.surveyReports = append(f.surveyReports, row)
	copied := row
	return &copied, nil
}

func (f *fakeStore) UpdateSurveyReportStatus(_ context.Context, id int64, status, content string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for i := range f.surveyReports {
		if f.surveyReports[i].ID == id {
			f.surveyReports[i].Status = status
			f.surveyReports[i].Content = content
			return nil
		}
	}
	return store.ErrNotFound
}

func (f *fakeStore) ListSurveyReportVersions(_ context.Context, presetID string) ([]int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var versions []int
	for _, r := range f.surveyReports {
		if r.PresetID == presetID {
			versions = append(versions, r.Version)
		}
	}
	return versions, nil
}

func (f *fakeStore) sessionQuestions(sessionID string) []store.Question {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]store.Question(nil), f.questions[sessionID]...)
}

func (f *fakeStore) sessionAnalyses(sessionID string) []store.Analysis {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]store.Analysis(nil), f.analyses[sessionID]...)
}

var requestedIndicesRe = regexp.MustCompile(`Generate exactly (\d+) new questions for indices ([0-9, ]+)`)

// mockProvider answers question prompts with a well-formed batch for the
// requested indices, and analysis/report prompts with canned text. Failure
// switches let tests break one call class at a time.
type mockProvider struct {
	mu            sync.Mutex
	failQuestions bool
	failAnalysis  bool
	failReports   bool
	questionCalls int
	analysisCalls int
	reportCalls   int
	lastPrompts   []string
}

func (m *mockProvider) Name() string { return "mock" }

func (m *mockProvider) Chat(_ context.Context, messages []llm.Message, _ llm.Options) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	user := messages[len(messages)-1].Content
	m.lastPrompts = append(m.lastPrompts, user)
	switch {
	case strings.Contains(user, "Generate exactly"):
		m.questionCalls++
		if m.failQuestions {
			return "", errors.New("model unavailable")
		}
		match := requestedIndicesRe.FindStringSubmatch(user)
		if match == nil {
			return "", errors.New("unexpected question prompt")
		}
		count, _ := strconv.Atoi(match[1])
		return cannedBatchJSON(count), nil
	case strings.Contains(user, "reflective summary"):
		m.analysisCalls++
		if m.failAnalysis {
			return "", errors.New("model unavailable")
		}
		return "The answers so far show a consistent preference for stability over novelty.", nil
	default:
		m.reportCalls++
		if m.failReports {
			return "", errors.New("model unavailable")
		}
		return "# Report\n\nGenerated report body.", nil
	}
}

func cannedBatchJSON(count int) string {
	var b strings.Builder
	b.WriteString(`{"questions": [`)
	for i := 0; i < count; i++ {
		if i > 0 {
			b.WriteString(",")
		}
		fmt.Fprintf(&b, `{"text": "Statement %d about priorities", "detail": "Supporting context for statement %d.", `+
			`"options": ["yes", "don't know", "no", "mostly", "it depends", "rarely"]}`, i+1, i+1)
	}
	b.WriteString(`]}`)
	return b.String()
}

func newTestEngine(t *testing.T) (*Engine, *fakeStore, *mockProvider) {
	t.Helper()
	st := newFakeStore()
	provider := &mockProvider{}
	return New(st, provider), st, provider
}

func intPtr(v int) *int { return &v }

func answerRange(t *testing.T, e *Engine, sessionID string, from, to int) *Progress {
	t.Helper()
	var progress *Progress
	for i := from; i <= to; i++ {
		p, err := e.SubmitAnswer(context.Background(), sessionID, i, store.AnswerPayload{SelectedOption: intPtr(0)})
		if err != nil {
			t.Fatalf("submit answer %d: %v", i, err)
		}
		progress = p
	}
	e.Wait()
	return progress
}

func TestCreateSessionGeneratesOpeningBatch(t *testing.T) {
	e, st, provider := newTestEngine(t)
	sess, err := e.CreateSession(context.Background(), SessionParams{
		Purpose:      "Understand career priorities",
		ReportTarget: 10,
	})
	if err != nil {
		t.Fatalf("create session: %v", err)
	}
	if sess.Status != store.SessionActive {
		t.Fatalf("expected active session, got %q", sess.Status)
	}
	qs := st.sessionQuestions(sess.ID)
	if len(qs) != survey.BatchSize {
		t.Fatalf("expected %d opening questions, got %d", survey.BatchSize, len(qs))
	}
	for i, q := range qs {
		if q.Index != i+1 {
			t.Fatalf("question %d has index %d", i, q.Index)
		}
		if q.Phase != string(survey.PhaseExploration) {
			t.Fatalf("opening question phase = %q", q.Phase)
		}
		if q.Source != store.SourceAI {
			t.Fatalf("opening question source = %q", q.Source)
		}
	}
	if provider.questionCalls != 1 {
		t.Fatalf("expected 1 generation call, got %d", provider.questionCalls)
	}
}

func TestCreateSessionFixedQuestionsFillSlots(t *testing.T) {
	e, st, provider := newTestEngine(t)
	sess, err := e.CreateSession(context.Background(), SessionParams{
		Purpose:      "Team retrospective",
		ReportTarget: 10,
		FixedQuestions: []store.FixedQuestion{
			{Text: "I enjoy my current role", Options: []string{"yes", "don't know", "no", "a", "b", "c"}},
			{Text: "Describe a recent win", Type: "textarea"},
			{Text: "I feel heard in meetings", Options: []string{"yes", "don't know", "no", "a", "b", "c"}},
		},
	})
	if err != nil {
		t.Fatalf("create session: %v", err)
	}
	qs := st.sessionQuestions(sess.ID)
	if len(qs) != survey.BatchSize {
		t.Fatalf("expected %d questions, got %d", survey.BatchSize, len(qs))
	}
	for i := 0; i < 3; i++ {
		if qs[i].Source != store.SourceFixed {
			t.Fatalf("question %d source = %q", i+1, qs[i].Source)
		}
	}
	prompt := provider.lastPrompts[len(provider.lastPrompts)-1]
	if !strings.Contains(prompt, "Generate exactly 2 new questions for indices 4, 5") {
		t.Fatalf("generation prompt did not request only the open slots:\n%s", prompt)
	}
}

func TestCreateSessionRejectsBadTarget(t *testing.T) {
	e, st, _ := newTestEngine(t)
	for _, target := range []int{0, -5, 7} {
		if _, err := e.CreateSession(context.Background(), SessionParams{Purpose: "p", ReportTarget: target}); !errors.Is(err, ErrValidation) {
			t.Fatalf("target %d: expected ErrValidation, got %v", target, err)
		}
	}
	if len(st.sessions) != 0 {
		t.Fatalf("rejected sessions were persisted")
	}
}

func TestCreateSessionGenerationFailureLeavesNoState(t *testing.T) {
	e, st, provider := newTestEngine(t)
	provider.failQuestions = true
	_, err := e.CreateSession(context.Background(), SessionParams{Purpose: "p", ReportTarget: 10})
	if !errors.Is(err, ErrGeneration) {
		t.Fatalf("expected ErrGeneration, got %v", err)
	}
	if len(st.sessions) != 0 || len(st.questions) != 0 {
		t.Fatalf("failed creation left partial state behind")
	}
}

func TestSubmitAnswerMidBatchGeneratesNothing(t *testing.T) {
	e, st, provider := newTestEngine(t)
	sess, err := e.CreateSession(context.Background(), SessionParams{Purpose: "p", ReportTarget: 10})
	if err != nil {
		t.Fatalf("create session: %v", err)
	}
	progress := answerRange(t, e, sess.ID, 1, 3)
	if progress.NewQuestions != 0 {
		t.Fatalf("mid-batch answer generated %d questions", progress.NewQuestions)
	}
	if provider.analysisCalls != 0 {
		t.Fatalf("mid-batch answer triggered analysis")
	}
	if got := len(st.sessionQuestions(sess.ID)); got != survey.BatchSize {
		t.Fatalf("expected %d questions, got %d", survey.BatchSize, got)
	}
}

func TestBatchBoundaryTriggersAnalysisAndNextBatch(t *testing.T) {
	e, st, provider := newTestEngine(t)
	sess, err := e.CreateSession(context.Background(), SessionParams{Purpose: "p", ReportTarget: 10})
	if err != nil {
		t.Fatalf("create session: %v", err)
	}
	answerRange(t, e, sess.ID, 1, survey.BatchSize)

	analyses := st.sessionAnalyses(sess.ID)
	if len(analyses) != 1 {
		t.Fatalf("expected 1 analysis, got %d", len(analyses))
	}
	if analyses[0].BatchIndex != 1 || analyses[0].StartIndex != 1 || analyses[0].EndIndex != 5 {
		t.Fatalf("unexpected analysis row: %+v", analyses[0])
	}
	qs := st.sessionQuestions(sess.ID)
	if len(qs) != 2*survey.BatchSize {
		t.Fatalf("expected %d questions after boundary, got %d", 2*survey.BatchSize, len(qs))
	}
	if provider.questionCalls != 2 {
		t.Fatalf("expected 2 generation calls, got %d", provider.questionCalls)
	}
}

func TestBoundaryIsIdempotent(t *testing.T) {
	e, st, provider := newTestEngine(t)
	sess, err := e.CreateSession(context.Background(), SessionParams{Purpose: "p", ReportTarget: 10})
	if err != nil {
		t.Fatalf("create session: %v", err)
	}
	answerRange(t, e, sess.ID, 1, survey.BatchSize)
	for i := 0; i < 3; i++ {
		if _, err := e.Advance(context.Background(), sess.ID); err != nil {
			t.Fatalf("advance %d: %v", i, err)
		}
	}
	e.Wait()
	if got := len(st.sessionQuestions(sess.ID)); got != 2*survey.BatchSize {
		t.Fatalf("repeated advance duplicated questions: %d", got)
	}
	if got := len(st.sessionAnalyses(sess.ID)); got != 1 {
		t.Fatalf("repeated advance duplicated analyses: %d", got)
	}
	if provider.questionCalls != 2 {
		t.Fatalf("repeated advance re-generated: %d calls", provider.questionCalls)
	}
}

func TestAnalysisFailureDoesNotBlockBatch(t *testing.T) {
	e, st, provider := newTestEngine(t)
	sess, err := e.CreateSession(context.Background(), SessionParams{Purpose: "p", ReportTarget: 10})
	if err != nil {
		t.Fatalf("create session: %v", err)
	}
	provider.failAnalysis = true
	answerRange(t, e, sess.ID, 1, survey.BatchSize)

	if got := len(st.sessionQuestions(sess.ID)); got != 2*survey.BatchSize {
		t.Fatalf("batch generation blocked by analysis failure: %d questions", got)
	}
	if got := len(st.sessionAnalyses(sess.ID)); got != 0 {
		t.Fatalf("failed analysis persisted: %d rows", got)
	}

	// The next observation retries the missing analysis.
	provider.failAnalysis = false
	if _, err := e.Advance(context.Background(), sess.ID); err != nil {
		t.Fatalf("advance: %v", err)
	}
	e.Wait()
	if got := len(st.sessionAnalyses(sess.ID)); got != 1 {
		t.Fatalf("analysis not retried: %d rows", got)
	}
}

func TestTargetGateStopsGeneration(t *testing.T) {
	e, st, _ := newTestEngine(t)
	sess, err := e.CreateSession(context.Background(), SessionParams{Purpose: "p", ReportTarget: 10})
	if err != nil {
		t.Fatalf("create session: %v", err)
	}
	answerRange(t, e, sess.ID, 1, survey.BatchSize)
	progress := answerRange(t, e, sess.ID, survey.BatchSize+1, 10)

	if got := len(st.sessionQuestions(sess.ID)); got != 10 {
		t.Fatalf("target gate did not hold: %d questions", got)
	}
	if !progress.CanFinalize || !progress.CanContinue {
		t.Fatalf("expected finalize and continue offers at target, got %+v", progress)
	}
	if got := len(st.sessionAnalyses(sess.ID)); got != 2 {
		t.Fatalf("expected 2 analyses at target, got %d", got)
	}
}

func TestContinueBeyondTargetOpensOneBatch(t *testing.T) {
	e, st, _ := newTestEngine(t)
	sess, err := e.CreateSession(context.Background(), SessionParams{Purpose: "p", ReportTarget: 10})
	if err != nil {
		t.Fatalf("create session: %v", err)
	}
	answerRange(t, e, sess.ID, 1, 10)

	progress, err := e.ContinueBeyondTarget(context.Background(), sess.ID)
	if err != nil {
		t.Fatalf("continue: %v", err)
	}
	if progress.NewQuestions != survey.BatchSize {
		t.Fatalf("continue generated %d questions", progress.NewQuestions)
	}
	if got := len(st.sessionQuestions(sess.ID)); got != 15 {
		t.Fatalf("expected 15 questions after continue, got %d", got)
	}

	// The permission is one-shot: the gate applies again at the next boundary.
	answerRange(t, e, sess.ID, 11, 15)
	if got := len(st.sessionQuestions(sess.ID)); got != 15 {
		t.Fatalf("gate did not re-apply after continue: %d questions", got)
	}
}

func TestContinueBeforeTargetRejected(t *testing.T) {
	e, _, _ := newTestEngine(t)
	sess, err := e.CreateSession(context.Background(), SessionParams{Purpose: "p", ReportTarget: 10})
	if err != nil {
		t.Fatalf("create session: %v", err)
	}
	answerRange(t, e, sess.ID, 1, 3)
	if _, err := e.ContinueBeyondTarget(context.Background(), sess.ID); !errors.Is(err, ErrValidation) {
		t.Fatalf("expected ErrValidation, got %v", err)
	}
}

func TestSubmitAnswerValidation(t *testing.T) {
	e, _, _ := newTestEngine(t)
	sess, err := e.CreateSession(context.Background(), SessionParams{Purpose: "p", ReportTarget: 10})
	if err != nil {
		t.Fatalf("create session: %v", err)
	}
	ctx := context.Background()
	cases := []struct {
		name    string
		index   int
		payload store.AnswerPayload
		want    error
	}{
		{"missing selection", 1, store.AnswerPayload{}, ErrValidation},
		{"option out of range", 1, store.AnswerPayload{SelectedOption: intPtr(9)}, ErrValidation},
		{"negative option", 1, store.AnswerPayload{SelectedOption: intPtr(-1)}, ErrValidation},
		{"free text option without text", 1, store.AnswerPayload{SelectedOption: intPtr(survey.FreeTextOption)}, ErrValidation},
		{"unknown question", 99, store.AnswerPayload{SelectedOption: intPtr(0)}, store.ErrNotFound},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if _, err := e.SubmitAnswer(ctx, sess.ID, tc.index, tc.payload); !errors.Is(err, tc.want) {
				t.Fatalf("expected %v, got %v", tc.want, err)
			}
		})
	}

	// The free-text escape with text attached is accepted.
	payload := store.AnswerPayload{SelectedOption: intPtr(survey.FreeTextOption), AnswerText: "none of these fit"}
	if _, err := e.SubmitAnswer(ctx, sess.ID, 1, payload); err != nil {
		t.Fatalf("free-text answer rejected: %v", err)
	}
	e.Wait()
}

func TestBatchGenerationFailureIsRetryable(t *testing.T) {
	e, st, provider := newTestEngine(t)
	sess, err := e.CreateSession(context.Background(), SessionParams{Purpose: "p", ReportTarget: 10})
	if err != nil {
		t.Fatalf("create session: %v", err)
	}
	answerRange(t, e, sess.ID, 1, survey.BatchSize-1)

	provider.failQuestions = true
	_, err = e.SubmitAnswer(context.Background(), sess.ID, survey.BatchSize, store.AnswerPayload{SelectedOption: intPtr(0)})
	if !errors.Is(err, ErrGeneration) {
		t.Fatalf("expected ErrGeneration, got %v", err)
	}
	e.Wait()

	// The answer is durable and a later advance resumes generation.
	provider.failQuestions = false
	progress, err := e.Advance(context.Background(), sess.ID)
	if err != nil {
		t.Fatalf("advance after failure: %v", err)
	}
	e.Wait()
	if progress.AnsweredCount != survey.BatchSize {
		t.Fatalf("answer lost on generation failure: %d answered", progress.AnsweredCount)
	}
	if got := len(st.sessionQuestions(sess.ID)); got != 2*survey.BatchSize {
		t.Fatalf("retry did not generate the batch: %d questions", got)
	}
}

func TestSubmitAnswerCompletedSessionRejected(t *testing.T) {
	e, st, _ := newTestEngine(t)
	sess, err := e.CreateSession(context.Background(), SessionParams{Purpose: "p", ReportTarget: 10})
	if err != nil {
		t.Fatalf("create session: %v", err)
	}
	st.mu.Lock()
	s := st.sessions[sess.ID]
	s.Status = store.SessionCompleted
	st.sessions[sess.ID] = s
	st.mu.Unlock()

	if _, err := e.SubmitAnswer(context.Background(), sess.ID, 1, store.AnswerPayload{SelectedOption: intPtr(0)}); !errors.Is(err, ErrValidation) {
		t.Fatalf("expected ErrValidation, got %v", err)
	}
}

func TestCreateSessionFromToken(t *testing.T) {
	e, st, _ := newTestEngine(t)
	preset, err := e.CreatePreset(context.Background(), PresetParams{
		Title:        "Onboarding survey",
		Purpose:      "Learn how onboarding lands",
		ReportTarget: 10,
		FixedQuestions: []store.FixedQuestion{
			{Text: "Onboarding was clear", Options: []string{"yes", "don't know", "no", "a", "b", "c"}},
		},
	})
	if err != nil {
		t.Fatalf("create preset: %v", err)
	}
	if preset.ShareToken == "" {
		t.Fatalf("preset has no share token")
	}
	sess, err := e.CreateSessionFromToken(context.Background(), preset.ShareToken)
	if err != nil {
		t.Fatalf("create session from token: %v", err)
	}
	if sess.PresetID == nil || *sess.PresetID != preset.ID {
		t.Fatalf("session not linked to preset")
	}
	qs := st.sessionQuestions(sess.ID)
	if len(qs) != survey.BatchSize {
		t.Fatalf("expected %d questions, got %d", survey.BatchSize, len(qs))
	}
	if qs[0].Source != store.SourceFixed || qs[0].Text != "Onboarding was clear" {
		t.Fatalf("fixed question not inherited: %+v", qs[0])
	}

	if _, err := e.CreateSessionFromToken(context.Background(), "no-such-token"); !errors.Is(err, store.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}
