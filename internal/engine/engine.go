package engine

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/fathomsurvey/fathom/internal/llm"
	"github.com/fathomsurvey/fathom/internal/store"
	"github.com/fathomsurvey/fathom/internal/survey"
)

var (
	// ErrValidation marks bad caller input, rejected before any side effect.
	ErrValidation = errors.New("invalid request")
	// ErrGeneration marks a failed model call or unusable model output. The
	// respondent-facing behavior is always "try again", never a crash.
	ErrGeneration = errors.New("generation failed")
	// ErrTooFewAnswers rejects finalization below one full batch.
	ErrTooFewAnswers = errors.New("not enough answers to finalize")
	// ErrNoSessions rejects aggregate generation over an empty preset.
	ErrNoSessions = errors.New("preset has no sessions")
	// ErrNoAnswers rejects aggregate generation when no session has a
	// single answered question.
	ErrNoAnswers = errors.New("no answers recorded")
	// ErrBusy reports that the same operation is already in flight for this
	// session or preset.
	ErrBusy = errors.New("operation already in flight")
)

// Store is the persistence capability the engine drives. *store.Store
// satisfies it; tests substitute fakes.
type Store interface {
	CreateSession(ctx context.Context, sess store.Session) error
	GetSession(ctx context.Context, id string) (*store.Session, error)
	UpdateSession(ctx context.Context, id string, upd store.SessionUpdate) error
	ListQuestionsWithAnswers(ctx context.Context, sessionID string) ([]store.QuestionWithAnswer, error)
	UpsertQuestions(ctx context.Context, rows []store.Question) (int, error)
	UpsertAnswer(ctx context.Context, questionID int64, payload store.AnswerPayload) (*store.Answer, error)
	InsertAnalysis(ctx context.Context, sessionID string, batchIndex, startIndex, endIndex int, content string) (*store.Analysis, error)
	ListAnalyses(ctx context.Context, sessionID string) ([]store.Analysis, error)
	InsertReport(ctx context.Context, sessionID string, version int, content string) (*store.Report, error)
	ListReportVersions(ctx context.Context, sessionID string) ([]int, error)
	CreatePreset(ctx context.Context, preset store.Preset) error
	GetPreset(ctx context.Context, id string) (*store.Preset, error)
	GetPresetByToken(ctx context.Context, token string) (*store.Preset, error)
	ListSessionsForPreset(ctx context.Context, presetID string) ([]store.Session, error)
	InsertSurveyReport(ctx context.Context, presetID string, version int) (*store.SurveyReport, error)
	UpdateSurveyReportStatus(ctx context.Context, id int64, status, content string) error
	ListSurveyReportVersions(ctx context.Context, presetID string) ([]int, error)
}

// questionBatchSchema constrains question-generation calls to the batch
// envelope, so most responses parse on the strict path.
var questionBatchSchema = llm.SchemaFor[survey.QuestionBatch]("question_batch", "Batch of generated survey questions")

// Engine orchestrates sessions: it observes stored state, derives the next
// actions through survey.Decide, and performs the model calls and writes
// those actions require. All durable state lives in the store; the only
// in-process state is the per-session in-flight guard.
type Engine struct {
	store    Store
	provider llm.Provider
	notifier Notifier

	mu       sync.Mutex
	inflight map[string]struct{}
	wg       sync.WaitGroup
}

// Option customizes engine construction.
type Option func(*Engine)

// WithNotifier replaces the default log-only completion notifier.
func WithNotifier(n Notifier) Option {
	return func(e *Engine) {
		if n != nil {
			e.notifier = n
		}
	}
}

func New(st Store, provider llm.Provider, opts ...Option) *Engine {
	e := &Engine{
		store:    st,
		provider: provider,
		notifier: logNotifier{},
		inflight: make(map[string]struct{}),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Wait blocks until fire-and-forget work (analysis generation) has drained.
// Used on shutdown and by tests.
func (e *Engine) Wait() {
	e.wg.Wait()
}

// begin claims the in-flight slot for key, returning false when the same
// operation is already running. The guard is process-local: one respondent
// drives one session, so session-scoped contention never crosses processes.
func (e *Engine) begin(key string) bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	if _, exists := e.inflight[key]; exists {
		return false
	}
	e.inflight[key] = struct{}{}
	return true
}

func (e *Engine) end(key string) {
	e.mu.Lock()
	defer e.mu.Unlock()
	delete(e.inflight, key)
}

func inflightKey(owner, kind string, n int) string {
	return fmt.Sprintf("%s|%s|%d", owner, kind, n)
}

// observation assembles the Decide snapshot from freshly read rows.
func observation(sess *store.Session, qs []store.QuestionWithAnswer, analyses []store.Analysis, continued bool) survey.Observation {
	obs := survey.Observation{
		ReportTarget:          sess.ReportTarget,
		ContinuedBeyondTarget: continued,
		AnalysisBatches:       make(map[int]bool, len(analyses)),
		ExistingIndices:       make(map[int]bool, len(qs)),
	}
	for _, a := range analyses {
		obs.AnalysisBatches[a.BatchIndex] = true
	}
	for _, q := range qs {
		obs.ExistingIndices[q.Index] = true
		if q.Answered() {
			obs.AnsweredCount++
		}
	}
	return obs
}

func answeredCount(qs []store.QuestionWithAnswer) int {
	count := 0
	for _, q := range qs {
		if q.Answered() {
			count++
		}
	}
	return count
}

// history converts stored rows into the prompt builders' Q/A form.
func history(qs []store.QuestionWithAnswer) []survey.QA {
	items := make([]survey.QA, 0, len(qs))
	for _, q := range qs {
		items = append(items, survey.QA{
			Index:   q.Index,
			Text:    q.Text,
			Detail:  q.Detail,
			Options: q.OptionList(),
			Type:    survey.QuestionType(q.Type),
			Answer:  q.Answer.Value(q.Type),
		})
	}
	return items
}

func analysisTexts(analyses []store.Analysis) []string {
	texts := make([]string, 0, len(analyses))
	for _, a := range analyses {
		texts = append(texts, a.Content)
	}
	return texts
}

func promptMessages(p survey.Prompt) []llm.Message {
	return []llm.Message{
		{Role: "system", Content: p.System},
		{Role: "user", Content: p.User},
	}
}
