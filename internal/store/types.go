package store

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/fathomsurvey/fathom/internal/survey"
)

// Session lifecycle statuses.
const (
	SessionActive    = "active"
	SessionCompleted = "completed"
	SessionPaused    = "paused"
)

// Question sources.
const (
	SourceFixed = "fixed"
	SourceAI    = "ai"
)

// Aggregate report statuses.
const (
	SurveyReportGenerating = "generating"
	SurveyReportCompleted  = "completed"
	SurveyReportFailed     = "failed"
)

// Session is one respondent's run through a survey.
type Session struct {
	ID           string    `db:"id"`
	PresetID     *string   `db:"preset_id"`
	Purpose      string    `db:"purpose"`
	Background   string    `db:"background"`
	Instructions string    `db:"instructions"`
	Themes       string    `db:"themes"`
	PhaseProfile string    `db:"phase_profile"`
	ReportTarget int       `db:"report_target"`
	CurrentIndex int       `db:"current_index"`
	Status       string    `db:"status"`
	CreatedAt    time.Time `db:"created_at"`
	UpdatedAt    time.Time `db:"updated_at"`
}

// Profile decodes the stored phase profile.
func (s *Session) Profile() ([]survey.PhaseRange, error) {
	var profile []survey.PhaseRange
	if err := json.Unmarshal([]byte(s.PhaseProfile), &profile); err != nil {
		return nil, fmt.Errorf("decode phase profile: %w", err)
	}
	return profile, nil
}

// ThemeList decodes the stored exploration themes; malformed or empty
// columns yield nil.
func (s *Session) ThemeList() []string {
	return decodeStringList(s.Themes)
}

// Question belongs to one session at one 1-based index. Rows are never
// mutated after insert.
type Question struct {
	ID        int64     `db:"id"`
	SessionID string    `db:"session_id"`
	Index     int       `db:"question_index"`
	Text      string    `db:"question_text"`
	Detail    string    `db:"detail"`
	Options   string    `db:"options"`
	Type      string    `db:"question_type"`
	Phase     string    `db:"phase"`
	Source    string    `db:"source"`
	CreatedAt time.Time `db:"created_at"`
}

// OptionList decodes the stored option array.
func (q *Question) OptionList() []string {
	return decodeStringList(q.Options)
}

// Answer is the single answer row for a question, upserted on every submit.
type Answer struct {
	ID              int64     `db:"id"`
	QuestionID      int64     `db:"question_id"`
	SelectedOption  *int      `db:"selected_option"`
	SelectedOptions *string   `db:"selected_options"`
	AnswerText      string    `db:"answer_text"`
	CreatedAt       time.Time `db:"created_at"`
	UpdatedAt       time.Time `db:"updated_at"`
}

// SelectedList decodes the checkbox selection set.
func (a *Answer) SelectedList() []int {
	if a == nil || a.SelectedOptions == nil {
		return nil
	}
	var out []int
	if err := json.Unmarshal([]byte(*a.SelectedOptions), &out); err != nil {
		return nil
	}
	return out
}

// Value decodes the row into the tagged answer variant for the question's
// type.
func (a *Answer) Value(questionType string) survey.AnswerValue {
	if a == nil {
		return survey.Unanswered()
	}
	return survey.AnswerFromParts(survey.QuestionType(questionType), a.SelectedOption, a.SelectedList(), a.AnswerText)
}

// QuestionWithAnswer joins a question to its answer row, when one exists.
type QuestionWithAnswer struct {
	Question
	Answer *Answer
}

// Answered reports whether the joined answer actually answers the question.
func (q QuestionWithAnswer) Answered() bool {
	return q.Answer.Value(q.Type).Answered()
}

// AnswerPayload carries a respondent's submission for one question.
type AnswerPayload struct {
	SelectedOption  *int
	SelectedOptions []int
	AnswerText      string
}

// Analysis is the interim summary of one completed batch.
type Analysis struct {
	ID         int64     `db:"id"`
	SessionID  string    `db:"session_id"`
	BatchIndex int       `db:"batch_index"`
	StartIndex int       `db:"start_index"`
	EndIndex   int       `db:"end_index"`
	Content    string    `db:"content"`
	CreatedAt  time.Time `db:"created_at"`
}

// Report is one version of a session's narrative report.
type Report struct {
	ID        int64     `db:"id"`
	SessionID string    `db:"session_id"`
	Version   int       `db:"version"`
	Content   string    `db:"content"`
	CreatedAt time.Time `db:"created_at"`
}

// Preset groups many sessions under one shareable configuration.
type Preset struct {
	ID             string    `db:"id"`
	ShareToken     string    `db:"share_token"`
	Title          string    `db:"title"`
	Purpose        string    `db:"purpose"`
	Background     string    `db:"background"`
	Instructions   string    `db:"instructions"`
	Themes         string    `db:"themes"`
	FixedQuestions string    `db:"fixed_questions"`
	ReportTarget   int       `db:"report_target"`
	CreatedAt      time.Time `db:"created_at"`
}

// FixedQuestion is an author-authored question shown verbatim to every
// respondent.
type FixedQuestion struct {
	Text    string   `json:"text"`
	Detail  string   `json:"detail,omitempty"`
	Options []string `json:"options,omitempty"`
	Type    string   `json:"type,omitempty"`
}

// FixedQuestionList decodes the preset's fixed questions.
func (p *Preset) FixedQuestionList() []FixedQuestion {
	if p == nil {
		return nil
	}
	var out []FixedQuestion
	if err := json.Unmarshal([]byte(p.FixedQuestions), &out); err != nil {
		return nil
	}
	return out
}

// ThemeList decodes the preset's exploration themes.
func (p *Preset) ThemeList() []string {
	if p == nil {
		return nil
	}
	return decodeStringList(p.Themes)
}

// SurveyReport is one version of the aggregate report across all sessions
// under a preset.
type SurveyReport struct {
	ID        int64     `db:"id"`
	PresetID  string    `db:"preset_id"`
	Version   int       `db:"version"`
	Status    string    `db:"status"`
	Content   string    `db:"content"`
	CreatedAt time.Time `db:"created_at"`
	UpdatedAt time.Time `db:"updated_at"`
}

// EncodeStringList renders values as the JSON array form used by the list
// columns (question options, preset themes).
func EncodeStringList(values []string) string {
	return encodeJSON(values)
}

func decodeStringList(raw string) []string {
	if raw == "" {
		return nil
	}
	var out []string
	if err := json.Unmarshal([]byte(raw), &out); err != nil {
		return nil
	}
	return out
}

func encodeJSON(v interface{}) string {
	data, err := json.Marshal(v)
	if err != nil {
		return "[]"
	}
	return string(data)
}
