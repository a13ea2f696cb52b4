package api

import (
	"time"

	"github.com/fathomsurvey/fathom/internal/engine"
	"github.com/fathomsurvey/fathom/internal/store"
)

type createSessionRequest struct {
	Purpose        string                `json:"purpose"`
	Background     string                `json:"background"`
	Instructions   string                `json:"instructions"`
	Themes         []string              `json:"themes"`
	ReportTarget   int                   `json:"report_target"`
	FixedQuestions []store.FixedQuestion `json:"fixed_questions"`
}

type createPresetRequest struct {
	Title          string                `json:"title"`
	Purpose        string                `json:"purpose"`
	Background     string                `json:"background"`
	Instructions   string                `json:"instructions"`
	Themes         []string              `json:"themes"`
	ReportTarget   int                   `json:"report_target"`
	FixedQuestions []store.FixedQuestion `json:"fixed_questions"`
}

type answerRequest struct {
	QuestionIndex   int    `json:"question_index"`
	SelectedOption  *int   `json:"selected_option,omitempty"`
	SelectedOptions []int  `json:"selected_options,omitempty"`
	AnswerText      string `json:"answer_text,omitempty"`
}

type answerView struct {
	SelectedOption  *int   `json:"selected_option,omitempty"`
	SelectedOptions []int  `json:"selected_options,omitempty"`
	AnswerText      string `json:"answer_text,omitempty"`
}

type questionView struct {
	Index   int         `json:"index"`
	Text    string      `json:"text"`
	Detail  string      `json:"detail,omitempty"`
	Options []string    `json:"options,omitempty"`
	Type    string      `json:"type"`
	Phase   string      `json:"phase"`
	Source  string      `json:"source"`
	Answer  *answerView `json:"answer,omitempty"`
}

type sessionView struct {
	Session   *store.Session   `json:"session"`
	Questions []questionView   `json:"questions"`
	Progress  *engine.Progress `json:"progress"`
}

type presetView struct {
	ID             string                `json:"id"`
	ShareToken     string                `json:"share_token"`
	Title          string                `json:"title"`
	Purpose        string                `json:"purpose"`
	Background     string                `json:"background,omitempty"`
	Instructions   string                `json:"instructions,omitempty"`
	Themes         []string              `json:"themes,omitempty"`
	FixedQuestions []store.FixedQuestion `json:"fixed_questions,omitempty"`
	ReportTarget   int                   `json:"report_target"`
	CreatedAt      time.Time             `json:"created_at"`
}

func questionViews(qs []store.QuestionWithAnswer) []questionView {
	views := make([]questionView, 0, len(qs))
	for _, q := range qs {
		view := questionView{
			Index:   q.Index,
			Text:    q.Text,
			Detail:  q.Detail,
			Options: q.OptionList(),
			Type:    q.Type,
			Phase:   q.Phase,
			Source:  q.Source,
		}
		if q.Answer != nil {
			view.Answer = &answerView{
				SelectedOption:  q.Answer.SelectedOption,
				SelectedOptions: q.Answer.SelectedList(),
				AnswerText:      q.Answer.AnswerText,
			}
		}
		views = append(views, view)
	}
	return views
}

func presetViewOf(p *store.Preset) presetView {
	return presetView{
		ID:             p.ID,
		ShareToken:     p.ShareToken,
		Title:          p.Title,
		Purpose:        p.Purpose,
		Background:     p.Background,
		Instructions:   p.Instructions,
		Themes:         p.ThemeList(),
		FixedQuestions: p.FixedQuestionList(),
		ReportTarget:   p.ReportTarget,
		CreatedAt:      p.CreatedAt,
	}
}
