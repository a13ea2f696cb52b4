package survey

import "strings"

// QuestionType identifies the input widget a question renders with and the
// shape of answer it accepts.
type QuestionType string

const (
	QuestionRadio    QuestionType = "radio"
	QuestionCheckbox QuestionType = "checkbox"
	QuestionScale    QuestionType = "scale"
	QuestionText     QuestionType = "text"
	QuestionTextarea QuestionType = "textarea"
)

// OptionCount is the fixed number of options every generated question
// carries. Slots 0..2 are always yes / don't know / no; slots 3..5 are
// model-predicted stances ordered by likelihood.
const OptionCount = 6

// FreeTextOption is the wire value clients send for "none of the options":
// one past the option array. It is decoded into an explicit FreeText answer
// rather than kept as an out-of-range index.
const FreeTextOption = OptionCount

// AnswerKind discriminates the AnswerValue union.
type AnswerKind int

const (
	AnswerUnanswered AnswerKind = iota
	AnswerChoice
	AnswerMultiChoice
	AnswerFreeText
)

// AnswerValue is a respondent's answer as a tagged variant: a single option
// choice, a set of options, free text, or nothing yet.
type AnswerValue struct {
	Kind    AnswerKind
	Option  int
	Options []int
	Text    string
}

func Unanswered() AnswerValue { return AnswerValue{Kind: AnswerUnanswered} }

func Choice(option int) AnswerValue {
	return AnswerValue{Kind: AnswerChoice, Option: option}
}

func MultiChoice(options []int) AnswerValue {
	return AnswerValue{Kind: AnswerMultiChoice, Options: append([]int(nil), options...)}
}

func FreeText(text string) AnswerValue {
	return AnswerValue{Kind: AnswerFreeText, Text: text}
}

// Answered reports whether the value carries an actual answer.
func (v AnswerValue) Answered() bool {
	switch v.Kind {
	case AnswerChoice:
		return true
	case AnswerMultiChoice:
		return len(v.Options) > 0
	case AnswerFreeText:
		return strings.TrimSpace(v.Text) != ""
	default:
		return false
	}
}

// AnswerFromParts decodes the stored answer columns for a question of the
// given type into an AnswerValue. A selected option equal to FreeTextOption
// is folded into the free-text variant.
func AnswerFromParts(qt QuestionType, selected *int, selectedOptions []int, text string) AnswerValue {
	switch qt {
	case QuestionCheckbox:
		if len(selectedOptions) == 0 {
			return Unanswered()
		}
		return MultiChoice(selectedOptions)
	case QuestionText, QuestionTextarea:
		if strings.TrimSpace(text) == "" {
			return Unanswered()
		}
		return FreeText(text)
	default:
		if selected == nil {
			return Unanswered()
		}
		if *selected == FreeTextOption {
			if strings.TrimSpace(text) == "" {
				return Unanswered()
			}
			return FreeText(text)
		}
		return Choice(*selected)
	}
}
