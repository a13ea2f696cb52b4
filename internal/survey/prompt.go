package survey

import (
	"fmt"
	"strings"
)

// Prompt is the model input assembled by a builder: a fixed system
// instruction and the task-specific user content. Builders are deterministic
// string transforms; any non-determinism comes from the model call alone.
type Prompt struct {
	System string
	User   string
}

// QA is one question joined with its answer, the unit every prompt builder
// formats history from.
type QA struct {
	Index   int
	Text    string
	Detail  string
	Options []string
	Type    QuestionType
	Answer  AnswerValue
}

// AnswerLabel renders the answer as the literal text a reader would see:
// the chosen option, the joined option set, the free text, or a marker for
// no answer.
func (qa QA) AnswerLabel() string {
	switch qa.Answer.Kind {
	case AnswerChoice:
		if qa.Answer.Option >= 0 && qa.Answer.Option < len(qa.Options) {
			return qa.Options[qa.Answer.Option]
		}
		return fmt.Sprintf("option %d", qa.Answer.Option)
	case AnswerMultiChoice:
		labels := make([]string, 0, len(qa.Answer.Options))
		for _, opt := range qa.Answer.Options {
			if opt >= 0 && opt < len(qa.Options) {
				labels = append(labels, qa.Options[opt])
			} else {
				labels = append(labels, fmt.Sprintf("option %d", opt))
			}
		}
		return strings.Join(labels, "; ")
	case AnswerFreeText:
		return strings.TrimSpace(qa.Answer.Text)
	default:
		return "(no answer)"
	}
}

const questionSystemPrompt = "You are Fathom, a survey designer that adapts each question to what the respondent " +
	"has already said. You always answer with a single JSON object and nothing else."

const analysisSystemPrompt = "You are Fathom, a survey analyst. You write short reflective summaries of a " +
	"respondent's answers, treating contradictions as information rather than errors."

const reportSystemPrompt = "You are Fathom, a survey report writer. You write structured markdown reports that " +
	"cite the respondent's own answers."

// QuestionPromptInput feeds the batch question-generation builder.
type QuestionPromptInput struct {
	Goal       string
	Background string
	Themes     []string
	History    []QA
	Range      IndexRange
	Phase      Phase
	// Indices are the slots actually requested; fixed questions already
	// occupying part of the range are excluded by the caller.
	Indices []int
}

// BuildQuestionPrompt assembles the model input for one batch of questions.
func BuildQuestionPrompt(in QuestionPromptInput) Prompt {
	var b strings.Builder
	writeSection(&b, "Survey goal", in.Goal)
	writeSection(&b, "Background", in.Background)
	if len(in.Themes) > 0 {
		b.WriteString("Exploration themes:\n")
		for _, theme := range in.Themes {
			b.WriteString("- ")
			b.WriteString(strings.TrimSpace(theme))
			b.WriteString("\n")
		}
		b.WriteString("\n")
	}
	writeHistory(&b, "Answer history", in.History, false, 0)

	b.WriteString("Phase directive:\n")
	b.WriteString(PolicyText(in.Phase))
	b.WriteString("\n\n")

	indices := make([]string, 0, len(in.Indices))
	for _, idx := range in.Indices {
		indices = append(indices, fmt.Sprintf("%d", idx))
	}
	fmt.Fprintf(&b, "Generate exactly %d new questions for indices %s (batch Q%d-Q%d).\n\n",
		len(in.Indices), strings.Join(indices, ", "), in.Range.Start, in.Range.End)

	b.WriteString("Each question object must have:\n")
	b.WriteString("- \"text\": a declarative statement the respondent agrees or disagrees with, not an ")
	b.WriteString("interrogative sentence, roughly 30-50 characters.\n")
	b.WriteString("- \"detail\": supporting context for the statement, roughly 80-120 characters.\n")
	fmt.Fprintf(&b, "- \"options\": exactly %d strings in fixed slots. Slot 0 is \"yes\", slot 1 is "+
		"\"don't know\", slot 2 is \"no\". Slots 3 to 5 are three nuanced stances you predict this "+
		"respondent might take, derived from the answer history, ordered from most to least likely.\n\n", OptionCount)
	b.WriteString("Respond with one JSON object shaped {\"questions\": [...]} and no other prose.")

	return Prompt{System: questionSystemPrompt, User: b.String()}
}

// AnalysisPromptInput feeds the per-batch interim analysis builder.
type AnalysisPromptInput struct {
	Goal          string
	Background    string
	PriorAnalyses []string
	Batch         []QA
	Range         IndexRange
}

// BuildAnalysisPrompt assembles the model input for the reflective summary of
// one completed batch.
func BuildAnalysisPrompt(in AnalysisPromptInput) Prompt {
	var b strings.Builder
	writeSection(&b, "Survey goal", in.Goal)
	writeSection(&b, "Background", in.Background)
	if len(in.PriorAnalyses) > 0 {
		b.WriteString("Earlier analyses, oldest first:\n")
		for i, analysis := range in.PriorAnalyses {
			fmt.Fprintf(&b, "%d. %s\n", i+1, strings.TrimSpace(analysis))
		}
		b.WriteString("\n")
	}
	writeHistory(&b, fmt.Sprintf("Answers for Q%d-Q%d", in.Range.Start, in.Range.End), in.Batch, false, 0)

	b.WriteString("Write a reflective summary of roughly 200 characters describing the value or pattern ")
	b.WriteString("these answers reveal, continuing the thread of the earlier analyses. If answers ")
	b.WriteString("contradict each other or an earlier batch, describe the tension neutrally; do not ")
	b.WriteString("judge it. Respond with the summary text only.")

	return Prompt{System: analysisSystemPrompt, User: b.String()}
}

// ReportPromptInput feeds the per-respondent final report builder.
type ReportPromptInput struct {
	Goal         string
	Background   string
	Instructions string
	Analyses     []string
	History      []QA
}

// BuildReportPrompt assembles the model input for a respondent's narrative
// report. Every history item carries a [Q<n>] marker so the rendering layer
// can resolve citations back to the literal question and answer.
func BuildReportPrompt(in ReportPromptInput) Prompt {
	var b strings.Builder
	writeSection(&b, "Survey goal", in.Goal)
	writeSection(&b, "Background", in.Background)
	writeSection(&b, "Report customization instructions", in.Instructions)
	if len(in.Analyses) > 0 {
		b.WriteString("Interim analyses, oldest first:\n")
		for i, analysis := range in.Analyses {
			fmt.Fprintf(&b, "%d. %s\n", i+1, strings.TrimSpace(analysis))
		}
		b.WriteString("\n")
	}
	writeHistory(&b, "Full answer history", in.History, true, 0)

	b.WriteString("Write a markdown report with these sections, each under its own heading:\n")
	b.WriteString("1. Overview: 400-500 characters.\n")
	b.WriteString("2. Values: 600-1000 characters on what the answers show the respondent values, ")
	b.WriteString("citing answers as [Q<index>].\n")
	b.WriteString("3. Tensions: 600-1000 characters on contradictions and competing pulls, with [Q<index>] citations.\n")
	b.WriteString("4. Suggestions: 600-800 characters of actionable suggestions grounded in the answers.\n")
	b.WriteString("5. Closing: 300-500 characters.\n\n")
	b.WriteString("Cite only indices that appear in the history. Respond with the markdown report only.")

	return Prompt{System: reportSystemPrompt, User: b.String()}
}

// Respondent is one participant's history for the aggregate report.
type Respondent struct {
	Number  int
	History []QA
}

// SurveyReportPromptInput feeds the aggregate (multi-respondent) report
// builder.
type SurveyReportPromptInput struct {
	Goal         string
	Background   string
	Instructions string
	Respondents  []Respondent
}

// BuildSurveyReportPrompt assembles the model input for a report across all
// sessions under one preset. History items are marked [U<n>-Q<m>] so a claim
// can be attributed to a specific participant's specific answer.
func BuildSurveyReportPrompt(in SurveyReportPromptInput) Prompt {
	var b strings.Builder
	writeSection(&b, "Survey goal", in.Goal)
	writeSection(&b, "Background", in.Background)
	writeSection(&b, "Report customization instructions", in.Instructions)
	fmt.Fprintf(&b, "Respondents: %d\n\n", len(in.Respondents))
	for _, r := range in.Respondents {
		writeHistory(&b, fmt.Sprintf("Respondent %d", r.Number), r.History, true, r.Number)
	}
	b.WriteString("Write a markdown report synthesizing all respondents with these sections, each under ")
	b.WriteString("its own heading:\n")
	b.WriteString("1. Overview: 400-500 characters.\n")
	b.WriteString("2. Shared values: 600-1000 characters on values the group holds in common, citing ")
	b.WriteString("answers as [U<respondent>-Q<index>].\n")
	b.WriteString("3. Divergences: 600-1000 characters on where respondents pull apart, with citations.\n")
	b.WriteString("4. Suggestions: 600-800 characters of actionable suggestions for the survey owner.\n")
	b.WriteString("5. Closing: 300-500 characters.\n\n")
	b.WriteString("Cite only markers that appear above. Respond with the markdown report only.")

	return Prompt{System: reportSystemPrompt, User: b.String()}
}

func writeSection(b *strings.Builder, title, body string) {
	body = strings.TrimSpace(body)
	if body == "" {
		return
	}
	b.WriteString(title)
	b.WriteString(":\n")
	b.WriteString(body)
	b.WriteString("\n\n")
}

// writeHistory formats a Q/A block. With cite set, each item is prefixed with
// its citation marker; respondent > 0 switches to the aggregate marker form.
func writeHistory(b *strings.Builder, title string, items []QA, cite bool, respondent int) {
	if len(items) == 0 {
		return
	}
	b.WriteString(title)
	b.WriteString(":\n")
	for _, qa := range items {
		marker := fmt.Sprintf("Q%d", qa.Index)
		if cite {
			if respondent > 0 {
				marker = fmt.Sprintf("[U%d-Q%d]", respondent, qa.Index)
			} else {
				marker = fmt.Sprintf("[Q%d]", qa.Index)
			}
		}
		fmt.Fprintf(b, "%s %s\n", marker, strings.TrimSpace(qa.Text))
		if detail := strings.TrimSpace(qa.Detail); detail != "" {
			fmt.Fprintf(b, "  Detail: %s\n", detail)
		}
		if len(qa.Options) > 0 {
			fmt.Fprintf(b, "  Options: %s\n", strings.Join(qa.Options, " | "))
		}
		fmt.Fprintf(b, "  Answer: %s\n", qa.AnswerLabel())
	}
	b.WriteString("\n")
}
