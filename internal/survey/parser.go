package survey

import (
	"encoding/json"
	"errors"
	"fmt"
	"regexp"
	"strings"
)

// ErrMalformedResponse marks model output that could not be turned into the
// structure a generation call asked for. Callers treat it as a whole-batch
// generation failure, never as a crash.
var ErrMalformedResponse = errors.New("malformed model response")

var (
	trailingCommaRe = regexp.MustCompile(`,\s*([}\]])`)
	adjacentObjRe   = regexp.MustCompile(`}\s*{`)
)

// ExtractJSONPayload pulls the JSON span out of free-form model text. A
// fenced code block wins when present, with any language tag after the
// opening fence discarded; otherwise the slice between the first "{" and the
// last "}" is taken. Returns "" when neither attempt yields content.
func ExtractJSONPayload(text string) string {
	if fenced := extractFencedBlock(text); fenced != "" {
		return fenced
	}
	start := strings.Index(text, "{")
	end := strings.LastIndex(text, "}")
	if start < 0 || end <= start {
		return ""
	}
	return strings.TrimSpace(text[start : end+1])
}

func extractFencedBlock(text string) string {
	open := strings.Index(text, "```")
	if open < 0 {
		return ""
	}
	rest := text[open+3:]
	if nl := strings.Index(rest, "\n"); nl >= 0 {
		tag := strings.TrimSpace(rest[:nl])
		if tag == "" || !strings.ContainsAny(tag, "{}") {
			rest = rest[nl+1:]
		}
	}
	closing := strings.Index(rest, "```")
	if closing < 0 {
		return ""
	}
	return strings.TrimSpace(rest[:closing])
}

// RepairJSON applies the bounded repair pass used when a strict parse fails:
// trailing commas before closing brackets are removed and adjacent objects
// get the comma the model dropped. Anything beyond that fails closed.
func RepairJSON(s string) string {
	s = trailingCommaRe.ReplaceAllString(s, "$1")
	s = adjacentObjRe.ReplaceAllString(s, "},{")
	return s
}

// GeneratedQuestion is one question object from a batch-generation response.
type GeneratedQuestion struct {
	Text    string   `json:"text"`
	Detail  string   `json:"detail"`
	Options []string `json:"options"`
}

// QuestionBatch is the envelope the generation prompt asks the model for.
// It also drives the structured-output schema handed to the model call.
type QuestionBatch struct {
	Questions []GeneratedQuestion `json:"questions"`
}

// ParseQuestionBatch extracts and validates a question batch from raw model
// output. want is the number of questions the prompt asked for; zero skips
// the count check. A single malformed question fails the whole batch so every
// persisted index in a batch originates from the same model call.
func ParseQuestionBatch(text string, want int) ([]GeneratedQuestion, error) {
	payload := ExtractJSONPayload(text)
	if payload == "" {
		return nil, fmt.Errorf("%w: no JSON payload found", ErrMalformedResponse)
	}
	var batch QuestionBatch
	if err := json.Unmarshal([]byte(payload), &batch); err != nil {
		if repairErr := json.Unmarshal([]byte(RepairJSON(payload)), &batch); repairErr != nil {
			return nil, fmt.Errorf("%w: %v", ErrMalformedResponse, err)
		}
	}
	if len(batch.Questions) == 0 {
		return nil, fmt.Errorf("%w: payload has no questions", ErrMalformedResponse)
	}
	if want > 0 && len(batch.Questions) != want {
		return nil, fmt.Errorf("%w: expected %d questions, got %d", ErrMalformedResponse, want, len(batch.Questions))
	}
	for i := range batch.Questions {
		q := &batch.Questions[i]
		q.Text = strings.TrimSpace(q.Text)
		q.Detail = strings.TrimSpace(q.Detail)
		if q.Text == "" {
			return nil, fmt.Errorf("%w: question %d has no text", ErrMalformedResponse, i+1)
		}
		if len(q.Options) != OptionCount {
			return nil, fmt.Errorf("%w: question %d has %d options, want %d", ErrMalformedResponse, i+1, len(q.Options), OptionCount)
		}
		for j, opt := range q.Options {
			q.Options[j] = strings.TrimSpace(opt)
		}
	}
	return batch.Questions, nil
}
