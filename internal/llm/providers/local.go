package providers

import (
	"context"
	"encoding/json"
	"fmt"
	"regexp"
	"strconv"
	"strings"
)

// LocalProvider is the deterministic fallback used when no API key is
// configured. It recognizes the question-generation prompt and answers with
// a well-formed canned batch, so the whole service runs end to end offline.
type LocalProvider struct{}

func NewLocalProvider() *LocalProvider {
	return &LocalProvider{}
}

var questionRequestRe = regexp.MustCompile(`Generate exactly (\d+) new questions for indices ([0-9, ]+)`)

func (l *LocalProvider) Chat(ctx context.Context, messages []Message, opts Options) (string, error) {
	if len(messages) == 0 {
		return "", fmt.Errorf("no messages provided")
	}
	last := messages[len(messages)-1].Content
	if m := questionRequestRe.FindStringSubmatch(last); m != nil {
		count, err := strconv.Atoi(m[1])
		if err != nil || count <= 0 {
			return "", fmt.Errorf("unparseable question request")
		}
		return cannedBatch(parseIndices(m[2], count)), nil
	}
	if strings.Contains(last, "reflective summary") {
		return "The respondent keeps weighing stability against curiosity; the answers so far lean on " +
			"familiar routines while leaving the door open to change.", nil
	}
	return "## Overview\n\nStub report generated without a configured model provider.\n", nil
}

func (l *LocalProvider) Name() string {
	return "local"
}

func parseIndices(raw string, count int) []int {
	var indices []int
	for _, part := range strings.Split(raw, ",") {
		if idx, err := strconv.Atoi(strings.TrimSpace(part)); err == nil {
			indices = append(indices, idx)
		}
	}
	for len(indices) < count {
		next := 1
		if len(indices) > 0 {
			next = indices[len(indices)-1] + 1
		}
		indices = append(indices, next)
	}
	return indices[:count]
}

func cannedBatch(indices []int) string {
	type question struct {
		Text    string   `json:"text"`
		Detail  string   `json:"detail"`
		Options []string `json:"options"`
	}
	questions := make([]question, 0, len(indices))
	for _, idx := range indices {
		questions = append(questions, question{
			Text:   fmt.Sprintf("Placeholder statement for question %d", idx),
			Detail: fmt.Sprintf("Locally generated stand-in for question %d; configure OPENAI_API_KEY for adaptive questions.", idx),
			Options: []string{
				"yes", "don't know", "no",
				"mostly, with reservations", "only in some situations", "it depends on others",
			},
		})
	}
	payload, _ := json.Marshal(map[string]interface{}{"questions": questions})
	return string(payload)
}
