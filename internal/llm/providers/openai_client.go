package providers

import (
	"context"
	"fmt"
	"os"
	"strings"
	"time"

	openai "github.com/openai/openai-go"
	"github.com/openai/openai-go/responses"
	"github.com/openai/openai-go/shared"

	"github.com/fathomsurvey/fathom/internal/common"
)

type OpenAIProvider struct {
	client *openai.Client
	model  string
}

func NewOpenAIProvider(client *openai.Client) *OpenAIProvider {
	model := strings.TrimSpace(os.Getenv("OPENAI_MODEL"))
	if model == "" {
		model = "gpt-4o"
	}
	logger := common.Logger()
	logger.Info("llm: OpenAI provider configured", "model", model)
	return &OpenAIProvider{client: client, model: model}
}

func (o *OpenAIProvider) Chat(ctx context.Context, messages []Message, opts Options) (string, error) {
	if o.client == nil {
		return "", fmt.Errorf("nil openai client")
	}
	if len(messages) == 0 {
		return "", fmt.Errorf("no messages provided")
	}
	logger := common.Logger()
	logger.Debug("llm: sending response request", "model", o.model, "messages", len(messages))

	var instructions string
	input := make([]responses.ResponseInputItemUnionParam, 0, len(messages))
	for _, msg := range messages {
		switch strings.ToLower(msg.Role) {
		case "system":
			if instructions == "" {
				instructions = msg.Content
				continue
			}
			input = append(input, responses.ResponseInputItemParamOfMessage(msg.Content, responses.EasyInputMessageRoleDeveloper))
		default:
			input = append(input, responses.ResponseInputItemParamOfMessage(msg.Content, responses.EasyInputMessageRoleUser))
		}
	}

	params := responses.ResponseNewParams{
		Model: o.model,
		Input: responses.ResponseNewParamsInputUnion{OfInputItemList: input},
	}
	if instructions != "" {
		params.Instructions = openai.String(instructions)
	}
	if opts.MaxTokens > 0 {
		params.MaxOutputTokens = openai.Int(int64(opts.MaxTokens))
	}
	if opts.Temperature > 0 {
		params.Temperature = openai.Float(opts.Temperature)
	}
	if effort := strings.TrimSpace(opts.ReasoningEffort); effort != "" {
		params.Reasoning = shared.ReasoningParam{Effort: shared.ReasoningEffort(effort)}
	}
	if opts.Schema != nil {
		format := &responses.ResponseFormatTextJSONSchemaConfigParam{
			Name:   opts.Schema.Name,
			Schema: opts.Schema.Schema,
			Strict: openai.Bool(true),
			Type:   "json_schema",
		}
		if opts.Schema.Description != "" {
			format.Description = openai.String(opts.Schema.Description)
		}
		params.Text = responses.ResponseTextConfigParam{
			Format: responses.ResponseFormatTextConfigUnionParam{OfJSONSchema: format},
		}
	}

	resp, err := callWithRetry(ctx, o.client, params)
	if err != nil {
		logger.Error("llm: response request failed", "error", err)
		return "", err
	}
	text := strings.TrimSpace(resp.OutputText())
	if text == "" {
		return "", fmt.Errorf("empty model output")
	}
	logger.Debug("llm: response request succeeded", "chars", len(text))
	return text, nil
}

func (o *OpenAIProvider) Name() string {
	return "openai"
}

func callWithRetry(ctx context.Context, client *openai.Client, params responses.ResponseNewParams) (*responses.Response, error) {
	const maxRetries = 3
	rateLimitWaits := []time.Duration{15 * time.Second, 30 * time.Second, 60 * time.Second}
	serverErrorWaits := []time.Duration{2 * time.Second, 5 * time.Second, 10 * time.Second}

	for attempt := 0; attempt < maxRetries; attempt++ {
		resp, err := client.Responses.New(ctx, params)
		if err != nil {
			wait := time.Duration(0)
			switch {
			case isRateLimitError(err):
				wait = rateLimitWaits[attempt]
			case isServerError(err):
				wait = serverErrorWaits[attempt]
			default:
				return nil, err
			}
			if attempt == maxRetries-1 {
				return nil, err
			}
			common.Logger().Warn("llm: retrying after transient error", "attempt", attempt+1, "wait", wait, "error", err)
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(wait):
			}
			continue
		}
		return resp, nil
	}
	return nil, fmt.Errorf("failed after %d attempts", maxRetries)
}

func isRateLimitError(err error) bool {
	if err == nil {
		return false
	}
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "429") ||
		strings.Contains(msg, "rate limit") ||
		strings.Contains(msg, "too many requests")
}

func isServerError(err error) bool {
	if err == nil {
		return false
	}
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "500") ||
		strings.Contains(msg, "internal server error") ||
		strings.Contains(msg, "server_error")
}
