package providers

import "context"

// Message is one turn of model input.
type Message struct {
	Role    string
	Content string
}

// JSONSchema constrains a model call to structured output.
type JSONSchema struct {
	Name        string
	Description string
	Schema      map[string]interface{}
}

// Options tunes a single model call. The zero value leaves every knob at the
// provider's default.
type Options struct {
	Temperature     float64
	MaxTokens       int
	ReasoningEffort string
	Schema          *JSONSchema
}

// Provider is the text-generation capability the engine depends on.
type Provider interface {
	Chat(ctx context.Context, messages []Message, opts Options) (string, error)
	Name() string
}
