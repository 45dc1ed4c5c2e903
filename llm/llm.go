// Package llm provides chat completion clients for answer synthesis.
package llm

import (
	"context"
	"fmt"

	"pdfchat/config"
)

const (
	RoleSystem    = "system"
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

type Message struct {
	Role    string
	Content string
}

// Client generates a complete answer from an ordered message sequence.
type Client interface {
	Generate(ctx context.Context, messages []Message) (string, error)
}

// New builds a Client for the selected provider, reading the endpoint and
// model from the capability at construction time.
func New(settings config.Settings, capability *config.Ollama) (Client, error) {
	switch settings.Provider {
	case config.ProviderOllama:
		return NewOllamaClient(capability.BaseURL(), capability.SelectedModel()), nil
	case config.ProviderOpenAI:
		if settings.OpenAIAPIKey == "" {
			return nil, fmt.Errorf("openai provider selected but OPENAI_API_KEY not set")
		}
		return NewOpenAIClient(settings.OpenAIAPIKey, settings.OpenAIBaseURL, capability.SelectedModel()), nil
	default:
		return nil, fmt.Errorf("unknown llm provider: %s", settings.Provider)
	}
}
