// Package embeddings converts text into vectors via the configured provider.
package embeddings

import (
	"context"
	"fmt"

	"pdfchat/config"
)

// Embedder converts a batch of texts into fixed-length vectors.
type Embedder interface {
	Embed(ctx context.Context, texts []string) ([][]float32, error)
}

// New builds an Embedder for the selected provider, reading the endpoint and
// model from the capability at construction time.
func New(settings config.Settings, capability *config.Ollama) (Embedder, error) {
	switch settings.Provider {
	case config.ProviderOllama:
		return NewOllamaEmbedder(capability.BaseURL(), capability.SelectedModel()), nil
	case config.ProviderOpenAI:
		if settings.OpenAIAPIKey == "" {
			return nil, fmt.Errorf("openai provider selected but OPENAI_API_KEY not set")
		}
		return NewOpenAIEmbedder(settings.OpenAIAPIKey, settings.OpenAIBaseURL, capability.SelectedModel()), nil
	default:
		return nil, fmt.Errorf("unknown embedding provider: %s", settings.Provider)
	}
}
