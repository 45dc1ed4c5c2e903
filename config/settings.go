// Package config holds process settings and the Ollama server capability.
package config

import (
	"os"
	"strconv"

	"github.com/joho/godotenv"
)

const (
	ProviderOllama = "ollama"
	ProviderOpenAI = "openai"

	BackendChromem  = "chromem"
	BackendPgvector = "pgvector"
)

// Settings holds process-level configuration sourced from the environment.
type Settings struct {
	ListenAddr string

	TempDir    string
	PersistDir string

	VectorBackend      string
	PostgresDSN        string
	Provider           string
	EmbeddingDimension int

	OpenAIAPIKey  string
	OpenAIBaseURL string

	// Optional pre-configuration of the Ollama capability at startup.
	OllamaURL   string
	OllamaModel string
}

// LoadSettings reads settings from the environment, honoring a .env file when
// one is present in the working directory.
func LoadSettings() Settings {
	_ = godotenv.Load()

	return Settings{
		ListenAddr:         getEnv("LISTEN_ADDR", ":8080"),
		TempDir:            getEnv("TEMP_FOLDER", "./_temp"),
		PersistDir:         getEnv("PERSIST_DIRECTORY", "./_vectors"),
		VectorBackend:      getEnv("VECTOR_BACKEND", BackendChromem),
		PostgresDSN:        getEnv("POSTGRES_DSN", "postgres://localhost:5432/pdfchat?sslmode=disable"),
		Provider:           getEnv("INFERENCE_PROVIDER", ProviderOllama),
		EmbeddingDimension: getEnvInt("EMBEDDING_DIMENSION", 768),
		OpenAIAPIKey:       getEnv("OPENAI_API_KEY", ""),
		OpenAIBaseURL:      getEnv("OPENAI_BASE_URL", ""),
		OllamaURL:          getEnv("OLLAMA_URL", ""),
		OllamaModel:        getEnv("OLLAMA_MODEL", ""),
	}
}

func getEnv(key, fallback string) string {
	if value, ok := os.LookupEnv(key); ok && value != "" {
		return value
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	if value, ok := os.LookupEnv(key); ok && value != "" {
		if parsed, err := strconv.Atoi(value); err == nil {
			return parsed
		}
	}
	return fallback
}
