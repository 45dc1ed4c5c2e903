// Package vectorstore persists chunk embeddings and serves nearest-neighbor
// retrieval over them.
package vectorstore

import (
	"context"
	"fmt"

	"pdfchat/config"
	"pdfchat/embeddings"
	"pdfchat/ingestion"
)

// Record is the retrieval view of one stored chunk.
type Record struct {
	ID     string
	Text   string
	Source string
	Page   int
	Score  float64
}

// Store is a persistent embedding index scoped to the selected model.
type Store interface {
	Add(ctx context.Context, chunks []ingestion.Chunk) error
	Search(ctx context.Context, query string, k int) ([]Record, error)
	Count(ctx context.Context) (int, error)
	Close() error
}

// Open returns a handle to the configured backend, or (nil, nil) when the
// capability is not ready yet. Callers must treat the nil handle as "not
// configured", distinct from a transport error.
func Open(ctx context.Context, settings config.Settings, capability *config.Ollama) (Store, error) {
	if !capability.IsReady() {
		return nil, nil
	}

	embedder, err := embeddings.New(settings, capability)
	if err != nil {
		return nil, fmt.Errorf("embedder setup: %w", err)
	}

	switch settings.VectorBackend {
	case config.BackendPgvector:
		return OpenPostgres(ctx, settings, capability.SelectedModel(), embedder)
	case config.BackendChromem, "":
		return OpenChromem(settings.PersistDir, capability.SelectedModel(), embedder)
	default:
		return nil, fmt.Errorf("unknown vector backend: %s", settings.VectorBackend)
	}
}
