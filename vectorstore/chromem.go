package vectorstore

import (
	"context"
	"fmt"
	"regexp"
	"strconv"

	"github.com/google/uuid"
	chromem "github.com/philippgille/chromem-go"

	"pdfchat/embeddings"
	"pdfchat/ingestion"
)

var collectionChars = regexp.MustCompile(`[^a-zA-Z0-9._-]+`)

// ChromemStore keeps embeddings in a chromem-go database persisted under a
// local directory. Each embedding model gets its own collection, so switching
// models never mixes embedding spaces.
type ChromemStore struct {
	collection *chromem.Collection
}

// OpenChromem opens the persistent database, creating the directory and the
// model-scoped collection as needed.
func OpenChromem(dir, model string, embedder embeddings.Embedder) (*ChromemStore, error) {
	db, err := chromem.NewPersistentDB(dir, false)
	if err != nil {
		return nil, fmt.Errorf("open vector directory: %w", err)
	}

	name := "docs-" + collectionChars.ReplaceAllString(model, "-")
	collection, err := db.GetOrCreateCollection(name, nil, embeddingFunc(embedder))
	if err != nil {
		return nil, fmt.Errorf("open collection %s: %w", name, err)
	}

	return &ChromemStore{collection: collection}, nil
}

func embeddingFunc(embedder embeddings.Embedder) chromem.EmbeddingFunc {
	return func(ctx context.Context, text string) ([]float32, error) {
		vectors, err := embedder.Embed(ctx, []string{text})
		if err != nil {
			return nil, err
		}
		if len(vectors) == 0 {
			return nil, fmt.Errorf("embedder returned no vectors")
		}
		return vectors[0], nil
	}
}

// Add appends one record per chunk. Records are embedded and written
// sequentially; when a call fails mid-batch the earlier records remain
// visible and the error is returned, so the caller reports the whole run as
// failed rather than silently dropping the rest.
func (s *ChromemStore) Add(ctx context.Context, chunks []ingestion.Chunk) error {
	for _, chunk := range chunks {
		doc := chromem.Document{
			ID:      uuid.New().String(),
			Content: chunk.Text,
			Metadata: map[string]string{
				"source":       chunk.Source,
				"chunk_id":     strconv.Itoa(chunk.Index),
				"total_chunks": strconv.Itoa(chunk.TotalChunks),
				"page":         strconv.Itoa(chunk.Page),
				"timestamp":    chunk.CreatedAt,
				"chunk_size":   strconv.Itoa(chunk.ByteLength),
				"position":     chunk.Position,
			},
		}
		if err := s.collection.AddDocument(ctx, doc); err != nil {
			return fmt.Errorf("add chunk %d: %w", chunk.Index, err)
		}
	}
	return nil
}

// Search embeds the query and returns the k most similar records, clamped to
// the number of stored records. An empty store yields an empty result.
func (s *ChromemStore) Search(ctx context.Context, query string, k int) ([]Record, error) {
	count := s.collection.Count()
	if count == 0 || k <= 0 {
		return nil, nil
	}
	if k > count {
		k = count
	}

	results, err := s.collection.Query(ctx, query, k, nil, nil)
	if err != nil {
		return nil, fmt.Errorf("query collection: %w", err)
	}

	records := make([]Record, 0, len(results))
	for _, res := range results {
		page, _ := strconv.Atoi(res.Metadata["page"])
		records = append(records, Record{
			ID:     res.ID,
			Text:   res.Content,
			Source: res.Metadata["source"],
			Page:   page,
			Score:  float64(res.Similarity),
		})
	}
	return records, nil
}

func (s *ChromemStore) Count(context.Context) (int, error) {
	return s.collection.Count(), nil
}

func (s *ChromemStore) Close() error { return nil }

var _ Store = (*ChromemStore)(nil)
