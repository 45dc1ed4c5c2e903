package vectorstore

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/pgvector/pgvector-go"

	"pdfchat/config"
	"pdfchat/database"
	"pdfchat/embeddings"
	"pdfchat/ingestion"
)

// PostgresStore keeps embeddings in a pgvector-enabled Postgres table. Rows
// carry the embedding model, and every query filters on it, so records from
// different embedding spaces never mix.
type PostgresStore struct {
	pool     *pgxpool.Pool
	embedder embeddings.Embedder
	model    string
}

// OpenPostgres connects and ensures the schema for the configured embedding
// dimension.
func OpenPostgres(ctx context.Context, settings config.Settings, model string, embedder embeddings.Embedder) (*PostgresStore, error) {
	pool, err := database.NewPostgresPool(ctx, settings.PostgresDSN)
	if err != nil {
		return nil, err
	}
	if err := database.EnsureSchema(ctx, pool, settings.EmbeddingDimension); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ensure schema: %w", err)
	}

	return &PostgresStore{pool: pool, embedder: embedder, model: model}, nil
}

// Add embeds and inserts all chunks inside one transaction: either every
// chunk of the ingestion run becomes visible or none does.
func (s *PostgresStore) Add(ctx context.Context, chunks []ingestion.Chunk) (err error) {
	texts := make([]string, len(chunks))
	for i, chunk := range chunks {
		texts[i] = chunk.Text
	}

	vectors, err := s.embedder.Embed(ctx, texts)
	if err != nil {
		return fmt.Errorf("generate embeddings: %w", err)
	}
	if len(vectors) != len(chunks) {
		return fmt.Errorf("embedding count mismatch: have %d chunks, %d embeddings", len(chunks), len(vectors))
	}

	tx, err := s.pool.BeginTx(ctx, pgx.TxOptions{IsoLevel: pgx.ReadCommitted})
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback(ctx)
		}
	}()

	for i, chunk := range chunks {
		if _, err = tx.Exec(ctx, `
			INSERT INTO pdf_chunks (id, model, source, page, chunk_index, total_chunks, position, content, byte_length, embedding, created_at)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
		`, uuid.New(), s.model, chunk.Source, chunk.Page, chunk.Index, chunk.TotalChunks, chunk.Position,
			chunk.Text, chunk.ByteLength, pgvector.NewVector(vectors[i]), chunk.CreatedAt); err != nil {
			return fmt.Errorf("insert chunk %d: %w", chunk.Index, err)
		}
	}

	if err = tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit tx: %w", err)
	}
	return nil
}

// Search embeds the query and returns the k nearest records under L2
// distance, clamped to the number of stored records for the active model.
func (s *PostgresStore) Search(ctx context.Context, query string, k int) ([]Record, error) {
	if k <= 0 {
		return nil, nil
	}
	count, err := s.Count(ctx)
	if err != nil {
		return nil, err
	}
	if count == 0 {
		return nil, nil
	}
	if k > count {
		k = count
	}

	vectors, err := s.embedder.Embed(ctx, []string{query})
	if err != nil {
		return nil, fmt.Errorf("embed query: %w", err)
	}
	if len(vectors) == 0 {
		return nil, fmt.Errorf("embedder returned no vectors")
	}

	rows, err := s.pool.Query(ctx, `
		SELECT id, content, source, page, (embedding <-> $1::vector) AS distance
		FROM pdf_chunks
		WHERE model = $2
		ORDER BY embedding <-> $1::vector
		LIMIT $3
	`, pgvector.NewVector(vectors[0]), s.model, k)
	if err != nil {
		return nil, fmt.Errorf("query similar chunks: %w", err)
	}
	defer rows.Close()

	records := make([]Record, 0, k)
	for rows.Next() {
		var (
			record   Record
			distance float64
		)
		if err := rows.Scan(&record.ID, &record.Text, &record.Source, &record.Page, &distance); err != nil {
			return nil, fmt.Errorf("scan similar chunk: %w", err)
		}
		record.Score = 1 / (1 + distance)
		records = append(records, record)
	}
	if rows.Err() != nil {
		return nil, rows.Err()
	}

	return records, nil
}

func (s *PostgresStore) Count(ctx context.Context) (int, error) {
	var count int
	if err := s.pool.QueryRow(ctx, "SELECT COUNT(*) FROM pdf_chunks WHERE model = $1", s.model).Scan(&count); err != nil {
		return 0, fmt.Errorf("count chunks: %w", err)
	}
	return count, nil
}

func (s *PostgresStore) Close() error {
	s.pool.Close()
	return nil
}

var _ Store = (*PostgresStore)(nil)
