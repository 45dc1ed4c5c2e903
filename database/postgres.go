// Package database manages the Postgres connection and schema for the
// pgvector backend.
package database

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
)

func NewPostgresPool(ctx context.Context, dsn string) (*pgxpool.Pool, error) {
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, fmt.Errorf("create postgres pool: %w", err)
	}
	return pool, nil
}

// EnsureSchema creates the vector extension and the model-namespaced chunk
// table. The embedding dimension is fixed at table creation time.
func EnsureSchema(ctx context.Context, pool *pgxpool.Pool, dimension int) error {
	if dimension <= 0 {
		return fmt.Errorf("embedding dimension must be positive")
	}

	stmts := []string{
		"CREATE EXTENSION IF NOT EXISTS vector",
		fmt.Sprintf(`CREATE TABLE IF NOT EXISTS pdf_chunks (
			id UUID PRIMARY KEY,
			model TEXT NOT NULL,
			source TEXT NOT NULL,
			page INT NOT NULL,
			chunk_index INT NOT NULL,
			total_chunks INT NOT NULL,
			position TEXT NOT NULL,
			content TEXT NOT NULL,
			byte_length INT NOT NULL,
			embedding VECTOR(%d) NOT NULL,
			created_at TEXT NOT NULL
		)`, dimension),
		"CREATE INDEX IF NOT EXISTS idx_pdf_chunks_model ON pdf_chunks(model)",
		"CREATE INDEX IF NOT EXISTS idx_pdf_chunks_embedding ON pdf_chunks USING ivfflat (embedding vector_l2_ops)",
	}

	for _, stmt := range stmts {
		if _, err := pool.Exec(ctx, stmt); err != nil {
			return fmt.Errorf("execute schema statement: %w", err)
		}
	}
	return nil
}
