// Package ingestion turns uploaded PDF documents into stored, searchable chunks.
package ingestion

import (
	"context"
	"errors"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"time"
)

// Sentinel errors for the ingestion pipeline. Callers branch on these with
// errors.Is instead of parsing messages.
var (
	ErrNotConfigured = errors.New("inference server not configured")
	ErrEmptyDocument = errors.New("no extractable text in document")
	ErrNoChunks      = errors.New("document produced no chunks")
	ErrStorage       = errors.New("vector storage failed")
)

var unsafeChars = regexp.MustCompile(`[^a-zA-Z0-9._-]+`)

// Store is the slice of the vector store the pipeline needs.
type Store interface {
	Add(ctx context.Context, chunks []Chunk) error
	Close() error
}

// OpenStore returns a store handle, or (nil, nil) when the server capability
// is not configured yet.
type OpenStore func(ctx context.Context) (Store, error)

type Service struct {
	tempDir   string
	splitter  *Splitter
	extractor Extractor
	open      OpenStore
	logger    *log.Logger
}

// NewService wires the ingestion pipeline. A nil extractor defaults to the
// PDF extractor.
func NewService(tempDir string, extractor Extractor, open OpenStore, logger *log.Logger) *Service {
	if extractor == nil {
		extractor = PDFExtractor{}
	}
	if logger == nil {
		logger = log.Default()
	}
	return &Service{
		tempDir:   tempDir,
		splitter:  NewSplitter(defaultChunkSize, defaultChunkOverlap),
		extractor: extractor,
		open:      open,
		logger:    logger,
	}
}

// Ingest stages the uploaded bytes under a collision-free temp name, extracts
// and chunks the text, and stores the chunks in the vector index. The staged
// file is removed on every exit path.
func (s *Service) Ingest(ctx context.Context, data []byte, name string) error {
	if err := os.MkdirAll(s.tempDir, 0o755); err != nil {
		return fmt.Errorf("create temp dir: %w", err)
	}

	stamp := time.Now().Format("20060102_150405")
	source := SanitizeFilename(name)
	tempPath := filepath.Join(s.tempDir, stamp+"_"+source)
	if err := os.WriteFile(tempPath, data, 0o644); err != nil {
		return fmt.Errorf("stage upload: %w", err)
	}
	defer func() {
		if err := os.Remove(tempPath); err != nil && !os.IsNotExist(err) {
			s.logger.Printf("remove temp file %s: %v", tempPath, err)
		}
	}()

	pages, err := s.extractor.Extract(ctx, tempPath)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrEmptyDocument, err)
	}
	if len(pages) == 0 {
		return fmt.Errorf("%w: %s", ErrEmptyDocument, source)
	}

	chunks := s.splitter.SplitPages(pages, source, stamp)
	if len(chunks) == 0 {
		return fmt.Errorf("%w: %s", ErrNoChunks, source)
	}

	store, err := s.open(ctx)
	if err != nil {
		return fmt.Errorf("%w: open store: %v", ErrStorage, err)
	}
	if store == nil {
		return ErrNotConfigured
	}
	defer store.Close()

	if err := store.Add(ctx, chunks); err != nil {
		return fmt.Errorf("%w: %v", ErrStorage, err)
	}

	s.logger.Printf("ingested %s (%d pages, %d chunks)", source, len(pages), len(chunks))
	return nil
}

// SanitizeFilename strips path components and characters unsafe for a
// filesystem name.
func SanitizeFilename(name string) string {
	base := filepath.Base(strings.ReplaceAll(name, "\\", "/"))
	clean := unsafeChars.ReplaceAllString(base, "_")
	clean = strings.Trim(clean, "._")
	if clean == "" {
		clean = "document"
	}
	return clean
}
