package ingestion

import (
	"context"
	"fmt"
	"strings"

	"github.com/ledongthuc/pdf"
)

// Extractor produces per-page text from a staged document file.
type Extractor interface {
	Extract(ctx context.Context, path string) ([]Page, error)
}

// PDFExtractor reads the text layer page by page. Images are skipped; only
// text content is consulted.
type PDFExtractor struct{}

func (PDFExtractor) Extract(_ context.Context, path string) ([]Page, error) {
	file, reader, err := pdf.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open pdf: %w", err)
	}
	defer file.Close()

	pages := make([]Page, 0, reader.NumPage())
	for num := 1; num <= reader.NumPage(); num++ {
		page := reader.Page(num)
		if page.V.IsNull() {
			continue
		}
		text, err := page.GetPlainText(nil)
		if err != nil {
			return nil, fmt.Errorf("extract page %d: %w", num, err)
		}
		if strings.TrimSpace(text) == "" {
			continue
		}
		pages = append(pages, Page{Number: num, Text: text})
	}
	return pages, nil
}

var _ Extractor = PDFExtractor{}
