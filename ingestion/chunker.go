package ingestion

import "strings"

const (
	defaultChunkSize    = 300
	defaultChunkOverlap = 100
)

// Position of a chunk within its source document.
const (
	PositionStart  = "start"
	PositionMiddle = "middle"
	PositionEnd    = "end"
)

// Page holds the text extracted from a single document page. Numbers are 1-based.
type Page struct {
	Number int
	Text   string
}

// Chunk is the unit of embedding and retrieval: a bounded span of page text
// plus the metadata persisted alongside its vector.
type Chunk struct {
	Text        string
	Source      string
	Index       int
	TotalChunks int
	Page        int
	CreatedAt   string
	ByteLength  int
	Position    string
}

// Splitter cuts text into overlapping chunks. It prefers the earliest
// separator in its cascade that keeps pieces under the target size, falling
// back to a hard character boundary, so splits land mid-sentence only when
// nothing better exists.
type Splitter struct {
	size       int
	overlap    int
	separators []string
}

func NewSplitter(size, overlap int) *Splitter {
	if size <= 0 {
		size = defaultChunkSize
	}
	if overlap < 0 || overlap >= size {
		overlap = size / 3
	}
	return &Splitter{
		size:       size,
		overlap:    overlap,
		separators: []string{"\n\n", "\n", ".", "!", "?", " ", ""},
	}
}

// SplitPages chunks the extracted pages of one document and fills in chunk
// metadata. Indices are dense and 0-based across all pages of the run. An
// empty or whitespace-only page set yields no chunks.
func (s *Splitter) SplitPages(pages []Page, source, runStamp string) []Chunk {
	chunks := make([]Chunk, 0)
	for _, page := range pages {
		for _, piece := range s.Split(page.Text) {
			text := strings.TrimSpace(piece)
			if text == "" {
				continue
			}
			chunks = append(chunks, Chunk{
				Text:       text,
				Source:     source,
				Page:       page.Number,
				CreatedAt:  runStamp,
				ByteLength: len(text),
			})
		}
	}
	if len(chunks) == 0 {
		return nil
	}

	total := len(chunks)
	for i := range chunks {
		chunks[i].Index = i
		chunks[i].TotalChunks = total
		switch {
		case i == 0:
			chunks[i].Position = PositionStart
		case i == total-1:
			chunks[i].Position = PositionEnd
		default:
			chunks[i].Position = PositionMiddle
		}
	}
	return chunks
}

// Split divides text into pieces no longer than the target size plus one
// overlap's worth of carried context.
func (s *Splitter) Split(text string) []string {
	if strings.TrimSpace(text) == "" {
		return nil
	}
	return s.split(text, s.separators)
}

func (s *Splitter) split(text string, separators []string) []string {
	separator := ""
	var remaining []string
	for i, sep := range separators {
		if sep == "" {
			break
		}
		if strings.Contains(text, sep) {
			separator = sep
			remaining = separators[i+1:]
			break
		}
	}

	if separator == "" {
		if len(text) <= s.size {
			return []string{text}
		}
		return s.hardSplit(text)
	}

	var final, good []string
	for _, piece := range splitKeepSeparator(text, separator) {
		if len(piece) <= s.size {
			good = append(good, piece)
			continue
		}
		if len(good) > 0 {
			final = append(final, s.merge(good)...)
			good = nil
		}
		final = append(final, s.split(piece, remaining)...)
	}
	if len(good) > 0 {
		final = append(final, s.merge(good)...)
	}
	return final
}

// merge greedily packs separator-bounded pieces into chunks up to the target
// size, carrying at most one overlap's worth of trailing pieces into the next
// chunk.
func (s *Splitter) merge(pieces []string) []string {
	var (
		chunks []string
		window []string
		total  int
		fresh  int
	)

	flush := func() {
		if chunk := strings.TrimSpace(strings.Join(window, "")); chunk != "" {
			chunks = append(chunks, chunk)
		}
		kept := 0
		idx := len(window)
		for idx > 0 && kept+len(window[idx-1]) <= s.overlap {
			kept += len(window[idx-1])
			idx--
		}
		window = append([]string(nil), window[idx:]...)
		total = kept
		fresh = 0
	}

	for _, piece := range pieces {
		if total+len(piece) > s.size && fresh > 0 {
			flush()
		}
		window = append(window, piece)
		total += len(piece)
		fresh++
	}
	if fresh > 0 {
		flush()
	}
	return chunks
}

// hardSplit is the last-resort boundary: fixed-width rune windows with the
// configured overlap.
func (s *Splitter) hardSplit(text string) []string {
	runes := []rune(text)
	step := s.size - s.overlap
	if step <= 0 {
		step = s.size
	}

	pieces := make([]string, 0, len(runes)/step+1)
	for start := 0; start < len(runes); start += step {
		end := start + s.size
		if end >= len(runes) {
			pieces = append(pieces, string(runes[start:]))
			break
		}
		pieces = append(pieces, string(runes[start:end]))
	}
	return pieces
}

// splitKeepSeparator splits on the separator while keeping it attached to the
// preceding piece, so sentence punctuation survives chunking.
func splitKeepSeparator(text, separator string) []string {
	parts := strings.Split(text, separator)
	pieces := make([]string, 0, len(parts))
	for i, part := range parts {
		if i < len(parts)-1 {
			part += separator
		}
		if part == "" {
			continue
		}
		pieces = append(pieces, part)
	}
	return pieces
}
