// Package chat answers questions from ingested documents: retrieval, answer
// synthesis with conversational memory, and source attribution.
package chat

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"

	"pdfchat/config"
	"pdfchat/llm"
	"pdfchat/vectorstore"
)

const retrievalLimit = 4

// Fixed user-facing strings. The UI layer and tests rely on these exact
// values; everything prefixed with "Error" is distinguishable from a genuine
// answer.
const (
	msgNotConfigured = "Error: Ollama is not configured. Please set up the server connection first."
	msgNoStore       = "Error: Could not initialize vector database. Please check your configuration."
	msgNoDocuments   = "No documents found. Please upload a PDF first."
	errPrefix        = "Error processing query: "
)

// Sentinel errors for the query pipeline, matched with errors.Is.
var (
	ErrNotConfigured = errors.New("inference server not configured")
	ErrNoStore       = errors.New("vector store unavailable")
	ErrEmptyCorpus   = errors.New("no documents ingested")
	ErrRetrieval     = errors.New("similarity search failed")
	ErrSynthesis     = errors.New("answer synthesis failed")
)

// Store is the slice of the vector store the query pipeline needs.
type Store interface {
	Search(ctx context.Context, query string, k int) ([]vectorstore.Record, error)
	Count(ctx context.Context) (int, error)
	Close() error
}

// OpenStore returns a store handle, or (nil, nil) when the server capability
// is not configured yet.
type OpenStore func(ctx context.Context) (Store, error)

// NewClient builds a chat client against the current configuration. Resolved
// per call so a model change between questions takes effect immediately.
type NewClient func() (llm.Client, error)

// Response is the typed outcome of one query. Sources are ordered by
// relevance, most relevant first.
type Response struct {
	Answer  string
	Sources []vectorstore.Record
}

type Service struct {
	capability *config.Ollama
	open       OpenStore
	newClient  NewClient
	memory     *Memory
	logger     *log.Logger
}

func NewService(capability *config.Ollama, open OpenStore, newClient NewClient, logger *log.Logger) *Service {
	if logger == nil {
		logger = log.Default()
	}
	return &Service{
		capability: capability,
		open:       open,
		newClient:  newClient,
		memory:     NewMemory(),
		logger:     logger,
	}
}

// Memory exposes the session's conversation history.
func (s *Service) Memory() *Memory {
	return s.memory
}

// Ask runs retrieval and synthesis for one question, returning a typed
// outcome. The conversation memory gains a turn only when synthesis succeeds.
func (s *Service) Ask(ctx context.Context, question string) (Response, error) {
	question = strings.TrimSpace(question)
	if question == "" {
		return Response{}, errors.New("question cannot be empty")
	}

	if !s.capability.IsReady() {
		return Response{}, ErrNotConfigured
	}

	store, err := s.open(ctx)
	if err != nil || store == nil {
		if err != nil {
			s.logger.Printf("open vector store: %v", err)
		}
		return Response{}, ErrNoStore
	}
	defer store.Close()

	count, err := store.Count(ctx)
	if err != nil {
		return Response{}, fmt.Errorf("%w: count records: %v", ErrRetrieval, err)
	}
	if count == 0 {
		return Response{}, ErrEmptyCorpus
	}

	k := retrievalLimit
	if count < k {
		k = count
	}

	records, err := store.Search(ctx, question, k)
	if err != nil {
		return Response{}, fmt.Errorf("%w: %v", ErrRetrieval, err)
	}

	client, err := s.newClient()
	if err != nil {
		return Response{}, fmt.Errorf("%w: %v", ErrSynthesis, err)
	}

	messages := make([]llm.Message, 0, s.memory.Len()*2+2)
	messages = append(messages, llm.Message{Role: llm.RoleSystem, Content: systemPrompt(records)})
	messages = append(messages, s.memory.Messages()...)
	messages = append(messages, llm.Message{Role: llm.RoleUser, Content: question})

	answer, err := client.Generate(ctx, messages)
	if err != nil {
		return Response{}, fmt.Errorf("%w: %v", ErrSynthesis, err)
	}
	answer = strings.TrimSpace(answer)

	s.memory.Add(question, answer)

	return Response{Answer: answer, Sources: records}, nil
}

// Answer wraps Ask with the fixed user-facing strings and appends the source
// list in retrieval order.
func (s *Service) Answer(ctx context.Context, question string) string {
	resp, err := s.Ask(ctx, question)
	switch {
	case err == nil:
	case errors.Is(err, ErrNotConfigured):
		return msgNotConfigured
	case errors.Is(err, ErrNoStore):
		return msgNoStore
	case errors.Is(err, ErrEmptyCorpus):
		return msgNoDocuments
	default:
		return errPrefix + err.Error()
	}
	return resp.Answer + FormatSources(resp.Sources)
}

// FormatSources renders the numbered citation list, most relevant first.
func FormatSources(records []vectorstore.Record) string {
	if len(records) == 0 {
		return ""
	}
	var sb strings.Builder
	sb.WriteString("\n\nSources:\n")
	for i, record := range records {
		sb.WriteString(fmt.Sprintf("%d. Document: %s, Page: %d\n", i+1, record.Source, record.Page))
	}
	return sb.String()
}

func systemPrompt(records []vectorstore.Record) string {
	var sb strings.Builder
	sb.WriteString("You are a helpful AI assistant. Use the following pieces of context to answer the user's question.\n")
	sb.WriteString("If you don't find the answer in the context, say \"I don't have enough information to answer this question.\"\n\nContext:\n")
	for _, record := range records {
		sb.WriteString(record.Text)
		sb.WriteString("\n\n")
	}
	return strings.TrimRight(sb.String(), "\n")
}
