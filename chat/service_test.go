package chat_test

import (
	"context"
	"errors"
	"strings"
	"testing"

	"pdfchat/chat"
	"pdfchat/config"
	"pdfchat/llm"
	"pdfchat/vectorstore"
)

type stubStore struct {
	count     int
	countErr  error
	records   []vectorstore.Record
	searchErr error
	lastQuery string
	lastK     int
	closed    bool
}

var _ chat.Store = (*stubStore)(nil)

func (s *stubStore) Search(ctx context.Context, query string, k int) ([]vectorstore.Record, error) {
	s.lastQuery = query
	s.lastK = k
	return s.records, s.searchErr
}

func (s *stubStore) Count(ctx context.Context) (int, error) {
	return s.count, s.countErr
}

func (s *stubStore) Close() error {
	s.closed = true
	return nil
}

type stubLLM struct {
	answer string
	err    error
	calls  [][]llm.Message
}

var _ llm.Client = (*stubLLM)(nil)

func (s *stubLLM) Generate(ctx context.Context, messages []llm.Message) (string, error) {
	s.calls = append(s.calls, messages)
	return s.answer, s.err
}

func readyCapability() *config.Ollama {
	capability := config.NewOllama()
	capability.Configure("http://localhost:11434", "llama3")
	return capability
}

func newTestService(capability *config.Ollama, store *stubStore, client *stubLLM) *chat.Service {
	open := func(ctx context.Context) (chat.Store, error) {
		if store == nil {
			return nil, nil
		}
		return store, nil
	}
	newClient := func() (llm.Client, error) {
		return client, nil
	}
	return chat.NewService(capability, open, newClient, nil)
}

func TestAnswerNotConfigured(t *testing.T) {
	store := &stubStore{count: 1}
	client := &stubLLM{answer: "unused"}
	svc := newTestService(config.NewOllama(), store, client)

	got := svc.Answer(context.Background(), "what is this about?")
	if got != "Error: Ollama is not configured. Please set up the server connection first." {
		t.Fatalf("Answer = %q", got)
	}
	if len(client.calls) != 0 {
		t.Fatal("model should not be called when unconfigured")
	}
	if svc.Memory().Len() != 0 {
		t.Fatal("memory should not grow on failure")
	}
}

func TestAnswerNoStore(t *testing.T) {
	svc := newTestService(readyCapability(), nil, &stubLLM{})

	got := svc.Answer(context.Background(), "question")
	if got != "Error: Could not initialize vector database. Please check your configuration." {
		t.Fatalf("Answer = %q", got)
	}
}

func TestAnswerEmptyCorpus(t *testing.T) {
	store := &stubStore{count: 0}
	client := &stubLLM{answer: "unused"}
	svc := newTestService(readyCapability(), store, client)

	got := svc.Answer(context.Background(), "question")
	if got != "No documents found. Please upload a PDF first." {
		t.Fatalf("Answer = %q", got)
	}
	if len(client.calls) != 0 {
		t.Fatal("model should not be called for an empty corpus")
	}
}

func TestAskClampsRetrievalLimit(t *testing.T) {
	store := &stubStore{
		count:   2,
		records: []vectorstore.Record{{Text: "ctx", Source: "a.pdf", Page: 1}},
	}
	svc := newTestService(readyCapability(), store, &stubLLM{answer: "fine"})

	if _, err := svc.Ask(context.Background(), "question"); err != nil {
		t.Fatalf("Ask: %v", err)
	}
	if store.lastK != 2 {
		t.Fatalf("search k = %d, want clamped to count 2", store.lastK)
	}

	store.count = 10
	if _, err := svc.Ask(context.Background(), "question"); err != nil {
		t.Fatalf("Ask: %v", err)
	}
	if store.lastK != 4 {
		t.Fatalf("search k = %d, want default limit 4", store.lastK)
	}
}

func TestAnswerAppendsSources(t *testing.T) {
	store := &stubStore{
		count: 2,
		records: []vectorstore.Record{
			{Text: "chunk one", Source: "report.pdf", Page: 2, Score: 0.9},
			{Text: "chunk two", Source: "report.pdf", Page: 5, Score: 0.7},
		},
	}
	svc := newTestService(readyCapability(), store, &stubLLM{answer: "The answer."})

	got := svc.Answer(context.Background(), "question")
	want := "The answer.\n\nSources:\n1. Document: report.pdf, Page: 2\n2. Document: report.pdf, Page: 5\n"
	if got != want {
		t.Fatalf("Answer = %q, want %q", got, want)
	}
	if svc.Memory().Len() != 1 {
		t.Fatalf("memory has %d turns, want 1", svc.Memory().Len())
	}
	if !store.closed {
		t.Fatal("store was not closed")
	}
}

func TestAskCarriesConversationHistory(t *testing.T) {
	store := &stubStore{
		count:   1,
		records: []vectorstore.Record{{Text: "ctx", Source: "a.pdf", Page: 1}},
	}
	client := &stubLLM{answer: "answer one"}
	svc := newTestService(readyCapability(), store, client)

	if _, err := svc.Ask(context.Background(), "first question"); err != nil {
		t.Fatalf("first Ask: %v", err)
	}

	client.answer = "answer two"
	if _, err := svc.Ask(context.Background(), "second question"); err != nil {
		t.Fatalf("second Ask: %v", err)
	}

	if len(client.calls) != 2 {
		t.Fatalf("model called %d times, want 2", len(client.calls))
	}
	second := client.calls[1]
	if len(second) != 4 {
		t.Fatalf("second call has %d messages, want system + history pair + question", len(second))
	}
	if second[0].Role != llm.RoleSystem {
		t.Fatalf("message 0 role %q, want system", second[0].Role)
	}
	if second[1].Role != llm.RoleUser || second[1].Content != "first question" {
		t.Fatalf("message 1 = %+v, want prior question", second[1])
	}
	if second[2].Role != llm.RoleAssistant || second[2].Content != "answer one" {
		t.Fatalf("message 2 = %+v, want prior answer", second[2])
	}
	if second[3].Role != llm.RoleUser || second[3].Content != "second question" {
		t.Fatalf("message 3 = %+v, want current question", second[3])
	}
}

func TestAskSystemPromptCarriesContext(t *testing.T) {
	store := &stubStore{
		count:   1,
		records: []vectorstore.Record{{Text: "granite forms from cooling magma", Source: "geo.pdf", Page: 3}},
	}
	client := &stubLLM{answer: "ok"}
	svc := newTestService(readyCapability(), store, client)

	if _, err := svc.Ask(context.Background(), "how does granite form?"); err != nil {
		t.Fatalf("Ask: %v", err)
	}
	prompt := client.calls[0][0].Content
	if !strings.Contains(prompt, "granite forms from cooling magma") {
		t.Fatalf("system prompt missing retrieved context: %q", prompt)
	}
}

func TestAnswerRetrievalFailure(t *testing.T) {
	store := &stubStore{count: 3, searchErr: errors.New("index corrupt")}
	svc := newTestService(readyCapability(), store, &stubLLM{})

	got := svc.Answer(context.Background(), "question")
	if !strings.HasPrefix(got, "Error processing query: ") {
		t.Fatalf("Answer = %q, want error prefix", got)
	}
	if svc.Memory().Len() != 0 {
		t.Fatal("memory should not grow on failure")
	}
}

func TestAskSynthesisFailureKeepsMemory(t *testing.T) {
	store := &stubStore{
		count:   1,
		records: []vectorstore.Record{{Text: "ctx", Source: "a.pdf", Page: 1}},
	}
	client := &stubLLM{err: errors.New("model overloaded")}
	svc := newTestService(readyCapability(), store, client)

	_, err := svc.Ask(context.Background(), "question")
	if !errors.Is(err, chat.ErrSynthesis) {
		t.Fatalf("err = %v, want ErrSynthesis", err)
	}
	if svc.Memory().Len() != 0 {
		t.Fatal("memory should not grow when synthesis fails")
	}
}

func TestAskRejectsEmptyQuestion(t *testing.T) {
	svc := newTestService(readyCapability(), &stubStore{count: 1}, &stubLLM{})

	if _, err := svc.Ask(context.Background(), "   "); err == nil {
		t.Fatal("expected error for blank question")
	}
}

func TestFormatSources(t *testing.T) {
	if got := chat.FormatSources(nil); got != "" {
		t.Fatalf("FormatSources(nil) = %q, want empty", got)
	}

	records := []vectorstore.Record{
		{Source: "a.pdf", Page: 1},
		{Source: "b.pdf", Page: 12},
	}
	want := "\n\nSources:\n1. Document: a.pdf, Page: 1\n2. Document: b.pdf, Page: 12\n"
	if got := chat.FormatSources(records); got != want {
		t.Fatalf("FormatSources = %q, want %q", got, want)
	}
}
