package embeddings_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"pdfchat/embeddings"
)

func TestOllamaEmbed(t *testing.T) {
	var prompts []string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/embeddings" || r.Method != http.MethodPost {
			http.NotFound(w, r)
			return
		}
		var req struct {
			Model  string `json:"model"`
			Prompt string `json:"prompt"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		if req.Model != "nomic-embed-text" {
			t.Errorf("request model = %q", req.Model)
		}
		prompts = append(prompts, req.Prompt)
		json.NewEncoder(w).Encode(map[string]any{"embedding": []float64{0.5, 0.25}})
	}))
	defer srv.Close()

	embedder := embeddings.NewOllamaEmbedder(srv.URL, "nomic-embed-text")
	vectors, err := embedder.Embed(context.Background(), []string{"alpha", "bravo"})
	if err != nil {
		t.Fatalf("Embed: %v", err)
	}

	if len(vectors) != 2 {
		t.Fatalf("got %d vectors, want 2", len(vectors))
	}
	for i, vec := range vectors {
		if len(vec) != 2 || vec[0] != 0.5 || vec[1] != 0.25 {
			t.Fatalf("vector %d = %v", i, vec)
		}
	}
	if len(prompts) != 2 || prompts[0] != "alpha" || prompts[1] != "bravo" {
		t.Fatalf("server saw prompts %v", prompts)
	}
}

func TestOllamaEmbedServerError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "model not found", http.StatusNotFound)
	}))
	defer srv.Close()

	embedder := embeddings.NewOllamaEmbedder(srv.URL, "missing")
	_, err := embedder.Embed(context.Background(), []string{"alpha"})
	if err == nil {
		t.Fatal("expected error from failing server")
	}
	if !strings.Contains(err.Error(), "model not found") {
		t.Fatalf("error %q should carry the server message", err)
	}
}

func TestOllamaEmbedEmptyVector(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]any{"embedding": []float64{}})
	}))
	defer srv.Close()

	embedder := embeddings.NewOllamaEmbedder(srv.URL, "m")
	if _, err := embedder.Embed(context.Background(), []string{"alpha"}); err == nil {
		t.Fatal("expected error for empty embedding")
	}
}

func TestOllamaEmbedInlineError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]any{"error": "model is loading"})
	}))
	defer srv.Close()

	embedder := embeddings.NewOllamaEmbedder(srv.URL, "m")
	_, err := embedder.Embed(context.Background(), []string{"alpha"})
	if err == nil || !strings.Contains(err.Error(), "model is loading") {
		t.Fatalf("err = %v, want inline error surfaced", err)
	}
}
