package config

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"sort"
	"strings"
	"sync"
	"time"
)

// Ollama tracks the inference server endpoint and model selection. Writes go
// through the configuration surface only; the ingestion and query paths read
// it concurrently.
type Ollama struct {
	mu              sync.RWMutex
	baseURL         string
	selectedModel   string
	availableModels []string

	client *http.Client
}

type tagsResponse struct {
	Models []struct {
		Name string `json:"name"`
	} `json:"models"`
}

func NewOllama() *Ollama {
	return &Ollama{
		client: &http.Client{Timeout: 10 * time.Second},
	}
}

// SetBaseURL validates the URL by listing the server's models. On success the
// model list is refreshed and, if no model is selected yet, the first entry
// becomes the default.
func (o *Ollama) SetBaseURL(ctx context.Context, rawURL string) error {
	url := strings.TrimRight(strings.TrimSpace(rawURL), "/") + "/"
	models, err := o.fetchModels(ctx, url)
	if err != nil {
		return err
	}

	o.mu.Lock()
	defer o.mu.Unlock()
	o.baseURL = url
	o.availableModels = models
	if o.selectedModel == "" && len(models) > 0 {
		o.selectedModel = models[0]
	}
	return nil
}

// RefreshModels re-reads the model list from the configured server.
func (o *Ollama) RefreshModels(ctx context.Context) ([]string, error) {
	base := o.BaseURL()
	if base == "" {
		return nil, fmt.Errorf("no base URL configured")
	}

	models, err := o.fetchModels(ctx, base)
	if err != nil {
		return nil, err
	}

	o.mu.Lock()
	o.availableModels = models
	o.mu.Unlock()
	return models, nil
}

func (o *Ollama) fetchModels(ctx context.Context, base string) ([]string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, base+"api/tags", nil)
	if err != nil {
		return nil, fmt.Errorf("create tags request: %w", err)
	}

	resp, err := o.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("connect to ollama: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("ollama tags returned status %s", resp.Status)
	}

	var parsed tagsResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return nil, fmt.Errorf("decode tags response: %w", err)
	}

	models := make([]string, 0, len(parsed.Models))
	for _, model := range parsed.Models {
		if model.Name != "" {
			models = append(models, model.Name)
		}
	}
	sort.Strings(models)
	return models, nil
}

// SetSelectedModel picks a model from the available list.
func (o *Ollama) SetSelectedModel(model string) error {
	o.mu.Lock()
	defer o.mu.Unlock()

	for _, name := range o.availableModels {
		if name == model {
			o.selectedModel = model
			return nil
		}
	}
	return fmt.Errorf("model %s not available", model)
}

// Configure sets the endpoint and model without probing the server. Intended
// for embedding the pipeline in other programs and for tests.
func (o *Ollama) Configure(baseURL, model string) {
	o.mu.Lock()
	defer o.mu.Unlock()

	if baseURL != "" {
		o.baseURL = strings.TrimRight(strings.TrimSpace(baseURL), "/") + "/"
	}
	o.selectedModel = model
}

func (o *Ollama) BaseURL() string {
	o.mu.RLock()
	defer o.mu.RUnlock()
	return o.baseURL
}

func (o *Ollama) SelectedModel() string {
	o.mu.RLock()
	defer o.mu.RUnlock()
	return o.selectedModel
}

func (o *Ollama) AvailableModels() []string {
	o.mu.RLock()
	defer o.mu.RUnlock()
	return append([]string(nil), o.availableModels...)
}

// IsReady reports whether both an endpoint and a model are configured.
func (o *Ollama) IsReady() bool {
	o.mu.RLock()
	defer o.mu.RUnlock()
	return o.baseURL != "" && o.selectedModel != ""
}
