// Package api exposes the ingestion and query pipelines over HTTP for UI
// frontends and scripts.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"net/http"
	"path/filepath"
	"strings"

	"pdfchat/chat"
	"pdfchat/config"
	"pdfchat/ingestion"
)

const maxUploadBytes = 64 << 20

// Ingestor runs the document ingestion pipeline.
type Ingestor interface {
	Ingest(ctx context.Context, data []byte, name string) error
}

// Asker answers a question with citations already appended, and owns the
// session's conversation memory.
type Asker interface {
	Answer(ctx context.Context, question string) string
	Memory() *chat.Memory
}

// Server exposes HTTP handlers for the core pdfchat workflows.
type Server struct {
	capability *config.Ollama
	ingestor   Ingestor
	asker      Asker
	logger     *log.Logger
	handler    http.Handler
}

type messageResponse struct {
	Message string `json:"message"`
}

type errorResponse struct {
	Error string `json:"error"`
}

type configResponse struct {
	BaseURL string   `json:"baseUrl"`
	Model   string   `json:"model"`
	Models  []string `json:"models"`
	Ready   bool     `json:"ready"`
}

type configRequest struct {
	BaseURL string `json:"baseUrl"`
	Model   string `json:"model"`
}

type modelsResponse struct {
	Models []string `json:"models"`
}

type chatRequest struct {
	Question string `json:"question"`
}

type chatResponse struct {
	Answer string `json:"answer"`
}

func New(capability *config.Ollama, ingestor Ingestor, asker Asker, logger *log.Logger) *Server {
	if logger == nil {
		logger = log.Default()
	}

	s := &Server{capability: capability, ingestor: ingestor, asker: asker, logger: logger}
	s.handler = s.routes()
	return s
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.handler.ServeHTTP(w, r)
}

func (s *Server) Handler() http.Handler {
	return s.handler
}

func (s *Server) routes() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", s.handleHealth)
	mux.HandleFunc("/v1/config", s.handleConfig)
	mux.HandleFunc("/v1/models", s.handleModels)
	mux.HandleFunc("/v1/documents", s.handleUpload)
	mux.HandleFunc("/v1/chat", s.handleChat)
	mux.HandleFunc("/v1/session/clear", s.handleSessionClear)
	return mux
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		s.methodNotAllowed(w, http.MethodGet)
		return
	}
	s.writeJSON(w, http.StatusOK, messageResponse{Message: "ok"})
}

func (s *Server) handleConfig(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		s.writeJSON(w, http.StatusOK, s.configSnapshot())
	case http.MethodPost:
		var req configRequest
		if err := decodeJSON(r, &req); err != nil {
			s.writeError(w, http.StatusBadRequest, fmt.Errorf("decode request: %w", err))
			return
		}
		if strings.TrimSpace(req.BaseURL) == "" && strings.TrimSpace(req.Model) == "" {
			s.writeError(w, http.StatusBadRequest, fmt.Errorf("baseUrl or model is required"))
			return
		}

		if url := strings.TrimSpace(req.BaseURL); url != "" {
			if err := s.capability.SetBaseURL(r.Context(), url); err != nil {
				s.writeError(w, http.StatusBadGateway, fmt.Errorf("connect to ollama: %w", err))
				return
			}
		}
		if model := strings.TrimSpace(req.Model); model != "" {
			if err := s.capability.SetSelectedModel(model); err != nil {
				s.writeError(w, http.StatusBadRequest, err)
				return
			}
		}
		s.writeJSON(w, http.StatusOK, s.configSnapshot())
	default:
		s.methodNotAllowed(w, "GET, POST")
	}
}

func (s *Server) handleModels(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		s.methodNotAllowed(w, http.MethodGet)
		return
	}

	models, err := s.capability.RefreshModels(r.Context())
	if err != nil {
		s.writeError(w, http.StatusBadGateway, fmt.Errorf("list models: %w", err))
		return
	}
	s.writeJSON(w, http.StatusOK, modelsResponse{Models: models})
}

func (s *Server) handleUpload(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		s.methodNotAllowed(w, http.MethodPost)
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, maxUploadBytes)
	file, header, err := r.FormFile("file")
	if err != nil {
		s.writeError(w, http.StatusBadRequest, fmt.Errorf("read upload: %w", err))
		return
	}
	defer file.Close()

	if !strings.EqualFold(filepath.Ext(header.Filename), ".pdf") {
		s.writeError(w, http.StatusBadRequest, fmt.Errorf("only PDF uploads are supported"))
		return
	}

	data, err := io.ReadAll(file)
	if err != nil {
		s.writeError(w, http.StatusBadRequest, fmt.Errorf("read upload: %w", err))
		return
	}

	if err := s.ingestor.Ingest(r.Context(), data, header.Filename); err != nil {
		s.writeError(w, ingestStatus(err), fmt.Errorf("process %s: %w", header.Filename, err))
		return
	}

	s.writeJSON(w, http.StatusOK, messageResponse{
		Message: fmt.Sprintf("ingested %s", ingestion.SanitizeFilename(header.Filename)),
	})
}

func (s *Server) handleChat(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		s.methodNotAllowed(w, http.MethodPost)
		return
	}

	var req chatRequest
	if err := decodeJSON(r, &req); err != nil {
		s.writeError(w, http.StatusBadRequest, fmt.Errorf("decode request: %w", err))
		return
	}
	if strings.TrimSpace(req.Question) == "" {
		s.writeError(w, http.StatusBadRequest, fmt.Errorf("question is required"))
		return
	}

	answer := s.asker.Answer(r.Context(), req.Question)
	s.writeJSON(w, http.StatusOK, chatResponse{Answer: answer})
}

func (s *Server) handleSessionClear(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		s.methodNotAllowed(w, http.MethodPost)
		return
	}

	s.asker.Memory().Clear()
	s.writeJSON(w, http.StatusOK, messageResponse{Message: "conversation cleared"})
}

func (s *Server) configSnapshot() configResponse {
	return configResponse{
		BaseURL: s.capability.BaseURL(),
		Model:   s.capability.SelectedModel(),
		Models:  s.capability.AvailableModels(),
		Ready:   s.capability.IsReady(),
	}
}

func ingestStatus(err error) int {
	switch {
	case errors.Is(err, ingestion.ErrNotConfigured):
		return http.StatusConflict
	case errors.Is(err, ingestion.ErrEmptyDocument), errors.Is(err, ingestion.ErrNoChunks):
		return http.StatusUnprocessableEntity
	default:
		return http.StatusInternalServerError
	}
}

func (s *Server) methodNotAllowed(w http.ResponseWriter, allowed string) {
	w.Header().Set("Allow", allowed)
	s.writeError(w, http.StatusMethodNotAllowed, fmt.Errorf("method not allowed, use %s", allowed))
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		s.logger.Printf("encode response: %v", err)
	}
}

func (s *Server) writeError(w http.ResponseWriter, status int, err error) {
	s.logger.Printf("api error (%d): %v", status, err)
	s.writeJSON(w, status, errorResponse{Error: err.Error()})
}

func decodeJSON(r *http.Request, dst any) error {
	if r.Body == nil {
		return nil
	}
	defer r.Body.Close()

	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		if err == io.EOF {
			return nil
		}
		return err
	}
	if dec.More() {
		return fmt.Errorf("request body must contain a single JSON object")
	}
	return nil
}
