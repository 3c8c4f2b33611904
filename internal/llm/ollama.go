package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/okulov/siteintel/internal/model"
)

// OllamaService implements Service against a local Ollama instance.
type OllamaService struct {
	baseURL    string
	httpClient *http.Client
	config     model.LLMConfig
}

type ollamaRequest struct {
	Model   string        `json:"model"`
	Prompt  string        `json:"prompt"`
	System  string        `json:"system,omitempty"`
	Stream  bool          `json:"stream"`
	Options ollamaOptions `json:"options,omitempty"`
}

type ollamaOptions struct {
	Temperature float64 `json:"temperature,omitempty"`
	NumPredict  int     `json:"num_predict,omitempty"`
}

type ollamaResponse struct {
	Model    string `json:"model"`
	Response string `json:"response"`
	Done     bool   `json:"done"`
}

// NewOllamaService creates an Ollama-backed extraction service.
func NewOllamaService(cfg model.LLMConfig) (*OllamaService, error) {
	baseURL := cfg.BaseURL
	if baseURL == "" {
		baseURL = "http://localhost:11434"
	}
	if cfg.Model == "" {
		return nil, fmt.Errorf("ollama model name is required")
	}

	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 120 * time.Second
	}

	return &OllamaService{
		baseURL:    strings.TrimSuffix(baseURL, "/"),
		httpClient: &http.Client{Timeout: timeout},
		config:     cfg,
	}, nil
}

// Name returns the provider name.
func (s *OllamaService) Name() string {
	return "ollama"
}

// Extract runs one structured-extraction call.
func (s *OllamaService) Extract(ctx context.Context, req ExtractRequest) (*StructuredRecord, error) {
	prompt := BuildExtractPrompt(req.URL, req.Title) + "\n\nPage content:\n" + req.Content

	raw, err := s.generate(ctx, prompt, s.config.MaxTokens)
	if err != nil {
		return nil, err
	}

	return ParseRecord(raw)
}

// JudgeRelevance runs one lightweight relevance judgment.
func (s *OllamaService) JudgeRelevance(ctx context.Context, title, snippet string) (float64, error) {
	raw, err := s.generate(ctx, BuildRelevancePrompt(title, snippet), 16)
	if err != nil {
		return 0, err
	}

	return ParseRelevance(raw)
}

func (s *OllamaService) generate(ctx context.Context, prompt string, maxTokens int) (string, error) {
	payload, err := json.Marshal(ollamaRequest{
		Model:  s.config.Model,
		Prompt: prompt,
		System: "You extract structured facts from web pages. You only output what the provided content supports.",
		Stream: false,
		Options: ollamaOptions{
			Temperature: 0.1,
			NumPredict:  maxTokens,
		},
	})
	if err != nil {
		return "", fmt.Errorf("marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.baseURL+"/api/generate", bytes.NewReader(payload))
	if err != nil {
		return "", fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("ollama api: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 4<<20))
	if err != nil {
		return "", fmt.Errorf("read response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("ollama api: status %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}

	var decoded ollamaResponse
	if err := json.Unmarshal(body, &decoded); err != nil {
		return "", fmt.Errorf("decode response: %w", err)
	}

	return strings.TrimSpace(decoded.Response), nil
}
