package llm

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/sashabaranov/go-openai"

	"github.com/okulov/siteintel/internal/model"
)

// OpenAIService implements Service against the OpenAI Chat Completions API
// (or any compatible endpoint via BaseURL).
type OpenAIService struct {
	client  *openai.Client
	config  model.LLMConfig
	timeout time.Duration
}

// NewOpenAIService creates an OpenAI-backed extraction service.
func NewOpenAIService(cfg model.LLMConfig) (*OpenAIService, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("OpenAI API key is required")
	}

	clientConfig := openai.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		clientConfig.BaseURL = cfg.BaseURL
	}

	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 60 * time.Second
	}

	return &OpenAIService{
		client:  openai.NewClientWithConfig(clientConfig),
		config:  cfg,
		timeout: timeout,
	}, nil
}

// Name returns the provider name.
func (s *OpenAIService) Name() string {
	return "openai"
}

// Extract runs one structured-extraction call.
func (s *OpenAIService) Extract(ctx context.Context, req ExtractRequest) (*StructuredRecord, error) {
	prompt := BuildExtractPrompt(req.URL, req.Title)

	raw, err := s.complete(ctx, prompt, req.Content, s.maxTokens())
	if err != nil {
		return nil, err
	}

	return ParseRecord(raw)
}

// JudgeRelevance runs one lightweight relevance judgment.
func (s *OpenAIService) JudgeRelevance(ctx context.Context, title, snippet string) (float64, error) {
	prompt := BuildRelevancePrompt(title, snippet)

	raw, err := s.complete(ctx, prompt, "", 16)
	if err != nil {
		return 0, err
	}

	return ParseRelevance(raw)
}

func (s *OpenAIService) complete(ctx context.Context, prompt, content string, maxTokens int) (string, error) {
	llmModel := s.config.Model
	if llmModel == "" {
		llmModel = openai.GPT4oMini
	}

	ctxWithTimeout, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	messages := []openai.ChatCompletionMessage{
		{
			Role:    openai.ChatMessageRoleSystem,
			Content: "You extract structured facts from web pages. You only output what the provided content supports.",
		},
		{
			Role:    openai.ChatMessageRoleUser,
			Content: prompt,
		},
	}
	if content != "" {
		messages = append(messages, openai.ChatCompletionMessage{
			Role:    openai.ChatMessageRoleUser,
			Content: "Page content:\n" + content,
		})
	}

	resp, err := s.client.CreateChatCompletion(ctxWithTimeout, openai.ChatCompletionRequest{
		Model:       llmModel,
		Messages:    messages,
		MaxTokens:   maxTokens,
		Temperature: 0.1,
	})
	if err != nil {
		return "", fmt.Errorf("openai api: %w", err)
	}
	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("openai api: empty response")
	}

	return strings.TrimSpace(resp.Choices[0].Message.Content), nil
}

func (s *OpenAIService) maxTokens() int {
	if s.config.MaxTokens > 0 {
		return s.config.MaxTokens
	}
	return 2000
}
