package llm

import (
	"fmt"
	"strings"

	"github.com/okulov/siteintel/internal/model"
)

// NewService creates an extraction service from configuration. An empty
// provider returns the Disabled service rather than an error so the
// pipeline can still run fail-soft.
func NewService(cfg model.LLMConfig) (Service, error) {
	switch strings.ToLower(cfg.Provider) {
	case "openai":
		return NewOpenAIService(cfg)

	case "ollama":
		return NewOllamaService(cfg)

	case "":
		return Disabled{}, nil

	default:
		return nil, fmt.Errorf("unknown extraction provider: %s (supported: openai, ollama)", cfg.Provider)
	}
}
