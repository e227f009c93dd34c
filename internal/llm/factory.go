package llm

import (
	"context"
	"fmt"
	"strings"

	"github.com/reposcope/reposcope/internal/config"
)

// New creates a StreamClient based on configuration. When no backend is set
// explicitly, Gemini models route to the Gemini backend and everything else
// to the OpenAI-compatible one.
func New(ctx context.Context, cfg *config.Config) (StreamClient, error) {
	backend := cfg.LLM.Backend
	if backend == "" {
		if strings.HasPrefix(strings.ToLower(cfg.LLM.Model), "gemini") {
			backend = config.BackendGemini
		} else {
			backend = config.BackendOpenAI
		}
	}

	switch backend {
	case config.BackendGemini:
		return NewGeminiClient(ctx, cfg.LLM.APIKey, cfg.LLM.Model, cfg.LLM.ThinkingBudget)
	case config.BackendOpenAI:
		return NewOpenAIClient(cfg.LLM.APIKey, cfg.LLM.Endpoint, cfg.LLM.Model, cfg.LLM.Timeout), nil
	case config.BackendLangChain:
		return NewLangChainClient(cfg.LLM.APIKey, cfg.LLM.Endpoint, cfg.LLM.Model)
	default:
		return nil, fmt.Errorf("unknown llm backend: %q", backend)
	}
}
