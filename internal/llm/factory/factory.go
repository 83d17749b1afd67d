// internal/llm/factory/factory.go
package factory

import (
	"fmt"

	"github.com/verdictlabs/verdict/internal/config"
	"github.com/verdictlabs/verdict/internal/llm"
	"github.com/verdictlabs/verdict/internal/llm/claude"
	"github.com/verdictlabs/verdict/internal/llm/openai"
)

// New creates an LLM provider based on configuration.
func New(cfg config.LLMConfig) (llm.Provider, error) {
	switch cfg.Provider {
	case "claude":
		return claude.New(cfg.Claude.APIKey, cfg.Claude.CheapModel, cfg.Claude.DeepModel)
	case "openai":
		return openai.New(cfg.OpenAI.APIKey, cfg.OpenAI.CheapModel, cfg.OpenAI.DeepModel)
	default:
		return nil, fmt.Errorf("unknown LLM provider: %s", cfg.Provider)
	}
}
