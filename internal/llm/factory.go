package llm

import (
	"strings"

	"github.com/rotisserie/eris"
)

// NewProvider creates a new LLM provider based on configuration.
// An empty provider name returns (nil, nil): the LLM is disabled.
func NewProvider(config Config) (Provider, error) {
	switch strings.ToLower(config.Provider) {
	case "openai":
		return NewOpenAIProvider(config)

	case "anthropic", "claude":
		return NewAnthropicProvider(config)

	case "ollama":
		return NewOllamaProvider(config)

	case "":
		return nil, nil

	default:
		return nil, eris.Errorf("llm: unknown provider %q (supported: openai, anthropic, ollama)", config.Provider)
	}
}
