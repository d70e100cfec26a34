package llm

import (
	"context"
	"strings"
	"time"

	"github.com/ppiankov/claimcheck/internal/config"
	"github.com/ppiankov/claimcheck/internal/util"
)

// Provider defines the interface for LLM providers
type Provider interface {
	// Name returns the provider name
	Name() string

	// Complete sends a chat exchange and returns the model's reply text
	Complete(ctx context.Context, req CompletionRequest) (*CompletionResponse, error)

	// IsAvailable checks if the provider is properly configured and accessible
	IsAvailable(ctx context.Context) bool
}

// Role identifies the author of a chat message
type Role string

const (
	RoleSystem    Role = "system"
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// Message is one turn of a chat exchange
type Message struct {
	Role    Role
	Content string
}

// System builds a system message
func System(content string) Message { return Message{Role: RoleSystem, Content: content} }

// User builds a user message
func User(content string) Message { return Message{Role: RoleUser, Content: content} }

// Assistant builds an assistant message
func Assistant(content string) Message { return Message{Role: RoleAssistant, Content: content} }

// CompletionRequest contains the input for one completion
type CompletionRequest struct {
	Messages []Message

	// Model overrides the provider's configured model
	Model string

	MaxTokens   int
	Temperature float64

	// JSON asks the provider for a JSON object reply where the API supports it
	JSON bool
}

// CompletionResponse contains the model's output
type CompletionResponse struct {
	Text       string
	Model      string
	TokensUsed int
}

// Config holds LLM provider configuration
type Config struct {
	// Provider name: "openai", "anthropic", "ollama", ""
	Provider string

	// Model name (provider-specific)
	Model string

	// APIKey for OpenAI/Anthropic
	APIKey string

	// BaseURL for custom endpoints (e.g., Ollama)
	BaseURL string

	// Timeout for API requests
	Timeout time.Duration

	MaxTokens   int
	Temperature float64

	Proxy util.ProxyConfig
}

// DefaultConfig returns sensible defaults
func DefaultConfig() Config {
	return Config{
		Provider:  "", // Disabled by default
		Timeout:   60 * time.Second,
		MaxTokens: 1024,
	}
}

// ConfigFromSettings converts the application's LLM settings
func ConfigFromSettings(s config.LLMConfig) Config {
	return Config{
		Provider:    s.Provider,
		Model:       s.Model,
		APIKey:      s.APIKey,
		BaseURL:     s.BaseURL,
		Timeout:     time.Duration(s.TimeoutSecs) * time.Second,
		MaxTokens:   s.MaxTokens,
		Temperature: s.Temperature,
		Proxy: util.ProxyConfig{
			HTTPProxy:  s.HTTPProxy,
			HTTPSProxy: s.HTTPSProxy,
			NoProxy:    s.NoProxy,
		},
	}
}

func (c Config) timeout() time.Duration {
	if c.Timeout <= 0 {
		return 60 * time.Second
	}
	return c.Timeout
}

// resolve fills request fields left empty from the provider configuration
func (c Config) resolve(req CompletionRequest, defaultModel string) CompletionRequest {
	if req.Model == "" {
		req.Model = c.Model
	}
	if req.Model == "" {
		req.Model = defaultModel
	}
	if req.MaxTokens == 0 {
		req.MaxTokens = c.MaxTokens
	}
	if req.MaxTokens == 0 {
		req.MaxTokens = 1024
	}
	return req
}

// splitSystem separates system messages, which some APIs take out of band
func splitSystem(messages []Message) (string, []Message) {
	var system []string
	rest := make([]Message, 0, len(messages))
	for _, m := range messages {
		if m.Role == RoleSystem {
			system = append(system, m.Content)
			continue
		}
		rest = append(rest, m)
	}
	return strings.Join(system, "\n\n"), rest
}
