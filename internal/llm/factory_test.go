package llm

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ppiankov/claimcheck/internal/config"
)

func TestNewProvider(t *testing.T) {
	p, err := NewProvider(Config{})
	require.NoError(t, err)
	assert.Nil(t, p)

	p, err = NewProvider(Config{Provider: "OpenAI", APIKey: "k"})
	require.NoError(t, err)
	assert.Equal(t, "openai", p.Name())

	p, err = NewProvider(Config{Provider: "claude", APIKey: "k"})
	require.NoError(t, err)
	assert.Equal(t, "anthropic", p.Name())

	p, err = NewProvider(Config{Provider: "ollama"})
	require.NoError(t, err)
	assert.Equal(t, "ollama", p.Name())

	_, err = NewProvider(Config{Provider: "openai"})
	assert.Error(t, err, "missing API key")

	_, err = NewProvider(Config{Provider: "gemini"})
	assert.Error(t, err)
}

func TestConfigFromSettings(t *testing.T) {
	cfg := ConfigFromSettings(config.LLMConfig{
		Provider:    "ollama",
		Model:       "llama3.1",
		TimeoutSecs: 30,
		MaxTokens:   512,
		Temperature: 0.2,
		HTTPProxy:   "http://proxy:3128",
	})

	assert.Equal(t, "ollama", cfg.Provider)
	assert.Equal(t, 30*time.Second, cfg.Timeout)
	assert.Equal(t, 512, cfg.MaxTokens)
	assert.Equal(t, 0.2, cfg.Temperature)
	assert.Equal(t, "http://proxy:3128", cfg.Proxy.HTTPProxy)
}

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()
	assert.Equal(t, "", cfg.Provider)
	assert.Equal(t, 60*time.Second, cfg.timeout())
	assert.Equal(t, 60*time.Second, Config{}.timeout())
}
