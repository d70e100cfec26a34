package llm

import (
	"context"
	"strings"

	sdk "github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/ppiankov/claimcheck/internal/util"
)

const defaultAnthropicModel = "claude-haiku-4-5-20251001"

// AnthropicProvider implements the Provider interface for Anthropic Claude models
type AnthropicProvider struct {
	client sdk.Client
	config Config
}

// NewAnthropicProvider creates a new Anthropic provider backed by the SDK
func NewAnthropicProvider(config Config) (*AnthropicProvider, error) {
	if config.APIKey == "" {
		return nil, eris.New("llm: Anthropic API key is required")
	}

	opts := []option.RequestOption{
		option.WithAPIKey(config.APIKey),
		option.WithHTTPClient(util.NewHTTPClient(config.timeout(), config.Proxy)),
		// Retries are owned by the gateway
		option.WithMaxRetries(0),
	}
	if config.BaseURL != "" {
		opts = append(opts, option.WithBaseURL(config.BaseURL))
	}

	return &AnthropicProvider{
		client: sdk.NewClient(opts...),
		config: config,
	}, nil
}

// Name returns the provider name
func (p *AnthropicProvider) Name() string {
	return "anthropic"
}

// IsAvailable makes a minimal one-token request
func (p *AnthropicProvider) IsAvailable(ctx context.Context) bool {
	_, err := p.Complete(ctx, CompletionRequest{
		Messages:  []Message{User("Hi")},
		MaxTokens: 1,
	})
	if err != nil {
		zap.L().Warn("llm: anthropic availability check failed", zap.Error(err))
		return false
	}
	return true
}

// Complete sends a Messages API request. System messages go in the system field.
func (p *AnthropicProvider) Complete(ctx context.Context, req CompletionRequest) (*CompletionResponse, error) {
	req = p.config.resolve(req, defaultAnthropicModel)
	system, turns := splitSystem(req.Messages)

	params := sdk.MessageNewParams{
		Model:       sdk.Model(req.Model),
		MaxTokens:   int64(req.MaxTokens),
		Messages:    toSDKMessages(turns),
		Temperature: sdk.Float(req.Temperature),
	}
	if system != "" {
		params.System = []sdk.TextBlockParam{{Text: system}}
	}

	msg, err := p.client.Messages.New(ctx, params)
	if err != nil {
		return nil, eris.Wrap(err, "llm: anthropic create message")
	}

	var text strings.Builder
	for _, block := range msg.Content {
		if block.Type == "text" {
			text.WriteString(block.Text)
		}
	}
	if text.Len() == 0 {
		return nil, eris.New("llm: no text content in Anthropic response")
	}

	return &CompletionResponse{
		Text:       strings.TrimSpace(text.String()),
		Model:      string(msg.Model),
		TokensUsed: int(msg.Usage.InputTokens + msg.Usage.OutputTokens),
	}, nil
}

func toSDKMessages(msgs []Message) []sdk.MessageParam {
	out := make([]sdk.MessageParam, len(msgs))
	for i, m := range msgs {
		block := sdk.NewTextBlock(m.Content)
		switch m.Role {
		case RoleAssistant:
			out[i] = sdk.NewAssistantMessage(block)
		default:
			out[i] = sdk.NewUserMessage(block)
		}
	}
	return out
}
