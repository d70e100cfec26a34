package pipeline

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/ppiankov/claimcheck/internal/llm"
	"github.com/ppiankov/claimcheck/internal/model"
	"github.com/ppiankov/claimcheck/internal/worker"
)

// Resolver rewrites a sentence so its references stand on their own.
// preceding holds earlier sentences of the same input, nearest last.
type Resolver interface {
	Resolve(ctx context.Context, sentence string, preceding []string) (string, error)
}

// PassThrough returns every sentence unchanged
type PassThrough struct{}

func (PassThrough) Resolve(_ context.Context, sentence string, _ []string) (string, error) {
	return sentence, nil
}

// LLMResolver resolves references through the gateway
type LLMResolver struct {
	gateway *llm.Gateway
}

// NewLLMResolver creates a resolver backed by gateway
func NewLLMResolver(gateway *llm.Gateway) *LLMResolver {
	return &LLMResolver{gateway: gateway}
}

type disambiguationOutput struct {
	Sentence string `json:"disambiguated_sentence" validate:"required"`
}

func (r *LLMResolver) Resolve(ctx context.Context, sentence string, preceding []string) (string, error) {
	var out disambiguationOutput
	err := r.gateway.Invoke(ctx, llm.Request{
		Messages: disambiguationPrompt(sentence, preceding),
		Schema:   disambiguationSchema,
		Context:  fmt.Sprintf("disambiguation of sentence %q", sentence),
	}, &out)
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(out.Sentence), nil
}

// contextWindow is how many earlier sentences a resolver sees
const contextWindow = 3

// DisambiguationNode maps each selected sentence to a self-contained one.
// A resolver failure keeps the sentence as is.
type DisambiguationNode struct {
	Resolver    Resolver
	Concurrency int
}

func (n *DisambiguationNode) Name() string  { return "disambiguation" }
func (n *DisambiguationNode) Writes() Field { return FieldDisambiguated }

func (n *DisambiguationNode) Run(ctx context.Context, s *State) (Update, error) {
	selected := s.Selected()
	if len(selected) == 0 {
		zap.L().Warn("disambiguation: nothing to disambiguate", zap.String("run_id", s.RunID))
		return NoUpdate, nil
	}

	resolver := n.Resolver
	if resolver == nil {
		resolver = PassThrough{}
	}

	if _, ok := resolver.(PassThrough); ok {
		out := make([]model.DisambiguatedContent, len(selected))
		for i, item := range selected {
			out[i] = model.DisambiguatedContent{Sentence: item.Text, Source: item}
		}
		zap.L().Info("disambiguation: passed through sentences",
			zap.String("run_id", s.RunID),
			zap.Int("count", len(out)),
		)
		return DisambiguatedUpdate(out), nil
	}

	out := worker.Map(ctx, selected, n.Concurrency, func(ctx context.Context, i int, item model.SelectedContent) model.DisambiguatedContent {
		lo := max(0, i-contextWindow)
		preceding := make([]string, 0, i-lo)
		for _, p := range selected[lo:i] {
			preceding = append(preceding, p.Text)
		}

		resolved, err := resolver.Resolve(ctx, item.Text, preceding)
		if err != nil || resolved == "" {
			zap.L().Warn("disambiguation: keeping original sentence",
				zap.String("run_id", s.RunID),
				zap.String("sentence", item.Text),
				zap.Error(err),
			)
			resolved = item.Text
		}
		return model.DisambiguatedContent{Sentence: resolved, Source: item}
	})

	zap.L().Info("disambiguation: resolved sentences",
		zap.String("run_id", s.RunID),
		zap.Int("count", len(out)),
	)
	return DisambiguatedUpdate(out), nil
}
