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

// ExtractionNode turns disambiguated sentences into atomic claims.
// Questions are dropped before any model call. When the gateway fails the
// sentence itself becomes the only claim.
type ExtractionNode struct {
	Gateway     *llm.Gateway
	Concurrency int
}

func (n *ExtractionNode) Name() string  { return "extraction" }
func (n *ExtractionNode) Writes() Field { return FieldPotential }

type extractionOutput struct {
	Claims []string `json:"claims" validate:"required"`
}

func (n *ExtractionNode) Run(ctx context.Context, s *State) (Update, error) {
	items := s.Disambiguated()
	if len(items) == 0 {
		zap.L().Warn("extraction: no sentences to extract from", zap.String("run_id", s.RunID))
		return NoUpdate, nil
	}

	var candidates []model.DisambiguatedContent
	for _, item := range items {
		if isQuestion(item.Sentence) || isQuestion(item.Source.Text) {
			zap.L().Info("extraction: skipped question",
				zap.String("run_id", s.RunID),
				zap.String("sentence", item.Source.Text),
			)
			continue
		}
		candidates = append(candidates, item)
	}

	perSentence := worker.Map(ctx, candidates, n.Concurrency, func(ctx context.Context, _ int, item model.DisambiguatedContent) []model.PotentialClaim {
		return n.extract(ctx, s.RunID, item)
	})

	claims := make([]model.PotentialClaim, 0, len(candidates))
	for _, batch := range perSentence {
		claims = append(claims, batch...)
	}

	zap.L().Info("extraction: extracted claims",
		zap.String("run_id", s.RunID),
		zap.Int("sentences", len(candidates)),
		zap.Int("count", len(claims)),
	)
	return PotentialUpdate(claims), nil
}

func (n *ExtractionNode) extract(ctx context.Context, runID string, item model.DisambiguatedContent) []model.PotentialClaim {
	var out extractionOutput
	err := n.Gateway.Invoke(ctx, llm.Request{
		Messages: extractionPrompt(item.Sentence),
		Schema:   extractionSchema,
		Context:  fmt.Sprintf("extraction from sentence %q", item.Sentence),
	}, &out)

	texts := out.Claims
	if err != nil {
		zap.L().Warn("extraction: using sentence as claim",
			zap.String("run_id", runID),
			zap.String("sentence", item.Sentence),
			zap.Error(err),
		)
		texts = []string{item.Sentence}
	}

	claims := make([]model.PotentialClaim, 0, len(texts))
	for _, text := range texts {
		text = strings.TrimSpace(text)
		if text == "" {
			continue
		}
		claims = append(claims, model.PotentialClaim{
			Text:                  text,
			DisambiguatedSentence: item.Sentence,
			OriginalSentence:      item.Source.Text,
			OriginalIndex:         item.Source.Index,
		})
	}
	return claims
}

// isQuestion reports whether sentence ends in a question mark, ignoring trailing quotes and brackets
func isQuestion(sentence string) bool {
	trimmed := strings.TrimRight(strings.TrimSpace(sentence), `"')]”’»`)
	return strings.HasSuffix(trimmed, "?")
}
