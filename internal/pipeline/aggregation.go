package pipeline

import (
	"context"
	"strings"

	"go.uber.org/zap"

	"github.com/ppiankov/claimcheck/internal/llm"
	"github.com/ppiankov/claimcheck/internal/model"
	"github.com/ppiankov/claimcheck/internal/score"
)

// AggregationNode builds the final report from the verified claims.
// With LLMSummary set the summary is written by the model, falling back to
// the deterministic one when the call fails.
type AggregationNode struct {
	Scorer     *score.Scorer
	Gateway    *llm.Gateway
	LLMSummary bool
}

func (n *AggregationNode) Name() string  { return "aggregation" }
func (n *AggregationNode) Writes() Field { return FieldReport }

type summaryOutput struct {
	Summary string `json:"summary" validate:"required"`
}

func (n *AggregationNode) Run(ctx context.Context, s *State) (Update, error) {
	scorer := n.Scorer
	if scorer == nil {
		scorer = score.NewScorer()
	}

	claims := s.Verified()
	if claims == nil {
		claims = []model.VerifiedClaim{}
	}

	stats, counts := scorer.Calculate(claims)
	summary := scorer.Summary(counts)

	if n.LLMSummary && len(claims) > 0 && n.Gateway.Enabled() {
		var out summaryOutput
		err := n.Gateway.Invoke(ctx, llm.Request{
			Messages: summaryPrompt(claims),
			Schema:   summarySchema,
			Context:  "report summary",
		}, &out)
		if text := strings.TrimSpace(out.Summary); err == nil && text != "" {
			summary = text
		} else {
			zap.L().Warn("aggregation: using deterministic summary", zap.String("run_id", s.RunID), zap.Error(err))
		}
	}

	zap.L().Info("aggregation: report built",
		zap.String("run_id", s.RunID),
		zap.Int("claims", counts.Total()),
		zap.Float64("supported", stats.Supported),
		zap.Float64("refuted", stats.Refuted),
		zap.Float64("insufficient", stats.Insufficient),
		zap.Float64("conflicting", stats.Conflicting),
	)

	return ReportUpdate(&model.FinalReport{
		Summary:        summary,
		VerifiedClaims: claims,
		Stats:          stats,
	}), nil
}
