package pipeline

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/ppiankov/claimcheck/internal/llm"
	"github.com/ppiankov/claimcheck/internal/model"
	"github.com/ppiankov/claimcheck/internal/search"
	"github.com/ppiankov/claimcheck/internal/worker"
)

const (
	reasonNoEvidence     = "No evidence sources were found for this claim."
	reasonNotClassified  = "The retrieved evidence could not be classified."
	reasonMissingDetails = "No reasoning was provided."
)

// VerificationNode retrieves evidence for each validated claim and classifies it.
// A claim with no evidence is Insufficient Information without a model call.
type VerificationNode struct {
	Gateway    *llm.Gateway
	Retriever  search.Retriever
	Authority  *search.AuthorityClassifier
	MaxSources int

	Concurrency int
}

func (n *VerificationNode) Name() string  { return "verification" }
func (n *VerificationNode) Writes() Field { return FieldVerified }

type verificationOutput struct {
	Result    model.Verdict `json:"result" validate:"required"`
	Reasoning string        `json:"reasoning"`
}

func (n *VerificationNode) Run(ctx context.Context, s *State) (Update, error) {
	claims := s.Validated()
	if len(claims) == 0 {
		zap.L().Warn("verification: no claims to verify", zap.String("run_id", s.RunID))
		return NoUpdate, nil
	}

	verified := worker.Map(ctx, claims, n.Concurrency, func(ctx context.Context, _ int, claim model.ValidatedClaim) model.VerifiedClaim {
		return n.verify(ctx, s.RunID, claim)
	})

	zap.L().Info("verification: verified claims",
		zap.String("run_id", s.RunID),
		zap.Int("count", len(verified)),
	)
	return VerifiedUpdate(verified), nil
}

func (n *VerificationNode) verify(ctx context.Context, runID string, claim model.ValidatedClaim) model.VerifiedClaim {
	log := zap.L().With(zap.String("run_id", runID), zap.String("claim", claim.Text))
	result := model.VerifiedClaim{ValidatedClaim: claim, Sources: []model.Source{}}

	sources := n.retrieve(ctx, log, claim.Text)
	if len(sources) == 0 {
		log.Info("verification: no evidence found")
		result.Result = model.VerdictInsufficient
		result.Reasoning = reasonNoEvidence
		return result
	}
	result.Sources = sources

	var out verificationOutput
	err := n.Gateway.Invoke(ctx, llm.Request{
		Messages: verificationPrompt(claim.Text, sources),
		Schema:   verificationSchema,
		Context:  fmt.Sprintf("verification of claim %q", claim.Text),
	}, &out)
	if err != nil {
		log.Warn("verification: classification failed", zap.Error(err))
		result.Result = model.VerdictInsufficient
		result.Reasoning = reasonNotClassified
		return result
	}

	result.Result = out.Result
	result.Reasoning = strings.TrimSpace(out.Reasoning)
	if result.Reasoning == "" {
		result.Reasoning = reasonMissingDetails
	}
	log.Info("verification: classified claim",
		zap.String("result", string(result.Result)),
		zap.Int("sources", len(sources)),
	)
	return result
}

func (n *VerificationNode) retrieve(ctx context.Context, log *zap.Logger, query string) []model.Source {
	if n.Retriever == nil {
		return nil
	}

	limit := n.MaxSources
	if limit <= 0 {
		limit = 5
	}

	sources, err := n.Retriever.Search(ctx, query, limit)
	if err != nil {
		log.Warn("verification: evidence retrieval failed",
			zap.String("retriever", n.Retriever.Name()),
			zap.Error(err),
		)
		return nil
	}
	if len(sources) > limit {
		sources = sources[:limit]
	}

	if n.Authority != nil {
		sources = n.Authority.Rank(sources)
	}
	return sources
}
