package pipeline

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/ppiankov/claimcheck/internal/llm"
	"github.com/ppiankov/claimcheck/internal/model"
	"github.com/ppiankov/claimcheck/internal/worker"
)

// ValidationNode keeps claims that are complete declarative sentences and drops
// repeated claim text. A failed or inconclusive call rejects the claim.
type ValidationNode struct {
	Gateway     *llm.Gateway
	Concurrency int
}

func (n *ValidationNode) Name() string  { return "validation" }
func (n *ValidationNode) Writes() Field { return FieldValidated }

type validationOutput struct {
	IsCompleteDeclarative *bool `json:"is_complete_declarative" validate:"required"`
}

func (n *ValidationNode) Run(ctx context.Context, s *State) (Update, error) {
	potential := s.Potential()
	if len(potential) == 0 {
		zap.L().Warn("validation: no claims to validate", zap.String("run_id", s.RunID))
		return NoUpdate, nil
	}

	// Results come back in input order regardless of completion order
	results := worker.Map(ctx, potential, n.Concurrency, func(ctx context.Context, _ int, claim model.PotentialClaim) model.ValidatedClaim {
		return model.ValidatedClaim{
			PotentialClaim:        claim,
			IsCompleteDeclarative: n.validate(ctx, s.RunID, claim),
		}
	})

	kept := make([]model.ValidatedClaim, 0, len(results))
	seen := make(map[string]bool, len(results))
	for _, v := range results {
		reason := ""
		switch {
		case !v.IsCompleteDeclarative:
			reason = "invalid format"
		case seen[v.Text]:
			reason = "duplicate"
		}

		if reason != "" {
			zap.L().Info("validation: discarded claim",
				zap.String("run_id", s.RunID),
				zap.String("reason", reason),
				zap.String("claim", v.Text),
			)
			continue
		}

		seen[v.Text] = true
		kept = append(kept, v)
		zap.L().Info("validation: valid claim", zap.String("run_id", s.RunID), zap.String("claim", v.Text))
	}

	zap.L().Info(fmt.Sprintf("validation: validated %d of %d claims", len(kept), len(potential)),
		zap.String("run_id", s.RunID),
		zap.Int("kept", len(kept)),
		zap.Int("total", len(potential)),
	)
	return ValidatedUpdate(kept), nil
}

func (n *ValidationNode) validate(ctx context.Context, runID string, claim model.PotentialClaim) bool {
	var out validationOutput
	err := n.Gateway.Invoke(ctx, llm.Request{
		Messages: validationPrompt(claim.Text),
		Schema:   validationSchema,
		Context:  fmt.Sprintf("validation of claim %q", claim.Text),
	}, &out)
	if err != nil {
		zap.L().Warn("validation: treating claim as invalid",
			zap.String("run_id", runID),
			zap.String("claim", claim.Text),
			zap.Error(err),
		)
		return false
	}
	return *out.IsCompleteDeclarative
}
