package score

import (
	"fmt"
	"math"
	"strings"

	"go.uber.org/zap"

	"github.com/ppiankov/claimcheck/internal/model"
)

// Scorer turns verified claims into report statistics
type Scorer struct{}

// NewScorer creates a new scorer
func NewScorer() *Scorer {
	return &Scorer{}
}

// Tally counts verified claims per verdict.
// Claims carrying an unknown verdict are logged and counted as insufficient.
func (s *Scorer) Tally(claims []model.VerifiedClaim) model.Counts {
	var counts model.Counts
	for _, c := range claims {
		switch c.Result {
		case model.VerdictSupported:
			counts.Supported++
		case model.VerdictRefuted:
			counts.Refuted++
		case model.VerdictConflicting:
			counts.Conflicting++
		case model.VerdictInsufficient:
			counts.Insufficient++
		default:
			zap.L().Warn("score: unknown verdict counted as insufficient",
				zap.String("verdict", string(c.Result)),
				zap.String("claim", c.Text),
			)
			counts.Insufficient++
		}
	}
	return counts
}

// Calculate returns the per-verdict percentages of claims together with the raw counts.
// Empty input yields all zeros.
func (s *Scorer) Calculate(claims []model.VerifiedClaim) (model.Stats, model.Counts) {
	counts := s.Tally(claims)
	total := counts.Total()
	if total == 0 {
		return model.Stats{}, counts
	}

	return model.Stats{
		Supported:    percent(counts.Supported, total),
		Refuted:      percent(counts.Refuted, total),
		Insufficient: percent(counts.Insufficient, total),
		Conflicting:  percent(counts.Conflicting, total),
	}, counts
}

// Summary renders a deterministic one-line summary of the counts
func (s *Scorer) Summary(counts model.Counts) string {
	total := counts.Total()
	if total == 0 {
		return "No verifiable claims were found in the input."
	}

	noun := "claims"
	if total == 1 {
		noun = "claim"
	}

	parts := []string{
		fmt.Sprintf("%d supported", counts.Supported),
		fmt.Sprintf("%d refuted", counts.Refuted),
		fmt.Sprintf("%d with insufficient information", counts.Insufficient),
		fmt.Sprintf("%d conflicting", counts.Conflicting),
	}
	return fmt.Sprintf("Checked %d %s: %s.", total, noun, strings.Join(parts, ", "))
}

// percent rounds count/total*100 to one decimal place, ties to even
func percent(count, total int) float64 {
	return math.RoundToEven(float64(count)/float64(total)*1000) / 10
}
