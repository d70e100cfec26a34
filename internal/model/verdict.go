package model

import (
	"fmt"
	"strings"
)

// Verdict is the classification outcome of a verified claim.
// The set is closed: parsing rejects anything else.
type Verdict string

const (
	VerdictSupported    Verdict = "Supported"
	VerdictRefuted      Verdict = "Refuted"
	VerdictInsufficient Verdict = "Insufficient Information"
	VerdictConflicting  Verdict = "Conflicting"
)

// Verdicts lists every verdict in report order
var Verdicts = []Verdict{VerdictSupported, VerdictRefuted, VerdictInsufficient, VerdictConflicting}

// ParseVerdict converts a model-produced label into a Verdict.
// Matching is case-insensitive and tolerates a few common spellings.
func ParseVerdict(s string) (Verdict, error) {
	norm := strings.ToLower(strings.TrimSpace(s))
	norm = strings.NewReplacer("_", " ", "-", " ").Replace(norm)

	switch norm {
	case "supported", "support":
		return VerdictSupported, nil
	case "refuted", "refute":
		return VerdictRefuted, nil
	case "insufficient information", "insufficient", "not enough information", "not enough info":
		return VerdictInsufficient, nil
	case "conflicting", "conflicting evidence", "conflict":
		return VerdictConflicting, nil
	default:
		return "", fmt.Errorf("unknown verdict %q", s)
	}
}

// UnmarshalText implements encoding.TextUnmarshaler so JSON decoding fails on unknown labels
func (v *Verdict) UnmarshalText(text []byte) error {
	parsed, err := ParseVerdict(string(text))
	if err != nil {
		return err
	}
	*v = parsed
	return nil
}

// Key returns the short stats key for the verdict
func (v Verdict) Key() string {
	switch v {
	case VerdictSupported:
		return "supported"
	case VerdictRefuted:
		return "refuted"
	case VerdictInsufficient:
		return "insufficient"
	case VerdictConflicting:
		return "conflicting"
	default:
		return ""
	}
}

// Valid reports whether v is one of the four known verdicts
func (v Verdict) Valid() bool {
	return v.Key() != ""
}
