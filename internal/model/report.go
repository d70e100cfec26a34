package model

// FinalReport is the outcome of one pipeline run
type FinalReport struct {
	Summary        string          `json:"summary"`
	VerifiedClaims []VerifiedClaim `json:"verified_claims"`
	Stats          Stats           `json:"stats"`
}

// Stats holds the percentage of verified claims per verdict, rounded to one decimal.
// Values are rounded independently and need not sum to 100.
type Stats struct {
	Supported    float64 `json:"supported"`
	Refuted      float64 `json:"refuted"`
	Insufficient float64 `json:"insufficient"`
	Conflicting  float64 `json:"conflicting"`
}

// Counts tallies verified claims per verdict
type Counts struct {
	Supported    int `json:"supported"`
	Refuted      int `json:"refuted"`
	Insufficient int `json:"insufficient"`
	Conflicting  int `json:"conflicting"`
}

// Total returns the number of counted claims
func (c Counts) Total() int {
	return c.Supported + c.Refuted + c.Insufficient + c.Conflicting
}
