package model

// SelectedContent is a sentence of the input chosen as containing checkable assertions
type SelectedContent struct {
	Text  string `json:"text"`  // Sentence text as it appeared in the input
	Index int    `json:"index"` // Sentence position in the input (0-based)
}

// DisambiguatedContent is a SelectedContent with references resolved.
// Source is a traceability link only.
type DisambiguatedContent struct {
	Sentence string          `json:"disambiguated_sentence"`
	Source   SelectedContent `json:"original_selected_item"`
}

// PotentialClaim is an atomic statement extracted from a disambiguated sentence
type PotentialClaim struct {
	Text                  string `json:"claim_text"`
	DisambiguatedSentence string `json:"disambiguated_sentence"`
	OriginalSentence      string `json:"original_sentence"`
	OriginalIndex         int    `json:"original_index"`
}

// ValidatedClaim is a PotentialClaim with a well-formedness verdict
type ValidatedClaim struct {
	PotentialClaim
	IsCompleteDeclarative bool `json:"is_complete_declarative"`
}

// VerifiedClaim is a ValidatedClaim classified against retrieved evidence
type VerifiedClaim struct {
	ValidatedClaim
	Result    Verdict  `json:"result"`
	Reasoning string   `json:"reasoning"`
	Sources   []Source `json:"sources"`
}
