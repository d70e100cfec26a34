package model

// Source is a retrieved piece of evidence for a claim
type Source struct {
	URL       string        `json:"url"`
	Title     string        `json:"title,omitempty"`
	Snippet   string        `json:"snippet,omitempty"`   // Excerpt shown to the classifier
	Retriever string        `json:"retriever,omitempty"` // Backend that returned it (jina, wikipedia, ...)
	Authority AuthorityTier `json:"authority,omitempty"` // Source authority classification
}

// AuthorityTier represents the classification of source authority
type AuthorityTier int

const (
	TierUnknown   AuthorityTier = 0 // Not yet classified
	TierPrimary   AuthorityTier = 1 // Laws, statutes, academic papers, official documents
	TierSecondary AuthorityTier = 2 // Encyclopedias, major publishers, reputable media
	TierTertiary  AuthorityTier = 3 // Blogs, personal websites, forums
)

func (t AuthorityTier) String() string {
	switch t {
	case TierPrimary:
		return "primary"
	case TierSecondary:
		return "secondary"
	case TierTertiary:
		return "tertiary"
	default:
		return "unknown"
	}
}
