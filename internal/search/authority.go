package search

import (
	"net/url"
	"regexp"
	"sort"
	"strings"

	"go.uber.org/zap"

	"github.com/ppiankov/claimcheck/internal/config"
	"github.com/ppiankov/claimcheck/internal/model"
)

// AuthorityClassifier classifies sources into authority tiers
type AuthorityClassifier struct {
	domainMap    map[string]model.AuthorityTier
	primary      []string
	secondary    []string
	pathPatterns []compiledPattern
}

type compiledPattern struct {
	pattern *regexp.Regexp
	tier    model.AuthorityTier
}

// NewAuthorityClassifier builds a classifier from configuration. Invalid path patterns are skipped.
func NewAuthorityClassifier(cfg config.AuthorityConfig) *AuthorityClassifier {
	a := &AuthorityClassifier{
		domainMap: make(map[string]model.AuthorityTier, len(cfg.DomainMap)),
		primary:   normalizeDomains(cfg.PrimaryDomains),
		secondary: normalizeDomains(cfg.SecondaryDomains),
	}

	for host, tier := range cfg.DomainMap {
		a.domainMap[strings.ToLower(host)] = ParseTier(tier)
	}

	for _, p := range cfg.PathPatterns {
		re, err := regexp.Compile(p.Pattern)
		if err != nil {
			zap.L().Warn("search: skipping invalid authority path pattern",
				zap.String("pattern", p.Pattern),
				zap.Error(err),
			)
			continue
		}
		a.pathPatterns = append(a.pathPatterns, compiledPattern{pattern: re, tier: ParseTier(p.Tier)})
	}

	return a
}

func normalizeDomains(domains []string) []string {
	out := make([]string, 0, len(domains))
	for _, d := range domains {
		if d = strings.ToLower(strings.TrimSpace(d)); d != "" {
			out = append(out, d)
		}
	}
	return out
}

// Classify classifies a URL into an authority tier
func (a *AuthorityClassifier) Classify(rawURL string) model.AuthorityTier {
	parsed, err := url.Parse(rawURL)
	if err != nil || parsed.Host == "" {
		return model.TierTertiary
	}

	host := strings.ToLower(parsed.Hostname())

	if tier, ok := a.domainMap[host]; ok {
		return tier
	}
	if matchesDomain(a.primary, host) {
		return model.TierPrimary
	}
	if matchesDomain(a.secondary, host) {
		return model.TierSecondary
	}

	for _, cp := range a.pathPatterns {
		if cp.pattern.MatchString(parsed.Path) {
			return cp.tier
		}
	}

	// Government and academic suffixes
	if strings.HasSuffix(host, ".gov") || strings.HasSuffix(host, ".edu") || strings.HasSuffix(host, ".ac.uk") {
		return model.TierPrimary
	}

	return model.TierTertiary
}

func matchesDomain(domains []string, host string) bool {
	for _, d := range domains {
		if host == d || strings.HasSuffix(host, "."+d) {
			return true
		}
	}
	return false
}

// Rank sets each source's tier and stably orders them primary first.
// The input slice is not modified.
func (a *AuthorityClassifier) Rank(sources []model.Source) []model.Source {
	ranked := make([]model.Source, len(sources))
	for i, s := range sources {
		s.Authority = a.Classify(s.URL)
		ranked[i] = s
	}
	sort.SliceStable(ranked, func(i, j int) bool {
		return ranked[i].Authority < ranked[j].Authority
	})
	return ranked
}

// ParseTier converts a tier name or number to an AuthorityTier; unknown values are tertiary
func ParseTier(tier string) model.AuthorityTier {
	switch strings.ToLower(strings.TrimSpace(tier)) {
	case "primary", "1":
		return model.TierPrimary
	case "secondary", "2":
		return model.TierSecondary
	default:
		return model.TierTertiary
	}
}
