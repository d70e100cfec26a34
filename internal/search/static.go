package search

import (
	"context"
	"strings"

	"github.com/ppiankov/claimcheck/internal/model"
)

// StaticRetriever serves a fixed corpus. Each source matches a query when every
// query keyword of four or more letters appears in its title or snippet.
type StaticRetriever struct {
	sources []model.Source
}

// NewStaticRetriever creates a retriever over the given sources
func NewStaticRetriever(sources ...model.Source) *StaticRetriever {
	return &StaticRetriever{sources: sources}
}

// Name returns the retriever name
func (r *StaticRetriever) Name() string { return "static" }

// Search returns the matching sources in corpus order
func (r *StaticRetriever) Search(ctx context.Context, query string, limit int) ([]model.Source, error) {
	keywords := keywordsOf(query)

	var out []model.Source
	for _, s := range r.sources {
		haystack := strings.ToLower(s.Title + " " + s.Snippet)
		matched := true
		for _, k := range keywords {
			if !strings.Contains(haystack, k) {
				matched = false
				break
			}
		}
		if !matched {
			continue
		}
		if s.Retriever == "" {
			s.Retriever = r.Name()
		}
		out = append(out, s)
		if limit > 0 && len(out) == limit {
			break
		}
	}
	return out, nil
}

func keywordsOf(query string) []string {
	var out []string
	for _, w := range strings.FieldsFunc(strings.ToLower(query), func(r rune) bool {
		return !(r >= 'a' && r <= 'z' || r >= '0' && r <= '9' || r > 127)
	}) {
		if len([]rune(w)) >= 4 {
			out = append(out, w)
		}
	}
	return out
}
