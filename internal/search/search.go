// Package search retrieves evidence for claims from web and encyclopedia backends.
package search

import (
	"context"
	"errors"
	"strings"
	"unicode/utf8"

	"github.com/ppiankov/claimcheck/internal/model"
)

// ErrDisallowed is returned when robots.txt forbids fetching a backend URL
var ErrDisallowed = errors.New("search: fetch disallowed by robots.txt")

// Retriever finds sources relevant to a query
type Retriever interface {
	Name() string
	Search(ctx context.Context, query string, limit int) ([]model.Source, error)
}

const maxSnippetRunes = 600

// truncateSnippet shortens s to at most maxSnippetRunes runes, cutting at a word boundary
func truncateSnippet(s string) string {
	s = strings.Join(strings.Fields(s), " ")
	if utf8.RuneCountInString(s) <= maxSnippetRunes {
		return s
	}
	runes := []rune(s)[:maxSnippetRunes]
	cut := string(runes)
	if i := strings.LastIndexByte(cut, ' '); i >= 0 && utf8.RuneCountInString(cut[:i]) > maxSnippetRunes/2 {
		cut = cut[:i]
	}
	return cut + "…"
}

// dedupeSources keeps the first source per URL
func dedupeSources(sources []model.Source) []model.Source {
	seen := make(map[string]bool, len(sources))
	out := make([]model.Source, 0, len(sources))
	for _, s := range sources {
		key := strings.TrimSuffix(strings.ToLower(s.URL), "/")
		if key == "" || seen[key] {
			continue
		}
		seen[key] = true
		out = append(out, s)
	}
	return out
}
