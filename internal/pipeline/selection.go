package pipeline

import (
	"context"
	"strings"
	"unicode"
	"unicode/utf8"

	"go.uber.org/zap"

	"github.com/ppiankov/claimcheck/internal/model"
	"github.com/ppiankov/claimcheck/internal/util"
)

// SelectionNode splits the raw input into sentences
type SelectionNode struct {
	// MinChars drops sentences shorter than this many characters
	MinChars int
}

func (n *SelectionNode) Name() string  { return "selection" }
func (n *SelectionNode) Writes() Field { return FieldSelected }

func (n *SelectionNode) Run(ctx context.Context, s *State) (Update, error) {
	text := s.RawInput
	if util.LooksLikeHTML(text) {
		// Each block element ends a sentence
		text = strings.ReplaceAll(util.VisibleText(text), "\n", "\n\n")
	}

	sentences := splitSentences(text)
	var selected []model.SelectedContent
	for i, sentence := range sentences {
		if utf8.RuneCountInString(sentence) < n.MinChars {
			zap.L().Debug("selection: dropped short sentence", zap.String("sentence", sentence))
			continue
		}
		selected = append(selected, model.SelectedContent{Text: sentence, Index: i})
	}

	if len(selected) == 0 {
		zap.L().Warn("selection: no sentences found", zap.String("run_id", s.RunID))
		return NoUpdate, nil
	}

	zap.L().Info("selection: selected sentences",
		zap.String("run_id", s.RunID),
		zap.Int("count", len(selected)),
	)
	return SelectedUpdate(selected), nil
}

// closers may trail a sentence terminator and stay with the sentence
const closers = `.!?"')]”’»`

var abbreviations = map[string]bool{
	"mr": true, "mrs": true, "ms": true, "dr": true, "prof": true, "st": true,
	"jr": true, "sr": true, "vs": true, "e.g": true, "i.e": true, "approx": true,
	"no": true, "fig": true, "inc": true, "ltd": true, "co": true, "gen": true,
}

// splitSentences splits text on '.', '!' or '?' followed by whitespace or the
// end of text. Blank lines also end a sentence. Whitespace inside a sentence
// is collapsed.
func splitSentences(text string) []string {
	runes := []rune(text)
	var sentences []string
	start := 0

	flush := func(end int) {
		sentence := strings.Join(strings.Fields(string(runes[start:end])), " ")
		if sentence != "" {
			sentences = append(sentences, sentence)
		}
		start = end
	}

	for i := 0; i < len(runes); i++ {
		r := runes[i]

		if r == '\n' && i+1 < len(runes) && runes[i+1] == '\n' {
			flush(i)
			continue
		}
		if r != '.' && r != '!' && r != '?' {
			continue
		}

		end := i + 1
		for end < len(runes) && strings.ContainsRune(closers, runes[end]) {
			end++
		}
		if end < len(runes) && !unicode.IsSpace(runes[end]) {
			continue
		}
		if r == '.' && end == i+1 && isAbbreviation(runes[start:i], runes[end:]) {
			continue
		}

		flush(end)
		i = end - 1
	}
	flush(len(runes))

	return sentences
}

// sentenceOpeners are words that start a new sentence after a dotted acronym
var sentenceOpeners = map[string]bool{
	"a": true, "an": true, "the": true, "it": true, "its": true, "he": true,
	"she": true, "they": true, "we": true, "i": true, "you": true, "this": true,
	"that": true, "these": true, "those": true, "there": true, "but": true,
	"and": true, "however": true, "in": true, "on": true, "at": true,
}

// isAbbreviation reports whether the word before a period is a title,
// a known abbreviation, a single-letter initial or a dotted acronym (U.S, e.g, a.m).
// A dotted acronym still ends the sentence when a typical sentence opener follows.
func isAbbreviation(before, after []rune) bool {
	fields := strings.Fields(string(before))
	if len(fields) == 0 {
		return false
	}
	word := fields[len(fields)-1]
	if utf8.RuneCountInString(word) == 1 {
		return unicode.IsUpper([]rune(word)[0])
	}
	if abbreviations[strings.ToLower(word)] {
		return true
	}
	if isDottedAcronym(word) {
		next := strings.Fields(string(after))
		if len(next) == 0 {
			return false
		}
		opener := strings.ToLower(strings.TrimLeft(next[0], closers))
		return !sentenceOpeners[opener]
	}
	return false
}

// isDottedAcronym matches single letters joined by periods, like "U.S" or "a.m"
func isDottedAcronym(word string) bool {
	parts := strings.Split(word, ".")
	if len(parts) < 2 {
		return false
	}
	for _, p := range parts {
		r := []rune(p)
		if len(r) != 1 || !unicode.IsLetter(r[0]) {
			return false
		}
	}
	return true
}
