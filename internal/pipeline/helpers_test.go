package pipeline

import (
	"context"
	"encoding/json"
	"errors"
	"strconv"
	"strings"
	"sync"
	"testing"

	"github.com/ppiankov/claimcheck/internal/llm"
	"github.com/ppiankov/claimcheck/internal/model"
)

// fakeModel answers every structured call the stages make, keyed on the
// schema named in the system prompt and the quoted input in the user prompt
type fakeModel struct {
	mu    sync.Mutex
	calls map[string][]string

	claims    map[string][]string // extraction replies by sentence
	invalid   map[string]bool     // validation false by claim
	verdicts  map[string]string   // verification replies by claim
	resolved  map[string]string   // disambiguation replies by sentence
	failures  map[string]bool     // provider error by input
	malformed map[string]bool     // non-JSON reply by input
	summary   string
}

func newFakeModel() *fakeModel {
	return &fakeModel{
		calls:     make(map[string][]string),
		claims:    make(map[string][]string),
		invalid:   make(map[string]bool),
		verdicts:  make(map[string]string),
		resolved:  make(map[string]string),
		failures:  make(map[string]bool),
		malformed: make(map[string]bool),
	}
}

func (m *fakeModel) Name() string                         { return "fake" }
func (m *fakeModel) IsAvailable(ctx context.Context) bool { return true }

func (m *fakeModel) Complete(ctx context.Context, req llm.CompletionRequest) (*llm.CompletionResponse, error) {
	var system, user string
	for _, msg := range req.Messages {
		switch msg.Role {
		case llm.RoleSystem:
			system = msg.Content
		case llm.RoleUser:
			user = msg.Content
		}
	}

	kind, input := classifyCall(system, user)

	m.mu.Lock()
	m.calls[kind] = append(m.calls[kind], input)
	fail, malformed := m.failures[input], m.malformed[input]
	m.mu.Unlock()

	if fail {
		return nil, errors.New("backend unavailable")
	}
	if malformed {
		return &llm.CompletionResponse{Text: "I think it is probably true"}, nil
	}

	var reply any
	switch kind {
	case "disambiguation":
		sentence := input
		if r, ok := m.resolved[input]; ok {
			sentence = r
		}
		reply = map[string]string{"disambiguated_sentence": sentence}
	case "extraction":
		claims, ok := m.claims[input]
		if !ok {
			claims = []string{input}
		}
		reply = map[string][]string{"claims": claims}
	case "validation":
		reply = map[string]bool{"is_complete_declarative": !m.invalid[input]}
	case "verification":
		verdict, ok := m.verdicts[input]
		if !ok {
			verdict = "Supported"
		}
		reply = map[string]string{"result": verdict, "reasoning": "Per [1]."}
	case "summary":
		reply = map[string]string{"summary": m.summary}
	default:
		return nil, errors.New("unexpected call")
	}

	data, _ := json.Marshal(reply)
	return &llm.CompletionResponse{Text: string(data)}, nil
}

func (m *fakeModel) callsFor(kind string) []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]string(nil), m.calls[kind]...)
}

func classifyCall(system, user string) (kind, input string) {
	switch {
	case strings.Contains(system, `"disambiguated_sentence"`):
		return "disambiguation", quotedAfter(user, "Sentence to rewrite: ")
	case strings.Contains(system, `"claims"`):
		return "extraction", quotedAfter(user, "Sentence: ")
	case strings.Contains(system, `"is_complete_declarative"`):
		return "validation", quotedAfter(user, "User text: ")
	case strings.Contains(system, `"result"`):
		return "verification", quotedAfter(user, "Claim: ")
	case strings.Contains(system, `"summary"`):
		return "summary", user
	}
	return "unknown", user
}

// quotedAfter unquotes the Go-quoted string following prefix on its line
func quotedAfter(text, prefix string) string {
	idx := strings.Index(text, prefix)
	if idx < 0 {
		return ""
	}
	rest := text[idx+len(prefix):]
	if nl := strings.IndexByte(rest, '\n'); nl >= 0 {
		rest = rest[:nl]
	}
	s, err := strconv.Unquote(rest)
	if err != nil {
		return rest
	}
	return s
}

func newTestGateway(p llm.Provider) *llm.Gateway {
	return llm.NewGateway(p, llm.Config{Model: "test-model"}, llm.WithMaxAttempts(1), llm.WithBackoff(0))
}

// stateWith builds a state with the given updates already merged
func stateWith(t *testing.T, updates ...Update) *State {
	t.Helper()
	s := NewState("test input")
	for _, u := range updates {
		if err := s.merge("test", u.Writes(), u); err != nil {
			t.Fatalf("merge: %v", err)
		}
	}
	return s
}

func potentialClaims(texts ...string) []model.PotentialClaim {
	claims := make([]model.PotentialClaim, len(texts))
	for i, text := range texts {
		claims[i] = model.PotentialClaim{
			Text:                  text,
			DisambiguatedSentence: text,
			OriginalSentence:      text,
			OriginalIndex:         i,
		}
	}
	return claims
}

func validatedTexts(items []model.ValidatedClaim) []string {
	out := make([]string, len(items))
	for i, it := range items {
		out[i] = it.Text
	}
	return out
}

func potentialTexts(items []model.PotentialClaim) []string {
	out := make([]string, len(items))
	for i, it := range items {
		out[i] = it.Text
	}
	return out
}
