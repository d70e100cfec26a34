package llm

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/ppiankov/claimcheck/internal/cache"
)

// scriptedProvider replies with queued texts or errors, in order
type scriptedProvider struct {
	mu       sync.Mutex
	replies  []string
	errs     []error
	requests []CompletionRequest
}

func (p *scriptedProvider) Name() string { return "scripted" }

func (p *scriptedProvider) IsAvailable(ctx context.Context) bool { return true }

func (p *scriptedProvider) Complete(ctx context.Context, req CompletionRequest) (*CompletionResponse, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	n := len(p.requests)
	p.requests = append(p.requests, req)

	if n < len(p.errs) && p.errs[n] != nil {
		return nil, p.errs[n]
	}
	if n < len(p.replies) {
		return &CompletionResponse{Text: p.replies[n]}, nil
	}
	return nil, errors.New("script exhausted")
}

func (p *scriptedProvider) calls() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.requests)
}

type recordingRecorder struct {
	mu       sync.Mutex
	outcomes []string
}

func (r *recordingRecorder) GatewayCall(schema, outcome string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.outcomes = append(r.outcomes, schema+":"+outcome)
}

type verdictReply struct {
	Result    string `json:"result" validate:"required,oneof=Supported Refuted"`
	Reasoning string `json:"reasoning" validate:"required"`
}

type flagReply struct {
	Complete *bool `json:"is_complete_declarative" validate:"required"`
}

var testSchema = Schema{
	Name: "verification",
	Fields: []Field{
		{Name: "result", Type: "string", Description: "Supported or Refuted"},
		{Name: "reasoning", Type: "string", Description: "one sentence"},
	},
}

func newTestGateway(p Provider, opts ...GatewayOption) *Gateway {
	g := NewGateway(p, Config{Model: "test-model", MaxTokens: 256}, opts...)
	g.sleep = func(ctx context.Context, d time.Duration) error { return ctx.Err() }
	return g
}

func TestGateway_Invoke_Success(t *testing.T) {
	p := &scriptedProvider{replies: []string{"```json\n{\"result\":\"Supported\",\"reasoning\":\"Matches the source.\"}\n```"}}
	rec := &recordingRecorder{}
	g := newTestGateway(p, WithRecorder(rec))

	var out verdictReply
	err := g.Invoke(context.Background(), Request{
		Messages: []Message{System("You classify claims."), User("Claim: water is wet")},
		Schema:   testSchema,
		Context:  "water is wet",
	}, &out)

	require.NoError(t, err)
	assert.Equal(t, verdictReply{Result: "Supported", Reasoning: "Matches the source."}, out)
	assert.Equal(t, []string{"verification:success"}, rec.outcomes)

	// Schema instructions ride on the existing system message, JSON mode is requested
	require.Len(t, p.requests, 1)
	sent := p.requests[0]
	assert.True(t, sent.JSON)
	assert.Equal(t, "test-model", sent.Model)
	require.Len(t, sent.Messages, 2)
	assert.Contains(t, sent.Messages[0].Content, "You classify claims.")
	assert.Contains(t, sent.Messages[0].Content, `"reasoning" (string)`)
}

func TestGateway_Invoke_RetriesMalformedReply(t *testing.T) {
	p := &scriptedProvider{replies: []string{
		"I think it is supported.",
		`{"result":"Refuted","reasoning":"Source says otherwise."}`,
	}}
	g := newTestGateway(p, WithMaxAttempts(2))

	var out verdictReply
	require.NoError(t, g.Invoke(context.Background(), Request{Schema: testSchema, Messages: []Message{User("x")}}, &out))

	assert.Equal(t, "Refuted", out.Result)
	assert.Equal(t, 2, p.calls())
}

func TestGateway_Invoke_FailsClosed(t *testing.T) {
	tests := []struct {
		name    string
		replies []string
		errs    []error
	}{
		{name: "provider error", errs: []error{errors.New("503"), errors.New("503")}},
		{name: "not json", replies: []string{"yes", "still yes"}},
		{name: "missing field", replies: []string{`{"result":"Supported"}`, `{"result":"Supported"}`}},
		{name: "value outside enum", replies: []string{`{"result":"Maybe","reasoning":"r"}`, `{"result":"Maybe","reasoning":"r"}`}},
		{name: "array instead of object", replies: []string{`[1,2]`, `[1,2]`}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := &scriptedProvider{replies: tt.replies, errs: tt.errs}
			rec := &recordingRecorder{}
			g := newTestGateway(p, WithMaxAttempts(2), WithRecorder(rec))

			out := verdictReply{Result: "untouched"}
			err := g.Invoke(context.Background(), Request{Schema: testSchema, Context: "ctx"}, &out)

			require.Error(t, err)
			assert.True(t, errors.Is(err, ErrGatewayFailure))
			assert.Equal(t, "untouched", out.Result)
			assert.Equal(t, 2, p.calls())
			assert.Equal(t, []string{"verification:failure"}, rec.outcomes)
		})
	}
}

func TestGateway_Invoke_RequiredBoolean(t *testing.T) {
	schema := Schema{Name: "validation", Fields: []Field{{Name: "is_complete_declarative", Type: "boolean"}}}

	p := &scriptedProvider{replies: []string{`{"is_complete_declarative": false}`}}
	var out flagReply
	require.NoError(t, newTestGateway(p).Invoke(context.Background(), Request{Schema: schema}, &out))
	require.NotNil(t, out.Complete)
	assert.False(t, *out.Complete)

	// An absent boolean is not the same as false
	p = &scriptedProvider{replies: []string{`{}`}}
	out = flagReply{}
	err := newTestGateway(p, WithMaxAttempts(1)).Invoke(context.Background(), Request{Schema: schema}, &out)
	assert.ErrorIs(t, err, ErrGatewayFailure)
}

func TestGateway_Invoke_Disabled(t *testing.T) {
	g := NewGateway(nil, Config{})
	assert.False(t, g.Enabled())
	assert.Equal(t, "", g.ProviderName())

	var out verdictReply
	err := g.Invoke(context.Background(), Request{Schema: testSchema}, &out)
	assert.ErrorIs(t, err, ErrGatewayFailure)
	assert.ErrorIs(t, err, ErrProviderDisabled)
}

// observeLogs routes the global logger into an in-memory sink for the test
func observeLogs(t *testing.T) *observer.ObservedLogs {
	t.Helper()
	core, logs := observer.New(zapcore.DebugLevel)
	restore := zap.ReplaceGlobals(zap.New(core))
	t.Cleanup(restore)
	return logs
}

func TestGateway_Invoke_DisabledLogsContext(t *testing.T) {
	logs := observeLogs(t)
	rec := &recordingRecorder{}
	g := NewGateway(nil, Config{}, WithRecorder(rec))

	var out verdictReply
	err := g.Invoke(context.Background(), Request{Schema: testSchema, Context: "validation of claim X"}, &out)
	require.ErrorIs(t, err, ErrProviderDisabled)

	entries := logs.FilterMessage("llm: structured call failed").All()
	require.Len(t, entries, 1)
	assert.Equal(t, zapcore.WarnLevel, entries[0].Level)
	assert.Equal(t, "validation of claim X", entries[0].ContextMap()["context"])
	assert.Equal(t, []string{"verification:failure"}, rec.outcomes)
}

func TestGateway_Invoke_NonPointerLogsContext(t *testing.T) {
	logs := observeLogs(t)
	g := newTestGateway(&scriptedProvider{})

	require.Error(t, g.Invoke(context.Background(), Request{Context: "extraction of sentence 2"}, verdictReply{}))

	entries := logs.FilterField(zap.String("context", "extraction of sentence 2")).All()
	require.Len(t, entries, 1)
	assert.Equal(t, "llm: structured call failed", entries[0].Message)
}

func TestGateway_Invoke_RejectsNonPointer(t *testing.T) {
	g := newTestGateway(&scriptedProvider{})
	assert.Error(t, g.Invoke(context.Background(), Request{}, verdictReply{}))
	assert.Error(t, g.Invoke(context.Background(), Request{}, (*verdictReply)(nil)))
}

func TestGateway_Invoke_Cache(t *testing.T) {
	p := &scriptedProvider{replies: []string{`{"result":"Supported","reasoning":"ok"}`}}
	rec := &recordingRecorder{}
	g := newTestGateway(p, WithCache(cache.NewMemoryCache(time.Minute, time.Minute), time.Minute), WithRecorder(rec))

	req := Request{Messages: []Message{User("same prompt")}, Schema: testSchema}

	var first, second verdictReply
	require.NoError(t, g.Invoke(context.Background(), req, &first))
	require.NoError(t, g.Invoke(context.Background(), req, &second))

	assert.Equal(t, first, second)
	assert.Equal(t, 1, p.calls())
	assert.Equal(t, []string{"verification:success", "verification:cache_hit"}, rec.outcomes)
}

func TestGateway_Invoke_CancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	p := &scriptedProvider{errs: []error{context.Canceled, context.Canceled}}
	g := newTestGateway(p, WithMaxAttempts(2))

	var out verdictReply
	err := g.Invoke(ctx, Request{Schema: testSchema}, &out)
	assert.ErrorIs(t, err, ErrGatewayFailure)
	assert.Equal(t, 1, p.calls())
}

func TestCleanJSON(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{`{"a":1}`, `{"a":1}`},
		{"```json\n{\"a\":1}\n```", `{"a":1}`},
		{"```\n{\"a\":1}\n```", `{"a":1}`},
		{`Sure! Here you go: {"a":{"b":2}} Hope that helps.`, `{"a":{"b":2}}`},
		{"  no json here  ", "no json here"},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, cleanJSON(tt.in))
	}
}

func TestWithSchema(t *testing.T) {
	msgs := []Message{User("hello")}
	out := withSchema(msgs, testSchema)

	require.Len(t, out, 2)
	assert.Equal(t, RoleSystem, out[0].Role)
	assert.Contains(t, out[0].Content, "single JSON object")
	// Input slice is not modified
	assert.Len(t, msgs, 1)

	assert.Equal(t, msgs, withSchema(msgs, Schema{Name: "free"}))
}

func TestSplitSystem(t *testing.T) {
	system, rest := splitSystem([]Message{System("a"), User("u"), System("b"), Assistant("x")})
	assert.Equal(t, "a\n\nb", system)
	assert.Equal(t, []Message{User("u"), Assistant("x")}, rest)
}
