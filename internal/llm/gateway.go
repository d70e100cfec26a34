package llm

import (
	"context"
	"encoding/json"
	"errors"
	"reflect"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/ppiankov/claimcheck/internal/cache"
	"github.com/ppiankov/claimcheck/internal/worker"
)

var (
	// ErrGatewayFailure marks a structured call that produced no conforming output
	ErrGatewayFailure = errors.New("llm: structured call failed")

	// ErrProviderDisabled is returned when no provider is configured
	ErrProviderDisabled = errors.New("llm: no provider configured")
)

// Recorder receives one observation per structured call
type Recorder interface {
	GatewayCall(schema, outcome string)
}

// Request is one structured call
type Request struct {
	Messages []Message
	Schema   Schema

	// Context describes the call for logs, e.g. the sentence being processed
	Context string
}

// Gateway turns a chat exchange into a validated, typed object.
// It is safe for concurrent use.
type Gateway struct {
	provider    Provider
	config      Config
	maxAttempts int
	backoff     time.Duration

	cache    cache.Cache
	cacheTTL time.Duration
	limiter  *worker.Limiter
	recorder Recorder
	validate *validator.Validate

	sleep func(ctx context.Context, d time.Duration) error
}

// GatewayOption configures a Gateway
type GatewayOption func(*Gateway)

// WithCache stores conforming replies keyed by provider, model and prompt
func WithCache(c cache.Cache, ttl time.Duration) GatewayOption {
	return func(g *Gateway) {
		g.cache = c
		g.cacheTTL = ttl
	}
}

// WithLimiter throttles calls per provider
func WithLimiter(l *worker.Limiter) GatewayOption {
	return func(g *Gateway) { g.limiter = l }
}

// WithRecorder reports call outcomes
func WithRecorder(r Recorder) GatewayOption {
	return func(g *Gateway) { g.recorder = r }
}

// WithMaxAttempts sets how many times a call is tried before failing; minimum 1
func WithMaxAttempts(n int) GatewayOption {
	return func(g *Gateway) {
		if n < 1 {
			n = 1
		}
		g.maxAttempts = n
	}
}

// WithBackoff sets the base delay between attempts
func WithBackoff(d time.Duration) GatewayOption {
	return func(g *Gateway) { g.backoff = d }
}

// NewGateway wraps provider. A nil provider yields a gateway whose every call fails with ErrProviderDisabled.
func NewGateway(provider Provider, config Config, opts ...GatewayOption) *Gateway {
	g := &Gateway{
		provider:    provider,
		config:      config,
		maxAttempts: 2,
		backoff:     500 * time.Millisecond,
		validate:    validator.New(validator.WithRequiredStructEnabled()),
		sleep:       sleepCtx,
	}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

// Enabled reports whether calls can reach a provider
func (g *Gateway) Enabled() bool {
	return g != nil && g.provider != nil
}

// ProviderName returns the wrapped provider's name, or "" when disabled
func (g *Gateway) ProviderName() string {
	if !g.Enabled() {
		return ""
	}
	return g.provider.Name()
}

// Invoke sends req and decodes the reply into out, which must be a non-nil pointer.
// The reply must be a JSON object that decodes into out and passes its validate tags.
// Any other outcome, after retries, is an error wrapping ErrGatewayFailure; out is
// left untouched in that case.
func (g *Gateway) Invoke(ctx context.Context, req Request, out any) error {
	log := zap.L().With(
		zap.String("provider", g.ProviderName()),
		zap.String("schema", req.Schema.Name),
		zap.String("context", req.Context),
	)

	target := reflect.ValueOf(out)
	if target.Kind() != reflect.Pointer || target.IsNil() {
		err := eris.Errorf("llm: Invoke needs a non-nil pointer, got %T", out)
		g.record(req.Schema.Name, "failure")
		log.Warn("llm: structured call failed", zap.Error(err))
		return err
	}

	if !g.Enabled() {
		g.record(req.Schema.Name, "failure")
		log.Warn("llm: structured call failed", zap.Error(ErrProviderDisabled))
		return errors.Join(ErrGatewayFailure, ErrProviderDisabled)
	}

	messages := withSchema(req.Messages, req.Schema)

	key := cache.Key("llm", g.provider.Name(), g.config.Model, renderMessages(messages))
	if raw, ok := g.cacheGet(key); ok {
		if decoded, err := g.decode(raw, target.Type().Elem()); err == nil {
			target.Elem().Set(decoded)
			g.record(req.Schema.Name, "cache_hit")
			log.Debug("llm: cache hit")
			return nil
		}
	}

	var lastErr error
	for attempt := 1; attempt <= g.maxAttempts; attempt++ {
		if attempt > 1 {
			if err := g.sleep(ctx, time.Duration(attempt-1)*g.backoff); err != nil {
				lastErr = err
				break
			}
		}

		raw, err := g.attempt(ctx, messages)
		if err == nil {
			var decoded reflect.Value
			decoded, err = g.decode(raw, target.Type().Elem())
			if err == nil {
				target.Elem().Set(decoded)
				g.cacheSet(key, raw)
				g.record(req.Schema.Name, "success")
				log.Info("llm: structured call succeeded", zap.Int("attempt", attempt))
				return nil
			}
		}

		lastErr = err
		log.Warn("llm: attempt failed",
			zap.Int("attempt", attempt),
			zap.Int("max_attempts", g.maxAttempts),
			zap.Error(err),
		)

		if ctx.Err() != nil {
			break
		}
	}

	g.record(req.Schema.Name, "failure")
	log.Warn("llm: structured call failed", zap.Int("attempts", g.maxAttempts), zap.Error(lastErr))
	return eris.Wrapf(ErrGatewayFailure, "%s (%s): %v", req.Schema.Name, req.Context, lastErr)
}

func (g *Gateway) attempt(ctx context.Context, messages []Message) (string, error) {
	if err := g.limiter.Wait(ctx, g.provider.Name()); err != nil {
		return "", eris.Wrap(err, "llm: rate limit wait")
	}

	resp, err := g.provider.Complete(ctx, CompletionRequest{
		Messages:    messages,
		Model:       g.config.Model,
		MaxTokens:   g.config.MaxTokens,
		Temperature: g.config.Temperature,
		JSON:        true,
	})
	if err != nil {
		return "", err
	}

	return cleanJSON(resp.Text), nil
}

// decode unmarshals raw into a fresh value of type t and validates it
func (g *Gateway) decode(raw string, t reflect.Type) (reflect.Value, error) {
	if !strings.HasPrefix(raw, "{") {
		return reflect.Value{}, eris.New("llm: reply is not a JSON object")
	}

	ptr := reflect.New(t)
	dec := json.NewDecoder(strings.NewReader(raw))
	if err := dec.Decode(ptr.Interface()); err != nil {
		return reflect.Value{}, eris.Wrap(err, "llm: decode reply")
	}

	if t.Kind() == reflect.Struct {
		if err := g.validate.Struct(ptr.Interface()); err != nil {
			return reflect.Value{}, eris.Wrap(err, "llm: reply failed validation")
		}
	}

	return ptr.Elem(), nil
}

func (g *Gateway) cacheGet(key string) (string, bool) {
	if g.cache == nil {
		return "", false
	}
	data, ok := g.cache.Get(key)
	return string(data), ok
}

func (g *Gateway) cacheSet(key, raw string) {
	if g.cache == nil {
		return
	}
	if err := g.cache.Set(key, []byte(raw), g.cacheTTL); err != nil {
		zap.L().Debug("llm: cache write failed", zap.Error(err))
	}
}

func (g *Gateway) record(schema, outcome string) {
	if g != nil && g.recorder != nil {
		g.recorder.GatewayCall(schema, outcome)
	}
}

// withSchema appends the schema instructions to the system prompt, adding one if absent
func withSchema(messages []Message, schema Schema) []Message {
	if len(schema.Fields) == 0 {
		return messages
	}

	out := make([]Message, len(messages), len(messages)+1)
	copy(out, messages)

	for i, m := range out {
		if m.Role == RoleSystem {
			out[i].Content = m.Content + "\n\n" + schema.Instructions()
			return out
		}
	}
	return append([]Message{System(schema.Instructions())}, out...)
}

func renderMessages(messages []Message) string {
	var b strings.Builder
	for _, m := range messages {
		b.WriteString(string(m.Role))
		b.WriteString(": ")
		b.WriteString(m.Content)
		b.WriteString("\n")
	}
	return b.String()
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
