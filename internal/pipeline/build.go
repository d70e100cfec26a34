package pipeline

import (
	"strings"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/ppiankov/claimcheck/internal/cache"
	"github.com/ppiankov/claimcheck/internal/config"
	"github.com/ppiankov/claimcheck/internal/llm"
	"github.com/ppiankov/claimcheck/internal/metrics"
	"github.com/ppiankov/claimcheck/internal/score"
	"github.com/ppiankov/claimcheck/internal/search"
	"github.com/ppiankov/claimcheck/internal/util"
	"github.com/ppiankov/claimcheck/internal/worker"
)

// Components are the collaborators shared by the default stages
type Components struct {
	Gateway   *llm.Gateway
	Retriever search.Retriever
	Authority *search.AuthorityClassifier
	Settings  config.PipelineConfig

	MaxSources int
}

// DefaultNodes returns the stages in execution order:
// selection, disambiguation, extraction, validation, verification, aggregation.
func DefaultNodes(c Components) []Node {
	var resolver Resolver = PassThrough{}
	if strings.EqualFold(c.Settings.Disambiguation, "llm") {
		resolver = NewLLMResolver(c.Gateway)
	}

	conc := c.Settings.Concurrency
	return []Node{
		&SelectionNode{MinChars: c.Settings.MinSentenceChars},
		&DisambiguationNode{Resolver: resolver, Concurrency: conc},
		&ExtractionNode{Gateway: c.Gateway, Concurrency: conc},
		&ValidationNode{Gateway: c.Gateway, Concurrency: conc},
		&VerificationNode{
			Gateway:     c.Gateway,
			Retriever:   c.Retriever,
			Authority:   c.Authority,
			MaxSources:  c.MaxSources,
			Concurrency: conc,
		},
		&AggregationNode{Scorer: score.NewScorer(), Gateway: c.Gateway, LLMSummary: c.Settings.LLMSummary},
	}
}

// Options override parts of what New builds from configuration
type Options struct {
	Metrics *metrics.Metrics

	// Provider replaces the configured LLM provider when non-nil
	Provider llm.Provider
	// Retriever replaces the configured retrievers when non-nil
	Retriever search.Retriever
}

// New wires a graph from cfg: LLM provider and gateway, evidence retrievers,
// caches, rate limiters and authority classification.
func New(cfg *config.Config, opts Options) (*Graph, error) {
	switch strings.ToLower(cfg.Pipeline.Disambiguation) {
	case "", "passthrough", "llm":
	default:
		return nil, eris.Errorf("pipeline: unknown disambiguation mode %q (supported: passthrough, llm)", cfg.Pipeline.Disambiguation)
	}

	var c cache.Cache
	if cfg.Cache.Enabled {
		c = cache.NewLayeredCache(
			time.Duration(cfg.Cache.MemoryTTLMins)*time.Minute,
			cfg.Cache.Dir,
			time.Duration(cfg.Cache.DiskTTLHours)*time.Hour,
		)
	}
	cacheTTL := time.Duration(cfg.Cache.DiskTTLHours) * time.Hour

	llmConfig := llm.ConfigFromSettings(cfg.LLM)
	provider := opts.Provider
	if provider == nil {
		p, err := llm.NewProvider(llmConfig)
		if err != nil {
			return nil, eris.Wrap(err, "pipeline: create LLM provider")
		}
		provider = p
	}
	if provider == nil {
		zap.L().Warn("pipeline: no LLM provider configured; claims will fall back to unverified outcomes")
	}

	gatewayOpts := []llm.GatewayOption{
		llm.WithLimiter(worker.NewLimiter(cfg.RateLimit.LLMRequestsPerSecond, cfg.RateLimit.LLMBurst)),
		llm.WithMaxAttempts(cfg.LLM.MaxAttempts),
		llm.WithRecorder(opts.Metrics),
	}
	if c != nil {
		gatewayOpts = append(gatewayOpts, llm.WithCache(c, cacheTTL))
	}
	gateway := llm.NewGateway(provider, llmConfig, gatewayOpts...)

	retriever := opts.Retriever
	if retriever == nil {
		r, err := search.New(cfg.Search, search.Deps{
			Cache:    c,
			CacheTTL: cacheTTL,
			Limiter:  worker.NewLimiter(cfg.RateLimit.SearchRequestsPerSecond, cfg.RateLimit.SearchBurst),
			Proxy:    util.ProxyConfig{HTTPProxy: cfg.LLM.HTTPProxy, HTTPSProxy: cfg.LLM.HTTPSProxy, NoProxy: cfg.LLM.NoProxy},
		})
		if err != nil {
			return nil, eris.Wrap(err, "pipeline: create retrievers")
		}
		retriever = r
	}
	if retriever == nil {
		zap.L().Warn("pipeline: no search providers configured; every claim will lack evidence")
	}

	nodes := DefaultNodes(Components{
		Gateway:    gateway,
		Retriever:  retriever,
		Authority:  search.NewAuthorityClassifier(cfg.Authority),
		Settings:   cfg.Pipeline,
		MaxSources: cfg.Search.MaxSources,
	})

	zap.L().Debug("pipeline: graph built",
		zap.String("llm_provider", gateway.ProviderName()),
		zap.String("disambiguation", cfg.Pipeline.Disambiguation),
		zap.Int("concurrency", cfg.Pipeline.Concurrency),
	)
	return NewGraph(nodes, WithMetrics(opts.Metrics)), nil
}
