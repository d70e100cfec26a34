package search

import (
	"strings"
	"time"

	"github.com/rotisserie/eris"

	"github.com/ppiankov/claimcheck/internal/cache"
	"github.com/ppiankov/claimcheck/internal/config"
	"github.com/ppiankov/claimcheck/internal/util"
	"github.com/ppiankov/claimcheck/internal/worker"
)

// Deps carries shared infrastructure for retrievers
type Deps struct {
	Cache    cache.Cache
	CacheTTL time.Duration
	Limiter  *worker.Limiter
	Proxy    util.ProxyConfig
}

// New builds the configured retriever chain. Each backend is rate limited and
// cached on its own; an empty provider list yields (nil, nil).
func New(cfg config.SearchConfig, deps Deps) (Retriever, error) {
	timeout := time.Duration(cfg.TimeoutSecs) * time.Second
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	httpClient := util.NewHTTPClient(timeout, deps.Proxy)

	var retrievers []Retriever
	seen := make(map[string]bool)
	for _, name := range cfg.Providers {
		name = strings.ToLower(strings.TrimSpace(name))
		if name == "" || seen[name] {
			continue
		}
		seen[name] = true

		var r Retriever
		switch name {
		case "jina":
			jr, err := NewJinaRetriever(cfg.JinaKey, WithJinaBaseURL(cfg.JinaBaseURL), WithJinaHTTPClient(httpClient))
			if err != nil {
				return nil, err
			}
			r = jr
		case "wikipedia":
			r = NewWikipediaRetriever(cfg.WikipediaBaseURL, cfg.UserAgent, httpClient)
		case "duckduckgo":
			robots := util.NewRobotsChecker(cfg.UserAgent, httpClient)
			r = NewDuckDuckGoRetriever(cfg.DuckDuckGoBaseURL, cfg.UserAgent, httpClient, robots)
		default:
			return nil, eris.Errorf("search: unknown provider %q (supported: jina, wikipedia, duckduckgo)", name)
		}

		retrievers = append(retrievers, Cached(Limited(r, deps.Limiter), deps.Cache, deps.CacheTTL))
	}

	switch len(retrievers) {
	case 0:
		return nil, nil
	case 1:
		return retrievers[0], nil
	default:
		return NewMulti(retrievers...), nil
	}
}
