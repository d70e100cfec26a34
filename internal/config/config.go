package config

import (
	"os"
	"path/filepath"
	"strings"

	"github.com/rotisserie/eris"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// EnvPrefix is the prefix for environment overrides (CLAIMCHECK_LLM_PROVIDER, ...)
const EnvPrefix = "CLAIMCHECK"

// Config holds the full application configuration.
type Config struct {
	LLM       LLMConfig       `yaml:"llm" mapstructure:"llm"`
	Search    SearchConfig    `yaml:"search" mapstructure:"search"`
	Pipeline  PipelineConfig  `yaml:"pipeline" mapstructure:"pipeline"`
	Cache     CacheConfig     `yaml:"cache" mapstructure:"cache"`
	RateLimit RateLimitConfig `yaml:"rate_limit" mapstructure:"rate_limit"`
	Authority AuthorityConfig `yaml:"authority" mapstructure:"authority"`
	Server    ServerConfig    `yaml:"server" mapstructure:"server"`
	Log       LogConfig       `yaml:"log" mapstructure:"log"`
}

// LLMConfig configures the language-model backend behind the gateway.
type LLMConfig struct {
	Provider    string  `yaml:"provider" mapstructure:"provider"` // openai, anthropic, ollama, "" (disabled)
	Model       string  `yaml:"model" mapstructure:"model"`
	APIKey      string  `yaml:"api_key,omitempty" mapstructure:"api_key"`
	BaseURL     string  `yaml:"base_url,omitempty" mapstructure:"base_url"`
	TimeoutSecs int     `yaml:"timeout_secs" mapstructure:"timeout_secs"`
	MaxTokens   int     `yaml:"max_tokens" mapstructure:"max_tokens"`
	Temperature float64 `yaml:"temperature" mapstructure:"temperature"`
	MaxAttempts int     `yaml:"max_attempts" mapstructure:"max_attempts"`
	HTTPProxy   string  `yaml:"http_proxy,omitempty" mapstructure:"http_proxy"`
	HTTPSProxy  string  `yaml:"https_proxy,omitempty" mapstructure:"https_proxy"`
	NoProxy     string  `yaml:"no_proxy,omitempty" mapstructure:"no_proxy"`
}

// SearchConfig configures evidence retrieval.
type SearchConfig struct {
	Providers         []string `yaml:"providers" mapstructure:"providers"` // jina, wikipedia, duckduckgo
	MaxSources        int      `yaml:"max_sources" mapstructure:"max_sources"`
	TimeoutSecs       int      `yaml:"timeout_secs" mapstructure:"timeout_secs"`
	UserAgent         string   `yaml:"user_agent" mapstructure:"user_agent"`
	JinaKey           string   `yaml:"jina_key,omitempty" mapstructure:"jina_key"`
	JinaBaseURL       string   `yaml:"jina_base_url" mapstructure:"jina_base_url"`
	WikipediaBaseURL  string   `yaml:"wikipedia_base_url" mapstructure:"wikipedia_base_url"`
	DuckDuckGoBaseURL string   `yaml:"duckduckgo_base_url" mapstructure:"duckduckgo_base_url"`
}

// PipelineConfig configures stage behavior.
type PipelineConfig struct {
	Disambiguation   string `yaml:"disambiguation" mapstructure:"disambiguation"` // passthrough, llm
	MinSentenceChars int    `yaml:"min_sentence_chars" mapstructure:"min_sentence_chars"`
	Concurrency      int    `yaml:"concurrency" mapstructure:"concurrency"` // 0 = one goroutine per item
	LLMSummary       bool   `yaml:"llm_summary" mapstructure:"llm_summary"`
}

// CacheConfig configures the response caches.
type CacheConfig struct {
	Enabled       bool   `yaml:"enabled" mapstructure:"enabled"`
	Dir           string `yaml:"dir" mapstructure:"dir"`
	MemoryTTLMins int    `yaml:"memory_ttl_mins" mapstructure:"memory_ttl_mins"`
	DiskTTLHours  int    `yaml:"disk_ttl_hours" mapstructure:"disk_ttl_hours"`
}

// RateLimitConfig configures token buckets for outbound calls.
type RateLimitConfig struct {
	LLMRequestsPerSecond    float64 `yaml:"llm_requests_per_second" mapstructure:"llm_requests_per_second"`
	LLMBurst                int     `yaml:"llm_burst" mapstructure:"llm_burst"`
	SearchRequestsPerSecond float64 `yaml:"search_requests_per_second" mapstructure:"search_requests_per_second"`
	SearchBurst             int     `yaml:"search_burst" mapstructure:"search_burst"`
}

// AuthorityConfig configures source authority classification.
type AuthorityConfig struct {
	PrimaryDomains   []string          `yaml:"primary_domains" mapstructure:"primary_domains"`
	SecondaryDomains []string          `yaml:"secondary_domains" mapstructure:"secondary_domains"`
	PathPatterns     []PathPattern     `yaml:"path_patterns,omitempty" mapstructure:"path_patterns"`
	DomainMap        map[string]string `yaml:"domain_map,omitempty" mapstructure:"domain_map"`
}

// PathPattern maps a URL path regex to an authority tier name.
type PathPattern struct {
	Pattern string `yaml:"pattern" mapstructure:"pattern"`
	Tier    string `yaml:"tier" mapstructure:"tier"`
}

// ServerConfig configures the HTTP front end.
type ServerConfig struct {
	Addr string `yaml:"addr" mapstructure:"addr"`
}

// LogConfig configures logging.
type LogConfig struct {
	Level  string `yaml:"level" mapstructure:"level"`
	Format string `yaml:"format" mapstructure:"format"`
}

// Default returns the built-in configuration.
func Default() *Config {
	return &Config{
		LLM: LLMConfig{
			Provider:    "",
			TimeoutSecs: 60,
			MaxTokens:   1024,
			Temperature: 0,
			MaxAttempts: 2,
		},
		Search: SearchConfig{
			Providers:         []string{"wikipedia"},
			MaxSources:        5,
			TimeoutSecs:       15,
			UserAgent:         "claimcheck/0.1 (+https://github.com/ppiankov/claimcheck)",
			JinaBaseURL:       "https://s.jina.ai",
			WikipediaBaseURL:  "https://en.wikipedia.org",
			DuckDuckGoBaseURL: "https://html.duckduckgo.com",
		},
		Pipeline: PipelineConfig{
			Disambiguation:   "passthrough",
			MinSentenceChars: 3,
			Concurrency:      0,
			LLMSummary:       false,
		},
		Cache: CacheConfig{
			Enabled:       true,
			Dir:           defaultCacheDir(),
			MemoryTTLMins: 30,
			DiskTTLHours:  24,
		},
		RateLimit: RateLimitConfig{
			LLMRequestsPerSecond:    10,
			LLMBurst:                10,
			SearchRequestsPerSecond: 2,
			SearchBurst:             4,
		},
		Authority: AuthorityConfig{
			PrimaryDomains: []string{
				"doi.org",
				"nih.gov",
				"who.int",
				"europa.eu",
				"legislation.gov.uk",
				"arxiv.org",
			},
			SecondaryDomains: []string{
				"wikipedia.org",
				"britannica.com",
				"reuters.com",
				"apnews.com",
				"bbc.co.uk",
				"nature.com",
			},
		},
		Server: ServerConfig{
			Addr: ":8000",
		},
		Log: LogConfig{
			Level:  "info",
			Format: "console",
		},
	}
}

// Load reads configuration from the given file (or ~/.claimcheck/config.yaml
// when path is empty) and the environment, on top of Default().
func Load(path string) (*Config, error) {
	v := viper.New()

	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		if home, err := os.UserHomeDir(); err == nil {
			v.AddConfigPath(filepath.Join(home, ".claimcheck"))
		}
		v.AddConfigPath(".")
	}

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v, Default())

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, eris.Wrap(err, "config: read file")
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, eris.Wrap(err, "config: unmarshal")
	}

	applyProviderEnv(&cfg)
	return &cfg, nil
}

func setDefaults(v *viper.Viper, d *Config) {
	v.SetDefault("llm.provider", d.LLM.Provider)
	v.SetDefault("llm.model", d.LLM.Model)
	v.SetDefault("llm.api_key", d.LLM.APIKey)
	v.SetDefault("llm.base_url", d.LLM.BaseURL)
	v.SetDefault("llm.timeout_secs", d.LLM.TimeoutSecs)
	v.SetDefault("llm.max_tokens", d.LLM.MaxTokens)
	v.SetDefault("llm.temperature", d.LLM.Temperature)
	v.SetDefault("llm.max_attempts", d.LLM.MaxAttempts)
	v.SetDefault("llm.http_proxy", d.LLM.HTTPProxy)
	v.SetDefault("llm.https_proxy", d.LLM.HTTPSProxy)
	v.SetDefault("llm.no_proxy", d.LLM.NoProxy)
	v.SetDefault("search.providers", d.Search.Providers)
	v.SetDefault("search.max_sources", d.Search.MaxSources)
	v.SetDefault("search.timeout_secs", d.Search.TimeoutSecs)
	v.SetDefault("search.user_agent", d.Search.UserAgent)
	v.SetDefault("search.jina_key", d.Search.JinaKey)
	v.SetDefault("search.jina_base_url", d.Search.JinaBaseURL)
	v.SetDefault("search.wikipedia_base_url", d.Search.WikipediaBaseURL)
	v.SetDefault("search.duckduckgo_base_url", d.Search.DuckDuckGoBaseURL)
	v.SetDefault("pipeline.disambiguation", d.Pipeline.Disambiguation)
	v.SetDefault("pipeline.min_sentence_chars", d.Pipeline.MinSentenceChars)
	v.SetDefault("pipeline.concurrency", d.Pipeline.Concurrency)
	v.SetDefault("pipeline.llm_summary", d.Pipeline.LLMSummary)
	v.SetDefault("cache.enabled", d.Cache.Enabled)
	v.SetDefault("cache.dir", d.Cache.Dir)
	v.SetDefault("cache.memory_ttl_mins", d.Cache.MemoryTTLMins)
	v.SetDefault("cache.disk_ttl_hours", d.Cache.DiskTTLHours)
	v.SetDefault("rate_limit.llm_requests_per_second", d.RateLimit.LLMRequestsPerSecond)
	v.SetDefault("rate_limit.llm_burst", d.RateLimit.LLMBurst)
	v.SetDefault("rate_limit.search_requests_per_second", d.RateLimit.SearchRequestsPerSecond)
	v.SetDefault("rate_limit.search_burst", d.RateLimit.SearchBurst)
	v.SetDefault("authority.primary_domains", d.Authority.PrimaryDomains)
	v.SetDefault("authority.secondary_domains", d.Authority.SecondaryDomains)
	v.SetDefault("server.addr", d.Server.Addr)
	v.SetDefault("log.level", d.Log.Level)
	v.SetDefault("log.format", d.Log.Format)
}

// applyProviderEnv fills API keys from the vendors' conventional variables
func applyProviderEnv(cfg *Config) {
	if cfg.LLM.APIKey == "" {
		switch strings.ToLower(cfg.LLM.Provider) {
		case "openai":
			cfg.LLM.APIKey = os.Getenv("OPENAI_API_KEY")
		case "anthropic", "claude":
			cfg.LLM.APIKey = os.Getenv("ANTHROPIC_API_KEY")
		}
	}
	if cfg.LLM.BaseURL == "" && strings.EqualFold(cfg.LLM.Provider, "ollama") {
		cfg.LLM.BaseURL = os.Getenv("OLLAMA_BASE_URL")
	}
	if cfg.Search.JinaKey == "" {
		cfg.Search.JinaKey = os.Getenv("JINA_API_KEY")
	}
}

func defaultCacheDir() string {
	if dir, err := os.UserCacheDir(); err == nil {
		return filepath.Join(dir, "claimcheck")
	}
	return filepath.Join(os.TempDir(), "claimcheck-cache")
}

// InitLogger initializes the global zap logger.
func InitLogger(cfg LogConfig) error {
	var zapCfg zap.Config
	if cfg.Format == "console" {
		zapCfg = zap.NewDevelopmentConfig()
	} else {
		zapCfg = zap.NewProductionConfig()
	}

	level, err := zapcore.ParseLevel(cfg.Level)
	if err != nil {
		return eris.Wrap(err, "config: parse log level")
	}
	zapCfg.Level.SetLevel(level)

	logger, err := zapCfg.Build()
	if err != nil {
		return eris.Wrap(err, "config: build logger")
	}
	zap.ReplaceGlobals(logger)

	return nil
}
