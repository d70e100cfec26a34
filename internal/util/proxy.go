package util

import (
	"net/http"
	"net/url"
	"strings"
	"time"
)

// ProxyConfig holds explicit proxy settings; empty fields defer to the environment
type ProxyConfig struct {
	HTTPProxy  string
	HTTPSProxy string
	NoProxy    string
}

// NewProxyFunc creates a proxy function based on configuration.
// If no proxy URLs are provided, falls back to environment variables.
func NewProxyFunc(cfg ProxyConfig) func(*http.Request) (*url.URL, error) {
	if cfg.HTTPProxy == "" && cfg.HTTPSProxy == "" {
		return http.ProxyFromEnvironment
	}

	bypass := splitHosts(cfg.NoProxy)

	return func(req *http.Request) (*url.URL, error) {
		if matchesHost(bypass, req.URL.Hostname()) {
			return nil, nil
		}
		if req.URL.Scheme == "https" && cfg.HTTPSProxy != "" {
			return url.Parse(cfg.HTTPSProxy)
		}
		if cfg.HTTPProxy != "" {
			return url.Parse(cfg.HTTPProxy)
		}
		return http.ProxyFromEnvironment(req)
	}
}

// NewHTTPClient returns a client with the given timeout routed through the configured proxy
func NewHTTPClient(timeout time.Duration, cfg ProxyConfig) *http.Client {
	transport := http.DefaultTransport.(*http.Transport).Clone()
	transport.Proxy = NewProxyFunc(cfg)

	return &http.Client{
		Timeout:   timeout,
		Transport: transport,
	}
}

func splitHosts(list string) []string {
	var hosts []string
	for _, h := range strings.Split(list, ",") {
		if h = strings.TrimSpace(h); h != "" {
			hosts = append(hosts, strings.ToLower(h))
		}
	}
	return hosts
}

// matchesHost reports whether host equals or is a subdomain of any entry; "*" matches all
func matchesHost(entries []string, host string) bool {
	host = strings.ToLower(host)
	for _, e := range entries {
		e = strings.TrimPrefix(e, ".")
		if e == "*" || host == e || strings.HasSuffix(host, "."+e) {
			return true
		}
	}
	return false
}
