package search

import (
	"context"
	"net/http"
	"net/url"
	"strings"

	"github.com/rotisserie/eris"
	"golang.org/x/net/html"

	"github.com/ppiankov/claimcheck/internal/model"
	"github.com/ppiankov/claimcheck/internal/util"
)

// DuckDuckGoRetriever scrapes the DuckDuckGo HTML endpoint, honoring robots.txt
type DuckDuckGoRetriever struct {
	baseURL   string
	userAgent string
	http      *http.Client
	robots    *util.RobotsChecker
}

// NewDuckDuckGoRetriever creates a DuckDuckGo retriever. A nil robots checker skips the robots.txt check.
func NewDuckDuckGoRetriever(baseURL, userAgent string, httpClient *http.Client, robots *util.RobotsChecker) *DuckDuckGoRetriever {
	if baseURL == "" {
		baseURL = "https://html.duckduckgo.com"
	}
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	return &DuckDuckGoRetriever{
		baseURL:   strings.TrimSuffix(baseURL, "/"),
		userAgent: userAgent,
		http:      httpClient,
		robots:    robots,
	}
}

// Name returns the retriever name
func (r *DuckDuckGoRetriever) Name() string { return "duckduckgo" }

// Search fetches the result page and parses result links and snippets
func (r *DuckDuckGoRetriever) Search(ctx context.Context, query string, limit int) ([]model.Source, error) {
	searchURL := r.baseURL + "/html/?q=" + url.QueryEscape(query)

	if r.robots != nil && !r.robots.IsAllowed(ctx, searchURL) {
		return nil, eris.Wrap(ErrDisallowed, "duckduckgo: "+r.baseURL)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, searchURL, nil)
	if err != nil {
		return nil, eris.Wrap(err, "duckduckgo: create request")
	}
	if r.userAgent != "" {
		req.Header.Set("User-Agent", r.userAgent)
	}

	resp, err := r.http.Do(req)
	if err != nil {
		return nil, eris.Wrap(err, "duckduckgo: search request")
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return nil, eris.Errorf("duckduckgo: unexpected status %d", resp.StatusCode)
	}

	doc, err := html.Parse(resp.Body)
	if err != nil {
		return nil, eris.Wrap(err, "duckduckgo: parse results page")
	}

	return r.parseResults(doc, limit), nil
}

// parseResults walks result containers so each link stays paired with its own snippet
func (r *DuckDuckGoRetriever) parseResults(doc *html.Node, limit int) []model.Source {
	var sources []model.Source

	results := util.FindAll(doc, func(n *html.Node) bool { return util.HasClass(n, "result") })
	for _, result := range results {
		links := util.FindAll(result, func(n *html.Node) bool { return util.HasClass(n, "result__a") })
		if len(links) == 0 {
			continue
		}
		target := resolveRedirect(util.Attr(links[0], "href"))
		if target == "" {
			continue
		}

		var snippet string
		if s := util.FindAll(result, func(n *html.Node) bool { return util.HasClass(n, "result__snippet") }); len(s) > 0 {
			snippet = util.NodeText(s[0])
		}

		sources = append(sources, model.Source{
			URL:       target,
			Title:     util.NodeText(links[0]),
			Snippet:   truncateSnippet(snippet),
			Retriever: r.Name(),
		})
		if limit > 0 && len(sources) == limit {
			break
		}
	}

	return sources
}

// resolveRedirect unwraps DuckDuckGo's /l/?uddg= redirect links
func resolveRedirect(href string) string {
	if strings.HasPrefix(href, "//") {
		href = "https:" + href
	}
	u, err := url.Parse(href)
	if err != nil {
		return ""
	}
	if target := u.Query().Get("uddg"); target != "" {
		return target
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return ""
	}
	return u.String()
}
