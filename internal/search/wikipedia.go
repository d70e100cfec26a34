package search

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/rotisserie/eris"

	"github.com/ppiankov/claimcheck/internal/model"
	"github.com/ppiankov/claimcheck/internal/util"
)

// WikipediaRetriever uses the MediaWiki full-text search API
type WikipediaRetriever struct {
	baseURL   string
	userAgent string
	http      *http.Client
}

type wikiSearchResponse struct {
	Query struct {
		Search []struct {
			Title   string `json:"title"`
			PageID  int    `json:"pageid"`
			Snippet string `json:"snippet"`
		} `json:"search"`
	} `json:"query"`
	Error *struct {
		Code string `json:"code"`
		Info string `json:"info"`
	} `json:"error,omitempty"`
}

// NewWikipediaRetriever creates a retriever for the wiki at baseURL (e.g. https://en.wikipedia.org)
func NewWikipediaRetriever(baseURL, userAgent string, httpClient *http.Client) *WikipediaRetriever {
	if baseURL == "" {
		baseURL = "https://en.wikipedia.org"
	}
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	return &WikipediaRetriever{
		baseURL:   strings.TrimSuffix(baseURL, "/"),
		userAgent: userAgent,
		http:      httpClient,
	}
}

// Name returns the retriever name
func (r *WikipediaRetriever) Name() string { return "wikipedia" }

// Search returns matching article titles with highlighted-text snippets stripped to plain text
func (r *WikipediaRetriever) Search(ctx context.Context, query string, limit int) ([]model.Source, error) {
	if limit <= 0 {
		limit = 5
	}

	params := url.Values{}
	params.Set("action", "query")
	params.Set("list", "search")
	params.Set("srsearch", query)
	params.Set("srlimit", strconv.Itoa(limit))
	params.Set("format", "json")
	params.Set("utf8", "1")

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, r.baseURL+"/w/api.php?"+params.Encode(), nil)
	if err != nil {
		return nil, eris.Wrap(err, "wikipedia: create request")
	}
	if r.userAgent != "" {
		req.Header.Set("User-Agent", r.userAgent)
	}

	resp, err := r.http.Do(req)
	if err != nil {
		return nil, eris.Wrap(err, "wikipedia: search request")
	}
	defer func() { _ = resp.Body.Close() }()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, eris.Wrap(err, "wikipedia: read response")
	}
	if resp.StatusCode != http.StatusOK {
		return nil, eris.Errorf("wikipedia: unexpected status %d", resp.StatusCode)
	}

	var parsed wikiSearchResponse
	if err := json.Unmarshal(body, &parsed); err != nil {
		return nil, eris.Wrap(err, "wikipedia: unmarshal response")
	}
	if parsed.Error != nil {
		return nil, eris.Errorf("wikipedia: API error %s: %s", parsed.Error.Code, parsed.Error.Info)
	}

	sources := make([]model.Source, 0, len(parsed.Query.Search))
	for _, hit := range parsed.Query.Search {
		sources = append(sources, model.Source{
			URL:       r.articleURL(hit.Title),
			Title:     hit.Title,
			Snippet:   truncateSnippet(util.VisibleText(hit.Snippet)),
			Retriever: r.Name(),
		})
	}
	return sources, nil
}

func (r *WikipediaRetriever) articleURL(title string) string {
	return r.baseURL + "/wiki/" + url.PathEscape(strings.ReplaceAll(title, " ", "_"))
}
