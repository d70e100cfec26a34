package search

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/rotisserie/eris"

	"github.com/ppiankov/claimcheck/internal/model"
)

// JinaRetriever queries the Jina AI search API
type JinaRetriever struct {
	apiKey  string
	baseURL string
	http    *http.Client
	backoff time.Duration
}

type jinaSearchResponse struct {
	Code int                `json:"code"`
	Data []jinaSearchResult `json:"data"`
}

type jinaSearchResult struct {
	Title       string `json:"title"`
	URL         string `json:"url"`
	Content     string `json:"content"`
	Description string `json:"description"`
}

// JinaOption configures the Jina retriever
type JinaOption func(*JinaRetriever)

// WithJinaBaseURL sets a custom search base URL (for testing)
func WithJinaBaseURL(u string) JinaOption {
	return func(r *JinaRetriever) {
		if u != "" {
			r.baseURL = strings.TrimSuffix(u, "/")
		}
	}
}

// WithJinaHTTPClient sets a custom HTTP client
func WithJinaHTTPClient(hc *http.Client) JinaOption {
	return func(r *JinaRetriever) { r.http = hc }
}

// NewJinaRetriever creates a Jina search retriever
func NewJinaRetriever(apiKey string, opts ...JinaOption) (*JinaRetriever, error) {
	if apiKey == "" {
		return nil, eris.New("search: jina API key is required")
	}
	r := &JinaRetriever{
		apiKey:  apiKey,
		baseURL: "https://s.jina.ai",
		http:    &http.Client{Timeout: 30 * time.Second},
		backoff: time.Second,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r, nil
}

// Name returns the retriever name
func (r *JinaRetriever) Name() string { return "jina" }

// Search runs a web search. A 422 reply means no results.
func (r *JinaRetriever) Search(ctx context.Context, query string, limit int) ([]model.Source, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, r.baseURL+"/"+url.QueryEscape(query), nil)
	if err != nil {
		return nil, eris.Wrap(err, "jina: create search request")
	}
	req.Header.Set("Authorization", "Bearer "+r.apiKey)
	req.Header.Set("Accept", "application/json")
	req.Header.Set("X-Respond-With", "no-content")

	body, status, err := r.retryDo(ctx, req)
	if err != nil {
		return nil, eris.Wrap(err, "jina: search request failed")
	}

	if status == http.StatusUnprocessableEntity {
		return nil, nil
	}
	if status != http.StatusOK {
		return nil, eris.Errorf("jina: search unexpected status %d: %s", status, string(body))
	}

	var resp jinaSearchResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, eris.Wrap(err, "jina: unmarshal search response")
	}

	sources := make([]model.Source, 0, len(resp.Data))
	for _, d := range resp.Data {
		snippet := d.Description
		if snippet == "" {
			snippet = d.Content
		}
		sources = append(sources, model.Source{
			URL:       d.URL,
			Title:     d.Title,
			Snippet:   truncateSnippet(snippet),
			Retriever: r.Name(),
		})
		if limit > 0 && len(sources) == limit {
			break
		}
	}
	return sources, nil
}

func retryableStatusCode(code int) bool {
	return code == http.StatusTooManyRequests ||
		code == http.StatusInternalServerError ||
		code == http.StatusBadGateway ||
		code == http.StatusServiceUnavailable
}

// retryDo executes req with exponential backoff on transient failures
func (r *JinaRetriever) retryDo(ctx context.Context, req *http.Request) ([]byte, int, error) {
	const maxAttempts = 3
	backoff := r.backoff

	var lastErr error
	for attempt := 1; attempt <= maxAttempts; attempt++ {
		resp, err := r.http.Do(req.Clone(ctx))
		if err != nil {
			lastErr = err
		} else {
			body, readErr := io.ReadAll(resp.Body)
			_ = resp.Body.Close()
			if readErr != nil {
				return nil, resp.StatusCode, eris.Wrap(readErr, "jina: read response body")
			}
			if !retryableStatusCode(resp.StatusCode) || attempt == maxAttempts {
				return body, resp.StatusCode, nil
			}
			lastErr = eris.Errorf("jina: status %d: %s", resp.StatusCode, string(body))
		}

		if attempt == maxAttempts {
			break
		}
		select {
		case <-ctx.Done():
			return nil, 0, ctx.Err()
		case <-time.After(backoff):
		}
		backoff *= 2
	}

	return nil, 0, lastErr
}
