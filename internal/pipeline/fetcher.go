package pipeline

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/ppiankov/claimcheck/internal/util"
)

// ErrRobotsDisallowed is returned when robots.txt forbids fetching a page
var ErrRobotsDisallowed = errors.New("fetch: disallowed by robots.txt")

// Fetcher downloads a page whose text is to be checked
type Fetcher struct {
	httpClient *http.Client
	robots     *util.RobotsChecker
	userAgent  string
	maxBytes   int64
}

// NewFetcher creates a fetcher. robots may be nil to skip robots.txt checks.
func NewFetcher(timeout time.Duration, userAgent string, maxBytes int64, proxy util.ProxyConfig, robots *util.RobotsChecker) *Fetcher {
	client := util.NewHTTPClient(timeout, proxy)
	client.CheckRedirect = func(req *http.Request, via []*http.Request) error {
		if len(via) >= 3 {
			return eris.New("fetch: stopped after 3 redirects")
		}
		return nil
	}

	return &Fetcher{
		httpClient: client,
		robots:     robots,
		userAgent:  userAgent,
		maxBytes:   maxBytes,
	}
}

// FetchResult is a downloaded page
type FetchResult struct {
	Body        string
	ContentType string
	FinalURL    string
}

// statusError is a non-2xx response
type statusError struct {
	code   int
	status string
}

func (e *statusError) Error() string {
	return fmt.Sprintf("unexpected status: %d %s", e.code, e.status)
}

// Fetch retrieves rawURL once
func (f *Fetcher) Fetch(ctx context.Context, rawURL string) (*FetchResult, error) {
	if f.robots != nil && !f.robots.IsAllowed(ctx, rawURL) {
		return nil, eris.Wrap(ErrRobotsDisallowed, rawURL)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, eris.Wrap(err, "fetch: create request")
	}
	req.Header.Set("User-Agent", f.userAgent)
	req.Header.Set("Accept", "text/html,application/xhtml+xml,text/plain;q=0.9,*/*;q=0.8")
	req.Header.Set("Accept-Language", "en-US,en;q=0.9")

	resp, err := f.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch: request: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, &statusError{code: resp.StatusCode, status: resp.Status}
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, f.maxBytes))
	if err != nil {
		return nil, eris.Wrap(err, "fetch: read body")
	}

	return &FetchResult{
		Body:        string(body),
		ContentType: resp.Header.Get("Content-Type"),
		FinalURL:    resp.Request.URL.String(),
	}, nil
}

const fetchMaxAttempts = 3

// fetchSleepFunc is replaced in tests
var fetchSleepFunc = time.Sleep

// FetchWithRetry retries transient failures (network errors, 429 and 5xx)
// with exponential backoff, up to three attempts
func (f *Fetcher) FetchWithRetry(ctx context.Context, rawURL string) (*FetchResult, error) {
	var lastErr error
	for attempt := 1; attempt <= fetchMaxAttempts; attempt++ {
		result, err := f.Fetch(ctx, rawURL)
		if err == nil {
			return result, nil
		}
		lastErr = err

		if !isRetryableFetchError(err) || attempt == fetchMaxAttempts || ctx.Err() != nil {
			break
		}

		delay := time.Duration(1<<(attempt-1)) * time.Second
		zap.L().Debug("fetch: retrying",
			zap.String("url", rawURL),
			zap.Int("attempt", attempt),
			zap.Duration("delay", delay),
			zap.Error(err),
		)
		fetchSleepFunc(delay)
	}
	return nil, lastErr
}

func isRetryableFetchError(err error) bool {
	if err == nil || errors.Is(err, context.Canceled) {
		return false
	}

	var se *statusError
	if errors.As(err, &se) {
		return se.code == http.StatusTooManyRequests || se.code >= 500
	}

	// Transport failures (refused, reset, timeout) surface as *url.Error
	var ue *url.Error
	return errors.As(err, &ue)
}
