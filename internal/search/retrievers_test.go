package search

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"sync/atomic"
	"testing"
	"time"
	"unicode/utf8"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ppiankov/claimcheck/internal/cache"
	"github.com/ppiankov/claimcheck/internal/config"
	"github.com/ppiankov/claimcheck/internal/model"
	"github.com/ppiankov/claimcheck/internal/util"
	"github.com/ppiankov/claimcheck/internal/worker"
)

func TestJinaRetriever_Search(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "Bearer jina-key", r.Header.Get("Authorization"))
		assert.Equal(t, "/eiffel+tower+height", r.URL.Path)
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"code":200,"data":[
			{"title":"Eiffel Tower","url":"https://en.wikipedia.org/wiki/Eiffel_Tower","description":"The tower is 330 m tall."},
			{"title":"Tour Eiffel","url":"https://www.toureiffel.paris/en","content":"Official site."},
			{"title":"Third","url":"https://example.com/3","description":"x"}
		]}`))
	}))
	defer srv.Close()

	r, err := NewJinaRetriever("jina-key", WithJinaBaseURL(srv.URL), WithJinaHTTPClient(srv.Client()))
	require.NoError(t, err)

	sources, err := r.Search(context.Background(), "eiffel tower height", 2)
	require.NoError(t, err)
	require.Len(t, sources, 2)
	assert.Equal(t, "The tower is 330 m tall.", sources[0].Snippet)
	assert.Equal(t, "Official site.", sources[1].Snippet)
	assert.Equal(t, "jina", sources[0].Retriever)
}

func TestJinaRetriever_NoResultsAndRetries(t *testing.T) {
	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if atomic.AddInt32(&calls, 1) == 1 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		w.WriteHeader(http.StatusUnprocessableEntity)
	}))
	defer srv.Close()

	r, err := NewJinaRetriever("k", WithJinaBaseURL(srv.URL))
	require.NoError(t, err)
	r.backoff = time.Millisecond

	sources, err := r.Search(context.Background(), "nothing", 5)
	require.NoError(t, err)
	assert.Empty(t, sources)
	assert.Equal(t, int32(2), atomic.LoadInt32(&calls))
}

func TestJinaRetriever_RequiresKey(t *testing.T) {
	_, err := NewJinaRetriever("")
	assert.Error(t, err)
}

func TestWikipediaRetriever_Search(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/w/api.php", r.URL.Path)
		q := r.URL.Query()
		assert.Equal(t, "search", q.Get("list"))
		assert.Equal(t, "moon landing", q.Get("srsearch"))
		assert.Equal(t, "3", q.Get("srlimit"))
		assert.Equal(t, "claimcheck-test", r.Header.Get("User-Agent"))

		_, _ = w.Write([]byte(`{"query":{"search":[
			{"title":"Apollo 11","pageid":1,"snippet":"the first crewed <span class=\"searchmatch\">Moon</span> <span class=\"searchmatch\">landing</span> in 1969"}
		]}}`))
	}))
	defer srv.Close()

	r := NewWikipediaRetriever(srv.URL, "claimcheck-test", srv.Client())
	sources, err := r.Search(context.Background(), "moon landing", 3)
	require.NoError(t, err)
	require.Len(t, sources, 1)
	assert.Equal(t, srv.URL+"/wiki/Apollo_11", sources[0].URL)
	assert.Equal(t, "the first crewed Moon landing in 1969", sources[0].Snippet)
	assert.Equal(t, "wikipedia", sources[0].Retriever)
}

func TestWikipediaRetriever_APIError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"error":{"code":"badvalue","info":"bad"}}`))
	}))
	defer srv.Close()

	_, err := NewWikipediaRetriever(srv.URL, "", srv.Client()).Search(context.Background(), "x", 1)
	assert.Error(t, err)
}

const ddgPage = `<html><body>
<div class="result results_links">
  <h2><a class="result__a" href="//duckduckgo.com/l/?uddg=%s&rut=abc">Great <b>Wall</b> of China</a></h2>
  <a class="result__snippet">It is not visible from space with the naked eye.</a>
</div>
<div class="result results_links">
  <h2><a class="result__a" href="https://example.org/wall">Wall facts</a></h2>
</div>
<div class="result results_links">
  <h2><a class="result__a" href="javascript:void(0)">Ad</a></h2>
</div>
</body></html>`

func TestDuckDuckGoRetriever_Search(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/robots.txt":
			_, _ = w.Write([]byte("User-agent: *\nDisallow: /private\n"))
		case "/html/":
			assert.Equal(t, "great wall", r.URL.Query().Get("q"))
			_, _ = fmt.Fprintf(w, ddgPage, url.QueryEscape("https://en.wikipedia.org/wiki/Great_Wall_of_China"))
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	}))
	defer srv.Close()

	robots := util.NewRobotsChecker("claimcheck/0.1", srv.Client())
	r := NewDuckDuckGoRetriever(srv.URL, "claimcheck/0.1", srv.Client(), robots)

	sources, err := r.Search(context.Background(), "great wall", 5)
	require.NoError(t, err)
	require.Len(t, sources, 2)

	assert.Equal(t, "https://en.wikipedia.org/wiki/Great_Wall_of_China", sources[0].URL)
	assert.Equal(t, "Great Wall of China", sources[0].Title)
	assert.Equal(t, "It is not visible from space with the naked eye.", sources[0].Snippet)
	assert.Equal(t, "https://example.org/wall", sources[1].URL)
	assert.Equal(t, "", sources[1].Snippet)
}

func TestDuckDuckGoRetriever_Disallowed(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/robots.txt" {
			_, _ = w.Write([]byte("User-agent: *\nDisallow: /html/\n"))
			return
		}
		t.Errorf("search page must not be fetched, got %s", r.URL.Path)
	}))
	defer srv.Close()

	r := NewDuckDuckGoRetriever(srv.URL, "claimcheck/0.1", srv.Client(), util.NewRobotsChecker("claimcheck/0.1", srv.Client()))
	_, err := r.Search(context.Background(), "anything", 5)
	assert.ErrorIs(t, err, ErrDisallowed)
}

func TestStaticRetriever(t *testing.T) {
	r := NewStaticRetriever(
		model.Source{URL: "https://a.example/water", Title: "Water", Snippet: "Water boils at 100 degrees Celsius at sea level."},
		model.Source{URL: "https://b.example/moon", Title: "Moon", Snippet: "The Moon orbits the Earth."},
	)

	sources, err := r.Search(context.Background(), "Water boils at 100 degrees", 5)
	require.NoError(t, err)
	require.Len(t, sources, 1)
	assert.Equal(t, "static", sources[0].Retriever)

	sources, err = r.Search(context.Background(), "Mars has two moons", 5)
	require.NoError(t, err)
	assert.Empty(t, sources)
}

type stubRetriever struct {
	name    string
	sources []model.Source
	err     error
	calls   int32
}

func (s *stubRetriever) Name() string { return s.name }

func (s *stubRetriever) Search(ctx context.Context, query string, limit int) ([]model.Source, error) {
	atomic.AddInt32(&s.calls, 1)
	return s.sources, s.err
}

func TestMulti_MergesInOrderAndDedupes(t *testing.T) {
	first := &stubRetriever{name: "a", sources: []model.Source{{URL: "https://x.example/1"}, {URL: "https://x.example/2/"}}}
	second := &stubRetriever{name: "b", sources: []model.Source{{URL: "https://x.example/2", Title: "dup"}, {URL: "https://x.example/3"}}}
	broken := &stubRetriever{name: "c", err: errors.New("down")}

	m := NewMulti(first, broken, second)
	assert.Equal(t, "a+c+b", m.Name())

	sources, err := m.Search(context.Background(), "q", 0)
	require.NoError(t, err)

	urls := make([]string, len(sources))
	for i, s := range sources {
		urls[i] = s.URL
	}
	assert.Equal(t, []string{"https://x.example/1", "https://x.example/2/", "https://x.example/3"}, urls)

	sources, err = m.Search(context.Background(), "q", 2)
	require.NoError(t, err)
	assert.Len(t, sources, 2)
}

func TestMulti_AllFail(t *testing.T) {
	m := NewMulti(&stubRetriever{name: "a", err: errors.New("a down")}, &stubRetriever{name: "b", err: errors.New("b down")})
	_, err := m.Search(context.Background(), "q", 3)
	assert.Error(t, err)
}

func TestCached(t *testing.T) {
	inner := &stubRetriever{name: "wiki", sources: []model.Source{{URL: "https://x.example/1"}}}
	r := Cached(inner, cache.NewMemoryCache(time.Minute, time.Minute), time.Minute)

	for i := 0; i < 3; i++ {
		sources, err := r.Search(context.Background(), "same", 5)
		require.NoError(t, err)
		assert.Len(t, sources, 1)
	}
	assert.Equal(t, int32(1), atomic.LoadInt32(&inner.calls))
	assert.Equal(t, "wiki", r.Name())

	// Errors pass through uncached
	failing := &stubRetriever{name: "bad", err: errors.New("down")}
	rf := Cached(failing, cache.NewMemoryCache(time.Minute, time.Minute), time.Minute)
	_, _ = rf.Search(context.Background(), "q", 1)
	_, _ = rf.Search(context.Background(), "q", 1)
	assert.Equal(t, int32(2), atomic.LoadInt32(&failing.calls))

	assert.Same(t, inner, Cached(inner, nil, 0))
}

func TestLimited(t *testing.T) {
	inner := &stubRetriever{name: "ddg"}
	limiter := worker.NewLimiter(0.01, 1)
	r := Limited(inner, limiter)

	_, err := r.Search(context.Background(), "q", 1)
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	_, err = r.Search(ctx, "q", 1)
	assert.Error(t, err)
	assert.Equal(t, int32(1), atomic.LoadInt32(&inner.calls))

	assert.Same(t, inner, Limited(inner, nil))
}

func TestNew(t *testing.T) {
	cfg := config.Default().Search

	r, err := New(cfg, Deps{})
	require.NoError(t, err)
	assert.Equal(t, "wikipedia", r.Name())

	cfg.Providers = []string{"wikipedia", "duckduckgo", "Wikipedia"}
	r, err = New(cfg, Deps{})
	require.NoError(t, err)
	assert.Equal(t, "wikipedia+duckduckgo", r.Name())

	cfg.Providers = nil
	r, err = New(cfg, Deps{})
	require.NoError(t, err)
	assert.Nil(t, r)

	cfg.Providers = []string{"jina"}
	_, err = New(cfg, Deps{})
	assert.Error(t, err, "jina without key")

	cfg.Providers = []string{"bing"}
	_, err = New(cfg, Deps{})
	assert.Error(t, err)
}

func TestTruncateSnippet(t *testing.T) {
	assert.Equal(t, "a b", truncateSnippet("  a \n b "))

	got := truncateSnippet(strings.Repeat("word ", 200))
	assert.LessOrEqual(t, len([]rune(got)), maxSnippetRunes+1)
	assert.True(t, strings.HasSuffix(got, "word…"), got)
}

func TestTruncateSnippet_MultibyteKeepsRuneBudget(t *testing.T) {
	// The only space sits at rune 200 but byte 400, inside the first half
	text := strings.Repeat("ж", 200) + " " + strings.Repeat("ж", 500)

	got := truncateSnippet(text)
	assert.Equal(t, maxSnippetRunes+1, utf8.RuneCountInString(got))
	assert.True(t, strings.HasSuffix(got, "ж…"))
}
