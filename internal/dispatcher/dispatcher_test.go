package dispatcher

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sort"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/JakeFAU/spindle/internal/crawler"
	collyfetcher "github.com/JakeFAU/spindle/internal/fetcher/colly"
	"github.com/JakeFAU/spindle/internal/index/memory"
)

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

// Now advances by one second per call so elapsed times are deterministic.
func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(time.Second)
	return c.now
}

type fakeIDs struct {
	err error
}

func (f fakeIDs) NewID() (string, error) {
	if f.err != nil {
		return "", f.err
	}
	return "run-1", nil
}

// blockingFetcher never answers until ctx is canceled.
type blockingFetcher struct {
	started chan struct{}
	once    sync.Once
}

func (b *blockingFetcher) Fetch(ctx context.Context, rawURL string) (crawler.FetchResult, error) {
	b.once.Do(func() { close(b.started) })
	<-ctx.Done()
	return crawler.FetchResult{}, fmt.Errorf("fetch %s: %w", rawURL, ctx.Err())
}

func newDocsSite(t *testing.T) *httptest.Server {
	t.Helper()
	pages := map[string]string{
		"/docs/index.html": `<html><head><title>Docs</title></head><body>
			<p>Welcome to the docs.</p>
			<a href="guide.html">Guide</a>
			<a href="internal/secret.html">Secret</a>
			<a href="/blog/post.html">Blog</a>
			<a href="missing.html">Missing</a>
			<a href="mailto:docs@example.com">Mail</a>
			<a href="http://elsewhere.invalid/">Elsewhere</a>
		</body></html>`,
		"/docs/guide.html": `<title>Guide</title><p>Start here.</p>
			<a name="install">Install</a><p>Download it.</p>
			<a name="usage">Usage</a><p>Run it.</p>
			<a href="index.html#top">Home</a><a href="ref/api.html">API</a>`,
		"/docs/ref/api.html":         `<title>API</title><p>Reference.</p><a href="../guide.html">Guide</a>`,
		"/docs/internal/secret.html": `<title>Secret</title>`,
		"/blog/post.html":            `<title>Blog</title>`,
	}
	mux := http.NewServeMux()
	for path, body := range pages {
		body := body
		mux.HandleFunc(path, func(w http.ResponseWriter, _ *http.Request) {
			w.Header().Set("Content-Type", "text/html; charset=utf-8")
			_, _ = w.Write([]byte(body))
		})
	}
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv
}

func TestRunCrawlsSameOriginSite(t *testing.T) {
	t.Parallel()

	srv := newDocsSite(t)
	cfg := crawler.Config{
		Seeds:            []string{srv.URL + "/docs/index.html"},
		Include:          []string{"/docs/"},
		Exclude:          []string{"/docs/internal/"},
		ContentTypes:     crawler.DefaultContentTypes,
		Threads:          4,
		DescriptionSize:  64,
		FragmentByAnchor: true,
		AllowHTTPS:       true,
		IndexDestination: "memory:",
	}
	sink := memory.NewSink()
	c := New(cfg, collyfetcher.New(collyfetcher.Config{Timeout: 5 * time.Second}), Sink(sink),
		&fakeClock{}, fakeIDs{}, zap.NewNop())

	require.Equal(t, crawler.Progress{}, c.Progress())
	summary, err := c.Run(context.Background())
	require.NoError(t, err)

	progress := c.Progress()
	require.False(t, progress.Running)
	require.Equal(t, "run-1", progress.RunID)
	require.Equal(t, int64(5), progress.Documents)
	require.Equal(t, int64(3), progress.Pages)
	require.Zero(t, progress.Pending)

	urls := sink.URLs()
	sort.Strings(urls)
	require.Equal(t, []string{
		srv.URL + "/docs/guide.html",
		srv.URL + "/docs/guide.html#install",
		srv.URL + "/docs/guide.html#usage",
		srv.URL + "/docs/index.html",
		srv.URL + "/docs/ref/api.html",
	}, urls)

	require.Equal(t, "run-1", summary.RunID)
	// index, guide, api and missing were queued.
	require.Equal(t, 4, summary.URLsIndexed)
	require.Equal(t, int64(5), summary.Documents)
	require.Equal(t, int64(1), summary.Skipped)
	require.Positive(t, summary.Bytes)
	require.Equal(t, time.Second, summary.Elapsed)
	require.Equal(t, 1, sink.Closes())

	for _, d := range sink.Documents() {
		if d.URL == srv.URL+"/docs/guide.html#install" {
			require.Equal(t, "Guide", d.Title)
			require.Equal(t, "Install Download it.", d.Description)
		}
	}
}

func TestRunRejectsInvalidConfig(t *testing.T) {
	t.Parallel()

	sink := memory.NewSink()
	c := New(crawler.Config{Threads: 0}, nil, Sink(sink), &fakeClock{}, fakeIDs{}, nil)
	_, err := c.Run(context.Background())
	require.ErrorContains(t, err, "invalid crawl config")
	require.Equal(t, 0, sink.Closes())
}

func TestRunReportsSinkOpenFailure(t *testing.T) {
	t.Parallel()

	cfg := crawler.Config{Seeds: []string{"http://h/"}, Threads: 1, IndexDestination: "x"}
	boom := errors.New("locked")
	c := New(cfg, nil, func(context.Context) (crawler.IndexSink, error) {
		return nil, boom
	}, &fakeClock{}, fakeIDs{}, nil)

	_, err := c.Run(context.Background())
	require.ErrorIs(t, err, boom)
}

func TestRunReportsIDFailure(t *testing.T) {
	t.Parallel()

	cfg := crawler.Config{Seeds: []string{"http://h/"}, Threads: 1, IndexDestination: "x"}
	boom := errors.New("entropy")
	c := New(cfg, nil, Sink(memory.NewSink()), &fakeClock{}, fakeIDs{err: boom}, nil)

	_, err := c.Run(context.Background())
	require.ErrorIs(t, err, boom)
}

func TestRunStopsOnCancel(t *testing.T) {
	t.Parallel()

	cfg := crawler.Config{
		Seeds:            []string{"http://h/a", "http://h/b", "http://h/c"},
		ContentTypes:     crawler.DefaultContentTypes,
		Threads:          2,
		IndexDestination: "memory:",
	}
	fetcher := &blockingFetcher{started: make(chan struct{})}
	sink := memory.NewSink()
	c := New(cfg, fetcher, Sink(sink), &fakeClock{}, fakeIDs{}, nil)

	ctx, cancel := context.WithCancel(context.Background())
	type result struct {
		summary crawler.Summary
		err     error
	}
	done := make(chan result, 1)
	go func() {
		s, err := c.Run(ctx)
		done <- result{s, err}
	}()

	<-fetcher.started
	cancel()

	select {
	case r := <-done:
		require.NoError(t, r.err)
		require.Equal(t, 3, r.summary.URLsIndexed)
		require.Zero(t, r.summary.Documents)
		require.Equal(t, 1, sink.Closes())
	case <-time.After(5 * time.Second):
		t.Fatal("run did not stop after cancel")
	}
}
