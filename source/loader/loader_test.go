package loader

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testOptions() Options {
	opts := DefaultOptions()
	opts.AllowPrivateHosts = true
	opts.MinContentLength = 10
	opts.Timeout = 5 * time.Second
	return opts
}

func fastBatch(t *testing.T) {
	t.Helper()
	origSuccess, origFailure := batchSuccessDelay, batchFailureDelay
	batchSuccessDelay, batchFailureDelay = time.Millisecond, time.Millisecond
	t.Cleanup(func() {
		batchSuccessDelay, batchFailureDelay = origSuccess, origFailure
	})
}

func articleHTML() string {
	return `<html><head><title>Test Article</title></head><body><article><p>` +
		strings.Repeat("Long enough article content for the extractor to score. ", 10) +
		`</p></article></body></html>`
}

func TestLoader_Load_DirectSuccess(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		_, _ = w.Write([]byte(articleHTML()))
	}))
	defer server.Close()

	ld := New(testOptions())
	result := ld.Load(context.Background(), server.URL+"/post")

	require.True(t, result.Success, result.Error)
	assert.Equal(t, "direct", result.Strategy)
	assert.Equal(t, "Test Article", result.Title)
	assert.Contains(t, result.Content, "article content")
	assert.Equal(t, len(result.Content), result.ContentLength)
	assert.Empty(t, result.Error)
}

func TestLoader_Load_InvalidURLTerminal(t *testing.T) {
	ld := New(testOptions())

	result := ld.Load(context.Background(), "ftp://example.com/file")
	require.False(t, result.Success)
	assert.Contains(t, result.Error, "unsupported scheme")
}

func TestLoader_Load_SSRFBlockedByDefault(t *testing.T) {
	ld := New(DefaultOptions())

	result := ld.Load(context.Background(), "http://127.0.0.1:9/x")
	require.False(t, result.Success)
	assert.Contains(t, result.Error, "localhost")
}

func TestLoader_Load_UnsupportedContentTypeSkipsFallbacks(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/pdf")
		_, _ = w.Write([]byte("%PDF-1.4"))
	}))
	defer server.Close()

	var proxyCalls atomic.Int32
	proxy := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		proxyCalls.Add(1)
	}))
	defer proxy.Close()

	ld := New(testOptions())
	ld.Proxy = NewReaderProxy(proxy.URL, testFetcher())

	result := ld.Load(context.Background(), server.URL+"/doc.pdf")
	require.False(t, result.Success)
	assert.Contains(t, result.Error, "unsupported content type")
	assert.EqualValues(t, 0, proxyCalls.Load(), "binary content must not trigger the cascade")
}

func TestLoader_Load_FallsBackToReaderProxy(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	defer server.Close()

	proxyBody := "# Recovered Page\n\n" + strings.Repeat("Content served by the proxy. ", 10)
	proxy := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(proxyBody))
	}))
	defer proxy.Close()

	ld := New(testOptions())
	ld.Proxy = NewReaderProxy(proxy.URL, testFetcher())

	result := ld.Load(context.Background(), server.URL+"/gone")
	require.True(t, result.Success, result.Error)
	assert.Equal(t, "reader-proxy", result.Strategy)
	assert.Equal(t, "Recovered Page", result.Title)
	assert.Contains(t, result.Content, "Content served by the proxy")
}

func TestLoader_Load_AllStrategiesExhausted(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	defer server.Close()

	proxy := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("Error: not renderable"))
	}))
	defer proxy.Close()

	ld := New(testOptions())
	ld.Proxy = NewReaderProxy(proxy.URL, testFetcher())

	result := ld.Load(context.Background(), server.URL+"/gone")
	require.False(t, result.Success)
	assert.Contains(t, result.Error, "all retrieval strategies failed")

	// The proxy ran after the direct fetch, so its error is the one reported.
	assert.Contains(t, result.Error, "reader proxy returned an error page")
	assert.NotContains(t, result.Error, "404")
}

func TestLoader_Load_ExhaustedReportsLastStrategyError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	defer server.Close()

	// Proxy responds with a well-formed but tiny page.
	proxy := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("# Stub\n\nAlmost nothing here."))
	}))
	defer proxy.Close()

	opts := testOptions()
	opts.MinContentLength = 500
	ld := New(opts)
	ld.Proxy = NewReaderProxy(proxy.URL, testFetcher())

	result := ld.Load(context.Background(), server.URL+"/gone")
	require.False(t, result.Success)
	assert.Contains(t, result.Error, "all retrieval strategies failed")
	assert.Contains(t, result.Error, "reader-proxy")
	assert.Contains(t, result.Error, "content too short")
	assert.NotContains(t, result.Error, "404")
}

func TestLoader_Load_DynamicSiteGoesProxyFirst(t *testing.T) {
	var directCalls atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		directCalls.Add(1)
		_, _ = w.Write([]byte(articleHTML()))
	}))
	defer server.Close()

	proxyBody := "# Rendered App Page\n\n" + strings.Repeat("Client-side content, server rendered. ", 10)
	proxy := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(proxyBody))
	}))
	defer proxy.Close()

	ld := New(testOptions())
	ld.Proxy = NewReaderProxy(proxy.URL, testFetcher())
	ld.DynamicSites = []string{"127.0.0.1"}

	result := ld.Load(context.Background(), server.URL+"/app")
	require.True(t, result.Success, result.Error)
	assert.Equal(t, "reader-proxy", result.Strategy)
	assert.EqualValues(t, 0, directCalls.Load(), "dynamic sites skip the direct fetch")
}

func TestLoader_Load_ContentTooShortContinuesCascade(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/plain")
		_, _ = w.Write([]byte("tiny"))
	}))
	defer server.Close()

	proxyBody := "# Full Version\n\n" + strings.Repeat("The proxy sees the whole page. ", 10)
	proxy := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(proxyBody))
	}))
	defer proxy.Close()

	opts := testOptions()
	opts.MinContentLength = 50
	ld := New(opts)
	ld.Proxy = NewReaderProxy(proxy.URL, testFetcher())

	result := ld.Load(context.Background(), server.URL+"/stub")
	require.True(t, result.Success, result.Error)
	assert.Equal(t, "reader-proxy", result.Strategy)
}

func TestLoader_Load_ExtractLinks(t *testing.T) {
	html := `<html><head><title>Links</title></head><body><article><p>` +
		strings.Repeat("Body text for the scorer to accept as main content. ", 10) +
		`</p><a href="/next">next</a></article></body></html>`

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html")
		_, _ = w.Write([]byte(html))
	}))
	defer server.Close()

	opts := testOptions()
	opts.ExtractLinks = true
	ld := New(opts)

	result := ld.Load(context.Background(), server.URL+"/page")
	require.True(t, result.Success, result.Error)
	require.NotEmpty(t, result.Links)
	assert.Equal(t, server.URL+"/next", result.Links[0])
}

func TestLoader_Load_ProgressStages(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html")
		_, _ = w.Write([]byte(articleHTML()))
	}))
	defer server.Close()

	var stages []string
	opts := testOptions()
	opts.OnProgress = func(stage string, percent int) {
		stages = append(stages, stage)
	}

	ld := New(opts)
	result := ld.Load(context.Background(), server.URL)
	require.True(t, result.Success, result.Error)

	assert.Equal(t, "validate", stages[0])
	assert.Equal(t, "done", stages[len(stages)-1])
}

func TestLoader_LoadBatch_OrderAndIsolation(t *testing.T) {
	fastBatch(t)

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html")
		_, _ = w.Write([]byte(articleHTML()))
	}))
	defer server.Close()

	ld := New(testOptions())
	results := ld.LoadBatch(context.Background(), []string{
		server.URL + "/a",
		"ftp://bad.example.com/",
		server.URL + "/b",
	})

	require.Len(t, results, 3)
	assert.True(t, results[0].Success)
	assert.False(t, results[1].Success)
	assert.True(t, results[2].Success, "one failure must not stop the batch")
	assert.Equal(t, server.URL+"/a", results[0].URL)
	assert.Equal(t, server.URL+"/b", results[2].URL)
}

func TestLoader_Load_MetricsRecorded(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html")
		_, _ = w.Write([]byte(articleHTML()))
	}))
	defer server.Close()

	reg := prometheus.NewRegistry()
	ld := New(testOptions())
	ld.SetMetrics(NewMetrics(reg))

	result := ld.Load(context.Background(), server.URL)
	require.True(t, result.Success, result.Error)

	families, err := reg.Gather()
	require.NoError(t, err)

	var sawAttempts, sawDuration bool
	for _, mf := range families {
		switch mf.GetName() {
		case "ragingest_loader_fetch_attempts_total":
			sawAttempts = true
		case "ragingest_loader_fetch_duration_seconds":
			sawDuration = true
		}
	}
	assert.True(t, sawAttempts)
	assert.True(t, sawDuration)
}

func TestLoader_CheckReachable(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	defer server.Close()

	ld := New(testOptions())
	assert.NoError(t, ld.CheckReachable(context.Background(), server.URL))
	assert.Error(t, ld.CheckReachable(context.Background(), "ftp://nope.example.com/"))
}
