package loader

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testFetcher() *Fetcher {
	return NewFetcher(5*time.Second, "test-agent")
}

func TestMatchesDynamicSite(t *testing.T) {
	sites := DefaultDynamicRenderSites()
	require.NotEmpty(t, sites)

	assert.True(t, matchesDynamicSite("https://www.bilibili.com/video/BV1", sites))
	assert.True(t, matchesDynamicSite("https://v.douyin.com/abc123", sites))
	assert.True(t, matchesDynamicSite("https://x.com/someone/status/1", sites))
	assert.False(t, matchesDynamicSite("https://example.com/article", sites))
	assert.False(t, matchesDynamicSite("not a url at all%%%", []string{"example.com"}))
}

func TestReaderProxy_Attempt(t *testing.T) {
	body := "# Proxied Page\n\n" + strings.Repeat("Rendered content paragraph. ", 10)
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		// Jina-style: the target URL rides in the path.
		assert.Contains(t, r.URL.String(), "example.com")
		_, _ = w.Write([]byte(body))
	}))
	defer server.Close()

	p := NewReaderProxy(server.URL, testFetcher())
	got, contentType, err := p.Attempt(context.Background(), "https://example.com/page")
	require.NoError(t, err)
	assert.Equal(t, body, got)
	assert.Equal(t, "text/markdown", contentType)
}

func TestReaderProxy_ShortErrorBodyRejected(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("Error: page requires authentication"))
	}))
	defer server.Close()

	p := NewReaderProxy(server.URL, testFetcher())
	_, _, err := p.Attempt(context.Background(), "https://example.com/page")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "error page")
}

func TestReaderProxy_DefaultBaseURL(t *testing.T) {
	p := NewReaderProxy("", testFetcher())
	assert.Equal(t, "https://r.jina.ai/", p.BaseURL)
	assert.True(t, p.Applies("https://anything.example.com/"))
}

func TestParseWikipediaURL(t *testing.T) {
	lang, title := parseWikipediaURL("https://en.wikipedia.org/wiki/Go_(programming_language)")
	assert.Equal(t, "en", lang)
	assert.Equal(t, "Go_(programming_language)", title)

	lang, title = parseWikipediaURL("https://zh.m.wikipedia.org/wiki/%E4%B8%AD%E6%96%87")
	assert.Equal(t, "zh", lang)
	assert.Equal(t, "中文", title)

	lang, _ = parseWikipediaURL("https://en.wikipedia.org/w/index.php?title=Go")
	assert.Empty(t, lang)

	lang, _ = parseWikipediaURL("https://example.com/wiki/Go")
	assert.Empty(t, lang)
}

func TestWikipedia_Applies(t *testing.T) {
	w := NewWikipedia("", testFetcher())
	assert.True(t, w.Applies("https://en.wikipedia.org/wiki/Golang"))
	assert.False(t, w.Applies("https://en.wikipedia.org/"))
	assert.False(t, w.Applies("https://example.com/wiki/Golang"))
}

func TestWikipedia_Attempt(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "query", r.URL.Query().Get("action"))
		assert.Equal(t, "Go_(programming_language)", r.URL.Query().Get("titles"))
		_, _ = w.Write([]byte(`{"query":{"pages":{"12345":{"extract":"Go is a statically typed language."}}}}`))
	}))
	defer server.Close()

	w := NewWikipedia(server.URL, testFetcher())
	text, contentType, err := w.Attempt(context.Background(), "https://en.wikipedia.org/wiki/Go_(programming_language)")
	require.NoError(t, err)
	assert.Equal(t, "Go is a statically typed language.", text)
	assert.Equal(t, "text/plain", contentType)
}

func TestWikipedia_Attempt_EmptyExtract(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"query":{"pages":{"-1":{"extract":""}}}}`))
	}))
	defer server.Close()

	w := NewWikipedia(server.URL, testFetcher())
	_, _, err := w.Attempt(context.Background(), "https://en.wikipedia.org/wiki/Missing_Page")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no extract")
}

func TestWikipedia_Title(t *testing.T) {
	w := NewWikipedia("", testFetcher())
	assert.Equal(t, "Go (programming language)",
		w.Title("https://en.wikipedia.org/wiki/Go_(programming_language)"))
}

func TestGitHubRaw_ToRawURL(t *testing.T) {
	g := NewGitHubRaw("", testFetcher())

	assert.Equal(t,
		"https://raw.githubusercontent.com/owner/repo/main/docs/README.md",
		g.ToRawURL("https://github.com/owner/repo/blob/main/docs/README.md"))

	assert.Empty(t, g.ToRawURL("https://github.com/owner/repo"))
	assert.Empty(t, g.ToRawURL("https://github.com/owner/repo/tree/main/docs"))
	assert.Empty(t, g.ToRawURL("https://gitlab.com/owner/repo/blob/main/x.md"))
}

func TestGitHubRaw_Attempt(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/owner/repo/main/README.md", r.URL.Path)
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		_, _ = w.Write([]byte("# Raw readme"))
	}))
	defer server.Close()

	g := NewGitHubRaw(server.URL, testFetcher())
	body, contentType, err := g.Attempt(context.Background(), "https://github.com/owner/repo/blob/main/README.md")
	require.NoError(t, err)
	assert.Equal(t, "# Raw readme", body)
	assert.Contains(t, contentType, "text/plain")
}

func TestFallbackOrder(t *testing.T) {
	ld := New(DefaultOptions())

	names := func(strategies []Strategy) []string {
		out := make([]string, len(strategies))
		for i, s := range strategies {
			out[i] = s.Name()
		}
		return out
	}

	assert.Equal(t, []string{"reader-proxy", "wikipedia", "github-raw"}, names(ld.fallbackOrder(false)))
	assert.Equal(t, []string{"wikipedia", "github-raw"}, names(ld.fallbackOrder(true)))
}
