package loader

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"regexp"
	"strings"
)

// Strategy is one retrieval backend in the fallback cascade. Attempt returns
// the raw body and its content type; any error means "try the next one".
type Strategy interface {
	Name() string
	Applies(rawURL string) bool
	Attempt(ctx context.Context, rawURL string) (body string, contentType string, err error)
}

// DefaultDynamicRenderSites lists host suffixes of SPA/SSR platforms that
// return near-empty HTML without JavaScript execution. Injected at
// construction so tests can use custom lists.
func DefaultDynamicRenderSites() []string {
	return []string{
		"douyin.com",
		"tiktok.com",
		"twitter.com",
		"x.com",
		"instagram.com",
		"facebook.com",
		"weibo.com",
		"xiaohongshu.com",
		"bilibili.com",
		"zhihu.com",
		"juejin.cn",
		"reddit.com",
	}
}

// matchesDynamicSite reports whether the URL's host matches any entry by
// suffix or substring.
func matchesDynamicSite(rawURL string, sites []string) bool {
	u, err := url.Parse(rawURL)
	if err != nil {
		return false
	}
	host := strings.ToLower(u.Hostname())

	for _, site := range sites {
		site = strings.ToLower(site)
		if host == site || strings.HasSuffix(host, "."+site) || strings.Contains(host, site) {
			return true
		}
	}
	return false
}

// ReaderProxy fetches pages through a server-side rendering proxy that
// returns extracted Markdown. Used both as the dynamic-site primary path and
// as the first fallback after direct fetch fails.
type ReaderProxy struct {
	// BaseURL is prepended to the target URL (Jina-style path scheme).
	BaseURL string

	fetcher *Fetcher
}

// NewReaderProxy creates a reader-proxy strategy. An empty baseURL selects
// the public Jina reader.
func NewReaderProxy(baseURL string, fetcher *Fetcher) *ReaderProxy {
	if baseURL == "" {
		baseURL = "https://r.jina.ai/"
	}
	if !strings.HasSuffix(baseURL, "/") {
		baseURL += "/"
	}
	return &ReaderProxy{BaseURL: baseURL, fetcher: fetcher}
}

func (p *ReaderProxy) Name() string { return "reader-proxy" }

// Applies is always true: any page can be proxied.
func (p *ReaderProxy) Applies(string) bool { return true }

// Attempt fetches the proxied URL. Proxies report some errors as 200
// responses, so a short body containing "Error" is treated as a failure
// regardless of status.
func (p *ReaderProxy) Attempt(ctx context.Context, rawURL string) (string, string, error) {
	proxyURL := p.BaseURL + rawURL

	result, err := p.fetcher.Fetch(ctx, proxyURL)
	if err != nil {
		return "", "", fmt.Errorf("reader proxy: %w", err)
	}

	body := string(result.Body)
	if len(body) < 200 && strings.Contains(body, "Error") {
		return "", "", fmt.Errorf("reader proxy returned an error page")
	}

	return body, "text/markdown", nil
}

// wikipediaURLRe matches article URLs: https://{lang}.wikipedia.org/wiki/{title}.
var wikipediaURLRe = regexp.MustCompile(`^([a-z]+)(?:\.m)?\.wikipedia\.org$`)

// Wikipedia fetches article plain text through the MediaWiki extracts API,
// bypassing HTML entirely.
type Wikipedia struct {
	// APIBase is a format string taking the language subdomain
	// ("https://%s.wikipedia.org/w/api.php"). Literal URLs (no %s) are used
	// as-is, which is what tests do.
	APIBase string

	fetcher *Fetcher
}

// NewWikipedia creates the Wikipedia fallback strategy.
func NewWikipedia(apiBase string, fetcher *Fetcher) *Wikipedia {
	if apiBase == "" {
		apiBase = "https://%s.wikipedia.org/w/api.php"
	}
	return &Wikipedia{APIBase: apiBase, fetcher: fetcher}
}

func (w *Wikipedia) Name() string { return "wikipedia" }

// Applies is true only for *.wikipedia.org/wiki/* article URLs.
func (w *Wikipedia) Applies(rawURL string) bool {
	lang, title := parseWikipediaURL(rawURL)
	return lang != "" && title != ""
}

// Attempt calls the extracts endpoint and unwraps the page text.
func (w *Wikipedia) Attempt(ctx context.Context, rawURL string) (string, string, error) {
	lang, title := parseWikipediaURL(rawURL)
	if lang == "" || title == "" {
		return "", "", fmt.Errorf("not a Wikipedia article URL")
	}

	base := w.APIBase
	if strings.Contains(base, "%s") {
		base = fmt.Sprintf(base, lang)
	}

	apiURL := base + "?action=query&prop=extracts&explaintext=1&redirects=1&format=json&titles=" + url.QueryEscape(title)

	result, err := w.fetcher.Fetch(ctx, apiURL)
	if err != nil {
		return "", "", fmt.Errorf("wikipedia api: %w", err)
	}

	text, err := parseWikipediaExtract(result.Body)
	if err != nil {
		return "", "", fmt.Errorf("wikipedia api: %w", err)
	}

	return text, "text/plain", nil
}

// Title returns the article title for a Wikipedia URL, human-readable.
func (w *Wikipedia) Title(rawURL string) string {
	_, title := parseWikipediaURL(rawURL)
	return strings.ReplaceAll(title, "_", " ")
}

// parseWikipediaURL extracts the language subdomain and article title.
func parseWikipediaURL(rawURL string) (lang, title string) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return "", ""
	}

	m := wikipediaURLRe.FindStringSubmatch(strings.ToLower(u.Hostname()))
	if m == nil {
		return "", ""
	}

	const prefix = "/wiki/"
	if !strings.HasPrefix(u.Path, prefix) {
		return "", ""
	}

	title = strings.TrimPrefix(u.Path, prefix)
	if decoded, derr := url.PathUnescape(title); derr == nil {
		title = decoded
	}
	if title == "" {
		return "", ""
	}
	return m[1], title
}

// parseWikipediaExtract pulls the extract text out of the query response.
func parseWikipediaExtract(body []byte) (string, error) {
	var payload struct {
		Query struct {
			Pages map[string]struct {
				Extract string `json:"extract"`
			} `json:"pages"`
		} `json:"query"`
	}

	if err := json.Unmarshal(body, &payload); err != nil {
		return "", fmt.Errorf("parse response: %w", err)
	}

	for _, page := range payload.Query.Pages {
		if strings.TrimSpace(page.Extract) != "" {
			return page.Extract, nil
		}
	}
	return "", fmt.Errorf("no extract in response")
}

// githubBlobRe matches github.com/{owner}/{repo}/blob/{branch}/{path}.
var githubBlobRe = regexp.MustCompile(`^/([^/]+)/([^/]+)/blob/([^/]+)/(.+)$`)

// GitHubRaw rewrites repository blob URLs to their raw content equivalent
// and fetches that.
type GitHubRaw struct {
	// RawBase overrides the raw host for tests.
	RawBase string

	fetcher *Fetcher
}

// NewGitHubRaw creates the GitHub raw-content fallback strategy.
func NewGitHubRaw(rawBase string, fetcher *Fetcher) *GitHubRaw {
	if rawBase == "" {
		rawBase = "https://raw.githubusercontent.com"
	}
	return &GitHubRaw{RawBase: strings.TrimSuffix(rawBase, "/"), fetcher: fetcher}
}

func (g *GitHubRaw) Name() string { return "github-raw" }

// Applies is true only for GitHub blob URLs.
func (g *GitHubRaw) Applies(rawURL string) bool {
	return g.ToRawURL(rawURL) != ""
}

// ToRawURL rewrites a blob URL to its raw equivalent, or returns "" when the
// URL does not match.
func (g *GitHubRaw) ToRawURL(rawURL string) string {
	u, err := url.Parse(rawURL)
	if err != nil {
		return ""
	}
	if !strings.EqualFold(u.Hostname(), "github.com") {
		return ""
	}

	m := githubBlobRe.FindStringSubmatch(u.Path)
	if m == nil {
		return ""
	}

	return fmt.Sprintf("%s/%s/%s/%s/%s", g.RawBase, m[1], m[2], m[3], m[4])
}

// Attempt fetches the raw file.
func (g *GitHubRaw) Attempt(ctx context.Context, rawURL string) (string, string, error) {
	target := g.ToRawURL(rawURL)
	if target == "" {
		return "", "", fmt.Errorf("not a GitHub blob URL")
	}

	result, err := g.fetcher.Fetch(ctx, target)
	if err != nil {
		return "", "", fmt.Errorf("github raw: %w", err)
	}

	return string(result.Body), result.ContentType, nil
}
