package loader

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/Daniel2008/ai-rag-sub002/source/extract"
	"github.com/Daniel2008/ai-rag-sub002/source/weburl"
)

// Pacing between batch loads so origins are not hammered. Failures get a
// longer pause than successes.
var (
	batchSuccessDelay = 300 * time.Millisecond
	batchFailureDelay = 500 * time.Millisecond
)

// ErrContentTooShort marks extraction output below MinContentLength. Unlike
// unsupported content types it is not terminal: another strategy may see the
// full page.
var ErrContentTooShort = errors.New("page content too short")

// Loader acquires page content for a URL: validation, direct fetch with
// retries, content-type routing, and a fixed fallback cascade. Load never
// returns an error; failures are carried in the Result so batch processing
// keeps going.
type Loader struct {
	opts    Options
	fetcher *Fetcher
	router  *extract.Router
	logger  *slog.Logger
	metrics *Metrics

	// Proxy, Wiki and GitHub are the fallback strategies, exported so tests
	// can point them at local servers.
	Proxy  *ReaderProxy
	Wiki   *Wikipedia
	GitHub *GitHubRaw

	// DynamicSites lists host patterns that get the proxy-first treatment.
	DynamicSites []string
}

// New creates a loader from options, filling unset fields with defaults.
func New(opts Options) *Loader {
	opts = opts.normalize()
	logger := slog.Default()
	fetcher := NewFetcher(opts.Timeout, opts.UserAgent)

	return &Loader{
		opts:         opts,
		fetcher:      fetcher,
		router:       extract.NewRouter(opts.MarkdownOutput, logger),
		logger:       logger,
		Proxy:        NewReaderProxy("", fetcher),
		Wiki:         NewWikipedia("", fetcher),
		GitHub:       NewGitHubRaw("", fetcher),
		DynamicSites: DefaultDynamicRenderSites(),
	}
}

// SetLogger replaces the loader's logger. Nil restores the default.
func (l *Loader) SetLogger(logger *slog.Logger) {
	if logger == nil {
		logger = slog.Default()
	}
	l.logger = logger
	l.router = extract.NewRouter(l.opts.MarkdownOutput, logger)
}

// SetMetrics installs retrieval instrumentation. Nil disables it.
func (l *Loader) SetMetrics(m *Metrics) { l.metrics = m }

// Options returns a copy of the effective options.
func (l *Loader) Options() Options { return l.opts }

// Load acquires content for one URL. The result is always non-nil; check
// Success. The cascade is: validation, dynamic-site proxy shortcut, direct
// fetch with retries, then reader proxy, Wikipedia API and GitHub raw in
// that order. Unsupported binary content types are terminal and skip the
// fallbacks.
func (l *Loader) Load(ctx context.Context, rawURL string) *Result {
	start := time.Now()
	defer func() { l.metrics.observeDuration(time.Since(start)) }()

	l.opts.progress("validate", 5)

	if err := weburl.Validate(rawURL, weburl.ValidateOptions{
		AllowedHosts:      l.opts.AllowedHosts,
		AllowPrivateHosts: l.opts.AllowPrivateHosts,
	}); err != nil {
		l.metrics.observeOutcome("invalid_url")
		return failure(rawURL, err.Error())
	}

	var lastErr error
	proxyTried := false

	// Known JavaScript-rendered sites go straight to the reader proxy; a
	// direct fetch would return an empty shell.
	if matchesDynamicSite(rawURL, l.DynamicSites) {
		l.logger.Debug("dynamic site detected, trying reader proxy first",
			slog.String("url", rawURL))
		l.opts.progress("proxy", 20)
		proxyTried = true
		l.metrics.observeFallback(l.Proxy.Name())

		result, perr := l.tryStrategy(ctx, l.Proxy, rawURL)
		if result != nil {
			l.metrics.observeOutcome("success")
			l.opts.progress("done", 100)
			return result
		}
		lastErr = perr
	}

	l.opts.progress("fetch", 30)

	fetched, err := l.fetcher.FetchWithRetry(ctx, rawURL, l.opts.MaxRetries)
	if err == nil {
		l.opts.progress("extract", 60)

		result, rerr := l.routeDirect(fetched, rawURL)
		if rerr == nil {
			l.metrics.observeOutcome("success")
			l.opts.progress("done", 100)
			return result
		}
		if errors.Is(rerr, extract.ErrUnsupportedContentType) {
			// The content itself is unusable; no fallback can fix that.
			l.metrics.observeOutcome("unsupported_content")
			return failure(rawURL, rerr.Error())
		}
		lastErr = rerr
	} else {
		lastErr = err
	}

	l.logger.Debug("direct fetch failed, entering fallback cascade",
		slog.String("url", rawURL), slog.String("error", lastErr.Error()))

	for _, strategy := range l.fallbackOrder(proxyTried) {
		if !strategy.Applies(rawURL) {
			continue
		}

		l.opts.progress("fallback:"+strategy.Name(), 70)
		l.metrics.observeFallback(strategy.Name())

		result, serr := l.tryStrategy(ctx, strategy, rawURL)
		if result != nil {
			l.metrics.observeOutcome("success")
			l.opts.progress("done", 100)
			return result
		}
		lastErr = serr
	}

	l.metrics.observeOutcome("failure")
	return failure(rawURL, fmt.Sprintf("all retrieval strategies failed: %v", lastErr))
}

// LoadBatch loads URLs sequentially with pacing delays between loads. One
// result per input URL, in order.
func (l *Loader) LoadBatch(ctx context.Context, urls []string) []*Result {
	results := make([]*Result, 0, len(urls))

	for i, u := range urls {
		result := l.Load(ctx, u)
		results = append(results, result)

		l.logger.Info("batch item finished",
			slog.Int("index", i),
			slog.String("url", u),
			slog.Bool("success", result.Success))

		if i == len(urls)-1 {
			break
		}

		delay := batchSuccessDelay
		if !result.Success {
			delay = batchFailureDelay
		}
		select {
		case <-time.After(delay):
		case <-ctx.Done():
			for _, rest := range urls[i+1:] {
				results = append(results, failure(rest, "batch cancelled: "+ctx.Err().Error()))
			}
			return results
		}
	}

	return results
}

// CheckReachable probes a URL with HEAD after validating it.
func (l *Loader) CheckReachable(ctx context.Context, rawURL string) error {
	if err := weburl.Validate(rawURL, weburl.ValidateOptions{
		AllowedHosts:      l.opts.AllowedHosts,
		AllowPrivateHosts: l.opts.AllowPrivateHosts,
	}); err != nil {
		return err
	}
	return l.fetcher.CheckReachable(ctx, rawURL)
}

// fallbackOrder returns the cascade, skipping the proxy when the dynamic-site
// shortcut already spent that attempt.
func (l *Loader) fallbackOrder(proxyTried bool) []Strategy {
	order := make([]Strategy, 0, 3)
	if !proxyTried {
		order = append(order, l.Proxy)
	}
	return append(order, l.Wiki, l.GitHub)
}

// routeDirect turns a direct fetch into a result via the content router,
// attaching links and metadata per options.
func (l *Loader) routeDirect(fetched *FetchResult, rawURL string) (*Result, error) {
	routed, err := l.router.Process(fetched.Body, fetched.ContentType, rawURL)
	if err != nil {
		return nil, err
	}

	if len(routed.Content) < l.opts.MinContentLength {
		return nil, fmt.Errorf("%w (%d chars, minimum %d)",
			ErrContentTooShort, len(routed.Content), l.opts.MinContentLength)
	}

	result := success(rawURL, routed.Title, routed.Content, "direct")
	if l.opts.ExtractMeta {
		result.Meta = routed.Meta
	}
	if l.opts.ExtractLinks && isHTMLContentType(fetched.ContentType) {
		result.Links = extract.ExtractLinks(string(fetched.Body), rawURL)
	}
	return result, nil
}

// tryStrategy runs one fallback attempt. A nil result means the cascade
// continues; the returned error then becomes the cascade's most recent
// failure, so the exhausted message reports the last strategy that ran.
func (l *Loader) tryStrategy(ctx context.Context, strategy Strategy, rawURL string) (*Result, error) {
	body, _, err := strategy.Attempt(ctx, rawURL)
	if err != nil {
		l.logger.Debug("fallback strategy failed",
			slog.String("strategy", strategy.Name()),
			slog.String("url", rawURL),
			slog.String("error", err.Error()))
		return nil, err
	}

	title, content := l.shapeStrategyContent(strategy, rawURL, body)
	if len(content) < l.opts.MinContentLength {
		l.logger.Debug("fallback content too short",
			slog.String("strategy", strategy.Name()),
			slog.Int("length", len(content)))
		return nil, fmt.Errorf("%s: %w (%d chars, minimum %d)",
			strategy.Name(), ErrContentTooShort, len(content), l.opts.MinContentLength)
	}

	return success(rawURL, title, content, strategy.Name()), nil
}

// shapeStrategyContent normalizes a fallback body into title and content.
// Proxy output is already Markdown; it is stripped to plain text when
// Markdown output is off. Wikipedia extracts carry the article title.
func (l *Loader) shapeStrategyContent(strategy Strategy, rawURL, body string) (title, content string) {
	content = strings.TrimSpace(body)

	switch s := strategy.(type) {
	case *ReaderProxy:
		title = firstHeadingTitle(content)
		if !l.opts.MarkdownOutput {
			content = extract.StripMarkdownMarkers(content)
		}
	case *Wikipedia:
		title = s.Title(rawURL)
	default:
		title = firstHeadingTitle(content)
	}

	if title == "" {
		title = weburl.ExtractDomain(rawURL)
	}
	return title, content
}

// firstHeadingTitle returns the first Markdown heading's text, if any.
func firstHeadingTitle(markdown string) string {
	for _, line := range strings.Split(markdown, "\n") {
		trimmed := strings.TrimSpace(line)
		if strings.HasPrefix(trimmed, "#") {
			return strings.TrimSpace(strings.TrimLeft(trimmed, "#"))
		}
		// Proxy output sometimes leads with a "Title:" header line.
		if strings.HasPrefix(trimmed, "Title:") {
			return strings.TrimSpace(strings.TrimPrefix(trimmed, "Title:"))
		}
	}
	return ""
}

// isHTMLContentType reports whether links can be parsed from the body.
func isHTMLContentType(ct string) bool {
	ct = strings.ToLower(ct)
	return ct == "" || strings.Contains(ct, "text/html") || strings.Contains(ct, "xhtml")
}
