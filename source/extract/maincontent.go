package extract

import (
	"math"
	"net/url"
	"regexp"
	"strings"

	readability "github.com/go-shiori/go-readability"
)

// Noise elements removed before any content-region scoring. Order matters:
// comments first so commented-out markup never feeds the scorer.
var noiseRes = []*regexp.Regexp{
	regexp.MustCompile(`(?s)<!--.*?-->`),
	regexp.MustCompile(`(?is)<script[^>]*>.*?</script>`),
	regexp.MustCompile(`(?is)<style[^>]*>.*?</style>`),
	regexp.MustCompile(`(?is)<noscript[^>]*>.*?</noscript>`),
	regexp.MustCompile(`(?is)<nav[^>]*>.*?</nav>`),
	regexp.MustCompile(`(?is)<header[^>]*>.*?</header>`),
	regexp.MustCompile(`(?is)<footer[^>]*>.*?</footer>`),
	regexp.MustCompile(`(?is)<aside[^>]*>.*?</aside>`),
	regexp.MustCompile(`(?is)<form[^>]*>.*?</form>`),
	regexp.MustCompile(`(?is)<iframe[^>]*>.*?</iframe>`),
	regexp.MustCompile(`(?is)<svg[^>]*>.*?</svg>`),
	// Containers whose class/id names boilerplate chrome.
	regexp.MustCompile(`(?is)<(div|section|ul|span)[^>]*(?:class|id)\s*=\s*["'][^"']*(?:sidebar|widget|comment|share|social|advert|banner|menu|breadcrumb|related|promo|popup|cookie|subscribe)[^"']*["'][^>]*>.*?</(?:div|section|ul|span)>`),
	regexp.MustCompile(`(?is)<div[^>]*(?:class|id)\s*=\s*["'][^"']*(?:\bad\b|\bads\b|ad-|-ad\b)[^"']*["'][^>]*>.*?</div>`),
}

// contentPattern is one candidate content-region heuristic with its vote
// weight. Article/main tags rank highest, known publishing-platform body
// classes next, generic content containers lowest.
type contentPattern struct {
	re     *regexp.Regexp
	weight float64
}

var contentPatterns = []contentPattern{
	{regexp.MustCompile(`(?is)<article[^>]*>(.*?)</article>`), 10},
	{regexp.MustCompile(`(?is)<main[^>]*>(.*?)</main>`), 9},
	{regexp.MustCompile(`(?is)<div[^>]*role\s*=\s*["']main["'][^>]*>(.*?)</div>`), 9},
	{regexp.MustCompile(`(?is)<(?:div|section)[^>]*class\s*=\s*["'][^"']*(?:post-content|article-content|entry-content|article-body|post-body|rich_media_content|markdown-body|blog-post)[^"']*["'][^>]*>(.*?)</(?:div|section)>`), 8},
	{regexp.MustCompile(`(?is)<(?:div|section)[^>]*id\s*=\s*["'](?:content|main-content|article|post)["'][^>]*>(.*?)</(?:div|section)>`), 6},
	{regexp.MustCompile(`(?is)<(?:div|section)[^>]*class\s*=\s*["'][^"']*\b(?:content|body|text)\b[^"']*["'][^>]*>(.*?)</(?:div|section)>`), 4},
}

var (
	bodyRe = regexp.MustCompile(`(?is)<body[^>]*>(.*?)</body>`)
	tagRe  = regexp.MustCompile(`(?s)<[^>]+>`)
)

const (
	// minFragmentText is the floor under which a candidate fragment cannot
	// win, regardless of score.
	minFragmentText = 100

	// minWinningScore is the threshold a candidate must clear before the
	// extractor trusts it over the body fallback.
	minWinningScore = 10.0
)

// ExtractMainContent strips boilerplate from raw HTML and returns the HTML
// fragment most likely to hold the article body. Candidates are scored by
// weight × textDensity × ln(textLength+1); the best fragment above the
// score threshold wins. When nothing clears the threshold it falls back to
// readability extraction, then the <body> contents, then the whole document.
func ExtractMainContent(html string) string {
	cleaned := stripNoise(html)

	best := ""
	bestScore := 0.0

	for _, pattern := range contentPatterns {
		for _, m := range pattern.re.FindAllStringSubmatch(cleaned, -1) {
			fragment := m[1]
			text := StripTags(fragment)
			if len(text) < minFragmentText {
				continue
			}

			density := float64(len(text)) / float64(len(fragment))
			score := pattern.weight * density * math.Log(float64(len(text))+1)
			if score > bestScore {
				bestScore = score
				best = fragment
			}
		}
	}

	if bestScore >= minWinningScore && best != "" {
		return best
	}

	if fragment := readabilityFallback(html); fragment != "" {
		return fragment
	}

	if m := bodyRe.FindStringSubmatch(cleaned); m != nil {
		return m[1]
	}
	return cleaned
}

// readabilityFallback runs go-readability over the raw document. Used only
// when the density heuristic fails, so the heuristic's chunk boundaries stay
// stable for pages it already handles.
func readabilityFallback(html string) string {
	article, err := readability.FromReader(strings.NewReader(html), &url.URL{Scheme: "https", Host: "localhost"})
	if err != nil {
		return ""
	}
	if len(StripTags(article.Content)) < minFragmentText {
		return ""
	}
	return article.Content
}

// stripNoise removes script/style/nav/boilerplate regions in order.
func stripNoise(html string) string {
	for _, re := range noiseRes {
		html = re.ReplaceAllString(html, "")
	}
	return html
}

// StripTags removes all markup, decodes entities and collapses whitespace.
// Used for density scoring and content-length checks.
func StripTags(fragment string) string {
	text := tagRe.ReplaceAllString(fragment, " ")
	text = DecodeEntities(text)
	return strings.Join(strings.Fields(text), " ")
}
