package extract

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestExtractMainContent_PrefersArticleOverChrome(t *testing.T) {
	article := strings.Repeat("This is the real article body with meaningful words. ", 10)
	html := `<html><body>
		<nav><a href="/">Home</a><a href="/about">About</a></nav>
		<div class="sidebar">Popular posts and other distractions</div>
		<article>` + article + `</article>
		<footer>Copyright notice and site links</footer>
	</body></html>`

	fragment := ExtractMainContent(html)
	assert.Contains(t, fragment, "real article body")
	assert.NotContains(t, fragment, "Popular posts")
	assert.NotContains(t, fragment, "Copyright notice")
}

func TestExtractMainContent_AdContainersRemoved(t *testing.T) {
	body := strings.Repeat("Paragraph text that belongs to the story. ", 10)
	html := `<html><body><article>
		<div class="ad-banner">Buy things now</div>
		<p>` + body + `</p>
	</article></body></html>`

	fragment := ExtractMainContent(html)
	assert.Contains(t, fragment, "belongs to the story")
	assert.NotContains(t, fragment, "Buy things now")
}

func TestExtractMainContent_KnownBodyClasses(t *testing.T) {
	body := strings.Repeat("Words of the entry itself, long enough to score. ", 10)
	html := `<html><body>
		<div class="entry-content">` + body + `</div>
	</body></html>`

	fragment := ExtractMainContent(html)
	assert.Contains(t, fragment, "Words of the entry itself")
}

func TestExtractMainContent_BodyFallback(t *testing.T) {
	// No recognizable content container and too little text for readability;
	// the <body> contents come back as-is.
	html := `<html><body><p>tiny</p></body></html>`

	fragment := ExtractMainContent(html)
	assert.Contains(t, fragment, "tiny")
}

func TestStripTags(t *testing.T) {
	assert.Equal(t, "a b", StripTags("<p>a</p><p>b</p>"))
	assert.Equal(t, "x < y", StripTags("<span>x &lt; y</span>"))
}

func TestStripNoise_CommentsFirst(t *testing.T) {
	html := `<!-- <div class="content">ghost</div> --><p>real</p>`
	cleaned := stripNoise(html)
	assert.NotContains(t, cleaned, "ghost")
	assert.Contains(t, cleaned, "real")
}
