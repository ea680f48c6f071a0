package extract

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestExtractLinks_ResolvesAndDeduplicates(t *testing.T) {
	doc := `<html><body>
		<a href="/docs/intro">Intro</a>
		<a href="https://other.example.org/page">External</a>
		<a href="/docs/intro">Intro again</a>
		<a href="#section">Fragment only</a>
		<a href="mailto:hi@example.com">Mail</a>
	</body></html>`

	links := ExtractLinks(doc, "https://example.com/root")
	assert.Equal(t, []string{
		"https://example.com/docs/intro",
		"https://other.example.org/page",
	}, links)
}

func TestExtractLinks_StripsFragments(t *testing.T) {
	doc := `<a href="https://example.com/page#anchor">x</a>`

	links := ExtractLinks(doc, "https://example.com/")
	assert.Equal(t, []string{"https://example.com/page"}, links)
}

func TestExtractLinks_EmptyDocument(t *testing.T) {
	assert.Empty(t, ExtractLinks("", "https://example.com/"))
}
