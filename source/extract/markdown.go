package extract

import (
	"regexp"
	"strings"

	md "github.com/JohannesKaufmann/html-to-markdown"
	"github.com/JohannesKaufmann/html-to-markdown/plugin"
)

var (
	excessiveLinesRe = regexp.MustCompile(`\n{4,}`)

	mdHeadingRe = regexp.MustCompile(`(?m)^#{1,6}\s+`)
	mdListRe    = regexp.MustCompile(`(?m)^\s*(?:[-*+]|\d+\.)\s+`)
	mdBoldRe    = regexp.MustCompile(`\*\*([^*]+)\*\*|__([^_]+)__`)
	mdItalicRe  = regexp.MustCompile(`\*([^*\n]+)\*|_([^_\n]+)_`)
)

// MarkdownConverter converts HTML fragments to GitHub-flavored Markdown so
// the structural chunker can see headings, fences and tables.
type MarkdownConverter struct {
	converter *md.Converter
}

// NewMarkdownConverter creates a converter with the GitHubFlavored plugin.
func NewMarkdownConverter() *MarkdownConverter {
	converter := md.NewConverter("", true, nil)
	converter.Use(plugin.GitHubFlavored())
	return &MarkdownConverter{converter: converter}
}

// Convert transforms an HTML fragment to cleaned Markdown.
func (c *MarkdownConverter) Convert(fragment string) (string, error) {
	markdown, err := c.converter.ConvertString(fragment)
	if err != nil {
		return "", err
	}
	return tidyMarkdown(markdown), nil
}

// tidyMarkdown trims trailing whitespace per line and collapses excessive
// blank runs.
func tidyMarkdown(content string) string {
	content = excessiveLinesRe.ReplaceAllString(content, "\n\n\n")

	lines := strings.Split(content, "\n")
	for i, line := range lines {
		lines[i] = strings.TrimRight(line, " \t")
	}
	content = strings.Join(lines, "\n")

	return strings.TrimSpace(content)
}

// StripMarkdownMarkers removes heading, list, bold and italic markers from
// Markdown text. Reader-proxy responses arrive as Markdown; the plain-text
// path flattens them with this before chunking.
func StripMarkdownMarkers(content string) string {
	content = mdHeadingRe.ReplaceAllString(content, "")
	content = mdListRe.ReplaceAllString(content, "")
	content = mdBoldRe.ReplaceAllString(content, "$1$2")
	content = mdItalicRe.ReplaceAllString(content, "$1$2")
	content = strings.ReplaceAll(content, "`", "")
	return content
}
