package extract

import (
	"regexp"
	"strings"
)

var (
	brRe         = regexp.MustCompile(`(?i)<br\s*/?>`)
	blockOpenRe  = regexp.MustCompile(`(?is)<(?:p|div|section|article|li|tr|blockquote|pre|h[1-6]|table|ul|ol|dl|dt|dd)\b[^>]*>`)
	blockCloseRe = regexp.MustCompile(`(?is)</(?:p|div|section|article|li|tr|blockquote|pre|h[1-6]|table|ul|ol|dl|dt|dd)>`)
	multiBlankRe = regexp.MustCompile(`\n{3,}`)
	lineSpaceRe  = regexp.MustCompile(`[ \t]+\n`)
)

// HTMLToText converts an HTML fragment to normalized plain text: block
// elements become newlines, remaining tags are dropped, entities decoded
// and whitespace collapsed.
func HTMLToText(fragment string) string {
	text := brRe.ReplaceAllString(fragment, "\n")
	text = blockCloseRe.ReplaceAllString(text, "\n\n")
	text = blockOpenRe.ReplaceAllString(text, "\n")
	text = tagRe.ReplaceAllString(text, " ")
	text = DecodeEntities(text)

	// Collapse horizontal runs per line but keep paragraph breaks.
	lines := strings.Split(text, "\n")
	for i, line := range lines {
		lines[i] = strings.Join(strings.Fields(line), " ")
	}
	text = strings.Join(lines, "\n")

	text = lineSpaceRe.ReplaceAllString(text, "\n")
	text = multiBlankRe.ReplaceAllString(text, "\n\n")
	return strings.TrimSpace(text)
}
