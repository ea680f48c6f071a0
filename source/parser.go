package source

import (
	"fmt"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

// ParsedFile is a local document split into YAML frontmatter and body.
type ParsedFile struct {
	ID          string
	Filename    string
	Frontmatter map[string]any
	Body        string
}

// ParseFile splits a Markdown or plain-text document into frontmatter and
// body. Malformed frontmatter is not an error; the whole content becomes the
// body.
func ParseFile(filename string, content []byte) *ParsedFile {
	parsed := &ParsedFile{
		ID:       fileID(filename, content),
		Filename: filepath.Base(filename),
	}

	str := string(content)
	if strings.HasPrefix(str, "---\n") || strings.HasPrefix(str, "---\r\n") {
		frontmatter, body, err := splitFrontmatter(str)
		if err == nil {
			parsed.Frontmatter = frontmatter
			parsed.Body = body
			return parsed
		}
	}

	parsed.Body = str
	return parsed
}

// Title returns the frontmatter title when present, else the first Markdown
// heading, else the filename without extension.
func (p *ParsedFile) Title() string {
	if t, ok := p.Frontmatter["title"].(string); ok && t != "" {
		return t
	}

	for _, line := range strings.Split(p.Body, "\n") {
		trimmed := strings.TrimSpace(line)
		if strings.HasPrefix(trimmed, "#") {
			return strings.TrimSpace(strings.TrimLeft(trimmed, "#"))
		}
	}

	return strings.TrimSuffix(p.Filename, filepath.Ext(p.Filename))
}

// splitFrontmatter separates the YAML block between "---" delimiters from the
// body that follows.
func splitFrontmatter(content string) (map[string]any, string, error) {
	start := len("---")
	if len(content) > start && content[start] == '\r' {
		start++
	}
	if len(content) > start && content[start] == '\n' {
		start++
	}

	closeIdx := strings.Index(content[start:], "\n---")
	if closeIdx == -1 {
		return nil, content, fmt.Errorf("no closing frontmatter delimiter")
	}

	yamlBlock := content[start : start+closeIdx]

	bodyStart := start + closeIdx + 1 + len("---")
	for bodyStart < len(content) && (content[bodyStart] == '\n' || content[bodyStart] == '\r') {
		bodyStart++
	}

	body := ""
	if bodyStart < len(content) {
		body = content[bodyStart:]
	}

	var frontmatter map[string]any
	if err := yaml.Unmarshal([]byte(yamlBlock), &frontmatter); err != nil {
		return nil, content, fmt.Errorf("parse frontmatter: %w", err)
	}

	return frontmatter, body, nil
}

// fileID builds a stable document ID from the filename and a content hash
// suffix, safe for use in publish subjects.
func fileID(filename string, content []byte) string {
	base := filepath.Base(filename)
	name := strings.TrimSuffix(base, filepath.Ext(base))

	var b strings.Builder
	for _, r := range strings.ToLower(name) {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9':
			b.WriteRune(r)
		case r == '-' || r == '_' || r == ' ':
			b.WriteRune('-')
		}
	}

	slug := strings.Trim(b.String(), "-")
	if slug == "" {
		slug = "file"
	}

	return fmt.Sprintf("source.file.%s-%s", slug, ContentHash(content)[:12])
}
