package extract

import (
	"regexp"
	"strings"
)

// PageMeta holds page-level metadata scanned from raw HTML. It is produced
// once per acquisition and attached as provenance to downstream chunks;
// callers must treat it as immutable.
type PageMeta struct {
	Title       string   `json:"title,omitempty"`
	Description string   `json:"description,omitempty"`
	Keywords    []string `json:"keywords,omitempty"`
	Author      string   `json:"author,omitempty"`
	PublishDate string   `json:"publish_date,omitempty"`
	OGImage     string   `json:"og_image,omitempty"`
	SiteName    string   `json:"site_name,omitempty"`
}

var (
	titleRe = regexp.MustCompile(`(?is)<title[^>]*>(.*?)</title>`)

	// OpenGraph and standard meta tags appear with property/name and content
	// in either attribute order.
	metaTagRe = regexp.MustCompile(`(?is)<meta\s+[^>]*>`)
	attrRe    = regexp.MustCompile(`(?is)([a-zA-Z:-]+)\s*=\s*["']([^"']*)["']`)
)

// ExtractMeta scans raw HTML for <title>, OpenGraph and meta tags.
// OpenGraph values win over plain meta tags, which win over <title>.
func ExtractMeta(html string) *PageMeta {
	meta := &PageMeta{}

	if m := titleRe.FindStringSubmatch(html); m != nil {
		meta.Title = cleanMetaValue(m[1])
	}

	for _, tag := range metaTagRe.FindAllString(html, -1) {
		attrs := parseAttrs(tag)

		key := attrs["property"]
		if key == "" {
			key = attrs["name"]
		}
		content := attrs["content"]
		if key == "" || content == "" {
			continue
		}

		value := cleanMetaValue(content)
		switch strings.ToLower(key) {
		case "og:title":
			meta.Title = value
		case "og:description":
			meta.Description = value
		case "og:image":
			meta.OGImage = value
		case "og:site_name":
			meta.SiteName = value
		case "description":
			if meta.Description == "" {
				meta.Description = value
			}
		case "keywords":
			meta.Keywords = splitKeywords(value)
		case "author":
			meta.Author = value
		case "article:published_time", "date", "publishdate", "publish_date":
			if meta.PublishDate == "" {
				meta.PublishDate = value
			}
		}
	}

	return meta
}

// parseAttrs extracts attribute key/value pairs from a single tag.
func parseAttrs(tag string) map[string]string {
	attrs := make(map[string]string)
	for _, m := range attrRe.FindAllStringSubmatch(tag, -1) {
		attrs[strings.ToLower(m[1])] = m[2]
	}
	return attrs
}

// cleanMetaValue decodes entities and collapses internal whitespace.
func cleanMetaValue(s string) string {
	s = DecodeEntities(s)
	return strings.Join(strings.Fields(s), " ")
}

// splitKeywords splits a keywords meta value on commas (or CJK commas).
func splitKeywords(s string) []string {
	parts := strings.FieldsFunc(s, func(r rune) bool {
		return r == ',' || r == '，' || r == ';'
	})

	var keywords []string
	for _, p := range parts {
		if kw := strings.TrimSpace(p); kw != "" {
			keywords = append(keywords, kw)
		}
	}
	return keywords
}
