package loader

import "github.com/Daniel2008/ai-rag-sub002/source/extract"

// Result is the terminal artifact of one URL acquisition. When Success is
// false, Error carries a human-readable message and no content is present.
// When Success is true, ContentLength always equals len(Content).
type Result struct {
	Success       bool              `json:"success"`
	URL           string            `json:"url"`
	Title         string            `json:"title,omitempty"`
	Content       string            `json:"content,omitempty"`
	Meta          *extract.PageMeta `json:"meta,omitempty"`
	Links         []string          `json:"links,omitempty"`
	ContentLength int               `json:"content_length,omitempty"`
	Error         string            `json:"error,omitempty"`

	// Strategy records which retrieval path produced the content
	// ("direct", "reader-proxy", "wikipedia", "github-raw").
	Strategy string `json:"strategy,omitempty"`
}

// failure builds an unsuccessful result.
func failure(url, errMsg string) *Result {
	return &Result{Success: false, URL: url, Error: errMsg}
}

// success builds a successful result; ContentLength is derived, never set by
// callers.
func success(url, title, content, strategy string) *Result {
	return &Result{
		Success:       true,
		URL:           url,
		Title:         title,
		Content:       content,
		ContentLength: len(content),
		Strategy:      strategy,
	}
}
