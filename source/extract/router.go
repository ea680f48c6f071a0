package extract

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"path"
	"regexp"
	"strings"
)

// ErrUnsupportedContentType marks response bodies no extraction path can
// handle. The loader treats it as terminal: the content itself, not the
// transport, is unusable, so fallbacks are pointless.
var ErrUnsupportedContentType = errors.New("unsupported content type")

// binary content types that terminate a load immediately.
var unsupportedPrefixes = []string{
	"image/", "audio/", "video/", "font/",
	"application/pdf", "application/zip", "application/octet-stream",
	"application/x-", "application/vnd.",
}

var (
	cdataRe  = regexp.MustCompile(`(?s)<!\[CDATA\[(.*?)\]\]>`)
	xmlTagRe = regexp.MustCompile(`(?s)<[^>]+>`)
)

// Result is the routed extraction output for one response body.
type Result struct {
	Title   string
	Content string
	Meta    *PageMeta
}

// Router dispatches raw response bodies to the correct extraction path
// based on the declared content type.
type Router struct {
	// markdownOutput converts HTML fragments to Markdown instead of plain
	// text, preserving structure for the chunker.
	markdownOutput bool

	converter *MarkdownConverter
	logger    *slog.Logger
}

// NewRouter creates a content router. With markdownOutput set, HTML bodies
// are converted to GitHub-flavored Markdown; otherwise to plain text.
func NewRouter(markdownOutput bool, logger *slog.Logger) *Router {
	if logger == nil {
		logger = slog.Default()
	}
	r := &Router{markdownOutput: markdownOutput, logger: logger}
	if markdownOutput {
		r.converter = NewMarkdownConverter()
	}
	return r
}

// Process routes a raw body by content type, producing title, content and
// page metadata. HTML goes through main-content extraction; JSON is
// pretty-printed (falling back to raw text when malformed); Markdown and
// plain text pass through; XML is unwrapped and stripped.
func (r *Router) Process(body []byte, contentType, rawURL string) (*Result, error) {
	ct := normalizeContentType(contentType)

	for _, prefix := range unsupportedPrefixes {
		if strings.HasPrefix(ct, prefix) {
			return nil, fmt.Errorf("%w: %s", ErrUnsupportedContentType, ct)
		}
	}

	switch {
	case ct == "application/json" || strings.HasSuffix(ct, "+json"):
		return r.processJSON(body, rawURL), nil

	case ct == "text/markdown" || ct == "text/x-markdown" || strings.HasSuffix(strings.ToLower(urlPath(rawURL)), ".md"):
		return &Result{
			Title:   titleFromURL(rawURL),
			Content: string(body),
		}, nil

	case ct == "application/xml" || ct == "text/xml" || strings.HasSuffix(ct, "+xml"):
		return r.processXML(body, rawURL), nil

	case ct == "text/plain":
		return &Result{
			Title:   titleFromURL(rawURL),
			Content: strings.TrimSpace(string(body)),
		}, nil

	default:
		return r.processHTML(body, rawURL)
	}
}

// processHTML runs main-content extraction, text or Markdown conversion and
// metadata scanning.
func (r *Router) processHTML(body []byte, rawURL string) (*Result, error) {
	doc := string(body)
	fragment := ExtractMainContent(doc)

	var content string
	if r.markdownOutput && r.converter != nil {
		markdown, err := r.converter.Convert(fragment)
		if err != nil {
			r.logger.Debug("markdown conversion failed, using plain text",
				slog.String("url", rawURL), slog.String("error", err.Error()))
			content = HTMLToText(fragment)
		} else {
			content = markdown
		}
	} else {
		content = HTMLToText(fragment)
	}

	meta := ExtractMeta(doc)
	title := meta.Title
	if title == "" {
		title = titleFromURL(rawURL)
	}

	return &Result{Title: title, Content: content, Meta: meta}, nil
}

// processJSON pretty-prints the body; malformed JSON degrades to raw text
// with an empty title rather than erroring.
func (r *Router) processJSON(body []byte, rawURL string) *Result {
	var pretty bytes.Buffer
	if err := json.Indent(&pretty, body, "", "  "); err != nil {
		r.logger.Debug("malformed JSON, passing through raw",
			slog.String("url", rawURL))
		return &Result{Content: string(body)}
	}
	return &Result{
		Title:   titleFromURL(rawURL),
		Content: pretty.String(),
	}
}

// processXML unwraps CDATA sections and strips tags to newlines.
func (r *Router) processXML(body []byte, rawURL string) *Result {
	text := cdataRe.ReplaceAllString(string(body), "$1")
	text = xmlTagRe.ReplaceAllString(text, "\n")
	text = DecodeEntities(text)

	lines := strings.Split(text, "\n")
	var kept []string
	for _, line := range lines {
		if trimmed := strings.TrimSpace(line); trimmed != "" {
			kept = append(kept, trimmed)
		}
	}

	return &Result{
		Title:   titleFromURL(rawURL),
		Content: strings.Join(kept, "\n"),
	}
}

// normalizeContentType lowercases and drops parameters ("; charset=...").
func normalizeContentType(ct string) string {
	ct = strings.ToLower(strings.TrimSpace(ct))
	if idx := strings.IndexByte(ct, ';'); idx >= 0 {
		ct = strings.TrimSpace(ct[:idx])
	}
	return ct
}

// titleFromURL derives a title from the last URL path segment,
// percent-decoded, falling back to the hostname.
func titleFromURL(rawURL string) string {
	u, err := url.Parse(rawURL)
	if err != nil {
		return rawURL
	}

	segment := path.Base(u.Path)
	if segment == "/" || segment == "." || segment == "" {
		return u.Hostname()
	}

	if decoded, err := url.PathUnescape(segment); err == nil {
		segment = decoded
	}

	segment = strings.TrimSuffix(segment, path.Ext(segment))
	segment = strings.ReplaceAll(segment, "-", " ")
	segment = strings.ReplaceAll(segment, "_", " ")
	if segment == "" {
		return u.Hostname()
	}
	return segment
}

// urlPath returns the path portion of a URL, empty on parse failure.
func urlPath(rawURL string) string {
	u, err := url.Parse(rawURL)
	if err != nil {
		return ""
	}
	return u.Path
}
