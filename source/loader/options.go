package loader

import "time"

// ChunkingStrategy selects how downstream segmentation treats the content.
type ChunkingStrategy string

const (
	ChunkingSemantic ChunkingStrategy = "semantic"
	ChunkingFixed    ChunkingStrategy = "fixed"
)

// ProgressFunc receives stage updates during a load. It is a fire-and-forget
// observer: the loader never depends on it for control flow.
type ProgressFunc func(stage string, percent int)

// Options configures a single URL load. Start from DefaultOptions and
// override fields; the loader fills remaining zero values with defaults.
type Options struct {
	// Timeout bounds each network attempt via context cancellation.
	Timeout time.Duration `json:"timeout" yaml:"timeout"`

	// MaxRetries is the number of direct-fetch retries on 429/5xx.
	MaxRetries int `json:"max_retries" yaml:"max_retries"`

	// ExtractLinks collects absolute links from HTML responses.
	ExtractLinks bool `json:"extract_links" yaml:"extract_links"`

	// ExtractMeta attaches PageMeta scanned from HTML responses.
	ExtractMeta bool `json:"extract_meta" yaml:"extract_meta"`

	// MinContentLength is the floor under which extracted content counts as
	// a strategy failure and the cascade continues.
	MinContentLength int `json:"min_content_length" yaml:"min_content_length"`

	// UserAgent is sent on every request.
	UserAgent string `json:"user_agent" yaml:"user_agent"`

	// AllowedHosts restricts loads to matching hosts (doublestar patterns).
	AllowedHosts []string `json:"allowed_hosts" yaml:"allowed_hosts"`

	// AllowPrivateHosts disables localhost/private-IP blocking.
	AllowPrivateHosts bool `json:"allow_private_hosts" yaml:"allow_private_hosts"`

	// ChunkingStrategy is provenance passed through to the ingestion facade.
	ChunkingStrategy ChunkingStrategy `json:"chunking_strategy" yaml:"chunking_strategy"`

	// MarkdownOutput makes the HTML path emit Markdown instead of plain
	// text, preserving structure for the chunker.
	MarkdownOutput bool `json:"markdown_output" yaml:"markdown_output"`

	// OnProgress, when set, receives stage updates.
	OnProgress ProgressFunc `json:"-" yaml:"-"`
}

// Browser-like default User-Agent; several publishers refuse obvious bots.
const defaultUserAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36"

// DefaultOptions returns the production defaults.
func DefaultOptions() Options {
	return Options{
		Timeout:          30 * time.Second,
		MaxRetries:       2,
		ExtractLinks:     false,
		ExtractMeta:      true,
		MinContentLength: 50,
		UserAgent:        defaultUserAgent,
		ChunkingStrategy: ChunkingSemantic,
		MarkdownOutput:   true,
	}
}

// normalize fills zero values that have no meaningful zero semantics.
func (o Options) normalize() Options {
	if o.Timeout <= 0 {
		o.Timeout = 30 * time.Second
	}
	if o.MinContentLength <= 0 {
		o.MinContentLength = 50
	}
	if o.UserAgent == "" {
		o.UserAgent = defaultUserAgent
	}
	if o.ChunkingStrategy == "" {
		o.ChunkingStrategy = ChunkingSemantic
	}
	return o
}

// progress invokes the observer when one is installed.
func (o Options) progress(stage string, percent int) {
	if o.OnProgress != nil {
		o.OnProgress(stage, percent)
	}
}
