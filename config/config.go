// Package config provides configuration loading and management for ragingest.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/Daniel2008/ai-rag-sub002/source"
	"github.com/Daniel2008/ai-rag-sub002/source/chunker"
)

// Config represents the complete ragingest configuration.
type Config struct {
	Loader  LoaderConfig   `yaml:"loader"`
	Chunker chunker.Config `yaml:"chunker"`
	NATS    NATSConfig     `yaml:"nats"`
	Watch   WatchConfig    `yaml:"watch"`
	Log     LogConfig      `yaml:"log"`
}

// LoaderConfig configures URL content acquisition.
type LoaderConfig struct {
	// Timeout bounds each network attempt.
	Timeout time.Duration `yaml:"timeout"`
	// MaxRetries is the number of direct-fetch retries on transient errors.
	MaxRetries int `yaml:"max_retries"`
	// ExtractLinks collects absolute links from HTML pages.
	ExtractLinks bool `yaml:"extract_links"`
	// ExtractMeta attaches page metadata to results.
	ExtractMeta bool `yaml:"extract_meta"`
	// MinContentLength is the floor under which content counts as a failure.
	MinContentLength int `yaml:"min_content_length"`
	// UserAgent overrides the default browser identity.
	UserAgent string `yaml:"user_agent"`
	// AllowedHosts restricts loads to matching hosts (wildcard patterns).
	AllowedHosts []string `yaml:"allowed_hosts"`
	// AllowPrivateHosts disables localhost/private-IP blocking.
	AllowPrivateHosts bool `yaml:"allow_private_hosts"`
	// MarkdownOutput emits Markdown from HTML pages instead of plain text.
	MarkdownOutput bool `yaml:"markdown_output"`
}

// NATSConfig configures the chunk publisher.
type NATSConfig struct {
	// URL is the NATS server URL (empty = publishing disabled).
	URL string `yaml:"url"`
}

// WatchConfig configures directory watching.
type WatchConfig struct {
	// Dir is the directory of documents to watch.
	Dir string `yaml:"dir"`
	// Debounce is how long to accumulate changes before ingesting.
	Debounce time.Duration `yaml:"debounce"`
	// Extensions lists file extensions to ingest.
	Extensions []string `yaml:"extensions"`
	// ExcludeDirs lists directory names to skip.
	ExcludeDirs []string `yaml:"exclude_dirs"`
}

// LogConfig configures structured logging.
type LogConfig struct {
	// Level is one of debug, info, warn, error.
	Level string `yaml:"level"`
}

// DefaultConfig returns a Config with sensible defaults.
func DefaultConfig() *Config {
	watch := source.DefaultWatcherOptions()
	return &Config{
		Loader: LoaderConfig{
			Timeout:          30 * time.Second,
			MaxRetries:       2,
			ExtractLinks:     false,
			ExtractMeta:      true,
			MinContentLength: 50,
			MarkdownOutput:   true,
		},
		Chunker: chunker.DefaultConfig(),
		NATS:    NATSConfig{URL: ""},
		Watch: WatchConfig{
			Dir:         "sources",
			Debounce:    watch.Debounce,
			Extensions:  watch.Extensions,
			ExcludeDirs: watch.ExcludeDirs,
		},
		Log: LogConfig{Level: "info"},
	}
}

// Validate checks that the configuration is valid.
func (c *Config) Validate() error {
	if c.Loader.Timeout <= 0 {
		return fmt.Errorf("loader.timeout must be positive")
	}
	if c.Loader.MaxRetries < 0 {
		return fmt.Errorf("loader.max_retries must not be negative")
	}
	if err := c.Chunker.Validate(); err != nil {
		return fmt.Errorf("chunker: %w", err)
	}
	switch c.Log.Level {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("log.level must be one of debug, info, warn, error")
	}
	return nil
}

// LoadFromFile loads configuration from a YAML file on top of defaults.
func LoadFromFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config file: %w", err)
	}

	config := DefaultConfig()
	if err := yaml.Unmarshal(data, config); err != nil {
		return nil, fmt.Errorf("parse config file: %w", err)
	}

	return config, nil
}

// SaveToFile saves configuration to a YAML file, creating parent directories.
func (c *Config) SaveToFile(path string) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create config directory: %w", err)
	}

	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("marshal config: %w", err)
	}

	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("write config file: %w", err)
	}

	return nil
}

// Merge merges another config into this one; other's non-zero values win.
// Boolean flags merge true-wins: a layer can enable a flag but not disable
// one, because an unmarshalled false is indistinguishable from unset.
// Turning a default-true flag off takes an explicit --config file, which is
// loaded directly instead of merged.
func (c *Config) Merge(other *Config) {
	if other == nil {
		return
	}

	if other.Loader.Timeout != 0 {
		c.Loader.Timeout = other.Loader.Timeout
	}
	if other.Loader.MaxRetries != 0 {
		c.Loader.MaxRetries = other.Loader.MaxRetries
	}
	if other.Loader.ExtractLinks {
		c.Loader.ExtractLinks = true
	}
	if other.Loader.ExtractMeta {
		c.Loader.ExtractMeta = true
	}
	if other.Loader.MarkdownOutput {
		c.Loader.MarkdownOutput = true
	}
	if other.Loader.MinContentLength != 0 {
		c.Loader.MinContentLength = other.Loader.MinContentLength
	}
	if other.Loader.UserAgent != "" {
		c.Loader.UserAgent = other.Loader.UserAgent
	}
	if len(other.Loader.AllowedHosts) > 0 {
		c.Loader.AllowedHosts = other.Loader.AllowedHosts
	}
	if other.Loader.AllowPrivateHosts {
		c.Loader.AllowPrivateHosts = true
	}

	if other.Chunker.Method != "" {
		c.Chunker.Method = other.Chunker.Method
	}
	if other.Chunker.MaxTokens != 0 {
		c.Chunker.MaxTokens = other.Chunker.MaxTokens
	}
	if other.Chunker.MaxChunkSize != 0 {
		c.Chunker.MaxChunkSize = other.Chunker.MaxChunkSize
	}
	if other.Chunker.MinChunkSize != 0 {
		c.Chunker.MinChunkSize = other.Chunker.MinChunkSize
	}
	if other.Chunker.ChunkOverlap != 0 {
		c.Chunker.ChunkOverlap = other.Chunker.ChunkOverlap
	}
	if other.Chunker.LanguageMode != "" {
		c.Chunker.LanguageMode = other.Chunker.LanguageMode
	}
	if other.Chunker.PreserveHeadings {
		c.Chunker.PreserveHeadings = true
	}
	if other.Chunker.PreserveLists {
		c.Chunker.PreserveLists = true
	}
	if other.Chunker.PreserveCodeBlocks {
		c.Chunker.PreserveCodeBlocks = true
	}
	if other.Chunker.PreserveTables {
		c.Chunker.PreserveTables = true
	}

	if other.NATS.URL != "" {
		c.NATS.URL = other.NATS.URL
	}

	if other.Watch.Dir != "" {
		c.Watch.Dir = other.Watch.Dir
	}
	if other.Watch.Debounce != 0 {
		c.Watch.Debounce = other.Watch.Debounce
	}
	if len(other.Watch.Extensions) > 0 {
		c.Watch.Extensions = other.Watch.Extensions
	}
	if len(other.Watch.ExcludeDirs) > 0 {
		c.Watch.ExcludeDirs = other.Watch.ExcludeDirs
	}

	if other.Log.Level != "" {
		c.Log.Level = other.Log.Level
	}
}
