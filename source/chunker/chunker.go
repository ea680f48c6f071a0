// Package chunker turns clean text into retrieval-ready chunks: large enough
// to carry context, small enough for embedding models, and never split inside
// a heading, code block, table or list unless the block itself exceeds the
// size ceiling.
package chunker

import (
	"fmt"
	"log/slog"
	"strings"
)

// Method selects the chunking strategy.
type Method string

const (
	// MethodNLP delegates sentence segmentation to a pluggable splitter and
	// falls back to MethodCustom on failure.
	MethodNLP Method = "nlp"
	// MethodCustom is the structural block parser.
	MethodCustom Method = "custom"
	// MethodFixed is the naive fixed-size window fallback.
	MethodFixed Method = "fixed"
)

// Config holds chunking configuration. Sizes are counted in runes.
type Config struct {
	Method Method `json:"method" yaml:"method"`

	// MaxTokens is passed to the pluggable NLP splitter.
	MaxTokens int `json:"max_tokens" yaml:"max_tokens"`

	// MinChunkSize is the floor below which chunks are merged forward,
	// unless they contain a heading.
	MinChunkSize int `json:"min_chunk_size" yaml:"min_chunk_size"`

	// MaxChunkSize is the hard ceiling; larger blocks are boundary-split.
	MaxChunkSize int `json:"max_chunk_size" yaml:"max_chunk_size"`

	// ChunkOverlap is the excerpt length carried from the previous chunk.
	ChunkOverlap int `json:"chunk_overlap" yaml:"chunk_overlap"`

	PreserveHeadings   bool `json:"preserve_headings" yaml:"preserve_headings"`
	PreserveLists      bool `json:"preserve_lists" yaml:"preserve_lists"`
	PreserveCodeBlocks bool `json:"preserve_code_blocks" yaml:"preserve_code_blocks"`
	PreserveTables     bool `json:"preserve_tables" yaml:"preserve_tables"`

	LanguageMode LanguageMode `json:"language_mode" yaml:"language_mode"`
}

// DefaultConfig returns the production defaults.
func DefaultConfig() Config {
	return Config{
		Method:             MethodNLP,
		MaxTokens:          512,
		MinChunkSize:       100,
		MaxChunkSize:       2000,
		ChunkOverlap:       100,
		PreserveHeadings:   true,
		PreserveLists:      true,
		PreserveCodeBlocks: true,
		PreserveTables:     true,
		LanguageMode:       LanguageAuto,
	}
}

// Validate checks if the configuration is valid.
func (c Config) Validate() error {
	if c.MaxChunkSize <= 0 {
		return fmt.Errorf("MaxChunkSize must be positive, got %d", c.MaxChunkSize)
	}
	if c.MinChunkSize < 0 {
		return fmt.Errorf("MinChunkSize must be non-negative, got %d", c.MinChunkSize)
	}
	if c.MinChunkSize >= c.MaxChunkSize {
		return fmt.Errorf("MinChunkSize (%d) must be less than MaxChunkSize (%d)", c.MinChunkSize, c.MaxChunkSize)
	}
	if c.ChunkOverlap < 0 {
		return fmt.Errorf("ChunkOverlap must be non-negative, got %d", c.ChunkOverlap)
	}
	if c.ChunkOverlap >= c.MaxChunkSize {
		return fmt.Errorf("ChunkOverlap (%d) must be less than MaxChunkSize (%d)", c.ChunkOverlap, c.MaxChunkSize)
	}
	switch c.Method {
	case MethodNLP, MethodCustom, MethodFixed:
	default:
		return fmt.Errorf("unknown method %q", c.Method)
	}
	switch c.LanguageMode {
	case LanguageChinese, LanguageEnglish, LanguageAuto:
	default:
		return fmt.Errorf("unknown language mode %q", c.LanguageMode)
	}
	return nil
}

// Chunk is the terminal artifact of segmentation. Index values are dense,
// zero-based and strictly increasing in document order.
type Chunk struct {
	Content       string      `json:"content"`
	Index         int         `json:"chunk_index"`
	BlockTypes    []BlockType `json:"block_types"`
	HasHeading    bool        `json:"has_heading"`
	HeadingText   string      `json:"heading_text,omitempty"`
	StartPosition int         `json:"start_position"`
	EndPosition   int         `json:"end_position"`
	Method        Method      `json:"method"`
}

// Chunker is a pure function of its input text and configuration; it holds
// no mutable state and is safe for concurrent use.
type Chunker struct {
	config   Config
	splitter SentenceSplitter
	logger   *slog.Logger
}

// New creates a Chunker with the given configuration.
// A zero MaxChunkSize selects the default configuration.
func New(cfg Config) (*Chunker, error) {
	if cfg.MaxChunkSize == 0 {
		cfg = DefaultConfig()
	}
	if cfg.Method == "" {
		cfg.Method = MethodNLP
	}
	if cfg.LanguageMode == "" {
		cfg.LanguageMode = LanguageAuto
	}
	if cfg.MaxTokens == 0 {
		cfg.MaxTokens = 512
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &Chunker{config: cfg, logger: slog.Default()}, nil
}

// MustNew creates a Chunker, panicking on invalid config.
// Use for known-good configurations.
func MustNew(cfg Config) *Chunker {
	c, err := New(cfg)
	if err != nil {
		panic(err)
	}
	return c
}

// NewDefault creates a Chunker with default configuration.
func NewDefault() *Chunker {
	return MustNew(DefaultConfig())
}

// SetSentenceSplitter installs the pluggable NLP strategy.
func (c *Chunker) SetSentenceSplitter(s SentenceSplitter) {
	c.splitter = s
}

// SetLogger replaces the default logger.
func (c *Chunker) SetLogger(logger *slog.Logger) {
	if logger != nil {
		c.logger = logger
	}
}

// Config returns the effective configuration.
func (c *Chunker) Config() Config {
	return c.config
}

// SplitText segments text into chunks using the configured method. It never
// fails on valid text; empty or whitespace-only input yields no chunks.
func (c *Chunker) SplitText(text string) []Chunk {
	if strings.TrimSpace(text) == "" {
		return nil
	}

	switch c.config.Method {
	case MethodFixed:
		return c.fixedChunks(text)
	case MethodNLP:
		if chunks, ok := c.nlpChunks(text); ok {
			return chunks
		}
		return c.customChunks(text)
	default:
		return c.customChunks(text)
	}
}

// customChunks runs the structural pipeline: parse, merge, assemble, overlap.
func (c *Chunker) customChunks(text string) []Chunk {
	blocks := parseBlocks(text)
	merged := c.mergeBlocks(blocks)
	chunks := c.assemble(merged)
	chunks = c.mergeSmallChunks(chunks)

	for i := range chunks {
		chunks[i].Index = i
		chunks[i].Method = MethodCustom
	}

	c.injectOverlap(chunks)
	return chunks
}

// preserved reports whether a block type must be emitted whole.
func (c *Chunker) preserved(t BlockType) bool {
	switch t {
	case BlockHeading:
		return c.config.PreserveHeadings
	case BlockList:
		return c.config.PreserveLists
	case BlockCode:
		return c.config.PreserveCodeBlocks
	case BlockTable:
		return c.config.PreserveTables
	}
	return false
}

// mergeBlocks drops separators, keeps preserved blocks as-is and
// concatenates adjacent mergeable blocks while the combined length stays
// under MaxChunkSize. Merging creates new blocks; inputs are never edited.
func (c *Chunker) mergeBlocks(blocks []Block) []Block {
	var out []Block

	for _, b := range blocks {
		if b.Type == BlockSeparator {
			continue
		}
		if c.preserved(b.Type) {
			out = append(out, b)
			continue
		}

		if n := len(out); n > 0 && !c.preserved(out[n-1].Type) {
			prev := out[n-1]
			combined := prev.Content + "\n\n" + b.Content
			if runeLen(combined) < c.config.MaxChunkSize {
				out[n-1] = Block{
					Type:       prev.Type,
					Content:    combined,
					Level:      prev.Level,
					StartIndex: prev.StartIndex,
					EndIndex:   b.EndIndex,
				}
				continue
			}
		}

		out = append(out, b)
	}

	return out
}

// chunkBuilder accumulates blocks for one chunk during assembly.
type chunkBuilder struct {
	parts       []string
	types       []BlockType
	hasHeading  bool
	headingText string
	start       int
	end         int
	size        int
}

func (b *chunkBuilder) empty() bool { return len(b.parts) == 0 }

func (b *chunkBuilder) add(blk Block) {
	if b.empty() {
		b.start = blk.StartIndex
	} else {
		b.size += 2 // the "\n\n" joiner
	}
	b.parts = append(b.parts, blk.Content)
	b.size += runeLen(blk.Content)
	b.end = blk.EndIndex

	if !containsType(b.types, blk.Type) {
		b.types = append(b.types, blk.Type)
	}
	if blk.Type == BlockHeading && !b.hasHeading {
		b.hasHeading = true
		b.headingText = headingText(blk.Content)
	}
}

func (b *chunkBuilder) build() Chunk {
	return Chunk{
		Content:       strings.Join(b.parts, "\n\n"),
		BlockTypes:    b.types,
		HasHeading:    b.hasHeading,
		HeadingText:   b.headingText,
		StartPosition: b.start,
		EndPosition:   b.end,
	}
}

// assemble groups merged blocks into chunks. A new chunk starts on every
// heading, when the accumulated size would exceed MaxChunkSize, or when a
// code/table block follows non-empty accumulated content.
func (c *Chunker) assemble(blocks []Block) []Chunk {
	var chunks []Chunk
	cur := &chunkBuilder{}

	flush := func() {
		if !cur.empty() {
			chunks = append(chunks, cur.build())
		}
		cur = &chunkBuilder{}
	}

	for _, b := range blocks {
		bLen := runeLen(b.Content)

		// A single block over the ceiling is boundary-split; preserved
		// blocks are only ever split on this path.
		if bLen > c.config.MaxChunkSize {
			flush()
			lang := resolveLanguage(c.config.LanguageMode, b.Content)
			for _, piece := range splitAtSemanticBoundary(b.Content, c.config.MaxChunkSize, lang) {
				chunks = append(chunks, Chunk{
					Content:       piece,
					BlockTypes:    []BlockType{b.Type},
					StartPosition: b.StartIndex,
					EndPosition:   b.EndIndex,
				})
			}
			continue
		}

		if b.Type == BlockHeading {
			flush()
			cur.add(b)
			continue
		}

		if (b.Type == BlockCode || b.Type == BlockTable) && !cur.empty() {
			flush()
		}

		if !cur.empty() && cur.size+2+bLen > c.config.MaxChunkSize {
			flush()
		}

		cur.add(b)
	}

	flush()
	return chunks
}

// mergeSmallChunks merges chunks below MinChunkSize into their successor.
// A short chunk that carries a heading is kept: section headers must not be
// dropped.
func (c *Chunker) mergeSmallChunks(chunks []Chunk) []Chunk {
	if len(chunks) <= 1 {
		return chunks
	}

	var result []Chunk
	for i := 0; i < len(chunks); i++ {
		chunk := chunks[i]

		if runeLen(chunk.Content) < c.config.MinChunkSize && !chunk.HasHeading && i < len(chunks)-1 {
			next := chunks[i+1]
			combined := chunk.Content + "\n\n" + next.Content

			if runeLen(combined) <= c.config.MaxChunkSize {
				chunks[i+1] = Chunk{
					Content:       combined,
					BlockTypes:    mergeTypes(chunk.BlockTypes, next.BlockTypes),
					HasHeading:    chunk.HasHeading || next.HasHeading,
					HeadingText:   firstNonEmpty(chunk.HeadingText, next.HeadingText),
					StartPosition: chunk.StartPosition,
					EndPosition:   next.EndPosition,
				}
				continue
			}
		}

		result = append(result, chunk)
	}

	return result
}

// injectOverlap prefixes every chunk but the first with a trailing excerpt of
// its predecessor, trimmed back to the nearest sentence boundary within the
// overlap window and marked with a continuation marker.
func (c *Chunker) injectOverlap(chunks []Chunk) {
	if c.config.ChunkOverlap <= 0 || len(chunks) < 2 {
		return
	}

	originals := make([]string, len(chunks))
	for i := range chunks {
		originals[i] = chunks[i].Content
	}

	for i := 1; i < len(chunks); i++ {
		excerpt := overlapExcerpt(originals[i-1], c.config.ChunkOverlap)
		if excerpt == "" {
			continue
		}
		chunks[i].Content = "[...]" + excerpt + "\n\n" + chunks[i].Content
	}
}

// overlapExcerpt takes up to overlap runes from the tail of prev, then trims
// the front to just past the first sentence boundary in the window. Only "。"
// and ". " are treated as cut points.
func overlapExcerpt(prev string, overlap int) string {
	runes := []rune(strings.TrimSpace(prev))
	if len(runes) == 0 {
		return ""
	}

	window := runes
	if len(window) > overlap {
		window = window[len(window)-overlap:]
	}
	s := string(window)

	cut := -1
	if idx := strings.Index(s, "。"); idx >= 0 {
		cut = idx + len("。")
	}
	if idx := strings.Index(s, ". "); idx >= 0 {
		if end := idx + 2; cut == -1 || end < cut {
			cut = end
		}
	}

	if cut > 0 && cut < len(s) {
		s = s[cut:]
	}

	return strings.TrimSpace(s)
}

func containsType(types []BlockType, t BlockType) bool {
	for _, existing := range types {
		if existing == t {
			return true
		}
	}
	return false
}

func mergeTypes(a, b []BlockType) []BlockType {
	out := append([]BlockType{}, a...)
	for _, t := range b {
		if !containsType(out, t) {
			out = append(out, t)
		}
	}
	return out
}

func firstNonEmpty(a, b string) string {
	if a != "" {
		return a
	}
	return b
}
