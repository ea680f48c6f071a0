package chunker

import (
	"log/slog"
	"strings"
)

// SentenceSplitter is the pluggable NLP segmentation strategy. It returns
// sentence-bounded pieces of at most maxTokens tokens each.
type SentenceSplitter interface {
	Chunk(text string, maxTokens int) ([]string, error)
}

// nlpChunks delegates to the installed splitter. The second return value is
// false when no splitter is installed or it failed, in which case the caller
// falls back to the custom strategy.
func (c *Chunker) nlpChunks(text string) ([]Chunk, bool) {
	if c.splitter == nil {
		c.logger.Debug("no sentence splitter installed, falling back to custom chunking")
		return nil, false
	}

	pieces, err := c.splitter.Chunk(text, c.config.MaxTokens)
	if err != nil {
		c.logger.Warn("NLP chunking failed, falling back to custom chunking",
			slog.String("error", err.Error()))
		return nil, false
	}

	var chunks []Chunk
	offset := 0
	for _, piece := range pieces {
		piece = strings.TrimSpace(piece)
		if piece == "" {
			continue
		}

		// Positions are exact when the splitter returns verbatim slices of
		// the source. A rewriting splitter falls back to best-effort offsets,
		// but the scan still advances so chunks never share a position.
		start := offset
		if idx := strings.Index(text[offset:], piece); idx >= 0 {
			start = offset + idx
		}
		end := start + len(piece)
		if end > len(text) {
			end = len(text)
		}
		offset = end

		chunks = append(chunks, Chunk{
			Content:       piece,
			Index:         len(chunks),
			BlockTypes:    []BlockType{BlockParagraph},
			StartPosition: start,
			EndPosition:   end,
			Method:        MethodNLP,
		})
	}

	if len(chunks) == 0 {
		return nil, false
	}
	return chunks, true
}
