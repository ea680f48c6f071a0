package chunker

import "strings"

// fixedChunks is the degraded fallback: fixed-size character windows with a
// flat overlap, ignoring document structure.
func (c *Chunker) fixedChunks(text string) []Chunk {
	size := c.config.MaxChunkSize
	step := size - c.config.ChunkOverlap
	if step <= 0 {
		step = size
	}

	// Byte offset of each rune so chunk positions stay byte-addressed.
	runes := []rune(text)
	offsets := make([]int, len(runes)+1)
	for i, r := range runes {
		offsets[i+1] = offsets[i] + len(string(r))
	}

	var chunks []Chunk
	for start := 0; start < len(runes); start += step {
		end := start + size
		if end > len(runes) {
			end = len(runes)
		}

		content := strings.TrimSpace(string(runes[start:end]))
		if content != "" {
			chunks = append(chunks, Chunk{
				Content:       content,
				Index:         len(chunks),
				BlockTypes:    []BlockType{BlockUnknown},
				StartPosition: offsets[start],
				EndPosition:   offsets[end],
				Method:        MethodFixed,
			})
		}

		if end == len(runes) {
			break
		}
	}

	return chunks
}
