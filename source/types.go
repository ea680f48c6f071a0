// Package source ties content acquisition and semantic segmentation into an
// ingestion pipeline: load a URL or file, split it into chunks, wrap each
// chunk with provenance metadata, and optionally publish the chunks for
// downstream indexing.
package source

import (
	"crypto/sha256"
	"encoding/hex"
)

// Document is one retrievable unit handed to the indexer: a chunk of content
// plus its provenance metadata.
type Document struct {
	PageContent string         `json:"page_content"`
	Metadata    map[string]any `json:"metadata"`
}

// Metadata keys set by the pipeline.
const (
	MetaSource      = "source"
	MetaTitle       = "title"
	MetaType        = "type"
	MetaFetchedAt   = "fetchedAt"
	MetaDescription = "description"
	MetaAuthor      = "author"
	MetaSiteName    = "siteName"
	MetaChunkIndex  = "chunkIndex"
	MetaChunkTotal  = "chunkTotal"
	MetaHeading     = "heading"
	MetaStrategy    = "strategy"
)

// ContentHash returns the hex SHA-256 of content, used for change detection.
func ContentHash(content []byte) string {
	sum := sha256.Sum256(content)
	return hex.EncodeToString(sum[:])
}
