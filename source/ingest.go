package source

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/google/uuid"

	"github.com/Daniel2008/ai-rag-sub002/source/chunker"
	"github.com/Daniel2008/ai-rag-sub002/source/loader"
	"github.com/Daniel2008/ai-rag-sub002/source/weburl"
)

// IngestResult is the outcome of one ingestion job.
type IngestResult struct {
	JobID    string     `json:"job_id"`
	SourceID string     `json:"source_id"`
	Source   string     `json:"source"`
	Title    string     `json:"title,omitempty"`
	Chunks   []Document `json:"chunks"`
}

// Pipeline runs the full ingestion path: acquire content, segment it into
// chunks, attach provenance metadata, and publish for indexing.
type Pipeline struct {
	loader    *loader.Loader
	chunker   *chunker.Chunker
	publisher *Publisher
	logger    *slog.Logger
}

// NewPipeline assembles a pipeline. The publisher may be nil; chunks are
// then returned but not published.
func NewPipeline(ld *loader.Loader, ch *chunker.Chunker, pub *Publisher, logger *slog.Logger) *Pipeline {
	if logger == nil {
		logger = slog.Default()
	}
	return &Pipeline{loader: ld, chunker: ch, publisher: pub, logger: logger}
}

// IngestURL loads a URL, chunks its content and publishes the chunks. The
// returned error wraps the load failure message when acquisition fails.
func (p *Pipeline) IngestURL(ctx context.Context, rawURL string) (*IngestResult, error) {
	jobID := uuid.NewString()
	start := time.Now()

	p.logger.Info("ingesting url",
		slog.String("job_id", jobID),
		slog.String("url", rawURL))

	result := p.loader.Load(ctx, rawURL)
	if !result.Success {
		return nil, fmt.Errorf("load %s: %s", rawURL, result.Error)
	}

	meta := map[string]any{
		MetaSource:    rawURL,
		MetaTitle:     result.Title,
		MetaType:      "url",
		MetaFetchedAt: time.Now().Format(time.RFC3339),
		MetaStrategy:  result.Strategy,
	}
	if result.Meta != nil {
		if result.Meta.Description != "" {
			meta[MetaDescription] = result.Meta.Description
		}
		if result.Meta.Author != "" {
			meta[MetaAuthor] = result.Meta.Author
		}
		if result.Meta.SiteName != "" {
			meta[MetaSiteName] = result.Meta.SiteName
		}
	}

	out, err := p.finish(ctx, jobID, weburl.GenerateEntityID(rawURL), rawURL, result.Title, result.Content, meta)
	if err != nil {
		return nil, err
	}

	p.logger.Info("url ingested",
		slog.String("job_id", jobID),
		slog.Int("chunks", len(out.Chunks)),
		slog.Duration("elapsed", time.Since(start)))
	return out, nil
}

// IngestText chunks raw text that was acquired out of band. extra metadata
// entries are copied onto every chunk.
func (p *Pipeline) IngestText(ctx context.Context, text, title string, extra map[string]any) (*IngestResult, error) {
	jobID := uuid.NewString()

	meta := map[string]any{
		MetaTitle: title,
		MetaType:  "text",
	}
	for k, v := range extra {
		meta[k] = v
	}

	sourceID := fmt.Sprintf("source.text.%s", jobID[:8])
	return p.finish(ctx, jobID, sourceID, title, title, text, meta)
}

// IngestFile reads a local document, strips frontmatter and chunks the body.
// Frontmatter keys become chunk metadata.
func (p *Pipeline) IngestFile(ctx context.Context, path string) (*IngestResult, error) {
	jobID := uuid.NewString()

	content, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}

	parsed := ParseFile(path, content)
	title := parsed.Title()

	meta := map[string]any{
		MetaSource: path,
		MetaTitle:  title,
		MetaType:   "file",
	}
	for k, v := range parsed.Frontmatter {
		if _, taken := meta[k]; !taken {
			meta[k] = v
		}
	}

	return p.finish(ctx, jobID, parsed.ID, path, title, parsed.Body, meta)
}

// finish runs segmentation, metadata stamping and publishing, shared by all
// ingest entry points.
func (p *Pipeline) finish(ctx context.Context, jobID, sourceID, src, title, content string, meta map[string]any) (*IngestResult, error) {
	chunks := p.chunker.SplitText(content)

	docs := make([]Document, 0, len(chunks))
	for _, c := range chunks {
		m := make(map[string]any, len(meta)+3)
		for k, v := range meta {
			m[k] = v
		}
		m[MetaChunkIndex] = c.Index
		m[MetaChunkTotal] = len(chunks)
		if c.HasHeading {
			m[MetaHeading] = c.HeadingText
		}

		docs = append(docs, Document{PageContent: c.Content, Metadata: m})
	}

	if err := p.publisher.PublishChunks(ctx, sourceID, docs); err != nil {
		return nil, fmt.Errorf("publish chunks: %w", err)
	}

	return &IngestResult{
		JobID:    jobID,
		SourceID: sourceID,
		Source:   src,
		Title:    title,
		Chunks:   docs,
	}, nil
}
