package source

import (
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Daniel2008/ai-rag-sub002/source/chunker"
	"github.com/Daniel2008/ai-rag-sub002/source/loader"
)

func testPipeline(t *testing.T) *Pipeline {
	t.Helper()

	opts := loader.DefaultOptions()
	opts.AllowPrivateHosts = true
	opts.MinContentLength = 10
	opts.Timeout = 5 * time.Second

	cfg := chunker.DefaultConfig()
	cfg.Method = chunker.MethodCustom

	return NewPipeline(loader.New(opts), chunker.MustNew(cfg), nil, nil)
}

func TestPipeline_IngestURL(t *testing.T) {
	html := `<html><head><title>Pipeline Test</title>
		<meta name="author" content="A. Author">
		<meta property="og:site_name" content="Test Site">
	</head><body><article><p>` +
		strings.Repeat("Paragraph content for the ingestion pipeline test. ", 10) +
		`</p></article></body></html>`

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		_, _ = w.Write([]byte(html))
	}))
	defer server.Close()

	p := testPipeline(t)
	result, err := p.IngestURL(context.Background(), server.URL+"/article")
	require.NoError(t, err)

	assert.NotEmpty(t, result.JobID)
	assert.True(t, strings.HasPrefix(result.SourceID, "source.web."))
	assert.Equal(t, "Pipeline Test", result.Title)
	require.NotEmpty(t, result.Chunks)

	first := result.Chunks[0]
	assert.Equal(t, server.URL+"/article", first.Metadata[MetaSource])
	assert.Equal(t, "url", first.Metadata[MetaType])
	assert.Equal(t, "Pipeline Test", first.Metadata[MetaTitle])
	assert.Equal(t, "A. Author", first.Metadata[MetaAuthor])
	assert.Equal(t, "Test Site", first.Metadata[MetaSiteName])
	assert.Equal(t, 0, first.Metadata[MetaChunkIndex])
	assert.Equal(t, len(result.Chunks), first.Metadata[MetaChunkTotal])
	assert.NotEmpty(t, first.Metadata[MetaFetchedAt])
}

func TestPipeline_IngestURL_LoadFailure(t *testing.T) {
	p := testPipeline(t)

	_, err := p.IngestURL(context.Background(), "ftp://bad.example.com/")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unsupported scheme")
}

func TestPipeline_IngestText(t *testing.T) {
	p := testPipeline(t)

	text := "# Notes\n\nSome noted content worth keeping."
	result, err := p.IngestText(context.Background(), text, "Notes", map[string]any{"origin": "clipboard"})
	require.NoError(t, err)

	require.NotEmpty(t, result.Chunks)
	assert.True(t, strings.HasPrefix(result.SourceID, "source.text."))
	assert.Equal(t, "text", result.Chunks[0].Metadata[MetaType])
	assert.Equal(t, "clipboard", result.Chunks[0].Metadata["origin"])
}

func TestPipeline_IngestFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "guide.md")
	content := "---\ntitle: The Guide\ncategory: docs\n---\n\n# Ignored Heading\n\nFile body content for chunking."
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))

	p := testPipeline(t)
	result, err := p.IngestFile(context.Background(), path)
	require.NoError(t, err)

	assert.Equal(t, "The Guide", result.Title)
	require.NotEmpty(t, result.Chunks)

	first := result.Chunks[0]
	assert.Equal(t, "file", first.Metadata[MetaType])
	assert.Equal(t, "The Guide", first.Metadata[MetaTitle])
	assert.Equal(t, "docs", first.Metadata["category"])
	// Frontmatter must not leak into chunk content.
	for _, doc := range result.Chunks {
		assert.NotContains(t, doc.PageContent, "category: docs")
	}
}

func TestPipeline_IngestFile_Missing(t *testing.T) {
	p := testPipeline(t)

	_, err := p.IngestFile(context.Background(), filepath.Join(t.TempDir(), "absent.md"))
	require.Error(t, err)
}

func TestPipeline_HeadingMetadata(t *testing.T) {
	p := testPipeline(t)

	result, err := p.IngestText(context.Background(),
		"# Section One\n\nBody of section one.\n\n# Section Two\n\nBody of section two.",
		"Doc", nil)
	require.NoError(t, err)
	require.Len(t, result.Chunks, 2)

	assert.Equal(t, "Section One", result.Chunks[0].Metadata[MetaHeading])
	assert.Equal(t, "Section Two", result.Chunks[1].Metadata[MetaHeading])
}
