package source

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseFile_Frontmatter(t *testing.T) {
	content := []byte(`---
title: My Document
tags:
  - go
  - ingestion
---

Body starts here.
`)

	parsed := ParseFile("docs/my-document.md", content)
	require.NotNil(t, parsed.Frontmatter)
	assert.Equal(t, "My Document", parsed.Frontmatter["title"])
	assert.Equal(t, "Body starts here.\n", parsed.Body)
	assert.Equal(t, "my-document.md", parsed.Filename)
	assert.True(t, strings.HasPrefix(parsed.ID, "source.file.my-document-"))
}

func TestParseFile_NoFrontmatter(t *testing.T) {
	parsed := ParseFile("notes.txt", []byte("just plain text"))
	assert.Nil(t, parsed.Frontmatter)
	assert.Equal(t, "just plain text", parsed.Body)
}

func TestParseFile_MalformedFrontmatterKeptAsBody(t *testing.T) {
	content := []byte("---\n: : not yaml : :\nstill not yaml\n")

	parsed := ParseFile("broken.md", content)
	assert.Nil(t, parsed.Frontmatter)
	assert.Equal(t, string(content), parsed.Body)
}

func TestParsedFile_Title(t *testing.T) {
	withFM := ParseFile("a.md", []byte("---\ntitle: Frontmatter Title\n---\n\n# Heading Title\n\nBody."))
	assert.Equal(t, "Frontmatter Title", withFM.Title())

	withHeading := ParseFile("b.md", []byte("# Heading Title\n\nBody."))
	assert.Equal(t, "Heading Title", withHeading.Title())

	bare := ParseFile("some-notes.md", []byte("no headings at all"))
	assert.Equal(t, "some-notes", bare.Title())
}

func TestFileID_StableAndSanitized(t *testing.T) {
	a := fileID("Weird NAME!!.md", []byte("content"))
	b := fileID("Weird NAME!!.md", []byte("content"))
	c := fileID("Weird NAME!!.md", []byte("different"))

	assert.Equal(t, a, b)
	assert.NotEqual(t, a, c)
	assert.True(t, strings.HasPrefix(a, "source.file.weird-name-"))
}

func TestContentHash(t *testing.T) {
	assert.Equal(t, ContentHash([]byte("x")), ContentHash([]byte("x")))
	assert.NotEqual(t, ContentHash([]byte("x")), ContentHash([]byte("y")))
	assert.Len(t, ContentHash([]byte("x")), 64)
}
