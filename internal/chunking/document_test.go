package chunking

import (
	"context"
	"strconv"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dbsmedya/dbs-vector/internal/core"
)

func TestDocumentChunker_MarkdownBasic(t *testing.T) {
	c := NewDocumentChunker(1500, nil)
	doc := core.Document{
		Filepath:    "docs/a.md",
		Content:     []byte("# Title\n\nhello world\n"),
		ContentHash: "abc123",
	}

	chunks := c.Process(context.Background(), doc)
	require.NotEmpty(t, chunks)
	assert.Equal(t, "docs/a.md_chunk_0", chunks[0].ID)
	assert.Equal(t, "docs/a.md", chunks[0].Source)
	assert.Contains(t, chunks[0].Text, "hello world")
}

func TestDocumentChunker_FencedCodeBlockIsAtomic(t *testing.T) {
	c := NewDocumentChunker(20, nil)
	content := "intro paragraph that is long enough to matter\n\n```go\nfunc main() {}\n```\n\nmore text after the code block\n"
	doc := core.Document{Filepath: "a.md", Content: []byte(content), ContentHash: "h"}

	chunks := c.Process(context.Background(), doc)
	require.NotEmpty(t, chunks)

	foundCode := false
	for _, ch := range chunks {
		if strings.Contains(ch.Text, "func main()") {
			foundCode = true
		}
	}
	assert.True(t, foundCode, "fenced code block should survive as its own chunk even though it is emitted atomically")
}

func TestDocumentChunker_PlainTextPacking(t *testing.T) {
	c := NewDocumentChunker(40, nil)
	doc := core.Document{
		Filepath:    "notes.txt",
		Content:     []byte("first paragraph here\n\nsecond paragraph here\n\nthird one here too"),
		ContentHash: "h",
	}

	chunks := c.Process(context.Background(), doc)
	require.NotEmpty(t, chunks)
	for i, ch := range chunks {
		assert.Equal(t, "notes.txt_chunk_"+strconv.Itoa(i), ch.ID)
	}
}

func TestDocumentChunker_DropsShortChunks(t *testing.T) {
	// A threshold of 5 keeps "ok" and "hi" in separate candidates; packed
	// together they would form the 6-char "ok\n\nhi", which is kept.
	c := NewDocumentChunker(5, nil)
	doc := core.Document{Filepath: "a.txt", Content: []byte("ok\n\nhi"), ContentHash: "h"}
	chunks := c.Process(context.Background(), doc)
	assert.Empty(t, chunks)
}

func TestDocumentChunker_EmptyDocument(t *testing.T) {
	c := NewDocumentChunker(1500, nil)
	doc := core.Document{Filepath: "a.md", Content: []byte(""), ContentHash: "h"}
	assert.Empty(t, c.Process(context.Background(), doc))
}
