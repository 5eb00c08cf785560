// Package chunking implements the two chunker variants: a CommonMark-aware
// prose/Markdown chunker and a SQL query-log JSON chunker.
package chunking

import (
	"context"
	"fmt"
	"strings"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/text"

	"github.com/dbsmedya/dbs-vector/internal/core"
	"github.com/dbsmedya/dbs-vector/internal/observability"
)

const minChunkChars = 5

const defaultMaxChars = 1500

// DocumentChunker splits Markdown documents into chunks along top-level
// block boundaries (fenced code blocks are emitted atomically) and splits
// plain text documents on blank lines, greedily packing paragraphs up to
// MaxChars.
type DocumentChunker struct {
	MaxChars int
	log      *observability.Logger
}

// NewDocumentChunker builds a chunker. maxChars <= 0 selects the default
// threshold, matching the original's conditional-kwarg behavior: a zero
// or unset chunk_max_chars leaves the chunker's own default in place.
func NewDocumentChunker(maxChars int, log *observability.Logger) *DocumentChunker {
	if maxChars <= 0 {
		maxChars = defaultMaxChars
	}
	return &DocumentChunker{MaxChars: maxChars, log: log}
}

func (c *DocumentChunker) SupportedExtensions() []string { return []string{".md", ".txt"} }

func (c *DocumentChunker) Process(_ context.Context, doc core.Document) []core.Chunk {
	var texts []string
	if strings.HasSuffix(strings.ToLower(doc.Filepath), ".md") {
		texts = c.chunkMarkdown(doc.Content)
	} else {
		texts = chunkPlainText(string(doc.Content), c.MaxChars)
	}

	chunks := make([]core.Chunk, 0, len(texts))
	ordinal := 0
	for _, t := range texts {
		trimmed := strings.TrimSpace(t)
		if len(trimmed) < minChunkChars {
			continue
		}
		chunks = append(chunks, core.Chunk{
			ID:          fmt.Sprintf("%s_chunk_%d", doc.Filepath, ordinal),
			Text:        trimmed,
			Source:      doc.Filepath,
			ContentHash: doc.ContentHash,
		})
		ordinal++
	}
	return chunks
}

func (c *DocumentChunker) chunkMarkdown(content []byte) []string {
	defer func() {
		if r := recover(); r != nil && c.log != nil {
			c.log.Warn().Interface("panic", r).Msg("document chunker: markdown parse failed, treating as empty")
		}
	}()

	md := goldmark.New()
	root := md.Parser().Parse(text.NewReader(content))

	var out []string
	var buf strings.Builder

	flush := func() {
		if buf.Len() == 0 {
			return
		}
		out = append(out, buf.String())
		buf.Reset()
	}

	for n := root.FirstChild(); n != nil; n = n.NextSibling() {
		lines := n.Lines()
		if lines == nil || lines.Len() == 0 {
			continue
		}
		block := blockSource(content, lines)
		if block == "" {
			continue
		}

		if n.Kind() == ast.KindFencedCodeBlock {
			flush()
			out = append(out, block)
			continue
		}

		if buf.Len() > 0 && buf.Len()+2+len(block) > c.MaxChars {
			flush()
		}
		if buf.Len() > 0 {
			buf.WriteString("\n\n")
		}
		buf.WriteString(block)
	}
	flush()
	return out
}

func blockSource(content []byte, lines *text.Segments) string {
	var b strings.Builder
	for i := 0; i < lines.Len(); i++ {
		seg := lines.At(i)
		b.Write(seg.Value(content))
	}
	return strings.TrimRight(b.String(), "\n")
}

func chunkPlainText(content string, maxChars int) []string {
	paragraphs := strings.Split(content, "\n\n")
	var out []string
	var buf strings.Builder

	flush := func() {
		if buf.Len() == 0 {
			return
		}
		out = append(out, buf.String())
		buf.Reset()
	}

	for _, p := range paragraphs {
		p = strings.TrimSpace(p)
		if p == "" {
			continue
		}
		if buf.Len() > 0 && buf.Len()+2+len(p) > maxChars {
			flush()
		}
		if buf.Len() > 0 {
			buf.WriteString("\n\n")
		}
		buf.WriteString(p)
	}
	flush()
	return out
}

var _ core.Chunker[core.Chunk] = (*DocumentChunker)(nil)
