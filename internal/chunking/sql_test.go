package chunking

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dbsmedya/dbs-vector/internal/core"
)

func TestSqlChunker_FieldFallbacks(t *testing.T) {
	c := NewSqlChunker(nil)
	content := `[{"query":"SELECT 1","normalized_query":"SELECT ?","duration":123.4,"calls":7,"database":"db1"}]`
	doc := core.Document{Filepath: "q.json", Content: []byte(content), ContentHash: "h"}

	chunks := c.Process(context.Background(), doc)
	require.Len(t, chunks, 1)
	ch := chunks[0]
	assert.Equal(t, "SELECT ?", ch.Text)
	assert.Equal(t, "SELECT 1", ch.RawQuery)
	assert.Equal(t, "db1", ch.Source)
	assert.Equal(t, 123.4, ch.ExecutionTimeMs)
	assert.EqualValues(t, 7, ch.Calls)
}

func TestSqlChunker_DefaultsWhenFieldsMissing(t *testing.T) {
	c := NewSqlChunker(nil)
	content := `[{"query":"SELECT 2"}]`
	doc := core.Document{Filepath: "q.json", Content: []byte(content), ContentHash: "h"}

	chunks := c.Process(context.Background(), doc)
	require.Len(t, chunks, 1)
	ch := chunks[0]
	assert.Equal(t, "SELECT 2", ch.Text)
	assert.Equal(t, "unknown", ch.Source)
	assert.Equal(t, 0.0, ch.ExecutionTimeMs)
	assert.EqualValues(t, 1, ch.Calls)
	assert.NotEmpty(t, ch.ID)
}

func TestSqlChunker_SkipsEmptyNormalizedQuery(t *testing.T) {
	c := NewSqlChunker(nil)
	content := `[{"query":"   "}]`
	doc := core.Document{Filepath: "q.json", Content: []byte(content), ContentHash: "h"}
	assert.Empty(t, c.Process(context.Background(), doc))
}

func TestSqlChunker_NonArrayContentYieldsNoChunks(t *testing.T) {
	c := NewSqlChunker(nil)
	doc := core.Document{Filepath: "q.json", Content: []byte(`{"not": "an array"}`), ContentHash: "h"}
	assert.Empty(t, c.Process(context.Background(), doc))
}
