// Package storage implements the Arrow-native vector store: per-engine
// schema mappers that own the columnar encoding contract, a hand-rolled
// cosine vector index and BM25 full-text index layered over an
// Arrow-backed table, and the store itself (see store.go).
package storage

import (
	"fmt"

	"github.com/apache/arrow/go/v17/arrow"
	"github.com/apache/arrow/go/v17/arrow/array"
	"github.com/apache/arrow/go/v17/arrow/memory"

	"github.com/dbsmedya/dbs-vector/internal/core"
)

// vectorFieldType returns the fixed-size-list<float32, D> Arrow type for
// a D-dimensional embedding column.
func vectorFieldType(dimension int) arrow.DataType {
	return arrow.FixedSizeListOf(int32(dimension), arrow.PrimitiveTypes.Float32)
}

// --- Document engine -------------------------------------------------

// DocumentMapper owns the columnar contract for the prose/Markdown
// engine: id, vector, text, source, content_hash, workflow, and three
// optional AST-derived fields.
type DocumentMapper struct {
	Dimension int
}

func NewDocumentMapper(dimension int) *DocumentMapper {
	return &DocumentMapper{Dimension: dimension}
}

func (m *DocumentMapper) ColumnNames() []string {
	return []string{"id", "vector", "text", "source", "content_hash", "workflow", "node_type", "parent_scope", "line_range"}
}

func (m *DocumentMapper) Schema() *arrow.Schema {
	return arrow.NewSchema([]arrow.Field{
		{Name: "id", Type: arrow.BinaryTypes.String},
		{Name: "vector", Type: vectorFieldType(m.Dimension)},
		{Name: "text", Type: arrow.BinaryTypes.String},
		{Name: "source", Type: arrow.BinaryTypes.String},
		{Name: "content_hash", Type: arrow.BinaryTypes.String},
		{Name: "workflow", Type: arrow.BinaryTypes.String},
		{Name: "node_type", Type: arrow.BinaryTypes.String, Nullable: true},
		{Name: "parent_scope", Type: arrow.BinaryTypes.String, Nullable: true},
		{Name: "line_range", Type: arrow.BinaryTypes.String, Nullable: true},
	}, nil)
}

func (m *DocumentMapper) ToRecordBatch(rows []core.Chunk, vectors [][]float32, workflow string) (any, error) {
	if len(rows) != len(vectors) {
		return nil, fmt.Errorf("document mapper: %d rows but %d vectors", len(rows), len(vectors))
	}
	pool := memory.NewGoAllocator()
	schema := m.Schema()
	bldr := array.NewRecordBuilder(pool, schema)
	defer bldr.Release()

	idB := bldr.Field(0).(*array.StringBuilder)
	vecB := bldr.Field(1).(*array.FixedSizeListBuilder)
	vecChildB := vecB.ValueBuilder().(*array.Float32Builder)
	textB := bldr.Field(2).(*array.StringBuilder)
	sourceB := bldr.Field(3).(*array.StringBuilder)
	hashB := bldr.Field(4).(*array.StringBuilder)
	workflowB := bldr.Field(5).(*array.StringBuilder)
	nodeTypeB := bldr.Field(6).(*array.StringBuilder)
	parentScopeB := bldr.Field(7).(*array.StringBuilder)
	lineRangeB := bldr.Field(8).(*array.StringBuilder)

	for i, row := range rows {
		if len(vectors[i]) != m.Dimension {
			return nil, fmt.Errorf("document mapper: row %d has vector width %d, want %d", i, len(vectors[i]), m.Dimension)
		}
		idB.Append(row.ID)
		vecB.Append(true)
		for _, f := range vectors[i] {
			vecChildB.Append(f)
		}
		textB.Append(row.Text)
		sourceB.Append(row.Source)
		hashB.Append(row.ContentHash)
		workflowB.Append(workflow)
		appendNullableString(nodeTypeB, row.NodeType)
		appendNullableString(parentScopeB, row.ParentScope)
		appendNullableString(lineRangeB, row.LineRange)
	}

	rec := bldr.NewRecord()
	return rec, nil
}

func (m *DocumentMapper) FromRow(row core.RowView, score *float32) (core.SearchResult, error) {
	chunk := core.Chunk{
		ID:          row.String("id"),
		Text:        row.String("text"),
		Source:      row.String("source"),
		ContentHash: row.String("content_hash"),
		NodeType:    row.String("node_type"),
		ParentScope: row.String("parent_scope"),
		LineRange:   row.String("line_range"),
	}
	return core.SearchResult{
		Chunk:      chunk,
		Distance:   score,
		Score:      score,
		IsFTSMatch: score == nil,
	}, nil
}

func appendNullableString(b *array.StringBuilder, v string) {
	if v == "" {
		b.AppendNull()
		return
	}
	b.Append(v)
}

// --- SQL engine --------------------------------------------------------

// SqlMapper owns the columnar contract for the SQL query-log engine.
type SqlMapper struct {
	Dimension int
}

func NewSqlMapper(dimension int) *SqlMapper {
	return &SqlMapper{Dimension: dimension}
}

func (m *SqlMapper) ColumnNames() []string {
	return []string{"id", "vector", "text", "raw_query", "source", "execution_time_ms", "calls", "content_hash", "workflow"}
}

func (m *SqlMapper) Schema() *arrow.Schema {
	return arrow.NewSchema([]arrow.Field{
		{Name: "id", Type: arrow.BinaryTypes.String},
		{Name: "vector", Type: vectorFieldType(m.Dimension)},
		{Name: "text", Type: arrow.BinaryTypes.String},
		{Name: "raw_query", Type: arrow.BinaryTypes.String},
		{Name: "source", Type: arrow.BinaryTypes.String},
		{Name: "execution_time_ms", Type: arrow.PrimitiveTypes.Float64},
		{Name: "calls", Type: arrow.PrimitiveTypes.Int64},
		{Name: "content_hash", Type: arrow.BinaryTypes.String},
		{Name: "workflow", Type: arrow.BinaryTypes.String},
	}, nil)
}

func (m *SqlMapper) ToRecordBatch(rows []core.SqlChunk, vectors [][]float32, workflow string) (any, error) {
	if len(rows) != len(vectors) {
		return nil, fmt.Errorf("sql mapper: %d rows but %d vectors", len(rows), len(vectors))
	}
	pool := memory.NewGoAllocator()
	schema := m.Schema()
	bldr := array.NewRecordBuilder(pool, schema)
	defer bldr.Release()

	idB := bldr.Field(0).(*array.StringBuilder)
	vecB := bldr.Field(1).(*array.FixedSizeListBuilder)
	vecChildB := vecB.ValueBuilder().(*array.Float32Builder)
	textB := bldr.Field(2).(*array.StringBuilder)
	rawB := bldr.Field(3).(*array.StringBuilder)
	sourceB := bldr.Field(4).(*array.StringBuilder)
	execTimeB := bldr.Field(5).(*array.Float64Builder)
	callsB := bldr.Field(6).(*array.Int64Builder)
	hashB := bldr.Field(7).(*array.StringBuilder)
	workflowB := bldr.Field(8).(*array.StringBuilder)

	for i, row := range rows {
		if len(vectors[i]) != m.Dimension {
			return nil, fmt.Errorf("sql mapper: row %d has vector width %d, want %d", i, len(vectors[i]), m.Dimension)
		}
		idB.Append(row.ID)
		vecB.Append(true)
		for _, f := range vectors[i] {
			vecChildB.Append(f)
		}
		textB.Append(row.Text)
		rawB.Append(row.RawQuery)
		sourceB.Append(row.Source)
		execTimeB.Append(row.ExecutionTimeMs)
		callsB.Append(row.Calls)
		hashB.Append(row.ContentHash)
		workflowB.Append(workflow)
	}

	rec := bldr.NewRecord()
	return rec, nil
}

func (m *SqlMapper) FromRow(row core.RowView, score *float32) (core.SqlSearchResult, error) {
	chunk := core.SqlChunk{
		ID:              row.String("id"),
		Text:            row.String("text"),
		RawQuery:        row.String("raw_query"),
		Source:          row.String("source"),
		ExecutionTimeMs: row.Float64("execution_time_ms"),
		Calls:           row.Int64("calls"),
		ContentHash:     row.String("content_hash"),
	}
	return core.SqlSearchResult{
		Chunk:      chunk,
		Distance:   score,
		Score:      score,
		IsFTSMatch: score == nil,
	}, nil
}

var (
	_ core.Mapper[core.Chunk, core.SearchResult]       = (*DocumentMapper)(nil)
	_ core.Mapper[core.SqlChunk, core.SqlSearchResult] = (*SqlMapper)(nil)
)
