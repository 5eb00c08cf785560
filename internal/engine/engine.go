// Package engine wires one configured engine tag to a concrete
// (chunker, embedder, mapper, store) tuple and exposes it as an Instance
// — a tagged union over the document and SQL engine kinds, per the
// "prefer a tagged union over inheritance" design note — so the CLI,
// HTTP, and MCP front ends can ingest/search without caring which kind
// they're holding except when they render a result.
package engine

import (
	"context"

	"github.com/dbsmedya/dbs-vector/internal/core"
	"github.com/dbsmedya/dbs-vector/internal/ingestion"
	"github.com/dbsmedya/dbs-vector/internal/search"
)

// DocumentEngine is the (chunker, embedder, mapper, store) tuple for a
// "document" (prose/Markdown) engine.
type DocumentEngine struct {
	name      string
	modelName string
	ingest    *ingestion.Service[core.Chunk, core.SearchResult]
	search    *search.Service[core.Chunk, core.SearchResult]
	store     core.VectorStore[core.Chunk, core.SearchResult]
}

func (e *DocumentEngine) Name() string      { return e.name }
func (e *DocumentEngine) ModelName() string { return e.modelName }

func (e *DocumentEngine) Ingest(ctx context.Context, path string, rebuild bool) (ingestion.Stats, error) {
	return e.ingest.IngestPath(ctx, path, rebuild)
}

func (e *DocumentEngine) IngestWithProgress(ctx context.Context, path string, rebuild bool, onBatch func(int)) (ingestion.Stats, error) {
	return e.ingest.WithProgress(onBatch).IngestPath(ctx, path, rebuild)
}

func (e *DocumentEngine) Search(ctx context.Context, query string, opts search.Options) ([]core.SearchResult, error) {
	return e.search.ExecuteQuery(ctx, query, opts)
}

// SQLEngine is the (chunker, embedder, mapper, store) tuple for a "sql"
// (query-log) engine.
type SQLEngine struct {
	name      string
	modelName string
	ingest    *ingestion.Service[core.SqlChunk, core.SqlSearchResult]
	search    *search.Service[core.SqlChunk, core.SqlSearchResult]
	store     core.VectorStore[core.SqlChunk, core.SqlSearchResult]
}

func (e *SQLEngine) Name() string      { return e.name }
func (e *SQLEngine) ModelName() string { return e.modelName }

func (e *SQLEngine) Ingest(ctx context.Context, path string, rebuild bool) (ingestion.Stats, error) {
	return e.ingest.IngestPath(ctx, path, rebuild)
}

func (e *SQLEngine) IngestWithProgress(ctx context.Context, path string, rebuild bool, onBatch func(int)) (ingestion.Stats, error) {
	return e.ingest.WithProgress(onBatch).IngestPath(ctx, path, rebuild)
}

func (e *SQLEngine) Search(ctx context.Context, query string, opts search.Options) ([]core.SqlSearchResult, error) {
	return e.search.ExecuteQuery(ctx, query, opts)
}

// Instance is the tagged-union handle Build returns: exactly one of
// Document/SQL is non-nil, selected by Kind.
type Instance struct {
	Name     string
	Kind     core.ComponentKind
	Document *DocumentEngine
	SQL      *SQLEngine
}

// ModelName returns the underlying engine's configured model name,
// regardless of kind — used for the HTTP /health payload.
func (i *Instance) ModelName() string {
	if i.Document != nil {
		return i.Document.ModelName()
	}
	return i.SQL.ModelName()
}

// Ingest dispatches to the underlying engine's Ingest.
func (i *Instance) Ingest(ctx context.Context, path string, rebuild bool) (ingestion.Stats, error) {
	if i.Document != nil {
		return i.Document.Ingest(ctx, path, rebuild)
	}
	return i.SQL.Ingest(ctx, path, rebuild)
}

// IngestWithProgress dispatches to the underlying engine's
// IngestWithProgress, invoking onBatch once per flushed batch that
// inserted new chunks.
func (i *Instance) IngestWithProgress(ctx context.Context, path string, rebuild bool, onBatch func(int)) (ingestion.Stats, error) {
	if i.Document != nil {
		return i.Document.IngestWithProgress(ctx, path, rebuild, onBatch)
	}
	return i.SQL.IngestWithProgress(ctx, path, rebuild, onBatch)
}

// Close releases the underlying store handle.
func (i *Instance) Close() error {
	if i.Document != nil {
		return i.Document.store.Close()
	}
	return i.SQL.store.Close()
}
