// Package search implements the query-side half of an engine: embed the
// query, dispatch a hybrid (vector + full-text) search with optional
// attribute prefilters against the store, and return typed results.
package search

import (
	"context"

	"github.com/dbsmedya/dbs-vector/internal/core"
)

// Options composes one execute_query call's prefilters, mirroring
// core.SearchOptions but expressed as optional pointers at the service
// boundary so CLI/HTTP/MCP callers don't have to juggle Has* booleans.
type Options struct {
	Limit        int
	SourceFilter *string
	MinTime      *float64
}

// Service orchestrates one engine's embedder and store for querying.
type Service[R core.Row, S any] struct {
	embedder core.Embedder
	store    core.VectorStore[R, S]
}

// New builds a Service.
func New[R core.Row, S any](embedder core.Embedder, store core.VectorStore[R, S]) *Service[R, S] {
	return &Service[R, S]{embedder: embedder, store: store}
}

// ExecuteQuery embeds query and fetches the top matches from the store,
// applying whatever prefilters opts carries. Limit defaults to 5 when
// unset.
func (s *Service[R, S]) ExecuteQuery(ctx context.Context, query string, opts Options) ([]S, error) {
	queryVector, err := s.embedder.EmbedQuery(ctx, query)
	if err != nil {
		return nil, err
	}

	limit := opts.Limit
	if limit <= 0 {
		limit = 5
	}

	so := core.SearchOptions{Limit: limit}
	if opts.SourceFilter != nil {
		so.HasSourceFilter = true
		so.SourceFilter = *opts.SourceFilter
	}
	if opts.MinTime != nil {
		so.HasMinTime = true
		so.MinTime = *opts.MinTime
	}

	return s.store.Search(ctx, query, queryVector, so)
}
