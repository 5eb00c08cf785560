package search

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dbsmedya/dbs-vector/internal/core"
)

type fakeEmbedder struct {
	lastQuery string
	err       error
}

func (f *fakeEmbedder) Dimension() int    { return 3 }
func (f *fakeEmbedder) ModelName() string { return "fake" }
func (f *fakeEmbedder) EmbedBatch(_ context.Context, texts []string) ([][]float32, error) {
	return nil, nil
}
func (f *fakeEmbedder) EmbedQuery(_ context.Context, text string) ([]float32, error) {
	f.lastQuery = text
	if f.err != nil {
		return nil, f.err
	}
	return []float32{1, 2, 3}, nil
}

type fakeStore struct {
	lastOpts core.SearchOptions
	results  []core.Chunk
}

func (s *fakeStore) Clear(_ context.Context) error                             { return nil }
func (s *fakeStore) IngestChunks(_ context.Context, _ []core.Chunk, _ [][]float32) error { return nil }
func (s *fakeStore) ExistingHashes(_ context.Context) (map[string]struct{}, error) {
	return nil, nil
}
func (s *fakeStore) Compact(_ context.Context) error      { return nil }
func (s *fakeStore) CreateIndices(_ context.Context) error { return nil }
func (s *fakeStore) Close() error                         { return nil }
func (s *fakeStore) Search(_ context.Context, _ string, _ []float32, opts core.SearchOptions) ([]core.Chunk, error) {
	s.lastOpts = opts
	return s.results, nil
}

func TestExecuteQuery_DefaultsLimitToFive(t *testing.T) {
	embedder := &fakeEmbedder{}
	store := &fakeStore{results: []core.Chunk{{ID: "1"}}}
	svc := New[core.Chunk, core.Chunk](embedder, store)

	results, err := svc.ExecuteQuery(context.Background(), "find me", Options{})
	require.NoError(t, err)
	assert.Len(t, results, 1)
	assert.Equal(t, 5, store.lastOpts.Limit)
	assert.False(t, store.lastOpts.HasSourceFilter)
	assert.False(t, store.lastOpts.HasMinTime)
}

func TestExecuteQuery_PropagatesFilters(t *testing.T) {
	embedder := &fakeEmbedder{}
	store := &fakeStore{}
	svc := New[core.Chunk, core.Chunk](embedder, store)

	source := "db.log"
	minTime := 12.5
	_, err := svc.ExecuteQuery(context.Background(), "q", Options{Limit: 10, SourceFilter: &source, MinTime: &minTime})
	require.NoError(t, err)
	assert.Equal(t, 10, store.lastOpts.Limit)
	assert.True(t, store.lastOpts.HasSourceFilter)
	assert.Equal(t, "db.log", store.lastOpts.SourceFilter)
	assert.True(t, store.lastOpts.HasMinTime)
	assert.Equal(t, 12.5, store.lastOpts.MinTime)
}

func TestExecuteQuery_PropagatesEmbedError(t *testing.T) {
	embedder := &fakeEmbedder{err: assert.AnError}
	store := &fakeStore{}
	svc := New[core.Chunk, core.Chunk](embedder, store)

	_, err := svc.ExecuteQuery(context.Background(), "q", Options{})
	assert.Error(t, err)
}
