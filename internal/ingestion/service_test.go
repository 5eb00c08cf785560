package ingestion

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dbsmedya/dbs-vector/internal/chunking"
	"github.com/dbsmedya/dbs-vector/internal/core"
)

// fakeEmbedder returns a fixed-width zero vector per text, tracking how
// many texts it was ever asked to embed.
type fakeEmbedder struct{ calls int }

func (f *fakeEmbedder) Dimension() int    { return 4 }
func (f *fakeEmbedder) ModelName() string { return "fake" }
func (f *fakeEmbedder) EmbedBatch(_ context.Context, texts []string) ([][]float32, error) {
	f.calls += len(texts)
	out := make([][]float32, len(texts))
	for i := range texts {
		out[i] = make([]float32, 4)
	}
	return out, nil
}
func (f *fakeEmbedder) EmbedQuery(_ context.Context, text string) ([]float32, error) {
	return make([]float32, 4), nil
}

// fakeStore is a minimal in-memory core.VectorStore[core.Chunk, core.Chunk]
// good enough to exercise the ingestion service's dedup/flush contract.
type fakeStore struct {
	hashes map[string]struct{}
	rows   []core.Chunk
	cleared int
}

func newFakeStore() *fakeStore { return &fakeStore{hashes: map[string]struct{}{}} }

func (s *fakeStore) Clear(_ context.Context) error {
	s.cleared++
	s.hashes = map[string]struct{}{}
	s.rows = nil
	return nil
}
func (s *fakeStore) IngestChunks(_ context.Context, rows []core.Chunk, vectors [][]float32) error {
	for _, r := range rows {
		s.hashes[r.ContentHash] = struct{}{}
		s.rows = append(s.rows, r)
	}
	return nil
}
func (s *fakeStore) ExistingHashes(_ context.Context) (map[string]struct{}, error) {
	out := make(map[string]struct{}, len(s.hashes))
	for k := range s.hashes {
		out[k] = struct{}{}
	}
	return out, nil
}
func (s *fakeStore) Compact(_ context.Context) error      { return nil }
func (s *fakeStore) CreateIndices(_ context.Context) error { return nil }
func (s *fakeStore) Search(_ context.Context, _ string, _ []float32, _ core.SearchOptions) ([]core.Chunk, error) {
	return s.rows, nil
}
func (s *fakeStore) Close() error { return nil }

func writeTestCorpus(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "a.md"), []byte("# A\n\nfirst document body here\n"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "b.md"), []byte("# B\n\nsecond document body here\n"), 0o644))
	return dir
}

func TestIngestPath_SecondPassInsertsNothingNew(t *testing.T) {
	dir := writeTestCorpus(t)
	chunker := chunking.NewDocumentChunker(1500, nil)
	embedder := &fakeEmbedder{}
	store := newFakeStore()
	svc := New[core.Chunk, core.Chunk](chunker, embedder, store, 64, nil)

	stats1, err := svc.IngestPath(context.Background(), dir, false)
	require.NoError(t, err)
	assert.Greater(t, stats1.NewChunks, 0)
	assert.Equal(t, 0, stats1.SkippedChunks)

	stats2, err := svc.IngestPath(context.Background(), dir, false)
	require.NoError(t, err)
	assert.Equal(t, 0, stats2.NewChunks)
	assert.Equal(t, stats1.NewChunks, stats2.SkippedChunks)
}

func TestIngestPath_RebuildClearsStoreFirst(t *testing.T) {
	dir := writeTestCorpus(t)
	chunker := chunking.NewDocumentChunker(1500, nil)
	embedder := &fakeEmbedder{}
	store := newFakeStore()
	svc := New[core.Chunk, core.Chunk](chunker, embedder, store, 64, nil)

	_, err := svc.IngestPath(context.Background(), dir, false)
	require.NoError(t, err)

	_, err = svc.IngestPath(context.Background(), dir, true)
	require.NoError(t, err)
	assert.Equal(t, 1, store.cleared)
}

func TestIngestPath_ProgressCallbackFiresPerBatch(t *testing.T) {
	dir := writeTestCorpus(t)
	chunker := chunking.NewDocumentChunker(1500, nil)
	embedder := &fakeEmbedder{}
	store := newFakeStore()
	svc := New[core.Chunk, core.Chunk](chunker, embedder, store, 64, nil)

	total := 0
	svc.WithProgress(func(n int) { total += n })

	stats, err := svc.IngestPath(context.Background(), dir, false)
	require.NoError(t, err)
	assert.Equal(t, stats.NewChunks, total)
}
