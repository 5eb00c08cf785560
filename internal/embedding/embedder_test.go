package embedding

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dbsmedya/dbs-vector/internal/cache"
)

func newTestEmbedder(t *testing.T, modelName string) *ModelEmbedder {
	t.Helper()
	e, err := NewModelEmbedder(Config{
		ModelName:      modelName,
		MaxTokenLength: 0,
		PassagePrefix:  "passage: ",
		QueryPrefix:    "query: ",
	}, func() (Backend, error) {
		return NewMockClient(modelName, 16), nil
	}, cache.NewVectorCache(cache.NewMemoryClient(10)))
	require.NoError(t, err)
	return e
}

func TestModelEmbedder_EmbedBatchEmptyShortCircuits(t *testing.T) {
	e := newTestEmbedder(t, "test-model-a")
	out, err := e.EmbedBatch(context.Background(), nil)
	require.NoError(t, err)
	assert.Len(t, out, 0)
}

func TestModelEmbedder_EmbedQueryRejectsEmpty(t *testing.T) {
	e := newTestEmbedder(t, "test-model-b")
	_, err := e.EmbedQuery(context.Background(), "   ")
	assert.Error(t, err)
}

func TestModelEmbedder_EmbedQueryShape(t *testing.T) {
	e := newTestEmbedder(t, "test-model-c")
	v, err := e.EmbedQuery(context.Background(), "hello")
	require.NoError(t, err)
	assert.Len(t, v, e.Dimension())
}

func TestModelEmbedder_ModelCacheIsSharedByName(t *testing.T) {
	built := 0
	build := func() (Backend, error) {
		built++
		return NewMockClient("shared-model", 8), nil
	}
	_, err := NewModelEmbedder(Config{ModelName: "shared-model"}, build, nil)
	require.NoError(t, err)
	_, err = NewModelEmbedder(Config{ModelName: "shared-model"}, build, nil)
	require.NoError(t, err)
	assert.Equal(t, 1, built, "build must run at most once per model name")
}

func TestModelEmbedder_EmbedQueryCacheHit(t *testing.T) {
	e := newTestEmbedder(t, "test-model-d")
	v1, err := e.EmbedQuery(context.Background(), "cached query")
	require.NoError(t, err)
	v2, err := e.EmbedQuery(context.Background(), "cached query")
	require.NoError(t, err)
	assert.Equal(t, v1, v2)
}
