package cache

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestVectorCache_RoundTrip(t *testing.T) {
	mem := NewMemoryClient(10)
	vc := NewVectorCache(mem)

	key := EmbeddingCacheKey("model-a", "hello world")
	_, ok, err := vc.GetVector(context.Background(), key)
	require.NoError(t, err)
	assert.False(t, ok)

	want := []float32{0.1, -0.2, 3.5}
	require.NoError(t, vc.SetVector(context.Background(), key, want))

	got, ok, err := vc.GetVector(context.Background(), key)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, want, got)
}

func TestVectorCache_NilClientAlwaysMisses(t *testing.T) {
	vc := NewVectorCache(nil)
	_, ok, err := vc.GetVector(context.Background(), "k")
	require.NoError(t, err)
	assert.False(t, ok)
	assert.NoError(t, vc.SetVector(context.Background(), "k", []float32{1, 2}))
}

func TestEmbeddingCacheKey_DistinguishesModels(t *testing.T) {
	a := EmbeddingCacheKey("model-a", "same query")
	b := EmbeddingCacheKey("model-b", "same query")
	assert.NotEqual(t, a, b)
}
