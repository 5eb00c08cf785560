package storage

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCosineIndex_RanksBySimilarity(t *testing.T) {
	idx := newCosineIndex(2)
	idx.Upsert("a", []float32{1, 0})
	idx.Upsert("b", []float32{0, 1})
	idx.Upsert("c", []float32{0.9, 0.1})

	hits := idx.Search([]float32{1, 0}, 3, nil)
	require.Len(t, hits, 3)
	assert.Equal(t, "a", hits[0].id)
	assert.InDelta(t, 0, hits[0].distance, 1e-6)
	assert.Equal(t, "b", hits[len(hits)-1].id)
}

func TestCosineIndex_RespectsAllowedSet(t *testing.T) {
	idx := newCosineIndex(2)
	idx.Upsert("a", []float32{1, 0})
	idx.Upsert("b", []float32{1, 0})

	hits := idx.Search([]float32{1, 0}, 5, map[string]struct{}{"b": {}})
	require.Len(t, hits, 1)
	assert.Equal(t, "b", hits[0].id)
}

func TestCosineIndex_ResetClearsState(t *testing.T) {
	idx := newCosineIndex(2)
	idx.Upsert("a", []float32{1, 0})
	idx.Reset()
	assert.Equal(t, 0, idx.Len())
}
