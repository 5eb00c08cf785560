package engine

import (
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dbsmedya/dbs-vector/internal/cache"
	"github.com/dbsmedya/dbs-vector/internal/config"
	"github.com/dbsmedya/dbs-vector/internal/core"
	"github.com/dbsmedya/dbs-vector/internal/observability"
)

func testLogger() *observability.Logger {
	return observability.NewFromSystemConfig("error", false)
}

func TestBuild_DocumentEngine(t *testing.T) {
	os.Unsetenv("OPENROUTER_API_KEY")
	sys := config.SystemConfig{DBPath: t.TempDir(), BatchSize: 8, NProbes: 4}
	ec := core.EngineConfig{
		ModelName:       "mock-model",
		VectorDimension: 16,
		TableName:       "documents",
		MapperType:      "document",
		ChunkerType:     "document",
	}

	inst, err := Build(sys, "md", ec, testLogger(), cache.NewVectorCache(nil))
	require.NoError(t, err)
	require.NotNil(t, inst.Document)
	assert.Nil(t, inst.SQL)
	assert.Equal(t, core.ComponentDocument, inst.Kind)
	assert.Equal(t, "mock-model", inst.ModelName())
	assert.NoError(t, inst.Close())
}

func TestBuild_SQLEngine(t *testing.T) {
	os.Unsetenv("OPENROUTER_API_KEY")
	sys := config.SystemConfig{DBPath: t.TempDir(), BatchSize: 8, NProbes: 4}
	ec := core.EngineConfig{
		ModelName:       "mock-model-sql",
		VectorDimension: 16,
		TableName:       "sql_logs",
		MapperType:      "sql",
		ChunkerType:     "sql",
	}

	inst, err := Build(sys, "sql", ec, testLogger(), cache.NewVectorCache(nil))
	require.NoError(t, err)
	require.NotNil(t, inst.SQL)
	assert.Nil(t, inst.Document)
	assert.NoError(t, inst.Close())
}

func TestBuild_UnknownMapperType(t *testing.T) {
	sys := config.SystemConfig{DBPath: t.TempDir(), BatchSize: 8, NProbes: 4}
	ec := core.EngineConfig{ModelName: "m", VectorDimension: 8, TableName: "t", MapperType: "bogus"}

	_, err := Build(sys, "bogus", ec, testLogger(), cache.NewVectorCache(nil))
	assert.Error(t, err)
}

func TestBuildAll_AllEnginesSucceed(t *testing.T) {
	os.Unsetenv("OPENROUTER_API_KEY")
	cfg := &config.Config{
		System: config.SystemConfig{DBPath: t.TempDir(), BatchSize: 8, NProbes: 4},
		Engines: map[string]core.EngineConfig{
			"md": {
				ModelName: "m", VectorDimension: 8, TableName: "documents",
				MapperType: "document", ChunkerType: "document",
			},
		},
	}

	reg, err := BuildAll(cfg, testLogger(), cache.NewVectorCache(nil))
	require.NoError(t, err)
	inst, err := reg.Get("md")
	require.NoError(t, err)
	assert.NotNil(t, inst.Document)
	assert.NoError(t, reg.Close())
}

func TestRegistryGet_UnknownEngineNameFails(t *testing.T) {
	reg := &Registry{Engines: map[string]*Instance{}}
	_, err := reg.Get("missing")
	assert.Error(t, err)
}
