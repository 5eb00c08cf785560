package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dbsmedya/dbs-vector/internal/core"
)

func TestLoad_MissingFileUsesDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "does-not-exist.yaml"))
	require.NoError(t, err)
	assert.Equal(t, DefaultConfig().System, cfg.System)
}

func TestLoad_ParsesEnginesSection(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	content := `
system:
  db_path: ./testdb
  batch_size: 32
  nprobes: 10
engines:
  md:
    model_name: test-model
    vector_dimension: 8
    table_name: documents
    mapper_type: document
    chunker_type: document
  sql:
    model_name: test-model-sql
    vector_dimension: 8
    table_name: sql_logs
    mapper_type: sql
    chunker_type: sql
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "./testdb", cfg.System.DBPath)
	assert.Equal(t, 32, cfg.System.BatchSize)
	assert.ElementsMatch(t, []string{"md", "sql"}, cfg.EngineNames())
}

func TestLoad_EnvOverridesScalarFields(t *testing.T) {
	t.Setenv("DBS_DB_PATH", "/tmp/override")
	t.Setenv("DBS_BATCH_SIZE", "99")
	t.Setenv("DBS_LOG_LEVEL", "debug")

	cfg, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	require.NoError(t, err)
	assert.Equal(t, "/tmp/override", cfg.System.DBPath)
	assert.Equal(t, 99, cfg.System.BatchSize)
	assert.Equal(t, "debug", cfg.System.LogLevel)
}

func TestValidate_RejectsBadEngineConfig(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Engines["bad"] = core.EngineConfig{}
	err := cfg.Validate()
	assert.Error(t, err)
}

func TestResolveConfigPath_Precedence(t *testing.T) {
	t.Setenv("DBS_CONFIG_FILE", "env.yaml")
	assert.Equal(t, "flag.yaml", ResolveConfigPath("flag.yaml"))
	assert.Equal(t, "env.yaml", ResolveConfigPath(""))
}
