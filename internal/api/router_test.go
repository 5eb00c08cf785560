package api

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dbsmedya/dbs-vector/internal/cache"
	"github.com/dbsmedya/dbs-vector/internal/config"
	"github.com/dbsmedya/dbs-vector/internal/core"
	"github.com/dbsmedya/dbs-vector/internal/engine"
	"github.com/dbsmedya/dbs-vector/internal/observability"
)

func testRegistry(t *testing.T) *engine.Registry {
	t.Helper()
	os.Unsetenv("OPENROUTER_API_KEY")
	cfg := &config.Config{
		System: config.SystemConfig{DBPath: t.TempDir(), BatchSize: 8, NProbes: 4},
		Engines: map[string]core.EngineConfig{
			"md": {
				ModelName: "mock-doc", VectorDimension: 8, TableName: "documents",
				MapperType: "document", ChunkerType: "document",
			},
			"sql": {
				ModelName: "mock-sql", VectorDimension: 8, TableName: "sql_logs",
				MapperType: "sql", ChunkerType: "sql",
			},
		},
	}
	reg, err := engine.BuildAll(cfg, observability.NewFromSystemConfig("error", false), cache.NewVectorCache(nil))
	require.NoError(t, err)
	t.Cleanup(func() { _ = reg.Close() })
	return reg
}

func TestHealthHandler_ReportsEachEngineModel(t *testing.T) {
	reg := testRegistry(t)
	router := NewRouter(observability.NewFromSystemConfig("error", false), &config.Config{}, reg)

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	var body map[string]string
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Equal(t, "healthy", body["status"])
	assert.Equal(t, "mock-doc", body["md_model"])
	assert.Equal(t, "mock-sql", body["sql_model"])
}

func TestHealthHandler_UninitializedRegistryReturns503(t *testing.T) {
	router := NewRouter(observability.NewFromSystemConfig("error", false), &config.Config{}, &engine.Registry{Engines: map[string]*engine.Instance{}})

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
}

func TestSearchDocumentsHandler_EmptyQueryReturns422(t *testing.T) {
	reg := testRegistry(t)
	router := NewRouter(observability.NewFromSystemConfig("error", false), &config.Config{}, reg)

	body, _ := json.Marshal(map[string]any{"query": "   "})
	req := httptest.NewRequest(http.MethodPost, "/search/md", bytes.NewReader(body))
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusUnprocessableEntity, w.Code)
}

func TestSearchDocumentsHandler_OutOfRangeLimitReturns422(t *testing.T) {
	reg := testRegistry(t)
	router := NewRouter(observability.NewFromSystemConfig("error", false), &config.Config{}, reg)

	body, _ := json.Marshal(map[string]any{"query": "hello", "limit": 101})
	req := httptest.NewRequest(http.MethodPost, "/search/md", bytes.NewReader(body))
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusUnprocessableEntity, w.Code)
}

func TestSearchDocumentsHandler_DefaultLimitSucceedsOnEmptyStore(t *testing.T) {
	reg := testRegistry(t)
	router := NewRouter(observability.NewFromSystemConfig("error", false), &config.Config{}, reg)

	body, _ := json.Marshal(map[string]any{"query": "hello"})
	req := httptest.NewRequest(http.MethodPost, "/search/md", bytes.NewReader(body))
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	var resp map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, "hello", resp["query"])
}

func TestSearchSqlHandler_MissingEngineReturns503(t *testing.T) {
	cfg := &config.Config{
		System: config.SystemConfig{DBPath: t.TempDir(), BatchSize: 8, NProbes: 4},
		Engines: map[string]core.EngineConfig{
			"md": {ModelName: "mock-doc", VectorDimension: 8, TableName: "documents", MapperType: "document", ChunkerType: "document"},
		},
	}
	reg, err := engine.BuildAll(cfg, observability.NewFromSystemConfig("error", false), cache.NewVectorCache(nil))
	require.NoError(t, err)
	t.Cleanup(func() { _ = reg.Close() })

	router := NewRouter(observability.NewFromSystemConfig("error", false), &config.Config{}, reg)

	body, _ := json.Marshal(map[string]any{"query": "hello"})
	req := httptest.NewRequest(http.MethodPost, "/search/sql", bytes.NewReader(body))
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
}
