package embedding

import (
	"context"
	"strings"
	"sync"

	"github.com/dbsmedya/dbs-vector/internal/cache"
	"github.com/dbsmedya/dbs-vector/internal/core"
)

// modelEntry is the process-wide shared state for one model_name: the
// loaded Backend plus the mutex that serializes inference calls into it.
// Tokenization/prefixing may happen outside the lock.
type modelEntry struct {
	backend Backend
	mu      sync.Mutex
}

var (
	modelCacheMu sync.Mutex
	modelCache   = map[string]*modelEntry{}
)

// loadModel returns the shared entry for modelName, building it at most
// once per process via build.
func loadModel(modelName string, build func() (Backend, error)) (*modelEntry, error) {
	modelCacheMu.Lock()
	defer modelCacheMu.Unlock()

	if e, ok := modelCache[modelName]; ok {
		return e, nil
	}
	backend, err := build()
	if err != nil {
		return nil, err
	}
	e := &modelEntry{backend: backend}
	modelCache[modelName] = e
	return e, nil
}

// Config configures a ModelEmbedder.
type Config struct {
	ModelName      string
	MaxTokenLength int
	PassagePrefix  string
	QueryPrefix    string
}

// ModelEmbedder implements core.Embedder on top of a Backend, adding:
// passage/query prefixes, truncation to MaxTokenLength, the process-wide
// "load once per model_name" cache with a per-model inference lock, and
// (optionally) a cross-process cache of embed_query results.
type ModelEmbedder struct {
	cfg        Config
	entry      *modelEntry
	queryCache *cache.VectorCache
}

// NewModelEmbedder builds a ModelEmbedder. build is invoked at most once
// per distinct cfg.ModelName across the process. queryCache may be nil
// (cache.NewVectorCache(nil) also works and is equivalent).
func NewModelEmbedder(cfg Config, build func() (Backend, error), queryCache *cache.VectorCache) (*ModelEmbedder, error) {
	entry, err := loadModel(cfg.ModelName, build)
	if err != nil {
		return nil, &core.InferenceError{Cause: err}
	}
	if queryCache == nil {
		queryCache = cache.NewVectorCache(nil)
	}
	return &ModelEmbedder{cfg: cfg, entry: entry, queryCache: queryCache}, nil
}

func (m *ModelEmbedder) Dimension() int    { return m.entry.backend.Dimension() }
func (m *ModelEmbedder) ModelName() string { return m.cfg.ModelName }

// truncate approximates the tokenizer's max_token_length budget by rune
// count. The actual tokenizer lives inside the on-device runtime this
// wraps; this is a conservative stand-in so oversized inputs are never
// silently sent through in full.
func (m *ModelEmbedder) truncate(s string) string {
	if m.cfg.MaxTokenLength <= 0 {
		return s
	}
	r := []rune(s)
	if len(r) <= m.cfg.MaxTokenLength {
		return s
	}
	return string(r[:m.cfg.MaxTokenLength])
}

// EmbedBatch returns an empty, non-nil 0xD matrix for empty input without
// invoking the backend.
func (m *ModelEmbedder) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return [][]float32{}, nil
	}

	prefixed := make([]string, len(texts))
	for i, t := range texts {
		prefixed[i] = m.truncate(m.cfg.PassagePrefix + t)
	}

	m.entry.mu.Lock()
	vectors, err := m.entry.backend.Embed(ctx, prefixed)
	m.entry.mu.Unlock()
	if err != nil {
		return nil, &core.InferenceError{Cause: err}
	}
	return vectors, nil
}

// EmbedQuery rejects empty/whitespace input and asserts the returned
// vector has shape (D,).
func (m *ModelEmbedder) EmbedQuery(ctx context.Context, text string) ([]float32, error) {
	if strings.TrimSpace(text) == "" {
		return nil, &core.ValidationError{Msg: "query text must not be empty"}
	}

	key := cache.EmbeddingCacheKey(m.cfg.ModelName, text)
	if vec, ok, err := m.queryCache.GetVector(ctx, key); err == nil && ok {
		return vec, nil
	}

	prefixed := m.truncate(m.cfg.QueryPrefix + text)

	m.entry.mu.Lock()
	vectors, err := m.entry.backend.Embed(ctx, []string{prefixed})
	m.entry.mu.Unlock()
	if err != nil {
		return nil, &core.InferenceError{Cause: err}
	}

	d := m.entry.backend.Dimension()
	if len(vectors) != 1 || len(vectors[0]) != d {
		return nil, &core.ShapeMismatchError{Expected: d, Got: firstWidth(vectors)}
	}

	_ = m.queryCache.SetVector(ctx, key, vectors[0])
	return vectors[0], nil
}

func firstWidth(vectors [][]float32) int {
	if len(vectors) == 0 {
		return 0
	}
	return len(vectors[0])
}

var _ core.Embedder = (*ModelEmbedder)(nil)
