package engine

import (
	"fmt"
	"os"

	"github.com/dbsmedya/dbs-vector/internal/cache"
	"github.com/dbsmedya/dbs-vector/internal/chunking"
	"github.com/dbsmedya/dbs-vector/internal/config"
	"github.com/dbsmedya/dbs-vector/internal/core"
	"github.com/dbsmedya/dbs-vector/internal/embedding"
	"github.com/dbsmedya/dbs-vector/internal/ingestion"
	"github.com/dbsmedya/dbs-vector/internal/observability"
	"github.com/dbsmedya/dbs-vector/internal/search"
	"github.com/dbsmedya/dbs-vector/internal/storage"
)

// buildEmbedder chooses a real OpenRouter-backed Backend when
// OPENROUTER_API_KEY is set, and a deterministic MockClient otherwise —
// the same "works offline, upgrades when a key is present" shape the
// original CLI uses for local development.
func buildEmbedder(ec core.EngineConfig, queryCache *cache.VectorCache) (core.Embedder, error) {
	cfg := embedding.Config{
		ModelName:      ec.ModelName,
		MaxTokenLength: ec.MaxTokenLength,
		PassagePrefix:  ec.PassagePrefix,
		QueryPrefix:    ec.QueryPrefix,
	}

	build := func() (embedding.Backend, error) {
		if apiKey := os.Getenv("OPENROUTER_API_KEY"); apiKey != "" {
			return embedding.NewClient(embedding.ClientConfig{
				APIKey:    apiKey,
				Model:     ec.ModelName,
				Dimension: ec.VectorDimension,
			})
		}
		return embedding.NewMockClient(ec.ModelName, ec.VectorDimension), nil
	}

	return embedding.NewModelEmbedder(cfg, build, queryCache)
}

// Build constructs one engine's full (chunker, embedder, mapper, store,
// ingestion, search) tuple from its configuration, resolving its
// component kind from ec.MapperType.
func Build(sys config.SystemConfig, name string, ec core.EngineConfig, log *observability.Logger, queryCache *cache.VectorCache) (*Instance, error) {
	kind, err := core.ResolveComponentKind(ec.MapperType)
	if err != nil {
		return nil, err
	}

	embedder, err := buildEmbedder(ec, queryCache)
	if err != nil {
		return nil, err
	}

	dbPath := sys.DBPath
	engineLog := log.WithEngine(name)

	switch kind {
	case core.ComponentDocument:
		mapper := storage.NewDocumentMapper(ec.VectorDimension)
		store, err := storage.NewArrowStore[core.Chunk, core.SearchResult](dbPath, ec.TableName, ec.VectorDimension, ec.Workflow, sys.NProbes, mapper, engineLog)
		if err != nil {
			return nil, err
		}
		chunker := chunking.NewDocumentChunker(ec.ChunkMaxChars, engineLog)
		ingestSvc := ingestion.New[core.Chunk, core.SearchResult](chunker, embedder, store, sys.BatchSize, engineLog)
		searchSvc := search.New[core.Chunk, core.SearchResult](embedder, store)
		return &Instance{
			Name: name,
			Kind: kind,
			Document: &DocumentEngine{
				name:      name,
				modelName: ec.ModelName,
				ingest:    ingestSvc,
				search:    searchSvc,
				store:     store,
			},
		}, nil

	case core.ComponentSQL:
		mapper := storage.NewSqlMapper(ec.VectorDimension)
		store, err := storage.NewArrowStore[core.SqlChunk, core.SqlSearchResult](dbPath, ec.TableName, ec.VectorDimension, ec.Workflow, sys.NProbes, mapper, engineLog)
		if err != nil {
			return nil, err
		}
		chunker := chunking.NewSqlChunker(engineLog)
		ingestSvc := ingestion.New[core.SqlChunk, core.SqlSearchResult](chunker, embedder, store, sys.BatchSize, engineLog)
		searchSvc := search.New[core.SqlChunk, core.SqlSearchResult](embedder, store)
		return &Instance{
			Name: name,
			Kind: kind,
			SQL: &SQLEngine{
				name:      name,
				modelName: ec.ModelName,
				ingest:    ingestSvc,
				search:    searchSvc,
				store:     store,
			},
		}, nil

	default:
		return nil, &core.UnknownComponentError{Tag: ec.MapperType}
	}
}

// Registry holds every configured engine, keyed by its tag, built eagerly
// at HTTP/MCP startup.
type Registry struct {
	Engines map[string]*Instance
}

// Get returns the named engine, or an error if it isn't configured.
func (r *Registry) Get(name string) (*Instance, error) {
	inst, ok := r.Engines[name]
	if !ok {
		return nil, fmt.Errorf("engine %q is not configured", name)
	}
	return inst, nil
}

// Close releases every engine's store handle.
func (r *Registry) Close() error {
	var firstErr error
	for _, inst := range r.Engines {
		if err := inst.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}

// BuildAll eagerly builds every configured engine, failing hard (and
// returning the first error) if any single engine cannot be built —
// HTTP and MCP servers refuse to start with a partially loaded engine
// set.
func BuildAll(cfg *config.Config, log *observability.Logger, queryCache *cache.VectorCache) (*Registry, error) {
	reg := &Registry{Engines: make(map[string]*Instance, len(cfg.Engines))}
	for name, ec := range cfg.Engines {
		log.Info().Str("engine", name).Msg("Loading Engine (" + name + ")...")
		inst, err := Build(cfg.System, name, ec, log, queryCache)
		if err != nil {
			return nil, fmt.Errorf("loading engine %q: %w", name, err)
		}
		reg.Engines[name] = inst
	}
	return reg, nil
}
