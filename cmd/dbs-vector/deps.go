package main

import (
	"errors"
	"fmt"
	"os"

	"github.com/dbsmedya/dbs-vector/internal/cache"
	"github.com/dbsmedya/dbs-vector/internal/config"
	"github.com/dbsmedya/dbs-vector/internal/core"
	"github.com/dbsmedya/dbs-vector/internal/engine"
	"github.com/dbsmedya/dbs-vector/internal/observability"
)

// loadConfigAndLogger loads config.yaml (or whatever --config-file/-c
// points at) and builds the system logger from its log_level/log_serialize
// settings.
func loadConfigAndLogger() (*config.Config, *observability.Logger, error) {
	path := ""
	if rootCmd.PersistentFlags().Changed("config-file") {
		os.Setenv("DBS_CONFIG_FILE", configFile)
		path = configFile
	}

	cfg, err := config.Load(path)
	if err != nil {
		return nil, nil, fmt.Errorf("load config: %w", err)
	}
	log := observability.NewFromSystemConfig(cfg.System.LogLevel, cfg.System.LogSerialize)
	return cfg, log, nil
}

// newQueryCache builds the embed_query result cache: Redis when REDIS_ADDR
// is set, otherwise an in-memory TTL cache.
func newQueryCache(log *observability.Logger) *cache.VectorCache {
	if addr := os.Getenv("REDIS_ADDR"); addr != "" {
		client, err := cache.NewRedisClient(cache.RedisConfig{Addr: addr})
		if err == nil {
			return cache.NewVectorCache(client)
		}
		log.Warn().Err(err).Msg("failed to connect to redis, falling back to in-memory query cache")
	}
	return cache.NewVectorCache(cache.NewMemoryClient(10000))
}

// buildEngine is the single-engine dependency injection factory the
// ingest/search subcommands drive: it resolves engine_name against
// cfg.Engines and fails with a clear, listable error otherwise.
func buildEngine(cfg *config.Config, log *observability.Logger, queryCache *cache.VectorCache, engineName string) (*engine.Instance, error) {
	ec, ok := cfg.Engines[engineName]
	if !ok {
		return nil, fmt.Errorf("unknown engine type %q. Available: %v", engineName, cfg.EngineNames())
	}

	inst, err := engine.Build(cfg.System, engineName, ec, log, queryCache)
	if err != nil {
		var schemaErr *core.SchemaMismatchError
		if errors.As(err, &schemaErr) {
			fmt.Fprintf(os.Stderr, "\n[!] Database Error: %s\n", schemaErr.Error())
			os.Exit(1)
		}
		return nil, err
	}
	return inst, nil
}

// buildAllEngines is the multi-engine eager-load path used by serve and
// mcp: every configured engine must build successfully or the whole
// process aborts before accepting any requests.
func buildAllEngines(cfg *config.Config, log *observability.Logger, queryCache *cache.VectorCache) (*engine.Registry, error) {
	return engine.BuildAll(cfg, log, queryCache)
}
