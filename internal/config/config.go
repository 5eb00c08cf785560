// Package config provides configuration loading for dbs-vector: a YAML
// file split into a "system" section and an "engines" section, with
// DBS_-prefixed environment variable overrides applied on top, following
// the load/override/validate shape of the teacher's internal/config.
package config

import (
	"fmt"
	"os"
	"strconv"

	"gopkg.in/yaml.v3"

	"github.com/dbsmedya/dbs-vector/internal/core"
)

// SystemConfig holds the process-wide settings shared by every engine.
type SystemConfig struct {
	DBPath       string `yaml:"db_path"`
	BatchSize    int    `yaml:"batch_size"`
	NProbes      int    `yaml:"nprobes"`
	LogLevel     string `yaml:"log_level"`
	LogSerialize bool   `yaml:"log_serialize"`
}

// Config is the full, two-section configuration: system settings plus a
// named map of engine configurations.
type Config struct {
	System  SystemConfig                 `yaml:"system"`
	Engines map[string]core.EngineConfig `yaml:"engines"`
}

// DefaultConfig returns the configuration used when no config.yaml is
// present: an empty engine set and the documented system defaults.
func DefaultConfig() *Config {
	return &Config{
		System: SystemConfig{
			DBPath:       "./lancedb_dbs_vector",
			BatchSize:    64,
			NProbes:      20,
			LogLevel:     "info",
			LogSerialize: false,
		},
		Engines: map[string]core.EngineConfig{},
	}
}

// ResolveConfigPath implements the documented precedence: an explicit
// --config-file flag value, else DBS_CONFIG_FILE, else ./config.yaml.
func ResolveConfigPath(flagValue string) string {
	if flagValue != "" {
		return flagValue
	}
	if v := os.Getenv("DBS_CONFIG_FILE"); v != "" {
		return v
	}
	return "config.yaml"
}

// Load reads configPath (resolved by ResolveConfigPath) if present,
// unmarshals it over DefaultConfig, applies DBS_-prefixed environment
// overrides to the scalar system fields, and validates the result. A
// missing config file is not an error: defaults (plus env overrides)
// are used as-is, matching the original's "file not found, using
// defaults" behavior.
func Load(configPath string) (*Config, error) {
	cfg := DefaultConfig()

	path := ResolveConfigPath(configPath)
	data, err := os.ReadFile(path)
	switch {
	case err == nil:
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, &core.ConfigError{Cause: fmt.Errorf("parse %s: %w", path, err)}
		}
	case os.IsNotExist(err):
		// Use defaults.
	default:
		return nil, &core.ConfigError{Cause: fmt.Errorf("read %s: %w", path, err)}
	}

	applyEnvOverrides(cfg)

	if err := cfg.Validate(); err != nil {
		return nil, &core.ConfigError{Cause: err}
	}
	return cfg, nil
}

// applyEnvOverrides overrides scalar system fields from DBS_-prefixed
// environment variables, mirroring pydantic-settings' env_prefix="DBS_".
func applyEnvOverrides(cfg *Config) {
	if v := os.Getenv("DBS_DB_PATH"); v != "" {
		cfg.System.DBPath = v
	}
	if v := os.Getenv("DBS_BATCH_SIZE"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.System.BatchSize = n
		}
	}
	if v := os.Getenv("DBS_NPROBES"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.System.NProbes = n
		}
	}
	if v := os.Getenv("DBS_LOG_LEVEL"); v != "" {
		cfg.System.LogLevel = v
	}
	if v := os.Getenv("DBS_LOG_SERIALIZE"); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			cfg.System.LogSerialize = b
		}
	}
}

// Validate checks the loaded configuration for internal consistency.
func (c *Config) Validate() error {
	if c.System.BatchSize < 1 {
		return fmt.Errorf("system.batch_size must be >= 1")
	}
	if c.System.NProbes < 1 {
		return fmt.Errorf("system.nprobes must be >= 1")
	}
	if c.System.DBPath == "" {
		return fmt.Errorf("system.db_path must not be empty")
	}
	for name, ec := range c.Engines {
		if ec.VectorDimension <= 0 {
			return fmt.Errorf("engine %q: vector_dimension must be > 0", name)
		}
		if ec.TableName == "" {
			return fmt.Errorf("engine %q: table_name must not be empty", name)
		}
		if ec.MapperType == "" {
			return fmt.Errorf("engine %q: mapper_type must not be empty", name)
		}
		if ec.ChunkerType == "" {
			return fmt.Errorf("engine %q: chunker_type must not be empty", name)
		}
	}
	return nil
}

// EngineNames returns the configured engine tags in map-iteration order;
// callers that need a stable order should sort the result themselves.
func (c *Config) EngineNames() []string {
	names := make([]string, 0, len(c.Engines))
	for name := range c.Engines {
		names = append(names, name)
	}
	return names
}
