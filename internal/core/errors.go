// Package core defines the domain types and error kinds shared by every
// engine: documents, chunks, search results, and the small set of error
// kinds the CLI/HTTP/MCP front ends switch on.
package core

import (
	"errors"
	"fmt"
)

// Sentinel error kinds. Callers should use errors.Is/errors.As against
// these rather than matching on message text.
var (
	ErrConfig            = errors.New("config error")
	ErrUnknownComponent  = errors.New("unknown component")
	ErrSchemaMismatch    = errors.New("schema mismatch")
	ErrValidation        = errors.New("validation error")
	ErrInference         = errors.New("inference error")
	ErrStore             = errors.New("store error")
	ErrIndexBuildFailed  = errors.New("index build failed")
	ErrHybridUnavailable = errors.New("hybrid search unavailable")
	ErrShapeMismatch     = errors.New("shape mismatch")
)

// ConfigError wraps a configuration load/validation failure.
type ConfigError struct{ Cause error }

func (e *ConfigError) Error() string { return "config error: " + e.Cause.Error() }
func (e *ConfigError) Unwrap() error { return errors.Join(ErrConfig, e.Cause) }

// UnknownComponentError is returned by the registry when a tag has no
// registered chunker/mapper, and by engine lookups for an unconfigured
// engine name (also surfaced as UnknownEngine at the CLI/HTTP boundary).
type UnknownComponentError struct{ Tag string }

func (e *UnknownComponentError) Error() string {
	return "unknown component: " + e.Tag
}
func (e *UnknownComponentError) Unwrap() error { return ErrUnknownComponent }

// UnknownEngine is an alias used by the CLI/HTTP/MCP surfaces, which speak
// of "engines" rather than "components".
type UnknownEngine = UnknownComponentError

// SchemaMismatchError indicates an on-disk table's schema is incompatible
// with the schema the caller requested (e.g. a changed vector dimension).
type SchemaMismatchError struct {
	Table string
	Cause error
}

func (e *SchemaMismatchError) Error() string {
	msg := "schema mismatch for table " + e.Table
	if e.Cause != nil {
		msg += ": " + e.Cause.Error()
	}
	return msg
}
func (e *SchemaMismatchError) Unwrap() error { return ErrSchemaMismatch }

// ValidationError reports a caller-supplied value that fails a documented
// precondition (empty query, out-of-range limit, ...).
type ValidationError struct{ Msg string }

func (e *ValidationError) Error() string { return "validation: " + e.Msg }
func (e *ValidationError) Unwrap() error { return ErrValidation }

// InferenceError wraps a failure from the embedding runtime.
type InferenceError struct{ Cause error }

func (e *InferenceError) Error() string { return "inference error: " + e.Cause.Error() }
func (e *InferenceError) Unwrap() error { return errors.Join(ErrInference, e.Cause) }

// StoreError wraps a failure from the vector store's persistence layer.
type StoreError struct {
	Op    string
	Cause error
}

func (e *StoreError) Error() string { return "store error (" + e.Op + "): " + e.Cause.Error() }
func (e *StoreError) Unwrap() error { return errors.Join(ErrStore, e.Cause) }

// IndexBuildError wraps a failure building either the FTS or vector index.
// FTS failures are recovered locally by callers (logged, not propagated);
// vector index failures propagate.
type IndexBuildError struct {
	Index string // "fts" or "vector"
	Cause error
}

func (e *IndexBuildError) Error() string {
	return "index build failed (" + e.Index + "): " + e.Cause.Error()
}
func (e *IndexBuildError) Unwrap() error { return errors.Join(ErrIndexBuildFailed, e.Cause) }

// ShapeMismatchError indicates embed_query's returned vector did not have
// the expected (D,) shape.
type ShapeMismatchError struct {
	Expected int
	Got      int
}

func (e *ShapeMismatchError) Error() string {
	return fmt.Sprintf("shape mismatch: expected dimension %d, got %d", e.Expected, e.Got)
}
func (e *ShapeMismatchError) Unwrap() error { return ErrShapeMismatch }

// HybridUnavailableError indicates the hybrid query path failed and the
// caller fell back to vector-only search.
type HybridUnavailableError struct{ Cause error }

func (e *HybridUnavailableError) Error() string {
	return "hybrid search unavailable: " + e.Cause.Error()
}
func (e *HybridUnavailableError) Unwrap() error { return errors.Join(ErrHybridUnavailable, e.Cause) }
