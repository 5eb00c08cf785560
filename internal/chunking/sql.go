package chunking

import (
	"context"
	"crypto/md5"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"strings"

	"github.com/dbsmedya/dbs-vector/internal/core"
	"github.com/dbsmedya/dbs-vector/internal/observability"
)

// SqlChunker turns a JSON array of query-log records into SqlChunks.
// Malformed content (not a JSON array, or a record missing a usable
// normalized query) is logged and skipped rather than raised, per the
// chunker contract shared with DocumentChunker.
type SqlChunker struct {
	log *observability.Logger
}

func NewSqlChunker(log *observability.Logger) *SqlChunker {
	return &SqlChunker{log: log}
}

func (c *SqlChunker) SupportedExtensions() []string { return []string{".json"} }

func (c *SqlChunker) Process(_ context.Context, doc core.Document) []core.SqlChunk {
	var records []map[string]any
	if err := json.Unmarshal(doc.Content, &records); err != nil {
		if c.log != nil {
			c.log.Warn().Str("file", doc.Filepath).Err(err).Msg("sql chunker: content is not a JSON array, skipping")
		}
		return nil
	}

	chunks := make([]core.SqlChunk, 0, len(records))
	for i, rec := range records {
		raw := stringField(rec, "query")

		normalized := firstNonEmptyString(rec, "normalized_query", "normalized")
		if normalized == "" {
			normalized = raw
		}
		normalized = strings.TrimSpace(normalized)
		if normalized == "" {
			if c.log != nil {
				c.log.Warn().Str("file", doc.Filepath).Int("record", i).Msg("sql chunker: empty normalized query, skipping")
			}
			continue
		}

		id := firstNonEmptyString(rec, "query_hash", "id")
		if id == "" {
			sum := md5.Sum([]byte(raw))
			id = hex.EncodeToString(sum[:])
		}

		source := firstNonEmptyString(rec, "database", "source")
		if source == "" {
			source = "unknown"
		}

		execTime, ok := floatField(rec, "duration")
		if !ok {
			execTime, ok = floatField(rec, "execution_time_ms")
		}
		if !ok {
			execTime = 0.0
		}

		calls, ok := intField(rec, "calls")
		if !ok {
			calls = 1
		}

		hash := sha256.Sum256([]byte(normalized))
		chunks = append(chunks, core.SqlChunk{
			ID:              id,
			Text:            normalized,
			RawQuery:        raw,
			Source:          source,
			ExecutionTimeMs: execTime,
			Calls:           int64(calls),
			ContentHash:     hex.EncodeToString(hash[:])[:16],
		})
	}
	return chunks
}

func stringField(rec map[string]any, key string) string {
	if v, ok := rec[key]; ok {
		if s, ok := v.(string); ok {
			return s
		}
	}
	return ""
}

func firstNonEmptyString(rec map[string]any, keys ...string) string {
	for _, k := range keys {
		if s := stringField(rec, k); s != "" {
			return s
		}
	}
	return ""
}

func floatField(rec map[string]any, key string) (float64, bool) {
	v, present := rec[key]
	if !present || v == nil {
		return 0, false
	}
	switch n := v.(type) {
	case float64:
		return n, true
	case int:
		return float64(n), true
	}
	return 0, false
}

func intField(rec map[string]any, key string) (int, bool) {
	f, ok := floatField(rec, key)
	if !ok {
		return 0, false
	}
	return int(f), true
}

var _ core.Chunker[core.SqlChunk] = (*SqlChunker)(nil)
