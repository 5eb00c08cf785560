// Package ingestion drives chunker -> dedup -> embedder -> store for a
// single engine, idempotently: a second pass over the same corpus inserts
// zero new chunks.
package ingestion

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/dbsmedya/dbs-vector/internal/core"
	"github.com/dbsmedya/dbs-vector/internal/observability"
)

// Stats reports how many chunks an IngestPath call inserted versus
// skipped as already-present by content hash.
type Stats struct {
	NewChunks     int
	SkippedChunks int
}

// Service orchestrates one engine's chunker, embedder, and store.
type Service[R core.Row, S any] struct {
	chunker   core.Chunker[R]
	embedder  core.Embedder
	store     core.VectorStore[R, S]
	batchSize int
	log       *observability.Logger
	onBatch   func(newChunks int)
}

// New builds a Service. batchSize <= 0 falls back to 64, the documented
// system default.
func New[R core.Row, S any](chunker core.Chunker[R], embedder core.Embedder, store core.VectorStore[R, S], batchSize int, log *observability.Logger) *Service[R, S] {
	if batchSize <= 0 {
		batchSize = 64
	}
	return &Service[R, S]{chunker: chunker, embedder: embedder, store: store, batchSize: batchSize, log: log}
}

// WithProgress attaches a callback invoked once per flushed batch that
// inserted at least one chunk, with the count of newly inserted
// (non-duplicate) chunks in that batch; all-duplicate batches do not
// invoke it. Used by
// the CLI to drive a progress bar; nil by default for HTTP/MCP callers.
func (s *Service[R, S]) WithProgress(onBatch func(newChunks int)) *Service[R, S] {
	s.onBatch = onBatch
	return s
}

// IngestPath runs one ingest pass over target: a directory (walked
// recursively, filtered to the chunker's supported extensions) or a glob
// pattern. If rebuild is set, the store is cleared first. The existing
// content-hash set is snapshotted once at the start of the pass and is
// not refreshed mid-pass, so intra-pass duplicate chunks are each
// inserted — per-pass hash checking would otherwise serialize the write
// path.
func (s *Service[R, S]) IngestPath(ctx context.Context, target string, rebuild bool) (Stats, error) {
	var stats Stats

	if rebuild {
		if s.log != nil {
			s.log.Info().Str("target", target).Msg("rebuilding vector store (clearing existing data)")
		}
		if err := s.store.Clear(ctx); err != nil {
			return stats, err
		}
	}

	files, err := enumerateFiles(target, s.chunker.SupportedExtensions())
	if err != nil {
		return stats, err
	}

	existing, err := s.store.ExistingHashes(ctx)
	if err != nil {
		return stats, err
	}

	flush := func(batch []R) error {
		if len(batch) == 0 {
			return nil
		}
		newRows := make([]R, 0, len(batch))
		for _, row := range batch {
			if _, ok := existing[row.RowContentHash()]; ok {
				stats.SkippedChunks++
				continue
			}
			newRows = append(newRows, row)
		}
		if len(newRows) == 0 {
			return nil
		}
		texts := make([]string, len(newRows))
		for i, row := range newRows {
			texts[i] = row.RowText()
		}
		vectors, err := s.embedder.EmbedBatch(ctx, texts)
		if err != nil {
			return err
		}
		if err := s.store.IngestChunks(ctx, newRows, vectors); err != nil {
			return err
		}
		stats.NewChunks += len(newRows)
		if s.log != nil {
			s.log.Debug().Int("new_chunks", len(newRows)).Int("total", stats.NewChunks).Msg("streamed batch")
		}
		if s.onBatch != nil {
			s.onBatch(len(newRows))
		}
		return nil
	}

	pending := make([]R, 0, s.batchSize)
	for _, f := range files {
		content, err := os.ReadFile(f)
		if err != nil {
			if s.log != nil {
				s.log.Warn().Str("file", f).Err(err).Msg("ingest: failed to read file, skipping")
			}
			continue
		}
		doc := core.Document{
			Filepath:    f,
			Content:     content,
			ContentHash: contentHash16(content),
		}
		rows := s.chunker.Process(ctx, doc)
		for _, row := range rows {
			pending = append(pending, row)
			if len(pending) >= s.batchSize {
				if err := flush(pending); err != nil {
					return stats, err
				}
				pending = pending[:0]
			}
		}
	}
	if err := flush(pending); err != nil {
		return stats, err
	}

	if s.log != nil {
		s.log.Info().Int("new_chunks", stats.NewChunks).Int("skipped_chunks", stats.SkippedChunks).Msg("ingestion pass complete, building indices")
	}
	if err := s.store.CreateIndices(ctx); err != nil {
		return stats, err
	}
	if err := s.store.Compact(ctx); err != nil {
		return stats, err
	}
	return stats, nil
}

func contentHash16(content []byte) string {
	sum := sha256.Sum256(content)
	return hex.EncodeToString(sum[:])[:16]
}

// enumerateFiles lists the files an ingest pass should read: a recursive
// directory walk filtered to extensions when target is a directory,
// otherwise target is treated as a glob pattern and expanded to its
// matching regular files.
func enumerateFiles(target string, extensions []string) ([]string, error) {
	extSet := make(map[string]struct{}, len(extensions))
	for _, ext := range extensions {
		extSet[strings.ToLower(ext)] = struct{}{}
	}

	if info, err := os.Stat(target); err == nil && info.IsDir() {
		var files []string
		walkErr := filepath.WalkDir(target, func(path string, d fs.DirEntry, err error) error {
			if err != nil {
				return err
			}
			if d.IsDir() {
				return nil
			}
			if _, ok := extSet[strings.ToLower(filepath.Ext(path))]; ok {
				files = append(files, path)
			}
			return nil
		})
		if walkErr != nil {
			return nil, walkErr
		}
		sort.Strings(files)
		return files, nil
	}

	matches, err := filepath.Glob(target)
	if err != nil {
		return nil, err
	}
	var files []string
	for _, m := range matches {
		if fi, err := os.Stat(m); err == nil && fi.Mode().IsRegular() {
			files = append(files, m)
		}
	}
	sort.Strings(files)
	return files, nil
}
