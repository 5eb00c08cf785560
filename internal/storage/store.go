package storage

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/apache/arrow/go/v17/arrow"
	"github.com/apache/arrow/go/v17/arrow/array"
	"github.com/apache/arrow/go/v17/arrow/ipc"
	"github.com/apache/arrow/go/v17/arrow/memory"

	"github.com/dbsmedya/dbs-vector/internal/core"
	"github.com/dbsmedya/dbs-vector/internal/observability"
)

// minRowsForVectorIndex mirrors the reference engine's IVF-PQ threshold:
// below this row count, partitioning the vectors buys nothing, so the
// vector index build is skipped entirely.
const minRowsForVectorIndex = 256

// maxVectorIndexPartitions caps the number of IVF partitions.
const maxVectorIndexPartitions = 256

// overfetchFactor controls how many candidates each sub-index is asked
// for (after prefiltering) before fusion trims to the caller's limit.
const overfetchFactor = 4

// ArrowMapper is the subset of core.Mapper that store.go needs, expressed
// without the R type parameter leaking into the arrow.Record type
// assertion (ToRecordBatch returns `any` in core.Mapper; store.go asserts
// it back to arrow.Record here, once, in a single shared place).
type ArrowMapper[R core.Row, S any] interface {
	core.Mapper[R, S]
	Schema() *arrow.Schema
}

// ArrowStore is a VectorStore implementation over a single Arrow IPC
// file per table, with a hand-rolled cosine index and BM25 FTS index
// layered on top — the same split a real columnar vector database makes
// between its columnar storage and its IVF-PQ/FTS indices.
type ArrowStore[R core.Row, S any] struct {
	dbPath    string
	tableName string
	dimension int
	workflow  string
	nprobes   int
	mapper    ArrowMapper[R, S]
	log       *observability.Logger

	table *columnTable
	vec   *cosineIndex
	fts   *ftsIndex
}

// NewArrowStore opens (or creates) the table at dbPath/tableName.arrow.
// If a table file already exists with an incompatible schema, it returns
// a SchemaMismatchError.
func NewArrowStore[R core.Row, S any](dbPath, tableName string, dimension int, workflow string, nprobes int, mapper ArrowMapper[R, S], log *observability.Logger) (*ArrowStore[R, S], error) {
	if err := os.MkdirAll(dbPath, 0o755); err != nil {
		return nil, &core.StoreError{Op: "mkdir", Cause: err}
	}

	s := &ArrowStore[R, S]{
		dbPath:    dbPath,
		tableName: tableName,
		dimension: dimension,
		workflow:  workflow,
		nprobes:   nprobes,
		mapper:    mapper,
		log:       log,
		table:     newColumnTable(mapper.Schema()),
		vec:       newCosineIndex(dimension),
		fts:       newFTSIndex(),
	}

	path := s.filePath()
	if _, err := os.Stat(path); err == nil {
		if err := s.load(path); err != nil {
			return nil, err
		}
	} else if os.IsNotExist(err) {
		if err := s.writeEmptyTable(); err != nil {
			return nil, err
		}
	} else {
		return nil, &core.StoreError{Op: "stat", Cause: err}
	}

	return s, nil
}

func (s *ArrowStore[R, S]) filePath() string {
	return filepath.Join(s.dbPath, s.tableName+".arrow")
}

func (s *ArrowStore[R, S]) load(path string) error {
	f, err := os.Open(path)
	if err != nil {
		return &core.StoreError{Op: "open", Cause: err}
	}
	defer f.Close()

	pool := memory.NewGoAllocator()
	reader, err := ipc.NewFileReader(f, ipc.WithAllocator(pool))
	if err != nil {
		return &core.StoreError{Op: "open ipc reader", Cause: err}
	}
	defer reader.Close()

	if !reader.Schema().Equal(s.mapper.Schema()) {
		return &core.SchemaMismatchError{Table: s.tableName, Cause: fmt.Errorf("on-disk schema does not match configured engine schema")}
	}

	for i := 0; i < reader.NumRecords(); i++ {
		rec, err := reader.Record(i)
		if err != nil {
			return &core.StoreError{Op: "read record", Cause: err}
		}
		if err := s.indexRecord(rec); err != nil {
			return err
		}
	}
	return nil
}

// indexRecord appends rec into the in-memory table and both indices.
func (s *ArrowStore[R, S]) indexRecord(rec arrow.Record) error {
	vectors, err := VectorsFromRecord(rec, s.dimension)
	if err != nil {
		return &core.StoreError{Op: "decode vectors", Cause: err}
	}
	ids, err := s.table.AppendRecord(rec)
	if err != nil {
		return &core.StoreError{Op: "index record", Cause: err}
	}
	textIdx := rec.Schema().FieldIndices("text")
	var texts *array.String
	if len(textIdx) > 0 {
		texts, _ = rec.Column(textIdx[0]).(*array.String)
	}
	for i, id := range ids {
		if id == "" {
			continue
		}
		s.vec.Upsert(id, vectors[i])
		if texts != nil {
			s.fts.Upsert(id, texts.Value(i))
		}
	}
	return nil
}

func (s *ArrowStore[R, S]) writeEmptyTable() error {
	pool := memory.NewGoAllocator()
	bldr := array.NewRecordBuilder(pool, s.mapper.Schema())
	defer bldr.Release()
	rec := bldr.NewRecord()
	defer rec.Release()
	return s.writeRecords([]arrow.Record{rec})
}

// writeRecords rewrites the table file from scratch with the given
// records. The store is single-writer (callers serialize Clear/
// IngestChunks/CreateIndices/Compact against each other), so a full
// rewrite per write is acceptable here; it keeps the on-disk file always
// a single well-formed Arrow IPC file rather than requiring true
// mid-file append support.
func (s *ArrowStore[R, S]) writeRecords(records []arrow.Record) error {
	tmpPath := s.filePath() + ".tmp"
	f, err := os.Create(tmpPath)
	if err != nil {
		return &core.StoreError{Op: "create", Cause: err}
	}

	pool := memory.NewGoAllocator()
	writer, err := ipc.NewFileWriter(f, ipc.WithSchema(s.mapper.Schema()), ipc.WithAllocator(pool))
	if err != nil {
		f.Close()
		return &core.StoreError{Op: "open ipc writer", Cause: err}
	}
	for _, rec := range records {
		if err := writer.Write(rec); err != nil {
			writer.Close()
			f.Close()
			return &core.StoreError{Op: "write record", Cause: err}
		}
	}
	if err := writer.Close(); err != nil {
		f.Close()
		return &core.StoreError{Op: "close ipc writer", Cause: err}
	}
	if err := f.Close(); err != nil {
		return &core.StoreError{Op: "close file", Cause: err}
	}
	return os.Rename(tmpPath, s.filePath())
}

// persistAppend persists rec as an additional record batch alongside
// every batch already on disk, by reading the existing file (if any) and
// rewriting it with rec appended.
func (s *ArrowStore[R, S]) persistAppend(rec arrow.Record) error {
	path := s.filePath()
	var existing []arrow.Record
	if f, err := os.Open(path); err == nil {
		pool := memory.NewGoAllocator()
		reader, rerr := ipc.NewFileReader(f, ipc.WithAllocator(pool))
		if rerr == nil {
			for i := 0; i < reader.NumRecords(); i++ {
				if r, err := reader.Record(i); err == nil && r.NumRows() > 0 {
					existing = append(existing, r)
				}
			}
			reader.Close()
		}
		f.Close()
	}
	existing = append(existing, rec)
	return s.writeRecords(existing)
}

// Clear drops the table and recreates it empty, matching
// drop_table(ignore_missing=True) + create_table(...).
func (s *ArrowStore[R, S]) Clear(_ context.Context) error {
	_ = os.Remove(s.filePath())
	s.table.Reset()
	s.vec.Reset()
	s.fts.Reset()
	return s.writeEmptyTable()
}

// IngestChunks is a no-op for an empty batch; otherwise it encodes rows
// via the mapper and appends the resulting record batch.
func (s *ArrowStore[R, S]) IngestChunks(_ context.Context, rows []R, vectors [][]float32) error {
	if len(rows) == 0 {
		return nil
	}
	out, err := s.mapper.ToRecordBatch(rows, vectors, s.workflow)
	if err != nil {
		return &core.StoreError{Op: "encode batch", Cause: err}
	}
	rec, ok := out.(arrow.Record)
	if !ok {
		return &core.StoreError{Op: "encode batch", Cause: fmt.Errorf("mapper returned %T, want arrow.Record", out)}
	}
	defer rec.Release()

	if err := s.persistAppend(rec); err != nil {
		return err
	}
	return s.indexRecord(rec)
}

// ExistingHashes returns the empty set without scanning when the table
// is empty, otherwise the deduplicated content_hash set.
func (s *ArrowStore[R, S]) ExistingHashes(_ context.Context) (map[string]struct{}, error) {
	if s.table.Len() == 0 {
		return map[string]struct{}{}, nil
	}
	return s.table.ContentHashes(), nil
}

// Compact is a no-op. The on-disk file is a single Arrow IPC file that
// persistAppend rewrites on every ingest, holding one record batch per
// IngestChunks call; Compact does not merge those batches into one.
func (s *ArrowStore[R, S]) Compact(_ context.Context) error {
	// Kept as an explicit step so the ingest → create_indices → compact
	// call sequence matches the VectorStore interface; this store never
	// accumulates separate delta files.
	return nil
}

// CreateIndices marks the FTS index as built (its postings are kept up to
// date by every ingest, so nothing is re-tokenized here; a panic is
// logged and swallowed) and, if the table has at least
// minRowsForVectorIndex rows, marks the cosine index as trained (failures
// here propagate).
func (s *ArrowStore[R, S]) CreateIndices(_ context.Context) error {
	func() {
		defer func() {
			if r := recover(); r != nil && s.log != nil {
				s.log.Warn().Interface("panic", r).Msg("fts index build failed, continuing without it")
			}
		}()
		s.fts.MarkBuilt()
	}()

	rowCount := s.table.Len()
	if rowCount < minRowsForVectorIndex {
		return nil
	}
	partitions := numPartitions(rowCount)

	var buildErr error
	func() {
		defer func() {
			if r := recover(); r != nil {
				buildErr = fmt.Errorf("panic building vector index: %v", r)
			}
		}()
		if s.log != nil {
			s.log.Debug().Int("row_count", rowCount).Int("partitions", partitions).Msg("building vector index")
		}
		s.vec.MarkTrained()
	}()
	if buildErr != nil {
		return &core.IndexBuildError{Index: "vector", Cause: buildErr}
	}
	return nil
}

func numPartitions(rowCount int) int {
	p := int(intSqrt(rowCount))
	if p > maxVectorIndexPartitions {
		p = maxVectorIndexPartitions
	}
	if p < 1 {
		p = 1
	}
	return p
}

func intSqrt(n int) int {
	if n <= 0 {
		return 0
	}
	x := n
	y := (x + 1) / 2
	for y < x {
		x = y
		y = (x + n/x) / 2
	}
	return x
}

// escapeSourceLiteral doubles single quotes for ANSI-SQL literal quoting,
// matching the reference engine's prefilter escaping.
func escapeSourceLiteral(s string) string {
	return strings.ReplaceAll(s, "'", "''")
}

// Search runs the hybrid query (vector + FTS, fused) with the documented
// prefilters, falling back to vector-only search on hybrid failure.
func (s *ArrowStore[R, S]) Search(_ context.Context, queryText string, queryVector []float32, opts core.SearchOptions) ([]S, error) {
	limit := opts.Limit
	if limit <= 0 {
		limit = 5
	}

	allowed, err := s.prefilterAllowedIDs(opts)
	if err != nil {
		return nil, err
	}

	results, hybridErr := s.searchHybrid(queryText, queryVector, limit, allowed)
	if hybridErr == nil {
		return results, nil
	}
	if s.log != nil {
		s.log.Warn().Err(hybridErr).Msg("hybrid search failed, falling back to vector-only search")
	}
	return s.searchVectorOnly(queryVector, limit, allowed)
}

// prefilterAllowedIDs evaluates source_filter/min_time against the live
// table and returns the set of row ids matching every predicate. A nil
// return means "no prefilter configured" (all ids allowed).
func (s *ArrowStore[R, S]) prefilterAllowedIDs(opts core.SearchOptions) (map[string]struct{}, error) {
	if !opts.HasSourceFilter && !opts.HasMinTime {
		return nil, nil
	}

	if s.log != nil && opts.HasSourceFilter {
		s.log.Debug().Str("predicate", fmt.Sprintf("source = '%s'", escapeSourceLiteral(opts.SourceFilter))).Msg("applying source prefilter")
	}

	s.table.mu.RLock()
	defer s.table.mu.RUnlock()

	allowed := make(map[string]struct{})
	for id, idx := range s.table.idIndex {
		if opts.HasSourceFilter {
			sources := s.table.strCols["source"]
			if idx >= len(sources) || sources[idx] != opts.SourceFilter {
				continue
			}
		}
		if opts.HasMinTime {
			times := s.table.f64Cols["execution_time_ms"]
			if idx >= len(times) || times[idx] < opts.MinTime {
				continue
			}
		}
		allowed[id] = struct{}{}
	}
	return allowed, nil
}

// fusedHit is one candidate in a hybrid query's fused result set: a
// reciprocal-rank score combining its standing (if any) in the vector
// and FTS candidate lists, plus the vector distance when one exists.
type fusedHit struct {
	id       string
	distance *float32
	rank     float64
}

func (s *ArrowStore[R, S]) searchHybrid(queryText string, queryVector []float32, limit int, allowed map[string]struct{}) ([]S, error) {
	s.fts.mu.RLock()
	built := s.fts.built
	s.fts.mu.RUnlock()
	if !built {
		return nil, &core.HybridUnavailableError{Cause: fmt.Errorf("fts index not built")}
	}

	fetch := limit * overfetchFactor
	vecHits := s.vec.Search(queryVector, fetch, allowed)
	ftsHits := s.fts.Search(queryText, fetch, allowed)

	// Each list contributes 1/(rrfK + 1-based rank) to a candidate's score.
	const rrfK = 60
	combined := make(map[string]*fusedHit)
	for rank, h := range vecHits {
		d := h.distance
		combined[h.id] = &fusedHit{id: h.id, distance: &d, rank: 1 / float64(rrfK+rank+1)}
	}
	for rank, h := range ftsHits {
		if f, ok := combined[h.id]; ok {
			f.rank += 1 / float64(rrfK+rank+1)
			continue
		}
		combined[h.id] = &fusedHit{id: h.id, distance: nil, rank: 1 / float64(rrfK+rank+1)}
	}

	ordered := make([]*fusedHit, 0, len(combined))
	for _, f := range combined {
		ordered = append(ordered, f)
	}
	sort.Slice(ordered, func(i, j int) bool { return ordered[i].rank > ordered[j].rank })
	if len(ordered) > limit {
		ordered = ordered[:limit]
	}

	out := make([]S, 0, len(ordered))
	for _, f := range ordered {
		idx, ok := s.table.RowIndex(f.id)
		if !ok {
			continue
		}
		res, err := s.mapper.FromRow(s.table.View(idx), f.distance)
		if err != nil {
			return nil, &core.StoreError{Op: "decode row", Cause: err}
		}
		out = append(out, res)
	}
	return out, nil
}

func (s *ArrowStore[R, S]) searchVectorOnly(queryVector []float32, limit int, allowed map[string]struct{}) ([]S, error) {
	hits := s.vec.Search(queryVector, limit, allowed)
	out := make([]S, 0, len(hits))
	for _, h := range hits {
		idx, ok := s.table.RowIndex(h.id)
		if !ok {
			continue
		}
		d := h.distance
		res, err := s.mapper.FromRow(s.table.View(idx), &d)
		if err != nil {
			return nil, &core.StoreError{Op: "decode row", Cause: err}
		}
		out = append(out, res)
	}
	return out, nil
}

func (s *ArrowStore[R, S]) Close() error { return nil }

var _ core.VectorStore[core.Chunk, core.SearchResult] = (*ArrowStore[core.Chunk, core.SearchResult])(nil)
