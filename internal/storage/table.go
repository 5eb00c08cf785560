package storage

import (
	"fmt"
	"sync"

	"github.com/apache/arrow/go/v17/arrow"
	"github.com/apache/arrow/go/v17/arrow/array"

	"github.com/dbsmedya/dbs-vector/internal/core"
)

// columnTable is the in-memory working copy of one engine's table: a set
// of parallel column slices mirroring the Arrow schema, kept in sync with
// the on-disk IPC file. Arrow owns the wire/at-rest representation
// (RecordBuilder in the mappers, ipc.FileWriter/Reader in store.go);
// columnTable exists so row lookups for the cosine/FTS indices and
// core.RowView don't require re-parsing an Arrow record on every read.
type columnTable struct {
	mu      sync.RWMutex
	schema  *arrow.Schema
	strCols map[string][]string
	f64Cols map[string][]float64
	i64Cols map[string][]int64
	idIndex map[string]int
	n       int
}

func newColumnTable(schema *arrow.Schema) *columnTable {
	t := &columnTable{
		schema:  schema,
		strCols: make(map[string][]string),
		f64Cols: make(map[string][]float64),
		i64Cols: make(map[string][]int64),
		idIndex: make(map[string]int),
	}
	for _, f := range schema.Fields() {
		switch f.Type.ID() {
		case arrow.STRING:
			t.strCols[f.Name] = nil
		case arrow.FLOAT64:
			t.f64Cols[f.Name] = nil
		case arrow.INT64:
			t.i64Cols[f.Name] = nil
		case arrow.FIXED_SIZE_LIST:
			// vectors are not kept in columnTable; the cosine index is
			// the vector-column's working copy.
		default:
			// Unrecognized field types are ignored by the in-memory
			// view; RowView lookups against them simply return zero
			// values.
		}
	}
	return t
}

func (t *columnTable) Reset() {
	t.mu.Lock()
	defer t.mu.Unlock()
	for k := range t.strCols {
		t.strCols[k] = nil
	}
	for k := range t.f64Cols {
		t.f64Cols[k] = nil
	}
	for k := range t.i64Cols {
		t.i64Cols[k] = nil
	}
	t.idIndex = make(map[string]int)
	t.n = 0
}

func (t *columnTable) Len() int {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.n
}

// AppendRecord appends every row of rec (built by a Mapper.ToRecordBatch
// call, or read back from the on-disk IPC file) into the table, returning
// each row's "id" value in order.
func (t *columnTable) AppendRecord(rec arrow.Record) ([]string, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	nrows := int(rec.NumRows())
	ids := make([]string, 0, nrows)
	schema := rec.Schema()

	for i := 0; i < nrows; i++ {
		var rowID string
		for colIdx, field := range schema.Fields() {
			col := rec.Column(colIdx)
			switch arr := col.(type) {
			case *array.String:
				var v string
				if !arr.IsNull(i) {
					v = arr.Value(i)
				}
				t.strCols[field.Name] = append(t.strCols[field.Name], v)
				if field.Name == "id" {
					rowID = v
				}
			case *array.Float64:
				var v float64
				if !arr.IsNull(i) {
					v = arr.Value(i)
				}
				t.f64Cols[field.Name] = append(t.f64Cols[field.Name], v)
			case *array.Int64:
				var v int64
				if !arr.IsNull(i) {
					v = arr.Value(i)
				}
				t.i64Cols[field.Name] = append(t.i64Cols[field.Name], v)
			case *array.FixedSizeList:
				// handled by the caller via VectorsFromRecord; skip here.
			default:
				return nil, fmt.Errorf("column table: unsupported arrow field type for %q", field.Name)
			}
		}
		t.idIndex[rowID] = t.n
		ids = append(ids, rowID)
		t.n++
	}
	return ids, nil
}

// VectorsFromRecord extracts the fixed-size-list "vector" column of rec
// as a slice of float32 slices, one per row.
func VectorsFromRecord(rec arrow.Record, dimension int) ([][]float32, error) {
	schema := rec.Schema()
	idx := schema.FieldIndices("vector")
	if len(idx) == 0 {
		return nil, fmt.Errorf("column table: record has no \"vector\" column")
	}
	col, ok := rec.Column(idx[0]).(*array.FixedSizeList)
	if !ok {
		return nil, fmt.Errorf("column table: \"vector\" column is not a fixed-size list")
	}
	values, ok := col.ListValues().(*array.Float32)
	if !ok {
		return nil, fmt.Errorf("column table: vector child array is not float32")
	}

	nrows := int(rec.NumRows())
	out := make([][]float32, nrows)
	for i := 0; i < nrows; i++ {
		start := i * dimension
		out[i] = append([]float32(nil), values.Float32Values()[start:start+dimension]...)
	}
	return out, nil
}

// tableRowView implements core.RowView over one row index into a
// columnTable.
type tableRowView struct {
	t   *columnTable
	idx int
}

func (v *tableRowView) String(col string) string {
	v.t.mu.RLock()
	defer v.t.mu.RUnlock()
	if s, ok := v.t.strCols[col]; ok && v.idx < len(s) {
		return s[v.idx]
	}
	return ""
}

func (v *tableRowView) Float64(col string) float64 {
	v.t.mu.RLock()
	defer v.t.mu.RUnlock()
	if f, ok := v.t.f64Cols[col]; ok && v.idx < len(f) {
		return f[v.idx]
	}
	return 0
}

func (v *tableRowView) Int64(col string) int64 {
	v.t.mu.RLock()
	defer v.t.mu.RUnlock()
	if i, ok := v.t.i64Cols[col]; ok && v.idx < len(i) {
		return i[v.idx]
	}
	return 0
}

var _ core.RowView = (*tableRowView)(nil)

// ContentHashes returns the full set of content_hash values currently in
// the table.
func (t *columnTable) ContentHashes() map[string]struct{} {
	t.mu.RLock()
	defer t.mu.RUnlock()
	out := make(map[string]struct{}, len(t.strCols["content_hash"]))
	for _, h := range t.strCols["content_hash"] {
		out[h] = struct{}{}
	}
	return out
}

// RowIndex returns the row index for id, if present.
func (t *columnTable) RowIndex(id string) (int, bool) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	idx, ok := t.idIndex[id]
	return idx, ok
}

func (t *columnTable) View(idx int) core.RowView {
	return &tableRowView{t: t, idx: idx}
}
