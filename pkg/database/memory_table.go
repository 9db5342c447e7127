package database

import (
	"math"
	"slices"
	"strings"

	"github.com/cockroachdb/errors"
)

// durationTolerance absorbs rounding in durations written by other tools.
const durationTolerance = 1e-9

// MemoryTable keeps every time series in its own RowBuffer.
type MemoryTable struct {
	schema *Schema
	series []*RowBuffer
}

func (t *MemoryTable) Schema() *Schema { return t.schema }

// NumTimeSeries returns the number of stored time series.
func (t *MemoryTable) NumTimeSeries() int { return len(t.series) }

// NumRows returns the total number of stored rows.
func (t *MemoryTable) NumRows() int {
	n := 0
	for _, s := range t.series {
		n += s.Len()
	}
	return n
}

func (t *MemoryTable) Iterate() TimeSeriesIterator {
	it := &memoryIterator{table: t, next: 0}
	it.Cursor = NewCursor(it.advance)
	it.view = &BufferSeries{cursor: it.Cursor}
	return it
}

type memoryIterator struct {
	*Cursor
	table *MemoryTable
	next  int
	view  *BufferSeries
}

func (it *memoryIterator) advance() bool {
	if it.next >= len(it.table.series) {
		return false
	}
	it.view.rows = it.table.series[it.next]
	it.next++
	return true
}

func (it *memoryIterator) TimeSeries() TimeSeries {
	it.MustBeValid()
	return it.view
}

// BufferSeries is a time series view over one RowBuffer. Key columns are read
// from the first row.
type BufferSeries struct {
	cursor *Cursor
	rows   *RowBuffer
	first  *BufferRow
}

// NewBufferSeries wraps rows; cursor, when set, is marked derived whenever a
// row iterator is handed out.
func NewBufferSeries(cursor *Cursor, rows *RowBuffer) *BufferSeries {
	return &BufferSeries{cursor: cursor, rows: rows}
}

// Reset points the view at another buffer.
func (s *BufferSeries) Reset(rows *RowBuffer) { s.rows = rows }

func (s *BufferSeries) key(c int) *BufferRow {
	if s.cursor != nil {
		s.cursor.MustBeValid()
	}
	if !s.rows.Schema().Column(c).IsKey() {
		badAccess("column %q is not a key column", s.rows.Schema().Column(c).Name())
	}
	if s.first == nil || s.first.buffer != s.rows {
		s.first = s.rows.Row(0)
	}
	return s.first
}

func (s *BufferSeries) GetBoolean(c int) bool    { return s.key(c).GetBoolean(c) }
func (s *BufferSeries) GetNumeric(c int) float64 { return s.key(c).GetNumeric(c) }
func (s *BufferSeries) GetString(c int) string   { return s.key(c).GetString(c) }

func (s *BufferSeries) Rows() RowIterator {
	if s.cursor != nil {
		s.cursor.MustBeValid()
		s.cursor.MarkDerived()
	}
	return NewBufferRowIterator(s.rows, nil)
}

// NewBufferRowIterator iterates the rows of buf, in offset order, or in the
// order given by offsets when it is not nil.
func NewBufferRowIterator(buf *RowBuffer, offsets []int) RowIterator {
	it := &bufferRowIterator{offsets: offsets, pos: -1, row: buf.Row(0)}
	it.n = buf.Len()
	if offsets != nil {
		it.n = len(offsets)
	}
	it.Cursor = NewCursor(it.advance)
	return it
}

type bufferRowIterator struct {
	*Cursor
	offsets []int
	pos     int
	n       int
	row     *BufferRow
}

func (it *bufferRowIterator) advance() bool {
	if it.pos+1 >= it.n {
		return false
	}
	it.pos++
	if it.offsets != nil {
		it.row.Seek(it.offsets[it.pos])
	} else {
		it.row.Seek(it.pos)
	}
	return true
}

func (it *bufferRowIterator) Row() Row {
	it.MustBeValid()
	return it.row
}

// TableBuilder assembles a MemoryTable row by row. Rows are grouped into time
// series by key tuple in order of first appearance; the first error is
// reported by Build.
type TableBuilder struct {
	schema *Schema
	order  []string
	groups map[string][]Tuple
	err    error
}

func NewTableBuilder(schema *Schema) *TableBuilder {
	return &TableBuilder{schema: schema, groups: make(map[string][]Tuple)}
}

// AddRow appends one row given in schema order. On temporal schemas a nil
// duration is computed from start and end.
func (b *TableBuilder) AddRow(values ...interface{}) *TableBuilder {
	if b.err != nil {
		return b
	}
	if len(values) != b.schema.Len() {
		b.err = errors.Wrapf(ErrInvalidTable, "row has %d values, schema has %d columns", len(values), b.schema.Len())
		return b
	}
	row := make(Tuple, len(values))
	for i, raw := range values {
		col := b.schema.Column(i)
		if raw == nil && b.schema.IsTemporal() && i == DurationIndex {
			continue
		}
		v, ok := ValueOf(raw)
		if !ok || v.Type() != col.Type() {
			b.err = errors.Wrapf(ErrTypeMismatch, "column %q expects %s, got %T", col.Name(), col.Type(), raw)
			return b
		}
		row[i] = v
	}
	return b.AddTuple(row)
}

// AddTuple appends one row of values in schema order.
func (b *TableBuilder) AddTuple(row Tuple) *TableBuilder {
	if b.err != nil {
		return b
	}
	if b.schema.IsTemporal() {
		start, end := row[StartTimeIndex].Numeric(), row[EndTimeIndex].Numeric()
		if !(start <= end) {
			b.err = errors.Wrapf(ErrInvalidTable, "row interval [%v,%v) is not ordered", start, end)
			return b
		}
		if row[DurationIndex].Type() == Undefined {
			row[DurationIndex] = NumericValue(end - start)
		} else if d := row[DurationIndex].Numeric(); math.Abs(d-(end-start)) > durationTolerance*max(1, math.Abs(end)) {
			b.err = errors.Wrapf(ErrInvalidTable, "duration %v does not match [%v,%v)", d, start, end)
			return b
		} else {
			row[DurationIndex] = NumericValue(end - start)
		}
	}
	k := b.groupKey(row)
	if _, ok := b.groups[k]; !ok {
		b.order = append(b.order, k)
	}
	b.groups[k] = append(b.groups[k], row)
	return b
}

func (b *TableBuilder) groupKey(row Tuple) string {
	var sb strings.Builder
	for _, c := range b.schema.KeyIndices() {
		sb.WriteString(row[c].Type().String())
		sb.WriteByte(':')
		sb.WriteString(row[c].String())
		sb.WriteByte(0)
	}
	return sb.String()
}

// Build orders every time series by start time and checks that its rows do
// not overlap.
func (b *TableBuilder) Build() (*MemoryTable, error) {
	if b.err != nil {
		return nil, b.err
	}
	t := &MemoryTable{schema: b.schema}
	for _, k := range b.order {
		rows := b.groups[k]
		if b.schema.IsTemporal() {
			slices.SortStableFunc(rows, func(x, y Tuple) int {
				return x[StartTimeIndex].Compare(y[StartTimeIndex])
			})
			for i := 1; i < len(rows); i++ {
				if rows[i][StartTimeIndex].Numeric() < rows[i-1][EndTimeIndex].Numeric() {
					return nil, errors.Wrapf(ErrInvalidTable, "overlapping rows at %v in time series %q",
						rows[i][StartTimeIndex].Numeric(), strings.ReplaceAll(k, "\x00", " "))
				}
			}
		}
		buf := NewRowBuffer(b.schema)
		for _, r := range rows {
			buf.AppendValues(r)
		}
		t.series = append(t.series, buf)
	}
	return t, nil
}

// Materialize drains table into a MemoryTable, keeping its time series
// boundaries.
func Materialize(table Table) *MemoryTable {
	t := &MemoryTable{schema: table.Schema()}
	it := table.Iterate()
	for it.LoadNext() {
		buf := NewRowBuffer(t.schema)
		rows := it.TimeSeries().Rows()
		for rows.LoadNext() {
			buf.Append(rows.Row())
		}
		if buf.Len() > 0 {
			t.series = append(t.series, buf)
		}
	}
	return t
}

// Series returns a view over the i-th stored time series.
func (t *MemoryTable) Series(i int) TimeSeries {
	return NewBufferSeries(nil, t.series[i])
}
