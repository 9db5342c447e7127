package engine

import (
	"github.com/bisegni/tsq/pkg/database"
	"github.com/bisegni/tsq/pkg/query"
	"github.com/cockroachdb/errors"
)

// checkBound verifies that every column reference of e points at a column
// of schema with the same name and type.
func checkBound(e query.Expr, schema *database.Schema) error {
	var err error
	query.Walk(e, func(n query.Expr) bool {
		c, ok := n.(*query.ColumnRef)
		if !ok || err != nil {
			return err == nil
		}
		if c.Index < 0 || c.Index >= schema.Len() {
			err = errors.Wrapf(database.ErrUnknownColumn, "%q index %d outside %s", c.Name, c.Index, schema)
			return false
		}
		col := schema.Column(c.Index)
		if col.Name() != c.Name {
			err = errors.Wrapf(database.ErrUnknownColumn, "%q bound to column %d which is %q", c.Name, c.Index, col.Name())
		} else if col.Type() != c.Typ {
			err = errors.Wrapf(database.ErrTypeMismatch, "%q is %s, expression expects %s", c.Name, col.Type(), c.Typ)
		}
		return err == nil
	})
	return err
}

// readsOnlyKeys reports whether e reads at least one column and only key
// columns of schema.
func readsOnlyKeys(e query.Expr, schema *database.Schema) bool {
	return len(query.ColumnIndices(e)) > 0 && query.ReadsOnly(e, func(c *query.ColumnRef) bool {
		return schema.Column(c.Index).IsKey()
	})
}

func mustBeKey(schema *database.Schema, c int) {
	if !schema.Column(c).IsKey() {
		panic(errors.AssertionFailedf("column %q is not a key column", schema.Column(c).Name()))
	}
}

// checkKeys verifies that every column in cols is a key column.
func checkKeys(schema *database.Schema, cols []int, role string) error {
	for _, c := range cols {
		if c < 0 || c >= schema.Len() {
			return errors.Wrapf(database.ErrUnknownColumn, "%s column index %d outside %s", role, c, schema)
		}
		if !schema.Column(c).IsKey() {
			return errors.Wrapf(database.ErrNotKeyColumn, "%s column %q", role, schema.Column(c).Name())
		}
	}
	return nil
}

// copyColumns appends columns from of r to the matching columns to of buf.
func copyColumns(buf *database.RowBuffer, to []int, r database.Record, from []int) {
	for i, c := range from {
		buf.Column(to[i]).AppendFrom(r, c)
	}
}

// bufferView is a time series over rows offsets[lo:hi] of a buffer, with
// key accessors checked against the operator's output schema.
type bufferView struct {
	cursor  *database.Cursor
	schema  *database.Schema
	buffer  *database.RowBuffer
	offsets []int
	first   *database.BufferRow
}

func newBufferView(cursor *database.Cursor, schema *database.Schema) *bufferView {
	return &bufferView{cursor: cursor, schema: schema}
}

// reset points the view at buffer rows; offsets nil means every row.
func (v *bufferView) reset(buffer *database.RowBuffer, offsets []int) {
	v.buffer, v.offsets = buffer, offsets
	if v.first == nil || v.first.Buffer() != buffer {
		v.first = buffer.Row(0)
	}
	if offsets != nil {
		v.first.Seek(offsets[0])
	} else {
		v.first.Seek(0)
	}
}

func (v *bufferView) key(c int) database.Record {
	v.cursor.MustBeValid()
	mustBeKey(v.schema, c)
	return v.first
}

func (v *bufferView) GetBoolean(c int) bool    { return v.key(c).GetBoolean(c) }
func (v *bufferView) GetNumeric(c int) float64 { return v.key(c).GetNumeric(c) }
func (v *bufferView) GetString(c int) string   { return v.key(c).GetString(c) }

func (v *bufferView) Rows() database.RowIterator {
	v.cursor.MustBeValid()
	v.cursor.MarkDerived()
	return database.NewBufferRowIterator(v.buffer, v.offsets)
}

// passthroughSeries forwards key accessors to the source time series.
type passthroughSeries struct {
	cursor *database.Cursor
	src    database.TimeSeries
}

func (s *passthroughSeries) GetBoolean(c int) bool {
	s.cursor.MustBeValid()
	return s.src.GetBoolean(c)
}

func (s *passthroughSeries) GetNumeric(c int) float64 {
	s.cursor.MustBeValid()
	return s.src.GetNumeric(c)
}

func (s *passthroughSeries) GetString(c int) string {
	s.cursor.MustBeValid()
	return s.src.GetString(c)
}

// derive marks the series as consumed and returns a fresh source row iterator.
func (s *passthroughSeries) derive() database.RowIterator {
	s.cursor.MustBeValid()
	s.cursor.MarkDerived()
	return s.src.Rows()
}
