package database

import "cmp"

const minBufferCapacity = 8

// ColumnBuffer is a growable array of values of one type. Only the slice
// matching the buffer type is ever allocated; capacity doubles on overflow.
type ColumnBuffer struct {
	typ      Type
	size     int
	booleans []bool
	numerics []float64
	strings  []string
}

func NewColumnBuffer(typ Type, capacity int) *ColumnBuffer {
	b := &ColumnBuffer{typ: typ}
	b.grow(max(capacity, minBufferCapacity))
	return b
}

func (b *ColumnBuffer) Type() Type { return b.typ }
func (b *ColumnBuffer) Len() int   { return b.size }

// Reset empties the buffer and keeps its storage.
func (b *ColumnBuffer) Reset() {
	if b.typ == String {
		clear(b.strings[:b.size])
	}
	b.size = 0
}

func (b *ColumnBuffer) capacity() int {
	switch b.typ {
	case Boolean:
		return len(b.booleans)
	case Numeric:
		return len(b.numerics)
	default:
		return len(b.strings)
	}
}

func (b *ColumnBuffer) grow(capacity int) {
	switch b.typ {
	case Boolean:
		next := make([]bool, capacity)
		copy(next, b.booleans[:b.size])
		b.booleans = next
	case Numeric:
		next := make([]float64, capacity)
		copy(next, b.numerics[:b.size])
		b.numerics = next
	case String:
		next := make([]string, capacity)
		copy(next, b.strings[:b.size])
		b.strings = next
	default:
		badAccess("column buffer of type %s", b.typ)
	}
}

func (b *ColumnBuffer) reserve() int {
	if b.size == b.capacity() {
		b.grow(2 * b.capacity())
	}
	b.size++
	return b.size - 1
}

func (b *ColumnBuffer) check(i int, typ Type) {
	if b.typ != typ {
		badAccess("column of type %s read as %s", b.typ, typ)
	}
	if i < 0 || i >= b.size {
		badAccess("row %d out of range [0,%d)", i, b.size)
	}
}

func (b *ColumnBuffer) AppendBoolean(v bool) {
	if b.typ != Boolean {
		badAccess("appending BOOLEAN to %s column", b.typ)
	}
	b.booleans[b.reserve()] = v
}

func (b *ColumnBuffer) AppendNumeric(v float64) {
	if b.typ != Numeric {
		badAccess("appending NUMERIC to %s column", b.typ)
	}
	b.numerics[b.reserve()] = v
}

func (b *ColumnBuffer) AppendString(v string) {
	if b.typ != String {
		badAccess("appending STRING to %s column", b.typ)
	}
	b.strings[b.reserve()] = v
}

// AppendFrom copies column c of r.
func (b *ColumnBuffer) AppendFrom(r Record, c int) {
	switch b.typ {
	case Boolean:
		b.AppendBoolean(r.GetBoolean(c))
	case Numeric:
		b.AppendNumeric(r.GetNumeric(c))
	case String:
		b.AppendString(r.GetString(c))
	}
}

func (b *ColumnBuffer) AppendValue(v Value) {
	switch b.typ {
	case Boolean:
		b.AppendBoolean(v.Boolean())
	case Numeric:
		b.AppendNumeric(v.Numeric())
	case String:
		b.AppendString(v.Str())
	}
}

func (b *ColumnBuffer) BooleanAt(i int) bool {
	b.check(i, Boolean)
	return b.booleans[i]
}

func (b *ColumnBuffer) NumericAt(i int) float64 {
	b.check(i, Numeric)
	return b.numerics[i]
}

func (b *ColumnBuffer) StringAt(i int) string {
	b.check(i, String)
	return b.strings[i]
}

func (b *ColumnBuffer) SetNumeric(i int, v float64) {
	b.check(i, Numeric)
	b.numerics[i] = v
}

// Compare orders row i of b against row j of o.
func (b *ColumnBuffer) Compare(i int, o *ColumnBuffer, j int) int {
	switch b.typ {
	case Boolean:
		return CompareBooleans(b.BooleanAt(i), o.BooleanAt(j))
	case Numeric:
		return cmp.Compare(b.NumericAt(i), o.NumericAt(j))
	default:
		return cmp.Compare(b.StringAt(i), o.StringAt(j))
	}
}

// RowBuffer stores rows column by column, one ColumnBuffer per schema column.
type RowBuffer struct {
	schema  *Schema
	columns []*ColumnBuffer
	size    int
}

func NewRowBuffer(schema *Schema) *RowBuffer {
	b := &RowBuffer{schema: schema, columns: make([]*ColumnBuffer, schema.Len())}
	for i := range b.columns {
		b.columns[i] = NewColumnBuffer(schema.Column(i).Type(), minBufferCapacity)
	}
	return b
}

func (b *RowBuffer) Schema() *Schema { return b.schema }
func (b *RowBuffer) Len() int        { return b.size }

func (b *RowBuffer) Column(c int) *ColumnBuffer { return b.columns[c] }

func (b *RowBuffer) Reset() {
	for _, c := range b.columns {
		c.Reset()
	}
	b.size = 0
}

// Append copies every column of r and returns the new row's offset.
func (b *RowBuffer) Append(r Record) int {
	for i, c := range b.columns {
		c.AppendFrom(r, i)
	}
	b.size++
	return b.size - 1
}

// AppendValues appends one row given as values in schema order.
func (b *RowBuffer) AppendValues(values []Value) int {
	for i, c := range b.columns {
		c.AppendValue(values[i])
	}
	b.size++
	return b.size - 1
}

// Row returns a new view positioned at offset i.
func (b *RowBuffer) Row(i int) *BufferRow {
	return &BufferRow{buffer: b, index: i}
}

// BufferRow is a movable view over one row of a RowBuffer.
type BufferRow struct {
	buffer *RowBuffer
	index  int
}

func (r *BufferRow) Seek(i int) { r.index = i }

func (r *BufferRow) Offset() int { return r.index }

func (r *BufferRow) Buffer() *RowBuffer { return r.buffer }

func (r *BufferRow) column(c int) *ColumnBuffer {
	if c < 0 || c >= len(r.buffer.columns) {
		badAccess("column index %d out of range [0,%d)", c, len(r.buffer.columns))
	}
	return r.buffer.columns[c]
}

func (r *BufferRow) GetBoolean(c int) bool    { return r.column(c).BooleanAt(r.index) }
func (r *BufferRow) GetNumeric(c int) float64 { return r.column(c).NumericAt(r.index) }
func (r *BufferRow) GetString(c int) string   { return r.column(c).StringAt(r.index) }
