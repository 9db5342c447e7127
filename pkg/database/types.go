package database

import "strings"

// Type is the static type of a column or expression.
type Type uint8

const (
	// Undefined only exists during analysis; it never reaches an operator.
	Undefined Type = iota
	Boolean
	Numeric
	String
)

func (t Type) String() string {
	switch t {
	case Boolean:
		return "BOOLEAN"
	case Numeric:
		return "NUMERIC"
	case String:
		return "STRING"
	default:
		return "UNDEFINED"
	}
}

// ParseType accepts the short and long spellings used in table headers.
func ParseType(s string) (Type, bool) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "bool", "boolean":
		return Boolean, true
	case "num", "number", "numeric", "float", "double":
		return Numeric, true
	case "str", "string", "text":
		return String, true
	default:
		return Undefined, false
	}
}

// Record gives typed access to column values by schema index.
// Calling the accessor that does not match the column type, or passing an
// index outside the schema, is a programmer error and panics.
type Record interface {
	GetBoolean(column int) bool
	GetNumeric(column int) float64
	GetString(column int) string
}

// Row is one interval record. Rows handed out by iterators are views that
// stay valid only until the iterator advances.
type Row interface {
	Record
}

// TimeSeries is a group of rows sharing every key column value. As a Record
// it answers key columns only. Rows returns a fresh iterator over the rows,
// ordered by start time.
type TimeSeries interface {
	Record
	Rows() RowIterator
}

// RowIterator is a single-cursor pull sequence of rows.
type RowIterator interface {
	// LoadNext advances the cursor. Once it returns false it keeps doing so.
	LoadNext() bool
	// Row is valid only right after LoadNext returned true.
	Row() Row
	// PushBack makes the next LoadNext deliver the current row again.
	PushBack() bool
}

// TimeSeriesIterator is a single-cursor pull sequence of time series.
type TimeSeriesIterator interface {
	LoadNext() bool
	TimeSeries() TimeSeries
	// PushBack fails once Rows has been called on the current time series.
	PushBack() bool
}

// Table represents a dataset that can be scanned any number of times.
type Table interface {
	Schema() *Schema
	// Iterate returns a new, independent iterator over the time series.
	Iterate() TimeSeriesIterator
}
