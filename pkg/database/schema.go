package database

import (
	"fmt"
	"strings"

	"github.com/cockroachdb/errors"
)

// Reserved interval columns and the indices they must occupy.
const (
	StartTimeColumn = "_start_time"
	EndTimeColumn   = "_end_time"
	DurationColumn  = "_duration"

	StartTimeIndex = 0
	EndTimeIndex   = 1
	DurationIndex  = 2

	// NumTimeColumns is the number of leading reserved columns.
	NumTimeColumns = 3
)

var reservedIndex = map[string]int{
	StartTimeColumn: StartTimeIndex,
	EndTimeColumn:   EndTimeIndex,
	DurationColumn:  DurationIndex,
}

// IsReserved reports whether name is one of the interval columns.
func IsReserved(name string) bool {
	_, ok := reservedIndex[name]
	return ok
}

// Column describes one column. It is immutable once built.
type Column struct {
	name string
	typ  Type
	key  bool
}

func NewColumn(name string, typ Type, isKey bool) Column {
	return Column{name: name, typ: typ, key: isKey}
}

func (c Column) Name() string { return c.name }
func (c Column) Type() Type   { return c.typ }

// IsKey reports whether the column is constant within one time series.
func (c Column) IsKey() bool { return c.key }

// WithName returns a copy of the column under another name.
func (c Column) WithName(name string) Column {
	c.name = name
	return c
}

// WithKey returns a copy of the column with the key flag set to isKey.
func (c Column) WithKey(isKey bool) Column {
	c.key = isKey
	return c
}

func (c Column) String() string {
	s := c.name + ":" + strings.ToLower(c.typ.String())
	if c.key {
		s += ":key"
	}
	return s
}

// TimeColumns returns the three reserved columns in their fixed order.
func TimeColumns() []Column {
	return []Column{
		NewColumn(StartTimeColumn, Numeric, false),
		NewColumn(EndTimeColumn, Numeric, false),
		NewColumn(DurationColumn, Numeric, false),
	}
}

// Schema is an ordered list of uniquely named columns.
type Schema struct {
	columns  []Column
	index    map[string]int
	temporal bool
}

// NewSchema validates name uniqueness and the placement of reserved columns.
func NewSchema(columns ...Column) (*Schema, error) {
	s := &Schema{
		columns: append([]Column(nil), columns...),
		index:   make(map[string]int, len(columns)),
	}
	reserved := 0
	for i, c := range s.columns {
		if c.name == "" {
			return nil, errors.Newf("column %d has an empty name", i)
		}
		if c.typ == Undefined {
			return nil, errors.Wrapf(ErrUnsupportedType, "column %q", c.name)
		}
		if _, dup := s.index[c.name]; dup {
			return nil, errors.Wrapf(ErrDuplicateColumn, "column %q", c.name)
		}
		s.index[c.name] = i
		if want, ok := reservedIndex[c.name]; ok {
			if want != i {
				return nil, errors.Wrapf(ErrReservedColumn, "%q at index %d, expected %d", c.name, i, want)
			}
			if c.typ != Numeric {
				return nil, errors.Wrapf(ErrReservedColumn, "%q must be numeric", c.name)
			}
			if c.key {
				return nil, errors.Wrapf(ErrReservedColumn, "%q cannot be a key column", c.name)
			}
			reserved++
		}
	}
	if reserved != 0 && reserved != NumTimeColumns {
		return nil, errors.Wrapf(ErrMissingTimeColumns, "found %d of %d reserved columns", reserved, NumTimeColumns)
	}
	s.temporal = reserved == NumTimeColumns
	return s, nil
}

// MustSchema is NewSchema for statically known column lists.
func MustSchema(columns ...Column) *Schema {
	s, err := NewSchema(columns...)
	if err != nil {
		panic(err)
	}
	return s
}

// NewTemporalSchema prepends the reserved columns to columns.
func NewTemporalSchema(columns ...Column) (*Schema, error) {
	return NewSchema(append(TimeColumns(), columns...)...)
}

func (s *Schema) Len() int { return len(s.columns) }

func (s *Schema) Column(i int) Column {
	if i < 0 || i >= len(s.columns) {
		badAccess("column index %d out of range [0,%d)", i, len(s.columns))
	}
	return s.columns[i]
}

// Columns returns a copy of the column list.
func (s *Schema) Columns() []Column {
	return append([]Column(nil), s.columns...)
}

func (s *Schema) Names() []string {
	names := make([]string, len(s.columns))
	for i, c := range s.columns {
		names[i] = c.name
	}
	return names
}

// IndexOf returns the position of the named column.
func (s *Schema) IndexOf(name string) (int, bool) {
	i, ok := s.index[name]
	return i, ok
}

// Lookup returns the named column or an ErrUnknownColumn error.
func (s *Schema) Lookup(name string) (int, Column, error) {
	i, ok := s.index[name]
	if !ok {
		return -1, Column{}, errors.Wrapf(ErrUnknownColumn, "%q not in %s", name, s)
	}
	return i, s.columns[i], nil
}

// IsTemporal reports whether the reserved columns are present.
func (s *Schema) IsTemporal() bool { return s.temporal }

// RequireTemporal returns an error unless the reserved columns are present at
// their fixed indices.
func (s *Schema) RequireTemporal(operator string) error {
	if !s.temporal {
		return errors.Wrapf(ErrMissingTimeColumns, "%s requires %s, %s and %s", operator,
			StartTimeColumn, EndTimeColumn, DurationColumn)
	}
	return nil
}

// KeyIndices returns the indices of key columns in schema order.
func (s *Schema) KeyIndices() []int {
	var keys []int
	for i, c := range s.columns {
		if c.key {
			keys = append(keys, i)
		}
	}
	return keys
}

// ValueIndices returns the indices of non-key, non-reserved columns.
func (s *Schema) ValueIndices() []int {
	var values []int
	for i, c := range s.columns {
		if !c.key && !IsReserved(c.name) {
			values = append(values, i)
		}
	}
	return values
}

// FirstValueIndex is the first index after the reserved columns, or 0 for
// non-temporal schemas.
func (s *Schema) FirstValueIndex() int {
	if s.temporal {
		return NumTimeColumns
	}
	return 0
}

// Equal reports whether both schemas have the same columns in the same order.
func (s *Schema) Equal(o *Schema) bool {
	if s == o {
		return true
	}
	if s == nil || o == nil || len(s.columns) != len(o.columns) {
		return false
	}
	for i := range s.columns {
		if s.columns[i] != o.columns[i] {
			return false
		}
	}
	return true
}

func (s *Schema) String() string {
	parts := make([]string, len(s.columns))
	for i, c := range s.columns {
		parts[i] = c.String()
	}
	return fmt.Sprintf("[%s]", strings.Join(parts, ", "))
}
