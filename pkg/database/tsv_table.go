package database

import (
	"io"
	"strconv"

	"github.com/bisegni/tsq/pkg/parser"
	"github.com/cockroachdb/errors"
)

// TSVTable is a table loaded from a tab-separated interval file. Reserved
// columns are moved to the front; a missing _duration is computed.
type TSVTable struct {
	*MemoryTable
	filename string
}

func NewTSVTable(filename string) (*TSVTable, error) {
	p, err := parser.NewParser(filename)
	if err != nil {
		return nil, err
	}
	defer p.Close()

	t, err := loadTSV(p)
	if err != nil {
		return nil, errors.Wrapf(err, "loading %s", filename)
	}
	return &TSVTable{MemoryTable: t, filename: filename}, nil
}

// ReadTSV loads a table from r.
func ReadTSV(r io.Reader) (*MemoryTable, error) {
	p, err := parser.NewReaderParser(r)
	if err != nil {
		return nil, err
	}
	return loadTSV(p)
}

func (t *TSVTable) Filename() string { return t.filename }

// SchemaFromHeader converts header fields to a schema. The second result
// maps each schema column to its cell index, -1 for a computed duration.
func SchemaFromHeader(fields []parser.Field) (*Schema, []int, error) {
	cells := make(map[string]int, len(fields))
	for i, f := range fields {
		cells[f.Name] = i
	}
	var columns []Column
	var mapping []int
	add := func(f parser.Field, cell int) error {
		typ, ok := ParseType(f.Type)
		if !ok {
			return errors.Wrapf(ErrUnsupportedType, "column %q has type %q", f.Name, f.Type)
		}
		columns = append(columns, NewColumn(f.Name, typ, f.Key))
		mapping = append(mapping, cell)
		return nil
	}

	_, hasStart := cells[StartTimeColumn]
	_, hasEnd := cells[EndTimeColumn]
	dur, hasDuration := cells[DurationColumn]
	if hasStart && hasEnd {
		for _, name := range []string{StartTimeColumn, EndTimeColumn} {
			if err := add(fields[cells[name]], cells[name]); err != nil {
				return nil, nil, err
			}
		}
		if hasDuration {
			if err := add(fields[dur], dur); err != nil {
				return nil, nil, err
			}
		} else {
			columns = append(columns, NewColumn(DurationColumn, Numeric, false))
			mapping = append(mapping, -1)
		}
	}
	for i, f := range fields {
		if hasStart && hasEnd && IsReserved(f.Name) {
			continue
		}
		if err := add(f, i); err != nil {
			return nil, nil, err
		}
	}
	schema, err := NewSchema(columns...)
	if err != nil {
		return nil, nil, err
	}
	return schema, mapping, nil
}

func loadTSV(p *parser.Parser) (*MemoryTable, error) {
	schema, mapping, err := SchemaFromHeader(p.Header())
	if err != nil {
		return nil, err
	}
	b := NewTableBuilder(schema)
	row := make(Tuple, schema.Len())
	err = p.ForEachRecord(func(r parser.Record) error {
		for i, cell := range mapping {
			if cell < 0 {
				row[i] = Value{}
				continue
			}
			v, err := parseCell(r[cell], schema.Column(i).Type())
			if err != nil {
				return errors.Wrapf(err, "line %d, column %q", p.Line(), schema.Column(i).Name())
			}
			row[i] = v
		}
		b.AddTuple(append(Tuple(nil), row...))
		return nil
	})
	if err != nil {
		return nil, err
	}
	return b.Build()
}

func parseCell(cell string, typ Type) (Value, error) {
	switch typ {
	case Boolean:
		b, err := strconv.ParseBool(cell)
		if err != nil {
			return Value{}, errors.Wrapf(ErrTypeMismatch, "%q is not a boolean", cell)
		}
		return BooleanValue(b), nil
	case Numeric:
		n, err := strconv.ParseFloat(cell, 64)
		if err != nil {
			return Value{}, errors.Wrapf(ErrTypeMismatch, "%q is not a number", cell)
		}
		return NumericValue(n), nil
	default:
		return StringValue(cell), nil
	}
}

// FormatCell renders column c of r the way the TSV reader parses it.
func FormatCell(r Record, c int, typ Type) string {
	switch typ {
	case Boolean:
		return strconv.FormatBool(r.GetBoolean(c))
	case Numeric:
		return strconv.FormatFloat(r.GetNumeric(c), 'g', -1, 64)
	default:
		return r.GetString(c)
	}
}

// HeaderFields converts a schema back to header fields.
func HeaderFields(s *Schema) []parser.Field {
	fields := make([]parser.Field, s.Len())
	for i, c := range s.columns {
		fields[i] = parser.Field{Name: c.name, Type: shortTypeName(c.typ), Key: c.key}
	}
	return fields
}

func shortTypeName(t Type) string {
	switch t {
	case Boolean:
		return "bool"
	case Numeric:
		return "num"
	default:
		return "str"
	}
}
