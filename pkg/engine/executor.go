package engine

import (
	"fmt"
	"io"
	"strings"

	"github.com/bisegni/tsq/pkg/database"
	"github.com/bisegni/tsq/pkg/expr"
	"github.com/bisegni/tsq/pkg/logging"
	"github.com/bisegni/tsq/pkg/parser"
	"github.com/cockroachdb/errors"
	"github.com/fatih/color"
)

// OutputFormat selects how Execute renders results.
type OutputFormat string

const (
	FormatTSV   OutputFormat = "tsv"
	FormatTable OutputFormat = "table"
)

func ParseOutputFormat(s string) (OutputFormat, error) {
	switch f := OutputFormat(strings.ToLower(s)); f {
	case FormatTSV, FormatTable:
		return f, nil
	default:
		return "", errors.Newf("unknown output format %q (want tsv or table)", s)
	}
}

// Executor drains a table and renders it.
type Executor struct {
	Format OutputFormat
	// MaxRows truncates the table view; zero shows every row.
	MaxRows int
	Color   bool
}

func NewExecutor() *Executor {
	return &Executor{Format: FormatTSV}
}

// Run drains table into memory. An evaluation error raised while rows are
// produced is returned as an error and no result is returned with it.
func (e *Executor) Run(table database.Table) (result *database.MemoryTable, err error) {
	defer func() {
		if r := recover(); r != nil {
			ee, ok := r.(*expr.EvaluationError)
			if !ok {
				panic(r)
			}
			result, err = nil, ee
		}
	}()
	result = database.Materialize(table)
	logging.WithComponent("executor").Debug("query executed",
		"series", result.NumTimeSeries(), "rows", result.NumRows())
	return result, nil
}

// Execute runs table and writes the result to w. Nothing is written when
// evaluation fails.
func (e *Executor) Execute(table database.Table, w io.Writer) error {
	result, err := e.Run(table)
	if err != nil {
		return err
	}
	if e.Format == FormatTable {
		return e.writeTable(result, w)
	}
	return WriteTSV(result, w)
}

// WriteTSV writes result as an interval file with a typed header.
func WriteTSV(result *database.MemoryTable, w io.Writer) error {
	schema := result.Schema()
	out := parser.NewWriter(w)
	if err := out.WriteHeader(database.HeaderFields(schema)); err != nil {
		return errors.Wrap(err, "writing header")
	}
	record := make(parser.Record, schema.Len())
	err := forEachRow(result, func(r database.Row) error {
		for c := range record {
			record[c] = database.FormatCell(r, c, schema.Column(c).Type())
		}
		return out.Write(record)
	})
	if err != nil {
		return errors.Wrap(err, "writing rows")
	}
	return out.Flush()
}

func forEachRow(t *database.MemoryTable, fn func(database.Row) error) error {
	for i := 0; i < t.NumTimeSeries(); i++ {
		rows := t.Series(i).Rows()
		for rows.LoadNext() {
			if err := fn(rows.Row()); err != nil {
				return err
			}
		}
	}
	return nil
}

// writeTable renders an aligned console view, at most MaxRows rows.
func (e *Executor) writeTable(result *database.MemoryTable, w io.Writer) error {
	schema := result.Schema()
	total := result.NumRows()
	shown := total
	if e.MaxRows > 0 && shown > e.MaxRows {
		shown = e.MaxRows
	}

	cells := [][]string{schema.Names()}
	for i := 0; i < result.NumTimeSeries() && len(cells) <= shown; i++ {
		rows := result.Series(i).Rows()
		for len(cells) <= shown && rows.LoadNext() {
			line := make([]string, schema.Len())
			for c := range line {
				line[c] = database.FormatCell(rows.Row(), c, schema.Column(c).Type())
			}
			cells = append(cells, line)
		}
	}

	widths := make([]int, schema.Len())
	for _, line := range cells {
		for c, s := range line {
			widths[c] = max(widths[c], len(s))
		}
	}

	header := color.New(color.FgCyan, color.Bold)
	if !e.Color {
		header.DisableColor()
	}
	var sb strings.Builder
	for i, line := range cells {
		for c, s := range line {
			if c > 0 {
				sb.WriteString("  ")
			}
			padded := s + strings.Repeat(" ", widths[c]-len(s))
			if c == len(line)-1 {
				padded = s
			}
			if i == 0 {
				padded = header.Sprint(padded)
			}
			sb.WriteString(padded)
		}
		sb.WriteByte('\n')
	}
	if shown < total {
		fmt.Fprintf(&sb, "... %d of %d rows shown\n", shown, total)
	} else {
		fmt.Fprintf(&sb, "(%d rows)\n", total)
	}
	_, err := io.WriteString(w, sb.String())
	return err
}
