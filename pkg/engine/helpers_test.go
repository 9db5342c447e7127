package engine

import (
	"testing"

	"github.com/bisegni/tsq/pkg/database"
	"github.com/bisegni/tsq/pkg/query"
	"github.com/stretchr/testify/require"
)

func key(name string, typ database.Type) database.Column {
	return database.NewColumn(name, typ, true)
}

func value(name string, typ database.Type) database.Column {
	return database.NewColumn(name, typ, false)
}

func temporalSchema(t *testing.T, cols ...database.Column) *database.Schema {
	t.Helper()
	s, err := database.NewTemporalSchema(cols...)
	require.NoError(t, err)
	return s
}

func buildTable(t *testing.T, schema *database.Schema, rows ...[]interface{}) *database.MemoryTable {
	t.Helper()
	b := database.NewTableBuilder(schema)
	for _, r := range rows {
		b.AddRow(r...)
	}
	table, err := b.Build()
	require.NoError(t, err)
	return table
}

// cpuTable has two hosts: a covers [0,30) and b covers [5,25).
func cpuTable(t *testing.T) *database.MemoryTable {
	return buildTable(t, temporalSchema(t, key("host", database.String), value("load", database.Numeric)),
		[]interface{}{0, 10, nil, "a", 1},
		[]interface{}{10, 20, nil, "a", 1},
		[]interface{}{20, 30, nil, "a", 3},
		[]interface{}{5, 15, nil, "b", 2},
		[]interface{}{15, 25, nil, "b", 4},
	)
}

func analyze(t *testing.T, schema *database.Schema, src string) query.Expr {
	t.Helper()
	e, err := query.NewScope(schema).AnalyzeString(src)
	require.NoError(t, err, src)
	return e
}

func analyzeAll(t *testing.T, schema *database.Schema, srcs ...string) []query.Expr {
	t.Helper()
	out := make([]query.Expr, len(srcs))
	for i, s := range srcs {
		out[i] = analyze(t, schema, s)
	}
	return out
}

func identity(t *testing.T, schema *database.Schema) ([]query.Expr, []string) {
	t.Helper()
	return analyzeAll(t, schema, schema.Names()...), schema.Names()
}

func readRow(r database.Record, schema *database.Schema) []interface{} {
	out := make([]interface{}, schema.Len())
	for c := range out {
		out[c] = database.ValueFrom(r, c, schema.Column(c).Type()).Interface()
	}
	return out
}

// collect returns every time series of table as a list of rows.
func collect(table database.Table) [][][]interface{} {
	var out [][][]interface{}
	it := table.Iterate()
	for it.LoadNext() {
		var series [][]interface{}
		rows := it.TimeSeries().Rows()
		for rows.LoadNext() {
			series = append(series, readRow(rows.Row(), table.Schema()))
		}
		out = append(out, series)
	}
	return out
}

// flatten returns the rows of table ignoring time series boundaries.
func flatten(table database.Table) [][]interface{} {
	var out [][]interface{}
	for _, series := range collect(table) {
		out = append(out, series...)
	}
	return out
}

func row(values ...interface{}) []interface{} {
	out := make([]interface{}, len(values))
	for i, v := range values {
		if n, ok := v.(int); ok {
			out[i] = float64(n)
		} else {
			out[i] = v
		}
	}
	return out
}

func column(table database.Table, name string) []interface{} {
	i, ok := table.Schema().IndexOf(name)
	if !ok {
		panic("no column " + name)
	}
	var out []interface{}
	for _, r := range flatten(table) {
		out = append(out, r[i])
	}
	return out
}
