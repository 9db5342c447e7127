package plan

import (
	"testing"

	"github.com/bisegni/tsq/pkg/database"
	"github.com/bisegni/tsq/pkg/query"
	"github.com/stretchr/testify/require"
)

func buildTable(t *testing.T, cols []database.Column, rows ...[]interface{}) *database.MemoryTable {
	t.Helper()
	schema, err := database.NewTemporalSchema(cols...)
	require.NoError(t, err)
	b := database.NewTableBuilder(schema)
	for _, r := range rows {
		b.AddRow(r...)
	}
	table, err := b.Build()
	require.NoError(t, err)
	return table
}

// cpuScan has two hosts: a covers [0,30) and b covers [5,25).
func cpuScan(t *testing.T) *LinearTableScanNode {
	table := buildTable(t, []database.Column{
		database.NewColumn("host", database.String, true),
		database.NewColumn("load", database.Numeric, false),
	},
		[]interface{}{0, 10, nil, "a", 1},
		[]interface{}{10, 20, nil, "a", 1},
		[]interface{}{20, 30, nil, "a", 3},
		[]interface{}{5, 15, nil, "b", 2},
		[]interface{}{15, 25, nil, "b", 4},
	)
	return NewLinearTableScan("cpu", table)
}

// memScan only has host a, over [0,30).
func memScan(t *testing.T) *LinearTableScanNode {
	table := buildTable(t, []database.Column{
		database.NewColumn("host", database.String, true),
		database.NewColumn("used", database.Numeric, false),
	},
		[]interface{}{0, 30, nil, "a", 7},
	)
	return NewLinearTableScan("mem", table)
}

func analyze(t *testing.T, n Node, srcs ...string) []query.Expr {
	t.Helper()
	out := make([]query.Expr, len(srcs))
	for i, s := range srcs {
		e, err := query.NewScope(n.Schema()).AnalyzeString(s)
		require.NoError(t, err, s)
		out[i] = e
	}
	return out
}

func sortBy(t *testing.T, n Node, keys ...SortKey) *SortNode {
	t.Helper()
	s, err := NewSort(n, keys)
	require.NoError(t, err)
	return s
}

func asc(column string) SortKey  { return SortKey{Column: column} }
func desc(column string) SortKey { return SortKey{Column: column, Desc: true} }

// run compiles and executes n, returning the named column of every row.
func run(t *testing.T, n Node, column string) []interface{} {
	t.Helper()
	table, err := Compile(n)
	require.NoError(t, err)
	result := database.Materialize(table)
	c, col, err := result.Schema().Lookup(column)
	require.NoError(t, err)
	var out []interface{}
	for i := 0; i < result.NumTimeSeries(); i++ {
		rows := result.Series(i).Rows()
		for rows.LoadNext() {
			out = append(out, database.ValueFrom(rows.Row(), c, col.Type()).Interface())
		}
	}
	return out
}
