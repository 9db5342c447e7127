package optimizer

import (
	"testing"

	"github.com/bisegni/tsq/pkg/database"
	"github.com/bisegni/tsq/pkg/plan"
	"github.com/bisegni/tsq/pkg/query"
	"github.com/stretchr/testify/require"
)

var reserved = []string{database.StartTimeColumn, database.EndTimeColumn, database.DurationColumn}

func scan(t *testing.T, name string, cols []database.Column, rows ...[]interface{}) *plan.LinearTableScanNode {
	t.Helper()
	schema, err := database.NewTemporalSchema(cols...)
	require.NoError(t, err)
	b := database.NewTableBuilder(schema)
	for _, r := range rows {
		b.AddRow(r...)
	}
	table, err := b.Build()
	require.NoError(t, err)
	return plan.NewLinearTableScan(name, table)
}

// cpuScan has two hosts: a covers [0,30) and b covers [5,25).
func cpuScan(t *testing.T) *plan.LinearTableScanNode {
	return scan(t, "cpu", []database.Column{
		database.NewColumn("host", database.String, true),
		database.NewColumn("load", database.Numeric, false),
	},
		[]interface{}{0, 10, nil, "a", 1},
		[]interface{}{10, 20, nil, "a", 1},
		[]interface{}{20, 30, nil, "a", 3},
		[]interface{}{5, 15, nil, "b", 2},
		[]interface{}{15, 25, nil, "b", 4},
	)
}

func memScan(t *testing.T) *plan.LinearTableScanNode {
	return scan(t, "mem", []database.Column{
		database.NewColumn("node", database.String, true),
		database.NewColumn("used", database.Numeric, false),
	},
		[]interface{}{0, 30, nil, "a", 7},
		[]interface{}{0, 10, nil, "b", 3},
	)
}

func analyze(t *testing.T, n plan.Node, src string) query.Expr {
	t.Helper()
	e, err := query.NewScope(n.Schema()).AnalyzeString(src)
	require.NoError(t, err, src)
	return e
}

func project(t *testing.T, n plan.Node, items ...string) *plan.ProjectNode {
	t.Helper()
	exprs := make([]query.Expr, 0, len(items)+len(reserved))
	names := make([]string, 0, len(items)+len(reserved))
	for _, r := range reserved {
		exprs = append(exprs, analyze(t, n, r))
		names = append(names, r)
	}
	for i := 0; i < len(items); i += 2 {
		exprs = append(exprs, analyze(t, n, items[i]))
		names = append(names, items[i+1])
	}
	p, err := plan.NewProject(n, exprs, names)
	require.NoError(t, err)
	return p
}

func filter(t *testing.T, n plan.Node, src string) *plan.FilterNode {
	t.Helper()
	f, err := plan.NewFilter(n, analyze(t, n, src))
	require.NoError(t, err)
	return f
}

func sortBy(t *testing.T, n plan.Node, columns ...string) *plan.SortNode {
	t.Helper()
	keys := make([]plan.SortKey, len(columns))
	for i, c := range columns {
		keys[i] = plan.SortKey{Column: c}
	}
	s, err := plan.NewSort(n, keys)
	require.NoError(t, err)
	return s
}

func join(t *testing.T, left, right plan.Node, leftOn, rightOn []string) *plan.SortedTemporalJoinNode {
	t.Helper()
	j, err := plan.NewSortedTemporalJoin(left, right, leftOn, rightOn, false)
	require.NoError(t, err)
	return j
}

// rows executes n and returns every row, ignoring time series boundaries.
func rows(t *testing.T, n plan.Node) [][]interface{} {
	t.Helper()
	table, err := plan.Compile(n)
	require.NoError(t, err)
	result := database.Materialize(table)
	schema := result.Schema()
	var out [][]interface{}
	for i := 0; i < result.NumTimeSeries(); i++ {
		it := result.Series(i).Rows()
		for it.LoadNext() {
			r := make([]interface{}, schema.Len())
			for c := range r {
				r[c] = database.ValueFrom(it.Row(), c, schema.Column(c).Type()).Interface()
			}
			out = append(out, r)
		}
	}
	return out
}

func tree(lines ...string) string {
	var s string
	for _, l := range lines {
		s += l + "\n"
	}
	return s
}
