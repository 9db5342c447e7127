package optimizer

import (
	"testing"

	"github.com/bisegni/tsq/pkg/plan"
	"github.com/bisegni/tsq/pkg/query"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPushDownFilter(t *testing.T) {
	tests := []struct {
		name string
		plan func(t *testing.T) plan.Node
		want string
	}{
		{
			name: "merges adjacent filters",
			plan: func(t *testing.T) plan.Node {
				return filter(t, filter(t, cpuScan(t), "load > 1"), "host = 'a'")
			},
			want: tree(
				"└─ Filter(predicate: ((load > 1) AND (host = 'a')))",
				"   └─ LinearTableScan(table: cpu)",
			),
		},
		{
			name: "substitutes through project",
			plan: func(t *testing.T) plan.Node {
				return filter(t, project(t, cpuScan(t), "host", "host", "load * 2", "double"), "double > 4")
			},
			want: tree(
				"└─ Project(columns: [_start_time, _end_time, _duration, host, (load * 2) AS double])",
				"   └─ Filter(predicate: ((load * 2) > 4))",
				"      └─ LinearTableScan(table: cpu)",
			),
		},
		{
			name: "moves below sort",
			plan: func(t *testing.T) plan.Node {
				return filter(t, sortBy(t, cpuScan(t), "host"), "load > 1")
			},
			want: tree(
				"└─ Sort(columns: [host ASC])",
				"   └─ Filter(predicate: (load > 1))",
				"      └─ LinearTableScan(table: cpu)",
			),
		},
		{
			name: "keeps time predicates above merging",
			plan: func(t *testing.T) plan.Node {
				merged, err := plan.NewIntervalMerging(cpuScan(t))
				require.NoError(t, err)
				return filter(t, merged, "_duration > 10")
			},
			want: tree(
				"└─ Filter(predicate: (_duration > 10))",
				"   └─ IntervalMerging()",
				"      └─ LinearTableScan(table: cpu)",
			),
		},
		{
			name: "splits over aggregate",
			plan: func(t *testing.T) plan.Node {
				sorted := sortBy(t, cpuScan(t), "host")
				agg, err := plan.NewSortedAggregate(sorted, []string{"host"},
					[]query.Expr{analyze(t, sorted, "host"), analyze(t, sorted, "SUM(load)")},
					[]string{"host", "total"})
				require.NoError(t, err)
				return filter(t, agg, "host = 'a' AND total > 1")
			},
			want: tree(
				"└─ Filter(predicate: (total > 1))",
				"   └─ SortedAggregate(group: [host], outputs: [host, SUM(load) AS total])",
				"      └─ Filter(predicate: (host = 'a'))",
				"         └─ Sort(columns: [host ASC])",
				"            └─ LinearTableScan(table: cpu)",
			),
		},
		{
			name: "splits by join side",
			plan: func(t *testing.T) plan.Node {
				j := join(t, cpuScan(t), memScan(t), nil, nil)
				return filter(t, j, "load > 1 AND used > 5 AND host = node AND _duration > 3")
			},
			want: tree(
				"└─ Filter(predicate: ((host = node) AND (_duration > 3)))",
				"   └─ SortedTemporalJoin(on: [], drop right: false)",
				"      ├─ Filter(predicate: (load > 1))",
				"      │  └─ LinearTableScan(table: cpu)",
				"      └─ Filter(predicate: (used > 5))",
				"         └─ LinearTableScan(table: mem)",
			),
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			before := tt.plan(t)
			after, err := PushDownFilter(before)
			require.NoError(t, err)
			assert.Equal(t, tt.want, plan.FormatPlan(after))
			assert.ElementsMatch(t, rows(t, before), rows(t, after))
		})
	}
}

func TestPromoteJoinColumns(t *testing.T) {
	j := join(t, sortBy(t, cpuScan(t), "host"), sortBy(t, memScan(t), "node"), nil, nil)
	before := filter(t, j, "host = node AND load > 1")

	after, err := PromoteJoinColumns(before)
	require.NoError(t, err)
	assert.Equal(t, tree(
		"└─ Filter(predicate: (load > 1))",
		"   └─ SortedTemporalJoin(on: [host = node], drop right: false)",
		"      ├─ Sort(columns: [host ASC])",
		"      │  └─ LinearTableScan(table: cpu)",
		"      └─ Sort(columns: [node ASC])",
		"         └─ LinearTableScan(table: mem)",
	), plan.FormatPlan(after))
	assert.ElementsMatch(t, rows(t, before), rows(t, after))
}

func TestPromoteJoinColumnsSortsUnsortedInputs(t *testing.T) {
	before := filter(t, join(t, cpuScan(t), memScan(t), nil, nil), "node = host")

	after, err := PromoteJoinColumns(before)
	require.NoError(t, err)
	assert.Equal(t, tree(
		"└─ SortedTemporalJoin(on: [host = node], drop right: false)",
		"   ├─ Sort(columns: [host ASC])",
		"   │  └─ LinearTableScan(table: cpu)",
		"   └─ Sort(columns: [node ASC])",
		"      └─ LinearTableScan(table: mem)",
	), plan.FormatPlan(after))
	assert.ElementsMatch(t, rows(t, before), rows(t, after))
}

func TestPromoteIgnoresValueColumns(t *testing.T) {
	before := filter(t, join(t, cpuScan(t), memScan(t), nil, nil), "load = used")
	after, err := PromoteJoinColumns(before)
	require.NoError(t, err)
	assert.Equal(t, plan.Fingerprint(before), plan.Fingerprint(after))
}

func TestDropUnusedColumnsBelowAggregate(t *testing.T) {
	sorted := sortBy(t, cpuScan(t), "host")
	agg, err := plan.NewSortedAggregate(sorted, []string{"host"},
		[]query.Expr{analyze(t, sorted, "host"), analyze(t, sorted, "COUNT()")},
		[]string{"host", "n"})
	require.NoError(t, err)

	after, err := DropUnusedColumns(agg)
	require.NoError(t, err)
	assert.Equal(t, tree(
		"└─ SortedAggregate(group: [host], outputs: [host, COUNT() AS n])",
		"   └─ Sort(columns: [host ASC])",
		"      └─ Project(columns: [_start_time, _end_time, _duration, host])",
		"         └─ LinearTableScan(table: cpu)",
	), plan.FormatPlan(after))
	assert.Equal(t, rows(t, agg), rows(t, after))

	again, err := DropUnusedColumns(after)
	require.NoError(t, err)
	assert.Equal(t, plan.Fingerprint(after), plan.Fingerprint(again))
}

func TestDropUnusedColumnsAcrossJoin(t *testing.T) {
	j := join(t, sortBy(t, cpuScan(t), "host"), sortBy(t, memScan(t), "node"), []string{"host"}, []string{"node"})
	before := project(t, j, "host", "host", "used", "used")

	after, err := DropUnusedColumns(before)
	require.NoError(t, err)
	assert.Equal(t, tree(
		"└─ Project(columns: [_start_time, _end_time, _duration, host, used])",
		"   └─ SortedTemporalJoin(on: [host = node], drop right: true)",
		"      ├─ Sort(columns: [host ASC])",
		"      │  └─ Project(columns: [_start_time, _end_time, _duration, host])",
		"      │     └─ LinearTableScan(table: cpu)",
		"      └─ Sort(columns: [node ASC])",
		"         └─ LinearTableScan(table: mem)",
	), plan.FormatPlan(after))
}

func TestDropUnusedColumnsKeepsScanUnderProject(t *testing.T) {
	before := project(t, filter(t, cpuScan(t), "load > 1"), "host", "host")
	after, err := DropUnusedColumns(before)
	require.NoError(t, err)
	assert.Equal(t, plan.Fingerprint(before), plan.Fingerprint(after))
}

func TestCollapseProjects(t *testing.T) {
	inner := project(t, cpuScan(t), "host", "host", "load * 2", "d")
	outer := project(t, inner, "d + 1", "e")

	after, err := CollapseProjects(outer)
	require.NoError(t, err)
	assert.Equal(t, tree(
		"└─ Project(columns: [_start_time, _end_time, _duration, ((load * 2) + 1) AS e])",
		"   └─ LinearTableScan(table: cpu)",
	), plan.FormatPlan(after))
	assert.Equal(t, rows(t, outer), rows(t, after))

	s := cpuScan(t)
	identity, err := plan.NewIdentityProject(s, s.Schema().Names())
	require.NoError(t, err)
	out, err := CollapseProjects(identity)
	require.NoError(t, err)
	assert.Same(t, s, out)
}

func TestPlaceIntervalMerging(t *testing.T) {
	hosts := project(t, cpuScan(t), "host", "host")
	after, err := PlaceIntervalMerging(hosts)
	require.NoError(t, err)
	assert.Equal(t, tree(
		"└─ IntervalMerging()",
		"   └─ Project(columns: [_start_time, _end_time, _duration, host])",
		"      └─ LinearTableScan(table: cpu)",
	), plan.FormatPlan(after))
	assert.Equal(t, [][]interface{}{
		{0.0, 30.0, 30.0, "a"},
		{5.0, 25.0, 20.0, "b"},
	}, rows(t, after))

	again, err := PlaceIntervalMerging(after)
	require.NoError(t, err)
	assert.Equal(t, plan.Fingerprint(after), plan.Fingerprint(again))
}

func TestPlaceIntervalMergingRespectsRowCounts(t *testing.T) {
	limited, err := plan.NewLimit(project(t, cpuScan(t), "host", "host"), 2)
	require.NoError(t, err)
	after, err := PlaceIntervalMerging(limited)
	require.NoError(t, err)
	assert.Equal(t, plan.Fingerprint(limited), plan.Fingerprint(after))
}

func TestPlaceIntervalMergingCollapsesNested(t *testing.T) {
	inner, err := plan.NewIntervalMerging(cpuScan(t))
	require.NoError(t, err)
	outer, err := plan.NewIntervalMerging(inner)
	require.NoError(t, err)

	after, err := PlaceIntervalMerging(outer)
	require.NoError(t, err)
	assert.Equal(t, tree(
		"└─ IntervalMerging()",
		"   └─ LinearTableScan(table: cpu)",
	), plan.FormatPlan(after))
}
