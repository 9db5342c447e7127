package plan

import (
	"testing"

	"github.com/bisegni/tsq/pkg/database"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSortPreSortedPrefix(t *testing.T) {
	byHost := sortBy(t, cpuScan(t), asc("host"))
	assert.Equal(t, 0, byHost.PreSorted())
	assert.Equal(t, "Sort(columns: [host ASC])", byHost.Explain())

	refined := sortBy(t, byHost, asc("host"), desc("load"))
	assert.Equal(t, 1, refined.PreSorted())
	assert.Equal(t, "Sort(columns: [host ASC, load DESC], pre-sorted: 1)", refined.Explain())

	reversed := sortBy(t, byHost, desc("host"))
	assert.Equal(t, 0, reversed.PreSorted())
}

func TestSortUnknownColumn(t *testing.T) {
	_, err := NewSort(cpuScan(t), []SortKey{asc("nope")})
	assert.ErrorIs(t, err, database.ErrUnknownColumn)
}

func TestFilterRejectsNonBoolean(t *testing.T) {
	scan := cpuScan(t)
	_, err := NewFilter(scan, analyze(t, scan, "load + 1")[0])
	assert.ErrorIs(t, err, database.ErrTypeMismatch)

	f, err := NewFilter(scan, analyze(t, scan, "load > 1")[0])
	require.NoError(t, err)
	assert.Equal(t, "Filter(predicate: (load > 1))", f.Explain())
	assert.Equal(t, []interface{}{3.0, 2.0, 4.0}, run(t, f, "load"))
}

func TestProjectExplainAndIdentity(t *testing.T) {
	scan := cpuScan(t)
	names := scan.Schema().Names()
	id, err := NewIdentityProject(scan, names)
	require.NoError(t, err)
	assert.True(t, id.IsIdentity())
	assert.False(t, id.DropsValues())

	p, err := NewProject(scan, analyze(t, scan, "host", "load * 2"), []string{"host", "double"})
	require.NoError(t, err)
	assert.False(t, p.IsIdentity())
	assert.True(t, p.DropsValues())
	assert.Equal(t, "Project(columns: [host, (load * 2) AS double])", p.Explain())
}

func TestAggregateNeedsClusteredInput(t *testing.T) {
	scan := cpuScan(t)
	outputs := analyze(t, scan, "host", "SUM(load)")
	names := []string{"host", "total"}

	_, err := NewSortedAggregate(scan, []string{"host"}, outputs, names)
	assert.ErrorIs(t, err, database.ErrUnsorted)

	agg, err := NewSortedAggregate(sortBy(t, scan, asc("host")), []string{"host"}, outputs, names)
	require.NoError(t, err)
	assert.Equal(t, "SortedAggregate(group: [host], outputs: [host, SUM(load) AS total])", agg.Explain())
	assert.Equal(t, []SortKey{asc("host")}, Ordering(agg))
	assert.Equal(t, []interface{}{5.0, 6.0}, run(t, agg, "total"))
}

func TestGlobalAggregate(t *testing.T) {
	scan := cpuScan(t)
	agg, err := NewSortedAggregate(scan, nil, analyze(t, scan, "COUNT()"), []string{"n"})
	require.NoError(t, err)
	assert.Equal(t, "SortedAggregate(group: global, outputs: [COUNT() AS n])", agg.Explain())
	assert.Empty(t, Ordering(agg))
	assert.Equal(t, []interface{}{5.0}, run(t, agg, "n"))
}

func TestTemporalAggregate(t *testing.T) {
	scan := cpuScan(t)
	agg, err := NewSortedTemporalAggregate(scan, nil, analyze(t, scan, "SUM(load)"), []string{"total"})
	require.NoError(t, err)
	assert.Equal(t, "SortedTemporalAggregate(group: global, outputs: [SUM(load) AS total])", agg.Explain())
	assert.Equal(t, []interface{}{1.0, 3.0, 3.0, 5.0, 7.0, 3.0}, run(t, agg, "total"))
}

func TestJoinNeedsSortedInputs(t *testing.T) {
	cpu, mem := sortBy(t, cpuScan(t), asc("host")), memScan(t)
	on := []string{"host"}

	_, err := NewSortedTemporalJoin(cpu, mem, on, on, true)
	assert.ErrorIs(t, err, database.ErrJoinColumns)

	_, err = NewSortedTemporalJoin(cpu, sortBy(t, mem, desc("host")), on, on, true)
	assert.ErrorIs(t, err, database.ErrJoinColumns)

	join, err := NewSortedTemporalJoin(cpu, sortBy(t, mem, asc("host")), on, on, true)
	require.NoError(t, err)
	assert.Equal(t, "SortedTemporalJoin(on: [host = host], drop right: true)", join.Explain())
	assert.Equal(t, []string{
		database.StartTimeColumn, database.EndTimeColumn, database.DurationColumn, "host", "load", "used",
	}, join.Schema().Names())
	assert.Equal(t, []SortKey{asc("host")}, Ordering(join))
	assert.Equal(t, []interface{}{1.0, 1.0, 3.0}, run(t, join, "load"))
	assert.Equal(t, []interface{}{7.0, 7.0, 7.0}, run(t, join, "used"))
}

func TestLimitAndMerging(t *testing.T) {
	scan := cpuScan(t)
	_, err := NewLimit(scan, -1)
	assert.Error(t, err)

	merged, err := NewIntervalMerging(scan)
	require.NoError(t, err)
	assert.Equal(t, "IntervalMerging()", merged.Explain())
	assert.Equal(t, []interface{}{1.0, 3.0, 2.0, 4.0}, run(t, merged, "load"))

	limited, err := NewLimit(merged, 3)
	require.NoError(t, err)
	assert.Equal(t, "Limit(rows: 3)", limited.Explain())
	assert.Equal(t, []interface{}{1.0, 3.0, 2.0}, run(t, limited, "load"))
}

func TestOrderingThroughProject(t *testing.T) {
	sorted := sortBy(t, cpuScan(t), asc("host"), desc("load"))
	renamed, err := NewProject(sorted, analyze(t, sorted, "host", "load"), []string{"machine", "load"})
	require.NoError(t, err)
	assert.Equal(t, []SortKey{asc("machine"), desc("load")}, Ordering(renamed))

	computed, err := NewProject(sorted, analyze(t, sorted, "UPPER(host)", "load"), []string{"host", "load"})
	require.NoError(t, err)
	assert.Empty(t, Ordering(computed))
}

func TestWithChildrenRebinds(t *testing.T) {
	scan := cpuScan(t)
	f, err := NewFilter(scan, analyze(t, scan, "load > 1")[0])
	require.NoError(t, err)

	reordered, err := NewIdentityProject(scan, []string{
		database.StartTimeColumn, database.EndTimeColumn, database.DurationColumn, "load", "host",
	})
	require.NoError(t, err)
	moved, err := f.WithChildren(reordered)
	require.NoError(t, err)
	assert.Equal(t, f.Explain(), moved.Explain())
	assert.Equal(t, []interface{}{3.0, 2.0, 4.0}, run(t, moved, "load"))

	_, err = f.WithChildren(scan, scan)
	assert.Error(t, err)
}

func TestTransformBottomUp(t *testing.T) {
	scan := cpuScan(t)
	limited, err := NewLimit(sortBy(t, scan, asc("host")), 2)
	require.NoError(t, err)

	var seen []string
	out, err := Transform(limited, func(n Node) (Node, error) {
		seen = append(seen, n.Explain())
		if l, ok := n.(*LimitNode); ok {
			return NewLimit(l.Input(), 4)
		}
		return n, nil
	})
	require.NoError(t, err)
	assert.Equal(t, []string{"LinearTableScan(table: cpu)", "Sort(columns: [host ASC])", "Limit(rows: 2)"}, seen)
	assert.Equal(t, "Limit(rows: 4){Sort(columns: [host ASC]){LinearTableScan(table: cpu)}}", Fingerprint(out))
}
