package engine

import (
	"testing"

	"github.com/bisegni/tsq/pkg/database"
	"github.com/cockroachdb/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSortRegroups(t *testing.T) {
	cpu := cpuTable(t)
	s, err := NewSortTable(cpu, []SortColumn{{Index: 4, Desc: true}}, 0)
	require.NoError(t, err)

	assert.Empty(t, s.Schema().KeyIndices(), "host is not a sort column")
	assert.Equal(t, [][][]interface{}{
		{row(15, 25, 10, "b", 4)},
		{row(20, 30, 10, "a", 3)},
		{row(5, 15, 10, "b", 2)},
		{row(0, 10, 10, "a", 1), row(10, 20, 10, "a", 1)},
	}, collect(s))
}

func TestSortPreSorted(t *testing.T) {
	cpu := cpuTable(t)
	s, err := NewSortTable(cpu, []SortColumn{{Index: 3}, {Index: database.StartTimeIndex, Desc: true}}, 1)
	require.NoError(t, err)

	assert.Equal(t, []int{3}, s.Schema().KeyIndices())
	assert.Equal(t, []interface{}{20.0, 10.0, 0.0, 15.0, 5.0}, column(s, "_start_time"))

	it := s.Iterate()
	require.True(t, it.LoadNext())
	assert.Equal(t, "a", it.TimeSeries().GetString(3))
	require.True(t, it.LoadNext())
	assert.Equal(t, "b", it.TimeSeries().GetString(3))
	assert.False(t, it.LoadNext())
}

func TestSortIsMonotonic(t *testing.T) {
	table := buildTable(t, temporalSchema(t, key("host", database.String), value("load", database.Numeric)),
		[]interface{}{0, 1, nil, "c", 5},
		[]interface{}{1, 2, nil, "c", 1},
		[]interface{}{0, 1, nil, "a", 5},
		[]interface{}{3, 4, nil, "a", 2},
		[]interface{}{0, 1, nil, "b", 9},
		[]interface{}{2, 3, nil, "b", 1},
	)
	s, err := NewSortTable(table, []SortColumn{{Index: 4}, {Index: 3, Desc: true}}, 0)
	require.NoError(t, err)

	rows := flatten(s)
	require.Len(t, rows, 6)
	for i := 1; i < len(rows); i++ {
		prev, cur := rows[i-1], rows[i]
		if prev[4] == cur[4] {
			assert.GreaterOrEqual(t, prev[3], cur[3])
		} else {
			assert.Less(t, prev[4], cur[4])
		}
	}
	assert.Equal(t, []interface{}{1.0, 1.0, 2.0, 5.0, 5.0, 9.0}, column(s, "load"))
	assert.Equal(t, []interface{}{"c", "b", "a", "c", "a", "b"}, column(s, "host"))
}

func TestSortClustersKeys(t *testing.T) {
	table := buildTable(t, temporalSchema(t, key("host", database.String), value("load", database.Numeric)),
		[]interface{}{0, 1, nil, "b", 1},
		[]interface{}{0, 1, nil, "a", 1},
		[]interface{}{1, 2, nil, "b", 1},
	)
	// the builder groups b's rows together; sort must keep equal keys contiguous
	s, err := NewSortTable(table, []SortColumn{{Index: 3}}, 0)
	require.NoError(t, err)

	seen := map[string]bool{}
	last := ""
	it := s.Iterate()
	for it.LoadNext() {
		h := it.TimeSeries().GetString(3)
		if h != last {
			assert.False(t, seen[h], "key %s appears in two runs", h)
			seen[h] = true
			last = h
		}
	}
	assert.Len(t, seen, 2)
}

func TestSortRejects(t *testing.T) {
	cpu := cpuTable(t)
	_, err := NewSortTable(cpu, []SortColumn{{Index: 4}}, 1)
	assert.True(t, errors.Is(err, database.ErrNotKeyColumn))

	_, err = NewSortTable(cpu, []SortColumn{{Index: 3}, {Index: 3, Desc: true}}, 0)
	assert.True(t, errors.Is(err, database.ErrDuplicateColumn))

	_, err = NewSortTable(cpu, []SortColumn{{Index: 9}}, 0)
	assert.True(t, errors.Is(err, database.ErrUnknownColumn))
}
