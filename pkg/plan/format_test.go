package plan

import (
	"testing"

	"github.com/bisegni/tsq/pkg/database"
	"github.com/bisegni/tsq/pkg/engine"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFormatPlan(t *testing.T) {
	cpu := sortBy(t, cpuScan(t), asc("host"))
	mem := sortBy(t, memScan(t), asc("host"))
	join, err := NewSortedTemporalJoin(cpu, mem, []string{"host"}, []string{"host"}, true)
	require.NoError(t, err)

	expected := "" +
		"└─ SortedTemporalJoin(on: [host = host], drop right: true)\n" +
		"   ├─ Sort(columns: [host ASC])\n" +
		"   │  └─ LinearTableScan(table: cpu)\n" +
		"   └─ Sort(columns: [host ASC])\n" +
		"      └─ LinearTableScan(table: mem)\n"
	assert.Equal(t, expected, FormatPlan(join))
	assert.Equal(t,
		"SortedTemporalJoin(on: [host = host], drop right: true){"+
			"Sort(columns: [host ASC]){LinearTableScan(table: cpu)}, "+
			"Sort(columns: [host ASC]){LinearTableScan(table: mem)}}",
		Fingerprint(join))
}

func TestCompileWithStats(t *testing.T) {
	scan := cpuScan(t)
	limited, err := NewLimit(scan, 2)
	require.NoError(t, err)

	table, stats, err := CompileWithStats(limited)
	require.NoError(t, err)
	result := database.Materialize(table)
	assert.Equal(t, 2, result.NumRows())

	require.Contains(t, stats, Node(scan))
	require.Contains(t, stats, Node(limited))
	assert.Equal(t, int64(2), stats[limited].Rows)

	out := FormatPlanWithStats(limited, stats)
	assert.Contains(t, out, "└─ Limit(rows: 2)  ["+stats[limited].String()+"]\n")
	assert.Contains(t, out, "LinearTableScan(table: cpu)  [")

	plain := FormatPlanWithStats(limited, map[Node]*engine.Statistics{})
	assert.Equal(t, FormatPlan(limited), plain)
}
